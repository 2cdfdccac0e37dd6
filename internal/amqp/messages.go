package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"painel/internal/core"
)

const (
	TypeSnapshotRequest = "snapshot.request"
	TypeExportCompleted = "export.completed"
)

// Envelope is the JSON body of every message on the dashboard queue.
// Exactly one payload field is set, matching Type.
type Envelope struct {
	Type      string           `json:"type"`
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Snapshot  *SnapshotRequest `json:"snapshot,omitempty"`
	Export    *ExportCompleted `json:"export,omitempty"`
}

// SnapshotRequest asks the worker to record today's metrics snapshot.
type SnapshotRequest struct {
	Window   int    `json:"window"`
	Category string `json:"category"`
}

// ExportCompleted announces a finished CSV export.
type ExportCompleted struct {
	ExportID  string    `json:"export_id"`
	Filename  string    `json:"filename"`
	Rows      int       `json:"rows"`
	Window    int       `json:"window"`
	Category  string    `json:"category"`
	Search    string    `json:"search,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newEnvelope(typ string) *Envelope {
	return &Envelope{Type: typ, ID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

func NewSnapshotRequest(w core.Window, c core.Category) *Envelope {
	e := newEnvelope(TypeSnapshotRequest)
	e.Snapshot = &SnapshotRequest{Window: int(w), Category: string(c)}
	return e
}

func NewExportCompleted(r core.ExportRecord) *Envelope {
	e := newEnvelope(TypeExportCompleted)
	e.Export = &ExportCompleted{
		ExportID:  r.ID,
		Filename:  r.Filename,
		Rows:      r.Rows,
		Window:    int(r.Window),
		Category:  string(r.Category),
		Search:    r.Search,
		CreatedAt: r.CreatedAt,
	}
	return e
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EnvelopeFromJSON decodes and validates a message body.
func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case TypeSnapshotRequest:
		if e.Snapshot == nil {
			return nil, errors.New("snapshot request without payload")
		}
		if err := core.Window(e.Snapshot.Window).Validate(); err != nil {
			return nil, fmt.Errorf("snapshot request: %w", err)
		}
	case TypeExportCompleted:
		if e.Export == nil {
			return nil, errors.New("export event without payload")
		}
	default:
		return nil, fmt.Errorf("unknown message type %q", e.Type)
	}
	return &e, nil
}

// Selection returns the window and category the request refers to.
// An unknown category falls back to all categories.
func (s *SnapshotRequest) Selection() (core.Window, core.Category) {
	c, _ := core.ParseCategory(s.Category)
	return core.Window(s.Window), c
}

// Record converts the event back into the domain record.
func (x *ExportCompleted) Record() core.ExportRecord {
	c, _ := core.ParseCategory(x.Category)
	return core.ExportRecord{
		ID:        x.ExportID,
		Filename:  x.Filename,
		Rows:      x.Rows,
		Window:    core.Window(x.Window),
		Category:  c,
		Search:    x.Search,
		CreatedAt: x.CreatedAt,
	}
}
