package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"painel/internal/core"
)

// SeedFile is the optional supplier seed file name inside the data dir.
const SeedFile = "seed_suppliers.txt"

type snapshotKey struct {
	window   core.Window
	category core.Category
}

// Store keeps suppliers, snapshots and the export log in process memory.
type Store struct {
	mu        sync.Mutex
	suppliers []core.Supplier
	snapshots map[snapshotKey][]core.MetricsSnapshot
	exports   []core.ExportRecord
}

func New(suppliers []core.Supplier) *Store {
	return &Store{
		suppliers: cloneSuppliers(suppliers),
		snapshots: make(map[snapshotKey][]core.MetricsSnapshot),
	}
}

// NewFromFiles loads base/seed_suppliers.txt. Lines look like
//
//	1|TechSolutions Brasil|software|125000|15/01/2025=15000;15/12/2024=15000
//
// Blank lines, comments and malformed lines are skipped. Without any valid
// line the default supplier set is used.
func NewFromFiles(base string) *Store {
	var suppliers []core.Supplier
	for _, line := range readLines(filepath.Join(base, SeedFile)) {
		s, err := ParseSupplierLine(line)
		if err != nil {
			continue
		}
		suppliers = append(suppliers, s)
	}
	if len(suppliers) == 0 {
		suppliers = DefaultSuppliers()
	}
	return New(dedupeByID(suppliers))
}

// ListSuppliers returns a copy of the suppliers in seed order.
func (s *Store) ListSuppliers(_ context.Context) ([]core.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSuppliers(s.suppliers), nil
}

// SaveSnapshot stores the snapshot, replacing any earlier one for the same
// selection and day.
func (s *Store) SaveSnapshot(_ context.Context, snap core.MetricsSnapshot) error {
	if err := snap.Window.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := snapshotKey{snap.Window, snap.Category}
	list := s.snapshots[k]
	for i := range list {
		if list[i].Day.Equal(snap.Day.Time) {
			list[i] = snap
			return nil
		}
	}
	s.snapshots[k] = append(list, snap)
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context, w core.Window, c core.Category, onOrBefore core.Date) (core.MetricsSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		best  core.MetricsSnapshot
		found bool
	)
	for _, snap := range s.snapshots[snapshotKey{w, c}] {
		if snap.Day.After(onOrBefore.Time) {
			continue
		}
		if !found || snap.Day.After(best.Day.Time) {
			best, found = snap, true
		}
	}
	return best, found, nil
}

// RecordExport appends to the in-memory export log.
func (s *Store) RecordExport(_ context.Context, r core.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, r)
	return nil
}

// Exports returns the recorded exports, oldest first.
func (s *Store) Exports() []core.ExportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ExportRecord(nil), s.exports...)
}

// ParseSupplierLine parses one pipe-separated seed line.
func ParseSupplierLine(line string) (core.Supplier, error) {
	parts := strings.Split(line, "|")
	if len(parts) < 4 || len(parts) > 5 {
		return core.Supplier{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(parts))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return core.Supplier{}, fmt.Errorf("invalid id: %w", err)
	}
	cat, ok := core.ParseCategory(parts[2])
	if !ok || !cat.Valid() {
		return core.Supplier{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, parts[2])
	}
	total, err := core.ParseDecimalToCents(parts[3])
	if err != nil {
		return core.Supplier{}, fmt.Errorf("invalid total paid: %w", err)
	}
	s := core.Supplier{
		ID:        id,
		Name:      strings.TrimSpace(parts[1]),
		Category:  cat,
		TotalPaid: core.Money{Cents: total},
	}
	if len(parts) == 5 {
		for _, raw := range strings.Split(parts[4], ";") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			date, amount, found := strings.Cut(raw, "=")
			if !found {
				return core.Supplier{}, fmt.Errorf("invalid invoice %q", raw)
			}
			d, err := core.ParseBRDate(date)
			if err != nil {
				return core.Supplier{}, err
			}
			cents, err := core.ParseDecimalToCents(amount)
			if err != nil {
				return core.Supplier{}, fmt.Errorf("invalid invoice amount %q: %w", amount, err)
			}
			s.Invoices = append(s.Invoices, core.Invoice{Date: d, Amount: core.Money{Cents: cents}})
		}
	}
	if err := s.Validate(); err != nil {
		return core.Supplier{}, err
	}
	return s, nil
}

func cloneSuppliers(in []core.Supplier) []core.Supplier {
	out := make([]core.Supplier, len(in))
	for i, s := range in {
		s.Invoices = append([]core.Invoice(nil), s.Invoices...)
		out[i] = s
	}
	return out
}

// dedupeByID keeps the first supplier for each id, preserving order.
func dedupeByID(in []core.Supplier) []core.Supplier {
	seen := map[int64]struct{}{}
	out := make([]core.Supplier, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
