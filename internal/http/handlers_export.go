package http

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"painel/internal/export"
	applog "painel/internal/log"
)

// handleExportCSV streams the filtered suppliers as a CSV attachment. The
// success notification rides on the response headers; any failure before
// the body is sent becomes a 500 with an error notification instead.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sel := s.selection(r)

	res, err := s.dashboard.Export(ctx, sel)
	if err != nil {
		atomic.AddInt64(&s.metrics.exportFailures, 1)
		s.structured.LogError(ctx, "CSV export failed", err, applog.ComponentExport, applog.OpExport,
			s.fields(r).WithSelection(sel.Window.Days(), sel.Category.String(), sel.Search))
		_ = InternalServerError("Falha ao exportar os fornecedores.").
			TriggerErrorNotification("Falha ao exportar CSV").
			Write(w)
		return
	}

	rec := res.Record
	err = NewHTMXResponse().
		Header("Content-Type", export.ContentType).
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.Filename)).
		TriggerExportCompleted(rec.Filename, rec.Rows).
		TriggerSuccessNotification(fmt.Sprintf("%d fornecedores exportados", rec.Rows)).
		BodyString(res.Payload).
		Write(w)
	if err != nil {
		// headers are gone, only the log can record it
		atomic.AddInt64(&s.metrics.exportFailures, 1)
		s.structured.LogError(ctx, "CSV export response write failed", err, applog.ComponentExport, applog.OpExport,
			s.fields(r).WithExport(rec.ID, rec.Filename, rec.Rows))
		return
	}

	atomic.AddInt64(&s.metrics.exports, 1)
	s.structured.LogExportCompleted(ctx, rec.ID, rec.Filename, rec.Rows,
		sel.Window.Days(), sel.Category.String(), sel.Search)
}
