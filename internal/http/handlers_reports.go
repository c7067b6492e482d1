package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"wealthtrack/internal/export"
	"wealthtrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// handleReady checks the store when it can be pinged.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if p, ok := s.store().(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}
	checks["cache"] = map[string]any{"entries": s.reportCache.Size()}
	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.ActiveClients()}
	if s.sheets != nil {
		checks["sheets"] = "configured"
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics reports request, cache and security counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
		"requests":      s.traceMiddleware.GetMetrics(),
		"rateLimit":     s.rateLimiter.GetMetrics(),
		"security":      s.securityDetector.GetMetrics(),
		"reportCache":   s.reportCache.Stats(),
	}).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	year := q.Int("year", 0)
	period := q.Period("period")
	cur := q.Currency("currency")
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}

	dash, err := s.reports.Dashboard(r.Context(), year, period, cur)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(dash).Write(w)
}

// handleReport answers the cash-flow report as JSON, or its monthly series
// as CSV.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	period := q.Period("period")
	cur := q.Currency("currency")
	format := q.Format("format")
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}

	rep, err := s.reports.Report(r.Context(), period, cur)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	if format == "csv" {
		writeTable(w, r, export.CashFlowTable(rep.CashFlow.Monthly), "report-"+string(period)+".csv")
		return
	}
	NewResponse().JSON(rep).Write(w)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.reports.Analytics(r.Context())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewResponse().JSON(a).Write(w)
}

// handleExport dumps one record family as a table.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	entity := q.String("entity", export.EntityExpenses)
	format := q.Format("format")
	dr := q.DateRange()
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}

	t, err := export.ForEntity(r.Context(), s.store(), entity, dr)
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Exported records",
		log.FieldEntity, entity, log.FieldRows, len(t.Rows), log.FieldOperation, log.OpExport)

	if format == "csv" {
		writeTable(w, r, t, entity+".csv")
		return
	}
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, t); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewResponse().Raw(contentTypeJSON, buf.Bytes()).Write(w)
}

func writeTable(w http.ResponseWriter, r *http.Request, t export.Table, filename string) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, t); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	NewResponse().
		Header("Content-Disposition", `attachment; filename="`+filename+`"`).
		Raw(contentTypeCSV, buf.Bytes()).
		Write(w)
}

// handleExportSheets writes the monthly cash flow of a period to Google Sheets.
func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		ErrorResponse(r, http.StatusServiceUnavailable, "google sheets export is not configured").Write(w)
		return
	}
	q := NewQueryParams(r)
	period := q.Period("period")
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}

	rep, err := s.reports.Report(r.Context(), period, "")
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	rows, err := s.sheets.WriteTable(r.Context(), export.CashFlowTable(rep.CashFlow.Monthly))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Sheets export failed",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		ErrorResponse(r, http.StatusBadGateway, "google sheets export failed").Write(w)
		return
	}
	NewResponse().JSON(map[string]any{"period": period, "rows": rows}).Write(w)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	q := NewQueryParams(r)
	dr := q.DateRange()
	if err := q.Err(); err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	snaps, err := s.store().ListSnapshots(r.Context(), export.WholeDays(dr))
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	listResponse(snaps).Write(w)
}

// handleTakeSnapshot records the current net worth.
func (s *Server) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		ErrorResponse(r, http.StatusServiceUnavailable, "snapshots are not enabled").Write(w)
		return
	}
	snap, err := s.snapshots.Take(r.Context())
	if err != nil {
		ErrorFor(r, err).Write(w)
		return
	}
	s.invalidateReports()
	NewResponse().Status(http.StatusCreated).JSON(snap).Write(w)
}
