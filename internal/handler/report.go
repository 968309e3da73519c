package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/service"
)

// GetGuestReport handles GET /api/report/guests?year=.
// The report is rendered into a buffer first so a failure still gets a JSON
// error instead of a truncated attachment.
func (s *Server) GetGuestReport(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if year == 0 {
		year = s.summary.CurrentYear()
	}

	rows, err := s.summary.Report(r.Context(), year)
	if err != nil {
		s.writeError(w, r, err, "report not found")
		return
	}

	var buf bytes.Buffer
	if err := service.WriteReportCSV(&buf, rows); err != nil {
		s.writeError(w, r, err, "report not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ReportFilename(year)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client went away; nothing to do.
	buf.WriteTo(w)
}
