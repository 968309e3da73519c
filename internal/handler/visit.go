package handler

import (
	"net/http"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

type activityResponse struct {
	Date   string                 `json:"date"`
	Visits []domain.ActivityEntry `json:"visits"`
}

type watchListResponse struct {
	Guests []domain.WatchEntry `json:"guests"`
}

// DeleteVisit handles DELETE /api/visits/{visitId}.
// Deleting a visit gives the guest's quota back.
func (s *Server) DeleteVisit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "visitId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.visits.DeleteVisit(r.Context(), id); err != nil {
		s.writeError(w, r, err, "visit not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetVisitsToday handles GET /api/visits-today?date=.
// Without a date it shows today in the club's time zone.
func (s *Server) GetVisitsToday(w http.ResponseWriter, r *http.Request) {
	date, visits, err := s.summary.DailyActivity(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.writeError(w, r, err, "visit not found")
		return
	}
	writeJSON(w, http.StatusOK, activityResponse{Date: date, Visits: visits})
}

// GetWatchList handles GET /api/watchlist.
func (s *Server) GetWatchList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.summary.WatchList(r.Context())
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, watchListResponse{Guests: entries})
}
