package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

const guestNotFound = "guest not found"

// guestUpdateRequest is the body of PATCH /api/guests/{guestId}.
// Omitted and null fields are left alone; an empty string clears the field.
type guestUpdateRequest struct {
	FirstName     *string `json:"firstName"`
	LastName      *string `json:"lastName"`
	LicenseState  *string `json:"licenseState"`
	LicenseNumber *string `json:"licenseNumber"`
	Phone         *string `json:"phoneNumber"`
	Email         *string `json:"email"`
}

// guestWithSummary is returned by the license lookup for form auto-fill.
type guestWithSummary struct {
	Guest   domain.Guest        `json:"guest"`
	Summary domain.GuestSummary `json:"summary"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type guestPage struct {
	Data       []domain.Guest `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// Lookup handles GET /api/lookup?q=.
func (s *Server) Lookup(w http.ResponseWriter, r *http.Request) {
	guests, err := s.guests.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, guests)
}

// GetGuestByLicense handles GET /api/guest-by-license?state=&number=.
// It never creates a guest.
func (s *Server) GetGuestByLicense(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	guest, err := s.guests.FindByLicense(r.Context(), q.Get("state"), q.Get("number"))
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	summary, err := s.summary.GuestSummary(r.Context(), guest.ID, 0)
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, guestWithSummary{Guest: guest, Summary: summary})
}

// ListArchivedGuests handles GET /api/guests/archived.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListArchivedGuests(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	params := domain.NewPaginationParams(page, limit)
	guests, total, err := s.guests.ListArchived(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, guestPage{
		Data:       guests,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// GetGuest handles GET /api/guests/{guestId}.
func (s *Server) GetGuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "guestId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	guest, err := s.guests.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, guest)
}

// UpdateGuest handles PATCH /api/guests/{guestId}.
func (s *Server) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "guestId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var body guestUpdateRequest
	if err := decodeBody(r, &body); err != nil {
		requestError(w, err)
		return
	}

	updated, err := s.guests.Update(r.Context(), id, domain.GuestUpdate{
		FirstName:     body.FirstName,
		LastName:      body.LastName,
		LicenseState:  body.LicenseState,
		LicenseNumber: body.LicenseNumber,
		Phone:         body.Phone,
		Email:         body.Email,
	})
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ArchiveGuest handles POST /api/guests/{guestId}/archive.
func (s *Server) ArchiveGuest(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, s.guests.Archive)
}

// RestoreGuest handles POST /api/guests/{guestId}/restore.
func (s *Server) RestoreGuest(w http.ResponseWriter, r *http.Request) {
	s.setArchived(w, r, s.guests.Restore)
}

func (s *Server) setArchived(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) (domain.Guest, error)) {
	id, err := pathUUID(r, "guestId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	guest, err := apply(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, guest)
}

// GetGuestVisits handles GET /api/guests/{guestId}/visits?year=.
func (s *Server) GetGuestVisits(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "guestId")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	year, err := queryYear(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	summary, err := s.summary.GuestSummary(r.Context(), id, year)
	if err != nil {
		s.writeError(w, r, err, guestNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
