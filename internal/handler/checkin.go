package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// checkinRequest is the body of POST /api/checkin. The guest is picked by
// guestId, else by license, else by name.
type checkinRequest struct {
	GuestID       *uuid.UUID `json:"guestId"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	LicenseState  string     `json:"licenseState"`
	LicenseNumber string     `json:"licenseNumber"`
	Phone         string     `json:"phoneNumber"`
	Email         string     `json:"email"`
	Department    string     `json:"department"`
	Campus        string     `json:"campus"`
	VisitDate     string     `json:"visitDate"`
}

func (b checkinRequest) toDomain() domain.CheckinRequest {
	return domain.CheckinRequest{
		Guest: domain.GuestSelector{
			GuestID:       b.GuestID,
			LicenseState:  b.LicenseState,
			LicenseNumber: b.LicenseNumber,
			FirstName:     b.FirstName,
			LastName:      b.LastName,
			Phone:         b.Phone,
			Email:         b.Email,
		},
		Department: b.Department,
		Campus:     b.Campus,
		VisitDate:  b.VisitDate,
	}
}

// PostCheckin handles POST /api/checkin.
// Checked-in and already-checked-in answer 200; a quota block answers 403
// with the same result body so staff see the reason and counts.
func (s *Server) PostCheckin(w http.ResponseWriter, r *http.Request) {
	var body checkinRequest
	if err := decodeBody(r, &body); err != nil {
		requestError(w, err)
		return
	}

	result, err := s.checkins.CheckIn(r.Context(), body.toDomain())
	if err != nil {
		s.writeError(w, r, err, "guest not found")
		return
	}

	status := http.StatusOK
	if result.Status == domain.StatusBlocked {
		status = http.StatusForbidden
	}
	writeJSON(w, status, result)
}

// GetNameSuggestions handles GET /api/guest-name-suggestions?first=&last=.
func (s *Server) GetNameSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := s.guests.NameSuggestions(r.Context(), q.Get("first"), q.Get("last"))
	if err != nil {
		s.writeError(w, r, err, "guest not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}
