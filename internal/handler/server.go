// Package handler implements the HTTP handlers for the guest check-in API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (checkin.go, guest.go, visit.go, report.go) but share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// GuestServicer defines the directory operations the guest handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching storage or the service layer.
type GuestServicer interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Guest, error)
	FindByLicense(ctx context.Context, state, number string) (domain.Guest, error)
	NameSuggestions(ctx context.Context, first, last string) (domain.NameSuggestions, error)
	Search(ctx context.Context, query string) ([]domain.Guest, error)
	Update(ctx context.Context, id uuid.UUID, u domain.GuestUpdate) (domain.Guest, error)
	Archive(ctx context.Context, id uuid.UUID) (domain.Guest, error)
	Restore(ctx context.Context, id uuid.UUID) (domain.Guest, error)
	ListArchived(ctx context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error)
}

// VisitServicer defines the ledger operations the visit handlers depend on.
type VisitServicer interface {
	DeleteVisit(ctx context.Context, visitID uuid.UUID) error
}

// CheckinServicer is the eligibility engine.
type CheckinServicer interface {
	CheckIn(ctx context.Context, req domain.CheckinRequest) (domain.CheckinResult, error)
}

// SummaryServicer defines the read-side projections.
type SummaryServicer interface {
	CurrentYear() int
	GuestSummary(ctx context.Context, guestID uuid.UUID, year int) (domain.GuestSummary, error)
	WatchList(ctx context.Context) ([]domain.WatchEntry, error)
	DailyActivity(ctx context.Context, date string) (string, []domain.ActivityEntry, error)
	Report(ctx context.Context, year int) ([]domain.ReportRow, error)
}

// Server holds the dependencies of every endpoint.
// Mount Server.Routes() in the router built by the serve command.
type Server struct {
	guests   GuestServicer
	visits   VisitServicer
	checkins CheckinServicer
	summary  SummaryServicer
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger discards handler error logs.
func NewServer(guests GuestServicer, visits VisitServicer, checkins CheckinServicer, summary SummaryServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{guests: guests, visits: visits, checkins: checkins, summary: summary, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, nil)
}

// Routes returns the API routes, /healthz included.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkin", s.PostCheckin)
		r.Get("/guest-name-suggestions", s.GetNameSuggestions)
		r.Get("/lookup", s.Lookup)
		r.Get("/guest-by-license", s.GetGuestByLicense)

		r.Get("/guests/archived", s.ListArchivedGuests)
		r.Route("/guests/{guestId}", func(r chi.Router) {
			r.Get("/", s.GetGuest)
			r.Patch("/", s.UpdateGuest)
			r.Post("/archive", s.ArchiveGuest)
			r.Post("/restore", s.RestoreGuest)
			r.Get("/visits", s.GetGuestVisits)
		})

		r.Delete("/visits/{visitId}", s.DeleteVisit)
		r.Get("/visits-today", s.GetVisitsToday)
		r.Get("/watchlist", s.GetWatchList)
		r.Get("/report/guests", s.GetGuestReport)
	})
	return r
}
