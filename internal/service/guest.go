package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

// GuestService resolves check-in requests to exactly one guest and manages
// the guest directory: edits, archive/restore, search and name suggestions.
type GuestService struct {
	guests repo.GuestRepo
	opts   options
}

// NewGuestService constructs a GuestService backed by the provided GuestRepo.
func NewGuestService(guests repo.GuestRepo, opts ...Option) *GuestService {
	return &GuestService{guests: guests, opts: newOptions(opts)}
}

// FindOrCreateByLicense returns the guest holding (sel.LicenseState,
// sel.LicenseNumber), archived or not, creating one if none exists.
// For an active match, empty name, phone and email fields are backfilled from
// sel; existing values are never overwritten. Archived matches are returned
// untouched so the caller can refuse them without side effects.
// Returns domain.ErrValidation if state or number is blank.
func (s *GuestService) FindOrCreateByLicense(ctx context.Context, sel domain.GuestSelector) (domain.Guest, error) {
	state := domain.NormalizeState(sel.LicenseState)
	number := strings.TrimSpace(sel.LicenseNumber)
	if state == "" || number == "" {
		return domain.Guest{}, fmt.Errorf("%w: license state and number are both required", domain.ErrValidation)
	}

	found, err := s.guests.FindByLicense(ctx, state, number)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		g := domain.Guest{
			FirstName:     strings.TrimSpace(sel.FirstName),
			LastName:      strings.TrimSpace(sel.LastName),
			LicenseState:  state,
			LicenseNumber: number,
			Phone:         strings.TrimSpace(sel.Phone),
			Email:         strings.TrimSpace(sel.Email),
		}
		created, err := s.guests.Create(ctx, g)
		if err != nil {
			return domain.Guest{}, fmt.Errorf("service.GuestService.FindOrCreateByLicense: %w", err)
		}
		s.opts.metrics.IncrementGuestsCreated("license")
		s.opts.logger.InfoContext(ctx, "guest created", "guest_id", created.ID, "flow", "license")
		return created, nil
	case err != nil:
		return domain.Guest{}, fmt.Errorf("service.GuestService.FindOrCreateByLicense: %w", err)
	}

	if found.IsDeleted {
		return found, nil
	}
	return s.backfill(ctx, found, sel)
}

// FindOrCreateByName returns the oldest active guest whose name matches
// case-insensitively, creating one if none exists. Archived guests are never
// matched, so archiving a guest frees the name for a new record.
// Returns domain.ErrValidation if either name is blank.
func (s *GuestService) FindOrCreateByName(ctx context.Context, sel domain.GuestSelector) (domain.Guest, error) {
	first, last, err := requireName(sel.FirstName, sel.LastName)
	if err != nil {
		return domain.Guest{}, err
	}

	found, err := s.guests.FindActiveByName(ctx, first, last)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		g := domain.Guest{
			FirstName: first,
			LastName:  last,
			Phone:     strings.TrimSpace(sel.Phone),
			Email:     strings.TrimSpace(sel.Email),
		}
		created, err := s.guests.Create(ctx, g)
		if err != nil {
			return domain.Guest{}, fmt.Errorf("service.GuestService.FindOrCreateByName: %w", err)
		}
		s.opts.metrics.IncrementGuestsCreated("name")
		s.opts.logger.InfoContext(ctx, "guest created", "guest_id", created.ID, "flow", "name")
		return created, nil
	case err != nil:
		return domain.Guest{}, fmt.Errorf("service.GuestService.FindOrCreateByName: %w", err)
	}
	return s.backfill(ctx, found, domain.GuestSelector{Phone: sel.Phone, Email: sel.Email})
}

// backfill writes the non-empty selector attributes into fields of g that are
// still empty, and persists only if something changed.
func (s *GuestService) backfill(ctx context.Context, g domain.Guest, sel domain.GuestSelector) (domain.Guest, error) {
	var u domain.GuestUpdate
	fill := func(current string, supplied string) *string {
		supplied = strings.TrimSpace(supplied)
		if current == "" && supplied != "" {
			return &supplied
		}
		return nil
	}
	u.FirstName = fill(g.FirstName, sel.FirstName)
	u.LastName = fill(g.LastName, sel.LastName)
	u.Phone = fill(g.Phone, sel.Phone)
	u.Email = fill(g.Email, sel.Email)
	if u.IsEmpty() {
		return g, nil
	}

	updated, err := s.guests.Update(ctx, u.Apply(g))
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.backfill: %w", err)
	}
	return updated, nil
}

// FindExactByName returns the active guest matching first and last
// case-insensitively, or nil when there is none.
func (s *GuestService) FindExactByName(ctx context.Context, first, last string) (*domain.Guest, error) {
	first, last, err := requireName(first, last)
	if err != nil {
		return nil, err
	}
	g, err := s.guests.FindActiveByName(ctx, first, last)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service.GuestService.FindExactByName: %w", err)
	}
	return &g, nil
}

// FindSimilarByName returns active guests with the same last name
// (case-insensitive) and a first name that passes domain.SimilarFirstName.
// The exact match, if any, is included.
func (s *GuestService) FindSimilarByName(ctx context.Context, first, last string) ([]domain.Guest, error) {
	first, last, err := requireName(first, last)
	if err != nil {
		return nil, err
	}
	candidates, err := s.guests.ListActiveByLastName(ctx, last)
	if err != nil {
		return nil, fmt.Errorf("service.GuestService.FindSimilarByName: %w", err)
	}
	similar := []domain.Guest{}
	for _, g := range candidates {
		if domain.SimilarFirstName(g.FirstName, first) {
			similar = append(similar, g)
		}
	}
	return similar, nil
}

// NameSuggestions composes FindExactByName and FindSimilarByName for the
// staff duplicate check, removing the exact match from the similar list.
func (s *GuestService) NameSuggestions(ctx context.Context, first, last string) (domain.NameSuggestions, error) {
	exact, err := s.FindExactByName(ctx, first, last)
	if err != nil {
		return domain.NameSuggestions{}, fmt.Errorf("service.GuestService.NameSuggestions: %w", err)
	}
	similar, err := s.FindSimilarByName(ctx, first, last)
	if err != nil {
		return domain.NameSuggestions{}, fmt.Errorf("service.GuestService.NameSuggestions: %w", err)
	}

	out := domain.NameSuggestions{Exact: exact, Similar: []domain.Guest{}}
	for _, g := range similar {
		if exact != nil && g.ID == exact.ID {
			continue
		}
		out.Similar = append(out.Similar, g)
	}
	return out, nil
}

// GetByID returns a guest, archived or not.
// Returns domain.ErrNotFound if no guest with that ID exists.
func (s *GuestService) GetByID(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	g, err := s.guests.GetByID(ctx, id)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.GetByID: %w", err)
	}
	return g, nil
}

// FindByLicense is the read-only license lookup; it never creates a guest.
// Returns domain.ErrNotFound if no guest holds the license.
func (s *GuestService) FindByLicense(ctx context.Context, state, number string) (domain.Guest, error) {
	state = domain.NormalizeState(state)
	number = strings.TrimSpace(number)
	if state == "" || number == "" {
		return domain.Guest{}, fmt.Errorf("%w: license state and number are both required", domain.ErrValidation)
	}
	g, err := s.guests.FindByLicense(ctx, state, number)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.FindByLicense: %w", err)
	}
	return g, nil
}

// Update applies a partial update. Nil fields are left untouched; non-nil
// fields are applied even when empty, which clears the attribute.
// Returns domain.ErrNotFound if the guest does not exist and
// domain.ErrValidation if the update would leave the license half-set.
func (s *GuestService) Update(ctx context.Context, id uuid.UUID, u domain.GuestUpdate) (domain.Guest, error) {
	current, err := s.guests.GetByID(ctx, id)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.Update: %w", err)
	}
	if u.IsEmpty() {
		return current, nil
	}

	next := u.Apply(current)
	if (next.LicenseState == "") != (next.LicenseNumber == "") {
		return domain.Guest{}, fmt.Errorf("%w: license state and number must be set or cleared together", domain.ErrValidation)
	}

	updated, err := s.guests.Update(ctx, next)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.Update: %w", err)
	}
	return updated, nil
}

// Archive soft-deletes a guest. Visits are kept.
// Returns domain.ErrNotFound if the guest does not exist.
func (s *GuestService) Archive(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	g, err := s.guests.SetDeleted(ctx, id, true)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.Archive: %w", err)
	}
	s.opts.logger.InfoContext(ctx, "guest archived", "guest_id", id)
	return g, nil
}

// Restore reverses Archive.
// Returns domain.ErrNotFound if the guest does not exist.
func (s *GuestService) Restore(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	g, err := s.guests.SetDeleted(ctx, id, false)
	if err != nil {
		return domain.Guest{}, fmt.Errorf("service.GuestService.Restore: %w", err)
	}
	s.opts.logger.InfoContext(ctx, "guest restored", "guest_id", id)
	return g, nil
}

// Search returns up to domain.SearchLimit active guests whose first name,
// last name, "first last" or license number contains query, ignoring case,
// in insertion order. A blank query returns an empty list.
func (s *GuestService) Search(ctx context.Context, query string) ([]domain.Guest, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []domain.Guest{}, nil
	}
	guests, err := s.guests.Search(ctx, q, domain.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("service.GuestService.Search: %w", err)
	}
	return guests, nil
}

// ListArchived returns one page of archived guests and the total count.
func (s *GuestService) ListArchived(ctx context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error) {
	guests, total, err := s.guests.ListArchived(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.GuestService.ListArchived: %w", err)
	}
	return guests, total, nil
}

func requireName(first, last string) (string, string, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" || last == "" {
		return "", "", fmt.Errorf("%w: first and last name are both required", domain.ErrValidation)
	}
	return first, last, nil
}
