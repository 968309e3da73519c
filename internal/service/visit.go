package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

// VisitService is the visit ledger: one visit per guest per calendar day,
// each holding the department stamps of that day. Year and month views are
// range queries over the stored visits, so a delete is reflected at once.
type VisitService struct {
	visits repo.VisitRepo
	opts   options
}

// NewVisitService constructs a VisitService backed by the provided VisitRepo.
func NewVisitService(visits repo.VisitRepo, opts ...Option) *VisitService {
	return &VisitService{visits: visits, opts: newOptions(opts)}
}

// VisitOnDate returns the guest's visit on date, or nil when there is none.
func (s *VisitService) VisitOnDate(ctx context.Context, guestID uuid.UUID, date string) (*domain.Visit, error) {
	v, err := s.visits.GetByGuestAndDate(ctx, guestID, date)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.VisitOnDate: %w", err)
	}
	return &v, nil
}

// VisitsInYear returns the guest's visits dated in year, ascending by date.
func (s *VisitService) VisitsInYear(ctx context.Context, guestID uuid.UUID, year int) ([]domain.Visit, error) {
	from, to := domain.YearRange(year)
	visits, err := s.visits.ListByGuest(ctx, guestID, from, to)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.VisitsInYear: %w", err)
	}
	return visits, nil
}

// VisitsInMonth returns the guest's visits dated in month of year, ascending.
func (s *VisitService) VisitsInMonth(ctx context.Context, guestID uuid.UUID, year int, month time.Month) ([]domain.Visit, error) {
	from, to := domain.MonthRange(year, month)
	visits, err := s.visits.ListByGuest(ctx, guestID, from, to)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.VisitsInMonth: %w", err)
	}
	return visits, nil
}

// VisitsOnDate returns every guest's visit on date.
func (s *VisitService) VisitsOnDate(ctx context.Context, date string) ([]domain.Visit, error) {
	if _, err := domain.ParseVisitDate(date); err != nil {
		return nil, err
	}
	visits, err := s.visits.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.VisitsOnDate: %w", err)
	}
	return visits, nil
}

// CreateVisit records a new visit day with its first department stamp.
// Returns domain.ErrVisitExists if the guest already has a visit on date.
func (s *VisitService) CreateVisit(ctx context.Context, guestID uuid.UUID, department, campus, date string) (domain.Visit, error) {
	department, campus, err := requireStamp(department, campus)
	if err != nil {
		return domain.Visit{}, err
	}
	if _, err := domain.ParseVisitDate(date); err != nil {
		return domain.Visit{}, err
	}

	now := s.opts.now()
	v := domain.Visit{
		GuestID:         guestID,
		VisitDate:       date,
		CreatedAt:       now,
		Campus:          campus,
		FirstDepartment: department,
		Departments:     []domain.Stamp{{Department: department, Campus: campus, CheckedInAt: now}},
	}
	created, err := s.visits.Create(ctx, v)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.CreateVisit: %w", err)
	}
	return created, nil
}

// AddDepartmentStamp records a department check-in on an existing visit.
// The campus may differ from the visit's first campus. A department already
// on the visit has its stamp refreshed rather than duplicated.
// Returns domain.ErrNotFound if the visit does not exist.
func (s *VisitService) AddDepartmentStamp(ctx context.Context, visitID uuid.UUID, department, campus string) (domain.Stamp, error) {
	department, campus, err := requireStamp(department, campus)
	if err != nil {
		return domain.Stamp{}, err
	}
	stamp := domain.Stamp{Department: department, Campus: campus, CheckedInAt: s.opts.now()}
	stored, err := s.visits.UpsertStamp(ctx, visitID, stamp)
	if err != nil {
		return domain.Stamp{}, fmt.Errorf("service.VisitService.AddDepartmentStamp: %w", err)
	}
	return stored, nil
}

// DeleteVisit removes a visit and all of its stamps.
// Returns domain.ErrNotFound if the visit does not exist.
func (s *VisitService) DeleteVisit(ctx context.Context, visitID uuid.UUID) error {
	if err := s.visits.Delete(ctx, visitID); err != nil {
		return fmt.Errorf("service.VisitService.DeleteVisit: %w", err)
	}
	s.opts.metrics.IncrementVisitsDeleted()
	s.opts.logger.InfoContext(ctx, "visit deleted", "visit_id", visitID)
	return nil
}

// GetVisit returns a visit with its stamps.
func (s *VisitService) GetVisit(ctx context.Context, visitID uuid.UUID) (domain.Visit, error) {
	v, err := s.visits.GetByID(ctx, visitID)
	if err != nil {
		return domain.Visit{}, fmt.Errorf("service.VisitService.GetVisit: %w", err)
	}
	return v, nil
}

func requireStamp(department, campus string) (string, string, error) {
	department = strings.TrimSpace(department)
	campus = strings.TrimSpace(campus)
	if department == "" {
		return "", "", fmt.Errorf("%w: department is required", domain.ErrValidation)
	}
	if campus == "" {
		return "", "", fmt.Errorf("%w: campus is required", domain.ErrValidation)
	}
	return department, campus, nil
}
