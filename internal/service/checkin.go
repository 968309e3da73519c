package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// CheckinService decides the outcome of every check-in attempt and applies
// it to the directory and ledger.
//
// Check-ins are serialized by a single write mutex: the "is there already a
// visit today" read and the visit insert must not interleave, or two
// simultaneous check-ins could both create a visit for the same day.
type CheckinService struct {
	guests  *GuestService
	visits  *VisitService
	policy  domain.Policy
	catalog domain.Catalog
	opts    options

	mu sync.Mutex
}

// NewCheckinService constructs the engine. An empty catalog accepts any
// campus and department.
func NewCheckinService(guests *GuestService, visits *VisitService, policy domain.Policy, catalog domain.Catalog, opts ...Option) *CheckinService {
	return &CheckinService{
		guests:  guests,
		visits:  visits,
		policy:  policy,
		catalog: catalog,
		opts:    newOptions(opts),
	}
}

// Policy returns the quota rules the engine enforces.
func (s *CheckinService) Policy() domain.Policy { return s.policy }

// CheckIn evaluates req in this order:
//
//  1. required fields (department, campus, a complete guest selector)
//  2. the visit date: today in the club's zone when empty; malformed or
//     future dates are rejected
//  3. the guest: by ID, else license, else name; archived guests reached by
//     ID or license fail with domain.ErrGuestArchived
//  4. a visit already on that date gets a department stamp and the result is
//     StatusAlreadyCheckedIn, whatever the quota
//  5. the yearly cap, then the monthly cap for the visit's month
//  6. otherwise a new visit is created
//
// Blocked is a result, not an error. Errors are validation, not-found,
// archived and persistence failures; none of them leave a partial write.
func (s *CheckinService) CheckIn(ctx context.Context, req domain.CheckinRequest) (domain.CheckinResult, error) {
	start := time.Now()

	department, campus, err := requireStamp(req.Department, req.Campus)
	if err != nil {
		return domain.CheckinResult{}, err
	}
	if err := s.catalog.Check(campus, department); err != nil {
		return domain.CheckinResult{}, err
	}
	if err := validateSelector(req.Guest); err != nil {
		return domain.CheckinResult{}, err
	}
	date, day, err := s.resolveDate(req.VisitDate)
	if err != nil {
		return domain.CheckinResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	guest, err := s.resolveGuest(ctx, req.Guest)
	if err != nil {
		return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
	}
	if guest.IsDeleted {
		return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: guest %s: %w", guest.ID, domain.ErrGuestArchived)
	}

	yearVisits, err := s.visits.VisitsInYear(ctx, guest.ID, day.Year())
	if err != nil {
		return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
	}
	stats := domain.VisitStats{VisitsThisYear: len(yearVisits), MaxVisitsPerYear: s.policy.MaxVisitsPerYear}

	existing, err := s.visits.VisitOnDate(ctx, guest.ID, date)
	if err != nil {
		return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
	}
	if existing != nil {
		return s.alreadyCheckedIn(ctx, guest, *existing, department, campus, stats, start)
	}

	if stats.VisitsThisYear >= s.policy.MaxVisitsPerYear {
		msg := fmt.Sprintf("%s has used all %d visits for %d.", displayName(guest), s.policy.MaxVisitsPerYear, day.Year())
		return s.blocked(ctx, guest, domain.ReasonYearLimit, msg, stats, start), nil
	}

	if limit, ok := s.policy.MonthlyCap(day.Month()); ok {
		monthVisits, err := s.visits.VisitsInMonth(ctx, guest.ID, day.Year(), day.Month())
		if err != nil {
			return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
		}
		if len(monthVisits) >= limit {
			msg := fmt.Sprintf("%s has already used the %d %s visit(s) allowed in %d.",
				displayName(guest), limit, day.Month(), day.Year())
			return s.blocked(ctx, guest, domain.MonthLimitReason(day.Month()), msg, stats, start), nil
		}
	}

	visit, err := s.visits.CreateVisit(ctx, guest.ID, department, campus, date)
	if errors.Is(err, domain.ErrVisitExists) {
		// Another writer (a second process on the same database) won the
		// race; treat it as the visit we would have found in step 4.
		existing, lookupErr := s.visits.VisitOnDate(ctx, guest.ID, date)
		if lookupErr != nil || existing == nil {
			return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
		}
		return s.alreadyCheckedIn(ctx, guest, *existing, department, campus, stats, start)
	}
	if err != nil {
		return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
	}

	stats.VisitsThisYear++
	result := domain.CheckinResult{
		Status:  domain.StatusCheckedIn,
		Message: fmt.Sprintf("Checked in %s for %s.", displayName(guest), date),
		Guest:   guest,
		Visit:   &visit,
		Stats:   stats,
	}
	s.record(ctx, result, date, start)
	return result, nil
}

func (s *CheckinService) alreadyCheckedIn(ctx context.Context, guest domain.Guest, visit domain.Visit, department, campus string, stats domain.VisitStats, start time.Time) (domain.CheckinResult, error) {
	stamp, err := s.visits.AddDepartmentStamp(ctx, visit.ID, department, campus)
	if err != nil {
		return domain.CheckinResult{}, fmt.Errorf("service.CheckinService.CheckIn: %w", err)
	}
	visit, _ = visit.WithStamp(stamp)

	result := domain.CheckinResult{
		Status:  domain.StatusAlreadyCheckedIn,
		Message: fmt.Sprintf("%s is already checked in for %s; %s added to the visit.", displayName(guest), visit.VisitDate, department),
		Guest:   guest,
		Visit:   &visit,
		Stats:   stats,
	}
	s.record(ctx, result, visit.VisitDate, start)
	return result, nil
}

func (s *CheckinService) blocked(ctx context.Context, guest domain.Guest, reason domain.BlockReason, msg string, stats domain.VisitStats, start time.Time) domain.CheckinResult {
	result := domain.CheckinResult{
		Status:  domain.StatusBlocked,
		Reason:  reason,
		Message: msg,
		Guest:   guest,
		Stats:   stats,
	}
	s.record(ctx, result, "", start)
	return result
}

func (s *CheckinService) record(ctx context.Context, r domain.CheckinResult, date string, start time.Time) {
	s.opts.metrics.ObserveCheckin(r.Status, r.Reason, start)
	s.opts.logger.InfoContext(ctx, "checkin",
		"guest_id", r.Guest.ID,
		"status", r.Status,
		"reason", r.Reason,
		"visit_date", date,
		"visits_this_year", r.Stats.VisitsThisYear,
	)
}

// resolveDate returns the visit date string and its parsed form.
func (s *CheckinService) resolveDate(requested string) (string, time.Time, error) {
	today := s.opts.today()
	date := strings.TrimSpace(requested)
	if date == "" {
		date = today
	}
	day, err := domain.ParseVisitDate(date)
	if err != nil {
		return "", time.Time{}, err
	}
	if date > today {
		return "", time.Time{}, fmt.Errorf("%w: visit date %s is in the future", domain.ErrValidation, date)
	}
	return date, day, nil
}

func (s *CheckinService) resolveGuest(ctx context.Context, sel domain.GuestSelector) (domain.Guest, error) {
	switch {
	case sel.GuestID != nil:
		return s.guests.GetByID(ctx, *sel.GuestID)
	case hasLicense(sel):
		return s.guests.FindOrCreateByLicense(ctx, sel)
	default:
		return s.guests.FindOrCreateByName(ctx, sel)
	}
}

// validateSelector rejects a selector that names no guest or only half a
// license or name. Checked before the date so field errors come first.
func validateSelector(sel domain.GuestSelector) error {
	if sel.GuestID != nil {
		return nil
	}
	if hasLicense(sel) {
		if strings.TrimSpace(sel.LicenseState) == "" || strings.TrimSpace(sel.LicenseNumber) == "" {
			return fmt.Errorf("%w: license state and number are both required", domain.ErrValidation)
		}
		return nil
	}
	if strings.TrimSpace(sel.FirstName) == "" || strings.TrimSpace(sel.LastName) == "" {
		return fmt.Errorf("%w: a guest id, a license, or first and last name is required", domain.ErrValidation)
	}
	return nil
}

func hasLicense(sel domain.GuestSelector) bool {
	return strings.TrimSpace(sel.LicenseState) != "" || strings.TrimSpace(sel.LicenseNumber) != ""
}

func displayName(g domain.Guest) string {
	if name := g.FullName(); name != "" {
		return name
	}
	if g.HasLicense() {
		return g.LicenseState + " " + g.LicenseNumber
	}
	return "Guest"
}
