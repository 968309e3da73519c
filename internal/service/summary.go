package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

// SummaryService builds the read-only views over the directory and ledger:
// per-guest summaries, the watch list, daily activity and the yearly report.
// Nothing is cached; every call recomputes from stored visits.
type SummaryService struct {
	guests repo.GuestRepo
	visits repo.VisitRepo
	policy domain.Policy
	opts   options
}

// NewSummaryService constructs a SummaryService backed by the provided repos.
func NewSummaryService(guests repo.GuestRepo, visits repo.VisitRepo, policy domain.Policy, opts ...Option) *SummaryService {
	return &SummaryService{guests: guests, visits: visits, policy: policy, opts: newOptions(opts)}
}

// CurrentYear is the calendar year in the club's time zone.
func (s *SummaryService) CurrentYear() int { return s.opts.currentYear() }

// GuestSummary returns the guest's visits in year with July and August
// counts. A year of 0 means the current year.
// Returns domain.ErrNotFound if the guest does not exist.
func (s *SummaryService) GuestSummary(ctx context.Context, guestID uuid.UUID, year int) (domain.GuestSummary, error) {
	if year == 0 {
		year = s.opts.currentYear()
	}
	if _, err := s.guests.GetByID(ctx, guestID); err != nil {
		return domain.GuestSummary{}, fmt.Errorf("service.SummaryService.GuestSummary: %w", err)
	}

	from, to := domain.YearRange(year)
	visits, err := s.visits.ListByGuest(ctx, guestID, from, to)
	if err != nil {
		return domain.GuestSummary{}, fmt.Errorf("service.SummaryService.GuestSummary: %w", err)
	}
	c := countVisits(visits)
	return domain.GuestSummary{
		Year:            year,
		TotalYearVisits: c.total,
		JulyVisits:      c.july,
		AugustVisits:    c.august,
		Visits:          visits,
	}, nil
}

// WatchList returns the active guests whose visits this year reached the
// policy's watch list threshold, most visits first, then most recent visit,
// then by name.
func (s *SummaryService) WatchList(ctx context.Context) ([]domain.WatchEntry, error) {
	byGuest, err := s.yearCounts(ctx, s.opts.currentYear())
	if err != nil {
		return nil, fmt.Errorf("service.SummaryService.WatchList: %w", err)
	}
	guests, err := s.guests.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.SummaryService.WatchList: %w", err)
	}

	out := []domain.WatchEntry{}
	for _, g := range guests {
		c := byGuest[g.ID]
		if c.total >= s.policy.WatchListThreshold {
			out = append(out, domain.WatchEntry{Guest: g, VisitsThisYear: c.total, LastVisitDate: c.last})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VisitsThisYear != b.VisitsThisYear {
			return a.VisitsThisYear > b.VisitsThisYear
		}
		if a.LastVisitDate != b.LastVisitDate {
			return a.LastVisitDate > b.LastVisitDate
		}
		return strings.ToLower(a.Guest.LastName+" "+a.Guest.FirstName) < strings.ToLower(b.Guest.LastName+" "+b.Guest.FirstName)
	})
	return out, nil
}

// DailyActivity returns every visit on date joined with the guest's name,
// most recent first. An empty date means today. The resolved date is
// returned alongside the entries.
func (s *SummaryService) DailyActivity(ctx context.Context, date string) (string, []domain.ActivityEntry, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.opts.today()
	}
	if _, err := domain.ParseVisitDate(date); err != nil {
		return "", nil, err
	}

	visits, err := s.visits.ListByDate(ctx, date)
	if err != nil {
		return "", nil, fmt.Errorf("service.SummaryService.DailyActivity: %w", err)
	}

	out := make([]domain.ActivityEntry, 0, len(visits))
	names := map[uuid.UUID]domain.Guest{}
	for _, v := range visits {
		g, ok := names[v.GuestID]
		if !ok {
			g, err = s.guests.GetByID(ctx, v.GuestID)
			if err != nil {
				return "", nil, fmt.Errorf("service.SummaryService.DailyActivity: guest %s: %w", v.GuestID, err)
			}
			names[v.GuestID] = g
		}
		out = append(out, domain.ActivityEntry{
			Visit:         v,
			FirstName:     g.FirstName,
			LastName:      g.LastName,
			GuestArchived: g.IsDeleted,
		})
	}
	loc := s.opts.loc
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortTime(loc).After(out[j].SortTime(loc))
	})
	return date, out, nil
}

// Report returns one row per active guest, in insertion order, with that
// guest's totals for year. Guests without visits get zero counts.
func (s *SummaryService) Report(ctx context.Context, year int) ([]domain.ReportRow, error) {
	if year == 0 {
		year = s.opts.currentYear()
	}
	byGuest, err := s.yearCounts(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("service.SummaryService.Report: %w", err)
	}
	guests, err := s.guests.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.SummaryService.Report: %w", err)
	}

	rows := make([]domain.ReportRow, 0, len(guests))
	for _, g := range guests {
		c := byGuest[g.ID]
		rows = append(rows, domain.ReportRow{
			Guest:         g,
			Year:          year,
			TotalVisits:   c.total,
			JulyVisits:    c.july,
			AugustVisits:  c.august,
			LastVisitDate: c.last,
		})
	}
	return rows, nil
}

// reportHeader is the first row of the yearly CSV report.
var reportHeader = []string{
	"Guest ID", "First Name", "Last Name", "License State", "License Number",
	"Year", "Total Visits", "July Visits", "August Visits", "Last Visit Date",
}

// WriteReportCSV writes rows as CSV with a header row. Fields containing a
// comma, quote or line break are quoted with embedded quotes doubled.
func WriteReportCSV(w io.Writer, rows []domain.ReportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("service.WriteReportCSV: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Guest.ID.String(),
			r.Guest.FirstName,
			r.Guest.LastName,
			r.Guest.LicenseState,
			r.Guest.LicenseNumber,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.TotalVisits),
			strconv.Itoa(r.JulyVisits),
			strconv.Itoa(r.AugustVisits),
			r.LastVisitDate,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("service.WriteReportCSV: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("service.WriteReportCSV: %w", err)
	}
	return nil
}

type visitCounts struct {
	total, july, august int
	last                string
}

func countVisits(visits []domain.Visit) visitCounts {
	var c visitCounts
	for _, v := range visits {
		c.add(v)
	}
	return c
}

func (c *visitCounts) add(v domain.Visit) {
	c.total++
	// July and August are fixed report columns, independent of the
	// configured monthly caps. VisitDate is YYYY-MM-DD.
	if len(v.VisitDate) >= 7 {
		switch v.VisitDate[5:7] {
		case "07":
			c.july++
		case "08":
			c.august++
		}
	}
	if v.VisitDate > c.last {
		c.last = v.VisitDate
	}
}

// yearCounts tallies every guest's visits in year with one range query.
func (s *SummaryService) yearCounts(ctx context.Context, year int) (map[uuid.UUID]visitCounts, error) {
	from, to := domain.YearRange(year)
	visits, err := s.visits.ListInRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]visitCounts)
	for _, v := range visits {
		c := out[v.GuestID]
		c.add(v)
		out[v.GuestID] = c
	}
	return out, nil
}

// ReportFilename is the attachment name for the yearly report.
func ReportFilename(year int) string {
	return fmt.Sprintf("guest-visits-%d.csv", year)
}
