package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for VisitDate.
const DateLayout = "2006-01-02"

// Stamp is one department check-in within a visit.
type Stamp struct {
	Department  string    `json:"department"`
	Campus      string    `json:"campus"`
	CheckedInAt time.Time `json:"checkedInAt"`
}

// Visit is one calendar day of a guest's presence at the club.
// VisitDate is the quota-bearing key; CreatedAt is only for ordering.
// Campus and FirstDepartment repeat the first stamp for quick display.
// Departments always holds at least one stamp, ordered by first check-in.
type Visit struct {
	ID              uuid.UUID `json:"id"`
	GuestID         uuid.UUID `json:"guestId"`
	VisitDate       string    `json:"visitDate"`
	CreatedAt       time.Time `json:"createdAt"`
	Campus          string    `json:"campus"`
	FirstDepartment string    `json:"firstDepartment"`
	Departments     []Stamp   `json:"departments"`
}

// HasDepartment reports whether a stamp for department is already on the visit.
func (v Visit) HasDepartment(department string) bool {
	return v.stampIndex(department) >= 0
}

// WithStamp returns the visit with s merged in. Stamps are deduplicated by
// department name: a repeat refreshes CheckedInAt and Campus of the existing
// stamp instead of appending. The second return value is the stored stamp.
func (v Visit) WithStamp(s Stamp) (Visit, Stamp) {
	stamps := make([]Stamp, len(v.Departments), len(v.Departments)+1)
	copy(stamps, v.Departments)
	if i := v.stampIndex(s.Department); i >= 0 {
		stamps[i].CheckedInAt = s.CheckedInAt
		stamps[i].Campus = s.Campus
		v.Departments = stamps
		return v, stamps[i]
	}
	v.Departments = append(stamps, s)
	return v, s
}

func (v Visit) stampIndex(department string) int {
	for i, s := range v.Departments {
		if s.Department == department {
			return i
		}
	}
	return -1
}

// SortTime is the instant used to order visits within a day.
// Visits imported without a creation time fall back to midnight of VisitDate.
func (v Visit) SortTime(loc *time.Location) time.Time {
	if !v.CreatedAt.IsZero() {
		return v.CreatedAt
	}
	t, err := time.ParseInLocation(DateLayout, v.VisitDate, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseVisitDate parses a YYYY-MM-DD string and rejects impossible calendar
// dates such as 2024-02-30.
func ParseVisitDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: visit date %q must be a valid YYYY-MM-DD date", ErrValidation, s)
	}
	return t, nil
}

// DateOf formats t as a calendar date in loc.
func DateOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// YearRange returns the first and last calendar dates of year.
func YearRange(year int) (from, to string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}

// MonthRange returns the first and last calendar dates of month in year.
func MonthRange(year int, month time.Month) (from, to string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// InRange reports whether date lies in [from, to]. ISO dates compare
// correctly as strings.
func InRange(date, from, to string) bool {
	return date >= from && date <= to
}
