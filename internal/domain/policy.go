package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Policy holds the club's visit quota rules.
// The values are configuration, loaded by the config package.
type Policy struct {
	// MaxVisitsPerYear caps the number of distinct visit days per calendar year.
	MaxVisitsPerYear int

	// MonthlyCaps caps visit days within specific months (July and August by default).
	// Months without an entry are limited only by the yearly cap.
	MonthlyCaps map[time.Month]int

	// WatchListThreshold is the yearly visit count at which a guest is
	// surfaced on the staff watch list.
	WatchListThreshold int
}

// DefaultPolicy returns the club's standing rules: 9 visits a year, one in
// July, one in August, watch list from 7.
func DefaultPolicy() Policy {
	return Policy{
		MaxVisitsPerYear:   9,
		MonthlyCaps:        map[time.Month]int{time.July: 1, time.August: 1},
		WatchListThreshold: 7,
	}
}

// MonthlyCap returns the cap for month and whether one is configured.
func (p Policy) MonthlyCap(month time.Month) (int, bool) {
	c, ok := p.MonthlyCaps[month]
	return c, ok
}

// Validate reports a policy that could never admit a visit.
func (p Policy) Validate() error {
	if p.MaxVisitsPerYear < 1 {
		return fmt.Errorf("max visits per year must be at least 1, got %d", p.MaxVisitsPerYear)
	}
	for m, c := range p.MonthlyCaps {
		if c < 0 {
			return fmt.Errorf("%s visit cap must not be negative, got %d", m, c)
		}
	}
	if p.WatchListThreshold < 1 {
		return fmt.Errorf("watch list threshold must be at least 1, got %d", p.WatchListThreshold)
	}
	return nil
}

// Catalog maps each campus to the departments guests can check into there.
// An empty catalog accepts any campus and department.
type Catalog map[string][]string

// DefaultCatalog is the club's two campuses and their departments.
func DefaultCatalog() Catalog {
	return Catalog{
		"Main Clubhouse": {"Golf Round", "Simulator Round"},
		"Fitness Center": {"Pool Entry", "Gym Entry", "Racquets Entry"},
	}
}

// Campuses returns the campus names in alphabetical order.
func (c Catalog) Campuses() []string {
	out := make([]string, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Check returns ErrValidation when campus is unknown or department is not
// offered there.
func (c Catalog) Check(campus, department string) error {
	if len(c) == 0 {
		return nil
	}
	depts, ok := c[campus]
	if !ok {
		return fmt.Errorf("%w: unknown campus %q (expected one of %s)",
			ErrValidation, campus, strings.Join(c.Campuses(), ", "))
	}
	for _, d := range depts {
		if d == department {
			return nil
		}
	}
	return fmt.Errorf("%w: department %q is not offered at %s", ErrValidation, department, campus)
}
