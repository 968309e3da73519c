package domain

// GuestSummary is a guest's visit history for one year, recomputed from the
// ledger on every call.
type GuestSummary struct {
	Year            int     `json:"year"`
	TotalYearVisits int     `json:"totalYearVisits"`
	JulyVisits      int     `json:"julyVisits"`
	AugustVisits    int     `json:"augustVisits"`
	Visits          []Visit `json:"visits"` // ascending by VisitDate
}

// LastVisitDate returns the latest VisitDate in the summary, or "".
func (s GuestSummary) LastVisitDate() string {
	last := ""
	for _, v := range s.Visits {
		if v.VisitDate > last {
			last = v.VisitDate
		}
	}
	return last
}

// WatchEntry is one guest on the staff watch list.
type WatchEntry struct {
	Guest          Guest  `json:"guest"`
	VisitsThisYear int    `json:"visitsThisYear"`
	LastVisitDate  string `json:"lastVisitDate"`
}

// ActivityEntry is one visit on the daily activity board, joined with the
// guest's name.
type ActivityEntry struct {
	Visit
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	GuestArchived bool   `json:"guestArchived,omitempty"`
}

// ReportRow is a single row in the yearly guest report.
// One row per active guest; guests without visits that year have zero counts
// and an empty LastVisitDate.
type ReportRow struct {
	Guest         Guest
	Year          int
	TotalVisits   int
	JulyVisits    int
	AugustVisits  int
	LastVisitDate string
}

// NameSuggestions is the staff-facing duplicate check before a name-based
// check-in. Similar never contains Exact.
type NameSuggestions struct {
	Exact   *Guest  `json:"exactMatch"`
	Similar []Guest `json:"similar"`
}
