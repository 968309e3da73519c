package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckinStatus is the outcome of a check-in attempt.
type CheckinStatus string

const (
	// StatusCheckedIn means a new visit day was recorded.
	StatusCheckedIn CheckinStatus = "checked-in"
	// StatusAlreadyCheckedIn means the guest already had a visit on that date;
	// a department stamp was added to it and no quota was spent.
	StatusAlreadyCheckedIn CheckinStatus = "already-checked-in-today"
	// StatusBlocked means a quota rule refused a new visit day.
	StatusBlocked CheckinStatus = "blocked"
)

// BlockReason names the quota rule that blocked a check-in.
type BlockReason string

// ReasonYearLimit is reported when the yearly cap is reached.
const ReasonYearLimit BlockReason = "year-limit"

// MonthLimitReason returns the reason for a monthly cap, e.g. "july-limit".
func MonthLimitReason(m time.Month) BlockReason {
	return BlockReason(strings.ToLower(m.String()) + "-limit")
}

// GuestSelector identifies the guest a check-in is for. Exactly one form is
// used, in this order of precedence: GuestID, license, name.
type GuestSelector struct {
	GuestID       *uuid.UUID
	LicenseState  string
	LicenseNumber string
	FirstName     string
	LastName      string
	Phone         string
	Email         string
}

// CheckinRequest is one staff check-in action.
// VisitDate is optional; empty means today in the club's time zone.
type CheckinRequest struct {
	Guest      GuestSelector
	Department string
	Campus     string
	VisitDate  string
}

// VisitStats is returned with every check-in outcome so staff can see the
// remaining quota. VisitsThisYear reflects the state after the call.
type VisitStats struct {
	VisitsThisYear   int `json:"visitsThisYear"`
	MaxVisitsPerYear int `json:"maxVisitsPerYear"`
}

// CheckinResult is the outcome of CheckIn. Blocked is a business outcome,
// not an error.
type CheckinResult struct {
	Status  CheckinStatus `json:"status"`
	Reason  BlockReason   `json:"reason,omitempty"`
	Message string        `json:"message"`
	Guest   Guest         `json:"guest"`
	Visit   *Visit        `json:"visit,omitempty"`
	Stats   VisitStats    `json:"stats"`
}
