// Package domain contains the core data types for the guest check-in service.
// This package has no dependencies on the storage or transport layers and is
// imported by every other internal package (repo, service, handler).
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Guest is a person who visits the club on a member's invitation.
// Identity is the internal ID. Name, license, phone and email are searchable
// attributes; an empty string means the attribute was never captured.
type Guest struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	LicenseState  string    `json:"licenseState,omitempty"`
	LicenseNumber string    `json:"licenseNumber,omitempty"`
	Phone         string    `json:"phoneNumber,omitempty"`
	Email         string    `json:"email,omitempty"`
	IsDeleted     bool      `json:"isDeleted"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FullName returns "First Last" with empty parts dropped.
func (g Guest) FullName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// HasLicense reports whether both license fields are set.
func (g Guest) HasLicense() bool {
	return g.LicenseState != "" && g.LicenseNumber != ""
}

// GuestUpdate carries a partial update for a guest.
// A nil field is left untouched; a non-nil field is applied even when it
// points at an empty string, which clears the attribute.
type GuestUpdate struct {
	FirstName     *string
	LastName      *string
	LicenseState  *string
	LicenseNumber *string
	Phone         *string
	Email         *string
}

// Apply returns g with every non-nil field of u written over it.
// LicenseState is normalized with NormalizeState.
func (u GuestUpdate) Apply(g Guest) Guest {
	if u.FirstName != nil {
		g.FirstName = strings.TrimSpace(*u.FirstName)
	}
	if u.LastName != nil {
		g.LastName = strings.TrimSpace(*u.LastName)
	}
	if u.LicenseState != nil {
		g.LicenseState = NormalizeState(*u.LicenseState)
	}
	if u.LicenseNumber != nil {
		g.LicenseNumber = strings.TrimSpace(*u.LicenseNumber)
	}
	if u.Phone != nil {
		g.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Email != nil {
		g.Email = strings.TrimSpace(*u.Email)
	}
	return g
}

// IsEmpty reports whether the update carries no fields at all.
func (u GuestUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil &&
		u.LicenseState == nil && u.LicenseNumber == nil &&
		u.Phone == nil && u.Email == nil
}

// NormalizeState trims and upper-cases a license state code ("id " -> "ID").
func NormalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// SameName reports whether two name pairs match case-insensitively.
func SameName(first1, last1, first2, last2 string) bool {
	return strings.EqualFold(strings.TrimSpace(first1), strings.TrimSpace(first2)) &&
		strings.EqualFold(strings.TrimSpace(last1), strings.TrimSpace(last2))
}

// SimilarFirstName is the typo-tolerance rule behind name suggestions.
// Two first names are similar when, compared case-insensitively, they are
// identical, one is a prefix of the other, or they share a first letter and
// their lengths differ by at most 3. It is not an edit-distance match.
func SimilarFirstName(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return a == b
	}
	if a == b || strings.HasPrefix(a, b) || strings.HasPrefix(b, a) {
		return true
	}
	diff := len([]rune(a)) - len([]rune(b))
	if diff < 0 {
		diff = -diff
	}
	return []rune(a)[0] == []rune(b)[0] && diff <= 3
}

// MatchesQuery reports whether the guest matches a free-text lookup.
// query must already be lower-cased and trimmed.
func (g Guest) MatchesQuery(query string) bool {
	if query == "" {
		return false
	}
	first := strings.ToLower(g.FirstName)
	last := strings.ToLower(g.LastName)
	return strings.Contains(first, query) ||
		strings.Contains(last, query) ||
		strings.Contains(first+" "+last, query) ||
		(g.LicenseNumber != "" && strings.Contains(strings.ToLower(g.LicenseNumber), query))
}
