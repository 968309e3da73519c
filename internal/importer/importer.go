// Package importer loads a legacy guestbook data.json document (integer ids,
// guests/visits/visitDepartments arrays) into the configured store.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

// legacyDocument is the file layout written by the previous check-in app.
// Counters (guestIdCounter etc.) are ignored.
type legacyDocument struct {
	Guests           []legacyGuest `json:"guests"`
	Visits           []legacyVisit `json:"visits"`
	VisitDepartments []legacyStamp `json:"visitDepartments"`
}

type legacyGuest struct {
	ID            int    `json:"id"`
	LicenseState  string `json:"licenseState"`
	LicenseNumber string `json:"licenseNumber"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Phone         string `json:"phoneNumber"`
	Email         string `json:"email"`
	IsDeleted     bool   `json:"isDeleted"`
}

type legacyVisit struct {
	ID              int    `json:"id"`
	GuestID         int    `json:"guestId"`
	VisitDate       string `json:"visitDate"`
	CreatedAt       string `json:"createdAt"`
	FirstDepartment string `json:"firstDepartment"`
	Campus          string `json:"campus"`
}

type legacyStamp struct {
	ID          int    `json:"id"`
	VisitID     int    `json:"visitId"`
	Department  string `json:"department"`
	Campus      string `json:"campus"`
	CheckedInAt string `json:"checkedInAt"`
}

// Result counts what an import did.
type Result struct {
	GuestsCreated int `json:"guestsCreated"`
	GuestsMatched int `json:"guestsMatched"`
	GuestsSkipped int `json:"guestsSkipped"`
	VisitsCreated int `json:"visitsCreated"`
	VisitsMerged  int `json:"visitsMerged"`
	Stamps        int `json:"stamps"`
}

// Importer writes legacy records through the repos, so the target can be
// either the file store or Postgres.
type Importer struct {
	guests repo.GuestRepo
	visits repo.VisitRepo
	log    *slog.Logger
}

// New constructs an Importer. A nil logger discards progress logs.
func New(guests repo.GuestRepo, visits repo.VisitRepo, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{guests: guests, visits: visits, log: log}
}

// Import reads a legacy document from r and loads it.
//
// The whole document is checked before anything is written: malformed
// dates, duplicate ids and references to unknown guests or visits are
// reported together as domain.ErrValidation.
//
// Guests are matched rather than duplicated: by license when the legacy
// guest has one, otherwise by exact name among guests with the same archive
// state. A visit on a date the guest already has is merged into the existing
// visit as stamps, so importing the same file twice leaves the store
// unchanged apart from refreshed stamp times.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var doc legacyDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("importer.Import: %w: reading legacy document: %v", domain.ErrValidation, err)
	}
	plan, err := buildPlan(doc)
	if err != nil {
		return Result{}, fmt.Errorf("importer.Import: %w", err)
	}

	var res Result
	ids := make(map[int]uuid.UUID, len(doc.Guests))
	for _, lg := range doc.Guests {
		id, outcome, err := im.importGuest(ctx, lg)
		if err != nil {
			return res, fmt.Errorf("importer.Import: guest %d: %w", lg.ID, err)
		}
		switch outcome {
		case created:
			res.GuestsCreated++
		case matched:
			res.GuestsMatched++
		case skipped:
			res.GuestsSkipped++
			im.log.WarnContext(ctx, "legacy guest skipped: no name or license", "legacy_id", lg.ID)
			continue
		}
		ids[lg.ID] = id
	}

	for _, pv := range plan {
		guestID, ok := ids[pv.visit.GuestID]
		if !ok {
			im.log.WarnContext(ctx, "legacy visit skipped: guest was not imported",
				"legacy_visit_id", pv.visit.ID, "legacy_guest_id", pv.visit.GuestID)
			continue
		}
		merged, err := im.importVisit(ctx, guestID, pv)
		if err != nil {
			return res, fmt.Errorf("importer.Import: visit %d: %w", pv.visit.ID, err)
		}
		if merged {
			res.VisitsMerged++
		} else {
			res.VisitsCreated++
		}
		res.Stamps += len(pv.stamps)
	}

	im.log.InfoContext(ctx, "legacy import finished",
		"guests_created", res.GuestsCreated,
		"guests_matched", res.GuestsMatched,
		"guests_skipped", res.GuestsSkipped,
		"visits_created", res.VisitsCreated,
		"visits_merged", res.VisitsMerged,
	)
	return res, nil
}

type guestOutcome int

const (
	created guestOutcome = iota
	matched
	skipped
)

func (im *Importer) importGuest(ctx context.Context, lg legacyGuest) (uuid.UUID, guestOutcome, error) {
	state := domain.NormalizeState(lg.LicenseState)
	number := strings.TrimSpace(lg.LicenseNumber)
	first := strings.TrimSpace(lg.FirstName)
	last := strings.TrimSpace(lg.LastName)

	hasLicense := state != "" && number != ""
	switch {
	case hasLicense:
		g, err := im.guests.FindByLicense(ctx, state, number)
		if err == nil {
			return g.ID, matched, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, 0, err
		}
	case first != "" && last != "":
		// Archiving shadows a name: an archived legacy guest only matches
		// archived guests, an active one only active guests.
		find := im.guests.FindActiveByName
		if lg.IsDeleted {
			find = im.guests.FindArchivedByName
		}
		g, err := find(ctx, first, last)
		if err == nil {
			return g.ID, matched, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return uuid.Nil, 0, err
		}
	default:
		return uuid.Nil, skipped, nil
	}

	g := domain.Guest{
		FirstName: first,
		LastName:  last,
		Phone:     strings.TrimSpace(lg.Phone),
		Email:     strings.TrimSpace(lg.Email),
	}
	if hasLicense {
		g.LicenseState, g.LicenseNumber = state, number
	}
	g, err := im.guests.Create(ctx, g)
	if err != nil {
		return uuid.Nil, 0, err
	}
	if lg.IsDeleted {
		if _, err := im.guests.SetDeleted(ctx, g.ID, true); err != nil {
			return uuid.Nil, 0, err
		}
	}
	return g.ID, created, nil
}

// importVisit creates the visit with its first stamp and adds the rest, or
// merges every stamp into the visit the guest already has on that date.
func (im *Importer) importVisit(ctx context.Context, guestID uuid.UUID, pv plannedVisit) (bool, error) {
	existing, err := im.visits.GetByGuestAndDate(ctx, guestID, pv.visit.VisitDate)
	switch {
	case err == nil:
		for _, s := range pv.stamps {
			if _, err := im.visits.UpsertStamp(ctx, existing.ID, s); err != nil {
				return true, err
			}
		}
		return true, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	v, err := im.visits.Create(ctx, domain.Visit{
		GuestID:         guestID,
		VisitDate:       pv.visit.VisitDate,
		CreatedAt:       pv.createdAt,
		Campus:          pv.stamps[0].Campus,
		FirstDepartment: pv.stamps[0].Department,
		Departments:     pv.stamps[:1],
	})
	if err != nil {
		return false, err
	}
	for _, s := range pv.stamps[1:] {
		if _, err := im.visits.UpsertStamp(ctx, v.ID, s); err != nil {
			return false, err
		}
	}
	return false, nil
}

type plannedVisit struct {
	visit     legacyVisit
	createdAt time.Time
	stamps    []domain.Stamp
}

// buildPlan validates the document and resolves each visit's stamps. Visits
// come back in date order so merges land on the earliest record.
func buildPlan(doc legacyDocument) ([]plannedVisit, error) {
	var errs []error
	guestIDs := make(map[int]bool, len(doc.Guests))
	for _, g := range doc.Guests {
		if guestIDs[g.ID] {
			errs = append(errs, fmt.Errorf("duplicate guest id %d", g.ID))
		}
		guestIDs[g.ID] = true
	}

	byVisit := make(map[int][]legacyStamp)
	for _, s := range doc.VisitDepartments {
		byVisit[s.VisitID] = append(byVisit[s.VisitID], s)
	}

	plan := make([]plannedVisit, 0, len(doc.Visits))
	visitIDs := make(map[int]bool, len(doc.Visits))
	for _, v := range doc.Visits {
		if visitIDs[v.ID] {
			errs = append(errs, fmt.Errorf("duplicate visit id %d", v.ID))
			continue
		}
		visitIDs[v.ID] = true
		if !guestIDs[v.GuestID] {
			errs = append(errs, fmt.Errorf("visit %d references unknown guest %d", v.ID, v.GuestID))
			continue
		}
		day, err := domain.ParseVisitDate(v.VisitDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("visit %d: %v", v.ID, err))
			continue
		}

		// Records without a creation time sort at midnight of their day.
		pv := plannedVisit{visit: v, createdAt: parseTime(v.CreatedAt)}
		if pv.createdAt.IsZero() {
			pv.createdAt = day
		}
		legacy := byVisit[v.ID]
		sort.SliceStable(legacy, func(i, j int) bool {
			return parseTime(legacy[i].CheckedInAt).Before(parseTime(legacy[j].CheckedInAt))
		})
		for _, s := range legacy {
			if strings.TrimSpace(s.Department) == "" {
				continue
			}
			campus := s.Campus
			if campus == "" {
				campus = v.Campus
			}
			at := parseTime(s.CheckedInAt)
			if at.IsZero() {
				at = pv.createdAt
			}
			pv.stamps = append(pv.stamps, domain.Stamp{Department: s.Department, Campus: campus, CheckedInAt: at})
		}
		if len(pv.stamps) == 0 {
			if strings.TrimSpace(v.FirstDepartment) == "" {
				errs = append(errs, fmt.Errorf("visit %d has no department", v.ID))
				continue
			}
			pv.stamps = []domain.Stamp{{Department: v.FirstDepartment, Campus: v.Campus, CheckedInAt: pv.createdAt}}
		}
		plan = append(plan, pv)
	}

	for _, s := range doc.VisitDepartments {
		if !visitIDs[s.VisitID] {
			errs = append(errs, fmt.Errorf("department check-in %d references unknown visit %d", s.ID, s.VisitID))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, errors.Join(errs...))
	}

	sort.SliceStable(plan, func(i, j int) bool {
		return plan[i].visit.VisitDate < plan[j].visit.VisitDate
	})
	return plan, nil
}

// parseTime reads an RFC 3339 timestamp; anything else is the zero time.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
