package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

// Document is the persisted form of a MemoryStore: every guest and every
// visit with its stamps, in insertion order.
type Document struct {
	Guests []domain.Guest `json:"guests"`
	Visits []domain.Visit `json:"visits"`
}

// MemoryStore keeps guests and visits in memory and implements both GuestRepo
// and VisitRepo over them. When opened with OpenFileStore every mutation is
// written through to a JSON file before it returns; a failed write rolls the
// mutation back.
//
// Values handed out are copies, so callers can never change stored state
// except through the repo methods.
type MemoryStore struct {
	mu      sync.RWMutex
	guests  []domain.Guest
	visits  []domain.Visit
	now     func() time.Time
	persist func(Document) error
}

// NewMemoryStore returns an empty, non-persistent store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// OpenFileStore loads the document at path (a missing file is an empty
// store) and returns a store that rewrites the file after every mutation.
func OpenFileStore(path string) (*MemoryStore, error) {
	s := NewMemoryStore()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("repo.OpenFileStore: read %s: %w", path, err)
	default:
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("repo.OpenFileStore: decode %s: %w", path, err)
		}
		if err := s.load(doc); err != nil {
			return nil, fmt.Errorf("repo.OpenFileStore: %s: %w", path, err)
		}
	}

	s.persist = func(doc Document) error { return writeDocument(path, doc) }
	return s, nil
}

// Guests returns the store's GuestRepo view.
func (s *MemoryStore) Guests() GuestRepo { return memGuests{s} }

// Visits returns the store's VisitRepo view.
func (s *MemoryStore) Visits() VisitRepo { return memVisits{s} }

// Snapshot returns a deep copy of the current contents.
func (s *MemoryStore) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document()
}

func (s *MemoryStore) document() Document {
	doc := Document{
		Guests: append([]domain.Guest{}, s.guests...),
		Visits: make([]domain.Visit, len(s.visits)),
	}
	for i, v := range s.visits {
		doc.Visits[i] = cloneVisit(v)
	}
	return doc
}

// load replaces the contents with doc after checking the invariants the
// Postgres schema would enforce.
func (s *MemoryStore) load(doc Document) error {
	guests := make(map[uuid.UUID]bool, len(doc.Guests))
	for _, g := range doc.Guests {
		if guests[g.ID] {
			return fmt.Errorf("duplicate guest id %s", g.ID)
		}
		guests[g.ID] = true
	}
	days := make(map[string]bool, len(doc.Visits))
	for i, v := range doc.Visits {
		if !guests[v.GuestID] {
			return fmt.Errorf("visit %s references unknown guest %s", v.ID, v.GuestID)
		}
		key := v.GuestID.String() + "/" + v.VisitDate
		if days[key] {
			return fmt.Errorf("guest %s has two visits on %s", v.GuestID, v.VisitDate)
		}
		days[key] = true
		if doc.Visits[i].Departments == nil {
			doc.Visits[i].Departments = []domain.Stamp{}
		}
	}
	s.guests = doc.Guests
	s.visits = doc.Visits
	return nil
}

// mutate runs fn under the write lock and persists the result. Slices are
// replaced, never edited in place, so restoring the old headers undoes fn.
func (s *MemoryStore) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests, visits := s.guests, s.visits
	if err := fn(); err != nil {
		s.guests, s.visits = guests, visits
		return err
	}
	if s.persist == nil {
		return nil
	}
	if err := s.persist(s.document()); err != nil {
		s.guests, s.visits = guests, visits
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

func (s *MemoryStore) guestIndex(id uuid.UUID) int {
	for i, g := range s.guests {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) visitIndex(id uuid.UUID) int {
	for i, v := range s.visits {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// licenseTaken reports whether a guest other than self holds (state, number).
func (s *MemoryStore) licenseTaken(state, number string, self uuid.UUID) bool {
	if number == "" {
		return false
	}
	for _, g := range s.guests {
		if g.ID != self && g.LicenseState == state && g.LicenseNumber == number {
			return true
		}
	}
	return false
}

// writeDocument replaces path atomically: the document is written to a temp
// file in the same directory and renamed over the target.
func writeDocument(path string, doc Document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func cloneVisit(v domain.Visit) domain.Visit {
	v.Departments = append([]domain.Stamp{}, v.Departments...)
	return v
}

// replaceAt returns a copy of items with items[i] set to item.
func replaceAt[T any](items []T, i int, item T) []T {
	out := append([]T{}, items...)
	out[i] = item
	return out
}

// ---- GuestRepo ----

type memGuests struct{ s *MemoryStore }

func (r memGuests) Create(_ context.Context, g domain.Guest) (domain.Guest, error) {
	s := r.s
	err := s.mutate(func() error {
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		} else if s.guestIndex(g.ID) >= 0 {
			return fmt.Errorf("guest %s already exists", g.ID)
		}
		if s.licenseTaken(g.LicenseState, g.LicenseNumber, g.ID) {
			return domain.ErrDuplicateLicense
		}
		now := s.now().UTC()
		if g.CreatedAt.IsZero() {
			g.CreatedAt = now
		}
		g.UpdatedAt = now
		s.guests = append(append([]domain.Guest{}, s.guests...), g)
		return nil
	})
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.memGuests.Create: %w", err)
	}
	return g, nil
}

func (r memGuests) GetByID(_ context.Context, id uuid.UUID) (domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if i := r.s.guestIndex(id); i >= 0 {
		return r.s.guests[i], nil
	}
	return domain.Guest{}, fmt.Errorf("repo.memGuests.GetByID: %w", domain.ErrNotFound)
}

func (r memGuests) FindByLicense(_ context.Context, state, number string) (domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, g := range r.s.guests {
		if number != "" && g.LicenseState == state && g.LicenseNumber == number {
			return g, nil
		}
	}
	return domain.Guest{}, fmt.Errorf("repo.memGuests.FindByLicense: %w", domain.ErrNotFound)
}

func (r memGuests) FindActiveByName(_ context.Context, first, last string) (domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, g := range r.s.guests {
		if !g.IsDeleted && domain.SameName(g.FirstName, g.LastName, first, last) {
			return g, nil
		}
	}
	return domain.Guest{}, fmt.Errorf("repo.memGuests.FindActiveByName: %w", domain.ErrNotFound)
}

func (r memGuests) FindArchivedByName(_ context.Context, first, last string) (domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, g := range r.s.guests {
		if g.IsDeleted && domain.SameName(g.FirstName, g.LastName, first, last) {
			return g, nil
		}
	}
	return domain.Guest{}, fmt.Errorf("repo.memGuests.FindArchivedByName: %w", domain.ErrNotFound)
}

func (r memGuests) ListActiveByLastName(_ context.Context, last string) ([]domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	last = strings.TrimSpace(last)
	out := []domain.Guest{}
	for _, g := range r.s.guests {
		if !g.IsDeleted && strings.EqualFold(strings.TrimSpace(g.LastName), last) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r memGuests) Search(_ context.Context, query string, limit int) ([]domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Guest{}
	for _, g := range r.s.guests {
		if len(out) == limit {
			break
		}
		if !g.IsDeleted && g.MatchesQuery(query) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r memGuests) ListActive(_ context.Context) ([]domain.Guest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Guest{}
	for _, g := range r.s.guests {
		if !g.IsDeleted {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r memGuests) ListArchived(_ context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error) {
	r.s.mu.RLock()
	archived := []domain.Guest{}
	for _, g := range r.s.guests {
		if g.IsDeleted {
			archived = append(archived, g)
		}
	}
	r.s.mu.RUnlock()

	sort.SliceStable(archived, func(i, j int) bool {
		a, b := archived[i], archived[j]
		if la, lb := strings.ToLower(a.LastName), strings.ToLower(b.LastName); la != lb {
			return la < lb
		}
		if fa, fb := strings.ToLower(a.FirstName), strings.ToLower(b.FirstName); fa != fb {
			return fa < fb
		}
		return a.ID.String() < b.ID.String()
	})

	start, end := p.Window(len(archived))
	return archived[start:end], int64(len(archived)), nil
}

func (r memGuests) Update(_ context.Context, g domain.Guest) (domain.Guest, error) {
	s := r.s
	var out domain.Guest
	err := s.mutate(func() error {
		i := s.guestIndex(g.ID)
		if i < 0 {
			return domain.ErrNotFound
		}
		if s.licenseTaken(g.LicenseState, g.LicenseNumber, g.ID) {
			return domain.ErrDuplicateLicense
		}
		out = s.guests[i]
		out.FirstName = g.FirstName
		out.LastName = g.LastName
		out.LicenseState = g.LicenseState
		out.LicenseNumber = g.LicenseNumber
		out.Phone = g.Phone
		out.Email = g.Email
		out.UpdatedAt = s.now().UTC()
		s.guests = replaceAt(s.guests, i, out)
		return nil
	})
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.memGuests.Update: %w", err)
	}
	return out, nil
}

func (r memGuests) SetDeleted(_ context.Context, id uuid.UUID, deleted bool) (domain.Guest, error) {
	s := r.s
	var out domain.Guest
	err := s.mutate(func() error {
		i := s.guestIndex(id)
		if i < 0 {
			return domain.ErrNotFound
		}
		out = s.guests[i]
		out.IsDeleted = deleted
		out.UpdatedAt = s.now().UTC()
		s.guests = replaceAt(s.guests, i, out)
		return nil
	})
	if err != nil {
		return domain.Guest{}, fmt.Errorf("repo.memGuests.SetDeleted: %w", err)
	}
	return out, nil
}

// ---- VisitRepo ----

type memVisits struct{ s *MemoryStore }

func (r memVisits) Create(_ context.Context, v domain.Visit) (domain.Visit, error) {
	s := r.s
	if len(v.Departments) == 0 {
		return domain.Visit{}, fmt.Errorf("repo.memVisits.Create: %w: a visit needs a first department stamp", domain.ErrValidation)
	}
	if _, err := pgDate(v.VisitDate); err != nil {
		return domain.Visit{}, fmt.Errorf("repo.memVisits.Create: %w", err)
	}
	err := s.mutate(func() error {
		if s.guestIndex(v.GuestID) < 0 {
			return fmt.Errorf("guest %s: %w", v.GuestID, domain.ErrNotFound)
		}
		for _, existing := range s.visits {
			if existing.GuestID == v.GuestID && existing.VisitDate == v.VisitDate {
				return domain.ErrVisitExists
			}
		}
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		if v.CreatedAt.IsZero() {
			v.CreatedAt = s.now().UTC()
		}
		v.Departments = v.Departments[:1:1]
		v = cloneVisit(v)
		s.visits = append(append([]domain.Visit{}, s.visits...), v)
		return nil
	})
	if err != nil {
		return domain.Visit{}, fmt.Errorf("repo.memVisits.Create: %w", err)
	}
	return cloneVisit(v), nil
}

func (r memVisits) GetByID(_ context.Context, id uuid.UUID) (domain.Visit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if i := r.s.visitIndex(id); i >= 0 {
		return cloneVisit(r.s.visits[i]), nil
	}
	return domain.Visit{}, fmt.Errorf("repo.memVisits.GetByID: %w", domain.ErrNotFound)
}

func (r memVisits) GetByGuestAndDate(_ context.Context, guestID uuid.UUID, date string) (domain.Visit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, v := range r.s.visits {
		if v.GuestID == guestID && v.VisitDate == date {
			return cloneVisit(v), nil
		}
	}
	return domain.Visit{}, fmt.Errorf("repo.memVisits.GetByGuestAndDate: %w", domain.ErrNotFound)
}

func (r memVisits) ListByGuest(_ context.Context, guestID uuid.UUID, from, to string) ([]domain.Visit, error) {
	visits := r.filter(func(v domain.Visit) bool {
		return v.GuestID == guestID && domain.InRange(v.VisitDate, from, to)
	})
	sortVisits(visits)
	return visits, nil
}

func (r memVisits) ListByDate(_ context.Context, date string) ([]domain.Visit, error) {
	visits := r.filter(func(v domain.Visit) bool { return v.VisitDate == date })
	sortVisits(visits)
	return visits, nil
}

func (r memVisits) ListInRange(_ context.Context, from, to string) ([]domain.Visit, error) {
	visits := r.filter(func(v domain.Visit) bool { return domain.InRange(v.VisitDate, from, to) })
	sortVisits(visits)
	return visits, nil
}

func (r memVisits) UpsertStamp(_ context.Context, visitID uuid.UUID, stamp domain.Stamp) (domain.Stamp, error) {
	s := r.s
	var out domain.Stamp
	err := s.mutate(func() error {
		i := s.visitIndex(visitID)
		if i < 0 {
			return domain.ErrNotFound
		}
		var v domain.Visit
		v, out = s.visits[i].WithStamp(stamp)
		s.visits = replaceAt(s.visits, i, v)
		return nil
	})
	if err != nil {
		return domain.Stamp{}, fmt.Errorf("repo.memVisits.UpsertStamp: %w", err)
	}
	return out, nil
}

func (r memVisits) Delete(_ context.Context, id uuid.UUID) error {
	s := r.s
	err := s.mutate(func() error {
		i := s.visitIndex(id)
		if i < 0 {
			return domain.ErrNotFound
		}
		out := make([]domain.Visit, 0, len(s.visits)-1)
		out = append(out, s.visits[:i]...)
		s.visits = append(out, s.visits[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("repo.memVisits.Delete: %w", err)
	}
	return nil
}

func (r memVisits) filter(keep func(domain.Visit) bool) []domain.Visit {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Visit{}
	for _, v := range r.s.visits {
		if keep(v) {
			out = append(out, cloneVisit(v))
		}
	}
	return out
}

// sortVisits orders by visit date, then creation time, matching the
// Postgres ORDER BY clauses.
func sortVisits(visits []domain.Visit) {
	sort.SliceStable(visits, func(i, j int) bool {
		if visits[i].VisitDate != visits[j].VisitDate {
			return visits[i].VisitDate < visits[j].VisitDate
		}
		return visits[i].CreatedAt.Before(visits[j].CreatedAt)
	})
}
