package repo_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

func TestMemoryStore_GuestLifecycle(t *testing.T) {
	s := repo.NewMemoryStore()
	guests := s.Guests()
	ctx := context.Background()

	created, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = guests.SetDeleted(ctx, created.ID, true)
	require.NoError(t, err)

	_, err = guests.FindActiveByName(ctx, "jane", "doe")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	byName, err := guests.FindArchivedByName(ctx, "jane", "doe")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byLicense, err := guests.FindByLicense(ctx, "ID", "D1234567")
	require.NoError(t, err)
	assert.True(t, byLicense.IsDeleted)

	archived, total, err := guests.ListArchived(ctx, domain.NewPaginationParams(nil, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, archived, 1)
}

func TestMemoryStore_DuplicateLicense(t *testing.T) {
	guests := repo.NewMemoryStore().Guests()
	ctx := context.Background()

	_, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)
	other, err := guests.Create(ctx, domain.Guest{FirstName: "John", LastName: "Doe"})
	require.NoError(t, err)

	other.LicenseState, other.LicenseNumber = "ID", "D1234567"
	_, err = guests.Update(ctx, other)

	assert.ErrorIs(t, err, domain.ErrDuplicateLicense)
}

func TestMemoryStore_Search_InsertionOrderAndLimit(t *testing.T) {
	guests := repo.NewMemoryStore().Guests()
	ctx := context.Background()

	for _, first := range []string{"Ann", "Anna", "Annie"} {
		_, err := guests.Create(ctx, domain.Guest{FirstName: first, LastName: "Lee"})
		require.NoError(t, err)
	}

	got, err := guests.Search(ctx, "ann", 2)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ann", got[0].FirstName)
	assert.Equal(t, "Anna", got[1].FirstName)
}

func TestMemoryStore_VisitOnePerDay(t *testing.T) {
	s := repo.NewMemoryStore()
	ctx := context.Background()
	g, err := s.Guests().Create(ctx, guestFixture())
	require.NoError(t, err)

	_, err = s.Visits().Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)
	_, err = s.Visits().Create(ctx, visitFixture(g.ID, "2024-06-01"))

	assert.ErrorIs(t, err, domain.ErrVisitExists)
}

func TestMemoryStore_ReadsAreCopies(t *testing.T) {
	s := repo.NewMemoryStore()
	ctx := context.Background()
	g, err := s.Guests().Create(ctx, guestFixture())
	require.NoError(t, err)
	v, err := s.Visits().Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)

	got, err := s.Visits().GetByID(ctx, v.ID)
	require.NoError(t, err)
	got.Departments[0].Department = "changed"

	again, err := s.Visits().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Golf Round", again.Departments[0].Department)
}

func TestMemoryStore_UpsertStampAndDelete(t *testing.T) {
	s := repo.NewMemoryStore()
	ctx := context.Background()
	g, err := s.Guests().Create(ctx, guestFixture())
	require.NoError(t, err)
	v, err := s.Visits().Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)
	_, err = s.Visits().UpsertStamp(ctx, v.ID, domain.Stamp{Department: "Golf Round", Campus: "Main Clubhouse", CheckedInAt: at})
	require.NoError(t, err)

	got, err := s.Visits().GetByID(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got.Departments, 1)
	assert.Equal(t, at, got.Departments[0].CheckedInAt)

	require.NoError(t, s.Visits().Delete(ctx, v.ID))
	assert.ErrorIs(t, s.Visits().Delete(ctx, v.ID), domain.ErrNotFound)
	assert.Empty(t, s.Snapshot().Visits)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "guestbook.json")
	ctx := context.Background()

	s, err := repo.OpenFileStore(path)
	require.NoError(t, err)
	g, err := s.Guests().Create(ctx, guestFixture())
	require.NoError(t, err)
	v, err := s.Visits().Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)

	reopened, err := repo.OpenFileStore(path)
	require.NoError(t, err)

	got, err := reopened.Visits().GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, got.GuestID)
	assert.Len(t, got.Departments, 1)
}

func TestFileStore_FailedWriteRollsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guestbook.json")
	ctx := context.Background()

	s, err := repo.OpenFileStore(path)
	require.NoError(t, err)
	_, err = s.Guests().Create(ctx, guestFixture())
	require.NoError(t, err)

	// A directory where the file should be makes the rename fail.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err = s.Guests().Create(ctx, domain.Guest{FirstName: "Bob", LastName: "Smith"})

	require.Error(t, err)
	assert.Len(t, s.Snapshot().Guests, 1)
}

func TestOpenFileStore_RejectsTwoVisitsOnOneDay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guestbook.json")
	gid := uuid.New()
	doc := `{"guests":[{"id":"` + gid.String() + `","firstName":"Jane","lastName":"Doe"}],
		"visits":[
			{"id":"` + uuid.NewString() + `","guestId":"` + gid.String() + `","visitDate":"2024-06-01"},
			{"id":"` + uuid.NewString() + `","guestId":"` + gid.String() + `","visitDate":"2024-06-01"}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := repo.OpenFileStore(path)

	assert.Error(t, err)
}
