package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

func newPgRepos(t *testing.T) (repo.GuestRepo, repo.VisitRepo) {
	t.Helper()
	tx := newTestTx(t)
	return repo.NewGuestRepo(tx), repo.NewVisitRepo(tx)
}

func visitFixture(guestID uuid.UUID, date string) domain.Visit {
	at := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	return domain.Visit{
		GuestID:         guestID,
		VisitDate:       date,
		CreatedAt:       at,
		Campus:          "Main Clubhouse",
		FirstDepartment: "Golf Round",
		Departments:     []domain.Stamp{{Department: "Golf Round", Campus: "Main Clubhouse", CheckedInAt: at}},
	}
}

func TestVisitRepo_CreateAndGet(t *testing.T) {
	guests, visits := newPgRepos(t)
	ctx := context.Background()
	g, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)

	created, err := visits.Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "2024-06-01", created.VisitDate)

	got, err := visits.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Golf Round", got.FirstDepartment)
	require.Len(t, got.Departments, 1)
	assert.Equal(t, "Golf Round", got.Departments[0].Department)
}

func TestVisitRepo_Create_SecondVisitSameDay(t *testing.T) {
	guests, visits := newPgRepos(t)
	ctx := context.Background()
	g, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)

	_, err = visits.Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)
	_, err = visits.Create(ctx, visitFixture(g.ID, "2024-06-01"))

	assert.ErrorIs(t, err, domain.ErrVisitExists)
}

func TestVisitRepo_ListByGuest_RangeAndOrder(t *testing.T) {
	guests, visits := newPgRepos(t)
	ctx := context.Background()
	g, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)

	for _, d := range []string{"2024-08-02", "2023-12-31", "2024-01-15", "2025-01-01"} {
		_, err := visits.Create(ctx, visitFixture(g.ID, d))
		require.NoError(t, err)
	}

	from, to := domain.YearRange(2024)
	got, err := visits.ListByGuest(ctx, g.ID, from, to)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-15", got[0].VisitDate)
	assert.Equal(t, "2024-08-02", got[1].VisitDate)
}

func TestVisitRepo_UpsertStamp_DedupsByDepartment(t *testing.T) {
	guests, visits := newPgRepos(t)
	ctx := context.Background()
	g, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)
	v, err := visits.Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)

	later := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	_, err = visits.UpsertStamp(ctx, v.ID, domain.Stamp{Department: "Gym Entry", Campus: "Fitness Center", CheckedInAt: later})
	require.NoError(t, err)
	refreshed, err := visits.UpsertStamp(ctx, v.ID, domain.Stamp{Department: "Golf Round", Campus: "Main Clubhouse", CheckedInAt: later})
	require.NoError(t, err)
	assert.True(t, refreshed.CheckedInAt.Equal(later))

	got, err := visits.GetByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Len(t, got.Departments, 2)
}

func TestVisitRepo_UpsertStamp_UnknownVisit(t *testing.T) {
	_, visits := newPgRepos(t)

	_, err := visits.UpsertStamp(context.Background(), uuid.New(), domain.Stamp{Department: "Gym Entry", Campus: "Fitness Center", CheckedInAt: time.Now()})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVisitRepo_Delete(t *testing.T) {
	guests, visits := newPgRepos(t)
	ctx := context.Background()
	g, err := guests.Create(ctx, guestFixture())
	require.NoError(t, err)
	v, err := visits.Create(ctx, visitFixture(g.ID, "2024-06-01"))
	require.NoError(t, err)

	require.NoError(t, visits.Delete(ctx, v.ID))

	_, err = visits.GetByID(ctx, v.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, visits.Delete(ctx, v.ID), domain.ErrNotFound)
}
