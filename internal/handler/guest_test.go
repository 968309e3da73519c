package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
)

func TestLookup(t *testing.T) {
	m := newMocks()
	m.guests.search = func(_ context.Context, q string) ([]domain.Guest, error) {
		assert.Equal(t, "doe", q)
		return []domain.Guest{guestFixture()}, nil
	}

	rec := m.do(t, http.MethodGet, "/api/lookup?q=doe", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body []domain.Guest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, "Jane", body[0].FirstName)
}

func TestLookup_EmptyIsArray(t *testing.T) {
	m := newMocks()
	m.guests.search = func(context.Context, string) ([]domain.Guest, error) {
		return []domain.Guest{}, nil
	}

	rec := m.do(t, http.MethodGet, "/api/lookup", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestGetGuestByLicense_Found(t *testing.T) {
	m := newMocks()
	guest := guestFixture()
	m.guests.findByLicense = func(_ context.Context, state, number string) (domain.Guest, error) {
		assert.Equal(t, "id", state)
		assert.Equal(t, "A1234567", number)
		return guest, nil
	}
	m.summary.guestSummary = func(_ context.Context, id uuid.UUID, year int) (domain.GuestSummary, error) {
		assert.Equal(t, guest.ID, id)
		assert.Zero(t, year, "current year is resolved by the service")
		return domain.GuestSummary{Year: 2024, TotalYearVisits: 2, JulyVisits: 1}, nil
	}

	rec := m.do(t, http.MethodGet, "/api/guest-by-license?state=id&number=A1234567", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Guest   domain.Guest        `json:"guest"`
		Summary domain.GuestSummary `json:"summary"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, guest.ID, body.Guest.ID)
	assert.Equal(t, 2, body.Summary.TotalYearVisits)
	assert.Equal(t, 1, body.Summary.JulyVisits)
}

func TestGetGuestByLicense_NotFound(t *testing.T) {
	m := newMocks()
	m.guests.findByLicense = func(context.Context, string, string) (domain.Guest, error) {
		return domain.Guest{}, fmt.Errorf("service.GuestService.FindByLicense: %w", domain.ErrNotFound)
	}

	rec := m.do(t, http.MethodGet, "/api/guest-by-license?state=ID&number=Z9", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestListArchivedGuests_Pagination(t *testing.T) {
	m := newMocks()
	m.guests.listArchived = func(_ context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error) {
		assert.Equal(t, domain.PaginationParams{Page: 2, Limit: 100}, p)
		return []domain.Guest{{FirstName: "Gone", IsDeleted: true}}, 101, nil
	}

	rec := m.do(t, http.MethodGet, "/api/guests/archived?page=2&limit=500", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data       []domain.Guest `json:"data"`
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, 2, body.Pagination.Page)
	assert.Equal(t, 100, body.Pagination.Limit)
	assert.EqualValues(t, 101, body.Pagination.Total)
}

func TestListArchivedGuests_BadPage(t *testing.T) {
	m := newMocks()

	rec := m.do(t, http.MethodGet, "/api/guests/archived?page=two", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeError(t, rec).Code)
}

func TestGetGuest(t *testing.T) {
	m := newMocks()
	guest := guestFixture()
	m.guests.getByID = func(_ context.Context, id uuid.UUID) (domain.Guest, error) {
		if id == guest.ID {
			return guest, nil
		}
		return domain.Guest{}, domain.ErrNotFound
	}

	rec := m.do(t, http.MethodGet, "/api/guests/"+guest.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = m.do(t, http.MethodGet, "/api/guests/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "guest not found", decodeError(t, rec).Message)

	rec = m.do(t, http.MethodGet, "/api/guests/42", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateGuest_PartialFields(t *testing.T) {
	m := newMocks()
	guest := guestFixture()
	m.guests.update = func(_ context.Context, id uuid.UUID, u domain.GuestUpdate) (domain.Guest, error) {
		assert.Equal(t, guest.ID, id)
		require.NotNil(t, u.Email)
		assert.Equal(t, "", *u.Email, "empty string clears the field")
		require.NotNil(t, u.LastName)
		assert.Equal(t, "Smith", *u.LastName)
		assert.Nil(t, u.FirstName)
		assert.Nil(t, u.LicenseNumber)
		assert.Nil(t, u.Phone, "null leaves the field unchanged")
		return u.Apply(guest), nil
	}

	rec := m.do(t, http.MethodPatch, "/api/guests/"+guest.ID.String(),
		strings.NewReader(`{"lastName":"Smith","email":"","phoneNumber":null}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.Guest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Jane", body.FirstName)
	assert.Equal(t, "Smith", body.LastName)
}

func TestUpdateGuest_DuplicateLicenseIsConflict(t *testing.T) {
	m := newMocks()
	m.guests.update = func(context.Context, uuid.UUID, domain.GuestUpdate) (domain.Guest, error) {
		return domain.Guest{}, fmt.Errorf("service.GuestService.Update: repo.GuestRepo.Update: %w", domain.ErrDuplicateLicense)
	}

	rec := m.do(t, http.MethodPatch, "/api/guests/"+uuid.NewString(),
		strings.NewReader(`{"licenseState":"ID","licenseNumber":"A1"}`))

	require.Equal(t, http.StatusConflict, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "conflict", detail.Code)
	assert.Equal(t, domain.ErrDuplicateLicense.Error(), detail.Message)
}

func TestArchiveAndRestoreGuest(t *testing.T) {
	m := newMocks()
	guest := guestFixture()
	m.guests.archive = func(_ context.Context, id uuid.UUID) (domain.Guest, error) {
		g := guest
		g.IsDeleted = true
		return g, nil
	}
	m.guests.restore = func(_ context.Context, id uuid.UUID) (domain.Guest, error) {
		return domain.Guest{}, fmt.Errorf("service.GuestService.Restore: %w", domain.ErrNotFound)
	}

	rec := m.do(t, http.MethodPost, "/api/guests/"+guest.ID.String()+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.Guest
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.IsDeleted)

	rec = m.do(t, http.MethodPost, "/api/guests/"+guest.ID.String()+"/restore", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetGuestVisits_Year(t *testing.T) {
	m := newMocks()
	id := uuid.New()
	m.summary.guestSummary = func(_ context.Context, got uuid.UUID, year int) (domain.GuestSummary, error) {
		assert.Equal(t, id, got)
		assert.Equal(t, 2023, year)
		return domain.GuestSummary{Year: 2023, Visits: []domain.Visit{}}, nil
	}

	rec := m.do(t, http.MethodGet, "/api/guests/"+id.String()+"/visits?year=2023", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = m.do(t, http.MethodGet, "/api/guests/"+id.String()+"/visits?year=last", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
