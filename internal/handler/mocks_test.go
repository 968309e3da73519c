package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/handler"
)

// mockGuestServicer is a test double for handler.GuestServicer.
// Set only the method fields your test needs.
type mockGuestServicer struct {
	getByID         func(ctx context.Context, id uuid.UUID) (domain.Guest, error)
	findByLicense   func(ctx context.Context, state, number string) (domain.Guest, error)
	nameSuggestions func(ctx context.Context, first, last string) (domain.NameSuggestions, error)
	search          func(ctx context.Context, query string) ([]domain.Guest, error)
	update          func(ctx context.Context, id uuid.UUID, u domain.GuestUpdate) (domain.Guest, error)
	archive         func(ctx context.Context, id uuid.UUID) (domain.Guest, error)
	restore         func(ctx context.Context, id uuid.UUID) (domain.Guest, error)
	listArchived    func(ctx context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error)
}

func (m *mockGuestServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	return m.getByID(ctx, id)
}
func (m *mockGuestServicer) FindByLicense(ctx context.Context, state, number string) (domain.Guest, error) {
	return m.findByLicense(ctx, state, number)
}
func (m *mockGuestServicer) NameSuggestions(ctx context.Context, first, last string) (domain.NameSuggestions, error) {
	return m.nameSuggestions(ctx, first, last)
}
func (m *mockGuestServicer) Search(ctx context.Context, query string) ([]domain.Guest, error) {
	return m.search(ctx, query)
}
func (m *mockGuestServicer) Update(ctx context.Context, id uuid.UUID, u domain.GuestUpdate) (domain.Guest, error) {
	return m.update(ctx, id, u)
}
func (m *mockGuestServicer) Archive(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	return m.archive(ctx, id)
}
func (m *mockGuestServicer) Restore(ctx context.Context, id uuid.UUID) (domain.Guest, error) {
	return m.restore(ctx, id)
}
func (m *mockGuestServicer) ListArchived(ctx context.Context, p domain.PaginationParams) ([]domain.Guest, int64, error) {
	return m.listArchived(ctx, p)
}

type mockVisitServicer struct {
	deleteVisit func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVisitServicer) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	return m.deleteVisit(ctx, id)
}

type mockCheckinServicer struct {
	checkIn func(ctx context.Context, req domain.CheckinRequest) (domain.CheckinResult, error)
}

func (m *mockCheckinServicer) CheckIn(ctx context.Context, req domain.CheckinRequest) (domain.CheckinResult, error) {
	return m.checkIn(ctx, req)
}

type mockSummaryServicer struct {
	currentYear   int
	guestSummary  func(ctx context.Context, id uuid.UUID, year int) (domain.GuestSummary, error)
	watchList     func(ctx context.Context) ([]domain.WatchEntry, error)
	dailyActivity func(ctx context.Context, date string) (string, []domain.ActivityEntry, error)
	report        func(ctx context.Context, year int) ([]domain.ReportRow, error)
}

func (m *mockSummaryServicer) CurrentYear() int { return m.currentYear }
func (m *mockSummaryServicer) GuestSummary(ctx context.Context, id uuid.UUID, year int) (domain.GuestSummary, error) {
	return m.guestSummary(ctx, id, year)
}
func (m *mockSummaryServicer) WatchList(ctx context.Context) ([]domain.WatchEntry, error) {
	return m.watchList(ctx)
}
func (m *mockSummaryServicer) DailyActivity(ctx context.Context, date string) (string, []domain.ActivityEntry, error) {
	return m.dailyActivity(ctx, date)
}
func (m *mockSummaryServicer) Report(ctx context.Context, year int) ([]domain.ReportRow, error) {
	return m.report(ctx, year)
}

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.GuestServicer   = (*mockGuestServicer)(nil)
	_ handler.VisitServicer   = (*mockVisitServicer)(nil)
	_ handler.CheckinServicer = (*mockCheckinServicer)(nil)
	_ handler.SummaryServicer = (*mockSummaryServicer)(nil)
)

// ---- helpers ---------------------------------------------------------------

type mocks struct {
	guests   *mockGuestServicer
	visits   *mockVisitServicer
	checkins *mockCheckinServicer
	summary  *mockSummaryServicer
}

func newMocks() *mocks {
	return &mocks{
		guests:   &mockGuestServicer{},
		visits:   &mockVisitServicer{},
		checkins: &mockCheckinServicer{},
		summary:  &mockSummaryServicer{currentYear: 2024},
	}
}

// handler wires a Server with the mocks into its chi router, the same way the
// serve command does.
func (m *mocks) handler() http.Handler {
	return handler.NewServer(m.guests, m.visits, m.checkins, m.summary, nil).Routes()
}

func (m *mocks) do(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	m.handler().ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func guestFixture() domain.Guest {
	return domain.Guest{
		ID:            uuid.MustParse("0b3c2f58-6d55-4a10-9a4f-3b9f4c2a7e01"),
		FirstName:     "Jane",
		LastName:      "Doe",
		LicenseState:  "ID",
		LicenseNumber: "A1234567",
	}
}
