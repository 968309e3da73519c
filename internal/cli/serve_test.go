package cli

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansonjake/valleyclub-guest-checkin/internal/config"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/domain"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/metrics"
	"github.com/hansonjake/valleyclub-guest-checkin/internal/repo"
)

func newTestRouter(t *testing.T, maxBody int64) http.Handler {
	t.Helper()
	cfg := config.Config{
		CORSOrigins:  []string{"http://localhost:5173"},
		Location:     time.UTC,
		Policy:       domain.DefaultPolicy(),
		Catalog:      domain.DefaultCatalog(),
		MaxBodyBytes: maxBody,
	}
	store := repo.NewMemoryStore()
	b := &backend{guests: store.Guests(), visits: store.Visits(), name: "memory"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	return newRouter(cfg, log, newServices(cfg, b, log, metrics.New(reg)), reg)
}

func TestRouter_CheckinEndToEnd(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	body := `{"firstName":"Jane","lastName":"Doe","department":"Golf Round","campus":"Main Clubhouse"}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkin", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"checked-in"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkin", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"already-checked-in-today"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "guestbook_checkins_total")
}

func TestRouter_AmbientRoutes(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	for _, path := range []string{"/healthz", "/openapi.yaml", "/api/watchlist", "/api/visits-today"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equalf(t, http.StatusOK, rec.Code, "GET %s", path)
	}
}

func TestRouter_BodyLimit(t *testing.T) {
	h := newTestRouter(t, 16)
	body := `{"firstName":"Jane","lastName":"Doe","department":"Golf Round","campus":"Main Clubhouse"}`

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkin", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	req := httptest.NewRequest(http.MethodOptions, "/api/checkin", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
