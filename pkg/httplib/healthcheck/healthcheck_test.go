package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_ServeHTTP(t *testing.T) {
	testCases := []struct {
		name     string
		checkers map[string]Checker
		assertFn func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "no checkers",
			assertFn: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, http.StatusOK, rec.Code)
			},
		},
		{
			name: "all healthy",
			checkers: map[string]Checker{
				"kafka": func(ctx context.Context) error { return nil },
				"redis": func(ctx context.Context) error { return nil },
			},
			assertFn: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, http.StatusOK, rec.Code)

				var report Report
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
				assert.Equal(t, "ok", report.Status)
				assert.Equal(t, map[string]string{"kafka": "ok", "redis": "ok"}, report.Checks)
			},
		},
		{
			name: "one failing",
			checkers: map[string]Checker{
				"feed":  func(ctx context.Context) error { return errors.New("disconnected") },
				"kafka": func(ctx context.Context) error { return nil },
			},
			assertFn: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

				var report Report
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
				assert.Equal(t, "unavailable", report.Status)
				assert.Equal(t, "disconnected", report.Checks["feed"])
			},
		},
		{
			name: "checker bounded by timeout",
			checkers: map[string]Checker{
				"slow": func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				},
			},
			assertFn: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			hc := New(50 * time.Millisecond)
			for name, checker := range tc.checkers {
				hc.Register(name, checker)
			}

			rec := httptest.NewRecorder()
			hc.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			tc.assertFn(t, rec)
		})
	}
}

func TestHealthCheck_Handler(t *testing.T) {
	hc := New(time.Second)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := hc.Handler(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
