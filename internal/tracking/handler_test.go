package tracking

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	calls int
	err   error
}

func (f *fakeEnqueuer) EnqueueTrackingRefresh(ctx context.Context, batchSize int) error {
	f.calls++
	return f.err
}

func newTestRouter(enqueuer RefreshEnqueuer) chi.Router {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	svc := NewService(newMemoryRepo(), &fakeCarrier{}, nil)
	h := NewHandler(logger, svc, enqueuer)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestRefreshAllSchedulesSweep(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := newTestRouter(enqueuer)

	req := httptest.NewRequest(http.MethodPost, "/shipments/refresh", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, 1, enqueuer.calls)
	require.Contains(t, res.Body.String(), "refresh scheduled")
}

func TestRefreshAllWithoutQueue(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/shipments/refresh", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestRefreshAllEnqueueFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: errors.New("redis down")}
	router := newTestRouter(enqueuer)

	req := httptest.NewRequest(http.MethodPost, "/shipments/refresh", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusInternalServerError, res.Code)
	require.False(t, strings.Contains(res.Body.String(), "redis down"), "infrastructure detail must not leak")
}

func TestRegisterEndpointValidation(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/shipments", strings.NewReader(`{"carrier":"dhl"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
}
