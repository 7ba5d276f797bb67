package stock

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian-wms/internal/shared"
)

func newTestRouter(repo *memoryRepo, authenticated bool) http.Handler {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	svc := NewService(repo, nil)
	alloc := NewAllocator(repo, newFakeResolver(repo))
	handler := NewHandler(logger, svc, alloc, nil)

	r := chi.NewRouter()
	if authenticated {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := shared.ContextWithActor(req.Context(), shared.Actor{UserID: 7, Email: "ops@example.com"})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
	}
	handler.MountRoutes(r)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestApplyMovementEndpoint(t *testing.T) {
	repo := setupRepo(10, 10)
	router := newTestRouter(repo, true)

	rec := postJSON(t, router, "/stock-movements", map[string]any{
		"productId":    1,
		"locationId":   locA,
		"movementType": "in",
		"quantity":     5,
		"reason":       "goods receipt",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp movementResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(15), resp.Product.Quantity)
	require.Equal(t, MovementIn, resp.StockMovement.Type)
	require.Equal(t, int64(7), resp.StockMovement.UserID)
}

func TestApplyMovementRequiresAuth(t *testing.T) {
	repo := setupRepo(10, 10)
	router := newTestRouter(repo, false)

	// The actor check fires before any input validation, so even an
	// empty body yields 401, not 400.
	rec := postJSON(t, router, "/stock-movements", map[string]any{})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestApplyMovementErrorMapping(t *testing.T) {
	repo := setupRepo(5, 5)
	router := newTestRouter(repo, true)

	rec := postJSON(t, router, "/stock-movements", map[string]any{
		"productId":    1,
		"locationId":   locA,
		"movementType": "out",
		"quantity":     6,
		"reason":       "pick",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/stock-movements", map[string]any{
		"productId":    99,
		"locationId":   locA,
		"movementType": "in",
		"quantity":     1,
		"reason":       "receipt",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMovementsEndpoint(t *testing.T) {
	repo := setupRepo(10, 10)
	router := newTestRouter(repo, true)

	rec := postJSON(t, router, "/stock-movements", map[string]any{
		"productId":    1,
		"locationId":   locA,
		"movementType": "in",
		"quantity":     2,
		"reason":       "receipt",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/stock-movements", nil)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	var body struct {
		Data []Movement `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
}

func TestAllocationEndpoints(t *testing.T) {
	repo := setupRepo(10, 0)
	router := newTestRouter(repo, true)

	rec := postJSON(t, router, "/products/1/allocations", map[string]any{
		"locationCode": "R1S2",
		"quantity":     4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/products/1/allocations/release", map[string]any{
		"locationCode": "R1S2",
		"quantity":     4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/products/1/allocations", map[string]any{
		"locationCode": "R1S2",
		"quantity":     11,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
