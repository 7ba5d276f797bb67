package tracking

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
)

// RefreshEnqueuer schedules a background sweep of all pending shipments.
type RefreshEnqueuer interface {
	EnqueueTrackingRefresh(ctx context.Context, batchSize int) error
}

// Handler serves shipment endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer RefreshEnqueuer
}

// NewHandler builds Handler. enqueuer may be nil; the batch refresh
// endpoint then reports the feature as unavailable.
func NewHandler(logger *slog.Logger, service *Service, enqueuer RefreshEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// MountRoutes registers shipment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/shipments", func(r chi.Router) {
		r.Get("/", h.ListByOrder)
		r.Post("/", h.Register)
		r.Post("/refresh", h.RefreshAll)
		r.Get("/{id}", h.Show)
		r.Post("/{id}/refresh", h.Refresh)
	})
}

type registerRequest struct {
	OrderID        int64  `json:"order_id"`
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.OrderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "order_id, carrier and tracking_number are required")
		return
	}

	shipment, err := h.service.Register(r.Context(), req.OrderID, req.Carrier, req.TrackingNumber)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shipment)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid shipment ID")
		return
	}
	shipment, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipment)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid shipment ID")
		return
	}
	shipment, err := h.service.Refresh(r.Context(), id)
	if err != nil {
		h.logger.Error("shipment refresh failed", "error", err, "shipment_id", id)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shipment)
}

// RefreshAll enqueues a background sweep instead of walking every
// pending shipment inside the request.
func (h *Handler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "background refresh is not configured")
		return
	}
	if err := h.enqueuer.EnqueueTrackingRefresh(r.Context(), 0); err != nil {
		h.logger.Error("enqueue tracking refresh failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "could not schedule refresh")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"message": "refresh scheduled"})
}

func (h *Handler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "order_id query parameter is required")
		return
	}
	shipments, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": shipments})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrShipmentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCarrierRequired):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		httpx.Problem(w, http.StatusBadGateway, "Carrier Unavailable", "tracking provider did not return a status")
	}
}
