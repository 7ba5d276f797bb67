package stock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-wms/meridian-wms/internal/platform/httpx"
	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// MovementCounter records applied movements by type.
type MovementCounter interface {
	CountMovement(movementType string)
}

// Handler serves the movement and allocation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	allocator *Allocator
	counter   MovementCounter
}

// NewHandler builds Handler. counter may be nil.
func NewHandler(logger *slog.Logger, service *Service, allocator *Allocator, counter MovementCounter) *Handler {
	return &Handler{logger: logger, service: service, allocator: allocator, counter: counter}
}

// MountRoutes registers stock routes. Callers mount these behind the
// authentication middleware; the actor is read from the request context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/stock-movements", func(r chi.Router) {
		r.Post("/", h.ApplyMovement)
		r.Get("/", h.ListMovements)
	})
	r.Route("/products/{id}/allocations", func(r chi.Router) {
		r.Get("/", h.ShowAllocations)
		r.Post("/", h.Allocate)
		r.Post("/release", h.Deallocate)
	})
}

type movementRequest struct {
	ProductID     int64        `json:"productId"`
	LocationID    int64        `json:"locationId"`
	MovementType  MovementType `json:"movementType"`
	Quantity      int64        `json:"quantity"`
	Reason        string       `json:"reason"`
	Reference     string       `json:"reference"`
	DestinationID *int64       `json:"destinationLocationId"`
}

type movementResponse struct {
	Message       string       `json:"message"`
	StockMovement Movement     `json:"stockMovement"`
	Product       ProductStock `json:"product"`
}

func (h *Handler) ApplyMovement(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
		return
	}

	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}

	movement, product, err := h.service.Apply(r.Context(), MovementInput{
		ProductID:     req.ProductID,
		LocationID:    req.LocationID,
		DestinationID: req.DestinationID,
		Type:          req.MovementType,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Reference:     req.Reference,
		ActorID:       actor.UserID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if h.counter != nil {
		h.counter.CountMovement(string(movement.Type))
	}
	httpx.JSON(w, http.StatusCreated, movementResponse{
		Message:       "stock movement applied",
		StockMovement: movement,
		Product:       product,
	})
}

func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.ListMovements(r.Context(), limit)
	if err != nil {
		h.logger.Error("list stock movements failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": movements})
}

func (h *Handler) ShowAllocations(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product ID")
		return
	}
	product, err := h.service.GetProductStock(r.Context(), productID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type allocationRequest struct {
	LocationCode string `json:"locationCode"`
	Quantity     int64  `json:"quantity"`
}

func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	h.reallocate(w, r, h.allocator.Allocate)
}

func (h *Handler) Deallocate(w http.ResponseWriter, r *http.Request) {
	h.reallocate(w, r, h.allocator.Deallocate)
}

func (h *Handler) reallocate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, productID int64, code string, quantity int64) (ProductStock, error)) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product ID")
		return
	}

	var req allocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}

	product, err := apply(r.Context(), productID, req.LocationCode, req.Quantity)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "allocation updated",
		"product": product,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrLocationNotFound),
		errors.Is(err, ErrDestinationNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidMovementType),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrDestinationRequired),
		errors.Is(err, ErrSameLocation),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrActorRequired),
		errors.Is(err, ErrExceedsAvailable),
		errors.Is(err, ErrNothingAllocated),
		errors.Is(err, ErrLocationCodeEmpty):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		h.logger.Error("stock operation failed", "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "transaction failed")
	}
}
