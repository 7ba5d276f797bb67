package tracking

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort abstracts shipment persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, s Shipment) (Shipment, error)
	Get(ctx context.Context, id int64) (Shipment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Shipment, error)
	ListPending(ctx context.Context, limit int) ([]Shipment, error)
	UpdateStatus(ctx context.Context, id int64, status, lastEvent string, checkedAt time.Time) error
}

// Service refreshes shipment statuses from the carrier.
type Service struct {
	repo    RepositoryPort
	carrier CarrierClient
	logger  *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, carrier CarrierClient, logger *slog.Logger) *Service {
	return &Service{repo: repo, carrier: carrier, logger: logger}
}

// Register creates a pending shipment for an order.
func (s *Service) Register(ctx context.Context, orderID int64, carrier, trackingNumber string) (Shipment, error) {
	carrier = strings.TrimSpace(carrier)
	trackingNumber = strings.TrimSpace(trackingNumber)
	if carrier == "" || trackingNumber == "" {
		return Shipment{}, ErrCarrierRequired
	}
	return s.repo.Insert(ctx, Shipment{OrderID: orderID, Carrier: carrier, TrackingNumber: trackingNumber})
}

// Get loads one shipment.
func (s *Service) Get(ctx context.Context, id int64) (Shipment, error) {
	return s.repo.Get(ctx, id)
}

// ListByOrder returns an order's shipments.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]Shipment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// Refresh queries the carrier for one shipment and stores the result.
func (s *Service) Refresh(ctx context.Context, id int64) (Shipment, error) {
	shipment, err := s.repo.Get(ctx, id)
	if err != nil {
		return Shipment{}, err
	}

	update, err := s.carrier.Track(ctx, shipment.Carrier, shipment.TrackingNumber)
	if err != nil {
		return Shipment{}, err
	}

	now := time.Now().UTC()
	status, known := normalizeStatus(update.Status)
	lastEvent := update.Description
	if !known {
		// The carrier reported something outside our status set; keep
		// the current status and record the raw text as the last event.
		status = shipment.Status
		if lastEvent == "" {
			lastEvent = update.Status
		}
		if s.logger != nil {
			s.logger.Warn("unrecognized carrier status",
				"shipment_id", shipment.ID,
				"carrier_status", update.Status)
		}
	}
	if err := s.repo.UpdateStatus(ctx, shipment.ID, status, lastEvent, now); err != nil {
		return Shipment{}, err
	}
	return s.repo.Get(ctx, id)
}

// refreshConcurrency caps simultaneous carrier API calls per batch.
const refreshConcurrency = 4

// RefreshPending refreshes every undelivered shipment and reports how
// many were updated. One carrier failure does not stop the batch.
func (s *Service) RefreshPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	var updated atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, shipment := range pending {
		g.Go(func() error {
			if _, err := s.Refresh(ctx, shipment.ID); err != nil {
				if s.logger != nil {
					s.logger.Warn("shipment refresh failed",
						"shipment_id", shipment.ID,
						"tracking_number", shipment.TrackingNumber,
						"error", err)
				}
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(updated.Load()), err
	}
	return int(updated.Load()), nil
}

func normalizeStatus(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "created", "label_created":
		return StatusPending, true
	case "in_transit", "transit", "shipped", "out_for_delivery":
		return StatusInTransit, true
	case "delivered":
		return StatusDelivered, true
	case "failed", "lost", "returned":
		return StatusFailed, true
	default:
		return "", false
	}
}
