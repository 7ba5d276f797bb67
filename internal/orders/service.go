package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridian-wms/meridian-wms/internal/catalog"
	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	Create(ctx context.Context, order Order) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, limit, offset int) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to OrderStatus) error
}

// CatalogPort resolves products for line-item snapshots.
type CatalogPort interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order operations. Creating or transitioning an
// order has no stock side effects.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	audit   AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort) *Service {
	return &Service{repo: repo, catalog: catalog, audit: audit}
}

// CreateOrderInput carries a new order request.
type CreateOrderInput struct {
	CustomerName string
	Items        []CreateItemInput
	ActorID      int64
}

// CreateItemInput references a product and a quantity; name, SKU and
// price are snapshotted from the live catalog.
type CreateItemInput struct {
	ProductID int64
	Quantity  int64
}

// Create builds a draft order with line items snapshotted from the
// catalog and a computed total.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (Order, error) {
	if strings.TrimSpace(input.CustomerName) == "" {
		return Order{}, errors.New("orders: customer name is required")
	}
	if len(input.Items) == 0 {
		return Order{}, ErrEmptyOrder
	}

	order := Order{
		Number:       fmt.Sprintf("ORD-%d", time.Now().UnixNano()),
		CustomerName: strings.TrimSpace(input.CustomerName),
		Status:       StatusDraft,
		CreatedBy:    input.ActorID,
	}

	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return Order{}, errors.New("orders: item quantity must be positive")
		}
		product, err := s.catalog.Get(ctx, line.ProductID)
		if err != nil {
			return Order{}, fmt.Errorf("orders: resolve product %d: %w", line.ProductID, err)
		}
		item := OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    line.Quantity,
			Price:       product.Price,
			Total:       product.Price * float64(line.Quantity),
		}
		order.Total += item.Total
		order.Items = append(order.Items, item)
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return Order{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "orders:create",
			Entity:   "order",
			EntityID: created.Number,
			Meta:     map[string]any{"total": created.Total, "items": len(created.Items)},
		})
	}
	return created, nil
}

// Get loads one order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	if id <= 0 {
		return Order{}, ErrOrderNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns recent orders.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Transition moves an order along its lifecycle.
func (s *Service) Transition(ctx context.Context, id int64, to OrderStatus, actorID int64) (Order, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !canTransition(order.Status, to) {
		return Order{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, id, order.Status, to); err != nil {
		return Order{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   fmt.Sprintf("orders:%s", to),
			Entity:   "order",
			EntityID: order.Number,
			Meta:     map[string]any{"from": string(order.Status), "to": string(to)},
		})
	}
	return s.repo.Get(ctx, id)
}
