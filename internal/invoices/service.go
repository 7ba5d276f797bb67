package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-wms/meridian-wms/internal/orders"
	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// RepositoryPort abstracts invoice persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	GetByOrder(ctx context.Context, orderID int64) (Invoice, error)
	List(ctx context.Context, limit, offset int) ([]Invoice, error)
	MarkIssued(ctx context.Context, id int64) error
	AddPayment(ctx context.Context, id int64, amount float64) error
	MarkVoid(ctx context.Context, id int64) error
}

// OrdersPort resolves the order an invoice bills.
type OrdersPort interface {
	Get(ctx context.Context, id int64) (orders.Order, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates invoice operations.
type Service struct {
	repo   RepositoryPort
	orders OrdersPort
	audit  AuditPort
	dueIn  time.Duration
}

// NewService builds Service. Invoices fall due 30 days after creation.
func NewService(repo RepositoryPort, orderSvc OrdersPort, audit AuditPort) *Service {
	return &Service{repo: repo, orders: orderSvc, audit: audit, dueIn: 30 * 24 * time.Hour}
}

// CreateFromOrder generates a draft invoice for a confirmed or
// completed order, copying the customer and total.
func (s *Service) CreateFromOrder(ctx context.Context, orderID, actorID int64) (Invoice, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return Invoice{}, err
	}
	if order.Status != orders.StatusConfirmed && order.Status != orders.StatusCompleted {
		return Invoice{}, ErrOrderNotBillable
	}

	due := time.Now().Add(s.dueIn)
	inv, err := s.repo.Insert(ctx, Invoice{
		Number:       fmt.Sprintf("INV-%d", time.Now().UnixNano()),
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		Amount:       order.Total,
		Status:       StatusDraft,
		DueDate:      &due,
	})
	if err != nil {
		return Invoice{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoices:create",
			Entity:   "invoice",
			EntityID: inv.Number,
			Meta:     map[string]any{"order_id": order.ID, "amount": inv.Amount},
		})
	}
	return inv, nil
}

// Get loads one invoice.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	if id <= 0 {
		return Invoice{}, ErrInvoiceNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns recent invoices.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Invoice, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Issue moves a draft invoice to issued.
func (s *Service) Issue(ctx context.Context, id, actorID int64) (Invoice, error) {
	if err := s.repo.MarkIssued(ctx, id); err != nil {
		return Invoice{}, err
	}
	s.record(ctx, actorID, "invoices:issue", id)
	return s.repo.Get(ctx, id)
}

// RecordPayment applies a payment against an issued invoice.
func (s *Service) RecordPayment(ctx context.Context, id int64, amount float64, actorID int64) (Invoice, error) {
	if amount <= 0 {
		return Invoice{}, ErrInvalidPayment
	}
	if err := s.repo.AddPayment(ctx, id, amount); err != nil {
		return Invoice{}, err
	}
	s.record(ctx, actorID, "invoices:payment", id)
	return s.repo.Get(ctx, id)
}

// Void cancels a draft or issued invoice.
func (s *Service) Void(ctx context.Context, id, actorID int64) (Invoice, error) {
	if err := s.repo.MarkVoid(ctx, id); err != nil {
		return Invoice{}, err
	}
	s.record(ctx, actorID, "invoices:void", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "invoice",
		EntityID: fmt.Sprintf("%d", id),
	})
}
