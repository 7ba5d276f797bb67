package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-wms/meridian-wms/internal/shared"
)

// RepositoryPort abstracts repository usage for the engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, limit int) ([]Movement, error)
	GetProductStock(ctx context.Context, productID int64) (ProductStock, error)
}

// TxRepository exposes the writes available inside one engine
// transaction. GetProductForUpdate locks the product row, serializing
// concurrent movements against the same product.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error)
	LocationExists(ctx context.Context, locationID int64) (bool, error)
	ListAllocations(ctx context.Context, productID int64) ([]Allocation, error)
	UpsertAllocation(ctx context.Context, productID, locationID, quantity int64, now time.Time) error
	DeleteAllocation(ctx context.Context, productID, locationID int64) error
	UpdateProductQuantity(ctx context.Context, productID, quantity int64, now time.Time) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the stock movement engine. It is the only writer expected
// to keep a product's aggregate quantity equal to the sum of its
// allocations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Apply validates and applies one movement. All validation runs before
// the transaction begins; once inside, any failure rolls back both the
// product mutation and the ledger insert.
func (s *Service) Apply(ctx context.Context, input MovementInput) (Movement, ProductStock, error) {
	if err := validateInput(input); err != nil {
		return Movement{}, ProductStock{}, err
	}

	now := time.Now().UTC()
	var (
		movement Movement
		product  ProductStock
	)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}

		exists, err := tx.LocationExists(ctx, input.LocationID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrLocationNotFound
		}

		allocations, err := tx.ListAllocations(ctx, input.ProductID)
		if err != nil {
			return err
		}
		byLocation := make(map[int64]int64, len(allocations))
		for _, a := range allocations {
			byLocation[a.LocationID] = a.Quantity
		}

		srcQty, srcExists := byLocation[input.LocationID]
		newSrc := srcQty
		newAggregate := locked.Quantity
		ledgerNew := int64(0)

		switch input.Type {
		case MovementIn:
			newSrc = srcQty + input.Quantity
			newAggregate += input.Quantity
			ledgerNew = newSrc

		case MovementOut:
			if !srcExists || srcQty < input.Quantity {
				return ErrInsufficientStock
			}
			newSrc = srcQty - input.Quantity
			newAggregate -= input.Quantity
			ledgerNew = newSrc

		case MovementAdjustment:
			// Absolute set; the aggregate absorbs exactly the delta.
			newSrc = input.Quantity
			newAggregate += input.Quantity - srcQty
			ledgerNew = newSrc

		case MovementTransfer:
			destID := *input.DestinationID
			destExists, err := tx.LocationExists(ctx, destID)
			if err != nil {
				return err
			}
			if !destExists {
				return ErrDestinationNotFound
			}
			if !srcExists || srcQty < input.Quantity {
				return ErrInsufficientStock
			}
			newSrc = srcQty - input.Quantity
			ledgerNew = input.Quantity

			destQty := byLocation[destID] + input.Quantity
			if err := tx.UpsertAllocation(ctx, input.ProductID, destID, destQty, now); err != nil {
				return err
			}
		}

		if newSrc == 0 {
			if srcExists {
				if err := tx.DeleteAllocation(ctx, input.ProductID, input.LocationID); err != nil {
					return err
				}
			}
		} else {
			if err := tx.UpsertAllocation(ctx, input.ProductID, input.LocationID, newSrc, now); err != nil {
				return err
			}
		}

		if err := tx.UpdateProductQuantity(ctx, input.ProductID, newAggregate, now); err != nil {
			return err
		}

		movement = Movement{
			ProductID:        input.ProductID,
			LocationID:       input.LocationID,
			DestinationID:    input.DestinationID,
			Type:             input.Type,
			Quantity:         input.Quantity,
			PreviousQuantity: srcQty,
			NewQuantity:      ledgerNew,
			Reason:           input.Reason,
			Reference:        input.Reference,
			UserID:           input.ActorID,
			CreatedAt:        now,
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id

		updated, err := tx.ListAllocations(ctx, input.ProductID)
		if err != nil {
			return err
		}
		product = ProductStock{
			ID:        locked.ID,
			Name:      locked.Name,
			Quantity:  newAggregate,
			Locations: updated,
		}
		return nil
	})
	if err != nil {
		return Movement{}, ProductStock{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("stock:%s", input.Type),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d", movement.ID),
			Meta: map[string]any{
				"product_id":  input.ProductID,
				"location_id": input.LocationID,
				"quantity":    input.Quantity,
				"reason":      input.Reason,
			},
		})
	}
	return movement, product, nil
}

// ListMovements returns the most recent movements, newest first.
func (s *Service) ListMovements(ctx context.Context, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.ListMovements(ctx, limit)
}

// GetProductStock loads the stock view of one product.
func (s *Service) GetProductStock(ctx context.Context, productID int64) (ProductStock, error) {
	if productID <= 0 {
		return ProductStock{}, ErrProductNotFound
	}
	return s.repo.GetProductStock(ctx, productID)
}

func validateInput(input MovementInput) error {
	if !input.Type.Valid() {
		return ErrInvalidMovementType
	}
	if input.ProductID <= 0 {
		return ErrProductNotFound
	}
	if input.LocationID <= 0 {
		return ErrLocationNotFound
	}
	// Adjustments are absolute sets, so zero is allowed there; every
	// other type requires a positive quantity.
	if input.Quantity < 0 || (input.Quantity == 0 && input.Type != MovementAdjustment) {
		return ErrInvalidQuantity
	}
	if input.Reason == "" {
		return ErrReasonRequired
	}
	if input.ActorID <= 0 {
		return ErrActorRequired
	}
	if input.Type == MovementTransfer {
		if input.DestinationID == nil {
			return ErrDestinationRequired
		}
		if *input.DestinationID == input.LocationID {
			return ErrSameLocation
		}
	}
	return nil
}
