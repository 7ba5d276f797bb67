package stock

import (
	"context"
	"errors"
	"time"
)

// LocationResolver finds a location by code, creating it when absent.
type LocationResolver interface {
	ResolveOrCreate(ctx context.Context, code string) (int64, error)
}

var (
	ErrExceedsAvailable  = errors.New("stock: quantity exceeds unallocated stock")
	ErrNothingAllocated  = errors.New("stock: nothing allocated at that location")
	ErrLocationCodeEmpty = errors.New("stock: location code is required")
)

// Allocator redistributes a product's existing stock across locations.
// Unlike movements, redistribution never changes the aggregate quantity
// and writes no ledger entry; it only shifts allocations between the
// unallocated pool and a shelf.
type Allocator struct {
	repo      RepositoryPort
	locations LocationResolver
}

// NewAllocator builds Allocator.
func NewAllocator(repo RepositoryPort, locations LocationResolver) *Allocator {
	return &Allocator{repo: repo, locations: locations}
}

// Allocate places quantity of the product onto the location with the
// given code, capped by the product's unallocated stock.
func (a *Allocator) Allocate(ctx context.Context, productID int64, code string, quantity int64) (ProductStock, error) {
	if code == "" {
		return ProductStock{}, ErrLocationCodeEmpty
	}
	if quantity <= 0 {
		return ProductStock{}, ErrInvalidQuantity
	}

	locationID, err := a.locations.ResolveOrCreate(ctx, code)
	if err != nil {
		return ProductStock{}, err
	}

	now := time.Now().UTC()
	var product ProductStock
	err = a.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		allocations, err := tx.ListAllocations(ctx, productID)
		if err != nil {
			return err
		}
		var allocated, current int64
		for _, al := range allocations {
			allocated += al.Quantity
			if al.LocationID == locationID {
				current = al.Quantity
			}
		}
		available := locked.Quantity - allocated
		if quantity > available {
			return ErrExceedsAvailable
		}

		if err := tx.UpsertAllocation(ctx, productID, locationID, current+quantity, now); err != nil {
			return err
		}

		product, err = a.reload(ctx, tx, locked)
		return err
	})
	return product, err
}

// Deallocate removes quantity of the product from the location with the
// given code, returning it to the unallocated pool.
func (a *Allocator) Deallocate(ctx context.Context, productID int64, code string, quantity int64) (ProductStock, error) {
	if code == "" {
		return ProductStock{}, ErrLocationCodeEmpty
	}
	if quantity <= 0 {
		return ProductStock{}, ErrInvalidQuantity
	}

	locationID, err := a.locations.ResolveOrCreate(ctx, code)
	if err != nil {
		return ProductStock{}, err
	}

	now := time.Now().UTC()
	var product ProductStock
	err = a.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}

		allocations, err := tx.ListAllocations(ctx, productID)
		if err != nil {
			return err
		}
		var current int64
		found := false
		for _, al := range allocations {
			if al.LocationID == locationID {
				current = al.Quantity
				found = true
			}
		}
		if !found {
			return ErrNothingAllocated
		}
		if quantity > current {
			return ErrInsufficientStock
		}

		remaining := current - quantity
		if remaining == 0 {
			if err := tx.DeleteAllocation(ctx, productID, locationID); err != nil {
				return err
			}
		} else {
			if err := tx.UpsertAllocation(ctx, productID, locationID, remaining, now); err != nil {
				return err
			}
		}

		product, err = a.reload(ctx, tx, locked)
		return err
	})
	return product, err
}

func (a *Allocator) reload(ctx context.Context, tx TxRepository, locked ProductStock) (ProductStock, error) {
	updated, err := tx.ListAllocations(ctx, locked.ID)
	if err != nil {
		return ProductStock{}, err
	}
	return ProductStock{
		ID:        locked.ID,
		Name:      locked.Name,
		Quantity:  locked.Quantity,
		Locations: updated,
	}, nil
}
