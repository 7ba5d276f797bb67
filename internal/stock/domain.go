package stock

import (
	"errors"
	"time"
)

// MovementType enumerates the supported stock movement kinds.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
	MovementTransfer   MovementType = "transfer"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjustment, MovementTransfer:
		return true
	}
	return false
}

// Movement is one immutable ledger entry. PreviousQuantity and
// NewQuantity record the source location's allocation before/after the
// movement; for transfers NewQuantity holds the transferred amount
// instead of the resulting source balance, which downstream reporting
// relies on.
type Movement struct {
	ID               int64        `json:"id"`
	ProductID        int64        `json:"productId"`
	LocationID       int64        `json:"locationId"`
	DestinationID    *int64       `json:"destinationLocationId,omitempty"`
	Type             MovementType `json:"movementType"`
	Quantity         int64        `json:"quantity"`
	PreviousQuantity int64        `json:"previousQuantity"`
	NewQuantity      int64        `json:"newQuantity"`
	Reason           string       `json:"reason"`
	Reference        string       `json:"reference,omitempty"`
	UserID           int64        `json:"userId"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// Allocation is the quantity of a product held at one location. The
// allocation list is sparse: an entry exists only while its quantity is
// positive.
type Allocation struct {
	LocationID  int64     `json:"locationId"`
	Quantity    int64     `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ProductStock is the stock view of a product: the aggregate quantity
// plus its per-location allocations. The aggregate always equals the
// sum of the allocations.
type ProductStock struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Quantity  int64        `json:"quantity"`
	Locations []Allocation `json:"locations"`
}

// MovementInput carries a movement request into the engine. The actor
// is passed explicitly rather than resolved from ambient state.
type MovementInput struct {
	ProductID     int64
	LocationID    int64
	DestinationID *int64
	Type          MovementType
	Quantity      int64
	Reason        string
	Reference     string
	ActorID       int64
}

var (
	ErrProductNotFound     = errors.New("stock: product not found")
	ErrLocationNotFound    = errors.New("stock: location not found")
	ErrDestinationNotFound = errors.New("stock: destination location not found")
	ErrDestinationRequired = errors.New("stock: transfer requires a destination location")
	ErrInvalidMovementType = errors.New("stock: invalid movement type")
	ErrInvalidQuantity     = errors.New("stock: quantity must be positive")
	ErrInsufficientStock   = errors.New("stock: insufficient stock at source location")
	ErrSameLocation        = errors.New("stock: source and destination must differ")
	ErrReasonRequired      = errors.New("stock: reason is required")
	ErrActorRequired       = errors.New("stock: actor is required")
)
