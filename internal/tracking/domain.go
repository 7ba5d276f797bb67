package tracking

import (
	"errors"
	"time"
)

// Shipment statuses as reported by the carrier, normalised to a small
// local vocabulary. Anything unrecognised is kept verbatim.
const (
	StatusPending   = "pending"
	StatusInTransit = "in_transit"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Shipment links an order to a carrier tracking number.
type Shipment struct {
	ID             int64      `json:"id"`
	OrderID        int64      `json:"order_id"`
	Carrier        string     `json:"carrier"`
	TrackingNumber string     `json:"tracking_number"`
	Status         string     `json:"status"`
	LastEvent      string     `json:"last_event,omitempty"`
	LastCheckedAt  *time.Time `json:"last_checked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TrackingUpdate is one status report from the carrier API.
type TrackingUpdate struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

var (
	ErrShipmentNotFound = errors.New("tracking: shipment not found")
	ErrCarrierRequired  = errors.New("tracking: carrier and tracking number are required")
)
