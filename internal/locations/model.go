package locations

import (
	"time"
)

// Location types form a containment hierarchy via ParentID.
const (
	TypeWarehouse = "warehouse"
	TypeZone      = "zone"
	TypeShelf     = "shelf"
	TypeBin       = "bin"
)

// Location represents a physical storage place. Code is unique across
// the organization.
type Location struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Capacity  int64     `json:"capacity"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidType reports whether t is one of the known location types.
func ValidType(t string) bool {
	switch t {
	case TypeWarehouse, TypeZone, TypeShelf, TypeBin:
		return true
	}
	return false
}
