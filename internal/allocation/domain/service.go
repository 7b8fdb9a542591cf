package domain

import (
	"context"

	"gorm.io/gorm"
)

// OverShipEpsilon absorbs float noise only; it must never hide a real over-ship.
const OverShipEpsilon = 1e-9

// OverShipChecker guards sum(shipped_qty) <= ordered_quantity for an order item.
type OverShipChecker interface {
	// Check adds delta to the stored shipped total (minus excludeID) and rejects over-ship.
	Check(ctx context.Context, db *gorm.DB, orderItemID int64, delta float64, excludeID int64) error
	// Verify rejects a precomputed shipped total.
	Verify(orderItemID int64, ordered, total float64) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Allocation, error)
	Update(ctx context.Context, req UpdateRequest) (*Allocation, error)
	Delete(ctx context.Context, id int64) error
	ListForShipment(ctx context.Context, shipmentID int64) ([]*Allocation, error)
	ListForOrder(ctx context.Context, orderID int64) ([]*Allocation, error)
}

type CreateRequest struct {
	ShipmentID        int64    `json:"shipment_id,string"`
	OrderItemID       int64    `json:"order_item_id,string"`
	AllocatedQty      float64  `json:"allocated_qty"`
	ShippedQty        *float64 `json:"shipped_qty"`
	UnitProductWeight float64  `json:"unit_product_weight"`
	UnitPackageWeight float64  `json:"unit_package_weight"`
}

type UpdateRequest struct {
	ID                int64    `json:"-"`
	AllocatedQty      *float64 `json:"allocated_qty"`
	ShippedQty        *float64 `json:"shipped_qty"`
	UnitProductWeight *float64 `json:"unit_product_weight"`
	UnitPackageWeight *float64 `json:"unit_package_weight"`
}
