package domain

import (
	"time"

	"gorm.io/datatypes"
)

type Kind string

const (
	KindOrder    Kind = "order"
	KindShipment Kind = "shipment"
)

// Warning reasons for rows a shipment reconcile could not fully compute.
const (
	ReasonItemNotFound        = "item_not_found"
	ReasonPricingModeNotFound = "pricing_mode_not_found"
)

// Run is the audit record of one reconcile, written after its transaction commits.
type Run struct {
	ID            string         `json:"id" gorm:"primaryKey;type:text"`
	Kind          Kind           `json:"kind" gorm:"type:text;not null;index:idx_reconcile_runs_target"`
	TargetID      int64          `json:"target_id,string" gorm:"not null;index:idx_reconcile_runs_target"`
	Actor         string         `json:"actor" gorm:"type:text;not null"`
	CorrelationID string         `json:"correlation_id" gorm:"type:text"`
	RowsUpdated   int            `json:"rows_updated" gorm:"not null;default:0"`
	Warnings      datatypes.JSON `json:"warnings"`
	StartedAt     time.Time      `json:"started_at" gorm:"not null"`
	FinishedAt    time.Time      `json:"finished_at" gorm:"not null"`
}

func (Run) TableName() string { return "reconcile_runs" }

type Warning struct {
	AllocationID  int64  `json:"allocation_id,string"`
	OrderItemID   int64  `json:"order_item_id,string"`
	PricingModeID string `json:"pricing_mode_id,omitempty"`
	Reason        string `json:"reason"`
}

type ShipmentTotals struct {
	ShippedWeight  float64 `json:"shipped_weight"`
	ProductCostBDT int64   `json:"product_cost_bdt"`
	CargoCostBDT   int64   `json:"cargo_cost_bdt"`
	TotalCostBDT   int64   `json:"total_cost_bdt"`
	RevenueBDT     int64   `json:"revenue_bdt"`
	ProfitBDT      int64   `json:"profit_bdt"`
}

type ShipmentSummary struct {
	RunID       string         `json:"run_id"`
	ShipmentID  int64          `json:"shipment_id,string"`
	RowsUpdated int            `json:"rows_updated"`
	RowsPartial int            `json:"rows_partial"`
	RowsSkipped int            `json:"rows_skipped"`
	Warnings    []Warning      `json:"warnings"`
	Totals      ShipmentTotals `json:"totals"`
}

type OrderTotals struct {
	OrderQty       float64 `json:"total_order_qty"`
	AllocatedQty   float64 `json:"total_allocated_qty"`
	ShippedQty     float64 `json:"total_shipped_qty"`
	RemainingQty   float64 `json:"total_remaining_qty"`
	RevenueBDT     int64   `json:"total_revenue_bdt"`
	ProductCostBDT int64   `json:"total_product_cost_bdt"`
	CargoCostBDT   int64   `json:"total_cargo_cost_bdt"`
	TotalCostBDT   int64   `json:"total_cost_bdt"`
	ProfitBDT      int64   `json:"total_profit_bdt"`
}

type OrderSummary struct {
	RunID          string      `json:"run_id"`
	OrderID        int64       `json:"order_id,string"`
	ItemsUpdated   int         `json:"items_updated"`
	PreviousStatus string      `json:"previous_status"`
	Status         string      `json:"status"`
	Totals         OrderTotals `json:"totals"`
}
