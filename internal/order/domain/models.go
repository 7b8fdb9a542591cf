package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order totals are written only by reconciliation; Version guards concurrent writers.
type Order struct {
	ID                    int64     `json:"id,string" gorm:"primaryKey"`
	Name                  string    `json:"name" gorm:"type:text;not null"`
	Status                Status    `json:"status" gorm:"type:text;not null;index"`
	CreatorID             string    `json:"creator_id" gorm:"type:text;not null;index"`
	CreatorCanSeePriceGBP bool      `json:"creator_can_see_price_gbp" gorm:"not null;default:false"`
	CounterEnabled        bool      `json:"counter_enabled" gorm:"not null;default:true"`
	Version               int64     `json:"version" gorm:"not null;default:1"`
	TotalOrderQty         float64   `json:"total_order_qty" gorm:"not null;default:0"`
	TotalAllocatedQty     float64   `json:"total_allocated_qty" gorm:"not null;default:0"`
	TotalShippedQty       float64   `json:"total_shipped_qty" gorm:"not null;default:0"`
	TotalRemainingQty     float64   `json:"total_remaining_qty" gorm:"not null;default:0"`
	TotalRevenueBDT       int64     `json:"total_revenue_bdt" gorm:"column:total_revenue_bdt;not null;default:0"`
	TotalProductCostBDT   int64     `json:"total_product_cost_bdt" gorm:"column:total_product_cost_bdt;not null;default:0"`
	TotalCargoCostBDT     int64     `json:"total_cargo_cost_bdt" gorm:"column:total_cargo_cost_bdt;not null;default:0"`
	TotalCostBDT          int64     `json:"total_cost_bdt" gorm:"column:total_cost_bdt;not null;default:0"`
	TotalProfitBDT        int64     `json:"total_profit_bdt" gorm:"column:total_profit_bdt;not null;default:0"`
	CreatedAt             time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt             time.Time `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID              int64               `json:"id,string" gorm:"primaryKey"`
	OrderID         int64               `json:"order_id,string" gorm:"not null;index"`
	LineNo          int                 `json:"line_no" gorm:"not null"`
	ProductID       string              `json:"product_id" gorm:"type:text;not null"`
	ProductName     string              `json:"product_name" gorm:"type:text"`
	OrderedQuantity float64             `json:"ordered_quantity" gorm:"not null"`
	PricingModeID   *string             `json:"pricing_mode_id,omitempty" gorm:"type:text"`
	ProfitRate      *float64            `json:"profit_rate,omitempty"`
	BuyPriceGBP     decimal.Decimal     `json:"buy_price_gbp" gorm:"column:buy_price_gbp;type:numeric(14,2);not null"`
	OfferedUnitGBP  decimal.NullDecimal `json:"offered_unit_gbp" gorm:"column:offered_unit_gbp;type:numeric(14,2)"`
	OfferedUnitBDT  *int64              `json:"offered_unit_bdt,omitempty" gorm:"column:offered_unit_bdt"`
	CustomerUnitGBP decimal.NullDecimal `json:"customer_unit_gbp" gorm:"column:customer_unit_gbp;type:numeric(14,2)"`
	CustomerUnitBDT *int64              `json:"customer_unit_bdt,omitempty" gorm:"column:customer_unit_bdt"`
	FinalUnitGBP    decimal.NullDecimal `json:"final_unit_gbp" gorm:"column:final_unit_gbp;type:numeric(14,2)"`
	FinalUnitBDT    *int64              `json:"final_unit_bdt,omitempty" gorm:"column:final_unit_bdt"`

	AllocatedQtyTotal float64    `json:"allocated_qty_total" gorm:"not null;default:0"`
	ShippedQtyTotal   float64    `json:"shipped_qty_total" gorm:"not null;default:0"`
	RemainingQty      float64    `json:"remaining_qty" gorm:"not null;default:0"`
	ItemStatus        ItemStatus `json:"item_status" gorm:"type:text;not null;default:'not_started'"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// HideGBPPrices blanks the GBP price fields a customer is not allowed to see.
func (i *OrderItem) HideGBPPrices() {
	i.BuyPriceGBP = decimal.Zero
	i.OfferedUnitGBP = decimal.NullDecimal{}
	i.FinalUnitGBP = decimal.NullDecimal{}
}
