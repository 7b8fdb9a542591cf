package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Allocation is a shipment's claim on quantity of one order line. The money
// fields stay null until the shipment is reconciled.
type Allocation struct {
	ID            int64   `json:"id,string" gorm:"primaryKey"`
	ShipmentID    int64   `json:"shipment_id,string" gorm:"not null;index"`
	OrderID       int64   `json:"order_id,string" gorm:"not null;index"`
	OrderItemID   int64   `json:"order_item_id,string" gorm:"not null;index"`
	ProductID     string  `json:"product_id" gorm:"type:text"`
	PricingModeID *string `json:"pricing_mode_id,omitempty" gorm:"type:text"`

	AllocatedQty      float64 `json:"allocated_qty" gorm:"not null;default:0"`
	ShippedQty        float64 `json:"shipped_qty" gorm:"not null;default:0"`
	UnitProductWeight float64 `json:"unit_product_weight" gorm:"not null;default:0"`
	UnitPackageWeight float64 `json:"unit_package_weight" gorm:"not null;default:0"`
	UnitTotalWeight   float64 `json:"unit_total_weight" gorm:"not null;default:0"`
	AllocatedWeight   float64 `json:"allocated_weight" gorm:"not null;default:0"`
	ShippedWeight     float64 `json:"shipped_weight" gorm:"not null;default:0"`

	BuyPriceGBP    decimal.NullDecimal `json:"buy_price_gbp" gorm:"column:buy_price_gbp;type:numeric(14,2)"`
	ProductCostGBP decimal.NullDecimal `json:"product_cost_gbp" gorm:"column:product_cost_gbp;type:numeric(14,2)"`
	ProductCostBDT *int64              `json:"product_cost_bdt" gorm:"column:product_cost_bdt"`
	CargoCostGBP   decimal.NullDecimal `json:"cargo_cost_gbp" gorm:"column:cargo_cost_gbp;type:numeric(14,2)"`
	CargoCostBDT   *int64              `json:"cargo_cost_bdt" gorm:"column:cargo_cost_bdt"`
	RevenueBDT     *int64              `json:"revenue_bdt" gorm:"column:revenue_bdt"`
	TotalCostBDT   *int64              `json:"total_cost_bdt" gorm:"column:total_cost_bdt"`
	ProfitBDT      *int64              `json:"profit_bdt" gorm:"column:profit_bdt"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Allocation) TableName() string { return "allocations" }

// DeriveWeights recomputes the weight columns from quantities and unit weights.
func (a *Allocation) DeriveWeights() {
	unit := decimal.NewFromFloat(a.UnitProductWeight).Add(decimal.NewFromFloat(a.UnitPackageWeight))
	a.UnitTotalWeight = unit.InexactFloat64()
	a.AllocatedWeight = unit.Mul(decimal.NewFromFloat(a.AllocatedQty)).InexactFloat64()
	a.ShippedWeight = unit.Mul(decimal.NewFromFloat(a.ShippedQty)).InexactFloat64()
}

func Int64Value(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
