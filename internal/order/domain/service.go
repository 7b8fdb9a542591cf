package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*OrderView, error)
	Submit(ctx context.Context, orderID int64) (*Order, error)
	Price(ctx context.Context, req PriceRequest) (*Order, error)
	Counter(ctx context.Context, req CounterRequest) (*Order, error)
	AcceptOffer(ctx context.Context, orderID int64) (*Order, error)
	Finalize(ctx context.Context, req FinalizeRequest) (*Order, error)
	StartProcessing(ctx context.Context, orderID int64) (*Order, error)
	Cancel(ctx context.Context, orderID int64) (*Order, error)
	UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*Order, error)
	UpdateItems(ctx context.Context, req UpdateItemsRequest) ([]*OrderItem, error)
	DeleteItems(ctx context.Context, req DeleteItemsRequest) (int64, error)
	Delete(ctx context.Context, orderID int64) error

	Get(ctx context.Context, orderID int64) (*OrderView, error)
	List(ctx context.Context, req ListRequest) ([]*Order, error)
	ListItems(ctx context.Context, orderID int64) ([]*OrderItem, error)
}

// OrderView is an order with its lines.
type OrderView struct {
	*Order
	Items []*OrderItem `json:"items"`
}

type CreateRequest struct {
	Name                  string        `json:"name"`
	CreatorCanSeePriceGBP bool          `json:"creator_can_see_price_gbp"`
	Lines                 []LineRequest `json:"lines"`
}

type LineRequest struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Quantity    float64         `json:"quantity"`
	BuyPriceGBP decimal.Decimal `json:"buy_price_gbp"`
}

type PriceRequest struct {
	OrderID       int64         `json:"-"`
	PricingModeID string        `json:"pricing_mode_id"`
	ProfitRate    *float64      `json:"profit_rate"`
	Items         []ItemPricing `json:"items"`
}

type ItemPricing struct {
	OrderItemID   int64    `json:"order_item_id,string"`
	ProfitRate    *float64 `json:"profit_rate"`
	PricingModeID *string  `json:"pricing_mode_id"`
}

type CounterRequest struct {
	OrderID int64         `json:"-"`
	Items   []CounterItem `json:"items"`
}

type CounterItem struct {
	OrderItemID     int64            `json:"order_item_id,string"`
	CustomerUnitGBP *decimal.Decimal `json:"customer_unit_gbp"`
	CustomerUnitBDT *float64         `json:"customer_unit_bdt"`
}

type FinalizeRequest struct {
	OrderID int64       `json:"-"`
	Items   []FinalItem `json:"items"`
}

type FinalItem struct {
	OrderItemID  int64            `json:"order_item_id,string"`
	FinalUnitGBP *decimal.Decimal `json:"final_unit_gbp"`
	FinalUnitBDT *float64         `json:"final_unit_bdt"`
}

// UpdateOrderRequest patches order header fields; nil means untouched.
type UpdateOrderRequest struct {
	OrderID        int64   `json:"-"`
	Name           *string `json:"name"`
	CounterEnabled *bool   `json:"counter_enabled"`
}

type DeleteItemsRequest struct {
	OrderID      int64   `json:"-"`
	OrderItemIDs []int64 `json:"-"`
}

type UpdateItemsRequest struct {
	OrderID int64       `json:"-"`
	Items   []ItemPatch `json:"items"`
}

// ItemPatch carries only the fields being changed; nil means untouched.
type ItemPatch struct {
	OrderItemID     int64            `json:"order_item_id,string"`
	ProductID       *string          `json:"product_id"`
	ProductName     *string          `json:"product_name"`
	OrderedQuantity *float64         `json:"ordered_quantity"`
	PricingModeID   *string          `json:"pricing_mode_id"`
	ProfitRate      *float64         `json:"profit_rate"`
	OfferedUnitGBP  *decimal.Decimal `json:"offered_unit_gbp"`
	OfferedUnitBDT  *float64         `json:"offered_unit_bdt"`
	CustomerUnitGBP *decimal.Decimal `json:"customer_unit_gbp"`
	CustomerUnitBDT *float64         `json:"customer_unit_bdt"`
	FinalUnitGBP    *decimal.Decimal `json:"final_unit_gbp"`
	FinalUnitBDT    *float64         `json:"final_unit_bdt"`
}

// Fields names the item columns the patch touches.
func (p ItemPatch) Fields() []string {
	var out []string
	add := func(set bool, name string) {
		if set {
			out = append(out, name)
		}
	}
	add(p.ProductID != nil, FieldProductID)
	add(p.ProductName != nil, FieldProductName)
	add(p.OrderedQuantity != nil, FieldOrderedQuantity)
	add(p.PricingModeID != nil, FieldPricingModeID)
	add(p.ProfitRate != nil, FieldProfitRate)
	add(p.OfferedUnitGBP != nil, FieldOfferedUnitGBP)
	add(p.OfferedUnitBDT != nil, FieldOfferedUnitBDT)
	add(p.CustomerUnitGBP != nil, FieldCustomerUnitGBP)
	add(p.CustomerUnitBDT != nil, FieldCustomerUnitBDT)
	add(p.FinalUnitGBP != nil, FieldFinalUnitGBP)
	add(p.FinalUnitBDT != nil, FieldFinalUnitBDT)
	return out
}

type ListRequest struct {
	Status Status
}
