package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	allocationdomain "github.com/smallbiznis/shipledger/internal/allocation/domain"
	allocationrepo "github.com/smallbiznis/shipledger/internal/allocation/repository"
	allocationsvc "github.com/smallbiznis/shipledger/internal/allocation/service"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	orderrepo "github.com/smallbiznis/shipledger/internal/order/repository"
	pricingdomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	pricingrepo "github.com/smallbiznis/shipledger/internal/pricingmode/repository"
	pricingsvc "github.com/smallbiznis/shipledger/internal/pricingmode/service"
	"github.com/smallbiznis/shipledger/internal/reconcile/domain"
	"github.com/smallbiznis/shipledger/internal/reconcile/repository"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	shipmentrepo "github.com/smallbiznis/shipledger/internal/shipment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	admin context.Context
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&pricingdomain.PricingMode{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&shipmentdomain.Shipment{},
		&allocationdomain.Allocation{},
		&domain.Run{},
	))

	log := zap.NewNop()
	clk := clock.NewFakeClock(fixedNow)
	modes := pricingsvc.NewResolver(pricingsvc.New(pricingsvc.Params{
		DB:    db,
		Log:   log,
		Clock: clk,
		Repo:  pricingrepo.Provide(),
	}))
	orders := orderrepo.Provide()
	allocations := allocationrepo.Provide()

	return &fixture{
		db: db,
		svc: New(Params{
			DB:          db,
			Log:         log,
			Clock:       clk,
			Repo:        repository.Provide(),
			Orders:      orders,
			Shipments:   shipmentrepo.Provide(),
			Allocations: allocations,
			Modes:       modes,
			Checker:     allocationsvc.NewOverShipChecker(orders, allocations),
		}),
		admin: actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "admin-1", Role: actorcontext.RoleAdmin}),
	}
}

func (f *fixture) mode(t *testing.T, id string, active bool) {
	t.Helper()
	require.NoError(t, f.db.Create(&pricingdomain.PricingMode{
		ID:                id,
		Name:              id,
		Version:           "v1",
		Currency:          pricingdomain.CurrencyGBP,
		ProfitBase:        pricingdomain.ProfitBaseProductOnly,
		CargoCharge:       pricingdomain.CargoChargePassThrough,
		ConversionRule:    pricingdomain.ConversionSeparateRates,
		RateSourceRevenue: pricingdomain.RateSourceAvg,
		Active:            true,
		CreatedAt:         fixedNow,
		UpdatedAt:         fixedNow,
	}).Error)
	if !active {
		require.NoError(t, f.db.Model(&pricingdomain.PricingMode{}).Where("id = ?", id).Update("active", false).Error)
	}
}

func (f *fixture) order(t *testing.T, id int64, status orderdomain.Status) *orderdomain.Order {
	t.Helper()
	o := &orderdomain.Order{ID: id, Name: "order", Status: status, CreatorID: "alice", Version: 1, CreatedAt: fixedNow, UpdatedAt: fixedNow}
	require.NoError(t, f.db.Create(o).Error)
	return o
}

func (f *fixture) item(t *testing.T, id, orderID int64, ordered float64, modeID string) *orderdomain.OrderItem {
	t.Helper()
	rate := 0.20
	it := &orderdomain.OrderItem{
		ID:              id,
		OrderID:         orderID,
		LineNo:          1,
		ProductID:       "tea-01",
		OrderedQuantity: ordered,
		ProfitRate:      &rate,
		BuyPriceGBP:     decimal.RequireFromString("2.00"),
		ItemStatus:      orderdomain.ItemNotStarted,
		CreatedAt:       fixedNow,
		UpdatedAt:       fixedNow,
	}
	if modeID != "" {
		it.PricingModeID = &modeID
	}
	require.NoError(t, f.db.Create(it).Error)
	return it
}

func (f *fixture) shipment(t *testing.T, id int64) *shipmentdomain.Shipment {
	t.Helper()
	s := &shipmentdomain.Shipment{
		ID:             id,
		Name:           "air",
		Status:         shipmentdomain.StatusReceived,
		RateAvg:        140,
		RateProduct:    138,
		RateCargo:      142,
		CargoCostPerKg: decimal.RequireFromString("1.50"),
		Version:        1,
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
	require.NoError(t, f.db.Create(s).Error)
	return s
}

func (f *fixture) allocation(t *testing.T, id, shipmentID, orderID, itemID int64, shipped float64) {
	t.Helper()
	a := &allocationdomain.Allocation{
		ID:                id,
		ShipmentID:        shipmentID,
		OrderID:           orderID,
		OrderItemID:       itemID,
		AllocatedQty:      shipped,
		ShippedQty:        shipped,
		UnitProductWeight: 0.2,
		UnitPackageWeight: 0.05,
		CreatedAt:         fixedNow,
		UpdatedAt:         fixedNow,
	}
	a.DeriveWeights()
	require.NoError(t, f.db.Create(a).Error)
}

func (f *fixture) reload(t *testing.T, dest any, id int64) {
	t.Helper()
	require.NoError(t, f.db.First(dest, "id = ?", id).Error)
}

func TestReconcileShipmentComputesRows(t *testing.T) {
	f := setup(t)
	f.mode(t, "gbp-product-only", true)
	f.order(t, 1, orderdomain.StatusProcessing)
	f.item(t, 11, 1, 100, "gbp-product-only")
	f.shipment(t, 100)
	f.allocation(t, 1000, 100, 1, 11, 100)

	summary, err := f.svc.ReconcileShipment(f.admin, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.RowsUpdated)
	assert.Empty(t, summary.Warnings)
	assert.Equal(t, domain.ShipmentTotals{
		ShippedWeight:  25,
		ProductCostBDT: 27600,
		CargoCostBDT:   5325,
		TotalCostBDT:   32925,
		RevenueBDT:     33600,
		ProfitBDT:      6000,
	}, summary.Totals)

	var a allocationdomain.Allocation
	f.reload(t, &a, 1000)
	assert.Equal(t, int64(27600), allocationdomain.Int64Value(a.ProductCostBDT))
	assert.Equal(t, int64(5325), allocationdomain.Int64Value(a.CargoCostBDT))
	assert.Equal(t, int64(33600), allocationdomain.Int64Value(a.RevenueBDT))
	assert.Equal(t, int64(6000), allocationdomain.Int64Value(a.ProfitBDT))
	require.True(t, a.CargoCostGBP.Valid)
	assert.True(t, a.CargoCostGBP.Decimal.Equal(decimal.RequireFromString("37.50")))
	require.NotNil(t, a.PricingModeID)
	assert.Equal(t, "gbp-product-only", *a.PricingModeID)

	var s shipmentdomain.Shipment
	f.reload(t, &s, 100)
	assert.Equal(t, int64(2), s.Version)

	runs, err := f.svc.ListRuns(f.admin, domain.ListRunsRequest{Kind: domain.KindShipment, TargetID: 100})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, "user:admin-1", runs[0].Actor)
	assert.Equal(t, 1, runs[0].RowsUpdated)
}

func TestReconcileShipmentToleratesMissingReferences(t *testing.T) {
	f := setup(t)
	f.order(t, 1, orderdomain.StatusProcessing)
	f.item(t, 11, 1, 100, "ghost")
	f.shipment(t, 100)
	f.allocation(t, 1000, 100, 1, 11, 10)
	f.allocation(t, 1001, 100, 1, 999, 10)

	summary, err := f.svc.ReconcileShipment(f.admin, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.RowsUpdated)
	assert.Equal(t, 1, summary.RowsPartial)
	assert.Equal(t, 1, summary.RowsSkipped)

	reasons := map[int64]string{}
	for _, w := range summary.Warnings {
		reasons[w.AllocationID] = w.Reason
	}
	assert.Equal(t, map[int64]string{
		1000: domain.ReasonPricingModeNotFound,
		1001: domain.ReasonItemNotFound,
	}, reasons)

	var partial allocationdomain.Allocation
	f.reload(t, &partial, 1000)
	require.True(t, partial.BuyPriceGBP.Valid)
	assert.True(t, partial.BuyPriceGBP.Decimal.Equal(decimal.RequireFromString("2.00")))
	assert.Equal(t, "tea-01", partial.ProductID)
	assert.Nil(t, partial.RevenueBDT)

	var skipped allocationdomain.Allocation
	f.reload(t, &skipped, 1001)
	assert.False(t, skipped.BuyPriceGBP.Valid)
	assert.True(t, skipped.UpdatedAt.Equal(fixedNow))

	runs, err := f.svc.ListRuns(f.admin, domain.ListRunsRequest{Kind: domain.KindShipment, TargetID: 100})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	var recorded []domain.Warning
	require.NoError(t, json.Unmarshal(runs[0].Warnings, &recorded))
	assert.Len(t, recorded, 2)
}

func TestReconcileShipmentUsesDeactivatedMode(t *testing.T) {
	f := setup(t)
	f.mode(t, "retired", false)
	f.order(t, 1, orderdomain.StatusProcessing)
	f.item(t, 11, 1, 100, "retired")
	f.shipment(t, 100)
	f.allocation(t, 1000, 100, 1, 11, 100)

	summary, err := f.svc.ReconcileShipment(f.admin, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RowsUpdated)
	assert.Empty(t, summary.Warnings)
}

func TestReconcileShipmentWithoutAllocationsWritesNothing(t *testing.T) {
	f := setup(t)
	f.shipment(t, 100)

	summary, err := f.svc.ReconcileShipment(f.admin, 100)
	require.NoError(t, err)
	assert.Zero(t, summary.RowsUpdated)
	assert.Equal(t, domain.ShipmentTotals{}, summary.Totals)

	var s shipmentdomain.Shipment
	f.reload(t, &s, 100)
	assert.Equal(t, int64(1), s.Version)
}

func TestReconcileRejectsBadInput(t *testing.T) {
	f := setup(t)

	_, err := f.svc.ReconcileShipment(f.admin, 404)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.ReconcileOrder(f.admin, 404)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.ReconcileOrder(f.admin, 0)
	assert.ErrorIs(t, err, errs.ErrValidation)

	customer := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "alice", Role: actorcontext.RoleCustomer})
	_, err = f.svc.ReconcileOrder(customer, 1)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.ListRuns(f.admin, domain.ListRunsRequest{Kind: "invoice", TargetID: 1})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestReconcileOrderDeliversAndIsIdempotent(t *testing.T) {
	f := setup(t)
	f.mode(t, "gbp-product-only", true)
	f.order(t, 1, orderdomain.StatusProcessing)
	f.item(t, 11, 1, 100, "gbp-product-only")
	f.shipment(t, 100)
	f.allocation(t, 1000, 100, 1, 11, 60)
	f.allocation(t, 1001, 100, 1, 11, 40)

	_, err := f.svc.ReconcileShipment(f.admin, 100)
	require.NoError(t, err)

	summary, err := f.svc.ReconcileOrder(f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ItemsUpdated)
	assert.Equal(t, "processing", summary.PreviousStatus)
	assert.Equal(t, "delivered", summary.Status)
	assert.Equal(t, 100.0, summary.Totals.ShippedQty)
	assert.Equal(t, 0.0, summary.Totals.RemainingQty)
	assert.Equal(t, int64(33600), summary.Totals.RevenueBDT)

	var o orderdomain.Order
	f.reload(t, &o, 1)
	assert.Equal(t, orderdomain.StatusDelivered, o.Status)
	assert.Equal(t, int64(2), o.Version)
	assert.Equal(t, int64(6000), o.TotalProfitBDT)

	var it orderdomain.OrderItem
	f.reload(t, &it, 11)
	assert.Equal(t, orderdomain.ItemDelivered, it.ItemStatus)
	assert.Equal(t, 100.0, it.ShippedQtyTotal)

	again, err := f.svc.ReconcileOrder(f.admin, 1)
	require.NoError(t, err)
	assert.Zero(t, again.ItemsUpdated)
	assert.Equal(t, summary.Totals, again.Totals)
	assert.Equal(t, "delivered", again.Status)

	f.reload(t, &o, 1)
	assert.Equal(t, int64(2), o.Version)
}

func TestReconcileOrderAutoAdvance(t *testing.T) {
	cases := []struct {
		name    string
		from    orderdomain.Status
		shipped float64
		want    orderdomain.Status
		item    orderdomain.ItemStatus
	}{
		{"processing partial", orderdomain.StatusProcessing, 40, orderdomain.StatusPartiallyDelivered, orderdomain.ItemPartial},
		{"partial back to processing", orderdomain.StatusPartiallyDelivered, 0, orderdomain.StatusProcessing, orderdomain.ItemNotStarted},
		{"finalized untouched", orderdomain.StatusFinalized, 100, orderdomain.StatusFinalized, orderdomain.ItemDelivered},
		{"delivered never demoted", orderdomain.StatusDelivered, 40, orderdomain.StatusDelivered, orderdomain.ItemPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			f.order(t, 1, tc.from)
			f.item(t, 11, 1, 100, "")
			f.shipment(t, 100)
			f.allocation(t, 1000, 100, 1, 11, tc.shipped)

			summary, err := f.svc.ReconcileOrder(f.admin, 1)
			require.NoError(t, err)
			assert.Equal(t, string(tc.want), summary.Status)

			var it orderdomain.OrderItem
			f.reload(t, &it, 11)
			assert.Equal(t, tc.item, it.ItemStatus)
			assert.Equal(t, 100-tc.shipped, it.RemainingQty)
		})
	}
}

func TestReconcileOrderOverShipAbortsWithoutWrites(t *testing.T) {
	f := setup(t)
	f.order(t, 1, orderdomain.StatusProcessing)
	f.item(t, 11, 1, 50, "")
	f.item(t, 12, 1, 100, "")
	f.shipment(t, 100)
	f.allocation(t, 1000, 100, 1, 11, 10)
	f.allocation(t, 1001, 100, 1, 12, 60)
	f.allocation(t, 1002, 100, 1, 12, 50)

	_, err := f.svc.ReconcileOrder(f.admin, 1)
	require.ErrorIs(t, err, errs.ErrInvariantViolation)
	assert.Contains(t, err.Error(), "item 12")

	var first orderdomain.OrderItem
	f.reload(t, &first, 11)
	assert.Equal(t, 0.0, first.ShippedQtyTotal)
	assert.Equal(t, orderdomain.ItemNotStarted, first.ItemStatus)

	var o orderdomain.Order
	f.reload(t, &o, 1)
	assert.Equal(t, int64(1), o.Version)
	assert.Equal(t, orderdomain.StatusProcessing, o.Status)

	runs, err := f.svc.ListRuns(f.admin, domain.ListRunsRequest{Kind: domain.KindOrder, TargetID: 1})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReconcileOrderIgnoresForeignAllocations(t *testing.T) {
	f := setup(t)
	f.order(t, 1, orderdomain.StatusProcessing)
	f.order(t, 2, orderdomain.StatusProcessing)
	f.item(t, 11, 1, 100, "")
	f.item(t, 21, 2, 5, "")
	f.shipment(t, 100)
	f.allocation(t, 1000, 100, 1, 11, 30)
	// tagged with order 1 but pointing at order 2's line
	f.allocation(t, 1001, 100, 1, 21, 70)

	summary, err := f.svc.ReconcileOrder(f.admin, 1)
	require.NoError(t, err)
	assert.Equal(t, 30.0, summary.Totals.ShippedQty)
	assert.Equal(t, 70.0, summary.Totals.RemainingQty)
	assert.Equal(t, "partially_delivered", summary.Status)
}

func TestReconcileOrderWithoutItems(t *testing.T) {
	f := setup(t)
	f.order(t, 1, orderdomain.StatusFinalized)

	summary, err := f.svc.ReconcileOrder(f.admin, 1)
	require.NoError(t, err)
	assert.Zero(t, summary.ItemsUpdated)
	assert.Equal(t, domain.OrderTotals{}, summary.Totals)
	assert.Equal(t, "finalized", summary.Status)

	f.order(t, 2, orderdomain.StatusProcessing)
	summary, err = f.svc.ReconcileOrder(f.admin, 2)
	require.NoError(t, err)
	assert.Equal(t, "processing", summary.PreviousStatus)
	assert.Equal(t, "processing", summary.Status)

	var stored orderdomain.Order
	require.NoError(t, f.db.First(&stored, 2).Error)
	assert.Equal(t, orderdomain.StatusProcessing, stored.Status)
}

func TestListRunsClampsLimit(t *testing.T) {
	f := setup(t)
	runs := make([]*domain.Run, 0, 120)
	for i := 0; i < 120; i++ {
		at := fixedNow.Add(time.Duration(i) * time.Second)
		runs = append(runs, &domain.Run{
			ID: fmt.Sprintf("run-%03d", i), Kind: domain.KindOrder, TargetID: 7,
			Actor: "user:admin-1", StartedAt: at, FinishedAt: at,
		})
	}
	require.NoError(t, f.db.CreateInBatches(runs, 50).Error)

	got, err := f.svc.ListRuns(f.admin, domain.ListRunsRequest{Kind: domain.KindOrder, TargetID: 7, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, got, 100)

	got, err = f.svc.ListRuns(f.admin, domain.ListRunsRequest{Kind: domain.KindOrder, TargetID: 7})
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
