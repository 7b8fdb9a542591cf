package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/config"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/order/domain"
	"github.com/smallbiznis/shipledger/internal/order/repository"
	pricingdomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	pricingrepo "github.com/smallbiznis/shipledger/internal/pricingmode/repository"
	pricingservice "github.com/smallbiznis/shipledger/internal/pricingmode/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allocationRow stands in for the allocation table that order deletion clears.
type allocationRow struct {
	ID          int64 `gorm:"primaryKey"`
	OrderID     int64
	OrderItemID int64
}

func (allocationRow) TableName() string { return "allocations" }

type fixture struct {
	db      *gorm.DB
	svc     domain.Service
	repo    domain.Repository
	modes   pricingdomain.Service
	admin   context.Context
	alice   context.Context
	bob     context.Context
	gbpMode string
	bdtMode string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Order{}, &domain.OrderItem{}, &pricingdomain.PricingMode{}, &allocationRow{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	modes := pricingservice.New(pricingservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  pricingrepo.Provide(),
	})
	repo := repository.Provide()
	policy := config.DefaultPolicy()
	policy.Pricing.DefaultProfitRate = 0.25

	f := &fixture{
		db:   db,
		repo: repo,
		svc: New(Params{
			DB:       db,
			Log:      zap.NewNop(),
			GenID:    node,
			Clock:    clk,
			Repo:     repo,
			Resolver: modes,
			Policy:   config.NewStaticPolicyHolder(policy),
		}),
		modes: modes,
		admin: actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "admin-1", Role: actorcontext.RoleAdmin}),
		alice: actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "alice", Role: actorcontext.RoleCustomer}),
		bob:   actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "bob", Role: actorcontext.RoleCustomer}),
	}

	gbp, err := modes.Create(f.admin, pricingdomain.CreateRequest{
		Name: "GBP Standard", Currency: "GBP", ProfitBase: "PRODUCT_ONLY",
		CargoCharge: "PASS_THROUGH", ConversionRule: "SEPARATE_RATES",
	})
	require.NoError(t, err)
	bdt, err := modes.Create(f.admin, pricingdomain.CreateRequest{
		Name: "BDT Landed", Currency: "BDT", ProfitBase: "PRODUCT_PLUS_CARGO",
		CargoCharge: "INCLUDED_IN_PRICE", ConversionRule: "AVG_RATE",
	})
	require.NoError(t, err)
	f.gbpMode, f.bdtMode = gbp.ID, bdt.ID
	return f
}

func (f *fixture) createOrder(t *testing.T, ctx context.Context) *domain.OrderView {
	t.Helper()
	view, err := f.svc.Create(ctx, domain.CreateRequest{
		Name: "spring restock",
		Lines: []domain.LineRequest{
			{ProductID: "tea-01", Name: "Tea", Quantity: 60, BuyPriceGBP: decimal.RequireFromString("2.004")},
			{ProductID: "jam-02", Name: "Jam", Quantity: 10, BuyPriceGBP: decimal.RequireFromString("3.50")},
			{ProductID: "tea-01", Quantity: 40, BuyPriceGBP: decimal.RequireFromString("2.00")},
			{ProductID: "void", Quantity: 0},
		},
	})
	require.NoError(t, err)
	return view
}

func TestCreateDeduplicatesLines(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)

	require.Len(t, view.Items, 2)
	assert.Equal(t, domain.StatusDraft, view.Status)
	assert.Equal(t, "alice", view.CreatorID)
	assert.Equal(t, 110.0, view.TotalOrderQty)
	assert.Equal(t, 110.0, view.TotalRemainingQty)

	tea := view.Items[0]
	assert.Equal(t, "tea-01", tea.ProductID)
	assert.Equal(t, 100.0, tea.OrderedQuantity)
	assert.Equal(t, "2", tea.BuyPriceGBP.String())
	assert.Equal(t, domain.ItemNotStarted, tea.ItemStatus)
}

func TestCreateRejectsEmptyOrder(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(f.alice, domain.CreateRequest{Lines: []domain.LineRequest{{ProductID: "x", Quantity: -1}}})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Create(context.Background(), domain.CreateRequest{})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestNegotiationFlow(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	id := view.ID
	tea, jam := view.Items[0], view.Items[1]

	_, err := f.svc.Submit(f.alice, id)
	require.NoError(t, err)

	custom := 0.10
	order, err := f.svc.Price(f.admin, domain.PriceRequest{
		OrderID:       id,
		PricingModeID: f.gbpMode,
		Items:         []domain.ItemPricing{{OrderItemID: jam.ID, ProfitRate: &custom}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPriced, order.Status)

	items, err := f.repo.ListItems(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, items[0].ProfitRate)
	assert.Equal(t, 0.25, *items[0].ProfitRate)
	assert.Equal(t, "2.5", items[0].OfferedUnitGBP.Decimal.String())
	assert.Equal(t, 0.10, *items[1].ProfitRate)
	assert.Equal(t, "3.85", items[1].OfferedUnitGBP.Decimal.String())
	assert.Equal(t, f.gbpMode, *items[1].PricingModeID)

	counterGBP := decimal.RequireFromString("2.333")
	order, err = f.svc.Counter(f.alice, domain.CounterRequest{
		OrderID: id,
		Items:   []domain.CounterItem{{OrderItemID: tea.ID, CustomerUnitGBP: &counterGBP}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, order.Status)

	_, err = f.svc.AcceptOffer(f.alice, id)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	final := decimal.RequireFromString("2.40")
	order, err = f.svc.Finalize(f.admin, domain.FinalizeRequest{
		OrderID: id,
		Items:   []domain.FinalItem{{OrderItemID: tea.ID, FinalUnitGBP: &final}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinalized, order.Status)

	order, err = f.svc.StartProcessing(f.admin, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, order.Status)

	items, err = f.repo.ListItems(context.Background(), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, "2.33", items[0].CustomerUnitGBP.Decimal.String())
	assert.Equal(t, "2.4", items[0].FinalUnitGBP.Decimal.String())

	stored, err := f.repo.FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stored.Version)
}

func TestPriceKeepsExistingProfitRate(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	_, err := f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)

	rate := 0.5
	_, err = f.svc.UpdateItems(f.admin, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: view.Items[0].ID, ProfitRate: &rate}},
	})
	require.NoError(t, err)

	override := 0.0
	_, err = f.svc.Price(f.admin, domain.PriceRequest{
		OrderID:       view.ID,
		PricingModeID: f.gbpMode,
		ProfitRate:    &override,
	})
	require.NoError(t, err)

	items, err := f.repo.ListItems(context.Background(), f.db, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, *items[0].ProfitRate)
	assert.Equal(t, "3", items[0].OfferedUnitGBP.Decimal.String())
	assert.Equal(t, 0.0, *items[1].ProfitRate)
}

func TestPriceRejectsBadModesWithoutWrites(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	_, err := f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)

	_, err = f.svc.Price(f.admin, domain.PriceRequest{OrderID: view.ID})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Price(f.admin, domain.PriceRequest{OrderID: view.ID, PricingModeID: "missing"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.modes.Deactivate(f.admin, f.bdtMode)
	require.NoError(t, err)
	_, err = f.svc.Price(f.admin, domain.PriceRequest{OrderID: view.ID, PricingModeID: f.bdtMode})
	assert.ErrorIs(t, err, errs.ErrInactiveReference)

	bad := f.bdtMode
	_, err = f.svc.Price(f.admin, domain.PriceRequest{
		OrderID:       view.ID,
		PricingModeID: f.gbpMode,
		Items:         []domain.ItemPricing{{OrderItemID: view.Items[1].ID, PricingModeID: &bad}},
	})
	assert.ErrorIs(t, err, errs.ErrInactiveReference)

	_, err = f.svc.Price(f.alice, domain.PriceRequest{OrderID: view.ID, PricingModeID: f.gbpMode})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	items, err := f.repo.ListItems(context.Background(), f.db, view.ID)
	require.NoError(t, err)
	for _, item := range items {
		assert.Nil(t, item.PricingModeID)
		assert.False(t, item.OfferedUnitGBP.Valid)
	}
	stored, err := f.repo.FindByID(context.Background(), f.db, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
}

func TestCustomerOwnership(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)

	_, err := f.svc.Submit(f.bob, view.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Get(f.bob, view.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	list, err := f.svc.List(f.bob, domain.ListRequest{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.List(f.admin, domain.ListRequest{Status: domain.StatusDraft})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.Get(f.alice, 12345)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestGetHidesGBPPricesFromCustomers(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)

	got, err := f.svc.Get(f.alice, view.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].BuyPriceGBP.IsZero())

	got, err = f.svc.Get(f.admin, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Items[0].BuyPriceGBP.String())
}

func TestUpdateItemsFollowsFieldGuard(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	tea := view.Items[0]

	qty := 80.0
	items, err := f.svc.UpdateItems(f.alice, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: tea.ID, OrderedQuantity: &qty}},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, items[0].OrderedQuantity)

	zero := 0.0
	_, err = f.svc.UpdateItems(f.alice, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: tea.ID, OrderedQuantity: &zero}},
	})
	assert.ErrorIs(t, err, errs.ErrValidation)

	price := decimal.RequireFromString("1.99")
	_, err = f.svc.UpdateItems(f.alice, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: tea.ID, CustomerUnitGBP: &price}},
	})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)
	_, err = f.svc.Price(f.admin, domain.PriceRequest{OrderID: view.ID, PricingModeID: f.gbpMode})
	require.NoError(t, err)
	_, err = f.svc.Finalize(f.admin, domain.FinalizeRequest{OrderID: view.ID})
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(f.admin, view.ID)
	require.NoError(t, err)

	_, err = f.svc.UpdateItems(f.admin, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: tea.ID, FinalUnitGBP: &price}},
	})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.UpdateItems(f.admin, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: 999, PricingModeID: &f.gbpMode}},
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

// startProcessing walks an order from draft to processing.
func (f *fixture) startProcessing(t *testing.T, orderID int64) {
	t.Helper()
	_, err := f.svc.Submit(f.alice, orderID)
	require.NoError(t, err)
	_, err = f.svc.Price(f.admin, domain.PriceRequest{OrderID: orderID, PricingModeID: f.gbpMode})
	require.NoError(t, err)
	_, err = f.svc.Finalize(f.admin, domain.FinalizeRequest{OrderID: orderID})
	require.NoError(t, err)
	_, err = f.svc.StartProcessing(f.admin, orderID)
	require.NoError(t, err)
}

func TestItemsAreReadOnlyOnceShipping(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	tea := view.Items[0]
	f.startProcessing(t, view.ID)

	name := "Assam"
	patches := []domain.ItemPatch{
		{OrderItemID: tea.ID, PricingModeID: &f.bdtMode},
		{OrderItemID: tea.ID, ProductID: &name},
		{OrderItemID: tea.ID, ProductName: &name},
	}
	for _, patch := range patches {
		_, err := f.svc.UpdateItems(f.admin, domain.UpdateItemsRequest{OrderID: view.ID, Items: []domain.ItemPatch{patch}})
		assert.ErrorIs(t, err, errs.ErrForbidden, "%v", patch.Fields())
	}

	require.NoError(t, f.db.Model(&domain.Order{}).Where("id = ?", view.ID).
		Update("status", domain.StatusPartiallyDelivered).Error)
	_, err := f.svc.UpdateItems(f.admin, domain.UpdateItemsRequest{OrderID: view.ID, Items: patches[:1]})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	stored, err := f.repo.FindItemByID(context.Background(), f.db, tea.ID)
	require.NoError(t, err)
	assert.Equal(t, f.gbpMode, *stored.PricingModeID)
	assert.Equal(t, "tea-01", stored.ProductID)
	assert.Equal(t, "Tea", stored.ProductName)
}

func TestCustomerDraftEditsAreQuantityOnly(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	tea := view.Items[0]

	other := "jam-02"
	_, err := f.svc.UpdateItems(f.alice, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: tea.ID, ProductID: &other}},
	})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	rename := "Green tea"
	_, err = f.svc.UpdateItems(f.alice, domain.UpdateItemsRequest{
		OrderID: view.ID,
		Items:   []domain.ItemPatch{{OrderItemID: tea.ID, ProductName: &rename}},
	})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	stored, err := f.repo.FindItemByID(context.Background(), f.db, tea.ID)
	require.NoError(t, err)
	assert.Equal(t, "tea-01", stored.ProductID)
	assert.Equal(t, "Tea", stored.ProductName)
}

func TestUpdateOrderHeader(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)

	name := "  summer restock "
	order, err := f.svc.UpdateOrder(f.alice, domain.UpdateOrderRequest{OrderID: view.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "summer restock", order.Name)
	assert.Equal(t, view.Version+1, order.Version)

	off := false
	_, err = f.svc.UpdateOrder(f.alice, domain.UpdateOrderRequest{OrderID: view.ID, CounterEnabled: &off})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.UpdateOrder(f.bob, domain.UpdateOrderRequest{OrderID: view.ID, Name: &name})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.UpdateOrder(f.admin, domain.UpdateOrderRequest{OrderID: view.ID})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)
	_, err = f.svc.UpdateOrder(f.alice, domain.UpdateOrderRequest{OrderID: view.ID, Name: &name})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	order, err = f.svc.UpdateOrder(f.admin, domain.UpdateOrderRequest{OrderID: view.ID, CounterEnabled: &off})
	require.NoError(t, err)
	assert.False(t, order.CounterEnabled)

	stored, err := f.repo.FindByID(context.Background(), f.db, view.ID)
	require.NoError(t, err)
	assert.False(t, stored.CounterEnabled)
	assert.Equal(t, "summer restock", stored.Name)

	require.NoError(t, f.db.Model(&domain.Order{}).Where("id = ?", view.ID).
		Update("status", domain.StatusDelivered).Error)
	_, err = f.svc.UpdateOrder(f.admin, domain.UpdateOrderRequest{OrderID: view.ID, Name: &name})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestCounterRespectsCounterEnabled(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	_, err := f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)
	_, err = f.svc.Price(f.admin, domain.PriceRequest{OrderID: view.ID, PricingModeID: f.gbpMode})
	require.NoError(t, err)

	off := false
	_, err = f.svc.UpdateOrder(f.admin, domain.UpdateOrderRequest{OrderID: view.ID, CounterEnabled: &off})
	require.NoError(t, err)

	offer := decimal.RequireFromString("2.10")
	_, err = f.svc.Counter(f.alice, domain.CounterRequest{
		OrderID: view.ID,
		Items:   []domain.CounterItem{{OrderItemID: view.Items[0].ID, CustomerUnitGBP: &offer}},
	})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	order, err := f.svc.AcceptOffer(f.alice, view.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinalized, order.Status)
}

func TestDeleteItems(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)
	tea, jam := view.Items[0], view.Items[1]
	require.NoError(t, f.db.Create(&allocationRow{ID: 1, OrderID: view.ID, OrderItemID: jam.ID}).Error)

	_, err := f.svc.DeleteItems(f.alice, domain.DeleteItemsRequest{OrderID: view.ID})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.DeleteItems(f.alice, domain.DeleteItemsRequest{OrderID: view.ID, OrderItemIDs: []int64{999}})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.DeleteItems(f.bob, domain.DeleteItemsRequest{OrderID: view.ID, OrderItemIDs: []int64{jam.ID}})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	deleted, err := f.svc.DeleteItems(f.alice, domain.DeleteItemsRequest{OrderID: view.ID, OrderItemIDs: []int64{jam.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	items, err := f.repo.ListItems(context.Background(), f.db, view.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, tea.ID, items[0].ID)
	var allocations int64
	require.NoError(t, f.db.Model(&allocationRow{}).Where("order_item_id = ?", jam.ID).Count(&allocations).Error)
	assert.Zero(t, allocations)

	_, err = f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)
	_, err = f.svc.DeleteItems(f.alice, domain.DeleteItemsRequest{OrderID: view.ID, OrderItemIDs: []int64{tea.ID}})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestAdminDeleteItemsBlockedWhileShipping(t *testing.T) {
	cases := []domain.Status{domain.StatusProcessing, domain.StatusPartiallyDelivered, domain.StatusDelivered}
	for _, status := range cases {
		t.Run(string(status), func(t *testing.T) {
			f := setup(t)
			view := f.createOrder(t, f.alice)
			require.NoError(t, f.db.Model(&domain.Order{}).Where("id = ?", view.ID).Update("status", status).Error)

			_, err := f.svc.DeleteItems(f.admin, domain.DeleteItemsRequest{OrderID: view.ID, OrderItemIDs: []int64{view.Items[0].ID}})
			assert.ErrorIs(t, err, errs.ErrForbidden)

			items, err := f.repo.ListItems(context.Background(), f.db, view.ID)
			require.NoError(t, err)
			assert.Len(t, items, 2)
		})
	}

	f := setup(t)
	view := f.createOrder(t, f.alice)
	_, err := f.svc.Submit(f.alice, view.ID)
	require.NoError(t, err)
	deleted, err := f.svc.DeleteItems(f.admin, domain.DeleteItemsRequest{OrderID: view.ID, OrderItemIDs: []int64{view.Items[1].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestStaleVersionIsDetected(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)

	ok, err := f.repo.UpdateVersioned(context.Background(), f.db, view.ID, view.Version, map[string]any{"name": "renamed"})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.repo.UpdateVersioned(context.Background(), f.db, view.ID, view.Version, map[string]any{"name": "again"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteOnlyClosedOrders(t *testing.T) {
	f := setup(t)
	view := f.createOrder(t, f.alice)

	err := f.svc.Delete(f.admin, view.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, f.db.Create(&allocationRow{ID: 1, OrderID: view.ID}).Error)

	_, err = f.svc.Cancel(f.admin, view.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.admin, view.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	require.NoError(t, f.svc.Delete(f.admin, view.ID))

	_, err = f.svc.Get(f.admin, view.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	var remaining int64
	require.NoError(t, f.db.Model(&allocationRow{}).Count(&remaining).Error)
	assert.Equal(t, int64(0), remaining)
}
