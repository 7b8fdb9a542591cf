package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	orderrepo "github.com/smallbiznis/shipledger/internal/order/repository"
	reconciledomain "github.com/smallbiznis/shipledger/internal/reconcile/domain"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	shipmentrepo "github.com/smallbiznis/shipledger/internal/shipment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeReconciler struct {
	reconciledomain.Service

	shipments []int64
	orders    []int64
	failWith  map[int64]error
	actors    []actorcontext.Actor
}

func (f *fakeReconciler) ReconcileShipment(ctx context.Context, id int64) (*reconciledomain.ShipmentSummary, error) {
	actor, _ := actorcontext.FromContext(ctx)
	f.actors = append(f.actors, actor)
	if err := f.failWith[id]; err != nil {
		return nil, err
	}
	f.shipments = append(f.shipments, id)
	return &reconciledomain.ShipmentSummary{ShipmentID: id}, nil
}

func (f *fakeReconciler) ReconcileOrder(ctx context.Context, id int64) (*reconciledomain.OrderSummary, error) {
	if err := f.failWith[id]; err != nil {
		return nil, err
	}
	f.orders = append(f.orders, id)
	return &reconciledomain.OrderSummary{OrderID: id}, nil
}

func newTestScheduler(t *testing.T, cfg Config) (*Scheduler, *fakeReconciler) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&shipmentdomain.Shipment{}, &orderdomain.Order{}, &orderdomain.OrderItem{}))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	shipments := []struct {
		id     int64
		status shipmentdomain.Status
	}{
		{1, shipmentdomain.StatusDraft},
		{2, shipmentdomain.StatusInTransit},
		{3, shipmentdomain.StatusReceived},
		{4, shipmentdomain.StatusClosed},
	}
	for _, sh := range shipments {
		require.NoError(t, db.Create(&shipmentdomain.Shipment{
			ID: sh.id, Name: "s", Status: sh.status, RateAvg: 140, CargoCostPerKg: decimal.Zero,
			Version: 1, CreatedAt: now, UpdatedAt: now,
		}).Error)
	}
	orders := []struct {
		id     int64
		status orderdomain.Status
	}{
		{10, orderdomain.StatusFinalized},
		{11, orderdomain.StatusProcessing},
		{12, orderdomain.StatusPartiallyDelivered},
		{13, orderdomain.StatusDelivered},
	}
	for _, o := range orders {
		require.NoError(t, db.Create(&orderdomain.Order{
			ID: o.id, Name: "o", Status: o.status, CreatorID: "alice",
			Version: 1, CreatedAt: now, UpdatedAt: now,
		}).Error)
	}

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := &fakeReconciler{failWith: map[int64]error{}}
	s, err := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(now),
		Shipments:  shipmentrepo.Provide(),
		Orders:     orderrepo.Provide(),
		Reconciler: fake,
		Config:     cfg,
	})
	require.NoError(t, err)
	return s, fake
}

func TestRunOnceSweepsActiveWork(t *testing.T) {
	s, fake := newTestScheduler(t, Config{})

	require.NoError(t, s.RunOnce(context.Background()))

	assert.ElementsMatch(t, []int64{2, 3}, fake.shipments)
	assert.ElementsMatch(t, []int64{11, 12}, fake.orders)
	for _, actor := range fake.actors {
		assert.True(t, actor.IsAdmin())
		assert.Equal(t, systemActorID, actor.ID)
	}
}

func TestSweepSkipsLockedAndContinuesPastFailures(t *testing.T) {
	s, fake := newTestScheduler(t, Config{EnabledJobs: []string{jobReconcileShipments}})
	fake.failWith[2] = errs.ConcurrentModification("shipment", 2)
	fake.failWith[3] = errors.New("boom")

	ctx, run, owner := s.ensureJobRun(context.Background(), jobReconcileShipments, 10)
	require.True(t, owner)
	require.NoError(t, s.ReconcileShipmentsJob(ctx))

	assert.Empty(t, fake.shipments)
	assert.Equal(t, 1, run.skippedCount)
	assert.Equal(t, 1, run.errorCount)
	assert.Empty(t, fake.orders)
}

func TestSweepHonorsBatchSize(t *testing.T) {
	s, fake := newTestScheduler(t, Config{BatchSize: 1, EnabledJobs: []string{jobReconcileOrders}})

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Len(t, fake.orders, 1)
	assert.Empty(t, fake.shipments)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.NewFakeClock(time.Time{})}
	err = s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.NoError(t, err)

	err = s.runJob(context.Background(), "failing_job", 0, time.Second, func(ctx context.Context) error {
		return errors.New("db down")
	})
	assert.ErrorContains(t, err, "failing_job: db down")
}

func TestNewRejectsMissingDeps(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Minute, cfg.RunInterval)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
	assert.False(t, cfg.Enabled)
}
