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
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/shipment/domain"
	"github.com/smallbiznis/shipledger/internal/shipment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type allocationRow struct {
	ID         int64 `gorm:"primaryKey"`
	ShipmentID int64
}

func (allocationRow) TableName() string { return "allocations" }

func setupService(t *testing.T) (domain.Service, *gorm.DB, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Shipment{}, &allocationRow{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	admin := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "admin-1", Role: actorcontext.RoleAdmin})
	return svc, db, admin
}

func TestCreateDerivesAverageRate(t *testing.T) {
	svc, _, admin := setupService(t)

	shipment, err := svc.Create(admin, domain.CreateRequest{
		Name:           "March air freight",
		RateProduct:    138,
		RateCargo:      142,
		CargoCostPerKg: decimal.RequireFromString("1.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, 140.0, shipment.RateAvg)
	assert.Equal(t, domain.StatusDraft, shipment.Status)

	explicit := 139.5
	shipment, err = svc.Create(admin, domain.CreateRequest{Name: "Sea", RateAvg: &explicit, RateProduct: 138})
	require.NoError(t, err)
	assert.Equal(t, 139.5, shipment.RateAvg)
}

func TestCreateValidates(t *testing.T) {
	svc, _, admin := setupService(t)

	_, err := svc.Create(admin, domain.CreateRequest{})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(admin, domain.CreateRequest{Name: "bad", RateCargo: -1})
	assert.ErrorIs(t, err, errs.ErrValidation)

	customer := actorcontext.WithActor(context.Background(), actorcontext.Actor{ID: "c", Role: actorcontext.RoleCustomer})
	_, err = svc.Create(customer, domain.CreateRequest{Name: "x"})
	assert.ErrorIs(t, err, errs.ErrForbidden)
}

func TestUpdateStatusFollowsTable(t *testing.T) {
	svc, _, admin := setupService(t)
	shipment, err := svc.Create(admin, domain.CreateRequest{Name: "Air", RateProduct: 138, RateCargo: 142})
	require.NoError(t, err)

	received := domain.StatusReceived
	_, err = svc.Update(admin, domain.UpdateRequest{ID: shipment.ID, Status: &received})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	inTransit := domain.StatusInTransit
	rate := 150.0
	updated, err := svc.Update(admin, domain.UpdateRequest{ID: shipment.ID, Status: &inTransit, RateCargo: &rate})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInTransit, updated.Status)
	assert.Equal(t, 150.0, updated.RateCargo)
	assert.Equal(t, int64(2), updated.Version)

	got, err := svc.Get(admin, shipment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInTransit, got.Status)

	list, err := svc.List(admin, domain.ListRequest{Status: domain.StatusInTransit})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDeleteRequiresDraftOrCancelled(t *testing.T) {
	svc, db, admin := setupService(t)
	shipment, err := svc.Create(admin, domain.CreateRequest{Name: "Air"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&allocationRow{ID: 1, ShipmentID: shipment.ID}).Error)

	inTransit := domain.StatusInTransit
	_, err = svc.Update(admin, domain.UpdateRequest{ID: shipment.ID, Status: &inTransit})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(admin, shipment.ID), errs.ErrForbidden)

	cancelled := domain.StatusCancelled
	_, err = svc.Update(admin, domain.UpdateRequest{ID: shipment.ID, Status: &cancelled})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(admin, shipment.ID))

	_, err = svc.Get(admin, shipment.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&allocationRow{}).Count(&count).Error)
	assert.Zero(t, count)
}
