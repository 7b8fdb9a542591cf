// Package scheduler periodically re-runs shipment and order reconciliation for
// work that is still moving, so stored figures catch up with rate or
// allocation edits nobody reconciled by hand.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	reconciledomain "github.com/smallbiznis/shipledger/internal/reconcile/domain"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobReconcileShipments = "reconcile_shipments"
	jobReconcileOrders    = "reconcile_orders"

	systemActorID = "scheduler"
)

var ErrInvalidConfig = errors.New("scheduler: invalid config")

// Shipments and orders the sweep revisits.
var (
	sweptShipmentStatuses = []shipmentdomain.Status{shipmentdomain.StatusInTransit, shipmentdomain.StatusReceived}
	sweptOrderStatuses    = []orderdomain.Status{orderdomain.StatusProcessing, orderdomain.StatusPartiallyDelivered}
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Shipments  shipmentdomain.Repository
	Orders     orderdomain.Repository
	Reconciler reconciledomain.Service
	Config     Config `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	shipments  shipmentdomain.Repository
	orders     orderdomain.Repository
	reconciler reconciledomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Shipments == nil || p.Orders == nil || p.Reconciler == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		shipments:  p.Shipments,
		orders:     p.Orders,
		reconciler: p.Reconciler,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = actorcontext.WithActor(ctx, actorcontext.Actor{ID: systemActorID, Role: actorcontext.RoleAdmin})
	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}

	err := fn(ctx)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout: the next tick picks up the rest
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce reconciles shipments before orders so order rollups read fresh rows.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{jobReconcileShipments, s.ReconcileShipmentsJob},
		{jobReconcileOrders, s.ReconcileOrdersJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) ReconcileShipmentsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobReconcileShipments, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	var ids []int64
	for _, status := range sweptShipmentStatuses {
		shipments, err := s.shipments.List(ctx, s.db, status)
		if err != nil {
			return err
		}
		for _, sh := range shipments {
			ids = append(ids, sh.ID)
		}
	}

	return s.sweep(ctx, run, string(reconciledomain.KindShipment), ids, func(ctx context.Context, id int64) error {
		_, err := s.reconciler.ReconcileShipment(ctx, id)
		return err
	})
}

func (s *Scheduler) ReconcileOrdersJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobReconcileOrders, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	var ids []int64
	for _, status := range sweptOrderStatuses {
		orders, err := s.orders.List(ctx, s.db, orderdomain.ListFilter{Status: status})
		if err != nil {
			return err
		}
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
	}

	return s.sweep(ctx, run, string(reconciledomain.KindOrder), ids, func(ctx context.Context, id int64) error {
		_, err := s.reconciler.ReconcileOrder(ctx, id)
		return err
	})
}

// sweep reconciles up to BatchSize targets. A target held by another
// reconcile is skipped; other failures are logged and do not stop the batch.
func (s *Scheduler) sweep(ctx context.Context, run *jobRun, kind string, ids []int64, fn func(context.Context, int64) error) error {
	if len(ids) > s.cfg.BatchSize {
		ids = ids[:s.cfg.BatchSize]
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx, id)
		switch {
		case err == nil:
			run.AddProcessed(1)
		case errors.Is(err, errs.ErrConcurrentModification):
			run.IncSkipped()
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return err
		default:
			s.logTargetError(ctx, run, kind, id, err)
		}
	}
	return nil
}
