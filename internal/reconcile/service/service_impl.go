package service

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	allocationdomain "github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/lock"
	"github.com/smallbiznis/shipledger/internal/observability/logger"
	"github.com/smallbiznis/shipledger/internal/observability/metrics"
	"github.com/smallbiznis/shipledger/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	pricingdomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	"github.com/smallbiznis/shipledger/internal/reconcile/domain"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	"github.com/smallbiznis/shipledger/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	Orders      orderdomain.Repository
	Shipments   shipmentdomain.Repository
	Allocations allocationdomain.Repository
	Modes       pricingdomain.Resolver
	Checker     allocationdomain.OverShipChecker
	Guard       *lock.ReconcileGuard `optional:"true"`
	Metrics     *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	tracer      trace.Tracer
	repo        domain.Repository
	orders      orderdomain.Repository
	shipments   shipmentdomain.Repository
	allocations allocationdomain.Repository
	modes       pricingdomain.Resolver
	checker     allocationdomain.OverShipChecker
	guard       *lock.ReconcileGuard
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("reconcile.service"),
		clock:       p.Clock,
		tracer:      otel.Tracer("shipledger/reconcile"),
		repo:        p.Repo,
		orders:      p.Orders,
		shipments:   p.Shipments,
		allocations: p.Allocations,
		modes:       p.Modes,
		checker:     p.Checker,
		guard:       p.Guard,
		metrics:     p.Metrics,
	}
}

func (s *Service) ListRuns(ctx context.Context, req domain.ListRunsRequest) ([]*domain.Run, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	switch req.Kind {
	case domain.KindOrder, domain.KindShipment:
	default:
		return nil, errs.Validation("kind", "invalid_kind", "kind must be order or shipment")
	}
	if req.TargetID == 0 {
		return nil, errs.Required("target_id")
	}
	limit := req.Limit
	switch {
	case limit <= 0:
		limit = defaultRunsLimit
	case limit > maxRunsLimit:
		limit = maxRunsLimit
	}
	return s.repo.ListByTarget(ctx, s.db, req.Kind, req.TargetID, limit)
}

type runResult struct {
	rows     int
	warnings []domain.Warning
}

// execute runs fn in one transaction under the target lock and records the run
// once the transaction has committed.
func (s *Service) execute(ctx context.Context, kind domain.Kind, targetID int64, fn func(context.Context, *gorm.DB) (runResult, error)) (string, error) {
	actor, err := actorcontext.RequireAdmin(ctx)
	if err != nil {
		return "", err
	}
	if targetID == 0 {
		return "", errs.Required(string(kind) + "_id")
	}

	ctx, correlationID := correlation.EnsureCorrelationID(ctx)
	ctx, span := s.tracer.Start(ctx, "reconcile."+string(kind))
	defer span.End()

	started := s.clock.Now()
	outcome := "ok"
	defer func() {
		s.metrics.RecordReconcile(ctx, string(kind), outcome, s.clock.Now().Sub(started))
	}()

	log := logger.WithContext(ctx, s.log).With(
		zap.String("kind", string(kind)),
		zap.Int64("target_id", targetID),
		zap.String("correlation_id", correlationID),
	)

	release, ok, err := s.guard.Acquire(ctx, string(kind), targetID)
	switch {
	case err != nil:
		// version compare-and-swap still catches concurrent runs
		log.Warn("reconcile lock unavailable, continuing without it", zap.Error(err))
	case !ok:
		outcome = "locked"
		return "", errs.ConcurrentModification(string(kind), targetID)
	}
	defer release()

	var result runResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		outcome = outcomeOf(err)
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, outcome)
		return "", err
	}

	for _, w := range result.warnings {
		s.metrics.RecordReconcileWarning(ctx, string(kind), w.Reason)
	}
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("reconcile.kind", string(kind)),
		attribute.Int("reconcile.rows_updated", result.rows),
		attribute.Int("reconcile.warnings", len(result.warnings)),
	)...)

	warnings := result.warnings
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	payload, err := json.Marshal(warnings)
	if err != nil {
		return "", err
	}
	run := &domain.Run{
		ID:            ulid.Make().String(),
		Kind:          kind,
		TargetID:      targetID,
		Actor:         actor.Subject(),
		CorrelationID: correlationID,
		RowsUpdated:   result.rows,
		Warnings:      datatypes.JSON(payload),
		StartedAt:     started,
		FinishedAt:    s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, run); err != nil {
		log.Warn("failed to record reconcile run", zap.Error(err))
	}

	log.Info("reconcile finished",
		zap.String("run_id", run.ID),
		zap.Int("rows_updated", result.rows),
		zap.Int("warnings", len(result.warnings)),
	)
	return run.ID, nil
}

func outcomeOf(err error) string {
	if kind := errs.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
