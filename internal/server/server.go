package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	allocationdomain "github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/authorization"
	"github.com/smallbiznis/shipledger/internal/config"
	"github.com/smallbiznis/shipledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/shipledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/shipledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/shipledger/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	pricingmodedomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
	reconciledomain "github.com/smallbiznis/shipledger/internal/reconcile/domain"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	"github.com/smallbiznis/shipledger/internal/statement"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// run serves the engine until shutdown. *Server is requested so routes are
// registered before the listener starts.
func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	log          *zap.Logger
	authzSvc     authorization.Service
	pricingModes pricingmodedomain.Service
	orders       orderdomain.Service
	shipments    shipmentdomain.Service
	allocations  allocationdomain.Service
	reconciler   reconciledomain.Service
	statementSvc statement.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	AuthzSvc     authorization.Service
	PricingModes pricingmodedomain.Service
	Orders       orderdomain.Service
	Shipments    shipmentdomain.Service
	Allocations  allocationdomain.Service
	Reconciler   reconciledomain.Service
	StatementSvc statement.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		log:          p.Log.Named("http"),
		authzSvc:     p.AuthzSvc,
		pricingModes: p.PricingModes,
		orders:       p.Orders,
		shipments:    p.Shipments,
		allocations:  p.Allocations,
		reconciler:   p.Reconciler,
		statementSvc: p.StatementSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(ActorRequired())

	// -------- Pricing modes --------
	api.GET("/pricing-modes", s.authorize(authorization.ObjectPricingMode, authorization.ActionView), s.ListPricingModes)
	api.POST("/pricing-modes", s.authorize(authorization.ObjectPricingMode, authorization.ActionCreate), s.CreatePricingMode)
	api.GET("/pricing-modes/:id", s.authorize(authorization.ObjectPricingMode, authorization.ActionView), s.GetPricingMode)
	api.PATCH("/pricing-modes/:id", s.authorize(authorization.ObjectPricingMode, authorization.ActionUpdate), s.UpdatePricingMode)
	api.DELETE("/pricing-modes/:id", s.authorize(authorization.ObjectPricingMode, authorization.ActionDelete), s.DeactivatePricingMode)

	// -------- Orders --------
	api.POST("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionCreate), s.CreateOrder)
	api.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
	api.GET("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
	api.PATCH("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.UpdateOrder)
	api.DELETE("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionDelete), s.DeleteOrder)
	api.GET("/orders/:id/items", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.ListOrderItems)
	api.PATCH("/orders/:id/items", s.authorize(authorization.ObjectOrder, authorization.ActionUpdate), s.UpdateOrderItems)
	api.DELETE("/orders/:id/items", s.authorize(authorization.ObjectOrder, authorization.ActionOrderDeleteItems), s.DeleteOrderItems)
	api.POST("/orders/:id/submit", s.authorize(authorization.ObjectOrder, authorization.ActionOrderSubmit), s.SubmitOrder)
	api.POST("/orders/:id/price", s.authorize(authorization.ObjectOrder, authorization.ActionOrderPrice), s.PriceOrder)
	api.POST("/orders/:id/counter", s.authorize(authorization.ObjectOrder, authorization.ActionOrderCounter), s.CounterOrder)
	api.POST("/orders/:id/accept", s.authorize(authorization.ObjectOrder, authorization.ActionOrderAccept), s.AcceptOrder)
	api.POST("/orders/:id/finalize", s.authorize(authorization.ObjectOrder, authorization.ActionOrderFinalize), s.FinalizeOrder)
	api.POST("/orders/:id/start-processing", s.authorize(authorization.ObjectOrder, authorization.ActionOrderProcess), s.StartProcessingOrder)
	api.POST("/orders/:id/cancel", s.authorize(authorization.ObjectOrder, authorization.ActionOrderCancel), s.CancelOrder)
	api.POST("/orders/:id/reconcile", s.authorize(authorization.ObjectOrder, authorization.ActionReconcile), s.ReconcileOrder)
	api.GET("/orders/:id/allocations", s.authorize(authorization.ObjectAllocation, authorization.ActionView), s.ListOrderAllocations)

	// -------- Shipments --------
	api.POST("/shipments", s.authorize(authorization.ObjectShipment, authorization.ActionCreate), s.CreateShipment)
	api.GET("/shipments", s.authorize(authorization.ObjectShipment, authorization.ActionView), s.ListShipments)
	api.GET("/shipments/:id", s.authorize(authorization.ObjectShipment, authorization.ActionView), s.GetShipment)
	api.PATCH("/shipments/:id", s.authorize(authorization.ObjectShipment, authorization.ActionUpdate), s.UpdateShipment)
	api.DELETE("/shipments/:id", s.authorize(authorization.ObjectShipment, authorization.ActionDelete), s.DeleteShipment)
	api.POST("/shipments/:id/reconcile", s.authorize(authorization.ObjectShipment, authorization.ActionReconcile), s.ReconcileShipment)
	api.GET("/shipments/:id/allocations", s.authorize(authorization.ObjectAllocation, authorization.ActionView), s.ListShipmentAllocations)
	api.GET("/shipments/:id/statement.pdf", s.authorize(authorization.ObjectShipment, authorization.ActionStatementPrint), s.ShipmentStatement)

	// -------- Allocations --------
	api.POST("/allocations", s.authorize(authorization.ObjectAllocation, authorization.ActionCreate), s.CreateAllocation)
	api.PATCH("/allocations/:id", s.authorize(authorization.ObjectAllocation, authorization.ActionUpdate), s.UpdateAllocation)
	api.DELETE("/allocations/:id", s.authorize(authorization.ObjectAllocation, authorization.ActionDelete), s.DeleteAllocation)

	// -------- Reconcile runs --------
	api.GET("/reconcile-runs", s.authorize(authorization.ObjectReconcileRun, authorization.ActionView), s.ListReconcileRuns)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
