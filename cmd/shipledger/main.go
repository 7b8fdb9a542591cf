package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shipledger/internal/allocation"
	"github.com/smallbiznis/shipledger/internal/authorization"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/config"
	"github.com/smallbiznis/shipledger/internal/lock"
	"github.com/smallbiznis/shipledger/internal/migration"
	"github.com/smallbiznis/shipledger/internal/observability"
	"github.com/smallbiznis/shipledger/internal/order"
	"github.com/smallbiznis/shipledger/internal/pricingmode"
	"github.com/smallbiznis/shipledger/internal/providers"
	"github.com/smallbiznis/shipledger/internal/reconcile"
	"github.com/smallbiznis/shipledger/internal/scheduler"
	"github.com/smallbiznis/shipledger/internal/server"
	"github.com/smallbiznis/shipledger/internal/shipment"
	"github.com/smallbiznis/shipledger/internal/statement"
	"github.com/smallbiznis/shipledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,
		authorization.Module,
		providers.Module,

		// Fulfillment domains
		pricingmode.Module,
		order.Module,
		shipment.Module,
		allocation.Module,
		reconcile.Module,
		statement.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
