package pricingmode

import (
	"github.com/smallbiznis/shipledger/internal/pricingmode/repository"
	"github.com/smallbiznis/shipledger/internal/pricingmode/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pricingmode.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(service.NewResolver),
)
