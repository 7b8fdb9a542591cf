package allocation

import (
	"github.com/smallbiznis/shipledger/internal/allocation/repository"
	"github.com/smallbiznis/shipledger/internal/allocation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("allocation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewOverShipChecker),
	fx.Provide(service.New),
)
