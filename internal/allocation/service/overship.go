package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/errs"
	orderdomain "github.com/smallbiznis/shipledger/internal/order/domain"
	"gorm.io/gorm"
)

type overShipChecker struct {
	items       orderdomain.Repository
	allocations domain.Repository
}

func NewOverShipChecker(items orderdomain.Repository, allocations domain.Repository) domain.OverShipChecker {
	return &overShipChecker{items: items, allocations: allocations}
}

func (c *overShipChecker) Check(ctx context.Context, db *gorm.DB, orderItemID int64, delta float64, excludeID int64) error {
	item, err := c.items.FindItemByID(ctx, db, orderItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return errs.NotFound("order_item", orderItemID)
	}
	existing, err := c.allocations.SumShipped(ctx, db, orderItemID, excludeID)
	if err != nil {
		return err
	}
	return c.Verify(orderItemID, item.OrderedQuantity, existing+delta)
}

func (c *overShipChecker) Verify(orderItemID int64, ordered, total float64) error {
	if total > ordered+domain.OverShipEpsilon {
		return errs.Invariant("over_ship", fmt.Sprintf("over-ship blocked for item %d: total %s > ordered %s",
			orderItemID, formatQty(total), formatQty(ordered)))
	}
	return nil
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
