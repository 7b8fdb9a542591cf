package authorization

import (
	"context"

	"github.com/smallbiznis/shipledger/internal/actorcontext"
)

const (
	ObjectOrder        = "order"
	ObjectShipment     = "shipment"
	ObjectAllocation   = "allocation"
	ObjectPricingMode  = "pricing_mode"
	ObjectReconcileRun = "reconcile_run"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionOrderSubmit      = "submit"
	ActionOrderPrice       = "price"
	ActionOrderCounter     = "counter"
	ActionOrderAccept      = "accept"
	ActionOrderFinalize    = "finalize"
	ActionOrderProcess     = "start_processing"
	ActionOrderCancel      = "cancel"
	ActionOrderDeleteItems = "delete_items"
	ActionReconcile        = "reconcile"
	ActionStatementPrint   = "statement"
)

// Service answers coarse object/action questions. Ownership and field-level
// rules stay with the owning service.
type Service interface {
	Authorize(ctx context.Context, actor actorcontext.Actor, object, action string) error
}
