package domain

import "context"

// ShipmentReconciler recomputes every allocation row of a shipment.
type ShipmentReconciler interface {
	ReconcileShipment(ctx context.Context, shipmentID int64) (*ShipmentSummary, error)
}

// OrderReconciler rolls allocation rows up into item tracking fields and order totals.
type OrderReconciler interface {
	ReconcileOrder(ctx context.Context, orderID int64) (*OrderSummary, error)
}

type Service interface {
	ShipmentReconciler
	OrderReconciler

	ListRuns(ctx context.Context, req ListRunsRequest) ([]*Run, error)
}

type ListRunsRequest struct {
	Kind     Kind
	TargetID int64
	Limit    int
}
