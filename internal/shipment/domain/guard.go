package domain

import (
	"fmt"

	"github.com/smallbiznis/shipledger/internal/errs"
)

// AllowedTransitions lists the admin-only shipment status moves.
func AllowedTransitions(from Status) []Status {
	switch from {
	case StatusDraft:
		return []Status{StatusInTransit, StatusCancelled}
	case StatusInTransit:
		return []Status{StatusReceived, StatusCancelled}
	case StatusReceived:
		return []Status{StatusClosed}
	case StatusClosed, StatusCancelled:
		return nil
	default:
		panic(fmt.Sprintf("shipment status %q missing from transition table", from))
	}
}

func CanTransition(shipmentID int64, from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return errs.Validation("status", "invalid_status", fmt.Sprintf("unknown shipment status %s -> %s", from, to))
	}
	for _, allowed := range AllowedTransitions(from) {
		if allowed == to {
			return nil
		}
	}
	return errs.Transition("admin", "shipment", shipmentID, string(from), string(to))
}
