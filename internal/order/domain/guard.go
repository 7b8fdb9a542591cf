package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/shipledger/internal/actorcontext"
	"github.com/smallbiznis/shipledger/internal/errs"
)

// AllowedTransitions returns the statuses role may move an order to from.
// Both switches are exhaustive; a new status must be placed in every table.
func AllowedTransitions(role actorcontext.Role, from Status) []Status {
	switch role {
	case actorcontext.RoleAdmin:
		switch from {
		case StatusDraft:
			return []Status{StatusSubmitted, StatusCancelled}
		case StatusSubmitted:
			return []Status{StatusPriced, StatusCancelled}
		case StatusPriced:
			return []Status{StatusUnderReview, StatusFinalized, StatusCancelled}
		case StatusUnderReview:
			return []Status{StatusPriced, StatusFinalized, StatusCancelled}
		case StatusFinalized:
			return []Status{StatusProcessing, StatusCancelled}
		case StatusProcessing:
			return []Status{StatusPartiallyDelivered, StatusDelivered, StatusCancelled}
		case StatusPartiallyDelivered:
			return []Status{StatusProcessing, StatusDelivered, StatusCancelled}
		case StatusDelivered, StatusCancelled:
			return nil
		default:
			panic(fmt.Sprintf("order status %q missing from admin transition table", from))
		}
	case actorcontext.RoleCustomer:
		switch from {
		case StatusDraft:
			return []Status{StatusSubmitted}
		case StatusPriced:
			return []Status{StatusUnderReview, StatusFinalized}
		case StatusUnderReview:
			return []Status{StatusUnderReview}
		case StatusSubmitted, StatusFinalized, StatusProcessing, StatusPartiallyDelivered, StatusDelivered, StatusCancelled:
			return nil
		default:
			panic(fmt.Sprintf("order status %q missing from customer transition table", from))
		}
	default:
		return nil
	}
}

// CanTransition rejects any move not listed for role and from.
func CanTransition(role actorcontext.Role, orderID int64, from, to Status) error {
	if !from.Valid() || !to.Valid() {
		return errs.Validation("status", "invalid_status", fmt.Sprintf("unknown order status %s -> %s", from, to))
	}
	for _, allowed := range AllowedTransitions(role, from) {
		if allowed == to {
			return nil
		}
	}
	return errs.Transition(string(role), "order", orderID, string(from), string(to))
}

// Item fields that can appear in an edit.
const (
	FieldProductID       = "product_id"
	FieldProductName     = "product_name"
	FieldOrderedQuantity = "ordered_quantity"
	FieldBuyPriceGBP     = "buy_price_gbp"
	FieldPricingModeID   = "pricing_mode_id"
	FieldProfitRate      = "profit_rate"
	FieldOfferedUnitGBP  = "offered_unit_gbp"
	FieldOfferedUnitBDT  = "offered_unit_bdt"
	FieldCustomerUnitGBP = "customer_unit_gbp"
	FieldCustomerUnitBDT = "customer_unit_bdt"
	FieldFinalUnitGBP    = "final_unit_gbp"
	FieldFinalUnitBDT    = "final_unit_bdt"
)

var (
	customerDraftFields   = fieldSet(FieldOrderedQuantity)
	customerCounterFields = fieldSet(FieldCustomerUnitGBP, FieldCustomerUnitBDT)
)

// CanEditItemFields applies the per-status field edit rules for order items.
// Once an order is processing, allocation shipped quantities are the only
// thing that may change, so every item field is locked, admins included.
func CanEditItemFields(role actorcontext.Role, status Status, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	if status == StatusDelivered {
		return errs.Forbidden("order is delivered; items are locked")
	}

	switch role {
	case actorcontext.RoleAdmin:
		if status == StatusProcessing {
			return errs.Forbidden("order items are read-only while processing; update allocation shipped_qty instead: " + strings.Join(sortedCopy(fields), ", "))
		}
		return nil
	case actorcontext.RoleCustomer:
		var allowed map[string]struct{}
		switch status {
		case StatusDraft:
			allowed = customerDraftFields
		case StatusPriced, StatusUnderReview:
			allowed = customerCounterFields
		default:
			return errs.Forbidden(fmt.Sprintf("customer cannot edit items while order is %s", status))
		}
		if extra := difference(fields, allowed); len(extra) > 0 {
			return errs.Forbidden(fmt.Sprintf("customer cannot edit %s while order is %s", strings.Join(extra, ", "), status))
		}
		return nil
	default:
		return errs.Forbidden("unknown role " + string(role))
	}
}

func fieldSet(fields ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func sortedCopy(fields []string) []string {
	out := append([]string(nil), fields...)
	sort.Strings(out)
	return out
}

func difference(fields []string, set map[string]struct{}) []string {
	var out []string
	for _, f := range fields {
		if _, ok := set[f]; !ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
