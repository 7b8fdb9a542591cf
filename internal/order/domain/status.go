package domain

type Status string

const (
	StatusDraft              Status = "draft"
	StatusSubmitted          Status = "submitted"
	StatusPriced             Status = "priced"
	StatusUnderReview        Status = "under_review"
	StatusFinalized          Status = "finalized"
	StatusProcessing         Status = "processing"
	StatusPartiallyDelivered Status = "partially_delivered"
	StatusDelivered          Status = "delivered"
	StatusCancelled          Status = "cancelled"
)

// Statuses lists every order status in workflow order.
var Statuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusPriced,
	StatusUnderReview,
	StatusFinalized,
	StatusProcessing,
	StatusPartiallyDelivered,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

type ItemStatus string

const (
	ItemNotStarted ItemStatus = "not_started"
	ItemPartial    ItemStatus = "partial"
	ItemDelivered  ItemStatus = "delivered"
)
