package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusInTransit Status = "in_transit"
	StatusReceived  Status = "received"
	StatusClosed    Status = "closed"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusDraft, StatusInTransit, StatusReceived, StatusClosed, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// AcceptsAllocations reports whether new quantity may still be assigned.
func (s Status) AcceptsAllocations() bool {
	return s != StatusClosed && s != StatusCancelled
}

// Shipment rates are BDT per GBP. CargoCostPerKg is in GBP.
type Shipment struct {
	ID             int64           `json:"id,string" gorm:"primaryKey"`
	Name           string          `json:"name" gorm:"type:text;not null"`
	Status         Status          `json:"status" gorm:"type:text;not null;index"`
	RateAvg        float64         `json:"rate_avg" gorm:"not null;default:0"`
	RateProduct    float64         `json:"rate_product" gorm:"not null;default:0"`
	RateCargo      float64         `json:"rate_cargo" gorm:"not null;default:0"`
	CargoCostPerKg decimal.Decimal `json:"cargo_cost_per_kg" gorm:"column:cargo_cost_per_kg;type:numeric(14,4);not null"`
	Version        int64           `json:"version" gorm:"not null;default:1"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null"`
}

func (Shipment) TableName() string { return "shipments" }

// DeriveRateAvg fills a missing average rate from the specific rates.
func DeriveRateAvg(product, cargo float64) float64 {
	switch {
	case product > 0 && cargo > 0:
		return (product + cargo) / 2
	case product > 0:
		return product
	case cargo > 0:
		return cargo
	default:
		return 0
	}
}
