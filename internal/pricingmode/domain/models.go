package domain

import (
	"strings"
	"time"
)

type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyBDT Currency = "BDT"
)

type ProfitBase string

const (
	ProfitBaseProductOnly      ProfitBase = "PRODUCT_ONLY"
	ProfitBaseProductPlusCargo ProfitBase = "PRODUCT_PLUS_CARGO"
)

type CargoCharge string

const (
	CargoChargePassThrough     CargoCharge = "PASS_THROUGH"
	CargoChargeIncludedInPrice CargoCharge = "INCLUDED_IN_PRICE"
)

type ConversionRule string

const (
	ConversionSeparateRates ConversionRule = "SEPARATE_RATES"
	ConversionAvgRate       ConversionRule = "AVG_RATE"
)

// RateSource selects which shipment rate converts GBP revenue into BDT.
type RateSource string

const (
	RateSourceAvg     RateSource = "avg"
	RateSourceProduct RateSource = "product"
	RateSourceCargo   RateSource = "cargo"
)

// PricingMode governs currency, cost basis and conversion rates for an order line.
type PricingMode struct {
	ID                string         `json:"id" gorm:"primaryKey;type:text"`
	Name              string         `json:"name" gorm:"type:text;not null"`
	Version           string         `json:"version" gorm:"type:text;not null;default:'v1'"`
	Currency          Currency       `json:"currency" gorm:"type:text;not null"`
	ProfitBase        ProfitBase     `json:"profit_base" gorm:"type:text;not null"`
	CargoCharge       CargoCharge    `json:"cargo_charge" gorm:"type:text;not null"`
	ConversionRule    ConversionRule `json:"conversion_rule" gorm:"type:text;not null"`
	RateSourceRevenue RateSource     `json:"rate_source_revenue" gorm:"type:text;not null;default:'avg'"`
	Active            bool           `json:"active" gorm:"not null;default:true"`
	Notes             *string        `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null"`
}

func (PricingMode) TableName() string { return "pricing_modes" }

func ParseCurrency(raw string) (Currency, bool) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CurrencyGBP, CurrencyBDT:
		return c, true
	}
	return "", false
}

func ParseProfitBase(raw string) (ProfitBase, bool) {
	switch p := ProfitBase(strings.ToUpper(strings.TrimSpace(raw))); p {
	case ProfitBaseProductOnly, ProfitBaseProductPlusCargo:
		return p, true
	}
	return "", false
}

func ParseCargoCharge(raw string) (CargoCharge, bool) {
	switch c := CargoCharge(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CargoChargePassThrough, CargoChargeIncludedInPrice:
		return c, true
	}
	return "", false
}

func ParseConversionRule(raw string) (ConversionRule, bool) {
	switch c := ConversionRule(strings.ToUpper(strings.TrimSpace(raw))); c {
	case ConversionSeparateRates, ConversionAvgRate:
		return c, true
	}
	return "", false
}

// ParseRateSource accepts an empty value as avg.
func ParseRateSource(raw string) (RateSource, bool) {
	switch r := RateSource(strings.ToLower(strings.TrimSpace(raw))); r {
	case "":
		return RateSourceAvg, true
	case RateSourceAvg, RateSourceProduct, RateSourceCargo:
		return r, true
	}
	return "", false
}
