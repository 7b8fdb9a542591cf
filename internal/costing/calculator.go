// Package costing computes the weight, cost, revenue and profit figures of a
// single allocation. Compute is pure: identical inputs give identical outputs.
package costing

import (
	"github.com/shopspring/decimal"
	pricingdomain "github.com/smallbiznis/shipledger/internal/pricingmode/domain"
)

// Rates are the shipment-level conversion inputs (BDT per GBP) and cargo tariff.
type Rates struct {
	Avg            float64
	Product        float64
	Cargo          float64
	CargoCostPerKg decimal.Decimal
}

// Mode is the subset of a pricing mode the calculator reads.
type Mode struct {
	Currency          pricingdomain.Currency
	ProfitBase        pricingdomain.ProfitBase
	ConversionRule    pricingdomain.ConversionRule
	RateSourceRevenue pricingdomain.RateSource
}

func ModeOf(pm *pricingdomain.PricingMode) Mode {
	if pm == nil {
		return Mode{}
	}
	return Mode{
		Currency:          pm.Currency,
		ProfitBase:        pm.ProfitBase,
		ConversionRule:    pm.ConversionRule,
		RateSourceRevenue: pm.RateSourceRevenue,
	}
}

type Input struct {
	AllocatedQty      float64
	ShippedQty        float64
	UnitProductWeight float64
	UnitPackageWeight float64

	BuyPriceGBP  decimal.Decimal
	ProfitRate   float64
	FinalUnitGBP decimal.NullDecimal
	FinalUnitBDT *int64

	Rates Rates
	Mode  Mode
}

// Amounts holds every computed allocation field. GBP values carry at most two
// decimals and BDT values are whole numbers.
type Amounts struct {
	UnitTotalWeight float64
	AllocatedWeight float64
	ShippedWeight   float64

	BuyPriceGBP       decimal.Decimal
	ProductCostGBP    decimal.Decimal
	CargoCostGBP      decimal.Decimal
	SellUnitGBP       decimal.Decimal
	ProductRevenueGBP decimal.Decimal

	ProductCostBDT int64
	CargoCostBDT   int64
	LandedCostBDT  int64
	RevenueBDT     int64
	TotalCostBDT   int64
	ProfitBDT      int64

	// UnknownCurrency is set when revenue fell back to zero.
	UnknownCurrency bool
	// UnknownProfitBase is set when profit fell back to the product plus cargo basis.
	UnknownProfitBase bool
}

func Compute(in Input) Amounts {
	var out Amounts

	shipped := decimal.NewFromFloat(in.ShippedQty)
	unitWeight := decimal.NewFromFloat(in.UnitProductWeight).Add(decimal.NewFromFloat(in.UnitPackageWeight))
	shippedWeight := unitWeight.Mul(shipped)
	out.UnitTotalWeight = unitWeight.InexactFloat64()
	out.AllocatedWeight = unitWeight.Mul(decimal.NewFromFloat(in.AllocatedQty)).InexactFloat64()
	out.ShippedWeight = shippedWeight.InexactFloat64()

	out.BuyPriceGBP = RoundGBP(in.BuyPriceGBP)

	separate := in.Mode.ConversionRule == pricingdomain.ConversionSeparateRates
	productRate, cargoRate := in.Rates.Avg, in.Rates.Avg
	if separate {
		productRate, cargoRate = in.Rates.Product, in.Rates.Cargo
	}

	out.ProductCostGBP = RoundGBP(shipped.Mul(in.BuyPriceGBP))
	productCostBDT := out.ProductCostGBP.Mul(decimal.NewFromFloat(productRate))
	out.ProductCostBDT = RoundBDT(productCostBDT)

	out.CargoCostGBP = RoundGBP(shippedWeight.Mul(in.Rates.CargoCostPerKg))
	out.CargoCostBDT = RoundBDT(out.CargoCostGBP.Mul(decimal.NewFromFloat(cargoRate)))

	pr := decimal.NewFromFloat(in.ProfitRate)
	markup := decimal.NewFromInt(1).Add(pr)

	switch in.Mode.Currency {
	case pricingdomain.CurrencyGBP:
		sell := RoundGBP(in.BuyPriceGBP.Mul(markup))
		if in.FinalUnitGBP.Valid {
			sell = RoundGBP(in.FinalUnitGBP.Decimal)
		}
		out.SellUnitGBP = sell
		out.ProductRevenueGBP = RoundGBP(shipped.Mul(sell))
		rate := revenueRate(in.Mode.RateSourceRevenue, in.Rates)
		out.RevenueBDT = RoundBDT(out.ProductRevenueGBP.Mul(decimal.NewFromFloat(rate)))
	case pricingdomain.CurrencyBDT:
		out.LandedCostBDT = out.ProductCostBDT + out.CargoCostBDT
		if in.FinalUnitBDT != nil {
			out.RevenueBDT = RoundBDT(shipped.Mul(decimal.NewFromInt(*in.FinalUnitBDT)))
		} else {
			out.RevenueBDT = RoundBDT(decimal.NewFromInt(out.LandedCostBDT).Mul(markup))
		}
	default:
		out.UnknownCurrency = true
	}

	out.TotalCostBDT = out.ProductCostBDT + out.CargoCostBDT

	costBasis := out.TotalCostBDT
	switch in.Mode.ProfitBase {
	case pricingdomain.ProfitBaseProductOnly:
		costBasis = out.ProductCostBDT
	case pricingdomain.ProfitBaseProductPlusCargo:
	default:
		out.UnknownProfitBase = true
	}
	out.ProfitBDT = out.RevenueBDT - costBasis

	return out
}

// revenueRate picks the rate named by source, falling back to the average when
// that specific rate is unset.
func revenueRate(source pricingdomain.RateSource, rates Rates) float64 {
	var rate float64
	switch source {
	case pricingdomain.RateSourceProduct:
		rate = rates.Product
	case pricingdomain.RateSourceCargo:
		rate = rates.Cargo
	default:
		return rates.Avg
	}
	if rate == 0 {
		return rates.Avg
	}
	return rate
}
