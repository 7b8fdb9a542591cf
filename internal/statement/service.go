// Package statement renders a shipment's reconciled allocation rows as a PDF.
package statement

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/shipledger/internal/actorcontext"
	allocationdomain "github.com/smallbiznis/shipledger/internal/allocation/domain"
	"github.com/smallbiznis/shipledger/internal/clock"
	"github.com/smallbiznis/shipledger/internal/errs"
	"github.com/smallbiznis/shipledger/internal/providers/pdf"
	shipmentdomain "github.com/smallbiznis/shipledger/internal/shipment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("statement.service",
	fx.Provide(New),
)

type Service interface {
	ShipmentStatement(ctx context.Context, shipmentID int64) (io.Reader, error)
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Shipments   shipmentdomain.Repository
	Allocations allocationdomain.Repository
	PDF         pdf.Provider
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	shipments   shipmentdomain.Repository
	allocations allocationdomain.Repository
	pdf         pdf.Provider
}

func New(p Params) Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("statement.service"),
		clock:       p.Clock,
		shipments:   p.Shipments,
		allocations: p.Allocations,
		pdf:         p.PDF,
	}
}

func (s *service) ShipmentStatement(ctx context.Context, shipmentID int64) (io.Reader, error) {
	if _, err := actorcontext.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if shipmentID == 0 {
		return nil, errs.Required("shipment_id")
	}

	shipment, err := s.shipments.FindByID(ctx, s.db, shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, errs.NotFound("shipment", shipmentID)
	}
	allocations, err := s.allocations.ListByShipment(ctx, s.db, shipment.ID)
	if err != nil {
		return nil, err
	}

	return s.pdf.GenerateShipmentStatement(ctx, BuildData(shipment, allocations, s.clock.Now()))
}

// BuildData formats a shipment and its allocations for rendering. Rows that
// were never reconciled show "-" and add nothing to the totals.
func BuildData(shipment *shipmentdomain.Shipment, allocations []*allocationdomain.Allocation, now time.Time) pdf.StatementData {
	data := pdf.StatementData{
		ShipmentName:   shipment.Name,
		ShipmentID:     strconv.FormatInt(shipment.ID, 10),
		Status:         string(shipment.Status),
		GeneratedAt:    now.UTC().Format(time.RFC3339),
		RateAvg:        formatFloat(shipment.RateAvg),
		RateProduct:    formatFloat(shipment.RateProduct),
		RateCargo:      formatFloat(shipment.RateCargo),
		CargoCostPerKg: shipment.CargoCostPerKg.StringFixed(4),
		Rows:           make([]pdf.StatementRow, 0, len(allocations)),
	}

	weight := decimal.Zero
	var productCost, cargoCost, totalCost, revenue, profit int64
	for _, a := range allocations {
		mode := "-"
		if a.PricingModeID != nil {
			mode = *a.PricingModeID
		}
		data.Rows = append(data.Rows, pdf.StatementRow{
			OrderID:       strconv.FormatInt(a.OrderID, 10),
			ProductID:     a.ProductID,
			PricingMode:   mode,
			ShippedQty:    formatFloat(a.ShippedQty),
			ShippedWeight: formatFloat(a.ShippedWeight),
			ProductCost:   formatBDT(a.ProductCostBDT),
			CargoCost:     formatBDT(a.CargoCostBDT),
			Revenue:       formatBDT(a.RevenueBDT),
			Profit:        formatBDT(a.ProfitBDT),
		})

		weight = weight.Add(decimal.NewFromFloat(a.ShippedWeight))
		productCost += allocationdomain.Int64Value(a.ProductCostBDT)
		cargoCost += allocationdomain.Int64Value(a.CargoCostBDT)
		totalCost += allocationdomain.Int64Value(a.TotalCostBDT)
		revenue += allocationdomain.Int64Value(a.RevenueBDT)
		profit += allocationdomain.Int64Value(a.ProfitBDT)
	}

	data.TotalShippedWeight = weight.String()
	data.TotalProductCost = strconv.FormatInt(productCost, 10)
	data.TotalCargoCost = strconv.FormatInt(cargoCost, 10)
	data.TotalCost = strconv.FormatInt(totalCost, 10)
	data.TotalRevenue = strconv.FormatInt(revenue, 10)
	data.TotalProfit = strconv.FormatInt(profit, 10)
	return data
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBDT(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}
