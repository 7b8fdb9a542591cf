package pdf

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// StatementData is a shipment statement with every value already formatted.
type StatementData struct {
	ShipmentName   string
	ShipmentID     string
	Status         string
	GeneratedAt    string
	RateAvg        string
	RateProduct    string
	RateCargo      string
	CargoCostPerKg string

	Rows []StatementRow

	TotalShippedWeight string
	TotalProductCost   string
	TotalCargoCost     string
	TotalCost          string
	TotalRevenue       string
	TotalProfit        string
}

type StatementRow struct {
	OrderID       string
	ProductID     string
	PricingMode   string
	ShippedQty    string
	ShippedWeight string
	ProductCost   string
	CargoCost     string
	Revenue       string
	Profit        string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateShipmentStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	if data.ShipmentID == "" {
		return nil, errors.New("statement requires a shipment id")
	}

	cfg := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Shipment statement", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Shipment: "+data.ShipmentName, props.Text{Style: fontstyle.Bold}),
			text.New("ID: "+data.ShipmentID, props.Text{Top: 5}),
			text.New("Status: "+data.Status, props.Text{Top: 10}),
			text.New("Generated: "+data.GeneratedAt, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New("Avg rate: "+data.RateAvg, props.Text{Align: align.Right}),
			text.New("Product rate: "+data.RateProduct, props.Text{Top: 5, Align: align.Right}),
			text.New("Cargo rate: "+data.RateCargo, props.Text{Top: 10, Align: align.Right}),
			text.New("Cargo GBP/kg: "+data.CargoCostPerKg, props.Text{Top: 15, Align: align.Right}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 8}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}
	m.AddRow(8,
		text.NewCol(2, "Order", header),
		text.NewCol(2, "Product", header),
		text.NewCol(1, "Mode", header),
		text.NewCol(1, "Shipped", headerRight),
		text.NewCol(1, "Weight kg", headerRight),
		text.NewCol(1, "Product BDT", headerRight),
		text.NewCol(1, "Cargo BDT", headerRight),
		text.NewCol(2, "Revenue BDT", headerRight),
		text.NewCol(1, "Profit BDT", headerRight),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 8}
	cellRight := props.Text{Size: 8, Align: align.Right}
	for _, row := range data.Rows {
		m.AddRow(7,
			text.NewCol(2, row.OrderID, cell),
			text.NewCol(2, row.ProductID, cell),
			text.NewCol(1, row.PricingMode, cell),
			text.NewCol(1, row.ShippedQty, cellRight),
			text.NewCol(1, row.ShippedWeight, cellRight),
			text.NewCol(1, row.ProductCost, cellRight),
			text.NewCol(1, row.CargoCost, cellRight),
			text.NewCol(2, row.Revenue, cellRight),
			text.NewCol(1, row.Profit, cellRight),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		text.NewCol(5, "Totals", header),
		text.NewCol(1, "", header),
		text.NewCol(1, data.TotalShippedWeight, headerRight),
		text.NewCol(1, data.TotalProductCost, headerRight),
		text.NewCol(1, data.TotalCargoCost, headerRight),
		text.NewCol(2, data.TotalRevenue, headerRight),
		text.NewCol(1, data.TotalProfit, headerRight),
	)
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total cost BDT", header),
		text.NewCol(2, data.TotalCost, headerRight),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
