package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateShipmentStatement(t *testing.T) {
	r, err := New().GenerateShipmentStatement(context.Background(), StatementData{
		ShipmentName: "Air March",
		ShipmentID:   "20",
		Status:       "received",
		Rows: []StatementRow{
			{OrderID: "10", ProductID: "tea-01", ShippedQty: "100", Revenue: "33600", Profit: "6000"},
		},
		TotalRevenue: "33600",
		TotalProfit:  "6000",
	})
	require.NoError(t, err)

	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, len(body) > 4)
	assert.Equal(t, "%PDF", string(body[:4]))
}

func TestGenerateShipmentStatementRequiresID(t *testing.T) {
	_, err := New().GenerateShipmentStatement(context.Background(), StatementData{})
	assert.Error(t, err)
}
