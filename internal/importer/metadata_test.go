package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard-service/internal/models"
)

func validSale(orderID, sku, marketplace string, amount float64, day int) ValidRow {
	return ValidRow{Values: map[Field]interface{}{
		FieldOrderID:     orderID,
		FieldSKU:         sku,
		FieldMarketplace: marketplace,
		FieldAmount:      amount,
		FieldOrderDate:   date(2025, time.February, day),
	}}
}

func TestComputeDateRange(t *testing.T) {
	rows := []ValidRow{
		validSale("A", "S1", "WB", 100, 10),
		validSale("B", "S2", "WB", 100, 3),
		validSale("C", "S3", "WB", 100, 21),
	}

	from, to, ok := ComputeDateRange(models.ImportTypeSales, rows)

	assert.True(t, ok)
	assert.Equal(t, date(2025, time.February, 3), from)
	assert.Equal(t, date(2025, time.February, 21), to)
}

func TestComputeDateRange_NoDates(t *testing.T) {
	rows := []ValidRow{
		{Values: map[Field]interface{}{FieldOrderID: "A"}},
	}

	_, _, ok := ComputeDateRange(models.ImportTypeSales, rows)
	assert.False(t, ok)
}

func TestAnalyze_Sales(t *testing.T) {
	rows := []ValidRow{
		validSale("ORD-1", "TS-001", "Wildberries", 1000, 1),
		validSale("ORD-1", "TS-002", "Wildberries", 500, 1),
		validSale("ORD-2", "TS-001", "Ozon", 1500, 5),
	}

	records := Analyze(models.ImportTypeSales, rows)
	require.Len(t, records, 2)

	assert.Equal(t, models.MetadataTypeDateRange, records[0].Type)
	assert.Equal(t, "2025-02-01", records[0].Payload["from"])
	assert.Equal(t, "2025-02-05", records[0].Payload["to"])
	assert.Equal(t, 3, records[0].Payload["recordCount"])

	sales := records[1]
	assert.Equal(t, models.MetadataTypeSales, sales.Type)
	assert.Equal(t, 2, sales.Payload["uniqueOrders"])
	assert.Equal(t, 2, sales.Payload["uniqueMarketplaces"])
	assert.Equal(t, 2, sales.Payload["uniqueProducts"])
	assert.Equal(t, 3000.0, sales.Payload["totalRevenue"])
	assert.Equal(t, 1500.0, sales.Payload["averageOrderValue"])
}

func TestAnalyze_Settlement(t *testing.T) {
	rows := []ValidRow{
		{Values: map[Field]interface{}{
			FieldOrderID:        "ORD-1",
			FieldSettlementType: "commission",
			FieldAmount:         100.0,
			FieldSettlementDate: date(2025, time.February, 5),
		}},
		{Values: map[Field]interface{}{
			FieldOrderID:        "ORD-2",
			FieldSettlementType: "refund",
			FieldAmount:         -50.0,
			FieldSettlementDate: date(2025, time.February, 6),
		}},
	}

	records := Analyze(models.ImportTypeAdvertisingSettlement, rows)
	require.Len(t, records, 2)

	settlement := records[1]
	assert.Equal(t, models.MetadataTypeSettlement, settlement.Type)
	assert.Equal(t, 2, settlement.Payload["uniqueOrders"])
	assert.Equal(t, 2, settlement.Payload["settlementTypes"])
	assert.Equal(t, 50.0, settlement.Payload["totalSettlementAmount"])
	assert.Equal(t, 25.0, settlement.Payload["averageSettlementAmount"])
}

func TestAnalyze_Advertising(t *testing.T) {
	rows := []ValidRow{
		{Values: map[Field]interface{}{
			FieldCampaign:    "Spring",
			FieldPlatform:    "WB Ads",
			FieldCost:        1500.0,
			FieldImpressions: int64(10000),
			FieldClicks:      int64(250),
			FieldDate:        date(2025, time.February, 1),
		}},
		{Values: map[Field]interface{}{
			FieldCampaign:    "Spring",
			FieldPlatform:    "Ozon Ads",
			FieldCost:        500.0,
			FieldImpressions: int64(2000),
			FieldClicks:      int64(50),
			FieldDate:        date(2025, time.February, 2),
		}},
	}

	records := Analyze(models.ImportTypeAdvertising, rows)
	require.Len(t, records, 2)

	adv := records[1]
	assert.Equal(t, 1, adv.Payload["uniqueCampaigns"])
	assert.Equal(t, 2, adv.Payload["uniquePlatforms"])
	assert.Equal(t, 2000.0, adv.Payload["totalCost"])
	assert.Equal(t, int64(12000), adv.Payload["totalImpressions"])
	assert.Equal(t, int64(300), adv.Payload["totalClicks"])
}

func TestAnalyze_StockHasDateRangeOnly(t *testing.T) {
	rows := []ValidRow{
		{Values: map[Field]interface{}{
			FieldSKU:          "TS-001",
			FieldWarehouse:    "Moscow",
			FieldMovementDate: date(2025, time.February, 1),
		}},
	}

	records := Analyze(models.ImportTypeStock, rows)
	require.Len(t, records, 1)
	assert.Equal(t, models.MetadataTypeDateRange, records[0].Type)
}
