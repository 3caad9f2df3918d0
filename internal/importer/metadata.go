package importer

import (
	"time"

	"dashboard-service/internal/models"
)

// MetadataRecord is one aggregate payload derived from a parsed batch,
// tagged with its metadata type. Records are persisted as ImportMetadata
// rows for auditing and duplicate-risk scoring; persisting them is always
// best-effort and never fails the parent import.
type MetadataRecord struct {
	Type    string
	Payload map[string]interface{}
}

// dateFields lists the date-kind fields of each import type, used to
// extract the batch's business date coverage.
func dateFields(t models.ImportType) []Field {
	var fields []Field
	for _, spec := range FieldSpecs(t) {
		if spec.Kind == KindDate {
			fields = append(fields, spec.Field)
		}
	}
	return fields
}

// ComputeDateRange scans all recognized date fields of the valid rows and
// returns the earliest and latest business dates found. ok is false when no
// row carries a parsed date.
func ComputeDateRange(t models.ImportType, rows []ValidRow) (from, to time.Time, ok bool) {
	fields := dateFields(t)
	for _, row := range rows {
		for _, f := range fields {
			ts, present := row.Date(f)
			if !present {
				continue
			}
			if !ok || ts.Before(from) {
				from = ts
			}
			if !ok || ts.After(to) {
				to = ts
			}
			ok = true
		}
	}
	return from, to, ok
}

// Analyze computes type-specific aggregates plus the overall date range for
// a batch of valid rows.
func Analyze(t models.ImportType, rows []ValidRow) []MetadataRecord {
	var records []MetadataRecord

	if from, to, ok := ComputeDateRange(t, rows); ok {
		records = append(records, MetadataRecord{
			Type: models.MetadataTypeDateRange,
			Payload: map[string]interface{}{
				"from":        from.Format("2006-01-02"),
				"to":          to.Format("2006-01-02"),
				"recordCount": len(rows),
			},
		})
	}

	switch t {
	case models.ImportTypeSales:
		records = append(records, analyzeSales(rows))
	case models.ImportTypeProducts:
		records = append(records, analyzeProducts(rows))
	case models.ImportTypeAdvertising:
		records = append(records, analyzeAdvertising(rows))
	case models.ImportTypeAdvertisingSettlement:
		records = append(records, analyzeSettlement(rows))
	}

	return records
}

func analyzeSales(rows []ValidRow) MetadataRecord {
	orders := make(map[string]struct{})
	marketplaces := make(map[string]struct{})
	products := make(map[string]struct{})
	var revenue float64

	for _, row := range rows {
		if v := row.String(FieldOrderID); v != "" {
			orders[v] = struct{}{}
		}
		if v := row.String(FieldMarketplace); v != "" {
			marketplaces[v] = struct{}{}
		}
		if v := row.String(FieldSKU); v != "" {
			products[v] = struct{}{}
		}
		revenue += row.Number(FieldAmount)
	}

	avgOrderValue := 0.0
	if len(orders) > 0 {
		avgOrderValue = revenue / float64(len(orders))
	}

	return MetadataRecord{
		Type: models.MetadataTypeSales,
		Payload: map[string]interface{}{
			"uniqueOrders":       len(orders),
			"uniqueMarketplaces": len(marketplaces),
			"uniqueProducts":     len(products),
			"totalRevenue":       revenue,
			"averageOrderValue":  avgOrderValue,
		},
	}
}

func analyzeProducts(rows []ValidRow) MetadataRecord {
	categories := make(map[string]struct{})
	brands := make(map[string]struct{})
	codes := make(map[string]struct{})

	for _, row := range rows {
		if v := row.String(FieldCategory); v != "" {
			categories[v] = struct{}{}
		}
		if v := row.String(FieldBrand); v != "" {
			brands[v] = struct{}{}
		}
		if v := row.String(FieldCode); v != "" {
			codes[v] = struct{}{}
		}
	}

	return MetadataRecord{
		Type: models.MetadataTypeProduct,
		Payload: map[string]interface{}{
			"uniqueCategories": len(categories),
			"uniqueBrands":     len(brands),
			"uniqueCodes":      len(codes),
		},
	}
}

func analyzeAdvertising(rows []ValidRow) MetadataRecord {
	campaigns := make(map[string]struct{})
	platforms := make(map[string]struct{})
	var cost float64
	var impressions, clicks int64

	for _, row := range rows {
		if v := row.String(FieldCampaign); v != "" {
			campaigns[v] = struct{}{}
		}
		if v := row.String(FieldPlatform); v != "" {
			platforms[v] = struct{}{}
		}
		cost += row.Number(FieldCost)
		impressions += row.Int(FieldImpressions)
		clicks += row.Int(FieldClicks)
	}

	return MetadataRecord{
		Type: models.MetadataTypeAdvertising,
		Payload: map[string]interface{}{
			"uniqueCampaigns":  len(campaigns),
			"uniquePlatforms":  len(platforms),
			"totalCost":        cost,
			"totalImpressions": impressions,
			"totalClicks":      clicks,
		},
	}
}

func analyzeSettlement(rows []ValidRow) MetadataRecord {
	orders := make(map[string]struct{})
	types := make(map[string]struct{})
	var total float64

	for _, row := range rows {
		if v := row.String(FieldOrderID); v != "" {
			orders[v] = struct{}{}
		}
		if v := row.String(FieldSettlementType); v != "" {
			types[v] = struct{}{}
		}
		total += row.Number(FieldAmount)
	}

	avg := 0.0
	if len(rows) > 0 {
		avg = total / float64(len(rows))
	}

	return MetadataRecord{
		Type: models.MetadataTypeSettlement,
		Payload: map[string]interface{}{
			"uniqueOrders":            len(orders),
			"settlementTypes":         len(types),
			"totalSettlementAmount":   total,
			"averageSettlementAmount": avg,
		},
	}
}

// FileInfoRecord builds the file_info metadata payload.
func FileInfoRecord(fileName string, fileSize int64, fileHash string) MetadataRecord {
	return MetadataRecord{
		Type: models.MetadataTypeFileInfo,
		Payload: map[string]interface{}{
			"fileName": fileName,
			"fileSize": fileSize,
			"fileHash": fileHash,
		},
	}
}

// ProcessingInfoRecord builds the processing_info metadata payload.
func ProcessingInfoRecord(durationMs int64, batchSize, chunks int) MetadataRecord {
	return MetadataRecord{
		Type: models.MetadataTypeProcessingInfo,
		Payload: map[string]interface{}{
			"durationMs": durationMs,
			"batchSize":  batchSize,
			"chunks":     chunks,
		},
	}
}
