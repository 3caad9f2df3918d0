package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dashboard-service/internal/models"
)

// RecordRepository writes domain records produced by imports and serves the
// dashboard's aggregate queries. All writes are upsert-by-natural-key, so
// re-importing a corrected row for the same key overwrites instead of
// duplicating; concurrent imports touching the same keys converge to last
// write wins.
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// UpsertSales upserts a chunk of sales keyed by order_id+sku+color+size.
// Returns how many rows were newly created vs updated in place.
func (r *RecordRepository) UpsertSales(ctx context.Context, sales []models.Sale) (created, updated int, err error) {
	if len(sales) == 0 {
		return 0, 0, nil
	}

	keys := make([]string, len(sales))
	for i, s := range sales {
		keys[i] = s.OrderID + "|" + s.SKU + "|" + s.Color + "|" + s.Size
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("concat_ws('|', order_id, sku, color, size) IN ?", keys).
		Count(&existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for i := range sales {
		sales[i].CreatedAt = now
		sales[i].UpdatedAt = now
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}, {Name: "sku"}, {Name: "color"}, {Name: "size"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_name", "marketplace", "quantity", "amount", "status", "order_date", "updated_at",
		}),
	}).Create(&sales).Error
	if err != nil {
		return 0, 0, err
	}
	return len(sales) - int(existing), int(existing), nil
}

// UpsertProducts upserts a chunk of products keyed by code.
func (r *RecordRepository) UpsertProducts(ctx context.Context, products []models.Product) (created, updated int, err error) {
	if len(products) == 0 {
		return 0, 0, nil
	}

	codes := make([]string, len(products))
	for i, p := range products {
		codes[i] = p.Code
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("code IN ?", codes).
		Count(&existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for i := range products {
		products[i].CreatedAt = now
		products[i].UpdatedAt = now
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "brand", "color", "size", "barcode", "purchase_price", "sale_price", "updated_at",
		}),
	}).Create(&products).Error
	if err != nil {
		return 0, 0, err
	}
	return len(products) - int(existing), int(existing), nil
}

// UpsertStockMovements upserts a chunk keyed by sku+warehouse+movement_date.
func (r *RecordRepository) UpsertStockMovements(ctx context.Context, movements []models.StockMovement) (created, updated int, err error) {
	if len(movements) == 0 {
		return 0, 0, nil
	}

	keys := make([]string, len(movements))
	for i, m := range movements {
		keys[i] = m.SKU + "|" + m.Warehouse + "|" + m.MovementDate.Format("2006-01-02")
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.StockMovement{}).
		Where("concat_ws('|', sku, warehouse, to_char(movement_date, 'YYYY-MM-DD')) IN ?", keys).
		Count(&existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for i := range movements {
		movements[i].CreatedAt = now
		movements[i].UpdatedAt = now
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}, {Name: "warehouse"}, {Name: "movement_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"movement_type", "quantity", "updated_at",
		}),
	}).Create(&movements).Error
	if err != nil {
		return 0, 0, err
	}
	return len(movements) - int(existing), int(existing), nil
}

// UpsertAdvertisingRecords upserts a chunk keyed by campaign+platform+date.
func (r *RecordRepository) UpsertAdvertisingRecords(ctx context.Context, records []models.AdvertisingRecord) (created, updated int, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	keys := make([]string, len(records))
	for i, a := range records {
		keys[i] = a.Campaign + "|" + a.Platform + "|" + a.Date.Format("2006-01-02")
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.AdvertisingRecord{}).
		Where("concat_ws('|', campaign, platform, to_char(date, 'YYYY-MM-DD')) IN ?", keys).
		Count(&existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for i := range records {
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign"}, {Name: "platform"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cost", "impressions", "clicks", "orders", "updated_at",
		}),
	}).Create(&records).Error
	if err != nil {
		return 0, 0, err
	}
	return len(records) - int(existing), int(existing), nil
}

// UpsertSettlementRecords upserts a chunk keyed by order_id.
func (r *RecordRepository) UpsertSettlementRecords(ctx context.Context, records []models.SettlementRecord) (created, updated int, err error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	orderIDs := make([]string, len(records))
	for i, s := range records {
		orderIDs[i] = s.OrderID
	}
	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.SettlementRecord{}).
		Where("order_id IN ?", orderIDs).
		Count(&existing).Error; err != nil {
		return 0, 0, err
	}

	now := time.Now()
	for i := range records {
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sku", "settlement_date", "settlement_type", "amount", "commission", "updated_at",
		}),
	}).Create(&records).Error
	if err != nil {
		return 0, 0, err
	}
	return len(records) - int(existing), int(existing), nil
}

// ========== Report Aggregates ==========

// SalesSummaryRow is one marketplace's aggregate over a date range.
type SalesSummaryRow struct {
	Marketplace   string  `json:"marketplace"`
	Orders        int64   `json:"orders"`
	ItemsSold     int64   `json:"itemsSold"`
	Revenue       float64 `json:"revenue"`
	AvgOrderValue float64 `json:"avgOrderValue"`
}

// SalesSummary aggregates sales by marketplace within [from, to].
func (r *RecordRepository) SalesSummary(ctx context.Context, from, to time.Time) ([]SalesSummaryRow, error) {
	var rows []SalesSummaryRow
	err := r.db.WithContext(ctx).Model(&models.Sale{}).
		Select(`marketplace,
			COUNT(DISTINCT order_id) AS orders,
			COALESCE(SUM(quantity), 0) AS items_sold,
			COALESCE(SUM(amount), 0) AS revenue,
			CASE WHEN COUNT(DISTINCT order_id) > 0
				THEN COALESCE(SUM(amount), 0) / COUNT(DISTINCT order_id)
				ELSE 0 END AS avg_order_value`).
		Where("order_date >= ? AND order_date <= ?", from, to).
		Group("marketplace").
		Order("revenue DESC").
		Scan(&rows).Error
	return rows, err
}

// AdvertisingSummaryRow is one platform's aggregate over a date range.
type AdvertisingSummaryRow struct {
	Platform    string  `json:"platform"`
	Campaigns   int64   `json:"campaigns"`
	Cost        float64 `json:"cost"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Orders      int64   `json:"orders"`
}

// AdvertisingSummary aggregates advertising spend by platform within [from, to].
func (r *RecordRepository) AdvertisingSummary(ctx context.Context, from, to time.Time) ([]AdvertisingSummaryRow, error) {
	var rows []AdvertisingSummaryRow
	err := r.db.WithContext(ctx).Model(&models.AdvertisingRecord{}).
		Select(`platform,
			COUNT(DISTINCT campaign) AS campaigns,
			COALESCE(SUM(cost), 0) AS cost,
			COALESCE(SUM(impressions), 0) AS impressions,
			COALESCE(SUM(clicks), 0) AS clicks,
			COALESCE(SUM(orders), 0) AS orders`).
		Where("date >= ? AND date <= ?", from, to).
		Group("platform").
		Order("cost DESC").
		Scan(&rows).Error
	return rows, err
}
