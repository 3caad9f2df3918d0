package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"dashboard-service/internal/importer"
	"dashboard-service/internal/models"
)

// Cache TTL constants
const (
	DuplicateCheckCacheTTL = 10 * time.Minute // keyed by file hash; content-addressed, safe to cache
	HistoryListCacheTTL    = 2 * time.Minute  // invalidated on every new history row anyway
)

const historyListCachePrefix = "dashboard:imports:history:"

// ImportRepository persists import batches, history entries, metadata and
// duplicate-check logs. Redis is optional; a nil client disables caching.
type ImportRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewImportRepository(db *gorm.DB, redisClient *redis.Client) *ImportRepository {
	return &ImportRepository{db: db, redis: redisClient}
}

// RedisEnabled reports whether a Redis client was configured.
func (r *ImportRepository) RedisEnabled() bool {
	return r.redis != nil
}

// RedisHealth returns the health status of the Redis connection.
func (r *ImportRepository) RedisHealth(ctx context.Context) error {
	if r.redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return r.redis.Ping(ctx).Err()
}

// DBHealth checks database connectivity.
func (r *ImportRepository) DBHealth(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ========== Import Batch Operations ==========

// CreateBatch creates a new import batch in PROCESSING status.
func (r *ImportRepository) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	batch.CreatedAt = time.Now()
	batch.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Create(batch).Error
}

// UpdateBatch applies final counts and status to a batch.
func (r *ImportRepository) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// GetBatchByID retrieves an import batch by ID.
func (r *ImportRepository) GetBatchByID(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error
	return &batch, err
}

// ========== Import History Operations ==========

// CreateHistory records a completed import and invalidates list caches.
func (r *ImportRepository) CreateHistory(ctx context.Context, history *models.ImportHistory) error {
	history.CreatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(history).Error; err != nil {
		return err
	}
	r.invalidateHistoryCaches(ctx)
	return nil
}

// GetHistoryByID retrieves one history entry with its metadata records.
func (r *ImportRepository) GetHistoryByID(ctx context.Context, id uuid.UUID) (*models.ImportHistory, error) {
	var history models.ImportHistory
	err := r.db.WithContext(ctx).
		Preload("MetadataRecords").
		Where("id = ?", id).
		First(&history).Error
	return &history, err
}

// ListHistory retrieves history entries, newest first, optionally filtered
// by import type.
func (r *ImportRepository) ListHistory(ctx context.Context, importType *models.ImportType, page, limit int) ([]models.ImportHistory, int64, error) {
	cacheKey := fmt.Sprintf("%slist:%v:%d:%d", historyListCachePrefix, importType, page, limit)
	if cached, ok := r.cachedHistoryList(ctx, cacheKey); ok {
		return cached.Items, cached.Total, nil
	}

	var items []models.ImportHistory
	var total int64
	query := r.db.WithContext(ctx).Model(&models.ImportHistory{})
	if importType != nil {
		query = query.Where("import_type = ?", *importType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page > 0 && limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	if err := query.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	r.storeHistoryList(ctx, cacheKey, items, total)
	return items, total, nil
}

// FindHistoryByFileHash returns the most recent history entry whose stored
// file hash matches. gorm.ErrRecordNotFound is passed through when none do.
func (r *ImportRepository) FindHistoryByFileHash(ctx context.Context, hash string) (*models.ImportHistory, error) {
	var history models.ImportHistory
	err := r.db.WithContext(ctx).
		Where("file_hash = ?", hash).
		Order("created_at DESC").
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// ListHistoryDateRanges loads recent history entries of a type together
// with their stored date_range metadata, for duplicate-risk scoring.
// Entries without a parseable date range are skipped.
func (r *ImportRepository) ListHistoryDateRanges(ctx context.Context, importType models.ImportType, limit int) ([]importer.HistoryDateRange, error) {
	var histories []models.ImportHistory
	err := r.db.WithContext(ctx).
		Preload("MetadataRecords", "metadata_type = ?", models.MetadataTypeDateRange).
		Where("import_type = ? AND status = ?", importType, models.ImportStatusCompleted).
		Order("created_at DESC").
		Limit(limit).
		Find(&histories).Error
	if err != nil {
		return nil, err
	}

	var ranges []importer.HistoryDateRange
	for _, h := range histories {
		for _, meta := range h.MetadataRecords {
			var payload struct {
				From        string `json:"from"`
				To          string `json:"to"`
				RecordCount int    `json:"recordCount"`
			}
			if err := json.Unmarshal(meta.Payload, &payload); err != nil {
				continue
			}
			from, errFrom := time.Parse("2006-01-02", payload.From)
			to, errTo := time.Parse("2006-01-02", payload.To)
			if errFrom != nil || errTo != nil {
				continue
			}
			ranges = append(ranges, importer.HistoryDateRange{
				History:     h,
				From:        from,
				To:          to,
				RecordCount: payload.RecordCount,
			})
			break
		}
	}
	return ranges, nil
}

// ========== Import Metadata Operations ==========

// CreateMetadata persists metadata records for a history entry.
func (r *ImportRepository) CreateMetadata(ctx context.Context, records []models.ImportMetadata) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

// ========== Duplicate Check Operations ==========

// LogDuplicateCheck records one pre-import duplicate-check invocation.
func (r *ImportRepository) LogDuplicateCheck(ctx context.Context, log *models.DuplicateCheckLog) error {
	log.CreatedAt = time.Now()
	return r.db.WithContext(ctx).Create(log).Error
}

// CachedDuplicateCheck returns a previously computed check result for a
// file hash, if one is cached.
func (r *ImportRepository) CachedDuplicateCheck(ctx context.Context, importType models.ImportType, hash string) (*models.DuplicateCheckData, bool) {
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, duplicateCheckCacheKey(importType, hash)).Bytes()
	if err != nil {
		return nil, false
	}
	var data models.DuplicateCheckData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	return &data, true
}

// StoreDuplicateCheck caches a check result by file hash.
func (r *ImportRepository) StoreDuplicateCheck(ctx context.Context, importType models.ImportType, hash string, data *models.DuplicateCheckData) {
	if r.redis == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	_ = r.redis.Set(ctx, duplicateCheckCacheKey(importType, hash), raw, DuplicateCheckCacheTTL).Err()
}

func duplicateCheckCacheKey(importType models.ImportType, hash string) string {
	return fmt.Sprintf("dashboard:imports:dupcheck:%s:%s", importType, hash)
}

// ========== Cache Helpers ==========

type cachedHistoryPage struct {
	Items []models.ImportHistory `json:"items"`
	Total int64                  `json:"total"`
}

func (r *ImportRepository) cachedHistoryList(ctx context.Context, key string) (*cachedHistoryPage, bool) {
	if r.redis == nil {
		return nil, false
	}
	raw, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var page cachedHistoryPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false
	}
	return &page, true
}

func (r *ImportRepository) storeHistoryList(ctx context.Context, key string, items []models.ImportHistory, total int64) {
	if r.redis == nil {
		return
	}
	raw, err := json.Marshal(cachedHistoryPage{Items: items, Total: total})
	if err != nil {
		return
	}
	_ = r.redis.Set(ctx, key, raw, HistoryListCacheTTL).Err()
}

// invalidateHistoryCaches drops all cached history pages. New history rows
// are written once per import, so a SCAN here is cheap.
func (r *ImportRepository) invalidateHistoryCaches(ctx context.Context) {
	if r.redis == nil {
		return
	}
	iter := r.redis.Scan(ctx, 0, historyListCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = r.redis.Del(ctx, iter.Val()).Err()
	}
}
