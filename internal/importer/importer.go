package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"dashboard-service/internal/config"
	"dashboard-service/internal/models"
)

// BatchStore is the import-side persistence the orchestrator needs.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *models.ImportBatch) error
	UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	CreateHistory(ctx context.Context, history *models.ImportHistory) error
	CreateMetadata(ctx context.Context, records []models.ImportMetadata) error
}

// RecordStore writes domain records, one method per import type. Each call
// upserts a chunk by natural key and reports created vs updated counts.
type RecordStore interface {
	UpsertSales(ctx context.Context, sales []models.Sale) (created, updated int, err error)
	UpsertProducts(ctx context.Context, products []models.Product) (created, updated int, err error)
	UpsertStockMovements(ctx context.Context, movements []models.StockMovement) (created, updated int, err error)
	UpsertAdvertisingRecords(ctx context.Context, records []models.AdvertisingRecord) (created, updated int, err error)
	UpsertSettlementRecords(ctx context.Context, records []models.SettlementRecord) (created, updated int, err error)
}

// ImportEvent is the payload published on import completion or failure.
type ImportEvent struct {
	BatchID    string `json:"batchId"`
	ImportType string `json:"importType"`
	FileName   string `json:"fileName"`
	TotalRows  int    `json:"totalRows"`
	ValidRows  int    `json:"validRows"`
	Imported   int    `json:"imported"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// EventPublisher publishes import lifecycle events. Implementations must be
// safe for a nil receiver check by the caller; publishing is best-effort.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, event ImportEvent) error
	PublishImportFailed(ctx context.Context, event ImportEvent) error
}

// ErrFileRejected marks import errors caused by the uploaded file itself
// (wrong extension, unreadable content, zero rows, row limit) as opposed to
// faults in the service's own storage. Handlers map the former to client
// errors and the latter to server errors.
var ErrFileRejected = errors.New("file rejected")

// Options are per-request import flags.
type Options struct {
	// ValidateOnly parses and validates without writing any domain rows.
	ValidateOnly bool
	// RequireAllValid aborts the import when any row fails validation.
	RequireAllValid bool
}

// Outcome summarizes one finished (or failed) import run.
type Outcome struct {
	BatchID      uuid.UUID
	Status       models.ImportStatus
	TotalRows    int
	ValidRows    int
	InvalidRows  int
	Imported     int
	Created      int
	Updated      int
	DurationMs   int64
	SuccessRate  float64
	ErrorMessage string
	RowErrors    []models.RowError
}

// Service orchestrates the import pipeline: parse, resolve, validate,
// chunked upserts, batch bookkeeping, history and metadata handoff.
type Service struct {
	cfg     *config.Config
	batches BatchStore
	records RecordStore
	events  EventPublisher
	logger  *logrus.Entry
}

func NewService(cfg *config.Config, batches BatchStore, records RecordStore, events EventPublisher, logger *logrus.Logger) *Service {
	return &Service{
		cfg:     cfg,
		batches: batches,
		records: records,
		events:  events,
		logger:  logger.WithField("component", "importer"),
	}
}

// Import runs one upload end to end. A non-nil error means nothing was
// written: errors wrapping ErrFileRejected are faults of the uploaded file,
// anything else is a storage fault creating the batch record. Everything
// after batch creation is reported through the Outcome, including partial
// completion after a storage failure.
func (s *Service) Import(ctx context.Context, t models.ImportType, fileName string, data []byte, opts Options) (*Outcome, error) {
	started := time.Now()

	if !SupportedExtension(fileName) {
		return nil, fmt.Errorf("%w: unsupported file type %q, only .xlsx, .xls and .csv are accepted", ErrFileRejected, FileExtension(fileName))
	}

	rows, err := ParseFile(data, fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileRejected, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: the file contains no data rows", ErrFileRejected)
	}
	if len(rows) > s.cfg.MaxImportRows {
		return nil, fmt.Errorf("%w: file has %d rows, exceeding the limit of %d", ErrFileRejected, len(rows), s.cfg.MaxImportRows)
	}

	// total_records is always supplied at creation; downstream consumers
	// assume it is present.
	batch := &models.ImportBatch{
		ImportType:   t,
		FileName:     fileName,
		FileType:     FileExtension(fileName),
		TotalRecords: len(rows),
		Status:       models.ImportStatusProcessing,
	}
	if err := s.batches.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}

	outcome := &Outcome{
		BatchID:   batch.ID,
		TotalRows: len(rows),
	}

	var valids []ValidRow
	for _, raw := range rows {
		valid, rowErr := ValidateRow(t, raw)
		if rowErr != nil {
			outcome.RowErrors = append(outcome.RowErrors, *rowErr)
			continue
		}
		valids = append(valids, *valid)
	}
	outcome.ValidRows = len(valids)
	outcome.InvalidRows = len(rows) - len(valids)

	if opts.RequireAllValid && outcome.InvalidRows > 0 {
		outcome.Status = models.ImportStatusFailed
		outcome.ErrorMessage = fmt.Sprintf("%d of %d rows failed validation and the import requires all rows to be valid", outcome.InvalidRows, outcome.TotalRows)
		s.finalize(ctx, batch, outcome, fileName, data, valids, started)
		return outcome, nil
	}

	if opts.ValidateOnly {
		outcome.Status = models.ImportStatusCompleted
		outcome.DurationMs = time.Since(started).Milliseconds()
		s.updateBatch(ctx, batch.ID, outcome)
		return outcome, nil
	}

	s.upsertChunks(ctx, t, valids, outcome)

	if outcome.Status == "" {
		outcome.Status = models.ImportStatusCompleted
	}
	s.finalize(ctx, batch, outcome, fileName, data, valids, started)
	return outcome, nil
}

// upsertChunks writes valid rows in bounded chunks. A chunk never contains
// the same natural key twice (postgres rejects double-updating one row in a
// single INSERT), so repeated keys force an early flush and last write wins
// across chunks. Per-row storage errors become row errors; a fatal database
// error aborts the remaining chunks and leaves committed chunks intact.
func (s *Service) upsertChunks(ctx context.Context, t models.ImportType, valids []ValidRow, outcome *Outcome) {
	chunkSize := s.cfg.ImportBatchSize
	if chunkSize <= 0 {
		chunkSize = 1000
	}

	chunk := make([]ValidRow, 0, chunkSize)
	seen := make(map[string]struct{}, chunkSize)

	flush := func() bool {
		if len(chunk) == 0 {
			return true
		}
		ok := s.upsertChunk(ctx, t, chunk, outcome)
		chunk = chunk[:0]
		seen = make(map[string]struct{}, chunkSize)
		return ok
	}

	for _, row := range valids {
		key := row.NaturalKey(t)
		if _, dup := seen[key]; dup || len(chunk) >= chunkSize {
			if !flush() {
				return
			}
		}
		seen[key] = struct{}{}
		chunk = append(chunk, row)
	}
	flush()
}

// upsertChunk writes one chunk, falling back to row-by-row writes when the
// chunk fails so individual constraint violations surface as row errors.
// Returns false when the batch should stop (fatal database error).
func (s *Service) upsertChunk(ctx context.Context, t models.ImportType, chunk []ValidRow, outcome *Outcome) bool {
	created, updated, err := s.upsertRows(ctx, t, chunk)
	if err == nil {
		outcome.Created += created
		outcome.Updated += updated
		outcome.Imported += len(chunk)
		return true
	}

	if isFatalStorageError(err) {
		s.abortStorage(outcome, err)
		return false
	}

	s.logger.WithError(err).WithField("rows", len(chunk)).
		Warn("chunk upsert failed, retrying row by row")

	for _, row := range chunk {
		created, updated, rowErr := s.upsertRows(ctx, t, []ValidRow{row})
		if rowErr == nil {
			outcome.Created += created
			outcome.Updated += updated
			outcome.Imported++
			continue
		}
		if isFatalStorageError(rowErr) {
			s.abortStorage(outcome, rowErr)
			return false
		}
		outcome.RowErrors = append(outcome.RowErrors, models.RowError{
			Row:     row.Line,
			Message: fmt.Sprintf("database rejected row: %v", rowErr),
		})
	}
	return true
}

func (s *Service) abortStorage(outcome *Outcome, err error) {
	outcome.Status = models.ImportStatusFailed
	outcome.ErrorMessage = fmt.Sprintf("storage failure aborted the import: %v", err)
	s.logger.WithError(err).Error("fatal storage error, aborting remaining chunks")
}

func (s *Service) upsertRows(ctx context.Context, t models.ImportType, rows []ValidRow) (created, updated int, err error) {
	switch t {
	case models.ImportTypeSales:
		return s.records.UpsertSales(ctx, buildSales(rows))
	case models.ImportTypeProducts:
		return s.records.UpsertProducts(ctx, buildProducts(rows))
	case models.ImportTypeStock:
		return s.records.UpsertStockMovements(ctx, buildStockMovements(rows))
	case models.ImportTypeAdvertising:
		return s.records.UpsertAdvertisingRecords(ctx, buildAdvertisingRecords(rows))
	case models.ImportTypeAdvertisingSettlement:
		return s.records.UpsertSettlementRecords(ctx, buildSettlementRecords(rows))
	}
	return 0, 0, fmt.Errorf("unknown import type %q", t)
}

// finalize updates the batch, writes the history entry and hands off to the
// metadata analyzer and event publisher. History, metadata and events are
// best-effort: their failure is logged and never fails the import.
func (s *Service) finalize(ctx context.Context, batch *models.ImportBatch, outcome *Outcome, fileName string, data []byte, valids []ValidRow, started time.Time) {
	outcome.DurationMs = time.Since(started).Milliseconds()
	if outcome.TotalRows > 0 {
		outcome.SuccessRate = float64(outcome.Imported) / float64(outcome.TotalRows) * 100
	}

	s.updateBatch(ctx, batch.ID, outcome)

	history := &models.ImportHistory{
		BatchID:         batch.ID,
		ImportType:      batch.ImportType,
		FileName:        fileName,
		FileSize:        int64(len(data)),
		FileHash:        FileHash(data),
		TotalRecords:    outcome.TotalRows,
		ValidRecords:    outcome.ValidRows,
		InvalidRecords:  outcome.InvalidRows,
		ImportedRecords: outcome.Imported,
		SuccessRate:     outcome.SuccessRate,
		DurationMs:      outcome.DurationMs,
		Status:          outcome.Status,
	}
	if summary := s.summarize(outcome); summary != "" {
		history.Summary = &summary
	}
	if err := s.batches.CreateHistory(ctx, history); err != nil {
		s.logger.WithError(err).Warn("failed to record import history")
	} else {
		s.persistMetadata(ctx, history.ID, batch.ImportType, fileName, data, valids, outcome)
	}

	s.publish(ctx, batch, outcome, fileName)
}

func (s *Service) updateBatch(ctx context.Context, id uuid.UUID, outcome *Outcome) {
	updates := map[string]interface{}{
		"valid_records":    outcome.ValidRows,
		"invalid_records":  outcome.InvalidRows,
		"imported_records": outcome.Imported,
		"status":           outcome.Status,
	}
	if outcome.ErrorMessage != "" {
		updates["error_message"] = outcome.ErrorMessage
	}
	if err := s.batches.UpdateBatch(ctx, id, updates); err != nil {
		s.logger.WithError(err).Error("failed to update import batch")
	}
}

// persistMetadata computes and stores batch aggregates. Metadata is
// advisory and audit-only: any failure here is logged and swallowed.
func (s *Service) persistMetadata(ctx context.Context, historyID uuid.UUID, t models.ImportType, fileName string, data []byte, valids []ValidRow, outcome *Outcome) {
	metaRecords := Analyze(t, valids)
	metaRecords = append(metaRecords, FileInfoRecord(fileName, int64(len(data)), FileHash(data)))
	chunks := 0
	if s.cfg.ImportBatchSize > 0 {
		chunks = (len(valids) + s.cfg.ImportBatchSize - 1) / s.cfg.ImportBatchSize
	}
	metaRecords = append(metaRecords, ProcessingInfoRecord(outcome.DurationMs, s.cfg.ImportBatchSize, chunks))

	rows := make([]models.ImportMetadata, 0, len(metaRecords))
	for _, record := range metaRecords {
		payload, err := marshalPayload(record.Payload)
		if err != nil {
			s.logger.WithError(err).WithField("metadataType", record.Type).Warn("failed to encode import metadata")
			continue
		}
		rows = append(rows, models.ImportMetadata{
			HistoryID:    historyID,
			MetadataType: record.Type,
			Payload:      payload,
		})
	}
	if err := s.batches.CreateMetadata(ctx, rows); err != nil {
		s.logger.WithError(err).Warn("failed to persist import metadata")
	}
}

func (s *Service) publish(ctx context.Context, batch *models.ImportBatch, outcome *Outcome, fileName string) {
	if s.events == nil {
		return
	}
	event := ImportEvent{
		BatchID:    batch.ID.String(),
		ImportType: string(batch.ImportType),
		FileName:   fileName,
		TotalRows:  outcome.TotalRows,
		ValidRows:  outcome.ValidRows,
		Imported:   outcome.Imported,
		DurationMs: outcome.DurationMs,
		Error:      outcome.ErrorMessage,
	}

	var err error
	if outcome.Status == models.ImportStatusFailed {
		err = s.events.PublishImportFailed(ctx, event)
	} else {
		err = s.events.PublishImportCompleted(ctx, event)
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to publish import event")
	}
}

func (s *Service) summarize(outcome *Outcome) string {
	if outcome.ErrorMessage != "" {
		return outcome.ErrorMessage
	}
	return fmt.Sprintf("imported %d of %d rows (%d created, %d updated, %d invalid)",
		outcome.Imported, outcome.TotalRows, outcome.Created, outcome.Updated, outcome.InvalidRows)
}

func marshalPayload(payload map[string]interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// isFatalStorageError distinguishes connectivity loss, which aborts the
// remaining chunks, from per-row constraint violations, which do not.
func isFatalStorageError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "bad connection", "database is closed"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ========== Row Builders ==========

func buildSales(rows []ValidRow) []models.Sale {
	sales := make([]models.Sale, 0, len(rows))
	for _, row := range rows {
		orderDate, _ := row.Date(FieldOrderDate)
		sales = append(sales, models.Sale{
			OrderID:     row.String(FieldOrderID),
			SKU:         row.String(FieldSKU),
			Color:       row.String(FieldColor),
			Size:        row.String(FieldSize),
			ProductName: row.String(FieldProductName),
			Marketplace: row.String(FieldMarketplace),
			Quantity:    int(row.Int(FieldQuantity)),
			Amount:      row.Number(FieldAmount),
			Status:      row.String(FieldStatus),
			OrderDate:   orderDate,
		})
	}
	return sales
}

func buildProducts(rows []ValidRow) []models.Product {
	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, models.Product{
			Code:          row.String(FieldCode),
			Name:          row.String(FieldName),
			Category:      row.String(FieldCategory),
			Brand:         row.String(FieldBrand),
			Color:         row.String(FieldColor),
			Size:          row.String(FieldSize),
			Barcode:       row.String(FieldBarcode),
			PurchasePrice: row.Number(FieldPurchasePrice),
			SalePrice:     row.Number(FieldSalePrice),
		})
	}
	return products
}

func buildStockMovements(rows []ValidRow) []models.StockMovement {
	movements := make([]models.StockMovement, 0, len(rows))
	for _, row := range rows {
		movementDate, _ := row.Date(FieldMovementDate)
		movements = append(movements, models.StockMovement{
			SKU:          row.String(FieldSKU),
			Warehouse:    row.String(FieldWarehouse),
			MovementDate: movementDate,
			MovementType: row.String(FieldMovementType),
			Quantity:     int(row.Int(FieldQuantity)),
		})
	}
	return movements
}

func buildAdvertisingRecords(rows []ValidRow) []models.AdvertisingRecord {
	records := make([]models.AdvertisingRecord, 0, len(rows))
	for _, row := range rows {
		date, _ := row.Date(FieldDate)
		records = append(records, models.AdvertisingRecord{
			Campaign:    row.String(FieldCampaign),
			Platform:    row.String(FieldPlatform),
			Date:        date,
			Cost:        row.Number(FieldCost),
			Impressions: row.Int(FieldImpressions),
			Clicks:      row.Int(FieldClicks),
			Orders:      int(row.Int(FieldOrders)),
		})
	}
	return records
}

func buildSettlementRecords(rows []ValidRow) []models.SettlementRecord {
	records := make([]models.SettlementRecord, 0, len(rows))
	for _, row := range rows {
		settlementDate, _ := row.Date(FieldSettlementDate)
		records = append(records, models.SettlementRecord{
			OrderID:        row.String(FieldOrderID),
			SKU:            row.String(FieldSKU),
			SettlementDate: settlementDate,
			SettlementType: row.String(FieldSettlementType),
			Amount:         row.Number(FieldAmount),
			Commission:     row.Number(FieldCommission),
		})
	}
	return records
}
