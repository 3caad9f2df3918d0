package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dashboard-service/internal/config"
	"dashboard-service/internal/models"
)

// MockBatchStore is a mock implementation of BatchStore
type MockBatchStore struct {
	mock.Mock
}

var _ BatchStore = (*MockBatchStore)(nil)

func (m *MockBatchStore) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	args := m.Called(ctx, batch)
	if args.Error(0) == nil && batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockBatchStore) UpdateBatch(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockBatchStore) CreateHistory(ctx context.Context, history *models.ImportHistory) error {
	args := m.Called(ctx, history)
	if args.Error(0) == nil && history.ID == uuid.Nil {
		history.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockBatchStore) CreateMetadata(ctx context.Context, records []models.ImportMetadata) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// MockRecordStore is a mock implementation of RecordStore
type MockRecordStore struct {
	mock.Mock
}

var _ RecordStore = (*MockRecordStore)(nil)

func (m *MockRecordStore) UpsertSales(ctx context.Context, sales []models.Sale) (int, int, error) {
	args := m.Called(ctx, sales)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRecordStore) UpsertProducts(ctx context.Context, products []models.Product) (int, int, error) {
	args := m.Called(ctx, products)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRecordStore) UpsertStockMovements(ctx context.Context, movements []models.StockMovement) (int, int, error) {
	args := m.Called(ctx, movements)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRecordStore) UpsertAdvertisingRecords(ctx context.Context, records []models.AdvertisingRecord) (int, int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *MockRecordStore) UpsertSettlementRecords(ctx context.Context, records []models.SettlementRecord) (int, int, error) {
	args := m.Called(ctx, records)
	return args.Int(0), args.Int(1), args.Error(2)
}

func testConfig() *config.Config {
	return &config.Config{
		MaxImportRows:    50000,
		ImportBatchSize:  1000,
		ImportErrorLimit: 100,
	}
}

func newTestService(batches *MockBatchStore, records *MockRecordStore) *Service {
	return NewService(testConfig(), batches, records, nil, quietLogger())
}

const settlementCSV = "Order ID,Settlement Date,Settlement Amount\n" +
	"ORD-1,2025-02-05,\"555,000\"\n" +
	",2025-02-06,200.00\n" +
	"ORD-3,2025-02-07,-45.00\n"

func TestImport_SettlementWithOneInvalidRow(t *testing.T) {
	ctx := context.Background()

	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)
	batches.On("CreateHistory", ctx, mock.Anything).Return(nil)
	batches.On("CreateMetadata", ctx, mock.Anything).Return(nil)
	records.On("UpsertSettlementRecords", ctx, mock.Anything).Return(2, 0, nil)

	service := newTestService(batches, records)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(settlementCSV), Options{})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, outcome.Status)
	assert.Equal(t, 3, outcome.TotalRows)
	assert.Equal(t, 2, outcome.ValidRows)
	assert.Equal(t, 1, outcome.InvalidRows)
	assert.Equal(t, 2, outcome.Imported)
	assert.Equal(t, 2, outcome.Created)
	require.Len(t, outcome.RowErrors, 1)
	assert.Equal(t, 3, outcome.RowErrors[0].Row)
	assert.Equal(t, "order_id", outcome.RowErrors[0].Field)

	batches.AssertExpectations(t)
	records.AssertExpectations(t)
}

func TestImport_ValidateOnlyWritesNothing(t *testing.T) {
	ctx := context.Background()

	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)

	service := newTestService(batches, records)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(settlementCSV), Options{ValidateOnly: true})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, outcome.Status)
	assert.Equal(t, 2, outcome.ValidRows)
	assert.Equal(t, 0, outcome.Imported)

	records.AssertNotCalled(t, "UpsertSettlementRecords", mock.Anything, mock.Anything)
	batches.AssertNotCalled(t, "CreateHistory", mock.Anything, mock.Anything)
}

func TestImport_RequireAllValidAborts(t *testing.T) {
	ctx := context.Background()

	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)
	batches.On("CreateHistory", ctx, mock.Anything).Return(nil)
	batches.On("CreateMetadata", ctx, mock.Anything).Return(nil)

	service := newTestService(batches, records)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(settlementCSV), Options{RequireAllValid: true})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusFailed, outcome.Status)
	assert.Equal(t, 0, outcome.Imported)
	assert.NotEmpty(t, outcome.ErrorMessage)

	records.AssertNotCalled(t, "UpsertSettlementRecords", mock.Anything, mock.Anything)
}

func TestImport_UnsupportedExtension(t *testing.T) {
	service := newTestService(new(MockBatchStore), new(MockRecordStore))

	_, err := service.Import(context.Background(), models.ImportTypeSales, "report.pdf", []byte("x"), Options{})

	assert.ErrorIs(t, err, ErrFileRejected)
}

func TestImport_EmptyFile(t *testing.T) {
	service := newTestService(new(MockBatchStore), new(MockRecordStore))

	_, err := service.Import(context.Background(), models.ImportTypeSales, "empty.csv", []byte("Order ID,SKU\n"), Options{})

	assert.ErrorIs(t, err, ErrFileRejected)
}

func TestImport_RowLimitExceeded(t *testing.T) {
	batches := new(MockBatchStore)
	cfg := testConfig()
	cfg.MaxImportRows = 2
	service := NewService(cfg, batches, new(MockRecordStore), nil, quietLogger())

	_, err := service.Import(context.Background(), models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(settlementCSV), Options{})

	assert.ErrorIs(t, err, ErrFileRejected)
	batches.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
}

func TestImport_CreateBatchFailureIsNotFileRejection(t *testing.T) {
	// A storage fault creating the batch record is the service's problem,
	// not the uploaded file's; it must not carry the rejection sentinel.
	ctx := context.Background()
	batches := new(MockBatchStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(errors.New("driver: bad connection"))

	service := newTestService(batches, new(MockRecordStore))
	_, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(settlementCSV), Options{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFileRejected)
}

func TestImport_RepeatedKeysSplitAcrossChunks(t *testing.T) {
	// Two rows with the same natural key must never land in the same
	// INSERT; the second write wins.
	ctx := context.Background()
	csvData := "Order ID,Settlement Date,Settlement Amount\n" +
		"ORD-1,2025-02-05,100\n" +
		"ORD-1,2025-02-05,200\n"

	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)
	batches.On("CreateHistory", ctx, mock.Anything).Return(nil)
	batches.On("CreateMetadata", ctx, mock.Anything).Return(nil)
	records.On("UpsertSettlementRecords", ctx, mock.MatchedBy(func(rows []models.SettlementRecord) bool {
		return len(rows) == 1
	})).Return(1, 0, nil).Once()
	records.On("UpsertSettlementRecords", ctx, mock.MatchedBy(func(rows []models.SettlementRecord) bool {
		return len(rows) == 1
	})).Return(0, 1, nil).Once()

	service := newTestService(batches, records)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(csvData), Options{})

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Imported)
	assert.Equal(t, 1, outcome.Created)
	assert.Equal(t, 1, outcome.Updated)
	records.AssertNumberOfCalls(t, "UpsertSettlementRecords", 2)
}

func TestImport_ChunkFailureFallsBackRowByRow(t *testing.T) {
	ctx := context.Background()
	csvData := "Order ID,Settlement Date,Settlement Amount\n" +
		"ORD-1,2025-02-05,100\n" +
		"ORD-2,2025-02-06,200\n"

	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)
	batches.On("CreateHistory", ctx, mock.Anything).Return(nil)
	batches.On("CreateMetadata", ctx, mock.Anything).Return(nil)

	// The two-row chunk fails, then per-row retries: one succeeds, one is
	// rejected by a constraint.
	records.On("UpsertSettlementRecords", ctx, mock.MatchedBy(func(rows []models.SettlementRecord) bool {
		return len(rows) == 2
	})).Return(0, 0, errors.New("value too long for type character varying(100)")).Once()
	records.On("UpsertSettlementRecords", ctx, mock.MatchedBy(func(rows []models.SettlementRecord) bool {
		return len(rows) == 1 && rows[0].OrderID == "ORD-1"
	})).Return(1, 0, nil).Once()
	records.On("UpsertSettlementRecords", ctx, mock.MatchedBy(func(rows []models.SettlementRecord) bool {
		return len(rows) == 1 && rows[0].OrderID == "ORD-2"
	})).Return(0, 0, errors.New("value too long for type character varying(100)")).Once()

	service := newTestService(batches, records)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(csvData), Options{})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, outcome.Status)
	assert.Equal(t, 1, outcome.Imported)
	require.Len(t, outcome.RowErrors, 1)
	assert.Equal(t, 3, outcome.RowErrors[0].Row)
	records.AssertExpectations(t)
}

func TestImport_FatalStorageErrorFailsBatch(t *testing.T) {
	ctx := context.Background()
	csvData := "Order ID,Settlement Date,Settlement Amount\n" +
		"ORD-1,2025-02-05,100\n"

	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)
	batches.On("CreateHistory", ctx, mock.Anything).Return(nil)
	batches.On("CreateMetadata", ctx, mock.Anything).Return(nil)
	records.On("UpsertSettlementRecords", ctx, mock.Anything).Return(0, 0, errors.New("dial tcp: connection refused"))

	service := newTestService(batches, records)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", []byte(csvData), Options{})

	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusFailed, outcome.Status)
	assert.Equal(t, 0, outcome.Imported)
	assert.Contains(t, outcome.ErrorMessage, "storage failure")
}

func TestImport_HistoryCarriesFileHashAndCounts(t *testing.T) {
	ctx := context.Background()

	var captured *models.ImportHistory
	batches := new(MockBatchStore)
	records := new(MockRecordStore)
	batches.On("CreateBatch", ctx, mock.Anything).Return(nil)
	batches.On("UpdateBatch", ctx, mock.Anything, mock.Anything).Return(nil)
	batches.On("CreateHistory", ctx, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*models.ImportHistory)
	}).Return(nil)
	batches.On("CreateMetadata", ctx, mock.Anything).Return(nil)
	records.On("UpsertSettlementRecords", ctx, mock.Anything).Return(2, 0, nil)

	service := newTestService(batches, records)
	data := []byte(settlementCSV)
	outcome, err := service.Import(ctx, models.ImportTypeAdvertisingSettlement, "settlements.csv", data, Options{})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, outcome.BatchID, captured.BatchID)
	assert.Equal(t, FileHash(data), captured.FileHash)
	assert.Equal(t, 3, captured.TotalRecords)
	assert.Equal(t, 2, captured.ValidRecords)
	assert.Equal(t, 1, captured.InvalidRecords)
	assert.Equal(t, 2, captured.ImportedRecords)
	assert.InDelta(t, 66.67, captured.SuccessRate, 0.01)
	assert.Equal(t, models.ImportStatusCompleted, captured.Status)
}
