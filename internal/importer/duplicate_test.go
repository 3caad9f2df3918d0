package importer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"dashboard-service/internal/models"
)

// MockHistoryStore is a mock implementation of HistoryStore
type MockHistoryStore struct {
	mock.Mock
}

var _ HistoryStore = (*MockHistoryStore)(nil)

func (m *MockHistoryStore) FindHistoryByFileHash(ctx context.Context, hash string) (*models.ImportHistory, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImportHistory), args.Error(1)
}

func (m *MockHistoryStore) ListHistoryDateRanges(ctx context.Context, t models.ImportType, limit int) ([]HistoryDateRange, error) {
	args := m.Called(ctx, t, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]HistoryDateRange), args.Error(1)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func priorHistory(fileName string) models.ImportHistory {
	return models.ImportHistory{
		ID:           uuid.New(),
		FileName:     fileName,
		TotalRecords: 100,
		CreatedAt:    time.Now().Add(-24 * time.Hour),
	}
}

func salesRowsForDays(days ...int) []ValidRow {
	rows := make([]ValidRow, 0, len(days))
	for i, d := range days {
		rows = append(rows, ValidRow{Values: map[Field]interface{}{
			FieldOrderID:   uuid.NewString(),
			FieldSKU:       "TS-001",
			FieldAmount:    100.0 + float64(i),
			FieldOrderDate: date(2025, time.February, d),
		}})
	}
	return rows
}

func TestCheck_ExactFileHash_HighRisk(t *testing.T) {
	ctx := context.Background()
	data := []byte("order,amount\nA,100\n")
	prior := priorHistory("sales_feb.csv")

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, FileHash(data)).Return(&prior, nil)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, data, nil)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Len(t, result.PreviousImports, 1)
	assert.Equal(t, prior.ID.String(), result.PreviousImports[0].HistoryID)
	assert.Equal(t, 1.0, result.PreviousImports[0].Overlap)
	assert.NotEmpty(t, result.Warnings)
	assert.NotEmpty(t, result.Recommendations)
	store.AssertExpectations(t)
}

func TestCheck_NoPriors_NoneRisk(t *testing.T) {
	ctx := context.Background()
	data := []byte("fresh file")
	rows := salesRowsForDays(1, 5, 10)

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	store.On("ListHistoryDateRanges", ctx, models.ImportTypeSales, mock.Anything).Return([]HistoryDateRange{}, nil)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, data, rows)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, RiskNone, result.RiskLevel)
	assert.Empty(t, result.PreviousImports)
}

func TestCheck_DisjointWindows_NoneRisk(t *testing.T) {
	ctx := context.Background()
	rows := salesRowsForDays(1, 10)

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	store.On("ListHistoryDateRanges", ctx, models.ImportTypeSales, mock.Anything).Return([]HistoryDateRange{
		{
			History:     priorHistory("jan.csv"),
			From:        date(2025, time.January, 1),
			To:          date(2025, time.January, 31),
			RecordCount: 100,
		},
	}, nil)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("x"), rows)

	assert.Equal(t, RiskNone, result.RiskLevel)
	assert.Empty(t, result.PreviousImports)
}

func TestCheck_SameWindowSimilarCount_HighRisk(t *testing.T) {
	ctx := context.Background()
	rows := salesRowsForDays(1, 5, 10)

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	store.On("ListHistoryDateRanges", ctx, models.ImportTypeSales, mock.Anything).Return([]HistoryDateRange{
		{
			History:     priorHistory("feb_v1.csv"),
			From:        date(2025, time.February, 1),
			To:          date(2025, time.February, 10),
			RecordCount: 3,
		},
	}, nil)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("different bytes"), rows)

	assert.True(t, result.IsDuplicate)
	assert.Equal(t, RiskHigh, result.RiskLevel)
	assert.Len(t, result.PreviousImports, 1)
}

func TestCheck_SameMonth_MediumRisk(t *testing.T) {
	ctx := context.Background()
	rows := salesRowsForDays(5, 20)

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	store.On("ListHistoryDateRanges", ctx, models.ImportTypeSales, mock.Anything).Return([]HistoryDateRange{
		{
			History:     priorHistory("feb_full.csv"),
			From:        date(2025, time.February, 1),
			To:          date(2025, time.February, 28),
			RecordCount: 500,
		},
	}, nil)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("x"), rows)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, RiskMedium, result.RiskLevel)
}

func TestCheck_PartialOverlap_LowRisk(t *testing.T) {
	ctx := context.Background()
	rows := salesRowsForDays(15, 25)

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	store.On("ListHistoryDateRanges", ctx, models.ImportTypeSales, mock.Anything).Return([]HistoryDateRange{
		{
			History:     priorHistory("jan_feb.csv"),
			From:        date(2025, time.January, 20),
			To:          date(2025, time.February, 18),
			RecordCount: 500,
		},
	}, nil)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("x"), rows)

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, RiskLow, result.RiskLevel)
	assert.Len(t, result.PreviousImports, 1)
	assert.Greater(t, result.PreviousImports[0].Overlap, 0.0)
	assert.Less(t, result.PreviousImports[0].Overlap, 1.0)
}

func TestCheck_HashLookupFails_UnknownRisk(t *testing.T) {
	ctx := context.Background()

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, errors.New("connection refused"))

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("x"), salesRowsForDays(1))

	assert.False(t, result.IsDuplicate)
	assert.Equal(t, RiskUnknown, result.RiskLevel)
	assert.NotEmpty(t, result.Warnings)
}

func TestCheck_RangeLookupFails_UnknownRisk(t *testing.T) {
	ctx := context.Background()

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)
	store.On("ListHistoryDateRanges", ctx, models.ImportTypeSales, mock.Anything).Return(nil, errors.New("timeout"))

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("x"), salesRowsForDays(1))

	assert.Equal(t, RiskUnknown, result.RiskLevel)
}

func TestCheck_NoDatesInFile_SkipsRangeLayer(t *testing.T) {
	ctx := context.Background()

	store := new(MockHistoryStore)
	store.On("FindHistoryByFileHash", ctx, mock.Anything).Return(nil, gorm.ErrRecordNotFound)

	checker := NewDuplicateChecker(store, quietLogger())
	result := checker.Check(ctx, models.ImportTypeSales, []byte("x"), nil)

	assert.Equal(t, RiskNone, result.RiskLevel)
	store.AssertNotCalled(t, "ListHistoryDateRanges", mock.Anything, mock.Anything, mock.Anything)
}

func TestFileHash_Stable(t *testing.T) {
	data := []byte("same content")
	assert.Equal(t, FileHash(data), FileHash([]byte("same content")))
	assert.NotEqual(t, FileHash(data), FileHash([]byte("other content")))
	assert.Len(t, FileHash(data), 64)
}
