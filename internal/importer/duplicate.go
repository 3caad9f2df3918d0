package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"dashboard-service/internal/models"
)

// Duplicate risk levels. Advisory only: the detector never blocks an
// import; blocking is a caller decision.
const (
	RiskNone    = "none"
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
	RiskUnknown = "unknown"
)

// rowCountSimilarity is the relative difference under which two imports
// covering the same date window are considered near-identical.
const rowCountSimilarity = 0.1

// HistoryDateRange pairs a prior import with its stored date-range metadata.
type HistoryDateRange struct {
	History     models.ImportHistory
	From        time.Time
	To          time.Time
	RecordCount int
}

// HistoryStore is the slice of import-history persistence the duplicate
// detector needs.
type HistoryStore interface {
	FindHistoryByFileHash(ctx context.Context, hash string) (*models.ImportHistory, error)
	ListHistoryDateRanges(ctx context.Context, t models.ImportType, limit int) ([]HistoryDateRange, error)
}

// FileHash returns the SHA-256 hash of the uploaded file's bytes.
func FileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DuplicateChecker scores how likely an uploaded file duplicates a previous
// import: an exact layer over the file hash and a probable layer over
// date-range overlap with stored import history.
type DuplicateChecker struct {
	store  HistoryStore
	logger *logrus.Entry
}

func NewDuplicateChecker(store HistoryStore, logger *logrus.Logger) *DuplicateChecker {
	return &DuplicateChecker{
		store:  store,
		logger: logger.WithField("component", "duplicate-checker"),
	}
}

// Check runs both detection layers. It degrades gracefully: any failure to
// hash, query or parse yields risk level "unknown" instead of an error, so
// the caller's import path is never disturbed.
func (c *DuplicateChecker) Check(ctx context.Context, t models.ImportType, data []byte, rows []ValidRow) models.DuplicateCheckData {
	result := models.DuplicateCheckData{
		RiskLevel:       RiskNone,
		PreviousImports: []models.SimilarImport{},
		Warnings:        []string{},
		Recommendations: []string{},
	}

	hash := FileHash(data)

	// Layer 1: exact file duplicate by content hash.
	prior, err := c.store.FindHistoryByFileHash(ctx, hash)
	switch {
	case err == nil && prior != nil:
		result.IsDuplicate = true
		result.RiskLevel = RiskHigh
		result.PreviousImports = append(result.PreviousImports, models.SimilarImport{
			HistoryID:   prior.ID.String(),
			FileName:    prior.FileName,
			ImportedAt:  prior.CreatedAt.Format(time.RFC3339),
			RecordCount: prior.TotalRecords,
			Overlap:     1,
		})
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("this exact file was already imported on %s as %q", prior.CreatedAt.Format("2006-01-02"), prior.FileName))
		result.Recommendations = append(result.Recommendations,
			"re-importing will overwrite existing rows with identical data; skip unless the previous import failed")
		return result
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		c.logger.WithError(err).Warn("file hash lookup failed, degrading to unknown risk")
		result.RiskLevel = RiskUnknown
		result.Warnings = append(result.Warnings, "duplicate check could not query import history")
		return result
	}

	// Layer 2: probable logical duplicate by date-range overlap.
	from, to, ok := ComputeDateRange(t, rows)
	if !ok {
		// No recognizable dates: nothing to compare against.
		return result
	}

	priors, err := c.store.ListHistoryDateRanges(ctx, t, 50)
	if err != nil {
		c.logger.WithError(err).Warn("date range lookup failed, degrading to unknown risk")
		result.RiskLevel = RiskUnknown
		result.Warnings = append(result.Warnings, "duplicate check could not load prior import metadata")
		return result
	}

	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keys[row.NaturalKey(t)] = struct{}{}
	}

	for _, p := range priors {
		overlap := windowOverlap(from, to, p.From, p.To)
		if overlap <= 0 {
			continue
		}

		level := RiskLow
		switch {
		case sameWindow(from, to, p.From, p.To) && similarCount(len(keys), p.RecordCount):
			level = RiskHigh
		case from.Year() == p.From.Year() && from.Month() == p.From.Month() &&
			to.Year() == p.To.Year() && to.Month() == p.To.Month():
			level = RiskMedium
		}

		result.PreviousImports = append(result.PreviousImports, models.SimilarImport{
			HistoryID:   p.History.ID.String(),
			FileName:    p.History.FileName,
			ImportedAt:  p.History.CreatedAt.Format(time.RFC3339),
			DateFrom:    p.From.Format("2006-01-02"),
			DateTo:      p.To.Format("2006-01-02"),
			RecordCount: p.RecordCount,
			Overlap:     overlap,
		})
		if riskRank(level) > riskRank(result.RiskLevel) {
			result.RiskLevel = level
		}
	}

	sort.Slice(result.PreviousImports, func(i, j int) bool {
		return result.PreviousImports[i].Overlap > result.PreviousImports[j].Overlap
	})

	switch result.RiskLevel {
	case RiskHigh:
		result.IsDuplicate = true
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("a prior import covers the same date window %s to %s with a similar row count", from.Format("2006-01-02"), to.Format("2006-01-02")))
		result.Recommendations = append(result.Recommendations,
			"verify the file is an intentional correction before importing; matching rows will be overwritten")
	case RiskMedium:
		result.Warnings = append(result.Warnings, "a prior import covers the same calendar month")
		result.Recommendations = append(result.Recommendations,
			"check whether this file partially repeats an earlier upload")
	case RiskLow:
		result.Recommendations = append(result.Recommendations,
			"the date windows partially overlap an earlier import; overlapping rows will be updated in place")
	}

	return result
}

// windowOverlap returns the overlapped fraction of the new window [from,to]
// against a prior window, in [0,1].
func windowOverlap(from, to, priorFrom, priorTo time.Time) float64 {
	start := from
	if priorFrom.After(start) {
		start = priorFrom
	}
	end := to
	if priorTo.Before(end) {
		end = priorTo
	}
	if end.Before(start) {
		return 0
	}
	overlapDays := end.Sub(start).Hours()/24 + 1
	windowDays := to.Sub(from).Hours()/24 + 1
	if windowDays <= 0 {
		return 0
	}
	frac := overlapDays / windowDays
	if frac > 1 {
		frac = 1
	}
	return frac
}

func sameWindow(from, to, priorFrom, priorTo time.Time) bool {
	return sameDay(from, priorFrom) && sameDay(to, priorTo)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func similarCount(a, b int) bool {
	if a == 0 || b == 0 {
		return a == b
	}
	diff := float64(a - b)
	if diff < 0 {
		diff = -diff
	}
	return diff/float64(b) <= rowCountSimilarity
}

func riskRank(level string) int {
	switch level {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	}
	return 0
}
