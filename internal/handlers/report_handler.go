package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard-service/internal/models"
	"dashboard-service/internal/repository"
)

type ReportHandler struct {
	recordRepo *repository.RecordRepository
}

func NewReportHandler(recordRepo *repository.RecordRepository) *ReportHandler {
	return &ReportHandler{recordRepo: recordRepo}
}

// SalesSummary aggregates imported sales by marketplace.
// GET /api/v1/reports/sales/summary?from=2025-01-01&to=2025-01-31
func (h *ReportHandler) SalesSummary(c *gin.Context) {
	from, to, errResp := dateRange(c)
	if errResp != nil {
		c.JSON(errResp.StatusCode, errResp)
		return
	}

	rows, err := h.recordRepo.SalesSummary(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError, "DATABASE_ERROR", "Failed to build sales summary"))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data: gin.H{
			"from":         from.Format("2006-01-02"),
			"to":           to.Format("2006-01-02"),
			"marketplaces": rows,
		},
	})
}

// AdvertisingSummary aggregates imported advertising spend by platform.
// GET /api/v1/reports/advertising/summary?from=2025-01-01&to=2025-01-31
func (h *ReportHandler) AdvertisingSummary(c *gin.Context) {
	from, to, errResp := dateRange(c)
	if errResp != nil {
		c.JSON(errResp.StatusCode, errResp)
		return
	}

	rows, err := h.recordRepo.AdvertisingSummary(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError, "DATABASE_ERROR", "Failed to build advertising summary"))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data: gin.H{
			"from":      from.Format("2006-01-02"),
			"to":        to.Format("2006-01-02"),
			"platforms": rows,
		},
	})
}

// dateRange parses the from/to query params, defaulting to the last 30 days.
// The to bound is pushed to end of day so single-day ranges work.
func dateRange(c *gin.Context) (from, to time.Time, errResp *models.ErrorResponse) {
	now := time.Now().UTC()
	from = now.AddDate(0, 0, -30).Truncate(24 * time.Hour)
	to = now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			resp := models.NewErrorResponse(http.StatusBadRequest, "INVALID_DATE", "from must be formatted as YYYY-MM-DD")
			return from, to, &resp
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			resp := models.NewErrorResponse(http.StatusBadRequest, "INVALID_DATE", "to must be formatted as YYYY-MM-DD")
			return from, to, &resp
		}
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		resp := models.NewErrorResponse(http.StatusBadRequest, "INVALID_RANGE", "to must not be before from")
		return from, to, &resp
	}

	return from, to, nil
}
