package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"dashboard-service/internal/config"
	"dashboard-service/internal/models"
	"dashboard-service/internal/repository"
)

type HistoryHandler struct {
	cfg        *config.Config
	importRepo *repository.ImportRepository
}

func NewHistoryHandler(cfg *config.Config, importRepo *repository.ImportRepository) *HistoryHandler {
	return &HistoryHandler{cfg: cfg, importRepo: importRepo}
}

// GetBatch returns one import batch by id.
// GET /api/v1/imports/batches/:id
func (h *HistoryHandler) GetBatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "INVALID_ID", "Batch id must be a UUID"))
		return
	}

	batch, err := h.importRepo.GetBatchByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.NewErrorResponse(http.StatusNotFound, "BATCH_NOT_FOUND", "Import batch not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load import batch"))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: batch})
}

// ListHistory returns past imports, newest first.
// GET /api/v1/imports/history?type=&page=&limit=
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	var typeFilter *models.ImportType
	if raw := c.Query("type"); raw != "" {
		t := models.ImportType(raw)
		if !t.IsValid() {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "INVALID_IMPORT_TYPE",
				fmt.Sprintf("Unknown import type %q", raw)))
			return
		}
		typeFilter = &t
	}

	page, limit := h.pagination(c)
	items, total, err := h.importRepo.ListHistory(c.Request.Context(), typeFilter, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load import history"))
		return
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    items,
		Pagination: &models.PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// GetHistory returns one history entry with its metadata records.
// GET /api/v1/imports/history/:id
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "INVALID_ID", "History id must be a UUID"))
		return
	}

	history, err := h.importRepo.GetHistoryByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, models.NewErrorResponse(http.StatusNotFound, "HISTORY_NOT_FOUND", "Import history entry not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load import history"))
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: history})
}

func (h *HistoryHandler) pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.cfg.DefaultPageSize)))
	if limit < 1 {
		limit = h.cfg.DefaultPageSize
	}
	if limit > h.cfg.MaxPageSize {
		limit = h.cfg.MaxPageSize
	}
	return page, limit
}
