package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"dashboard-service/internal/config"
	"dashboard-service/internal/importer"
	"dashboard-service/internal/middleware"
	"dashboard-service/internal/models"
	"dashboard-service/internal/repository"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sampleData,omitempty"`
}

// DuplicateCheckStore is the slice of the import repository the duplicate
// pre-check needs: cached verdict lookup and the per-call audit log.
type DuplicateCheckStore interface {
	CachedDuplicateCheck(ctx context.Context, importType models.ImportType, hash string) (*models.DuplicateCheckData, bool)
	StoreDuplicateCheck(ctx context.Context, importType models.ImportType, hash string, data *models.DuplicateCheckData)
	LogDuplicateCheck(ctx context.Context, log *models.DuplicateCheckLog) error
}

var _ DuplicateCheckStore = (*repository.ImportRepository)(nil)

type ImportHandler struct {
	cfg        *config.Config
	service    *importer.Service
	importRepo DuplicateCheckStore
	checker    *importer.DuplicateChecker
	logger     *logrus.Entry
}

func NewImportHandler(cfg *config.Config, service *importer.Service, importRepo DuplicateCheckStore, checker *importer.DuplicateChecker, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		cfg:        cfg,
		service:    service,
		importRepo: importRepo,
		checker:    checker,
		logger:     logger.WithField("component", "import_handler"),
	}
}

// ImportFile handles a spreadsheet upload for one import type.
// POST /api/v1/imports/:type
func (h *ImportHandler) ImportFile(c *gin.Context) {
	importType := models.ImportType(c.Param("type"))
	if !importType.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "INVALID_IMPORT_TYPE",
			fmt.Sprintf("Unknown import type %q", c.Param("type"))))
		return
	}

	data, fileName, errResp := h.readUpload(c)
	if errResp != nil {
		c.JSON(errResp.StatusCode, errResp)
		return
	}

	opts := importer.Options{
		RequireAllValid: c.DefaultPostForm("requireAllValid", "false") == "true",
		ValidateOnly:    c.DefaultPostForm("validateOnly", "false") == "true",
	}

	outcome, err := h.service.Import(c.Request.Context(), importType, fileName, data, opts)
	if err != nil {
		if errors.Is(err, importer.ErrFileRejected) {
			c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "IMPORT_REJECTED", err.Error()))
			return
		}
		h.logger.WithError(err).WithField("importType", importType).Error("import failed to start")
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError, "IMPORT_FAILED",
			"Failed to start the import, please try again"))
		return
	}

	middleware.RecordImportRows(string(importType), outcome.Imported, outcome.TotalRows-outcome.Imported)

	result := &models.ImportResultData{
		BatchID:      outcome.BatchID.String(),
		ImportType:   importType,
		TotalRows:    outcome.TotalRows,
		ValidRows:    outcome.ValidRows,
		Imported:     outcome.Imported,
		Updated:      outcome.Updated,
		Errors:       len(outcome.RowErrors),
		SuccessRate:  outcome.SuccessRate,
		DurationMs:   outcome.DurationMs,
		ErrorDetails: capErrors(outcome.RowErrors, h.cfg.ImportErrorLimit),
	}

	if outcome.Status == models.ImportStatusFailed {
		c.JSON(http.StatusUnprocessableEntity, models.ImportResponse{
			Success: false,
			Data:    result,
			Message: outcome.ErrorMessage,
		})
		return
	}

	message := fmt.Sprintf("Imported %d of %d rows", outcome.Imported, outcome.TotalRows)
	if opts.ValidateOnly {
		message = fmt.Sprintf("Validated %d of %d rows, nothing was written", outcome.ValidRows, outcome.TotalRows)
	}
	c.JSON(http.StatusOK, models.ImportResponse{
		Success: true,
		Data:    result,
		Message: message,
	})
}

// CheckDuplicate scores an uploaded file against previous imports without
// writing any domain data. The verdict is advisory; the UI decides whether
// to warn, and the user can always proceed.
// POST /api/v1/imports/:type/check-duplicate
func (h *ImportHandler) CheckDuplicate(c *gin.Context) {
	importType := models.ImportType(c.Param("type"))
	if !importType.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "INVALID_IMPORT_TYPE",
			fmt.Sprintf("Unknown import type %q", c.Param("type"))))
		return
	}

	data, fileName, errResp := h.readUpload(c)
	if errResp != nil {
		c.JSON(errResp.StatusCode, errResp)
		return
	}

	hash := importer.FileHash(data)
	if cached, ok := h.importRepo.CachedDuplicateCheck(c.Request.Context(), importType, hash); ok {
		// Every check call is audited, cache hits included.
		h.logCheck(c, importType, fileName, data, hash, cached)
		c.JSON(http.StatusOK, models.DuplicateCheckResponse{Success: true, Data: cached})
		return
	}

	// Parse failures degrade to a hash-only check rather than erroring:
	// the pre-check must never block the user from trying the import.
	var valids []importer.ValidRow
	if rows, err := importer.ParseFile(data, fileName); err == nil {
		for _, raw := range rows {
			if valid, rowErr := importer.ValidateRow(importType, raw); rowErr == nil {
				valids = append(valids, *valid)
			}
		}
	} else {
		h.logger.WithError(err).WithField("fileName", fileName).Warn("duplicate check could not parse file")
	}

	result := h.checker.Check(c.Request.Context(), importType, data, valids)

	h.importRepo.StoreDuplicateCheck(c.Request.Context(), importType, hash, &result)
	h.logCheck(c, importType, fileName, data, hash, &result)

	c.JSON(http.StatusOK, models.DuplicateCheckResponse{Success: true, Data: &result})
}

func (h *ImportHandler) logCheck(c *gin.Context, importType models.ImportType, fileName string, data []byte, hash string, result *models.DuplicateCheckData) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	logEntry := &models.DuplicateCheckLog{
		ImportType: importType,
		FileName:   fileName,
		FileSize:   int64(len(data)),
		FileHash:   hash,
		Result:     datatypes.JSON(payload),
	}
	if err := h.importRepo.LogDuplicateCheck(c.Request.Context(), logEntry); err != nil {
		h.logger.WithError(err).Warn("failed to log duplicate check")
	}
}

// readUpload extracts and size-checks the multipart file.
func (h *ImportHandler) readUpload(c *gin.Context) ([]byte, string, *models.ErrorResponse) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		resp := models.NewErrorResponse(http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
		return nil, "", &resp
	}
	defer file.Close()

	maxBytes := h.cfg.MaxUploadMB * 1024 * 1024
	if header.Size > maxBytes {
		resp := models.NewErrorResponse(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d MB upload limit", h.cfg.MaxUploadMB))
		return nil, "", &resp
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		resp := models.NewErrorResponse(http.StatusBadRequest, "READ_ERROR", "Failed to read uploaded file")
		return nil, "", &resp
	}
	if int64(len(data)) > maxBytes {
		resp := models.NewErrorResponse(http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d MB upload limit", h.cfg.MaxUploadMB))
		return nil, "", &resp
	}

	return data, header.Filename, nil
}

func capErrors(errs []models.RowError, limit int) []models.RowError {
	if limit > 0 && len(errs) > limit {
		return errs[:limit]
	}
	return errs
}

// GetTemplate returns the column template for an import type.
// GET /api/v1/imports/:type/template?format=json|csv|xlsx
func (h *ImportHandler) GetTemplate(c *gin.Context) {
	importType := models.ImportType(c.Param("type"))
	if !importType.IsValid() {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "INVALID_IMPORT_TYPE",
			fmt.Sprintf("Unknown import type %q", c.Param("type"))))
		return
	}

	template := buildTemplate(importType)
	switch c.DefaultQuery("format", "json") {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "template": template})
	}
}

// buildTemplate derives the downloadable template from the import type's
// field specs, so templates and validation can never drift apart.
func buildTemplate(t models.ImportType) ImportTemplate {
	specs := importer.FieldSpecs(t)
	columns := make([]ImportTemplateColumn, 0, len(specs))
	sample := make(map[string]string, len(specs))

	for _, spec := range specs {
		name := string(spec.Field)
		if len(spec.Aliases) > 0 {
			name = spec.Aliases[0]
		}
		columns = append(columns, ImportTemplateColumn{
			Name:        name,
			Description: fieldDescriptions[spec.Field],
			Required:    spec.Required,
			Type:        string(spec.Kind),
			Example:     fieldExamples[spec.Field],
		})
		sample[name] = fieldExamples[spec.Field]
	}

	return ImportTemplate{
		Entity:     string(t),
		Version:    "1.0",
		Columns:    columns,
		SampleData: []map[string]string{sample},
	}
}

var fieldDescriptions = map[importer.Field]string{
	importer.FieldOrderID:        "Marketplace order identifier",
	importer.FieldSKU:            "Seller article (SKU)",
	importer.FieldProductName:    "Product name",
	importer.FieldColor:          "Color variant",
	importer.FieldSize:           "Size variant",
	importer.FieldQuantity:       "Number of units",
	importer.FieldAmount:         "Line amount in rubles",
	importer.FieldMarketplace:    "Marketplace name",
	importer.FieldOrderDate:      "Order date",
	importer.FieldStatus:         "Order status",
	importer.FieldCode:           "Unique product code",
	importer.FieldName:           "Product name",
	importer.FieldCategory:       "Product category",
	importer.FieldBrand:          "Brand name",
	importer.FieldBarcode:        "EAN barcode",
	importer.FieldPurchasePrice:  "Purchase (cost) price",
	importer.FieldSalePrice:      "Retail price",
	importer.FieldWarehouse:      "Warehouse name",
	importer.FieldMovementDate:   "Movement date",
	importer.FieldMovementType:   "Movement type (in/out/correction)",
	importer.FieldCampaign:       "Campaign name",
	importer.FieldPlatform:       "Advertising platform",
	importer.FieldDate:           "Statistics date",
	importer.FieldCost:           "Spend in rubles",
	importer.FieldImpressions:    "Ad impressions",
	importer.FieldClicks:         "Ad clicks",
	importer.FieldOrders:         "Attributed orders",
	importer.FieldSettlementDate: "Settlement date",
	importer.FieldSettlementType: "Settlement type",
	importer.FieldCommission:     "Commission amount",
}

var fieldExamples = map[importer.Field]string{
	importer.FieldOrderID:        "WB-123456789",
	importer.FieldSKU:            "TS-RED-M-001",
	importer.FieldProductName:    "Cotton T-Shirt",
	importer.FieldColor:          "Red",
	importer.FieldSize:           "M",
	importer.FieldQuantity:       "2",
	importer.FieldAmount:         "2490.50",
	importer.FieldMarketplace:    "Wildberries",
	importer.FieldOrderDate:      "2025-02-01",
	importer.FieldStatus:         "delivered",
	importer.FieldCode:           "TS-001",
	importer.FieldName:           "Cotton T-Shirt",
	importer.FieldCategory:       "T-Shirts",
	importer.FieldBrand:          "BrandName",
	importer.FieldBarcode:        "4600000000001",
	importer.FieldPurchasePrice:  "450.00",
	importer.FieldSalePrice:      "1290.00",
	importer.FieldWarehouse:      "Moscow Main",
	importer.FieldMovementDate:   "2025-02-01",
	importer.FieldMovementType:   "in",
	importer.FieldCampaign:       "Spring Sale",
	importer.FieldPlatform:       "Wildberries Ads",
	importer.FieldDate:           "2025-02-01",
	importer.FieldCost:           "1500.00",
	importer.FieldImpressions:    "12500",
	importer.FieldClicks:         "320",
	importer.FieldOrders:         "14",
	importer.FieldSettlementDate: "2025-02-05",
	importer.FieldSettlementType: "commission",
	importer.FieldCommission:     "120.50",
}

func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.csv", template.Entity))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)

	for _, sample := range template.SampleData {
		row := make([]string, len(template.Columns))
		for i, col := range template.Columns {
			row[i] = sample[col.Name]
		}
		writer.Write(row)
	}
}

func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template ImportTemplate) {
	sheetName := sheetTitle(template.Entity)

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 18)
	}

	for rowIdx, sample := range template.SampleData {
		for colIdx, col := range template.Columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, sample[col.Name])
		}
	}

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.xlsx", template.Entity))

	f.Write(c.Writer)
}

func sheetTitle(entity string) string {
	if entity == "" {
		return "Template"
	}
	return strings.ToUpper(entity[:1]) + entity[1:]
}
