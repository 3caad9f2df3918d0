package models

// Response envelopes. The dashboard UI depends on these exact field names
// and nesting, so they are kept stable here rather than composed ad hoc in
// handlers.

// RowError describes one rejected source row. Row numbers are 1-indexed
// positions in the uploaded file (the header is row 1).
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// ImportResultData is the payload of a successful import response.
type ImportResultData struct {
	BatchID     string     `json:"batchId"`
	ImportType  ImportType `json:"importType"`
	TotalRows   int        `json:"totalRows"`
	ValidRows   int        `json:"validRows"`
	Imported    int        `json:"imported"`
	Updated     int        `json:"updated"`
	Errors      int        `json:"errors"`
	SuccessRate float64    `json:"successRate"`
	DurationMs  int64      `json:"durationMs"`
	// ErrorDetails is capped by configuration to bound the payload.
	ErrorDetails []RowError `json:"errorDetails,omitempty"`
}

// ImportResponse is the success envelope for the import endpoint.
type ImportResponse struct {
	Success bool              `json:"success"`
	Data    *ImportResultData `json:"data"`
	Message string            `json:"message,omitempty"`
}

// SimilarImport references a previous import that overlaps the uploaded file.
type SimilarImport struct {
	HistoryID   string  `json:"historyId"`
	FileName    string  `json:"fileName"`
	ImportedAt  string  `json:"importedAt"`
	DateFrom    string  `json:"dateFrom,omitempty"`
	DateTo      string  `json:"dateTo,omitempty"`
	RecordCount int     `json:"recordCount"`
	Overlap     float64 `json:"overlap"`
}

// DuplicateCheckData is the payload of the duplicate pre-check endpoint.
type DuplicateCheckData struct {
	IsDuplicate     bool            `json:"isDuplicate"`
	RiskLevel       string          `json:"riskLevel"`
	PreviousImports []SimilarImport `json:"previousImports"`
	Warnings        []string        `json:"warnings"`
	Recommendations []string        `json:"recommendations"`
}

// DuplicateCheckResponse is the envelope for the duplicate pre-check endpoint.
type DuplicateCheckResponse struct {
	Success bool                `json:"success"`
	Data    *DuplicateCheckData `json:"data"`
	Message string              `json:"message,omitempty"`
}

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Success    bool        `json:"success"`
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Details    interface{} `json:"details,omitempty"`
}

// NewErrorResponse builds the standard failure envelope.
func NewErrorResponse(statusCode int, code, message string) ErrorResponse {
	return ErrorResponse{
		Success:    false,
		Error:      code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// PaginationMeta describes one page of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// SuccessResponse is the generic success envelope for read endpoints.
type SuccessResponse struct {
	Success    bool            `json:"success"`
	Data       interface{}     `json:"data,omitempty"`
	Pagination *PaginationMeta `json:"pagination,omitempty"`
	Message    string          `json:"message,omitempty"`
}
