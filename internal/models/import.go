package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ImportType selects which column mapping, required fields and business
// rules apply to an uploaded file.
type ImportType string

const (
	ImportTypeSales                 ImportType = "sales"
	ImportTypeProducts              ImportType = "products"
	ImportTypeStock                 ImportType = "stock"
	ImportTypeAdvertising           ImportType = "advertising"
	ImportTypeAdvertisingSettlement ImportType = "advertising-settlement"
)

// ImportTypes lists all supported import types.
func ImportTypes() []ImportType {
	return []ImportType{
		ImportTypeSales,
		ImportTypeProducts,
		ImportTypeStock,
		ImportTypeAdvertising,
		ImportTypeAdvertisingSettlement,
	}
}

// IsValid reports whether t is a known import type.
func (t ImportType) IsValid() bool {
	for _, known := range ImportTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ImportStatus represents the lifecycle state of an import batch.
type ImportStatus string

const (
	ImportStatusProcessing ImportStatus = "PROCESSING"
	ImportStatusCompleted  ImportStatus = "COMPLETED"
	ImportStatusFailed     ImportStatus = "FAILED"
)

// ImportBatch identifies one upload attempt. Rows are never deleted; the
// table is the audit trail of every import ever started.
//
// Invariants: ValidRecords + InvalidRecords == TotalRecords and
// ImportedRecords <= ValidRecords once the batch reaches a terminal status.
type ImportBatch struct {
	ID              uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ImportType      ImportType   `json:"importType" gorm:"type:varchar(50);not null;index"`
	FileName        string       `json:"fileName" gorm:"type:varchar(255);not null"`
	FileType        string       `json:"fileType" gorm:"type:varchar(10);not null"`
	TotalRecords    int          `json:"totalRecords" gorm:"not null;default:0"`
	ValidRecords    int          `json:"validRecords" gorm:"not null;default:0"`
	InvalidRecords  int          `json:"invalidRecords" gorm:"not null;default:0"`
	ImportedRecords int          `json:"importedRecords" gorm:"not null;default:0"`
	Status          ImportStatus `json:"status" gorm:"type:varchar(20);not null;default:'PROCESSING';index"`
	ErrorMessage    *string      `json:"errorMessage,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ImportHistory is the durable record of a completed (or failed) import.
// Created once per import; immutable afterwards except for metadata backfill.
type ImportHistory struct {
	ID              uuid.UUID    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	BatchID         uuid.UUID    `json:"batchId" gorm:"type:uuid;not null;index"`
	ImportType      ImportType   `json:"importType" gorm:"type:varchar(50);not null;index"`
	FileName        string       `json:"fileName" gorm:"type:varchar(255);not null"`
	FileSize        int64        `json:"fileSize" gorm:"not null;default:0"`
	FileHash        string       `json:"fileHash" gorm:"type:varchar(64);index"`
	TotalRecords    int          `json:"totalRecords" gorm:"not null;default:0"`
	ValidRecords    int          `json:"validRecords" gorm:"not null;default:0"`
	InvalidRecords  int          `json:"invalidRecords" gorm:"not null;default:0"`
	ImportedRecords int          `json:"importedRecords" gorm:"not null;default:0"`
	SuccessRate     float64      `json:"successRate" gorm:"not null;default:0"`
	DurationMs      int64        `json:"durationMs" gorm:"not null;default:0"`
	Status          ImportStatus `json:"status" gorm:"type:varchar(20);not null"`
	Summary         *string      `json:"summary,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`

	MetadataRecords []ImportMetadata `json:"metadata,omitempty" gorm:"foreignKey:HistoryID"`
}

// Metadata type tags for ImportMetadata records.
const (
	MetadataTypeDateRange      = "date_range"
	MetadataTypeFileInfo       = "file_info"
	MetadataTypeProduct        = "product"
	MetadataTypeAdvertising    = "advertising"
	MetadataTypeSettlement     = "settlement"
	MetadataTypeSales          = "sales"
	MetadataTypeProcessingInfo = "processing_info"
)

// ImportMetadata holds one aggregate payload derived from an imported batch,
// tagged by metadata type. The payload schema is heterogeneous per type, so
// it is kept as a JSON document column.
type ImportMetadata struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	HistoryID    uuid.UUID      `json:"historyId" gorm:"type:uuid;not null;index"`
	MetadataType string         `json:"metadataType" gorm:"type:varchar(50);not null;index"`
	Payload      datatypes.JSON `json:"payload" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
}

// DuplicateCheckLog records one pre-import duplicate-check invocation.
// Purely advisory: it never blocks an import by itself.
type DuplicateCheckLog struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ImportType ImportType     `json:"importType" gorm:"type:varchar(50);not null;index"`
	FileName   string         `json:"fileName" gorm:"type:varchar(255);not null"`
	FileSize   int64          `json:"fileSize" gorm:"not null;default:0"`
	FileHash   string         `json:"fileHash" gorm:"type:varchar(64);index"`
	Result     datatypes.JSON `json:"result" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"createdAt"`
}
