package models

import (
	"time"

	"github.com/google/uuid"
)

// Domain records written by successful imports. Each carries a natural key
// (composite unique index) used for upsert-on-conflict, so re-importing a
// corrected row overwrites instead of duplicating.

// Sale is one sold item on a marketplace order.
// Natural key: order_id + sku + color + size.
type Sale struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     string    `json:"orderId" gorm:"type:varchar(100);not null;uniqueIndex:idx_sales_natural_key"`
	SKU         string    `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_sales_natural_key"`
	Color       string    `json:"color" gorm:"type:varchar(100);uniqueIndex:idx_sales_natural_key"`
	Size        string    `json:"size" gorm:"type:varchar(50);uniqueIndex:idx_sales_natural_key"`
	ProductName string    `json:"productName" gorm:"type:varchar(255)"`
	Marketplace string    `json:"marketplace" gorm:"type:varchar(100);index"`
	Quantity    int       `json:"quantity" gorm:"not null;default:0"`
	Amount      float64   `json:"amount" gorm:"not null;default:0"`
	Status      string    `json:"status" gorm:"type:varchar(50)"`
	OrderDate   time.Time `json:"orderDate" gorm:"not null;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is one catalog item. Natural key: code.
type Product struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Code          string    `json:"code" gorm:"type:varchar(100);not null;uniqueIndex"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Category      string    `json:"category" gorm:"type:varchar(100);index"`
	Brand         string    `json:"brand" gorm:"type:varchar(100);index"`
	Color         string    `json:"color" gorm:"type:varchar(100)"`
	Size          string    `json:"size" gorm:"type:varchar(50)"`
	Barcode       string    `json:"barcode" gorm:"type:varchar(100)"`
	PurchasePrice float64   `json:"purchasePrice" gorm:"not null;default:0"`
	SalePrice     float64   `json:"salePrice" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StockMovement is one stock change at a warehouse on a given date.
// Natural key: sku + warehouse + movement_date.
type StockMovement struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SKU          string    `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_natural_key"`
	Warehouse    string    `json:"warehouse" gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_natural_key"`
	MovementDate time.Time `json:"movementDate" gorm:"not null;uniqueIndex:idx_stock_natural_key"`
	MovementType string    `json:"movementType" gorm:"type:varchar(50)"`
	Quantity     int       `json:"quantity" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AdvertisingRecord is one day of campaign statistics on one platform.
// Natural key: campaign + platform + date.
type AdvertisingRecord struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Campaign    string    `json:"campaign" gorm:"type:varchar(255);not null;uniqueIndex:idx_advertising_natural_key"`
	Platform    string    `json:"platform" gorm:"type:varchar(100);not null;uniqueIndex:idx_advertising_natural_key"`
	Date        time.Time `json:"date" gorm:"not null;uniqueIndex:idx_advertising_natural_key"`
	Cost        float64   `json:"cost" gorm:"not null;default:0"`
	Impressions int64     `json:"impressions" gorm:"not null;default:0"`
	Clicks      int64     `json:"clicks" gorm:"not null;default:0"`
	Orders      int       `json:"orders" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SettlementRecord is one advertising settlement line. Natural key: order_id.
type SettlementRecord struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID        string    `json:"orderId" gorm:"type:varchar(100);not null;uniqueIndex"`
	SKU            string    `json:"sku" gorm:"type:varchar(100)"`
	SettlementDate time.Time `json:"settlementDate" gorm:"not null;index"`
	SettlementType string    `json:"settlementType" gorm:"type:varchar(50)"`
	Amount         float64   `json:"amount" gorm:"not null;default:0"`
	Commission     float64   `json:"commission" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
