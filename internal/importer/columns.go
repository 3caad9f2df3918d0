// Package importer implements the bulk import pipeline: file parsing,
// column resolution, row validation, duplicate detection, metadata
// aggregation and the orchestration that ties them to storage.
package importer

import (
	"sort"
	"strings"

	"dashboard-service/internal/models"
)

// Field is a canonical column name for an import type. Raw spreadsheet
// headers are resolved to Fields through the alias tables below.
type Field string

const (
	FieldOrderID        Field = "order_id"
	FieldSKU            Field = "sku"
	FieldProductName    Field = "product_name"
	FieldColor          Field = "color"
	FieldSize           Field = "size"
	FieldQuantity       Field = "quantity"
	FieldAmount         Field = "amount"
	FieldMarketplace    Field = "marketplace"
	FieldOrderDate      Field = "order_date"
	FieldStatus         Field = "status"
	FieldCode           Field = "code"
	FieldName           Field = "name"
	FieldCategory       Field = "category"
	FieldBrand          Field = "brand"
	FieldBarcode        Field = "barcode"
	FieldPurchasePrice  Field = "purchase_price"
	FieldSalePrice      Field = "sale_price"
	FieldWarehouse      Field = "warehouse"
	FieldMovementDate   Field = "movement_date"
	FieldMovementType   Field = "movement_type"
	FieldCampaign       Field = "campaign"
	FieldPlatform       Field = "platform"
	FieldDate           Field = "date"
	FieldCost           Field = "cost"
	FieldImpressions    Field = "impressions"
	FieldClicks         Field = "clicks"
	FieldOrders         Field = "orders"
	FieldSettlementDate Field = "settlement_date"
	FieldSettlementType Field = "settlement_type"
	FieldCommission     Field = "commission"
)

// FieldKind selects the coercion applied by the row validator.
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindInteger FieldKind = "integer"
	KindDate    FieldKind = "date"
)

// FieldSpec describes one canonical field of an import type: how to find it
// in a raw header row and how to validate it. All aliases are tried for an
// exact header match before any is tried for a normalized (case/space/
// underscore insensitive) match.
type FieldSpec struct {
	Field       Field
	Kind        FieldKind
	Required    bool
	NonNegative bool
	Aliases     []string
}

// fieldSpecs holds the column mapping for every import type. Aliases cover
// the header variants seen in marketplace exports: English, Russian and the
// snake_case forms produced by the dashboard's own templates.
var fieldSpecs = map[models.ImportType][]FieldSpec{
	models.ImportTypeSales: {
		{Field: FieldOrderID, Kind: KindString, Required: true,
			Aliases: []string{"Order ID", "order_id", "OrderId", "Номер заказа", "ID заказа", "Заказ"}},
		{Field: FieldSKU, Kind: KindString, Required: true,
			Aliases: []string{"SKU", "sku", "Артикул", "Артикул продавца", "Vendor Code", "Article"}},
		{Field: FieldProductName, Kind: KindString,
			Aliases: []string{"Product Name", "product_name", "Name", "Наименование", "Товар"}},
		{Field: FieldColor, Kind: KindString,
			Aliases: []string{"Color", "color", "Цвет"}},
		{Field: FieldSize, Kind: KindString,
			Aliases: []string{"Size", "size", "Размер"}},
		{Field: FieldQuantity, Kind: KindInteger, Required: true, NonNegative: true,
			Aliases: []string{"Quantity", "quantity", "Qty", "Количество", "Кол-во"}},
		{Field: FieldAmount, Kind: KindNumber, Required: true, NonNegative: true,
			Aliases: []string{"Amount", "amount", "Price", "Сумма", "Цена", "Стоимость"}},
		{Field: FieldMarketplace, Kind: KindString,
			Aliases: []string{"Marketplace", "marketplace", "Площадка", "Маркетплейс"}},
		{Field: FieldOrderDate, Kind: KindDate, Required: true,
			Aliases: []string{"Order Date", "order_date", "Date", "Дата заказа", "Дата"}},
		{Field: FieldStatus, Kind: KindString,
			Aliases: []string{"Status", "status", "Статус"}},
	},
	models.ImportTypeProducts: {
		{Field: FieldCode, Kind: KindString, Required: true,
			Aliases: []string{"Code", "code", "SKU", "sku", "Артикул", "Код товара"}},
		{Field: FieldName, Kind: KindString, Required: true,
			Aliases: []string{"Name", "name", "Product Name", "Наименование", "Название"}},
		{Field: FieldCategory, Kind: KindString,
			Aliases: []string{"Category", "category", "Категория"}},
		{Field: FieldBrand, Kind: KindString,
			Aliases: []string{"Brand", "brand", "Бренд", "Марка"}},
		{Field: FieldColor, Kind: KindString,
			Aliases: []string{"Color", "color", "Цвет"}},
		{Field: FieldSize, Kind: KindString,
			Aliases: []string{"Size", "size", "Размер"}},
		{Field: FieldBarcode, Kind: KindString,
			Aliases: []string{"Barcode", "barcode", "Штрихкод", "EAN"}},
		{Field: FieldPurchasePrice, Kind: KindNumber, NonNegative: true,
			Aliases: []string{"Purchase Price", "purchase_price", "Cost Price", "Закупочная цена", "Себестоимость"}},
		{Field: FieldSalePrice, Kind: KindNumber, NonNegative: true,
			Aliases: []string{"Sale Price", "sale_price", "Retail Price", "Цена продажи", "Розничная цена"}},
	},
	models.ImportTypeStock: {
		{Field: FieldSKU, Kind: KindString, Required: true,
			Aliases: []string{"SKU", "sku", "Артикул", "Code"}},
		{Field: FieldWarehouse, Kind: KindString, Required: true,
			Aliases: []string{"Warehouse", "warehouse", "Склад"}},
		{Field: FieldQuantity, Kind: KindInteger, Required: true,
			Aliases: []string{"Quantity", "quantity", "Qty", "Количество", "Остаток"}},
		{Field: FieldMovementDate, Kind: KindDate, Required: true,
			Aliases: []string{"Movement Date", "movement_date", "Date", "Дата", "Дата движения"}},
		{Field: FieldMovementType, Kind: KindString,
			Aliases: []string{"Movement Type", "movement_type", "Type", "Тип движения"}},
	},
	models.ImportTypeAdvertising: {
		{Field: FieldCampaign, Kind: KindString, Required: true,
			Aliases: []string{"Campaign", "campaign", "Campaign Name", "Кампания", "Название кампании"}},
		{Field: FieldPlatform, Kind: KindString, Required: true,
			Aliases: []string{"Platform", "platform", "Площадка", "Платформа"}},
		{Field: FieldDate, Kind: KindDate, Required: true,
			Aliases: []string{"Date", "date", "Дата"}},
		{Field: FieldCost, Kind: KindNumber, Required: true, NonNegative: true,
			Aliases: []string{"Cost", "cost", "Spend", "Расход", "Затраты"}},
		{Field: FieldImpressions, Kind: KindInteger, NonNegative: true,
			Aliases: []string{"Impressions", "impressions", "Показы"}},
		{Field: FieldClicks, Kind: KindInteger, NonNegative: true,
			Aliases: []string{"Clicks", "clicks", "Клики"}},
		{Field: FieldOrders, Kind: KindInteger, NonNegative: true,
			Aliases: []string{"Orders", "orders", "Заказы"}},
	},
	models.ImportTypeAdvertisingSettlement: {
		{Field: FieldOrderID, Kind: KindString, Required: true,
			Aliases: []string{"Order ID", "order_id", "OrderId", "Номер заказа", "ID заказа"}},
		{Field: FieldSKU, Kind: KindString,
			Aliases: []string{"SKU", "sku", "Артикул"}},
		{Field: FieldSettlementDate, Kind: KindDate, Required: true,
			Aliases: []string{"Settlement Date", "settlement_date", "Date", "Дата удержания", "Дата"}},
		{Field: FieldSettlementType, Kind: KindString,
			Aliases: []string{"Settlement Type", "settlement_type", "Type", "Тип удержания"}},
		{Field: FieldAmount, Kind: KindNumber, Required: true,
			Aliases: []string{"Settlement Amount", "settlement_amount", "Amount", "Сумма удержания", "Сумма"}},
		{Field: FieldCommission, Kind: KindNumber,
			Aliases: []string{"Commission", "commission", "Комиссия"}},
	},
}

// FieldSpecs returns the ordered field specs for an import type.
func FieldSpecs(t models.ImportType) []FieldSpec {
	return fieldSpecs[t]
}

// keyFields holds the natural key of each import type, used for upserts and
// duplicate detection.
var keyFields = map[models.ImportType][]Field{
	models.ImportTypeSales:                 {FieldOrderID, FieldSKU, FieldColor, FieldSize},
	models.ImportTypeProducts:              {FieldCode},
	models.ImportTypeStock:                 {FieldSKU, FieldWarehouse, FieldMovementDate},
	models.ImportTypeAdvertising:           {FieldCampaign, FieldPlatform, FieldDate},
	models.ImportTypeAdvertisingSettlement: {FieldOrderID},
}

// KeyFields returns the natural-key fields of an import type.
func KeyFields(t models.ImportType) []Field {
	return keyFields[t]
}

// normalizeHeader reduces a raw header to its comparison form: lower case
// with spaces, underscores, dots and dashes removed. Template headers mark
// required columns with a trailing " *", which is stripped first.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimSuffix(h, " *")
	h = strings.ToLower(h)
	for _, cut := range []string{" ", "_", ".", "-"} {
		h = strings.ReplaceAll(h, cut, "")
	}
	return h
}

// ResolveColumns maps a raw header-keyed row to canonical fields for the
// given import type. Each field's aliases are checked in two passes: first
// every alias is tried for an exact header match, then every alias for a
// normalized match, so an exact match of any alias always beats a
// normalized one. Headers that resolve to no field are ignored; required
// fields left unresolved are reported by the row validator, not here.
// Resolution is pure and stable: the same header set always yields the
// same mapping.
func ResolveColumns(t models.ImportType, cells map[string]string) map[Field]string {
	// Normalized lookup keeps the lexicographically first header on
	// collision so resolution does not depend on map iteration order.
	headers := make([]string, 0, len(cells))
	for h := range cells {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	normalized := make(map[string]string, len(headers))
	for _, h := range headers {
		key := normalizeHeader(h)
		if _, taken := normalized[key]; !taken {
			normalized[key] = h
		}
	}

	resolved := make(map[Field]string)
	for _, spec := range fieldSpecs[t] {
		exact := false
		for _, alias := range spec.Aliases {
			if v, ok := cells[alias]; ok {
				resolved[spec.Field] = v
				exact = true
				break
			}
		}
		if exact {
			continue
		}
		for _, alias := range spec.Aliases {
			if h, ok := normalized[normalizeHeader(alias)]; ok {
				resolved[spec.Field] = cells[h]
				break
			}
		}
	}
	return resolved
}
