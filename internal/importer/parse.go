package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// RawRow is one data row of an uploaded file: the 1-indexed source line
// (header is line 1) and cells keyed by the raw header string.
type RawRow struct {
	Line  int
	Cells map[string]string
}

// SupportedExtension reports whether the file name carries an importable
// extension.
func SupportedExtension(filename string) bool {
	switch FileExtension(filename) {
	case "csv", "xlsx", "xls":
		return true
	}
	return false
}

// FileExtension returns the lower-cased extension without the dot.
func FileExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}

// ParseFile reads an uploaded file into raw rows, first row as header.
// CSV is parsed with encoding/csv, xlsx with excelize and legacy BIFF xls
// with extrame/xls (first sheet in both cases).
func ParseFile(data []byte, filename string) ([]RawRow, error) {
	switch FileExtension(filename) {
	case "csv":
		return parseCSV(bytes.NewReader(data))
	case "xlsx":
		return parseXLSX(bytes.NewReader(data))
	case "xls":
		return parseXLS(bytes.NewReader(data))
	}
	return nil, fmt.Errorf("unsupported file type: only CSV and Excel files are supported")
}

func parseCSV(file io.Reader) ([]RawRow, error) {
	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []RawRow
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", line+1, err)
		}

		line++
		cells := make(map[string]string, len(headers))
		for i, value := range record {
			if i < len(headers) && headers[i] != "" {
				cells[headers[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, RawRow{Line: line, Cells: cells})
	}

	return rows, nil
}

// parseXLS reads a legacy OLE2/BIFF workbook, which excelize cannot open.
func parseXLS(file io.ReadSeeker) ([]RawRow, error) {
	wb, err := xls.OpenReader(file, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	header := sheet.Row(0)
	if header == nil {
		return nil, fmt.Errorf("file has no header row")
	}
	headers := make([]string, header.LastCol())
	for i := header.FirstCol(); i < header.LastCol(); i++ {
		headers[i] = strings.TrimSpace(header.Col(i))
	}

	var rows []RawRow
	for r := 1; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			continue
		}
		cells := make(map[string]string, len(headers))
		for i := row.FirstCol(); i < row.LastCol() && i < len(headers); i++ {
			if headers[i] != "" {
				cells[headers[i]] = strings.TrimSpace(row.Col(i))
			}
		}
		rows = append(rows, RawRow{Line: r + 1, Cells: cells})
	}

	return rows, nil
}

func parseXLSX(file io.Reader) ([]RawRow, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	excelRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []RawRow
	for rowIdx, excelRow := range excelRows[1:] {
		cells := make(map[string]string, len(headers))
		for i, value := range excelRow {
			if i < len(headers) && headers[i] != "" {
				cells[headers[i]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, RawRow{Line: rowIdx + 2, Cells: cells})
	}

	return rows, nil
}
