package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CatalogImportResult is returned after importing a component catalog file.
type CatalogImportResult struct {
	TotalRows  int               `json:"total_rows"`
	ValidRows  int               `json:"valid_rows"`
	ErrorRows  int               `json:"error_rows"`
	Created    int               `json:"created"`
	Updated    int               `json:"updated"`
	Errors     []ValidationError `json:"errors"`
	Components []Component       `json:"-"`
}

// catalogColumns maps normalised header labels to component fields.
var catalogColumns = map[string]string{
	"code":        "code",
	"codigo":      "code",
	"código":      "code",
	"description": "description",
	"descripcion": "description",
	"descripción": "description",
	"category":    "category",
	"categoria":   "category",
	"categoría":   "category",
	"unit":        "unit",
	"unidad":      "unit",
	"equipment":   "equipment",
	"equipo":      "equipment",
	"materials":   "materials",
	"materiales":  "materials",
	"labor":       "labor",

	"mano de obra": "labor",
}

// parseCSV reads a CSV file and returns headers + data rows.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return allRows[0], allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the first sheet.
func parseExcel(file io.Reader) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}
	return rows[0], rows[1:], nil
}

// mapCatalogHeaders returns the field key for each column, "" for unknown ones.
func mapCatalogHeaders(headers []string) []string {
	mapped := make([]string, len(headers))
	for i, h := range headers {
		norm := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), " *")
		mapped[i] = catalogColumns[strings.TrimSpace(norm)]
	}
	return mapped
}

// ParseCatalogFile parses a .csv or .xlsx component list. Cost columns left
// blank are read as 0; code, description and category are required.
func ParseCatalogFile(r io.Reader, fileName string) (*CatalogImportResult, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		headers, dataRows, err = parseCSV(r)
	case strings.HasSuffix(lowerName, ".xlsx"):
		headers, dataRows, err = parseExcel(r)
	default:
		return nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}

	columnKeys := mapCatalogHeaders(headers)
	result := &CatalogImportResult{TotalRows: len(dataRows)}

	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2
		data := make(map[string]string)
		for colIdx, key := range columnKeys {
			if key == "" || colIdx >= len(row) {
				continue
			}
			data[key] = strings.TrimSpace(row[colIdx])
		}

		var rowErrors []ValidationError
		if data["code"] == "" {
			rowErrors = append(rowErrors, ValidationError{Row: rowNum, Field: "Code", Message: "Code is required"})
		}
		if data["description"] == "" {
			rowErrors = append(rowErrors, ValidationError{Row: rowNum, Field: "Description", Message: "Description is required"})
		}
		if data["category"] == "" {
			rowErrors = append(rowErrors, ValidationError{Row: rowNum, Field: "Category", Message: "Category is required"})
		}

		var costs [3]decimal.Decimal
		for i, key := range []string{"equipment", "materials", "labor"} {
			d, err := ParseAmount(data[key], BlankAsZero)
			if err == nil {
				err = nonNegativeDecimal(d)
			}
			if err != nil {
				rowErrors = append(rowErrors, ValidationError{Row: rowNum, Field: key, Message: err.Error()})
				continue
			}
			costs[i] = d
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}
		result.Components = append(result.Components, Component{
			Code:              data["code"],
			Description:       data["description"],
			Category:          data["category"],
			Unit:              data["unit"],
			BaseEquipmentCost: costs[0],
			BaseMaterialCost:  costs[1],
			BaseLaborCost:     costs[2],
			Active:            true,
		})
	}
	result.ValidRows = len(result.Components)
	return result, nil
}

// ImportCatalogFile parses a component list and upserts every valid row by
// code in one transaction. Nothing is written when any row fails validation.
func ImportCatalogFile(app core.App, r io.Reader, fileName string) (*CatalogImportResult, error) {
	result, err := ParseCatalogFile(r, fileName)
	if err != nil {
		return nil, err
	}
	if result.ErrorRows > 0 {
		return result, fmt.Errorf("%w: %d row(s) failed validation", ErrInvalidLineItem, result.ErrorRows)
	}

	err = app.RunInTransaction(func(txApp core.App) error {
		result.Created, result.Updated = 0, 0
		for _, comp := range result.Components {
			created, err := UpsertComponent(txApp, comp)
			if err != nil {
				return err
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
