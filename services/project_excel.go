package services

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const projectSheet = "Project"

// projectColumns is the column layout shared by export and import.
var projectColumns = []string{
	"Level", "Level name", "#", "Specification", "Description", "Unit",
	"Qty", "Equipment", "Materials", "Labor", "Total",
}

const projectHeaderRow = 5

// GenerateProjectExcel writes a project as one sheet: a heading row per level
// with its subtotals, followed by its items with unit costs and totals, and
// the project totals at the bottom.
func GenerateProjectExcel(p Project) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, projectSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(projectColumns))
	widths := []float64{10, 24, 6, 22, 40, 10, 10, 14, 14, 14, 16}
	for i, w := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(projectSheet, name, name, w); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", name, err)
		}
	}

	// ── Styles ──────────────────────────────────────────────────────────

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#143D66"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	moneyFormat := "#,##0.00"
	levelStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 10},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"#E8F0F8"}, Pattern: 1},
		Border:       thinBorders(),
		CustomNumFmt: &moneyFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("create level style: %w", err)
	}

	itemStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &moneyFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("create item style: %w", err)
	}

	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &moneyFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	// ── Header Rows (1-3) ───────────────────────────────────────────────

	if err := f.MergeCell(projectSheet, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(projectSheet, "A1", sanitizeExcelCell(p.Number+" "+p.Name))
	f.SetCellStyle(projectSheet, "A1", lastCol+"1", titleStyle)
	f.SetCellValue(projectSheet, "A2", "Status: "+p.Status)
	if p.Location != "" {
		f.SetCellValue(projectSheet, "A3", sanitizeExcelCell("Location: "+p.Location))
	}

	// ── Column Headers ──────────────────────────────────────────────────

	for i, h := range projectColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, projectHeaderRow)
		f.SetCellValue(projectSheet, cell, h)
	}
	f.SetCellStyle(projectSheet, fmt.Sprintf("A%d", projectHeaderRow), fmt.Sprintf("%s%d", lastCol, projectHeaderRow), headerStyle)

	// ── Levels and Items ────────────────────────────────────────────────

	row := projectHeaderRow + 1
	for _, l := range p.Levels {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(projectSheet, "A"+r, sanitizeExcelCell(l.Code))
		f.SetCellValue(projectSheet, "B"+r, sanitizeExcelCell(l.Name))
		setBreakdownCells(f, row, l.Subtotals)
		f.SetCellStyle(projectSheet, "A"+r, lastCol+r, levelStyle)
		row++

		for i, it := range l.Items {
			r := fmt.Sprintf("%d", row)
			f.SetCellValue(projectSheet, "A"+r, sanitizeExcelCell(l.Code))
			f.SetCellValue(projectSheet, "C"+r, i+1)
			f.SetCellValue(projectSheet, "D"+r, sanitizeExcelCell(it.Specification))
			f.SetCellValue(projectSheet, "E"+r, sanitizeExcelCell(it.Description))
			f.SetCellValue(projectSheet, "F"+r, sanitizeExcelCell(it.Unit))
			f.SetCellValue(projectSheet, "G"+r, it.Quantity.InexactFloat64())
			f.SetCellValue(projectSheet, "H"+r, it.UnitCostEquipment.InexactFloat64())
			f.SetCellValue(projectSheet, "I"+r, it.UnitCostMaterials.InexactFloat64())
			f.SetCellValue(projectSheet, "J"+r, it.UnitCostLabor.InexactFloat64())
			f.SetCellValue(projectSheet, "K"+r, it.Costs.Total.InexactFloat64())
			f.SetCellStyle(projectSheet, "A"+r, lastCol+r, itemStyle)
			row++
		}
	}

	// ── Project Totals ──────────────────────────────────────────────────

	row++
	r := fmt.Sprintf("%d", row)
	f.SetCellValue(projectSheet, "F"+r, "Project total")
	setBreakdownCells(f, row, p.Totals)
	f.SetCellStyle(projectSheet, "F"+r, lastCol+r, totalStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// setBreakdownCells writes extended equipment, materials and labor costs into
// the unit cost columns and the total into the last column.
func setBreakdownCells(f *excelize.File, row int, b CostBreakdown) {
	r := fmt.Sprintf("%d", row)
	f.SetCellValue(projectSheet, "H"+r, Round2(b.Equipment).InexactFloat64())
	f.SetCellValue(projectSheet, "I"+r, Round2(b.Materials).InexactFloat64())
	f.SetCellValue(projectSheet, "J"+r, Round2(b.Labor).InexactFloat64())
	f.SetCellValue(projectSheet, "K"+r, Round2(b.Total).InexactFloat64())
}

// ImportedItem is one item row read from a project sheet.
type ImportedItem struct {
	Row       int
	LevelCode string
	Item      ProjectItem
}

// ImportResult summarises a project sheet import.
type ImportResult struct {
	Levels   []LevelInput      `json:"-"`
	Items    []ImportedItem    `json:"-"`
	Created  int               `json:"levels_created"`
	Updated  int               `json:"items_updated"`
	Inserted int               `json:"items_inserted"`
	Errors   []ValidationError `json:"errors"`
}

// ParseProjectExcel reads a sheet in the GenerateProjectExcel layout. Rows
// with a level code and no specification are level headings; rows with a
// specification are items. Blank numeric cells are read as 0.
func ParseProjectExcel(r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to read sheet: %w", err)
	}

	var res ImportResult
	seenLevels := make(map[string]bool)
	for i := projectHeaderRow; i < len(rows); i++ {
		rowNum := i + 1
		cells := rows[i]
		cell := func(col int) string {
			if col < len(cells) {
				return strings.TrimSpace(cells[col])
			}
			return ""
		}

		code := cell(0)
		spec := cell(3)
		if code == "" {
			continue
		}
		if spec == "" {
			key := strings.ToLower(code)
			if !seenLevels[key] {
				seenLevels[key] = true
				res.Levels = append(res.Levels, LevelInput{Code: code, Name: cell(1)})
			}
			continue
		}

		var amounts [4]decimal.Decimal
		rowValid := true
		for j, col := range []int{6, 7, 8, 9} {
			d, err := ParseAmount(cell(col), BlankAsZero)
			if err != nil {
				res.Errors = append(res.Errors, ValidationError{Row: rowNum, Field: projectColumns[col], Message: err.Error()})
				rowValid = false
				continue
			}
			amounts[j] = d
		}
		if !rowValid {
			continue
		}

		it := ProjectItem{
			Specification:     spec,
			Description:       cell(4),
			Unit:              cell(5),
			Quantity:          amounts[0],
			UnitCostEquipment: amounts[1],
			UnitCostMaterials: amounts[2],
			UnitCostLabor:     amounts[3],
		}
		if err := it.Validate(); err != nil {
			res.Errors = append(res.Errors, ValidationError{Row: rowNum, Field: "Specification", Message: err.Error()})
			continue
		}
		res.Items = append(res.Items, ImportedItem{Row: rowNum, LevelCode: code, Item: it})
	}
	return res, nil
}

// ApplyImport merges parsed rows into p. Items are matched by specification
// inside their level and updated; unmatched items are inserted. Levels that do
// not exist yet are created. Rows with errors abort the whole import.
func ApplyImport(p *Project, res *ImportResult) error {
	if len(res.Errors) > 0 {
		return fmt.Errorf("%w: %d row(s) failed validation", ErrInvalidLineItem, len(res.Errors))
	}

	names := make(map[string]string, len(res.Levels))
	for _, l := range res.Levels {
		names[strings.ToLower(l.Code)] = l.Name
	}

	for _, row := range res.Items {
		level, ok := p.LevelByCode(row.LevelCode)
		if !ok {
			name := names[strings.ToLower(row.LevelCode)]
			if name == "" {
				name = row.LevelCode
			}
			created, err := p.AddLevel(LevelInput{Code: row.LevelCode, Name: name})
			if err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			level = created
			res.Created++
		}

		if existing, found := findBySpecification(level, row.Item.Specification); found {
			update := row.Item
			update.ComponentID = existing.ComponentID
			update.Notes = existing.Notes
			if _, err := p.UpdateItem(existing.ID, update); err != nil {
				return fmt.Errorf("row %d: %w", row.Row, err)
			}
			res.Updated++
			continue
		}
		if _, err := p.AddItem(level.ID, row.Item); err != nil {
			return fmt.Errorf("row %d: %w", row.Row, err)
		}
		res.Inserted++
	}
	return nil
}

func findBySpecification(l Level, spec string) (ProjectItem, bool) {
	for _, it := range l.Items {
		if strings.EqualFold(strings.TrimSpace(it.Specification), spec) {
			return it, true
		}
	}
	return ProjectItem{}, false
}

// ImportProjectExcel parses r and merges it into the stored project in one
// transaction. expectedVersion is the project's version.
func (s *ProjectStore) ImportProjectExcel(projectID string, expectedVersion int, r io.Reader) (Project, ImportResult, error) {
	res, err := ParseProjectExcel(r)
	if err != nil {
		return Project{}, res, err
	}
	p, err := s.mutate(projectID, func(p *Project) error {
		if err := checkVersion("project", projectID, p.Version, expectedVersion); err != nil {
			return err
		}
		return ApplyImport(p, &res)
	})
	return p, res, err
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +, -,
// @, \t or \r as formulas, which can be abused for code execution or data theft.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns a slice of excelize.Border for thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1, // thin
		}
	}
	return borders
}
