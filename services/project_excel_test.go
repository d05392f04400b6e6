package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func excelProject(t *testing.T) *Project {
	t.Helper()
	p := newTestProject(t)
	l, err := p.AddLevel(LevelInput{Code: "N1", Name: "Nivel 1"})
	require.NoError(t, err)
	_, err = p.AddItem(l.ID, ProjectItem{
		Specification:     "DM",
		Description:       "Ducto metalico",
		Unit:              "m",
		Quantity:          dec("10"),
		UnitCostEquipment: dec("0"),
		UnitCostMaterials: dec("12.5"),
		UnitCostLabor:     dec("4"),
	})
	require.NoError(t, err)
	_, err = p.AddItem(l.ID, ProjectItem{
		Specification:     "=VE-AX",
		Description:       "Ventilador axial",
		Unit:              "Unidad",
		Quantity:          dec("2"),
		UnitCostEquipment: dec("300"),
		UnitCostMaterials: dec("20"),
		UnitCostLabor:     dec("45.25"),
	})
	require.NoError(t, err)
	return p
}

func TestGenerateProjectExcel(t *testing.T) {
	p := excelProject(t)

	out, err := GenerateProjectExcel(*p)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{projectSheet}, f.GetSheetList())

	title, _ := f.GetCellValue(projectSheet, "A1")
	assert.Equal(t, "PROY-2025-001 Torre Medica", title)

	header, _ := f.GetCellValue(projectSheet, "D5")
	assert.Equal(t, "Specification", header)

	levelCode, _ := f.GetCellValue(projectSheet, "A6")
	levelName, _ := f.GetCellValue(projectSheet, "B6")
	assert.Equal(t, "N1", levelCode)
	assert.Equal(t, "Nivel 1", levelName)

	spec, _ := f.GetCellValue(projectSheet, "D8")
	assert.Equal(t, "'=VE-AX", spec, "formula-like text must be escaped")

	total, _ := f.GetCellValue(projectSheet, "K7", excelize.Options{RawCellValue: true})
	assert.Equal(t, "165", total)
}

func TestParseProjectExcel_RoundTrip(t *testing.T) {
	p := excelProject(t)
	out, err := GenerateProjectExcel(*p)
	require.NoError(t, err)

	res, err := ParseProjectExcel(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Levels, 1)
	assert.Equal(t, "Nivel 1", res.Levels[0].Name)
	require.Len(t, res.Items, 2)

	first := res.Items[0]
	assert.Equal(t, 7, first.Row)
	assert.Equal(t, "N1", first.LevelCode)
	assert.Equal(t, "DM", first.Item.Specification)
	assertDecimal(t, "10", first.Item.Quantity)
	assertDecimal(t, "12.5", first.Item.UnitCostMaterials)
	assertDecimal(t, "45.25", res.Items[1].Item.UnitCostLabor)
}

// writeSheet builds a workbook in the project layout from raw rows, starting
// at the first data row.
func writeSheet(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, h := range projectColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, projectHeaderRow)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, projectHeaderRow+1+r)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParseProjectExcel_BlankCostsAreZero(t *testing.T) {
	data := writeSheet(t, [][]any{
		{"S1", "Sotano"},
		{"S1", "", "1", "FD", "Damper cortafuego", "Unidad", 3, "", 18, ""},
	})

	res, err := ParseProjectExcel(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Items, 1)
	assertDecimal(t, "0", res.Items[0].Item.UnitCostEquipment)
	assertDecimal(t, "18", res.Items[0].Item.UnitCostMaterials)
	assertDecimal(t, "0", res.Items[0].Item.UnitCostLabor)
}

func TestParseProjectExcel_RowErrors(t *testing.T) {
	data := writeSheet(t, [][]any{
		{"N1", "", "1", "DM", "", "m", "abc", 1, 1, 1},
		{"N1", "", "2", "DA", "", "m", -2, 1, 1, 1},
	})

	res, err := ParseProjectExcel(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 6, res.Errors[0].Row)
	assert.Equal(t, "Qty", res.Errors[0].Field)
	assert.Equal(t, 7, res.Errors[1].Row)

	p := excelProject(t)
	before := p.Clone()
	err = ApplyImport(p, &res)
	assert.ErrorIs(t, err, ErrInvalidLineItem)
	assert.Equal(t, before.Totals, p.Totals)
}

func TestApplyImport_UpdatesAndInserts(t *testing.T) {
	p := excelProject(t)
	data := writeSheet(t, [][]any{
		{"n1", "", "1", "dm", "Ducto metalico", "m", 20, 0, 12.5, 4},
		{"N1", "", "2", "SD", "Difusor", "Unidad", 4, 0, 30, 10},
		{"T1", "Techo"},
		{"T1", "", "1", "EX-BA", "Extractor", "Unidad", 1, 150, 0, 50},
	})
	res, err := ParseProjectExcel(bytes.NewReader(data))
	require.NoError(t, err)

	require.NoError(t, ApplyImport(p, &res))
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Created)

	n1, ok := p.LevelByCode("N1")
	require.True(t, ok)
	require.Len(t, n1.Items, 3)
	assertDecimal(t, "20", n1.Items[0].Quantity)
	assertDecimal(t, "330", n1.Items[0].Costs.Total)

	t1, ok := p.LevelByCode("T1")
	require.True(t, ok)
	assert.Equal(t, "Techo", t1.Name)
	assertDecimal(t, "200", t1.Subtotals.Total)

	// 330 + 730.5 + 160 + 200
	assertDecimal(t, "1420.5", p.Totals.Total)
}

func TestSanitizeExcelCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty string", "", ""},
		{"normal text", "Hello", "Hello"},
		{"starts with equals", "=SUM(A1:A10)", "'=SUM(A1:A10)"},
		{"starts with plus", "+1234", "'+1234"},
		{"starts with minus", "-100", "'-100"},
		{"starts with at", "@import", "'@import"},
		{"starts with tab", "\tdata", "'\tdata"},
		{"starts with pipe", "|command", "'|command"},
		{"starts with carriage return", "\rdata", "'\rdata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeExcelCell(tt.input))
		})
	}
}

func TestThinBorders(t *testing.T) {
	borders := thinBorders()
	require.Len(t, borders, 4)
	for _, b := range borders {
		assert.Equal(t, 1, b.Style, "border %s", b.Type)
	}
}
