package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"airsolutions/services"
	"airsolutions/testhelpers"
)

func TestHandleProjectCreate(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serveJSON(t, app, HandleProjectCreate(app), http.MethodPost, "/api/projects",
		map[string]any{"name": "Torre Norte", "location": "San Jose"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p services.Project
	decodeJSON(t, rec, &p)
	assert.NotEmpty(t, p.ID)
	assert.True(t, strings.HasPrefix(p.Number, "PROY-"), p.Number)
	assert.Equal(t, services.ProjectStatusPlanning, p.Status)
	assert.Equal(t, 1, p.Version)
	assert.True(t, p.Totals.Total.IsZero())
}

func TestHandleProjectCreate_Invalid(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serveJSON(t, app, HandleProjectCreate(app), http.MethodPost, "/api/projects", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serveJSON(t, app, HandleProjectCreate(app), http.MethodPost, "/api/projects",
		map[string]any{"name": "Torre", "status": "archived"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleProjectGet(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")
	testhelpers.CreateTestItem(t, app, p.ID, l, "DM-01", "2", "100", "20", "5")

	rec := serveJSON(t, app, HandleProjectGet(app), http.MethodGet, "/api/projects/"+p.ID, nil, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var got services.Project
	decodeJSON(t, rec, &got)
	require.Len(t, got.Levels, 1)
	require.Len(t, got.Levels[0].Items, 1)
	assert.True(t, got.Totals.Total.Equal(decimal.NewFromInt(250)), "total %s", got.Totals.Total)

	rec = serveJSON(t, app, HandleProjectGet(app), http.MethodGet, "/api/projects/missing", nil, "id", "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleProjectUpdate(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")

	rec := serveJSON(t, app, HandleProjectUpdate(app), http.MethodPatch, "/api/projects/"+p.ID,
		map[string]any{"version": p.Version, "name": "Clinica Este", "status": services.ProjectStatusInProgress}, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got services.Project
	decodeJSON(t, rec, &got)
	assert.Equal(t, "Clinica Este", got.Name)
	assert.Equal(t, services.ProjectStatusInProgress, got.Status)
	assert.Equal(t, p.Version+1, got.Version)

	rec = serveJSON(t, app, HandleProjectUpdate(app), http.MethodPatch, "/api/projects/"+p.ID,
		map[string]any{"version": p.Version, "name": "Otra"}, "id", p.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleProjectDelete(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")

	rec := serveJSON(t, app, HandleProjectDelete(app), http.MethodDelete, "/api/projects/"+p.ID, nil, "id", p.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "version is required")

	rec = serveJSON(t, app, HandleProjectDelete(app), http.MethodDelete, "/api/projects/"+p.ID+"?version=99", nil, "id", p.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveJSON(t, app, HandleProjectDelete(app), http.MethodDelete, fmt.Sprintf("/api/projects/%s?version=%d", p.ID, p.Version), nil, "id", p.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := app.FindRecordById("projects", p.ID)
	assert.Error(t, err)
}

func TestHandleProjectRecalculate(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")
	p, _ = testhelpers.CreateTestItem(t, app, p.ID, l, "DM-01", "1", "10", "0", "0")

	record, err := app.FindRecordById("projects", p.ID)
	require.NoError(t, err)
	record.Set("total", 999)
	require.NoError(t, app.Save(record))

	rec := serveJSON(t, app, HandleProjectRecalculate(app), http.MethodPost, "/api/projects/"+p.ID+"/recalculate", nil, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got services.Project
	decodeJSON(t, rec, &got)
	assert.True(t, got.Totals.Total.Equal(decimal.NewFromInt(10)), "total %s", got.Totals.Total)
}

func TestHandleLevelLifecycle(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")

	rec := serveJSON(t, app, HandleLevelCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels",
		map[string]any{"version": p.Version, "code": "N1", "name": "Nivel 1"}, "id", p.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created levelResponse
	decodeJSON(t, rec, &created)
	assert.Equal(t, "N1", created.Level.Code)

	// duplicate code, case-insensitive
	rec = serveJSON(t, app, HandleLevelCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels",
		map[string]any{"version": created.Project.Version, "code": "n1", "name": "Otro"}, "id", p.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveJSON(t, app, HandleLevelUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/levels/"+created.Level.ID,
		map[string]any{"version": created.Level.Version, "code": "N1", "name": "Planta baja"}, "id", p.ID, "levelId", created.Level.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated levelResponse
	decodeJSON(t, rec, &updated)
	assert.Equal(t, "Planta baja", updated.Level.Name)

	// the old level version is stale now
	rec = serveJSON(t, app, HandleLevelUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/levels/"+created.Level.ID,
		map[string]any{"version": created.Level.Version, "code": "N1", "name": "x"}, "id", p.ID, "levelId", created.Level.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	target := fmt.Sprintf("/api/projects/%s/levels/%s?version=%d", p.ID, created.Level.ID, updated.Level.Version)
	rec = serveJSON(t, app, HandleLevelDelete(app), http.MethodDelete, target, nil, "id", p.ID, "levelId", created.Level.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var after services.Project
	decodeJSON(t, rec, &after)
	assert.Empty(t, after.Levels)
}

func TestHandleLevelUpdate_MissingLevel(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")

	rec := serveJSON(t, app, HandleLevelUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/levels/missing",
		map[string]any{"version": 1, "code": "N1", "name": "x"}, "id", p.ID, "levelId", "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleItemLifecycle(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")

	rec := serveJSON(t, app, HandleItemCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels/"+l.ID+"/items",
		map[string]any{
			"version":             l.Version,
			"specification":       "VE-01",
			"description":         "Ventilador",
			"unit":                "Unidad",
			"quantity":            "2",
			"unit_cost_equipment": 300,
			"unit_cost_materials": "20",
			"unit_cost_labor":     45.25,
		}, "id", p.ID, "levelId", l.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created itemResponse
	decodeJSON(t, rec, &created)
	assert.True(t, created.Item.Costs.Total.Equal(decimal.RequireFromString("730.5")), "item total %s", created.Item.Costs.Total)
	assert.True(t, created.Project.Totals.Total.Equal(decimal.RequireFromString("730.5")))

	level, ok := created.Project.Level(l.ID)
	require.True(t, ok)

	rec = serveJSON(t, app, HandleItemUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/items/"+created.Item.ID,
		map[string]any{
			"version":             level.Version,
			"specification":       "VE-01",
			"quantity":            1,
			"unit_cost_equipment": 300,
			"unit_cost_materials": 0,
			"unit_cost_labor":     0,
		}, "id", p.ID, "itemId", created.Item.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated itemResponse
	decodeJSON(t, rec, &updated)
	assert.True(t, updated.Project.Totals.Total.Equal(decimal.NewFromInt(300)), "total %s", updated.Project.Totals.Total)

	level, _ = updated.Project.Level(l.ID)
	target := fmt.Sprintf("/api/projects/%s/items/%s?version=%d", p.ID, created.Item.ID, level.Version)
	rec = serveJSON(t, app, HandleItemDelete(app), http.MethodDelete, target, nil, "id", p.ID, "itemId", created.Item.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var after services.Project
	decodeJSON(t, rec, &after)
	assert.True(t, after.Totals.Total.IsZero())
}

func TestHandleItemCreate_FromCatalog(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	comp := testhelpers.CreateTestComponent(t, app, "DM-10", 0, 12.5, 4)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")

	rec := serveJSON(t, app, HandleItemCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels/"+l.ID+"/items",
		map[string]any{
			"version":         l.Version,
			"component_id":    comp.ID,
			"quantity":        10,
			"unit_cost_labor": 5,
		}, "id", p.ID, "levelId", l.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created itemResponse
	decodeJSON(t, rec, &created)
	assert.Equal(t, "DM-10", created.Item.Specification)
	assert.Equal(t, comp.ID, created.Item.ComponentID)
	assert.True(t, created.Item.UnitCostMaterials.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, created.Item.UnitCostLabor.Equal(decimal.NewFromInt(5)), "explicit cost overrides the catalog")
	assert.True(t, created.Item.Costs.Total.Equal(decimal.NewFromInt(175)), "total %s", created.Item.Costs.Total)
}

func TestHandleItemCreate_Invalid(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"blank quantity", map[string]any{"version": l.Version, "specification": "X", "quantity": ""}, http.StatusUnprocessableEntity},
		{"negative cost", map[string]any{"version": l.Version, "specification": "X", "quantity": 1, "unit_cost_labor": -1}, http.StatusUnprocessableEntity},
		{"text cost", map[string]any{"version": l.Version, "specification": "X", "quantity": 1, "unit_cost_labor": "abc"}, http.StatusUnprocessableEntity},
		{"stale level", map[string]any{"version": l.Version + 5, "specification": "X", "quantity": 1}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveJSON(t, app, HandleItemCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels/"+l.ID+"/items",
				tt.body, "id", p.ID, "levelId", l.ID)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	got, err := services.NewProjectStore(app).Load(p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Levels[0].Items)
}

func TestHandleProjectExcel_ExportAndImport(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")
	p, _ = testhelpers.CreateTestItem(t, app, p.ID, l, "DM-01", "2", "100", "0", "0")

	rec := serveJSON(t, app, HandleProjectExcelExport(app), http.MethodGet, "/api/projects/"+p.ID+"/excel", nil, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(strings.NewReader(rec.Body.String()))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	for i, row := range rows {
		if len(row) > 6 && row[3] == "DM-01" {
			cell, err := excelize.CoordinatesToCellName(7, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(f.GetSheetName(0), cell, 5))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rec = serveFile(t, app, HandleProjectExcelImport(app), "/api/projects/"+p.ID+"/excel", "proyecto.xlsx", buf.Bytes(),
		map[string]string{"version": fmt.Sprint(p.Version)}, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := services.NewProjectStore(app).Load(p.ID)
	require.NoError(t, err)
	assert.True(t, got.Totals.Total.Equal(decimal.NewFromInt(500)), "total %s", got.Totals.Total)

	// same version again is stale
	rec = serveFile(t, app, HandleProjectExcelImport(app), "/api/projects/"+p.ID+"/excel", "proyecto.xlsx", buf.Bytes(),
		map[string]string{"version": fmt.Sprint(p.Version)}, "id", p.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleProjectExcelImport_RejectsOtherFiles(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")

	rec := serveFile(t, app, HandleProjectExcelImport(app), "/api/projects/"+p.ID+"/excel", "proyecto.csv", []byte("a,b"),
		map[string]string{"version": "1"}, "id", p.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleItemUpdate_QuantityOnlyKeepsStoredFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	comp := testhelpers.CreateTestComponent(t, app, "DM-10", 100, 12.5, 4)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")

	rec := serveJSON(t, app, HandleItemCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels/"+l.ID+"/items",
		map[string]any{"version": l.Version, "component_id": comp.ID, "quantity": 2, "notes": "sotano"},
		"id", p.ID, "levelId", l.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created itemResponse
	decodeJSON(t, rec, &created)
	require.True(t, created.Item.Costs.Total.Equal(decimal.NewFromInt(233)), "total %s", created.Item.Costs.Total)
	level, _ := created.Project.Level(l.ID)

	rec = serveJSON(t, app, HandleItemUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/items/"+created.Item.ID,
		map[string]any{"version": level.Version, "quantity": 3}, "id", p.ID, "itemId", created.Item.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated itemResponse
	decodeJSON(t, rec, &updated)
	assert.Equal(t, comp.ID, updated.Item.ComponentID)
	assert.Equal(t, "DM-10", updated.Item.Specification)
	assert.Equal(t, comp.Description, updated.Item.Description)
	assert.Equal(t, "unidad", updated.Item.Unit)
	assert.Equal(t, "sotano", updated.Item.Notes)
	assert.True(t, updated.Item.UnitCostEquipment.Equal(decimal.NewFromInt(100)))
	assert.True(t, updated.Item.UnitCostMaterials.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, updated.Item.UnitCostLabor.Equal(decimal.NewFromInt(4)))
	assert.True(t, updated.Item.Costs.Total.Equal(decimal.RequireFromString("349.5")), "total %s", updated.Item.Costs.Total)
	assert.True(t, updated.Project.Totals.Total.Equal(decimal.RequireFromString("349.5")))

	stored, err := services.NewProjectStore(app).Load(p.ID)
	require.NoError(t, err)
	item, ok := stored.Item(created.Item.ID)
	require.True(t, ok)
	assert.True(t, item.UnitCostEquipment.Equal(decimal.NewFromInt(100)))
}

func TestHandleItemUpdate_BlankCostRejected(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")
	p, it := testhelpers.CreateTestItem(t, app, p.ID, l, "DM-01", "1", "10", "5", "2")
	level, _ := p.Level(l.ID)

	rec := serveJSON(t, app, HandleItemUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/items/"+it.ID,
		map[string]any{"version": level.Version, "unit_cost_equipment": ""}, "id", p.ID, "itemId", it.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serveJSON(t, app, HandleItemUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/items/missing",
		map[string]any{"version": level.Version, "quantity": 1}, "id", p.ID, "itemId", "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleItemCreate_MissingQuantity(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")

	rec := serveJSON(t, app, HandleItemCreate(app), http.MethodPost, "/api/projects/"+p.ID+"/levels/"+l.ID+"/items",
		map[string]any{"version": l.Version, "specification": "X"}, "id", p.ID, "levelId", l.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleProjectUpdate_KeepsAbsentFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	client := testhelpers.CreateTestClient(t, app, "Hotel Central")
	p, err := services.NewProjectStore(app).Create(services.ProjectInput{
		Name:        "Clinica",
		ClientID:    client.Id,
		Location:    "Heredia",
		Description: "Climatizacion",
		Manager:     "Ing. Mora",
		Notes:       "acceso por el sotano",
	}, testhelpers.Now)
	require.NoError(t, err)

	rec := serveJSON(t, app, HandleProjectUpdate(app), http.MethodPatch, "/api/projects/"+p.ID,
		map[string]any{"version": p.Version, "status": services.ProjectStatusPaused}, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := services.NewProjectStore(app).Load(p.ID)
	require.NoError(t, err)
	assert.Equal(t, services.ProjectStatusPaused, got.Status)
	assert.Equal(t, "Clinica", got.Name)
	assert.Equal(t, client.Id, got.ClientID)
	assert.Equal(t, "Heredia", got.Location)
	assert.Equal(t, "Climatizacion", got.Description)
	assert.Equal(t, "Ing. Mora", got.Manager)
	assert.Equal(t, "acceso por el sotano", got.Notes)

	// an explicit empty value still clears the field
	rec = serveJSON(t, app, HandleProjectUpdate(app), http.MethodPatch, "/api/projects/"+p.ID,
		map[string]any{"version": got.Version, "notes": ""}, "id", p.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err = services.NewProjectStore(app).Load(p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
	assert.Equal(t, "Heredia", got.Location)
}

func TestHandleLevelUpdate_KeepsAbsentFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l, err := services.NewProjectStore(app).AddLevel(p.ID, p.Version, services.LevelInput{
		Code: "N1", Name: "Nivel 1", Notes: "cielo falso", Order: 4,
	})
	require.NoError(t, err)

	rec := serveJSON(t, app, HandleLevelUpdate(app), http.MethodPatch, "/api/projects/"+p.ID+"/levels/"+l.ID,
		map[string]any{"version": l.Version, "name": "Planta baja"}, "id", p.ID, "levelId", l.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got levelResponse
	decodeJSON(t, rec, &got)
	assert.Equal(t, "Planta baja", got.Level.Name)
	assert.Equal(t, "N1", got.Level.Code)
	assert.Equal(t, "cielo falso", got.Level.Notes)
	assert.Equal(t, 4, got.Level.Order)
}
