// Package testhelpers provides utilities for testing PocketBase-based applications.
package testhelpers

import (
	"strings"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"airsolutions/collections"
	"airsolutions/services"
)

// Now is the fixed clock used by record factories.
var Now = time.Date(2025, time.March, 7, 14, 5, 0, 0, time.UTC)

// NewTestApp creates a PocketBase instance backed by a temporary directory.
// It bootstraps the app and runs collections.Setup to create all tables.
// The temporary directory is cleaned up automatically when the test finishes.
func NewTestApp(t *testing.T) *pocketbase.PocketBase {
	t.Helper()

	tmpDir := t.TempDir()
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: tmpDir,
	})

	if err := app.Bootstrap(); err != nil {
		t.Fatalf("failed to bootstrap test app: %v", err)
	}

	collections.Setup(app)

	return app
}

// Dec parses a decimal literal, failing the test on bad input.
func Dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// SetConfig stores a configuration value.
func SetConfig(t *testing.T, app core.App, key, value string) {
	t.Helper()
	if err := services.NewRecordConfig(app).Set(key, value); err != nil {
		t.Fatalf("failed to set config %s: %v", key, err)
	}
}

// CreateTestClient creates a client record with the given name and returns it.
func CreateTestClient(t *testing.T, app core.App, name string) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("clients")
	if err != nil {
		t.Fatalf("failed to find clients collection: %v", err)
	}

	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("email", "compras@cliente.example")
	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test client: %v", err)
	}
	return record
}

// CreateTestProject creates an empty project through the project store.
func CreateTestProject(t *testing.T, app core.App, name string) services.Project {
	t.Helper()

	p, err := services.NewProjectStore(app).Create(services.ProjectInput{Name: name}, Now)
	if err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTestLevel adds a level to the stored project and returns the updated
// project and the new level.
func CreateTestLevel(t *testing.T, app core.App, p services.Project, code, name string) (services.Project, services.Level) {
	t.Helper()

	p, l, err := services.NewProjectStore(app).AddLevel(p.ID, p.Version, services.LevelInput{Code: code, Name: name})
	if err != nil {
		t.Fatalf("failed to create test level: %v", err)
	}
	return p, l
}

// CreateTestItem adds an item to a stored level. Costs are given as decimal
// literals: quantity, equipment, materials, labor.
func CreateTestItem(t *testing.T, app core.App, projectID string, l services.Level, spec, qty, eq, mat, lab string) (services.Project, services.ProjectItem) {
	t.Helper()

	store := services.NewProjectStore(app)
	current, err := store.Load(projectID)
	if err != nil {
		t.Fatalf("failed to load project: %v", err)
	}
	level, ok := current.Level(l.ID)
	if !ok {
		t.Fatalf("level %s not in project %s", l.ID, projectID)
	}
	p, it, err := store.AddItem(projectID, l.ID, level.Version, services.ProjectItem{
		Specification:     spec,
		Description:       spec,
		Unit:              "Unidad",
		Quantity:          Dec(t, qty),
		UnitCostEquipment: Dec(t, eq),
		UnitCostMaterials: Dec(t, mat),
		UnitCostLabor:     Dec(t, lab),
	})
	if err != nil {
		t.Fatalf("failed to create test item: %v", err)
	}
	return p, it
}

// CreateTestEquipment creates an active equipment catalog entry.
func CreateTestEquipment(t *testing.T, app core.App, name string, hours float64) *core.Record {
	t.Helper()

	col, err := app.FindCollectionByNameOrId("equipment_catalog")
	if err != nil {
		t.Fatalf("failed to find equipment_catalog collection: %v", err)
	}
	record := core.NewRecord(col)
	record.Set("name", name)
	record.Set("category", "Mini split")
	record.Set("maintenance_hours", hours)
	record.Set("active", true)
	if err := app.Save(record); err != nil {
		t.Fatalf("failed to save test equipment: %v", err)
	}
	return record
}

// CreateTestComponent creates an active HVAC component.
func CreateTestComponent(t *testing.T, app core.App, code string, eq, mat, lab float64) services.Component {
	t.Helper()

	comp := services.Component{
		Code:              code,
		Description:       "Componente " + code,
		Category:          "Dampers",
		Unit:              "unidad",
		BaseEquipmentCost: decimal.NewFromFloat(eq),
		BaseMaterialCost:  decimal.NewFromFloat(mat),
		BaseLaborCost:     decimal.NewFromFloat(lab),
		Active:            true,
	}
	if _, err := services.UpsertComponent(app, comp); err != nil {
		t.Fatalf("failed to save test component: %v", err)
	}
	stored, err := app.FindFirstRecordByData("hvac_components", "code", code)
	if err != nil {
		t.Fatalf("failed to reload test component: %v", err)
	}
	comp.ID = stored.Id
	return comp
}

// CreateTestQuotation prices and saves a quotation with one material line and
// one expense line (subtotal 140).
func CreateTestQuotation(t *testing.T, app core.App, clientID string) services.Quotation {
	t.Helper()

	mat, err := services.NewUnitLine(services.CategoryMaterial, "Filtro", Dec(t, "4"), Dec(t, "25"))
	if err != nil {
		t.Fatalf("failed to build material line: %v", err)
	}
	exp, err := services.NewExpenseLine("Transporte", Dec(t, "40"))
	if err != nil {
		t.Fatalf("failed to build expense line: %v", err)
	}
	q, err := services.NewQuotation([]services.LineItem{mat, exp}, services.DefaultPricingConfig(), services.QuotationInput{
		ClientID:       clientID,
		VisitsPerYear:  1,
		TaxRatePercent: Dec(t, "13"),
	}, Now)
	if err != nil {
		t.Fatalf("failed to price test quotation: %v", err)
	}
	saved, err := services.NewQuotationStore(app).Create(q)
	if err != nil {
		t.Fatalf("failed to save test quotation: %v", err)
	}
	return saved
}

// AssertBodyContains checks that body contains all specified fragments.
func AssertBodyContains(t *testing.T, body string, fragments ...string) {
	t.Helper()

	for _, frag := range fragments {
		if !strings.Contains(body, frag) {
			t.Errorf("expected body to contain %q, but it was not found\nbody (first 500 chars): %s",
				frag, truncate(body, 500))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
