package services

import (
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// RecordCatalog is a CatalogProvider over the equipment_catalog and
// hvac_components collections.
type RecordCatalog struct {
	app core.App
}

// NewRecordCatalog returns a catalog backed by app.
func NewRecordCatalog(app core.App) RecordCatalog {
	return RecordCatalog{app: app}
}

func (c RecordCatalog) Equipment(id string) (Equipment, error) {
	record, err := c.app.FindRecordById("equipment_catalog", id)
	if err != nil {
		return Equipment{}, fmt.Errorf("equipment %s: %w", id, ErrNotFound)
	}
	return equipmentFromRecord(record), nil
}

func (c RecordCatalog) Component(id string) (Component, error) {
	record, err := c.app.FindRecordById("hvac_components", id)
	if err != nil {
		return Component{}, fmt.Errorf("component %s: %w", id, ErrNotFound)
	}
	return componentFromRecord(record), nil
}

// ListEquipment returns the active equipment catalog ordered by name.
func (c RecordCatalog) ListEquipment() ([]Equipment, error) {
	records, err := c.app.FindRecordsByFilter("equipment_catalog", "active = true", "name", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list equipment: %w", err)
	}
	out := make([]Equipment, 0, len(records))
	for _, r := range records {
		out = append(out, equipmentFromRecord(r))
	}
	return out, nil
}

// Material is a priced entry of the materials catalog.
type Material struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ListMaterials returns the active materials catalog ordered by name.
func (c RecordCatalog) ListMaterials() ([]Material, error) {
	records, err := c.app.FindRecordsByFilter("materials", "active = true", "name", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	out := make([]Material, 0, len(records))
	for _, r := range records {
		out = append(out, Material{
			ID:        r.Id,
			Name:      r.GetString("name"),
			Unit:      r.GetString("unit"),
			UnitPrice: getDecimal(r, "unit_price"),
		})
	}
	return out, nil
}

// ListComponents returns active components, optionally restricted to one
// category, ordered by code.
func (c RecordCatalog) ListComponents(category string) ([]Component, error) {
	filter := "active = true"
	params := dbx.Params{}
	if category != "" {
		filter += " && category = {:category}"
		params["category"] = category
	}
	records, err := c.app.FindRecordsByFilter("hvac_components", filter, "code", 0, 0, params)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	out := make([]Component, 0, len(records))
	for _, r := range records {
		out = append(out, componentFromRecord(r))
	}
	return out, nil
}

// UpsertComponent creates or updates the component with the same code.
// It reports whether a new row was created.
func UpsertComponent(app core.App, comp Component) (bool, error) {
	col, err := app.FindCollectionByNameOrId("hvac_components")
	if err != nil {
		return false, fmt.Errorf("find hvac_components collection: %w", err)
	}
	record, err := app.FindFirstRecordByFilter(col, "code = {:code}", dbx.Params{"code": comp.Code})
	created := false
	if err != nil {
		record = core.NewRecord(col)
		created = true
	}
	record.Set("code", comp.Code)
	record.Set("description", comp.Description)
	record.Set("category", comp.Category)
	record.Set("unit", comp.Unit)
	setDecimal(record, "base_equipment_cost", comp.BaseEquipmentCost)
	setDecimal(record, "base_material_cost", comp.BaseMaterialCost)
	setDecimal(record, "base_labor_cost", comp.BaseLaborCost)
	record.Set("active", comp.Active)
	if err := app.Save(record); err != nil {
		return false, fmt.Errorf("save component %s: %w", comp.Code, err)
	}
	return created, nil
}

func equipmentFromRecord(r *core.Record) Equipment {
	return Equipment{
		ID:               r.Id,
		Name:             r.GetString("name"),
		Category:         r.GetString("category"),
		MaintenanceHours: getDecimal(r, "maintenance_hours"),
	}
}

func componentFromRecord(r *core.Record) Component {
	return Component{
		ID:                r.Id,
		Code:              r.GetString("code"),
		Description:       r.GetString("description"),
		Category:          r.GetString("category"),
		Unit:              r.GetString("unit"),
		BaseEquipmentCost: getDecimal(r, "base_equipment_cost"),
		BaseMaterialCost:  getDecimal(r, "base_material_cost"),
		BaseLaborCost:     getDecimal(r, "base_labor_cost"),
		Active:            r.GetBool("active"),
	}
}
