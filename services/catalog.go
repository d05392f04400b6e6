package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Component is an HVAC catalog entry used to prefill project items.
type Component struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	BaseEquipmentCost decimal.Decimal `json:"base_equipment_cost"`
	BaseMaterialCost  decimal.Decimal `json:"base_material_cost"`
	BaseLaborCost     decimal.Decimal `json:"base_labor_cost"`
	Active            bool            `json:"active"`
}

// CatalogProvider looks up catalog entries by id. Missing entries fail with
// ErrNotFound.
type CatalogProvider interface {
	Equipment(id string) (Equipment, error)
	Component(id string) (Component, error)
}

// NewItemFromCatalog prefills a project item from a catalog component.
func NewItemFromCatalog(c Component, qty decimal.Decimal) ProjectItem {
	unit := c.Unit
	if unit == "" {
		unit = "Unidad"
	}
	return ProjectItem{
		ComponentID:       c.ID,
		Specification:     c.Code,
		Description:       c.Description,
		Unit:              unit,
		Quantity:          qty,
		UnitCostEquipment: c.BaseEquipmentCost,
		UnitCostMaterials: c.BaseMaterialCost,
		UnitCostLabor:     c.BaseLaborCost,
	}
}

// EquipmentLine looks up equipment id in catalog and prices qty units of it.
func EquipmentLine(catalog CatalogProvider, id string, qty decimal.Decimal, cfg PricingConfig) (LineItem, error) {
	eq, err := catalog.Equipment(id)
	if err != nil {
		return LineItem{}, fmt.Errorf("%w: equipment %s: %w", ErrInvalidLineItem, id, err)
	}
	return NewEquipmentLine(eq, qty, cfg)
}

// ItemFromCatalog looks up component id in catalog and prefills an item.
func ItemFromCatalog(catalog CatalogProvider, id string, qty decimal.Decimal) (ProjectItem, error) {
	c, err := catalog.Component(id)
	if err != nil {
		return ProjectItem{}, fmt.Errorf("%w: component %s: %w", ErrInvalidLineItem, id, err)
	}
	return NewItemFromCatalog(c, qty), nil
}

// MemoryCatalog is a CatalogProvider over in-memory maps.
type MemoryCatalog struct {
	Equipments map[string]Equipment
	Components map[string]Component
}

func (m MemoryCatalog) Equipment(id string) (Equipment, error) {
	eq, ok := m.Equipments[id]
	if !ok {
		return Equipment{}, fmt.Errorf("equipment %s: %w", id, ErrNotFound)
	}
	return eq, nil
}

func (m MemoryCatalog) Component(id string) (Component, error) {
	c, ok := m.Components[id]
	if !ok {
		return Component{}, fmt.Errorf("component %s: %w", id, ErrNotFound)
	}
	return c, nil
}
