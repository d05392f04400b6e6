package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"airsolutions/services"
)

// itemRequest is a posted project item. Absent fields keep the value of the
// base item: the stored item on update, the catalog prefill or an empty item
// on create.
type itemRequest struct {
	versionBody
	ComponentID       *string `json:"component_id"`
	Specification     *string `json:"specification"`
	Description       *string `json:"description"`
	Unit              *string `json:"unit"`
	Notes             *string `json:"notes"`
	Quantity          any     `json:"quantity"`
	UnitCostEquipment any     `json:"unit_cost_equipment"`
	UnitCostMaterials any     `json:"unit_cost_materials"`
	UnitCostLabor     any     `json:"unit_cost_labor"`
}

// mergeInto applies the fields present in r onto base. A new component id
// prefills the item from the catalog before the explicit fields apply.
func (r itemRequest) mergeInto(app core.App, base services.ProjectItem) (services.ProjectItem, error) {
	it := base
	if r.Quantity != nil {
		qty, err := services.ParseAmount(r.Quantity, services.BlankRejected)
		if err != nil {
			return services.ProjectItem{}, fmt.Errorf("%w: quantity: %v", services.ErrInvalidLineItem, err)
		}
		it.Quantity = qty
	}

	if r.ComponentID != nil && *r.ComponentID != base.ComponentID {
		if *r.ComponentID == "" {
			it.ComponentID = ""
		} else {
			prefilled, err := services.ItemFromCatalog(services.NewRecordCatalog(app), *r.ComponentID, it.Quantity)
			if err != nil {
				return services.ProjectItem{}, err
			}
			prefilled.Notes = it.Notes
			prefilled.Order = it.Order
			it = prefilled
		}
	}

	for _, f := range []struct {
		src *string
		dst *string
	}{
		{r.Specification, &it.Specification},
		{r.Description, &it.Description},
		{r.Unit, &it.Unit},
		{r.Notes, &it.Notes},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}

	costs := []struct {
		name string
		raw  any
		dst  *decimal.Decimal
	}{
		{"unit_cost_equipment", r.UnitCostEquipment, &it.UnitCostEquipment},
		{"unit_cost_materials", r.UnitCostMaterials, &it.UnitCostMaterials},
		{"unit_cost_labor", r.UnitCostLabor, &it.UnitCostLabor},
	}
	for _, c := range costs {
		if c.raw == nil {
			continue
		}
		d, err := services.ParseAmount(c.raw, services.BlankRejected)
		if err != nil {
			return services.ProjectItem{}, fmt.Errorf("%w: %s: %v", services.ErrInvalidLineItem, c.name, err)
		}
		*c.dst = d
	}
	return it, nil
}

type itemResponse struct {
	Project services.Project     `json:"project"`
	Item    services.ProjectItem `json:"item"`
}

// HandleItemCreate adds an item to a level. The version is the level's.
func HandleItemCreate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body itemRequest
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		if body.Quantity == nil {
			return respondError(e, "item_create", fmt.Errorf("%w: quantity: value is required", services.ErrInvalidLineItem))
		}
		it, err := body.mergeInto(app, services.ProjectItem{})
		if err != nil {
			return respondError(e, "item_create", err)
		}
		p, added, err := services.NewProjectStore(app).AddItem(e.Request.PathValue("id"), e.Request.PathValue("levelId"), body.Version, it)
		if err != nil {
			return respondError(e, "item_create", err)
		}
		return e.JSON(http.StatusCreated, itemResponse{Project: p, Item: added})
	}
}

// HandleItemUpdate edits an item. Only the fields present in the body change.
// The version is that of the item's level.
func HandleItemUpdate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body itemRequest
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		store := services.NewProjectStore(app)
		itemID := e.Request.PathValue("itemId")
		current, err := store.Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "item_update", err)
		}
		stored, ok := current.Item(itemID)
		if !ok {
			return respondError(e, "item_update", fmt.Errorf("%w: item %s not in project %s", services.ErrMissingParent, itemID, current.Number))
		}
		it, err := body.mergeInto(app, stored)
		if err != nil {
			return respondError(e, "item_update", err)
		}
		p, updated, err := store.UpdateItem(current.ID, itemID, body.Version, it)
		if err != nil {
			return respondError(e, "item_update", err)
		}
		return e.JSON(http.StatusOK, itemResponse{Project: p, Item: updated})
	}
}

// HandleItemDelete removes an item. The expected level version comes from the
// "version" query parameter.
func HandleItemDelete(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		version, err := queryVersion(e)
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, err.Error())
		}
		p, err := services.NewProjectStore(app).RemoveItem(e.Request.PathValue("id"), e.Request.PathValue("itemId"), version)
		if err != nil {
			return respondError(e, "item_delete", err)
		}
		return e.JSON(http.StatusOK, p)
	}
}
