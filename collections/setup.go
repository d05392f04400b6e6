package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase/core"

	"airsolutions/services"
)

// Setup programmatically creates/ensures the configuration, catalog,
// quotation and project collections exist.
func Setup(app core.App) {
	ensureCollection(app, "configuration", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "key", Required: true})
		c.Fields.Add(&core.TextField{Name: "value", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_configuration_key", true, "key", "")
	})

	clients := ensureCollection(app, "clients", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "contact", Required: false})
		c.Fields.Add(&core.EmailField{Name: "email", Required: false})
		c.Fields.Add(&core.TextField{Name: "phone", Required: false})
		c.Fields.Add(&core.TextField{Name: "address", Required: false})
		c.Fields.Add(&core.TextField{Name: "tax_id", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})

	ensureCollection(app, "equipment_catalog", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "category", Required: false})
		c.Fields.Add(&core.NumberField{Name: "maintenance_hours", Required: false})
		c.Fields.Add(&core.BoolField{Name: "active", Required: false})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
	})

	ensureCollection(app, "materials", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_price", Required: false})
		c.Fields.Add(&core.BoolField{Name: "active", Required: false})
	})

	components := ensureCollection(app, "hvac_components", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: true})
		c.Fields.Add(&core.TextField{Name: "category", Required: true})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.NumberField{Name: "base_equipment_cost", Required: false})
		c.Fields.Add(&core.NumberField{Name: "base_material_cost", Required: false})
		c.Fields.Add(&core.NumberField{Name: "base_labor_cost", Required: false})
		c.Fields.Add(&core.BoolField{Name: "active", Required: false})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
		c.AddIndex("idx_hvac_components_code", true, "code", "")
	})

	projects := ensureCollection(app, "projects", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "number", Required: true})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.RelationField{
			Name:         "client",
			Required:     false,
			CollectionId: clients.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "location", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "manager", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    services.ProjectStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
		addCostFields(c)
		c.Fields.Add(&core.NumberField{Name: "version", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_projects_number", true, "number", "")
	})

	levels := ensureCollection(app, "project_levels", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "code", Required: true})
		c.Fields.Add(&core.TextField{Name: "name", Required: true})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		addCostFields(c)
		c.Fields.Add(&core.NumberField{Name: "version", Required: false})
		c.AddIndex("idx_project_levels_code", true, "project, code", "")
	})

	ensureCollection(app, "project_files", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		// Deleting the level unlinks the file instead of removing it.
		c.Fields.Add(&core.RelationField{
			Name:         "level",
			Required:     false,
			CollectionId: levels.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.FileField{
			Name:      "file",
			Required:  true,
			MaxSelect: 1,
			MaxSize:   50 << 20,
		})
		c.Fields.Add(&core.TextField{Name: "original_name", Required: true})
		c.Fields.Add(&core.TextField{Name: "file_type", Required: false})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
	})

	ensureCollection(app, "project_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "level",
			Required:      true,
			CollectionId:  levels.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "component",
			Required:     false,
			CollectionId: components.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "specification", Required: true})
		c.Fields.Add(&core.TextField{Name: "description", Required: false})
		c.Fields.Add(&core.TextField{Name: "unit", Required: false})
		c.Fields.Add(&core.NumberField{Name: "quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_cost_equipment", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_cost_materials", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_cost_labor", Required: false})
		addCostFields(c)
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
	})

	quotations := ensureCollection(app, "quotations", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "number", Required: true})
		c.Fields.Add(&core.RelationField{
			Name:         "client",
			Required:     false,
			CollectionId: clients.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.RelationField{
			Name:         "project",
			Required:     false,
			CollectionId: projects.Id,
			MaxSelect:    1,
		})
		c.Fields.Add(&core.TextField{Name: "service_type", Required: false})
		c.Fields.Add(&core.TextField{Name: "notes", Required: false})
		c.Fields.Add(&core.DateField{Name: "issued_at", Required: false})
		c.Fields.Add(&core.NumberField{Name: "visits_per_year", Required: true})
		c.Fields.Add(&core.NumberField{Name: "markup_factor", Required: true})
		c.Fields.Add(&core.NumberField{Name: "tax_rate_percent", Required: false})
		c.Fields.Add(&core.NumberField{Name: "exchange_rate", Required: true})
		c.Fields.Add(&core.BoolField{Name: "include_social_charges", Required: false})
		c.Fields.Add(&core.BoolField{Name: "display_in_secondary_currency", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    quotationStatusValues(),
			MaxSelect: 1,
		})
		for _, cat := range services.Categories {
			c.Fields.Add(&core.NumberField{Name: "subtotal_" + string(cat), Required: false})
		}
		c.Fields.Add(&core.NumberField{Name: "subtotal", Required: false})
		c.Fields.Add(&core.NumberField{Name: "social_charges", Required: false})
		c.Fields.Add(&core.NumberField{Name: "tax_base", Required: false})
		c.Fields.Add(&core.NumberField{Name: "tax_amount", Required: false})
		c.Fields.Add(&core.NumberField{Name: "total", Required: false})
		c.Fields.Add(&core.NumberField{Name: "version", Required: false})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
		c.AddIndex("idx_quotations_number", true, "number", "")
	})

	ensureCollection(app, "quotation_line_items", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "quotation",
			Required:      true,
			CollectionId:  quotations.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.NumberField{Name: "sort_order", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "category",
			Required:  true,
			Values:    categoryValues(),
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "description", Required: true})
		c.Fields.Add(&core.TextField{Name: "ref_id", Required: false})
		c.Fields.Add(&core.TextField{Name: "detail", Required: false})
		c.Fields.Add(&core.NumberField{Name: "quantity", Required: false})
		c.Fields.Add(&core.NumberField{Name: "unit_price", Required: false})
		c.Fields.Add(&core.NumberField{Name: "supply_length", Required: false})
		c.Fields.Add(&core.NumberField{Name: "return_length", Required: false})
		c.Fields.Add(&core.NumberField{Name: "maintenance_hours", Required: false})
		c.Fields.Add(&core.NumberField{Name: "subtotal", Required: false})
	})
}

// addCostFields adds the four rollup fields shared by projects, levels and
// items.
func addCostFields(c *core.Collection) {
	c.Fields.Add(&core.NumberField{Name: "cost_equipment", Required: false})
	c.Fields.Add(&core.NumberField{Name: "cost_materials", Required: false})
	c.Fields.Add(&core.NumberField{Name: "cost_labor", Required: false})
	c.Fields.Add(&core.NumberField{Name: "total", Required: false})
}

func quotationStatusValues() []string {
	out := make([]string, len(services.QuotationStatuses))
	for i, s := range services.QuotationStatuses {
		out[i] = string(s)
	}
	return out
}

func categoryValues() []string {
	out := make([]string, len(services.Categories))
	for i, c := range services.Categories {
		out[i] = string(c)
	}
	return out
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app core.App, name string, addFields func(*core.Collection)) *core.Collection {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		log.Printf("Collection %q already exists, skipping creation.\n", name)
		return existing
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		log.Fatalf("Failed to create collection %q: %v", name, err)
	}

	fmt.Printf("Created collection %q (id=%s)\n", name, collection.Id)
	return collection
}
