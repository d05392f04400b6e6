package collections

import (
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"airsolutions/services"
)

// ── Definition structs ───────────────────────────────────────────────────

type componentDef struct {
	code        string
	description string
	category    string
	unit        string
	equipment   float64
	materials   float64
	labor       float64
}

type equipmentDef struct {
	name     string
	category string
	hours    float64
}

type materialDef struct {
	name      string
	unit      string
	unitPrice float64
}

type levelDef struct {
	code  string
	name  string
	items []itemDef
}

type itemDef struct {
	code string
	qty  float64
}

var seedComponents = []componentDef{
	{"DM", "Damper Manual", "Dampers", "unidad", 150, 50, 75},
	{"DA", "Damper Automático", "Dampers", "unidad", 450, 150, 100},
	{"ABD", "Automatic Balancing Damper", "Dampers", "unidad", 500, 180, 120},
	{"FD", "Fire Damper (Cortafuego)", "Dampers", "unidad", 600, 200, 150},
	{"SD", "Smoke Damper", "Dampers", "unidad", 650, 220, 160},
	{"VCD", "Volume Control Damper", "Dampers", "unidad", 300, 100, 80},
	{"ST-EX", "Extractor de Aire", "Extractores", "unidad", 800, 250, 200},
	{"ST-IN", "Inyector de Aire", "Inyectores", "unidad", 850, 280, 220},
	{"VE-AX", "Ventilador Axial", "Ventiladores", "unidad", 700, 200, 180},
	{"VE-CE", "Ventilador Centrífugo", "Ventiladores", "unidad", 1200, 400, 300},
	{"EX-BA", "Extractor de Baño", "Extractores", "unidad", 350, 100, 80},
	{"EX-CO", "Extractor de Cocina", "Extractores", "unidad", 900, 300, 200},
	{"DI-CI", "Difusor Circular", "Difusores", "unidad", 85, 32, 38},
	{"RE-RE", "Rejilla Retorno", "Rejillas", "unidad", 55, 20, 30},
	{"DU-FL", "Ducto Flexible", "Ductos", "ml", 18, 12, 8},
}

var seedEquipment = []equipmentDef{
	{"Mini split 12000 BTU", "Mini split", 1.5},
	{"Mini split 24000 BTU", "Mini split", 2},
	{"Fan coil 3 TR", "Fan coil", 2},
	{"Unidad paquete 10 TR", "Paquete", 4},
	{"Chiller 60 TR", "Chiller", 8},
	{"Extractor centrífugo", "Extractor", 1},
}

var seedMaterials = []materialDef{
	{"Filtro plisado 20x20", "Unidad", 12.5},
	{"Refrigerante R-410A", "Kilogramo", 18},
	{"Limpiador de serpentín", "Galón", 22},
	{"Cinta aislante", "Rollo", 3.75},
}

var seedLevels = []levelDef{
	{code: "S1", name: "Sótano 1", items: []itemDef{{"ST-EX", 2}, {"FD", 4}, {"DU-FL", 35}}},
	{code: "N1", name: "Nivel 1", items: []itemDef{{"DI-CI", 12}, {"RE-RE", 6}, {"VCD", 3}}},
	{code: "AZ", name: "Azotea", items: []itemDef{{"VE-CE", 1}, {"EX-CO", 1}}},
}

// Seed populates the catalogs and one demo client with a demo project. Each
// part is skipped when its collection already holds records, so it is safe to
// call on every startup.
func Seed(app core.App) error {
	if err := seedCatalog(app); err != nil {
		return err
	}

	existing, err := app.FindAllRecords("projects")
	if err != nil {
		return fmt.Errorf("seed: could not query projects: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Println("seed: projects collection is empty – inserting demo project …")

	clientsCol, err := app.FindCollectionByNameOrId("clients")
	if err != nil {
		return fmt.Errorf("seed: could not find clients collection: %w", err)
	}
	client := core.NewRecord(clientsCol)
	client.Set("name", "Hospital Metropolitano")
	client.Set("contact", "Departamento de Mantenimiento")
	client.Set("email", "mantenimiento@metropolitano.example")
	client.Set("phone", "2222-0000")
	if err := app.Save(client); err != nil {
		return fmt.Errorf("seed: save client: %w", err)
	}

	catalog := services.NewRecordCatalog(app)
	byCode := make(map[string]services.Component)
	comps, err := catalog.ListComponents("")
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	for _, c := range comps {
		byCode[c.Code] = c
	}

	store := services.NewProjectStore(app)
	project, err := store.Create(services.ProjectInput{
		Name:     "Torre Médica Escazú",
		ClientID: client.Id,
		Location: "Escazú, San José",
		Manager:  "Ing. Rodríguez",
	}, time.Now())
	if err != nil {
		return fmt.Errorf("seed: create project: %w", err)
	}
	_, err = store.Mutate(project.ID, func(p *services.Project) error {
		for _, ld := range seedLevels {
			level, err := p.AddLevel(services.LevelInput{Code: ld.code, Name: ld.name})
			if err != nil {
				return err
			}
			for _, id := range ld.items {
				comp, ok := byCode[id.code]
				if !ok {
					return fmt.Errorf("component %s not in catalog", id.code)
				}
				item := services.NewItemFromCatalog(comp, decimal.NewFromFloat(id.qty))
				if _, err := p.AddItem(level.ID, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: populate project: %w", err)
	}

	log.Println("seed: demo project inserted")
	return nil
}

// seedCatalog fills the component, equipment and material catalogs when they
// are empty.
func seedCatalog(app core.App) error {
	components, err := app.FindAllRecords("hvac_components")
	if err != nil {
		return fmt.Errorf("seed: could not query hvac_components: %w", err)
	}
	if len(components) == 0 {
		for _, d := range seedComponents {
			_, err := services.UpsertComponent(app, services.Component{
				Code:              d.code,
				Description:       d.description,
				Category:          d.category,
				Unit:              d.unit,
				BaseEquipmentCost: decimal.NewFromFloat(d.equipment),
				BaseMaterialCost:  decimal.NewFromFloat(d.materials),
				BaseLaborCost:     decimal.NewFromFloat(d.labor),
				Active:            true,
			})
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}
		log.Printf("seed: inserted %d HVAC components\n", len(seedComponents))
	}

	equipmentCol, err := app.FindCollectionByNameOrId("equipment_catalog")
	if err != nil {
		return fmt.Errorf("seed: could not find equipment_catalog collection: %w", err)
	}
	equipment, err := app.FindAllRecords(equipmentCol)
	if err != nil {
		return fmt.Errorf("seed: could not query equipment_catalog: %w", err)
	}
	if len(equipment) == 0 {
		for _, d := range seedEquipment {
			r := core.NewRecord(equipmentCol)
			r.Set("name", d.name)
			r.Set("category", d.category)
			r.Set("maintenance_hours", d.hours)
			r.Set("active", true)
			if err := app.Save(r); err != nil {
				return fmt.Errorf("seed: save equipment %s: %w", d.name, err)
			}
		}
	}

	materialsCol, err := app.FindCollectionByNameOrId("materials")
	if err != nil {
		return fmt.Errorf("seed: could not find materials collection: %w", err)
	}
	materials, err := app.FindAllRecords(materialsCol)
	if err != nil {
		return fmt.Errorf("seed: could not query materials: %w", err)
	}
	if len(materials) == 0 {
		for _, d := range seedMaterials {
			r := core.NewRecord(materialsCol)
			r.Set("name", d.name)
			r.Set("unit", d.unit)
			r.Set("unit_price", d.unitPrice)
			r.Set("active", true)
			if err := app.Save(r); err != nil {
				return fmt.Errorf("seed: save material %s: %w", d.name, err)
			}
		}
	}
	return nil
}
