package collections

import (
	"fmt"
	"log"
	"sort"

	"github.com/pocketbase/pocketbase/core"

	"airsolutions/services"
)

var configDescriptions = map[string]string{
	services.ConfigKeyMarkupFactor:    "Factor de ganancia aplicado a la mano de obra de equipos",
	services.ConfigKeyTaxRate:         "IVA por defecto (fracción, 0.13 = 13%)",
	services.ConfigKeyExchangeRate:    "Tipo de cambio colones por dólar",
	services.ConfigKeyHourlyLaborRate: "Costo por hora de técnico (USD)",
}

// MigrateDefaultConfiguration inserts every pricing key that is missing from
// the configuration collection with its default value. Existing values are
// never overwritten. Safe to call on every startup.
func MigrateDefaultConfiguration(app core.App) error {
	col, err := app.FindCollectionByNameOrId("configuration")
	if err != nil {
		return fmt.Errorf("migrate_configuration: could not find configuration collection: %w", err)
	}

	keys := make([]string, 0, len(services.ConfigDefaults))
	for k := range services.ConfigDefaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	provider := services.NewRecordConfig(app)
	for _, key := range keys {
		if _, ok := provider.Get(key); ok {
			continue
		}
		record := core.NewRecord(col)
		record.Set("key", key)
		record.Set("value", services.ConfigDefaults[key])
		record.Set("description", configDescriptions[key])
		if err := app.Save(record); err != nil {
			log.Printf("migrate_configuration: failed to create key %s: %v\n", key, err)
			continue
		}
		log.Printf("migrate_configuration: added %s = %s\n", key, services.ConfigDefaults[key])
	}
	return nil
}

// MigrateRecalculateProjects re-runs the rollup of every stored project so
// persisted totals always match their items. Projects already consistent are
// left untouched.
func MigrateRecalculateProjects(app core.App) error {
	n, err := services.RecalculateAll(app)
	if err != nil {
		return fmt.Errorf("migrate_recalculate: %w", err)
	}
	log.Printf("migrate_recalculate: checked %d project(s)\n", n)
	return nil
}
