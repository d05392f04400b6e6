package services

import (
	"fmt"
	"log"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// RecordConfig is a ConfigProvider over the configuration collection.
type RecordConfig struct {
	app core.App
}

// NewRecordConfig returns a provider backed by app.
func NewRecordConfig(app core.App) RecordConfig {
	return RecordConfig{app: app}
}

// Get returns the stored value of key. Lookup failures are reported as absent
// so callers fall back to defaults.
func (c RecordConfig) Get(key string) (string, bool) {
	record, err := c.app.FindFirstRecordByFilter(
		"configuration",
		"key = {:key}",
		dbx.Params{"key": key},
	)
	if err != nil {
		return "", false
	}
	return record.GetString("value"), true
}

// Set stores value under key, creating the row if needed.
func (c RecordConfig) Set(key, value string) error {
	record, err := c.app.FindFirstRecordByFilter(
		"configuration",
		"key = {:key}",
		dbx.Params{"key": key},
	)
	if err != nil {
		col, err := c.app.FindCollectionByNameOrId("configuration")
		if err != nil {
			return fmt.Errorf("find configuration collection: %w", err)
		}
		record = core.NewRecord(col)
		record.Set("key", key)
	}
	record.Set("value", value)
	if err := c.app.Save(record); err != nil {
		return fmt.Errorf("save configuration %s: %w", key, err)
	}
	log.Printf("configuration: %s = %q", key, value)
	return nil
}

// LoadStoredPricingConfig reads the pricing configuration from app.
func LoadStoredPricingConfig(app core.App) (PricingConfig, error) {
	return LoadPricingConfig(NewRecordConfig(app))
}
