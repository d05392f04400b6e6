package services

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Configuration keys as stored in the configuration collection.
const (
	ConfigKeyMarkupFactor    = "markup_factor"
	ConfigKeyTaxRate         = "iva"
	ConfigKeyExchangeRate    = "tipo_cambio"
	ConfigKeyHourlyLaborRate = "costo_hora_tecnico"
)

// ConfigDefaults holds the fallback value for every pricing key.
var ConfigDefaults = map[string]string{
	ConfigKeyMarkupFactor:    "1.5",
	ConfigKeyTaxRate:         "0.13",
	ConfigKeyExchangeRate:    "515",
	ConfigKeyHourlyLaborRate: "15",
}

// ConfigProvider supplies raw configuration values. The second return value
// is false when the key is absent.
type ConfigProvider interface {
	Get(key string) (string, bool)
}

// MapConfig is a ConfigProvider backed by a plain map.
type MapConfig map[string]string

func (m MapConfig) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// BlankPolicy decides what an empty numeric field means.
type BlankPolicy int

const (
	// BlankRejected treats an empty numeric field as invalid input.
	BlankRejected BlankPolicy = iota
	// BlankAsZero treats an empty numeric field as 0.
	BlankAsZero
)

// PricingConfig is the read-only configuration passed into every pricing
// calculation.
type PricingConfig struct {
	MarkupFactor    decimal.Decimal `json:"markup_factor"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	HourlyLaborRate decimal.Decimal `json:"hourly_labor_rate"`
	Blank           BlankPolicy     `json:"-"`
}

// DefaultPricingConfig returns the configuration used when the store has no
// overrides at all.
func DefaultPricingConfig() PricingConfig {
	cfg, _ := LoadPricingConfig(MapConfig{})
	return cfg
}

// LoadPricingConfig reads every pricing key from p. Absent or blank keys fall
// back to ConfigDefaults; present values that do not parse, or that are
// negative, fail with ErrInvalidConfiguration.
func LoadPricingConfig(p ConfigProvider) (PricingConfig, error) {
	get := func(key string) (decimal.Decimal, error) {
		raw, ok := p.Get(key)
		if !ok || strings.TrimSpace(raw) == "" {
			raw = ConfigDefaults[key]
		}
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfiguration, key, raw)
		}
		return d, nil
	}

	var cfg PricingConfig
	var err error
	if cfg.MarkupFactor, err = get(ConfigKeyMarkupFactor); err != nil {
		return PricingConfig{}, err
	}
	taxRate, err := get(ConfigKeyTaxRate)
	if err != nil {
		return PricingConfig{}, err
	}
	cfg.TaxRatePercent = taxRateToPercent(taxRate)
	if cfg.ExchangeRate, err = get(ConfigKeyExchangeRate); err != nil {
		return PricingConfig{}, err
	}
	if cfg.HourlyLaborRate, err = get(ConfigKeyHourlyLaborRate); err != nil {
		return PricingConfig{}, err
	}

	if err := cfg.Validate(); err != nil {
		return PricingConfig{}, err
	}
	return cfg, nil
}

// taxRateToPercent normalises the stored "iva" value. It is kept as a
// fraction (0.13) but older rows may carry a percentage (13).
func taxRateToPercent(rate decimal.Decimal) decimal.Decimal {
	if rate.LessThan(decimal.NewFromInt(1)) {
		return rate.Mul(hundred)
	}
	return rate
}

// Validate checks that every factor is usable.
func (c PricingConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.MarkupFactor, validation.By(positiveDecimal)),
		validation.Field(&c.TaxRatePercent, validation.By(nonNegativeDecimal)),
		validation.Field(&c.ExchangeRate, validation.By(positiveDecimal)),
		validation.Field(&c.HourlyLaborRate, validation.By(nonNegativeDecimal)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return nil
}
