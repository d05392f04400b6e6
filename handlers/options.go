package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"airsolutions/services"
)

// HandleOptions returns the fixed dropdown values used by the worksheet and
// project forms.
func HandleOptions() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, map[string]any{
			"tax_rates":        services.TaxRateOptions,
			"units":            services.UnitOptions,
			"duct_types":       services.DuctTypes,
			"diffuser_types":   services.DiffuserTypes,
			"grille_types":     services.GrilleTypes,
			"pipe_types":       services.PipeTypes,
			"labor_types":      services.LaborTypes,
			"service_types":    services.ServiceTypes,
			"project_statuses": services.ProjectStatuses,
		})
	}
}

type configurationResponse struct {
	Values  map[string]string      `json:"values"`
	Pricing services.PricingConfig `json:"pricing"`
}

func currentConfiguration(app core.App) (configurationResponse, error) {
	store := services.NewRecordConfig(app)
	values := make(map[string]string, len(services.ConfigDefaults))
	for key, def := range services.ConfigDefaults {
		if v, ok := store.Get(key); ok && strings.TrimSpace(v) != "" {
			values[key] = v
		} else {
			values[key] = def
		}
	}
	cfg, err := services.LoadPricingConfig(services.MapConfig(values))
	if err != nil {
		return configurationResponse{}, err
	}
	return configurationResponse{Values: values, Pricing: cfg}, nil
}

// HandleConfigurationGet returns the stored pricing keys and the pricing
// configuration they resolve to.
func HandleConfigurationGet(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		resp, err := currentConfiguration(app)
		if err != nil {
			return respondError(e, "configuration_get", err)
		}
		return e.JSON(http.StatusOK, resp)
	}
}

// HandleConfigurationUpdate stores new values for pricing keys. The merged
// configuration is validated before anything is written.
func HandleConfigurationUpdate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body map[string]string
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		current, err := currentConfiguration(app)
		if err != nil {
			return respondError(e, "configuration_update", err)
		}
		keys := make([]string, 0, len(body))
		for key, v := range body {
			if _, known := services.ConfigDefaults[key]; !known {
				return ErrorJSON(e, http.StatusBadRequest, "Unknown configuration key: "+key)
			}
			current.Values[key] = strings.TrimSpace(v)
			keys = append(keys, key)
		}
		if _, err := services.LoadPricingConfig(services.MapConfig(current.Values)); err != nil {
			return respondError(e, "configuration_update", err)
		}

		sort.Strings(keys)
		err = app.RunInTransaction(func(txApp core.App) error {
			store := services.NewRecordConfig(txApp)
			for _, key := range keys {
				if err := store.Set(key, current.Values[key]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return respondError(e, "configuration_update", err)
		}

		resp, err := currentConfiguration(app)
		if err != nil {
			return respondError(e, "configuration_update", err)
		}
		return e.JSON(http.StatusOK, resp)
	}
}
