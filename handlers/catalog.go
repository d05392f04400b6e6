package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"airsolutions/services"
)

// HandleComponentList lists active HVAC components, optionally filtered by
// the "category" query parameter.
func HandleComponentList(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		items, err := services.NewRecordCatalog(app).ListComponents(e.Request.URL.Query().Get("category"))
		if err != nil {
			return respondError(e, "catalog_components", err)
		}
		return e.JSON(http.StatusOK, items)
	}
}

// HandleEquipmentList lists the active equipment catalog.
func HandleEquipmentList(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		items, err := services.NewRecordCatalog(app).ListEquipment()
		if err != nil {
			return respondError(e, "catalog_equipment", err)
		}
		return e.JSON(http.StatusOK, items)
	}
}

// HandleMaterialList lists the active materials catalog.
func HandleMaterialList(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		items, err := services.NewRecordCatalog(app).ListMaterials()
		if err != nil {
			return respondError(e, "catalog_materials", err)
		}
		return e.JSON(http.StatusOK, items)
	}
}

// HandleCatalogImport upserts components from an uploaded CSV or XLSX file.
func HandleCatalogImport(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		result, err := services.ImportCatalogFile(app, file, header.Filename)
		if err != nil {
			if result != nil && result.ErrorRows > 0 {
				return e.JSON(http.StatusUnprocessableEntity, map[string]any{
					"error":  err.Error(),
					"result": result,
				})
			}
			if result == nil {
				return ErrorJSON(e, http.StatusBadRequest, err.Error())
			}
			return respondError(e, "catalog_import", err)
		}
		return e.JSON(http.StatusOK, result)
	}
}
