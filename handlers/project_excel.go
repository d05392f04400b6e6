package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cast"

	"airsolutions/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HandleProjectExcelExport downloads the project cost sheet.
func HandleProjectExcelExport(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, err := services.NewProjectStore(app).Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "project_excel", err)
		}
		data, err := services.GenerateProjectExcel(p)
		if err != nil {
			return respondError(e, "project_excel", err)
		}
		return sendAttachment(e, xlsxContentType, sanitizeFilename(p.Number+"_"+p.Name)+".xlsx", data)
	}
}

// HandleProjectExcelImport merges an uploaded cost sheet into the project.
// The expected project version comes from the "version" form field or query
// parameter.
func HandleProjectExcelImport(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		file, header, err := e.Request.FormFile("file")
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Please select a file to upload")
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
			return ErrorJSON(e, http.StatusBadRequest, "Only .xlsx files are accepted")
		}

		version, err := formVersion(e)
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, err.Error())
		}

		p, res, err := services.NewProjectStore(app).ImportProjectExcel(e.Request.PathValue("id"), version, file)
		if err != nil {
			if len(res.Errors) > 0 {
				return e.JSON(http.StatusUnprocessableEntity, map[string]any{
					"error":  err.Error(),
					"result": res,
				})
			}
			return respondError(e, "project_excel_import", err)
		}
		return e.JSON(http.StatusOK, map[string]any{
			"project": p,
			"result":  res,
		})
	}
}

func formVersion(e *core.RequestEvent) (int, error) {
	raw := strings.TrimSpace(e.Request.FormValue("version"))
	if raw == "" {
		return queryVersion(e)
	}
	v, err := cast.ToIntE(raw)
	if err != nil {
		return 0, errors.New("version must be an integer")
	}
	return v, nil
}
