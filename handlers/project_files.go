package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"airsolutions/services"
)

// HandleProjectFileList lists the files attached to a project.
func HandleProjectFileList(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		files, err := services.ListProjectFiles(app, e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "project_files", err)
		}
		return e.JSON(http.StatusOK, files)
	}
}

// HandleProjectFileUpload attaches the multipart "file" to a project. The
// optional "level_id" and "description" form fields link it to a level and
// describe it.
func HandleProjectFileUpload(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		files, err := e.FindUploadedFiles("file")
		if err != nil || len(files) == 0 {
			return ErrorJSON(e, http.StatusBadRequest, "Please select a file to upload")
		}
		f, err := services.AttachProjectFile(app, e.Request.PathValue("id"),
			e.Request.FormValue("level_id"), files[0], e.Request.FormValue("description"))
		if err != nil {
			return respondError(e, "project_files", err)
		}
		return e.JSON(http.StatusCreated, f)
	}
}

// HandleProjectFileDelete removes a project file.
func HandleProjectFileDelete(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := services.DeleteProjectFile(app, e.Request.PathValue("id"), e.Request.PathValue("fileId")); err != nil {
			return respondError(e, "project_files", err)
		}
		return e.NoContent(http.StatusNoContent)
	}
}
