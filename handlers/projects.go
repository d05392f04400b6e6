package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"airsolutions/services"
)

// projectPatch carries the project fields to change. Absent fields keep their
// stored values.
type projectPatch struct {
	versionBody
	Name        *string `json:"name"`
	ClientID    *string `json:"client_id"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Manager     *string `json:"manager"`
	Status      *string `json:"status"`
	Notes       *string `json:"notes"`
}

func (b projectPatch) mergeInto(p services.Project) services.ProjectInput {
	in := services.ProjectInput{
		Name:        p.Name,
		ClientID:    p.ClientID,
		Location:    p.Location,
		Description: p.Description,
		Manager:     p.Manager,
		Status:      p.Status,
		Notes:       p.Notes,
	}
	setIfPresent(&in.Name, b.Name)
	setIfPresent(&in.ClientID, b.ClientID)
	setIfPresent(&in.Location, b.Location)
	setIfPresent(&in.Description, b.Description)
	setIfPresent(&in.Manager, b.Manager)
	setIfPresent(&in.Status, b.Status)
	setIfPresent(&in.Notes, b.Notes)
	return in
}

func setIfPresent(dst, src *string) {
	if src != nil {
		*dst = *src
	}
}

// HandleProjectCreate creates an empty project with the next project number.
func HandleProjectCreate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body services.ProjectInput
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		p, err := services.NewProjectStore(app).Create(body, time.Now())
		if err != nil {
			return respondError(e, "project_create", err)
		}
		return e.JSON(http.StatusCreated, p)
	}
}

// HandleProjectGet returns a project with its levels, items and totals.
func HandleProjectGet(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, err := services.NewProjectStore(app).Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "project_get", err)
		}
		return e.JSON(http.StatusOK, p)
	}
}

// HandleProjectUpdate changes the descriptive fields present in the body.
func HandleProjectUpdate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body projectPatch
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		store := services.NewProjectStore(app)
		current, err := store.Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "project_update", err)
		}
		p, err := store.UpdateDetails(current.ID, body.Version, body.mergeInto(current))
		if err != nil {
			return respondError(e, "project_update", err)
		}
		return e.JSON(http.StatusOK, p)
	}
}

// HandleProjectDelete deletes a project with its levels and items. The
// expected version comes from the "version" query parameter.
func HandleProjectDelete(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		version, err := queryVersion(e)
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, err.Error())
		}
		if err := services.NewProjectStore(app).Delete(e.Request.PathValue("id"), version); err != nil {
			return respondError(e, "project_delete", err)
		}
		return e.NoContent(http.StatusNoContent)
	}
}

// HandleProjectRecalculate re-runs the full rollup of a project.
func HandleProjectRecalculate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		p, err := services.NewProjectStore(app).Recalculate(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "project_recalculate", err)
		}
		return e.JSON(http.StatusOK, p)
	}
}

type levelRequest struct {
	versionBody
	services.LevelInput
}

// levelPatch carries the level fields to change. Absent fields keep their
// stored values.
type levelPatch struct {
	versionBody
	Code  *string `json:"code"`
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
	Order *int    `json:"order"`
}

func (b levelPatch) mergeInto(l services.Level) services.LevelInput {
	in := services.LevelInput{Code: l.Code, Name: l.Name, Notes: l.Notes, Order: l.Order}
	setIfPresent(&in.Code, b.Code)
	setIfPresent(&in.Name, b.Name)
	setIfPresent(&in.Notes, b.Notes)
	if b.Order != nil {
		in.Order = *b.Order
	}
	return in
}

type levelResponse struct {
	Project services.Project `json:"project"`
	Level   services.Level   `json:"level"`
}

// HandleLevelCreate adds a level. The version is the project's.
func HandleLevelCreate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body levelRequest
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		p, l, err := services.NewProjectStore(app).AddLevel(e.Request.PathValue("id"), body.Version, body.LevelInput)
		if err != nil {
			return respondError(e, "level_create", err)
		}
		return e.JSON(http.StatusCreated, levelResponse{Project: p, Level: l})
	}
}

// HandleLevelUpdate changes the level fields present in the body. The version
// is the level's.
func HandleLevelUpdate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body levelPatch
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		store := services.NewProjectStore(app)
		levelID := e.Request.PathValue("levelId")
		current, err := store.Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "level_update", err)
		}
		stored, ok := current.Level(levelID)
		if !ok {
			return respondError(e, "level_update", fmt.Errorf("%w: level %s not in project %s", services.ErrMissingParent, levelID, current.Number))
		}
		p, l, err := store.UpdateLevel(current.ID, levelID, body.Version, body.mergeInto(stored))
		if err != nil {
			return respondError(e, "level_update", err)
		}
		return e.JSON(http.StatusOK, levelResponse{Project: p, Level: l})
	}
}

// HandleLevelDelete removes a level and its items. The expected level version
// comes from the "version" query parameter.
func HandleLevelDelete(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		version, err := queryVersion(e)
		if err != nil {
			return ErrorJSON(e, http.StatusBadRequest, err.Error())
		}
		p, err := services.NewProjectStore(app).RemoveLevel(e.Request.PathValue("id"), e.Request.PathValue("levelId"), version)
		if err != nil {
			return respondError(e, "level_delete", err)
		}
		return e.JSON(http.StatusOK, p)
	}
}
