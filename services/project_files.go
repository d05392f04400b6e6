package services

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/filesystem"
)

// ProjectFile is a document (drawing, PDF, photo) attached to a project and
// optionally to one of its levels. LevelCode is empty for project-wide files.
type ProjectFile struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	LevelID     string    `json:"level_id"`
	LevelCode   string    `json:"level_code"`
	Name        string    `json:"name"`
	FileType    string    `json:"file_type"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Created     time.Time `json:"created"`
}

// FileType returns the upper-case extension of name without the dot, e.g.
// "DWG" for "planta.dwg".
func FileType(name string) string {
	return strings.ToUpper(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ListProjectFiles returns the files of a project ordered by name.
func ListProjectFiles(app core.App, projectID string) ([]ProjectFile, error) {
	p, err := loadProject(app, projectID)
	if err != nil {
		return nil, err
	}
	records, err := app.FindRecordsByFilter(
		"project_files",
		"project = {:project}",
		"original_name",
		0,
		0,
		dbx.Params{"project": projectID},
	)
	if err != nil {
		return nil, fmt.Errorf("list files of project %s: %w", p.Number, err)
	}
	out := make([]ProjectFile, 0, len(records))
	for _, r := range records {
		out = append(out, projectFileFromRecord(r, p))
	}
	return out, nil
}

// AttachProjectFile stores f against the project. A non-empty levelID must
// name a level of that project.
func AttachProjectFile(app core.App, projectID, levelID string, f *filesystem.File, description string) (ProjectFile, error) {
	p, err := loadProject(app, projectID)
	if err != nil {
		return ProjectFile{}, err
	}
	if levelID != "" {
		if _, ok := p.Level(levelID); !ok {
			return ProjectFile{}, fmt.Errorf("%w: level %s not in project %s", ErrMissingParent, levelID, p.Number)
		}
	}
	col, err := app.FindCollectionByNameOrId("project_files")
	if err != nil {
		return ProjectFile{}, fmt.Errorf("find project_files collection: %w", err)
	}

	record := core.NewRecord(col)
	record.Set("project", projectID)
	record.Set("level", levelID)
	record.Set("file", f)
	record.Set("original_name", f.OriginalName)
	record.Set("file_type", FileType(f.OriginalName))
	record.Set("description", strings.TrimSpace(description))
	if err := app.Save(record); err != nil {
		return ProjectFile{}, fmt.Errorf("save file %s: %w", f.OriginalName, err)
	}
	log.Printf("project_files: attached %q to %s", f.OriginalName, p.Number)
	return projectFileFromRecord(record, p), nil
}

// DeleteProjectFile removes a file record and its stored file.
func DeleteProjectFile(app core.App, projectID, fileID string) error {
	record, err := app.FindRecordById("project_files", fileID)
	if err != nil || record.GetString("project") != projectID {
		return fmt.Errorf("file %s in project %s: %w", fileID, projectID, ErrNotFound)
	}
	if err := app.Delete(record); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

func projectFileFromRecord(r *core.Record, p Project) ProjectFile {
	f := ProjectFile{
		ID:          r.Id,
		ProjectID:   r.GetString("project"),
		LevelID:     r.GetString("level"),
		Name:        r.GetString("original_name"),
		FileType:    r.GetString("file_type"),
		Description: r.GetString("description"),
		URL:         "/api/files/" + r.BaseFilesPath() + "/" + r.GetString("file"),
		Created:     r.GetDateTime("created").Time(),
	}
	if l, ok := p.Level(f.LevelID); ok {
		f.LevelCode = l.Code
	}
	return f
}
