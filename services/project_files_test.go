package services_test

import (
	"testing"

	"github.com/pocketbase/pocketbase/tools/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsolutions/services"
	"airsolutions/testhelpers"
)

func newFile(t *testing.T, name string) *filesystem.File {
	t.Helper()
	f, err := filesystem.NewFileFromBytes([]byte("contenido de "+name), name)
	require.NoError(t, err)
	return f
}

func TestFileType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"planta.dwg", "DWG"},
		{"memoria.Calculo.pdf", "PDF"},
		{"sin_extension", ""},
	}
	for _, tt := range tests {
		if got := services.FileType(tt.name); got != tt.want {
			t.Errorf("FileType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAttachProjectFile_ListsWithLevel(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")

	general, err := services.AttachProjectFile(app, p.ID, "", newFile(t, "memoria.pdf"), "Memoria de calculo")
	require.NoError(t, err)
	plan, err := services.AttachProjectFile(app, p.ID, l.ID, newFile(t, "planta.dwg"), "")
	require.NoError(t, err)

	assert.Equal(t, "PDF", general.FileType)
	assert.Empty(t, general.LevelCode)
	assert.Equal(t, "N1", plan.LevelCode)
	assert.Contains(t, plan.URL, "/api/files/")

	files, err := services.ListProjectFiles(app, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "memoria.pdf", files[0].Name)
	assert.Equal(t, "planta.dwg", files[1].Name)
	assert.Equal(t, "N1", files[1].LevelCode)
}

func TestAttachProjectFile_Rejects(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	other := testhelpers.CreateTestProject(t, app, "Otro")
	_, otherLevel := testhelpers.CreateTestLevel(t, app, other, "N1", "Nivel 1")

	_, err := services.AttachProjectFile(app, p.ID, otherLevel.ID, newFile(t, "planta.dwg"), "")
	assert.ErrorIs(t, err, services.ErrMissingParent)

	_, err = services.AttachProjectFile(app, "missing", "", newFile(t, "planta.dwg"), "")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRemoveLevel_UnlinksFiles(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")
	f, err := services.AttachProjectFile(app, p.ID, l.ID, newFile(t, "planta.dwg"), "")
	require.NoError(t, err)

	_, err = services.NewProjectStore(app).RemoveLevel(p.ID, l.ID, l.Version)
	require.NoError(t, err)

	record, err := app.FindRecordById("project_files", f.ID)
	require.NoError(t, err, "the file survives its level")
	assert.Empty(t, record.GetString("level"))

	files, err := services.ListProjectFiles(app, p.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Empty(t, files[0].LevelCode)
}

func TestDeleteProject_RemovesFiles(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	p, l := testhelpers.CreateTestLevel(t, app, p, "N1", "Nivel 1")
	_, err := services.AttachProjectFile(app, p.ID, l.ID, newFile(t, "planta.dwg"), "")
	require.NoError(t, err)
	_, err = services.AttachProjectFile(app, p.ID, "", newFile(t, "memoria.pdf"), "")
	require.NoError(t, err)

	require.NoError(t, services.NewProjectStore(app).Delete(p.ID, p.Version))

	count, err := app.CountRecords("project_files")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteProjectFile(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	p := testhelpers.CreateTestProject(t, app, "Clinica")
	other := testhelpers.CreateTestProject(t, app, "Otro")
	f, err := services.AttachProjectFile(app, p.ID, "", newFile(t, "memoria.pdf"), "")
	require.NoError(t, err)

	assert.ErrorIs(t, services.DeleteProjectFile(app, other.ID, f.ID), services.ErrNotFound)
	require.NoError(t, services.DeleteProjectFile(app, p.ID, f.ID))

	_, err = app.FindRecordById("project_files", f.ID)
	assert.Error(t, err)
}
