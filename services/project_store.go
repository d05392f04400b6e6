package services

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// ProjectStore persists project trees. Every write loads the tree, checks the
// expected version, applies the change through the rollup engine and writes
// all derived totals inside one transaction.
type ProjectStore struct {
	app core.App
}

// NewProjectStore returns a store backed by app.
func NewProjectStore(app core.App) *ProjectStore {
	return &ProjectStore{app: app}
}

// Load reads a project with its levels and items, ordered by sort order.
func (s *ProjectStore) Load(id string) (Project, error) {
	return loadProject(s.app, id)
}

// Create allocates the next project number and saves an empty project.
func (s *ProjectStore) Create(in ProjectInput, now time.Time) (Project, error) {
	var out Project
	err := s.app.RunInTransaction(func(txApp core.App) error {
		number, err := GenerateProjectNumber(txApp, now)
		if err != nil {
			return err
		}
		p, err := NewProject(number, in)
		if err != nil {
			return err
		}

		col, err := txApp.FindCollectionByNameOrId("projects")
		if err != nil {
			return fmt.Errorf("find projects collection: %w", err)
		}
		record := core.NewRecord(col)
		writeProjectRecord(record, p)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("save project: %w", err)
		}
		p.ID = record.Id
		out = p
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	log.Printf("projects: created %s (%s)", out.Number, out.ID)
	return out, nil
}

// UpdateDetails replaces the descriptive fields of a project.
func (s *ProjectStore) UpdateDetails(id string, expectedVersion int, in ProjectInput) (Project, error) {
	return s.mutate(id, func(p *Project) error {
		if err := checkVersion("project", id, p.Version, expectedVersion); err != nil {
			return err
		}
		return p.UpdateDetails(in)
	})
}

// Delete removes a project with its levels and items: items first, then
// levels, then the project.
func (s *ProjectStore) Delete(id string, expectedVersion int) error {
	return s.app.RunInTransaction(func(txApp core.App) error {
		p, err := loadProject(txApp, id)
		if err != nil {
			return err
		}
		if err := checkVersion("project", id, p.Version, expectedVersion); err != nil {
			return err
		}
		for _, l := range p.Levels {
			if err := deleteLevelRecords(txApp, l); err != nil {
				return err
			}
		}
		record, err := txApp.FindRecordById("projects", id)
		if err != nil {
			return fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		if err := txApp.Delete(record); err != nil {
			return fmt.Errorf("delete project %s: %w", id, err)
		}
		log.Printf("projects: deleted %s (%s) with %d level(s)", p.Number, id, len(p.Levels))
		return nil
	})
}

// AddLevel appends a level to the project. A missing project fails with
// ErrMissingParent.
func (s *ProjectStore) AddLevel(projectID string, expectedVersion int, in LevelInput) (Project, Level, error) {
	var added Level
	p, err := s.mutate(projectID, func(p *Project) error {
		if err := checkVersion("project", projectID, p.Version, expectedVersion); err != nil {
			return err
		}
		l, err := p.AddLevel(in)
		added = l
		return err
	})
	if errors.Is(err, ErrNotFound) {
		err = fmt.Errorf("%w: project %s does not exist", ErrMissingParent, projectID)
	}
	return p, added, err
}

// UpdateLevel edits a level. expectedVersion is the level's version.
func (s *ProjectStore) UpdateLevel(projectID, levelID string, expectedVersion int, in LevelInput) (Project, Level, error) {
	var updated Level
	p, err := s.mutate(projectID, func(p *Project) error {
		if err := checkLevelVersion(p, levelID, expectedVersion); err != nil {
			return err
		}
		l, err := p.UpdateLevel(levelID, in)
		updated = l
		return err
	})
	return p, updated, err
}

// RemoveLevel deletes a level and its items. expectedVersion is the level's
// version.
func (s *ProjectStore) RemoveLevel(projectID, levelID string, expectedVersion int) (Project, error) {
	return s.mutate(projectID, func(p *Project) error {
		if err := checkLevelVersion(p, levelID, expectedVersion); err != nil {
			return err
		}
		_, err := p.RemoveLevel(levelID)
		return err
	})
}

// AddItem appends an item to a level. expectedVersion is the level's version.
func (s *ProjectStore) AddItem(projectID, levelID string, expectedVersion int, it ProjectItem) (Project, ProjectItem, error) {
	var added ProjectItem
	p, err := s.mutate(projectID, func(p *Project) error {
		if err := checkLevelVersion(p, levelID, expectedVersion); err != nil {
			return err
		}
		out, err := p.AddItem(levelID, it)
		added = out
		return err
	})
	if errors.Is(err, ErrNotFound) {
		err = fmt.Errorf("%w: project %s does not exist", ErrMissingParent, projectID)
	}
	return p, added, err
}

// UpdateItem edits an item. expectedVersion is the version of the item's level.
func (s *ProjectStore) UpdateItem(projectID, itemID string, expectedVersion int, it ProjectItem) (Project, ProjectItem, error) {
	var updated ProjectItem
	p, err := s.mutate(projectID, func(p *Project) error {
		current, ok := p.Item(itemID)
		if !ok {
			return fmt.Errorf("%w: item %s not in project %s", ErrMissingParent, itemID, p.Number)
		}
		if err := checkLevelVersion(p, current.LevelID, expectedVersion); err != nil {
			return err
		}
		out, err := p.UpdateItem(itemID, it)
		updated = out
		return err
	})
	return p, updated, err
}

// RemoveItem deletes an item. expectedVersion is the version of the item's
// level.
func (s *ProjectStore) RemoveItem(projectID, itemID string, expectedVersion int) (Project, error) {
	return s.mutate(projectID, func(p *Project) error {
		current, ok := p.Item(itemID)
		if !ok {
			return fmt.Errorf("%w: item %s not in project %s", ErrMissingParent, itemID, p.Number)
		}
		if err := checkLevelVersion(p, current.LevelID, expectedVersion); err != nil {
			return err
		}
		_, err := p.RemoveItem(itemID)
		return err
	})
}

// Mutate applies fn to the stored project and persists the result. It is the
// building block for batch edits such as spreadsheet imports; fn must do its
// own version checks.
func (s *ProjectStore) Mutate(projectID string, fn func(p *Project) error) (Project, error) {
	return s.mutate(projectID, fn)
}

// Recalculate re-runs the full rollup of a stored project and writes the
// derived totals that changed. A project whose stored totals already match is
// returned as is, without a version bump.
func (s *ProjectStore) Recalculate(projectID string) (Project, error) {
	return s.mutate(projectID, func(p *Project) error {
		before := p.Clone()
		Recalculate(p)
		changed := !before.Totals.Equal(p.Totals)
		for i := range p.Levels {
			if !levelTotalsMatch(before.Levels[i], p.Levels[i]) {
				p.Levels[i].Version++
				changed = true
			}
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
}

// RecalculateAll recomputes every stored project. It returns the number of
// projects processed.
func RecalculateAll(app core.App) (int, error) {
	records, err := app.FindAllRecords("projects")
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}
	store := NewProjectStore(app)
	for _, r := range records {
		if _, err := store.Recalculate(r.Id); err != nil {
			return 0, fmt.Errorf("recalculate project %s: %w", r.GetString("number"), err)
		}
	}
	return len(records), nil
}

func levelTotalsMatch(a, b Level) bool {
	if !a.Subtotals.Equal(b.Subtotals) || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if !a.Items[i].Costs.Equal(b.Items[i].Costs) {
			return false
		}
	}
	return true
}

// errUnchanged lets a mutation report that nothing needs to be written.
var errUnchanged = errors.New("unchanged")

func (s *ProjectStore) mutate(projectID string, fn func(p *Project) error) (Project, error) {
	var out Project
	err := s.app.RunInTransaction(func(txApp core.App) error {
		before, err := loadProject(txApp, projectID)
		if err != nil {
			return err
		}
		after := before.Clone()
		if err := fn(&after); err != nil {
			if errors.Is(err, errUnchanged) {
				out = before
				return nil
			}
			return err
		}
		after.Version = before.Version + 1
		if err := persistProject(txApp, before, after); err != nil {
			return err
		}
		out = after
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	return out, nil
}

func checkVersion(kind, id string, current, expected int) error {
	if current != expected {
		return fmt.Errorf("%w: %s %s is at version %d, not %d", ErrConcurrentModification, kind, id, current, expected)
	}
	return nil
}

func checkLevelVersion(p *Project, levelID string, expected int) error {
	l, ok := p.Level(levelID)
	if !ok {
		return fmt.Errorf("%w: level %s not in project %s", ErrMissingParent, levelID, p.Number)
	}
	return checkVersion("level", levelID, l.Version, expected)
}

// ── loading ──────────────────────────────────────────────────────────────

func loadProject(app core.App, id string) (Project, error) {
	record, err := app.FindRecordById("projects", id)
	if err != nil {
		return Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	p := projectFromRecord(record)

	levelRecords, err := app.FindRecordsByFilter(
		"project_levels",
		"project = {:project}",
		"sort_order",
		0,
		0,
		dbx.Params{"project": id},
	)
	if err != nil {
		return Project{}, fmt.Errorf("load levels of project %s: %w", id, err)
	}

	itemRecords, err := app.FindRecordsByFilter(
		"project_items",
		"level.project = {:project}",
		"sort_order",
		0,
		0,
		dbx.Params{"project": id},
	)
	if err != nil {
		return Project{}, fmt.Errorf("load items of project %s: %w", id, err)
	}

	itemsByLevel := make(map[string][]ProjectItem)
	for _, r := range itemRecords {
		it := itemFromRecord(r)
		itemsByLevel[it.LevelID] = append(itemsByLevel[it.LevelID], it)
	}

	for _, r := range levelRecords {
		l := levelFromRecord(r)
		l.Items = itemsByLevel[l.ID]
		sort.SliceStable(l.Items, func(i, j int) bool { return l.Items[i].Order < l.Items[j].Order })
		p.Levels = append(p.Levels, l)
	}
	sort.SliceStable(p.Levels, func(i, j int) bool { return p.Levels[i].Order < p.Levels[j].Order })
	return p, nil
}

func projectFromRecord(r *core.Record) Project {
	return Project{
		ID:          r.Id,
		Number:      r.GetString("number"),
		Name:        r.GetString("name"),
		ClientID:    r.GetString("client"),
		Location:    r.GetString("location"),
		Description: r.GetString("description"),
		Manager:     r.GetString("manager"),
		Status:      r.GetString("status"),
		Notes:       r.GetString("notes"),
		Version:     r.GetInt("version"),
		Totals:      getBreakdown(r),
	}
}

func levelFromRecord(r *core.Record) Level {
	return Level{
		ID:        r.Id,
		ProjectID: r.GetString("project"),
		Code:      r.GetString("code"),
		Name:      r.GetString("name"),
		Notes:     r.GetString("notes"),
		Order:     r.GetInt("sort_order"),
		Version:   r.GetInt("version"),
		Subtotals: getBreakdown(r),
	}
}

func itemFromRecord(r *core.Record) ProjectItem {
	return ProjectItem{
		ID:                r.Id,
		LevelID:           r.GetString("level"),
		ComponentID:       r.GetString("component"),
		Specification:     r.GetString("specification"),
		Description:       r.GetString("description"),
		Unit:              r.GetString("unit"),
		Notes:             r.GetString("notes"),
		Order:             r.GetInt("sort_order"),
		Quantity:          getDecimal(r, "quantity"),
		UnitCostEquipment: getDecimal(r, "unit_cost_equipment"),
		UnitCostMaterials: getDecimal(r, "unit_cost_materials"),
		UnitCostLabor:     getDecimal(r, "unit_cost_labor"),
		Costs:             getBreakdown(r),
	}
}

// ── writing ──────────────────────────────────────────────────────────────

func writeProjectRecord(r *core.Record, p Project) {
	r.Set("number", p.Number)
	r.Set("name", p.Name)
	r.Set("client", p.ClientID)
	r.Set("location", p.Location)
	r.Set("description", p.Description)
	r.Set("manager", p.Manager)
	r.Set("status", p.Status)
	r.Set("notes", p.Notes)
	r.Set("version", p.Version)
	setBreakdown(r, p.Totals)
}

func writeLevelRecord(r *core.Record, projectID string, l Level) {
	r.Set("project", projectID)
	r.Set("code", l.Code)
	r.Set("name", l.Name)
	r.Set("notes", l.Notes)
	r.Set("sort_order", l.Order)
	r.Set("version", l.Version)
	setBreakdown(r, l.Subtotals)
}

func writeItemRecord(r *core.Record, levelID string, it ProjectItem) {
	r.Set("level", levelID)
	r.Set("component", it.ComponentID)
	r.Set("specification", it.Specification)
	r.Set("description", it.Description)
	r.Set("unit", it.Unit)
	r.Set("notes", it.Notes)
	r.Set("sort_order", it.Order)
	setDecimal(r, "quantity", it.Quantity)
	setDecimal(r, "unit_cost_equipment", it.UnitCostEquipment)
	setDecimal(r, "unit_cost_materials", it.UnitCostMaterials)
	setDecimal(r, "unit_cost_labor", it.UnitCostLabor)
	setBreakdown(r, it.Costs)
}

// persistProject writes the difference between before and after. Removed
// items are deleted before removed levels; levels are saved before their
// items. Only levels whose version changed are rewritten.
func persistProject(app core.App, before, after Project) error {
	afterLevels := make(map[string]Level, len(after.Levels))
	for _, l := range after.Levels {
		afterLevels[l.ID] = l
	}
	beforeLevels := make(map[string]Level, len(before.Levels))
	for _, l := range before.Levels {
		beforeLevels[l.ID] = l
	}

	for _, l := range before.Levels {
		next, kept := afterLevels[l.ID]
		if !kept {
			if err := deleteLevelRecords(app, l); err != nil {
				return err
			}
			continue
		}
		if err := deleteRemovedItems(app, l, next); err != nil {
			return err
		}
	}

	levelsCol, err := app.FindCollectionByNameOrId("project_levels")
	if err != nil {
		return fmt.Errorf("find project_levels collection: %w", err)
	}
	itemsCol, err := app.FindCollectionByNameOrId("project_items")
	if err != nil {
		return fmt.Errorf("find project_items collection: %w", err)
	}

	for _, l := range after.Levels {
		prev, existed := beforeLevels[l.ID]
		if existed && prev.Version == l.Version {
			continue
		}

		var record *core.Record
		if existed {
			record, err = app.FindRecordById(levelsCol, l.ID)
			if err != nil {
				return fmt.Errorf("level %s: %w", l.ID, ErrNotFound)
			}
		} else {
			record = core.NewRecord(levelsCol)
			record.Set("id", l.ID)
		}
		writeLevelRecord(record, after.ID, l)
		if err := app.Save(record); err != nil {
			return fmt.Errorf("save level %s: %w", l.Code, err)
		}

		if err := saveLevelItems(app, itemsCol, prev, l); err != nil {
			return err
		}
	}

	projectRecord, err := app.FindRecordById("projects", after.ID)
	if err != nil {
		return fmt.Errorf("project %s: %w", after.ID, ErrNotFound)
	}
	writeProjectRecord(projectRecord, after)
	if err := app.Save(projectRecord); err != nil {
		return fmt.Errorf("save project %s: %w", after.Number, err)
	}
	return nil
}

func saveLevelItems(app core.App, itemsCol *core.Collection, prev, l Level) error {
	prevItems := make(map[string]ProjectItem, len(prev.Items))
	for _, it := range prev.Items {
		prevItems[it.ID] = it
	}

	for _, it := range l.Items {
		old, existed := prevItems[it.ID]
		if existed && itemsEqual(old, it) {
			continue
		}
		var record *core.Record
		if existed {
			var err error
			record, err = app.FindRecordById(itemsCol, it.ID)
			if err != nil {
				return fmt.Errorf("item %s: %w", it.ID, ErrNotFound)
			}
		} else {
			record = core.NewRecord(itemsCol)
			record.Set("id", it.ID)
		}
		writeItemRecord(record, l.ID, it)
		if err := app.Save(record); err != nil {
			return fmt.Errorf("save item %q: %w", it.Specification, err)
		}
	}
	return nil
}

func itemsEqual(a, b ProjectItem) bool {
	return a.ComponentID == b.ComponentID &&
		a.Specification == b.Specification &&
		a.Description == b.Description &&
		a.Unit == b.Unit &&
		a.Notes == b.Notes &&
		a.Order == b.Order &&
		a.Quantity.Equal(b.Quantity) &&
		a.UnitCostEquipment.Equal(b.UnitCostEquipment) &&
		a.UnitCostMaterials.Equal(b.UnitCostMaterials) &&
		a.UnitCostLabor.Equal(b.UnitCostLabor) &&
		a.Costs.Equal(b.Costs)
}

func deleteRemovedItems(app core.App, prev, next Level) error {
	kept := make(map[string]bool, len(next.Items))
	for _, it := range next.Items {
		kept[it.ID] = true
	}
	for _, it := range prev.Items {
		if kept[it.ID] {
			continue
		}
		if err := deleteRecord(app, "project_items", it.ID); err != nil {
			return err
		}
	}
	return nil
}

// deleteLevelRecords removes a level's items, then the level itself.
func deleteLevelRecords(app core.App, l Level) error {
	for _, it := range l.Items {
		if err := deleteRecord(app, "project_items", it.ID); err != nil {
			return err
		}
	}
	return deleteRecord(app, "project_levels", l.ID)
}

func deleteRecord(app core.App, collection, id string) error {
	record, err := app.FindRecordById(collection, id)
	if err != nil {
		return fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
	}
	if err := app.Delete(record); err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	return nil
}
