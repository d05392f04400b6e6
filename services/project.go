package services

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/security"
	"github.com/shopspring/decimal"
)

// ProjectItem is one specification line inside a level.
type ProjectItem struct {
	ID            string `json:"id"`
	LevelID       string `json:"level_id"`
	ComponentID   string `json:"component_id"`
	Specification string `json:"specification"`
	Description   string `json:"description"`
	Unit          string `json:"unit"`
	Notes         string `json:"notes"`
	Order         int    `json:"order"`

	Quantity          decimal.Decimal `json:"quantity"`
	UnitCostEquipment decimal.Decimal `json:"unit_cost_equipment"`
	UnitCostMaterials decimal.Decimal `json:"unit_cost_materials"`
	UnitCostLabor     decimal.Decimal `json:"unit_cost_labor"`

	// Costs is derived by RecalcItem.
	Costs CostBreakdown `json:"costs"`
}

// Validate checks the user-editable fields of an item.
func (it ProjectItem) Validate() error {
	err := validation.ValidateStruct(&it,
		validation.Field(&it.Specification, validation.Required, validation.Length(1, 200)),
		validation.Field(&it.Quantity, validation.By(nonNegativeDecimal)),
		validation.Field(&it.UnitCostEquipment, validation.By(nonNegativeDecimal)),
		validation.Field(&it.UnitCostMaterials, validation.By(nonNegativeDecimal)),
		validation.Field(&it.UnitCostLabor, validation.By(nonNegativeDecimal)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLineItem, err)
	}
	return nil
}

// Level is an area or floor of a project. Code is unique within the project.
type Level struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"project_id"`
	Code      string        `json:"code"`
	Name      string        `json:"name"`
	Notes     string        `json:"notes"`
	Order     int           `json:"order"`
	Version   int           `json:"version"`
	Subtotals CostBreakdown `json:"subtotals"`
	Items     []ProjectItem `json:"items"`
}

// LevelInput carries the user-editable fields of a level.
type LevelInput struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
	Order int    `json:"order"`
}

func (in LevelInput) normalized() LevelInput {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	return in
}

func (in LevelInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Code, validation.Required, validation.Length(1, 30)),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Order, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	return nil
}

// Project is the root of the cost tree: Project -> Level -> Item.
type Project struct {
	ID          string        `json:"id"`
	Number      string        `json:"number"`
	Name        string        `json:"name"`
	ClientID    string        `json:"client_id"`
	Location    string        `json:"location"`
	Description string        `json:"description"`
	Manager     string        `json:"manager"`
	Status      string        `json:"status"`
	Notes       string        `json:"notes"`
	Version     int           `json:"version"`
	Totals      CostBreakdown `json:"totals"`
	Levels      []Level       `json:"levels"`
}

// ProjectInput carries the user-editable fields of a project.
type ProjectInput struct {
	Name        string `json:"name"`
	ClientID    string `json:"client_id"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Manager     string `json:"manager"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
}

func (in ProjectInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Status, validation.By(func(any) error {
			if in.Status != "" && !validProjectStatus(in.Status) {
				return fmt.Errorf("unknown status %q", in.Status)
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProject, err)
	}
	return nil
}

// NewProject creates an empty project in the planning status.
func NewProject(number string, in ProjectInput) (Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return Project{}, err
	}
	p := Project{Number: number, Version: 1}
	p.apply(in)
	if p.Status == "" {
		p.Status = ProjectStatusPlanning
	}
	RollupProject(&p)
	return p, nil
}

func (p *Project) apply(in ProjectInput) {
	p.Name = in.Name
	p.ClientID = in.ClientID
	p.Location = in.Location
	p.Description = in.Description
	p.Manager = in.Manager
	p.Notes = in.Notes
	if in.Status != "" {
		p.Status = in.Status
	}
}

// UpdateDetails replaces the descriptive fields of the project.
func (p *Project) UpdateDetails(in ProjectInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if err := in.validate(); err != nil {
		return err
	}
	p.apply(in)
	return nil
}

// Clone returns a deep copy of p.
func (p Project) Clone() Project {
	out := p
	out.Levels = make([]Level, len(p.Levels))
	for i, l := range p.Levels {
		l.Items = append([]ProjectItem(nil), l.Items...)
		out.Levels[i] = l
	}
	return out
}

// Level returns the level with id.
func (p *Project) Level(id string) (Level, bool) {
	if i := p.levelIndex(id); i >= 0 {
		return p.Levels[i], true
	}
	return Level{}, false
}

// Item returns the item with id.
func (p *Project) Item(id string) (ProjectItem, bool) {
	li, ii := p.itemIndex(id)
	if li < 0 {
		return ProjectItem{}, false
	}
	return p.Levels[li].Items[ii], true
}

func (p *Project) levelIndex(id string) int {
	for i := range p.Levels {
		if p.Levels[i].ID == id {
			return i
		}
	}
	return -1
}

func (p *Project) itemIndex(id string) (int, int) {
	for li := range p.Levels {
		for ii := range p.Levels[li].Items {
			if p.Levels[li].Items[ii].ID == id {
				return li, ii
			}
		}
	}
	return -1, -1
}

func (p *Project) checkCode(code, exceptLevelID string) error {
	for _, l := range p.Levels {
		if l.ID != exceptLevelID && strings.EqualFold(l.Code, code) {
			return fmt.Errorf("%w: %q already exists in project %s", ErrDuplicateLevelCode, code, p.Number)
		}
	}
	return nil
}

// commit runs fn against a copy of p, rolls the copy up and publishes it.
// When fn fails p is left untouched.
func (p *Project) commit(fn func(next *Project) error) error {
	next := p.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	RollupProject(&next)
	*p = next
	return nil
}

// AddLevel appends a new empty level.
func (p *Project) AddLevel(in LevelInput) (Level, error) {
	in = in.normalized()
	if err := in.validate(); err != nil {
		return Level{}, err
	}
	if err := p.checkCode(in.Code, ""); err != nil {
		return Level{}, err
	}
	if in.Order == 0 {
		in.Order = p.nextLevelOrder()
	}

	l := Level{
		ID:        newID(),
		ProjectID: p.ID,
		Code:      in.Code,
		Name:      in.Name,
		Notes:     in.Notes,
		Order:     in.Order,
		Version:   1,
	}
	RollupLevel(&l)
	err := p.commit(func(next *Project) error {
		next.Levels = append(next.Levels, l)
		return nil
	})
	return l, err
}

func (p *Project) nextLevelOrder() int {
	highest := 0
	for _, l := range p.Levels {
		if l.Order > highest {
			highest = l.Order
		}
	}
	return highest + 1
}

// UpdateLevel replaces the editable fields of a level.
func (p *Project) UpdateLevel(levelID string, in LevelInput) (Level, error) {
	idx := p.levelIndex(levelID)
	if idx < 0 {
		return Level{}, fmt.Errorf("%w: level %s not in project %s", ErrMissingParent, levelID, p.Number)
	}
	in = in.normalized()
	if err := in.validate(); err != nil {
		return Level{}, err
	}
	if err := p.checkCode(in.Code, levelID); err != nil {
		return Level{}, err
	}

	var out Level
	err := p.commit(func(next *Project) error {
		l := &next.Levels[idx]
		l.Code = in.Code
		l.Name = in.Name
		l.Notes = in.Notes
		if in.Order > 0 {
			l.Order = in.Order
		}
		l.Version++
		out = *l
		return nil
	})
	return out, err
}

// RemoveLevel removes a level and all of its items. It returns the removed
// level as it was before removal.
func (p *Project) RemoveLevel(levelID string) (Level, error) {
	idx := p.levelIndex(levelID)
	if idx < 0 {
		return Level{}, fmt.Errorf("%w: level %s not in project %s", ErrMissingParent, levelID, p.Number)
	}
	removed := p.Levels[idx]
	err := p.commit(func(next *Project) error {
		next.Levels = append(next.Levels[:idx:idx], next.Levels[idx+1:]...)
		return nil
	})
	return removed, err
}

// AddItem appends it to the level levelID and rolls the level up.
func (p *Project) AddItem(levelID string, it ProjectItem) (ProjectItem, error) {
	idx := p.levelIndex(levelID)
	if idx < 0 {
		return ProjectItem{}, fmt.Errorf("%w: level %s not in project %s", ErrMissingParent, levelID, p.Number)
	}
	if err := it.Validate(); err != nil {
		return ProjectItem{}, err
	}

	it.ID = newID()
	it.LevelID = levelID
	if it.Order == 0 {
		it.Order = len(p.Levels[idx].Items) + 1
	}
	RecalcItem(&it)

	err := p.commit(func(next *Project) error {
		l := &next.Levels[idx]
		l.Items = append(l.Items, it)
		RollupLevel(l)
		l.Version++
		return nil
	})
	return it, err
}

// UpdateItem replaces the editable fields of an item. The item keeps its id
// and level.
func (p *Project) UpdateItem(itemID string, it ProjectItem) (ProjectItem, error) {
	li, ii := p.itemIndex(itemID)
	if li < 0 {
		return ProjectItem{}, fmt.Errorf("%w: item %s not in project %s", ErrMissingParent, itemID, p.Number)
	}
	if err := it.Validate(); err != nil {
		return ProjectItem{}, err
	}

	prev := p.Levels[li].Items[ii]
	it.ID = prev.ID
	it.LevelID = prev.LevelID
	if it.Order == 0 {
		it.Order = prev.Order
	}
	RecalcItem(&it)

	err := p.commit(func(next *Project) error {
		l := &next.Levels[li]
		l.Items[ii] = it
		RollupLevel(l)
		l.Version++
		return nil
	})
	return it, err
}

// RemoveItem deletes an item. Only its own level is re-summed before the
// project.
func (p *Project) RemoveItem(itemID string) (ProjectItem, error) {
	li, ii := p.itemIndex(itemID)
	if li < 0 {
		return ProjectItem{}, fmt.Errorf("%w: item %s not in project %s", ErrMissingParent, itemID, p.Number)
	}
	removed := p.Levels[li].Items[ii]
	err := p.commit(func(next *Project) error {
		l := &next.Levels[li]
		l.Items = append(l.Items[:ii:ii], l.Items[ii+1:]...)
		sumLevel(l)
		l.Version++
		return nil
	})
	return removed, err
}

// LevelByCode returns the level whose code matches, ignoring case.
func (p *Project) LevelByCode(code string) (Level, bool) {
	code = strings.TrimSpace(code)
	for _, l := range p.Levels {
		if strings.EqualFold(l.Code, code) {
			return l, true
		}
	}
	return Level{}, false
}

func newID() string {
	return security.RandomStringWithAlphabet(core.DefaultIdLength, core.DefaultIdAlphabet)
}
