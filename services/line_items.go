package services

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Category identifies the pricing rule of a quotation line.
type Category string

const (
	CategoryEquipment Category = "equipment"
	CategoryDuct      Category = "duct"
	CategoryDiffuser  Category = "diffuser"
	CategoryGrille    Category = "grille"
	CategoryPipe      Category = "pipe"
	CategoryLabor     Category = "labor"
	CategoryMaterial  Category = "material"
	CategoryExpense   Category = "expense"
)

// Categories lists every quotation category in display order.
var Categories = []Category{
	CategoryEquipment,
	CategoryDuct,
	CategoryDiffuser,
	CategoryGrille,
	CategoryPipe,
	CategoryLabor,
	CategoryMaterial,
	CategoryExpense,
}

// Label returns the heading used for the category in exports.
func (c Category) Label() string {
	switch c {
	case CategoryEquipment:
		return "Equipment"
	case CategoryDuct:
		return "Ducts"
	case CategoryDiffuser:
		return "Diffusers"
	case CategoryGrille:
		return "Grilles"
	case CategoryPipe:
		return "Piping"
	case CategoryLabor:
		return "Labor"
	case CategoryMaterial:
		return "Materials"
	case CategoryExpense:
		return "Other expenses"
	}
	return string(c)
}

// Countable reports whether quantities of the category are whole units.
func (c Category) Countable() bool {
	return c == CategoryEquipment || c == CategoryDiffuser || c == CategoryGrille
}

func (c Category) valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// LineItem is one priced row of a quotation. Its subtotal is always derived
// from Quantity and UnitPrice.
type LineItem struct {
	Category    Category `json:"category"`
	Description string   `json:"description"`
	// RefID points at the catalog row the line was priced from, if any.
	RefID  string `json:"ref_id"`
	Detail string `json:"detail"`

	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`

	// Duct lines keep both entered lengths; Quantity is their sum.
	SupplyLength decimal.Decimal `json:"supply_length"`
	ReturnLength decimal.Decimal `json:"return_length"`

	// Equipment lines keep the catalog maintenance hours per unit.
	MaintenanceHours decimal.Decimal `json:"maintenance_hours"`
}

// Subtotal is Quantity * UnitPrice.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Validate rejects lines that must never enter a working set.
func (li LineItem) Validate() error {
	qtyRule := validation.By(nonNegativeDecimal)
	switch {
	case li.Category.Countable():
		qtyRule = validation.By(wholePositiveDecimal)
	case li.Category == CategoryPipe, li.Category == CategoryMaterial, li.Category == CategoryLabor:
		qtyRule = validation.By(positiveDecimal)
	}

	err := validation.ValidateStruct(&li,
		validation.Field(&li.Category, validation.By(func(any) error {
			if !li.Category.valid() {
				return fmt.Errorf("unknown category %q", li.Category)
			}
			return nil
		})),
		validation.Field(&li.Description, validation.Required, validation.Length(1, 200)),
		validation.Field(&li.Quantity, qtyRule),
		validation.Field(&li.UnitPrice, validation.By(nonNegativeDecimal)),
		validation.Field(&li.SupplyLength, validation.By(nonNegativeDecimal)),
		validation.Field(&li.ReturnLength, validation.By(nonNegativeDecimal)),
		validation.Field(&li.MaintenanceHours, validation.By(nonNegativeDecimal)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLineItem, err)
	}
	if li.Category == CategoryExpense && !li.Quantity.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: expense quantity must be 1", ErrInvalidLineItem)
	}
	if li.Category == CategoryExpense && !li.UnitPrice.IsPositive() {
		return fmt.Errorf("%w: expense amount must be greater than zero", ErrInvalidLineItem)
	}
	return nil
}

// Equipment is the catalog view needed to price a maintenance line.
type Equipment struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	MaintenanceHours decimal.Decimal `json:"maintenance_hours"`
}

// NewEquipmentLine prices qty units of eq:
// unit price = maintenance hours * hourly labor rate * markup factor.
func NewEquipmentLine(eq Equipment, qty decimal.Decimal, cfg PricingConfig) (LineItem, error) {
	li := LineItem{
		Category:         CategoryEquipment,
		Description:      eq.Name,
		RefID:            eq.ID,
		Quantity:         qty,
		MaintenanceHours: eq.MaintenanceHours,
		UnitPrice:        eq.MaintenanceHours.Mul(cfg.HourlyLaborRate).Mul(cfg.MarkupFactor),
	}
	return checked(li)
}

// NewDuctLine prices a duct run whose quantity is supply + return length.
func NewDuctLine(ductType string, supply, ret, pricePerMeter decimal.Decimal) (LineItem, error) {
	li := LineItem{
		Category:     CategoryDuct,
		Description:  ductType,
		SupplyLength: supply,
		ReturnLength: ret,
		Quantity:     supply.Add(ret),
		UnitPrice:    pricePerMeter,
	}
	return checked(li)
}

// NewPipeLine prices a pipe run by length.
func NewPipeLine(pipeType string, length, pricePerMeter decimal.Decimal) (LineItem, error) {
	li := LineItem{
		Category:    CategoryPipe,
		Description: pipeType,
		Quantity:    length,
		UnitPrice:   pricePerMeter,
	}
	return checked(li)
}

// NewUnitLine prices diffusers, grilles, materials and labor, whose unit
// price is entered directly or looked up by the caller.
func NewUnitLine(category Category, description string, qty, unitPrice decimal.Decimal) (LineItem, error) {
	switch category {
	case CategoryDiffuser, CategoryGrille, CategoryMaterial, CategoryLabor:
	default:
		return LineItem{}, fmt.Errorf("%w: category %q is not priced per unit", ErrInvalidLineItem, category)
	}
	li := LineItem{
		Category:    category,
		Description: description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
	}
	return checked(li)
}

// NewExpenseLine records a lump-sum expense (quantity 1).
func NewExpenseLine(concept string, amount decimal.Decimal) (LineItem, error) {
	li := LineItem{
		Category:    CategoryExpense,
		Description: concept,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   amount,
	}
	return checked(li)
}

func checked(li LineItem) (LineItem, error) {
	if err := li.Validate(); err != nil {
		return LineItem{}, err
	}
	return li, nil
}

// Worksheet is the in-memory working set of an unsaved quotation. It is owned
// by the session editing it and is not safe for concurrent use.
type Worksheet struct {
	items []LineItem
}

// Add validates li and appends it. A rejected line leaves the set untouched.
func (w *Worksheet) Add(li LineItem) error {
	if err := li.Validate(); err != nil {
		return err
	}
	w.items = append(w.items, li)
	return nil
}

// Remove drops the line at index.
func (w *Worksheet) Remove(index int) error {
	if index < 0 || index >= len(w.items) {
		return fmt.Errorf("line %d does not exist", index)
	}
	w.items = append(w.items[:index:index], w.items[index+1:]...)
	return nil
}

// Items returns a copy of the lines in insertion order.
func (w *Worksheet) Items() []LineItem {
	out := make([]LineItem, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Worksheet) Len() int { return len(w.items) }
