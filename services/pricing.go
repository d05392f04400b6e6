// Package services provides pricing, rollup, persistence and export functions
// for HVAC quotations and projects.
package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SocialChargesRate is the statutory labor surcharge applied to the subtotal
// when a quotation includes social charges. It does not depend on the tax rate.
var SocialChargesRate = decimal.RequireFromString("0.35")

// CategorySubtotal sums the subtotals of every item of category c.
func CategorySubtotal(items []LineItem, c Category) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		if it.Category == c {
			sum = sum.Add(it.Subtotal())
		}
	}
	return sum
}

// CategoryTotals holds one subtotal per quotation category.
type CategoryTotals struct {
	Equipment decimal.Decimal `json:"equipment"`
	Duct      decimal.Decimal `json:"duct"`
	Diffuser  decimal.Decimal `json:"diffuser"`
	Grille    decimal.Decimal `json:"grille"`
	Pipe      decimal.Decimal `json:"pipe"`
	Labor     decimal.Decimal `json:"labor"`
	Material  decimal.Decimal `json:"material"`
	Expense   decimal.Decimal `json:"expense"`
}

// CalcCategoryTotals reduces items into per-category subtotals.
func CalcCategoryTotals(items []LineItem) CategoryTotals {
	return CategoryTotals{
		Equipment: CategorySubtotal(items, CategoryEquipment),
		Duct:      CategorySubtotal(items, CategoryDuct),
		Diffuser:  CategorySubtotal(items, CategoryDiffuser),
		Grille:    CategorySubtotal(items, CategoryGrille),
		Pipe:      CategorySubtotal(items, CategoryPipe),
		Labor:     CategorySubtotal(items, CategoryLabor),
		Material:  CategorySubtotal(items, CategoryMaterial),
		Expense:   CategorySubtotal(items, CategoryExpense),
	}
}

// Get returns the subtotal of category c.
func (t CategoryTotals) Get(c Category) decimal.Decimal {
	switch c {
	case CategoryEquipment:
		return t.Equipment
	case CategoryDuct:
		return t.Duct
	case CategoryDiffuser:
		return t.Diffuser
	case CategoryGrille:
		return t.Grille
	case CategoryPipe:
		return t.Pipe
	case CategoryLabor:
		return t.Labor
	case CategoryMaterial:
		return t.Material
	case CategoryExpense:
		return t.Expense
	}
	return decimal.Zero
}

// Sum adds all eight category subtotals.
func (t CategoryTotals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range Categories {
		sum = sum.Add(t.Get(c))
	}
	return sum
}

func (t CategoryTotals) scale(f decimal.Decimal) CategoryTotals {
	return CategoryTotals{
		Equipment: t.Equipment.Mul(f),
		Duct:      t.Duct.Mul(f),
		Diffuser:  t.Diffuser.Mul(f),
		Grille:    t.Grille.Mul(f),
		Pipe:      t.Pipe.Mul(f),
		Labor:     t.Labor.Mul(f),
		Material:  t.Material.Mul(f),
		Expense:   t.Expense.Mul(f),
	}
}

// TotalsOptions are the per-quotation inputs of the totals calculation.
type TotalsOptions struct {
	TaxRatePercent       decimal.Decimal
	IncludeSocialCharges bool
}

// QuotationTotals is the full breakdown of a quotation in the primary currency.
type QuotationTotals struct {
	Categories     CategoryTotals  `json:"categories"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	SocialCharges  decimal.Decimal `json:"social_charges"`
	TaxBase        decimal.Decimal `json:"tax_base"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// CalcQuotationTotals computes, in order: subtotal, social charges, tax base,
// tax amount and total. A negative tax rate aborts with ErrInvalidConfiguration.
func CalcQuotationTotals(items []LineItem, opts TotalsOptions) (QuotationTotals, error) {
	if opts.TaxRatePercent.IsNegative() {
		return QuotationTotals{}, fmt.Errorf("%w: tax rate %s%% is negative", ErrInvalidConfiguration, opts.TaxRatePercent)
	}

	var t QuotationTotals
	t.Categories = CalcCategoryTotals(items)
	t.Subtotal = t.Categories.Sum()

	t.SocialCharges = decimal.Zero
	if opts.IncludeSocialCharges {
		t.SocialCharges = t.Subtotal.Mul(SocialChargesRate)
	}

	t.TaxBase = t.Subtotal.Add(t.SocialCharges)
	t.TaxRatePercent = opts.TaxRatePercent
	t.TaxAmount = t.TaxBase.Mul(opts.TaxRatePercent).Div(hundred)
	t.Total = t.TaxBase.Add(t.TaxAmount)
	return t, nil
}

// InCurrency returns a copy of t with every amount multiplied by rate. It is
// used for presentation in the secondary currency only.
func (t QuotationTotals) InCurrency(rate decimal.Decimal) QuotationTotals {
	return QuotationTotals{
		Categories:     t.Categories.scale(rate),
		Subtotal:       t.Subtotal.Mul(rate),
		SocialCharges:  t.SocialCharges.Mul(rate),
		TaxBase:        t.TaxBase.Mul(rate),
		TaxRatePercent: t.TaxRatePercent,
		TaxAmount:      t.TaxAmount.Mul(rate),
		Total:          t.Total.Mul(rate),
	}
}

// TaxRateOther selects a user-supplied override instead of a listed rate.
const TaxRateOther = "other"

// ResolveTaxRate turns a tax selection into a percentage. selection is one of
// TaxRateOptions (with or without a trailing "%") or TaxRateOther, in which
// case override is parsed instead.
func ResolveTaxRate(selection, override string) (decimal.Decimal, error) {
	sel := strings.TrimSuffix(strings.TrimSpace(selection), "%")
	if strings.EqualFold(sel, TaxRateOther) {
		rate, err := ParseAmount(override, BlankRejected)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: tax rate override: %v", ErrInvalidConfiguration, err)
		}
		if rate.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: tax rate %s%% is negative", ErrInvalidConfiguration, rate)
		}
		return rate, nil
	}

	for _, opt := range TaxRateOptions {
		if sel == fmt.Sprintf("%d", opt) {
			return decimal.NewFromInt(int64(opt)), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: unknown tax rate option %q", ErrInvalidConfiguration, selection)
}

// AnnualLine is one equipment row of the maintenance projection.
type AnnualLine struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PerVisit    decimal.Decimal `json:"per_visit"`
	Annual      decimal.Decimal `json:"annual"`
}

// AnnualProjection is the yearly maintenance cost derived from the equipment
// lines of a quotation. It feeds the proposal document only and is never stored.
type AnnualProjection struct {
	VisitsPerYear    int             `json:"visits_per_year"`
	Lines            []AnnualLine    `json:"lines"`
	PerVisitSubtotal decimal.Decimal `json:"per_visit_subtotal"`
	AnnualSubtotal   decimal.Decimal `json:"annual_subtotal"`
	TaxRatePercent   decimal.Decimal `json:"tax_rate_percent"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	Total            decimal.Decimal `json:"total"`
}

// CalcAnnualProjection multiplies each equipment line's per-visit value by
// visitsPerYear and taxes the annual subtotal.
func CalcAnnualProjection(items []LineItem, visitsPerYear int, taxRatePercent decimal.Decimal) (AnnualProjection, error) {
	if visitsPerYear < 1 {
		return AnnualProjection{}, fmt.Errorf("%w: visits per year must be at least 1", ErrInvalidConfiguration)
	}
	if taxRatePercent.IsNegative() {
		return AnnualProjection{}, fmt.Errorf("%w: tax rate %s%% is negative", ErrInvalidConfiguration, taxRatePercent)
	}

	visits := decimal.NewFromInt(int64(visitsPerYear))
	p := AnnualProjection{
		VisitsPerYear:    visitsPerYear,
		PerVisitSubtotal: decimal.Zero,
		TaxRatePercent:   taxRatePercent,
	}
	for _, it := range items {
		if it.Category != CategoryEquipment {
			continue
		}
		perVisit := it.Subtotal()
		p.Lines = append(p.Lines, AnnualLine{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			PerVisit:    perVisit,
			Annual:      perVisit.Mul(visits),
		})
		p.PerVisitSubtotal = p.PerVisitSubtotal.Add(perVisit)
	}
	p.AnnualSubtotal = p.PerVisitSubtotal.Mul(visits)
	p.TaxAmount = p.AnnualSubtotal.Mul(taxRatePercent).Div(hundred)
	p.Total = p.AnnualSubtotal.Add(p.TaxAmount)
	return p, nil
}

// InCurrency returns a copy of p with every amount multiplied by rate.
func (p AnnualProjection) InCurrency(rate decimal.Decimal) AnnualProjection {
	out := p
	out.Lines = make([]AnnualLine, len(p.Lines))
	for i, l := range p.Lines {
		out.Lines[i] = AnnualLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice.Mul(rate),
			PerVisit:    l.PerVisit.Mul(rate),
			Annual:      l.Annual.Mul(rate),
		}
	}
	out.PerVisitSubtotal = p.PerVisitSubtotal.Mul(rate)
	out.AnnualSubtotal = p.AnnualSubtotal.Mul(rate)
	out.TaxAmount = p.TaxAmount.Mul(rate)
	out.Total = p.Total.Mul(rate)
	return out
}
