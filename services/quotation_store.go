package services

import (
	"context"
	"fmt"
	"log"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// QuotationStore persists quotations with their line items. The quotation
// row, its category subtotals and all of its lines are written in one
// transaction.
type QuotationStore struct {
	app core.App
}

// NewQuotationStore returns a store backed by app.
func NewQuotationStore(app core.App) *QuotationStore {
	return &QuotationStore{app: app}
}

// Create prices q and saves it as version 1. When q.Number is already taken a
// numeric suffix is appended.
func (s *QuotationStore) Create(q Quotation) (Quotation, error) {
	if q.Status == "" {
		q.Status = QuotationPending
	}
	if err := q.Recalculate(); err != nil {
		return Quotation{}, err
	}
	q.Version = 1

	err := s.app.RunInTransaction(func(txApp core.App) error {
		number, err := uniqueQuotationNumber(txApp, q.Number)
		if err != nil {
			return err
		}
		q.Number = number

		col, err := txApp.FindCollectionByNameOrId("quotations")
		if err != nil {
			return fmt.Errorf("find quotations collection: %w", err)
		}
		record := core.NewRecord(col)
		writeQuotationRecord(record, q)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("save quotation: %w", err)
		}
		q.ID = record.Id
		return saveQuotationLines(txApp, q)
	})
	if err != nil {
		return Quotation{}, err
	}
	log.Printf("quotations: created %s (%s) total=%s", q.Number, q.ID, Round2(q.Totals.Total))
	return q, nil
}

// Load reads a quotation with its lines in insertion order.
func (s *QuotationStore) Load(id string) (Quotation, error) {
	return loadQuotation(s.app, id)
}

// Update applies fn to the stored quotation, re-prices it and writes it back
// as the next version. Lines are rewritten as a whole.
func (s *QuotationStore) Update(id string, expectedVersion int, fn func(q *Quotation) error) (Quotation, error) {
	var out Quotation
	err := s.app.RunInTransaction(func(txApp core.App) error {
		q, err := loadQuotation(txApp, id)
		if err != nil {
			return err
		}
		if err := checkVersion("quotation", id, q.Version, expectedVersion); err != nil {
			return err
		}
		if err := fn(&q); err != nil {
			return err
		}
		if err := q.Recalculate(); err != nil {
			return err
		}
		q.Version++

		record, err := txApp.FindRecordById("quotations", id)
		if err != nil {
			return fmt.Errorf("quotation %s: %w", id, ErrNotFound)
		}
		writeQuotationRecord(record, q)
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("save quotation %s: %w", q.Number, err)
		}
		if err := deleteQuotationLines(txApp, id); err != nil {
			return err
		}
		if err := saveQuotationLines(txApp, q); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	return out, nil
}

// Transition fires a status event on the stored quotation.
func (s *QuotationStore) Transition(ctx context.Context, id string, expectedVersion int, event string) (Quotation, error) {
	q, err := s.Update(id, expectedVersion, func(q *Quotation) error {
		next, err := NewQuotationFSM(q.Status).Fire(ctx, event)
		if err != nil {
			return err
		}
		q.Status = next
		return nil
	})
	if err != nil {
		return Quotation{}, err
	}
	log.Printf("quotations: %s is now %s", q.Number, q.Status)
	return q, nil
}

func uniqueQuotationNumber(app core.App, base string) (string, error) {
	number := base
	for n := 2; ; n++ {
		existing, err := app.FindRecordsByFilter(
			"quotations",
			"number = {:number}",
			"",
			1,
			0,
			dbx.Params{"number": number},
		)
		if err != nil {
			return "", fmt.Errorf("check quotation number: %w", err)
		}
		if len(existing) == 0 {
			return number, nil
		}
		number = fmt.Sprintf("%s-%d", base, n)
	}
}

func loadQuotation(app core.App, id string) (Quotation, error) {
	record, err := app.FindRecordById("quotations", id)
	if err != nil {
		return Quotation{}, fmt.Errorf("quotation %s: %w", id, ErrNotFound)
	}
	q := quotationFromRecord(record)

	lines, err := app.FindRecordsByFilter(
		"quotation_line_items",
		"quotation = {:quotation}",
		"sort_order",
		0,
		0,
		dbx.Params{"quotation": id},
	)
	if err != nil {
		return Quotation{}, fmt.Errorf("load lines of quotation %s: %w", id, err)
	}
	for _, r := range lines {
		q.Items = append(q.Items, lineFromRecord(r))
	}
	return q, nil
}

func quotationFromRecord(r *core.Record) Quotation {
	q := Quotation{
		ID:                         r.Id,
		Number:                     r.GetString("number"),
		ClientID:                   r.GetString("client"),
		ProjectID:                  r.GetString("project"),
		ServiceType:                r.GetString("service_type"),
		Notes:                      r.GetString("notes"),
		IssuedAt:                   r.GetDateTime("issued_at").Time(),
		VisitsPerYear:              r.GetInt("visits_per_year"),
		MarkupFactor:               getDecimal(r, "markup_factor"),
		TaxRatePercent:             getDecimal(r, "tax_rate_percent"),
		ExchangeRate:               getDecimal(r, "exchange_rate"),
		IncludeSocialCharges:       r.GetBool("include_social_charges"),
		DisplayInSecondaryCurrency: r.GetBool("display_in_secondary_currency"),
		Status:                     QuotationStatus(r.GetString("status")),
		Version:                    r.GetInt("version"),
	}
	q.Totals = QuotationTotals{
		Categories: CategoryTotals{
			Equipment: getDecimal(r, "subtotal_equipment"),
			Duct:      getDecimal(r, "subtotal_duct"),
			Diffuser:  getDecimal(r, "subtotal_diffuser"),
			Grille:    getDecimal(r, "subtotal_grille"),
			Pipe:      getDecimal(r, "subtotal_pipe"),
			Labor:     getDecimal(r, "subtotal_labor"),
			Material:  getDecimal(r, "subtotal_material"),
			Expense:   getDecimal(r, "subtotal_expense"),
		},
		Subtotal:       getDecimal(r, "subtotal"),
		SocialCharges:  getDecimal(r, "social_charges"),
		TaxBase:        getDecimal(r, "tax_base"),
		TaxRatePercent: getDecimal(r, "tax_rate_percent"),
		TaxAmount:      getDecimal(r, "tax_amount"),
		Total:          getDecimal(r, "total"),
	}
	return q
}

func writeQuotationRecord(r *core.Record, q Quotation) {
	r.Set("number", q.Number)
	r.Set("client", q.ClientID)
	r.Set("project", q.ProjectID)
	r.Set("service_type", q.ServiceType)
	r.Set("notes", q.Notes)
	if !q.IssuedAt.IsZero() {
		r.Set("issued_at", q.IssuedAt)
	}
	r.Set("visits_per_year", q.VisitsPerYear)
	setDecimal(r, "markup_factor", q.MarkupFactor)
	setDecimal(r, "tax_rate_percent", q.TaxRatePercent)
	setDecimal(r, "exchange_rate", q.ExchangeRate)
	r.Set("include_social_charges", q.IncludeSocialCharges)
	r.Set("display_in_secondary_currency", q.DisplayInSecondaryCurrency)
	r.Set("status", string(q.Status))
	r.Set("version", q.Version)
	for _, c := range Categories {
		setDecimal(r, "subtotal_"+string(c), q.Totals.Categories.Get(c))
	}
	setDecimal(r, "subtotal", q.Totals.Subtotal)
	setDecimal(r, "social_charges", q.Totals.SocialCharges)
	setDecimal(r, "tax_base", q.Totals.TaxBase)
	setDecimal(r, "tax_amount", q.Totals.TaxAmount)
	setDecimal(r, "total", q.Totals.Total)
}

func lineFromRecord(r *core.Record) LineItem {
	return LineItem{
		Category:         Category(r.GetString("category")),
		Description:      r.GetString("description"),
		RefID:            r.GetString("ref_id"),
		Detail:           r.GetString("detail"),
		Quantity:         getDecimal(r, "quantity"),
		UnitPrice:        getDecimal(r, "unit_price"),
		SupplyLength:     getDecimal(r, "supply_length"),
		ReturnLength:     getDecimal(r, "return_length"),
		MaintenanceHours: getDecimal(r, "maintenance_hours"),
	}
}

func saveQuotationLines(app core.App, q Quotation) error {
	col, err := app.FindCollectionByNameOrId("quotation_line_items")
	if err != nil {
		return fmt.Errorf("find quotation_line_items collection: %w", err)
	}
	for i, li := range q.Items {
		r := core.NewRecord(col)
		r.Set("quotation", q.ID)
		r.Set("sort_order", i+1)
		r.Set("category", string(li.Category))
		r.Set("description", li.Description)
		r.Set("ref_id", li.RefID)
		r.Set("detail", li.Detail)
		setDecimal(r, "quantity", li.Quantity)
		setDecimal(r, "unit_price", li.UnitPrice)
		setDecimal(r, "supply_length", li.SupplyLength)
		setDecimal(r, "return_length", li.ReturnLength)
		setDecimal(r, "maintenance_hours", li.MaintenanceHours)
		setDecimal(r, "subtotal", li.Subtotal())
		if err := app.Save(r); err != nil {
			return fmt.Errorf("save line %d of quotation %s: %w", i+1, q.Number, err)
		}
	}
	return nil
}

func deleteQuotationLines(app core.App, quotationID string) error {
	lines, err := app.FindAllRecords("quotation_line_items", dbx.HashExp{"quotation": quotationID})
	if err != nil {
		return fmt.Errorf("list lines of quotation %s: %w", quotationID, err)
	}
	for _, r := range lines {
		if err := app.Delete(r); err != nil {
			return fmt.Errorf("delete line %s: %w", r.Id, err)
		}
	}
	return nil
}
