package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExportRow is one row of a quotation or project export. Level 0 rows are
// section headings (a category or a project level); level 1 rows are lines.
type ExportRow struct {
	Level       int
	Index       string // "1", "1.1" etc
	Description string
	Detail      string
	Qty         decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// QuotationExport holds everything the quotation document needs, already in
// the display currency.
type QuotationExport struct {
	Number               string
	ClientName           string
	ServiceType          string
	CreatedDate          string
	Currency             string
	ExchangeRate         decimal.Decimal
	IncludeSocialCharges bool
	Rows                 []ExportRow
	Totals               QuotationTotals
	Projection           AnnualProjection
}

// Money formats an amount in the export currency.
func (e QuotationExport) Money(d decimal.Decimal) string {
	if e.Currency == CurrencyCRC {
		return FormatCRC(d)
	}
	return FormatUSD(d)
}

// BuildQuotationExport groups the lines of q by category and converts every
// amount into the quotation's display currency.
func BuildQuotationExport(q Quotation, clientName string, now time.Time) (QuotationExport, error) {
	rate := decimal.NewFromInt(1)
	if q.DisplayInSecondaryCurrency {
		rate = q.ExchangeRate
	}

	projection, err := CalcAnnualProjection(q.Items, q.VisitsPerYear, q.TaxRatePercent)
	if err != nil {
		return QuotationExport{}, err
	}

	data := QuotationExport{
		Number:               q.Number,
		ClientName:           clientName,
		ServiceType:          q.ServiceType,
		CreatedDate:          now.Format("02/01/2006"),
		Currency:             q.DisplayCurrency(),
		ExchangeRate:         q.ExchangeRate,
		IncludeSocialCharges: q.IncludeSocialCharges,
		Totals:               q.DisplayTotals(),
		Projection:           projection.InCurrency(rate),
	}

	section := 0
	for _, c := range Categories {
		var lines []LineItem
		for _, li := range q.Items {
			if li.Category == c {
				lines = append(lines, li)
			}
		}
		if len(lines) == 0 {
			continue
		}
		section++
		data.Rows = append(data.Rows, ExportRow{
			Level:       0,
			Index:       fmt.Sprintf("%d", section),
			Description: c.Label(),
			Amount:      data.Totals.Categories.Get(c),
		})
		for i, li := range lines {
			data.Rows = append(data.Rows, ExportRow{
				Level:       1,
				Index:       fmt.Sprintf("%d.%d", section, i+1),
				Description: li.Description,
				Detail:      lineDetail(li),
				Qty:         li.Quantity,
				UnitPrice:   li.UnitPrice.Mul(rate),
				Amount:      li.Subtotal().Mul(rate),
			})
		}
	}
	return data, nil
}

func lineDetail(li LineItem) string {
	switch li.Category {
	case CategoryDuct:
		return fmt.Sprintf("supply %s m + return %s m", li.SupplyLength, li.ReturnLength)
	case CategoryEquipment:
		return fmt.Sprintf("%s h per unit", li.MaintenanceHours)
	}
	return li.Detail
}

// formatQty returns a string representation of the quantity value.
// Whole numbers are formatted without decimals; fractional values get 2 decimal places.
func formatQty(qty decimal.Decimal) string {
	if qty.IsInteger() {
		return qty.StringFixed(0)
	}
	return qty.StringFixed(2)
}
