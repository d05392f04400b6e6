package services

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Currency codes used for display.
const (
	CurrencyUSD = "USD"
	CurrencyCRC = "CRC"
)

// Quotation is a priced set of line items plus the factors it was priced with.
// Totals are canonical amounts in the primary currency.
type Quotation struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	ClientID    string    `json:"client_id"`
	ProjectID   string    `json:"project_id"`
	ServiceType string    `json:"service_type"`
	Notes       string    `json:"notes"`
	IssuedAt    time.Time `json:"issued_at"`

	VisitsPerYear              int             `json:"visits_per_year"`
	MarkupFactor               decimal.Decimal `json:"markup_factor"`
	TaxRatePercent             decimal.Decimal `json:"tax_rate_percent"`
	ExchangeRate               decimal.Decimal `json:"exchange_rate"`
	IncludeSocialCharges       bool            `json:"include_social_charges"`
	DisplayInSecondaryCurrency bool            `json:"display_in_secondary_currency"`

	Status  QuotationStatus `json:"status"`
	Items   []LineItem      `json:"items"`
	Totals  QuotationTotals `json:"totals"`
	Version int             `json:"version"`
}

// QuotationInput carries the per-quotation choices made by the user.
type QuotationInput struct {
	ClientID                   string          `json:"client_id"`
	ProjectID                  string          `json:"project_id"`
	ServiceType                string          `json:"service_type"`
	Notes                      string          `json:"notes"`
	VisitsPerYear              int             `json:"visits_per_year"`
	TaxRatePercent             decimal.Decimal `json:"tax_rate_percent"`
	IncludeSocialCharges       bool            `json:"include_social_charges"`
	DisplayInSecondaryCurrency bool            `json:"display_in_secondary_currency"`
}

// NewQuotation builds a pending quotation from a worksheet's items and prices
// it. cfg supplies the markup and exchange rate stored alongside.
func NewQuotation(items []LineItem, cfg PricingConfig, in QuotationInput, now time.Time) (Quotation, error) {
	q := Quotation{
		Number:                     FormatQuotationNumber(now),
		ClientID:                   in.ClientID,
		ProjectID:                  in.ProjectID,
		ServiceType:                in.ServiceType,
		Notes:                      in.Notes,
		IssuedAt:                   now,
		VisitsPerYear:              in.VisitsPerYear,
		MarkupFactor:               cfg.MarkupFactor,
		TaxRatePercent:             in.TaxRatePercent,
		ExchangeRate:               cfg.ExchangeRate,
		IncludeSocialCharges:       in.IncludeSocialCharges,
		DisplayInSecondaryCurrency: in.DisplayInSecondaryCurrency,
		Status:                     QuotationPending,
		Items:                      append([]LineItem(nil), items...),
	}
	if err := q.Recalculate(); err != nil {
		return Quotation{}, err
	}
	return q, nil
}

// Validate checks the scalar fields and every line item.
func (q Quotation) Validate() error {
	if len(q.Items) == 0 {
		return ErrEmptyQuotation
	}
	err := validation.ValidateStruct(&q,
		validation.Field(&q.VisitsPerYear, validation.Min(1)),
		validation.Field(&q.MarkupFactor, validation.By(positiveDecimal)),
		validation.Field(&q.TaxRatePercent, validation.By(nonNegativeDecimal)),
		validation.Field(&q.ExchangeRate, validation.By(positiveDecimal)),
		validation.Field(&q.Status, validation.By(func(any) error {
			if !q.Status.valid() {
				return fmt.Errorf("unknown status %q", q.Status)
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	for i, it := range q.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

// Recalculate validates q and recomputes its totals from the items. On
// failure the previous totals are kept.
func (q *Quotation) Recalculate() error {
	if err := q.Validate(); err != nil {
		return err
	}
	totals, err := CalcQuotationTotals(q.Items, TotalsOptions{
		TaxRatePercent:       q.TaxRatePercent,
		IncludeSocialCharges: q.IncludeSocialCharges,
	})
	if err != nil {
		return err
	}
	q.Totals = totals
	return nil
}

// DisplayCurrency is the currency DisplayTotals are expressed in.
func (q Quotation) DisplayCurrency() string {
	if q.DisplayInSecondaryCurrency {
		return CurrencyCRC
	}
	return CurrencyUSD
}

// DisplayTotals returns the totals in the display currency. The stored totals
// are never modified.
func (q Quotation) DisplayTotals() QuotationTotals {
	if q.DisplayInSecondaryCurrency {
		return q.Totals.InCurrency(q.ExchangeRate)
	}
	return q.Totals
}

// FormatDisplay formats an amount already in the display currency.
func (q Quotation) FormatDisplay(amount decimal.Decimal) string {
	if q.DisplayInSecondaryCurrency {
		return FormatCRC(amount)
	}
	return FormatUSD(amount)
}
