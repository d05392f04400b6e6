package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"airsolutions/services"
)

// lineRequest is one raw worksheet line as posted by the client. Numeric
// fields are left untyped so blank and string inputs go through
// services.ParseAmount.
type lineRequest struct {
	Category     string `json:"category"`
	Description  string `json:"description"`
	RefID        string `json:"ref_id"`
	Quantity     any    `json:"quantity"`
	UnitPrice    any    `json:"unit_price"`
	SupplyLength any    `json:"supply_length"`
	ReturnLength any    `json:"return_length"`
	Amount       any    `json:"amount"`
}

type quotationRequest struct {
	ClientID                   string        `json:"client_id"`
	ProjectID                  string        `json:"project_id"`
	ServiceType                string        `json:"service_type"`
	Notes                      string        `json:"notes"`
	VisitsPerYear              int           `json:"visits_per_year"`
	TaxRate                    string        `json:"tax_rate"`
	TaxRateOther               string        `json:"tax_rate_other"`
	IncludeSocialCharges       bool          `json:"include_social_charges"`
	DisplayInSecondaryCurrency bool          `json:"display_in_secondary_currency"`
	Lines                      []lineRequest `json:"lines"`
}

type quotationResponse struct {
	services.Quotation
	Currency      string                   `json:"currency"`
	DisplayTotals services.QuotationTotals `json:"display_totals"`
	Formatted     map[string]string        `json:"formatted"`
}

func newQuotationResponse(q services.Quotation) quotationResponse {
	display := q.DisplayTotals()
	return quotationResponse{
		Quotation:     q,
		Currency:      q.DisplayCurrency(),
		DisplayTotals: display,
		Formatted: map[string]string{
			"subtotal":       q.FormatDisplay(display.Subtotal),
			"social_charges": q.FormatDisplay(display.SocialCharges),
			"tax_amount":     q.FormatDisplay(display.TaxAmount),
			"total":          q.FormatDisplay(display.Total),
		},
	}
}

// buildLine turns a raw line into a priced, validated line item.
func buildLine(catalog services.CatalogProvider, cfg services.PricingConfig, r lineRequest) (services.LineItem, error) {
	amount := func(field string, raw any) (decimal.Decimal, error) {
		d, err := services.ParseAmount(raw, cfg.Blank)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s: %v", services.ErrInvalidLineItem, field, err)
		}
		return d, nil
	}

	cat := services.Category(r.Category)
	switch cat {
	case services.CategoryEquipment:
		qty, err := amount("quantity", r.Quantity)
		if err != nil {
			return services.LineItem{}, err
		}
		return services.EquipmentLine(catalog, r.RefID, qty, cfg)
	case services.CategoryDuct:
		supply, err := amount("supply_length", r.SupplyLength)
		if err != nil {
			return services.LineItem{}, err
		}
		ret, err := amount("return_length", r.ReturnLength)
		if err != nil {
			return services.LineItem{}, err
		}
		price, err := amount("unit_price", r.UnitPrice)
		if err != nil {
			return services.LineItem{}, err
		}
		return services.NewDuctLine(r.Description, supply, ret, price)
	case services.CategoryPipe:
		length, err := amount("quantity", r.Quantity)
		if err != nil {
			return services.LineItem{}, err
		}
		price, err := amount("unit_price", r.UnitPrice)
		if err != nil {
			return services.LineItem{}, err
		}
		return services.NewPipeLine(r.Description, length, price)
	case services.CategoryExpense:
		amt, err := amount("amount", r.Amount)
		if err != nil {
			return services.LineItem{}, err
		}
		return services.NewExpenseLine(r.Description, amt)
	}

	qty, err := amount("quantity", r.Quantity)
	if err != nil {
		return services.LineItem{}, err
	}
	price, err := amount("unit_price", r.UnitPrice)
	if err != nil {
		return services.LineItem{}, err
	}
	return services.NewUnitLine(cat, r.Description, qty, price)
}

// buildQuotation prices a posted worksheet with the stored configuration.
func buildQuotation(app core.App, body quotationRequest, now time.Time) (services.Quotation, error) {
	cfg, err := services.LoadStoredPricingConfig(app)
	if err != nil {
		return services.Quotation{}, err
	}

	catalog := services.NewRecordCatalog(app)
	var ws services.Worksheet
	for i, r := range body.Lines {
		li, err := buildLine(catalog, cfg, r)
		if err != nil {
			return services.Quotation{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		if err := ws.Add(li); err != nil {
			return services.Quotation{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	taxRate := cfg.TaxRatePercent
	if body.TaxRate != "" {
		if taxRate, err = services.ResolveTaxRate(body.TaxRate, body.TaxRateOther); err != nil {
			return services.Quotation{}, err
		}
	}

	visits := body.VisitsPerYear
	if visits == 0 {
		visits = 1
	}
	return services.NewQuotation(ws.Items(), cfg, services.QuotationInput{
		ClientID:                   body.ClientID,
		ProjectID:                  body.ProjectID,
		ServiceType:                body.ServiceType,
		Notes:                      body.Notes,
		VisitsPerYear:              visits,
		TaxRatePercent:             taxRate,
		IncludeSocialCharges:       body.IncludeSocialCharges,
		DisplayInSecondaryCurrency: body.DisplayInSecondaryCurrency,
	}, now)
}

// HandleQuotationPreview prices a posted worksheet without saving it.
func HandleQuotationPreview(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body quotationRequest
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		q, err := buildQuotation(app, body, time.Now())
		if err != nil {
			return respondError(e, "quotation_preview", err)
		}
		return e.JSON(http.StatusOK, newQuotationResponse(q))
	}
}

// HandleQuotationCreate prices and saves a quotation with its lines.
func HandleQuotationCreate(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body quotationRequest
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		q, err := buildQuotation(app, body, time.Now())
		if err != nil {
			return respondError(e, "quotation_create", err)
		}
		saved, err := services.NewQuotationStore(app).Create(q)
		if err != nil {
			return respondError(e, "quotation_create", err)
		}
		return e.JSON(http.StatusCreated, newQuotationResponse(saved))
	}
}

// HandleQuotationGet returns a stored quotation.
func HandleQuotationGet(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		q, err := services.NewQuotationStore(app).Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "quotation_get", err)
		}
		return e.JSON(http.StatusOK, newQuotationResponse(q))
	}
}

type statusRequest struct {
	versionBody
	Event string `json:"event"`
}

// HandleQuotationStatus fires a status event (approve, reject, invoice,
// expire) on a stored quotation.
func HandleQuotationStatus(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body statusRequest
		if err := e.BindBody(&body); err != nil || body.Event == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing event")
		}
		q, err := services.NewQuotationStore(app).Transition(e.Request.Context(), e.Request.PathValue("id"), body.Version, body.Event)
		if err != nil {
			return respondError(e, "quotation_status", err)
		}
		return e.JSON(http.StatusOK, newQuotationResponse(q))
	}
}

func clientName(app core.App, clientID string) string {
	if clientID == "" {
		return ""
	}
	r, err := app.FindRecordById("clients", clientID)
	if err != nil {
		log.Printf("quotation: client %s not found: %v", clientID, err)
		return ""
	}
	return r.GetString("name")
}

// HandleQuotationPDF renders the quotation document.
func HandleQuotationPDF(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		q, err := services.NewQuotationStore(app).Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "quotation_pdf", err)
		}
		data, err := services.BuildQuotationExport(q, clientName(app, q.ClientID), time.Now())
		if err != nil {
			return respondError(e, "quotation_pdf", err)
		}
		pdfBytes, err := services.GenerateQuotationPDF(data)
		if err != nil {
			log.Printf("quotation_pdf: failed to generate: %v", err)
			return ErrorJSON(e, http.StatusInternalServerError, "Failed to generate PDF file")
		}
		return sendAttachment(e, "application/pdf", sanitizeFilename(q.Number)+".pdf", pdfBytes)
	}
}

type sendRequest struct {
	To string `json:"to"`
}

// HandleQuotationSend mails the quotation PDF. Without an explicit recipient
// the client's email is used.
func HandleQuotationSend(app core.App) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var body sendRequest
		if err := e.BindBody(&body); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}
		q, err := services.NewQuotationStore(app).Load(e.Request.PathValue("id"))
		if err != nil {
			return respondError(e, "quotation_send", err)
		}

		name := ""
		to := body.To
		if q.ClientID != "" {
			if client, err := app.FindRecordById("clients", q.ClientID); err == nil {
				name = client.GetString("name")
				if to == "" {
					to = client.GetString("email")
				}
			}
		}
		if to == "" {
			return ErrorJSON(e, http.StatusBadRequest, "Missing recipient")
		}

		if err := services.SendQuotationEmail(e.Request.Context(), app, q, name, to, time.Now()); err != nil {
			return respondError(e, "quotation_send", err)
		}
		log.Printf("quotation_send: sent %s to %s", q.Number, to)
		return e.JSON(http.StatusOK, map[string]any{"sent": true, "to": to})
	}
}
