package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/pocketbase/pocketbase/tests"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airsolutions/collections"
	"airsolutions/services"
	"airsolutions/testhelpers"
)

type quotationJSON struct {
	ID      string `json:"id"`
	Number  string `json:"number"`
	Status  string `json:"status"`
	Version int    `json:"version"`
	Items   []struct {
		Category  string          `json:"category"`
		UnitPrice decimal.Decimal `json:"unit_price"`
		Quantity  decimal.Decimal `json:"quantity"`
	} `json:"items"`
	Totals struct {
		Subtotal      decimal.Decimal `json:"subtotal"`
		SocialCharges decimal.Decimal `json:"social_charges"`
		TaxAmount     decimal.Decimal `json:"tax_amount"`
		Total         decimal.Decimal `json:"total"`
	} `json:"totals"`
	Currency  string            `json:"currency"`
	Formatted map[string]string `json:"formatted"`
}

func worksheetBody() map[string]any {
	return map[string]any{
		"service_type": "Mantenimiento",
		"lines": []map[string]any{
			{"category": "material", "description": "Filtro", "quantity": 4, "unit_price": "25"},
			{"category": "expense", "description": "Transporte", "amount": 40},
		},
	}
}

func TestHandleQuotationPreview_DefaultTax(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serveJSON(t, app, HandleQuotationPreview(app), http.MethodPost, "/api/quotations/preview", worksheetBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var q quotationJSON
	decodeJSON(t, rec, &q)
	assert.True(t, q.Totals.Subtotal.Equal(decimal.NewFromInt(140)), "subtotal %s", q.Totals.Subtotal)
	assert.True(t, q.Totals.Total.Equal(decimal.RequireFromString("158.2")), "total %s", q.Totals.Total)
	assert.Equal(t, "USD", q.Currency)
	assert.Empty(t, q.ID, "preview must not be stored")

	count, err := app.CountRecords("quotations")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandleQuotationPreview_SocialChargesAndTaxOption(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	body := worksheetBody()
	body["include_social_charges"] = true
	body["tax_rate"] = "13%"
	rec := serveJSON(t, app, HandleQuotationPreview(app), http.MethodPost, "/api/quotations/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var q quotationJSON
	decodeJSON(t, rec, &q)
	assert.True(t, q.Totals.SocialCharges.Equal(decimal.NewFromInt(49)), "social %s", q.Totals.SocialCharges)
	assert.True(t, q.Totals.Total.Equal(decimal.RequireFromString("213.57")), "total %s", q.Totals.Total)
}

func TestHandleQuotationPreview_SecondaryCurrency(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.SetConfig(t, app, services.ConfigKeyExchangeRate, "500")

	body := worksheetBody()
	body["tax_rate"] = "0"
	body["display_in_secondary_currency"] = true
	rec := serveJSON(t, app, HandleQuotationPreview(app), http.MethodPost, "/api/quotations/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var q quotationJSON
	decodeJSON(t, rec, &q)
	assert.Equal(t, "CRC", q.Currency)
	assert.True(t, q.Totals.Total.Equal(decimal.NewFromInt(140)), "stored totals stay in the primary currency")
	assert.Contains(t, q.Formatted["total"], "70")
}

func TestHandleQuotationPreview_EquipmentFromCatalog(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	eq := testhelpers.CreateTestEquipment(t, app, "Mini split 12000 BTU", 2)

	body := map[string]any{
		"tax_rate": "0",
		"lines": []map[string]any{
			{"category": "equipment", "ref_id": eq.Id, "quantity": 3},
		},
	}
	rec := serveJSON(t, app, HandleQuotationPreview(app), http.MethodPost, "/api/quotations/preview", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var q quotationJSON
	decodeJSON(t, rec, &q)
	require.Len(t, q.Items, 1)
	// 2 h * 15 per hour * 1.5 markup
	assert.True(t, q.Items[0].UnitPrice.Equal(decimal.NewFromInt(45)), "unit price %s", q.Items[0].UnitPrice)
	assert.True(t, q.Totals.Total.Equal(decimal.NewFromInt(135)), "total %s", q.Totals.Total)
}

func TestHandleQuotationPreview_InvalidLines(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	cases := []struct {
		name string
		line map[string]any
	}{
		{"blank quantity", map[string]any{"category": "material", "description": "Filtro", "quantity": "", "unit_price": 25}},
		{"negative price", map[string]any{"category": "labor", "description": "Tecnico", "quantity": 1, "unit_price": -5}},
		{"fractional diffuser", map[string]any{"category": "diffuser", "description": "JS-OB", "quantity": 1.5, "unit_price": 10}},
		{"unknown equipment", map[string]any{"category": "equipment", "ref_id": "missing", "quantity": 1}},
		{"unknown category", map[string]any{"category": "spares", "description": "x", "quantity": 1, "unit_price": 1}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{"lines": []map[string]any{tt.line}}
			rec := serveJSON(t, app, HandleQuotationPreview(app), http.MethodPost, "/api/quotations/preview", body)
			assert.Contains(t, []int{http.StatusUnprocessableEntity, http.StatusNotFound}, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleQuotationCreate_AndGet(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	client := testhelpers.CreateTestClient(t, app, "Hotel Central")

	body := worksheetBody()
	body["client_id"] = client.Id
	rec := serveJSON(t, app, HandleQuotationCreate(app), http.MethodPost, "/api/quotations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created quotationJSON
	decodeJSON(t, rec, &created)
	require.NotEmpty(t, created.ID)
	assert.True(t, strings.HasPrefix(created.Number, "COT-MT-"), created.Number)
	assert.Equal(t, "pending", created.Status)

	rec = serveJSON(t, app, HandleQuotationGet(app), http.MethodGet, "/api/quotations/"+created.ID, nil, "id", created.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaded quotationJSON
	decodeJSON(t, rec, &loaded)
	assert.Equal(t, created.Number, loaded.Number)
	assert.Len(t, loaded.Items, 2)
	assert.True(t, loaded.Totals.Total.Equal(created.Totals.Total))
}

func TestHandleQuotationCreate_Empty(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serveJSON(t, app, HandleQuotationCreate(app), http.MethodPost, "/api/quotations", map[string]any{"lines": []any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	testhelpers.AssertBodyContains(t, rec.Body.String(), "error")
}

func TestHandleQuotationGet_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	rec := serveJSON(t, app, HandleQuotationGet(app), http.MethodGet, "/api/quotations/missing", nil, "id", "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQuotationStatus(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	q := testhelpers.CreateTestQuotation(t, app, "")

	rec := serveJSON(t, app, HandleQuotationStatus(app), http.MethodPost, "/api/quotations/"+q.ID+"/status",
		map[string]any{"version": q.Version, "event": services.EventApprove}, "id", q.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var approved quotationJSON
	decodeJSON(t, rec, &approved)
	assert.Equal(t, string(services.QuotationApproved), approved.Status)

	// stale version
	rec = serveJSON(t, app, HandleQuotationStatus(app), http.MethodPost, "/api/quotations/"+q.ID+"/status",
		map[string]any{"version": q.Version, "event": services.EventReject}, "id", q.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// approved is final
	rec = serveJSON(t, app, HandleQuotationStatus(app), http.MethodPost, "/api/quotations/"+q.ID+"/status",
		map[string]any{"version": approved.Version, "event": services.EventReject}, "id", q.ID)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = serveJSON(t, app, HandleQuotationStatus(app), http.MethodPost, "/api/quotations/"+q.ID+"/status",
		map[string]any{"version": approved.Version}, "id", q.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuotationPDF(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	q := testhelpers.CreateTestQuotation(t, app, "")

	rec := serveJSON(t, app, HandleQuotationPDF(app), http.MethodGet, "/api/quotations/"+q.ID+"/pdf", nil, "id", q.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), q.Number+".pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
}

func TestHandleQuotationSend_ClientEmail(t *testing.T) {
	app, err := tests.NewTestApp()
	require.NoError(t, err)
	defer app.Cleanup()
	collections.Setup(app)
	client := testhelpers.CreateTestClient(t, app, "Hotel Central")
	q := testhelpers.CreateTestQuotation(t, app, client.Id)

	rec := serveJSON(t, app, HandleQuotationSend(app), http.MethodPost, "/api/quotations/"+q.ID+"/send", map[string]any{}, "id", q.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	testhelpers.AssertBodyContains(t, rec.Body.String(), "compras@cliente.example")
	assert.Equal(t, 1, app.TestMailer.TotalSend())
}

func TestHandleQuotationSend_NoRecipient(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	q := testhelpers.CreateTestQuotation(t, app, "")

	rec := serveJSON(t, app, HandleQuotationSend(app), http.MethodPost, "/api/quotations/"+q.ID+"/send", map[string]any{}, "id", q.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	testhelpers.AssertBodyContains(t, rec.Body.String(), "Missing recipient")
}

func TestHandleQuotationSend_BadRecipient(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	q := testhelpers.CreateTestQuotation(t, app, "")

	rec := serveJSON(t, app, HandleQuotationSend(app), http.MethodPost, "/api/quotations/"+q.ID+"/send",
		map[string]any{"to": "not an address"}, "id", q.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
