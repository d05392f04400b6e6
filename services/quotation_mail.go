package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

var quotationEmailTemplate = template.Must(template.New("quotation_email").Parse(`<div style="font-family:Arial,sans-serif;font-size:14px;color:#222">
<p>Estimado(a) {{.ClientName}},</p>
<p>Adjuntamos la cotizaci&oacute;n <strong>{{.Number}}</strong>{{if .ServiceType}} para el servicio de {{.ServiceType}}{{end}}.</p>
<table style="border-collapse:collapse">
{{- range .Rows}}
<tr><td style="padding:2px 12px 2px 0">{{.Label}}</td><td style="text-align:right">{{.Value}}</td></tr>
{{- end}}
</table>
<p style="color:#666">Fecha: {{.CreatedDate}}</p>
</div>`))

type emailRow struct {
	Label string
	Value string
}

// QuotationEmail renders the HTML body sent with a quotation PDF.
func QuotationEmail(data QuotationExport) templ.Component {
	rows := []emailRow{{"Subtotal", data.Money(data.Totals.Subtotal)}}
	if data.IncludeSocialCharges {
		rows = append(rows, emailRow{"Cargas sociales", data.Money(data.Totals.SocialCharges)})
	}
	rows = append(rows,
		emailRow{fmt.Sprintf("IVA (%s%%)", data.Totals.TaxRatePercent.String()), data.Money(data.Totals.TaxAmount)},
		emailRow{"Total", data.Money(data.Totals.Total)},
	)
	return templ.FromGoHTML(quotationEmailTemplate, map[string]any{
		"ClientName":  data.ClientName,
		"Number":      data.Number,
		"ServiceType": data.ServiceType,
		"Rows":        rows,
		"CreatedDate": data.CreatedDate,
	})
}

// SendQuotationEmail renders the quotation PDF and mails it to recipient
// through the app's configured mailer.
func SendQuotationEmail(ctx context.Context, app core.App, q Quotation, clientName, recipient string, now time.Time) error {
	to, err := mail.ParseAddress(strings.TrimSpace(recipient))
	if err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidConfiguration, recipient, err)
	}

	data, err := BuildQuotationExport(q, clientName, now)
	if err != nil {
		return err
	}
	pdf, err := GenerateQuotationPDF(data)
	if err != nil {
		return fmt.Errorf("generate pdf: %w", err)
	}

	var body bytes.Buffer
	if err := QuotationEmail(data).Render(ctx, &body); err != nil {
		return fmt.Errorf("render email body: %w", err)
	}

	meta := app.Settings().Meta
	if meta.SenderAddress == "" {
		return errors.New("mail: sender address is not configured")
	}
	msg := &mailer.Message{
		From:    mail.Address{Name: meta.SenderName, Address: meta.SenderAddress},
		To:      []mail.Address{*to},
		Subject: "Cotizacion " + q.Number,
		HTML:    body.String(),
		Attachments: map[string]io.Reader{
			q.Number + ".pdf": bytes.NewReader(pdf),
		},
	}
	if err := app.NewMailClient().Send(msg); err != nil {
		return fmt.Errorf("send quotation %s: %w", q.Number, err)
	}
	return nil
}
