package services

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	headerBg   = &props.Color{Red: 20, Green: 61, Blue: 102}
	sectionBg  = &props.Color{Red: 232, Green: 240, Blue: 248}
	summaryBg  = &props.Color{Red: 240, Green: 240, Blue: 240}
	mutedColor = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// GenerateQuotationPDF renders the quotation document: header, one table
// section per category, the totals block and the annual maintenance
// projection. It returns the raw PDF bytes.
func GenerateQuotationPDF(data QuotationExport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(12).
		WithTopMargin(12).
		WithRightMargin(12).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   mutedColor,
		}).
		Build()

	m := maroto.New(cfg)

	addQuotationHeader(m, data)
	addLineTableHeader(m)
	for _, r := range data.Rows {
		addLineRow(m, data, r)
	}
	addQuotationSummary(m, data)
	if len(data.Projection.Lines) > 0 {
		addProjection(m, data)
	}
	addQuotationFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

func addQuotationHeader(m core.Maroto, data QuotationExport) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(fmt.Sprintf("Quotation %s", data.Number), props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	info := props.Text{Size: 9, Align: align.Left, Color: mutedColor}
	infoRight := info
	infoRight.Align = align.Right

	m.AddRows(
		row.New(6).Add(
			col.New(8).Add(text.New("Client: "+data.ClientName, info)),
			col.New(4).Add(text.New("Date: "+data.CreatedDate, infoRight)),
		),
		row.New(6).Add(
			col.New(8).Add(text.New("Service: "+data.ServiceType, info)),
			col.New(4).Add(text.New("Currency: "+data.Currency, infoRight)),
		),
	)
	m.AddRows(row.New(4))
}

func addLineTableHeader(m core.Maroto) {
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerTextLeft := headerText
	headerTextLeft.Align = align.Left
	headerCell := props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("#", headerText)).WithStyle(&headerCell),
			col.New(5).Add(text.New("Description", headerTextLeft)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Qty", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Unit price", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Amount", headerText)).WithStyle(&headerCell),
		),
	)
}

func addLineRow(m core.Maroto, data QuotationExport, r ExportRow) {
	if r.Level == 0 {
		bold := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Left}
		boldRight := bold
		boldRight.Align = align.Right
		cell := &props.Cell{BackgroundColor: sectionBg}
		m.AddRows(
			row.New(7).Add(
				col.New(1).Add(text.New(r.Index, bold)).WithStyle(cell),
				col.New(9).Add(text.New(r.Description, bold)).WithStyle(cell),
				col.New(2).Add(text.New(data.Money(r.Amount), boldRight)).WithStyle(cell),
			),
		)
		return
	}

	base := props.Text{Size: 7, Align: align.Center}
	left := base
	left.Align = align.Left
	right := base
	right.Align = align.Right

	desc := r.Description
	if r.Detail != "" {
		desc += " (" + r.Detail + ")"
	}
	m.AddRows(
		row.New(6).Add(
			col.New(1).Add(text.New(r.Index, base)),
			col.New(5).Add(text.New("  "+desc, left)),
			col.New(2).Add(text.New(formatQty(r.Qty), right)),
			col.New(2).Add(text.New(data.Money(r.UnitPrice), right)),
			col.New(2).Add(text.New(data.Money(r.Amount), right)),
		),
	)
}

func addQuotationSummary(m core.Maroto, data QuotationExport) {
	m.AddRows(row.New(6))

	cell := &props.Cell{BackgroundColor: summaryBg}
	label := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	value := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}

	lines := [][2]string{{"Subtotal", data.Money(data.Totals.Subtotal)}}
	if data.IncludeSocialCharges {
		lines = append(lines,
			[2]string{fmt.Sprintf("Social charges (%s%%)", SocialChargesRate.Mul(hundred)), data.Money(data.Totals.SocialCharges)},
			[2]string{"Tax base", data.Money(data.Totals.TaxBase)},
		)
	}
	lines = append(lines,
		[2]string{fmt.Sprintf("IVA (%s%%)", data.Totals.TaxRatePercent), data.Money(data.Totals.TaxAmount)},
		[2]string{"Total", data.Money(data.Totals.Total)},
	)

	for _, l := range lines {
		m.AddRows(
			row.New(7).Add(
				col.New(8).Add(text.New(l[0], label)).WithStyle(cell),
				col.New(4).Add(text.New(l[1], value)).WithStyle(cell),
			),
		)
	}

	if data.Currency == CurrencyCRC {
		m.AddRows(
			row.New(6).Add(
				col.New(12).Add(text.New(
					fmt.Sprintf("Amounts converted at %s colones per dollar.", data.ExchangeRate),
					props.Text{Size: 7, Align: align.Right, Color: mutedColor},
				)),
			),
		)
	}
}

// addProjection adds the annual maintenance table: each equipment line's
// per-visit amount multiplied by the visits per year.
func addProjection(m core.Maroto, data QuotationExport) {
	p := data.Projection
	m.AddRows(row.New(8))
	m.AddRows(
		row.New(8).Add(
			col.New(12).Add(text.New(
				fmt.Sprintf("Annual maintenance projection (%d visits per year)", p.VisitsPerYear),
				props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left},
			)),
		),
	)

	headerText := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Center, Color: &props.Color{Red: 255, Green: 255, Blue: 255}}
	headerCell := props.Cell{BackgroundColor: headerBg}
	m.AddRows(
		row.New(7).Add(
			col.New(6).Add(text.New("Equipment", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Qty", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Per visit", headerText)).WithStyle(&headerCell),
			col.New(2).Add(text.New("Annual", headerText)).WithStyle(&headerCell),
		),
	)

	base := props.Text{Size: 7, Align: align.Left}
	right := props.Text{Size: 7, Align: align.Right}
	for _, l := range p.Lines {
		m.AddRows(
			row.New(6).Add(
				col.New(6).Add(text.New(l.Description, base)),
				col.New(2).Add(text.New(formatQty(l.Quantity), right)),
				col.New(2).Add(text.New(data.Money(l.PerVisit), right)),
				col.New(2).Add(text.New(data.Money(l.Annual), right)),
			),
		)
	}

	cell := &props.Cell{BackgroundColor: summaryBg}
	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
	for _, l := range [][2]string{
		{"Annual subtotal", data.Money(p.AnnualSubtotal)},
		{fmt.Sprintf("IVA (%s%%)", p.TaxRatePercent), data.Money(p.TaxAmount)},
		{"Annual total", data.Money(p.Total)},
	} {
		m.AddRows(
			row.New(6).Add(
				col.New(8).Add(text.New(l[0], label)).WithStyle(cell),
				col.New(4).Add(text.New(l[1], label)).WithStyle(cell),
			),
		)
	}
}

func addQuotationFooter(m core.Maroto, data QuotationExport) {
	m.AddRows(row.New(6))
	m.AddRows(
		row.New(6).Add(
			col.New(12).Add(
				text.New(
					fmt.Sprintf("Generated on %s", data.CreatedDate),
					props.Text{Size: 7, Align: align.Left, Color: &props.Color{Red: 140, Green: 140, Blue: 140}},
				),
			),
		),
	)
}
