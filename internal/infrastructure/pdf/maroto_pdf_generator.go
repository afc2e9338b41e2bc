// Package pdf implementa la representación imprimible de la factura.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre del emisor + NIF  │  N° Factura + Fechas    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Dirección completa                                 │
//	│  CLIENTE: Nombre + NIF + dirección                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Concepto | Precio unit. | Importe            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Base imponible / IVA / IRPF (−) / TOTAL           │
//	│  NOTAS                                                      │
//	└─────────────────────────────────────────────────────────────┘
//
// Las etiquetas y el formato numérico dependen del idioma de la factura
// (ES/EN); los importes se formatean con la localización de x/text.
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Etiquetas por idioma ──────────────────────────────────────────────────────

type labelSet struct {
	invoice   string
	date      string
	dueDate   string
	issuer    string
	recipient string
	taxID     string
	qty       string
	concept   string
	unitPrice string
	amount    string
	subtotal  string
	vat       string
	irpf      string
	total     string
	notes     string
	status    map[string]string
}

var labels = map[string]labelSet{
	entity.LangES: {
		invoice:   "FACTURA",
		date:      "Fecha",
		dueDate:   "Vencimiento",
		issuer:    "EMISOR",
		recipient: "CLIENTE",
		taxID:     "NIF",
		qty:       "Cant.",
		concept:   "Concepto",
		unitPrice: "Precio unit.",
		amount:    "Importe",
		subtotal:  "Base imponible",
		vat:       "IVA",
		irpf:      "IRPF",
		total:     "TOTAL",
		notes:     "Notas",
		status: map[string]string{
			entity.StatusDraft:     "BORRADOR",
			entity.StatusIssued:    "EMITIDA",
			entity.StatusPaid:      "COBRADA",
			entity.StatusCancelled: "ANULADA",
		},
	},
	entity.LangEN: {
		invoice:   "INVOICE",
		date:      "Date",
		dueDate:   "Due date",
		issuer:    "FROM",
		recipient: "BILL TO",
		taxID:     "Tax ID",
		qty:       "Qty",
		concept:   "Description",
		unitPrice: "Unit price",
		amount:    "Amount",
		subtotal:  "Subtotal",
		vat:       "VAT",
		irpf:      "Withholding",
		total:     "TOTAL",
		notes:     "Notes",
		status: map[string]string{
			entity.StatusDraft:     "DRAFT",
			entity.StatusIssued:    "ISSUED",
			entity.StatusPaid:      "PAID",
			entity.StatusCancelled: "CANCELLED",
		},
	},
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, inv *entity.Invoice) ([]byte, error) {
	lbl, ok := labels[inv.Lang]
	if !ok {
		lbl = labels[entity.LangES]
	}
	money := newMoneyFormatter(inv.Lang)

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(lbl.invoice+" "+inv.Number, true).
		WithAuthor(inv.Issuer.Name, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv, lbl))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partyRow(lbl.issuer, inv.Issuer, lbl))
	m.AddRows(partyRow(lbl.recipient, inv.Recipient, lbl))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow(lbl))
	for _, r := range itemRows(inv.Items, money) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv, lbl, money))

	if inv.Notes != "" {
		m.AddRows(line.NewRow(3))
		m.AddRows(notesRow(inv.Notes, lbl))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emisor + NIF (izq) y número, fechas y estado (der).
func headerRow(inv *entity.Invoice, lbl labelSet) core.Row {
	return row.New(22).Add(
		col.New(7).Add(
			text.New(inv.Issuer.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(lbl.taxID+": "+inv.Issuer.TaxID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(lbl.invoice+" "+inv.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New(lbl.date+": "+inv.Date, props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
			text.New(lbl.dueDate+": "+inv.DueDate, props.Text{
				Size: 8, Align: align.Right, Top: 13, Color: colorGray,
			}),
			text.New(statusLabel(inv.Status, lbl), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 18, Color: colorPrimary,
			}),
		),
	)
}

// partyRow: bloque de emisor o cliente con dirección en una línea.
func partyRow(title string, p entity.Party, lbl labelSet) core.Row {
	addr := p.Address
	addrLine := fmt.Sprintf("%s, %s %s, %s",
		nonEmpty(addr.Street, "—"),
		nonEmpty(addr.Zip, "—"),
		nonEmpty(addr.City, "—"),
		nonEmpty(addr.Country, "—"),
	)
	return row.New(14).Add(
		col.New(12).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(p.Name+"   |   "+lbl.taxID+": "+p.TaxID, props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 6,
			}),
			text.New(addrLine, props.Text{Size: 8, Top: 11, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow(lbl labelSet) core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h(lbl.qty, 1, align.Center),
		h(lbl.concept, 6, align.Left),
		h(lbl.unitPrice, 2, align.Right),
		h(lbl.amount, 3, align.Right),
	)
}

// itemRows: una fila por línea de factura.
func itemRows(items []entity.InvoiceItem, money func(decimal.Decimal) string) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				it.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				it.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				money(it.UnitCost),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				money(it.Amount),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: base imponible, IVA, IRPF en negativo y total.
func totalsRow(inv *entity.Invoice, lbl labelSet, money func(decimal.Decimal) string) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	vatLabel := fmt.Sprintf("%s (%s%%):", lbl.vat, inv.VatRate.String())
	irpfLabel := fmt.Sprintf("%s (−%s%%):", lbl.irpf, inv.IrpfRate.String())

	return row.New(32).Add(
		col.New(3),
		col.New(4).Add(
			label(lbl.subtotal+":"),
			label(vatLabel),
			label(irpfLabel),
			grandLabel(lbl.total+":"),
		),
		col.New(3).Add(
			value(money(inv.Subtotal)),
			value(money(inv.VatAmount)),
			value("−"+money(inv.IrpfAmount)),
			grandValue(money(inv.Total)),
		),
		col.New(2),
	)
}

// notesRow: bloque de notas libres al pie.
func notesRow(notes string, lbl labelSet) core.Row {
	return row.New(14).Add(col.New(12).Add(
		text.New(lbl.notes, props.Text{
			Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
		}),
		text.New(notes, props.Text{Size: 8, Top: 6, Color: colorGray}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func statusLabel(status string, lbl labelSet) string {
	if s, ok := lbl.status[status]; ok {
		return s
	}
	return status
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// newMoneyFormatter formatea importes según la localización del idioma de la
// factura ("1.234,56 €" en español, "1,234.56 €" en inglés).
func newMoneyFormatter(lang string) func(decimal.Decimal) string {
	tag := language.Spanish
	if lang == entity.LangEN {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return func(d decimal.Decimal) string {
		f, _ := d.Round(2).Float64()
		return p.Sprintf("%.2f", f) + " €"
	}
}
