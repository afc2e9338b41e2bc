// Package facturae construye el XML Facturae 3.2.2 (sin firma XAdES) de una
// factura: FileHeader con el lote, Parties con emisor y receptor, impuestos
// repercutidos (IVA, código 01) y retenidos (IRPF, código 04), totales y
// líneas. El documento resultante es apto para firmarse con una herramienta
// externa antes de presentarse.
package facturae

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
)

// Namespaces Facturae 3.2.2 y XMLDSig.
const (
	NsFacturae = "http://www.facturae.es/Facturae/2014/v3.2.1/Facturae"
	NsDs       = "http://www.w3.org/2000/09/xmldsig#"

	schemaVersion = "3.2.2"
	currencyCode  = "EUR"
)

// Códigos de impuesto del esquema Facturae.
const (
	taxCodeIVA  = "01"
	taxCodeIRPF = "04"
)

// Builder implementa billing.FacturaeBuilder usando etree.
type Builder struct{}

// NewBuilder construye el builder.
func NewBuilder() *Builder { return &Builder{} }

// BuildFacturae genera el []byte del documento fe:Facturae.
func (b *Builder) BuildFacturae(inv *entity.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("facturae: factura nula")
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("fe:Facturae")
	root.CreateAttr("xmlns:fe", NsFacturae)
	root.CreateAttr("xmlns:ds", NsDs)

	b.writeFileHeader(root, inv)
	b.writeParties(root, inv)
	b.writeInvoice(root, inv)

	doc.Indent(2)
	return doc.WriteToBytes()
}

// writeFileHeader: versión de esquema y lote de una sola factura.
func (b *Builder) writeFileHeader(root *etree.Element, inv *entity.Invoice) {
	fh := root.CreateElement("FileHeader")
	fh.CreateElement("SchemaVersion").SetText(schemaVersion)
	fh.CreateElement("Modality").SetText("I") // individual
	fh.CreateElement("InvoiceIssuerType").SetText("EM")

	batch := fh.CreateElement("Batch")
	batch.CreateElement("BatchIdentifier").SetText(inv.Issuer.TaxID + inv.Number)
	batch.CreateElement("InvoicesCount").SetText("1")
	for _, tag := range []string{"TotalInvoicesAmount", "TotalOutstandingAmount", "TotalExecutableAmount"} {
		batch.CreateElement(tag).CreateElement("TotalAmount").SetText(amount(inv.Total))
	}
	batch.CreateElement("InvoiceCurrencyCode").SetText(currencyCode)
}

// writeParties: emisor (SellerParty) y receptor (BuyerParty).
func (b *Builder) writeParties(root *etree.Element, inv *entity.Invoice) {
	parties := root.CreateElement("Parties")
	b.writeParty(parties.CreateElement("SellerParty"), inv.Issuer)
	b.writeParty(parties.CreateElement("BuyerParty"), inv.Recipient)
}

func (b *Builder) writeParty(el *etree.Element, p entity.Party) {
	taxID := el.CreateElement("TaxIdentification")
	// Sin más datos se asume persona jurídica residente; el esquema exige
	// ambos códigos.
	taxID.CreateElement("PersonTypeCode").SetText("J")
	taxID.CreateElement("ResidenceTypeCode").SetText("R")
	taxID.CreateElement("TaxIdentificationNumber").SetText(p.TaxID)

	legal := el.CreateElement("LegalEntity")
	legal.CreateElement("CorporateName").SetText(p.Name)
	addr := legal.CreateElement("AddressInSpain")
	addr.CreateElement("Address").SetText(p.Address.Street)
	addr.CreateElement("PostCode").SetText(p.Address.Zip)
	addr.CreateElement("Town").SetText(p.Address.City)
	addr.CreateElement("Province").SetText(p.Address.City)
	addr.CreateElement("CountryCode").SetText(countryCode(p.Address.Country))
}

// writeInvoice: cabecera, datos de emisión, impuestos, totales y líneas.
func (b *Builder) writeInvoice(root *etree.Element, inv *entity.Invoice) {
	invoices := root.CreateElement("Invoices")
	el := invoices.CreateElement("Invoice")

	header := el.CreateElement("InvoiceHeader")
	header.CreateElement("InvoiceNumber").SetText(inv.Number)
	header.CreateElement("InvoiceDocumentType").SetText("FC") // factura completa
	header.CreateElement("InvoiceClass").SetText("OO")        // original

	issue := el.CreateElement("InvoiceIssueData")
	issue.CreateElement("IssueDate").SetText(inv.Date)
	issue.CreateElement("InvoiceCurrencyCode").SetText(currencyCode)
	issue.CreateElement("TaxCurrencyCode").SetText(currencyCode)
	issue.CreateElement("LanguageName").SetText(languageName(inv.Lang))

	outputs := el.CreateElement("TaxesOutputs")
	writeTax(outputs.CreateElement("Tax"), taxCodeIVA, inv.VatRate, inv.Subtotal, inv.VatAmount)

	if inv.IrpfAmount.IsPositive() {
		withheld := el.CreateElement("TaxesWithheld")
		writeTax(withheld.CreateElement("Tax"), taxCodeIRPF, inv.IrpfRate, inv.Subtotal, inv.IrpfAmount)
	}

	totals := el.CreateElement("InvoiceTotals")
	totals.CreateElement("TotalGrossAmount").SetText(amount(inv.Subtotal))
	totals.CreateElement("TotalGrossAmountBeforeTaxes").SetText(amount(inv.Subtotal))
	totals.CreateElement("TotalTaxOutputs").SetText(amount(inv.VatAmount))
	totals.CreateElement("TotalTaxesWithheld").SetText(amount(inv.IrpfAmount))
	totals.CreateElement("InvoiceTotal").SetText(amount(inv.Total))
	totals.CreateElement("TotalOutstandingAmount").SetText(amount(inv.Total))
	totals.CreateElement("TotalExecutableAmount").SetText(amount(inv.Total))

	items := el.CreateElement("Items")
	for _, it := range inv.Items {
		line := items.CreateElement("InvoiceLine")
		line.CreateElement("ItemDescription").SetText(it.Description)
		line.CreateElement("Quantity").SetText(it.Quantity.String())
		line.CreateElement("UnitPriceWithoutTax").SetText(amount(it.UnitCost))
		line.CreateElement("TotalCost").SetText(amount(it.Amount))
		line.CreateElement("GrossAmount").SetText(amount(it.Amount))
	}
}

// writeTax: bloque Tax común a repercutidos y retenidos.
func writeTax(el *etree.Element, code string, rate, base, taxAmount decimal.Decimal) {
	el.CreateElement("TaxTypeCode").SetText(code)
	el.CreateElement("TaxRate").SetText(amount(rate))
	el.CreateElement("TaxableBase").CreateElement("TotalAmount").SetText(amount(base))
	el.CreateElement("TaxAmount").CreateElement("TotalAmount").SetText(amount(taxAmount))
}

// amount formatea importes con dos decimales y punto decimal, como exige el
// esquema.
func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// countryCode mapea el país libre de la dirección al código ISO 3166-1
// alfa-3 que espera el esquema. Por defecto ESP.
func countryCode(country string) string {
	switch country {
	case "", "España", "Espana", "Spain", "ES", "ESP":
		return "ESP"
	case "Portugal", "PT", "PRT":
		return "PRT"
	case "Francia", "France", "FR", "FRA":
		return "FRA"
	}
	return "ESP"
}

func languageName(lang string) string {
	if lang == entity.LangEN {
		return "en"
	}
	return "es"
}
