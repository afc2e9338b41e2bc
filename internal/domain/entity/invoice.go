package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de una factura.
const (
	StatusDraft     = "DRAFT"     // Borrador, editable
	StatusIssued    = "ISSUED"    // Emitida al cliente
	StatusPaid      = "PAID"      // Cobrada
	StatusCancelled = "CANCELLED" // Anulada
)

// Idiomas soportados en la factura (etiquetas del PDF y Facturae).
const (
	LangES = "ES"
	LangEN = "EN"
)

// ValidStatus indica si s es uno de los estados conocidos.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusIssued, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// InvoiceItem línea de factura. Amount es derivado: Quantity × UnitCost.
type InvoiceItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
	Amount      decimal.Decimal `json:"amount"`
}

// Recalculate recalcula el importe de la línea.
func (it *InvoiceItem) Recalculate() {
	it.Amount = it.Quantity.Mul(it.UnitCost)
}

// Invoice factura completa. Emisor y receptor son snapshots copiados en el
// momento de la creación: editar el cliente o el emisor después no cambia
// las facturas históricas.
type Invoice struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Issuer      Party           `json:"issuer"`
	Recipient   Party           `json:"recipient"`
	ClientID    string          `json:"clientId"`
	TemplateID  string          `json:"templateId,omitempty"`
	Date        string          `json:"date"`    // YYYY-MM-DD
	DueDate     string          `json:"dueDate"` // YYYY-MM-DD
	Status      string          `json:"status"`
	Lang        string          `json:"lang"`
	Items       []InvoiceItem   `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	VatRate     decimal.Decimal `json:"vatRate"`
	VatAmount   decimal.Decimal `json:"vatAmount"`
	IrpfRate    decimal.Decimal `json:"irpfRate"`  // retención, se resta
	IrpfAmount  decimal.Decimal `json:"irpfAmount"`
	Total       decimal.Decimal `json:"total"`
	IsRecurring bool            `json:"isRecurring"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RecalculateTotals recalcula líneas y totales:
//
//	subtotal = Σ amount
//	vat      = subtotal × vatRate/100
//	irpf     = subtotal × irpfRate/100 (retención, se resta)
//	total    = subtotal + vat − irpf
func (inv *Invoice) RecalculateTotals() {
	hundred := decimal.NewFromInt(100)
	subtotal := decimal.Zero
	for i := range inv.Items {
		inv.Items[i].Recalculate()
		subtotal = subtotal.Add(inv.Items[i].Amount)
	}
	inv.Subtotal = subtotal
	inv.VatAmount = subtotal.Mul(inv.VatRate).Div(hundred)
	inv.IrpfAmount = subtotal.Mul(inv.IrpfRate).Div(hundred)
	inv.Total = subtotal.Add(inv.VatAmount).Sub(inv.IrpfAmount)
}

// CanIssue indica si la factura cumple los requisitos para ISSUED/PAID:
// direcciones de emisor y receptor completas.
func (inv *Invoice) CanIssue() bool {
	return inv.Issuer.Address.Complete() && inv.Recipient.Address.Complete()
}

// NormalizeStatus degrada ISSUED/PAID a DRAFT si faltan datos de dirección.
// Devuelve true si hubo degradación.
func (inv *Invoice) NormalizeStatus() bool {
	if (inv.Status == StatusIssued || inv.Status == StatusPaid) && !inv.CanIssue() {
		inv.Status = StatusDraft
		return true
	}
	return false
}
