package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
)

// InvoiceItemRequest línea de factura en peticiones.
type InvoiceItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

// CreateInvoiceRequest creación de una factura (salida del asistente).
// Los campos con puntero distinguen "no enviado" de valor cero: si la
// factura deriva de una plantilla, los ausentes toman el valor por defecto
// de la plantilla.
type CreateInvoiceRequest struct {
	ClientID    string               `json:"clientId"`
	IssuerID    string               `json:"issuerId"`   // opcional: por defecto el emisor activo
	TemplateID  string               `json:"templateId"` // opcional
	Date        string               `json:"date"`       // YYYY-MM-DD; por defecto hoy
	DueDate     string               `json:"dueDate"`
	Lang        string               `json:"lang"`
	Items       []InvoiceItemRequest `json:"items"`
	VatRate     *decimal.Decimal     `json:"vatRate"`
	IrpfRate    *decimal.Decimal     `json:"irpfRate"`
	IsRecurring *bool                `json:"isRecurring"`
	Notes       string               `json:"notes"`
}

// UpdateInvoiceRequest edición de una factura. Campos nil/vacíos conservan
// el valor actual; Items no nil reemplaza las líneas completas.
type UpdateInvoiceRequest struct {
	Date     string               `json:"date"`
	DueDate  string               `json:"dueDate"`
	Lang     string               `json:"lang"`
	Items    []InvoiceItemRequest `json:"items"`
	VatRate  *decimal.Decimal     `json:"vatRate"`
	IrpfRate *decimal.Decimal     `json:"irpfRate"`
	Status   string               `json:"status"`
	Notes    *string              `json:"notes"`
}

// UpdateStatusRequest transición de estado de una factura.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// InvoiceResponse factura en respuestas. StatusCoerced avisa de que el
// estado pedido se degradó a DRAFT por faltar datos de dirección;
// NumberFallback avisa de que el número salió de la vía de respaldo (sin
// garantía transaccional de unicidad).
type InvoiceResponse struct {
	ID             string               `json:"id"`
	Number         string               `json:"number"`
	Issuer         PartyDTO             `json:"issuer"`
	Recipient      PartyDTO             `json:"recipient"`
	ClientID       string               `json:"clientId"`
	TemplateID     string               `json:"templateId,omitempty"`
	Date           string               `json:"date"`
	DueDate        string               `json:"dueDate"`
	Status         string               `json:"status"`
	Lang           string               `json:"lang"`
	Items          []entity.InvoiceItem `json:"items"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	VatRate        decimal.Decimal      `json:"vatRate"`
	VatAmount      decimal.Decimal      `json:"vatAmount"`
	IrpfRate       decimal.Decimal      `json:"irpfRate"`
	IrpfAmount     decimal.Decimal      `json:"irpfAmount"`
	Total          decimal.Decimal      `json:"total"`
	IsRecurring    bool                 `json:"isRecurring"`
	Notes          string               `json:"notes,omitempty"`
	UpdatedAt      time.Time            `json:"updatedAt"`
	StatusCoerced  bool                 `json:"statusCoerced,omitempty"`
	NumberFallback bool                 `json:"numberFallback,omitempty"`
}
