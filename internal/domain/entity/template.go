package entity

import "github.com/shopspring/decimal"

// TemplateItem línea por defecto de una plantilla (sin importe derivado).
type TemplateItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

// Template esqueleto reutilizable de factura: líneas por defecto, tipos
// impositivos, idioma y marca de recurrencia. Se aplica para pre-rellenar
// una factura nueva.
type Template struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         string          `json:"type"` // RENT, CLASS, SERVICE, OTHER
	Lang         string          `json:"lang"`
	DefaultItems []TemplateItem  `json:"defaultItems"`
	VatRate      decimal.Decimal `json:"vatRate"`
	IrpfRate     decimal.Decimal `json:"irpfRate"`
	IsRecurring  bool            `json:"isRecurring"`
	Notes        string          `json:"notes,omitempty"`
}
