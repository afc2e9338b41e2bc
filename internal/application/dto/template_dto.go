package dto

import "github.com/shopspring/decimal"

// TemplateItemDTO línea por defecto de una plantilla.
type TemplateItemDTO struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

// TemplateRequest alta o edición de una plantilla.
type TemplateRequest struct {
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Lang         string            `json:"lang"`
	DefaultItems []TemplateItemDTO `json:"defaultItems"`
	VatRate      decimal.Decimal   `json:"vatRate"`
	IrpfRate     decimal.Decimal   `json:"irpfRate"`
	IsRecurring  bool              `json:"isRecurring"`
	Notes        string            `json:"notes"`
}

// TemplateResponse plantilla en respuestas.
type TemplateResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Type         string            `json:"type"`
	Lang         string            `json:"lang"`
	DefaultItems []TemplateItemDTO `json:"defaultItems"`
	VatRate      decimal.Decimal   `json:"vatRate"`
	IrpfRate     decimal.Decimal   `json:"irpfRate"`
	IsRecurring  bool              `json:"isRecurring"`
	Notes        string            `json:"notes,omitempty"`
}
