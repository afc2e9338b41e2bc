package entity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func completeAddress() entity.Address {
	return entity.Address{
		Street:  "Calle Mayor 1",
		City:    "Madrid",
		Zip:     "28001",
		Country: "España",
	}
}

func invoiceWithAddresses(issuerAddr, recipientAddr entity.Address) *entity.Invoice {
	return &entity.Invoice{
		ID:     "inv-1",
		Number: "20250001",
		Issuer: entity.Party{
			Name: "Autónomo SL", TaxID: "B12345678", Address: issuerAddr,
		},
		Recipient: entity.Party{
			Name: "Cliente SA", TaxID: "A87654321", Address: recipientAddr,
		},
		Status: entity.StatusIssued,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de totales
// ──────────────────────────────────────────────────────────────────────────────

// Dos horas a 100 €, IVA 21% e IRPF 15%:
// subtotal 200, IVA 42, IRPF 30, total 200 + 42 − 30 = 212.
func TestRecalculateTotals_IVAeIRPF(t *testing.T) {
	inv := &entity.Invoice{
		Items: []entity.InvoiceItem{
			{ID: "it-1", Description: "Consultoría", Quantity: dec("2"), UnitCost: dec("100")},
		},
		VatRate:  dec("21"),
		IrpfRate: dec("15"),
	}

	inv.RecalculateTotals()

	assert.True(t, dec("200").Equal(inv.Subtotal), "subtotal: esperado 200, obtenido %s", inv.Subtotal)
	assert.True(t, dec("42").Equal(inv.VatAmount), "IVA: esperado 42, obtenido %s", inv.VatAmount)
	assert.True(t, dec("30").Equal(inv.IrpfAmount), "IRPF: esperado 30, obtenido %s", inv.IrpfAmount)
	assert.True(t, dec("212").Equal(inv.Total), "total: esperado 212, obtenido %s", inv.Total)
}

// El importe de cada línea siempre es cantidad × precio unitario, aunque
// llegue con un Amount desactualizado.
func TestRecalculateTotals_RecalculaImporteDeLinea(t *testing.T) {
	inv := &entity.Invoice{
		Items: []entity.InvoiceItem{
			{ID: "it-1", Description: "Clase", Quantity: dec("3"), UnitCost: dec("25.50"), Amount: dec("999")},
			{ID: "it-2", Description: "Material", Quantity: dec("1"), UnitCost: dec("12.40")},
		},
		VatRate:  dec("21"),
		IrpfRate: dec("0"),
	}

	inv.RecalculateTotals()

	assert.True(t, dec("76.50").Equal(inv.Items[0].Amount), "línea 1: 3 × 25.50 = 76.50")
	assert.True(t, dec("12.40").Equal(inv.Items[1].Amount), "línea 2: 1 × 12.40 = 12.40")
	assert.True(t, dec("88.90").Equal(inv.Subtotal))
	assert.True(t, decimal.Zero.Equal(inv.IrpfAmount), "sin IRPF la retención es cero")
}

// Sin líneas los totales quedan a cero, no en estado indefinido.
func TestRecalculateTotals_SinLineas(t *testing.T) {
	inv := &entity.Invoice{VatRate: dec("21"), IrpfRate: dec("15")}
	inv.RecalculateTotals()

	assert.True(t, decimal.Zero.Equal(inv.Subtotal))
	assert.True(t, decimal.Zero.Equal(inv.Total))
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de estado y direcciones
// ──────────────────────────────────────────────────────────────────────────────

// Falta el código postal del receptor → ISSUED degrada a DRAFT.
func TestNormalizeStatus_SinZipDegradaADraft(t *testing.T) {
	incomplete := completeAddress()
	incomplete.Zip = ""
	inv := invoiceWithAddresses(completeAddress(), incomplete)

	coerced := inv.NormalizeStatus()

	assert.True(t, coerced, "debe reportar la degradación")
	assert.Equal(t, entity.StatusDraft, inv.Status)
}

// Con ambas direcciones completas ISSUED se mantiene.
func TestNormalizeStatus_DireccionesCompletasPermitenIssued(t *testing.T) {
	inv := invoiceWithAddresses(completeAddress(), completeAddress())

	coerced := inv.NormalizeStatus()

	assert.False(t, coerced)
	assert.Equal(t, entity.StatusIssued, inv.Status)
}

// PAID exige las mismas direcciones que ISSUED.
func TestNormalizeStatus_PaidSinDireccionDegradaADraft(t *testing.T) {
	inv := invoiceWithAddresses(entity.Address{}, completeAddress())
	inv.Status = entity.StatusPaid

	require.True(t, inv.NormalizeStatus())
	assert.Equal(t, entity.StatusDraft, inv.Status)
}

// CANCELLED no exige direcciones: se puede anular cualquier borrador.
func TestNormalizeStatus_CancelledNoExigeDirecciones(t *testing.T) {
	inv := invoiceWithAddresses(entity.Address{}, entity.Address{})
	inv.Status = entity.StatusCancelled

	assert.False(t, inv.NormalizeStatus())
	assert.Equal(t, entity.StatusCancelled, inv.Status)
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{entity.StatusDraft, entity.StatusIssued, entity.StatusPaid, entity.StatusCancelled} {
		assert.True(t, entity.ValidStatus(s), "%s debe ser válido", s)
	}
	assert.False(t, entity.ValidStatus("SENT"))
	assert.False(t, entity.ValidStatus(""))
	assert.False(t, entity.ValidStatus("draft"), "los estados son sensibles a mayúsculas")
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de Address y Settings
// ──────────────────────────────────────────────────────────────────────────────

func TestAddressComplete(t *testing.T) {
	assert.True(t, completeAddress().Complete())

	for _, mutate := range []func(*entity.Address){
		func(a *entity.Address) { a.Street = "" },
		func(a *entity.Address) { a.City = "" },
		func(a *entity.Address) { a.Zip = "" },
		func(a *entity.Address) { a.Country = "" },
	} {
		a := completeAddress()
		mutate(&a)
		assert.False(t, a.Complete(), "cualquier campo vacío invalida la dirección: %+v", a)
	}
}

func TestSettingsActiveIssuer(t *testing.T) {
	s := entity.Settings{
		Issuers: []entity.Issuer{
			{ID: "iss-1", Party: entity.Party{Name: "Primero"}},
			{ID: "iss-2", Party: entity.Party{Name: "Segundo"}},
		},
	}

	// Sin activo explícito: el primero.
	require.NotNil(t, s.ActiveIssuer())
	assert.Equal(t, "iss-1", s.ActiveIssuer().ID)

	// Con activo explícito.
	s.ActiveIssuerID = "iss-2"
	assert.Equal(t, "iss-2", s.ActiveIssuer().ID)

	// Activo apuntando a un emisor borrado: cae al primero.
	s.ActiveIssuerID = "iss-borrado"
	assert.Equal(t, "iss-1", s.ActiveIssuer().ID)

	// Sin emisores no hay activo.
	empty := entity.DefaultSettings()
	assert.Nil(t, empty.ActiveIssuer())
}
