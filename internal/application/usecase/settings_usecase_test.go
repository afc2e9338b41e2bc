package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/swiftinvoice-api/internal/application/dto"
	"github.com/jhoicas/swiftinvoice-api/internal/application/usecase"
	"github.com/jhoicas/swiftinvoice-api/internal/domain"
	"github.com/jhoicas/swiftinvoice-api/internal/infrastructure/memory"
)

const settingsOwner = "uid-settings"

func issuerRequest(name string) dto.IssuerRequest {
	return dto.IssuerRequest{
		Alias: name,
		Name:  name + " SL",
		TaxID: "B12345678",
		Address: dto.AddressDTO{
			Street: "Gran Vía 10", City: "Madrid", Zip: "28013", Country: "España",
		},
		Email: "facturas@example.com",
	}
}

// La primera lectura crea la configuración por defecto.
func TestSettingsGet_CreaPorDefecto(t *testing.T) {
	uc := usecase.NewSettingsUseCase(memory.New())

	settings, err := uc.Get(context.Background(), settingsOwner)
	require.NoError(t, err)
	assert.Empty(t, settings.Issuers)
	assert.Equal(t, "EUR", settings.DefaultCurrency)
	assert.Empty(t, settings.YearCounter)
}

// El primer emisor creado queda como activo; los siguientes no lo desplazan.
func TestAddIssuer_PrimeroQuedaActivo(t *testing.T) {
	uc := usecase.NewSettingsUseCase(memory.New())
	ctx := context.Background()

	settings, err := uc.AddIssuer(ctx, settingsOwner, issuerRequest("Primero"))
	require.NoError(t, err)
	require.Len(t, settings.Issuers, 1)
	assert.Equal(t, settings.Issuers[0].ID, settings.ActiveIssuerID)

	settings, err = uc.AddIssuer(ctx, settingsOwner, issuerRequest("Segundo"))
	require.NoError(t, err)
	require.Len(t, settings.Issuers, 2)
	assert.Equal(t, settings.Issuers[0].ID, settings.ActiveIssuerID, "el activo no cambia")
}

func TestAddIssuer_Validacion(t *testing.T) {
	uc := usecase.NewSettingsUseCase(memory.New())

	_, err := uc.AddIssuer(context.Background(), settingsOwner, dto.IssuerRequest{Name: "Sin NIF"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateIssuer(t *testing.T) {
	uc := usecase.NewSettingsUseCase(memory.New())
	ctx := context.Background()

	settings, err := uc.AddIssuer(ctx, settingsOwner, issuerRequest("Original"))
	require.NoError(t, err)
	id := settings.Issuers[0].ID

	edited := issuerRequest("Editado")
	settings, err = uc.UpdateIssuer(ctx, settingsOwner, id, edited)
	require.NoError(t, err)
	assert.Equal(t, "Editado SL", settings.Issuers[0].Name)
	assert.Equal(t, id, settings.Issuers[0].ID, "editar no cambia el id")

	_, err = uc.UpdateIssuer(ctx, settingsOwner, "iss-inexistente", edited)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Borrar el emisor activo promociona al primero restante.
func TestDeleteIssuer_PromocionaActivo(t *testing.T) {
	uc := usecase.NewSettingsUseCase(memory.New())
	ctx := context.Background()

	s, err := uc.AddIssuer(ctx, settingsOwner, issuerRequest("Primero"))
	require.NoError(t, err)
	first := s.Issuers[0].ID
	s, err = uc.AddIssuer(ctx, settingsOwner, issuerRequest("Segundo"))
	require.NoError(t, err)
	second := s.Issuers[1].ID

	s, err = uc.DeleteIssuer(ctx, settingsOwner, first)
	require.NoError(t, err)
	require.Len(t, s.Issuers, 1)
	assert.Equal(t, second, s.ActiveIssuerID, "el restante pasa a ser el activo")

	s, err = uc.DeleteIssuer(ctx, settingsOwner, second)
	require.NoError(t, err)
	assert.Empty(t, s.Issuers)
	assert.Empty(t, s.ActiveIssuerID)
}

func TestSetActiveIssuer(t *testing.T) {
	uc := usecase.NewSettingsUseCase(memory.New())
	ctx := context.Background()

	s, err := uc.AddIssuer(ctx, settingsOwner, issuerRequest("Primero"))
	require.NoError(t, err)
	s, err = uc.AddIssuer(ctx, settingsOwner, issuerRequest("Segundo"))
	require.NoError(t, err)
	second := s.Issuers[1].ID

	s, err = uc.SetActiveIssuer(ctx, settingsOwner, dto.ActiveIssuerRequest{IssuerID: second})
	require.NoError(t, err)
	assert.Equal(t, second, s.ActiveIssuerID)

	_, err = uc.SetActiveIssuer(ctx, settingsOwner, dto.ActiveIssuerRequest{IssuerID: "iss-inexistente"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
