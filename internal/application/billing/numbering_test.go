package billing_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/swiftinvoice-api/internal/application/billing"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
	"github.com/jhoicas/swiftinvoice-api/internal/infrastructure/memory"
	"github.com/jhoicas/swiftinvoice-api/pkg/logger"
)

const numberingOwner = "uid-numbering"

func date2025() time.Time {
	return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
}

// ──────────────────────────────────────────────────────────────────────────────
// Secuencia por año
// ──────────────────────────────────────────────────────────────────────────────

// La primera reserva del año produce {año}0001.
func TestReserve_PrimerNumeroDelAnio(t *testing.T) {
	svc := billing.NewNumberingService(memory.New(), logger.Nop())

	number, fallback := svc.Reserve(context.Background(), numberingOwner, date2025())

	assert.False(t, fallback)
	assert.Equal(t, "20250001", number)
}

// Trece reservas seguidas: la última es {año}0013, sin huecos ni repetidos.
func TestReserve_SecuenciaContinua(t *testing.T) {
	svc := billing.NewNumberingService(memory.New(), logger.Nop())
	ctx := context.Background()

	var last string
	seen := make(map[string]bool)
	for i := 0; i < 13; i++ {
		number, fallback := svc.Reserve(ctx, numberingOwner, date2025())
		require.False(t, fallback)
		require.False(t, seen[number], "número repetido: %s", number)
		seen[number] = true
		last = number
	}
	assert.Equal(t, "20250013", last)
}

// Cada año lleva su propio contador; una factura retro-fechada consume la
// secuencia de su año sin tocar la del actual.
func TestReserve_ContadorIndependientePorAnio(t *testing.T) {
	svc := billing.NewNumberingService(memory.New(), logger.Nop())
	ctx := context.Background()

	n2025a, _ := svc.Reserve(ctx, numberingOwner, date2025())
	n2024, _ := svc.Reserve(ctx, numberingOwner, time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))
	n2025b, _ := svc.Reserve(ctx, numberingOwner, date2025())

	assert.Equal(t, "20250001", n2025a)
	assert.Equal(t, "20240001", n2024, "la retro-fechada usa el contador de su año")
	assert.Equal(t, "20250002", n2025b, "el contador de 2025 no se ve afectado")
}

// El año se resuelve en UTC: un instante del 31 de diciembre en una zona
// adelantada sigue siendo del año anterior en UTC.
func TestReserve_AnioEnUTC(t *testing.T) {
	svc := billing.NewNumberingService(memory.New(), logger.Nop())

	// 01:00 del 1 de enero de 2026 en UTC+2 = 23:00 del 31 de diciembre de 2025 UTC.
	zone := time.FixedZone("UTC+2", 2*60*60)
	d := time.Date(2026, 1, 1, 1, 0, 0, 0, zone)

	number, _ := svc.Reserve(context.Background(), numberingOwner, d)
	assert.Equal(t, "20250001", number)
}

// Contadores de usuarios distintos no se interfieren.
func TestReserve_ContadorPorUsuario(t *testing.T) {
	svc := billing.NewNumberingService(memory.New(), logger.Nop())
	ctx := context.Background()

	a1, _ := svc.Reserve(ctx, "uid-a", date2025())
	b1, _ := svc.Reserve(ctx, "uid-b", date2025())

	assert.Equal(t, "20250001", a1)
	assert.Equal(t, "20250001", b1)
}

// La reserva escribe con merge: los emisores guardados en settings sobreviven.
func TestReserve_NoPisaElRestoDeSettings(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	p := store.NewPath(numberingOwner, store.ColSettings, store.SettingsDocID)
	existing, _ := json.Marshal(map[string]any{
		"issuers":         []map[string]any{{"id": "iss-1", "name": "Emisor"}},
		"activeIssuerId":  "iss-1",
		"defaultCurrency": "EUR",
	})
	require.NoError(t, st.Set(ctx, p, existing, false))

	svc := billing.NewNumberingService(st, logger.Nop())
	_, fallback := svc.Reserve(ctx, numberingOwner, date2025())
	require.False(t, fallback)

	doc, err := st.Get(ctx, p)
	require.NoError(t, err)
	require.NotNil(t, doc)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc.Data, &fields))
	assert.Contains(t, fields, "issuers")
	assert.Contains(t, fields, "activeIssuerId")
	assert.Contains(t, fields, "yearCounter")
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

// N reservas concurrentes producen N números distintos y consecutivos.
func TestReserve_ConcurrentesSinDuplicados(t *testing.T) {
	svc := billing.NewNumberingService(memory.New(), logger.Nop())
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	numbers := make(map[string]bool)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, fallback := svc.Reserve(ctx, numberingOwner, date2025())
			mu.Lock()
			defer mu.Unlock()
			require.False(t, fallback)
			require.False(t, numbers[number], "número duplicado bajo concurrencia: %s", number)
			numbers[number] = true
		}()
	}
	wg.Wait()

	require.Len(t, numbers, n)
	for i := 1; i <= n; i++ {
		expected := fmt.Sprintf("2025%04d", i)
		assert.True(t, numbers[expected], "falta el número %s", expected)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Vía de respaldo
// ──────────────────────────────────────────────────────────────────────────────

// failingStore simula un backend cuyas transacciones no consiguen confirmar.
type failingStore struct {
	store.DocumentStore
}

func (f *failingStore) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return fmt.Errorf("transacción abortada tras agotar reintentos")
}

// Si la transacción falla, la reserva degrada a un número de timestamp con
// el flag de respaldo activo.
func TestReserve_FallbackConTransaccionRota(t *testing.T) {
	svc := billing.NewNumberingService(&failingStore{DocumentStore: memory.New()}, logger.Nop())

	number, fallback := svc.Reserve(context.Background(), numberingOwner, date2025())

	assert.True(t, fallback, "debe señalizar la vía de respaldo")
	assert.True(t, strings.HasPrefix(number, "2025"), "el respaldo conserva el año: %s", number)
	assert.Len(t, number, 13, "año (4) + timestamp (9 dígitos)")
}
