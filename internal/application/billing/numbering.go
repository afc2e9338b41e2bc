package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
	"github.com/jhoicas/swiftinvoice-api/pkg/logger"
)

// NumberingService genera números de factura únicos por usuario con la
// forma {año}{secuencia de 4 dígitos}, p.ej. "20250001". El contador vive
// en el documento de configuración del usuario (yearCounter, año → último
// número emitido) y la reserva es un read-increment-write dentro de una
// transacción del store, de modo que dos reservas concurrentes nunca
// observan el mismo valor base.
type NumberingService struct {
	store store.DocumentStore
	log   *logger.Logger
}

// NewNumberingService construye el servicio.
func NewNumberingService(st store.DocumentStore, log *logger.Logger) *NumberingService {
	return &NumberingService{store: st, log: log}
}

// yearCounterDoc proyección del documento de settings para la reserva.
type yearCounterDoc struct {
	YearCounter map[string]int `json:"yearCounter"`
}

// Reserve reserva el siguiente número del año de la fecha de facturación
// (año UTC, no el de creación: una factura retro-fechada consume la
// secuencia de su año). Si la transacción falla tras agotar los reintentos,
// degrada a un número derivado de timestamp, sin garantía de unicidad, y lo
// deja registrado: el segundo valor de retorno indica esa vía de respaldo.
func (s *NumberingService) Reserve(ctx context.Context, ownerUID string, date time.Time) (string, bool) {
	year := date.UTC().Year()
	yearKey := strconv.Itoa(year)
	p := store.NewPath(ownerUID, store.ColSettings, store.SettingsDocID)

	var number string
	err := s.store.RunTransaction(ctx, func(tx store.Tx) error {
		doc, err := tx.Get(ctx, p)
		if err != nil {
			return err
		}
		counters := yearCounterDoc{YearCounter: map[string]int{}}
		if doc != nil {
			if err := json.Unmarshal(doc.Data, &counters); err != nil {
				return fmt.Errorf("numbering: settings corruptos: %w", err)
			}
			if counters.YearCounter == nil {
				counters.YearCounter = map[string]int{}
			}
		}

		next := counters.YearCounter[yearKey] + 1
		counters.YearCounter[yearKey] = next
		number = fmt.Sprintf("%d%04d", year, next)

		// Merge superficial: se escribe el mapa completo para no perder
		// los contadores de otros años.
		data, err := json.Marshal(counters)
		if err != nil {
			return err
		}
		return tx.Set(ctx, p, data, true)
	})
	if err != nil {
		fallback := fallbackNumber(year)
		s.log.Warn().
			Err(err).
			Str("owner_uid", ownerUID).
			Str("number", fallback).
			Msg("reserva transaccional de número fallida, usando número de respaldo")
		return fallback, true
	}
	return number, false
}

// fallbackNumber número de respaldo derivado de timestamp de alta
// resolución. Puede colisionar en teoría; se prioriza disponibilidad.
func fallbackNumber(year int) string {
	return fmt.Sprintf("%d%09d", year, time.Now().UnixNano()%1_000_000_000)
}
