package cache_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/swiftinvoice-api/internal/application/cache"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
	"github.com/jhoicas/swiftinvoice-api/internal/infrastructure/memory"
)

const testOwner = "uid-test"

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// seed escribe n documentos de la colección directamente en el store, con
// UpdatedAt crecientes para que el orden por actualización sea determinista.
func seed(t *testing.T, st *memory.Store, collection string, n int) []string {
	t.Helper()
	ctx := context.Background()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("doc-%d", i)
		data, err := json.Marshal(map[string]any{"id": id, "status": "DRAFT"})
		require.NoError(t, err)
		require.NoError(t, st.Set(ctx, store.NewPath(testOwner, collection, id), data, false))
		ids = append(ids, id)
		time.Sleep(time.Millisecond) // UpdatedAt estrictamente creciente
	}
	return ids
}

// ──────────────────────────────────────────────────────────────────────────────
// LoadOnce
// ──────────────────────────────────────────────────────────────────────────────

// Cargar dos veces la misma clave emite exactamente una consulta.
func TestLoadOnce_SegundaCargaNoConsulta(t *testing.T) {
	st := memory.New()
	seed(t, st, store.ColInvoices, 3)
	svc := cache.New(st)
	ctx := context.Background()

	docs, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, 1, st.Counts().Queries)

	docs, err = svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, 1, st.Counts().Queries, "la segunda carga debe responder desde memoria")
}

// Force recarga aunque la clave ya esté cargada.
func TestLoadOnce_ForceRecarga(t *testing.T) {
	st := memory.New()
	seed(t, st, store.ColInvoices, 2)
	svc := cache.New(st)
	ctx := context.Background()

	_, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)

	// Escritura por fuera de la caché (otro proceso).
	data, _ := json.Marshal(map[string]any{"id": "externo", "status": "DRAFT"})
	require.NoError(t, st.Set(ctx, store.NewPath(testOwner, store.ColInvoices, "externo"), data, false))

	// Sin force no se ve.
	docs, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 2, "sin force la caché no ve escrituras externas")

	// Con force sí, con exactamente una consulta más.
	docs, err = svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{Force: true})
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	assert.Equal(t, 2, st.Counts().Queries)
}

// Claves con filtros distintos se cargan por separado.
func TestLoadOnce_FiltroEsOtraClave(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	svc := cache.New(st)

	draft, _ := json.Marshal(map[string]any{"id": "a", "status": "DRAFT"})
	issued, _ := json.Marshal(map[string]any{"id": "b", "status": "ISSUED"})
	require.NoError(t, st.Set(ctx, store.NewPath(testOwner, store.ColInvoices, "a"), draft, false))
	require.NoError(t, st.Set(ctx, store.NewPath(testOwner, store.ColInvoices, "b"), issued, false))

	all, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filter := &store.Filter{Field: "status", Value: "ISSUED"}
	filtered, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{Filter: filter})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, 2, st.Counts().Queries, "listado completo y filtrado son claves distintas")

	// Ambas claves quedan cargadas: repetirlas no consulta.
	_, _ = svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	_, _ = svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{Filter: filter})
	assert.Equal(t, 2, st.Counts().Queries)
}

// Cargas concurrentes de la misma clave se coalescen en una sola consulta.
func TestLoadOnce_ConcurrentesCoalescen(t *testing.T) {
	st := memory.New()
	seed(t, st, store.ColClients, 5)
	svc := cache.New(st)
	ctx := context.Background()

	const goroutines = 20
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			docs, err := svc.LoadOnce(ctx, store.ColClients, testOwner, cache.LoadOptions{})
			if err == nil && len(docs) != 5 {
				err = fmt.Errorf("esperados 5 documentos, obtenidos %d", len(docs))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, st.Counts().Queries, 2,
		"las cargas concurrentes deben coalescer (a lo sumo una carrera inicial)")
}

// ──────────────────────────────────────────────────────────────────────────────
// GetByID
// ──────────────────────────────────────────────────────────────────────────────

// Tras cargar el listado, GetByID de cualquier documento no toca la red.
func TestGetByID_DespuesDeLoadOnceNoLee(t *testing.T) {
	st := memory.New()
	ids := seed(t, st, store.ColInvoices, 3)
	svc := cache.New(st)
	ctx := context.Background()

	_, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)

	for _, id := range ids {
		doc, err := svc.GetByID(ctx, store.ColInvoices, testOwner, id)
		require.NoError(t, err)
		require.NotNil(t, doc)
	}
	assert.Equal(t, 0, st.Counts().Gets, "todos los GetByID deben resolverse en memoria")
}

// Un miss emite exactamente una lectura y el segundo acceso ya es local.
func TestGetByID_MissEmiteUnaLectura(t *testing.T) {
	st := memory.New()
	seed(t, st, store.ColInvoices, 1)
	svc := cache.New(st)
	ctx := context.Background()

	doc, err := svc.GetByID(ctx, store.ColInvoices, testOwner, "doc-0")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, st.Counts().Gets)

	_, err = svc.GetByID(ctx, store.ColInvoices, testOwner, "doc-0")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Counts().Gets, "el segundo acceso debe ser local")
}

// Documento inexistente: (nil, nil), igual que el store.
func TestGetByID_Inexistente(t *testing.T) {
	st := memory.New()
	svc := cache.New(st)

	doc, err := svc.GetByID(context.Background(), store.ColInvoices, testOwner, "no-existe")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

// Un GetByID posterior a la carga del listado inserta el documento nuevo en
// el listado por defecto, en la posición de su UpdatedAt.
func TestGetByID_InsertaEnListadoCargado(t *testing.T) {
	st := memory.New()
	seed(t, st, store.ColInvoices, 2)
	svc := cache.New(st)
	ctx := context.Background()

	_, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)

	// Documento creado fuera de la caché, más reciente que los anteriores.
	data, _ := json.Marshal(map[string]any{"id": "nuevo", "status": "DRAFT"})
	require.NoError(t, st.Set(ctx, store.NewPath(testOwner, store.ColInvoices, "nuevo"), data, false))

	doc, err := svc.GetByID(ctx, store.ColInvoices, testOwner, "nuevo")
	require.NoError(t, err)
	require.NotNil(t, doc)

	docs, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "nuevo", docs[0].Path.ID, "el más reciente va primero")
}

// ──────────────────────────────────────────────────────────────────────────────
// Save y Delete
// ──────────────────────────────────────────────────────────────────────────────

// Guardar y leer inmediatamente: cero lecturas de red, un solo upsert.
func TestSave_LecturaInmediataSinRed(t *testing.T) {
	st := memory.New()
	svc := cache.New(st)
	ctx := context.Background()

	_, err := svc.LoadOnce(ctx, store.ColClients, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	queriesBefore := st.Counts().Queries

	data, _ := json.Marshal(map[string]any{"id": "c-1", "name": "Cliente"})
	require.NoError(t, svc.Save(ctx, store.ColClients, testOwner, "c-1", data))

	doc, err := svc.GetByID(ctx, store.ColClients, testOwner, "c-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.JSONEq(t, string(data), string(doc.Data))

	docs, err := svc.LoadOnce(ctx, store.ColClients, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	c := st.Counts()
	assert.Equal(t, 0, c.Gets, "la lectura tras escribir debe ser local")
	assert.Equal(t, queriesBefore, c.Queries, "el listado tras escribir debe ser local")
	assert.Equal(t, 1, c.Sets, "exactamente un upsert")
}

// Un Save mueve el documento al frente de los listados cargados.
func TestSave_MueveAlFrente(t *testing.T) {
	st := memory.New()
	ids := seed(t, st, store.ColInvoices, 3)
	svc := cache.New(st)
	ctx := context.Background()

	docs, err := svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, ids[2], docs[0].Path.ID, "el seed deja el último escrito primero")

	// Editar el más antiguo.
	data, _ := json.Marshal(map[string]any{"id": ids[0], "status": "PAID"})
	require.NoError(t, svc.Save(ctx, store.ColInvoices, testOwner, ids[0], data))

	docs, err = svc.LoadOnce(ctx, store.ColInvoices, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, ids[0], docs[0].Path.ID, "el documento editado pasa al frente")
}

// Delete limpia memoria y emite exactamente un borrado.
func TestDelete_LimpiaMemoriaYListados(t *testing.T) {
	st := memory.New()
	ids := seed(t, st, store.ColTemplates, 2)
	svc := cache.New(st)
	ctx := context.Background()

	_, err := svc.LoadOnce(ctx, store.ColTemplates, testOwner, cache.LoadOptions{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, store.ColTemplates, testOwner, ids[0]))

	docs, err := svc.LoadOnce(ctx, store.ColTemplates, testOwner, cache.LoadOptions{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, ids[1], docs[0].Path.ID)
	assert.Equal(t, 1, st.Counts().Deletes)

	// El doc borrado tampoco se sirve por id desde memoria; el miss va al
	// store, que ya no lo tiene.
	doc, err := svc.GetByID(ctx, store.ColTemplates, testOwner, ids[0])
	require.NoError(t, err)
	assert.Nil(t, doc)
}
