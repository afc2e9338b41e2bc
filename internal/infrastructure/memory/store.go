// Package memory implementa store.DocumentStore sobre mapas en memoria.
// Se usa en desarrollo local (STORE_DRIVER=memory) y en los tests, donde los
// contadores de operaciones permiten verificar cuántas "llamadas de red"
// emite la caché.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
)

var _ store.DocumentStore = (*Store)(nil)

// Counts operaciones acumuladas del store.
type Counts struct {
	Gets         int
	Queries      int
	Sets         int
	Deletes      int
	Transactions int
}

// Store almacén de documentos en memoria, seguro para uso concurrente.
type Store struct {
	mu     sync.Mutex
	docs   map[string]store.Document // clave: Path.String()
	counts Counts
}

// New construye un store vacío.
func New() *Store {
	return &Store{docs: make(map[string]store.Document)}
}

// Counts devuelve una copia de los contadores de operaciones.
func (s *Store) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Get lee un documento puntual. Devuelve (nil, nil) si no existe.
func (s *Store) Get(ctx context.Context, p store.Path) (*store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Gets++
	return s.getLocked(p), nil
}

func (s *Store) getLocked(p store.Path) *store.Document {
	doc, ok := s.docs[p.String()]
	if !ok {
		return nil
	}
	cp := doc
	cp.Data = append([]byte(nil), doc.Data...)
	return &cp
}

// Query consulta una colección ordenada por UpdatedAt descendente.
func (s *Store) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Queries++

	var docs []store.Document
	for _, doc := range s.docs {
		if doc.Path.Collection != q.Collection {
			continue
		}
		if q.OwnerUID != "" && doc.Path.OwnerUID != q.OwnerUID {
			continue
		}
		if !matchesFilters(doc.Data, q.Filters) {
			continue
		}
		cp := doc
		cp.Data = append([]byte(nil), doc.Data...)
		docs = append(docs, cp)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
	})
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

func matchesFilters(data []byte, filters []store.Filter) bool {
	if len(filters) == 0 {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return false
	}
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || fmt.Sprintf("%v", v) != f.Value {
			return false
		}
	}
	return true
}

// Set upsert de un documento; merge=true combina campos de primer nivel.
func (s *Store) Set(ctx context.Context, p store.Path, data []byte, merge bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Sets++
	return s.setLocked(p, data, merge)
}

func (s *Store) setLocked(p store.Path, data []byte, merge bool) error {
	if merge {
		if existing, ok := s.docs[p.String()]; ok {
			merged, err := mergeJSON(existing.Data, data)
			if err != nil {
				return err
			}
			data = merged
		}
	}
	s.docs[p.String()] = store.Document{
		Path:      p,
		Data:      append([]byte(nil), data...),
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// mergeJSON merge superficial: los campos de b pisan los de a.
func mergeJSON(a, b []byte) ([]byte, error) {
	var base, overlay map[string]json.RawMessage
	if err := json.Unmarshal(a, &base); err != nil {
		return nil, fmt.Errorf("merge: documento existente inválido: %w", err)
	}
	if err := json.Unmarshal(b, &overlay); err != nil {
		return nil, fmt.Errorf("merge: documento nuevo inválido: %w", err)
	}
	for k, v := range overlay {
		base[k] = v
	}
	return json.Marshal(base)
}

// Delete borra un documento; borrar uno inexistente no es error.
func (s *Store) Delete(ctx context.Context, p store.Path) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Deletes++
	delete(s.docs, p.String())
	return nil
}

// RunTransaction ejecuta fn bajo el lock global del store: las transacciones
// quedan serializadas entre sí y respecto al resto de operaciones, que es la
// atomicidad que necesita el contador de numeración.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts.Transactions++
	return fn(&memTx{s: s})
}

// memTx opera directamente sobre los mapas, ya bajo el lock del store.
type memTx struct {
	s *Store
}

func (t *memTx) Get(ctx context.Context, p store.Path) (*store.Document, error) {
	return t.s.getLocked(p), nil
}

func (t *memTx) Set(ctx context.Context, p store.Path, data []byte, merge bool) error {
	return t.s.setLocked(p, data, merge)
}
