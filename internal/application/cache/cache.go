// Package cache implementa la capa de lectura read-through y escritura
// optimista delante del store de documentos. Su objetivo es minimizar
// round-trips: cada clave (propietario, colección, filtro) se consulta una
// sola vez y las escrituras/borrados locales mutan la caché en memoria antes
// de que la persistencia resuelva, de modo que las lecturas inmediatamente
// posteriores ven el valor nuevo sin tocar la red.
//
// Limitaciones asumidas: sin TTL y sin invalidación entre procesos; dos
// instancias pueden divergir hasta que una recargue con Force. La
// reconciliación tras un fallo de escritura/borrado es responsabilidad del
// caller (recarga con Force).
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
)

// DefaultPageSize tope de documentos por consulta de listado.
const DefaultPageSize = 100

// LoadOptions opciones de LoadOnce.
type LoadOptions struct {
	Filter *store.Filter // filtro de igualdad opcional; nil = listado completo
	Force  bool          // fuerza una consulta aunque la clave ya esté cargada
}

// Service caché de documentos por usuario y colección lógica.
type Service struct {
	store    store.DocumentStore
	pageSize int

	mu       sync.Mutex
	byID     map[string]store.Document // clave: Path.String()
	lists    map[string][]store.Path   // clave: listKey(owner, col, filter)
	loaded   map[string]bool
	inflight map[string]chan struct{} // coalescencia de LoadOnce concurrentes
}

// New construye la caché sobre un store.
func New(st store.DocumentStore) *Service {
	return &Service{
		store:    st,
		pageSize: DefaultPageSize,
		byID:     make(map[string]store.Document),
		lists:    make(map[string][]store.Path),
		loaded:   make(map[string]bool),
		inflight: make(map[string]chan struct{}),
	}
}

// listKey clave de caché para (propietario, colección, filtro).
func listKey(owner, collection string, filter *store.Filter) string {
	k := owner + "/" + collection
	if filter != nil {
		k += "?" + filter.Field + "=" + filter.Value
	}
	return k
}

// LoadOnce devuelve el listado de la clave. Si la clave ya está cargada y no
// se pide Force, responde desde memoria sin ninguna lectura de red. Si no,
// emite exactamente una consulta (ordenada por última actualización
// descendente, acotada a pageSize) y puebla la caché. Llamadas concurrentes
// para la misma clave se coalescen en una sola consulta.
func (s *Service) LoadOnce(ctx context.Context, collection, owner string, opts LoadOptions) ([]store.Document, error) {
	key := listKey(owner, collection, opts.Filter)
	for {
		s.mu.Lock()
		if s.loaded[key] && !opts.Force {
			docs := s.resolveLocked(s.lists[key])
			s.mu.Unlock()
			return docs, nil
		}
		if ch, ok := s.inflight[key]; ok && !opts.Force {
			// Otra llamada ya está consultando esta clave: esperar y reintentar.
			s.mu.Unlock()
			select {
			case <-ch:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		ch := make(chan struct{})
		s.inflight[key] = ch
		s.mu.Unlock()

		q := store.Query{OwnerUID: owner, Collection: collection, Limit: s.pageSize}
		if opts.Filter != nil {
			q.Filters = []store.Filter{*opts.Filter}
		}
		docs, err := s.store.Query(ctx, q)

		s.mu.Lock()
		if s.inflight[key] == ch {
			delete(s.inflight, key)
		}
		close(ch)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		paths := make([]store.Path, 0, len(docs))
		for _, doc := range docs {
			s.byID[doc.Path.String()] = doc
			paths = append(paths, doc.Path)
		}
		s.lists[key] = paths
		s.loaded[key] = true
		result := s.resolveLocked(paths)
		s.mu.Unlock()
		return result, nil
	}
}

// resolveLocked materializa un listado desde el mapa de documentos.
func (s *Service) resolveLocked(paths []store.Path) []store.Document {
	docs := make([]store.Document, 0, len(paths))
	for _, p := range paths {
		if doc, ok := s.byID[p.String()]; ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

// GetByID devuelve un documento. Si está en el mapa responde sin lecturas;
// si no, emite exactamente una lectura puntual y, si el listado por defecto
// del propietario ya está cargado, inserta el documento en él para que los
// LoadOnce posteriores sigan siendo consistentes sin re-consultar.
// Devuelve (nil, nil) si el documento no existe.
func (s *Service) GetByID(ctx context.Context, collection, owner, id string) (*store.Document, error) {
	p := store.NewPath(owner, collection, id)

	s.mu.Lock()
	if doc, ok := s.byID[p.String()]; ok {
		s.mu.Unlock()
		return &doc, nil
	}
	s.mu.Unlock()

	doc, err := s.store.Get(ctx, p)
	if err != nil || doc == nil {
		return doc, err
	}

	s.mu.Lock()
	s.byID[p.String()] = *doc
	key := listKey(owner, collection, nil)
	if s.loaded[key] {
		s.lists[key] = spliceByUpdatedAt(s.lists[key], s.byID, *doc)
	}
	s.mu.Unlock()
	return doc, nil
}

// spliceByUpdatedAt inserta el path de doc en la posición que le corresponde
// según el orden por UpdatedAt descendente del listado.
func spliceByUpdatedAt(paths []store.Path, byID map[string]store.Document, doc store.Document) []store.Path {
	for _, p := range paths {
		if p == doc.Path {
			return paths
		}
	}
	pos := len(paths)
	for i, p := range paths {
		if other, ok := byID[p.String()]; ok && doc.UpdatedAt.After(other.UpdatedAt) {
			pos = i
			break
		}
	}
	out := make([]store.Path, 0, len(paths)+1)
	out = append(out, paths[:pos]...)
	out = append(out, doc.Path)
	out = append(out, paths[pos:]...)
	return out
}

// Save escribe el documento en el mapa y en todos los listados cargados del
// propietario (moviéndolo al frente: orden por actualización más reciente)
// de forma síncrona, y después emite exactamente un upsert merge al store.
// El estado en memoria se actualiza antes de que la escritura de red
// resuelva: una lectura inmediata ya ve el valor nuevo.
func (s *Service) Save(ctx context.Context, collection, owner, id string, data []byte) error {
	p := store.NewPath(owner, collection, id)
	doc := store.Document{Path: p, Data: data, UpdatedAt: time.Now().UTC()}

	s.mu.Lock()
	s.byID[p.String()] = doc
	prefix := owner + "/" + collection
	for key, paths := range s.lists {
		if !s.loaded[key] || !keyMatches(key, prefix) {
			continue
		}
		s.lists[key] = moveToFront(paths, p)
	}
	s.mu.Unlock()

	return s.store.Set(ctx, p, data, true)
}

// Delete elimina el documento del mapa y de todos los listados cargados, y
// después emite exactamente un borrado. Si el borrado remoto falla no hay
// rollback automático: el caller reconcilia recargando con Force.
func (s *Service) Delete(ctx context.Context, collection, owner, id string) error {
	p := store.NewPath(owner, collection, id)

	s.mu.Lock()
	delete(s.byID, p.String())
	prefix := owner + "/" + collection
	for key, paths := range s.lists {
		if !keyMatches(key, prefix) {
			continue
		}
		s.lists[key] = removePath(paths, p)
	}
	s.mu.Unlock()

	return s.store.Delete(ctx, p)
}

// keyMatches indica si una clave de listado pertenece a owner/collection
// (con o sin filtro).
func keyMatches(key, prefix string) bool {
	if key == prefix {
		return true
	}
	return len(key) > len(prefix) && key[:len(prefix)] == prefix && key[len(prefix)] == '?'
}

func moveToFront(paths []store.Path, p store.Path) []store.Path {
	out := make([]store.Path, 0, len(paths)+1)
	out = append(out, p)
	for _, existing := range paths {
		if existing != p {
			out = append(out, existing)
		}
	}
	return out
}

func removePath(paths []store.Path, p store.Path) []store.Path {
	out := paths[:0]
	for _, existing := range paths {
		if existing != p {
			out = append(out, existing)
		}
	}
	return out
}
