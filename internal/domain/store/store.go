// Package store define el backend de documentos abstracto de la aplicación:
// lecturas puntuales, consultas por colección, escrituras merge, borrados y
// transacciones read-modify-write. Las implementaciones viven en
// internal/infrastructure (postgres, memory).
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Colecciones lógicas de la aplicación.
const (
	ColInvoices  = "invoices"
	ColClients   = "clients"
	ColTemplates = "templates"
	ColSettings  = "settings"
	ColAccount   = "account"
)

// SettingsDocID id fijo del documento singleton de configuración por usuario.
const SettingsDocID = "app"

// ProfileDocID id fijo del documento de cuenta por usuario.
const ProfileDocID = "profile"

// Path identifica un documento: users/{uid}/{collection}/{id}.
type Path struct {
	OwnerUID   string
	Collection string
	ID         string
}

// NewPath construye un path.
func NewPath(ownerUID, collection, id string) Path {
	return Path{OwnerUID: ownerUID, Collection: collection, ID: id}
}

// String devuelve la forma textual users/{uid}/{collection}/{id}.
func (p Path) String() string {
	return "users/" + p.OwnerUID + "/" + p.Collection + "/" + p.ID
}

// ParsePath interpreta la forma textual de un path.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 || parts[0] != "users" || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return Path{}, fmt.Errorf("store: path inválido %q", s)
	}
	return Path{OwnerUID: parts[1], Collection: parts[2], ID: parts[3]}, nil
}

// Document documento opaco JSON más metadatos de propiedad y actualización.
type Document struct {
	Path      Path
	Data      []byte
	UpdatedAt time.Time
}

// Filter filtro de igualdad sobre un campo de primer nivel del documento.
type Filter struct {
	Field string
	Value string
}

// Query consulta sobre una colección. OwnerUID vacío significa sin acotar
// por propietario (solo lo usa auth para buscar cuentas por email).
// El orden es siempre por updated_at descendente; Limit acota la página.
type Query struct {
	OwnerUID   string
	Collection string
	Filters    []Filter
	Limit      int
}

// Tx operaciones disponibles dentro de una transacción.
type Tx interface {
	Get(ctx context.Context, p Path) (*Document, error)
	Set(ctx context.Context, p Path, data []byte, merge bool) error
}

// DocumentStore backend de documentos. Get devuelve (nil, nil) si el
// documento no existe. RunTransaction ejecuta fn de forma atómica y
// reintenta un número acotado de veces ante conflictos concurrentes.
type DocumentStore interface {
	Get(ctx context.Context, p Path) (*Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Set(ctx context.Context, p Path, data []byte, merge bool) error
	Delete(ctx context.Context, p Path) error
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}
