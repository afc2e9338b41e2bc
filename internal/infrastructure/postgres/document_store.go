package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/swiftinvoice-api/internal/domain/store"
)

var _ store.DocumentStore = (*DocumentStore)(nil)

// Reintentos de RunTransaction ante conflicto de serialización.
const txMaxAttempts = 3

// DocumentStore implementación de store.DocumentStore sobre una única tabla
// JSONB `documents` (ver migrations/001_create_documents.sql).
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore construye el adaptador con el pool.
func NewDocumentStore(pool *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Querier subconjunto común de pgxpool.Pool y pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Get lee un documento puntual. Devuelve (nil, nil) si no existe.
func (s *DocumentStore) Get(ctx context.Context, p store.Path) (*store.Document, error) {
	return getDoc(ctx, s.pool, p)
}

func getDoc(ctx context.Context, q Querier, p store.Path) (*store.Document, error) {
	const query = `
		SELECT data, updated_at FROM documents
		WHERE owner_uid = $1 AND collection = $2 AND id = $3`
	doc := store.Document{Path: p}
	err := q.QueryRow(ctx, query, p.OwnerUID, p.Collection, p.ID).Scan(&doc.Data, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document %s: %w", p, err)
	}
	return &doc, nil
}

// Query consulta una colección ordenada por updated_at descendente.
// Los filtros son igualdades sobre campos de primer nivel del JSONB.
func (s *DocumentStore) Query(ctx context.Context, q store.Query) ([]store.Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT owner_uid, id, data, updated_at FROM documents WHERE collection = $1`)
	args := []any{q.Collection}
	if q.OwnerUID != "" {
		args = append(args, q.OwnerUID)
		fmt.Fprintf(&sb, " AND owner_uid = $%d", len(args))
	}
	for _, f := range q.Filters {
		args = append(args, f.Field)
		fieldArg := len(args)
		args = append(args, f.Value)
		fmt.Fprintf(&sb, " AND data->>$%d = $%d", fieldArg, len(args))
	}
	sb.WriteString(" ORDER BY updated_at DESC")
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		doc := store.Document{Path: store.Path{Collection: q.Collection}}
		if err := rows.Scan(&doc.Path.OwnerUID, &doc.Path.ID, &doc.Data, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Set upsert de un documento. Con merge=true los campos nuevos se combinan
// sobre los existentes (merge superficial JSONB); con merge=false el
// documento se reemplaza entero.
func (s *DocumentStore) Set(ctx context.Context, p store.Path, data []byte, merge bool) error {
	return setDoc(ctx, s.pool, p, data, merge)
}

func setDoc(ctx context.Context, q Querier, p store.Path, data []byte, merge bool) error {
	const query = `
		INSERT INTO documents (owner_uid, collection, id, data, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (owner_uid, collection, id) DO UPDATE SET
			data = CASE WHEN $6 THEN documents.data || excluded.data ELSE excluded.data END,
			updated_at = excluded.updated_at`
	_, err := q.Exec(ctx, query, p.OwnerUID, p.Collection, p.ID, data, time.Now().UTC(), merge)
	if err != nil {
		return fmt.Errorf("set document %s: %w", p, err)
	}
	return nil
}

// Delete borra un documento. Borrar un documento inexistente no es error.
func (s *DocumentStore) Delete(ctx context.Context, p store.Path) error {
	const query = `DELETE FROM documents WHERE owner_uid = $1 AND collection = $2 AND id = $3`
	if _, err := s.pool.Exec(ctx, query, p.OwnerUID, p.Collection, p.ID); err != nil {
		return fmt.Errorf("delete document %s: %w", p, err)
	}
	return nil
}

// RunTransaction ejecuta fn en una transacción SERIALIZABLE y la reintenta
// ante conflictos de serialización (40001) o deadlock (40P01), hasta
// txMaxAttempts intentos. Es el primitivo que usa el secuenciador de
// numeración para el read-increment-write del contador anual.
func (s *DocumentStore) RunTransaction(ctx context.Context, fn func(tx store.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= txMaxAttempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("transaction: reintentos agotados: %w", lastErr)
}

func (s *DocumentStore) runOnce(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implementa store.Tx sobre una pgx.Tx.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) Get(ctx context.Context, p store.Path) (*store.Document, error) {
	return getDoc(ctx, t.tx, p)
}

func (t *txStore) Set(ctx context.Context, p store.Path, data []byte, merge bool) error {
	return setDoc(ctx, t.tx, p, data, merge)
}

// isRetryable verifica si un error es un conflicto de serialización (40001)
// o un deadlock (40P01), ambos reintentables.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
