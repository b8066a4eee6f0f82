package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrInvalidCollection = errors.New("invalid collection name")

// maxIdentifierLen is the Postgres NAMEDATALEN limit minus the terminator.
const maxIdentifierLen = 63

type InsertResult struct {
	Collection    string `json:"collection"`
	InsertedCount int64  `json:"insertedCount"`
}

// DocumentStore archives raw order documents into named collections.
type DocumentStore interface {
	InsertMany(ctx context.Context, collection string, docs []json.RawMessage) (InsertResult, error)
}

type PoolSource interface {
	Pool() (*pgxpool.Pool, error)
}

// Store keeps every collection as a jsonb table in one schema.
type Store struct {
	pools  PoolSource
	schema string

	mu      sync.Mutex
	ensured map[string]bool
}

func NewStore(pools PoolSource, schema string) *Store {
	if schema == "" {
		schema = "transactions"
	}
	return &Store{pools: pools, schema: schema, ensured: map[string]bool{}}
}

func (s *Store) table(collection string) pgx.Identifier {
	return pgx.Identifier{s.schema, collection}
}

func ValidateCollection(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > maxIdentifierLen || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// InsertMany copies all documents in one statement, so either every document
// lands or none does. An empty batch never reaches the database.
func (s *Store) InsertMany(ctx context.Context, collection string, docs []json.RawMessage) (InsertResult, error) {
	res := InsertResult{Collection: collection}
	if len(docs) == 0 {
		return res, nil
	}
	if err := ValidateCollection(collection); err != nil {
		return res, err
	}
	pool, err := s.pools.Pool()
	if err != nil {
		return res, err
	}
	if err := s.ensureCollection(ctx, pool, collection); err != nil {
		return res, fmt.Errorf("ensure collection %s: %w", collection, err)
	}
	n, err := pool.CopyFrom(ctx, s.table(collection), []string{"doc"}, pgx.CopyFromSlice(len(docs), func(i int) ([]any, error) {
		return []any{docs[i]}, nil
	}))
	if err != nil {
		return res, err
	}
	res.InsertedCount = n
	return res, nil
}

func (s *Store) ensureCollection(ctx context.Context, pool *pgxpool.Pool, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[collection] {
		return nil
	}
	schema := pgx.Identifier{s.schema}.Sanitize()
	table := s.table(collection).Sanitize()
	index := pgx.Identifier{indexName(collection)}.Sanitize()
	stmts := []string{
		"create schema if not exists " + schema,
		"create table if not exists " + table + " (id bigserial primary key, doc jsonb not null, inserted_at timestamptz not null default now())",
		"create unique index if not exists " + index + " on " + table + " ((doc->>'_id'))",
	}
	for _, q := range stmts {
		if _, err := pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	s.ensured[collection] = true
	return nil
}

func indexName(collection string) string {
	name := collection + "_doc_id_key"
	if len(name) > maxIdentifierLen {
		name = name[len(name)-maxIdentifierLen:]
	}
	return name
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
