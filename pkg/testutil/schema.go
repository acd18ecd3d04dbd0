package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SchemaManager hands out throwaway PostgreSQL schemas so that each
// integration test gets its own employees, catalogs and per-employee tables.
type SchemaManager struct {
	db      *sqlx.DB
	schemas []string
	mu      sync.Mutex
}

// NewSchemaManager creates a new schema manager for tests
func NewSchemaManager(db *sqlx.DB) *SchemaManager {
	return &SchemaManager{
		db:      db,
		schemas: make([]string, 0),
	}
}

// CreateSchema creates a fresh schema named after prefix plus a random suffix.
func (sm *SchemaManager) CreateSchema(ctx context.Context, prefix string) (string, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	name := fmt.Sprintf("%s_%s", sanitize(prefix), suffix)

	if _, err := sm.db.ExecContext(ctx, "CREATE SCHEMA "+pq.QuoteIdentifier(name)); err != nil {
		return "", fmt.Errorf("failed to create test schema: %w", err)
	}

	sm.schemas = append(sm.schemas, name)
	return name, nil
}

// DropSchema removes a schema with everything in it
func (sm *SchemaManager) DropSchema(ctx context.Context, name string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, err := sm.db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+pq.QuoteIdentifier(name)+" CASCADE"); err != nil {
		return fmt.Errorf("failed to drop test schema %s: %w", name, err)
	}

	for i, s := range sm.schemas {
		if s == name {
			sm.schemas = append(sm.schemas[:i], sm.schemas[i+1:]...)
			break
		}
	}
	return nil
}

// Cleanup drops every schema that is still registered
func (sm *SchemaManager) Cleanup(ctx context.Context) error {
	sm.mu.Lock()
	remaining := append([]string(nil), sm.schemas...)
	sm.mu.Unlock()

	for _, name := range remaining {
		if err := sm.DropSchema(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// sanitize keeps schema prefixes to lower-case letters, digits and underscores
func sanitize(prefix string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(prefix) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "test"
	}
	out := b.String()
	if len(out) > 40 {
		out = out[:40]
	}
	return out
}
