package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/worktime/worktime-backend/internal/records/naming"
	"github.com/worktime/worktime-backend/pkg/database"
	"github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// DefaultAggregateView is the name of the union view over all per-employee tables
const DefaultAggregateView = "all_work_records"

// schemaLockKey serializes table set changes so view rebuilds never race
const schemaLockKey int64 = 0x776f726b74696d65

// recordColumns is the column list every per-employee table exposes, in view order
const recordColumns = `id, activity_type_id, record_date, project_id, productivity_type_id, work_type_id, start_time, end_time, description, distance, locked, is_trip`

// emptyViewSelect keeps the view typed when no per-employee tables exist
const emptyViewSelect = `SELECT NULL::text AS source_table, NULL::bigint AS id, NULL::integer AS activity_type_id, ` +
	`NULL::date AS record_date, NULL::integer AS project_id, NULL::integer AS productivity_type_id, ` +
	`NULL::integer AS work_type_id, NULL::time AS start_time, NULL::time AS end_time, NULL::text AS description, ` +
	`NULL::numeric(10,2) AS distance, NULL::boolean AS locked, NULL::boolean AS is_trip WHERE false`

// TableStore issues the DDL for per-employee tables and the aggregate view
type TableStore struct {
	db     *database.DB
	view   string
	logger *logger.Logger
}

// NewTableStore creates a table store. An empty view name uses DefaultAggregateView.
func NewTableStore(db *database.DB, view string, log *logger.Logger) *TableStore {
	if view == "" {
		view = DefaultAggregateView
	}
	return &TableStore{
		db:     db,
		view:   view,
		logger: log.WithComponent("table_store"),
	}
}

// View returns the aggregate view name
func (s *TableStore) View() string {
	return s.view
}

// ListTables returns every per-employee table in the current schema, sorted
func (s *TableStore) ListTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema()
		  AND table_type = 'BASE TABLE'
		  AND table_name LIKE 't\_%\_%'
		ORDER BY table_name
	`

	var names []string
	if err := s.db.Conn(ctx).SelectContext(ctx, &names, query); err != nil {
		return nil, fmt.Errorf("failed to list employee tables: %w", err)
	}

	tables := make([]string, 0, len(names))
	for _, name := range names {
		if naming.IsTableName(name) {
			tables = append(tables, name)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

// Exists reports whether table is present in the current schema
func (s *TableStore) Exists(ctx context.Context, table string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`

	var exists bool
	if err := s.db.Conn(ctx).GetContext(ctx, &exists, query, table); err != nil {
		return false, err
	}
	return exists, nil
}

// Create creates table with the work record schema and rebuilds the view
// in the same transaction.
func (s *TableStore) Create(ctx context.Context, table string) error {
	if err := naming.Validate(table); err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.db.AdvisoryXactLock(ctx, schemaLockKey); err != nil {
			return errors.SchemaOperationFailed("create", table, err)
		}

		for _, stmt := range createTableStatements(table) {
			if _, err := s.db.Conn(ctx).ExecContext(ctx, stmt); err != nil {
				return errors.SchemaOperationFailed("create", table, err)
			}
		}

		if _, err := s.rebuild(ctx); err != nil {
			return err
		}

		s.logger.Info().Str("table", table).Msg("table provisioned")
		return nil
	})
}

// Rename renames oldTable to newTable in place and rebuilds the view. A
// missing oldTable is drift: it is logged and reported as renamed=false.
func (s *TableStore) Rename(ctx context.Context, oldTable, newTable string) (renamed bool, err error) {
	if oldTable == newTable {
		return false, nil
	}
	if err := naming.Validate(newTable); err != nil {
		return false, err
	}

	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.db.AdvisoryXactLock(ctx, schemaLockKey); err != nil {
			return errors.SchemaOperationFailed("rename", oldTable, err)
		}

		exists, err := s.Exists(ctx, oldTable)
		if err != nil {
			return errors.SchemaOperationFailed("rename", oldTable, err)
		}
		if !exists {
			s.logger.Warn().
				Str("old_table", oldTable).
				Str("new_table", newTable).
				Msg("rename skipped, table does not exist")
			return nil
		}

		stmt := fmt.Sprintf("ALTER TABLE %s RENAME TO %s", pq.QuoteIdentifier(oldTable), pq.QuoteIdentifier(newTable))
		if _, err := s.db.Conn(ctx).ExecContext(ctx, stmt); err != nil {
			return errors.SchemaOperationFailed("rename", oldTable, err)
		}

		if _, err := s.rebuild(ctx); err != nil {
			return err
		}

		renamed = true
		s.logger.Info().Str("old_table", oldTable).Str("new_table", newTable).Msg("table renamed")
		return nil
	})
	if err != nil {
		return false, err
	}
	return renamed, nil
}

// Drop removes table if it exists and rebuilds the view without it
func (s *TableStore) Drop(ctx context.Context, table string) error {
	return s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.db.AdvisoryXactLock(ctx, schemaLockKey); err != nil {
			return errors.SchemaOperationFailed("drop", table, err)
		}

		// the view depends on the table, so it goes first
		if _, err := s.rebuildExcluding(ctx, table); err != nil {
			return err
		}

		stmt := "DROP TABLE IF EXISTS " + pq.QuoteIdentifier(table)
		if _, err := s.db.Conn(ctx).ExecContext(ctx, stmt); err != nil {
			return errors.SchemaOperationFailed("drop", table, err)
		}

		s.logger.Info().Str("table", table).Msg("table dropped")
		return nil
	})
}

// RebuildView replaces the aggregate view with the union of all current
// per-employee tables and returns the tables it covers.
func (s *TableStore) RebuildView(ctx context.Context) ([]string, error) {
	var tables []string
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.db.AdvisoryXactLock(ctx, schemaLockKey); err != nil {
			return errors.SchemaOperationFailed("rebuild", s.view, err)
		}
		var err error
		tables, err = s.rebuild(ctx)
		return err
	})
	return tables, err
}

func (s *TableStore) rebuild(ctx context.Context) ([]string, error) {
	return s.rebuildExcluding(ctx, "")
}

func (s *TableStore) rebuildExcluding(ctx context.Context, exclude string) ([]string, error) {
	all, err := s.ListTables(ctx)
	if err != nil {
		return nil, errors.SchemaOperationFailed("rebuild", s.view, err)
	}

	tables := make([]string, 0, len(all))
	for _, t := range all {
		if t != exclude {
			tables = append(tables, t)
		}
	}

	for _, stmt := range []string{
		"DROP VIEW IF EXISTS " + pq.QuoteIdentifier(s.view),
		"CREATE VIEW " + pq.QuoteIdentifier(s.view) + " AS " + viewSelect(tables),
	} {
		if _, err := s.db.Conn(ctx).ExecContext(ctx, stmt); err != nil {
			return nil, errors.SchemaOperationFailed("rebuild", s.view, err)
		}
	}

	s.logger.Info().Str("view", s.view).Int("tables", len(tables)).Msg("aggregate view rebuilt")
	return tables, nil
}

// viewSelect builds the UNION ALL body of the aggregate view
func viewSelect(tables []string) string {
	if len(tables) == 0 {
		return emptyViewSelect
	}

	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("SELECT %s::text AS source_table, %s FROM %s",
			pq.QuoteLiteral(t), recordColumns, pq.QuoteIdentifier(t))
	}
	return strings.Join(parts, " UNION ALL ")
}

// createTableStatements returns the DDL for one per-employee table. Constraint
// and index names are random so they never collide after a rename.
func createTableStatements(table string) []string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	quoted := pq.QuoteIdentifier(table)

	return []string{
		fmt.Sprintf(`CREATE TABLE %s (
			id BIGINT GENERATED ALWAYS AS IDENTITY,
			activity_type_id INTEGER NOT NULL REFERENCES activity_types(id),
			record_date DATE NOT NULL,
			project_id INTEGER REFERENCES projects(id),
			productivity_type_id INTEGER REFERENCES productivity_types(id),
			work_type_id INTEGER REFERENCES work_types(id),
			start_time TIME NOT NULL,
			end_time TIME NOT NULL,
			description TEXT,
			distance NUMERIC(10,2) NOT NULL DEFAULT 0 CONSTRAINT distance_non_negative CHECK (distance >= 0),
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			is_trip BOOLEAN NOT NULL DEFAULT FALSE,
			CONSTRAINT %s PRIMARY KEY (id)
		)`, quoted, pq.QuoteIdentifier("wr_"+suffix+"_pkey")),
		fmt.Sprintf(`CREATE INDEX %s ON %s (record_date)`,
			pq.QuoteIdentifier("wr_"+suffix+"_record_date_idx"), quoted),
	}
}
