package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"menudocs/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_folders",
		SQL: `CREATE TABLE IF NOT EXISTS folders (
  id         BIGSERIAL   PRIMARY KEY,
  name       TEXT        NOT NULL,
  menu_name  TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_folders_menu_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_folders_menu_name ON folders (menu_name, name);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id           BIGSERIAL   PRIMARY KEY,
  file_type    TEXT        NOT NULL,
  name         TEXT        NOT NULL,
  menu_name    TEXT        NOT NULL,
  folder_name  TEXT,
  folder_id    BIGINT      REFERENCES folders (id) ON DELETE SET NULL,
  content_type TEXT        NOT NULL DEFAULT '',
  size         BIGINT      NOT NULL DEFAULT 0 CHECK (size >= 0),
  file         BYTEA,
  storage_key  TEXT        UNIQUE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_menu_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_menu_name ON documents (menu_name);`,
	},
	{
		Name: "create_index_documents_folder_name",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_folder_name ON documents (folder_name);`,
	},
}

// sentinel is the last object the steps create. Until it exists every step
// runs again; each one is idempotent, so a partially applied schema is
// completed on the next start.
const sentinel = "public.idx_documents_folder_name"

// EnsureMigrated creates the folders and documents tables and their indexes
// unless the sentinel index already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With(slog.String("component", "database"), slog.String("db_host", dbHost))

	log.InfoContext(ctx, "db_migration_check", slog.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	if err := db.QueryRowContext(ctx, query, sentinel).Scan(&exists); err != nil {
		log.ErrorContext(ctx, "db_migration_failed",
			slog.String("status", "error"),
			logger.Err(err),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel: %w", err)
	}

	if exists {
		log.InfoContext(ctx, "db_migration_skip",
			slog.String("status", "success"),
			slog.String("reason", "schema already exists"),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.InfoContext(ctx, "db_migration_start", slog.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.ErrorContext(ctx, "db_migration_failed",
				slog.String("status", "error"),
				slog.String("migration_step", step.Name),
				logger.Err(err),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.InfoContext(ctx, "db_migration_step",
			slog.String("status", "success"),
			slog.String("migration_step", step.Name),
			slog.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.InfoContext(ctx, "db_migration_success",
		slog.String("status", "success"),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return nil
}
