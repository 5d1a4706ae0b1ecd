package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/muhammadchandra19/exchange/pkg/errors"
	"github.com/muhammadchandra19/exchange/pkg/logger"
	"github.com/muhammadchandra19/exchange/pkg/questdb"
)

// Migration represents a database migration
type Migration struct {
	ID        string
	Name      string
	Timestamp time.Time
	UpSQL     string
	DownSQL   string
}

// Runner applies and reverts migrations found in a filesystem.
//
// QuestDB has no row deletes, so schema_migrations is an append-only log:
// every apply or revert writes a row and the latest row per id wins.
type Runner struct {
	client questdb.QuestDBClient
	logger logger.Interface
	source fs.FS
}

// NewRunner creates a new migration runner reading *.up.sql and *.down.sql from source.
func NewRunner(client questdb.QuestDBClient, log logger.Interface, source fs.FS) *Runner {
	return &Runner{
		client: client,
		logger: log,
		source: source,
	}
}

const createMigrationTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	id SYMBOL,
	name STRING,
	applied BOOLEAN,
	recorded_at TIMESTAMP
) TIMESTAMP(recorded_at) PARTITION BY YEAR`

const selectMigrationsSQL = `SELECT id, applied FROM schema_migrations ORDER BY recorded_at`

const recordMigrationSQL = `INSERT INTO schema_migrations (id, name, applied, recorded_at) VALUES ($1, $2, $3, now())`

// EnsureMigrationTable creates the schema_migrations table if it doesn't exist.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	if err := r.client.Exec(ctx, createMigrationTableSQL); err != nil {
		return errors.NewTracer("failed to create schema_migrations").Wrap(err)
	}
	return nil
}

// GetAppliedMigrations returns the set of currently applied migration IDs.
func (r *Runner) GetAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := r.client.Query(ctx, selectMigrationsSQL)
	if err != nil {
		return nil, errors.NewTracer("failed to query schema_migrations").Wrap(err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var (
			id string
			ok bool
		)
		if err := rows.Scan(&id, &ok); err != nil {
			return nil, errors.NewTracer("failed to scan schema_migrations").Wrap(err)
		}
		if ok {
			applied[id] = true
		} else {
			delete(applied, id)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, errors.NewTracer("failed to iterate schema_migrations").Wrap(err)
	}

	return applied, nil
}

// LoadMigrations loads all migrations from the source, ordered by ID.
func (r *Runner) LoadMigrations() ([]Migration, error) {
	upFiles, err := fs.Glob(r.source, "*.up.sql")
	if err != nil {
		return nil, err
	}

	sort.Strings(upFiles)

	migrations := make([]Migration, 0, len(upFiles))
	for _, upFile := range upFiles {
		m, err := r.parseMigrationFiles(upFile)
		if err != nil {
			return nil, errors.NewTracer(fmt.Sprintf("failed to parse migration %s", upFile)).Wrap(err)
		}
		migrations = append(migrations, m)
	}

	return migrations, nil
}

func (r *Runner) parseMigrationFiles(upFile string) (Migration, error) {
	upContent, err := fs.ReadFile(r.source, upFile)
	if err != nil {
		return Migration{}, err
	}

	id := strings.TrimSuffix(path.Base(upFile), ".up.sql")
	downFile := strings.TrimSuffix(upFile, ".up.sql") + ".down.sql"

	// file names look like YYYYMMDDHHMMSS_name
	parts := strings.SplitN(id, "_", 2)
	name := id
	if len(parts) > 1 {
		name = parts[1]
	}

	timestamp, err := time.Parse("20060102150405", parts[0])
	if err != nil {
		timestamp = time.Unix(0, 0)
	}

	var downSQL string
	if downContent, err := fs.ReadFile(r.source, downFile); err == nil {
		downSQL = strings.TrimSpace(string(downContent))
	}

	return Migration{
		ID:        id,
		Name:      name,
		Timestamp: timestamp,
		UpSQL:     strings.TrimSpace(string(upContent)),
		DownSQL:   downSQL,
	}, nil
}

// MigrateUp applies up to steps pending migrations; steps <= 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toApply []Migration
	for _, m := range migrations {
		if !applied[m.ID] {
			toApply = append(toApply, m)
		}
	}

	if steps > 0 && len(toApply) > steps {
		toApply = toApply[:steps]
	}

	for _, m := range toApply {
		if m.UpSQL == "" {
			r.logger.Warn("migration has no up statement", logger.Field{Key: "id", Value: m.ID})
			continue
		}

		for _, stmt := range splitStatements(m.UpSQL) {
			if err := r.client.Exec(ctx, stmt); err != nil {
				return errors.NewTracer(fmt.Sprintf("failed to apply migration %s", m.ID)).Wrap(err)
			}
		}

		if err := r.client.Exec(ctx, recordMigrationSQL, m.ID, m.Name, true); err != nil {
			return errors.NewTracer(fmt.Sprintf("failed to record migration %s", m.ID)).Wrap(err)
		}

		r.logger.Info("applied migration", logger.Field{Key: "id", Value: m.ID})
	}

	return nil
}

// MigrateDown reverts the latest steps applied migrations.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return errors.NewErrorDetails("steps must be greater than 0 for down migrations", string(errors.MigrationError), "steps")
	}

	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0 && len(toRevert) < steps; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
		}
	}

	for _, m := range toRevert {
		if m.DownSQL == "" {
			return errors.NewErrorDetails(fmt.Sprintf("no down statement for migration %s", m.ID), string(errors.MigrationError), m.ID)
		}

		for _, stmt := range splitStatements(m.DownSQL) {
			if err := r.client.Exec(ctx, stmt); err != nil {
				return errors.NewTracer(fmt.Sprintf("failed to revert migration %s", m.ID)).Wrap(err)
			}
		}

		if err := r.client.Exec(ctx, recordMigrationSQL, m.ID, m.Name, false); err != nil {
			return errors.NewTracer(fmt.Sprintf("failed to record revert of %s", m.ID)).Wrap(err)
		}

		r.logger.Info("reverted migration", logger.Field{Key: "id", Value: m.ID})
	}

	return nil
}

// splitStatements splits a script on semicolons, dropping blank statements and comment lines.
func splitStatements(script string) []string {
	var cleaned []string
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
