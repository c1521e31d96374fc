package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const ledgerTable = "schema_history"

const (
	kindMigration = "migration"
	kindSeed      = "seed"
)

// Runner applies SQL migration and seed files from disk and records
// what has been applied in a single bookkeeping table.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// NewRunner constructs a Runner over the given directories. Either
// directory may be empty, in which case the corresponding operations
// are no-ops.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string) *Runner {
	return &Runner{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}
}

// Up applies all pending .up.sql migrations in lexical order.
func (r *Runner) Up(ctx context.Context) error {
	return r.applyDir(ctx, r.migrationsDir, ".up.sql", kindMigration)
}

// Seed applies all pending seed files. Each file runs at most once.
func (r *Runner) Seed(ctx context.Context) error {
	return r.applyDir(ctx, r.seedsDir, ".sql", kindSeed)
}

// Down rolls back the most recently applied migration using its
// matching .down.sql file.
func (r *Runner) Down(ctx context.Context) error {
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	applied, err := r.Status(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return errors.New("nothing to roll back")
	}
	last := applied[len(applied)-1]
	down := strings.TrimSuffix(filepath.Join(r.migrationsDir, last), ".up.sql") + ".down.sql"
	if _, err := os.Stat(down); err != nil {
		return fmt.Errorf("no down migration for %s", last)
	}
	if err := r.runFile(ctx, down); err != nil {
		return fmt.Errorf("roll back %s: %w", last, err)
	}
	_, err = r.db.ExecContext(ctx,
		`delete from `+ledgerTable+` where name = $1 and kind = $2`, last, kindMigration)
	return err
}

// Status returns the names of applied migrations in apply order.
func (r *Runner) Status(ctx context.Context) ([]string, error) {
	if err := r.ensureLedger(ctx); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`select name from `+ledgerTable+` where kind = $1 order by applied_at asc, name asc`, kindMigration)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Runner) applyDir(ctx context.Context, dir, suffix, kind string) error {
	if dir == "" {
		return nil
	}
	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	done, err := r.appliedSet(ctx, kind)
	if err != nil {
		return err
	}
	files, err := listSQL(dir, suffix)
	if err != nil {
		return err
	}
	for _, name := range files {
		if done[name] {
			continue
		}
		if err := r.runFile(ctx, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx,
			`insert into `+ledgerTable+`(name, kind, applied_at) values ($1, $2, $3)`,
			name, kind, time.Now().UTC()); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ensureLedger(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		create table if not exists `+ledgerTable+` (
			name text not null,
			kind text not null,
			applied_at timestamptz not null default now(),
			primary key (name, kind)
		)`)
	return err
}

func (r *Runner) appliedSet(ctx context.Context, kind string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`select name from `+ledgerTable+` where kind = $1`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = true
	}
	return set, rows.Err()
}

// runFile executes every statement in the file inside one transaction.
func (r *Runner) runFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func listSQL(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements splits SQL on semicolons outside of single-quoted
// string literals. Dollar-quoted bodies are not handled; migration
// files here keep functions out of schema files.
func splitStatements(script string) []string {
	var out []string
	var cur strings.Builder
	inString := false
	for _, r := range script {
		cur.WriteRune(r)
		switch r {
		case '\'':
			inString = !inString
		case ';':
			if !inString {
				out = append(out, cur.String())
				cur.Reset()
			}
		}
	}
	if strings.TrimSpace(cur.String()) != "" {
		out = append(out, cur.String())
	}
	return out
}
