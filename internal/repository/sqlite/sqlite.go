// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code — no C compiler needed, works everywhere Go works.
//
// SCHEMA OVERVIEW:
//
//	users ──< tags                 (tags.user_id, ON DELETE CASCADE)
//	users ──< ingredients          (ingredients.user_id, ON DELETE CASCADE)
//	users ──< recipes              (recipes.user_id, ON DELETE CASCADE)
//	recipes >──< tags              via recipe_tags
//	recipes >──< ingredients       via recipe_ingredients
//
// Deleting a user removes everything they own; deleting a recipe or a tag
// removes only the link rows.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Importing the driver registers "sqlite" with database/sql; the named
	// imports are also used to classify constraint errors.
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements every interface in the repository package.
type DB struct {
	conn *sql.DB
}

// querier is the subset of *sql.DB and *sql.Tx the query helpers need, so the
// same helper can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/recipes.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests; lost on close)
//
// SINGLE CONNECTION:
// The pool is capped at one connection. SQLite serialises writers anyway, the
// foreign_keys pragma is per connection, and an in-memory database exists only
// inside the connection that created it. One connection keeps all three true.
// The flip side: never issue a query while a *sql.Rows is still open.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight. For :memory: SQLite
	// answers "memory" and carries on.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. Ownership cascades depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// every start.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				name          TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				is_active     INTEGER NOT NULL DEFAULT 1,
				is_staff      INTEGER NOT NULL DEFAULT 0,
				is_superuser  INTEGER NOT NULL DEFAULT 0,
				created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);`},
		{"tags", `
			CREATE TABLE IF NOT EXISTS tags (
				id      INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name    TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_tags_user_id ON tags(user_id);`},
		{"ingredients", `
			CREATE TABLE IF NOT EXISTS ingredients (
				id      INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name    TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_ingredients_user_id ON ingredients(user_id);`},
		{"recipes", `
			CREATE TABLE IF NOT EXISTS recipes (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title        TEXT NOT NULL,
				time_minutes INTEGER NOT NULL,
				price        TEXT NOT NULL,
				link         TEXT NOT NULL DEFAULT '',
				image        TEXT NOT NULL DEFAULT '',
				created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_recipes_user_id ON recipes(user_id);`},
		{"recipe_tags", `
			CREATE TABLE IF NOT EXISTS recipe_tags (
				recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				tag_id    INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				PRIMARY KEY (recipe_id, tag_id)
			);
			CREATE INDEX IF NOT EXISTS idx_recipe_tags_tag_id ON recipe_tags(tag_id);`},
		{"recipe_ingredients", `
			CREATE TABLE IF NOT EXISTS recipe_ingredients (
				recipe_id     INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				ingredient_id INTEGER NOT NULL REFERENCES ingredients(id) ON DELETE CASCADE,
				PRIMARY KEY (recipe_id, ingredient_id)
			);
			CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_ingredient_id
				ON recipe_ingredients(ingredient_id);`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlitedrv.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// placeholders returns "?,?,?" for n arguments and the ids converted to []any.
func placeholders(ids []int64) (string, []any) {
	args := make([]any, len(ids))
	buf := make([]byte, 0, 2*len(ids))
	for i, id := range ids {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, '?')
		args[i] = id
	}
	return string(buf), args
}
