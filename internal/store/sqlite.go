package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

const documentsTable = "documents"

var sqlBuilder = entsql.Dialect(dialect.SQLite)

// SQLiteBackend keeps every collection in one table of JSON documents.
// It also hosts the LLM event log.
type SQLiteBackend struct {
	db  *sql.DB
	seq *sequenceCounter
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens the database at dsn, applies pragmas and creates the
// tables.
func OpenSQLite(dsn string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: writes serialize anyway, and in-memory databases
	// live as long as their last connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (b *SQLiteBackend) DB() *sql.DB { return b.db }

func (b *SQLiteBackend) Collection(name string) Collection {
	return &sqliteCollection{backend: b, name: name}
}

func (b *SQLiteBackend) Ping(ctx context.Context) error { return b.db.PingContext(ctx) }

func (b *SQLiteBackend) Close(context.Context) error { return b.db.Close() }

// Events returns the LLM event log kept in this database.
func (b *SQLiteBackend) Events() *EventLog {
	return &EventLog{db: b.db, seq: b.seq}
}

// applyPragmas configures SQLite for a single-process service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			doc TEXT NOT NULL,
			created_seq INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS documents_learner
			ON documents (collection, json_extract(doc, '$.usuario'))`,
		`CREATE TABLE IF NOT EXISTS llm_events (
			seq INTEGER PRIMARY KEY,
			ts INTEGER NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			purpose TEXT NOT NULL,
			learner TEXT NOT NULL DEFAULT '',
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			success INTEGER NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			request_body TEXT NOT NULL DEFAULT '',
			response_body TEXT NOT NULL DEFAULT ''
		)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. RUTEALO_DB environment variable
// 2. $XDG_DATA_HOME/rutealo/rutealo.db
// 3. ~/.local/share/rutealo/rutealo.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("RUTEALO_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "rutealo", "rutealo.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

type sqliteCollection struct {
	backend *SQLiteBackend
	name    string
}

// where compiles f into json_extract equalities scoped to the collection.
func (c *sqliteCollection) where(f Filter) *entsql.Predicate {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	preds := []*entsql.Predicate{entsql.EQ("collection", c.name)}
	for _, k := range keys {
		preds = append(preds, entsql.ExprP("json_extract(doc, ?) = ?", "$."+k, sqliteValue(f[k])))
	}
	return entsql.And(preds...)
}

// sqliteValue maps a filter value to what json_extract yields for it.
func sqliteValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}

func (c *sqliteCollection) selectDocs(f Filter, o findOptions, columns ...string) *entsql.Selector {
	sel := sqlBuilder.Select(columns...).From(entsql.Table(documentsTable)).Where(c.where(f))
	if o.sortDesc != "" {
		sel.OrderExpr(entsql.Expr("julianday(json_extract(doc, ?)) DESC", "$."+o.sortDesc))
		sel.OrderBy(entsql.Desc("created_seq"))
	} else {
		sel.OrderBy("created_seq")
	}
	if o.limit > 0 {
		sel.Limit(o.limit)
	}
	return sel
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *sqliteCollection) queryDocs(ctx context.Context, q querier, sel *entsql.Selector) ([]string, error) {
	query, args := sel.Query()
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var docs []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.name, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (c *sqliteCollection) FindOne(ctx context.Context, f Filter, out any, opts ...FindOption) (bool, error) {
	o := applyFindOptions(opts)
	o.limit = 1
	docs, err := c.queryDocs(ctx, c.backend.db, c.selectDocs(f, o, "doc"))
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, nil
	}
	if err := json.Unmarshal([]byte(docs[0]), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", c.name, err)
	}
	return true, nil
}

func (c *sqliteCollection) Find(ctx context.Context, f Filter, out any, opts ...FindOption) error {
	docs, err := c.queryDocs(ctx, c.backend.db, c.selectDocs(f, applyFindOptions(opts), "doc"))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, d := range docs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(d)
	}
	buf.WriteByte(']')
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("decode %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCollection) insert(ctx context.Context, q querier, doc any, seq int64) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	query, args := sqlBuilder.Insert(documentsTable).
		Columns("id", "collection", "doc", "created_seq").
		Values(uuid.NewString(), c.name, string(b), seq).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", c.name, err)
	}
	return nil
}

func (c *sqliteCollection) InsertOne(ctx context.Context, doc any) error {
	seq, err := c.backend.seq.Next(ctx)
	if err != nil {
		return err
	}
	return c.insert(ctx, c.backend.db, doc, seq)
}

func (c *sqliteCollection) ReplaceOne(ctx context.Context, f Filter, doc any) error {
	seq, err := c.backend.seq.Next(ctx)
	if err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := c.deleteIDs(ctx, tx, f, 1); err != nil {
			return err
		}
		return c.insert(ctx, tx, doc, seq)
	})
}

func (c *sqliteCollection) UpdateOne(ctx context.Context, f Filter, set map[string]any) (bool, error) {
	patch, err := toJSONFields(set)
	if err != nil {
		return false, fmt.Errorf("encode %s update: %w", c.name, err)
	}

	matched := false
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		query, args := c.selectDocs(f, findOptions{limit: 1}, "id", "doc").Query()
		var id, raw string
		switch err := tx.QueryRowContext(ctx, query, args...).Scan(&id, &raw); {
		case err == sql.ErrNoRows:
			return nil
		case err != nil:
			return fmt.Errorf("query %s: %w", c.name, err)
		}
		matched = true

		var doc map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return fmt.Errorf("decode %s: %w", c.name, err)
		}
		for k, v := range patch {
			doc[k] = v
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.name, err)
		}

		query, args = sqlBuilder.Update(documentsTable).Set("doc", string(b)).Where(entsql.EQ("id", id)).Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update %s: %w", c.name, err)
		}
		return nil
	})
	return matched, err
}

func toJSONFields(set map[string]any) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(set))
	for k, v := range set {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}

func (c *sqliteCollection) DeleteOne(ctx context.Context, f Filter) (int64, error) {
	var n int64
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = c.deleteIDs(ctx, tx, f, 1)
		return err
	})
	return n, err
}

func (c *sqliteCollection) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	query, args := sqlBuilder.Delete(documentsTable).Where(c.where(f)).Query()
	res, err := c.backend.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return res.RowsAffected()
}

// deleteIDs deletes up to limit matching documents, oldest first.
func (c *sqliteCollection) deleteIDs(ctx context.Context, tx *sql.Tx, f Filter, limit int) (int64, error) {
	sel := c.selectDocs(f, findOptions{limit: limit}, "id")
	query, args := sel.Query()
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", c.name, err)
	}
	var ids []any
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if len(ids) == 0 {
		return 0, rows.Err()
	}

	query, args = sqlBuilder.Delete(documentsTable).Where(entsql.In("id", ids...)).Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", c.name, err)
	}
	return res.RowsAffected()
}

func (c *sqliteCollection) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.backend.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
