// Package db is the actor's Database capability: a SQLite adapter that
// gives the coordinator synchronous run/savepoint primitives plus an
// async durability fence (CommitCallback).
//
// A single *sql.Conn is held for the lifetime of an open implicit
// transaction so that raw SAVEPOINT/RELEASE/ROLLBACK TO statements and
// uncommitted reads all observe the same SQLite connection-local
// transaction state — database/sql's pooled Tx type has no notion of
// named savepoints, so the coordinator drives the transaction with bare
// BEGIN/COMMIT/SAVEPOINT statements executed directly on that connection.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Database is the capability surface the actor coordinator depends on.
// It never sees keys or values beyond opaque bytes, and it never decides
// ordering — the coordinator's Scheduler Coupler does that.
type Database interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error

	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetBatch(ctx context.Context, keys []string) (map[string][]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	GetAlarm(ctx context.Context) (*time.Time, error)
	SetAlarmRow(ctx context.Context, t *time.Time) error

	// CommitCallback is invoked after COMMIT TRANSACTION returns. The
	// output gate blocks on it; it models e.g. waiting for the WAL to be
	// replicated elsewhere. Defaults to an immediate no-op.
	CommitCallback(ctx context.Context) error

	Close() error
}

// CommitHook is invoked after every successful COMMIT TRANSACTION.
type CommitHook func(ctx context.Context) error

// Option configures a SQLite database.
type Option func(*SQLite)

// WithCommitCallback installs the durability-fence hook.
func WithCommitCallback(hook CommitHook) Option {
	return func(s *SQLite) { s.commitHook = hook }
}

// SQLite is the production Database implementation.
type SQLite struct {
	db         *sql.DB
	commitHook CommitHook

	// conn is the dedicated connection for the currently-open implicit
	// transaction, nil when no transaction is open.
	conn *sql.Conn
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string, opts ...Option) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLite{db: sqlDB, commitHook: func(ctx context.Context) error { return nil }}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS alarm (
		id       INTEGER PRIMARY KEY CHECK (id = 0),
		alarm_ms INTEGER
	);
	INSERT OR IGNORE INTO alarm (id, alarm_ms) VALUES (0, NULL);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLite) Close() error { return s.db.Close() }

// execer is whichever handle (conn or db) should run the next statement:
// inside an implicit transaction, all statements must go through the
// same *sql.Conn so they see each other's uncommitted writes.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLite) handle() execer {
	if s.conn != nil {
		return s.conn
	}
	return s.db
}

// Begin opens the root implicit transaction on a dedicated connection.
func (s *SQLite) Begin(ctx context.Context) error {
	if s.conn != nil {
		return fmt.Errorf("db: Begin called while a transaction is already open")
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("db: acquire conn: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		conn.Close()
		return fmt.Errorf("db: BEGIN TRANSACTION: %w", err)
	}
	s.conn = conn
	return nil
}

// Commit commits the root implicit transaction and releases the
// dedicated connection. It does not invoke CommitCallback — the
// coordinator calls that separately once it decides the commit should be
// externally observable.
func (s *SQLite) Commit(ctx context.Context) error {
	if s.conn == nil {
		return fmt.Errorf("db: Commit called with no open transaction")
	}
	_, err := s.conn.ExecContext(ctx, "COMMIT TRANSACTION")
	closeErr := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("db: COMMIT TRANSACTION: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("db: release conn after commit: %w", closeErr)
	}
	return nil
}

// Rollback aborts the root implicit transaction.
func (s *SQLite) Rollback(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	_, err := s.conn.ExecContext(ctx, "ROLLBACK TRANSACTION")
	s.conn.Close()
	s.conn = nil
	return err
}

// Savepoint creates a named nested savepoint inside the currently open
// transaction. Callers name savepoints `_cf_savepoint_N` by convention;
// this layer does not enforce the naming, it only forwards it to SQLite.
func (s *SQLite) Savepoint(ctx context.Context, name string) error {
	if s.conn == nil {
		return fmt.Errorf("db: Savepoint(%s) called with no open transaction", name)
	}
	_, err := s.conn.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name))
	return err
}

// Release releases (commits) a named savepoint into its parent.
func (s *SQLite) Release(ctx context.Context, name string) error {
	if s.conn == nil {
		return fmt.Errorf("db: Release(%s) called with no open transaction", name)
	}
	_, err := s.conn.ExecContext(ctx, "RELEASE "+quoteIdent(name))
	return err
}

// RollbackTo rolls back to a named savepoint without releasing it.
func (s *SQLite) RollbackTo(ctx context.Context, name string) error {
	if s.conn == nil {
		return fmt.Errorf("db: RollbackTo(%s) called with no open transaction", name)
	}
	_, err := s.conn.ExecContext(ctx, "ROLLBACK TO "+quoteIdent(name))
	return err
}

// Get reads a key, observing any uncommitted writes of the currently open
// transaction.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	row := s.handle().QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// GetBatch is a thin convenience wrapper over Get: the embedded engine has
// no multi-key SELECT...IN fast path worth the query-building complexity at
// this table's size, so it just loops. Missing keys are omitted from the
// result rather than erroring.
func (s *SQLite) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, ok, err := s.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get %q: %w", key, err)
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}

// Put stages a key/value write. Must be called within an open
// transaction (the coordinator always opens one before staging writes).
func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	return retryOnContention(func() error {
		_, err := s.handle().ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value)
		return err
	})
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	return retryOnContention(func() error {
		_, err := s.handle().ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		return err
	})
}

// GetAlarm returns the currently durable alarm time, or nil if unset.
func (s *SQLite) GetAlarm(ctx context.Context) (*time.Time, error) {
	row := s.handle().QueryRowContext(ctx, `SELECT alarm_ms FROM alarm WHERE id = 0`)
	var ms sql.NullInt64
	if err := row.Scan(&ms); err != nil {
		return nil, err
	}
	if !ms.Valid {
		return nil, nil
	}
	t := time.UnixMilli(ms.Int64).UTC()
	return &t, nil
}

// SetAlarmRow stages the alarm time. Must be called within an open
// transaction.
func (s *SQLite) SetAlarmRow(ctx context.Context, t *time.Time) error {
	var ms sql.NullInt64
	if t != nil {
		ms = sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
	}
	return retryOnContention(func() error {
		_, err := s.handle().ExecContext(ctx, `UPDATE alarm SET alarm_ms = ? WHERE id = 0`, ms)
		return err
	})
}

// CommitCallback invokes the configured durability-fence hook.
func (s *SQLite) CommitCallback(ctx context.Context) error {
	return s.commitHook(ctx)
}

// quoteIdent wraps a savepoint name in double quotes. Savepoint names in
// this codebase are always generated internally (`_cf_savepoint_N`), never
// taken from untrusted input, so quoting alone is sufficient; embedded
// double quotes are not escaped.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

var _ Database = (*SQLite)(nil)
