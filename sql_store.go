package sesh

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// sqlBufferPool holds scratch buffers for encode. encode takes and returns
// one per call, but the Codec allocates its own output, so the pooled
// buffer is not written to.
var sqlBufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// SQLDialect abstracts the handful of places Postgres and SQLite disagree:
// placeholder syntax and the upsert clause. Everything else -- the table
// shape, the queries, the TTL handling -- is shared.
type SQLDialect interface {
	// Placeholder returns the bind placeholder for the nth (1-based)
	// parameter in a query.
	Placeholder(n int) string
	// UpsertSuffix returns the "ON CONFLICT ..." (or equivalent) clause
	// appended to the INSERT statement that backs Create/Update.
	UpsertSuffix() string
}

// PostgresDialect targets lib/pq.
type PostgresDialect struct{}

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (PostgresDialect) UpsertSuffix() string {
	return "ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at"
}

// SQLiteDialect targets modernc.org/sqlite.
type SQLiteDialect struct{}

func (SQLiteDialect) Placeholder(n int) string { return "?" }
func (SQLiteDialect) UpsertSuffix() string {
	return "ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at"
}

// SQLStoreConfig configures a SQLStore.
type SQLStoreConfig struct {
	Dialect         SQLDialect
	Codec           Codec
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MaxSessionBytes int // 0 disables the limit.
}

// SQLStore implements SessionStore over database/sql, supplementing the
// Redis/memory backends with a durable, dependency-light option: any
// driver registered under database/sql works, as long as a matching
// SQLDialect is supplied. NewSQLStore creates the table if it is missing.
type SQLStore[T any] struct {
	db              *sql.DB
	dialect         SQLDialect
	codec           Codec
	maxSessionBytes int

	mu         sync.Mutex // serializes writes; needed for SQLite under WAL
	saveStmt   *sql.Stmt
	getStmt    *sql.Stmt
	deleteStmt *sql.Stmt
	ttlStmt    *sql.Stmt
}

const sqlCreateTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	data BLOB,
	expires_at TIMESTAMP NOT NULL
)`

const sqlCreateIndex = `CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`

// NewSQLStore opens driverName/dsn and prepares the sessions table and
// statements. The caller picks dialect to match the driver: PostgresDialect{}
// for lib/pq, SQLiteDialect{} for modernc.org/sqlite.
func NewSQLStore[T any](driverName, dsn string, cfg SQLStoreConfig) (*SQLStore[T], error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sesh: open %s database: %w", driverName, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sesh: ping %s database: %w", driverName, err)
	}
	if _, err := db.Exec(sqlCreateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("sesh: create sessions table: %w", err)
	}
	if _, err := db.Exec(sqlCreateIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("sesh: create sessions index: %w", err)
	}

	codec := cfg.Codec
	if codec == nil {
		codec = DefaultCodec
	}

	s := &SQLStore[T]{
		db:              db,
		dialect:         cfg.Dialect,
		codec:           codec,
		maxSessionBytes: cfg.MaxSessionBytes,
	}

	d := s.dialect
	s.saveStmt, err = db.Prepare(fmt.Sprintf(
		"INSERT INTO sessions (id, data, expires_at) VALUES (%s, %s, %s) %s",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.UpsertSuffix(),
	))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sesh: prepare save statement: %w", err)
	}
	s.getStmt, err = db.Prepare(fmt.Sprintf(
		"SELECT data, expires_at FROM sessions WHERE id = %s AND expires_at > %s",
		d.Placeholder(1), d.Placeholder(2),
	))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("sesh: prepare get statement: %w", err)
	}
	s.deleteStmt, err = db.Prepare(fmt.Sprintf("DELETE FROM sessions WHERE id = %s", d.Placeholder(1)))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("sesh: prepare delete statement: %w", err)
	}
	s.ttlStmt, err = db.Prepare(fmt.Sprintf(
		"UPDATE sessions SET expires_at = %s WHERE id = %s AND expires_at > %s",
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
	))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("sesh: prepare ttl statement: %w", err)
	}

	return s, nil
}

// Close releases the prepared statements and the underlying *sql.DB.
func (s *SQLStore[T]) Close() error {
	for _, stmt := range []*sql.Stmt{s.saveStmt, s.getStmt, s.deleteStmt, s.ttlStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

func (s *SQLStore[T]) encode(data T) ([]byte, error) {
	buf := sqlBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer sqlBufferPool.Put(buf)

	encoded, err := s.codec.Encode(data)
	if err != nil {
		return nil, errWrapSerde(err)
	}
	if s.maxSessionBytes > 0 && len(encoded) > s.maxSessionBytes {
		return nil, NewStoreError("encoded session (%s) exceeds the configured %s limit",
			humanize.Bytes(uint64(len(encoded))), humanize.Bytes(uint64(s.maxSessionBytes)))
	}
	return encoded, nil
}

func (s *SQLStore[T]) Create(ctx context.Context, data T, ttl time.Time) (SessionKey, error) {
	encoded, err := s.encode(data)
	if err != nil {
		return SessionKey{}, err
	}

	key, err := GenerateKey()
	if err != nil {
		return SessionKey{}, NewStoreError("generate key: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.saveStmt.ExecContext(ctx, key.Encode(), encoded, ttl.UTC()); err != nil {
		return SessionKey{}, errWrapBackend(err)
	}
	return key, nil
}

func (s *SQLStore[T]) Load(ctx context.Context, key SessionKey) (Record[T], bool, error) {
	var encoded []byte
	var expiresAt time.Time

	err := s.getStmt.QueryRowContext(ctx, key.Encode(), time.Now().UTC()).Scan(&encoded, &expiresAt)
	if err == sql.ErrNoRows {
		return Record[T]{}, false, nil
	}
	if err != nil {
		return Record[T]{}, false, errWrapBackend(err)
	}

	var data T
	if err := s.codec.Decode(encoded, &data); err != nil {
		return Record[T]{}, false, errWrapSerde(err)
	}
	return Record[T]{Data: data, TTL: expiresAt}, true, nil
}

func (s *SQLStore[T]) Update(ctx context.Context, key SessionKey, data T, ttl time.Time) error {
	encoded, err := s.encode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.saveStmt.ExecContext(ctx, key.Encode(), encoded, ttl.UTC()); err != nil {
		return errWrapBackend(err)
	}
	return nil
}

// UpdateTTL is a no-op, not an error, against a key that is absent or whose
// record has already passed its expires_at -- the WHERE clause's
// expires_at > now guard keeps it from resurrecting an expired row that
// just hasn't been reaped yet.
func (s *SQLStore[T]) UpdateTTL(ctx context.Context, key SessionKey, ttl time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ttlStmt.ExecContext(ctx, ttl.UTC(), key.Encode(), time.Now().UTC()); err != nil {
		return errWrapBackend(err)
	}
	return nil
}

func (s *SQLStore[T]) Delete(ctx context.Context, key SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.deleteStmt.ExecContext(ctx, key.Encode()); err != nil {
		return errWrapBackend(err)
	}
	return nil
}

var _ SessionStore[struct{}] = (*SQLStore[struct{}])(nil)
