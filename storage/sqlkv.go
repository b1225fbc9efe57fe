package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tolelom/scorechain/core"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// dialect holds the driver name and the statements that differ per engine.
type dialect struct {
	driver string
	schema string
	get    string
	upsert string
	del    string
	scan   string // prefix scan: k >= lower AND k < upper
	scanLo string // prefix scan without an upper bound
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS kv (k BLOB PRIMARY KEY, v BLOB NOT NULL)`,
	get:    `SELECT v FROM kv WHERE k = ?`,
	upsert: `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
	del:    `DELETE FROM kv WHERE k = ?`,
	scan:   `SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k`,
	scanLo: `SELECT k, v FROM kv WHERE k >= ? ORDER BY k`,
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS kv (k BYTEA PRIMARY KEY, v BYTEA NOT NULL)`,
	get:    `SELECT v FROM kv WHERE k = $1`,
	upsert: `INSERT INTO kv (k, v) VALUES ($1, $2) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`,
	del:    `DELETE FROM kv WHERE k = $1`,
	scan:   `SELECT k, v FROM kv WHERE k >= $1 AND k < $2 ORDER BY k`,
	scanLo: `SELECT k, v FROM kv WHERE k >= $1 ORDER BY k`,
}

// SQLDB implements DB as a single key-value table in SQLite or Postgres.
type SQLDB struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteDB opens (or creates) a SQLite key-value store at path.
func NewSQLiteDB(path string) (*SQLDB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open(sqliteDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	return newSQLDB(db, sqliteDialect)
}

// NewPostgresDB connects to a Postgres key-value store.
func NewPostgresDB(databaseURL string) (*SQLDB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres url is required")
	}
	db, err := sql.Open(postgresDialect.driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	return newSQLDB(db, postgresDialect)
}

func newSQLDB(db *sql.DB, d dialect) (*SQLDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", d.driver, err)
	}
	return &SQLDB{db: db, dialect: d}, nil
}

func (s *SQLDB) Get(key []byte) ([]byte, error) {
	var v []byte
	err := s.db.QueryRow(s.dialect.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *SQLDB) Set(key, value []byte) error {
	_, err := s.db.Exec(s.dialect.upsert, key, value)
	return err
}

func (s *SQLDB) Delete(key []byte) error {
	_, err := s.db.Exec(s.dialect.del, key)
	return err
}

// NewIterator loads the matching rows eagerly, so the iterator sees a
// consistent view even if the table changes while it is being walked.
func (s *SQLDB) NewIterator(prefix []byte) Iterator {
	var (
		rows *sql.Rows
		err  error
	)
	if upper := prefixUpperBound(prefix); upper != nil {
		rows, err = s.db.Query(s.dialect.scan, prefix, upper)
	} else {
		rows, err = s.db.Query(s.dialect.scanLo, prefix)
	}
	it := &sqlIter{idx: -1}
	if err != nil {
		it.err = err
		return it
	}
	defer rows.Close()
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			it.err = err
			return it
		}
		it.pairs = append(it.pairs, [2][]byte{k, v})
	}
	it.err = rows.Err()
	return it
}

func (s *SQLDB) NewBatch() Batch {
	return &sqlBatch{s: s}
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, or nil when no such bound exists (empty or all-0xff prefix).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

type sqlIter struct {
	pairs [][2][]byte
	idx   int
	err   error
}

func (it *sqlIter) Next() bool    { it.idx++; return it.err == nil && it.idx < len(it.pairs) }
func (it *sqlIter) Key() []byte   { return it.pairs[it.idx][0] }
func (it *sqlIter) Value() []byte { return it.pairs[it.idx][1] }
func (it *sqlIter) Release()      {}
func (it *sqlIter) Error() error  { return it.err }

type sqlOp struct {
	key   []byte
	value []byte // nil means delete
}

// sqlBatch applies its operations inside one SQL transaction.
type sqlBatch struct {
	s   *SQLDB
	ops []sqlOp
}

func (b *sqlBatch) Set(key, value []byte) {
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, sqlOp{key: append([]byte(nil), key...), value: v})
}

func (b *sqlBatch) Delete(key []byte) {
	b.ops = append(b.ops, sqlOp{key: append([]byte(nil), key...)})
}

func (b *sqlBatch) Reset() { b.ops = nil }

func (b *sqlBatch) Write() error {
	tx, err := b.s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, op := range b.ops {
		if op.value == nil {
			_, err = tx.Exec(b.s.dialect.del, op.key)
		} else {
			_, err = tx.Exec(b.s.dialect.upsert, op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}
