// Package cache stores compiled programs keyed by a hash of their source, so
// unchanged files are not compiled again. Entries live in a SQL database:
// sqlite by default, postgres or mysql for shared caches.
package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/sambeau/braingoat/artifact"
)

// Entry describes a cached program.
type Entry struct {
	Hash         string
	SourceSize   int64
	StoredSize   int64
	Instructions int64
	Created      time.Time
}

// Cache is a build cache backed by database/sql.
type Cache struct {
	db      *sql.DB
	driver  string
	version string
	now     func() time.Time
}

var schemas = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS programs (
		hash TEXT PRIMARY KEY,
		source_size INTEGER NOT NULL,
		stored_size INTEGER NOT NULL,
		instructions INTEGER NOT NULL,
		code BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS programs (
		hash TEXT PRIMARY KEY,
		source_size BIGINT NOT NULL,
		stored_size BIGINT NOT NULL,
		instructions BIGINT NOT NULL,
		code BYTEA NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	"mysql": `CREATE TABLE IF NOT EXISTS programs (
		hash VARCHAR(64) PRIMARY KEY,
		source_size BIGINT NOT NULL,
		stored_size BIGINT NOT NULL,
		instructions BIGINT NOT NULL,
		code LONGBLOB NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// Open connects to the cache database and creates its table. Keys include
// version, so a new compiler never reuses old output.
func Open(ctx context.Context, driver, dsn, version string) (*Cache, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unknown cache driver %q (use sqlite, postgres or mysql)", driver)
	}

	connStr := dsn
	if driver == "sqlite" && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		connStr = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to cache database: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db, driver: driver, version: version, now: time.Now}, nil
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Key hashes a source text together with the compiler version.
func (c *Cache) Key(source string) string {
	h, _ := blake2b.New256([]byte(c.version))
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// rebind rewrites ? placeholders as $n for postgres.
func (c *Cache) rebind(query string) string {
	if c.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Get returns the program cached for source.
func (c *Cache) Get(ctx context.Context, source string) (string, bool, error) {
	var blob []byte
	err := c.db.QueryRowContext(ctx, c.rebind(`SELECT code FROM programs WHERE hash = ?`), c.Key(source)).Scan(&blob)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading cache: %w", err)
	}
	code, err := artifact.Decompress(blob)
	if err != nil {
		return "", false, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return string(code), true, nil
}

// Put stores the program compiled from source, replacing any older entry.
func (c *Cache) Put(ctx context.Context, source, code string) error {
	hash := c.Key(source)
	blob := artifact.Compress([]byte(code))

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, c.rebind(`DELETE FROM programs WHERE hash = ?`), hash); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	_, err = tx.ExecContext(ctx, c.rebind(`INSERT INTO programs (hash, source_size, stored_size, instructions, code, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		hash, len(source), len(blob), len(code), blob, c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	return tx.Commit()
}

// List returns every entry, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT hash, source_size, stored_size, instructions, created_at FROM programs ORDER BY created_at DESC, hash`)
	if err != nil {
		return nil, fmt.Errorf("listing cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.Hash, &e.SourceSize, &e.StoredSize, &e.Instructions, &created); err != nil {
			return nil, err
		}
		e.Created = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries created before t and returns how many were removed.
func (c *Cache) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM programs WHERE created_at < ?`), before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}

// PruneSize deletes the oldest entries until the stored programs fit in
// maxBytes. A limit of 0 keeps everything.
func (c *Cache) PruneSize(ctx context.Context, maxBytes int64) (int64, error) {
	if maxBytes <= 0 {
		return 0, nil
	}
	entries, err := c.List(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	var removed int64
	for _, e := range entries {
		total += e.StoredSize
		if total <= maxBytes {
			continue
		}
		if _, err := c.db.ExecContext(ctx, c.rebind(`DELETE FROM programs WHERE hash = ?`), e.Hash); err != nil {
			return removed, fmt.Errorf("pruning cache: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Clear deletes every entry.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM programs`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return res.RowsAffected()
}
