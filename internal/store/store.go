// Package store provides read-only access to the relational catalog of a
// notes store: accounts, folders, attachment rows, and the raw per-note
// payload blobs. It never writes to the database.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/schema"
)

// coreTimeOffset converts Core Data timestamps (seconds since 2001-01-01
// UTC) to Unix seconds.
const coreTimeOffset = 978307200

// Store wraps a read-only connection to a notes database.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens the database file read-only. The file must already exist;
// mode=ro keeps the driver from creating an empty store at the path.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{conn: conn, path: path}, nil
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Catalog reflects every table and its columns from the opened database.
// The result feeds schema.Detect.
func (s *Store) Catalog() (schema.Catalog, error) {
	rows, err := s.conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, fmt.Errorf("store: list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list tables: %w", err)
	}

	catalog := make(schema.Catalog, len(tables))
	for _, table := range tables {
		cols, err := s.tableColumns(table)
		if err != nil {
			return nil, err
		}
		catalog[table] = cols
	}
	return catalog, nil
}

// tableColumns reads the column names of one table. PRAGMA arguments
// cannot be bound, so the identifier is quoted inline.
func (s *Store) tableColumns(table string) (schema.ColumnSet, error) {
	rows, err := s.conn.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("store: table_info %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(schema.ColumnSet)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("store: scan table_info %s: %w", table, err)
		}
		cols[name] = struct{}{}
	}
	return cols, rows.Err()
}

// Detect reflects the catalog and runs schema detection over it.
func (s *Store) Detect() (*schema.Profile, error) {
	catalog, err := s.Catalog()
	if err != nil {
		return nil, err
	}
	return schema.Detect(catalog)
}

// UUID returns the store UUID from the metadata table, or "" when the
// table is absent or empty. Every known store version carries it, so a
// missing UUID only degrades AppleScript ID construction.
func (s *Store) UUID() string {
	var uuid sql.NullString
	err := s.conn.QueryRow(`SELECT Z_UUID FROM Z_METADATA LIMIT 1`).Scan(&uuid)
	if err != nil || !uuid.Valid {
		return ""
	}
	return uuid.String
}

// coreTime converts a Core Data timestamp to a time.Time in UTC.
// Non-positive inputs yield the zero time.
func coreTime(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	unix := sec + coreTimeOffset
	return time.Unix(int64(unix), int64((unix-float64(int64(unix)))*1e9)).UTC()
}
