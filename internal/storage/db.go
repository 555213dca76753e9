package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DB wraps the SQL connection used by the release and revision stores.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the given backend and runs migrations. For sqlite the
// dsn is a file path; its directory is created if missing.
func Open(driver, dsn string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		conn, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite only supports one writer, limit to a single connection to prevent SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	case DriverPostgres:
		conn, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	case DriverMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		conn, err = sql.Open("mysql", cfg.FormatDSN())
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the backend name.
func (db *DB) Driver() string {
	return db.driver
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// rebind rewrites ? placeholders to $n for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (db *DB) exec(query string, args ...any) (sql.Result, error) {
	return db.conn.Exec(db.rebind(query), args...)
}

func (db *DB) query(query string, args ...any) (*sql.Rows, error) {
	return db.conn.Query(db.rebind(query), args...)
}

func (db *DB) queryRow(query string, args ...any) *sql.Row {
	return db.conn.QueryRow(db.rebind(query), args...)
}

// column types per dialect
func (db *DB) types() (id, text, ts string) {
	switch db.driver {
	case DriverPostgres:
		return "TEXT", "TEXT", "TIMESTAMPTZ"
	case DriverMySQL:
		return "VARCHAR(64)", "LONGTEXT", "DATETIME(6)"
	default:
		return "TEXT", "TEXT", "DATETIME"
	}
}

func (db *DB) migrate() error {
	id, text, ts := db.types()
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS releases (
			id ` + id + ` PRIMARY KEY,
			name ` + text + ` NOT NULL,
			theme_schema ` + text + ` NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS revisions (
			id ` + id + ` PRIMARY KEY,
			release_id ` + id + ` NOT NULL,
			seq INTEGER NOT NULL,
			label ` + text + ` NOT NULL,
			snapshot_json ` + text + ` NOT NULL,
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX idx_revisions_release ON revisions(release_id, seq)`,
		`CREATE TABLE IF NOT EXISTS settings (
			name ` + id + ` PRIMARY KEY,
			value ` + text + ` NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			// CREATE INDEX has no IF NOT EXISTS on mysql, so reruns report a duplicate
			if strings.HasPrefix(m, "CREATE INDEX") && isDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}
	return nil
}

func isDuplicateIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate key name")
}
