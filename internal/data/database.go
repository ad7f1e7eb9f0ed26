package data

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go-journal-app/internal/config"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// NewDB creates a new database connection pool.
func NewDB(cfg config.DBConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMySQL
	}
	dsn := cfg.DSN
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverMySQL:
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	}
	// sqlx.Connect opens a connection and pings it to verify it's alive.
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	return db, nil
}

// ApplyMigrations runs all up migrations found under migrationsPath/<driver>.
func ApplyMigrations(driver, dsn, migrationsPath string) error {
	var databaseURL string
	switch driver {
	case DriverSQLite:
		databaseURL = "sqlite3://" + dsn
	case DriverMySQL, "":
		driver = DriverMySQL
		// Migration files hold several statements each.
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		databaseURL = fmt.Sprintf("mysql://%s%smultiStatements=true", dsn, sep)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	absPath, err := filepath.Abs(filepath.Join(migrationsPath, driver))
	if err != nil {
		return fmt.Errorf("failed to get absolute path for migrations: %w", err)
	}
	sourceURL := fmt.Sprintf("file://%s", absPath)

	m, err := migrate.New(sourceURL, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// sqliteDSN makes every SQLite transaction take the write lock up front and
// wait for it, so read-then-write transactions cannot interleave.
func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(dsn, "_foreign_keys") {
		params = append(params, "_foreign_keys=on")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// mysqlDSN forces the connection options the repositories rely on: DATETIME
// columns scanned as UTC time.Time, and UPDATE reporting matched rather than
// changed rows so an unchanged save is not mistaken for a missing row.
func mysqlDSN(dsn string) (string, error) {
	c, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	c.ParseTime = true
	c.ClientFoundRows = true
	c.Loc = time.UTC
	return c.FormatDSN(), nil
}

// isUniqueViolation reports whether err is a unique-index violation from either supported driver.
func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// forUpdate returns the row-locking suffix for a SELECT inside a transaction.
// SQLite has no row locks; writers are serialised by the connection's
// _txlock=immediate setting instead.
func forUpdate(db *sqlx.DB) string {
	if db.DriverName() == DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}
