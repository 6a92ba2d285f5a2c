package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // driver: mysql
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// ParseDriver maps common aliases to canonical names.
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "pg", "pgx", "postgresql":
		return DriverPostgres, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", s)
	}
}

// Open opens a DB, tunes the pool and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:collegify.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/collegify?sslmode=disable"
		}
	case DriverMySQL:
		drvName = "mysql"
		if dsn == "" {
			dsn = "root@tcp(127.0.0.1:3306)/collegify?parseTime=true"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	tunePool(driver, db)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := EnsureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables if they are missing. Statements run one by
// one so drivers without multi-statement support (mysql) accept them.
func EnsureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	case DriverMySQL:
		schema = schemaMySQL
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: schema: %w", err)
		}
	}
	return nil
}

var dollarParam = regexp.MustCompile(`\$\d+`)

// Rebind rewrites $N placeholders into the form the driver expects.
// Queries must reference their parameters in order, each exactly once.
func Rebind(driver Driver, q string) string {
	if driver != DriverMySQL {
		return q
	}
	return dollarParam.ReplaceAllString(q, "?")
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InsertID runs an INSERT and returns the generated id column.
// pgx does not implement LastInsertId, so postgres goes through RETURNING.
func InsertID(ctx context.Context, ex Execer, driver Driver, q string, args ...any) (int64, error) {
	if driver == DriverPostgres {
		var id int64
		if err := ex.QueryRowContext(ctx, q+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := ex.ExecContext(ctx, Rebind(driver, q), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// WithTx starts a transaction, runs fn, and commits if fn returns nil.
// If fn returns an error or panics, the transaction is rolled back.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("db: commit: %w", e)
		}
	}()
	err = fn(tx)
	return
}

func tunePool(driver Driver, db *sql.DB) {
	maxOpen := 10
	maxIdle := 5
	connLife := 45 * time.Minute
	idleLife := 15 * time.Minute

	if driver == DriverSQLite {
		// single writer: one connection avoids SQLITE_BUSY and keeps
		// in-memory databases alive for the life of the pool
		maxOpen, maxIdle = 1, 1
		connLife, idleLife = 0, 0
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connLife)
	db.SetConnMaxIdleTime(idleLife)
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("db: sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS students (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
  mht_cet_cutoff REAL,
  other_info TEXT
);

CREATE TABLE IF NOT EXISTS colleges (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  college_name TEXT NOT NULL,
  branch TEXT NOT NULL,
  cutoff_percentile REAL NOT NULL,
  category TEXT NOT NULL,
  region TEXT NOT NULL DEFAULT '',
  fees INTEGER NOT NULL DEFAULT 0,
  median_package REAL NOT NULL DEFAULT 0,
  image_urls TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS quiz_results (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  answers TEXT NOT NULL,
  suggested_branches TEXT NOT NULL,
  score INTEGER NOT NULL DEFAULT 0,
  taken_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_colleges_cutoff ON colleges(cutoff_percentile);
CREATE INDEX IF NOT EXISTS idx_quiz_results_user ON quiz_results(user_id, taken_at)
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS students (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
  mht_cet_cutoff DOUBLE PRECISION,
  other_info TEXT
);

CREATE TABLE IF NOT EXISTS colleges (
  id BIGSERIAL PRIMARY KEY,
  college_name TEXT NOT NULL,
  branch TEXT NOT NULL,
  cutoff_percentile DOUBLE PRECISION NOT NULL,
  category TEXT NOT NULL,
  region TEXT NOT NULL DEFAULT '',
  fees BIGINT NOT NULL DEFAULT 0,
  median_package DOUBLE PRECISION NOT NULL DEFAULT 0,
  image_urls TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS quiz_results (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  answers TEXT NOT NULL,
  suggested_branches TEXT NOT NULL,
  score INTEGER NOT NULL DEFAULT 0,
  taken_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_colleges_cutoff ON colleges(cutoff_percentile);
CREATE INDEX IF NOT EXISTS idx_quiz_results_user ON quiz_results(user_id, taken_at)
`

const schemaMySQL = `
CREATE TABLE IF NOT EXISTS users (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(255) NOT NULL,
  email VARCHAR(255) NOT NULL UNIQUE,
  password_hash VARCHAR(255) NOT NULL,
  role VARCHAR(32) NOT NULL DEFAULT 'student'
);

CREATE TABLE IF NOT EXISTS students (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id BIGINT NOT NULL UNIQUE,
  mht_cet_cutoff DOUBLE,
  other_info JSON,
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS colleges (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  college_name VARCHAR(255) NOT NULL,
  branch VARCHAR(255) NOT NULL,
  cutoff_percentile DOUBLE NOT NULL,
  category VARCHAR(16) NOT NULL,
  region VARCHAR(255) NOT NULL DEFAULT '',
  fees BIGINT NOT NULL DEFAULT 0,
  median_package DOUBLE NOT NULL DEFAULT 0,
  image_urls TEXT NOT NULL,
  INDEX idx_colleges_cutoff (cutoff_percentile)
);

CREATE TABLE IF NOT EXISTS quiz_results (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  user_id BIGINT NOT NULL,
  answers JSON NOT NULL,
  suggested_branches TEXT NOT NULL,
  score INT NOT NULL DEFAULT 0,
  taken_at BIGINT NOT NULL,
  INDEX idx_quiz_results_user (user_id, taken_at),
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
)
`
