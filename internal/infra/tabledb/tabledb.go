// Package tabledb stores legacy geometry definitions (materials, media,
// rotation matrices, volumes and positions) in SQLite or PostgreSQL. Several
// named setups can share one database.
package tabledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver
)

// Driver identifies the database backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"

	defaultSQLitePath = "trackgeo.db"
	defaultDSN        = "postgres://localhost/trackgeo?sslmode=disable"
)

// ErrSetupNotFound is returned by Load for a setup without volumes.
var ErrSetupNotFound = errors.New("geometry setup not found")

// Config selects the backend.
type Config struct {
	Driver Driver
	Path   string // sqlite file
	DSN    string // postgres DSN
}

// ConfigFromEnv reads TRACKGEO_TABLEDB_DRIVER (sqlite|postgres, default
// sqlite), TRACKGEO_SQLITE_PATH and TRACKGEO_POSTGRES_DSN.
func ConfigFromEnv() Config {
	cfg := Config{
		Driver: Driver(os.Getenv("TRACKGEO_TABLEDB_DRIVER")),
		Path:   os.Getenv("TRACKGEO_SQLITE_PATH"),
		DSN:    os.Getenv("TRACKGEO_POSTGRES_DSN"),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}
	return cfg
}

// DB is an open table database.
type DB struct {
	db     *sql.DB
	driver Driver
}

// Open connects, pings and creates the schema if needed.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var (
		sqlDriver string
		source    string
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		sqlDriver, source = "sqlite", cfg.Path
		if source == "" {
			source = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(source), 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
		cfg.Driver = DriverSQLite
	case DriverPostgres:
		sqlDriver, source = "pgx", cfg.DSN
		if source == "" {
			source = defaultDSN
		}
	default:
		return nil, fmt.Errorf("unknown table database driver %s", cfg.Driver)
	}
	db, err := sql.Open(sqlDriver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	t := &DB{db: db, driver: cfg.Driver}
	if err := t.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return t, nil
}

// Driver returns the backend in use.
func (t *DB) Driver() Driver { return t.driver }

// Close releases the connection pool.
func (t *DB) Close() error { return t.db.Close() }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS materials (
		setup TEXT NOT NULL, id INTEGER NOT NULL, name TEXT NOT NULL,
		a DOUBLE PRECISION NOT NULL, z DOUBLE PRECISION NOT NULL, density DOUBLE PRECISION NOT NULL,
		rad_len DOUBLE PRECISION NOT NULL, abs_len DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (setup, id))`,
	`CREATE TABLE IF NOT EXISTS media (
		setup TEXT NOT NULL, id INTEGER NOT NULL, name TEXT NOT NULL, material_id INTEGER NOT NULL,
		is_vol INTEGER NOT NULL, ifield INTEGER NOT NULL, fieldm DOUBLE PRECISION NOT NULL,
		tmaxfd DOUBLE PRECISION NOT NULL, stemax DOUBLE PRECISION NOT NULL, deemax DOUBLE PRECISION NOT NULL,
		epsil DOUBLE PRECISION NOT NULL, stmin DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (setup, id))`,
	`CREATE TABLE IF NOT EXISTS rotations (
		setup TEXT NOT NULL, id INTEGER NOT NULL,
		theta1 DOUBLE PRECISION NOT NULL, phi1 DOUBLE PRECISION NOT NULL,
		theta2 DOUBLE PRECISION NOT NULL, phi2 DOUBLE PRECISION NOT NULL,
		theta3 DOUBLE PRECISION NOT NULL, phi3 DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (setup, id))`,
	`CREATE TABLE IF NOT EXISTS volumes (
		setup TEXT NOT NULL, id INTEGER NOT NULL, name TEXT NOT NULL, shape TEXT NOT NULL,
		medium_id INTEGER NOT NULL, params TEXT NOT NULL,
		PRIMARY KEY (setup, id))`,
	`CREATE TABLE IF NOT EXISTS positions (
		setup TEXT NOT NULL, seq INTEGER NOT NULL, volume TEXT NOT NULL, copy_no INTEGER NOT NULL,
		mother TEXT NOT NULL, x DOUBLE PRECISION NOT NULL, y DOUBLE PRECISION NOT NULL, z DOUBLE PRECISION NOT NULL,
		rotation_id INTEGER NOT NULL, only_flag INTEGER NOT NULL,
		PRIMARY KEY (setup, seq))`,
}

func (t *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := t.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (t *DB) rebind(query string) string {
	if t.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
