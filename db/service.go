package db

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"stand-resolver/pkg/logger"
)

//go:embed schema.sql seed.sql
var schemaFS embed.FS

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// RequiredTables are the tables VerifySchema checks for.
var RequiredTables = []string{
	"airports",
	"stands",
	"aircraft",
	"airline_terminal_assignments",
	"airline_stand_patterns",
	"flight_cache",
	"crowdsourced_reports",
}

// Service represents the database service with connection management
type Service struct {
	DB     *sql.DB
	Driver string
	DSN    string
	log    *zap.Logger
}

// Config holds database configuration
type Config struct {
	Driver         string
	DSN            string
	MaxOpenConns   int
	MaxIdleConns   int
	AutoInitialize bool // Apply schema.sql on startup; every statement is idempotent
}

// DefaultConfig returns default database configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:         DriverSQLite,
		DSN:            "./data/stands.db",
		MaxOpenConns:   1, // SQLite doesn't handle concurrent writes well
		MaxIdleConns:   1,
		AutoInitialize: true,
	}
}

// New creates a new database service instance
func New(config *Config, log *zap.Logger) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	log = logger.OrNop(log).Named("db")

	switch config.Driver {
	case DriverSQLite:
		if !strings.HasPrefix(config.DSN, ":memory:") && !strings.HasPrefix(config.DSN, "file:") {
			if err := os.MkdirAll(filepath.Dir(config.DSN), 0755); err != nil {
				return nil, errors.Wrap(err, "failed to create database directory")
			}
		}
	case DriverPostgres:
	default:
		return nil, errors.Newf("unsupported database driver %q", config.Driver)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(0)

	service := &Service{
		DB:     db,
		Driver: config.Driver,
		DSN:    config.DSN,
		log:    log,
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	if config.AutoInitialize {
		if err := service.InitializeSchema(); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to initialize schema")
		}
	}

	log.Info("database service initialized", zap.String("driver", config.Driver))
	return service, nil
}

// InitializeSchema loads and executes the schema.sql file
func (s *Service) InitializeSchema() error {
	return s.execFile("schema.sql")
}

// Seed loads the reference airports, aircraft, stands and terminal
// assignments. Existing rows are left untouched.
func (s *Service) Seed() error {
	if err := s.execFile("seed.sql"); err != nil {
		return err
	}
	s.log.Info("reference data seeded")
	return nil
}

func (s *Service) execFile(name string) error {
	content, err := schemaFS.ReadFile(name)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", name)
	}
	if _, err := s.DB.Exec(string(content)); err != nil {
		return errors.Wrapf(err, "failed to execute %s", name)
	}
	return nil
}

// VerifySchema checks if the database schema is properly initialized
func (s *Service) VerifySchema() error {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	if s.Driver == DriverPostgres {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	}

	for _, table := range RequiredTables {
		var exists int
		if err := s.DB.QueryRow(query, table).Scan(&exists); err != nil {
			return errors.Wrapf(err, "failed to check table %s", table)
		}
		if exists == 0 {
			return errors.Newf("required table missing: %s", table)
		}
	}

	s.log.Debug("schema verification successful")
	return nil
}

// Close closes the database connection
func (s *Service) Close() error {
	if s.DB != nil {
		s.log.Info("closing database connection")
		return s.DB.Close()
	}
	return nil
}

// Transaction executes a function within a database transaction
func (s *Service) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	return Transaction(ctx, s.DB, fn)
}

// Transaction runs fn inside a transaction on db, rolling back on error or
// panic.
func Transaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// Health checks the database connection health
func (s *Service) Health(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("database connection is nil")
	}
	return s.DB.PingContext(ctx)
}

// GetStats returns database connection statistics
func (s *Service) GetStats() sql.DBStats {
	return s.DB.Stats()
}

// Rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL. Queries for
// other drivers are returned unchanged. Question marks inside single-quoted
// literals are left alone.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
