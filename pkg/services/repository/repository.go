// Package repository is the SQL query surface over the stand database. It
// runs on SQLite or PostgreSQL; queries are written with ? placeholders and
// rebound per driver.
package repository

import (
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"stand-resolver/db"
	"stand-resolver/pkg/logger"
)

// Repository answers the lookups made by the resolver, the API and the
// workers. Single-row lookups return a nil result, not an error, when no row
// matches.
type Repository struct {
	db     *sql.DB
	driver string
	log    *zap.Logger
}

func New(conn *sql.DB, driver string, log *zap.Logger) *Repository {
	return &Repository{
		db:     conn,
		driver: driver,
		log:    logger.OrNop(log).Named("repository"),
	}
}

// FromService builds a Repository on an open database service.
func FromService(svc *db.Service, log *zap.Logger) *Repository {
	return New(svc.DB, svc.Driver, log)
}

func (r *Repository) q(query string) string {
	return db.Rebind(r.driver, query)
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
