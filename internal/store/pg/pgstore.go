// Package pg implements the account and permission tables on PostgreSQL.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// defaultLimit caps read queries that never override it.
const defaultLimit = 100

// Store owns the database handle and hands out table accessors.
type Store struct {
	db *sql.DB
}

// Open creates the connection pool without touching the network; use
// Connector.Connect for the retrying startup path.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Accounts returns the accounts table accessor.
func (s *Store) Accounts() *AccountsStore { return &AccountsStore{db: s.db} }

// Permissions returns the permission grants table accessor.
func (s *Store) Permissions() *PermissionsStore { return &PermissionsStore{db: s.db} }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
