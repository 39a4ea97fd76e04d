// Package account holds the account access-control domain: row types,
// the store contracts the persistence layer satisfies, and the service
// that orchestrates transactional creation and permission-scoped reads.
package account

import (
	"context"
	"database/sql"
	"time"
)

// AccessLevel is the closed enumeration of grant types a subject can hold
// on an account.
type AccessLevel string

const (
	AccessLevelRead  AccessLevel = "read"
	AccessLevelWrite AccessLevel = "write"
)

// Account is one row of the accounts table. DeletedAt is the soft-delete
// marker; a nil value means the account is live.
type Account struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at"`
	Email     string     `json:"email"`
}

// Permission is one grant row. Identity is the composite
// (account id, subject, access level); there is no independent key.
type Permission struct {
	AccountID   string      `json:"account_id"`
	CreatedAt   time.Time   `json:"created_at"`
	Subject     string      `json:"subject"`
	AccessLevel AccessLevel `json:"access_level"`
}

// Input carries the caller-supplied fields for account creation.
type Input struct {
	Email string `json:"email"`
}

// PermissionInput carries the fields for one grant insert.
type PermissionInput struct {
	AccountID   string
	Subject     string
	AccessLevel AccessLevel
}

// Page is the result of a find: matching rows plus an optional total
// count over the same predicate set.
type Page struct {
	Rows  []Account `json:"rows"`
	Total *int64    `json:"total,omitempty"`
}

// Order-by modes accepted by Find. Bare "createdAt" means descending.
const (
	OrderByCreatedAt     = "createdAt"
	OrderByCreatedAtDesc = "createdAt:desc"
	OrderByCreatedAtAsc  = "createdAt:asc"
)

// OrderDirection selects a sort direction for OrderByCreatedAt.
type OrderDirection string

const (
	OrderDesc OrderDirection = "desc"
	OrderAsc  OrderDirection = "asc"
)

// QueryParams are the optional read-query parameters. Zero values are
// identities: they add no predicate and change no default.
type QueryParams struct {
	Limit         int
	OrderBy       string
	CreatedBefore *time.Time
	Total         bool
}

// DBTX is the executor an operation runs against; both *sql.DB and
// *sql.Tx satisfy it. Create passes its transaction handle through this
// so every write in the workflow shares one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner opens transactions; satisfied by *sql.DB.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// AccountsTable is the persistence contract for account rows.
type AccountsTable interface {
	// Insert writes one row and returns it fully materialized, including
	// the server-generated id and timestamps. A unique-email violation
	// surfaces as apperr.Conflict("email").
	Insert(ctx context.Context, dbtx DBTX, input Input) (Account, error)
	// Query returns a builder seeded with created_at descending order and
	// the default result limit.
	Query() AccountsQuery
}

// AccountsQuery is a composable read-query builder. Every filter is an
// identity when its argument is absent (empty string, nil, non-positive
// limit), so a single code path can apply optional external parameters
// without branching. Builders are immutable values: each call returns a
// new builder and never mutates its receiver.
type AccountsQuery interface {
	Limit(n int) AccountsQuery
	ExcludeDeleted() AccountsQuery
	WhereID(id string) AccountsQuery
	WhereCreatedBefore(before *time.Time) AccountsQuery
	// WherePermissionSubject joins the permission table (at most once,
	// however many permission filters are applied) and narrows to rows
	// granted to subject. Stacked permission filters AND together.
	WherePermissionSubject(subject string) AccountsQuery
	WherePermissionAccessLevel(level AccessLevel) AccountsQuery
	WherePermissionAccessLevelIn(levels []AccessLevel) AccountsQuery
	// OrderByCreatedAt replaces the ordering; it does not append.
	OrderByCreatedAt(dir OrderDirection) AccountsQuery
	One(ctx context.Context) (*Account, error)
	Many(ctx context.Context) ([]Account, error)
	// Count evaluates the predicate set ignoring limit and order.
	Count(ctx context.Context) (int64, error)
}

// PermissionsTable is the persistence contract for grant rows.
type PermissionsTable interface {
	// InsertMany writes all rows in a single statement. Atomicity beyond
	// that single statement is the caller's transaction scope.
	InsertMany(ctx context.Context, dbtx DBTX, rows []PermissionInput) ([]Permission, error)
	Query() PermissionsQuery
}

// PermissionsQuery mirrors the account builder's read side. There is no
// join concept here; this is the permission table itself.
type PermissionsQuery interface {
	Limit(n int) PermissionsQuery
	WhereAccountID(id string) PermissionsQuery
	One(ctx context.Context) (*Permission, error)
	Many(ctx context.Context) ([]Permission, error)
}
