package pg

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"context"

	"grantly.org/internal/account"
	"grantly.org/internal/apperr"
)

const (
	accountColumns        = "a.id, a.created_at, a.updated_at, a.deleted_at, a.email"
	emailUniqueConstraint = "accounts_email_key"
	permissionsJoin       = "account_permissions"
)

// AccountsStore persists account rows.
type AccountsStore struct {
	db *sql.DB
}

var _ account.AccountsTable = (*AccountsStore)(nil)

// NewAccountsStore wraps db.
func NewAccountsStore(db *sql.DB) *AccountsStore {
	return &AccountsStore{db: db}
}

// Insert writes one row and returns it fully materialized. The unique
// email constraint is inspected here and translated into the domain
// conflict error; everything else passes through raw.
func (s *AccountsStore) Insert(ctx context.Context, dbtx account.DBTX, input account.Input) (account.Account, error) {
	if dbtx == nil {
		dbtx = s.db
	}
	row := dbtx.QueryRowContext(ctx, `
		insert into accounts (email)
		values ($1)
		returning id, created_at, updated_at, deleted_at, email
	`, input.Email)

	var acc account.Account
	if err := row.Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt, &acc.DeletedAt, &acc.Email); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation && pgErr.ConstraintName == emailUniqueConstraint {
			return account.Account{}, apperr.Conflict("email")
		}
		return account.Account{}, err
	}
	return acc, nil
}

// Query returns a builder seeded with created_at descending order and the
// default limit.
func (s *AccountsStore) Query() account.AccountsQuery {
	return accountsQuery{
		db:      s.db,
		orderBy: "a.created_at desc",
		limit:   defaultLimit,
	}
}

// accountsQuery accumulates predicate fragments, the join set, ordering
// and limit as an immutable value; every transition clones. The joins set
// replaces a hidden "already joined" flag so dedup is visible state.
type accountsQuery struct {
	db      account.DBTX
	where   []string
	args    []any
	joins   map[string]struct{}
	orderBy string
	limit   int
}

func (q accountsQuery) clone() accountsQuery {
	c := q
	c.where = append([]string(nil), q.where...)
	c.args = append([]any(nil), q.args...)
	c.joins = make(map[string]struct{}, len(q.joins))
	for name := range q.joins {
		c.joins[name] = struct{}{}
	}
	return c
}

func (q accountsQuery) joined() bool {
	_, ok := q.joins[permissionsJoin]
	return ok
}

// ensurePermissionsJoined is called on fresh clones only.
func (q *accountsQuery) ensurePermissionsJoined() {
	if _, ok := q.joins[permissionsJoin]; !ok {
		q.joins[permissionsJoin] = struct{}{}
	}
}

func (q accountsQuery) Limit(n int) account.AccountsQuery {
	if n <= 0 {
		return q
	}
	c := q.clone()
	c.limit = n
	return c
}

func (q accountsQuery) ExcludeDeleted() account.AccountsQuery {
	c := q.clone()
	c.where = append(c.where, "a.deleted_at is null")
	return c
}

func (q accountsQuery) WhereID(id string) account.AccountsQuery {
	if id == "" {
		return q
	}
	c := q.clone()
	c.where = append(c.where, "a.id = ?")
	c.args = append(c.args, id)
	return c
}

func (q accountsQuery) WhereCreatedBefore(before *time.Time) account.AccountsQuery {
	if before == nil {
		return q
	}
	c := q.clone()
	c.where = append(c.where, "a.created_at < ?")
	c.args = append(c.args, *before)
	return c
}

func (q accountsQuery) WherePermissionSubject(subject string) account.AccountsQuery {
	if subject == "" {
		return q
	}
	c := q.clone()
	c.ensurePermissionsJoined()
	c.where = append(c.where, "p.subject = ?")
	c.args = append(c.args, subject)
	return c
}

func (q accountsQuery) WherePermissionAccessLevel(level account.AccessLevel) account.AccountsQuery {
	if level == "" {
		return q
	}
	c := q.clone()
	c.ensurePermissionsJoined()
	c.where = append(c.where, "p.access_level = ?")
	c.args = append(c.args, string(level))
	return c
}

func (q accountsQuery) WherePermissionAccessLevelIn(levels []account.AccessLevel) account.AccountsQuery {
	if len(levels) == 0 {
		return q
	}
	c := q.clone()
	c.ensurePermissionsJoined()
	placeholders := make([]string, len(levels))
	for i, level := range levels {
		placeholders[i] = "?"
		c.args = append(c.args, string(level))
	}
	c.where = append(c.where, fmt.Sprintf("p.access_level in (%s)", strings.Join(placeholders, ", ")))
	return c
}

func (q accountsQuery) OrderByCreatedAt(dir account.OrderDirection) account.AccountsQuery {
	c := q.clone()
	if dir == account.OrderAsc {
		c.orderBy = "a.created_at asc"
	} else {
		c.orderBy = "a.created_at desc"
	}
	return c
}

// buildSelect renders the accumulated state into SQL. DISTINCT is added
// whenever the permission join is present so an account holding several
// matching grants still yields one row.
func (q accountsQuery) buildSelect(limit int) (string, []any) {
	var b strings.Builder
	b.WriteString("select ")
	if q.joined() {
		b.WriteString("distinct ")
	}
	b.WriteString(accountColumns)
	b.WriteString(" from accounts a")
	if q.joined() {
		b.WriteString(" inner join account_permissions p on p.account_id = a.id")
	}
	if len(q.where) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(q.where, " and "))
	}
	b.WriteString(" order by ")
	b.WriteString(q.orderBy)
	b.WriteString(" limit ")
	b.WriteString(strconv.Itoa(limit))
	return numberPlaceholders(b.String()), q.args
}

func (q accountsQuery) buildCount() (string, []any) {
	expr := "count(*)"
	if q.joined() {
		expr = "count(distinct a.id)"
	}
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(expr)
	b.WriteString(" from accounts a")
	if q.joined() {
		b.WriteString(" inner join account_permissions p on p.account_id = a.id")
	}
	if len(q.where) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(q.where, " and "))
	}
	return numberPlaceholders(b.String()), q.args
}

func (q accountsQuery) One(ctx context.Context) (*account.Account, error) {
	query, args := q.buildSelect(1)
	row := q.db.QueryRowContext(ctx, query, args...)

	var acc account.Account
	err := row.Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt, &acc.DeletedAt, &acc.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (q accountsQuery) Many(ctx context.Context) ([]account.Account, error) {
	query, args := q.buildSelect(q.limit)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Account
	for rows.Next() {
		var acc account.Account
		if err := rows.Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt, &acc.DeletedAt, &acc.Email); err != nil {
			return nil, err
		}
		result = append(result, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (q accountsQuery) Count(ctx context.Context) (int64, error) {
	query, args := q.buildCount()
	var total int64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// numberPlaceholders rewrites '?' markers into PostgreSQL positional
// parameters in argument order.
func numberPlaceholders(query string) string {
	var b strings.Builder
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
