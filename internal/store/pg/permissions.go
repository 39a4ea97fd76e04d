package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"grantly.org/internal/account"
)

const permissionColumns = "p.account_id, p.created_at, p.subject, p.access_level"

// PermissionsStore persists permission grant rows.
type PermissionsStore struct {
	db *sql.DB
}

var _ account.PermissionsTable = (*PermissionsStore)(nil)

// NewPermissionsStore wraps db.
func NewPermissionsStore(db *sql.DB) *PermissionsStore {
	return &PermissionsStore{db: db}
}

// InsertMany writes all rows in one statement and returns them with their
// generated fields. All-or-nothing beyond the single statement is the
// caller's transaction scope, not this store's.
func (s *PermissionsStore) InsertMany(ctx context.Context, dbtx account.DBTX, inputs []account.PermissionInput) ([]account.Permission, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if dbtx == nil {
		dbtx = s.db
	}

	values := make([]string, len(inputs))
	args := make([]any, 0, len(inputs)*3)
	for i, in := range inputs {
		values[i] = fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
		args = append(args, in.AccountID, in.Subject, string(in.AccessLevel))
	}
	query := `
		insert into account_permissions (account_id, subject, access_level)
		values ` + strings.Join(values, ", ") + `
		returning account_id, created_at, subject, access_level
	`

	rows, err := dbtx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Permission
	for rows.Next() {
		var (
			perm  account.Permission
			level string
		)
		if err := rows.Scan(&perm.AccountID, &perm.CreatedAt, &perm.Subject, &level); err != nil {
			return nil, err
		}
		perm.AccessLevel = account.AccessLevel(level)
		result = append(result, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Query returns a builder seeded with created_at descending order and the
// default limit.
func (s *PermissionsStore) Query() account.PermissionsQuery {
	return permissionsQuery{
		db:      s.db,
		orderBy: "p.created_at desc",
		limit:   defaultLimit,
	}
}

// permissionsQuery mirrors the accounts builder without any join concept.
type permissionsQuery struct {
	db      account.DBTX
	where   []string
	args    []any
	orderBy string
	limit   int
}

func (q permissionsQuery) clone() permissionsQuery {
	c := q
	c.where = append([]string(nil), q.where...)
	c.args = append([]any(nil), q.args...)
	return c
}

func (q permissionsQuery) Limit(n int) account.PermissionsQuery {
	if n <= 0 {
		return q
	}
	c := q.clone()
	c.limit = n
	return c
}

func (q permissionsQuery) WhereAccountID(id string) account.PermissionsQuery {
	if id == "" {
		return q
	}
	c := q.clone()
	c.where = append(c.where, "p.account_id = ?")
	c.args = append(c.args, id)
	return c
}

func (q permissionsQuery) buildSelect(limit int) (string, []any) {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(permissionColumns)
	b.WriteString(" from account_permissions p")
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

func (q permissionsQuery) One(ctx context.Context) (*account.Permission, error) {
	query, args := q.buildSelect(1)
	row := q.db.QueryRowContext(ctx, query, args...)

	var (
		perm  account.Permission
		level string
	)
	err := row.Scan(&perm.AccountID, &perm.CreatedAt, &perm.Subject, &level)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	perm.AccessLevel = account.AccessLevel(level)
	return &perm, nil
}

func (q permissionsQuery) Many(ctx context.Context) ([]account.Permission, error) {
	query, args := q.buildSelect(q.limit)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []account.Permission
	for rows.Next() {
		var (
			perm  account.Permission
			level string
		)
		if err := rows.Scan(&perm.AccountID, &perm.CreatedAt, &perm.Subject, &level); err != nil {
			return nil, err
		}
		perm.AccessLevel = account.AccessLevel(level)
		result = append(result, perm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
