package pg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"grantly.org/internal/account"
	"grantly.org/internal/apperr"
)

func newMockStore(t *testing.T) (*AccountsStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAccountsStore(db), mock
}

func accountRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "deleted_at", "email"})
	now := time.Now().UTC()
	for _, id := range ids {
		rows.AddRow(id, now, now, nil, id+"@example.com")
	}
	return rows
}

func TestInsertReturnsMaterializedRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into accounts").
		WithArgs("a@x.com").
		WillReturnRows(accountRows("acc-1"))

	acc, err := store.Insert(context.Background(), nil, account.Input{Email: "a@x.com"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if acc.ID != "acc-1" {
		t.Fatalf("unexpected id: %q", acc.ID)
	}
	if acc.CreatedAt.IsZero() || acc.UpdatedAt.IsZero() {
		t.Fatal("expected server-generated timestamps")
	}
	if acc.DeletedAt != nil {
		t.Fatalf("expected nil deleted_at, got %v", acc.DeletedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertTranslatesEmailConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into accounts").
		WithArgs("dup@x.com").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: emailUniqueConstraint})

	_, err := store.Insert(context.Background(), nil, account.Input{Email: "dup@x.com"})

	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Field != "email" {
		t.Fatalf("unexpected conflicting field: %q", conflict.Field)
	}
}

func TestInsertPassesThroughOtherConstraintErrors(t *testing.T) {
	store, mock := newMockStore(t)

	raw := &pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "something_else"}
	mock.ExpectQuery("insert into accounts").
		WithArgs("a@x.com").
		WillReturnError(raw)

	_, err := store.Insert(context.Background(), nil, account.Input{Email: "a@x.com"})
	if !errors.Is(err, raw) {
		t.Fatalf("expected raw error to pass through, got %v", err)
	}
}

func builder(t *testing.T, q account.AccountsQuery) accountsQuery {
	t.Helper()
	b, ok := q.(accountsQuery)
	if !ok {
		t.Fatalf("unexpected builder type %T", q)
	}
	return b
}

func TestQueryDefaults(t *testing.T) {
	store, _ := newMockStore(t)

	query, args := builder(t, store.Query()).buildSelect(defaultLimit)
	want := "select a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a order by a.created_at desc limit 100"
	if query != want {
		t.Fatalf("unexpected SQL:\n got %q\nwant %q", query, want)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestAbsentFiltersAreIdentity(t *testing.T) {
	store, _ := newMockStore(t)

	base := store.Query()
	same := base.
		Limit(0).
		WhereID("").
		WhereCreatedBefore(nil).
		WherePermissionSubject("").
		WherePermissionAccessLevel("").
		WherePermissionAccessLevelIn(nil)

	baseSQL, _ := builder(t, base).buildSelect(defaultLimit)
	sameSQL, args := builder(t, same).buildSelect(defaultLimit)
	if baseSQL != sameSQL {
		t.Fatalf("absent filters changed the query:\n got %q\nwant %q", sameSQL, baseSQL)
	}
	if len(args) != 0 {
		t.Fatalf("absent filters accumulated args: %v", args)
	}
}

func TestPermissionJoinIsDeduplicated(t *testing.T) {
	store, _ := newMockStore(t)

	q := store.Query().
		WherePermissionSubject("alice").
		WherePermissionAccessLevel(account.AccessLevelRead)

	query, args := builder(t, q).buildSelect(defaultLimit)
	want := "select distinct a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a" +
		" inner join account_permissions p on p.account_id = a.id" +
		" where p.subject = $1 and p.access_level = $2" +
		" order by a.created_at desc limit 100"
	if query != want {
		t.Fatalf("unexpected SQL:\n got %q\nwant %q", query, want)
	}
	if len(args) != 2 || args[0] != "alice" || args[1] != "read" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestAccessLevelInExpandsPlaceholders(t *testing.T) {
	store, _ := newMockStore(t)

	q := store.Query().
		WherePermissionSubject("alice").
		WherePermissionAccessLevelIn([]account.AccessLevel{account.AccessLevelRead, account.AccessLevelWrite})

	query, args := builder(t, q).buildSelect(defaultLimit)
	want := "select distinct a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a" +
		" inner join account_permissions p on p.account_id = a.id" +
		" where p.subject = $1 and p.access_level in ($2, $3)" +
		" order by a.created_at desc limit 100"
	if query != want {
		t.Fatalf("unexpected SQL:\n got %q\nwant %q", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestCountIgnoresLimitAndOrder(t *testing.T) {
	store, _ := newMockStore(t)

	q := store.Query().
		Limit(5).
		WherePermissionSubject("alice")

	query, _ := builder(t, q).buildCount()
	want := "select count(distinct a.id) from accounts a" +
		" inner join account_permissions p on p.account_id = a.id" +
		" where p.subject = $1"
	if query != want {
		t.Fatalf("unexpected SQL:\n got %q\nwant %q", query, want)
	}
}

func TestOrderByCreatedAtReplacesOrdering(t *testing.T) {
	store, _ := newMockStore(t)

	q := store.Query().
		OrderByCreatedAt(account.OrderAsc).
		OrderByCreatedAt(account.OrderDesc).
		OrderByCreatedAt(account.OrderAsc)

	query, _ := builder(t, q).buildSelect(defaultLimit)
	if want := " order by a.created_at asc limit 100"; !strings.HasSuffix(query, want) {
		t.Fatalf("ordering not replaced: %q", query)
	}
}

func TestBuilderTransitionsDoNotMutateReceiver(t *testing.T) {
	store, _ := newMockStore(t)

	base := store.Query()
	_ = base.WherePermissionSubject("alice").WhereID("acc-1")

	baseSQL, args := builder(t, base).buildSelect(defaultLimit)
	want := "select a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a order by a.created_at desc limit 100"
	if baseSQL != want || len(args) != 0 {
		t.Fatalf("base builder mutated: %q args=%v", baseSQL, args)
	}
}

func TestExcludeDeleted(t *testing.T) {
	store, _ := newMockStore(t)

	query, _ := builder(t, store.Query().ExcludeDeleted()).buildSelect(defaultLimit)
	want := "select a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a" +
		" where a.deleted_at is null order by a.created_at desc limit 100"
	if query != want {
		t.Fatalf("unexpected SQL:\n got %q\nwant %q", query, want)
	}
}

func TestManyScansRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a").
		WillReturnRows(accountRows("acc-1", "acc-2"))

	rows, err := store.Query().Many(context.Background())
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "acc-1" || rows[1].ID != "acc-2" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestOneReturnsNilWhenNoRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select a.id, a.created_at, a.updated_at, a.deleted_at, a.email from accounts a").
		WithArgs("missing").
		WillReturnRows(accountRows())

	acc, err := store.Query().WhereID("missing").One(context.Background())
	if err != nil {
		t.Fatalf("One: %v", err)
	}
	if acc != nil {
		t.Fatalf("expected nil account, got %#v", acc)
	}
}

func TestCountScansTotal(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select count").
		WithArgs("alice", "read").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := store.Query().
		WherePermissionSubject("alice").
		WherePermissionAccessLevel(account.AccessLevelRead).
		Count(context.Background())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if total != 3 {
		t.Fatalf("unexpected total: %d", total)
	}
}
