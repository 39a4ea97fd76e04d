package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "0002_permissions.up.sql", "create table account_permissions (id int);")
	writeFile(t, dir, "0001_accounts.up.sql", "create table accounts (id int);\ncreate index accounts_idx on accounts (id);")

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_accounts.up.sql"))

	// 0001 is already recorded, so only 0002 runs.
	mock.ExpectBegin()
	mock.ExpectExec("create table account_permissions").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_migrations").
		WithArgs("0002_permissions.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mgr := NewManager(db, dir)
	if err := mgr.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDownRollsBackLastApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	dir := t.TempDir()
	writeFile(t, dir, "0001_accounts.up.sql", "create table accounts (id int);")
	writeFile(t, dir, "0001_accounts.down.sql", "drop table accounts;")

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations order by applied_at asc").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_accounts.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("drop table accounts").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("delete from schema_migrations where name").
		WithArgs("0001_accounts.up.sql").
		WillReturnResult(sqlmock.NewResult(0, 1))

	mgr := NewManager(db, dir)
	if err := mgr.Down(context.Background()); err != nil {
		t.Fatalf("Down: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDownWithoutHistoryFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations order by applied_at asc").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	mgr := NewManager(db, t.TempDir())
	if err := mgr.Down(context.Background()); err == nil {
		t.Fatalf("expected error with empty history")
	}
}

func TestSplitStatementsRespectsStrings(t *testing.T) {
	stmts := splitStatements("insert into t values ('a;b'); select 1;")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(stmts), stmts)
	}
}
