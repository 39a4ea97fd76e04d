package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func mockOpener(t *testing.T, failures int, attempts *int) func(string) (*Store, error) {
	t.Helper()
	return func(dsn string) (*Store, error) {
		*attempts++
		if *attempts <= failures {
			return nil, errors.New("connection refused")
		}
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		if err != nil {
			t.Fatalf("sqlmock.New: %v", err)
		}
		mock.ExpectPing()
		t.Cleanup(func() { db.Close() })
		return &Store{db: db}, nil
	}
}

func TestConnectRetriesUntilSuccess(t *testing.T) {
	attempts := 0
	c := &Connector{
		dsn:      "postgres://test",
		interval: time.Millisecond,
		open:     mockOpener(t, 2, &attempts),
	}

	store, err := c.Connect(context.Background(), 5)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if store == nil {
		t.Fatal("expected store")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestConnectPropagatesErrorWhenRetriesExhausted(t *testing.T) {
	attempts := 0
	c := &Connector{
		dsn:      "postgres://test",
		interval: time.Millisecond,
		open: func(string) (*Store, error) {
			attempts++
			return nil, errors.New("connection refused")
		},
	}

	_, err := c.Connect(context.Background(), 2)
	if err == nil || err.Error() != "connection refused" {
		t.Fatalf("expected raw connection error, got %v", err)
	}
	// maxRetries retries after the initial attempt.
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestConnectIsIdempotentOnceConnected(t *testing.T) {
	attempts := 0
	c := &Connector{
		dsn:      "postgres://test",
		interval: time.Millisecond,
		open:     mockOpener(t, 0, &attempts),
	}

	first, err := c.Connect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	second, err := c.Connect(context.Background(), 0)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if first != second {
		t.Fatal("expected the same handle on re-entry")
	}
	if attempts != 1 {
		t.Fatalf("expected a single open, got %d", attempts)
	}
}

func TestConnectHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Connector{
		dsn:      "postgres://test",
		interval: time.Hour,
		open: func(string) (*Store, error) {
			return nil, errors.New("connection refused")
		},
	}

	_, err := c.Connect(ctx, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}
