package pg

import (
	"context"
	"sync"
	"time"

	"grantly.org/internal/obs"
)

// retryInterval is the fixed wait between connection attempts. The retry
// exists only for startup ordering (the database container may come up
// after this process); once connected there is no reconnection logic here.
const retryInterval = 5 * time.Second

// Connector establishes the database connection at process start with a
// bounded number of retries. Connect is idempotent: once a handle is
// live, subsequent calls return it instead of racing a second pool into
// existence.
type Connector struct {
	dsn      string
	interval time.Duration
	open     func(dsn string) (*Store, error)

	mu    sync.Mutex
	store *Store
}

// NewConnector prepares a connector for dsn.
func NewConnector(dsn string) *Connector {
	return &Connector{dsn: dsn, interval: retryInterval, open: Open}
}

// Connect opens and pings the database. On failure it waits the fixed
// interval and tries again with one retry fewer; when retries are
// exhausted the error from the final attempt propagates unchanged.
func (c *Connector) Connect(ctx context.Context, maxRetries int) (*Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}

	retries := maxRetries
	for {
		obs.Log(map[string]any{
			"msg":               "connecting to database",
			"retries_remaining": retries,
		})

		store, err := c.attempt(ctx)
		if err == nil {
			c.store = store
			return store, nil
		}

		obs.Log(map[string]any{
			"msg":   "database connection failed",
			"error": err.Error(),
		})
		if retries <= 0 {
			return nil, err
		}
		retries--

		select {
		case <-time.After(c.interval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *Connector) attempt(ctx context.Context) (*Store, error) {
	store, err := c.open(c.dsn)
	if err != nil {
		return nil, err
	}
	if err := store.db.PingContext(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}
