package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	ErrNotConnected = errors.New("store not connected")
	ErrClosed       = errors.New("connector closed")
)

const DefaultRetryInterval = 5 * time.Second

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Connector owns the process-wide pool. Connect keeps retrying at a fixed
// interval until the store answers or ctx is done.
type Connector struct {
	dsn      string
	interval time.Duration
	log      *zap.Logger
	dial     func(ctx context.Context, dsn string) (*pgxpool.Pool, error)

	mu     sync.RWMutex
	pool   *pgxpool.Pool
	closed bool
	ready  chan struct{}
}

func NewConnector(dsn string, interval time.Duration, log *zap.Logger) *Connector {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return &Connector{
		dsn:      dsn,
		interval: interval,
		log:      log,
		dial:     NewPool,
		ready:    make(chan struct{}),
	}
}

func (c *Connector) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		pool, err := c.dial(ctx, c.dsn)
		if err == nil {
			return c.publish(ctx, pool, attempt)
		}
		c.log.Error("failed to connect to store, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", c.interval),
			zap.Error(err))
		t := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// publish stores a freshly dialed pool unless the connector was closed or
// ctx ended while the dial was in flight; such a pool is closed instead.
func (c *Connector) publish(ctx context.Context, pool *pgxpool.Pool, attempt int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		pool.Close()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		pool.Close()
		return err
	}
	c.pool = pool
	close(c.ready)
	c.log.Info("store connected", zap.Int("attempt", attempt))
	return nil
}

// Pool returns the pool, or ErrNotConnected before Connect has succeeded.
func (c *Connector) Pool() (*pgxpool.Pool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pool == nil {
		return nil, ErrNotConnected
	}
	return c.pool, nil
}

func (c *Connector) Ready() bool {
	select {
	case <-c.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the store is connected or ctx is done.
func (c *Connector) Wait(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Connector) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}
