package store

import (
	"context"
	"fmt"
	"time"

	"slipway/internal/platform/store/ch"
	"slipway/internal/platform/store/pg"
)

// openPG dials postgres and returns the sql adapter.
// The adapter is handed back only after a healthy ping so callers never
// observe a half-open pool
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	pgc, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, fmt.Errorf("pg open: %w", err)
	}

	adapter := newPGAdapter(pgc)

	retries := cfg.PG.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = adapter.Ping(pctx)
		cancel()
		if lastErr == nil {
			return adapter, nil
		}
		s.Log.Warn().
			Int("attempt", attempt).
			Int("max", retries).
			Err(lastErr).
			Msg("pg ping failed")
		if attempt < retries {
			select {
			case <-ctx.Done():
				pgc.Close()
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}
	}
	pgc.Close()
	return nil, fmt.Errorf("pg ping: %w", lastErr)
}

// openCH dials clickhouse and returns the warehouse client
func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := ch.Open(ctx, ch.Config{
		URL:        cfg.CH.URL,
		ClientName: cfg.CH.ClientName,
		ClientTag:  cfg.CH.ClientTag,
	})
	if err != nil {
		return nil, fmt.Errorf("ch open: %w", err)
	}
	return chAdapter{c: c}, nil
}
