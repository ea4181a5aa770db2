package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"slipway/internal/platform/config"
	"slipway/internal/platform/logger"
	phttp "slipway/internal/platform/net/http"
	"slipway/internal/platform/net/middleware"
	"slipway/internal/platform/store"

	"slipway/internal/services/api"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	// bring up logging early
	l := logger.Get()

	st, err := store.Open(
		context.Background(),
		store.Config{
			AppName: "slipway-api",
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:    true,
				URL:        chCfg.MustString("DBURL"),
				ClientName: "slipway",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	srv := phttp.NewServer(apiCfg, func(m *chi.Mux) {
		for _, mw := range middleware.Defaults() {
			m.Use(mw)
		}
		m.Use(middleware.RecoverJSON)
		m.Use(middleware.AccessLogZerolog(middleware.AccessLogOptions{
			Slow: 500 * time.Millisecond,
		}))
		m.Use(middleware.CORS(middleware.CORSOptions{}))
	})

	if err := api.Mount(
		srv.Router(),
		api.Options{
			Config: root,
			Store:  st,
			Logger: l,
		},
	); err != nil {
		l.Panic().Err(err).Msg("api mount failed")
	}

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
