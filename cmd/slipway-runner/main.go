package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"slipway/internal/modkit"
	"slipway/internal/modkit/module"
	"slipway/internal/platform/config"
	"slipway/internal/platform/logger"
	"slipway/internal/platform/store"

	pipemod "slipway/internal/services/pipeline/module"
	recmod "slipway/internal/services/records/module"
)

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	st, err := store.Open(context.Background(), store.Config{
		AppName: "slipway-runner",
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
			ClientTag:  "runner",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var (
		fOnce    = flag.Bool("once", false, "run a single cycle and exit")
		fDrain   = flag.Bool("drain", false, "keep running cycles until the day is drained")
		fCleanup = flag.Bool("cleanup-only", false, "only reset stale locks and exit")
	)
	flag.Parse()

	if *fOnce && *fDrain {
		l.Panic().Msg("-once and -drain are mutually exclusive")
	}

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	// stop cleanly on SIGINT/SIGTERM; in flight phases finish their timeouts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rm, err := recmod.New(deps)
	if err != nil {
		l.Panic().Err(err).Msg("records module init failed")
	}
	module.Register(rm.Name(), rm.Ports())
	recPorts := rm.Ports().(recmod.Ports)

	pm, err := pipemod.New(ctx, deps, recPorts)
	if err != nil {
		l.Panic().Err(err).Msg("pipeline module init failed")
	}
	module.Register(pm.Name(), pm.Ports())
	runner := pm.Ports().(pipemod.Ports).Runner

	switch {
	case *fCleanup:
		n, err := runner.CleanupStale(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("stale cleanup failed")
		}
		l.Info().Int("reset", n).Msg("stale cleanup done")

	case *fDrain:
		if err := runner.RunDrain(ctx); err != nil {
			l.Fatal().Err(err).Msg("drain failed")
		}

	default:
		// one cycle is the default; schedulers invoke this on an interval
		worked, err := runner.RunCycle(ctx)
		if err != nil {
			l.Fatal().Err(err).Msg("cycle failed")
		}
		if !worked {
			l.Info().Msg("nothing to do")
		}
	}
}
