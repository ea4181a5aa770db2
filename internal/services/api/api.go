// Package api provides the HTTP API for the application
package api

import (
	"slipway/internal/platform/config"
	"slipway/internal/platform/logger"
	phttp "slipway/internal/platform/net/http"
	"slipway/internal/platform/store"

	"slipway/internal/modkit"
	"slipway/internal/modkit/module"

	metamod "slipway/internal/services/api/meta/module"
	recapimod "slipway/internal/services/api/records/module"
	recmod "slipway/internal/services/records/module"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	Logger *logger.Logger
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) error {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// the planner module owns the drive table binder and flow key; the ops
	// api only reads through its ports
	planner, err := recmod.New(deps)
	if err != nil {
		return err
	}

	mods := []module.Module{
		metamod.New(deps),
		recapimod.New(deps, planner.Ports().(recmod.Ports)),
	}

	r.Route("/api/v1", func(api phttp.Router) {
		for _, m := range mods {
			module.Register(m.Name(), m.Ports())
			m.MountRoutes(api)
		}
	})
	return nil
}
