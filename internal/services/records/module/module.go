// Package module wires the records planner from config
package module

import (
	"time"

	"slipway/internal/core/timewin"
	"slipway/internal/modkit"
	"slipway/internal/modkit/repokit"
	perr "slipway/internal/platform/errors"
	phttp "slipway/internal/platform/net/http"
	"slipway/internal/services/records/domain"
	"slipway/internal/services/records/repo"
	"slipway/internal/services/records/service"
)

// Ports defines the records module ports
type Ports struct {
	Planner domain.PlannerPort
	Repo    repokit.Binder[domain.StorageRepo]
	Key     domain.FlowKey
}

// Module implements the records module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the records module, parsing all required configuration
// eagerly so a bad deployment fails before any window logic runs
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, perr.Configf("timezone %q: %v", opts.Timezone, err)
	}
	stability, err := timewin.ParseDuration(opts.Stability)
	if err != nil {
		return nil, err
	}
	granularity, err := timewin.ParseDuration(opts.Granularity)
	if err != nil {
		return nil, err
	}
	tmpl, err := LoadTemplate(opts.DefaultTemplatePath, opts.FlowTemplatePath)
	if err != nil {
		return nil, err
	}

	binder := repo.NewPG()
	svc := service.New(deps.PG, binder, service.Config{
		Loc:              loc,
		StabilitySeconds: stability,
		GranularitySec:   granularity,
		Template:         tmpl,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Planner: svc, Repo: binder, Key: tmpl.Key()}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "records" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the ops api mounts its own read-only routes
func (m *Module) MountRoutes(_ phttp.Router) {}
