// Package module wires the records ops api using modkit
package module

import (
	"net/http"

	modkit "slipway/internal/modkit"
	phttp "slipway/internal/platform/net/http"
	rechttp "slipway/internal/services/api/records/http"
	recsvc "slipway/internal/services/api/records/service"
	recmod "slipway/internal/services/records/module"
)

// Module implements the records ops api module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports any

	subrouter func(phttp.Router) phttp.Router
	register  func(phttp.Router)

	svc recsvc.Service
}

// New constructs the records ops api module on top of the planner module ports
func New(deps modkit.Deps, rec recmod.Ports, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("records-api"), modkit.WithPrefix("/records"),
	}, opts...)...)

	svc := recsvc.New(deps.PG, rec.Repo, rec.Key)

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}

	external := b.Register
	m.register = func(r phttp.Router) {
		rechttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r phttp.Router) {
	r.Route(m.prefix, func(rr phttp.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
