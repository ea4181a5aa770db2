// Package module wires the pipeline runner: planner, drivers, and guardrails
package module

import (
	"context"

	"github.com/google/uuid"

	"slipway/internal/adapters/source/search"
	stages3 "slipway/internal/adapters/stage/s3"
	"slipway/internal/adapters/target/warehouse"
	"slipway/internal/modkit"
	phttp "slipway/internal/platform/net/http"
	recmod "slipway/internal/services/records/module"
	"slipway/internal/services/pipeline/domain"
	"slipway/internal/services/pipeline/guardrails"
	"slipway/internal/services/pipeline/repo"
	"slipway/internal/services/pipeline/service"
)

// Ports defines the pipeline module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the pipeline runner module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the runner from config on top of the records module ports.
// Each runner process gets its own run id so we can tell concurrent runners
// apart in the drive table and the logs
func New(ctx context.Context, deps modkit.Deps, rec recmod.Ports) (*Module, error) {
	opts := FromConfig(deps.Cfg)

	src := search.New(search.Config{
		Host:           opts.SearchHost,
		Port:           opts.SearchPort,
		Index:          opts.SearchIndex,
		Username:       opts.SearchUser,
		Password:       opts.SearchPassword,
		TimestampField: opts.SearchTimestamp,
	})

	stage, err := stages3.New(ctx, stages3.Config{
		Region:       opts.StageRegion,
		Endpoint:     opts.StageEndpoint,
		AccessKey:    opts.StageAccessKey,
		SecretKey:    opts.StageSecretKey,
		UsePathStyle: opts.StagePathStyle,
	})
	if err != nil {
		return nil, err
	}

	target := warehouse.New(deps.CH, warehouse.Config{
		Endpoint:  opts.WarehouseEndpoint,
		AccessKey: opts.StageAccessKey,
		SecretKey: opts.StageSecretKey,
		Format:    opts.WarehouseFormat,
	})

	svc := service.New(
		deps.PG,
		rec.Repo,
		repo.NewPG(),
		rec.Planner,
		rec.Key,
		src, stage, target,
		service.Config{
			MaxRetries:        opts.MaxRetries,
			RetryBase:         opts.RetryBase,
			RecordTimeout:     opts.RecordTimeout,
			TransferTimeout:   opts.TransferTimeout,
			QueryTimeout:      opts.QueryTimeout,
			StaleAfter:        opts.StaleAfter,
			AuditPollInterval: opts.AuditPollInterval,
			AuditMaxWait:      opts.AuditMaxWait,
			EnableLeases:      opts.EnableLeases,
			DelayPerCycle:     opts.DelayPerCycle,
		},
		guardrails.MakeRecordLease(deps),
		uuid.NewString(),
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m, nil
}

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op, the runner has no http surface
func (m *Module) MountRoutes(_ phttp.Router) {}
