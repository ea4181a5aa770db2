package module

import (
	"slipway/internal/platform/config"
)

// Options holds the raw planner configuration before parsing
type Options struct {
	Timezone    string
	Stability   string
	Granularity string

	// Template file paths, flow overrides default field by field
	DefaultTemplatePath string
	FlowTemplatePath    string

	PendingLimit int
}

// FromConfig reads planner options with the PIPELINE_ prefix.
// Timezone, stability, and granularity are required: the planner refuses to
// invent defaults for keys that decide what data gets ingested
func FromConfig(cfg config.Conf) Options {
	p := cfg.Prefix("PIPELINE_")
	return Options{
		Timezone:            p.MustString("TIMEZONE"),
		Stability:           p.MustString("STABILITY"),
		Granularity:         p.MustString("GRANULARITY"),
		DefaultTemplatePath: p.MustString("TEMPLATE_DEFAULT"),
		FlowTemplatePath:    p.MayString("TEMPLATE_FLOW", ""),
		PendingLimit:        p.MayInt("PENDING_LIMIT", 50),
	}
}
