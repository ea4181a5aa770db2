// Package http provides http transport for the records ops api
package http

import (
	stdhttp "net/http"

	phttp "slipway/internal/platform/net/http"
	"slipway/internal/services/api/records/domain"
	svc "slipway/internal/services/api/records/service"
)

// Register mounts records endpoints on the given router
func Register(r phttp.Router, s svc.Service) {
	h := &handlers{svc: s}

	// pending queue, oldest window first
	phttp.PostJSON[domain.PendingInput](r, "/pending", h.pending)

	// records currently claimed by a runner
	phttp.GetJSON(r, "/in-progress", h.inProgress)

	// one record by pipeline id
	phttp.PostJSON[domain.GetInput](r, "/get", h.get)
}

type handlers struct{ svc svc.Service }

func (h *handlers) pending(r *stdhttp.Request, in domain.PendingInput) (any, error) {
	return h.svc.Pending(r.Context(), in)
}

func (h *handlers) inProgress(r *stdhttp.Request) (any, error) {
	return h.svc.InProgress(r.Context())
}

func (h *handlers) get(r *stdhttp.Request, in domain.GetInput) (any, error) {
	return h.svc.Get(r.Context(), in)
}
