package handler

import (
	"context"

	"github.com/pagedrop/internal/auth"
	"github.com/pagedrop/internal/service"
)

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	pages *service.PageService
	gate  *auth.Gate
	store Pinger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(pages *service.PageService, gate *auth.Gate, store Pinger) *API {
	return &API{
		pages: pages,
		gate:  gate,
		store: store,
	}
}
