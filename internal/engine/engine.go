// Package engine implements the portal workflows: app lifecycle, the
// approval gate and vendor membership. Services hold no request state; every
// operation receives the acting user resolved by the transport layer.
package engine

import (
	"errors"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/store"
)

// storeErr maps persistence failures onto the portal error taxonomy.
func storeErr(err error, notFoundMsg, conflictMsg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.NewNotFoundError("%s", notFoundMsg)
	case errors.Is(err, store.ErrDuplicateID):
		return domain.NewConflictError("%s", conflictMsg)
	default:
		return domain.NewUpstreamError("database request failed", err)
	}
}
