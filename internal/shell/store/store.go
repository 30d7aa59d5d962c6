package store

import (
	"context"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
)

// =============================================================================
// Store Interface
// =============================================================================

// ListOptions provides pagination for list queries.
type ListOptions struct {
	Offset int
	Limit  int
}

// Normalize applies the API defaults (offset 0, limit 100, cap 1000).
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = 100
	}
	if o.Limit > 1000 {
		o.Limit = 1000
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// AppFilter narrows admin app listings.
type AppFilter struct {
	// Filter matches against app id, vendor id or name (substring).
	Filter string
	// Status restricts to a lifecycle state when non-empty.
	Status domain.AppStatus
}

// Store is the persistence interface for the portal.
//
// Mutations that must be atomic (app update + version snapshot + change
// record, vendor rename) are single methods so implementations can wrap them
// in one transaction.
type Store interface {
	// Apps
	CreateApp(ctx context.Context, app *domain.App) error
	GetApp(ctx context.Context, id string) (*domain.App, error)
	GetAppVersion(ctx context.Context, id string, version int) (*domain.App, error)
	UpdateApp(ctx context.Context, app *domain.App, change *domain.AppChange) error
	ListApps(ctx context.Context, filter AppFilter, opts ListOptions) ([]domain.App, error)
	ListAppsForVendor(ctx context.Context, vendorID string, opts ListOptions) ([]domain.App, error)
	ListPublishedApps(ctx context.Context, opts ListOptions) ([]domain.App, error)
	ListAppChanges(ctx context.Context, since, until time.Time) ([]domain.AppChange, error)

	// Vendors
	CreateVendor(ctx context.Context, vendor *domain.Vendor) error
	GetVendor(ctx context.Context, id string) (*domain.Vendor, error)
	UpdateVendor(ctx context.Context, vendor *domain.Vendor) error
	RenameVendor(ctx context.Context, oldID, newID string) error
	ListVendors(ctx context.Context, opts ListOptions) ([]domain.Vendor, error)

	// Invitations
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitation(ctx context.Context, vendorID, email, code string) (*domain.Invitation, error)
	DeleteInvitation(ctx context.Context, vendorID, email, code string) error

	// WithTx executes fn within a transaction. The Store passed to fn
	// operates on the transaction; rollback happens on error.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close releases the underlying database handle.
	Close() error
}
