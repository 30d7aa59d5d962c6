package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/email"
	"github.com/artpar/devportal/internal/shell/store"
)

// stubStore is an in-memory store.Store for engine tests.
type stubStore struct {
	apps        map[string]*domain.App
	versions    map[string]map[int]*domain.App
	changes     []domain.AppChange
	vendors     map[string]*domain.Vendor
	invitations map[string]*domain.Invitation

	failWith error // when set, every call fails with this error
}

func newStubStore() *stubStore {
	return &stubStore{
		apps:        make(map[string]*domain.App),
		versions:    make(map[string]map[int]*domain.App),
		vendors:     make(map[string]*domain.Vendor),
		invitations: make(map[string]*domain.Invitation),
	}
}

func invKey(vendorID, email, code string) string {
	return vendorID + "|" + email + "|" + code
}

func (s *stubStore) snapshot(app *domain.App) {
	if s.versions[app.ID] == nil {
		s.versions[app.ID] = make(map[int]*domain.App)
	}
	clone := *app
	s.versions[app.ID][app.Version] = &clone
}

func (s *stubStore) CreateApp(ctx context.Context, app *domain.App) error {
	if s.failWith != nil {
		return s.failWith
	}
	if _, exists := s.apps[app.ID]; exists {
		return store.NewStoreError("CreateApp", "app", app.ID, "app with this ID already exists", store.ErrDuplicateID)
	}
	clone := *app
	s.apps[app.ID] = &clone
	s.snapshot(app)
	return nil
}

func (s *stubStore) GetApp(ctx context.Context, id string) (*domain.App, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	app, ok := s.apps[id]
	if !ok {
		return nil, store.NewStoreError("GetApp", "app", id, "app not found", store.ErrNotFound)
	}
	clone := *app
	return &clone, nil
}

func (s *stubStore) GetAppVersion(ctx context.Context, id string, version int) (*domain.App, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	app, ok := s.versions[id][version]
	if !ok {
		return nil, store.NewStoreError("GetAppVersion", "app", id, "version not found", store.ErrNotFound)
	}
	clone := *app
	return &clone, nil
}

func (s *stubStore) UpdateApp(ctx context.Context, app *domain.App, change *domain.AppChange) error {
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.apps[app.ID]; !ok {
		return store.NewStoreError("UpdateApp", "app", app.ID, "app not found", store.ErrNotFound)
	}
	clone := *app
	s.apps[app.ID] = &clone
	s.snapshot(app)
	if change != nil {
		s.changes = append(s.changes, *change)
	}
	return nil
}

func (s *stubStore) ListApps(ctx context.Context, filter store.AppFilter, opts store.ListOptions) ([]domain.App, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var apps []domain.App
	for _, app := range s.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.Filter != "" &&
			!strings.Contains(app.ID, filter.Filter) &&
			!strings.Contains(app.VendorID, filter.Filter) &&
			!strings.Contains(app.Name, filter.Filter) {
			continue
		}
		apps = append(apps, *app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return page(apps, opts), nil
}

func (s *stubStore) ListAppsForVendor(ctx context.Context, vendorID string, opts store.ListOptions) ([]domain.App, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var apps []domain.App
	for _, app := range s.apps {
		if app.VendorID == vendorID {
			apps = append(apps, *app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return page(apps, opts), nil
}

func (s *stubStore) ListPublishedApps(ctx context.Context, opts store.ListOptions) ([]domain.App, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var apps []domain.App
	for _, app := range s.apps {
		if app.Status == domain.StatusApproved && app.IsPublic {
			apps = append(apps, *app)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return page(apps, opts), nil
}

func (s *stubStore) ListAppChanges(ctx context.Context, since, until time.Time) ([]domain.AppChange, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var changes []domain.AppChange
	for _, c := range s.changes {
		if !since.IsZero() && c.CreatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && !c.CreatedAt.Before(until.AddDate(0, 0, 1)) {
			continue
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func (s *stubStore) CreateVendor(ctx context.Context, vendor *domain.Vendor) error {
	if s.failWith != nil {
		return s.failWith
	}
	if _, exists := s.vendors[vendor.ID]; exists {
		return store.NewStoreError("CreateVendor", "vendor", vendor.ID, "vendor with this ID already exists", store.ErrDuplicateID)
	}
	clone := *vendor
	s.vendors[vendor.ID] = &clone
	return nil
}

func (s *stubStore) GetVendor(ctx context.Context, id string) (*domain.Vendor, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	vendor, ok := s.vendors[id]
	if !ok {
		return nil, store.NewStoreError("GetVendor", "vendor", id, "vendor not found", store.ErrNotFound)
	}
	clone := *vendor
	return &clone, nil
}

func (s *stubStore) UpdateVendor(ctx context.Context, vendor *domain.Vendor) error {
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.vendors[vendor.ID]; !ok {
		return store.NewStoreError("UpdateVendor", "vendor", vendor.ID, "vendor not found", store.ErrNotFound)
	}
	clone := *vendor
	s.vendors[vendor.ID] = &clone
	return nil
}

func (s *stubStore) RenameVendor(ctx context.Context, oldID, newID string) error {
	if s.failWith != nil {
		return s.failWith
	}
	vendor, ok := s.vendors[oldID]
	if !ok {
		return store.NewStoreError("RenameVendor", "vendor", oldID, "vendor not found", store.ErrNotFound)
	}
	if _, exists := s.vendors[newID]; exists {
		return store.NewStoreError("RenameVendor", "vendor", newID, "vendor with this ID already exists", store.ErrDuplicateID)
	}
	vendor.ID = newID
	vendor.IsApproved = true
	delete(s.vendors, oldID)
	s.vendors[newID] = vendor
	for _, app := range s.apps {
		if app.VendorID == oldID {
			app.VendorID = newID
		}
	}
	return nil
}

func (s *stubStore) ListVendors(ctx context.Context, opts store.ListOptions) ([]domain.Vendor, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	var vendors []domain.Vendor
	for _, v := range s.vendors {
		vendors = append(vendors, *v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i].ID < vendors[j].ID })
	return vendors, nil
}

func (s *stubStore) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	if s.failWith != nil {
		return s.failWith
	}
	for key := range s.invitations {
		if strings.HasPrefix(key, inv.VendorID+"|"+inv.Email+"|") {
			return store.NewStoreError("CreateInvitation", "invitation", inv.Email, "invitation for this email already exists", store.ErrDuplicateID)
		}
	}
	clone := *inv
	s.invitations[invKey(inv.VendorID, inv.Email, inv.Code)] = &clone
	return nil
}

func (s *stubStore) GetInvitation(ctx context.Context, vendorID, email, code string) (*domain.Invitation, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	inv, ok := s.invitations[invKey(vendorID, email, code)]
	if !ok {
		return nil, store.NewStoreError("GetInvitation", "invitation", email, "invitation not found", store.ErrNotFound)
	}
	clone := *inv
	return &clone, nil
}

func (s *stubStore) DeleteInvitation(ctx context.Context, vendorID, email, code string) error {
	if s.failWith != nil {
		return s.failWith
	}
	key := invKey(vendorID, email, code)
	if _, ok := s.invitations[key]; !ok {
		return store.NewStoreError("DeleteInvitation", "invitation", email, "invitation not found", store.ErrNotFound)
	}
	delete(s.invitations, key)
	return nil
}

func (s *stubStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *stubStore) Close() error { return nil }

func page(items []domain.App, opts store.ListOptions) []domain.App {
	opts = opts.Normalize()
	if opts.Offset >= len(items) {
		return nil
	}
	end := opts.Offset + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[opts.Offset:end]
}

// failingMailer always fails to send.
type failingMailer struct{}

func (failingMailer) Send(ctx context.Context, msg email.Message) error {
	return domain.NewUpstreamError("failed to send email", nil)
}

// failingObjects fails every existence check.
type failingObjects struct{}

func (failingObjects) Exists(ctx context.Context, key string) (bool, error) {
	return false, domain.NewUpstreamError("object storage request failed", nil)
}
