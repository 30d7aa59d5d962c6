package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/core/schema"
	"github.com/artpar/devportal/internal/shell/store"
)

// =============================================================================
// App Service
// =============================================================================

// AppService manages app records and their change history.
type AppService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewAppService creates an app service.
func NewAppService(st store.Store, logger *slog.Logger) *AppService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppService{store: st, logger: logger, now: time.Now}
}

// AppDetail is an app joined with its owning vendor record.
type AppDetail struct {
	domain.App
	Vendor *domain.Vendor `json:"vendor"`
}

// InsertApp creates a new draft app under the vendor. The caller must be a
// member of the vendor; the app id is namespaced under the vendor id.
func (s *AppService) InsertApp(ctx context.Context, vendorID string, fields map[string]any, actor *domain.User) (*domain.App, error) {
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		return nil, domain.NewForbiddenError("user is not a member of vendor %s", vendorID)
	}
	if err := schema.CreateApp().Validate(fields); err != nil {
		return nil, err
	}
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, storeErr(err, "vendor "+vendorID+" not found", "")
	}

	now := s.now().UTC()
	app := &domain.App{
		ID:        vendor.ID + "." + fields["id"].(string),
		VendorID:  vendor.ID,
		Version:   1,
		Status:    domain.StatusDraft,
		CreatedBy: actor.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyAppFields(app, fields)

	if err := s.store.CreateApp(ctx, app); err != nil {
		return nil, storeErr(err, "", "app "+app.ID+" already exists")
	}

	s.logger.Info("app created", "app", app.ID, "vendor", vendor.ID, "by", actor.Email)
	return app, nil
}

// UpdateApp applies an owner edit. The app drops back to draft, its version
// is bumped and a change record is appended. Approved apps are immutable for
// owners; only an admin may touch them.
func (s *AppService) UpdateApp(ctx context.Context, appID string, fields map[string]any, actor *domain.User) (*domain.App, error) {
	app, err := s.getOwnedApp(ctx, appID, actor)
	if err != nil {
		return nil, err
	}
	if app.Status == domain.StatusApproved {
		return nil, domain.NewValidationError("approved app cannot be modified, ask an admin to update it")
	}
	if err := schema.UpdateApp().Validate(fields); err != nil {
		return nil, err
	}

	before := *app
	applyAppFields(app, fields)
	app.Status = domain.StatusDraft

	return s.commitUpdate(ctx, &before, app, actor)
}

// UpdateAppByAdmin applies an admin edit. Ownership and the transition table
// are bypassed; status and visibility may be forced.
func (s *AppService) UpdateAppByAdmin(ctx context.Context, appID string, fields map[string]any, actor *domain.User) (*domain.App, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}
	if err := schema.AdminUpdateApp().Validate(fields); err != nil {
		return nil, err
	}

	before := *app
	applyAppFields(app, fields)
	if v, ok := fields["status"].(string); ok {
		app.Status = domain.AppStatus(v)
	}
	if v, ok := fields["isPublic"].(bool); ok {
		app.IsPublic = v
	}

	return s.commitUpdate(ctx, &before, app, actor)
}

// commitUpdate bumps the version and persists the app together with its
// change record. A no-op edit is returned unchanged without a new version.
func (s *AppService) commitUpdate(ctx context.Context, before, app *domain.App, actor *domain.User) (*domain.App, error) {
	diff := domain.DiffApps(before, app)
	if len(diff) == 0 {
		return app, nil
	}

	app.Version++
	app.UpdatedAt = s.now().UTC()
	change := &domain.AppChange{
		AppID:     app.ID,
		Version:   app.Version,
		ChangedBy: actor.Email,
		CreatedAt: app.UpdatedAt,
		Diff:      diff,
	}

	if err := s.store.UpdateApp(ctx, app, change); err != nil {
		return nil, storeErr(err, "app "+app.ID+" not found", "")
	}

	s.logger.Info("app updated", "app", app.ID, "version", app.Version, "by", actor.Email)
	return app, nil
}

// GetAppForVendor returns an app owned by one of the actor's vendors. Apps of
// other vendors read as not found.
func (s *AppService) GetAppForVendor(ctx context.Context, appID string, actor *domain.User) (*domain.App, error) {
	return s.getOwnedApp(ctx, appID, actor)
}

func (s *AppService) getOwnedApp(ctx context.Context, appID string, actor *domain.User) (*domain.App, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}
	// Ownership failures read the same as absence.
	if !actor.IsAdmin && !actor.HasVendor(app.VendorID) {
		return nil, domain.NewNotFoundError("app %s not found", appID)
	}
	return app, nil
}

// ListApps returns a page of apps for the admin console.
func (s *AppService) ListApps(ctx context.Context, filter store.AppFilter, offset, limit int, actor *domain.User) ([]domain.App, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, domain.NewValidationError("parameter status must be one of: draft, inReview, approved, rejected")
	}
	apps, err := s.store.ListApps(ctx, filter, store.ListOptions{Offset: offset, Limit: limit})
	if err != nil {
		return nil, storeErr(err, "", "")
	}
	return apps, nil
}

// ListAppsForVendor returns a page of the vendor's apps.
func (s *AppService) ListAppsForVendor(ctx context.Context, vendorID string, offset, limit int, actor *domain.User) ([]domain.App, error) {
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		return nil, domain.NewForbiddenError("user is not a member of vendor %s", vendorID)
	}
	apps, err := s.store.ListAppsForVendor(ctx, vendorID, store.ListOptions{Offset: offset, Limit: limit})
	if err != nil {
		return nil, storeErr(err, "", "")
	}
	return apps, nil
}

// GetAppWithVendorForAdmin returns an app joined with its vendor. A non-zero
// version selects that historical snapshot instead of the latest revision.
func (s *AppService) GetAppWithVendorForAdmin(ctx context.Context, appID string, version int, actor *domain.User) (*AppDetail, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}

	var app *domain.App
	var err error
	if version > 0 {
		app, err = s.store.GetAppVersion(ctx, appID, version)
	} else {
		app, err = s.store.GetApp(ctx, appID)
	}
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}

	vendor, err := s.store.GetVendor(ctx, app.VendorID)
	if err != nil {
		return nil, storeErr(err, "vendor "+app.VendorID+" not found", "")
	}

	return &AppDetail{App: *app, Vendor: vendor}, nil
}

// ListAppChanges returns change records in the inclusive [since, until] date
// range. Bounds are YYYY-MM-DD strings, both optional; parsing happens before
// any query executes.
func (s *AppService) ListAppChanges(ctx context.Context, sinceStr, untilStr string, actor *domain.User) ([]domain.AppChange, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}
	since, err := schema.ParseDate("since", sinceStr)
	if err != nil {
		return nil, err
	}
	until, err := schema.ParseDate("until", untilStr)
	if err != nil {
		return nil, err
	}

	changes, err := s.store.ListAppChanges(ctx, since, until)
	if err != nil {
		return nil, storeErr(err, "", "")
	}
	return changes, nil
}

// ListPublishedApps is the public, unauthenticated listing.
func (s *AppService) ListPublishedApps(ctx context.Context, offset, limit int) ([]domain.App, error) {
	apps, err := s.store.ListPublishedApps(ctx, store.ListOptions{Offset: offset, Limit: limit})
	if err != nil {
		return nil, storeErr(err, "", "")
	}
	return apps, nil
}

// GetPublishedApp returns one published app. Unpublished apps read as not
// found to unauthenticated callers.
func (s *AppService) GetPublishedApp(ctx context.Context, appID string) (*domain.App, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}
	if app.Status != domain.StatusApproved || !app.IsPublic {
		return nil, domain.NewNotFoundError("app %s not found", appID)
	}
	return app, nil
}

// applyAppFields copies validated request fields onto the app. Unknown keys
// and nulls were already rejected by the schema; anything that still fails
// the type assertion is left untouched.
func applyAppFields(app *domain.App, fields map[string]any) {
	targets := map[string]*string{
		"name":             &app.Name,
		"type":             &app.Type,
		"imageUrl":         &app.ImageURL,
		"imageTag":         &app.ImageTag,
		"shortDescription": &app.ShortDescription,
		"longDescription":  &app.LongDescription,
		"licenseUrl":       &app.LicenseURL,
		"documentationUrl": &app.DocumentationURL,
		"repositoryUrl":    &app.RepositoryURL,
	}
	for name, value := range fields {
		if name == "uiOptions" {
			app.UIOptions = toStringList(value)
			continue
		}
		target, ok := targets[name]
		if !ok {
			continue
		}
		if str, ok := value.(string); ok {
			*target = str
		}
	}
}

func toStringList(value any) domain.StringList {
	switch v := value.(type) {
	case []string:
		return domain.StringList(v)
	case []any:
		list := make(domain.StringList, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
		return list
	default:
		return nil
	}
}
