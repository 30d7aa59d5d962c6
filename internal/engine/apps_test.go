package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/store"
)

func testVendor(st *stubStore, id string) *domain.Vendor {
	vendor := &domain.Vendor{
		ID:         id,
		Name:       "Vendor " + id,
		Address:    "Main St 1",
		Email:      id + "@example.com",
		IsApproved: true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	st.vendors[id] = vendor
	return vendor
}

func member(vendors ...string) *domain.User {
	return &domain.User{Email: "user@example.com", Name: "User", Vendors: vendors}
}

func admin() *domain.User {
	return &domain.User{Email: "admin@example.com", Name: "Admin", IsAdmin: true}
}

func createFields() map[string]any {
	return map[string]any{
		"id":   "my-extractor",
		"name": "My Extractor",
		"type": "extractor",
	}
}

func TestInsertApp(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	assert.Equal(t, "acme.my-extractor", app.ID)
	assert.Equal(t, "acme", app.VendorID)
	assert.Equal(t, 1, app.Version)
	assert.Equal(t, domain.StatusDraft, app.Status)
	assert.Equal(t, "user@example.com", app.CreatedBy)
}

func TestInsertAppRequiresMembership(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	_, err := svc.InsertApp(context.Background(), "acme", createFields(), member("other"))
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestInsertAppDuplicateID(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	_, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	_, err = svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestInsertAppValidationCollectsAllProblems(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	_, err := svc.InsertApp(context.Background(), "acme", map[string]any{
		"type":    "spreadsheet",
		"unknown": true,
	}, member("acme"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "parameter id is required")
	assert.Contains(t, err.Error(), "parameter name is required")
	assert.Contains(t, err.Error(), "parameter type must be one of")
	assert.Contains(t, err.Error(), "unexpected parameter unknown")
}

func TestUpdateAppBumpsVersionAndRecordsChange(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	updated, err := svc.UpdateApp(context.Background(), app.ID, map[string]any{
		"shortDescription": "Pulls data",
	}, member("acme"))
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Pulls data", updated.ShortDescription)
	require.Len(t, st.changes, 1)
	change := st.changes[0]
	assert.Equal(t, app.ID, change.AppID)
	assert.Equal(t, 2, change.Version)
	assert.Equal(t, "user@example.com", change.ChangedBy)
	assert.Contains(t, change.Diff, "shortDescription")
}

func TestUpdateAppNoopKeepsVersion(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	updated, err := svc.UpdateApp(context.Background(), app.ID, map[string]any{
		"name": app.Name,
	}, member("acme"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
	assert.Empty(t, st.changes)
}

func TestUpdateAppRejectsNullField(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	_, err = svc.UpdateApp(context.Background(), app.ID, map[string]any{
		"imageUrl": nil,
	}, member("acme"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "parameter imageUrl must not be null")
}

func TestUpdateAppOtherVendorReadsAsNotFound(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	_, err = svc.UpdateApp(context.Background(), app.ID, map[string]any{"name": "x"}, member("other"))
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestUpdateApprovedAppRejectedForOwner(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)
	st.apps[app.ID].Status = domain.StatusApproved

	_, err = svc.UpdateApp(context.Background(), app.ID, map[string]any{"name": "x"}, member("acme"))
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUpdateAppByAdminForcesStatus(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	updated, err := svc.UpdateAppByAdmin(context.Background(), app.ID, map[string]any{
		"status":   string(domain.StatusApproved),
		"isPublic": true,
	}, admin())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusApproved, updated.Status)
	assert.True(t, updated.IsPublic)
	assert.Equal(t, 2, updated.Version)

	_, err = svc.UpdateAppByAdmin(context.Background(), app.ID, map[string]any{"name": "x"}, member("acme"))
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestGetAppWithVendorForAdmin(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)
	_, err = svc.UpdateApp(context.Background(), app.ID, map[string]any{"name": "Renamed"}, member("acme"))
	require.NoError(t, err)

	detail, err := svc.GetAppWithVendorForAdmin(context.Background(), app.ID, 0, admin())
	require.NoError(t, err)
	assert.Equal(t, "Renamed", detail.Name)
	require.NotNil(t, detail.Vendor)
	assert.Equal(t, "acme", detail.Vendor.ID)

	old, err := svc.GetAppWithVendorForAdmin(context.Background(), app.ID, 1, admin())
	require.NoError(t, err)
	assert.Equal(t, "My Extractor", old.Name)

	_, err = svc.GetAppWithVendorForAdmin(context.Background(), "acme.missing", 0, admin())
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestListAppsFilters(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	testVendor(st, "umbrella")
	svc := NewAppService(st, nil)

	_, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)
	_, err = svc.InsertApp(context.Background(), "umbrella", map[string]any{
		"id": "writer", "name": "Writer", "type": "writer",
	}, member("umbrella"))
	require.NoError(t, err)

	apps, err := svc.ListApps(context.Background(), store.AppFilter{Filter: "umbrella"}, 0, 100, admin())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "umbrella.writer", apps[0].ID)

	_, err = svc.ListApps(context.Background(), store.AppFilter{}, 0, 100, member("acme"))
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestListAppChangesValidatesDates(t *testing.T) {
	st := newStubStore()
	svc := NewAppService(st, nil)

	_, err := svc.ListAppChanges(context.Background(), "01/01/2024", "", admin())
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "since")
}

func TestListAppChangesInclusiveRange(t *testing.T) {
	st := newStubStore()
	day := func(d string) time.Time {
		ts, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		return ts
	}
	st.changes = []domain.AppChange{
		{AppID: "a.before", CreatedAt: day("2023-12-31")},
		{AppID: "a.start", CreatedAt: day("2024-01-01")},
		{AppID: "a.end", CreatedAt: day("2024-01-31").Add(23 * time.Hour)},
		{AppID: "a.after", CreatedAt: day("2024-02-01")},
	}
	svc := NewAppService(st, nil)

	changes, err := svc.ListAppChanges(context.Background(), "2024-01-01", "2024-01-31", admin())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "a.start", changes[0].AppID)
	assert.Equal(t, "a.end", changes[1].AppID)
}

func TestPublishedListingHidesUnapproved(t *testing.T) {
	st := newStubStore()
	testVendor(st, "acme")
	svc := NewAppService(st, nil)

	app, err := svc.InsertApp(context.Background(), "acme", createFields(), member("acme"))
	require.NoError(t, err)

	apps, err := svc.ListPublishedApps(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Empty(t, apps)

	_, err = svc.GetPublishedApp(context.Background(), app.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	st.apps[app.ID].Status = domain.StatusApproved
	st.apps[app.ID].IsPublic = true

	apps, err = svc.ListPublishedApps(context.Background(), 0, 100)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	got, err := svc.GetPublishedApp(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
}
