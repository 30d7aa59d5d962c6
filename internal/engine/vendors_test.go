package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/email"
	"github.com/artpar/devportal/internal/shell/identity"
)

const portalURL = "https://portal.example.com"

func vendorFixture(t *testing.T) (*stubStore, *identity.DevPool, *email.LogMailer, *VendorService) {
	t.Helper()
	st := newStubStore()
	pool := identity.NewDevPool()
	mailer := email.NewLogMailer(nil)
	svc := NewVendorService(st, pool, mailer, portalURL, nil)
	return st, pool, mailer, svc
}

func TestCreateVendor(t *testing.T) {
	st, _, _, svc := vendorFixture(t)

	vendor, err := svc.Create(context.Background(), map[string]any{
		"name":    "Acme Corp",
		"address": "Main St 1",
		"email":   "acme@example.com",
	}, admin())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(vendor.ID, "tv_"))
	assert.False(t, vendor.IsApproved)
	assert.Equal(t, "Acme Corp", vendor.Name)
	assert.Contains(t, st.vendors, vendor.ID)
}

func TestCreateVendorCollectsAllProblems(t *testing.T) {
	_, _, _, svc := vendorFixture(t)

	_, err := svc.Create(context.Background(), map[string]any{
		"email": "not-an-email",
	}, admin())
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "parameter name is required")
	assert.Contains(t, err.Error(), "parameter address is required")
	assert.Contains(t, err.Error(), "parameter email must be an email address")
}

func TestApproveVendorWithoutRename(t *testing.T) {
	st, _, _, svc := vendorFixture(t)
	testVendor(st, "tv_1234abcd").IsApproved = false

	vendor, err := svc.Approve(context.Background(), "tv_1234abcd", "", admin())
	require.NoError(t, err)
	assert.True(t, vendor.IsApproved)
	assert.Equal(t, "tv_1234abcd", vendor.ID)
}

func TestApproveVendorRenameMigratesEveryMember(t *testing.T) {
	st, pool, _, svc := vendorFixture(t)
	testVendor(st, "tv_1234abcd")
	require.NoError(t, pool.SeedUser("u1@example.com", "U1", "Password1", []string{"tv_1234abcd"}, false))
	require.NoError(t, pool.SeedUser("u2@example.com", "U2", "Password1", []string{"tv_1234abcd", "other"}, false))

	vendor, err := svc.Approve(context.Background(), "tv_1234abcd", "acme", admin())
	require.NoError(t, err)
	assert.Equal(t, "acme", vendor.ID)
	assert.True(t, vendor.IsApproved)
	assert.NotContains(t, st.vendors, "tv_1234abcd")

	for _, email := range []string{"u1@example.com", "u2@example.com"} {
		user, err := pool.GetUserByEmail(context.Background(), email)
		require.NoError(t, err)
		assert.True(t, user.HasVendor("acme"), "%s must hold the new id", email)
		assert.False(t, user.HasVendor("tv_1234abcd"), "%s must not keep the old id", email)
	}

	u2, err := pool.GetUserByEmail(context.Background(), "u2@example.com")
	require.NoError(t, err)
	assert.True(t, u2.HasVendor("other"))
}

func TestApproveVendorRenameConflicts(t *testing.T) {
	st, _, _, svc := vendorFixture(t)
	testVendor(st, "tv_1234abcd")
	testVendor(st, "acme")

	_, err := svc.Approve(context.Background(), "tv_1234abcd", "acme", admin())
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestApproveVendorRequiresAdmin(t *testing.T) {
	st, _, _, svc := vendorFixture(t)
	testVendor(st, "tv_1234abcd")

	_, err := svc.Approve(context.Background(), "tv_1234abcd", "", member("tv_1234abcd"))
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestMembershipIsIdempotent(t *testing.T) {
	st, pool, _, svc := vendorFixture(t)
	testVendor(st, "acme")
	require.NoError(t, pool.SeedUser("u1@example.com", "U1", "Password1", []string{"acme"}, false))

	// Adding an existing member changes nothing.
	require.NoError(t, svc.AddUser(context.Background(), "acme", "u1@example.com", admin()))
	user, err := pool.GetUserByEmail(context.Background(), "u1@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, user.Vendors)

	// Removing twice succeeds both times.
	require.NoError(t, svc.RemoveUser(context.Background(), "acme", "u1@example.com", admin()))
	require.NoError(t, svc.RemoveUser(context.Background(), "acme", "u1@example.com", admin()))
	user, err = pool.GetUserByEmail(context.Background(), "u1@example.com")
	require.NoError(t, err)
	assert.Empty(t, user.Vendors)
}

func TestInviteAndAccept(t *testing.T) {
	st, pool, mailer, svc := vendorFixture(t)
	testVendor(st, "acme")
	require.NoError(t, pool.SeedUser("owner@example.com", "Owner", "Password1", []string{"acme"}, false))
	require.NoError(t, pool.SeedUser("new@example.com", "New", "Password1", nil, false))
	inviter := &domain.User{Email: "owner@example.com", Vendors: []string{"acme"}}

	require.NoError(t, svc.Invite(context.Background(), "acme", "new@example.com", inviter))

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "new@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, portalURL+"/vendors/acme/invitations/new@example.com/")

	var code string
	for _, inv := range st.invitations {
		code = inv.Code
	}
	require.NotEmpty(t, code)

	require.NoError(t, svc.AcceptInvitation(context.Background(), "acme", "new@example.com", code))
	user, err := pool.GetUserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.True(t, user.HasVendor("acme"))

	// The code is single use.
	err = svc.AcceptInvitation(context.Background(), "acme", "new@example.com", code)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAcceptInvitationMasksMismatch(t *testing.T) {
	st, pool, _, svc := vendorFixture(t)
	testVendor(st, "acme")
	require.NoError(t, pool.SeedUser("new@example.com", "New", "Password1", nil, false))
	inviter := &domain.User{Email: "owner@example.com", Vendors: []string{"acme"}}
	require.NoError(t, svc.Invite(context.Background(), "acme", "new@example.com", inviter))

	// Wrong code, wrong email, wrong vendor: all read identically.
	for _, tc := range [][3]string{
		{"acme", "new@example.com", "wrong-code"},
		{"acme", "other@example.com", "wrong-code"},
		{"other", "new@example.com", "wrong-code"},
	} {
		err := svc.AcceptInvitation(context.Background(), tc[0], tc[1], tc[2])
		require.Error(t, err)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
		assert.Equal(t, "invitation not found", err.Error())
	}
}

func TestAcceptInvitationUnknownUserMasked(t *testing.T) {
	st, _, _, svc := vendorFixture(t)
	testVendor(st, "acme")
	inviter := &domain.User{Email: "owner@example.com", Vendors: []string{"acme"}}
	require.NoError(t, svc.Invite(context.Background(), "acme", "ghost@example.com", inviter))

	var code string
	for _, inv := range st.invitations {
		code = inv.Code
	}

	err := svc.AcceptInvitation(context.Background(), "acme", "ghost@example.com", code)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, "invitation not found", err.Error())
}

func TestInviteRequiresMembership(t *testing.T) {
	st, _, _, svc := vendorFixture(t)
	testVendor(st, "acme")

	err := svc.Invite(context.Background(), "acme", "new@example.com", member("other"))
	require.Error(t, err)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}
