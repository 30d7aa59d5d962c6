package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/core/schema"
	"github.com/artpar/devportal/internal/shell/email"
	"github.com/artpar/devportal/internal/shell/identity"
	"github.com/artpar/devportal/internal/shell/store"
)

// =============================================================================
// Vendor Service
// =============================================================================

// VendorService manages vendor records, their approval and user membership.
// Membership lives in the identity provider; the service keeps it consistent
// with the vendor rows.
type VendorService struct {
	store    store.Store
	identity identity.Provider
	mailer   email.Mailer
	logger   *slog.Logger
	baseURL  string
	now      func() time.Time
}

// NewVendorService creates a vendor service. baseURL is used to build
// invitation links.
func NewVendorService(st store.Store, idp identity.Provider, mailer email.Mailer, baseURL string, logger *slog.Logger) *VendorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VendorService{
		store:    st,
		identity: idp,
		mailer:   mailer,
		logger:   logger,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// Create registers a new vendor in the unapproved state with a generated
// short id.
func (s *VendorService) Create(ctx context.Context, fields map[string]any, actor *domain.User) (*domain.Vendor, error) {
	if err := schema.CreateVendor().Validate(fields); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	vendor := &domain.Vendor{
		ID:        domain.NewVendorID(),
		Name:      fields["name"].(string),
		Address:   fields["address"].(string),
		Email:     fields["email"].(string),
		CreatedBy: actor.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if v, ok := fields["isPublic"].(bool); ok {
		vendor.IsPublic = v
	}

	if err := s.store.CreateVendor(ctx, vendor); err != nil {
		return nil, storeErr(err, "", "vendor "+vendor.ID+" already exists")
	}

	s.logger.Info("vendor created", "vendor", vendor.ID, "by", actor.Email)
	return vendor, nil
}

// Get returns one vendor record.
func (s *VendorService) Get(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, storeErr(err, "vendor "+vendorID+" not found", "")
	}
	return vendor, nil
}

// List returns a page of vendors.
func (s *VendorService) List(ctx context.Context, offset, limit int) ([]domain.Vendor, error) {
	vendors, err := s.store.ListVendors(ctx, store.ListOptions{Offset: offset, Limit: limit})
	if err != nil {
		return nil, storeErr(err, "", "")
	}
	return vendors, nil
}

// Approve marks a vendor approved. A non-empty newID also renames the vendor
// and migrates every member in the identity provider. Each member gains the
// new id before losing the old one so no member ever holds neither; if a
// removal fails after its add, the member keeps both ids and the migration
// continues.
func (s *VendorService) Approve(ctx context.Context, vendorID, newID string, actor *domain.User) (*domain.Vendor, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, storeErr(err, "vendor "+vendorID+" not found", "")
	}

	if newID == "" || newID == vendor.ID {
		vendor.IsApproved = true
		vendor.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateVendor(ctx, vendor); err != nil {
			return nil, storeErr(err, "vendor "+vendorID+" not found", "")
		}
		s.logger.Info("vendor approved", "vendor", vendor.ID, "by", actor.Email)
		return vendor, nil
	}

	members, err := s.identity.ListUsersForVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if err := s.store.RenameVendor(ctx, vendorID, newID); err != nil {
		return nil, storeErr(err, "vendor "+vendorID+" not found", "vendor "+newID+" already exists")
	}

	// Add-before-remove, per member. The degraded state on a failed remove
	// is membership in both ids, never in neither.
	for _, member := range members {
		if err := s.identity.AddUserToVendor(ctx, member.Email, newID); err != nil {
			return nil, err
		}
		if err := s.identity.RemoveUserFromVendor(ctx, member.Email, vendorID); err != nil {
			s.logger.Error("member keeps old vendor id after rename",
				"user", member.Email, "old", vendorID, "new", newID, "error", err)
		}
	}

	vendor, err = s.store.GetVendor(ctx, newID)
	if err != nil {
		return nil, storeErr(err, "vendor "+newID+" not found", "")
	}

	s.logger.Info("vendor approved", "vendor", vendor.ID, "renamed_from", vendorID, "by", actor.Email)
	return vendor, nil
}

// AddUser grants vendor membership. Adding an existing member is a no-op
// success.
func (s *VendorService) AddUser(ctx context.Context, vendorID, userEmail string, actor *domain.User) error {
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		return domain.NewForbiddenError("user is not a member of vendor %s", vendorID)
	}
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return storeErr(err, "vendor "+vendorID+" not found", "")
	}
	return s.identity.AddUserToVendor(ctx, userEmail, vendorID)
}

// RemoveUser revokes vendor membership. Removing a non-member is a no-op
// success.
func (s *VendorService) RemoveUser(ctx context.Context, vendorID, userEmail string, actor *domain.User) error {
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		return domain.NewForbiddenError("user is not a member of vendor %s", vendorID)
	}
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return storeErr(err, "vendor "+vendorID+" not found", "")
	}
	return s.identity.RemoveUserFromVendor(ctx, userEmail, vendorID)
}

// Invite creates a single-use membership code for an email and mails the
// accept link.
func (s *VendorService) Invite(ctx context.Context, vendorID, inviteeEmail string, actor *domain.User) error {
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		return domain.NewForbiddenError("user is not a member of vendor %s", vendorID)
	}
	vendor, err := s.store.GetVendor(ctx, vendorID)
	if err != nil {
		return storeErr(err, "vendor "+vendorID+" not found", "")
	}

	inv := &domain.Invitation{
		VendorID:  vendor.ID,
		Email:     inviteeEmail,
		Code:      domain.NewInvitationCode(),
		CreatedBy: actor.Email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return storeErr(err, "", "invitation for "+inviteeEmail+" already exists")
	}

	link := fmt.Sprintf("%s/vendors/%s/invitations/%s/%s", s.baseURL, vendor.ID, inviteeEmail, inv.Code)
	if err := s.mailer.Send(ctx, email.Message{
		To:      inviteeEmail,
		Subject: fmt.Sprintf("Invitation to join vendor %s", vendor.Name),
		Body:    fmt.Sprintf("%s invited you to join vendor %s.\n\nAccept the invitation: %s", actor.Email, vendor.Name, link),
	}); err != nil {
		s.logger.Error("invitation mail failed", "vendor", vendor.ID, "email", inviteeEmail, "error", err)
		return domain.NewUpstreamError("invitation created but mail delivery failed", err)
	}

	s.logger.Info("invitation created", "vendor", vendor.ID, "email", inviteeEmail, "by", actor.Email)
	return nil
}

// AcceptInvitation consumes a code and grants membership. Any mismatch reads
// as not-found so callers cannot probe which part of the tuple was wrong.
func (s *VendorService) AcceptInvitation(ctx context.Context, vendorID, inviteeEmail, code string) error {
	inv, err := s.store.GetInvitation(ctx, vendorID, inviteeEmail, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NewNotFoundError("invitation not found")
		}
		return storeErr(err, "invitation not found", "")
	}

	if err := s.identity.AddUserToVendor(ctx, inv.Email, inv.VendorID); err != nil {
		// The invited address has no account yet. Mask as not-found like
		// every other invitation failure.
		if domain.IsNotFound(err) {
			return domain.NewNotFoundError("invitation not found")
		}
		return err
	}

	if err := s.store.DeleteInvitation(ctx, inv.VendorID, inv.Email, inv.Code); err != nil {
		return storeErr(err, "invitation not found", "")
	}

	s.logger.Info("invitation accepted", "vendor", inv.VendorID, "email", inv.Email)
	return nil
}
