package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/email"
	"github.com/artpar/devportal/internal/shell/storage"
	"github.com/artpar/devportal/internal/shell/store"
)

// =============================================================================
// Approval Service
// =============================================================================

// ApprovalService is the gate between draft apps and the public listing.
// Every transition re-checks field completeness and icon existence before it
// commits.
type ApprovalService struct {
	store         store.Store
	objects       storage.ObjectStore
	mailer        email.Mailer
	logger        *slog.Logger
	reviewAddress string
	now           func() time.Time
}

// NewApprovalService creates the approval gate. reviewAddress receives the
// approval-request mails for manual inspection.
func NewApprovalService(st store.Store, objects storage.ObjectStore, mailer email.Mailer, reviewAddress string, logger *slog.Logger) *ApprovalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ApprovalService{
		store:         st,
		objects:       objects,
		mailer:        mailer,
		logger:        logger,
		reviewAddress: reviewAddress,
		now:           time.Now,
	}
}

// RequestApproval submits a vendor's app for review. The gate's checks run
// here so a reviewer only ever sees complete submissions; on success the app
// moves to inReview and the review team receives the full payload.
func (s *ApprovalService) RequestApproval(ctx context.Context, appID string, actor *domain.User) (*domain.App, error) {
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}
	if !actor.IsAdmin && !actor.HasVendor(app.VendorID) {
		return nil, domain.NewNotFoundError("app %s not found", appID)
	}
	if !app.Status.CanTransition(domain.StatusInReview) {
		return nil, domain.NewValidationError("app in status %s cannot be submitted for review", app.Status)
	}

	if err := s.checkReadiness(ctx, app); err != nil {
		return nil, err
	}

	if err := s.transition(ctx, app, domain.StatusInReview, actor); err != nil {
		return nil, err
	}

	// The review mail carries the full record for manual inspection.
	payload, _ := json.MarshalIndent(app, "", "  ")
	if err := s.mailer.Send(ctx, email.Message{
		To:      s.reviewAddress,
		Subject: fmt.Sprintf("App %s waiting for approval", app.ID),
		Body:    string(payload),
	}); err != nil {
		s.logger.Error("review notification failed", "app", app.ID, "error", err)
		return app, domain.NewUpstreamError("app submitted but review notification failed", err)
	}

	return app, nil
}

// Approve is the admin confirm step. Preconditions are re-checked, the app is
// committed as approved and published, then the vendor is notified. A failed
// notification is surfaced but never reverses the committed approval.
func (s *ApprovalService) Approve(ctx context.Context, appID string, actor *domain.User) (*domain.App, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}
	if !app.Status.CanTransition(domain.StatusApproved) {
		return nil, domain.NewValidationError("app in status %s cannot be approved", app.Status)
	}

	if err := s.checkReadiness(ctx, app); err != nil {
		return nil, err
	}

	vendor, err := s.store.GetVendor(ctx, app.VendorID)
	if err != nil {
		return nil, storeErr(err, "vendor "+app.VendorID+" not found", "")
	}

	app.IsPublic = true
	if err := s.transition(ctx, app, domain.StatusApproved, actor); err != nil {
		return nil, err
	}

	if err := s.mailer.Send(ctx, email.Message{
		To:      vendor.Email,
		Subject: fmt.Sprintf("App %s has been approved", app.ID),
		Body:    fmt.Sprintf("Your app %s (%s) has been approved and is now published.", app.Name, app.ID),
	}); err != nil {
		s.logger.Error("approval notification failed", "app", app.ID, "vendor", vendor.ID, "error", err)
		return app, domain.NewUpstreamError("app approved but vendor notification failed", err)
	}

	s.logger.Info("app approved", "app", app.ID, "by", actor.Email)
	return app, nil
}

// Reject moves an in-review app back to rejected and tells the vendor why.
func (s *ApprovalService) Reject(ctx context.Context, appID, reason string, actor *domain.User) (*domain.App, error) {
	if !actor.IsAdmin {
		return nil, domain.NewForbiddenError("admin role required")
	}
	app, err := s.store.GetApp(ctx, appID)
	if err != nil {
		return nil, storeErr(err, "app "+appID+" not found", "")
	}
	if !app.Status.CanTransition(domain.StatusRejected) {
		return nil, domain.NewValidationError("app in status %s cannot be rejected", app.Status)
	}

	vendor, err := s.store.GetVendor(ctx, app.VendorID)
	if err != nil {
		return nil, storeErr(err, "vendor "+app.VendorID+" not found", "")
	}

	if err := s.transition(ctx, app, domain.StatusRejected, actor); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your app %s (%s) was not approved.", app.Name, app.ID)
	if reason != "" {
		body += "\n\nReason: " + reason
	}
	if err := s.mailer.Send(ctx, email.Message{
		To:      vendor.Email,
		Subject: fmt.Sprintf("App %s has been rejected", app.ID),
		Body:    body,
	}); err != nil {
		s.logger.Error("rejection notification failed", "app", app.ID, "vendor", vendor.ID, "error", err)
		return app, domain.NewUpstreamError("app rejected but vendor notification failed", err)
	}

	return app, nil
}

// transition commits a status change with its change record.
func (s *ApprovalService) transition(ctx context.Context, app *domain.App, to domain.AppStatus, actor *domain.User) error {
	before := *app
	app.Status = to
	app.Version++
	app.UpdatedAt = s.now().UTC()

	change := &domain.AppChange{
		AppID:     app.ID,
		Version:   app.Version,
		ChangedBy: actor.Email,
		CreatedAt: app.UpdatedAt,
		Diff:      domain.DiffApps(&before, app),
	}
	if err := s.store.UpdateApp(ctx, app, change); err != nil {
		return storeErr(err, "app "+app.ID+" not found", "")
	}
	return nil
}

// checkReadiness runs the completeness and icon checks, collecting every
// problem into one validation error. Storage failures other than a missing
// object abort with an upstream error before any state changes.
func (s *ApprovalService) checkReadiness(ctx context.Context, app *domain.App) error {
	problems := app.MissingApprovalFields()

	type iconCheck struct {
		label string
		key   string
		found bool
		err   error
	}
	key32, key64 := app.IconKeys()
	checks := []iconCheck{
		{label: "icon 32px (" + key32 + ")", key: key32},
		{label: "icon 64px (" + key64 + ")", key: key64},
	}

	// The two lookups are independent; run both and report everything found.
	var wg sync.WaitGroup
	for i := range checks {
		wg.Add(1)
		go func(c *iconCheck) {
			defer wg.Done()
			c.found, c.err = s.objects.Exists(ctx, c.key)
		}(&checks[i])
	}
	wg.Wait()

	for _, c := range checks {
		if c.err != nil {
			return domain.NewUpstreamError("icon check failed", c.err)
		}
		if !c.found {
			problems = append(problems, c.label)
		}
	}

	if len(problems) > 0 {
		return domain.NewValidationError("app is not ready for approval, missing: %s", strings.Join(problems, ", "))
	}
	return nil
}
