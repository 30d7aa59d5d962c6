// Package identity abstracts the user pool behind the portal. Users, their
// vendor memberships and the admin flag live in the identity provider, not in
// the portal database.
package identity

import (
	"context"

	"github.com/artpar/devportal/internal/core/domain"
)

// NewUser is a signup request.
type NewUser struct {
	Email    string
	Name     string
	Password string
	// VendorID is the vendor the user wants to join. Membership is granted
	// by an admin or an invitation, never by signup itself.
	VendorID string
}

// Tokens is the result of a successful login.
type Tokens struct {
	AccessToken  string `json:"token"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int32  `json:"expiresIn,omitempty"`
}

// Provider is the user pool interface.
//
// Membership mutations (AddUserToVendor, RemoveUserFromVendor) are
// idempotent: adding an existing membership or removing a missing one
// succeeds without change.
type Provider interface {
	// Credential flows
	Login(ctx context.Context, email, password string) (*Tokens, error)
	SignUp(ctx context.Context, user NewUser) error
	ConfirmSignUp(ctx context.Context, email, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, password, code string) error

	// GetUser resolves an access token to the user profile.
	GetUser(ctx context.Context, accessToken string) (*domain.User, error)

	// Profile and membership administration
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	AddUserToVendor(ctx context.Context, email, vendorID string) error
	RemoveUserFromVendor(ctx context.Context, email, vendorID string) error
	MakeUserAdmin(ctx context.Context, email string) error
	EnableUser(ctx context.Context, email string) error

	// Listings
	ListUsers(ctx context.Context, filter string) ([]domain.User, error)
	ListUsersForVendor(ctx context.Context, vendorID string) ([]domain.User, error)
}
