package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Vendor
// =============================================================================

// Vendor is an organization account that owns apps and has member users.
// Membership itself lives in the identity provider; the row here carries the
// organization record and its approval flag.
type Vendor struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Address    string    `json:"address" db:"address"`
	Email      string    `json:"email" db:"email"`
	IsPublic   bool      `json:"isPublic" db:"is_public"`
	IsApproved bool      `json:"isApproved" db:"is_approved"`
	CreatedBy  string    `json:"createdBy" db:"created_by"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}

// NewVendorID generates a short vendor code. An admin may replace it with a
// permanent id when approving the vendor.
func NewVendorID() string {
	return "tv_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

// =============================================================================
// Invitation
// =============================================================================

// Invitation is a single-use code granting vendor membership to an email.
// The (vendor, email, code) tuple must match exactly on accept; the row is
// deleted on consumption.
type Invitation struct {
	VendorID  string    `json:"vendor" db:"vendor_id"`
	Email     string    `json:"email" db:"email"`
	Code      string    `json:"code" db:"code"`
	CreatedBy string    `json:"createdBy" db:"created_by"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// NewInvitationCode generates a single-use invitation token.
func NewInvitationCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
