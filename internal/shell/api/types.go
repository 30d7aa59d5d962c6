package api

// Request models for the OpenAPI document. Handlers decode into generic maps
// and validate through schemas; these structs only describe the wire shape.

// CreateAppRequest is the body of POST /vendors/{vendor}/apps.
type CreateAppRequest struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Type             string   `json:"type"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	ImageTag         string   `json:"imageTag,omitempty"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	LongDescription  string   `json:"longDescription,omitempty"`
	LicenseURL       string   `json:"licenseUrl,omitempty"`
	DocumentationURL string   `json:"documentationUrl,omitempty"`
	RepositoryURL    string   `json:"repositoryUrl,omitempty"`
	UIOptions        []string `json:"uiOptions,omitempty"`
}

// UpdateAppRequest is the body of PUT /vendors/{vendor}/apps/{appId}.
type UpdateAppRequest struct {
	Name             string   `json:"name,omitempty"`
	Type             string   `json:"type,omitempty"`
	ImageURL         string   `json:"imageUrl,omitempty"`
	ImageTag         string   `json:"imageTag,omitempty"`
	ShortDescription string   `json:"shortDescription,omitempty"`
	LongDescription  string   `json:"longDescription,omitempty"`
	LicenseURL       string   `json:"licenseUrl,omitempty"`
	DocumentationURL string   `json:"documentationUrl,omitempty"`
	RepositoryURL    string   `json:"repositoryUrl,omitempty"`
	UIOptions        []string `json:"uiOptions,omitempty"`
}

// AdminUpdateAppRequest is the body of PUT /admin/apps/{id}.
type AdminUpdateAppRequest struct {
	UpdateAppRequest
	Status   string `json:"status,omitempty"`
	IsPublic *bool  `json:"isPublic,omitempty"`
}

// RejectAppRequest is the body of POST /admin/apps/{id}/reject.
type RejectAppRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CreateVendorRequest is the body of POST /admin/vendors.
type CreateVendorRequest struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Email    string `json:"email"`
	IsPublic bool   `json:"isPublic,omitempty"`
}

// ApproveVendorRequest is the body of POST /admin/vendors/{vendor}/approve.
type ApproveVendorRequest struct {
	NewID string `json:"newId,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Vendor   string `json:"vendor"`
}

// ConfirmSignupRequest is the body of POST /auth/confirm.
type ConfirmSignupRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ConfirmForgotPasswordRequest is the body of POST /auth/forgot/confirm.
type ConfirmForgotPasswordRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// MessageResponse is the generic acknowledgement envelope.
type MessageResponse struct {
	Message string `json:"message"`
}
