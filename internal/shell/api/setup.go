package api

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/engine"
	"github.com/artpar/devportal/internal/shell/api/middleware"
	"github.com/artpar/devportal/internal/shell/api/openapi"
	"github.com/artpar/devportal/internal/shell/identity"
)

// =============================================================================
// API Setup
// =============================================================================

// APIConfig holds the dependencies of the HTTP surface.
type APIConfig struct {
	Apps     *engine.AppService
	Approval *engine.ApprovalService
	Vendors  *engine.VendorService
	Identity identity.Provider
	Logger   *slog.Logger

	// BaseURL is advertised as the server URL in the OpenAPI document.
	BaseURL string
}

// SetupAPI builds the complete router: public catalog and auth routes, the
// authenticated vendor surface and the admin console.
func SetupAPI(cfg APIConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := NewHandlers(cfg.Apps, cfg.Approval, cfg.Vendors, cfg.Identity, cfg.Logger)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(recoveryMiddleware(cfg.Logger))

	authMW := middleware.NewAuthMiddleware(cfg.Identity, cfg.Logger)
	router.Use(authMW.Handler)

	router.HandleFunc("/health", healthHandler).Methods("GET")

	// Public catalog
	router.HandleFunc("/apps", h.handleListPublishedApps).Methods("GET")
	router.HandleFunc("/apps/{appId}", h.handleGetPublishedApp).Methods("GET")

	// Auth flows
	auth := router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", h.handleLogin).Methods("POST")
	auth.HandleFunc("/signup", h.handleSignup).Methods("POST")
	auth.HandleFunc("/confirm", h.handleConfirmSignup).Methods("POST")
	auth.HandleFunc("/confirm", h.handleConfirmSignupPage).Methods("GET")
	auth.HandleFunc("/forgot", h.handleForgotPassword).Methods("POST")
	auth.HandleFunc("/forgot/confirm", h.handleConfirmForgotPassword).Methods("POST")
	auth.Handle("/profile", middleware.RequireAuth(cfg.Logger)(http.HandlerFunc(h.handleProfile))).Methods("GET")

	// The accept link is opened from a mail client, so it stays public. The
	// code is the credential.
	router.HandleFunc("/vendors/{vendor}/invitations/{email}/{code}", h.handleAcceptInvitation).Methods("GET")

	// Vendor surface
	vendors := router.PathPrefix("/vendors").Subrouter()
	vendors.Use(middleware.RequireAuth(cfg.Logger))
	vendors.HandleFunc("/{vendor}", h.handleGetVendor).Methods("GET")
	vendors.HandleFunc("/{vendor}/users", h.handleListVendorUsers).Methods("GET")
	vendors.HandleFunc("/{vendor}/users/{email}", h.handleAddVendorUser).Methods("POST")
	vendors.HandleFunc("/{vendor}/users/{email}", h.handleRemoveVendorUser).Methods("DELETE")
	vendors.HandleFunc("/{vendor}/invitations/{email}", h.handleInviteUser).Methods("POST")
	vendors.HandleFunc("/{vendor}/apps", h.handleInsertApp).Methods("POST")
	vendors.HandleFunc("/{vendor}/apps", h.handleListVendorApps).Methods("GET")
	vendors.HandleFunc("/{vendor}/apps/{appId}", h.handleGetVendorApp).Methods("GET")
	vendors.HandleFunc("/{vendor}/apps/{appId}", h.handleUpdateApp).Methods("PUT")
	vendors.HandleFunc("/{vendor}/apps/{appId}/approve", h.handleRequestApproval).Methods("POST")

	// Admin console
	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAdmin(cfg.Logger))
	admin.HandleFunc("/vendors", h.handleCreateVendor).Methods("POST")
	admin.HandleFunc("/vendors", h.handleListVendors).Methods("GET")
	admin.HandleFunc("/vendors/{vendor}/approve", h.handleApproveVendor).Methods("POST")
	admin.HandleFunc("/apps", h.handleAdminListApps).Methods("GET")
	admin.HandleFunc("/apps/{id}", h.handleAdminGetApp).Methods("GET")
	admin.HandleFunc("/apps/{id}", h.handleAdminUpdateApp).Methods("PUT")
	admin.HandleFunc("/apps/{id}/approve", h.handleAdminApproveApp).Methods("POST")
	admin.HandleFunc("/apps/{id}/reject", h.handleAdminRejectApp).Methods("POST")
	admin.HandleFunc("/changes", h.handleAdminListChanges).Methods("GET")
	admin.HandleFunc("/users", h.handleAdminListUsers).Methods("GET")
	admin.HandleFunc("/users/{email}/admin", h.handleAdminMakeUserAdmin).Methods("POST")
	admin.HandleFunc("/users/{email}/enable", h.handleAdminEnableUser).Methods("POST")
	admin.HandleFunc("/users/{email}/vendors/{vendor}", h.handleAdminAddUserVendor).Methods("POST")
	admin.HandleFunc("/users/{email}/vendors/{vendor}", h.handleAdminRemoveUserVendor).Methods("DELETE")

	// OpenAPI document
	gen := newOpenAPIGenerator(cfg.BaseURL)
	router.HandleFunc("/openapi.json", gen.JSONHandler()).Methods("GET")
	router.HandleFunc("/openapi.yaml", gen.YAMLHandler()).Methods("GET")

	return router
}

// newOpenAPIGenerator registers every route for the served document.
func newOpenAPIGenerator(baseURL string) *openapi.Generator {
	opts := []openapi.Option{
		openapi.WithTitle("Developer Portal API"),
		openapi.WithVersion("1.0.0"),
		openapi.WithDescription("Vendor registration, app submission and the review workflow"),
	}
	if baseURL != "" {
		opts = append(opts, openapi.WithServer(baseURL))
	}
	gen := openapi.NewGenerator(opts...)

	gen.Register(
		// Public catalog
		openapi.OperationInfo{Method: "GET", Path: "/apps", OperationID: "listPublishedApps", Summary: "List published apps", Tag: "catalog", Response: domain.App{}, List: true},
		openapi.OperationInfo{Method: "GET", Path: "/apps/{appId}", OperationID: "getPublishedApp", Summary: "Get a published app", Tag: "catalog", Response: domain.App{}},

		// Auth
		openapi.OperationInfo{Method: "POST", Path: "/auth/login", OperationID: "login", Summary: "Log in", Tag: "auth", Request: LoginRequest{}, Response: identity.Tokens{}},
		openapi.OperationInfo{Method: "POST", Path: "/auth/signup", OperationID: "signup", Summary: "Register an account", Tag: "auth", Request: SignupRequest{}, Response: MessageResponse{}},
		openapi.OperationInfo{Method: "POST", Path: "/auth/confirm", OperationID: "confirmSignup", Summary: "Confirm an account", Tag: "auth", Request: ConfirmSignupRequest{}, Response: MessageResponse{}},
		openapi.OperationInfo{Method: "GET", Path: "/auth/confirm", OperationID: "confirmSignupLink", Summary: "Confirm an account from the mail link", Tag: "auth"},
		openapi.OperationInfo{Method: "POST", Path: "/auth/forgot", OperationID: "forgotPassword", Summary: "Request a password reset", Tag: "auth", Request: ForgotPasswordRequest{}, Response: MessageResponse{}},
		openapi.OperationInfo{Method: "POST", Path: "/auth/forgot/confirm", OperationID: "confirmForgotPassword", Summary: "Confirm a password reset", Tag: "auth", Request: ConfirmForgotPasswordRequest{}, Response: MessageResponse{}},
		openapi.OperationInfo{Method: "GET", Path: "/auth/profile", OperationID: "getProfile", Summary: "Get the caller's profile", Tag: "auth", Response: domain.User{}, Secured: true},

		// Vendor surface
		openapi.OperationInfo{Method: "GET", Path: "/vendors/{vendor}", OperationID: "getVendor", Summary: "Get a vendor", Tag: "vendors", Response: domain.Vendor{}, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/vendors/{vendor}/users", OperationID: "listVendorUsers", Summary: "List vendor members", Tag: "vendors", Response: domain.User{}, List: true, Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/vendors/{vendor}/users/{email}", OperationID: "addVendorUser", Summary: "Add a vendor member", Tag: "vendors", Secured: true},
		openapi.OperationInfo{Method: "DELETE", Path: "/vendors/{vendor}/users/{email}", OperationID: "removeVendorUser", Summary: "Remove a vendor member", Tag: "vendors", Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/vendors/{vendor}/invitations/{email}", OperationID: "inviteUser", Summary: "Invite a user to the vendor", Tag: "vendors", Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/vendors/{vendor}/invitations/{email}/{code}", OperationID: "acceptInvitation", Summary: "Accept a vendor invitation", Tag: "vendors"},
		openapi.OperationInfo{Method: "POST", Path: "/vendors/{vendor}/apps", OperationID: "insertApp", Summary: "Create a draft app", Tag: "apps", Request: CreateAppRequest{}, Response: domain.App{}, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/vendors/{vendor}/apps", OperationID: "listVendorApps", Summary: "List the vendor's apps", Tag: "apps", Response: domain.App{}, List: true, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/vendors/{vendor}/apps/{appId}", OperationID: "getVendorApp", Summary: "Get one of the vendor's apps", Tag: "apps", Response: domain.App{}, Secured: true},
		openapi.OperationInfo{Method: "PUT", Path: "/vendors/{vendor}/apps/{appId}", OperationID: "updateApp", Summary: "Update an app", Tag: "apps", Request: UpdateAppRequest{}, Response: domain.App{}, Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/vendors/{vendor}/apps/{appId}/approve", OperationID: "requestApproval", Summary: "Submit an app for review", Tag: "apps", Response: domain.App{}, Secured: true},

		// Admin console
		openapi.OperationInfo{Method: "POST", Path: "/admin/vendors", OperationID: "createVendor", Summary: "Register a vendor", Tag: "admin", Request: CreateVendorRequest{}, Response: domain.Vendor{}, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/admin/vendors", OperationID: "listVendors", Summary: "List vendors", Tag: "admin", Response: domain.Vendor{}, List: true, Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/admin/vendors/{vendor}/approve", OperationID: "approveVendor", Summary: "Approve a vendor", Tag: "admin", Request: ApproveVendorRequest{}, Response: domain.Vendor{}, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/admin/apps", OperationID: "listApps", Summary: "List all apps", Tag: "admin", Response: domain.App{}, List: true, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/admin/apps/{id}", OperationID: "getApp", Summary: "Get an app with its vendor", Tag: "admin", Response: engine.AppDetail{}, Secured: true},
		openapi.OperationInfo{Method: "PUT", Path: "/admin/apps/{id}", OperationID: "adminUpdateApp", Summary: "Update any app", Tag: "admin", Request: AdminUpdateAppRequest{}, Response: domain.App{}, Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/admin/apps/{id}/approve", OperationID: "approveApp", Summary: "Approve an app", Tag: "admin", Response: domain.App{}, Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/admin/apps/{id}/reject", OperationID: "rejectApp", Summary: "Reject an app", Tag: "admin", Request: RejectAppRequest{}, Response: domain.App{}, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/admin/changes", OperationID: "listAppChanges", Summary: "List app changes", Tag: "admin", Response: domain.AppChange{}, List: true, Secured: true},
		openapi.OperationInfo{Method: "GET", Path: "/admin/users", OperationID: "listUsers", Summary: "List users", Tag: "admin", Response: domain.User{}, List: true, Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/admin/users/{email}/admin", OperationID: "makeUserAdmin", Summary: "Grant the admin role", Tag: "admin", Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/admin/users/{email}/enable", OperationID: "enableUser", Summary: "Re-enable a user", Tag: "admin", Secured: true},
		openapi.OperationInfo{Method: "POST", Path: "/admin/users/{email}/vendors/{vendor}", OperationID: "addUserVendor", Summary: "Grant vendor membership", Tag: "admin", Secured: true},
		openapi.OperationInfo{Method: "DELETE", Path: "/admin/users/{email}/vendors/{vendor}", OperationID: "removeUserVendor", Summary: "Revoke vendor membership", Tag: "admin", Secured: true},
	)

	return gen
}

// =============================================================================
// Middleware
// =============================================================================

// requestIDMiddleware generates and adds a request ID to responses.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns a 500 error.
func recoveryMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					middleware.WriteJSONError(w, http.StatusInternalServerError, "internal", "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// Health Handler
// =============================================================================

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// =============================================================================
// Helpers
// =============================================================================

// generateRequestID generates a unique request ID.
func generateRequestID() string {
	return "req_" + randomString(12)
}

// randomString generates a cryptographically random string of the given length.
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, n)
	for i := range b {
		idx, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		b[i] = letters[idx.Int64()]
	}
	return string(b)
}
