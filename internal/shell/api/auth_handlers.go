package api

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/core/schema"
	"github.com/artpar/devportal/internal/shell/api/middleware"
	"github.com/artpar/devportal/internal/shell/identity"
)

// =============================================================================
// Auth Handlers
// =============================================================================

// handleLogin handles POST /auth/login.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := schema.Login().Validate(body); err != nil {
		h.writeError(w, r, err)
		return
	}

	tokens, err := h.identity.Login(r.Context(), stringField(body, "email"), stringField(body, "password"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, tokens)
}

// handleSignup handles POST /auth/signup. The requested vendor is recorded on
// the profile; membership itself is granted by an admin or an invitation.
func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := schema.Signup().Validate(body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !schema.PasswordOK(stringField(body, "password")) {
		h.writeError(w, r, domain.NewValidationError("parameter password %s", schema.PasswordHint))
		return
	}

	err = h.identity.SignUp(r.Context(), identity.NewUser{
		Email:    stringField(body, "email"),
		Name:     stringField(body, "name"),
		Password: stringField(body, "password"),
		VendorID: stringField(body, "vendor"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created. Check your mail for the confirmation code.",
	})
}

// handleConfirmSignup handles POST /auth/confirm.
func (h *Handlers) handleConfirmSignup(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	email := stringField(body, "email")
	code := stringField(body, "code")
	if email == "" || code == "" {
		h.writeError(w, r, domain.NewValidationError("parameters email and code are required"))
		return
	}

	if err := h.identity.ConfirmSignUp(r.Context(), email, code); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Account confirmed"})
}

// The confirmation link lands in a mail client, so this endpoint renders
// HTML instead of the JSON envelope.
var confirmResultPage = template.Must(template.New("confirm").Parse(`<!DOCTYPE html>
<html>
<head><title>Account Confirmation</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

// handleConfirmSignupPage handles GET /auth/confirm. It serves the link from
// the confirmation mail; email and code arrive as query parameters.
func (h *Handlers) handleConfirmSignupPage(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	code := r.URL.Query().Get("code")

	page := struct {
		Title   string
		Message string
	}{
		Title:   "Account confirmed",
		Message: "Your account is confirmed. You can now log in.",
	}
	status := http.StatusOK

	err := h.identity.ConfirmSignUp(r.Context(), email, code)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindValidation, domain.KindNotFound:
			status = http.StatusBadRequest
			page.Title = "Confirmation failed"
			page.Message = "This confirmation link is invalid or has expired."
		default:
			status = http.StatusInternalServerError
			page.Title = "Something went wrong"
			page.Message = "The confirmation could not be processed. Please try again later."
			h.logger.Error("signup confirmation failed", "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	confirmResultPage.Execute(w, page)
}

// handleForgotPassword handles POST /auth/forgot. The response is identical
// whether or not the address has an account.
func (h *Handlers) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	email := stringField(body, "email")
	if email == "" {
		h.writeError(w, r, domain.NewValidationError("parameter email is required"))
		return
	}

	if err := h.identity.ForgotPassword(r.Context(), email); err != nil && !domain.IsNotFound(err) {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a reset code was sent.",
	})
}

// handleConfirmForgotPassword handles POST /auth/forgot/confirm.
func (h *Handlers) handleConfirmForgotPassword(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := schema.ForgotConfirm().Validate(body); err != nil {
		h.writeError(w, r, err)
		return
	}
	if !schema.PasswordOK(stringField(body, "password")) {
		h.writeError(w, r, domain.NewValidationError("parameter password %s", schema.PasswordHint))
		return
	}

	err = h.identity.ConfirmForgotPassword(r.Context(), stringField(body, "email"), stringField(body, "password"), stringField(body, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// handleProfile handles GET /auth/profile.
func (h *Handlers) handleProfile(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, middleware.UserFrom(r.Context()))
}

// =============================================================================
// Admin User Handlers
// =============================================================================

// handleAdminListUsers handles GET /admin/users. An optional filter narrows
// by email prefix.
func (h *Handlers) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// handleAdminMakeUserAdmin handles POST /admin/users/{email}/admin.
func (h *Handlers) handleAdminMakeUserAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.MakeUserAdmin(r.Context(), mux.Vars(r)["email"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleAdminEnableUser handles POST /admin/users/{email}/enable.
func (h *Handlers) handleAdminEnableUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.EnableUser(r.Context(), mux.Vars(r)["email"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleAdminAddUserVendor handles POST /admin/users/{email}/vendors/{vendor}.
func (h *Handlers) handleAdminAddUserVendor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.vendors.AddUser(r.Context(), vars["vendor"], vars["email"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleAdminRemoveUserVendor handles DELETE /admin/users/{email}/vendors/{vendor}.
func (h *Handlers) handleAdminRemoveUserVendor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.vendors.RemoveUser(r.Context(), vars["vendor"], vars["email"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}
