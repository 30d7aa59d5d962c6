package api

import (
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/core/schema"
	"github.com/artpar/devportal/internal/shell/api/middleware"
)

// =============================================================================
// Admin Vendor Handlers
// =============================================================================

// handleCreateVendor handles POST /admin/vendors.
func (h *Handlers) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vendor, err := h.vendors.Create(r.Context(), body, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, vendor)
}

// handleListVendors handles GET /admin/vendors.
func (h *Handlers) handleListVendors(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	vendors, err := h.vendors.List(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, vendors)
}

// handleApproveVendor handles POST /admin/vendors/{vendor}/approve. An
// optional newId in the body renames the vendor as part of the approval.
func (h *Handlers) handleApproveVendor(w http.ResponseWriter, r *http.Request) {
	newID := ""
	if r.ContentLength != 0 {
		body, err := decodeBody(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if err := schema.ApproveVendor().Validate(body); err != nil {
			h.writeError(w, r, err)
			return
		}
		newID = stringField(body, "newId")
	}

	vendor, err := h.vendors.Approve(r.Context(), mux.Vars(r)["vendor"], newID, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, vendor)
}

// =============================================================================
// Vendor Handlers
// =============================================================================

// handleGetVendor handles GET /vendors/{vendor}.
func (h *Handlers) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	vendorID := mux.Vars(r)["vendor"]
	actor := middleware.UserFrom(r.Context())
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		h.writeError(w, r, domain.NewForbiddenError("user is not a member of vendor %s", vendorID))
		return
	}
	vendor, err := h.vendors.Get(r.Context(), vendorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, vendor)
}

// handleListVendorUsers handles GET /vendors/{vendor}/users.
func (h *Handlers) handleListVendorUsers(w http.ResponseWriter, r *http.Request) {
	vendorID := mux.Vars(r)["vendor"]
	actor := middleware.UserFrom(r.Context())
	if !actor.IsAdmin && !actor.HasVendor(vendorID) {
		h.writeError(w, r, domain.NewForbiddenError("user is not a member of vendor %s", vendorID))
		return
	}
	users, err := h.identity.ListUsersForVendor(r.Context(), vendorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, users)
}

// handleAddVendorUser handles POST /vendors/{vendor}/users/{email}.
func (h *Handlers) handleAddVendorUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.vendors.AddUser(r.Context(), vars["vendor"], vars["email"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleRemoveVendorUser handles DELETE /vendors/{vendor}/users/{email}.
func (h *Handlers) handleRemoveVendorUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.vendors.RemoveUser(r.Context(), vars["vendor"], vars["email"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// handleInviteUser handles POST /vendors/{vendor}/invitations/{email}.
func (h *Handlers) handleInviteUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.vendors.Invite(r.Context(), vars["vendor"], vars["email"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}

// =============================================================================
// Invitation Accept Page
// =============================================================================

// The accept link lands in a mail client, so this endpoint renders HTML
// instead of the JSON envelope.
var invitationResultPage = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head><title>Vendor Invitation</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

// handleAcceptInvitation handles GET /vendors/{vendor}/invitations/{email}/{code}.
// The route is public: the code in the link is the credential.
func (h *Handlers) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.vendors.AcceptInvitation(r.Context(), vars["vendor"], vars["email"], vars["code"])

	page := struct {
		Title   string
		Message string
	}{
		Title:   "Invitation accepted",
		Message: "You are now a member of vendor " + vars["vendor"] + ".",
	}
	status := http.StatusOK

	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindNotFound:
			status = http.StatusNotFound
			page.Title = "Invitation not found"
			page.Message = "This invitation link is invalid or was already used."
		default:
			status = http.StatusInternalServerError
			page.Title = "Something went wrong"
			page.Message = "The invitation could not be processed. Please try again later."
			h.logger.Error("invitation accept failed", "vendor", vars["vendor"], "error", err)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	invitationResultPage.Execute(w, page)
}
