package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/shell/api/middleware"
	"github.com/artpar/devportal/internal/shell/store"
)

// =============================================================================
// Public App Handlers
// =============================================================================

// handleListPublishedApps handles GET /apps.
func (h *Handlers) handleListPublishedApps(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apps, err := h.apps.ListPublishedApps(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, apps)
}

// handleGetPublishedApp handles GET /apps/{appId}.
func (h *Handlers) handleGetPublishedApp(w http.ResponseWriter, r *http.Request) {
	app, err := h.apps.GetPublishedApp(r.Context(), mux.Vars(r)["appId"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// =============================================================================
// Vendor App Handlers
// =============================================================================

// handleInsertApp handles POST /vendors/{vendor}/apps.
func (h *Handlers) handleInsertApp(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.apps.InsertApp(r.Context(), mux.Vars(r)["vendor"], body, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, app)
}

// handleListVendorApps handles GET /vendors/{vendor}/apps.
func (h *Handlers) handleListVendorApps(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apps, err := h.apps.ListAppsForVendor(r.Context(), mux.Vars(r)["vendor"], offset, limit, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, apps)
}

// handleGetVendorApp handles GET /vendors/{vendor}/apps/{appId}.
func (h *Handlers) handleGetVendorApp(w http.ResponseWriter, r *http.Request) {
	app, err := h.apps.GetAppForVendor(r.Context(), mux.Vars(r)["appId"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// handleUpdateApp handles PUT /vendors/{vendor}/apps/{appId}.
func (h *Handlers) handleUpdateApp(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.apps.UpdateApp(r.Context(), mux.Vars(r)["appId"], body, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// handleRequestApproval handles POST /vendors/{vendor}/apps/{appId}/approve.
func (h *Handlers) handleRequestApproval(w http.ResponseWriter, r *http.Request) {
	app, err := h.approval.RequestApproval(r.Context(), mux.Vars(r)["appId"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// =============================================================================
// Admin App Handlers
// =============================================================================

// handleAdminListApps handles GET /admin/apps.
func (h *Handlers) handleAdminListApps(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	filter := store.AppFilter{
		Filter: q.Get("filter"),
		Status: domain.AppStatus(q.Get("status")),
	}
	apps, err := h.apps.ListApps(r.Context(), filter, offset, limit, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, apps)
}

// handleAdminGetApp handles GET /admin/apps/{id}. An optional version query
// selects a historical snapshot.
func (h *Handlers) handleAdminGetApp(w http.ResponseWriter, r *http.Request) {
	version := 0
	if v := r.URL.Query().Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, r, domain.NewValidationError("parameter version must be a positive integer"))
			return
		}
		version = n
	}

	detail, err := h.apps.GetAppWithVendorForAdmin(r.Context(), mux.Vars(r)["id"], version, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

// handleAdminUpdateApp handles PUT /admin/apps/{id}.
func (h *Handlers) handleAdminUpdateApp(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	app, err := h.apps.UpdateAppByAdmin(r.Context(), mux.Vars(r)["id"], body, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// handleAdminApproveApp handles POST /admin/apps/{id}/approve.
func (h *Handlers) handleAdminApproveApp(w http.ResponseWriter, r *http.Request) {
	app, err := h.approval.Approve(r.Context(), mux.Vars(r)["id"], middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// handleAdminRejectApp handles POST /admin/apps/{id}/reject.
func (h *Handlers) handleAdminRejectApp(w http.ResponseWriter, r *http.Request) {
	reason := ""
	if r.ContentLength != 0 {
		body, err := decodeBody(r)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		reason = stringField(body, "reason")
	}
	app, err := h.approval.Reject(r.Context(), mux.Vars(r)["id"], reason, middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, app)
}

// handleAdminListChanges handles GET /admin/changes.
func (h *Handlers) handleAdminListChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	changes, err := h.apps.ListAppChanges(r.Context(), q.Get("since"), q.Get("until"), middleware.UserFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, changes)
}
