// Package api provides the HTTP surface of the developer portal.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/artpar/devportal/internal/core/domain"
	"github.com/artpar/devportal/internal/core/schema"
	"github.com/artpar/devportal/internal/engine"
	"github.com/artpar/devportal/internal/shell/identity"
)

// =============================================================================
// Handlers
// =============================================================================

// Handlers holds the services behind the HTTP surface.
type Handlers struct {
	apps     *engine.AppService
	approval *engine.ApprovalService
	vendors  *engine.VendorService
	identity identity.Provider
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(apps *engine.AppService, approval *engine.ApprovalService, vendors *engine.VendorService, idp identity.Provider, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		apps:     apps,
		approval: approval,
		vendors:  vendors,
		identity: idp,
		logger:   logger,
	}
}

// =============================================================================
// Response Helpers
// =============================================================================

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Unclassified errors
// become a generic 500 so internals never leak.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	message := "An unexpected error occurred"

	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case domain.KindAuth:
		status = http.StatusUnauthorized
		message = err.Error()
	case domain.KindForbidden:
		status = http.StatusForbidden
		message = err.Error()
	case domain.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case domain.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case domain.KindUpstream:
		status = http.StatusBadGateway
		var e *domain.Error
		if errors.As(err, &e) {
			message = e.Message
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   string(kind),
		"message": message,
	})
}

// decodeBody reads a JSON object body. Schemas validate the keys afterwards.
func decodeBody(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, domain.NewValidationError("request body must be a JSON object")
	}
	return body, nil
}

// pagination parses offset/limit query values with the API defaults.
func pagination(r *http.Request) (offset, limit int, err error) {
	q := r.URL.Query()
	return schema.ParsePage(q.Get("offset"), q.Get("limit"))
}

// stringField reads an optional string value from a decoded body.
func stringField(body map[string]any, name string) string {
	v, _ := body[name].(string)
	return v
}
