package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/devportal/internal/engine"
	"github.com/artpar/devportal/internal/shell/email"
	"github.com/artpar/devportal/internal/shell/identity"
	"github.com/artpar/devportal/internal/shell/storage"
	"github.com/artpar/devportal/internal/shell/store"
)

// =============================================================================
// Test Helpers
// =============================================================================

type testEnv struct {
	handler http.Handler
	pool    *identity.DevPool
	objects *storage.MemoryStore
	mailer  *email.LogMailer
}

func setupTestAPI(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
	})

	pool := identity.NewDevPool()
	objects := storage.NewMemoryStore()
	mailer := email.NewLogMailer(nil)

	handler := SetupAPI(APIConfig{
		Apps:     engine.NewAppService(st, nil),
		Approval: engine.NewApprovalService(st, objects, mailer, "review@example.com", nil),
		Vendors:  engine.NewVendorService(st, pool, mailer, "https://portal.example.com", nil),
		Identity: pool,
	})

	return &testEnv{handler: handler, pool: pool, objects: objects, mailer: mailer}
}

// login seeds nothing; the user must already exist in the pool.
func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	tokens, err := e.pool.Login(context.Background(), email, password)
	require.NoError(t, err)
	return tokens.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func seedAdmin(t *testing.T, e *testEnv) string {
	t.Helper()
	require.NoError(t, e.pool.SeedUser("admin@example.com", "Admin", "Password1", nil, true))
	return e.login(t, "admin@example.com", "Password1")
}

func seedMember(t *testing.T, e *testEnv, vendors ...string) string {
	t.Helper()
	require.NoError(t, e.pool.SeedUser("dev@example.com", "Dev", "Password1", vendors, false))
	return e.login(t, "dev@example.com", "Password1")
}

// =============================================================================
// Infrastructure Tests
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeJSON(t, rec)["status"])
}

func TestRequestIDHeader(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "GET", "/health", "", nil)
	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_"))
}

func TestOpenAPIDocument(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "GET", "/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := decodeJSON(t, rec)
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/apps")
	assert.Contains(t, paths, "/admin/apps/{id}")
}

func TestInvalidTokenRejected(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "GET", "/auth/profile", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "auth", decodeJSON(t, rec)["error"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	e := setupTestAPI(t)

	for _, path := range []string{"/auth/profile", "/vendors/acme", "/vendors/acme/apps"} {
		rec := e.do(t, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := setupTestAPI(t)
	token := seedMember(t, e, "acme")

	rec := e.do(t, "GET", "/admin/apps", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin role required", decodeJSON(t, rec)["message"])
}

// =============================================================================
// Auth Flow Tests
// =============================================================================

func TestSignupConfirmLogin(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "POST", "/auth/signup", "", map[string]any{
		"name":     "New Dev",
		"email":    "new@example.com",
		"password": "Password1",
		"vendor":   "acme",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Login before confirmation fails.
	rec = e.do(t, "POST", "/auth/login", "", map[string]any{
		"email": "new@example.com", "password": "Password1",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	code := e.pool.PendingConfirmationCode("new@example.com")
	require.NotEmpty(t, code)
	rec = e.do(t, "POST", "/auth/confirm", "", map[string]any{
		"email": "new@example.com", "code": code,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "POST", "/auth/login", "", map[string]any{
		"email": "new@example.com", "password": "Password1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeJSON(t, rec)["token"])
}

func TestConfirmLinkRendersHTML(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "POST", "/auth/signup", "", map[string]any{
		"name":     "New Dev",
		"email":    "new@example.com",
		"password": "Password1",
		"vendor":   "acme",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	code := e.pool.PendingConfirmationCode("new@example.com")
	require.NotEmpty(t, code)

	// A broken link reports failure as a page, not a JSON envelope.
	rec = e.do(t, "GET", "/auth/confirm?email=new@example.com&code=wrong", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Confirmation failed")

	rec = e.do(t, "GET", "/auth/confirm?email=new@example.com&code="+code, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account confirmed")
}

func TestSignupRejectsWeakPassword(t *testing.T) {
	e := setupTestAPI(t)

	rec := e.do(t, "POST", "/auth/signup", "", map[string]any{
		"name":     "New Dev",
		"email":    "new@example.com",
		"password": "short",
		"vendor":   "acme",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["message"], "at least 8 characters")
}

func TestForgotPasswordFlow(t *testing.T) {
	e := setupTestAPI(t)
	seedMember(t, e, "acme")

	rec := e.do(t, "POST", "/auth/forgot", "", map[string]any{
		"email": "dev@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	code := e.pool.PendingResetCode("dev@example.com")
	require.NotEmpty(t, code)

	rec = e.do(t, "POST", "/auth/forgot/confirm", "", map[string]any{
		"email":    "dev@example.com",
		"password": "Password2",
		"code":     code,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "POST", "/auth/login", "", map[string]any{
		"email": "dev@example.com", "password": "Password2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decodeJSON(t, rec)["token"])
}

func TestProfileReturnsCaller(t *testing.T) {
	e := setupTestAPI(t)
	token := seedMember(t, e, "acme")

	rec := e.do(t, "GET", "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decodeJSON(t, rec)
	assert.Equal(t, "dev@example.com", profile["email"])
}

// =============================================================================
// End-To-End Lifecycle Over HTTP
// =============================================================================

func TestAppLifecycleOverHTTP(t *testing.T) {
	e := setupTestAPI(t)
	adminToken := seedAdmin(t, e)

	// Admin registers and approves the vendor under its permanent id.
	rec := e.do(t, "POST", "/admin/vendors", adminToken, map[string]any{
		"name":    "Acme Corp",
		"address": "Main St 1",
		"email":   "acme@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	tempID := decodeJSON(t, rec)["id"].(string)
	assert.True(t, strings.HasPrefix(tempID, "tv_"))

	rec = e.do(t, "POST", "/admin/vendors/"+tempID+"/approve", adminToken, map[string]any{
		"newId": "acme",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme", decodeJSON(t, rec)["id"])

	devToken := seedMember(t, e, "acme")

	// The member creates a complete draft app.
	rec = e.do(t, "POST", "/vendors/acme/apps", devToken, map[string]any{
		"id":               "billing",
		"name":             "Billing",
		"type":             "application",
		"imageUrl":         "registry.example.com/acme/billing",
		"imageTag":         "1.0.0",
		"shortDescription": "Invoicing",
		"longDescription":  "Full invoicing suite",
		"licenseUrl":       "https://example.com/license",
		"documentationUrl": "https://example.com/docs",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	app := decodeJSON(t, rec)
	require.Equal(t, "acme.billing", app["id"])
	assert.Equal(t, "draft", app["status"])

	// Not yet published.
	rec = e.do(t, "GET", "/apps/acme.billing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Submission requires both icons.
	rec = e.do(t, "POST", "/vendors/acme/apps/acme.billing/approve", devToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeJSON(t, rec)["message"], "icon 32px")

	e.objects.Put("acme.billing-32.png", "acme.billing-64.png")
	rec = e.do(t, "POST", "/vendors/acme/apps/acme.billing/approve", devToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "inReview", decodeJSON(t, rec)["status"])

	// Review team got the submission payload.
	sent := e.mailer.Sent()
	require.NotEmpty(t, sent)
	assert.Equal(t, "review@example.com", sent[len(sent)-1].To)

	// Admin approves; the app goes public.
	rec = e.do(t, "POST", "/admin/apps/acme.billing/approve", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", decodeJSON(t, rec)["status"])

	rec = e.do(t, "GET", "/apps", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing, 1)
	assert.Equal(t, "acme.billing", listing[0]["id"])

	rec = e.do(t, "GET", "/apps/acme.billing", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// The change feed recorded the lifecycle.
	rec = e.do(t, "GET", "/admin/changes", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var changes []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changes))
	assert.NotEmpty(t, changes)
}

func TestValidationProblemsAreCollected(t *testing.T) {
	e := setupTestAPI(t)
	adminToken := seedAdmin(t, e)
	rec := e.do(t, "POST", "/admin/vendors", adminToken, map[string]any{
		"name":    "Acme Corp",
		"address": "Main St 1",
		"email":   "acme@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	vendorID := decodeJSON(t, rec)["id"].(string)

	rec = e.do(t, "POST", "/vendors/"+vendorID+"/apps", adminToken, map[string]any{
		"type":    "bogus",
		"unknown": "x",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	message := decodeJSON(t, rec)["message"].(string)
	assert.Contains(t, message, "parameter id is required")
	assert.Contains(t, message, "parameter name is required")
	assert.Contains(t, message, "parameter type must be one of")
	assert.Contains(t, message, "unexpected parameter unknown")
}

func TestForeignVendorAppsReadAsNotFound(t *testing.T) {
	e := setupTestAPI(t)
	adminToken := seedAdmin(t, e)

	for _, v := range []map[string]any{
		{"name": "Acme", "address": "A", "email": "a@example.com"},
		{"name": "Globex", "address": "B", "email": "b@example.com"},
	} {
		rec := e.do(t, "POST", "/admin/vendors", adminToken, v)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := e.do(t, "GET", "/admin/vendors", adminToken, nil)
	var vendors []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vendors))
	require.Len(t, vendors, 2)
	ids := map[string]string{}
	for _, v := range vendors {
		ids[v["name"].(string)] = v["id"].(string)
	}
	acme := ids["Acme"]
	globex := ids["Globex"]

	rec = e.do(t, "POST", "/vendors/"+acme+"/apps", adminToken, map[string]any{
		"id": "billing", "name": "Billing", "type": "application",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	appID := decodeJSON(t, rec)["id"].(string)

	// A member of the other vendor cannot see or probe the app.
	devToken := seedMember(t, e, globex)
	rec = e.do(t, "GET", "/vendors/"+globex+"/apps/"+appID, devToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// Invitation Page Tests
// =============================================================================

func TestInvitationAcceptPage(t *testing.T) {
	e := setupTestAPI(t)
	adminToken := seedAdmin(t, e)
	rec := e.do(t, "POST", "/admin/vendors", adminToken, map[string]any{
		"name": "Acme", "address": "A", "email": "a@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	vendorID := decodeJSON(t, rec)["id"].(string)

	require.NoError(t, e.pool.SeedUser("new@example.com", "New", "Password1", nil, false))
	rec = e.do(t, "POST", "/vendors/"+vendorID+"/invitations/new@example.com", adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	sent := e.mailer.Sent()
	require.NotEmpty(t, sent)
	body := sent[len(sent)-1].Body
	idx := strings.Index(body, "https://portal.example.com")
	require.GreaterOrEqual(t, idx, 0)
	link := strings.TrimSpace(body[idx:])
	path := strings.TrimPrefix(link, "https://portal.example.com")

	// The link is public and renders HTML.
	rec = e.do(t, "GET", path, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Invitation accepted")

	user, err := e.pool.GetUserByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.True(t, user.HasVendor(vendorID))

	// Replaying the consumed link renders the not-found page.
	rec = e.do(t, "GET", path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invitation not found")
}
