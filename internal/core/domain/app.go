// Package domain contains the core domain types and validation logic.
// This is part of the Functional Core - all functions are pure with no I/O.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// App Status
// =============================================================================

// AppStatus is the lifecycle state of an app listing.
type AppStatus string

const (
	StatusDraft    AppStatus = "draft"
	StatusInReview AppStatus = "inReview"
	StatusApproved AppStatus = "approved"
	StatusRejected AppStatus = "rejected"
)

// IsValid checks if the status is a known lifecycle state.
func (s AppStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// appTransitions maps from-state to the allowed to-states.
// A rejected app may be resubmitted directly to inReview; an owner edit of
// any unapproved app returns it to draft.
var appTransitions = map[AppStatus][]AppStatus{
	StatusDraft:    {StatusInReview},
	StatusInReview: {StatusApproved, StatusRejected, StatusDraft},
	StatusRejected: {StatusInReview, StatusDraft},
	StatusApproved: {},
}

// CanTransition checks if moving from s to the target state is allowed.
// Admin forced updates bypass this table.
func (s AppStatus) CanTransition(to AppStatus) bool {
	for _, allowed := range appTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// =============================================================================
// App
// =============================================================================

// StringList is a JSON-encoded string slice column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// App is a third-party integration listing, versioned and owned by exactly
// one vendor. The ID is vendor-namespaced: "<vendorId>.<name>".
type App struct {
	ID               string     `json:"id" db:"id"`
	VendorID         string     `json:"vendor" db:"vendor_id"`
	Version          int        `json:"version" db:"version"`
	Name             string     `json:"name" db:"name"`
	Type             string     `json:"type" db:"type"`
	Status           AppStatus  `json:"status" db:"status"`
	ImageURL         string     `json:"imageUrl" db:"image_url"`
	ImageTag         string     `json:"imageTag" db:"image_tag"`
	ShortDescription string     `json:"shortDescription" db:"short_description"`
	LongDescription  string     `json:"longDescription" db:"long_description"`
	LicenseURL       string     `json:"licenseUrl" db:"license_url"`
	DocumentationURL string     `json:"documentationUrl" db:"documentation_url"`
	RepositoryURL    string     `json:"repositoryUrl" db:"repository_url"`
	UIOptions        StringList `json:"uiOptions" db:"ui_options"`
	IsPublic         bool       `json:"isPublic" db:"is_public"`
	CreatedBy        string     `json:"createdBy" db:"created_by"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

// approvalFields are the content fields that must be non-empty before an app
// can enter review. Names are the JSON field names shown to callers.
var approvalFields = []struct {
	name  string
	value func(*App) string
}{
	{"imageUrl", func(a *App) string { return a.ImageURL }},
	{"imageTag", func(a *App) string { return a.ImageTag }},
	{"shortDescription", func(a *App) string { return a.ShortDescription }},
	{"longDescription", func(a *App) string { return a.LongDescription }},
	{"licenseUrl", func(a *App) string { return a.LicenseURL }},
	{"documentationUrl", func(a *App) string { return a.DocumentationURL }},
}

// MissingApprovalFields returns every required-for-approval field that is
// still empty, not just the first one found.
func (a *App) MissingApprovalFields() []string {
	var missing []string
	for _, f := range approvalFields {
		if f.value(a) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// IconKeys returns the object storage keys for the app's 32px and 64px icons.
func (a *App) IconKeys() (key32, key64 string) {
	return a.ID + "-32.png", a.ID + "-64.png"
}

// =============================================================================
// Change Tracking
// =============================================================================

// FieldChange records one field's old and new value in a change record.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AppChange is an append-only record of one admin-visible app mutation.
type AppChange struct {
	AppID     string                 `json:"appId" db:"app_id"`
	Version   int                    `json:"version" db:"version"`
	ChangedBy string                 `json:"changedBy" db:"changed_by"`
	CreatedAt time.Time              `json:"createdAt" db:"created_at"`
	Diff      map[string]FieldChange `json:"diff" db:"-"`
}

// fieldValues maps the admin-visible fields of an app by JSON name.
func (a *App) fieldValues() map[string]any {
	return map[string]any{
		"name":             a.Name,
		"type":             a.Type,
		"status":           string(a.Status),
		"imageUrl":         a.ImageURL,
		"imageTag":         a.ImageTag,
		"shortDescription": a.ShortDescription,
		"longDescription":  a.LongDescription,
		"licenseUrl":       a.LicenseURL,
		"documentationUrl": a.DocumentationURL,
		"repositoryUrl":    a.RepositoryURL,
		"uiOptions":        []string(a.UIOptions),
		"isPublic":         a.IsPublic,
	}
}

// DiffApps computes the per-field changes between two revisions of an app.
func DiffApps(before, after *App) map[string]FieldChange {
	diff := make(map[string]FieldChange)
	old := before.fieldValues()
	for name, newVal := range after.fieldValues() {
		oldVal := old[name]
		if !equalValues(oldVal, newVal) {
			diff[name] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	return diff
}

func equalValues(a, b any) bool {
	// Slices aren't comparable; compare via JSON encoding.
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
