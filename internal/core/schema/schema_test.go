package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/devportal/internal/core/domain"
)

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidateCollectsEveryProblem(t *testing.T) {
	err := CreateApp().Validate(map[string]any{
		"type":    "bogus",
		"unknown": "x",
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	msg := err.Error()
	assert.Contains(t, msg, "parameter id is required")
	assert.Contains(t, msg, "parameter name is required")
	assert.Contains(t, msg, "parameter type must be one of")
	assert.Contains(t, msg, "unexpected parameter unknown")
}

func TestValidateAcceptsCompleteBody(t *testing.T) {
	err := CreateApp().Validate(map[string]any{
		"id":   "billing",
		"name": "Billing",
		"type": "application",
	})
	assert.NoError(t, err)
}

func TestValidateRejectsWrongTypes(t *testing.T) {
	err := CreateApp().Validate(map[string]any{
		"id":        "billing",
		"name":      42,
		"type":      "application",
		"uiOptions": []any{"ok", 7},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter name must be a string")
	assert.Contains(t, err.Error(), "parameter uiOptions must be a list of strings")
}

func TestValidateIDPattern(t *testing.T) {
	err := CreateApp().Validate(map[string]any{
		"id":   "has spaces",
		"name": "Billing",
		"type": "application",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter id")
}

func TestValidateEmailPattern(t *testing.T) {
	err := CreateVendor().Validate(map[string]any{
		"name":    "Acme",
		"address": "Main St 1",
		"email":   "not-an-email",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter email must be an email address")
}

func TestValidateEmptyRequiredString(t *testing.T) {
	err := Login().Validate(map[string]any{
		"email":    "dev@example.com",
		"password": "",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter password is required")
}

func TestValidateRejectsExplicitNull(t *testing.T) {
	err := UpdateApp().Validate(map[string]any{"imageUrl": nil})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Contains(t, err.Error(), "parameter imageUrl must not be null")

	// A null required field reads as missing.
	err = CreateApp().Validate(map[string]any{
		"id":   nil,
		"name": "Billing",
		"type": "application",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter id is required")
}

func TestForgotConfirmRequiresFullTuple(t *testing.T) {
	err := ForgotConfirm().Validate(map[string]any{
		"email":    "dev@example.com",
		"password": "Password1",
		"code":     "123456",
	})
	assert.NoError(t, err)

	err = ForgotConfirm().Validate(map[string]any{
		"password": "Password1",
		"code":     "123456",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter email is required")
}

// =============================================================================
// Query Parameter Tests
// =============================================================================

func TestParsePageDefaults(t *testing.T) {
	offset, limit, err := ParsePage("", "")
	require.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 100, limit)
}

func TestParsePageValues(t *testing.T) {
	offset, limit, err := ParsePage("20", "50")
	require.NoError(t, err)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 50, limit)
}

func TestParsePageRejectsGarbage(t *testing.T) {
	for _, tc := range [][2]string{{"x", ""}, {"-1", ""}, {"", "x"}, {"", "-5"}} {
		_, _, err := ParsePage(tc[0], tc[1])
		require.Error(t, err, "offset=%q limit=%q", tc[0], tc[1])
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("since", "2026-08-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("since", "")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("until", "01.08.2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter until must be a date in format YYYY-MM-DD")
}

// =============================================================================
// Password Policy Tests
// =============================================================================

func TestPasswordOK(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Password1", true},
		{"aB3aB3aB", true},
		{"short1A", false},      // too short
		{"password1", false},    // no uppercase
		{"PASSWORD1", false},    // no lowercase
		{"Passwords", false},    // no digit
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, PasswordOK(tt.password), tt.password)
	}
}
