package request

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireID_Valid(t *testing.T) {
	result, err := RequireID("550e8400-e29b-41d4-a716-446655440000")
	require.NoError(t, err)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", result)
}

func TestRequireID_Empty(t *testing.T) {
	_, err := RequireID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required ID")
}

func TestRequireTenantID_Valid(t *testing.T) {
	id, err := RequireTenantID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestRequireTenantID_Invalid(t *testing.T) {
	for _, s := range []string{"", "abc", "0", "-5", "1.5"} {
		t.Run(s, func(t *testing.T) {
			_, err := RequireTenantID(s)
			require.Error(t, err)
		})
	}
}

func TestDecode_ValidJSON(t *testing.T) {
	body := `{"name":"acme","storage_quota_gb":50}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var payload CreateTenant
	err = Decode(r, &payload)
	require.NoError(t, err)
	assert.Equal(t, "acme", payload.Name)
	require.NotNil(t, payload.StorageQuotaGB)
	assert.Equal(t, 50, *payload.StorageQuotaGB)
}

func TestDecode_InvalidJSON(t *testing.T) {
	body := `{not valid json}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var payload CreateTenant
	err = Decode(r, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDecode_ValidationFails(t *testing.T) {
	// Missing the required "name" field.
	body := `{"storage_quota_gb":50}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var payload CreateTenant
	err = Decode(r, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestDecode_StatusOneOf(t *testing.T) {
	body := `{"status":"paused"}`
	r, err := http.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	require.NoError(t, err)

	var payload UpdateTenantStatus
	err = Decode(r, &payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestBucketNameValidation_Valid(t *testing.T) {
	validNames := []string{"photos", "my-bucket", "logs.2025", "a1b", "abc"}
	for _, name := range validNames {
		t.Run(name, func(t *testing.T) {
			assert.True(t, bucketNameRegex.MatchString(name), "expected bucket name %q to be valid", name)
		})
	}
}

func TestBucketNameValidation_Invalid(t *testing.T) {
	invalidNames := []string{
		"My-Bucket",              // uppercase
		"has space",              // space
		"ab",                     // too short
		"-leading-dash",          // must start alphanumeric
		"trailing-dot.",          // must end alphanumeric
		strings.Repeat("a", 64),  // too long
		"under_score",            // underscore not allowed
	}
	for _, name := range invalidNames {
		t.Run(name, func(t *testing.T) {
			assert.False(t, bucketNameRegex.MatchString(name), "expected bucket name %q to be invalid", name)
		})
	}
}
