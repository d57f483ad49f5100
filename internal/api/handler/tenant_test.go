package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTenantHandler() *Tenant {
	return NewTenant(nil, 100)
}

// --- Create ---

func TestTenantCreate_InvalidJSON(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/tenants", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestTenantCreate_EmptyBody(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/tenants", "")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid JSON")
}

func TestTenantCreate_MissingName(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants", map[string]any{
		"storage_quota_gb": 50,
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestTenantCreate_ZeroQuotaRejected(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/tenants", map[string]any{
		"name":             "acme",
		"storage_quota_gb": 0,
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

// --- Get ---

func TestTenantGet_InvalidID(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/tenants/abc", nil)
	r = withChiURLParam(r, "tenantID", "abc")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "invalid tenant ID")
}

func TestTenantGet_MissingID(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodGet, "/tenants/", nil)
	r = withChiURLParam(r, "tenantID", "")

	h.Get(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- UpdateStatus ---

func TestTenantUpdateStatus_InvalidStatus(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/tenants/7/status", map[string]any{
		"status": "paused",
	})
	r = withChiURLParam(r, "tenantID", "7")

	h.UpdateStatus(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

// --- UpdateQuota ---

func TestTenantUpdateQuota_MissingQuota(t *testing.T) {
	h := newTenantHandler()
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPut, "/tenants/7/quota", map[string]any{})
	r = withChiURLParam(r, "tenantID", "7")

	h.UpdateQuota(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}
