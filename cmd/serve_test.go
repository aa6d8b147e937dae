package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/wa-outreach/internal/config"
	"github.com/sells-group/wa-outreach/internal/model"
	"github.com/sells-group/wa-outreach/internal/sender"
)

// newTestEnv wires a dry-run environment over JSON stores in a temp dir with
// no pacing delay.
func newTestEnv(t *testing.T) *outreachEnv {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "json"
	c.Store.Dir = t.TempDir()
	c.Outreach.DefaultCountry = "PT"

	env, err := initOutreach(context.Background(), c, sender.DryRun{})
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestStatusEndpoint(t *testing.T) {
	h := newRouter(context.Background(), newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	body := decode(t, rr)
	assert.Equal(t, "WhatsApp Automation Server Running", body["status"])
	assert.Equal(t, false, body["ai"])
	assert.Contains(t, body, "aiUsage")
}

func TestStartBulk_Validation(t *testing.T) {
	h := newRouter(context.Background(), newTestEnv(t))

	rr := doJSON(t, h, http.MethodPost, "/api/start-bulk", map[string]any{"defaultMessage": "Hi"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "No contacts provided for bulk processing")

	rr = doJSON(t, h, http.MethodPost, "/api/start-bulk", map[string]any{
		"contacts": []model.Lead{{Name: "Ana", Phone: "912345671"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Message content is required")

	rr = doJSON(t, h, http.MethodPost, "/api/start-bulk", map[string]any{
		"contacts":       []model.Lead{{Name: "Ana", Phone: "912345671"}},
		"defaultMessage": "Hi",
		"messageMode":    "fax",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown message mode")

	req := httptest.NewRequest(http.MethodPost, "/api/start-bulk", bytes.NewReader([]byte("not json")))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBulkRun_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	h := newRouter(context.Background(), env)

	rr := doJSON(t, h, http.MethodPost, "/api/start-bulk", map[string]any{
		"contacts": []model.Lead{
			{Name: "Ana", Phone: "912345671", BusinessName: "Padaria Ana"},
			{Name: "Bruno", Phone: "912345672", BusinessName: "Oficina Bruno"},
		},
		"defaultMessage": "Ola {name}, da {businessName}?",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Bulk processing started for 2 contacts (template mode)", body["message"])
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := env.Orchestrator.Wait(ctx, id)
	require.NoError(t, err)

	rr = doJSON(t, h, http.MethodGet, "/api/bulk-progress/"+id, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var progress model.BulkProgress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &progress))
	assert.Equal(t, model.RunStatusCompleted, progress.Status)
	assert.Equal(t, 2, progress.SuccessfulContacts)
	assert.Equal(t, 2, progress.ProcessedContacts)

	rr = doJSON(t, h, http.MethodGet, "/api/bulk-runs", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), id)

	rr = doJSON(t, h, http.MethodGet, "/api/contacts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 2, decode(t, rr)["total"])

	rr = doJSON(t, h, http.MethodGet, "/api/contacts?status=messaged", nil)
	assert.EqualValues(t, 2, decode(t, rr)["total"])

	rr = doJSON(t, h, http.MethodGet, "/api/contacts/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var stats model.LedgerStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus[model.ContactStatusMessaged])

	rr = doJSON(t, h, http.MethodGet, "/api/tracking/stats", nil)
	assert.EqualValues(t, 2, decode(t, rr)["processed"])

	rr = doJSON(t, h, http.MethodDelete, "/api/contacts/912345671", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, h, http.MethodDelete, "/api/contacts/912345671", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Len(t, env.Ledger.All(context.Background()), 1)
}

func TestBulkProgress_UnknownSession(t *testing.T) {
	h := newRouter(context.Background(), newTestEnv(t))

	rr := doJSON(t, h, http.MethodGet, "/api/bulk-progress/bulk_nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Session not found")

	rr = doJSON(t, h, http.MethodPost, "/api/stop-bulk/bulk_nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestContacts_UnknownStatus(t *testing.T) {
	h := newRouter(context.Background(), newTestEnv(t))

	rr := doJSON(t, h, http.MethodGet, "/api/contacts?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/contacts", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"contacts":[]`)
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadCSV(t *testing.T) {
	h := newRouter(context.Background(), newTestEnv(t))

	tests := []struct {
		name     string
		field    string
		content  string
		wantCode int
		wantBody string
	}{
		{
			name:     "legacy file",
			field:    "csvFile",
			content:  "name,phone,businessName\nAna,912345678,ACME\n",
			wantCode: http.StatusOK,
			wantBody: "Found 1 contacts",
		},
		{
			name:     "missing headers",
			field:    "csvFile",
			content:  "name,businessName\nAna,ACME\n",
			wantCode: http.StatusBadRequest,
			wantBody: "missing required headers: phone",
		},
		{
			name:     "no usable rows",
			field:    "csvFile",
			content:  "name,phone,businessName\nAna,,ACME\n",
			wantCode: http.StatusBadRequest,
			wantBody: "No valid contacts found in CSV",
		},
		{
			name:     "wrong field",
			field:    "file",
			content:  "name,phone,businessName\n",
			wantCode: http.StatusBadRequest,
			wantBody: "No CSV file uploaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ctype := multipartBody(t, tt.field, "leads.csv", tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", body)
			req.Header.Set("Content-Type", ctype)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestUploadCSV_ReturnsLeads(t *testing.T) {
	h := newRouter(context.Background(), newTestEnv(t))

	body, ctype := multipartBody(t, "csvFile", "leads.csv", "name,phone,businessName\nAna,912345678,ACME\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Contacts []model.Lead `json:"contacts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Contacts, 1)
	assert.Equal(t, model.Lead{Name: "Ana", Phone: "912345678", BusinessName: "ACME"}, resp.Data.Contacts[0])
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	h := newRouter(context.Background(), env)

	rr := doJSON(t, h, http.MethodPost, "/api/settings", map[string]int{"minDelay": 1500, "maxDelay": 4000})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	lo, hi := env.Pacer.Bounds()
	assert.Equal(t, 1500*time.Millisecond, lo)
	assert.Equal(t, 4*time.Second, hi)

	rr = doJSON(t, h, http.MethodPost, "/api/settings", map[string]int{"minDelay": 999})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "minDelay must be between 1000 and 30000 ms")

	rr = doJSON(t, h, http.MethodPost, "/api/settings", map[string]int{"maxDelay": 30001})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/settings", map[string]int{"minDelay": 5000})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "5000 exceeds the current 4000 max")

	lo, hi = env.Pacer.Bounds()
	assert.Equal(t, 1500*time.Millisecond, lo, "rejected updates leave pacing untouched")
	assert.Equal(t, 4*time.Second, hi)
}

func TestSingleContact(t *testing.T) {
	env := newTestEnv(t)
	h := newRouter(context.Background(), env)

	rr := doJSON(t, h, http.MethodPost, "/api/single-contact", map[string]string{"name": "Ana"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Missing required fields")

	rr = doJSON(t, h, http.MethodPost, "/api/single-contact", map[string]string{
		"name": "Ana", "phone": "912345673", "message": "Ola {name}",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "messaged", body["status"])

	stored := env.Ledger.Get(context.Background(), "912345673")
	require.NotNil(t, stored)
	assert.Equal(t, model.ContactStatusMessaged, stored.Status)
}
