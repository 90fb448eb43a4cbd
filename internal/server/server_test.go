package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/formdesk/internal/config"
	"github.com/parisxmas/formdesk/internal/server"
	"github.com/parisxmas/formdesk/internal/webhook"
)

type api struct {
	t     *testing.T
	base  string
	token string
}

func start(t *testing.T, adminEmail, adminPass string) *api {
	t.Helper()
	cfg := &config.Config{
		DBPath:         filepath.Join(t.TempDir(), "formdesk.db"),
		JWTSecret:      "test-secret",
		AdminEmail:     adminEmail,
		AdminPass:      adminPass,
		WebhookWorkers: 1,
		WebhookQueue:   8,
		WebhookTimeout: 2 * time.Second,
		CORSOrigin:     "*",
	}
	srv, err := server.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, srv.Close())
	})
	return &api{t: t, base: ts.URL + "/api"}
}

func (a *api) call(method, path string, body any) (int, []byte) {
	a.t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.base+path, r)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return resp.StatusCode, out
}

func (a *api) mustJSON(method, path string, body any, want int, out any) {
	a.t.Helper()
	status, b := a.call(method, path, body)
	require.Equal(a.t, want, status, "%s %s: %s", method, path, b)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(b, out))
	}
}

func (a *api) login(email, password string) {
	var res struct {
		Token string `json:"token"`
	}
	a.mustJSON(http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, http.StatusOK, &res)
	a.token = res.Token
}

func (a *api) register(email string) {
	var res struct {
		Token string `json:"token"`
	}
	a.mustJSON(http.MethodPost, "/auth/register", map[string]string{"email": email, "password": "password123", "name": "Tester"}, http.StatusCreated, &res)
	a.token = res.Token
}

func (a *api) createForm(name string) string {
	var form struct {
		ID string `json:"id"`
	}
	a.mustJSON(http.MethodPost, "/forms", map[string]any{
		"name": name,
		"fields": []map[string]any{
			{"id": "email", "label": "Email Address", "type": "email"},
			{"id": "name", "label": "Full Name", "type": "name"},
		},
	}, http.StatusCreated, &form)
	return form.ID
}

func (a *api) submit(formID, raw string) string {
	var sub struct {
		ID string `json:"id"`
	}
	a.mustJSON(http.MethodPost, "/public/forms/"+formID+"/submissions", json.RawMessage(`{"data":`+raw+`}`), http.StatusCreated, &sub)
	return sub.ID
}

func TestRESTFlow(t *testing.T) {
	a := start(t, "", "")

	status, body := a.call(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	status, body = a.call(http.MethodGet, "/forms", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"unauthorized"}`, string(body))

	a.register("flow@example.com")
	status, _ = a.call(http.MethodPost, "/auth/register", map[string]string{"email": "flow@example.com", "password": "password123", "name": "Again"})
	assert.Equal(t, http.StatusConflict, status)

	formID := a.createForm("Contact")
	first := a.submit(formID, `{"email":"a@b.com","name":{"firstName":"Jane"}}`)
	second := a.submit(formID, `{"name":{"lastName":"Doe"},"email":"c@d.com","extra":1}`)

	var page struct {
		Submissions []struct {
			ID   string          `json:"id"`
			Data json.RawMessage `json:"data"`
		} `json:"submissions"`
		Total int `json:"total"`
	}
	a.mustJSON(http.MethodGet, "/submissions/form/"+formID, nil, http.StatusOK, &page)
	require.Equal(t, 2, page.Total)
	assert.Equal(t, second, page.Submissions[0].ID)
	assert.Equal(t, `{"name":{"lastName":"Doe"},"email":"c@d.com","extra":1}`, string(page.Submissions[0].Data))

	a.mustJSON(http.MethodGet, "/submissions/form/"+formID+"?q=jane", nil, http.StatusOK, &page)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, first, page.Submissions[0].ID)

	a.mustJSON(http.MethodGet, "/submissions/form/"+formID+"?limit=1&skip=1", nil, http.StatusOK, &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Submissions, 1)
	assert.Equal(t, first, page.Submissions[0].ID)

	status, _ = a.call(http.MethodGet, "/submissions/form/"+formID+"?status=DONE", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var rows []map[string]any
	a.mustJSON(http.MethodGet, "/submissions/"+first+"/rows", nil, http.StatusOK, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jane ", rows[1]["displayValue"])
	assert.Equal(t, "Full Name", rows[1]["label"])

	status, _ = a.call(http.MethodPut, "/submissions/"+first+"/status", map[string]string{"status": "BOGUS"})
	assert.Equal(t, http.StatusBadRequest, status)
	a.mustJSON(http.MethodPut, "/submissions/"+first+"/status", map[string]string{"status": "ON_HOLD"}, http.StatusOK, nil)

	req, err := http.NewRequest(http.MethodGet, a.base+"/submissions/form/"+formID+"/export.csv", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+a.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	csv, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment;")
	lines := strings.Split(string(csv), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Status,name,email,extra", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], `"NEW",{"lastName":"Doe"},"c@d.com",1`), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], `"ON_HOLD",{"firstName":"Jane"},"a@b.com",`), lines[2])

	var analytics struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"byStatus"`
	}
	a.mustJSON(http.MethodGet, "/forms/"+formID+"/analytics", nil, http.StatusOK, &analytics)
	assert.Equal(t, 2, analytics.Total)
	assert.Equal(t, map[string]int{"NEW": 1, "ON_HOLD": 1, "RESOLVED": 0, "PARTIAL": 0}, analytics.ByStatus)

	var dash struct {
		FormCount       int `json:"formCount"`
		SubmissionCount int `json:"submissionCount"`
	}
	a.mustJSON(http.MethodGet, "/dashboard", nil, http.StatusOK, &dash)
	assert.Equal(t, 1, dash.FormCount)
	assert.Equal(t, 2, dash.SubmissionCount)

	var search struct {
		Total int `json:"total"`
	}
	a.mustJSON(http.MethodPost, "/search", map[string]any{"query": "c@d.com"}, http.StatusOK, &search)
	assert.Equal(t, 1, search.Total)

	a.mustJSON(http.MethodDelete, "/submissions/"+first, nil, http.StatusOK, nil)
	status, body = a.call(http.MethodDelete, "/submissions/"+first, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"error":"submission not found"}`, string(body))

	// Another account sees none of it.
	other := &api{t: t, base: a.base}
	other.register("other@example.com")
	status, _ = other.call(http.MethodGet, "/forms/"+formID, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = other.call(http.MethodGet, "/submissions/"+second+"/rows", nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Unpublished forms stop taking submissions.
	a.mustJSON(http.MethodPatch, "/forms/"+formID, map[string]any{"published": false}, http.StatusOK, nil)
	status, _ = a.call(http.MethodPost, "/public/forms/"+formID+"/submissions", map[string]any{"data": map[string]any{}})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWebhookDelivery(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies [][]byte
		sigs   []string
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, b)
		sigs = append(sigs, r.Header.Get(webhook.SignatureHeader))
		mu.Unlock()
	}))
	defer receiver.Close()

	a := start(t, "", "")
	a.register("hooks@example.com")
	formID := a.createForm("Hooked")
	a.mustJSON(http.MethodPost, "/webhooks", map[string]any{"url": receiver.URL, "formId": formID, "secret": "topsecret"}, http.StatusCreated, nil)

	a.submit(formID, `{"email":"w@h.com"}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bodies) == 1
	}, 3*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, webhook.Verify("topsecret", bodies[0], sigs[0]))
	var payload struct {
		Event string `json:"event"`
		Rows  []struct {
			Label string `json:"label"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(bodies[0], &payload))
	assert.Equal(t, "submission.created", payload.Event)
	assert.Equal(t, "Email Address", payload.Rows[0].Label)
}

func TestLiveFeed(t *testing.T) {
	a := start(t, "", "")
	a.register("live@example.com")
	formID := a.createForm("Live")

	url := "ws" + strings.TrimPrefix(a.base, "http") + "/forms/" + formID + "/live?access_token=" + a.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	subID := a.submit(formID, `{"email":"live@x.com"}`)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg struct {
		Event      string `json:"event"`
		Submission struct {
			ID string `json:"id"`
		} `json:"submission"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "submission.created", msg.Event)
	assert.Equal(t, subID, msg.Submission.ID)

	_, resp, err := websocket.DefaultDialer.Dial(url[:strings.Index(url, "?")], nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutes(t *testing.T) {
	a := start(t, "admin@example.com", "admin-pass-1")

	user := &api{t: t, base: a.base}
	user.register("plain@example.com")
	status, _ := user.call(http.MethodGet, "/admin/indexes", nil)
	assert.Equal(t, http.StatusForbidden, status)

	a.login("admin@example.com", "admin-pass-1")
	var idx struct {
		Indexes []struct {
			Name string `json:"name"`
		} `json:"indexes"`
	}
	a.mustJSON(http.MethodGet, "/admin/indexes", nil, http.StatusOK, &idx)
	var names []string
	for _, ix := range idx.Indexes {
		names = append(names, ix.Name)
	}
	assert.Contains(t, names, "idx_submissions_form")

	a.mustJSON(http.MethodPost, "/admin/compact", nil, http.StatusOK, nil)
}
