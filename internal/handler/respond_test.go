package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/formdesk/internal/auth"
	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/repository"
	"github.com/parisxmas/formdesk/internal/resolver"
	"github.com/parisxmas/formdesk/internal/service"
)

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header { return b.header }
func (b *brokenWriter) WriteHeader(status int) { b.status = status }
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func loggedRequest(method, target string, logs *bytes.Buffer) *http.Request {
	log := zerolog.New(logs)
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(log.WithContext(req.Context()))
}

func TestWriteJSONLogsEncodeFailure(t *testing.T) {
	var logs bytes.Buffer
	r := loggedRequest(http.MethodGet, "/api/forms", &logs)
	rec := httptest.NewRecorder()

	writeJSON(rec, r, http.StatusOK, map[string]any{"bad": make(chan int)})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), `"message":"write response"`)
	assert.Contains(t, logs.String(), `"path":"/api/forms"`)

	logs.Reset()
	writeJSON(httptest.NewRecorder(), r, http.StatusOK, map[string]string{"ok": "<b>"})
	assert.Empty(t, logs.String())
}

func TestWriteServiceErrorStatuses(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{&service.Error{Kind: service.ErrNotFound, Msg: "form not found"}, http.StatusNotFound},
		{&service.Error{Kind: service.ErrValidation, Msg: "bad"}, http.StatusBadRequest},
		{&service.Error{Kind: service.ErrConflict, Msg: "taken"}, http.StatusConflict},
		{&service.Error{Kind: service.ErrUnauthorized, Msg: "no"}, http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	} {
		var logs bytes.Buffer
		rec := httptest.NewRecorder()
		writeServiceError(rec, loggedRequest(http.MethodGet, "/x", &logs), tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
		assert.JSONEq(t, `{"error":"`+tc.err.Error()+`"}`, rec.Body.String())
		assert.Equal(t, tc.want == http.StatusInternalServerError, logs.Len() > 0)
	}
}

func TestExportCSVLogsWriteFailure(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	forms := repository.NewFormRepo(conn)
	authSvc := service.NewAuthService(repository.NewUserRepo(conn), "secret")
	subs := service.NewSubmissionService(repository.NewSubmissionRepo(conn), forms, nil)

	res, err := authSvc.Register(ctx, "csv@example.com", "password123", "Csv")
	require.NoError(t, err)
	form, err := service.NewFormService(forms).Create(ctx, res.User.ID, service.FormInput{
		Name: "Export", Fields: []map[string]any{{"id": "q", "label": "Q"}},
	})
	require.NoError(t, err)
	_, err = subs.Submit(ctx, form.ID, service.SubmitInput{Data: resolver.Object{{Key: "q", Value: "yes"}}})
	require.NoError(t, err)

	var logs bytes.Buffer
	r := loggedRequest(http.MethodGet, "/api/submissions/form/"+form.ID+"/export.csv", &logs)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("formId", form.ID)
	r = r.WithContext(context.WithValue(auth.WithUser(r.Context(), &auth.Claims{UserID: res.User.ID}), chi.RouteCtxKey, rctx))

	w := &brokenWriter{header: http.Header{}}
	NewSubmissionHandler(subs).ExportCSV(w, r)
	assert.Equal(t, http.StatusOK, w.status)
	assert.Equal(t, "text/csv; charset=utf-8", w.header.Get("Content-Type"))
	assert.Contains(t, logs.String(), `"message":"write csv export"`)
	assert.Contains(t, logs.String(), "connection reset")
}
