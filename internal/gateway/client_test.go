package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/formdesk/internal/config"
	"github.com/parisxmas/formdesk/internal/gateway"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
	"github.com/parisxmas/formdesk/internal/server"
	"github.com/parisxmas/formdesk/internal/service"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := &config.Config{
		DBPath:         filepath.Join(t.TempDir(), "formdesk.db"),
		JWTSecret:      "test-secret",
		WebhookWorkers: 1,
		WebhookQueue:   8,
		WebhookTimeout: time.Second,
		CORSOrigin:     "*",
	}
	srv, err := server.New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts.URL + "/api"
}

func registered(t *testing.T, base string) *gateway.Client {
	t.Helper()
	c := gateway.New(gateway.Session{BaseURL: base})
	_, err := c.Register(context.Background(), "owner@example.com", "s3cret-pass", "Owner")
	require.NoError(t, err)
	return c
}

func signupForm(t *testing.T, c *gateway.Client) *models.Form {
	t.Helper()
	form, err := c.CreateForm(context.Background(), service.FormInput{
		Name: "Newsletter Signup",
		Fields: []map[string]any{
			{"id": "email", "label": "Email Address", "type": "email", "required": true},
		},
	})
	require.NoError(t, err)
	return form
}

func TestGatewayFlow(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)
	c := registered(t, base)
	form := signupForm(t, c)
	assert.Equal(t, "newsletter-signup", form.Slug)

	forms, err := c.ListForms(ctx)
	require.NoError(t, err)
	require.Len(t, forms, 1)

	got, err := c.GetForm(ctx, form.ID)
	require.NoError(t, err)
	assert.Equal(t, "Email Address", got.TypedFields()[0].Label)

	data, err := resolver.ParseData([]byte(`{"email":"a@b.com","interests":["x","y"]}`))
	require.NoError(t, err)
	public := gateway.New(gateway.Session{BaseURL: base})
	sub, err := public.Submit(ctx, form.ID, data, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, sub.Status)

	subs, err := c.ListSubmissions(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, []string{"email", "interests"}, subs[0].Data.Keys())

	rows, err := c.SubmissionRows(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Email Address", rows[0].Label)
	assert.Nil(t, rows[1].FieldType)
	assert.Equal(t, "x, y", rows[1].DisplayValue)

	require.NoError(t, c.UpdateSubmissionStatus(ctx, sub.ID, models.StatusResolved))
	page, err := c.ListSubmissionsPage(ctx, form.ID, gateway.ListFilter{Status: models.StatusResolved})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	csv, err := c.ExportCSV(ctx, form.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "Date,Status,email,interests\n"))
	assert.True(t, strings.HasSuffix(string(csv), `"RESOLVED","a@b.com",["x","y"]`))

	pdf, err := c.SubmissionPDF(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))

	require.NoError(t, c.DeleteSubmission(ctx, sub.ID))
	var nf *gateway.NotFoundError
	err = c.DeleteSubmission(ctx, sub.ID)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "submission not found", nf.Message)

	err = c.UpdateSubmissionStatus(ctx, sub.ID, models.StatusNew)
	assert.ErrorAs(t, err, &nf)
}

func TestRequiredFieldIsEnforced(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)
	c := registered(t, base)
	form := signupForm(t, c)

	empty, err := resolver.ParseData([]byte(`{"note":"hi"}`))
	require.NoError(t, err)
	_, err = c.Submit(ctx, form.ID, empty, false)
	var ve *gateway.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusBadRequest, ve.Status)
	assert.Contains(t, ve.Message, "Email Address")

	sub, err := c.Submit(ctx, form.ID, empty, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, sub.Status)
}

type countingTransport struct {
	n atomic.Int32
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.n.Add(1)
	return http.DefaultTransport.RoundTrip(r)
}

func TestInvalidStatusIsRejectedBeforeSending(t *testing.T) {
	base := startServer(t)
	c := registered(t, base)
	rt := &countingTransport{}
	c.SetHTTPClient(&http.Client{Transport: rt})

	err := c.UpdateSubmissionStatus(context.Background(), "any", models.Status("ARCHIVED"))
	var ve *gateway.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Zero(t, ve.Status)
	assert.Zero(t, rt.n.Load())
}

func TestProfileWebhooksIntegrations(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)
	c := registered(t, base)
	form := signupForm(t, c)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(me.APIKey, "fd_"))

	u, err := c.UpdateProfile(ctx, service.ProfileInput{Name: "Renamed", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", u.Company)

	var ve *gateway.ValidationError
	require.ErrorAs(t, c.ChangePassword(ctx, "wrong-password", "another-pass"), &ve)
	require.NoError(t, c.ChangePassword(ctx, "s3cret-pass", "another-pass"))

	key, err := c.RegenerateAPIKey(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, me.APIKey, key)
	byKey := gateway.New(gateway.Session{BaseURL: base, APIKey: key})
	_, err = byKey.ListForms(ctx)
	require.NoError(t, err)
	stale := gateway.New(gateway.Session{BaseURL: base, APIKey: me.APIKey})
	_, err = stale.ListForms(ctx)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusUnauthorized, ve.Status)

	n, err := c.UpdateNotifications(ctx, models.NotificationSettings{WeeklyDigest: true})
	require.NoError(t, err)
	assert.True(t, n.WeeklyDigest)
	n, err = c.GetNotifications(ctx)
	require.NoError(t, err)
	assert.False(t, n.EmailOnSubmission)

	hook, err := c.CreateWebhook(ctx, service.WebhookInput{URL: "https://hooks.example/in", FormID: form.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{models.EventSubmissionCreated}, hook.Events)
	_, err = c.CreateWebhook(ctx, service.WebhookInput{URL: "ftp://nope"})
	require.ErrorAs(t, err, &ve)
	off := false
	hook, err = c.UpdateWebhook(ctx, hook.ID, service.WebhookInput{URL: "https://hooks.example/v2", Active: &off})
	require.NoError(t, err)
	assert.False(t, hook.Active)
	hooks, err := c.ListWebhooks(ctx)
	require.NoError(t, err)
	assert.Len(t, hooks, 1)
	require.NoError(t, c.DeleteWebhook(ctx, hook.ID))
	var nf *gateway.NotFoundError
	require.ErrorAs(t, c.DeleteWebhook(ctx, hook.ID), &nf)

	it, err := c.CreateIntegration(ctx, service.IntegrationInput{Provider: "Slack", Config: []byte(`{"channel":"#forms"}`)})
	require.NoError(t, err)
	assert.Equal(t, "slack", it.Provider)
	it, err = c.UpdateIntegration(ctx, it.ID, service.IntegrationInput{Provider: "slack", Name: "Team", Config: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "Team", it.Name)
	items, err := c.ListIntegrations(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	require.NoError(t, c.DeleteIntegration(ctx, it.ID))

	require.NoError(t, c.DeleteForm(ctx, form.ID))
	_, err = c.GetForm(ctx, form.ID)
	require.ErrorAs(t, err, &nf)
}

func TestErrorClassification(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forms/missing":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"form not found"}`))
		case "/forms/plain":
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte("slug taken"))
		case "/forms/boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte(`{"id":"` + strings.TrimPrefix(r.URL.Path, "/forms/") + `"}`))
		}
	}))
	defer ts.Close()
	c := gateway.New(gateway.Session{BaseURL: ts.URL + "/"})
	ctx := context.Background()

	f, err := c.GetForm(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", f.ID)

	var nf *gateway.NotFoundError
	_, err = c.GetForm(ctx, "missing")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "form not found", nf.Message)

	var ve *gateway.ValidationError
	_, err = c.GetForm(ctx, "plain")
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, http.StatusConflict, ve.Status)
	assert.Equal(t, "slug taken", ve.Message)

	var se *gateway.ServerError
	_, err = c.GetForm(ctx, "boom")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Bad Gateway", se.Message)

	ts.Close()
	var ne *gateway.NetworkError
	_, err = c.GetForm(ctx, "ok")
	require.ErrorAs(t, err, &ne)
	assert.NotNil(t, errors.Unwrap(ne))

	_, err = gateway.New(gateway.Session{}).ListForms(ctx)
	assert.ErrorIs(t, err, gateway.ErrNoBaseURL)
}
