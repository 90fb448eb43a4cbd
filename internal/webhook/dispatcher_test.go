package webhook_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parisxmas/formdesk/internal/events"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
	"github.com/parisxmas/formdesk/internal/webhook"
)

type staticSubs []models.Webhook

func (s staticSubs) Subscribers(_ context.Context, ownerID, formID, event string) ([]models.Webhook, error) {
	var out []models.Webhook
	for _, h := range s {
		if h.OwnerID == ownerID && h.Matches(event, formID) {
			out = append(out, h)
		}
	}
	return out, nil
}

type received struct {
	mu     sync.Mutex
	bodies [][]byte
	sigs   []string
}

func (r *received) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.bodies = append(r.bodies, body)
		r.sigs = append(r.sigs, req.Header.Get(webhook.SignatureHeader))
		r.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func testClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
}

func sampleEvent(t *testing.T) events.SubmissionEvent {
	t.Helper()
	data, err := resolver.ParseData([]byte(`{"email":"a@b.com","interests":["x","y"]}`))
	require.NoError(t, err)
	form := models.Form{
		ID: "f1", OwnerID: "u1", Name: "Signup", Slug: "signup",
		Fields: []map[string]any{{"id": "email", "label": "Email Address", "type": "email"}},
	}
	sub := models.Submission{ID: "s1", FormID: "f1", Data: data, Status: models.StatusNew}
	return events.SubmissionEvent{
		Type:       models.EventSubmissionCreated,
		Form:       form,
		Submission: sub,
		Rows:       sub.Rows(&form),
	}
}

func TestDeliverSignsPayload(t *testing.T) {
	defer goleak.VerifyNone(t)

	var got received
	srv := httptest.NewServer(got.handler(http.StatusNoContent))
	defer srv.Close()

	subs := staticSubs{
		{ID: "h1", OwnerID: "u1", URL: srv.URL, Events: []string{models.EventSubmissionCreated}, Secret: "shh", Active: true},
		{ID: "h2", OwnerID: "u1", URL: srv.URL, Events: []string{models.EventSubmissionCreated}, Active: false},
		{ID: "h3", OwnerID: "u1", FormID: "other", URL: srv.URL, Events: []string{models.EventSubmissionCreated}, Active: true},
	}
	d := webhook.New(subs, zerolog.Nop(), webhook.Options{Workers: 1, Client: testClient()})
	defer d.Close()

	require.NoError(t, d.Deliver(context.Background(), sampleEvent(t)))
	require.Equal(t, 1, got.count())

	body := got.bodies[0]
	assert.True(t, webhook.Verify("shh", body, got.sigs[0]))

	var payload struct {
		Event string `json:"event"`
		Form  struct {
			Slug string `json:"slug"`
		} `json:"form"`
		Submission struct {
			ID   string          `json:"id"`
			Data json.RawMessage `json:"data"`
		} `json:"submission"`
		Rows []resolver.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, models.EventSubmissionCreated, payload.Event)
	assert.Equal(t, "signup", payload.Form.Slug)
	assert.Equal(t, "s1", payload.Submission.ID)
	assert.Equal(t, `{"email":"a@b.com","interests":["x","y"]}`, string(payload.Submission.Data))
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "Email Address", payload.Rows[0].Label)
	assert.Equal(t, "x, y", payload.Rows[1].DisplayValue)
}

func TestDeliverReportsFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	var got received
	srv := httptest.NewServer(got.handler(http.StatusInternalServerError))
	defer srv.Close()

	subs := staticSubs{{ID: "h1", OwnerID: "u1", URL: srv.URL, Events: []string{models.EventSubmissionCreated}, Active: true}}
	d := webhook.New(subs, zerolog.Nop(), webhook.Options{Workers: 1, Client: testClient()})
	defer d.Close()

	err := d.Deliver(context.Background(), sampleEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	// No retry.
	assert.Equal(t, 1, got.count())
}

func TestCloseDrainsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	var got received
	srv := httptest.NewServer(got.handler(http.StatusOK))
	defer srv.Close()

	subs := staticSubs{{ID: "h1", OwnerID: "u1", URL: srv.URL, Events: []string{models.EventSubmissionCreated}, Active: true}}
	d := webhook.New(subs, zerolog.Nop(), webhook.Options{Workers: 2, QueueSize: 16, Client: testClient()})

	evt := sampleEvent(t)
	for i := 0; i < 5; i++ {
		d.Publish(context.Background(), evt)
	}
	d.Close()
	assert.Equal(t, 5, got.count())

	// Publishing after Close is a logged no-op.
	d.Publish(context.Background(), evt)
	d.Close()
	assert.Equal(t, 5, got.count())
}

func TestSign(t *testing.T) {
	sig := webhook.Sign("key", []byte(`{"a":1}`))
	assert.Equal(t, "sha256=", sig[:7])
	assert.Len(t, sig, 7+64)
	assert.True(t, webhook.Verify("key", []byte(`{"a":1}`), sig))
	assert.False(t, webhook.Verify("key", []byte(`{"a":2}`), sig))
}
