// Package webhook delivers submission events to user-registered URLs.
//
// Events are queued and handled by a fixed number of workers. All matching
// webhooks of one event are called concurrently. A failed delivery is
// logged and dropped; there is no retry.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/formdesk/internal/events"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

const (
	SignatureHeader = "X-Formdesk-Signature"
	EventHeader     = "X-Formdesk-Event"
	DeliveryHeader  = "X-Formdesk-Delivery"

	userAgent = "formdesk-webhook/1.0"
	// maxParallel bounds concurrent requests for a single event.
	maxParallel = 8
)

// Subscribers finds the webhooks interested in an event.
type Subscribers interface {
	Subscribers(ctx context.Context, ownerID, formID, event string) ([]models.Webhook, error)
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

type Dispatcher struct {
	subs   Subscribers
	client *http.Client
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan events.SubmissionEvent
	wg     sync.WaitGroup
}

// New starts the delivery workers. Call Close to drain and stop them.
func New(subs Subscribers, log zerolog.Logger, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	d := &Dispatcher{
		subs:   subs,
		client: client,
		log:    log.With().Str("component", "webhook").Logger(),
		queue:  make(chan events.SubmissionEvent, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Publish queues evt for delivery. It never blocks: when the queue is full
// or the dispatcher is closed the event is dropped.
func (d *Dispatcher) Publish(_ context.Context, evt events.SubmissionEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn().Str("submission", evt.Submission.ID).Msg("dispatcher closed, event dropped")
		return
	}
	select {
	case d.queue <- evt:
	default:
		d.log.Warn().Str("submission", evt.Submission.ID).Msg("webhook queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for evt := range d.queue {
		if err := d.Deliver(context.Background(), evt); err != nil {
			d.log.Debug().Err(err).Str("submission", evt.Submission.ID).Msg("event delivered with failures")
		}
	}
}

// Payload is the JSON body posted to a webhook.
type Payload struct {
	Event      string            `json:"event"`
	Form       FormRef           `json:"form"`
	Submission models.Submission `json:"submission"`
	Rows       []resolver.Row    `json:"rows"`
}

type FormRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Deliver sends evt to every subscribed webhook and returns the first
// failure. Every failure is logged.
func (d *Dispatcher) Deliver(ctx context.Context, evt events.SubmissionEvent) error {
	hooks, err := d.subs.Subscribers(ctx, evt.Form.OwnerID, evt.Form.ID, evt.Type)
	if err != nil {
		d.log.Error().Err(err).Str("form", evt.Form.ID).Msg("load webhooks")
		return err
	}
	if len(hooks) == 0 {
		return nil
	}

	body, err := json.Marshal(Payload{
		Event:      evt.Type,
		Form:       FormRef{ID: evt.Form.ID, Name: evt.Form.Name, Slug: evt.Form.Slug},
		Submission: evt.Submission,
		Rows:       evt.Rows,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for _, h := range hooks {
		h := h // per-iteration copy; go 1.21 loop semantics share h across iterations
		g.Go(func() error {
			start := time.Now()
			status, err := d.post(ctx, h, evt.Type, body)
			l := d.log.With().Str("webhook", h.ID).Str("url", h.URL).Dur("took", time.Since(start)).Logger()
			if err != nil {
				l.Warn().Err(err).Msg("delivery failed")
				return err
			}
			l.Info().Int("status", status).Msg("delivered")
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) post(ctx context.Context, h models.Webhook, event string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(EventHeader, event)
	req.Header.Set(DeliveryHeader, uuid.NewString())
	if h.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(h.Secret, body))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook %s: %w", h.ID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("webhook %s: unexpected status %d", h.ID, resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Sign returns the signature header value for body: "sha256=" followed by
// the hex HMAC-SHA256 of body keyed with secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature header produced by Sign.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
