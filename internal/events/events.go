// Package events carries submission notifications from the submission
// service to webhook delivery and the live feed.
package events

import (
	"context"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

// SubmissionEvent describes one stored submission.
type SubmissionEvent struct {
	Type       string
	Form       models.Form
	Submission models.Submission
	Rows       []resolver.Row
}

// Publisher receives submission events. Publish must not block on slow
// consumers.
type Publisher interface {
	Publish(ctx context.Context, evt SubmissionEvent)
}

// Multi fans one event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, evt SubmissionEvent) {
	for _, p := range m {
		p.Publish(ctx, evt)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, SubmissionEvent) {}
