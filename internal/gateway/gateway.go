// Package gateway is the HTTP client for the forms and submissions API.
//
// Every call is one request bound to its context. Failures come back as
// *NetworkError, *ValidationError, *NotFoundError or *ServerError, to be
// matched with errors.As. Nothing is retried.
package gateway

import (
	"context"

	"github.com/parisxmas/formdesk/internal/models"
)

// SubmissionRecord is one stored submission as the API returns it.
type SubmissionRecord = models.Submission

// Gateway is the forms and submissions surface a dashboard depends on.
type Gateway interface {
	ListForms(ctx context.Context) ([]models.Form, error)
	GetForm(ctx context.Context, id string) (*models.Form, error)
	ListSubmissions(ctx context.Context, formID string) ([]SubmissionRecord, error)
	UpdateSubmissionStatus(ctx context.Context, id string, status models.Status) error
	DeleteSubmission(ctx context.Context, id string) error
}

// Session identifies the caller. It is passed to the client explicitly;
// nothing is read from the environment here. Token takes precedence over
// APIKey when both are set.
type Session struct {
	BaseURL string
	Token   string
	APIKey  string
}

var _ Gateway = (*Client)(nil)
