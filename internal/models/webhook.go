package models

import (
	"slices"
	"time"
)

// EventSubmissionCreated fires when a public form submission is stored.
const EventSubmissionCreated = "submission.created"

// KnownEvents lists the events a webhook may subscribe to.
var KnownEvents = []string{EventSubmissionCreated}

type Webhook struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	FormID    string    `json:"formId,omitempty"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"secret,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Matches reports whether the webhook wants event for formID. An empty
// FormID subscribes to every form of the owner.
func (w *Webhook) Matches(event, formID string) bool {
	if !w.Active {
		return false
	}
	if w.FormID != "" && w.FormID != formID {
		return false
	}
	return slices.Contains(w.Events, event)
}
