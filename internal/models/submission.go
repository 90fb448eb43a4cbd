package models

import (
	"fmt"
	"time"

	"github.com/parisxmas/formdesk/internal/resolver"
)

// Status is the triage state of a submission.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusOnHold   Status = "ON_HOLD"
	StatusResolved Status = "RESOLVED"
	StatusPartial  Status = "PARTIAL"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusNew, StatusOnHold, StatusResolved, StatusPartial}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusOnHold, StatusResolved, StatusPartial:
		return true
	}
	return false
}

// ParseStatus validates s against the status enum.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want NEW, ON_HOLD, RESOLVED or PARTIAL)", s)
	}
	return st, nil
}

type Submission struct {
	ID        string          `json:"id"`
	FormID    string          `json:"formId"`
	Data      resolver.Object `json:"data"`
	Status    Status          `json:"status"`
	IPAddress string          `json:"ipAddress,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Rows resolves the submission against the form schema.
func (s *Submission) Rows(form *Form) []resolver.Row {
	var schema []resolver.Field
	if form != nil {
		schema = form.Schema()
	}
	return resolver.Resolve(s.Data, schema)
}
