package models

import (
	"encoding/json"
	"time"
)

// Integration records a connection to a third-party service. Config is
// opaque to the backend.
type Integration struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Provider  string          `json:"provider"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config,omitempty"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
