package models

import "time"

// NotificationSettings are the per-account email preferences.
type NotificationSettings struct {
	EmailOnSubmission bool `json:"emailOnSubmission"`
	WeeklyDigest      bool `json:"weeklyDigest"`
	ProductUpdates    bool `json:"productUpdates"`
}

// DefaultNotifications applies to new accounts.
func DefaultNotifications() NotificationSettings {
	return NotificationSettings{EmailOnSubmission: true, WeeklyDigest: false, ProductUpdates: true}
}

type User struct {
	ID            string               `json:"id"`
	Email         string               `json:"email"`
	PasswordHash  string               `json:"-"`
	Name          string               `json:"name"`
	Company       string               `json:"company,omitempty"`
	Role          string               `json:"role"`
	APIKey        string               `json:"-"`
	Notifications NotificationSettings `json:"notifications"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role"`
	APIKey    string    `json:"apiKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Company:   u.Company,
		Role:      u.Role,
		APIKey:    u.APIKey,
		CreatedAt: u.CreatedAt,
	}
}
