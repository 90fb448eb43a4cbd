package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/parisxmas/formdesk/internal/auth"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

type AuthService struct {
	users     *repository.UserRepo
	jwtSecret string
}

func NewAuthService(users *repository.UserRepo, jwtSecret string) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret}
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// ProfileInput carries the editable account fields.
type ProfileInput struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
}

func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalid("name is required")
	}
	if len(password) < MinPasswordLen {
		return nil, invalid("password must be at least %d characters", MinPasswordLen)
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, conflict("email already registered")
	}
	user, err := s.newUser(email, password, strings.TrimSpace(name), "user")
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(password, user.PasswordHash) {
		return nil, unauthorized("invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("user")
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		user.Name = name
	}
	user.Company = strings.TrimSpace(in.Company)
	if email := strings.ToLower(strings.TrimSpace(in.Email)); email != "" && email != user.Email {
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		other, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, conflict("email already registered")
		}
		user.Email = email
	}
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(current, user.PasswordHash) {
		return invalid("current password is incorrect")
	}
	if len(next) < MinPasswordLen {
		return invalid("password must be at least %d characters", MinPasswordLen)
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// RegenerateAPIKey replaces the account key; the old key stops working
// immediately.
func (s *AuthService) RegenerateAPIKey(ctx context.Context, userID string) (string, error) {
	if _, err := s.Me(ctx, userID); err != nil {
		return "", err
	}
	key, err := auth.NewAPIKey()
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateAPIKey(ctx, userID, key); err != nil {
		return "", err
	}
	return key, nil
}

func (s *AuthService) Notifications(ctx context.Context, userID string) (models.NotificationSettings, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	return user.Notifications, nil
}

func (s *AuthService) UpdateNotifications(ctx context.Context, userID string, n models.NotificationSettings) (models.NotificationSettings, error) {
	if _, err := s.Me(ctx, userID); err != nil {
		return models.NotificationSettings{}, err
	}
	if err := s.users.UpdateNotifications(ctx, userID, n); err != nil {
		return models.NotificationSettings{}, err
	}
	return n, nil
}

// ClaimsForAPIKey implements auth.KeyLookup.
func (s *AuthService) ClaimsForAPIKey(ctx context.Context, key string) (*auth.Claims, error) {
	if !strings.HasPrefix(key, auth.APIKeyPrefix) {
		return nil, nil
	}
	user, err := s.users.FindByAPIKey(ctx, key)
	if err != nil || user == nil {
		return nil, err
	}
	return &auth.Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// SeedAdmin creates the admin account unless the email is already taken.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	user, err := s.newUser(email, password, "Admin", "admin")
	if err != nil {
		return err
	}
	return s.users.Create(ctx, user)
}

func (s *AuthService) newUser(email, password, name, role string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	key, err := auth.NewAPIKey()
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:            repository.NewID(),
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Role:          role,
		APIKey:        key,
		Notifications: models.DefaultNotifications(),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(s.jwtSecret, user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.ToResponse()}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("invalid email address")
	}
	return nil
}
