package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/models"
)

const userColumns = `id, email, password_hash, name, company, role, api_key, notifications, created_at`

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(conn *sql.DB) *UserRepo {
	return &UserRepo{db: conn}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = NewID()
	}
	notif, err := json.Marshal(user.Notifications)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Company, user.Role,
		user.APIKey, string(notif), db.FormatTime(user.CreatedAt),
	)
	return err
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepo) FindByAPIKey(ctx context.Context, key string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE api_key = ?`, key)
	return scanUser(row)
}

// UpdateProfile writes name, company and email.
func (r *UserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, company = ?, email = ? WHERE id = ?`,
		user.Name, user.Company, user.Email, user.ID)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	return err
}

func (r *UserRepo) UpdateAPIKey(ctx context.Context, id, key string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET api_key = ? WHERE id = ?`, key, id)
	return err
}

func (r *UserRepo) UpdateNotifications(ctx context.Context, id string, n models.NotificationSettings) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE users SET notifications = ? WHERE id = ?`, string(data), id)
	return err
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u         models.User
		notif     string
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Company, &u.Role, &u.APIKey, &notif, &createdAt)
	if err != nil {
		return nil, noRows(err)
	}
	if err := json.Unmarshal([]byte(notif), &u.Notifications); err != nil {
		return nil, fmt.Errorf("unmarshal notifications of user %s: %w", u.ID, err)
	}
	u.CreatedAt = db.ParseTime(createdAt)
	return &u, nil
}
