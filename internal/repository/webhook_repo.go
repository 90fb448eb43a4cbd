package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/models"
)

const webhookColumns = `id, owner_id, form_id, url, events, secret, active, created_at, updated_at`

type WebhookRepo struct {
	db *sql.DB
}

func NewWebhookRepo(conn *sql.DB) *WebhookRepo {
	return &WebhookRepo{db: conn}
}

func (r *WebhookRepo) Create(ctx context.Context, hook *models.Webhook) error {
	if hook.ID == "" {
		hook.ID = NewID()
	}
	events, err := json.Marshal(hook.Events)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO webhooks (`+webhookColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		hook.ID, hook.OwnerID, hook.FormID, hook.URL, string(events), hook.Secret,
		boolToInt(hook.Active), db.FormatTime(hook.CreatedAt), db.FormatTime(hook.UpdatedAt),
	)
	return err
}

func (r *WebhookRepo) FindByOwner(ctx context.Context, ownerID string) ([]models.Webhook, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhooks WHERE owner_id = ? ORDER BY created_at, rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hooks := make([]models.Webhook, 0)
	for rows.Next() {
		h, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, *h)
	}
	return hooks, rows.Err()
}

func (r *WebhookRepo) FindByID(ctx context.Context, id string) (*models.Webhook, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`, id)
	h, err := scanWebhook(row)
	return h, noRows(err)
}

func (r *WebhookRepo) Update(ctx context.Context, hook *models.Webhook) error {
	events, err := json.Marshal(hook.Events)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE webhooks SET form_id = ?, url = ?, events = ?, secret = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		hook.FormID, hook.URL, string(events), hook.Secret, boolToInt(hook.Active), db.FormatTime(hook.UpdatedAt), hook.ID,
	)
	return err
}

func (r *WebhookRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM webhooks WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Subscribers returns the owner's active webhooks that want event for formID.
func (r *WebhookRepo) Subscribers(ctx context.Context, ownerID, formID, event string) ([]models.Webhook, error) {
	hooks, err := r.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := hooks[:0]
	for _, h := range hooks {
		if h.Matches(event, formID) {
			out = append(out, h)
		}
	}
	return out, nil
}

func scanWebhook(row scanner) (*models.Webhook, error) {
	var (
		h                    models.Webhook
		events               string
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&h.ID, &h.OwnerID, &h.FormID, &h.URL, &events, &h.Secret, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(events), &h.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events of webhook %s: %w", h.ID, err)
	}
	h.Active = active == 1
	h.CreatedAt = db.ParseTime(createdAt)
	h.UpdatedAt = db.ParseTime(updatedAt)
	return &h, nil
}
