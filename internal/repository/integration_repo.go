package repository

import (
	"context"
	"database/sql"

	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/models"
)

const integrationColumns = `id, owner_id, provider, name, config, active, created_at, updated_at`

type IntegrationRepo struct {
	db *sql.DB
}

func NewIntegrationRepo(conn *sql.DB) *IntegrationRepo {
	return &IntegrationRepo{db: conn}
}

func (r *IntegrationRepo) Create(ctx context.Context, in *models.Integration) error {
	if in.ID == "" {
		in.ID = NewID()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO integrations (`+integrationColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		in.ID, in.OwnerID, in.Provider, in.Name, configText(in.Config),
		boolToInt(in.Active), db.FormatTime(in.CreatedAt), db.FormatTime(in.UpdatedAt),
	)
	return err
}

func (r *IntegrationRepo) FindByOwner(ctx context.Context, ownerID string) ([]models.Integration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+integrationColumns+` FROM integrations WHERE owner_id = ? ORDER BY created_at, rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]models.Integration, 0)
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *in)
	}
	return list, rows.Err()
}

func (r *IntegrationRepo) FindByID(ctx context.Context, id string) (*models.Integration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE id = ?`, id)
	in, err := scanIntegration(row)
	return in, noRows(err)
}

func (r *IntegrationRepo) Update(ctx context.Context, in *models.Integration) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE integrations SET provider = ?, name = ?, config = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		in.Provider, in.Name, configText(in.Config), boolToInt(in.Active), db.FormatTime(in.UpdatedAt), in.ID,
	)
	return err
}

func (r *IntegrationRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM integrations WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func configText(raw []byte) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

func scanIntegration(row scanner) (*models.Integration, error) {
	var (
		in                   models.Integration
		config               string
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&in.ID, &in.OwnerID, &in.Provider, &in.Name, &config, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	in.Config = []byte(config)
	in.Active = active == 1
	in.CreatedAt = db.ParseTime(createdAt)
	in.UpdatedAt = db.ParseTime(updatedAt)
	return &in, nil
}
