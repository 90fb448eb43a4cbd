package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/models"
)

const formColumns = `id, owner_id, name, slug, description, fields, published, created_at, updated_at`

type FormRepo struct {
	db *sql.DB
}

func NewFormRepo(conn *sql.DB) *FormRepo {
	return &FormRepo{db: conn}
}

func (r *FormRepo) Create(ctx context.Context, form *models.Form) error {
	if form.ID == "" {
		form.ID = NewID()
	}
	fields, err := marshalFields(form.Fields)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO forms (`+formColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		form.ID, form.OwnerID, form.Name, form.Slug, form.Description, fields,
		boolToInt(form.Published), db.FormatTime(form.CreatedAt), db.FormatTime(form.UpdatedAt),
	)
	return err
}

// FindByOwner lists the forms of one user, newest first.
func (r *FormRepo) FindByOwner(ctx context.Context, ownerID string) ([]models.Form, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+formColumns+` FROM forms WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := make([]models.Form, 0)
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, *f)
	}
	return forms, rows.Err()
}

func (r *FormRepo) FindByID(ctx context.Context, id string) (*models.Form, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE id = ?`, id)
	f, err := scanForm(row)
	return f, noRows(err)
}

func (r *FormRepo) FindBySlug(ctx context.Context, slug string) (*models.Form, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+formColumns+` FROM forms WHERE slug = ?`, slug)
	f, err := scanForm(row)
	return f, noRows(err)
}

func (r *FormRepo) Update(ctx context.Context, form *models.Form) error {
	fields, err := marshalFields(form.Fields)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE forms SET name = ?, description = ?, fields = ?, published = ?, updated_at = ?
		WHERE id = ?`,
		form.Name, form.Description, fields, boolToInt(form.Published), db.FormatTime(form.UpdatedAt), form.ID,
	)
	return err
}

// Delete removes the form and, by cascade, its submissions.
func (r *FormRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *FormRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forms WHERE owner_id = ?`, ownerID).Scan(&n)
	return n, err
}

func marshalFields(fields []map[string]any) (string, error) {
	if fields == nil {
		fields = []map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal form fields: %w", err)
	}
	return string(data), nil
}

func scanForm(row scanner) (*models.Form, error) {
	var (
		f                    models.Form
		fields               string
		published            int
		createdAt, updatedAt string
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Slug, &f.Description, &fields, &published, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &f.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields of form %s: %w", f.ID, err)
	}
	f.Published = published == 1
	f.CreatedAt = db.ParseTime(createdAt)
	f.UpdatedAt = db.ParseTime(updatedAt)
	return &f, nil
}
