package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/parisxmas/formdesk/internal/db"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

const submissionColumns = `id, form_id, data, status, ip_address, user_agent, created_at`

type SubmissionRepo struct {
	db *sql.DB
}

func NewSubmissionRepo(conn *sql.DB) *SubmissionRepo {
	return &SubmissionRepo{db: conn}
}

// Create stores the submission. Data is written with its original key
// order so later reads resolve rows in the order the respondent saw.
func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) error {
	if sub.ID == "" {
		sub.ID = NewID()
	}
	data, err := sub.Data.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`) VALUES (?,?,?,?,?,?,?)`,
		sub.ID, sub.FormID, string(data), string(sub.Status), sub.IPAddress, sub.UserAgent, db.FormatTime(sub.CreatedAt),
	)
	return err
}

// FindByFormID lists a form's submissions, newest first.
func (r *SubmissionRepo) FindByFormID(ctx context.Context, formID string) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE form_id = ? ORDER BY created_at DESC, rowid DESC`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := make([]models.Submission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

func (r *SubmissionRepo) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row)
	return s, noRows(err)
}

// UpdateStatus reports false when no submission has the id.
func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id string, status models.Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE submissions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Delete reports false when no submission has the id.
func (r *SubmissionRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *SubmissionRepo) CountByFormID(ctx context.Context, formID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE form_id = ?`, formID).Scan(&n)
	return n, err
}

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		s                models.Submission
		data, status, ts string
	)
	if err := row.Scan(&s.ID, &s.FormID, &data, &status, &s.IPAddress, &s.UserAgent, &ts); err != nil {
		return nil, err
	}
	obj, err := resolver.ParseData([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("submission %s: %w", s.ID, err)
	}
	s.Data = obj
	s.Status = models.Status(status)
	s.CreatedAt = db.ParseTime(ts)
	return &s, nil
}
