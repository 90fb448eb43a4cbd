package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/formdesk/internal/export"
	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

func submission(t *testing.T, id, raw string, status models.Status, at time.Time) models.Submission {
	t.Helper()
	data, err := resolver.ParseData([]byte(raw))
	require.NoError(t, err)
	return models.Submission{ID: id, FormID: "f1", Data: data, Status: status, CreatedAt: at}
}

func TestCSVColumnsComeFromFirstSubmission(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	subs := []models.Submission{
		submission(t, "s2", `{"email":"a@b.com","tags":["x","y"],"n":1.5}`, models.StatusNew, at),
		submission(t, "s1", `{"email":"c@d.com","extra":"ignored"}`, models.StatusResolved, at.Add(-time.Hour)),
	}

	assert.Equal(t, []string{"Date", "Status", "email", "tags", "n"}, export.Columns(subs))

	want := "Date,Status,email,tags,n\n" +
		`"2024-03-01T09:30:00.000Z","NEW","a@b.com",["x","y"],1.5` + "\n" +
		`"2024-03-01T08:30:00.000Z","RESOLVED","c@d.com",,`
	assert.Equal(t, want, export.CSV(subs))
}

func TestCSVCells(t *testing.T) {
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	subs := []models.Submission{
		submission(t, "s1", `{"name":{"firstName":"Jane"},"note":"say \"hi\", ok","none":null}`, models.StatusOnHold, at),
	}
	want := "Date,Status,name,note,none\n" +
		`"2024-03-01T00:00:00.000Z","ON_HOLD",{"firstName":"Jane"},"say \"hi\", ok",null`
	assert.Equal(t, want, export.CSV(subs))
}

func TestCSVEmpty(t *testing.T) {
	assert.Equal(t, "Date,Status", export.CSV(nil))
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "signup-submissions-2024-03-01.csv", export.Filename(&models.Form{Slug: "signup"}, "csv", at))
	assert.Equal(t, "form-submissions-2024-03-01.pdf", export.Filename(&models.Form{}, "pdf", at))
}

func TestPDF(t *testing.T) {
	form := &models.Form{ID: "f1", Name: "Café signup", Fields: []map[string]any{{"id": "email", "label": "Email"}}}
	sub := submission(t, "s1", `{"email":"a@b.com","bio":"`+string(bytes.Repeat([]byte("long text "), 80))+`"}`, models.StatusNew, time.Now())
	rows := sub.Rows(form)

	var buf bytes.Buffer
	require.NoError(t, export.PDF(&buf, form, &sub, rows))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	require.NoError(t, export.PDF(&buf, form, &models.Submission{ID: "empty"}, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
