// Package export renders submissions as downloadable CSV and PDF files.
package export

import (
	"io"
	"strings"
	"time"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

// DateLayout matches a browser Date's ISO form, millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Columns returns the CSV header: Date, Status and then the data keys of
// the first submission in order. Keys that only later submissions carry
// get no column.
func Columns(subs []models.Submission) []string {
	cols := []string{"Date", "Status"}
	if len(subs) > 0 {
		cols = append(cols, subs[0].Data.Keys()...)
	}
	return cols
}

// CSV renders subs with one JSON-serialized value per cell. A key the
// submission lacks yields an empty cell. Rows end without a trailing
// newline.
func CSV(subs []models.Submission) string {
	cols := Columns(subs)
	lines := make([]string, 0, len(subs)+1)
	lines = append(lines, strings.Join(cols, ","))

	keys := cols[2:]
	for _, sub := range subs {
		cells := make([]string, 0, len(cols))
		cells = append(cells,
			resolver.Stringify(sub.CreatedAt.UTC().Format(DateLayout)),
			resolver.Stringify(string(sub.Status)),
		)
		for _, k := range keys {
			v, ok := sub.Data.Get(k)
			if !ok {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, resolver.Stringify(v))
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes CSV(subs) to w.
func WriteCSV(w io.Writer, subs []models.Submission) error {
	_, err := io.WriteString(w, CSV(subs))
	return err
}

// Filename builds the attachment name for an export of form taken at t.
func Filename(form *models.Form, ext string, t time.Time) string {
	base := form.Slug
	if base == "" {
		base = "form"
	}
	return base + "-submissions-" + t.UTC().Format("2006-01-02") + "." + ext
}
