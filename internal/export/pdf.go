package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/parisxmas/formdesk/internal/models"
	"github.com/parisxmas/formdesk/internal/resolver"
)

const (
	labelWidth = 60
	lineHeight = 5.5
)

// PDF writes a one-submission report: a header with the form and
// submission metadata, then every resolved row as a label/answer table.
func PDF(w io.Writer, form *models.Form, sub *models.Submission, rows []resolver.Row) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("{nb}")
	pdf.SetTitle(form.Name+" submission", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	marginL, _, marginR, _ := pdf.GetMargins()
	contentW := pageW - marginL - marginR

	// Header bar
	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 10, tr(form.Name), "", 1, "L", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 9)
	meta := [][2]string{
		{"Submission", sub.ID},
		{"Submitted", sub.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Status", string(sub.Status)},
	}
	for _, m := range meta {
		pdf.CellFormat(30, lineHeight, m[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW-30, lineHeight, tr(m[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(labelWidth, 7, "Question", "1", 0, "L", true, 0, "")
	pdf.CellFormat(contentW-labelWidth, 7, "Answer", "1", 1, "L", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	_, pageH := pdf.GetPageSize()
	_, _, _, marginB := pdf.GetMargins()
	if len(rows) == 0 {
		pdf.CellFormat(contentW, 7, "No data submitted", "1", 1, "C", false, 0, "")
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 9)
		label := pdf.SplitLines([]byte(tr(row.Label)), labelWidth)
		pdf.SetFont("Helvetica", "", 9)
		value := pdf.SplitLines([]byte(tr(row.DisplayValue)), contentW-labelWidth)
		n := max(len(label), len(value), 1)
		h := float64(n) * lineHeight

		if pdf.GetY()+h > pageH-marginB {
			pdf.AddPage()
		}
		x, y := pdf.GetXY()
		pdf.Rect(x, y, labelWidth, h, "D")
		pdf.Rect(x+labelWidth, y, contentW-labelWidth, h, "D")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.MultiCell(labelWidth, lineHeight, tr(row.Label), "", "L", false)
		pdf.SetXY(x+labelWidth, y)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW-labelWidth, lineHeight, tr(row.DisplayValue), "", "L", false)
		pdf.SetXY(x, y+h)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: render pdf: %w", err)
	}
	return pdf.Output(w)
}
