package watermark

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// StampPDF renders the document text onto an A4 page with the watermark spec
// applied: the diagonal primary text behind the content and the owner/time
// footer at the bottom. Serves environments without a browser print facility.
func StampPDF(spec Spec, title string, lines []string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(spec.IssuedAt)
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	// Diagonal banner first so the content paints over it.
	pdf.SetFont("Arial", "B", 50)
	pdf.SetTextColor(200, 200, 200)
	pdf.TransformBegin()
	pdf.TransformRotate(45, 105, 148)
	pdf.SetXY(30, 140)
	pdf.CellFormat(150, 20, spec.PrimaryText, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "", 11)
	for _, line := range lines {
		pdf.MultiCell(0, 6, line, "", "L", false)
	}

	pdf.SetY(-18)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(90, 5, spec.FooterLeft, "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 5, spec.FooterRight, "", 0, "R", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("stamp pdf: %w", err)
	}
	return buf.Bytes(), nil
}
