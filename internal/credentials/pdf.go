package credentials

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const brand = "SkillForge"

var (
	colorInk    = [3]int{33, 37, 41}
	colorAccent = [3]int{25, 84, 166}
	colorGold   = [3]int{191, 144, 0}
	colorMuted  = [3]int{108, 117, 125}
)

// Render draws the document as a single landscape A4 page and writes the PDF to w.
func Render(w io.Writer, doc *Document) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s %s", brand, heading(doc)), true)
	pdf.SetAuthor(brand, true)
	pdf.SetCreator(brand, true)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()

	// frame
	pdf.SetDrawColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.SetLineWidth(2)
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")
	pdf.SetLineWidth(0.4)
	pdf.Rect(12, 12, pageW-24, pageH-24, "D")

	// top band
	pdf.SetFillColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.Rect(12, 12, pageW-24, 22, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(12, 17)
	pdf.CellFormat(pageW-24, 12, brand, "", 0, "C", false, 0, "")

	// heading and holder
	pdf.SetTextColor(colorInk[0], colorInk[1], colorInk[2])
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetXY(12, 48)
	pdf.CellFormat(pageW-24, 14, tr(heading(doc)), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
	pdf.SetX(12)
	pdf.CellFormat(pageW-24, 10, "This is to certify that", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetTextColor(colorInk[0], colorInk[1], colorInk[2])
	pdf.SetX(12)
	pdf.CellFormat(pageW-24, 14, tr(doc.HolderName), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
	pdf.SetX(12)
	pdf.CellFormat(pageW-24, 10, tr(achievement(doc)), "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(colorAccent[0], colorAccent[1], colorAccent[2])
	pdf.SetX(12)
	pdf.CellFormat(pageW-24, 12, tr(doc.Title), "", 1, "C", false, 0, "")

	if doc.Score != nil {
		pdf.SetFont("Helvetica", "", 13)
		pdf.SetTextColor(colorInk[0], colorInk[1], colorInk[2])
		pdf.SetX(12)
		pdf.CellFormat(pageW-24, 10, fmt.Sprintf("Score: %d%%", *doc.Score), "", 1, "C", false, 0, "")
	}

	// seal
	sealX, sealY := pageW-52, pageH-52
	pdf.SetFillColor(colorGold[0], colorGold[1], colorGold[2])
	pdf.Circle(sealX, sealY, 18, "F")
	pdf.SetDrawColor(255, 255, 255)
	pdf.SetLineWidth(0.8)
	pdf.Circle(sealX, sealY, 14, "D")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetXY(sealX-14, sealY-3)
	pdf.CellFormat(28, 6, "VERIFIED", "", 0, "C", false, 0, "")

	// footer
	pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
	pdf.SetFont("Helvetica", "", 10)
	y := pageH - 44.0
	if doc.Serial != "" {
		pdf.SetXY(24, y)
		pdf.CellFormat(120, 6, "Serial: "+doc.Serial, "", 0, "L", false, 0, "")
		y += 6
	}
	pdf.SetXY(24, y)
	pdf.CellFormat(120, 6, "Verification code: "+doc.VerificationCode, "", 0, "L", false, 0, "")
	pdf.SetXY(24, y+6)
	pdf.CellFormat(120, 6, "Issued: "+doc.IssuedAt.Format("January 2, 2006"), "", 0, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func heading(doc *Document) string {
	if doc.Kind == KindDiploma {
		return "Diploma"
	}
	return "Certificate of Completion"
}

func achievement(doc *Document) string {
	if doc.Kind == KindDiploma {
		return "has passed the certification exam"
	}
	return "has successfully completed the course"
}
