package report

import (
	"io"

	"github.com/go-pdf/fpdf"
)

// WritePDF renders the digest as a paginated A4 document.
func WritePDF(w io.Writer, d Digest) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(d.Title, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 20)
	centred(pdf, d.Title, TitleY)
	pdf.SetFont("Helvetica", "", 12)
	centred(pdf, d.GeneratedLine(), SubtitleY)

	wrap := func(text string, width float64) []string {
		pdf.SetFont("Helvetica", "", 12)
		return pdf.SplitText(text, width)
	}
	page := 1
	for _, b := range Plan(d, wrap) {
		for page < b.Page {
			pdf.AddPage()
			page++
		}
		pdf.SetFont("Helvetica", "", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(Margin, b.Y, b.Name)

		pdf.SetFont("Helvetica", "", 12)
		if b.Fallback {
			pdf.SetTextColor(150, 150, 150)
		} else {
			pdf.SetTextColor(80, 80, 80)
		}
		for i, line := range b.Lines {
			pdf.Text(Margin, b.Y+NameStep+float64(i)*LineStep, line)
		}
		if b.SeparatorY > 0 {
			pdf.SetDrawColor(200, 200, 200)
			pdf.Line(Margin, b.SeparatorY, PageWidth-Margin, b.SeparatorY)
		}
	}
	return pdf.Output(w)
}

func centred(pdf *fpdf.Fpdf, text string, y float64) {
	pdf.Text((PageWidth-pdf.GetStringWidth(text))/2, y, text)
}
