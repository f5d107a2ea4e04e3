package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/rollup"
)

// EstimateReference is the printed reference of an estimate, EST- plus the first 8 hex digits of its id
func EstimateReference(id uuid.UUID) string {
	return "EST-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

var lineItemColumns = []struct {
	title string
	width float64
	align string
}{
	{"Description", 80, "L"},
	{"Qty", 22, "R"},
	{"Unit", 18, "C"},
	{"Unit price", 28, "R"},
	{"Total", 32, "R"},
}

// EstimatePDF renders a printable estimate with a Code128 barcode of its reference.
// The estimate must have its site and line items loaded.
func EstimatePDF(estimate *domain.Estimate, printedAt time.Time) ([]byte, error) {
	reference := EstimateReference(estimate.ID)
	barcodePNG, err := renderCode128PNG(reference, 900, 180)
	if err != nil {
		return nil, fmt.Errorf("failed to render barcode: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(estimate.Title, true)
	pdf.SetAuthor("Job Sense", false)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// header: title left, barcode right
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(110, 10, tr(estimate.Title), "", 0, "L", false, 0, "")

	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	imageName := "estimate-barcode-" + reference
	pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
	pdf.ImageOptions(imageName, 135, 13, 66, 14, false, opt, 0, "")
	pdf.SetXY(135, 27)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(66, 5, reference, "", 1, "C", false, 0, "")

	pdf.SetXY(15, 27)
	pdf.SetFont("Helvetica", "", 11)
	siteName, siteAddress := "No site", ""
	if estimate.Site != nil {
		siteName = estimate.Site.Name
		siteAddress = estimate.Site.Address
	}
	pdf.CellFormat(110, 6, tr("Site: "+siteName), "", 1, "L", false, 0, "")
	if siteAddress != "" {
		pdf.CellFormat(110, 6, tr(siteAddress), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(110, 6, "Status: "+string(estimate.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(110, 6, "Date: "+printedAt.Format("January 2, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 238, 250)
	for _, col := range lineItemColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	if len(estimate.LineItems) == 0 {
		pdf.CellFormat(180, 8, "No line items", "1", 1, "C", false, 0, "")
	}
	for _, item := range estimate.LineItems {
		values := []string{
			tr(truncate(pdf, item.Description, lineItemColumns[0].width-2)),
			item.Quantity.String(),
			tr(item.Unit),
			"$" + rollup.FormatMoney(item.UnitPrice),
			"$" + rollup.FormatMoney(item.Total),
		}
		for i, col := range lineItemColumns {
			pdf.CellFormat(col.width, 7, values[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(148, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(32, 9, "$"+rollup.FormatMoney(estimate.Total), "1", 1, "R", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return out.Bytes(), nil
}

func truncate(pdf *gofpdf.Fpdf, text string, maxWidth float64) string {
	if pdf.GetStringWidth(text) <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
