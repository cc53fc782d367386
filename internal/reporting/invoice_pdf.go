// Package reporting renders invoices as PDF documents.
package reporting

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/biztrack/biztrack-server/internal/models"
)

var (
	colorPrimary     = [3]int{30, 58, 95}
	colorAccent      = [3]int{46, 204, 113}
	colorDanger      = [3]int{231, 76, 60}
	colorTextDark    = [3]int{44, 62, 80}
	colorTextMuted   = [3]int{127, 140, 141}
	colorTableHeader = [3]int{30, 58, 95}
	colorTableAlt    = [3]int{241, 245, 249}
	colorGridLine    = [3]int{220, 220, 220}
)

// InvoiceDocument bundles the invoice with the display names the PDF needs.
// The storage layer holds only IDs; the caller resolves names before
// rendering.
type InvoiceDocument struct {
	Invoice      *models.Invoice
	BusinessName string
	PartyName    string
	PartyAddress string
	BranchName   string
}

// PDFGenerator renders invoice documents.
type PDFGenerator struct{}

// NewPDFGenerator creates a new PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Generate renders a single invoice as an A4 PDF.
func (g *PDFGenerator) Generate(doc *InvoiceDocument) ([]byte, error) {
	if doc == nil || doc.Invoice == nil {
		return nil, fmt.Errorf("nil invoice")
	}
	inv := doc.Invoice

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AddPage()

	g.writeHeader(pdf, doc)
	g.writeParties(pdf, doc)
	g.writeItemsTable(pdf, inv)
	g.writeTotals(pdf, inv)
	if len(inv.Payments) > 0 {
		g.writePayments(pdf, inv)
	}
	g.writeFooter(pdf, inv)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *PDFGenerator) writeHeader(pdf *fpdf.Fpdf, doc *InvoiceDocument) {
	inv := doc.Invoice
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 8, "F")

	pdf.SetY(18)
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 10, doc.BusinessName, "", 1, "L", false, 0, "")

	if doc.BranchName != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 6, doc.BranchName, "", 1, "L", false, 0, "")
	}

	title := "INVOICE"
	if inv.Type == models.InvoiceExpense {
		title = "PURCHASE INVOICE"
	}

	pdf.SetY(18)
	pdf.SetFont("Arial", "B", 16)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 10, title, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, fmt.Sprintf("No. %s", inv.Number), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued: %s", inv.IssuedAt.Format("January 2, 2006")), "", 1, "R", false, 0, "")
	if inv.DueAt != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Due: %s", inv.DueAt.Format("January 2, 2006")), "", 1, "R", false, 0, "")
	}

	// Status stamp
	statusColor := colorDanger
	if inv.Status == models.InvoicePaid {
		statusColor = colorAccent
	} else if inv.Status == models.InvoicePartial {
		statusColor = [3]int{241, 196, 15}
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(statusColor[0], statusColor[1], statusColor[2])
	pdf.CellFormat(0, 7, strings.ToUpper(string(inv.Status)), "", 1, "R", false, 0, "")

	pdf.Ln(4)
	pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
	pdf.SetLineWidth(0.3)
	pdf.Line(20, pdf.GetY(), pageWidth-20, pdf.GetY())
	pdf.Ln(6)
}

func (g *PDFGenerator) writeParties(pdf *fpdf.Fpdf, doc *InvoiceDocument) {
	label := "Bill To"
	if doc.Invoice.Type == models.InvoiceExpense {
		label = "Supplier"
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, strings.ToUpper(label), "", 1, "L", false, 0, "")

	name := doc.PartyName
	if name == "" {
		name = "Walk-in customer"
	}
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 7, name, "", 1, "L", false, 0, "")

	if doc.PartyAddress != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 6, doc.PartyAddress, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func (g *PDFGenerator) writeItemsTable(pdf *fpdf.Fpdf, inv *models.Invoice) {
	descWidth := 90.0
	qtyWidth := 20.0
	priceWidth := 30.0
	totalWidth := 30.0

	pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(descWidth, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(qtyWidth, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(priceWidth, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(totalWidth, 8, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	fill := false
	for _, item := range inv.Items {
		// redraw header after a page break
		if pdf.GetY() > 255 {
			pdf.AddPage()
			pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
			pdf.SetTextColor(255, 255, 255)
			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(descWidth, 8, "Description", "1", 0, "L", true, 0, "")
			pdf.CellFormat(qtyWidth, 8, "Qty", "1", 0, "C", true, 0, "")
			pdf.CellFormat(priceWidth, 8, "Unit Price", "1", 0, "R", true, 0, "")
			pdf.CellFormat(totalWidth, 8, "Total", "1", 1, "R", true, 0, "")
			pdf.SetFont("Arial", "", 9)
			fill = false
		}

		if fill {
			pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])

		desc := item.Description
		if len(desc) > 55 {
			desc = desc[:52] + "..."
		}
		pdf.CellFormat(descWidth, 7, desc, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(qtyWidth, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(priceWidth, 7, formatAmount(item.UnitPrice), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(totalWidth, 7, formatAmount(item.Total), "1", 1, "R", fill, 0, "")
		fill = !fill
	}
	pdf.Ln(4)
}

func (g *PDFGenerator) writeTotals(pdf *fpdf.Fpdf, inv *models.Invoice) {
	labelX := 110.0
	labelWidth := 30.0
	valueWidth := 30.0

	writeRow := func(label, value string, bold bool) {
		pdf.SetX(labelX)
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(labelWidth, 7, label, "", 0, "R", false, 0, "")
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(valueWidth, 7, value, "", 1, "R", false, 0, "")
	}

	writeRow("Subtotal", formatAmount(inv.Subtotal), false)
	if inv.Discount != 0 {
		writeRow("Discount", "-"+formatAmount(inv.Discount), false)
	}
	if inv.Tax != 0 {
		writeRow("Tax", formatAmount(inv.Tax), false)
	}

	pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
	pdf.Line(labelX, pdf.GetY(), labelX+labelWidth+valueWidth, pdf.GetY())
	writeRow("Grand Total", formatAmount(inv.GrandTotal), true)
	writeRow("Paid", formatAmount(inv.PaidTotal), false)
	writeRow("Balance Due", formatAmount(inv.GrandTotal-inv.PaidTotal), true)
	pdf.Ln(4)
}

func (g *PDFGenerator) writePayments(pdf *fpdf.Fpdf, inv *models.Invoice) {
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, "Payments", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, p := range inv.Payments {
		method := p.Method
		if method == "" {
			method = "cash"
		}
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(40, 6, p.PaidAt.Format("Jan 2, 2006"), "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, method, "", 0, "L", false, 0, "")
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(0, 6, formatAmount(p.Amount), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func (g *PDFGenerator) writeFooter(pdf *fpdf.Fpdf, inv *models.Invoice) {
	if inv.Notes != "" {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 6, "NOTES", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.MultiCell(0, 5, inv.Notes, "", "L", false)
	}

	_, pageHeight := pdf.GetPageSize()
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetY(pageHeight - 20)
	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 5, "Thank you for your business.", "", 1, "C", false, 0, "")

	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, pageHeight-8, pageWidth, 8, "F")
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
