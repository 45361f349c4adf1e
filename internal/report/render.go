package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// ContentType is the MIME type of rendered reports.
const ContentType = "application/pdf"

type rgb struct{ r, g, b int }

var bandColors = map[Band]rgb{
	BandStrong: {22, 163, 74},
	BandGood:   {37, 99, 235},
	BandWeak:   {217, 119, 6},
	BandPoor:   {220, 38, 38},
}

var impactColors = map[string]rgb{
	prospect.ImpactCritical: {220, 38, 38},
	prospect.ImpactSerious:  {234, 88, 12},
	prospect.ImpactModerate: {217, 119, 6},
	prospect.ImpactMinor:    {100, 116, 139},
}

var (
	ink   = rgb{15, 23, 42}
	muted = rgb{100, 116, 139}
	panel = rgb{241, 245, 249}
)

// Render lays doc out on a single A4 page.
func Render(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle("Website audit: "+doc.Domain, true)
	pdf.SetCreator("prospect-auditor", true)
	if !doc.AuditedAt.IsZero() {
		pdf.SetCreationDate(doc.AuditedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() { footer(pdf, tr, doc) })
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	titleBlock(pdf, tr, doc, contentW)
	scoreRow(pdf, tr, doc.Cards, contentW)
	countsRow(pdf, tr, doc.Counts, contentW)
	violationList(pdf, tr, doc.TopViolations, contentW)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}

func setText(pdf *fpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }
func setFill(pdf *fpdf.Fpdf, c rgb) { pdf.SetFillColor(c.r, c.g, c.b) }

func titleBlock(pdf *fpdf.Fpdf, tr func(string) string, doc Document, width float64) {
	setText(pdf, ink)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(width, 10, tr("Website Audit Report"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 14)
	pdf.CellFormat(width, 8, tr(doc.Domain), "", 1, "L", false, 0, "")
	setText(pdf, muted)
	pdf.SetFont("Helvetica", "", 9)
	if doc.PageTitle != "" {
		pdf.CellFormat(width, 5, tr(doc.PageTitle), "", 1, "L", false, 0, "")
	}
	if !doc.AuditedAt.IsZero() {
		pdf.CellFormat(width, 5, tr("Audited "+doc.AuditedAt.UTC().Format("January 2, 2006 15:04 MST")), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func scoreRow(pdf *fpdf.Fpdf, tr func(string) string, cards []ScoreCard, width float64) {
	if len(cards) == 0 {
		return
	}
	const gap, height = 4.0, 32.0
	cardW := (width - gap*float64(len(cards)-1)) / float64(len(cards))
	x, y := pdf.GetX(), pdf.GetY()
	for i, c := range cards {
		cx := x + float64(i)*(cardW+gap)
		color := bandColors[c.Band]
		setFill(pdf, color)
		pdf.Rect(cx, y, cardW, height, "F")

		pdf.SetTextColor(255, 255, 255)
		pdf.SetXY(cx, y+3)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(cardW, 5, tr(strings.ToUpper(c.Label)), "", 0, "C", false, 0, "")
		pdf.SetXY(cx, y+10)
		pdf.SetFont("Helvetica", "B", 24)
		pdf.CellFormat(cardW, 12, fmt.Sprintf("%d", c.Score), "", 0, "C", false, 0, "")
		pdf.SetXY(cx, y+24)
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(cardW, 5, tr(strings.ToUpper(string(c.Band))), "", 0, "C", false, 0, "")
	}
	pdf.SetXY(x, y+height+8)
}

func countsRow(pdf *fpdf.Fpdf, tr func(string) string, counts ViolationCounts, width float64) {
	setText(pdf, ink)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(width, 8, tr("Accessibility Violations"), "", 1, "L", false, 0, "")

	entries := []struct {
		impact string
		count  int
	}{
		{prospect.ImpactCritical, counts.Critical},
		{prospect.ImpactSerious, counts.Serious},
		{prospect.ImpactModerate, counts.Moderate},
		{prospect.ImpactMinor, counts.Minor},
	}
	cellW := width / float64(len(entries))
	setFill(pdf, panel)
	for i, e := range entries {
		ln := 0
		if i == len(entries)-1 {
			ln = 1
		}
		c := impactColors[e.impact]
		setText(pdf, c)
		pdf.SetFont("Helvetica", "B", 11)
		label := fmt.Sprintf("%s: %d", strings.ToUpper(e.impact[:1])+e.impact[1:], e.count)
		pdf.CellFormat(cellW, 10, tr(label), "", ln, "C", true, 0, "")
	}
	pdf.Ln(6)
}

func violationList(pdf *fpdf.Fpdf, tr func(string) string, lines []ViolationLine, width float64) {
	setText(pdf, ink)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(width, 8, tr("Top Issues"), "", 1, "L", false, 0, "")
	if len(lines) == 0 {
		setText(pdf, muted)
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(width, 6, tr("No accessibility violations were detected."), "", 1, "L", false, 0, "")
		return
	}
	for i, line := range lines {
		setText(pdf, impactColors[line.Impact])
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. [%s] %s", i+1, strings.ToUpper(line.Impact), line.ID)
		if line.Nodes > 0 {
			header += fmt.Sprintf(" (%d elements)", line.Nodes)
		}
		pdf.CellFormat(width, 6, tr(header), "", 1, "L", false, 0, "")
		setText(pdf, ink)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(width, 5, tr(line.Description), "", "L", false)
		pdf.Ln(2)
	}
}

func footer(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetY(-15)
	setText(pdf, muted)
	pdf.SetFont("Helvetica", "I", 8)
	text := "Generated " + doc.GeneratedAt.UTC().Format(time.RFC1123)
	if !doc.Branding.Empty() {
		parts := []string{}
		for _, p := range []string{doc.Branding.AgencyName, doc.Branding.Website, doc.Branding.ContactEmail} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		text += " | Prepared by " + strings.Join(parts, " | ")
	}
	pdf.CellFormat(0, 10, tr(text), "", 0, "C", false, 0, "")
}
