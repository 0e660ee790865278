package export

import (
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ignite/report-runner/internal/domain"
)

// DefaultRowsPerPage is used when the exporter is given no page size.
const DefaultRowsPerPage = 50

// A4 landscape geometry, in millimetres.
const (
	pageMargin   = 10.0
	titleHeight  = 8.0
	stampHeight  = 5.0
	footerHeight = 12.0
	maxRowHeight = 7.0
	maxFontSize  = 9.0
	minFontSize  = 4.0
	// fontPerRowMM converts a row height in mm to the font size in pt that fits it.
	fontPerRowMM = 2.2
	a4ShortSide  = 210.0
	tableTop     = pageMargin + titleHeight + stampHeight + 2
)

// MaxRowsPerPage is the largest page size whose rows still fit text at the
// minimum font size. Larger values are clamped.
func MaxRowsPerPage() int {
	minRowH := minFontSize / fontPerRowMM
	return int((a4ShortSide-tableTop-footerHeight)/minRowH) - 1
}

// PDFExporter writes paginated tables, RowsPerPage data rows to a page.
type PDFExporter struct {
	OutputDir   string
	RowsPerPage int
	Title       string
	now         func() time.Time
	compress    bool
}

// NewPDFExporter creates an exporter writing below outputDir.
func NewPDFExporter(outputDir string, rowsPerPage int, title string) *PDFExporter {
	if rowsPerPage <= 0 {
		rowsPerPage = DefaultRowsPerPage
	}
	rowsPerPage = min(rowsPerPage, MaxRowsPerPage())
	return &PDFExporter{
		OutputDir:   outputDir,
		RowsPerPage: rowsPerPage,
		Title:       title,
		now:         time.Now,
		compress:    true,
	}
}

// Export renders rows and returns the file path. Each page holds one chunk
// of rows under a repeated header line.
func (e *PDFExporter) Export(rows []domain.ReportRow, prefix string, reportType domain.ReportType) (string, error) {
	if len(rows) == 0 {
		return "", domain.ErrEmptyData
	}
	now := e.now()
	pdf := e.render(newTable(rows), reportType, now)
	if err := pdf.Error(); err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}

	f, err := createArtifact(e.OutputDir, string(reportType), prefix, ".pdf", now)
	if err != nil {
		return "", err
	}
	if err := pdf.Output(f); err != nil {
		discard(f)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	return f.Name(), nil
}

// pageCount is the number of pages needed for n rows.
func (e *PDFExporter) pageCount(n int) int {
	return int(math.Ceil(float64(n) / float64(e.RowsPerPage)))
}

func (e *PDFExporter) render(t table, reportType domain.ReportType, now time.Time) *fpdf.Fpdf {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(e.compress)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := e.Title
	if title == "" {
		title = "Rapport automatique"
	}
	title = fmt.Sprintf("%s - %s", title, reportType.Label())
	pdf.SetTitle(title, true)
	stamp := fmt.Sprintf("Généré le %s", now.Format("02/01/2006 15:04"))

	pageW, pageH := pdf.GetPageSize()
	tableW := pageW - 2*pageMargin
	colW := tableW / float64(len(t.Header))
	rowH := math.Min(maxRowHeight, (pageH-tableTop-footerHeight)/float64(e.RowsPerPage+1))
	fontSize := math.Max(minFontSize, math.Min(maxFontSize, rowH*fontPerRowMM))

	pdf.SetFooterFunc(func() {
		pdf.SetY(-footerHeight + 4)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	for page := 0; page < e.pageCount(len(t.Cells)); page++ {
		start := page * e.RowsPerPage
		end := min(start+e.RowsPerPage, len(t.Cells))
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, titleHeight, tr(title), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, stampHeight, tr(stamp), "", 1, "L", false, 0, "")
		pdf.SetY(tableTop)

		pdf.SetFont("Helvetica", "B", fontSize)
		pdf.SetFillColor(128, 128, 128)
		pdf.SetTextColor(245, 245, 245)
		pdf.SetDrawColor(0, 0, 0)
		pdf.SetLineWidth(0.2)
		for _, h := range t.Header {
			pdf.CellFormat(colW, rowH, fit(pdf, tr(h), colW), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", fontSize)
		pdf.SetTextColor(0, 0, 0)
		for _, line := range t.Cells[start:end] {
			for _, cell := range line {
				pdf.CellFormat(colW, rowH, fit(pdf, tr(cell), colW), "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}
	return pdf
}

// fit shortens s with an ellipsis until it fits in a cell of width w.
// s is already translated to a single-byte code page.
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	const pad = 1.0
	if pdf.GetStringWidth(s) <= w-pad {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > w-pad {
		s = s[:len(s)-1]
	}
	if s == "" {
		return ""
	}
	return s + "..."
}
