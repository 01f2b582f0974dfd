package invoice

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Renderer writes a document in some output format.
type Renderer interface {
	Render(doc Document, w io.Writer) error
}

// PDFRenderer lays documents out on A4 pages with the core Helvetica font.
// Creation and modification dates come from the order and the catalog is
// written sorted, so the same document always yields the same bytes.
type PDFRenderer struct{}

func (PDFRenderer) Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.CreatedAt)
	pdf.SetModificationDate(doc.CreatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle("Invoice "+doc.OrderID.String(), true)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range doc.Lines {
		pdf.SetFont("Helvetica", "", line.FontSize)
		// points to millimetres, with a little leading
		height := line.FontSize * 0.3528 * 1.4
		pdf.MultiCell(0, height, tr(line.Text), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render invoice %s: %w", doc.OrderID, err)
	}
	return nil
}
