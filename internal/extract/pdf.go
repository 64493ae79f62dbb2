// Package extract produces per-page plain text from regulation PDFs.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/parcelmind/regsearch/internal/models"
)

// ParsePDF extracts one Page per non-blank PDF page, numbered 1-based, with
// the given city and regulation attached to every page. Blank pages are
// dropped so they never produce empty chunks downstream.
func ParsePDF(path, city, regulation string) ([]models.Page, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}
	return parsePDFBytes(content, city, regulation)
}

func parsePDFBytes(content []byte, city, regulation string) ([]models.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	var pages []models.Page
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, models.Page{
			Page:       i,
			Text:       text,
			City:       city,
			Regulation: regulation,
		})
	}
	return pages, nil
}
