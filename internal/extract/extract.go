// Package extract turns uploaded documents into page text and groups pages
// into the batches that get chunked.
package extract

import (
	"bytes"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/ledongthuc/pdf"
)

// DefaultPagesPerBatch is the number of pages chunked together.
const DefaultPagesPerBatch = 10

// Page is the text of one page, numbered from 1.
type Page struct {
	Number int
	Text   string
}

// PageBatch is a run of consecutive pages chunked as one unit.
type PageBatch struct {
	PageRange string
	Text      string
}

var pdfMagic = []byte("%PDF-")

// Pages extracts per-page text from data. The format is chosen by the
// filename extension, falling back to content sniffing for PDFs.
func Pages(data []byte, filename string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case ext == ".pdf" || (ext == "" && bytes.HasPrefix(data, pdfMagic)):
		return pdfPages(data)
	case ext == ".txt" || ext == ".text" || ext == ".md" || ext == ".markdown":
		return textPages(data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedDocument, filename)
	}
}

func pdfPages(data []byte) ([]Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "failed to open PDF", err)
	}

	var pages []Page
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			log.Printf("extract: skipping unreadable page %d: %v", i, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return pages, nil
}

// textPages splits plain text on form feeds.
func textPages(data []byte) ([]Page, error) {
	var pages []Page
	for i, part := range strings.Split(string(data), "\f") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, Page{Number: i + 1, Text: part})
	}
	if len(pages) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	return pages, nil
}

// Batch collects pages into batches of at most pagesPerBatch pages labelled
// "<first>-<last>" by page number.
func Batch(pages []Page, pagesPerBatch int) []PageBatch {
	if pagesPerBatch <= 0 {
		pagesPerBatch = DefaultPagesPerBatch
	}

	batches := make([]PageBatch, 0, (len(pages)+pagesPerBatch-1)/pagesPerBatch)
	for start := 0; start < len(pages); start += pagesPerBatch {
		end := min(start+pagesPerBatch, len(pages))
		group := pages[start:end]

		texts := make([]string, len(group))
		for i, p := range group {
			texts[i] = p.Text
		}
		batches = append(batches, PageBatch{
			PageRange: fmt.Sprintf("%d-%d", group[0].Number, group[len(group)-1].Number),
			Text:      strings.Join(texts, "\n\n"),
		})
	}
	return batches
}
