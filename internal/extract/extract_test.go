package extract

import (
	"fmt"
	"testing"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedPages(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Number: i + 1, Text: fmt.Sprintf("page %d", i+1)}
	}
	return pages
}

func TestPages_TextSplitsOnFormFeed(t *testing.T) {
	pages, err := Pages([]byte("first page\fsecond page\f  \fthird"), "notes.txt")

	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, Page{Number: 1, Text: "first page"}, pages[0])
	assert.Equal(t, Page{Number: 2, Text: "second page"}, pages[1])
	assert.Equal(t, Page{Number: 4, Text: "third"}, pages[2])
}

func TestPages_MarkdownIsText(t *testing.T) {
	pages, err := Pages([]byte("# Title\n\nbody"), "README.MD")

	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "# Title\n\nbody", pages[0].Text)
}

func TestPages_EmptyText(t *testing.T) {
	_, err := Pages([]byte(" \n\f\n"), "blank.txt")
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestPages_Unsupported(t *testing.T) {
	_, err := Pages([]byte{0x50, 0x4b, 0x03, 0x04}, "sheet.xlsx")
	assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)

	_, err = Pages([]byte("plain"), "noext")
	assert.ErrorIs(t, err, domain.ErrUnsupportedDocument)
}

func TestPages_InvalidPDF(t *testing.T) {
	_, err := Pages([]byte("%PDF-1.4 truncated"), "broken.pdf")

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestBatch_LabelsRanges(t *testing.T) {
	batches := Batch(numberedPages(23), 10)

	require.Len(t, batches, 3)
	assert.Equal(t, "1-10", batches[0].PageRange)
	assert.Equal(t, "11-20", batches[1].PageRange)
	assert.Equal(t, "21-23", batches[2].PageRange)
	assert.Equal(t, "page 21\n\npage 22\n\npage 23", batches[2].Text)
}

func TestBatch_UsesPageNumbers(t *testing.T) {
	pages := []Page{{Number: 2, Text: "b"}, {Number: 5, Text: "e"}, {Number: 6, Text: "f"}}

	batches := Batch(pages, 2)

	require.Len(t, batches, 2)
	assert.Equal(t, "2-5", batches[0].PageRange)
	assert.Equal(t, "6-6", batches[1].PageRange)
}

func TestBatch_DefaultSize(t *testing.T) {
	batches := Batch(numberedPages(12), 0)

	require.Len(t, batches, 2)
	assert.Equal(t, "1-10", batches[0].PageRange)
	assert.Empty(t, Batch(nil, 10))
}
