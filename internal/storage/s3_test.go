package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "documents/doc-1/report.pdf", DocumentKey("doc-1", "report.pdf"))
	assert.Equal(t, "chunks/doc-1.json", ManifestKey("doc-1"))
}
