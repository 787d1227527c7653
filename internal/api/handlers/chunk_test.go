package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloo-solutions/docinsight/internal/chunking"
	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTextChunker struct {
	mock.Mock
}

func (m *MockTextChunker) ChunkText(text, pageRange, documentID string, cfg *chunking.Config) []domain.Chunk {
	args := m.Called(text, pageRange, documentID, cfg)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Chunk)
}

func TestChunkHandler_DefaultConfig(t *testing.T) {
	chunker := new(MockTextChunker)
	handler := NewChunkHandler(chunker)

	chunks := []domain.Chunk{{
		Text:     "Hello world.",
		Metadata: domain.ChunkMetadata{DocumentID: "doc-1", PageRange: "1-2", ChunkIndex: 0},
	}}
	chunker.On("ChunkText", "Hello world.", "1-2", "doc-1", (*chunking.Config)(nil)).Return(chunks)

	body := `{"text":"Hello world.","page_range":"1-2","document_id":"doc-1"}`
	w := httptest.NewRecorder()
	handler.Chunk(w, requestWithParam(http.MethodPost, "/chunk", []byte(body), "", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(1), data["count"])
	first := data["chunks"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Hello world.", first["text"])
	meta := first["metadata"].(map[string]interface{})
	assert.Equal(t, "doc-1", meta["docId"])
	assert.Equal(t, "1-2", meta["pageRange"])
	assert.Equal(t, float64(0), meta["chunkIndex"])
}

func TestChunkHandler_ExplicitConfigKeepsZeroOverlap(t *testing.T) {
	chunker := new(MockTextChunker)
	handler := NewChunkHandler(chunker)

	chunker.On("ChunkText", "abc", "1", "doc-1", mock.MatchedBy(func(cfg *chunking.Config) bool {
		return cfg != nil &&
			cfg.MaxUnitsPerChunk == 100 &&
			cfg.OverlapUnits == 0 &&
			cfg.CharsPerUnit == chunking.DefaultCharsPerUnit
	})).Return([]domain.Chunk{})

	body := `{"text":"abc","page_range":"1","document_id":"doc-1","max_units":100,"overlap_units":0}`
	w := httptest.NewRecorder()
	handler.Chunk(w, requestWithParam(http.MethodPost, "/chunk", []byte(body), "", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	chunker.AssertExpectations(t)
}

func TestChunkHandler_EmptyTextReturnsEmptyList(t *testing.T) {
	chunker := new(MockTextChunker)
	handler := NewChunkHandler(chunker)

	chunker.On("ChunkText", "", "1", "doc-1", (*chunking.Config)(nil)).Return(nil)

	body := `{"text":"","page_range":"1","document_id":"doc-1"}`
	w := httptest.NewRecorder()
	handler.Chunk(w, requestWithParam(http.MethodPost, "/chunk", []byte(body), "", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `"chunks":[]`))
}

func TestChunkHandler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid json", `{"text":`, "invalid request body"},
		{"unknown field", `{"text":"a","page_range":"1","document_id":"d","size":3}`, "invalid request body"},
		{"missing document id", `{"text":"a","page_range":"1"}`, "document_id is required"},
		{"missing page range", `{"text":"a","document_id":"d"}`, "page_range is required"},
		{"negative overlap", `{"text":"a","page_range":"1","document_id":"d","overlap_units":-1}`, "overlap_units cannot be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker := new(MockTextChunker)
			w := httptest.NewRecorder()

			NewChunkHandler(chunker).Chunk(w, requestWithParam(http.MethodPost, "/chunk", []byte(tt.body), "", ""))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w))
			chunker.AssertNotCalled(t, "ChunkText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChunkHandler_RealChunker(t *testing.T) {
	handler := NewChunkHandler(chunkerFunc(func(text, pageRange, documentID string, cfg *chunking.Config) []domain.Chunk {
		require.NotNil(t, cfg)
		return chunking.New(*cfg).Chunk(text, pageRange, documentID)
	}))

	body := `{"text":"A. B. C.","page_range":"1","document_id":"doc","max_units":1,"overlap_units":0,"chars_per_unit":4}`
	w := httptest.NewRecorder()
	handler.Chunk(w, requestWithParam(http.MethodPost, "/chunk", []byte(body), "", ""))

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(3), data["count"])
}

type chunkerFunc func(text, pageRange, documentID string, cfg *chunking.Config) []domain.Chunk

func (f chunkerFunc) ChunkText(text, pageRange, documentID string, cfg *chunking.Config) []domain.Chunk {
	return f(text, pageRange, documentID, cfg)
}
