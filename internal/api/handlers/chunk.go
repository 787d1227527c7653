package handlers

import (
	"net/http"

	"github.com/cloo-solutions/docinsight/internal/api"
	"github.com/cloo-solutions/docinsight/internal/chunking"
	"github.com/cloo-solutions/docinsight/internal/domain"
)

type TextChunker interface {
	ChunkText(text, pageRange, documentID string, cfg *chunking.Config) []domain.Chunk
}

type ChunkHandler struct {
	chunker TextChunker
}

func NewChunkHandler(chunker TextChunker) *ChunkHandler {
	return &ChunkHandler{chunker: chunker}
}

// ChunkRequest carries raw text. Omitted sizing fields fall back to the
// defaults; an explicit zero overlap disables overlap.
type ChunkRequest struct {
	Text         string `json:"text"`
	PageRange    string `json:"page_range"`
	DocumentID   string `json:"document_id"`
	MaxUnits     *int   `json:"max_units,omitempty"`
	OverlapUnits *int   `json:"overlap_units,omitempty"`
	CharsPerUnit *int   `json:"chars_per_unit,omitempty"`
}

type ChunkResponse struct {
	Chunks []domain.Chunk `json:"chunks"`
	Count  int            `json:"count"`
}

func (req ChunkRequest) config() *chunking.Config {
	if req.MaxUnits == nil && req.OverlapUnits == nil && req.CharsPerUnit == nil {
		return nil
	}
	cfg := chunking.DefaultConfig()
	if req.MaxUnits != nil {
		cfg.MaxUnitsPerChunk = *req.MaxUnits
	}
	if req.OverlapUnits != nil {
		cfg.OverlapUnits = *req.OverlapUnits
	}
	if req.CharsPerUnit != nil {
		cfg.CharsPerUnit = *req.CharsPerUnit
	}
	return &cfg
}

func (h *ChunkHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	var req ChunkRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleDecodeError(w, err)
		return
	}

	if req.DocumentID == "" {
		api.Error(w, http.StatusBadRequest, "document_id is required")
		return
	}
	if req.PageRange == "" {
		api.Error(w, http.StatusBadRequest, "page_range is required")
		return
	}
	for name, v := range map[string]*int{
		"max_units":      req.MaxUnits,
		"overlap_units":  req.OverlapUnits,
		"chars_per_unit": req.CharsPerUnit,
	} {
		if v != nil && *v < 0 {
			api.Error(w, http.StatusBadRequest, name+" cannot be negative")
			return
		}
	}

	chunks := h.chunker.ChunkText(req.Text, req.PageRange, req.DocumentID, req.config())
	if chunks == nil {
		chunks = []domain.Chunk{}
	}

	api.Success(w, http.StatusOK, ChunkResponse{Chunks: chunks, Count: len(chunks)})
}
