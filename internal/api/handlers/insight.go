package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/docinsight/internal/api"
	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/pagination"
	"github.com/cloo-solutions/docinsight/internal/service"
	"github.com/go-chi/chi/v5"
)

type InsightService interface {
	Extract(ctx context.Context, documentID, prompt string) (*service.InsightResult, error)
	List(ctx context.Context, documentID string) ([]*service.InsightResult, error)
	Invalidate(ctx context.Context, documentID string) (int, error)
}

type InsightHandler struct {
	svc InsightService
}

func NewInsightHandler(svc InsightService) *InsightHandler {
	return &InsightHandler{svc: svc}
}

type ExtractRequest struct {
	Prompt string `json:"prompt"`
}

type InsightResponse struct {
	DocumentID  string          `json:"document_id"`
	Prompt      string          `json:"prompt"`
	Insights    domain.Insights `json:"insights"`
	ModelID     string          `json:"model_id"`
	ChunkCount  int             `json:"chunk_count"`
	ExtractedAt string          `json:"extracted_at"`
	Cached      bool            `json:"cached"`
}

type InsightListResponse struct {
	DocumentID string             `json:"document_id"`
	Insights   []*InsightResponse `json:"insights"`
	Count      int                `json:"count"`
	Cursor     string             `json:"cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

type InvalidateResponse struct {
	Deleted int `json:"deleted"`
}

func insightToResponse(res *service.InsightResult) *InsightResponse {
	return &InsightResponse{
		DocumentID:  res.DocumentID,
		Prompt:      res.Prompt,
		Insights:    res.Insights,
		ModelID:     res.ModelID,
		ChunkCount:  res.ChunkCount,
		ExtractedAt: res.ExtractedAt.UTC().Format(time.RFC3339),
		Cached:      res.Cached,
	}
}

// Extract answers a prompt against a document, serving from cache when a
// live entry exists.
func (h *InsightHandler) Extract(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	var req ExtractRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		api.Error(w, http.StatusBadRequest, "prompt is required")
		return
	}

	res, err := h.svc.Extract(r.Context(), documentID, req.Prompt)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, insightToResponse(res))
}

// List pages through the live cached results of a document, newest first.
// Query parameters: limit (default 50, max 200) and cursor from the previous
// page.
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	limit, err := pagination.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.svc.List(r.Context(), documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	page := pagination.Paginate(results, limit, cursor, func(res *service.InsightResult) int64 {
		return res.ExtractedAt.Unix()
	})

	out := make([]*InsightResponse, len(page.Items))
	for i, res := range page.Items {
		out[i] = insightToResponse(res)
	}

	api.Success(w, http.StatusOK, InsightListResponse{
		DocumentID: documentID,
		Insights:   out,
		Count:      len(out),
		Cursor:     page.Cursor,
		HasMore:    page.HasMore,
	})
}

func (h *InsightHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	deleted, err := h.svc.Invalidate(r.Context(), documentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, InvalidateResponse{Deleted: deleted})
}
