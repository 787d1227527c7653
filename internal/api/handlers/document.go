package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/docinsight/internal/api"
	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	Enqueue(ctx context.Context, documentID, storageKey string) (*domain.IndexingJob, error)
	GetJob(ctx context.Context, jobID string) (*domain.IndexingJob, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type InitUploadResponse struct {
	DocumentID string `json:"document_id"`
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

type ProcessRequest struct {
	StorageKey string `json:"storage_key"`
}

type ProcessResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type JobResponse struct {
	ID          string  `json:"id"`
	DocumentID  string  `json:"document_id"`
	StorageKey  string  `json:"storage_key"`
	Status      string  `json:"status"`
	Retries     int32   `json:"retries"`
	Error       string  `json:"error,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func jobToResponse(j *domain.IndexingJob) *JobResponse {
	resp := &JobResponse{
		ID:         j.ID,
		DocumentID: j.DocumentID,
		StorageKey: j.StorageKey,
		Status:     string(j.Status),
		Retries:    j.Retries,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.ProcessedAt != nil {
		processed := j.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &processed
	}
	return resp
}

func (h *DocumentHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	var req InitUploadRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleDecodeError(w, err)
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ContentType == "" {
		api.Error(w, http.StatusBadRequest, "content_type is required")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, InitUploadResponse{
		DocumentID: result.DocumentID,
		StorageKey: result.StorageKey,
		UploadURL:  result.UploadURL,
	})
}

// Process queues indexing of an uploaded document.
func (h *DocumentHandler) Process(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "document id is required")
		return
	}

	var req ProcessRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleDecodeError(w, err)
		return
	}
	if req.StorageKey == "" {
		api.Error(w, http.StatusBadRequest, "storage_key is required")
		return
	}

	job, err := h.svc.Enqueue(r.Context(), documentID, req.StorageKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, ProcessResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

func (h *DocumentHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		api.Error(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.svc.GetJob(r.Context(), jobID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}
