//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/cloo-solutions/docinsight/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const invoiceText = `ACME Corporation invoice for the first quarter. The invoice lists consulting services delivered in January, February and March.
Line one covers architecture review at 400 EUR. Line two covers implementation support at 500 EUR. Line three covers training at 300 EUR.
The total is 1200 EUR and payment is due within thirty days of receipt. Late payments accrue interest at two percent per month.`

type insightPayload struct {
	DocumentID string `json:"document_id"`
	Prompt     string `json:"prompt"`
	Insights   struct {
		Summary    string   `json:"summary"`
		KeyPoints  []string `json:"keyPoints"`
		Answer     string   `json:"answer"`
		Confidence float64  `json:"confidence"`
	} `json:"insights"`
	ModelID    string `json:"model_id"`
	ChunkCount int    `json:"chunk_count"`
	Cached     bool   `json:"cached"`
}

func TestE2E_Health(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Get("/health")
	require.NoError(t, err)

	var health struct {
		Status     string            `json:"status"`
		Components map[string]string `json:"components"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &health))
	assert.Equal(t, "ok", health.Status)
	assert.Len(t, health.Components, 3)
}

func TestE2E_DocumentInsightLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	docID, jobID := env.UploadAndIndex("invoice.txt", []byte(invoiceText))

	t.Run("job completes", func(t *testing.T) {
		resp, err := env.Get("/jobs/" + jobID)
		require.NoError(t, err)

		var job struct {
			DocumentID  string  `json:"document_id"`
			Status      string  `json:"status"`
			Retries     int     `json:"retries"`
			ProcessedAt *string `json:"processed_at"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &job))
		assert.Equal(t, docID, job.DocumentID)
		assert.Equal(t, "completed", job.Status)
		assert.Zero(t, job.Retries)
		assert.NotNil(t, job.ProcessedAt)
	})

	t.Run("manifest is stored", func(t *testing.T) {
		meta, err := env.S3Client.HeadObject(env.Ctx, storage.ManifestKey(docID))
		require.NoError(t, err)
		assert.Positive(t, meta.ContentLength)
	})

	prompt := "What is the invoice total?"

	t.Run("first extraction calls the model", func(t *testing.T) {
		resp, err := env.Post("/documents/"+docID+"/insights", map[string]string{"prompt": prompt})
		require.NoError(t, err)

		var res insightPayload
		require.NoError(t, json.Unmarshal(resp.Data, &res))
		assert.False(t, res.Cached)
		assert.Equal(t, "The total is 1200 EUR", res.Insights.Answer)
		assert.Equal(t, "fake-chat", res.ModelID)
		assert.Positive(t, res.ChunkCount)
		assert.LessOrEqual(t, res.ChunkCount, 3)
		assert.Equal(t, int64(1), env.Model.CompletionCalls())
	})

	t.Run("second extraction is served from cache", func(t *testing.T) {
		resp, err := env.Post("/documents/"+docID+"/insights", map[string]string{"prompt": prompt})
		require.NoError(t, err)

		var res insightPayload
		require.NoError(t, json.Unmarshal(resp.Data, &res))
		assert.True(t, res.Cached)
		assert.Equal(t, "Quarterly invoice summary", res.Insights.Summary)
		assert.Equal(t, int64(1), env.Model.CompletionCalls())
	})

	t.Run("list returns cached results", func(t *testing.T) {
		resp, err := env.Get("/documents/" + docID + "/insights")
		require.NoError(t, err)

		var list struct {
			Count    int              `json:"count"`
			HasMore  bool             `json:"has_more"`
			Insights []insightPayload `json:"insights"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		assert.Equal(t, 1, list.Count)
		assert.False(t, list.HasMore)
		assert.Equal(t, prompt, list.Insights[0].Prompt)
	})

	t.Run("invalidate drops cached results", func(t *testing.T) {
		resp, err := env.Delete("/documents/" + docID + "/insights")
		require.NoError(t, err)

		var out struct {
			Deleted int `json:"deleted"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		assert.Equal(t, 1, out.Deleted)

		resp, err = env.Get("/documents/" + docID + "/insights")
		require.NoError(t, err)
		var list struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &list))
		assert.Zero(t, list.Count)
	})
}

func TestE2E_ReindexInvalidatesCache(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	docID, _ := env.UploadAndIndex("notes.md", []byte(invoiceText))

	_, err := env.Post("/documents/"+docID+"/insights", map[string]string{"prompt": "Who issued it?"})
	require.NoError(t, err)
	require.Len(t, env.Cache.GetAllInsights(env.Ctx, docID), 1)

	key := storage.DocumentKey(docID, "notes.md")
	_, err = env.Post("/documents/"+docID+"/process", map[string]string{"storage_key": key})
	require.NoError(t, err)
	require.NoError(t, env.Worker.ProcessJobs(env.Ctx))

	assert.Empty(t, env.Cache.GetAllInsights(env.Ctx, docID))
}

func TestE2E_UnsupportedDocumentFailsJob(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	_, jobID := env.UploadAndIndex("slides.pptx", []byte("not a text document"))

	resp, err := env.Get("/jobs/" + jobID)
	require.NoError(t, err)

	var job struct {
		Status  string `json:"status"`
		Retries int    `json:"retries"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &job))
	assert.Equal(t, "failed", job.Status)
	assert.Equal(t, 1, job.Retries)
	assert.Contains(t, job.Error, "unsupported document type")
	assert.Zero(t, env.Model.EmbeddingCalls())
}

func TestE2E_InsightErrors(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	t.Run("document without chunks", func(t *testing.T) {
		resp, err := env.Post("/documents/never-indexed/insights", map[string]string{"prompt": "anything"})
		require.Error(t, err)
		assert.Equal(t, 404, resp.Status)
	})

	t.Run("missing prompt", func(t *testing.T) {
		resp, err := env.Post("/documents/doc-1/insights", map[string]string{})
		require.Error(t, err)
		assert.Equal(t, 400, resp.Status)
	})

	t.Run("unknown job", func(t *testing.T) {
		resp, err := env.Get("/jobs/00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		assert.Equal(t, 404, resp.Status)
	})
}

func TestE2E_ChunkEndpoint(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/chunk", map[string]any{
		"text":           invoiceText,
		"page_range":     "1-1",
		"document_id":    "inline",
		"max_units":      40,
		"overlap_units":  8,
		"chars_per_unit": 4,
	})
	require.NoError(t, err)

	var out struct {
		Count  int `json:"count"`
		Chunks []struct {
			Text     string `json:"text"`
			Metadata struct {
				DocumentID string `json:"docId"`
				PageRange  string `json:"pageRange"`
				ChunkIndex int    `json:"chunkIndex"`
			} `json:"metadata"`
		} `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	require.Greater(t, out.Count, 1)
	for i, c := range out.Chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, "inline", c.Metadata.DocumentID)
		assert.Equal(t, "1-1", c.Metadata.PageRange)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}
