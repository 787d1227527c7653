//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_RealAPI(t *testing.T) {
	apiKey := os.Getenv("DOCINSIGHT_OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("DOCINSIGHT_OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()

	embedding, err := client.GenerateEmbedding(ctx, "Invoice 2024-17 from ACME, total 120 EUR.")
	require.NoError(t, err)
	assert.Len(t, embedding, DefaultEmbeddingDimensions)

	out, err := client.Complete(ctx, `Reply with the JSON object {"ok": true} and nothing else.`)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")
}
