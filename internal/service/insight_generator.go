package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/docinsight/internal/domain"
)

const defaultConfidence = 0.5

// Completer produces a model reply for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ModelID() string
}

// InsightGenerator asks the model for structured insights over retrieved
// chunks and parses its reply.
type InsightGenerator struct {
	completer Completer
}

func NewInsightGenerator(completer Completer) *InsightGenerator {
	return &InsightGenerator{completer: completer}
}

func (g *InsightGenerator) ModelID() string {
	return g.completer.ModelID()
}

// Generate builds the prompt, calls the model and parses the reply.
func (g *InsightGenerator) Generate(ctx context.Context, query string, chunks []string) (domain.Insights, error) {
	prompt := FormatPrompt(query, chunks)
	log.Printf("insights: generating from %d chunks, prompt %d chars", len(chunks), len(prompt))

	reply, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return domain.Insights{}, domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, domain.ErrInsightGeneration.Message, err)
	}
	return ParseInsights(reply)
}

// FormatPrompt renders the extraction prompt with numbered context chunks.
func FormatPrompt(query string, chunks []string) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("Context Chunk %d:\n%s", i+1, c)
	}
	joined := strings.Join(parts, "\n\n---\n\n")

	return fmt.Sprintf(`You are an AI assistant that extracts structured insights from documents.

Given the following context from a document and a user query, extract relevant information and provide a structured JSON response.

USER QUERY:
%s

DOCUMENT CONTEXT:
%s

INSTRUCTIONS:
1. Analyze the context carefully to answer the user's query
2. Extract key information, entities, and insights
3. Provide a clear summary
4. Return your response as valid JSON with the following structure:
{
    "summary": "A concise summary of the findings",
    "keyPoints": ["List", "of", "key", "points"],
    "entities": [
        {
            "name": "Entity name",
            "type": "Entity type (person, organization, location, date, etc.)",
            "context": "Brief context about this entity"
        }
    ],
    "answer": "Direct answer to the user's query",
    "confidence": 0.95,
    "metadata": {
        "chunksAnalyzed": %d,
        "relevance": "high/medium/low"
    }
}

IMPORTANT:
- Return ONLY valid JSON, no additional text
- If information is not found in the context, indicate this in the answer
- Be precise and factual, do not make up information
- Extract entities only if they are clearly mentioned in the context

JSON Response:`, query, joined, len(chunks))
}

// ParseInsights reads the outermost JSON object in a model reply. Missing or
// mistyped fields get defaults. A reply whose object is not valid JSON
// yields an error-shaped result rather than an error; a reply with no
// object at all is an error.
func ParseInsights(reply string) (domain.Insights, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end < start {
		return domain.Insights{}, domain.NewDomainError(domain.ErrCodeInternalError, "no JSON found in model response")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(reply[start:end+1]), &fields); err != nil {
		log.Printf("insights: invalid JSON in model response: %v", err)
		return unparsableInsights(err), nil
	}

	out := domain.Insights{
		KeyPoints:  []string{},
		Entities:   []domain.Entity{},
		Confidence: defaultConfidence,
		Metadata:   map[string]any{},
	}
	decodeField(fields, "summary", &out.Summary)
	decodeField(fields, "answer", &out.Answer)
	decodeField(fields, "keyPoints", &out.KeyPoints)
	decodeField(fields, "entities", &out.Entities)
	decodeField(fields, "confidence", &out.Confidence)
	decodeField(fields, "metadata", &out.Metadata)

	if out.KeyPoints == nil {
		out.KeyPoints = []string{}
	}
	if out.Entities == nil {
		out.Entities = []domain.Entity{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return out, nil
}

// decodeField leaves dst untouched when the key is absent or does not decode
// into dst's type.
func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		log.Printf("insights: model response missing %q", key)
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Printf("insights: model response field %q has unexpected type", key)
		return
	}
	*dst = v
}

func unparsableInsights(err error) domain.Insights {
	return domain.Insights{
		Summary:    "Error parsing model response",
		KeyPoints:  []string{},
		Entities:   []domain.Entity{},
		Answer:     "Unable to parse insights from model response",
		Confidence: 0,
		Metadata: map[string]any{
			"error":     err.Error(),
			"relevance": "unknown",
		},
	}
}
