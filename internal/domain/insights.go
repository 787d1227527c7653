package domain

// Entity is a named thing the model found in the document context.
type Entity struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Context string `json:"context"`
}

// Insights is the structured result of an extraction run.
type Insights struct {
	Summary    string         `json:"summary"`
	KeyPoints  []string       `json:"keyPoints"`
	Entities   []Entity       `json:"entities"`
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata"`
}
