package model

type Confidence string

const (
	ConfidenceNone Confidence = "none"
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// Chunk is a single passage returned by the search backend. It only lives
// for the duration of one retrieval call.
type Chunk struct {
	DocumentID    string
	Content       string
	MergedContent string
	StoragePath   string
	Score         float64
	Highlights    []string
}

// Text prefers the merged (OCR-enriched) content over the plain field.
func (c Chunk) Text() string {
	if c.MergedContent != "" {
		return c.MergedContent
	}
	return c.Content
}

type Citation struct {
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Answer is the synthesizer output. ErrorTag is set for the soft degraded
// outcomes (rate_limit, timeout) that are returned instead of raised.
type Answer struct {
	Text       string
	Citations  []Citation
	Confidence Confidence
	ErrorTag   string
}

// AnswerResult is the envelope handed back to the caller of the Q&A
// pipeline. It is always well formed, even when the pipeline failed.
type AnswerResult struct {
	Question    string     `json:"question"`
	Answer      *string    `json:"answer"`
	Citations   []Citation `json:"citations"`
	Confidence  Confidence `json:"confidence,omitempty"`
	ChunksFound int        `json:"chunks_found,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
}
