package qa

import (
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
)

// AskParams are the inputs of one question.
type AskParams struct {
	MeetingID string
	Question  string
	// TopK is how many chunks to retrieve; 0 uses the service default.
	TopK int
}

// AskResult is an answer and the chunks it was grounded on.
type AskResult struct {
	MeetingID string
	Question  string
	Answer    string
	Sources   []SourceReference
}

// SourceReference is one retrieved chunk.
type SourceReference struct {
	Chunk    entities.TranscriptChunk
	Distance float32
}

// Context renders the reference the way it was shown to the model.
func (r SourceReference) Context() string {
	return r.Chunk.ContextString()
}
