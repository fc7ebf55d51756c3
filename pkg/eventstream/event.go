package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIndexed is emitted after a single document finishes
	// its trip through the ingestion pipeline, whatever the outcome.
	EventTypeDocumentIndexed = "folio.document.indexed"

	// EventTypeIngestionCompleted is emitted once per batch after every
	// document has been accounted for.
	EventTypeIngestionCompleted = "folio.ingestion.completed"
)

// DocumentIndexedEvent is a transport-neutral event payload for one document
// outcome within an ingestion batch.
type DocumentIndexedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	BatchID       string    `json:"batch_id"`
	DocumentID    string    `json:"document_id"`
	Source        string    `json:"source"`
	Chunks        int       `json:"chunks"`
	Status        string    `json:"status"`
	ErrorStage    string    `json:"error_stage,omitempty"`
	ErrorKind     string    `json:"error_kind,omitempty"`
}

// IngestionCompletedEvent is a transport-neutral event payload summarizing a
// finished ingestion batch.
type IngestionCompletedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	BatchID       string    `json:"batch_id"`
	Documents     int       `json:"documents"`
	Indexed       int       `json:"indexed"`
	Failed        int       `json:"failed"`
	Skipped       int       `json:"skipped"`
	Chunks        int       `json:"chunks"`
	DurationMs    int64     `json:"duration_ms"`
}

// NewEventID returns a fresh event identifier.
func NewEventID() string {
	return "evt_" + uuid.NewString()
}
