package eventstream

import "context"

// Publisher publishes ingestion lifecycle events to an event stream backend.
type Publisher interface {
	PublishDocumentIndexed(ctx context.Context, event *DocumentIndexedEvent) error
	PublishIngestionCompleted(ctx context.Context, event *IngestionCompletedEvent) error
	Close() error
}
