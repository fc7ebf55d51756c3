// Package ingest runs document batches through the indexing pipeline: chunk
// splitting, context generation, embedding, and index writes, fanned out over
// a bounded worker pool.
//
// A batch never stops on a single bad document; per-document failures are
// recorded in the Summary and published to the event stream.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/chunker"
	"github.com/foliodocs/folio/pkg/corpus"
	"github.com/foliodocs/folio/pkg/eventstream"
	"github.com/foliodocs/folio/pkg/eventstream/nop"
	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/vector"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// job is a unit of work for the worker pool to execute against.
type job struct {
	index int
	doc   corpus.Document
}

// Config is the configuration options for the ingestion pipeline.
type Config struct {
	// Provider generates embeddings for chunk text.
	Provider llm.Provider

	// Store is the vector index chunk entries are written to.
	Store vector.Store

	// Chunker splits documents and generates chunk contexts.
	Chunker *chunker.Chunker

	// Publisher receives ingestion lifecycle events (defaults to nop).
	Publisher eventstream.Publisher

	// NumWorkers is the number of concurrent document workers.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pipeline indexes document batches on a worker pool.
type Pipeline struct {
	config *Config
	logger *zap.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(c *Config) (*Pipeline, error) {
	if c == nil {
		return nil, errors.New("config is required")
	}

	if c.Provider == nil {
		return nil, errors.New("provider is required")
	}

	if c.Store == nil {
		return nil, errors.New("vector store is required")
	}

	if c.Chunker == nil {
		return nil, errors.New("chunker is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Pipeline{
		config: c,
		logger: c.Logger,
	}, nil
}

// Run indexes a batch of documents and reports the outcome. The batch aborts
// with ErrReindexRequired before any dispatch when the index dimension does
// not match the provider. Canceling ctx stops dispatch of new documents while
// in-flight documents finish; undispatched documents are marked skipped.
func (p *Pipeline) Run(ctx context.Context, docs []corpus.Document) (*Summary, error) {
	start := time.Now()

	if err := p.preflight(ctx); err != nil {
		return nil, err
	}

	batchID := "batch_" + uuid.NewString()
	p.logger.Info("ingestion started",
		zap.String("batch_id", batchID),
		zap.Int("documents", len(docs)),
	)

	results := make([]DocumentResult, len(docs))
	jobs := make(chan job, p.config.QueueSize)

	var wg sync.WaitGroup
	wg.Add(int(p.config.NumWorkers))
	for i := range p.config.NumWorkers {
		go p.worker(ctx, i, batchID, jobs, results, &wg)
	}

	for i := range docs {
		if ctx.Err() != nil {
			break
		}

		select {
		case <-ctx.Done():
		case jobs <- job{index: i, doc: docs[i]}:
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	// Documents the dispatch loop never sent still hold a zero status.
	for i := range results {
		if results[i].Status == "" {
			results[i] = DocumentResult{
				DocumentID: docs[i].ID,
				Source:     docs[i].Source,
				Status:     StatusSkipped,
			}
			p.publishDocument(context.WithoutCancel(ctx), batchID, &results[i])
		}
	}

	summary := newSummary(batchID, results, time.Since(start))
	p.publishCompleted(context.WithoutCancel(ctx), summary)

	p.logger.Info("ingestion completed",
		zap.String("batch_id", batchID),
		zap.Int("indexed", summary.Indexed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("chunks", summary.Chunks),
		zap.Duration("elapsed", summary.Elapsed),
	)

	return summary, nil
}

// preflight compares the index dimension against the provider before any
// document is dispatched. A non-zero mismatch means every write would fail.
func (p *Pipeline) preflight(ctx context.Context) error {
	storeDim, err := p.config.Store.Dimension(ctx)
	if err != nil {
		return fmt.Errorf("reading index dimension: %w", err)
	}

	providerDim := p.config.Provider.Dimension()
	if storeDim != 0 && providerDim != 0 && storeDim != providerDim {
		return fmt.Errorf("%w: index dimension %d, provider dimension %d",
			ErrReindexRequired, storeDim, providerDim)
	}

	return nil
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pipeline) worker(ctx context.Context, id uint, batchID string, jobs <-chan job, results []DocumentResult, wg *sync.WaitGroup) {
	defer wg.Done()
	p.logger.Debug("ingest worker started", zap.Uint("worker_id", id))

	for j := range jobs {
		// A document picked up after cancellation never starts; documents
		// already processing run to completion on a detached context.
		if ctx.Err() != nil {
			results[j.index] = DocumentResult{
				DocumentID: j.doc.ID,
				Source:     j.doc.Source,
				Status:     StatusSkipped,
			}
		} else {
			results[j.index] = p.processDocument(context.WithoutCancel(ctx), j.doc)
		}

		p.publishDocument(context.WithoutCancel(ctx), batchID, &results[j.index])
	}

	p.logger.Debug("ingest worker stopped", zap.Uint("worker_id", id))
}

// processDocument chunks, contextualizes, embeds, and writes one document.
// Chunks are embedded and written sequentially in ordinal order so entries
// land in the index in document order.
func (p *Pipeline) processDocument(ctx context.Context, doc corpus.Document) DocumentResult {
	res := DocumentResult{
		DocumentID: doc.ID,
		Source:     doc.Source,
	}

	chunks := p.config.Chunker.Split(doc)
	if len(chunks) == 0 {
		res.Status = StatusIndexed
		return res
	}

	contextual := p.config.Chunker.Contextualize(ctx, doc, chunks)

	for _, chunk := range contextual {
		embedding, err := p.config.Provider.Embed(ctx, chunk.EmbeddingText())
		if err != nil {
			p.logFailure(doc, StageEmbed, err)
			return res.failed(StageEmbed, err)
		}

		entry := vector.Entry{
			DocumentID: doc.ID,
			Ordinal:    chunk.Ordinal,
			Source:     doc.Source,
			Text:       chunk.Text,
			Context:    chunk.Context,
			Embedding:  embedding,
		}

		if err := p.config.Store.Write(ctx, entry); err != nil {
			p.logFailure(doc, StageWrite, err)
			return res.failed(StageWrite, err)
		}

		res.Chunks++
	}

	res.Status = StatusIndexed
	p.logger.Info("document indexed",
		zap.String("document_id", doc.ID),
		zap.String("source", doc.Source),
		zap.Int("chunks", res.Chunks),
	)

	return res
}

func (p *Pipeline) logFailure(doc corpus.Document, stage string, err error) {
	p.logger.Warn("document ingestion failed",
		zap.String("document_id", doc.ID),
		zap.String("source", doc.Source),
		zap.String("stage", stage),
		zap.String("kind", ErrorKind(err)),
		zap.Error(err),
	)
}

// publishDocument emits a document outcome event. Publish failures are logged
// and never fail the batch.
func (p *Pipeline) publishDocument(ctx context.Context, batchID string, res *DocumentResult) {
	event := &eventstream.DocumentIndexedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeDocumentIndexed,
		EventID:       eventstream.NewEventID(),
		EmittedAt:     time.Now().UTC(),
		BatchID:       batchID,
		DocumentID:    res.DocumentID,
		Source:        res.Source,
		Chunks:        res.Chunks,
		Status:        res.Status,
		ErrorStage:    res.Stage,
		ErrorKind:     res.Kind,
	}

	if err := p.config.Publisher.PublishDocumentIndexed(ctx, event); err != nil {
		p.logger.Warn("document event publish failed",
			zap.String("document_id", res.DocumentID),
			zap.Error(err),
		)
	}
}

func (p *Pipeline) publishCompleted(ctx context.Context, s *Summary) {
	event := &eventstream.IngestionCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeIngestionCompleted,
		EventID:       eventstream.NewEventID(),
		EmittedAt:     time.Now().UTC(),
		BatchID:       s.BatchID,
		Documents:     s.Documents,
		Indexed:       s.Indexed,
		Failed:        s.Failed,
		Skipped:       s.Skipped,
		Chunks:        s.Chunks,
		DurationMs:    s.Elapsed.Milliseconds(),
	}

	if err := p.config.Publisher.PublishIngestionCompleted(ctx, event); err != nil {
		p.logger.Warn("completion event publish failed",
			zap.String("batch_id", s.BatchID),
			zap.Error(err),
		)
	}
}
