package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/vector"
)

// Document outcome statuses within a batch.
const (
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Pipeline stages a document can fail in. Chunk splitting is pure and context
// generation degrades to an empty context, so neither fails a document.
const (
	StageEmbed = "embed"
	StageWrite = "write"
)

// DocumentResult is the outcome of one document within a batch.
type DocumentResult struct {
	DocumentID string
	Source     string
	Status     string

	// Chunks is the number of chunk entries written to the index. For a
	// failed document this counts the chunks written before the failure.
	Chunks int

	// Stage and Kind classify the failure for failed documents.
	Stage string
	Kind  string
	Err   error
}

func (r DocumentResult) failed(stage string, err error) DocumentResult {
	r.Status = StatusFailed
	r.Stage = stage
	r.Kind = ErrorKind(err)
	r.Err = err
	return r
}

// Summary reports the outcome of one ingestion batch.
type Summary struct {
	BatchID string

	// Results holds one entry per input document, in input order.
	Results []DocumentResult

	Documents int
	Indexed   int
	Failed    int
	Skipped   int
	Chunks    int
	Elapsed   time.Duration
}

func newSummary(batchID string, results []DocumentResult, elapsed time.Duration) *Summary {
	s := &Summary{
		BatchID:   batchID,
		Results:   results,
		Documents: len(results),
		Elapsed:   elapsed,
	}

	for i := range results {
		s.Chunks += results[i].Chunks
		switch results[i].Status {
		case StatusIndexed:
			s.Indexed++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}

	return s
}

// ErrorKind classifies an ingestion error into a stable label carried on the
// Summary and the event stream.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, llm.ErrTimeout):
		return "timeout"
	case errors.Is(err, llm.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, vector.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
