package ingest

import "errors"

// ErrReindexRequired indicates the index was built with a different embedding
// dimension than the active provider produces. The index must be reset and the
// corpus re-ingested before new writes can proceed.
var ErrReindexRequired = errors.New("index requires reindexing")
