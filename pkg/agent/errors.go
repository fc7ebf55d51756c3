package agent

import "errors"

// Sentinels for the two stages a question can fail in. Both wrap the
// underlying provider or store error so callers can still branch on the
// llm sentinels with errors.Is.
var (
	// ErrRetrievalFailed indicates the question could not be embedded or
	// the index could not be queried.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrSynthesisFailed indicates the answer could not be generated from
	// the retrieved evidence.
	ErrSynthesisFailed = errors.New("synthesis failed")
)
