package health

import "time"

// Status classifies the overall state of the system.
type Status string

const (
	// StatusHealthy means the index has data, the provider answered the
	// probe, and the dimensions line up.
	StatusHealthy Status = "healthy"

	// StatusPartial means the index has data but the provider is
	// missing, unreachable, or embeds at a different dimension.
	StatusPartial Status = "partial"

	// StatusEmpty means the index holds no entries.
	StatusEmpty Status = "empty"

	// StatusError means the index could not be inspected.
	StatusError Status = "error"
)

// Report is the outcome of one health check.
type Report struct {
	Status    Status    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`

	Index    IndexReport    `json:"index"`
	Provider ProviderReport `json:"provider"`

	// DimensionsCompatible is false only when both the index and the
	// provider report a dimension and they differ.
	DimensionsCompatible bool `json:"dimensions_compatible"`

	// Recommendations are operator actions derived from the findings.
	Recommendations []string `json:"recommendations,omitempty"`
}

// IndexReport describes the vector index.
type IndexReport struct {
	Dimension int           `json:"dimension"`
	Chunks    int           `json:"chunks"`
	Documents int           `json:"documents"`
	Sources   []SourceCount `json:"sources,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// SourceCount is the chunk count for one indexed document.
type SourceCount struct {
	Document string `json:"document"`
	Source   string `json:"source"`
	Chunks   int    `json:"chunks"`
}

// ProviderReport describes the configured provider.
type ProviderReport struct {
	Name       string `json:"name,omitempty"`
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	Dimension  int    `json:"dimension,omitempty"`
	Error      string `json:"error,omitempty"`
}
