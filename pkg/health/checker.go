// Package health inspects the vector index and the provider and reports
// whether the system can answer questions, with recommendations for
// whatever it finds missing.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/llm"
	"github.com/foliodocs/folio/pkg/vector"
)

// probeText is embedded to test provider reachability.
const probeText = "health probe"

// Config is the configuration options for the checker.
type Config struct {
	// Store is the vector index to inspect.
	Store vector.Store

	// Provider is probed for reachability. Optional; nil reports an
	// unconfigured provider.
	Provider llm.Provider

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Checker runs health checks against the index and the provider.
type Checker struct {
	config *Config
	logger *zap.Logger
}

// NewChecker creates a new checker.
func NewChecker(c *Config) (*Checker, error) {
	if c == nil {
		return nil, errors.New("config is required")
	}

	if c.Store == nil {
		return nil, errors.New("vector store is required")
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	return &Checker{
		config: c,
		logger: c.Logger,
	}, nil
}

// Check inspects the index and probes the provider. Failures fold into
// the report rather than aborting it, so a report always renders.
func (c *Checker) Check(ctx context.Context) *Report {
	report := &Report{
		CheckedAt: time.Now().UTC(),
	}

	c.checkIndex(ctx, report)
	c.checkProvider(ctx, report)
	resolve(report)

	c.logger.Debug("health check complete",
		zap.String("status", string(report.Status)),
		zap.Int("chunks", report.Index.Chunks),
		zap.Bool("provider_reachable", report.Provider.Reachable),
	)

	return report
}

func (c *Checker) checkIndex(ctx context.Context, report *Report) {
	dim, err := c.config.Store.Dimension(ctx)
	if err != nil {
		report.Index.Error = err.Error()
		return
	}
	report.Index.Dimension = dim

	count, err := c.config.Store.Count(ctx)
	if err != nil {
		report.Index.Error = err.Error()
		return
	}
	report.Index.Chunks = count

	sources, err := c.config.Store.Sources(ctx)
	if err != nil {
		report.Index.Error = err.Error()
		return
	}

	report.Index.Documents = len(sources)
	for _, s := range sources {
		report.Index.Sources = append(report.Index.Sources, SourceCount{
			Document: s.DocumentID,
			Source:   s.Source,
			Chunks:   s.Chunks,
		})
	}
}

func (c *Checker) checkProvider(ctx context.Context, report *Report) {
	if c.config.Provider == nil {
		return
	}

	report.Provider.Configured = true
	report.Provider.Name = c.config.Provider.Name()
	report.Provider.Dimension = c.config.Provider.Dimension()

	if _, err := c.config.Provider.Embed(ctx, probeText); err != nil {
		report.Provider.Error = err.Error()
		return
	}
	report.Provider.Reachable = true
}

// resolve derives the overall status and the recommendations from the
// collected sections.
func resolve(report *Report) {
	indexDim := report.Index.Dimension
	providerDim := report.Provider.Dimension
	report.DimensionsCompatible = indexDim == 0 || providerDim == 0 || indexDim == providerDim

	switch {
	case report.Index.Error != "":
		report.Status = StatusError
		report.Recommendations = append(report.Recommendations,
			"index is unreachable: check the vector store configuration")
	case report.Index.Chunks == 0:
		report.Status = StatusEmpty
		report.Recommendations = append(report.Recommendations,
			"index is empty: run folio ingest to populate it")
	case !report.Provider.Configured || !report.Provider.Reachable || !report.DimensionsCompatible:
		report.Status = StatusPartial
	default:
		report.Status = StatusHealthy
	}

	if !report.Provider.Configured {
		report.Recommendations = append(report.Recommendations,
			"no provider configured: run folio init to set one up")
	} else if !report.Provider.Reachable {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("provider %s is unreachable: check its base URL and credentials", report.Provider.Name))
	}

	if !report.DimensionsCompatible {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("provider dimension %d differs from index dimension %d: run folio ingest --reset to reindex",
				providerDim, indexDim))
	}
}
