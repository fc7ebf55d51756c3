// Package vectorutils is the vector utility package
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/foliodocs/folio/pkg/vector"
	"github.com/foliodocs/folio/pkg/vector/chroma"
	"github.com/foliodocs/folio/pkg/vector/pgvector"
	"github.com/foliodocs/folio/pkg/vector/qdrant"
	"github.com/foliodocs/folio/pkg/vector/sqlitevec"
)

const (
	// SQLiteVec is the embedded SQLite backend.
	SQLiteVec = "sqlitevec"

	// PGVector is the PostgreSQL backend.
	PGVector = "pgvector"

	// Qdrant is the Qdrant gRPC backend.
	Qdrant = "qdrant"

	// Chroma is the Chroma REST backend.
	Chroma = "chroma"
)

// SupportedProviders returns the vector store providers NewStore can build.
func SupportedProviders() []string {
	return []string{SQLiteVec, PGVector, Qdrant, Chroma}
}

// NewStoreOpts holds the configuration for NewStore.
type NewStoreOpts struct {
	Provider    string
	SQLitePath  string
	PostgresURL string
	QdrantAddr  string
	ChromaURL   string
	Collection  string
	Logger      *zap.Logger
}

// NewStore builds a vector.Store for the configured provider.
func NewStore(o *NewStoreOpts) (vector.Store, error) {
	switch o.Provider {
	case SQLiteVec:
		return sqlitevec.NewSQLiteVecStore(sqlitevec.Config{
			DBPath: o.SQLitePath,
		}, o.Logger)
	case PGVector:
		return pgvector.NewPGVectorStore(pgvector.Config{
			URL: o.PostgresURL,
		}, o.Logger)
	case Qdrant:
		return qdrant.NewQdrantStore(qdrant.Config{
			Addr:       o.QdrantAddr,
			Collection: o.Collection,
		}, o.Logger)
	case Chroma:
		return chroma.NewChromaStore(chroma.Config{
			URL:        o.ChromaURL,
			Collection: o.Collection,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.Provider)
	}
}
