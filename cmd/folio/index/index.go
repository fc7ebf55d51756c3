// Package indexcmder provides the index command for inspecting and resetting
// the vector index.
package indexcmder

import (
	"github.com/spf13/cobra"
)

const indexLongDesc string = `Inspect and manage the vector index.

The index holds the embedded chunks that ingestion writes and retrieval
queries. Its embedding dimension is fixed by the first write; switching
providers or embedding models requires a reset before the next ingest.

Use subcommands to check health or reset the index:
  folio index status    Show index health and provider reachability
  folio index reset     Delete all indexed entries

Examples:
  folio index status
  folio index reset
  folio index reset --force`

const indexShortDesc string = "Inspect and manage the vector index"

func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
	}

	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newResetCmd())

	return cmd
}
