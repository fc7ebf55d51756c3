// Package foliocmder assembles the folio root command.
package foliocmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/foliodocs/folio/cmd/folio/ask"
	authcmder "github.com/foliodocs/folio/cmd/folio/auth"
	browsecmder "github.com/foliodocs/folio/cmd/folio/browse"
	chatcmder "github.com/foliodocs/folio/cmd/folio/chat"
	configcmder "github.com/foliodocs/folio/cmd/folio/config"
	indexcmder "github.com/foliodocs/folio/cmd/folio/index"
	ingestcmder "github.com/foliodocs/folio/cmd/folio/ingest"
	initcmder "github.com/foliodocs/folio/cmd/folio/init"
	searchcmder "github.com/foliodocs/folio/cmd/folio/search"
	servecmder "github.com/foliodocs/folio/cmd/folio/serve"
	versioncmder "github.com/foliodocs/folio/cmd/version"
)

const folioLongDesc string = `Folio answers questions over a private document corpus.

Point it at a directory of text files and it splits them into chunks,
generates a situating context for each, embeds them, and indexes the
result. Questions are answered in two stages: retrieval gathers the
most relevant chunks, synthesis writes a grounded answer that cites
its sources.

Get started:
  folio init           Create the .folio/ config directory
  folio ingest ./docs  Index a directory of .txt/.md files
  folio ask "..."      Ask a question over the index

Run services using:
  folio serve          Run the HTTP + MCP server`

const folioShortDesc string = "Folio - Q&A over your documents"

func NewFolioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folio",
		Short: folioShortDesc,
		Long:  folioLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .folio/ directory location")

	// Add subcommands
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
