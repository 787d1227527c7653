// Package commands implements the docinsightd command tree.
package commands

import (
	"github.com/cloo-solutions/docinsight/internal/cli"
	"github.com/spf13/cobra"
)

// NewRootCmd builds docinsightd with all subcommands attached.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "docinsightd",
		Short: "Document insight service and tools",
		Long: `docinsightd chunks documents, indexes them for retrieval and answers
prompts over them, caching each structured answer per document.

Configuration is read from DOCINSIGHT_* environment variables and an optional
.env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(root)
	root.AddCommand(ServeCmd())
	root.AddCommand(ChunkCmd())
	root.AddCommand(CacheCmd())

	return root
}
