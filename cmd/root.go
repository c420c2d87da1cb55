package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelver",
		Short: "Batch rename and organize e-book libraries",
		Long: `Shelver normalizes messy e-book filenames into a canonical
"Authors - Title [Series] (Year, Edition).ext" form, detects duplicate
copies, and flags broken or partial downloads for cleanup.

It works on local directories and on Dropbox / Google Drive folders.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	// Add subcommands
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newRecoverCmd())

	return cmd
}
