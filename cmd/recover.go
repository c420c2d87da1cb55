package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelver-tools/shelver/internal/recovery"
	"github.com/shelver-tools/shelver/internal/ui"
)

func newRecoverCmd() *cobra.Command {
	var cleanupFolders bool

	cmd := &cobra.Command{
		Use:   "recover [path]",
		Short: "Extract e-books stranded inside partial download folders",
		Long: `Looks for ".download" and ".crdownload" folders left behind by
interrupted browser downloads, moves any intact PDF out next to the
folder, and deletes obviously broken fragments. With --cleanup,
emptied folders are removed as well.`,
		Example: `  shelver recover ~/Downloads --cleanup`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			printer := ui.NewPrinter(false)
			res, err := recovery.New(target, cleanupFolders).Run()
			if err != nil {
				return err
			}

			for _, path := range res.ExtractedFiles {
				printer.Success("recovered " + path)
			}
			for _, path := range res.DeletedFiles {
				printer.Info("deleted broken fragment " + path)
			}
			for _, folder := range res.CleanedFolders {
				printer.Info("removed empty folder " + folder)
			}
			for _, msg := range res.Errors {
				printer.Warning(msg)
			}

			printer.Success(fmt.Sprintf("recovered %d files (%d fragments deleted, %d folders cleaned)",
				len(res.ExtractedFiles), len(res.DeletedFiles), len(res.CleanedFolders)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&cleanupFolders, "cleanup", false, "remove download folders once emptied")

	return cmd
}
