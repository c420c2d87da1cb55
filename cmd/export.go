package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelver-tools/shelver/internal/inventory"
	"github.com/shelver-tools/shelver/internal/scanner"
	"github.com/shelver-tools/shelver/internal/ui"
)

func newExportCmd() *cobra.Command {
	var (
		output    string
		rulesPath string
		cachePath string
		maxDepth  int
	)

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Export the normalized library inventory to Parquet or JSONL",
		Long: `Scans a library and writes one record per e-book (path, canonical
name, parsed metadata, size, content digest) to a columnar Parquet file
or a JSONL stream, chosen by the output extension.`,
		Example: `  shelver export ~/Books -o library.parquet
  shelver export ~/Books -o library.jsonl --hash-cache ~/.shelver.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}

			printer := ui.NewPrinter(false)

			norm, err := buildNormalizer(rulesPath)
			if err != nil {
				return err
			}
			sc, err := scanner.New(target, maxDepth)
			if err != nil {
				return err
			}

			printer.ScanStart(target)
			files, err := sc.Scan()
			if err != nil {
				return err
			}
			printer.ScanComplete(len(files))

			norm.NormalizeBatch(files)

			digester, closeCache, err := buildDigester(cachePath)
			if err != nil {
				return err
			}
			defer closeCache()

			records := inventory.Build(files, digester)
			if err := inventory.Write(output, records); err != nil {
				return err
			}
			printer.Success(fmt.Sprintf("wrote %d records to %s", len(records), output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "library.parquet", "output file (.parquet or .jsonl)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "YAML rule table overriding the built-in series and noise patterns")
	cmd.Flags().StringVar(&cachePath, "hash-cache", "", "bbolt file caching content digests across runs")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum directory depth to traverse (0 = unlimited)")

	return cmd
}
