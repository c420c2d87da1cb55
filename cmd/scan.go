package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelver-tools/shelver/internal/cloud"
	"github.com/shelver-tools/shelver/internal/duplicates"
	"github.com/shelver-tools/shelver/internal/executor"
	"github.com/shelver-tools/shelver/internal/hashcache"
	"github.com/shelver-tools/shelver/internal/models"
	"github.com/shelver-tools/shelver/internal/normalizer"
	"github.com/shelver-tools/shelver/internal/report"
	"github.com/shelver-tools/shelver/internal/rules"
	"github.com/shelver-tools/shelver/internal/scanner"
	"github.com/shelver-tools/shelver/internal/ui"
)

type scanOptions struct {
	apply        bool
	jsonOut      bool
	yamlOut      bool
	noDelete     bool
	deleteSmall  bool
	noRecursive  bool
	maxDepth     int
	extensions   []string
	todoFile     string
	modeName     string
	rulesPath    string
	cachePath    string
	providerName string
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a library, normalize filenames, and find duplicates",
		Long: `Scans the given directory (default: current directory), proposes a
canonical name for every e-book, clusters duplicate copies, and flags
broken or partial downloads in todo.md.

By default nothing is changed; pass --apply to execute the plan.`,
		Example: `  # Preview what would change
  shelver scan ~/Books

  # Execute renames and duplicate deletion
  shelver scan ~/Books --apply

  # Machine-readable plan
  shelver scan ~/Books --json

  # Scan a Dropbox folder by API (needs DROPBOX_ACCESS_TOKEN)
  shelver scan /Books --provider dropbox`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "."
			if len(args) == 1 {
				target = args[0]
			}
			return runScan(cmd.Context(), target, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.apply, "apply", false, "execute renames and deletions instead of previewing")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the operation plan as JSON")
	cmd.Flags().BoolVar(&opts.yamlOut, "yaml", false, "print the operation plan as YAML")
	cmd.Flags().BoolVar(&opts.noDelete, "no-delete", false, "report duplicates without deleting them")
	cmd.Flags().BoolVar(&opts.deleteSmall, "delete-small", false, "delete undersized and corrupted files instead of only listing them")
	cmd.Flags().BoolVar(&opts.noRecursive, "no-recursive", false, "only scan the top-level directory")
	cmd.Flags().IntVar(&opts.maxDepth, "max-depth", 0, "maximum directory depth to traverse (0 = unlimited)")
	cmd.Flags().StringSliceVar(&opts.extensions, "extensions", nil, "comma-separated extensions to process (default: pdf,epub,txt)")
	cmd.Flags().StringVar(&opts.todoFile, "todo-file", "", "path to write todo.md (default: <path>/todo.md)")
	cmd.Flags().StringVar(&opts.modeName, "mode", "", "duplicate detection mode: content, metadata, provider, or hybrid")
	cmd.Flags().StringVar(&opts.rulesPath, "rules", "", "YAML rule table overriding the built-in series and noise patterns")
	cmd.Flags().StringVar(&opts.cachePath, "hash-cache", "", "bbolt file caching content digests across runs")
	cmd.Flags().StringVar(&opts.providerName, "provider", "", "scan a cloud folder by API instead of the filesystem: dropbox or gdrive")

	return cmd
}

func runScan(ctx context.Context, target string, opts scanOptions) error {
	quiet := opts.jsonOut || opts.yamlOut
	printer := ui.NewPrinter(quiet)

	norm, err := buildNormalizer(opts.rulesPath)
	if err != nil {
		return err
	}

	mode, err := resolveMode(target, opts, printer)
	if err != nil {
		return err
	}

	var provider cloud.Provider
	if opts.providerName != "" {
		provider, err = cloud.New(opts.providerName, providerToken(opts.providerName))
		if err != nil {
			return err
		}
	}

	printer.ScanStart(target)
	files, err := listFiles(ctx, target, provider, opts)
	if err != nil {
		return err
	}
	printer.ScanComplete(len(files))

	norm.NormalizeBatch(files)

	todo, err := report.NewTodoList(opts.todoFile, target)
	if err != nil {
		return err
	}

	var (
		cleanup    []executor.CleanupTarget
		cleanupOps []report.DeleteOperation
	)
	scheduleCleanup := func(f *models.NormalizedFile, issue report.Issue) {
		if !opts.deleteSmall {
			return
		}
		cleanup = append(cleanup, executor.CleanupTarget{Path: f.OriginalPath, Reason: string(issue)})
		cleanupOps = append(cleanupOps, report.DeleteOperation{Path: f.OriginalPath, Issue: string(issue)})
	}
	for _, f := range files {
		if f.IsFailedDownload || f.IsTooSmall {
			todo.AddFlagged(f)
			if f.IsFailedDownload {
				scheduleCleanup(f, report.IssueFailedDownload)
			} else {
				scheduleCleanup(f, report.IssueTooSmall)
			}
			continue
		}
		if provider == nil {
			if issue := todo.CheckIntegrity(f); issue == report.IssueCorruptedPDF {
				scheduleCleanup(f, issue)
			}
		}
		// A file that normalizes cleanly no longer needs manual attention.
		if f.Normalized() {
			todo.Remove(f.OriginalName)
		}
	}

	digester, closeCache, err := buildDigester(opts.cachePath)
	if err != nil {
		return err
	}
	defer closeCache()

	result := duplicates.New(mode, digester, opts.extensions).Detect(files)

	ops := report.BuildOperations(result.Survivors, result.Groups, result.Ambiguous, cleanupOps, todo, target)
	switch {
	case opts.jsonOut:
		out, err := ops.JSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
	case opts.yamlOut:
		out, err := ops.YAML()
		if err != nil {
			return err
		}
		fmt.Print(out)
	default:
		if !opts.apply {
			printer.DryRunBanner()
		}
		printer.Renames(result.Survivors)
		printer.Duplicates(result.Groups, opts.noDelete)
		printer.Ambiguous(result.Ambiguous)
		printer.Cleanup(cleanup)
		printer.TodoItems(todo.Items())
	}

	// todo.md is written even in dry-run mode so the checklist stays current.
	if provider == nil {
		if err := todo.Write(); err != nil {
			return fmt.Errorf("failed to write todo list: %w", err)
		}
		printer.Success("todo.md written")
	}

	if !opts.apply {
		return nil
	}
	if provider != nil {
		return applyCloud(ctx, provider, result, opts, printer)
	}
	printer.ApplySummary(executor.New(opts.noDelete).Apply(result.Survivors, result.Groups, cleanup))
	return nil
}

func buildNormalizer(rulesPath string) (*normalizer.Normalizer, error) {
	if rulesPath == "" {
		rulesPath = os.Getenv("SHELVER_RULES")
	}
	set := rules.Default()
	if rulesPath != "" {
		var err error
		set, err = rules.Load(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule table: %w", err)
		}
	}
	return normalizer.New(set)
}

// resolveMode picks the duplicate detection mode: the explicit flag wins,
// cloud API scans default to hybrid, and paths that look like a synced cloud
// mount fall back to metadata mode with an accuracy warning.
func resolveMode(target string, opts scanOptions, printer *ui.Printer) (models.Mode, error) {
	if opts.modeName != "" {
		return models.ParseMode(opts.modeName)
	}
	if opts.providerName != "" {
		return models.ModeHybrid, nil
	}
	if prov, mode, ok := cloud.Sniff(target); ok {
		slog.Info("cloud mount detected", "provider", prov, "mode", mode)
		printer.Warning(cloud.MetadataModeWarning)
		return mode, nil
	}
	return models.ModeContent, nil
}

func providerToken(name string) string {
	if strings.EqualFold(name, "dropbox") {
		return os.Getenv("DROPBOX_ACCESS_TOKEN")
	}
	return os.Getenv("GDRIVE_ACCESS_TOKEN")
}

func listFiles(ctx context.Context, target string, provider cloud.Provider, opts scanOptions) ([]*models.NormalizedFile, error) {
	if provider != nil {
		return provider.List(ctx, target)
	}

	depth := opts.maxDepth
	if opts.noRecursive {
		depth = 1
	}
	sc, err := scanner.New(target, depth)
	if err != nil {
		return nil, err
	}
	return sc.Scan()
}

func buildDigester(cachePath string) (duplicates.Digester, func(), error) {
	if cachePath == "" {
		return duplicates.MD5Digester{}, func() {}, nil
	}
	cache, err := hashcache.Open(cachePath, duplicates.MD5Digester{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open hash cache: %w", err)
	}
	return cache, func() {
		if err := cache.Close(); err != nil {
			slog.Warn("failed to close hash cache", "path", cachePath, "error", err)
		}
	}, nil
}

// applyCloud executes the plan through the provider API: renames for
// survivors, deletions for resolved duplicates. Cleanup deletion is local
// only and skipped here.
func applyCloud(ctx context.Context, provider cloud.Provider, result *duplicates.Result, opts scanOptions, printer *ui.Printer) error {
	var s executor.Summary
	if !opts.noDelete {
		for _, g := range result.Groups {
			for _, f := range g.Remove() {
				if err := provider.Delete(ctx, f); err != nil {
					s.Errors = append(s.Errors, fmt.Sprintf("failed to delete %s: %v", f.OriginalPath, err))
					continue
				}
				slog.Info("deleted cloud duplicate", "provider", provider.Name(), "path", f.OriginalPath)
				s.DuplicatesRemoved++
			}
		}
	}
	for _, f := range result.Survivors {
		if !f.Normalized() || f.NewName == f.OriginalName {
			continue
		}
		if err := provider.Rename(ctx, f, f.NewName); err != nil {
			s.Errors = append(s.Errors, fmt.Sprintf("failed to rename %s: %v", f.OriginalPath, err))
			continue
		}
		slog.Info("renamed cloud file", "provider", provider.Name(), "from", f.OriginalName, "to", f.NewName)
		s.Renamed++
	}
	printer.ApplySummary(s)
	return nil
}
