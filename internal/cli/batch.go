package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/relmark/internal/pipeline"
	"github.com/ppiankov/relmark/internal/worker"
)

var (
	concurrency  int
	includes     []string
	listFile     bool
	outputDir    string
	batchTimeout time.Duration
	domainRate   float64
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Annotate many inputs in parallel",
	Long: `Batch annotates inputs concurrently.

With a directory it behaves like "annotate <dir>" with an explicit worker
count and include patterns. With --list the argument is a file holding one
path or URL per line (# comments allowed); envelopes are written to
--output-dir. One failing input never stops the others.

Example:
  relmark batch ./corpus --workers 8
  relmark batch ./corpus --include '**/*.lif' --include '*.txt'
  relmark batch inputs.txt --list --output-dir ./out --domain-rate 2`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "workers", 0, "number of concurrent workers (default: batch.workers)")
	batchCmd.Flags().StringSliceVar(&includes, "include", nil, "include pattern, repeatable (default: batch.include)")
	batchCmd.Flags().BoolVar(&listFile, "list", false, "treat the argument as a list of paths and URLs")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./relmark-out", "output directory for --list mode")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&domainRate, "domain-rate", 1, "requests per second per host for URL inputs (0 disables)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	if len(includes) > 0 {
		a.cfg.Batch.Include = includes
	}
	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Batch.Workers
	}

	if !listFile {
		return runDirectory(ctx, cmd.ErrOrStderr(), a, args[0], workers)
	}
	return runList(ctx, cmd, a, args[0], workers)
}

func runList(ctx context.Context, cmd *cobra.Command, a *app, file string, workers int) error {
	stderr := cmd.ErrOrStderr()

	inputs, err := worker.ReadInputList(file)
	if err != nil {
		return fmt.Errorf("read input list: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  relmark Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s (%d inputs)\n", file, len(inputs))
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(stderr, "\n")

	processor := newBatchProcessor(a, workers,
		worker.WithDomainLimit(domainRate, 1),
		worker.WithProgress(stderr))
	report := processor.ProcessList(ctx, inputs)

	used := make(map[string]int)
	for _, res := range report.Results {
		if res.Output == nil {
			continue
		}
		name := uniqueName(used, sanitizeFilename(res.Source))
		if err := pipeline.WriteFile(filepath.Join(outputDir, name), res.Output); err != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", res.Source, err)
		}
	}

	report.OutputDir = outputDir
	printReport(stderr, report, "inputs")
	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d inputs", errAnnotationFailed, report.Failed, len(inputs))
	}
	return nil
}

// sanitizeFilename turns a path or URL into a flat file name ending in .lif
func sanitizeFilename(s string) string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "https://"), "http://")
	s = strings.TrimSuffix(s, "/")

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)
	s = strings.TrimLeft(s, "._")
	if s == "" {
		s = "input"
	}

	if len(s) > 100 {
		s = s[:100]
	}
	if filepath.Ext(s) != ".lif" {
		s += ".lif"
	}
	return s
}

func uniqueName(used map[string]int, name string) string {
	used[name]++
	if n := used[name]; n > 1 {
		ext := filepath.Ext(name)
		return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
	}
	return name
}
