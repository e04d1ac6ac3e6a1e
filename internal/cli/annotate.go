package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/relmark/internal/pipeline"
	"github.com/ppiankov/relmark/internal/worker"
)

var annotateOut string

// annotateCmd represents the annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate <file|dir|-|url>",
	Short: "Annotate one input and print the resulting envelope",
	Long: `Annotate runs one input through the relation annotator.

A file, URL or "-" (stdin) prints one envelope on stdout. HTML pages are
reduced to their text first; .xz files are decompressed.

A directory annotates every file matching batch.include (default *.lif,
dot files skipped) and writes the envelopes to <dir>/rel/<timestamp>/.

Example:
  relmark annotate doc.lif
  echo "She swam to Paris." | relmark annotate -
  relmark annotate https://example.com/article.html --out article.lif
  relmark annotate ./corpus`,
	Args: cobra.ExactArgs(1),
	RunE: runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)

	annotateCmd.Flags().StringVarP(&annotateOut, "out", "o", "", "write the envelope to a file instead of stdout")
	annotateCmd.Flags().String("extractor", "", "relation extractor (pattern, openai, ollama)")
	annotateCmd.Flags().Bool("no-cache", false, "disable the result cache")

	_ = viper.BindPFlag("annotate.extractor", annotateCmd.Flags().Lookup("extractor"))
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		a.cfg.Cache.Enabled = false
		if a, err = buildApp(a.cfg, a.logger); err != nil {
			return err
		}
	}

	arg := args[0]
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return runDirectory(cmd.Context(), cmd.ErrOrStderr(), a, arg, a.cfg.Batch.Workers)
	}

	return annotateOne(cmd.Context(), cmd.OutOrStdout(), a, arg, annotateOut)
}

// errAnnotationFailed marks a run whose output was an ERROR envelope; the envelope is already written
var errAnnotationFailed = errors.New("annotation failed")

func annotateOne(ctx context.Context, stdout io.Writer, a *app, arg, out string) error {
	var res *pipeline.Result
	if in, err := a.loader.Load(ctx, arg); err != nil {
		res = pipeline.LoadFailure(arg, err)
	} else {
		res = a.pipeline.Process(ctx, in)
	}
	if out != "" {
		if err := pipeline.WriteFile(out, res.Output); err != nil {
			return err
		}
	} else if err := pipeline.WriteOutput(stdout, res.Output); err != nil {
		return err
	}

	if res.Err != nil {
		return fmt.Errorf("%w: %s: %v", errAnnotationFailed, res.Name, res.Err)
	}
	return nil
}

func newBatchProcessor(a *app, workers int, opts ...worker.Option) *worker.BatchProcessor {
	opts = append([]worker.Option{worker.WithLogger(a.logger)}, opts...)
	return worker.NewBatchProcessor(a.loader, a.pipeline, workers, a.cfg.Batch.Include, a.cfg.Batch.OutputDir, opts...)
}

// runDirectory annotates a directory and prints a summary banner
func runDirectory(ctx context.Context, stderr io.Writer, a *app, dir string, workers int) error {
	processor := newBatchProcessor(a, workers, worker.WithProgress(stderr))

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  relmark Directory Annotation\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input dir:    %s\n", dir)
	fmt.Fprintf(stderr, "  Include:      %v\n", a.cfg.Batch.Include)
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "\n")

	report, err := processor.ProcessDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("process directory: %w", err)
	}

	printReport(stderr, report, "files")
	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d files", errAnnotationFailed, report.Failed, report.Succeeded+report.Failed)
	}
	return nil
}

func printReport(w io.Writer, report *worker.BatchReport, unit string) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  Batch Complete\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Run:       %s\n", report.RunID)
	fmt.Fprintf(w, "  Total:     %d %s\n", report.Succeeded+report.Failed, unit)
	fmt.Fprintf(w, "  Success:   %d\n", report.Succeeded)
	fmt.Fprintf(w, "  Failures:  %d\n", report.Failed)
	if report.OutputDir != "" {
		fmt.Fprintf(w, "  Output:    %s\n", report.OutputDir)
	}
	fmt.Fprintf(w, "\n")
}
