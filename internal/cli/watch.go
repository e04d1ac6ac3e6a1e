package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/relmark/internal/worker"
	"github.com/spf13/cobra"
)

var (
	watchDebounce time.Duration
	watchExisting bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Annotate files as they appear in a directory",
	Long: `Watch annotates every file matching batch.include as it is created or
changed under <dir>. Envelopes go to <dir>/rel/<timestamp>/, one run
directory per watch session. Rewriting a file with identical content is
ignored. Stop with Ctrl-C.

Example:
  relmark watch ./inbox
  relmark watch ./inbox --existing --debounce 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait this long for writes to settle")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "annotate files already present before watching")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := args[0]
	stderr := cmd.ErrOrStderr()

	a, err := newApp()
	if err != nil {
		return err
	}
	processor := newBatchProcessor(a, a.cfg.Batch.Workers)

	w, err := processor.NewWatcher(dir, watchDebounce)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	if watchExisting {
		if err := runDirectory(ctx, stderr, a, dir, a.cfg.Batch.Workers); err != nil {
			a.logger.Warn("initial pass had failures", "error", err)
		}
		if err := primeWatcher(w, processor, dir); err != nil {
			return err
		}
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	runDir := processor.RunDir(dir)
	fmt.Fprintf(stderr, "Watching %s (output: %s)\n", dir, runDir)

	for ev := range w.Events() {
		res := processor.ProcessEvent(ctx, runDir, ev)
		if res.Error != nil {
			fmt.Fprintf(stderr, "✗ %s: %v\n", ev.Rel, res.Error)
			continue
		}
		fmt.Fprintf(stderr, "✓ %s\n", ev.Rel)
	}
	if n := w.Dropped(); n > 0 {
		a.logger.Warn("watch events dropped", "count", n)
	}
	return nil
}

// primeWatcher records the current content of every matching file so only
// later edits trigger a new annotation.
func primeWatcher(w *worker.Watcher, processor *worker.BatchProcessor, dir string) error {
	files, err := processor.Discover(dir)
	if err != nil {
		return err
	}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		w.Seen(rel, data)
	}
	return nil
}
