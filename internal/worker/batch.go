package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/ppiankov/relmark/internal/metrics"
	"github.com/ppiankov/relmark/internal/pipeline"
)

// timestampLayout names per-run output directories
const timestampLayout = "20060102-150405"

// Processor runs one loaded input through the service
type Processor interface {
	Process(ctx context.Context, in *pipeline.Input) *pipeline.Result
}

// InputLoader resolves a path or URL into an input
type InputLoader interface {
	Load(ctx context.Context, arg string) (*pipeline.Input, error)
}

// FileJob annotates one input and optionally writes its output envelope
type FileJob struct {
	Source    string // path or URL
	Rel       string // name relative to the input directory; empty for list inputs
	OutPath   string // empty keeps the output in memory only
	Loader    InputLoader
	Processor Processor
	Limiter   *Limiter
}

// Execute runs the job. An ERROR envelope, including one for an input that
// failed to load, is still written to OutPath.
func (j *FileJob) Execute(ctx context.Context) Result {
	res := &FileResult{Source: j.Source, Rel: j.Rel, OutPath: j.OutPath}

	if j.Limiter != nil && pipeline.IsURL(j.Source) {
		if err := j.Limiter.Wait(ctx, j.Source); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	var out *pipeline.Result
	if in, err := j.Loader.Load(ctx, j.Source); err != nil {
		out = pipeline.LoadFailure(j.Source, err)
	} else {
		out = j.Processor.Process(ctx, in)
	}
	res.Output = out.Output
	res.Cached = out.Cached
	res.Error = out.Err

	if j.OutPath != "" {
		if err := pipeline.WriteFile(j.OutPath, out.Output); err != nil && res.Error == nil {
			res.Error = err
		}
	}
	return res
}

// FileResult is the outcome of one FileJob
type FileResult struct {
	Source  string
	Rel     string
	OutPath string
	Output  []byte
	Cached  bool
	Error   error
}

// GetError returns the error from the job
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchReport summarizes one batch run
type BatchReport struct {
	RunID     string
	OutputDir string
	Results   []*FileResult
	Succeeded int
	Failed    int
}

// Option configures a BatchProcessor
type Option func(*BatchProcessor)

// WithDomainLimit throttles URL inputs per host
func WithDomainLimit(requestsPerSecond float64, burst int) Option {
	return func(b *BatchProcessor) {
		if requestsPerSecond > 0 {
			b.limiter = NewLimiter(requestsPerSecond, burst)
		}
	}
}

// WithLogger sets the logger used for per-file failures
func WithLogger(l *slog.Logger) Option {
	return func(b *BatchProcessor) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithProgress writes a short progress line per finished file to w
func WithProgress(w io.Writer) Option {
	return func(b *BatchProcessor) {
		b.progress = w
	}
}

// BatchProcessor annotates many inputs concurrently
type BatchProcessor struct {
	loader      InputLoader
	processor   Processor
	concurrency int
	include     []string
	outputDir   string
	limiter     *Limiter
	logger      *slog.Logger
	progress    io.Writer
	now         func() time.Time
}

// NewBatchProcessor creates a batch processor. include holds doublestar
// patterns matched against paths relative to the input directory; outputDir
// is the subdirectory that receives the run directories.
func NewBatchProcessor(loader InputLoader, processor Processor, concurrency int, include []string, outputDir string, opts ...Option) *BatchProcessor {
	if len(include) == 0 {
		include = []string{"*.lif"}
	}
	if outputDir == "" {
		outputDir = "rel"
	}
	b := &BatchProcessor{
		loader:      loader,
		processor:   processor,
		concurrency: concurrency,
		include:     include,
		outputDir:   outputDir,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Discover lists files under dir matching the include patterns. Dot files,
// dot directories and the output subdirectory are skipped.
func (b *BatchProcessor) Discover(dir string) ([]string, error) {
	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range b.include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || b.excluded(m) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether a relative path would be picked up by Discover
func (b *BatchProcessor) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	if b.excluded(rel) {
		return false
	}
	for _, pattern := range b.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (b *BatchProcessor) excluded(rel string) bool {
	parts := strings.Split(rel, "/")
	if parts[0] == b.outputDir {
		return true
	}
	for _, p := range parts {
		if strings.HasPrefix(p, ".") {
			return true
		}
	}
	return false
}

// RunDir returns the output directory for a run started now
func (b *BatchProcessor) RunDir(dir string) string {
	return filepath.Join(dir, b.outputDir, b.now().Format(timestampLayout))
}

// ProcessDir annotates every matching file in dir, writing outputs under
// <dir>/<outputDir>/<timestamp>/. A failing file does not stop the run.
func (b *BatchProcessor) ProcessDir(ctx context.Context, dir string) (*BatchReport, error) {
	files, err := b.Discover(dir)
	if err != nil {
		return nil, err
	}

	runDir := b.RunDir(dir)
	jobs := make([]Job, 0, len(files))
	for _, rel := range files {
		jobs = append(jobs, &FileJob{
			Source:    filepath.Join(dir, filepath.FromSlash(rel)),
			Rel:       rel,
			OutPath:   filepath.Join(runDir, filepath.FromSlash(rel)),
			Loader:    b.loader,
			Processor: b.processor,
		})
	}

	report := b.run(ctx, jobs)
	report.OutputDir = runDir
	return report, nil
}

// ProcessList annotates each path or URL in sources; outputs stay in memory
func (b *BatchProcessor) ProcessList(ctx context.Context, sources []string) *BatchReport {
	jobs := make([]Job, 0, len(sources))
	for _, src := range sources {
		jobs = append(jobs, &FileJob{
			Source:    src,
			Loader:    b.loader,
			Processor: b.processor,
			Limiter:   b.limiter,
		})
	}
	return b.run(ctx, jobs)
}

func (b *BatchProcessor) run(ctx context.Context, jobs []Job) *BatchReport {
	report := &BatchReport{RunID: uuid.NewString()}
	if len(jobs) == 0 {
		return report
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.OnResult(func(r Result) {
		fr := r.(*FileResult)
		metrics.RecordBatchFile(fr.Error)
		if fr.Error != nil {
			b.logger.Warn("input failed", "run_id", report.RunID, "input", fr.Source, "error", fr.Error)
		}
		if b.progress != nil {
			status := "ok"
			if fr.Error != nil {
				status = "failed"
			}
			_, _ = fmt.Fprintf(b.progress, "  %-6s %s\n", status, fr.Source)
		}
	})
	pool.Start()

	for _, job := range jobs {
		pool.Submit(job)
	}

	for _, r := range pool.Wait() {
		fr := r.(*FileResult)
		report.Results = append(report.Results, fr)
		if fr.Error != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	// Jobs dropped by cancellation never produce a result
	if missing := len(jobs) - len(report.Results); missing > 0 {
		report.Failed += missing
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Source < report.Results[j].Source
	})
	return report
}

// ReadInputList reads paths or URLs from a file, one per line. Blank lines
// and lines starting with # are ignored.
func ReadInputList(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	var inputs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return inputs, nil
}

// NewWatcher creates a Watcher over dir that reports the files ProcessDir
// would pick up
func (b *BatchProcessor) NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	return NewWatcher(dir, b.Matches, []string{b.outputDir}, debounce, b.logger)
}

// ProcessEvent annotates one watched file, writing its output under runDir
func (b *BatchProcessor) ProcessEvent(ctx context.Context, runDir string, ev WatchEvent) *FileResult {
	job := &FileJob{
		Source:    ev.AbsPath,
		Rel:       ev.Rel,
		OutPath:   filepath.Join(runDir, filepath.FromSlash(ev.Rel)),
		Loader:    b.loader,
		Processor: b.processor,
	}
	res := job.Execute(ctx).(*FileResult)
	metrics.RecordBatchFile(res.Error)
	if res.Error != nil {
		b.logger.Warn("input failed", "input", res.Source, "error", res.Error)
	}
	return res
}
