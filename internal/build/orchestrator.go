package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/tplbuild/internal/config"
	"git.home.luguber.info/inful/tplbuild/internal/converter"
	"git.home.luguber.info/inful/tplbuild/internal/errors"
	"git.home.luguber.info/inful/tplbuild/internal/history"
	"git.home.luguber.info/inful/tplbuild/internal/logfields"
	"git.home.luguber.info/inful/tplbuild/internal/metrics"
	"git.home.luguber.info/inful/tplbuild/internal/retry"
	"git.home.luguber.info/inful/tplbuild/internal/validator"
	"git.home.luguber.info/inful/tplbuild/internal/versionprops"
	"git.home.luguber.info/inful/tplbuild/internal/workspace"
)

// Orchestrator drives one build run through its phases: clean, validate,
// schedule, execute, aggregate.
type Orchestrator struct {
	cfg          *config.Config
	registry     *converter.Registry
	ws           workspace.Workspace
	templateRoot string
	policy       retry.Policy
	recorder     metrics.Recorder
	store        *history.Store // optional
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithHistory injects a run-history store.
func WithHistory(s *history.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// NewOrchestrator wires an orchestrator for one configuration and template
// root.
func NewOrchestrator(cfg *config.Config, registry *converter.Registry, templateRoot string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:          cfg,
		registry:     registry,
		ws:           workspace.FromConfig(cfg),
		templateRoot: templateRoot,
		policy:       retry.FromConfig(cfg.Advanced),
		recorder:     metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one build run. A non-nil error means the run aborted before
// executing tasks (cleaning or validation); task failures are reported
// through the summary, never as a Run error.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	started := time.Now()
	log := slog.With(logfields.RunID(runID))

	if o.store != nil {
		if err := o.store.RecordRunStart(ctx, runID, started); err != nil {
			log.Warn("failed to record run start", logfields.Error(err))
		}
	}

	fail := func(err error) (*Summary, error) {
		o.finishRun(ctx, runID, StateFailed, started, nil)
		return &Summary{RunID: runID, State: StateFailed, Duration: time.Since(started)}, err
	}

	if o.cfg.Build.CleanBefore {
		log.Info("cleaning workspace", logfields.Phase(string(StateCleaning)))
		if err := o.ws.Clean(); err != nil {
			return fail(err)
		}
	} else if err := o.ws.Ensure(); err != nil {
		return fail(err)
	}

	if o.cfg.Build.Validate {
		log.Info("validating template", logfields.Phase(string(StateValidating)))
		pre := validator.Preflight{
			TemplateRoot: o.templateRoot,
			Languages:    o.cfg.Languages,
			VerifyFonts:  o.cfg.Build.VerifyFonts,
		}
		if err := pre.Run(ctx); err != nil {
			return fail(err)
		}
	}

	tasks := Matrix(o.cfg.Languages, o.cfg.Flavors, o.cfg.Formats)
	log.Info("scheduling tasks", logfields.Phase(string(StateScheduling)),
		slog.Int("tasks", len(tasks)))

	log.Info("executing tasks", logfields.Phase(string(StateExecuting)),
		slog.Bool("parallel", o.cfg.Build.Parallel),
		slog.Int("max_workers", o.cfg.Build.MaxWorkers))
	results := o.execute(ctx, runID, tasks)

	summary := &Summary{RunID: runID, State: StateDone, Results: results, Duration: time.Since(started)}
	log.Info("run finished", logfields.Phase(string(StateAggregating)),
		slog.String("summary", summary.String()),
		logfields.DurationMS(float64(summary.Duration.Milliseconds())))
	for _, r := range summary.Failures() {
		log.Error("task failed",
			logfields.Language(r.Task.Language),
			logfields.Flavor(r.Task.Flavor),
			logfields.Format(r.Task.Format),
			logfields.Error(r.Err))
	}

	o.finishRun(ctx, runID, StateDone, started, summary)
	return summary, nil
}

func (o *Orchestrator) finishRun(ctx context.Context, runID string, state State, started time.Time, summary *Summary) {
	duration := time.Since(started)
	o.recorder.ObserveRunDuration(duration)
	o.recorder.IncRunOutcome(string(state))
	if o.store != nil {
		succeeded, failed := 0, 0
		if summary != nil {
			succeeded, failed = summary.Succeeded(), summary.Failed()
		}
		if err := o.store.RecordRunEnd(ctx, runID, string(state), time.Now(), succeeded, failed); err != nil {
			slog.Warn("failed to record run end", logfields.RunID(runID), logfields.Error(err))
		}
	}
}

// execute runs the task list through a bounded worker pool. With fail_fast,
// the first failure stops dispatching: tasks not yet started are skipped
// and reported as failures, running tasks complete normally.
func (o *Orchestrator) execute(ctx context.Context, runID string, tasks []Task) []Result {
	workers := 1
	if o.cfg.Build.Parallel {
		workers = o.cfg.Build.MaxWorkers
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	results := make([]Result, len(tasks))
	taskCh := make(chan int)
	var failed atomic.Bool
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for idx := range taskCh {
				task := tasks[idx]
				if o.cfg.Advanced.FailFast && failed.Load() {
					results[idx] = o.skipTask(ctx, runID, task)
					continue
				}
				res := o.runTask(ctx, runID, worker, task)
				if res.Err != nil {
					failed.Store(true)
				}
				results[idx] = res
			}
		}(w)
	}

	for i := range tasks {
		taskCh <- i
	}
	close(taskCh)
	wg.Wait()

	return results
}

func (o *Orchestrator) skipTask(ctx context.Context, runID string, task Task) Result {
	err := errors.New(errors.CategoryConversion, errors.SeverityError,
		fmt.Sprintf("skipped after earlier failure (fail_fast): %s %s %s",
			task.Language, task.Flavor, task.Format))
	o.recorder.IncTaskResult(task.Format, metrics.ResultCanceled)
	o.recordTask(ctx, runID, task, Result{Task: task, Err: err, Skipped: true})
	return Result{Task: task, Err: err, Skipped: true}
}

// runTask executes one task including its retry loop. Every attempt runs
// under the per-task timeout so a hung external tool becomes a reported
// failure instead of a stuck worker.
func (o *Orchestrator) runTask(ctx context.Context, runID string, worker int, task Task) Result {
	log := slog.With(
		logfields.RunID(runID),
		logfields.TaskID(task.ID),
		logfields.Language(task.Language),
		logfields.Flavor(task.Flavor),
		logfields.Format(task.Format),
		logfields.Worker(fmt.Sprintf("w%d", worker)),
	)
	started := time.Now()
	res := Result{Task: task}

	for attempt := 0; ; attempt++ {
		res.Attempts = attempt + 1
		artifact, err := o.convertOnce(ctx, task)
		if err == nil {
			res.Artifact = artifact
			res.Err = nil
			break
		}
		res.Err = err

		if attempt >= o.policy.MaxRetries || !retryableTaskError(err) || ctx.Err() != nil {
			if attempt > 0 && o.policy.MaxRetries > 0 {
				o.recorder.IncTaskRetryExhausted(task.Format)
			}
			break
		}
		o.recorder.IncTaskRetry(task.Format)
		delay := o.policy.Delay(attempt + 1)
		log.Warn("task failed, retrying",
			logfields.Attempt(attempt+1),
			slog.Duration("delay", delay),
			logfields.Error(err))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			// The conversion error stays on the result; the tool
			// diagnostics matter more than the cancellation itself.
			log.Warn("retry abandoned", logfields.Error(ctx.Err()))
			break
		}
	}

	res.Duration = time.Since(started)
	o.recorder.ObserveTaskDuration(task.Format, res.Duration)
	if res.Err == nil {
		o.recorder.IncTaskResult(task.Format, metrics.ResultSuccess)
		log.Info("task succeeded",
			logfields.Path(res.Artifact),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	} else {
		o.recorder.IncTaskResult(task.Format, metrics.ResultFailed)
	}
	o.recordTask(ctx, runID, task, res)
	return res
}

// convertOnce performs a single conversion attempt for a task.
func (o *Orchestrator) convertOnce(ctx context.Context, task Task) (string, error) {
	conv, err := o.registry.Resolve(task.Format)
	if err != nil {
		return "", err
	}
	if !conv.CheckDependencies(ctx) {
		return "", errors.New(errors.CategoryConversion, errors.SeverityError,
			fmt.Sprintf("dependencies not available for format %s (language %s)",
				task.Format, task.Language))
	}

	outputDir := o.ws.TaskOutputDir(task.Language, task.Flavor, task.Format)
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return "", errors.Wrap(err, errors.CategoryFileSystem, errors.SeverityError,
			"create task output directory").WithContext("path", outputDir)
	}

	langDir := filepath.Join(o.templateRoot, task.Language)
	cc := &converter.Context{
		Language:     task.Language,
		Flavor:       task.Flavor,
		SourceDir:    filepath.Join(langDir, "asciidoc"),
		OutputDir:    outputDir,
		TempDir:      o.ws.TempDir,
		VersionProps: versionprops.Load(langDir),
		Options:      task.Options,
	}

	taskCtx := ctx
	if timeout := o.taskTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return conv.Convert(taskCtx, cc)
}

func (o *Orchestrator) taskTimeout() time.Duration {
	d, err := time.ParseDuration(o.cfg.Build.TaskTimeout)
	if err != nil {
		return 0
	}
	return d
}

// retryableTaskError decides whether a retry can help. Unknown formats and
// missing tools will not fix themselves between attempts; tool invocations
// that actually ran and failed might (transient resource pressure), and
// mark themselves retryable.
func retryableTaskError(err error) bool {
	return errors.IsRetryable(err)
}

func (o *Orchestrator) recordTask(ctx context.Context, runID string, task Task, res Result) {
	if o.store == nil {
		return
	}
	rec := history.TaskRecord{
		RunID:    runID,
		Language: task.Language,
		Flavor:   task.Flavor,
		Format:   task.Format,
		Success:  res.Err == nil,
		Artifact: res.Artifact,
		Duration: res.Duration,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	if err := o.store.RecordTask(ctx, rec); err != nil {
		slog.Warn("failed to record task", logfields.TaskID(task.ID), logfields.Error(err))
	}
}
