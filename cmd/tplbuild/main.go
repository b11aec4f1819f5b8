package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/tplbuild/internal/assembly"
	"git.home.luguber.info/inful/tplbuild/internal/build"
	"git.home.luguber.info/inful/tplbuild/internal/config"
	"git.home.luguber.info/inful/tplbuild/internal/converter"
	"git.home.luguber.info/inful/tplbuild/internal/dist"
	"git.home.luguber.info/inful/tplbuild/internal/history"
	"git.home.luguber.info/inful/tplbuild/internal/metrics"
	"git.home.luguber.info/inful/tplbuild/internal/template"
	"git.home.luguber.info/inful/tplbuild/internal/validator"
	"git.home.luguber.info/inful/tplbuild/internal/watch"
)

var version = "dev"

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"tplbuild.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Build struct {
		Langs   []string `short:"l" help:"Build only these languages"`
		Flavors []string `help:"Build only these flavors"`
		Formats []string `short:"f" help:"Build only these formats"`
		All     bool     `help:"Build all configured formats, including disabled ones"`
		Dist    bool     `help:"Package artifacts into dist archives after the build"`
		History string   `help:"Run-history database path" default:"tplbuild-history.db"`
	} `cmd:"" help:"Build the artifact matrix from the template tree"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Validate struct{} `cmd:"" help:"Run the pre-flight template checks without building"`

	ListFormats struct{} `cmd:"" name:"list-formats" help:"List the supported output formats"`

	TestArtifacts struct {
		BuildDir string `arg:"" optional:"" help:"Build tree to check (default: configured output_dir)"`
	} `cmd:"" name:"test-artifacts" help:"Check the artifacts of a finished build tree"`

	Dist struct{} `cmd:"" help:"Package the build tree into distributable archives"`

	Bundle struct {
		Lang   string `short:"l" required:"" help:"Language to bundle"`
		Flavor string `help:"Flavor to bundle" default:"plain"`
		Output string `short:"o" required:"" help:"Output file for the bundled document"`
		Strip  bool   `help:"Strip content of inactive conditional blocks"`
	} `cmd:"" help:"Flatten a language's document tree into one self-contained file"`

	Watch struct {
		Interval    time.Duration `help:"Also rebuild on a fixed interval (0 disables)"`
		MetricsAddr string        `help:"Serve Prometheus metrics on this address (e.g. :9090)"`
	} `cmd:"" help:"Rebuild whenever the template tree changes"`

	History struct {
		RunID string `arg:"" optional:"" help:"Show the task results of one run"`
		Limit int    `help:"Number of runs to list" default:"10"`
		DB    string `help:"Run-history database path" default:"tplbuild-history.db"`
	} `cmd:"" help:"List recent build runs"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	if v := os.Getenv("TPLBUILD_LOG_LEVEL"); v != "" {
		_ = logLevel.UnmarshalText([]byte(v))
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "init":
		err = runInit()
	case "validate":
		err = runValidate()
	case "list-formats":
		err = runListFormats()
	case "test-artifacts", "test-artifacts <build-dir>":
		err = runTestArtifacts()
	case "dist":
		err = runDist()
	case "bundle":
		err = runBundle()
	case "watch":
		err = runWatch()
	case "history", "history <run-id>":
		err = runHistory()
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and applies CLI matrix filters.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyBuildFilters narrows the configured matrix to the CLI selection.
func applyBuildFilters(cfg *config.Config) error {
	if len(CLI.Build.Langs) > 0 {
		narrowed, err := narrow(cfg.Languages, CLI.Build.Langs, "language")
		if err != nil {
			return err
		}
		cfg.Languages = narrowed
	}
	if len(CLI.Build.Flavors) > 0 {
		narrowed, err := narrow(cfg.Flavors, CLI.Build.Flavors, "flavor")
		if err != nil {
			return err
		}
		cfg.Flavors = narrowed
	}
	if CLI.Build.All {
		names := cfg.Formats.Names()
		specs := make(map[string]config.FormatSpec, len(names))
		for _, name := range names {
			spec, _ := cfg.Formats.Get(name)
			spec.Enabled = true
			specs[name] = spec
		}
		cfg.Formats = config.NewFormats(names, specs)
	}
	if len(CLI.Build.Formats) > 0 {
		for _, name := range CLI.Build.Formats {
			if _, ok := cfg.Formats.Get(name); !ok {
				return fmt.Errorf("format not configured: %s", name)
			}
		}
		names := CLI.Build.Formats
		specs := make(map[string]config.FormatSpec, len(names))
		for _, name := range names {
			spec, _ := cfg.Formats.Get(name)
			spec.Enabled = true
			specs[name] = spec
		}
		cfg.Formats = config.NewFormats(names, specs)
	}
	return nil
}

func narrow(configured, requested []string, what string) ([]string, error) {
	allowed := make(map[string]bool, len(configured))
	for _, v := range configured {
		allowed[v] = true
	}
	var out []string
	for _, v := range requested {
		if !allowed[v] {
			return nil, fmt.Errorf("%s not configured: %s", what, v)
		}
		out = append(out, v)
	}
	return out, nil
}

func runBuild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyBuildFilters(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	templateRoot, err := template.Ensure(ctx, cfg.Template)
	if err != nil {
		return err
	}

	var opts []build.Option
	if CLI.Build.History != "" {
		store, err := history.NewStore(CLI.Build.History)
		if err != nil {
			slog.Warn("Run history disabled", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, build.WithHistory(store))
		}
	}

	o := build.NewOrchestrator(cfg, converter.NewDefaultRegistry(), templateRoot, opts...)
	summary, err := o.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Build %s: %s\n", summary.State, summary.String())

	if summary.Failed() > 0 && !cfg.Advanced.ContinueOnError {
		return fmt.Errorf("%d of %d tasks failed", summary.Failed(), len(summary.Results))
	}
	if CLI.Build.Dist {
		count, err := dist.Package(cfg.Build.OutputDir, cfg.Build.DistDir)
		if err != nil {
			return err
		}
		fmt.Printf("Packaged %d archives into %s\n", count, cfg.Build.DistDir)
	}
	return nil
}

func runInit() error {
	slog.Info("Initializing configuration", "path", CLI.Config, "force", CLI.Init.Force)
	return config.Init(CLI.Config, CLI.Init.Force)
}

func runValidate() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	templateRoot, err := template.Ensure(ctx, cfg.Template)
	if err != nil {
		return err
	}
	pre := validator.Preflight{
		TemplateRoot: templateRoot,
		Languages:    cfg.Languages,
		VerifyFonts:  cfg.Build.VerifyFonts,
	}
	if err := pre.Run(ctx); err != nil {
		return err
	}
	fmt.Println("Template validation passed")
	return nil
}

func runListFormats() error {
	registry := converter.NewDefaultRegistry()
	ctx := context.Background()
	for _, name := range registry.Names() {
		c, err := registry.Resolve(name)
		if err != nil {
			return err
		}
		available := "missing dependencies"
		if c.CheckDependencies(ctx) {
			available = "available"
		}
		fmt.Printf("%-20s priority %d  %-8s %s\n", name, c.Priority(), c.OutputExtension(), available)
	}
	return nil
}

func runTestArtifacts() error {
	buildDir := CLI.TestArtifacts.BuildDir
	if buildDir == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		buildDir = cfg.Build.OutputDir
	}
	if err := validator.CheckBuildRoot(buildDir); err != nil {
		return err
	}
	fmt.Println("Artifact validation passed")
	return nil
}

func runDist() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	count, err := dist.Package(cfg.Build.OutputDir, cfg.Build.DistDir)
	if err != nil {
		return err
	}
	fmt.Printf("Packaged %d archives into %s\n", count, cfg.Build.DistDir)
	return nil
}

func runBundle() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	templateRoot, err := template.Ensure(ctx, cfg.Template)
	if err != nil {
		return err
	}
	pre := validator.Preflight{TemplateRoot: templateRoot}
	sourceDir := pre.SourceDir(CLI.Bundle.Lang)

	cc := &converter.Context{
		Language:  CLI.Bundle.Lang,
		Flavor:    CLI.Bundle.Flavor,
		SourceDir: sourceDir,
	}
	r := assembly.NewResolver(sourceDir, CLI.Bundle.Flavor,
		assembly.Options{StripInactive: CLI.Bundle.Strip})
	if err := r.ResolveToFile(cc.MainDocumentPath(), CLI.Bundle.Output); err != nil {
		return err
	}
	fmt.Printf("Bundled %s (%s) into %s\n", CLI.Bundle.Lang, CLI.Bundle.Flavor, CLI.Bundle.Output)
	return nil
}

func runWatch() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	templateRoot, err := template.Ensure(ctx, cfg.Template)
	if err != nil {
		return err
	}

	registry := converter.NewDefaultRegistry()
	promRegistry := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(promRegistry)

	rebuild := func(ctx context.Context) error {
		o := build.NewOrchestrator(cfg, registry, templateRoot, build.WithRecorder(recorder))
		summary, err := o.Run(ctx)
		if err != nil {
			return err
		}
		slog.Info("Rebuild finished", "summary", summary.String())
		return nil
	}

	w, err := watch.NewWatcher(templateRoot, rebuild, watch.Options{
		RebuildInterval: CLI.Watch.Interval,
		MetricsAddr:     CLI.Watch.MetricsAddr,
		MetricsRegistry: promRegistry,
	})
	if err != nil {
		return err
	}
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runHistory() error {
	store, err := history.NewStore(CLI.History.DB)
	if err != nil {
		return err
	}
	defer store.Close()
	ctx := context.Background()

	if CLI.History.RunID != "" {
		tasks, err := store.TasksForRun(ctx, CLI.History.RunID)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			status := "ok"
			if !task.Success {
				status = "FAILED: " + task.Error
			}
			fmt.Printf("%-4s %-10s %-20s %8s  %s\n",
				task.Language, task.Flavor, task.Format, task.Duration.Round(time.Millisecond), status)
		}
		return nil
	}

	runs, err := store.RecentRuns(ctx, CLI.History.Limit)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %s  %-7s %d/%d succeeded\n",
			run.ID, run.StartedAt.Format(time.RFC3339), run.State,
			run.Succeeded, run.Succeeded+run.Failed)
	}
	return nil
}
