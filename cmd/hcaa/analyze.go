// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/hcaa/internal/config"
	"github.com/kraklabs/hcaa/internal/errors"
	"github.com/kraklabs/hcaa/internal/output"
	"github.com/kraklabs/hcaa/internal/ui"
	"github.com/kraklabs/hcaa/pkg/cache"
	"github.com/kraklabs/hcaa/pkg/pipeline"
)

// runAnalyze executes the 'analyze' CLI command: it resolves
// configuration, builds the optional disk-backed result cache, and runs
// the full six-stage pipeline against the given project root.
//
// Flags:
//   - --no-grounding: force-disable stage 5 regardless of config/env
//   - --provider: LLM provider for stage 5 (ollama, openai, anthropic, mock)
//   - --model: model name passed to the grounding provider
//   - --exclude: additional glob patterns excluded from segment extraction
//   - --parse-workers: size of the stage-2 parse worker pool
//   - --cache-dir: where cached analysis results are stored
//   - --no-cache: skip the cache entirely
//
// Examples:
//
//	hcaa analyze .
//	hcaa analyze ./my-project --json
//	hcaa analyze . --no-grounding
func runAnalyze(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	noGrounding := fs.Bool("no-grounding", false, "Skip stage 5 LLM grounding, even if configured")
	provider := fs.String("provider", "", "LLM provider for grounding (ollama, openai, anthropic, mock)")
	model := fs.String("model", "", "Model name for the grounding provider")
	exclude := fs.StringSlice("exclude", nil, "Additional glob pattern to exclude from analysis (repeatable)")
	parseWorkers := fs.Int("parse-workers", 0, "Number of parallel segment-extraction workers (default: NumCPU)")
	cacheDir := fs.String("cache-dir", "", "Directory for the cached analysis result store")
	noCache := fs.Bool("no-cache", false, "Skip the result cache entirely")
	timeout := fs.Duration("timeout", 10*time.Minute, "Overall timeout for the analysis run")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: hcaa analyze [path] [options]

Runs the six-stage hierarchical context-aware analysis pipeline against
path (default: current directory) and prints the fused result.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	root := "."
	if rest := fs.Args(); len(rest) > 0 {
		root = rest[0]
	}

	logLevel := slog.LevelWarn
	switch {
	case globals.Verbose >= 2:
		logLevel = slog.LevelDebug
	case globals.Verbose == 1:
		logLevel = slog.LevelInfo
	}
	if globals.Quiet {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	overrides := config.Config{
		ExcludeGlobs: *exclude,
		ParseWorkers: *parseWorkers,
		JSON:         globals.JSON,
		NoColor:      globals.NoColor,
	}
	if *provider != "" {
		overrides.LLM.Provider = *provider
		overrides.LLM.Enabled = true
	}
	if *model != "" {
		overrides.LLM.Model = *model
	}
	if *cacheDir != "" {
		overrides.Cache.Dir = *cacheDir
	}

	cfg, err := config.Load(root, overrides)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
	if *noGrounding {
		cfg.LLM.Enabled = false
	}
	if *noCache {
		cfg.Cache.Enabled = false
	}

	var store cache.Store
	if cfg.Cache.Enabled {
		dir := cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.ProjectRoot, dir)
		}
		diskStore, err := cache.NewDiskStore(dir)
		if err != nil {
			logger.Warn("analyze.cache.init.error", "err", err)
		} else {
			store = diskStore
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("analyze.shutdown.signal", "signal", sig.String())
		cancel()
	}()

	if !globals.JSON {
		ui.Header("Hierarchical Context-Aware Analysis")
		ui.Info(fmt.Sprintf("Analyzing %s", cfg.ProjectRoot))
	}

	progress := NewProgressConfig(globals)
	spinner := NewStageSpinner(progress, "Running analysis pipeline")
	if spinner != nil {
		defer spinner.Finish()
		go spinAnimate(ctx, spinner)
	}

	p := pipeline.New(cfg, logger, store)
	result, err := p.Run(ctx)
	if err != nil {
		errors.FatalError(errors.NewInternalError(
			"Analysis failed",
			err.Error(),
			"Check the logs with -v for the failing stage, or retry with --no-grounding",
			err,
		), globals.JSON)
	}

	if globals.JSON {
		if err := output.JSON(result.Fused); err != nil {
			errors.FatalError(err, true)
		}
		return
	}

	printSummary(result)
}

// spinAnimate advances bar at a steady cadence until ctx is done, giving
// the user visual feedback during the pipeline's blocking stages even
// though the pipeline itself reports progress only through logging.
func spinAnimate(ctx context.Context, bar interface{ Add(int) error }) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

// printSummary renders the fused result as a human-readable terminal
// report.
func printSummary(result *pipeline.Result) {
	fused := result.Fused

	fmt.Println()
	ui.SubHeader("Project")
	fmt.Printf("  %s %s\n", ui.Label("Type:"), fused.ProjectContext.ProjectType)
	if fused.ProjectContext.Purpose != "" {
		fmt.Printf("  %s %s\n", ui.Label("Purpose:"), fused.ProjectContext.Purpose)
	}

	if len(fused.Frameworks) > 0 {
		fmt.Println()
		ui.SubHeader("Frameworks")
		for _, f := range fused.Frameworks {
			fmt.Printf("  %s (%.0f%% confidence)\n", f.Name, f.Confidence*100)
		}
	}

	if len(fused.BusinessDomains) > 0 {
		fmt.Println()
		ui.SubHeader("Business Domains")
		for _, d := range fused.BusinessDomains {
			marker := " "
			if d.Domain == fused.PrimaryDomain {
				marker = "*"
			}
			fmt.Printf(" %s %s (%.0f%%, %s)\n", marker, d.Domain, d.Confidence*100, d.Strategy)
		}
	}

	if len(fused.Conflicts) > 0 {
		fmt.Println()
		ui.SubHeader("Documentation Conflicts")
		for _, c := range fused.Conflicts {
			fmt.Printf("  [%s] %s\n", strings.ToUpper(string(c.Severity)), c.Narrative)
		}
	}

	fmt.Println()
	ui.SubHeader("Readiness")
	fmt.Printf("  %s %.0f%%\n", ui.Label("Score:"), fused.ReadinessScore*100)

	if len(fused.Diagnostics) > 0 {
		fmt.Println()
		ui.SubHeader("Diagnostics")
		for _, d := range fused.Diagnostics {
			switch d.Severity {
			case "error":
				ui.Errorf("%s: %s", d.Component, d.Message)
			default:
				ui.Warningf("%s: %s", d.Component, d.Message)
			}
		}
	}

	fmt.Println()
	fmt.Printf("Completed in %s\n", ui.DimText(time.Duration(fused.Timing.TotalMS)*time.Millisecond))

	if fused.HasErrorDiagnostic() {
		os.Exit(errors.ExitInternal)
	}
}
