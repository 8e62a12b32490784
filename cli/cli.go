// cli/cli.go

// Package cli is the headless front end: it parses flags, runs the pipeline
// and prints a summary. Exit status is non-zero only for usage errors and
// failed preconditions.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/pipeline"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// App holds the collaborators of one command line invocation
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Config common.GlobalConfig
	Logger *common.Logger
	// Interactive enables the progress bar
	Interactive bool
	// NewPipeline builds the pipeline for the parsed options
	NewPipeline func(pipeline.Options, *common.Logger) *pipeline.Pipeline
}

// Run is the process entry point for the command line
func Run(args []string) int {
	configMgr, cfgErr := common.OpenAppConfig()
	cfg := common.ApplyEnv(configMgr.GetGlobalConfig())

	logger, err := common.OpenAppLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", common.AppName, err)
		logger = common.NewConsoleLogger(os.Stderr, common.SeverityWarning)
	} else {
		logger.SetConsole(os.Stderr, common.SeverityWarning)
	}
	defer logger.Close()
	common.FlushEarlyLogs(logger)

	if cfgErr != nil {
		logger.Warning("Settings file %s could not be read, using defaults: %v", configMgr.GetConfigPath(), cfgErr)
	}
	common.DetectAndSetLanguage(configMgr, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Config:      cfg,
		Logger:      logger,
		Interactive: isTerminal(os.Stdout),
		NewPipeline: pipeline.New,
	}
	return app.Execute(ctx, args)
}

// Execute parses args, runs the requested operation and returns the exit code
func (a *App) Execute(ctx context.Context, args []string) int {
	opts, err := parseArgs(args, a.Config, a.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitOK
	}
	if err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\nRun with -h for usage.\n", common.AppName, err)
		return ExitUsage
	}

	if opts.verbose {
		a.Logger.SetDebug(true)
		a.Logger.SetConsole(a.Stderr, common.SeverityDebug)
	}

	errorHandler := common.NewErrorHandler(a.Logger)
	errorHandler.SetConsole(a.Stderr)

	if opts.restore {
		return a.restore(opts, errorHandler)
	}

	newPipeline := a.NewPipeline
	if newPipeline == nil {
		newPipeline = pipeline.New
	}
	p := newPipeline(opts.Options, a.Logger)

	var report *pipeline.Report
	if a.Interactive && !opts.noProgress {
		// the progress view owns the terminal while it runs
		a.Logger.SetConsole(nil, common.SeverityCritical)
		report, err = runWithProgress(ctx, p, a.Stdout)
		a.Logger.SetConsole(a.Stderr, common.SeverityWarning)
	} else {
		p.Observer = lineObserver(a.Stdout)
		report, err = p.Run(ctx)
	}

	if err != nil {
		errCtx := common.NewErrorContext(common.ModuleKeyUSBPatcher, common.OperationPrecondition)
		errCtx.Error = err
		errCtx.Severity = common.SeverityCritical
		errCtx.Recoverable = false
		errorHandler.ShowErrorWithContext(errCtx)
		return ExitFailure
	}

	printReport(a.Stdout, report, a.Logger.Path())
	return ExitOK
}

func (a *App) restore(opts options, errorHandler *common.ErrorHandler) int {
	restored, err := pipeline.Restore(opts.DevicePath, a.Logger)
	for _, path := range restored {
		fmt.Fprintf(a.Stdout, "Restored %s\n", path)
	}
	if err != nil {
		errCtx := common.NewErrorContext(common.ModuleKeyUSBPatcher, common.OperationRestore)
		errCtx.Error = err
		errCtx.Severity = common.SeverityCritical
		errorHandler.ShowErrorWithContext(errCtx)
		return ExitFailure
	}
	return ExitOK
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
