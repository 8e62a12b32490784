// pipeline/pipeline.go

// Package pipeline sequences a device preparation run: preconditions,
// discovery, conversion, mapping derivation, catalog patching and the optional
// library database step. Phases never overlap.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"RekordPdbPatcher/common"
	"RekordPdbPatcher/converter"
	"RekordPdbPatcher/device"
	"RekordPdbPatcher/discovery"
	"RekordPdbPatcher/formats"
	"RekordPdbPatcher/library"
	"RekordPdbPatcher/pdb"

	"github.com/google/uuid"
)

// Pipeline runs one device preparation. Encoder and Available default to ffmpeg
// and may be replaced before Run.
type Pipeline struct {
	Options   Options
	Logger    *common.Logger
	Encoder   converter.Encoder
	Available func(context.Context) bool
	// Observer receives conversion progress from a single goroutine
	Observer func(converter.Snapshot)
}

// New creates a pipeline using the ffmpeg encoder configured in opts
func New(opts Options, logger *common.Logger) *Pipeline {
	enc := converter.NewFFmpegEncoder(opts.EncoderPath, opts.TaskTimeout, logger)
	return &Pipeline{
		Options:   opts,
		Logger:    logger,
		Encoder:   enc,
		Available: enc.Available,
	}
}

// Run creates a pipeline with the default encoder and runs it
func Run(ctx context.Context, opts Options, logger *common.Logger) (*Report, error) {
	return New(opts, logger).Run(ctx)
}

// prepared holds what the precondition checks found
type prepared struct {
	classifier *formats.Classifier
	layout     device.Layout
	targets    []string
}

// Run executes the phases in order. A returned error is always a
// *PreconditionError and means nothing was modified. Per-file failures are
// recorded in the report instead.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	opts := p.Options
	report := &Report{RunID: newRunID(), Mode: opts.Mode, DryRun: opts.DryRun}
	p.Logger.Info("Run %s started: device=%s mode=%s staged=%t dry-run=%t", report.RunID, opts.DevicePath, opts.Mode, opts.Staged, opts.DryRun)

	pre, err := p.checkPreconditions()
	if err != nil {
		p.Logger.Error("%v", err)
		return report, err
	}
	report.Layout = pre.layout
	report.Targets = pre.targets

	if opts.Mode.Converts() {
		res, err := discovery.Discover(pre.layout.Contents, pre.classifier, p.Logger)
		if err != nil {
			err = precondition(common.OperationDiscovery, err)
			p.Logger.Error("%v", err)
			return report, err
		}
		report.Discovery = res
		p.Logger.Info("Discovery: %d convertible, %d compatible, %d ignored, %d hidden skipped",
			len(res.Convertible), len(res.Compatible), res.Ignored, res.HiddenSkipped)

		if len(res.Convertible) > 0 && !opts.DryRun && !p.Available(ctx) {
			err := precondition(common.OperationPrecondition, fmt.Errorf("%w: %s", ErrEncoderUnavailable, opts.EncoderPath))
			p.Logger.Error("%v", err)
			return report, err
		}
	}

	if opts.DryRun {
		p.dryRun(ctx, pre, report)
		report.Duration = time.Since(start)
		return report, nil
	}

	if opts.Mode.Converts() {
		p.convert(ctx, pre, report)
		report.Mapping = DeriveMapping(report.Results)
	} else {
		report.Mapping = InferMapping(pre.classifier)
	}

	if opts.Mode.Patches() {
		p.patch(pre.targets, report)
		p.libraryStep(ctx, pre.layout, report)
	}

	report.Duration = time.Since(start)
	p.Logger.Info("Run %s finished in %s", report.RunID, report.Duration.Round(time.Millisecond))
	return report, nil
}

func (p *Pipeline) checkPreconditions() (prepared, error) {
	opts := p.Options
	var pre prepared

	classifier, err := formats.Default().WithExtraGroups(opts.ExtraGroups)
	if err != nil {
		return pre, precondition("classifier", err)
	}
	if err := InferMapping(classifier).Validate(); err != nil {
		return pre, precondition("mapping", err)
	}
	pre.classifier = classifier

	layout, err := device.Locate(opts.DevicePath)
	if err != nil {
		return pre, precondition("device", err)
	}
	pre.layout = layout

	if opts.Mode.Converts() {
		if err := layout.RequireContents(); err != nil {
			return pre, precondition("contents", err)
		}
	}

	if opts.Mode.Patches() {
		if err := layout.RequireCatalog(); err != nil {
			return pre, precondition("catalog", err)
		}
		targets, err := pdb.FindTargets(layout.Catalog)
		if err != nil {
			return pre, precondition("catalog", err)
		}
		if len(targets) == 0 {
			return pre, precondition("catalog", fmt.Errorf("%w in %s", ErrNoTargets, layout.Catalog))
		}
		pre.targets = targets
	}

	if !opts.DryRun {
		if err := p.checkWritable(layout); err != nil {
			return pre, err
		}
	}

	return pre, nil
}

// checkWritable makes sure every directory the run writes to accepts new files
func (p *Pipeline) checkWritable(layout device.Layout) error {
	opts := p.Options
	var dirs []string
	if opts.Mode.Converts() {
		dirs = append(dirs, layout.Contents)
		if opts.Staged {
			staging := opts.StagingRoot
			if staging == "" {
				staging = os.TempDir()
			}
			dirs = append(dirs, staging)
		}
	}
	if opts.Mode.Patches() {
		dirs = append(dirs, layout.Catalog)
	}

	for _, dir := range dirs {
		if err := common.IsDirWritable(dir); err != nil {
			return precondition("writable", common.NewIOError("write", dir, err))
		}
	}
	return nil
}

func (p *Pipeline) convert(ctx context.Context, pre prepared, report *Report) {
	opts := p.Options
	tasks := converter.NewTasks(report.Discovery.Convertible)
	if len(tasks) == 0 {
		p.Logger.Info("No files need conversion")
		return
	}

	pool := converter.NewPool(p.Encoder, opts.Concurrency, p.Logger)
	strategy := converter.NewStrategy(opts.Staged, pool, converter.Options{
		KeepOriginals: opts.KeepOriginals,
		ContentRoot:   pre.layout.Contents,
		StagingRoot:   opts.StagingRoot,
		RunID:         report.RunID,
		Logger:        p.Logger,
	})
	report.Strategy = strategy.Name()

	tracker := converter.NewTracker(len(tasks), p.Observer)
	report.Results = strategy.Execute(ctx, tasks, tracker.Updates())
	tracker.Close()

	report.Conversion = converter.Summarize(report.Results)
	p.Logger.Info("Conversion: %d succeeded, %d failed (%d storage errors, %d timeouts), %d originals kept after delete errors",
		report.Conversion.Succeeded, report.Conversion.Failed, report.Conversion.IOFailures,
		report.Conversion.Timeouts, report.Conversion.OriginalsKept)
}

func (p *Pipeline) patch(targets []string, report *Report) {
	if len(report.Mapping) == 0 {
		p.Logger.Info("Nothing was converted, catalog files left unchanged")
		return
	}
	p.Logger.Info("Patching %d catalog file(s): %s", len(targets), report.Mapping)

	patcher := pdb.NewPatcher(p.Logger)
	for _, target := range targets {
		rewritten := false
		for _, o := range patcher.PatchAll(target, report.Mapping.Pairs()) {
			report.Patches = append(report.Patches, o)
			switch {
			case o.Err == nil:
				rewritten = true
				report.Replaced += o.Replaced
			case o.NoReferences():
				report.NoReferences++
			default:
				report.PatchErrors++
				p.Logger.Error("Patching %s (%s -> %s) failed: %v", target, o.OldExt, o.NewExt, o.Err)
			}
		}
		if rewritten {
			report.Patched++
		}
	}
}

func (p *Pipeline) libraryStep(ctx context.Context, layout device.Layout, report *Report) {
	opts := p.Options
	if opts.Library == library.ModeOff || len(report.Mapping) == 0 {
		return
	}
	if layout.LibraryDB == "" {
		p.Logger.Info("No %s on the device, library step skipped", common.FileNameLibraryDB)
		return
	}

	mode := opts.Library
	if opts.DryRun {
		mode = library.ModeInspect
	}
	lib, err := library.Run(ctx, layout.LibraryDB, opts.LibraryKey, mode, report.Mapping.Pairs(), p.Logger)
	report.Library = lib
	if err != nil {
		report.LibraryErr = err
		p.Logger.Error("Library database step failed: %v", err)
	}
}

// dryRun counts the references a real run would replace without writing anything
func (p *Pipeline) dryRun(ctx context.Context, pre prepared, report *Report) {
	mapping := InferMapping(pre.classifier)
	if p.Options.Mode.Converts() {
		mapping = PlanMapping(report.Discovery.Convertible)
	}
	report.Mapping = mapping

	if !p.Options.Mode.Patches() || len(mapping) == 0 {
		return
	}

	report.References = make(map[string]map[string]int, len(pre.targets))
	for _, target := range pre.targets {
		counts, err := pdb.CountReferences(target, mapping.Olds())
		if err != nil {
			report.PatchErrors++
			report.Patches = append(report.Patches, pdb.Outcome{Target: target, Err: err})
			p.Logger.Error("Scanning %s failed: %v", target, err)
			continue
		}
		report.References[target] = counts
	}
	p.libraryStep(ctx, pre.layout, report)
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Restore copies every catalog backup on the device back over its catalog file
// and returns the restored paths
func Restore(devicePath string, logger *common.Logger) ([]string, error) {
	layout, err := device.Locate(devicePath)
	if err != nil {
		return nil, precondition("device", err)
	}
	if err := layout.RequireCatalog(); err != nil {
		return nil, precondition("catalog", err)
	}
	targets, err := pdb.FindTargets(layout.Catalog)
	if err != nil {
		return nil, precondition("catalog", err)
	}

	var restored []string
	for _, target := range targets {
		if !common.FileExists(pdb.BackupPath(target)) {
			continue
		}
		if err := pdb.Restore(target); err != nil {
			return restored, err
		}
		logger.Info("Restored %s from backup", target)
		restored = append(restored, target)
	}
	if len(restored) == 0 {
		return nil, precondition(common.OperationRestore, fmt.Errorf("%w in %s", ErrNoBackups, layout.Catalog))
	}
	return restored, nil
}
