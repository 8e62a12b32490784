// cli/summary.go

package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"RekordPdbPatcher/pipeline"

	"github.com/charmbracelet/lipgloss"
)

type summaryStyles struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
}

func newSummaryStyles(out io.Writer) summaryStyles {
	r := lipgloss.NewRenderer(out)
	return summaryStyles{
		title: r.NewStyle().Bold(true),
		label: r.NewStyle().Width(12),
		ok:    r.NewStyle().Foreground(lipgloss.Color("10")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("11")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// printReport writes the end-of-run summary
func printReport(out io.Writer, report *pipeline.Report, logPath string) {
	st := newSummaryStyles(out)
	var b strings.Builder

	title := fmt.Sprintf("Run %s (%s", report.RunID, report.Mode)
	if report.Strategy != "" {
		title += ", " + report.Strategy
	}
	if report.DryRun {
		title += ", dry run"
	}
	title += ")"
	b.WriteString(st.title.Render(title) + "\n")

	line := func(label, text string) {
		b.WriteString(st.label.Render(label) + text + "\n")
	}

	if report.Mode.Converts() {
		d := report.Discovery
		line("Discovery", fmt.Sprintf("%d to convert, %d already compatible, %d ignored, %d hidden skipped",
			len(d.Convertible), len(d.Compatible), d.Ignored, d.HiddenSkipped))
	}

	if report.Mode.Converts() && !report.DryRun {
		c := report.Conversion
		text := st.ok.Render(fmt.Sprintf("%d succeeded", c.Succeeded))
		if c.Failed > 0 {
			text += ", " + st.fail.Render(fmt.Sprintf("%d failed", c.Failed))
			text += fmt.Sprintf(" (%d storage errors, %d timeouts)", c.IOFailures, c.Timeouts)
		} else {
			text += ", 0 failed"
		}
		if c.OriginalsKept > 0 {
			text += ", " + st.warn.Render(fmt.Sprintf("%d originals could not be removed", c.OriginalsKept))
		}
		line("Conversion", text)
	}

	if len(report.Mapping) > 0 {
		line("Mapping", report.Mapping.String())
	}

	if report.Mode.Patches() {
		if report.DryRun {
			writeReferences(line, report)
		} else {
			text := fmt.Sprintf("%d of %d catalog file(s) rewritten, %d reference(s) replaced",
				report.Patched, len(report.Targets), report.Replaced)
			if report.NoReferences > 0 {
				text += fmt.Sprintf(", %d extension(s) without references", report.NoReferences)
			}
			if report.PatchErrors > 0 {
				text += ", " + st.fail.Render(fmt.Sprintf("%d error(s)", report.PatchErrors))
			}
			line("Catalog", text)
		}
	}

	if lib := report.Library; lib != nil {
		text := fmt.Sprintf("%s: %d row reference(s) in %d table(s)", lib.Mode, lib.TotalHits(), lib.Tables)
		if lib.Updated > 0 {
			text += fmt.Sprintf(", %d row(s) rewritten, backup %s", lib.Updated, filepath.Base(lib.BackupPath))
		}
		line("Library", text)
	}

	if failures := report.FailureLines(pipeline.DefaultFailureLines, pipeline.DefaultDiagnosticLength); len(failures) > 0 {
		b.WriteString(st.fail.Render("Failures") + "\n")
		for _, f := range failures {
			b.WriteString("  - " + f + "\n")
		}
		if more := report.RemainingFailures(pipeline.DefaultFailureLines); more > 0 {
			b.WriteString(fmt.Sprintf("  ... and %d more, see the log\n", more))
		}
	}

	if logPath != "" {
		line("Log", logPath)
	}

	fmt.Fprint(out, b.String())
}

func writeReferences(line func(label, text string), report *pipeline.Report) {
	targets := make([]string, 0, len(report.References))
	for target := range report.References {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		counts := report.References[target]
		parts := make([]string, 0, len(counts))
		for _, ext := range report.Mapping.Olds() {
			parts = append(parts, fmt.Sprintf("%s x%d", ext, counts[ext]))
		}
		line("Catalog", fmt.Sprintf("%s would change: %s", filepath.Base(target), strings.Join(parts, ", ")))
	}
}
