package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

const (
	// maxPathWidth caps path cells so one long path does not blow up the
	// whole table. Truncated cells end in "...".
	maxPathWidth = 48

	// notesWrapWidth is the word-wrap width for notes in the detail view.
	notesWrapWidth = 72

	timestampLayout = "2006-01-02 15:04:05 MST"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	doubletStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	tripletStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// ConfigureColor applies the output.color setting: "never" strips styling,
// "always" forces ANSI colors, and "auto" follows the terminal and the
// NO_COLOR convention.
func ConfigureColor(mode string) {
	switch mode {
	case "never":
		lipgloss.SetColorProfile(termenv.Ascii)
	case "always":
		lipgloss.SetColorProfile(termenv.ANSI256)
	default:
		if termenv.EnvNoColor() {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	}
}

// Formatter renders registry output as a styled table or indented JSON.
type Formatter struct {
	writer io.Writer
	json   bool
}

// NewFormatter creates a formatter. jsonOutput switches every Format
// method from table rendering to indented JSON.
func NewFormatter(writer io.Writer, jsonOutput bool) *Formatter {
	return &Formatter{writer: writer, json: jsonOutput}
}

// FormatRuns renders a run listing.
func (f *Formatter) FormatRuns(runs []RunDTO) error {
	if f.json {
		return f.encode(runs)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(f.writer, mutedStyle.Render("no runs registered"))
		return err
	}

	headers := []string{"ID", "STAGE", "SIZE", "GRAPHS", "DURATION", "UPSTREAM", "RESULT"}
	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			strconv.FormatInt(run.ID, 10),
			styleStage(run.Stage),
			orDash(run.SizeClass),
			formatCount(run.GraphCount),
			orDash(run.TrainingDuration),
			formatUpstream(run.UpstreamID),
			truncatePath(run.ResultPath),
		}
	}
	return f.renderTable(headers, rows)
}

// FormatRun renders the full detail of one run, notes word-wrapped.
func (f *Formatter) FormatRun(run RunDTO) error {
	if f.json {
		return f.encode(run)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Run %d", run.ID)))
	b.WriteString("\n")
	field := func(label, value string) {
		fmt.Fprintf(&b, "  %-9s %s\n", label+":", value)
	}
	field("Stage", styleStage(run.Stage))
	field("Size", orDash(run.SizeClass))
	field("Graphs", formatCount(run.GraphCount))
	field("Duration", orDash(run.TrainingDuration))
	field("Dataset", run.DatasetPath)
	field("Result", run.ResultPath)
	field("Upstream", formatUpstream(run.UpstreamID))
	field("Created", run.CreatedAt.Format(timestampLayout))
	field("Updated", run.UpdatedAt.Format(timestampLayout))
	if run.Notes != "" {
		b.WriteString("  Notes:\n")
		for _, line := range strings.Split(wordwrap.String(run.Notes, notesWrapWidth), "\n") {
			b.WriteString("    " + line + "\n")
		}
	}
	_, err := io.WriteString(f.writer, b.String())
	return err
}

// FormatLineage renders the ancestor chain of a run.
func (f *Formatter) FormatLineage(lineage LineageDTO) error {
	if f.json {
		return f.encode(lineage)
	}
	if len(lineage.Ancestors) == 0 {
		_, err := fmt.Fprintln(f.writer,
			mutedStyle.Render(fmt.Sprintf("run %d has no upstream lineage", lineage.RunID)))
		return err
	}

	title := fmt.Sprintf("Lineage of run %d (%d ancestor%s)",
		lineage.RunID, len(lineage.Ancestors), plural(len(lineage.Ancestors)))
	if _, err := fmt.Fprintln(f.writer, headerStyle.Render(title)); err != nil {
		return err
	}

	headers := []string{"ID", "STAGE", "SIZE", "DURATION", "RESULT"}
	rows := make([][]string, len(lineage.Ancestors))
	for i, run := range lineage.Ancestors {
		rows[i] = []string{
			strconv.FormatInt(run.ID, 10),
			styleStage(run.Stage),
			orDash(run.SizeClass),
			orDash(run.TrainingDuration),
			truncatePath(run.ResultPath),
		}
	}
	return f.renderTable(headers, rows)
}

// FormatImports renders the import audit trail, newest first.
func (f *Formatter) FormatImports(imports []ImportDTO) error {
	if f.json {
		return f.encode(imports)
	}
	if len(imports) == 0 {
		_, err := fmt.Fprintln(f.writer, mutedStyle.Render("no imports recorded"))
		return err
	}

	headers := []string{"BATCH", "SOURCE", "RUNS", "IMPORTED"}
	rows := make([][]string, len(imports))
	for i, imp := range imports {
		rows[i] = []string{
			imp.BatchID,
			truncatePath(imp.Source),
			strconv.FormatInt(imp.RunCount, 10),
			imp.CreatedAt.Format(timestampLayout),
		}
	}
	return f.renderTable(headers, rows)
}

// LineageSummary renders a run's ancestry as a single muted line, used by
// watch-mode listings under the main table. Emits nothing in JSON mode or
// when the run has no ancestors.
func (f *Formatter) LineageSummary(runID int64, ancestors []RunDTO) error {
	if f.json || len(ancestors) == 0 {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "run %d", runID)
	for _, run := range ancestors {
		fmt.Fprintf(&b, " <- run %d (%s)", run.ID, truncatePath(run.ResultPath))
	}
	_, err := fmt.Fprintln(f.writer, mutedStyle.Render(b.String()))
	return err
}

// Success prints a confirmation line for a completed mutation.
func (f *Formatter) Success(msg string) {
	_, _ = fmt.Fprintln(f.writer, successStyle.Render(msg))
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// renderTable lays out rows in aligned columns. Width math goes through
// lipgloss.Width so styled cells measure by visible characters, not bytes.
func (f *Formatter) renderTable(headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		b.WriteString("\n")
	}

	styled := make([]string, len(headers))
	for i, h := range headers {
		styled[i] = headerStyle.Render(h)
	}
	writeRow(styled)
	for _, row := range rows {
		writeRow(row)
	}

	_, err := io.WriteString(f.writer, b.String())
	return err
}

func styleStage(stage string) string {
	switch stage {
	case "doublet":
		return doubletStyle.Render(stage)
	case "triplet":
		return tripletStyle.Render(stage)
	default:
		return stage
	}
}

func orDash(s string) string {
	if s == "" {
		return mutedStyle.Render("-")
	}
	return s
}

func formatCount(c *int64) string {
	if c == nil {
		return mutedStyle.Render("-")
	}
	return strconv.FormatInt(*c, 10)
}

func formatUpstream(u *int64) string {
	if u == nil {
		return mutedStyle.Render("-")
	}
	return strconv.FormatInt(*u, 10)
}

func truncatePath(p string) string {
	return runewidth.Truncate(p, maxPathWidth, "...")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
