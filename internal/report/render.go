package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/bringup/internal/bringup"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	skipMark  = "[--]"
	warnMark  = "[??]"
	pending   = "[  ]"
)

// Renderer prints a Document as a human-readable summary.
type Renderer struct {
	title   lipgloss.Style
	section lipgloss.Style
	ok      lipgloss.Style
	failed  lipgloss.Style
	warning lipgloss.Style
	dim     lipgloss.Style
}

// NewRenderer returns a renderer. Without color every style is a no-op.
func NewRenderer(color bool) *Renderer {
	if !color {
		plain := lipgloss.NewStyle()
		return &Renderer{title: plain, section: plain, ok: plain, failed: plain, warning: plain, dim: plain}
	}
	return &Renderer{
		title:   lipgloss.NewStyle().Bold(true).Foreground(colorWhite),
		section: lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		ok:      lipgloss.NewStyle().Foreground(colorGreen),
		failed:  lipgloss.NewStyle().Foreground(colorRed),
		warning: lipgloss.NewStyle().Foreground(colorYellow),
		dim:     lipgloss.NewStyle().Foreground(colorDim),
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes the summary of doc to w.
func (r *Renderer) Render(w io.Writer, doc *Document) {
	status := r.runStyle(doc.Status).Render(string(doc.Status))
	fmt.Fprintf(w, "%s %s\n", r.title.Render("Bring-up "+doc.RunID), status)
	if doc.Cluster != "" {
		fmt.Fprintf(w, "%s\n", r.dim.Render("cluster "+doc.Cluster))
	}
	if doc.Duration != "" {
		fmt.Fprintf(w, "%s\n", r.dim.Render("took "+doc.Duration))
	}

	fmt.Fprintf(w, "\n%s\n", r.section.Render("Phases"))
	for _, p := range doc.Phases {
		line := fmt.Sprintf("%s %s", r.phaseMark(p.Status), p.Name)
		if p.Duration != "" {
			line += " " + r.dim.Render("("+p.Duration+")")
		}
		fmt.Fprintln(w, line)
		for _, op := range p.Operations {
			fmt.Fprintf(w, "    %s %s", r.operationMark(op), op.Name)
			if op.Elapsed != "" {
				fmt.Fprintf(w, " %s", r.dim.Render(op.Elapsed))
			}
			fmt.Fprintln(w)
			if op.Note != "" {
				fmt.Fprintf(w, "         %s\n", r.dim.Render(op.Note))
			}
			if op.Overridden != "" {
				fmt.Fprintf(w, "         %s\n", r.warning.Render("accepted by "+op.Overridden+": "+op.Message))
			} else if op.Message != "" && op.Status != bringup.OperationSucceeded {
				fmt.Fprintf(w, "         %s\n", r.failed.Render(op.Message))
			}
		}
	}

	if len(doc.Outputs) > 0 {
		fmt.Fprintf(w, "\n%s\n", r.section.Render("Outputs"))
		keys := make([]string, 0, len(doc.Outputs))
		for k := range doc.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			values := "(none)"
			if len(doc.Outputs[k]) > 0 {
				values = strings.Join(doc.Outputs[k], ", ")
			}
			fmt.Fprintf(w, "  %s: %s\n", k, values)
		}
	}

	if doc.Error != "" {
		fmt.Fprintf(w, "\n%s %s\n", r.failed.Render("Error:"), doc.Error)
	}
}

func (r *Renderer) runStyle(s bringup.RunStatus) lipgloss.Style {
	switch s {
	case bringup.RunSucceeded:
		return r.ok
	case bringup.RunAborted:
		return r.failed
	default:
		return r.warning
	}
}

func (r *Renderer) phaseMark(s bringup.PhaseStatus) string {
	switch s {
	case bringup.PhaseSucceeded:
		return r.ok.Render(checkMark)
	case bringup.PhaseFailed:
		return r.failed.Render(crossMark)
	case bringup.PhaseAborted:
		return r.dim.Render(pending)
	default:
		return pending
	}
}

func (r *Renderer) operationMark(op Operation) string {
	switch {
	case op.Overridden != "":
		return r.warning.Render(warnMark)
	case op.Status == bringup.OperationSucceeded:
		return r.ok.Render(checkMark)
	case op.Status == bringup.OperationSkipped:
		return r.dim.Render(skipMark)
	case op.Status == bringup.OperationPending || op.Status == bringup.OperationActive:
		return pending
	default:
		return r.failed.Render(crossMark)
	}
}
