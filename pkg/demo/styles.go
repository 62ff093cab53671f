package demo

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

var (
	colorAccent  = lipgloss.Color("#0969da")
	colorError   = lipgloss.Color("#cf222e")
	colorSuccess = lipgloss.Color("#1a7f37")
	colorMuted   = lipgloss.Color("#656d76")
)

// styles are bound to the writer a Run prints to, so colors are dropped when
// it is not a terminal.
type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	prompt  lipgloss.Style
	correct lipgloss.Style
	wrong   lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true),
		heading: r.NewStyle().Bold(true).Foreground(colorAccent),
		prompt:  r.NewStyle().Bold(true),
		correct: r.NewStyle().Foreground(colorSuccess),
		wrong:   r.NewStyle().Bold(true).Foreground(colorError),
		dim:     r.NewStyle().Foreground(colorMuted),
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newMarkdownRenderer returns a glamour renderer for w. Without a terminal
// the plain no-TTY style is used.
func newMarkdownRenderer(w io.Writer, width int) (*glamour.TermRenderer, error) {
	style, profile := glamourstyles.NoTTYStyleConfig, termenv.Ascii
	if isTerminal(w) {
		style, profile = glamourstyles.DarkStyleConfig, termenv.TrueColor
	}
	return glamour.NewTermRenderer(
		glamour.WithStyles(markdownStyle(style)),
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(width),
	)
}

// markdownStyle drops the document margin so rendered blocks line up with
// the rest of the output.
func markdownStyle(style ansi.StyleConfig) ansi.StyleConfig {
	var margin uint
	style.Document.Margin = &margin
	return style
}

// column pads s with spaces to width terminal cells.
func column(s string, width int) string {
	return runewidth.FillRight(s, width)
}
