package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cipher-shad0w/google-chat-cli/internal/reconcile"
)

// Palette holds the colors of one theme (ANSI-256 codes or hex).
type Palette struct {
	Foreground   string
	Muted        string
	Accent       string
	Unread       string
	Selected     string
	ActiveBorder string
	Border       string
	Link         string
	CodeBg       string
	Info         string
	Warning      string
	Error        string
}

// Themes lists available palettes by name.
var Themes = map[string]Palette{
	"dark": {
		Foreground:   "252",
		Muted:        "243",
		Accent:       "75",
		Unread:       "42",
		Selected:     "237",
		ActiveBorder: "75",
		Border:       "240",
		Link:         "#5b9bd5",
		CodeBg:       "#2a2a2a",
		Info:         "75",
		Warning:      "214",
		Error:        "203",
	},
	"light": {
		Foreground:   "235",
		Muted:        "245",
		Accent:       "25",
		Unread:       "28",
		Selected:     "254",
		ActiveBorder: "25",
		Border:       "250",
		Link:         "#1f5fa8",
		CodeBg:       "#e8e8e8",
		Info:         "25",
		Warning:      "130",
		Error:        "160",
	},
}

// ThemeNames returns the known theme names.
func ThemeNames() []string {
	return []string{"dark", "light"}
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	palette Palette

	Text     lipgloss.Style
	Muted    lipgloss.Style
	Title    lipgloss.Style
	Unread   lipgloss.Style
	Selected lipgloss.Style
	Sender   lipgloss.Style
	Bold     lipgloss.Style
	Link     lipgloss.Style
	Code     lipgloss.Style
	Header   lipgloss.Style
	Prompt   lipgloss.Style
	Italic   lipgloss.Style
	Strike   lipgloss.Style

	// Footer lines.
	PromptLine lipgloss.Style
	Hint       lipgloss.Style
}

// NewStyles builds styles for a theme name; unknown names use dark.
// lipgloss v0.10 styles share their rules between copies, so derived looks
// get their own style here instead of being chained onto a field at render
// time.
func NewStyles(theme string) Styles {
	palette, ok := Themes[strings.ToLower(strings.TrimSpace(theme))]
	if !ok {
		palette = Themes["dark"]
	}
	return Styles{
		palette:  palette,
		Text:     lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Foreground)),
		Muted:    lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Muted)),
		Title:    lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Bold(true),
		Unread:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Unread)).Bold(true),
		Selected: lipgloss.NewStyle().Background(lipgloss.Color(palette.Selected)).Bold(true),
		Sender:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Foreground)).Bold(true),
		Bold:     lipgloss.NewStyle().Bold(true),
		Link:     lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Link)).Underline(true),
		Code:     lipgloss.NewStyle().Background(lipgloss.Color(palette.CodeBg)),
		Header:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Bold(true).Padding(0, 1),
		Prompt:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)),
		Italic:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Foreground)).Italic(true),
		Strike:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Foreground)).Strikethrough(true),

		PromptLine: lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Accent)).Padding(0, 1),
		Hint:       lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Muted)).Padding(0, 1),
	}
}

// Pane returns the border style of a pane.
func (s Styles) Pane(active bool, width, height int) lipgloss.Style {
	border := s.palette.Border
	if active {
		border = s.palette.ActiveBorder
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Width(maxInt(0, width-2)).
		Height(maxInt(0, height-2))
}

// Notice returns the style of a transient notice.
func (s Styles) Notice(severity reconcile.Severity) lipgloss.Style {
	color := s.palette.Info
	switch severity {
	case reconcile.SeverityWarning:
		color = s.palette.Warning
	case reconcile.SeverityError:
		color = s.palette.Error
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Padding(0, 1)
}

const (
	minSpacesWidth = 18
	maxSpacesWidth = 36
	inputHeight    = 5
)

// spacesWidth returns the width of the space list column.
func spacesWidth(total int) int {
	if total <= 0 {
		return 0
	}
	return clampInt(total/4, minSpacesWidth, maxSpacesWidth)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
