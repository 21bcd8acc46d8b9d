package formatter

import (
	"fmt"
	"strings"

	"narrative-workers/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

var styled = true

// SetStyled turns terminal styling on or off. narrative-cli disables it
// when stdout is not a terminal.
func SetStyled(on bool) {
	styled = on
}

func render(s lipgloss.Style, text string) string {
	if !styled {
		return text
	}
	return s.Render(text)
}

// SentimentStyle returns the style for a sentiment.
func SentimentStyle(s models.Sentiment) lipgloss.Style {
	switch s {
	case models.SentimentPositive:
		return StyleGreen
	case models.SentimentNegative:
		return StyleRed
	default:
		return StyleYellow
	}
}

// SentimentIndicator renders a colored marker such as "● POSITIVE".
func SentimentIndicator(s models.Sentiment) string {
	if s == "" {
		s = models.SentimentNeutral
	}
	return render(SentimentStyle(s), "● "+strings.ToUpper(string(s)))
}

// Header renders a section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", render(StyleHeader, upper), render(StyleDim, line))
}

func Dim(text string) string {
	return render(StyleDim, text)
}

func Bold(text string) string {
	return render(StyleBold, text)
}

func Accent(text string) string {
	return render(StyleBlue, text)
}
