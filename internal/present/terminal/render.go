package terminal

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/cogtask/internal/ir"
)

// Fallback screen size until the terminal reports its own.
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Arrow glyphs standing in for the rotated arrow image.
const (
	glyphRight = "\u2192"
	glyphLeft  = "\u2190"
)

// inkColors maps Stroop ink to terminal colours.
var inkColors = map[ir.Color]lipgloss.Color{
	ir.ColorBlue:   lipgloss.Color("#1E63D6"),
	ir.ColorRed:    lipgloss.Color("#D62828"),
	ir.ColorYellow: lipgloss.Color("#F2C200"),
	ir.ColorGreen:  lipgloss.Color("#2A9D3F"),
}

var (
	stroopStyle      = lipgloss.NewStyle().Bold(true)
	instructionStyle = lipgloss.NewStyle().Align(lipgloss.Center)
)

// Render draws stimuli centred on a width x height screen.
//
// Image stimuli are arrows laid out on one row; their normalised x maps to
// a column. Text stimuli are stacked and centred. Large text (Stroop words)
// is bold and drawn in its ink colour; small text (instructions) wraps.
func Render(stimuli []ir.Stimulus, width, height int) string {
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	if len(stimuli) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, "")
	}

	var (
		row    []rune
		blocks []string
	)
	for _, s := range stimuli {
		switch s.Kind {
		case ir.StimulusImage:
			if row == nil {
				row = []rune(strings.Repeat(" ", width))
			}
			glyph := []rune(arrowGlyph(s.Orientation))[0]
			row[column(s.X, width)] = glyph
		case ir.StimulusText:
			blocks = append(blocks, renderText(s, width))
		}
	}
	if row != nil {
		blocks = append(blocks, strings.TrimRight(string(row), " "))
	}

	body := lipgloss.JoinVertical(lipgloss.Center, blocks...)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

func renderText(s ir.Stimulus, width int) string {
	if c, ok := inkColors[s.Color]; ok {
		return stroopStyle.Foreground(c).Render(strings.ToUpper(s.Text))
	}
	w := width - 4
	if w > 60 {
		w = 60
	}
	if w < 1 {
		w = 1
	}
	return instructionStyle.Width(w).Render(s.Text)
}

// arrowGlyph returns the arrow for a rotation of the right-pointing base.
func arrowGlyph(orientation int) string {
	if ((orientation%360)+360)%360 == 180 {
		return glyphLeft
	}
	return glyphRight
}

// column maps a normalised x in [-1, 1] to a screen column.
func column(x float64, width int) int {
	col := int((x + 1) / 2 * float64(width))
	if col < 0 {
		return 0
	}
	if col >= width {
		return width - 1
	}
	return col
}
