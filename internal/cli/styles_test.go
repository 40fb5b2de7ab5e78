package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	tests := []struct {
		name   string
		format func(string) string
		icon   string
	}{
		{name: "success", format: FormatSuccess, icon: successIcon},
		{name: "error", format: FormatError, icon: errorIcon},
		{name: "warning", format: FormatWarning, icon: warningIcon},
		{name: "info", format: FormatInfo, icon: infoIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.format("Exported 3 twins")
			assert.Contains(t, out, tt.icon+" Exported 3 twins")
		})
	}
}

func TestRenderBox(t *testing.T) {
	out := RenderBox(ChartIcon+" run-1", "model  random_forest\ntwins  1000")

	lines := strings.Split(out, "\n")
	assert.GreaterOrEqual(t, len(lines), 5, "border, title, two content lines, border")
	assert.Contains(t, out, ChartIcon+" run-1")
	assert.Contains(t, out, "random_forest")
	assert.Contains(t, lines[0], "╭")
}
