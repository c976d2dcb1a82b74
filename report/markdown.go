package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/RyanBlaney/rdstat/analysis"
	"github.com/RyanBlaney/rdstat/narration"
)

// Markdown summarises a comparison: group table, alpha metrics as
// mean ± sem, and the significant clusters with their time spans.
func Markdown(cmp *analysis.Comparison) string {
	var b strings.Builder
	a, g := cmp.A, cmp.B

	fmt.Fprintf(&b, "# %s vs %s\n\n", a.Label, g.Label)
	fmt.Fprintf(&b, "Run `%s`, %d channels at %d Hz, %d samples.\n\n",
		cmp.ID, len(cmp.Channels), cmp.SampleRate, len(cmp.Times))

	b.WriteString("| | " + a.Label + " | " + g.Label + " |\n")
	b.WriteString("|---|---|---|\n")
	fmt.Fprintf(&b, "| Subjects | %d | %d |\n", len(a.Subjects), len(g.Subjects))
	fmt.Fprintf(&b, "| Alpha power | %s | %s |\n",
		meanSEM(float64(a.AlphaPowerMean), float64(a.AlphaPowerSEM), 4),
		meanSEM(float64(g.AlphaPowerMean), float64(g.AlphaPowerSEM), 4))
	fmt.Fprintf(&b, "| Peak alpha (Hz) | %s | %s |\n",
		meanSEM(float64(a.PeakAlphaMean), float64(a.PeakAlphaSEM), 2),
		meanSEM(float64(g.PeakAlphaMean), float64(g.PeakAlphaSEM), 2))

	b.WriteString("\n## Significant clusters\n\n")
	if len(cmp.Significant) == 0 {
		b.WriteString("None.\n")
		return b.String()
	}
	b.WriteString("| Channel | From (s) | To (s) | Mass | p |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, sc := range cmp.Significant {
		fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.2f | %.4f |\n",
			sc.Channel, at(cmp.Times, sc.Start), at(cmp.Times, sc.End-1), sc.Mass, sc.PValue)
	}
	return b.String()
}

// HTML renders Markdown(cmp).
func HTML(cmp *analysis.Comparison) string {
	return string(narration.RenderHTML(Markdown(cmp)))
}

func meanSEM(mean, sem float64, digits int) string {
	if math.IsNaN(mean) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f ± %.*f", digits, mean, digits, sem)
}
