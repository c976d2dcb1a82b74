package narration

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/RyanBlaney/rdstat/logging"
)

// Severity levels attached to anomalies.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// SignalSummary is the single trace handed to a Narrator, usually the
// trial-averaged primary channel of an upload.
type SignalSummary struct {
	Signal   []float64      `json:"signal"`
	Times    []float64      `json:"times"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Anomaly marks one sample worth a reader's attention.
type Anomaly struct {
	Time        float64 `json:"time"`
	Index       int     `json:"index"`
	Severity    string  `json:"severity"`
	Description string  `json:"description"`
	ZScore      float64 `json:"z_score"`
}

// Narrative is a narrator's description of a signal.
type Narrative struct {
	Success   bool      `json:"success"`
	Anomalies []Anomaly `json:"anomalies"`
	Summary   string    `json:"summary"`
	Analysis  string    `json:"analysis"`
}

// Narrator turns a signal into prose and flagged samples. Implementations
// must not modify the summary they are given.
type Narrator interface {
	Narrate(ctx context.Context, summary SignalSummary) (*Narrative, error)
}

// Markdown renders the narrative as a markdown document.
func (n *Narrative) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Summary\n\n%s\n\n", n.Summary)
	if n.Analysis != "" {
		fmt.Fprintf(&b, "## Analysis\n\n%s\n\n", n.Analysis)
	}
	if len(n.Anomalies) == 0 {
		return b.String()
	}

	b.WriteString("## Anomalies\n\n")
	b.WriteString("| Time (s) | Index | Severity | Description |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, a := range n.Anomalies {
		fmt.Fprintf(&b, "| %.3f | %d | %s | %s |\n", a.Time, a.Index, a.Severity, a.Description)
	}
	return b.String()
}

// HTML renders Markdown() to an HTML fragment.
func (n *Narrative) HTML() string {
	return string(RenderHTML(n.Markdown()))
}

// RenderHTML converts markdown text to HTML with tables enabled.
func RenderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

// FallbackNarrator tries Primary and answers with Fallback when it fails.
type FallbackNarrator struct {
	Primary  Narrator
	Fallback Narrator
	logger   logging.Logger
}

// NewFallbackNarrator creates a narrator that never fails because of primary.
func NewFallbackNarrator(primary, fallback Narrator) *FallbackNarrator {
	return &FallbackNarrator{
		Primary:  primary,
		Fallback: fallback,
		logger:   logging.WithFields(logging.Fields{"component": "narration"}),
	}
}

func (f *FallbackNarrator) Narrate(ctx context.Context, summary SignalSummary) (*Narrative, error) {
	if f.Primary != nil {
		n, err := f.Primary.Narrate(ctx, summary)
		if err == nil {
			return n, nil
		}
		f.logger.WithContext(ctx).Warn("primary narrator failed, using fallback", logging.Fields{"error": err.Error()})
	}
	return f.Fallback.Narrate(ctx, summary)
}
