package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/hylla/stageboard/internal/domain"
)

// markdownRenderer renders the item detail document and recreates the renderer when wrap width changes.
type markdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// render converts markdown input into ANSI-styled terminal text with the requested wrap width.
func (r *markdownRenderer) render(markdown string, width int) string {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return ""
	}

	wrapWidth := max(width, 24)
	if r.renderer == nil || r.width != wrapWidth {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(wrapWidth),
		)
		if err != nil {
			return markdown
		}
		r.renderer = renderer
		r.width = wrapWidth
	}

	rendered, err := r.renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(rendered, "\n")
}

// itemDocument builds the markdown shown in the detail panel.
func itemDocument(item domain.Item, stage domain.Stage, history []domain.StatusEvent, historyErr error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", item.Title)
	fmt.Fprintf(&b, "- **id:** `%s`\n", item.ID)
	fmt.Fprintf(&b, "- **stage:** %s (`%s`)\n", stage.Name, stage.Status)
	fmt.Fprintf(&b, "- **priority:** %s\n", item.Priority)
	if item.TargetDate != nil {
		fmt.Fprintf(&b, "- **target:** %s\n", item.TargetDate.Format(time.DateOnly))
	}
	if item.Category != "" {
		fmt.Fprintf(&b, "- **category:** %s\n", item.Category)
	}
	if item.Area != "" {
		fmt.Fprintf(&b, "- **area:** %s\n", item.Area)
	}
	if len(item.Tags) > 0 {
		fmt.Fprintf(&b, "- **tags:** %s\n", strings.Join(item.Tags, ", "))
	}
	if desc := strings.TrimSpace(item.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}

	switch {
	case historyErr != nil:
		fmt.Fprintf(&b, "\n## History\n\n_unavailable: %s_\n", historyErr.Error())
	case len(history) > 0:
		b.WriteString("\n## History\n\n")
		for _, event := range history {
			from := event.FromStatus
			if from == "" {
				from = "∅"
			}
			fmt.Fprintf(&b, "- %s %s: %s → %s\n", event.OccurredAt.UTC().Format(time.DateTime), event.Operation, from, event.ToStatus)
		}
	}
	return b.String()
}
