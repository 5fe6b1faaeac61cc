package engine

import (
	"regexp"
	"strings"

	"github.com/dalemusser/chorehub/internal/domain/models"
)

// checklistLine matches "- [ ] text", "* [x] text" and "- [X] text".
var checklistLine = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.*?)\s*$`)

// ParseMarkdownChecklist extracts checklist items from markdown. Lines that
// are not checklist items are ignored.
func ParseMarkdownChecklist(text string) []models.ChecklistItem {
	var items []models.ChecklistItem
	for _, line := range strings.Split(text, "\n") {
		m := checklistLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil || m[2] == "" {
			continue
		}
		items = append(items, models.ChecklistItem{
			Text:    m[2],
			Checked: m[1] != " ",
		})
	}
	return items
}

// GenerateMarkdownFromChecklist renders items as "- [ ]"/"- [x]" lines.
func GenerateMarkdownFromChecklist(items []models.ChecklistItem) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		if it.Checked {
			b.WriteString("- [x] ")
		} else {
			b.WriteString("- [ ] ")
		}
		b.WriteString(it.Text)
	}
	return b.String()
}

// resetChecklist returns a copy of items with every box unchecked.
func resetChecklist(items []models.ChecklistItem) []models.ChecklistItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]models.ChecklistItem, len(items))
	for i, it := range items {
		out[i] = models.ChecklistItem{Text: it.Text}
	}
	return out
}
