package opgateway

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"opgateway/style"
)

// RenderFooter renders a footer with the position, active filters and source.
// A message, when there is one, takes the place of the position.
func RenderFooter(current, total, filters int, source, msg string, width int) string {

	left := fmt.Sprintf("%d/%d", current, total)
	if filters > 0 {
		left += fmt.Sprintf("  %d filter", filters)
		if filters > 1 {
			left += "s"
		}
	}
	if msg != "" {
		left = msg
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(source), 0)
	return style.MutedStyle.Render(left + strings.Repeat(" ", padding) + source)
}
