package console

import (
	"fmt"
	"strings"

	"github.com/example/forgery-check/internal/workflow"
)

// FormatScreen draws the full screen as text.
func FormatScreen(s workflow.Screen) string {
	var b strings.Builder
	fmt.Fprintf(&b, "==== %s ====\n", s.Title)
	if s.HasImage {
		fmt.Fprintf(&b, "[ image: %s ]\n", s.ImageWell)
	} else {
		fmt.Fprintf(&b, "[ %s ]\n", s.ImageWell)
	}
	trigger := s.TriggerLabel
	if !s.TriggerEnabled {
		trigger += " (disabled)"
	}
	fmt.Fprintf(&b, "( %s )\n", trigger)
	if s.HasStatus {
		fmt.Fprintf(&b, "%s\n", statusLine(s))
	}
	if s.Notice != "" {
		fmt.Fprintf(&b, "! %s\n", s.Notice)
	}
	return b.String()
}

func formatChanges(prev, next workflow.Screen) string {
	var b strings.Builder
	if prev.ImageWell != next.ImageWell {
		if next.HasImage {
			fmt.Fprintf(&b, "[ image: %s ]\n", next.ImageWell)
		} else {
			fmt.Fprintf(&b, "[ %s ]\n", next.ImageWell)
		}
	}
	if next.HasStatus && (prev.Status != next.Status || !prev.HasStatus) {
		fmt.Fprintf(&b, "%s\n", statusLine(next))
	}
	if prev.Notice != next.Notice && next.Notice != "" {
		fmt.Fprintf(&b, "! %s\n", next.Notice)
	}
	return b.String()
}

// EmptyResult stands in for a blank label so the waiting line is visibly replaced.
const EmptyResult = "(empty result)"

func statusLine(s workflow.Screen) string {
	if s.Status == "" {
		return EmptyResult
	}
	return s.Status
}
