package export

import (
	"fmt"
	"strings"
)

// Mermaid draws a workflow template as a left-to-right flowchart. With a
// quality gate the chart loops from the gate back to the first stage.
func Mermaid(name string, stages []string, gated bool) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	fmt.Fprintf(&sb, "  start([%q])\n", name)

	prev := "start"
	for i, s := range stages {
		id := fmt.Sprintf("S%d", i)
		fmt.Fprintf(&sb, "  %s[%q]\n", id, s)
		fmt.Fprintf(&sb, "  %s --> %s\n", prev, id)
		prev = id
	}

	if gated {
		sb.WriteString("  qa{\"qa gate\"}\n")
		fmt.Fprintf(&sb, "  %s --> qa\n", prev)
		sb.WriteString("  qa -->|pass| done([\"done\"])\n")
		if len(stages) > 0 {
			sb.WriteString("  qa -->|regenerate| S0\n")
		}
		return sb.String()
	}
	fmt.Fprintf(&sb, "  %s --> done([\"done\"])\n", prev)
	return sb.String()
}
