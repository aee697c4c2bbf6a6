package graph

import (
	"fmt"
	"strings"

	"github.com/openbmc/ibm-logging/pkg/manager"
)

// GenerateMermaid produces a Mermaid flowchart of entries and the hardware
// they call out. It applies semantic styling:
// - Entry: ((Circle))
// - Callout: [[Subroutine]]
// - Inventory item: [/Parallelogram/]
// Callout to inventory edges are dotted since they are associations.
// Inventory items shared between entries are emitted once.
func GenerateMermaid(entries []manager.EntryView) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	seen := make(map[string]bool)
	for _, e := range entries {
		entryID := sanitizeMermaidID(e.Path)
		label := fmt.Sprintf("entry %d", e.ID)
		if e.Policy.EventID != "" {
			label = fmt.Sprintf("entry %d <br/> %s", e.ID, e.Policy.EventID)
		}
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", entryID, escape(label)))

		for _, c := range e.Callouts {
			calloutID := sanitizeMermaidID(c.Path)
			sb.WriteString(fmt.Sprintf("    %s[[\"callout %d\"]]\n", calloutID, c.Index))
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", entryID, calloutID))

			if c.InventoryPath == "" {
				continue
			}
			invID := sanitizeMermaidID(c.InventoryPath)
			if !seen[invID] {
				seen[invID] = true
				sb.WriteString(fmt.Sprintf("    %s[/\"%s\"/]\n", invID, escape(c.InventoryPath)))
			}
			arrow := "-.->"
			if c.Asset.PartNumber != "" {
				arrow = fmt.Sprintf("-. \"%s\" .->", escape(c.Asset.PartNumber))
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", calloutID, arrow, invID))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.TrimPrefix(id, "/")
	s = strings.ReplaceAll(s, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
