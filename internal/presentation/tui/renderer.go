package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/openbmc/ibm-logging/pkg/manager"
	"golang.org/x/term"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// EntriesMarkdown renders a report of entries and their callouts.
func EntriesMarkdown(entries []manager.EntryView) string {
	var sb strings.Builder
	sb.WriteString("# Error log callouts\n\n")
	if len(entries) == 0 {
		sb.WriteString("_No entries._\n")
		return sb.String()
	}

	for _, e := range entries {
		fmt.Fprintf(&sb, "## Entry %d\n\n", e.ID)
		fmt.Fprintf(&sb, "- **Path:** `%s`\n", e.Path)
		if e.Timestamp != 0 {
			fmt.Fprintf(&sb, "- **Timestamp:** %d\n", e.Timestamp)
		}
		if e.Policy.EventID != "" {
			fmt.Fprintf(&sb, "- **Event ID:** %s\n", e.Policy.EventID)
			fmt.Fprintf(&sb, "- **Description:** %s\n", e.Policy.Description)
		}
		sb.WriteString("\n")

		if len(e.Callouts) == 0 {
			sb.WriteString("_No callouts._\n\n")
			continue
		}

		sb.WriteString("| # | Inventory | Part | Serial | Model | Manufacturer | Built |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, c := range e.Callouts {
			fmt.Fprintf(&sb, "| %d | `%s` | %s | %s | %s | %s | %s |\n",
				c.Index, c.InventoryPath,
				cell(c.Asset.PartNumber), cell(c.Asset.SerialNumber), cell(c.Asset.Model),
				cell(c.Asset.Manufacturer), cell(c.Asset.BuildDate))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}
