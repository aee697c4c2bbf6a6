package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ibmlogd banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" _ _                _             ", "#60a5fa"},
		{"(_) |__  _ __ ___ | | ___   __ _  ", "#3b82f6"},
		{"| | '_ \\| '_ ` _ \\| |/ _ \\ / _` | ", "#2563eb"},
		{"| | |_) | | | | | | | (_) | (_| | ", "#1d4ed8"},
		{"|_|_.__/|_| |_| |_|_|\\___/ \\__, | ", "#1e40af"},
		{"                           |___/  ", "#1e3a8a"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  ibmlogd "+version).Faint())
	fmt.Fprintln(w)
}

// Status colours a short status word: green when ok, red otherwise.
func Status(text string, ok bool) string {
	p := termenv.ColorProfile()
	color := "#22c55e"
	if !ok {
		color = "#ef4444"
	}
	return termenv.String(text).Foreground(p.Color(color)).Bold().String()
}
