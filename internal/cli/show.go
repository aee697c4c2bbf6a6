package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/openbmc/ibm-logging/internal/adapters/file"
	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/internal/presentation/graph"
	"github.com/openbmc/ibm-logging/internal/presentation/tui"
	"github.com/openbmc/ibm-logging/pkg/callout"
	"github.com/openbmc/ibm-logging/pkg/domain"
	"github.com/openbmc/ibm-logging/pkg/manager"
)

// Output formats for show.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatMermaid  = "mermaid"
)

// ShowOptions configures the show command.
type ShowOptions struct {
	PersistDir string
	Format     string
	// Renderer post-processes markdown output. Nil prints it raw.
	Renderer func(string) (string, error)
	Logger   *slog.Logger
}

// Show prints the callouts persisted below opts.PersistDir. It only reads
// the directory; unreadable files are reported and skipped.
func Show(ctx context.Context, w io.Writer, opts ShowOptions) error {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}

	entries, err := LoadPersisted(ctx, opts.PersistDir, opts.Logger)
	if err != nil {
		return err
	}

	switch opts.Format {
	case "", FormatMarkdown:
		out := tui.EntriesMarkdown(entries)
		if opts.Renderer != nil {
			rendered, err := opts.Renderer(out)
			if err != nil {
				return fmt.Errorf("failed to render markdown: %w", err)
			}
			out = rendered
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case FormatMermaid:
		_, err = io.WriteString(w, graph.GenerateMermaid(entries))
		return err
	default:
		return fmt.Errorf("unknown format %q (supported: markdown, json, mermaid)", opts.Format)
	}
}

// LoadPersisted reads every persisted callout below dir, grouped by entry.
// Policy data is not persisted, so only callouts are filled in.
func LoadPersisted(ctx context.Context, dir string, logger *slog.Logger) ([]manager.EntryView, error) {
	store := file.New(dir)
	ids, err := store.ListEntries(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]manager.EntryView, 0, len(ids))
	for _, id := range ids {
		path := domain.LoggingEntryPath + "/" + strconv.FormatUint(uint64(id), 10)
		names, err := store.ListCallouts(ctx, id)
		if err != nil {
			return nil, err
		}

		view := manager.EntryView{ID: id, Path: path, Callouts: []manager.CalloutView{}}
		for _, name := range names {
			c, err := callout.Read(path, filepath.Join(store.CalloutDir(id), name))
			if err != nil {
				logger.Warn("Skipping unreadable callout file", "entry", id, "file", name, "error", err)
				continue
			}
			view.Timestamp = c.Timestamp
			view.Callouts = append(view.Callouts, manager.CalloutView{
				Path:          c.ObjectPath(),
				Index:         c.Index,
				InventoryPath: c.InventoryPath,
				Asset:         c.Asset,
			})
		}
		sort.Slice(view.Callouts, func(i, j int) bool {
			return view.Callouts[i].Index < view.Callouts[j].Index
		})
		entries = append(entries, view)
	}
	return entries, nil
}
