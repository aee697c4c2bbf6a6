package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Store manages the persistence directory tree:
//
//	<BasePath>/<entryID>/callouts/<index>
//
// It owns directory layout and removal; record encoding belongs to the callers.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".ibm-logging/errors".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".ibm-logging", "errors")
	}
	return &Store{BasePath: basePath}
}

// EntryDir returns the directory holding everything persisted for an entry.
func (s *Store) EntryDir(entryID uint32) string {
	return filepath.Join(s.BasePath, strconv.FormatUint(uint64(entryID), 10))
}

// CalloutDir returns the directory holding an entry's callout files.
func (s *Store) CalloutDir(entryID uint32) string {
	return filepath.Join(s.EntryDir(entryID), "callouts")
}

// ListCallouts returns the names of the regular files in an entry's callout
// directory, sorted. A missing directory yields an empty list.
func (s *Store) ListCallouts(ctx context.Context, entryID uint32) ([]string, error) {
	entries, err := os.ReadDir(s.CalloutDir(entryID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list callouts for entry %d: %w", entryID, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveCallout deletes a single file from an entry's callout directory.
func (s *Store) RemoveCallout(ctx context.Context, entryID uint32, name string) error {
	err := os.Remove(filepath.Join(s.CalloutDir(entryID), name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove callout file %q: %w", name, err)
	}
	return nil
}

// DeleteEntry recursively removes everything persisted for an entry.
// Removing an entry that has nothing on disk is not an error.
func (s *Store) DeleteEntry(ctx context.Context, entryID uint32) error {
	if err := os.RemoveAll(s.EntryDir(entryID)); err != nil {
		return fmt.Errorf("failed to delete persisted data for entry %d: %w", entryID, err)
	}
	return nil
}

// ListEntries returns the IDs of all entries with a persistence directory,
// in ascending order. Directories whose names are not entry IDs are skipped.
func (s *Store) ListEntries(ctx context.Context) ([]uint32, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []uint32{}, nil
		}
		return nil, fmt.Errorf("failed to list persisted entries: %w", err)
	}

	ids := make([]uint32, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseUint(entry.Name(), 10, 32)
		if err != nil {
			continue
		}
		ids = append(ids, uint32(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// WriteAtomic writes data to dir/name so that readers see either the old
// content or the new content, never a partial file. The directory is created
// if needed.
func WriteAtomic(dir, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory %s: %w", dir, err)
	}

	destPath := filepath.Join(dir, name)

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", destPath, err)
	}

	return nil
}
