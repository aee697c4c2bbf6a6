package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/openbmc/ibm-logging/internal/logging"
	"gopkg.in/yaml.v3"
)

// Used when the table is configured without explicit defaults.
const (
	FallbackEventID = "None"
	FallbackMessage = "An internal BMC error occurred"
)

// Details is one classification record for an error.
type Details struct {
	Modifier string `json:"mod" yaml:"mod"`
	Message  string `json:"msg" yaml:"msg"`
	EventID  string `json:"CEID" yaml:"CEID"`
}

// document mirrors one element of the condensed policy array. Pointers are
// used so that a missing key can be told apart from an empty value.
type document struct {
	Error   *string         `json:"err" yaml:"err"`
	Details []documentEntry `json:"dtls" yaml:"dtls"`
}

type documentEntry struct {
	Modifier *string `json:"mod" yaml:"mod"`
	Message  *string `json:"msg" yaml:"msg"`
	EventID  *string `json:"CEID" yaml:"CEID"`
}

// Table is the in-memory policy table. It is read-only once loaded.
type Table struct {
	policies   map[string][]Details
	loaded     bool
	defaultEID string
	defaultMsg string
	logger     *slog.Logger
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithDefaults overrides the event ID and message returned when no entry matches.
func WithDefaults(eventID, message string) TableOption {
	return func(t *Table) {
		if eventID != "" {
			t.defaultEID = eventID
		}
		if message != "" {
			t.defaultMsg = message
		}
	}
}

// WithTableLogger configures the logger used to report load failures.
func WithTableLogger(logger *slog.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// NewTable creates an empty, unloaded table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		policies:   make(map[string][]Details),
		defaultEID: FallbackEventID,
		defaultMsg: FallbackMessage,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Load reads the policy document at path.
// A missing file or a malformed document leaves the table empty and
// unloaded; lookups then miss until a later successful load.
func (t *Table) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		t.reset()
		if errors.Is(err, os.ErrNotExist) {
			t.logger.Info("Policy table file does not exist", "file", path)
		} else {
			t.logger.Error("Failed opening policy table file", "file", path, "error", err)
		}
		return fmt.Errorf("failed to open policy table: %w", err)
	}
	defer f.Close()

	if err := t.LoadDocument(f); err != nil {
		t.logger.Error("Failed loading policy table file", "file", path, "error", err)
		return err
	}

	t.logger.Info("Loaded policy table", "file", path, "errors", len(t.policies))
	return nil
}

// LoadDocument parses a policy document. JSON is decoded strictly; anything
// that does not start with '[' is treated as YAML.
func (t *Table) LoadDocument(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		t.reset()
		return fmt.Errorf("failed to read policy table: %w", err)
	}

	var docs []document
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &docs)
	} else {
		err = yaml.Unmarshal(data, &docs)
	}
	if err != nil {
		t.reset()
		return fmt.Errorf("failed to parse policy table: %w", err)
	}

	policies, err := index(docs)
	if err != nil {
		t.reset()
		return err
	}

	t.policies = policies
	t.loaded = true
	return nil
}

func index(docs []document) (map[string][]Details, error) {
	policies := make(map[string][]Details, len(docs))

	for i, doc := range docs {
		if doc.Error == nil {
			return nil, fmt.Errorf("failed to parse policy table: entry %d has no err", i)
		}

		list := make([]Details, 0, len(doc.Details))
		for j, d := range doc.Details {
			if d.Modifier == nil || d.Message == nil || d.EventID == nil {
				return nil, fmt.Errorf("failed to parse policy table: %s details %d is incomplete", *doc.Error, j)
			}
			list = append(list, Details{Modifier: *d.Modifier, Message: *d.Message, EventID: *d.EventID})
		}

		// The first definition of an error wins.
		if _, exists := policies[*doc.Error]; !exists {
			policies[*doc.Error] = list
		}
	}

	return policies, nil
}

func (t *Table) reset() {
	t.policies = make(map[string][]Details)
	t.loaded = false
}

// IsLoaded reports whether the last load succeeded.
func (t *Table) IsLoaded() bool {
	return t.loaded
}

// Len returns the number of error identifiers in the table.
func (t *Table) Len() int {
	return len(t.policies)
}

// DefaultEventID is the event ID used when no entry matches.
func (t *Table) DefaultEventID() string {
	return t.defaultEID
}

// DefaultMessage is the message used when no entry matches.
func (t *Table) DefaultMessage() string {
	return t.defaultMsg
}

// Find looks up the details for an error. An exact modifier match wins; a
// non-empty modifier with no exact match falls back to the catch-all entry.
func (t *Table) Find(errorID, modifier string) (Details, bool) {
	list, ok := t.policies[errorID]
	if !ok {
		return Details{}, false
	}

	for _, d := range list {
		if d.Modifier == modifier {
			return d, true
		}
	}

	if modifier != "" {
		for _, d := range list {
			if d.Modifier == "" {
				return d, true
			}
		}
	}

	return Details{}, false
}
