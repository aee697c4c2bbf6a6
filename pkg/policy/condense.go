package policy

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// fullEvent is one event in the full policy table.
type fullEvent struct {
	Message       string `json:"Message"`
	CommonEventID string `json:"CommonEventID"`
}

type condensedEntry struct {
	Error   string    `json:"err"`
	Details []Details `json:"dtls"`
}

// Condense reduces a full policy table ({"events": {"<err>||<mod>": {...}}})
// to the condensed form loaded by Table. Events keep their document order.
// Errors containing spaces are not BMC errors and are skipped; their names
// are returned.
func Condense(r io.Reader, w io.Writer, indent bool) ([]string, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var (
		condensed []condensedEntry
		positions = make(map[string]int)
		skipped   []string
		found     bool
	)

	for dec.More() {
		key, err := stringToken(dec)
		if err != nil {
			return nil, err
		}

		if key != "events" {
			var discard json.RawMessage
			if err := dec.Decode(&discard); err != nil {
				return nil, fmt.Errorf("failed to read policy table: %w", err)
			}
			continue
		}
		found = true

		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}

		for dec.More() {
			name, err := stringToken(dec)
			if err != nil {
				return nil, err
			}

			var event fullEvent
			if err := dec.Decode(&event); err != nil {
				return nil, fmt.Errorf("failed to read event %q: %w", name, err)
			}

			errorID, modifier, _ := strings.Cut(name, "||")
			if strings.Contains(errorID, " ") {
				skipped = append(skipped, errorID)
				continue
			}

			d := Details{Modifier: modifier, Message: event.Message, EventID: event.CommonEventID}
			if pos, ok := positions[errorID]; ok {
				condensed[pos].Details = append(condensed[pos].Details, d)
				continue
			}
			positions[errorID] = len(condensed)
			condensed = append(condensed, condensedEntry{Error: errorID, Details: []Details{d}})
		}

		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, fmt.Errorf("failed to read policy table: no events object")
	}

	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if condensed == nil {
		condensed = []condensedEntry{}
	}
	if err := enc.Encode(condensed); err != nil {
		return nil, fmt.Errorf("failed to write condensed table: %w", err)
	}
	return skipped, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read policy table: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("failed to read policy table: expected %q, got %v", want, tok)
	}
	return nil
}

func stringToken(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("failed to read policy table: %w", err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("failed to read policy table: expected key, got %v", tok)
	}
	return s, nil
}
