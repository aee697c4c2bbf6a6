package domain

import (
	"errors"
	"fmt"
	"path"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// LogEntry is a read-only snapshot of an entry in the primary log store.
// It is built from bus event data and passed by value; this service never
// mutates the store.
type LogEntry struct {
	ID             uint32
	Path           string
	Message        string
	Timestamp      uint64
	AdditionalData AdditionalData
	Associations   []Association
}

// EntryProperties mirrors the Logging.Entry properties this service reads.
type EntryProperties struct {
	Message        string   `mapstructure:"Message"`
	Timestamp      uint64   `mapstructure:"Timestamp"`
	AdditionalData []string `mapstructure:"AdditionalData"`
}

// EntryID extracts the numeric entry ID from the last element of an object path.
func EntryID(objectPath string) (uint32, error) {
	id, err := strconv.ParseUint(path.Base(objectPath), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEntryPath, objectPath)
	}
	return uint32(id), nil
}

// ParseEntry builds a LogEntry snapshot from an object's interfaces.
// Missing properties are left at their zero values.
//
// Only a path without an entry ID makes the entry unusable; that error wraps
// ErrInvalidEntryPath and the returned entry is empty. Undecodable
// properties or associations are reported with an error wrapping
// ErrMalformedEntry, and the entry is still returned with the affected
// fields left empty.
func ParseEntry(objectPath string, interfaces InterfaceMap) (LogEntry, error) {
	id, err := EntryID(objectPath)
	if err != nil {
		return LogEntry{}, err
	}

	entry := LogEntry{ID: id, Path: objectPath}
	var errs []error

	props, err := DecodeEntryProperties(interfaces[LoggingInterface])
	if err != nil {
		errs = append(errs, err)
	} else {
		entry.Message = props.Message
		entry.Timestamp = props.Timestamp
		entry.AdditionalData = AdditionalData(props.AdditionalData)
	}

	assocs, err := ParseAssociations(interfaces[AssociationsInterface][PropAssociations])
	if err != nil {
		errs = append(errs, err)
	} else {
		entry.Associations = assocs
	}

	if len(errs) > 0 {
		return entry, fmt.Errorf("%w %q: %w", ErrMalformedEntry, objectPath, errors.Join(errs...))
	}
	return entry, nil
}

// DecodeEntryProperties decodes a Logging.Entry property map. Numbers that
// arrived as floats (JSON transports) are converted to their integer fields.
func DecodeEntryProperties(props PropertyMap) (EntryProperties, error) {
	var out EntryProperties
	if props == nil {
		return out, nil
	}
	if err := weakDecode(props, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s properties: %w", LoggingInterface, err)
	}
	return out, nil
}

// ParseAssociations converts an associations property value into typed edges.
// It accepts either []Association or a list of (forward, reverse, endpoint) triples.
func ParseAssociations(value any) ([]Association, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []Association:
		return v, nil
	}

	var triples [][]string
	if err := weakDecode(value, &triples); err != nil {
		return nil, fmt.Errorf("failed to decode associations: %w", err)
	}

	assocs := make([]Association, 0, len(triples))
	for _, t := range triples {
		if len(t) != 3 {
			return nil, fmt.Errorf("failed to decode associations: expected 3 elements, got %d", len(t))
		}
		assocs = append(assocs, Association{Forward: t[0], Reverse: t[1], Endpoint: t[2]})
	}
	return assocs, nil
}

func weakDecode(input, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
