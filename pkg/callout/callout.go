// Package callout models a hardware callout attached to a log entry and its
// durable on-disk form.
package callout

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/openbmc/ibm-logging/internal/adapters/file"
	"github.com/openbmc/ibm-logging/internal/codec"
	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/pkg/domain"
)

// Version is the record version written by Serialize.
// Version 0 is reserved to detect files with no version tag.
const Version uint8 = 1

// errNoVersion reports a decoded record without a version tag.
var errNoVersion = errors.New("callout record has no version")

// Asset holds the inventory asset fields copied onto a callout.
type Asset struct {
	BuildDate    string `mapstructure:"BuildDate" json:"buildDate"`
	Manufacturer string `mapstructure:"Manufacturer" json:"manufacturer"`
	Model        string `mapstructure:"Model" json:"model"`
	PartNumber   string `mapstructure:"PartNumber" json:"partNumber"`
	SerialNumber string `mapstructure:"SerialNumber" json:"serialNumber"`
}

// AssetFromProperties decodes an Inventory.Decorator.Asset property map.
// Missing properties are left empty.
func AssetFromProperties(props domain.PropertyMap) (Asset, error) {
	var asset Asset
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &asset,
	})
	if err != nil {
		return asset, err
	}
	if err := decoder.Decode(props); err != nil {
		return asset, fmt.Errorf("failed to decode %s properties: %w", domain.AssetInterface, err)
	}
	return asset, nil
}

// record is the persisted layout. Keys are fixed; new fields get new keys.
type record struct {
	Version       uint8  `cbor:"0,keyasint"`
	Index         uint32 `cbor:"1,keyasint"`
	Timestamp     uint64 `cbor:"2,keyasint"`
	InventoryPath string `cbor:"3,keyasint"`
	BuildDate     string `cbor:"4,keyasint"`
	Manufacturer  string `cbor:"5,keyasint"`
	Model         string `cbor:"6,keyasint"`
	PartNumber    string `cbor:"7,keyasint"`
	SerialNumber  string `cbor:"8,keyasint"`
	EntryID       uint32 `cbor:"9,keyasint"`
}

// Callout is one called-out inventory item of a log entry.
type Callout struct {
	Index         uint32
	EntryID       uint32
	Timestamp     uint64
	InventoryPath string
	Asset         Asset

	entryPath string
	logger    *slog.Logger
}

// Option configures a Callout.
type Option func(*Callout)

// WithLogger sets the logger used to report restore failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Callout) {
		c.logger = logger
	}
}

// New creates a fully populated callout for an entry.
func New(entryPath, inventoryPath string, index, entryID uint32, timestamp uint64, asset Asset, opts ...Option) *Callout {
	c := NewForRestore(entryPath, index, entryID, timestamp, opts...)
	c.InventoryPath = inventoryPath
	c.Asset = asset
	return c
}

// NewForRestore creates a callout that only knows its identity.
// The remaining fields are filled in by Restore.
func NewForRestore(entryPath string, index, entryID uint32, timestamp uint64, opts ...Option) *Callout {
	c := &Callout{
		Index:     index,
		EntryID:   entryID,
		Timestamp: timestamp,
		entryPath: entryPath,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ObjectPath returns the path the callout is exposed under.
func (c *Callout) ObjectPath() string {
	return c.entryPath + "/callouts/" + c.FileName()
}

// FileName returns the name of the callout's file inside its directory.
func (c *Callout) FileName() string {
	return strconv.FormatUint(uint64(c.Index), 10)
}

// Serialize writes the callout to dir/<index>, replacing any previous file.
func (c *Callout) Serialize(dir string) error {
	data, err := codec.Marshal(record{
		Version:       Version,
		Index:         c.Index,
		Timestamp:     c.Timestamp,
		InventoryPath: c.InventoryPath,
		BuildDate:     c.Asset.BuildDate,
		Manufacturer:  c.Asset.Manufacturer,
		Model:         c.Asset.Model,
		PartNumber:    c.Asset.PartNumber,
		SerialNumber:  c.Asset.SerialNumber,
		EntryID:       c.EntryID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode callout %d of entry %d: %w", c.Index, c.EntryID, err)
	}

	if err := file.WriteAtomic(dir, c.FileName(), data); err != nil {
		return fmt.Errorf("failed to persist callout %d of entry %d: %w", c.Index, c.EntryID, err)
	}
	return nil
}

// Restore loads dir/<index> into the callout.
//
// The file is accepted only when its index, timestamp and entry ID match the
// values the callout was created with. Unreadable, undecodable or mismatched
// files are deleted and Restore returns false.
func (c *Callout) Restore(dir string) bool {
	filePath := filepath.Join(dir, c.FileName())

	data, err := os.ReadFile(filePath)
	if err != nil {
		c.logger.Error("failed to read callout file", "path", filePath, "error", err)
		c.discard(filePath)
		return false
	}

	rec, err := decode(data)
	if err != nil {
		c.logger.Error("failed to decode callout file", "path", filePath, "error", err)
		c.discard(filePath)
		return false
	}

	if rec.Index != c.Index || rec.Timestamp != c.Timestamp || rec.EntryID != c.EntryID {
		c.logger.Error("callout file does not match its entry",
			"path", filePath,
			"index", c.Index, "file_index", rec.Index,
			"timestamp", c.Timestamp, "file_timestamp", rec.Timestamp,
			"entry", c.EntryID, "file_entry", rec.EntryID,
		)
		c.discard(filePath)
		return false
	}

	c.apply(rec)
	return true
}

// Read decodes a persisted callout file without validating it against an
// entry and without modifying it. It is meant for offline inspection.
func Read(entryPath, filePath string) (*Callout, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read callout file: %w", err)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode callout file %s: %w", filePath, err)
	}

	c := NewForRestore(entryPath, rec.Index, rec.EntryID, rec.Timestamp)
	c.apply(rec)
	return c, nil
}

func (c *Callout) apply(rec record) {
	c.InventoryPath = rec.InventoryPath
	c.Asset = Asset{
		BuildDate:    rec.BuildDate,
		Manufacturer: rec.Manufacturer,
		Model:        rec.Model,
		PartNumber:   rec.PartNumber,
		SerialNumber: rec.SerialNumber,
	}
}

func (c *Callout) discard(filePath string) {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("failed to remove callout file", "path", filePath, "error", err)
	}
}

func decode(data []byte) (record, error) {
	var rec record
	if err := codec.Unmarshal(data, &rec); err != nil {
		return rec, err
	}
	if rec.Version == 0 {
		return rec, errNoVersion
	}
	return rec, nil
}
