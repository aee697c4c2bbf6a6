package policy

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/openbmc/ibm-logging/internal/logging"
	"github.com/openbmc/ibm-logging/pkg/domain"
)

// HostEvent is the error raised for host-reported eSELs.
const HostEvent = "org.open_power.Host.Error.Event"

// Outcome records which tier of the search produced a resolution.
type Outcome string

const (
	OutcomeFirstPass  Outcome = "first_pass"
	OutcomeSecondPass Outcome = "second_pass"
	OutcomeDefault    Outcome = "default"
)

// Resolution is the classification assigned to a log entry.
type Resolution struct {
	EventID string
	Message string
	Outcome Outcome
}

// Resolver finds the policy for a log entry.
type Resolver struct {
	table  *Table
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger configures the resolver's logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a resolver over the given table.
func NewResolver(table *Table, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		table:  table,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the underlying policy table.
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve classifies a log entry from its Logging.Entry properties.
//
// The device path / host event modifier is tried first because it is the
// most precise. If it is absent or does not match, the generic modifier is
// always tried, even when empty, so the catch-all entry can still match.
func (r *Resolver) Resolve(properties domain.PropertyMap) Resolution {
	props, err := domain.DecodeEntryProperties(properties)
	if err != nil {
		r.logger.Error("Failed decoding error log properties", "error", err)
		return r.fallback()
	}

	if props.Message == "" {
		r.logger.Error("No Message metadata found in an error")
		return r.fallback()
	}

	data := domain.AdditionalData(props.AdditionalData)

	if modifier := firstTryModifier(props.Message, data); modifier != "" {
		if d, ok := r.table.Find(props.Message, modifier); ok {
			return Resolution{EventID: d.EventID, Message: d.Message, Outcome: OutcomeFirstPass}
		}
	}

	if d, ok := r.table.Find(props.Message, r.searchModifier(data)); ok {
		return Resolution{EventID: d.EventID, Message: d.Message, Outcome: OutcomeSecondPass}
	}

	return r.fallback()
}

func (r *Resolver) fallback() Resolution {
	return Resolution{
		EventID: r.table.DefaultEventID(),
		Message: r.table.DefaultMessage(),
		Outcome: OutcomeDefault,
	}
}

// firstTryModifier returns the called out device path, or for host events
// "<inventory path>||<severity>" when the eSEL carries a user header.
func firstTryModifier(message string, data domain.AdditionalData) string {
	if devPath, ok := data.Item(domain.KeyCalloutDevicePath); ok {
		return devPath
	}

	if message != HostEvent {
		return ""
	}

	callout, ok := data.Item(domain.KeyCalloutInventoryPath)
	if !ok {
		return ""
	}
	esel, ok := data.Item(domain.KeyESEL)
	if !ok {
		return ""
	}
	severity, ok := ESELSeverity(esel)
	if !ok {
		return ""
	}
	return callout + "||" + string(severity)
}

// fields whose value is used as the modifier as-is, in priority order
var verbatimFields = []string{
	domain.KeyCalloutInventoryPath,
	domain.KeyRailName,
	domain.KeyInputName,
}

// searchModifier derives the generic modifier from AdditionalData.
func (r *Resolver) searchModifier(data domain.AdditionalData) string {
	for _, field := range verbatimFields {
		if mod, ok := data.Item(field); ok {
			return mod
		}
	}

	// Only the bus type of a device path matters.
	if mod, ok := data.Item(domain.KeyCalloutDevicePath); ok {
		if strings.Contains(mod, "i2c") {
			return "I2C"
		}
		return "FSI"
	}

	// Hostboot procedure IDs are logged in decimal but tabled in hex.
	if mod, ok := data.Item(domain.KeyProcedure); ok {
		value, err := strconv.ParseUint(strings.TrimSpace(mod), 10, 64)
		if err != nil {
			r.logger.Error("Invalid PROCEDURE value found", "procedure", mod)
			return ""
		}
		return strings.ToUpper(strconv.FormatUint(value, 16))
	}

	return ""
}
