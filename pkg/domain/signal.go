package domain

import "slices"

// SignalKind identifies a lifecycle notification.
type SignalKind string

const (
	InterfacesAdded   SignalKind = "InterfacesAdded"
	InterfacesRemoved SignalKind = "InterfacesRemoved"
)

// Signal is a lifecycle notification from the primary log store.
// Added signals carry the full interface map; removed signals carry only
// the names of the interfaces that went away.
type Signal struct {
	Kind       SignalKind   `json:"member"`
	Path       string       `json:"path"`
	Interfaces InterfaceMap `json:"interfaces,omitempty"`
	Removed    []string     `json:"removed,omitempty"`
}

// CarriesLogEntry reports whether the signal concerns the Logging.Entry interface.
func (s Signal) CarriesLogEntry() bool {
	switch s.Kind {
	case InterfacesAdded:
		return s.Interfaces.Has(LoggingInterface)
	case InterfacesRemoved:
		return slices.Contains(s.Removed, LoggingInterface)
	}
	return false
}
