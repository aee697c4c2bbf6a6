package domain

import (
	"sort"
	"strings"
)

// PropertyMap maps a property name to its value as delivered by the bus.
// Values are whatever the transport decoded (strings, numbers, lists).
type PropertyMap map[string]any

// InterfaceMap maps an interface name to the properties hosted on it.
type InterfaceMap map[string]PropertyMap

// ObjectTree maps object paths to their interfaces, as returned by an
// object manager enumeration.
type ObjectTree map[string]InterfaceMap

// Has reports whether the interface is present.
func (m InterfaceMap) Has(iface string) bool {
	_, ok := m[iface]
	return ok
}

// AdditionalData is the ordered list of KEY=VALUE strings attached to a log entry.
type AdditionalData []string

// Item returns the value of the first item containing "name=".
// The value is everything after the item's first '=' and may be empty.
func (d AdditionalData) Item(name string) (string, bool) {
	needle := name + "="
	for _, item := range d {
		if !strings.Contains(item, needle) {
			continue
		}
		return item[strings.IndexByte(item, '=')+1:], true
	}
	return "", false
}

// Association is a typed edge between two objects.
type Association struct {
	Forward  string `json:"forward"`
	Reverse  string `json:"reverse"`
	Endpoint string `json:"endpoint"`
}

// Subtree is the mapper view of the object namespace:
// object path -> service name -> interfaces the service hosts on that path.
type Subtree map[string]map[string][]string

// Service returns the name of the service hosting iface on path.
// When several services qualify the lexically first one wins.
func (t Subtree) Service(path, iface string) string {
	services, ok := t[path]
	if !ok {
		return ""
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, i := range services[name] {
			if i == iface {
				return name
			}
		}
	}
	return ""
}

// UnderRoot reports whether path lies strictly below root and no more than
// depth levels down. A depth of 0 means unlimited.
func UnderRoot(path, root string, depth int) bool {
	var rel string
	if root == "/" {
		rel = strings.TrimPrefix(path, "/")
	} else {
		if !strings.HasPrefix(path, root+"/") {
			return false
		}
		rel = strings.TrimPrefix(path, root+"/")
	}
	if rel == "" {
		return false
	}
	return depth <= 0 || strings.Count(rel, "/")+1 <= depth
}
