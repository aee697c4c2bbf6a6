package manager

import (
	"sort"

	"github.com/openbmc/ibm-logging/pkg/callout"
)

// Object is a derived object hosted for a log entry.
type Object interface {
	ObjectPath() string
	isObject()
}

// PolicyObject carries the classification of an entry.
type PolicyObject struct {
	path        string
	EventID     string
	Description string
}

// ObjectPath is the entry's own path; the policy decorates the entry.
func (p *PolicyObject) ObjectPath() string { return p.path }

func (*PolicyObject) isObject() {}

// CalloutObject exposes one called-out inventory item.
type CalloutObject struct {
	*callout.Callout
}

func (*CalloutObject) isObject() {}

// entryObjects is everything hosted for one entry.
type entryObjects struct {
	path      string
	timestamp uint64
	// restored is set for entries rebuilt from disk at startup.
	restored bool
	objects  []Object
}

func (e *entryObjects) policy() *PolicyObject {
	for _, o := range e.objects {
		if p, ok := o.(*PolicyObject); ok {
			return p
		}
	}
	return nil
}

func (e *entryObjects) callouts() []*CalloutObject {
	var out []*CalloutObject
	for _, o := range e.objects {
		if c, ok := o.(*CalloutObject); ok {
			out = append(out, c)
		}
	}
	return out
}

// addCallouts appends callouts keeping them ordered by (entry ID, index).
func (e *entryObjects) addCallouts(cs ...*CalloutObject) {
	for _, c := range cs {
		e.objects = append(e.objects, c)
	}
	sort.SliceStable(e.objects, func(i, j int) bool {
		a, aok := e.objects[i].(*CalloutObject)
		b, bok := e.objects[j].(*CalloutObject)
		switch {
		case !aok && !bok:
			return false
		case !aok:
			return true
		case !bok:
			return false
		case a.EntryID != b.EntryID:
			return a.EntryID < b.EntryID
		}
		return a.Index < b.Index
	})
}
