// Package store exposes the versioned CRUD contract for one logical content
// type: objects are persisted through a filesystem backend inside a git
// working tree, and every mutation can be recorded as a commit through the
// git controller.
package store

import "sort"

// Indexable is the capability every stored object must provide: a unique,
// stable id. Content types with numeric ids implement it by formatting.
type Indexable interface {
	ObjectID() string
}

// Index maps object ids to objects. Keys are always obj.ObjectID() and
// unique; insertion order is irrelevant.
type Index[T Indexable] map[string]T

// IDs returns the sorted ids present in the index.
func (ix Index[T]) IDs() []string {
	ids := make([]string, 0, len(ix))
	for id := range ix {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
