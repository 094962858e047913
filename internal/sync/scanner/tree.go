package scanner

import (
	"cmp"
	"iter"
	"slices"
)

// Tree is the fully listed remote store, indexed by parent ID
type Tree struct {
	children map[string][]RemoteEntry
	known    map[string]bool
	sorted   map[string]bool
	count    int
}

func newTree() *Tree {
	return &Tree{
		children: make(map[string][]RemoteEntry),
		known:    make(map[string]bool),
		sorted:   make(map[string]bool),
	}
}

func (t *Tree) add(entry RemoteEntry) {
	t.known[entry.ID] = true
	t.count++
	for _, parent := range entry.Parents {
		t.children[parent] = append(t.children[parent], entry)
	}
}

// finalize folds children of parents that were never listed (such as the
// My Drive folder itself) into the synthetic root.
func (t *Tree) finalize() {
	onRoot := make(map[string]bool, len(t.children[RootID]))
	for _, e := range t.children[RootID] {
		onRoot[e.ID] = true
	}

	for parent, kids := range t.children {
		if parent == RootID || t.known[parent] {
			continue
		}
		for _, e := range kids {
			if !onRoot[e.ID] {
				onRoot[e.ID] = true
				t.children[RootID] = append(t.children[RootID], e)
			}
		}
		delete(t.children, parent)
	}
}

// Len is the number of distinct entries listed
func (t *Tree) Len() int {
	return t.count
}

func (t *Tree) childrenOf(id string) []RemoteEntry {
	kids := t.children[id]
	if !t.sorted[id] {
		slices.SortFunc(kids, func(a, b RemoteEntry) int {
			return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
		})
		t.sorted[id] = true
	}
	return kids
}

// Iter starts a new pre-order traversal from the synthetic root
func (t *Tree) Iter() *Iterator {
	it := &Iterator{tree: t, onPath: map[string]bool{RootID: true}}
	if kids := t.childrenOf(RootID); len(kids) > 0 {
		it.stack = append(it.stack, frame{dirID: RootID, children: kids})
	}
	return it
}

// All yields every entry in pre-order
func (t *Tree) All() iter.Seq[RemoteEntry] {
	return func(yield func(RemoteEntry) bool) {
		it := t.Iter()
		for {
			entry, ok := it.Next()
			if !ok || !yield(entry) {
				return
			}
		}
	}
}

type frame struct {
	dirID    string
	path     string
	children []RemoteEntry
	next     int
}

// Iterator walks a Tree with an explicit stack. Siblings come out sorted by
// name, then ID; a parent always precedes its children.
type Iterator struct {
	tree   *Tree
	stack  []frame
	onPath map[string]bool
}

// Next returns the next entry, or false when the traversal is exhausted
func (it *Iterator) Next() (RemoteEntry, bool) {
	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]
		if top.next >= len(top.children) {
			delete(it.onPath, top.dirID)
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		entry := top.children[top.next]
		top.next++
		entry.Path = top.path + "/" + entry.Name

		// Skip descent into a directory that is already an ancestor.
		if !it.onPath[entry.ID] {
			if kids := it.tree.childrenOf(entry.ID); len(kids) > 0 {
				it.onPath[entry.ID] = true
				it.stack = append(it.stack, frame{dirID: entry.ID, path: entry.Path, children: kids})
			}
		}
		return entry, true
	}
	return RemoteEntry{}, false
}
