package pathtrie

import (
	"sort"
	"sync"
)

// Trie maps compiled templates to values of type T.
// Insert and Lookup may be called concurrently.
type Trie[T any] struct {
	mu       sync.RWMutex
	root     *node[T]
	reserved map[string]struct{}
}

type node[T any] struct {
	children map[string]*node[T]
	wildcard *node[T]
	entry    *entry[T]
}

// entry is a terminal binding. Capture names live on the entry rather than
// on the wildcard node so that templates with differently named wildcards at
// the same depth can share a branch.
type entry[T any] struct {
	value    T
	template string
	captures map[int]string // segment index -> capture name
}

// New creates an empty trie. Reserved names always match literally and are
// never bound to a wildcard.
func New[T any](reserved ...string) *Trie[T] {
	r := make(map[string]struct{}, len(reserved))
	for _, name := range reserved {
		r[name] = struct{}{}
	}
	return &Trie[T]{
		root:     &node[T]{},
		reserved: r,
	}
}

// Reserved reports whether name is a reserved literal for this trie.
func (t *Trie[T]) Reserved(name string) bool {
	_, ok := t.reserved[name]
	return ok
}

// Insert binds v to the template. An existing binding at the same template
// is replaced.
func (t *Trie[T]) Insert(tpl Template, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.root
	captures := make(map[int]string)
	for i, s := range tpl.segments {
		if s.wildcard {
			if n.wildcard == nil {
				n.wildcard = &node[T]{}
			}
			captures[i] = s.name
			n = n.wildcard
			continue
		}

		if n.children == nil {
			n.children = make(map[string]*node[T])
		}
		child, ok := n.children[s.literal]
		if !ok {
			child = &node[T]{}
			n.children[s.literal] = child
		}
		n = child
	}

	// Publish the terminal in one assignment; readers hold the read lock.
	n.entry = &entry[T]{value: v, template: tpl.Source, captures: captures}
}

// InsertPath compiles template with subst and inserts v.
func (t *Trie[T]) InsertPath(template string, subst map[string]string, v T) error {
	tpl, err := Compile(template, subst)
	if err != nil {
		return err
	}
	t.Insert(tpl, v)
	return nil
}

// Result is a resolved lookup: the bound value, the captured wildcard values
// and the template they were bound under.
type Result[T any] struct {
	Value    T
	Parts    map[string]string
	Template string
}

// Match resolves a concrete path in a single walk. A miss returns ok=false.
func (t *Trie[T]) Match(path string) (Result[T], bool) {
	segs := Split(path)

	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.find(segs)
	if e == nil {
		return Result[T]{}, false
	}
	parts := make(map[string]string, len(e.captures))
	for i, name := range e.captures {
		parts[name] = segs[i]
	}
	return Result[T]{Value: e.value, Parts: parts, Template: e.template}, true
}

// Lookup finds the value bound to a concrete path and returns the captured
// wildcard values. A miss returns ok=false.
func (t *Trie[T]) Lookup(path string) (v T, parts map[string]string, ok bool) {
	r, ok := t.Match(path)
	return r.Value, r.Parts, ok
}

// Template returns the template a concrete path resolves to.
func (t *Trie[T]) Template(path string) (string, bool) {
	r, ok := t.Match(path)
	return r.Template, ok
}

// find walks segs from the root. Literal children win and a wildcard is
// never taken for a reserved segment. The caller holds mu.
func (t *Trie[T]) find(segs []string) *entry[T] {
	n := t.root
	for _, s := range segs {
		if child, found := n.children[s]; found {
			n = child
			continue
		}
		if n.wildcard == nil || t.Reserved(s) {
			return nil
		}
		n = n.wildcard
	}
	return n.entry
}

// Walk calls fn for every bound template in lexical order.
func (t *Trie[T]) Walk(fn func(template string, v T)) {
	t.mu.RLock()
	var entries []*entry[T]
	collect(t.root, &entries)
	t.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].template < entries[j].template
	})
	for _, e := range entries {
		fn(e.template, e.value)
	}
}

// Len returns the number of bound templates.
func (t *Trie[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entries []*entry[T]
	collect(t.root, &entries)
	return len(entries)
}

func collect[T any](n *node[T], out *[]*entry[T]) {
	if n.entry != nil {
		*out = append(*out, n.entry)
	}
	for _, child := range n.children {
		collect(child, out)
	}
	if n.wildcard != nil {
		collect(n.wildcard, out)
	}
}
