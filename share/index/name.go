package index

import (
	"strings"
	"sync"

	"github.com/armon/go-radix"
	"github.com/h0od/airdcpp-webclient/share/tree"
)

// nameEntry is the value stored per radix key: every directory node whose
// lowercased real name equals the key, since names collide across roots.
type nameEntry struct {
	dirs []*tree.Directory
}

// NameIndex is a lowercased-leaf-name multimap over every directory in the
// share, backed by a patricia trie for prefix search (autocomplete-style
// "starts with" lookups), grounded on the teacher's PatriciaPathIndex
// (vvfs/trees/pathindex.go).
type NameIndex struct {
	mu   sync.RWMutex
	trie *radix.Tree
}

func NewNameIndex() *NameIndex {
	return &NameIndex{trie: radix.New()}
}

// Add registers d under its lowercased real name.
func (idx *NameIndex) Add(d *tree.Directory) {
	key := strings.ToLower(d.RealName)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if v, ok := idx.trie.Get(key); ok {
		e := v.(*nameEntry)
		e.dirs = append(e.dirs, d)
		return
	}
	idx.trie.Insert(key, &nameEntry{dirs: []*tree.Directory{d}})
}

// Lookup returns every directory whose real name matches name exactly
// (case-insensitive).
func (idx *NameIndex) Lookup(name string) []*tree.Directory {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	v, ok := idx.trie.Get(strings.ToLower(name))
	if !ok {
		return nil
	}
	e := v.(*nameEntry)
	out := make([]*tree.Directory, len(e.dirs))
	copy(out, e.dirs)
	return out
}

// PrefixSearch returns every directory whose lowercased real name begins
// with prefix, up to limit results (0 means unlimited).
func (idx *NameIndex) PrefixSearch(prefix string, limit int) []*tree.Directory {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []*tree.Directory
	idx.trie.WalkPrefix(strings.ToLower(prefix), func(_ string, v any) bool {
		e := v.(*nameEntry)
		out = append(out, e.dirs...)
		return limit > 0 && len(out) >= limit
	})
	return out
}

// Reset discards all entries, called at the start of a full index rebuild.
func (idx *NameIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.trie = radix.New()
}
