// Package index implements the four lookup structures a share tree publish
// rebuilds alongside the tree itself (spec §4.1): the TTH multimap, the
// lowercased-name multimap, a size/mtime range index, and the file-name word
// index (TokenIndex).
package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/tree"
)

// TTHIndex maps a content hash to every File sharing it — the same physical
// content can live under more than one virtual path (§4.1). The set of file
// ids sharing a hash is kept as a roaring bitmap (the per-hash postings
// list called for by §4.12's domain-stack wiring), the same
// map[key]*roaring.Bitmap shape as the teacher's AttributeBitmaps
// (vvfs/indexing/bitmaps.go); filesByID resolves ids back to *tree.File for
// callers that want the nodes rather than the bare id set.
type TTHIndex struct {
	mu        sync.RWMutex
	postings  map[hashid.Hash]*roaring.Bitmap
	filesByID map[uint32]*tree.File
}

func NewTTHIndex() *TTHIndex {
	return &TTHIndex{
		postings:  make(map[hashid.Hash]*roaring.Bitmap),
		filesByID: make(map[uint32]*tree.File),
	}
}

// Add registers f under its TTH.
func (idx *TTHIndex) Add(f *tree.File) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	bm, ok := idx.postings[f.TTH]
	if !ok {
		bm = roaring.New()
		idx.postings[f.TTH] = bm
	}
	bm.Add(f.ID)
	idx.filesByID[f.ID] = f
}

// Postings returns a copy of tth's file-id bitmap, or an empty bitmap if
// tth is unknown.
func (idx *TTHIndex) Postings(tth hashid.Hash) *roaring.Bitmap {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	bm, ok := idx.postings[tth]
	if !ok {
		return roaring.New()
	}
	return bm.Clone()
}

// Lookup returns every File sharing tth, or nil if there are none.
func (idx *TTHIndex) Lookup(tth hashid.Hash) []*tree.File {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	bm, ok := idx.postings[tth]
	if !ok || bm.IsEmpty() {
		return nil
	}
	out := make([]*tree.File, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		if f := idx.filesByID[it.Next()]; f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Len reports how many distinct TTHs are indexed.
func (idx *TTHIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.postings)
}

// Reset discards all entries, called at the start of a full index rebuild.
func (idx *TTHIndex) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings = make(map[hashid.Hash]*roaring.Bitmap)
	idx.filesByID = make(map[uint32]*tree.File)
}
