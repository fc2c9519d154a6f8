package index

import (
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring"
	"github.com/h0od/airdcpp-webclient/share/tree"
)

// TokenIndex is an inverted word index over file names: every lowercased
// word (split on non-alphanumeric runs) maps to a stable small integer id,
// and every id maps to a roaring bitmap of the File.IDs whose name contains
// that word. ADC search intersects/subtracts these bitmaps to resolve its
// Include/Exclude token sets (§4.12), the same map[id]*roaring.Bitmap plus
// AND-based set-intersection shape as the teacher's AttributeBitmaps.AndExt
// (vvfs/indexing/bitmaps.go), keyed by word instead of extension.
type TokenIndex struct {
	mu          sync.RWMutex
	tokenIDs    map[string]uint32
	postings    map[uint32]*roaring.Bitmap
	filesByID   map[uint32]*tree.File
	nextTokenID uint32
}

func NewTokenIndex() *TokenIndex {
	return &TokenIndex{
		tokenIDs:  make(map[string]uint32),
		postings:  make(map[uint32]*roaring.Bitmap),
		filesByID: make(map[uint32]*tree.File),
	}
}

// Add tokenizes f.Name and registers f.ID under every resulting word.
func (ti *TokenIndex) Add(f *tree.File) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.filesByID[f.ID] = f
	for _, w := range words(f.Name) {
		id, ok := ti.tokenIDs[w]
		if !ok {
			id = ti.nextTokenID
			ti.nextTokenID++
			ti.tokenIDs[w] = id
		}
		bm, ok := ti.postings[id]
		if !ok {
			bm = roaring.New()
			ti.postings[id] = bm
		}
		bm.Add(f.ID)
	}
}

// MatchAll intersects the postings bitmaps of every word in include,
// returning the files whose name contains all of them as whole words. A nil
// return means "no usable postings for this query" (include empty, or a
// required word never seen) — callers fall back to a substring descent.
func (ti *TokenIndex) MatchAll(include []string) []*tree.File {
	if len(include) == 0 {
		return nil
	}
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	var result *roaring.Bitmap
	for _, w := range include {
		id, ok := ti.tokenIDs[strings.ToLower(w)]
		if !ok {
			return nil
		}
		bm := ti.postings[id]
		if result == nil {
			result = bm.Clone()
		} else {
			result.And(bm)
		}
	}
	if result == nil || result.IsEmpty() {
		return nil
	}

	out := make([]*tree.File, 0, result.GetCardinality())
	it := result.Iterator()
	for it.HasNext() {
		if f := ti.filesByID[it.Next()]; f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Exclude drops from candidates every file whose id appears under any of
// exclude's word postings.
func (ti *TokenIndex) Exclude(candidates []*tree.File, exclude []string) []*tree.File {
	if len(exclude) == 0 {
		return candidates
	}
	ti.mu.RLock()
	defer ti.mu.RUnlock()

	drop := roaring.New()
	for _, w := range exclude {
		if id, ok := ti.tokenIDs[strings.ToLower(w)]; ok {
			drop.Or(ti.postings[id])
		}
	}
	if drop.IsEmpty() {
		return candidates
	}

	out := candidates[:0]
	for _, f := range candidates {
		if !drop.Contains(f.ID) {
			out = append(out, f)
		}
	}
	return out
}

// Reset discards all entries, called at the start of a full index rebuild.
func (ti *TokenIndex) Reset() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.tokenIDs = make(map[string]uint32)
	ti.postings = make(map[uint32]*roaring.Bitmap)
	ti.filesByID = make(map[uint32]*tree.File)
	ti.nextTokenID = 0
}

func words(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}
