package index

import (
	"testing"

	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/tree"
	"github.com/stretchr/testify/assert"
)

func hashByte(b byte) hashid.Hash {
	var h hashid.Hash
	h[0] = b
	return h
}

func TestTTHIndexAddAndLookup(t *testing.T) {
	idx := NewTTHIndex()
	tth := hashByte(1)
	f1 := &tree.File{ID: 1, Name: "a.mp3", TTH: tth}
	f2 := &tree.File{ID: 2, Name: "b.mp3", TTH: tth} // same content, two virtual names

	idx.Add(f1)
	idx.Add(f2)

	hits := idx.Lookup(tth)
	assert.Len(t, hits, 2)
	assert.Equal(t, 1, idx.Len())
}

func TestTTHIndexLookupMiss(t *testing.T) {
	idx := NewTTHIndex()
	assert.Nil(t, idx.Lookup(hashByte(9)))
}

func TestTTHIndexPostingsReturnsFileIDs(t *testing.T) {
	idx := NewTTHIndex()
	tth := hashByte(3)
	idx.Add(&tree.File{ID: 5, Name: "a.mp3", TTH: tth})
	idx.Add(&tree.File{ID: 7, Name: "b.mp3", TTH: tth})

	bm := idx.Postings(tth)
	assert.Equal(t, uint64(2), bm.GetCardinality())
	assert.True(t, bm.Contains(5))
	assert.True(t, bm.Contains(7))

	// Postings returns a copy: mutating it must not affect the index.
	bm.Add(9)
	assert.False(t, idx.Postings(tth).Contains(9))
}

func TestTTHIndexPostingsUnknownHashIsEmpty(t *testing.T) {
	idx := NewTTHIndex()
	bm := idx.Postings(hashByte(9))
	assert.True(t, bm.IsEmpty())
}

func TestTTHIndexReset(t *testing.T) {
	idx := NewTTHIndex()
	idx.Add(&tree.File{Name: "a.mp3", TTH: hashByte(1)})
	idx.Reset()
	assert.Equal(t, 0, idx.Len())
}
