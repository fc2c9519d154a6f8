package tempshare

import (
	"testing"

	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tthByte(b byte) hashid.Hash {
	var h hashid.Hash
	h[0] = b
	return h
}

func TestTableLookupUserSpecificBeatsPublic(t *testing.T) {
	tbl := NewTable()
	tth := tthByte(1)
	tbl.Add(tth, "/movie.iso", 100, "")
	tbl.Add(tth, "/movie.iso", 100, "user-cid")

	r, ok := tbl.Lookup(tth, "user-cid")
	require.True(t, ok)
	assert.Equal(t, "user-cid", r.Key)
}

func TestTableLookupFallsBackToPublic(t *testing.T) {
	tbl := NewTable()
	tth := tthByte(2)
	tbl.Add(tth, "/movie.iso", 100, "")

	r, ok := tbl.Lookup(tth, "some-other-user")
	require.True(t, ok)
	assert.Equal(t, "", r.Key)
}

func TestTableLookupMiss(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Lookup(tthByte(3), "anyone")
	assert.False(t, ok)
}

func TestTableRemoveByPath(t *testing.T) {
	tbl := NewTable()
	tth := tthByte(4)
	tbl.Add(tth, "/movie.iso", 100, "")
	require.Equal(t, 1, tbl.Len())

	tbl.RemoveByPath("/movie.iso")
	assert.Equal(t, 0, tbl.Len())
	_, ok := tbl.Lookup(tth, "")
	assert.False(t, ok)
}

func TestTableAddAssignsUniqueGrantIDs(t *testing.T) {
	tbl := NewTable()
	tth := tthByte(6)
	a := tbl.Add(tth, "/a.iso", 1, "")
	b := tbl.Add(tth, "/b.iso", 1, "")

	assert.NotEmpty(t, a.GrantID)
	assert.NotEmpty(t, b.GrantID)
	assert.NotEqual(t, a.GrantID, b.GrantID)
}

func TestTableRemoveByPathLeavesOtherGrants(t *testing.T) {
	tbl := NewTable()
	tth := tthByte(5)
	tbl.Add(tth, "/a.iso", 1, "")
	tbl.Add(tth, "/b.iso", 1, "")

	tbl.RemoveByPath("/a.iso")
	r, ok := tbl.Lookup(tth, "")
	require.True(t, ok)
	assert.Equal(t, "/b.iso", r.Path)
}
