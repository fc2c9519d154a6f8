package filelist

import (
	"compress/bzip2"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildListingFixture(t *testing.T) *tree.ShareTree {
	t.Helper()
	st := tree.New()
	root, err := st.AddRoot("/data/music", "Music", []int{0}, false)
	require.NoError(t, err)

	root.Node.AddFile(&tree.File{Name: "song.mp3", Size: 100})

	sub := tree.NewDirectory("Live", nil)
	sub.AddFile(&tree.File{Name: "concert.flac", Size: 200})
	root.Node.AddDirectory(sub)

	root.Node.PrecomputeVisibility([]int{0})
	return st
}

func TestGenerateFullRoundTripsThroughBzip2(t *testing.T) {
	st := buildListingFixture(t)
	var cid hashid.CID
	gen := New(st, cid, "sharecore-test 1.0")

	compressed, generation, err := gen.GenerateFull(0)
	require.NoError(t, err)
	assert.Equal(t, 1, generation)

	raw, err := io.ReadAll(bzip2.NewReader(strings.NewReader(string(compressed))))
	require.NoError(t, err)

	var doc xmlFileListing
	require.NoError(t, xml.Unmarshal(raw, &doc))
	require.Len(t, doc.Dirs, 1)
	assert.Equal(t, "Music", doc.Dirs[0].Name)
	require.Len(t, doc.Dirs[0].Files, 1)
	assert.Equal(t, "song.mp3", doc.Dirs[0].Files[0].Name)
	require.Len(t, doc.Dirs[0].Dirs, 1)
	assert.Equal(t, "Live", doc.Dirs[0].Dirs[0].Name)
}

func TestGenerateFullUsesPerProfileVirtualName(t *testing.T) {
	st := tree.New()
	root, err := st.AddRoot("/data/music", "Music", []int{0}, false)
	require.NoError(t, err)
	// A distinct virtual name for profile 1, exercising resolution via
	// ProfileDir.ShareProfiles rather than RealName (spec §3.1).
	root.Node.ProfileDir.ShareProfiles[1] = "Tunes"
	root.Node.PrecomputeVisibility([]int{0, 1})

	gen := New(st, hashid.CID{}, "sharecore-test 1.0")
	compressed, _, err := gen.GenerateFull(1)
	require.NoError(t, err)

	raw, err := io.ReadAll(bzip2.NewReader(strings.NewReader(string(compressed))))
	require.NoError(t, err)
	var doc xmlFileListing
	require.NoError(t, xml.Unmarshal(raw, &doc))
	require.Len(t, doc.Dirs, 1)
	assert.Equal(t, "Tunes", doc.Dirs[0].Name)
}

func TestGenerateFullMergesRootsBySharedPerProfileVirtualName(t *testing.T) {
	st := tree.New()
	rootA, err := st.AddRoot("/data/a", "A", []int{0}, false)
	require.NoError(t, err)
	rootB, err := st.AddRoot("/data/b", "B", []int{0}, false)
	require.NoError(t, err)

	// Distinct real names but the same virtual name for profile 1: they
	// must merge into one <Directory> element for that profile even though
	// they don't for profile 0.
	rootA.Node.ProfileDir.ShareProfiles[1] = "Shared"
	rootB.Node.ProfileDir.ShareProfiles[1] = "Shared"
	rootA.Node.AddFile(&tree.File{Name: "a.mp3", Size: 1})
	rootB.Node.AddFile(&tree.File{Name: "b.mp3", Size: 1})
	rootA.Node.PrecomputeVisibility([]int{0, 1})
	rootB.Node.PrecomputeVisibility([]int{0, 1})

	gen := New(st, hashid.CID{}, "sharecore-test 1.0")
	compressed, _, err := gen.GenerateFull(1)
	require.NoError(t, err)

	raw, err := io.ReadAll(bzip2.NewReader(strings.NewReader(string(compressed))))
	require.NoError(t, err)
	var doc xmlFileListing
	require.NoError(t, xml.Unmarshal(raw, &doc))
	require.Len(t, doc.Dirs, 1, "roots sharing a per-profile virtual name merge into one entry")
	assert.Equal(t, "Shared", doc.Dirs[0].Name)
	assert.Len(t, doc.Dirs[0].Files, 2)
}

func TestGenerateFullClearsDirtyAndIncrementsGeneration(t *testing.T) {
	st := buildListingFixture(t)
	gen := New(st, hashid.CID{}, "sharecore-test 1.0")

	_, gen1, err := gen.GenerateFull(0)
	require.NoError(t, err)
	_, gen2, err := gen.GenerateFull(0)
	require.NoError(t, err)

	assert.Equal(t, gen1+1, gen2)
}

func TestMarkDirtyAndForceDirty(t *testing.T) {
	st := buildListingFixture(t)
	gen := New(st, hashid.CID{}, "sharecore-test 1.0")

	gen.MarkDirty(0)
	gen.MarkForceDirty(0)
	assert.Equal(t, 0, gen.Generation(0))
}

func TestGeneratePartialMarksSubdirsIncomplete(t *testing.T) {
	st := buildListingFixture(t)
	gen := New(st, hashid.CID{}, "sharecore-test 1.0")

	raw, err := gen.GeneratePartial("/Music", 0)
	require.NoError(t, err)

	var doc xmlFileListing
	require.NoError(t, xml.Unmarshal(raw, &doc))
	assert.Equal(t, "/Music/", doc.Base)
	require.Len(t, doc.Dirs, 1)
	assert.Equal(t, "1", doc.Dirs[0].Incomplete)
	require.Len(t, doc.Files, 1)
	assert.Equal(t, "song.mp3", doc.Files[0].Name)
}

func TestGeneratePartialUnknownPath(t *testing.T) {
	st := buildListingFixture(t)
	gen := New(st, hashid.CID{}, "sharecore-test 1.0")

	_, err := gen.GeneratePartial("/Ghost", 0)
	assert.Error(t, err)
}
