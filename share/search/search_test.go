package search

import (
	"testing"

	"github.com/h0od/airdcpp-webclient/share/bloomfilter"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/index"
	"github.com/h0od/airdcpp-webclient/share/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T) (*Engine, hashid.Hash) {
	t.Helper()

	st := tree.New()
	root, err := st.AddRoot("/data/music", "Music", []int{0}, false)
	require.NoError(t, err)

	var tth hashid.Hash
	tth[0] = 7
	f := &tree.File{Name: "favorite-song.mp3", Size: 500, TTH: tth}
	root.Node.AddFile(f)

	sub := tree.NewDirectory("Live", nil)
	sub.AddFile(&tree.File{Name: "concert.flac", Size: 900})
	root.Node.AddDirectory(sub)

	root.Node.PrecomputeVisibility([]int{0})

	bloom := bloomfilter.New(1<<16, 4)
	bloom.Add("favorite-song.mp3")
	bloom.Add("concert.flac")
	bloom.Add("music")
	bloom.Add("live")

	tthIdx := index.NewTTHIndex()
	tthIdx.Add(f)

	tokens := index.NewTokenIndex()
	tokens.Add(f)

	return NewEngine(st, bloom, tthIdx, tokens), tth
}

func TestNMDCSearchFindsFileByToken(t *testing.T) {
	eng, _ := buildFixture(t)

	results := eng.NMDCSearch(NMDCQuery{Raw: "favorite"})
	require.Len(t, results, 1)
	assert.Equal(t, "Music/favorite-song.mp3", results[0].VirtualPath)
}

func TestNMDCSearchBloomShortCircuitsMiss(t *testing.T) {
	eng, _ := buildFixture(t)

	results := eng.NMDCSearch(NMDCQuery{Raw: "definitely-not-present"})
	assert.Empty(t, results)
}

func TestNMDCSearchDirectoryTokenPrunesSubquery(t *testing.T) {
	eng, _ := buildFixture(t)

	results := eng.NMDCSearch(NMDCQuery{Raw: "live$concert"})
	require.Len(t, results, 1)
	assert.Equal(t, "Music/Live/concert.flac", results[0].VirtualPath)
}

func TestADCSearchByHasRoot(t *testing.T) {
	eng, tth := buildFixture(t)

	results := eng.ADCSearch(ADCQuery{HasRoot: tth})
	require.Len(t, results, 1)
	assert.Equal(t, tth, results[0].TTH)
}

func TestADCSearchExcludeFiltersMatches(t *testing.T) {
	eng, _ := buildFixture(t)

	results := eng.ADCSearch(ADCQuery{Include: []string{"favorite"}, Exclude: []string{"song"}})
	assert.Empty(t, results)
}

func TestADCSearchSizeBounds(t *testing.T) {
	eng, _ := buildFixture(t)

	results := eng.ADCSearch(ADCQuery{Include: []string{"favorite"}, MinSize: 1000})
	assert.Empty(t, results, "file is smaller than MinSize")
}

func TestDirectSearchMatchesDirectoryPredicate(t *testing.T) {
	eng, _ := buildFixture(t)

	matches := eng.DirectSearch(NMDCQuery{}, func(name string) bool { return name == "Live" })
	require.Len(t, matches, 1)
	assert.Equal(t, "Music/Live", matches[0])
}
