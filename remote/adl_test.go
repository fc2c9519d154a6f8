package remote

import (
	"testing"

	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMatchClonesIntoAdlsSubtree(t *testing.T) {
	root := listing.NewDirectory("", nil)
	root.AddFile(&listing.File{Name: "movie.iso", Size: 100})
	root.AddFile(&listing.File{Name: "readme.txt", Size: 10})

	e := NewEngine([]Rule{{Name: "isos", Pattern: "*.iso"}})

	matched := e.Match(root)
	assert.Equal(t, 1, matched)

	adls, ok := root.FindChild(AdlSubtreeName)
	require.True(t, ok)
	_, ok = adls.FindFile("movie.iso")
	assert.True(t, ok)

	// the original file stays in place; adls holds a clone.
	_, ok = root.FindFile("movie.iso")
	assert.True(t, ok)
}

func TestEngineClearAdls(t *testing.T) {
	root := listing.NewDirectory("", nil)
	root.AddFile(&listing.File{Name: "movie.iso", Size: 100})

	e := NewEngine([]Rule{{Name: "isos", Pattern: "*.iso"}})
	e.Match(root)

	_, ok := root.FindChild(AdlSubtreeName)
	require.True(t, ok)

	e.ClearAdls(root)
	_, ok = root.FindChild(AdlSubtreeName)
	assert.False(t, ok)
}

func TestTotalSizeExcludingAdls(t *testing.T) {
	root := listing.NewDirectory("", nil)
	root.AddFile(&listing.File{Name: "movie.iso", Size: 100})

	e := NewEngine([]Rule{{Name: "isos", Pattern: "*.iso"}})
	e.Match(root)

	assert.Equal(t, int64(100), TotalSizeExcludingAdls(root))
}
