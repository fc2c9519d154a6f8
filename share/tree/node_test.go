package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryAddFileAggregatesSize(t *testing.T) {
	d := NewDirectory("Music", nil)
	d.AddFile(&File{Name: "song.mp3", Size: 100})
	d.AddFile(&File{Name: "other.flac", Size: 50})

	assert.Equal(t, int64(150), d.Size)
	_, ok := d.Files["song.mp3"]
	assert.True(t, ok, "files are keyed by lowercased name")
}

func TestDirectoryTotalSizeIncludesDescendants(t *testing.T) {
	root := NewDirectory("root", nil)
	root.AddFile(&File{Name: "top.txt", Size: 10})

	child := NewDirectory("child", nil)
	child.AddFile(&File{Name: "leaf.txt", Size: 5})
	root.AddDirectory(child)

	assert.Equal(t, int64(15), root.TotalSize())
}

func TestDirectoryRootWalksToTop(t *testing.T) {
	root := NewDirectory("root", nil)
	child := NewDirectory("child", nil)
	root.AddDirectory(child)
	grandchild := NewDirectory("grand", nil)
	child.AddDirectory(grandchild)

	assert.Same(t, root, grandchild.Root())
}

func TestProfileDirectoryHasProfile(t *testing.T) {
	pd := NewProfileDirectory(FlagRoot)
	pd.ShareProfiles[1] = "Music"

	assert.True(t, pd.HasProfile(1))
	assert.False(t, pd.HasProfile(2))

	var nilPD *ProfileDirectory
	assert.False(t, nilPD.HasProfile(1), "a nil ProfileDirectory has no profiles")
}

func TestProfileDirectoryIsExcluded(t *testing.T) {
	pd := NewProfileDirectory(0)
	pd.ExcludedProfiles[3] = struct{}{}

	assert.True(t, pd.IsExcluded(3))
	assert.False(t, pd.IsExcluded(4))

	total := NewProfileDirectory(FlagExcludeTotal)
	assert.True(t, total.IsExcluded(99), "FlagExcludeTotal excludes every profile")
}

func TestVisibleForWithoutPrecompute(t *testing.T) {
	root := NewDirectory("root", nil)
	root.ProfileDir = NewProfileDirectory(FlagRoot)

	child := NewDirectory("child", nil)
	root.AddDirectory(child)

	assert.True(t, child.VisibleFor(1), "no exclusion anywhere in the ancestor chain")

	root.ProfileDir.Flags |= FlagExcludeTotal
	assert.False(t, child.VisibleFor(1), "an excluded ancestor hides descendants")
}

func TestPrecomputeVisibilityCachesExclusion(t *testing.T) {
	root := NewDirectory("root", nil)
	root.ProfileDir = NewProfileDirectory(FlagRoot)
	child := NewDirectory("child", nil)
	root.AddDirectory(child)

	child.ProfileDir = NewProfileDirectory(0)
	child.ProfileDir.ExcludedProfiles[1] = struct{}{}

	root.PrecomputeVisibility([]int{1, 2})

	assert.False(t, child.VisibleFor(1))
	assert.True(t, child.VisibleFor(2))
	assert.True(t, root.VisibleFor(1))
}
