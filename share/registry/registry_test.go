package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestSaveAndLoadRoots(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.SaveRoot(RootRow{
		ProfileID:   0,
		ProfileName: "Default",
		RootPath:    "/data/music",
		VirtualName: "Music",
		Flags:       1,
	}))

	rows, err := r.LoadRoots()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "/data/music", rows[0].RootPath)
	assert.Equal(t, "Music", rows[0].VirtualName)
}

func TestSaveRootUpsertsOnConflict(t *testing.T) {
	r := newTestRegistry(t)

	row := RootRow{ProfileID: 0, ProfileName: "Default", RootPath: "/data/music", VirtualName: "Music"}
	require.NoError(t, r.SaveRoot(row))

	row.VirtualName = "MusicRenamed"
	require.NoError(t, r.SaveRoot(row))

	rows, err := r.LoadRoots()
	require.NoError(t, err)
	require.Len(t, rows, 1, "same (profile_id, root_path) key updates in place")
	assert.Equal(t, "MusicRenamed", rows[0].VirtualName)
}

func TestDeleteRootRemovesAllProfilePairings(t *testing.T) {
	r := newTestRegistry(t)

	require.NoError(t, r.SaveRoot(RootRow{ProfileID: 0, ProfileName: "Default", RootPath: "/data/music", VirtualName: "Music"}))
	require.NoError(t, r.SaveRoot(RootRow{ProfileID: 11, ProfileName: "Friends", RootPath: "/data/music", VirtualName: "Music"}))

	require.NoError(t, r.DeleteRoot("/data/music"))

	rows, err := r.LoadRoots()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadRootsEmptyRegistry(t *testing.T) {
	r := newTestRegistry(t)

	rows, err := r.LoadRoots()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
