package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistrySeedsReservedProfiles(t *testing.T) {
	r := NewRegistry()

	def, ok := r.Get(Default)
	require.True(t, ok)
	assert.Equal(t, "Default", def.Name)

	hidden, ok := r.Get(Hidden)
	require.True(t, ok)
	assert.Equal(t, "Hidden", hidden.Name)
}

func TestRegistryCreateAssignsIDsAboveReserved(t *testing.T) {
	r := NewRegistry()
	p1 := r.Create("Friends")
	p2 := r.Create("Family")

	assert.Greater(t, p1.ID, 10)
	assert.Greater(t, p2.ID, p1.ID)
}

func TestRegistryRemoveRejectsReserved(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Remove(Default))
	assert.Error(t, r.Remove(Hidden))
}

func TestRegistryRemoveUnknown(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Remove(999))
}

func TestRegistryRemoveUserProfile(t *testing.T) {
	r := NewRegistry()
	p := r.Create("Friends")
	require.NoError(t, r.Remove(p.ID))
	_, ok := r.Get(p.ID)
	assert.False(t, ok)
}

func TestRegistryRenameReservedAllowed(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Rename(Default, "Everyone"))
	p, _ := r.Get(Default)
	assert.Equal(t, "Everyone", p.Name)
}

func TestRegistryAllIncludesEverything(t *testing.T) {
	r := NewRegistry()
	r.Create("Friends")
	assert.Len(t, r.All(), 3)
}
