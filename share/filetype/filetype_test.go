package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOfShortExtension(t *testing.T) {
	assert.Equal(t, Audio, TypeOf("song.mp3"))
	assert.Equal(t, Video, TypeOf("MOVIE.AVI"))
}

func TestTypeOfLongExtension(t *testing.T) {
	assert.Equal(t, Audio, TypeOf("song.flac"))
	assert.Equal(t, Video, TypeOf("movie.mkv"))
	assert.Equal(t, Document, TypeOf("book.epub"))
}

func TestTypeOfUnknownIsAny(t *testing.T) {
	assert.Equal(t, Any, TypeOf("data.bin"))
	assert.Equal(t, Any, TypeOf("noextension"))
}

func TestMatchesAnyIsWildcard(t *testing.T) {
	assert.True(t, Matches("whatever.xyz", Any))
}

func TestMatchesExactType(t *testing.T) {
	assert.True(t, Matches("song.mp3", Audio))
	assert.False(t, Matches("song.mp3", Video))
}

func TestIsForbiddenAlwaysRules(t *testing.T) {
	assert.True(t, IsForbidden("dcplusplus.xml", false))
	assert.True(t, IsForbidden("partial.dctmp", false))
	assert.False(t, IsForbidden("normal.txt", false))
}

func TestIsForbiddenRemoveForbiddenExtended(t *testing.T) {
	assert.False(t, IsForbidden("download.tmp", false), "extended rules only apply when removeForbidden is set")
	assert.True(t, IsForbidden("download.tmp", true))
	assert.True(t, IsForbidden("__padding_1234", true))
	assert.True(t, IsForbidden("file.part.met", true))
}

func TestIsReservedName(t *testing.T) {
	assert.True(t, IsReservedName(FileListBz2))
	assert.True(t, IsReservedName(FileListXML))
	assert.True(t, IsReservedName("TTH/ABCDEF"))
	assert.False(t, IsReservedName("regular-file.txt"))
}
