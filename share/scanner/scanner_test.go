package scanner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/h0od/airdcpp-webclient/share/bloomfilter"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/index"
	"github.com/h0od/airdcpp-webclient/share/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirIterator serves a fixed in-memory directory tree keyed by real path.
type fakeDirIterator struct {
	entries map[string][]external.DirEntry
	files   map[string][]byte
}

func (f *fakeDirIterator) ReadDir(path string) ([]external.DirEntry, error) {
	e, ok := f.entries[path]
	if !ok {
		return nil, errors.New("no such directory: " + path)
	}
	return e, nil
}

func (f *fakeDirIterator) Open(path string) (io.ReadCloser, error) {
	if f.files == nil {
		return nil, errors.New("not implemented")
	}
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeHashManager struct {
	byPath map[string]hashid.Hash
}

func (h *fakeHashManager) Lookup(path string, size int64, mtime uint32) (hashid.Hash, bool) {
	v, ok := h.byPath[path]
	return v, ok
}

func (h *fakeHashManager) Store(path string, size int64, mtime uint32, tth hashid.Hash) error {
	h.byPath[path] = tth
	return nil
}

type scannerFakeQueue struct{}

func (scannerFakeQueue) IsForbiddenPath(string) bool                                          { return false }
func (scannerFakeQueue) IsQueued(hashid.Hash) bool                                             { return false }
func (scannerFakeQueue) SubmitBundle(context.Context, string, []external.QueuedFile, int) error { return nil }

func buildScannerFixture(t *testing.T) (*Scanner, *tree.ShareTree, []*tree.Root) {
	t.Helper()

	st := tree.New()
	root, err := st.AddRoot("/data/music", "Music", []int{0}, false)
	require.NoError(t, err)

	dirIter := &fakeDirIterator{entries: map[string][]external.DirEntry{
		"/data/music": {
			{Name: "song.mp3", Size: 100},
			{Name: "Live", IsDir: true},
			{Name: ".hidden.mp3", Size: 10, Hidden: true},
		},
		"/data/music/Live": {
			{Name: "concert.flac", Size: 200},
		},
	}}

	hashMgr := &fakeHashManager{byPath: map[string]hashid.Hash{
		"/data/music/song.mp3":        hashByte(1),
		"/data/music/Live/concert.flac": hashByte(2),
	}}

	s := New(Deps{
		Tree:     st,
		Bloom:    bloomfilter.New(1<<16, 4),
		TTH:      index.NewTTHIndex(),
		Names:    index.NewNameIndex(),
		SizeTime: index.NewSizeTimeIndex(),
		Tokens:   index.NewTokenIndex(),
		DirIter:  dirIter,
		HashMgr:  hashMgr,
		QueueMgr: scannerFakeQueue{},
	})

	return s, st, []*tree.Root{root}
}

func hashByte(b byte) hashid.Hash {
	var h hashid.Hash
	h[0] = b
	return h
}

func TestScannerRefreshAllPopulatesTreeAndIndices(t *testing.T) {
	s, st, roots := buildScannerFixture(t)

	code := s.Enqueue(RefreshAll, roots, nil)
	assert.Equal(t, Started, code)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.tth.Len() == 0 {
		time.Sleep(time.Millisecond)
	}

	assert.Equal(t, 2, s.tth.Len(), "song.mp3 and concert.flac should both be indexed")

	dir, err := st.FindDirectory("/Music/Live", 0)
	require.NoError(t, err)
	_, ok := dir.Files["concert.flac"]
	assert.True(t, ok)

	musicDir, err := st.FindDirectory("/Music", 0)
	require.NoError(t, err)
	_, ok = musicDir.Files["song.mp3"]
	assert.True(t, ok)
	_, ok = musicDir.Files[".hidden.mp3"]
	assert.False(t, ok, "hidden entries are skipped unless ShareHidden is set")

	assert.NotNil(t, s.tokens.MatchAll([]string{"song"}), "token index should be rebuilt alongside the TTH index")
}

func TestScannerEnqueueRefusesConcurrentRun(t *testing.T) {
	s, _, roots := buildScannerFixture(t)

	first := s.Enqueue(RefreshAll, roots, nil)
	second := s.Enqueue(RefreshAll, roots, nil)

	assert.Equal(t, Started, first)
	assert.Equal(t, InProgress, second)

	s.Shutdown()
}

func TestScannerReadExifTagsSwallowsOpenError(t *testing.T) {
	s := &Scanner{dirIter: &fakeDirIterator{}}
	assert.Nil(t, s.readExifTags("/data/music/cover.jpg"))
}

func TestScannerReadExifTagsSwallowsDecodeError(t *testing.T) {
	s := &Scanner{dirIter: &fakeDirIterator{files: map[string][]byte{
		"/data/music/cover.jpg": []byte("not a real jpeg"),
	}}}
	assert.Nil(t, s.readExifTags("/data/music/cover.jpg"))
}

func TestScannerWalkTagsPictureFilesBestEffort(t *testing.T) {
	st := tree.New()
	root, err := st.AddRoot("/data/photos", "Photos", []int{0}, false)
	require.NoError(t, err)

	dirIter := &fakeDirIterator{
		entries: map[string][]external.DirEntry{
			"/data/photos": {{Name: "cover.jpg", Size: 10}},
		},
		files: map[string][]byte{
			// No EXIF segment: decode fails and the file is still shared,
			// just without Tags, matching the scan-continues-on-error policy.
			"/data/photos/cover.jpg": []byte("not a real jpeg"),
		},
	}
	hashMgr := &fakeHashManager{byPath: map[string]hashid.Hash{
		"/data/photos/cover.jpg": hashByte(3),
	}}

	s := New(Deps{
		Tree:     st,
		Bloom:    bloomfilter.New(1<<16, 4),
		TTH:      index.NewTTHIndex(),
		Names:    index.NewNameIndex(),
		SizeTime: index.NewSizeTimeIndex(),
		Tokens:   index.NewTokenIndex(),
		DirIter:  dirIter,
		HashMgr:  hashMgr,
		QueueMgr: scannerFakeQueue{},
	})

	code := s.Enqueue(RefreshAll, []*tree.Root{root}, nil)
	require.Equal(t, Started, code)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && s.tth.Len() == 0 {
		time.Sleep(time.Millisecond)
	}

	dir, err := st.FindDirectory("/Photos", 0)
	require.NoError(t, err)
	f, ok := dir.Files["cover.jpg"]
	require.True(t, ok)
	assert.Nil(t, f.Tags)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "REFRESH_ALL", RefreshAll.String())
	assert.Equal(t, "REFRESH_INCOMING", RefreshIncoming.String())
	assert.Equal(t, "REFRESH_DIR", RefreshDir.String())
	assert.Equal(t, "ADD_DIR", AddDir.String())
	assert.Equal(t, "REFRESH_STARTUP", RefreshStartup.String())
}
