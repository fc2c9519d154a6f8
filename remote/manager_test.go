package remote

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerFakeQueue struct {
	submitted []external.QueuedFile
}

func (q *managerFakeQueue) IsForbiddenPath(string) bool  { return false }
func (q *managerFakeQueue) IsQueued(hashid.Hash) bool     { return false }
func (q *managerFakeQueue) SubmitBundle(_ context.Context, _ string, files []external.QueuedFile, _ int) error {
	q.submitted = append(q.submitted, files...)
	return nil
}

func TestManagerOpenListingReusesWorker(t *testing.T) {
	m := New(Deps{})

	w1 := m.OpenListing("user-1", true, false)
	w2 := m.OpenListing("user-1", true, false)

	assert.Same(t, w1, w2)
}

func TestManagerCloseListingRemovesWorker(t *testing.T) {
	m := New(Deps{})

	m.OpenListing("user-1", true, false)
	m.CloseListing("user-1")

	_, ok := m.workers["user-1"]
	assert.False(t, ok)
}

func TestManagerLoadFileThenDownload(t *testing.T) {
	queue := &managerFakeQueue{}
	m := New(Deps{Queue: queue})

	m.OpenListing("user-1", false, false)
	m.LoadFile("user-1", strings.NewReader(workerSampleListing), false)

	// give the single-worker goroutine a moment to drain the LOAD_FILE task.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := m.workers["user-1"]
		if _, ok := w.listing.Root.FindChild("Music"); ok {
			break
		}
		time.Sleep(time.Millisecond)
	}

	err := m.Download(context.Background(), "user-1", "/Music", PlanOptions{TargetTemplate: "/dl", Now: time.Unix(0, 0)})
	require.NoError(t, err)
	require.Len(t, queue.submitted, 1)
	assert.Equal(t, "song.mp3", queue.submitted[0].RemotePath[strings.LastIndex(queue.submitted[0].RemotePath, "/")+1:])
}

func TestManagerDownloadUnknownListing(t *testing.T) {
	m := New(Deps{})
	err := m.Download(context.Background(), "ghost", "/", PlanOptions{})
	assert.Error(t, err)
}

func TestResolveListingPathRoot(t *testing.T) {
	m := New(Deps{})
	w := m.OpenListing("user-1", false, false)
	assert.Same(t, w.listing.Root, resolveListingPath(w.listing.Root, "/"))
	assert.Same(t, w.listing.Root, resolveListingPath(w.listing.Root, ""))
}
