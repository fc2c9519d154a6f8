package remote

import (
	"context"
	"testing"

	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/index"
	"github.com/h0od/airdcpp-webclient/share/tree"
	"github.com/stretchr/testify/assert"
)

type queueStub struct {
	queued map[hashid.Hash]bool
}

func (q *queueStub) IsForbiddenPath(string) bool { return false }

func (q *queueStub) IsQueued(tth hashid.Hash) bool { return q.queued[tth] }

func (q *queueStub) SubmitBundle(context.Context, string, []external.QueuedFile, int) error {
	return nil
}

func hashOfByte(b byte) hashid.Hash {
	var h hashid.Hash
	h[0] = b
	return h
}

func TestShareDupeCheckerPriority(t *testing.T) {
	sharedTTH := hashOfByte(1)
	queuedTTH := hashOfByte(2)

	idx := index.NewTTHIndex()
	idx.Add(&tree.File{Name: "shared.bin", TTH: sharedTTH})

	checker := NewShareDupeChecker(idx, &queueStub{queued: map[hashid.Hash]bool{queuedTTH: true}})

	t.Run("share dupe wins when both index and queue could match", func(t *testing.T) {
		assert.Equal(t, listing.DupeShare, checker.Annotate(sharedTTH, "shared.bin"))
	})

	t.Run("queue dupe reported when not locally shared", func(t *testing.T) {
		assert.Equal(t, listing.DupeQueue, checker.Annotate(queuedTTH, "queued.bin"))
	})

	t.Run("no dupe for unknown content", func(t *testing.T) {
		assert.Equal(t, listing.DupeNone, checker.Annotate(hashOfByte(3), "unknown.bin"))
	})
}
