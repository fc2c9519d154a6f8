package remote

import (
	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/index"
)

// ShareDupeChecker classifies a single incoming file against the local
// share (spec §4.7's "isFileShared(tth, name)").
type ShareDupeChecker struct {
	tth   *index.TTHIndex
	queue external.QueueManager
}

// NewShareDupeChecker builds an annotator backed by the local TTH index and
// the injected queue manager.
func NewShareDupeChecker(tth *index.TTHIndex, queue external.QueueManager) *ShareDupeChecker {
	return &ShareDupeChecker{tth: tth, queue: queue}
}

// Annotate implements DupeAnnotator: SHARE_DUPE beats QUEUE_DUPE, matching
// the "if shared else if queued else none" priority of §4.7.
func (c *ShareDupeChecker) Annotate(tth hashid.Hash, name string) listing.Dupe {
	if c.isFileShared(tth, name) {
		return listing.DupeShare
	}
	if c.queue != nil && c.queue.IsQueued(tth) {
		return listing.DupeQueue
	}
	return listing.DupeNone
}

// isFileShared reports whether any locally-shared file carries tth.
func (c *ShareDupeChecker) isFileShared(tth hashid.Hash, name string) bool {
	if c.tth == nil || tth == (hashid.Hash{}) {
		return false
	}
	return len(c.tth.Lookup(tth)) > 0
}
