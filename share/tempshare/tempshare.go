// Package tempshare implements ad-hoc TTH-keyed sharing outside the share
// tree: files granted to a specific remote user (or made public) without
// adding a whole directory to any profile (spec §3.1, §5).
package tempshare

import (
	"sync"

	"github.com/google/uuid"
	"github.com/h0od/airdcpp-webclient/share/hashid"
)

// Record is one temp-share grant.
type Record struct {
	// GrantID uniquely identifies this grant (§4.12's "temp-share keys"),
	// independent of TTH/Key so the same content can be granted to several
	// users without their revocations colliding.
	GrantID string
	TTH     hashid.Hash
	Path    string
	Size    int64
	// Key is the remote user's CID string; empty means public (anyone with
	// the TTH may request the file).
	Key string
}

// Table is the temp-share table, guarded by a plain mutex per the
// concurrency model's "Temp-share lock — plain mutex" (§5).
type Table struct {
	mu      sync.Mutex
	byTTH   map[hashid.Hash][]*Record
}

func NewTable() *Table {
	return &Table{byTTH: make(map[hashid.Hash][]*Record)}
}

// Add grants access to path (size bytes, hashed to tth) for key (empty for
// public).
func (t *Table) Add(tth hashid.Hash, path string, size int64, key string) *Record {
	r := &Record{GrantID: uuid.NewString(), TTH: tth, Path: path, Size: size, Key: key}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTTH[tth] = append(t.byTTH[tth], r)
	return r
}

// Lookup returns the record granting tth to key, falling back to a public
// grant (empty key) if no user-specific grant exists.
func (t *Table) Lookup(tth hashid.Hash, key string) (*Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var public *Record
	for _, r := range t.byTTH[tth] {
		if r.Key == key {
			return r, true
		}
		if r.Key == "" {
			public = r
		}
	}
	if public != nil {
		return public, true
	}
	return nil, false
}

// RemoveByPath revokes every grant pointing at path.
func (t *Table) RemoveByPath(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for tth, records := range t.byTTH {
		kept := records[:0]
		for _, r := range records {
			if r.Path != path {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(t.byTTH, tth)
		} else {
			t.byTTH[tth] = kept
		}
	}
}

// Len reports how many distinct TTHs currently have at least one grant.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byTTH)
}
