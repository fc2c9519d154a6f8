// Package external declares the collaborators the sharing core treats as
// out of scope, named only by their interface (spec §1): the queue/download
// manager, hash manager, settings store, log sink, ADC codec, client
// connection layer, UI event bus, and on-disk directory iterator. Callers
// inject concrete implementations; this package never provides one.
package external

import (
	"context"
	"io"
	"time"

	"github.com/h0od/airdcpp-webclient/share/hashid"
)

// QueueManager answers forbidden-path and already-queued queries about the
// active download queue, and accepts bundle submissions from the download
// planner. It declares no completion-callback method.
type QueueManager interface {
	// IsForbiddenPath reports whether path is an active download's target,
	// which the scanner must skip.
	IsForbiddenPath(path string) bool
	// IsQueued reports whether tth is already queued (for dupe annotation).
	IsQueued(tth hashid.Hash) bool
	// SubmitBundle hands the queue a set of files to download as one
	// atomic group under targetPath, at the given priority.
	SubmitBundle(ctx context.Context, targetPath string, files []QueuedFile, priority int) error
}

// QueuedFile is one file handed to the queue manager as part of a bundle
// submission (spec §4.8's "(path, size, hash, user, flags)" tuple).
type QueuedFile struct {
	RemotePath string
	LocalPath  string
	Size       int64
	TTH        hashid.Hash
	UserCID    string
	Flags      int
}

// HashManager supplies a cached TTH for a real path given its size and
// mtime, and stores Merkle tree leaves once a file has been hashed.
type HashManager interface {
	// Lookup returns the cached TTH for (path, size, mtime), or ok=false if
	// the file has not been hashed yet (§4.2: "only files with a known TTH
	// enter the tree").
	Lookup(path string, size int64, mtime uint32) (hashid.Hash, bool)
	// Store records a freshly computed TTH for later lookups.
	Store(path string, size int64, mtime uint32, tth hashid.Hash) error
}

// SettingsStore exposes the process-wide settings the sharing core reads
// but does not own (skip-list patterns, SHARE_HIDDEN, REMOVE_FORBIDDEN,
// SKIP_SUBTRACT threshold, and so on).
type SettingsStore interface {
	GetBool(key string) bool
	GetInt(key string) int
	GetString(key string) string
	GetStringSlice(key string) []string
}

// LogSink is the localization/log sink external collaborator; the core logs
// through log/slog directly and only calls this for user-facing,
// localizable status lines.
type LogSink interface {
	Status(message string, args ...any)
}

// ADCCodec is the ADC protocol codec: encodes/decodes search and result
// commands the core exchanges with the client-connection layer.
type ADCCodec interface {
	EncodeSearch(query SearchQuery) ([]byte, error)
	DecodeResult(payload []byte) (SearchResult, error)
}

// SearchQuery is the wire-agnostic shape an ADC/NMDC search is expressed in
// before codec encoding.
type SearchQuery struct {
	Include     []string
	Exclude     []string
	Ext         []string
	HasRoot     hashid.Hash
	MinSize     int64
	MaxSize     int64
	IsDirectory bool
}

// SearchResult is one hit returned from a direct (peer-dispatched) search.
type SearchResult struct {
	Path string
	Size int64
	TTH  hashid.Hash
	Slots int
}

// ClientConnection dispatches a direct search to one connected peer and
// waits for results, used by the remote listing worker's "SEARCH" task
// case (b) (spec §4.9).
type ClientConnection interface {
	DispatchSearch(ctx context.Context, userCID string, query SearchQuery) (<-chan SearchResult, error)
}

// UIEventBus receives task-completion events the remote listing worker
// emits (spec §4.9). The worker fills Kind, StartTick and WasPartial; it
// leaves BasePath empty.
type UIEventBus interface {
	Publish(event Event)
}

// Event is one listener-bus notification.
type Event struct {
	Kind      string
	BasePath  string
	StartTick time.Time
	WasPartial bool
}

// DirEntry is one on-disk directory iterator result.
type DirEntry struct {
	Name          string
	IsDir         bool
	Hidden        bool
	Size          int64
	LastWriteTime uint32
}

// DirIterator enumerates a real filesystem directory's immediate children,
// reporting the hidden flag and mtime the scanner needs without depending
// on any one OS's stat layout.
type DirIterator interface {
	// ReadDir lists path's immediate children.
	ReadDir(path string) ([]DirEntry, error)
	// Open opens a real file for hashing/reading.
	Open(path string) (io.ReadCloser, error)
}
