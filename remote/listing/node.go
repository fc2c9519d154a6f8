// Package listing implements the remote directory-listing tree: the nodes
// a parsed catalog document is merged into, dupe-state aggregation, and the
// LISTDIFF comparison against a second listing (spec §3.2, §4.6, §4.9).
package listing

import (
	"strings"

	"github.com/h0od/airdcpp-webclient/share/hashid"
)

// Dupe is the aggregate duplicate-content classification a directory or
// file carries relative to the local share/queue (spec §4.7).
type Dupe int

const (
	DupeNone Dupe = iota
	DupeShare
	DupeQueue
	DupePartialShare
	DupePartialQueue
	DupeShareQueue
)

// File is a leaf in a parsed remote listing.
type File struct {
	Name   string
	Size   int64
	TTH    hashid.Hash
	Parent *Directory
	Dupe   Dupe
}

// Directory is a node in a parsed remote listing (§3.2).
type Directory struct {
	Name       string
	Date       int64
	Complete   bool
	Incomplete bool
	Parent     *Directory

	Dirs  map[string]*Directory // lowercased name -> child
	Files map[string]*File      // lowercased name -> file

	Dupe Dupe
}

func NewDirectory(name string, parent *Directory) *Directory {
	return &Directory{
		Name:   name,
		Parent: parent,
		Dirs:   make(map[string]*Directory),
		Files:  make(map[string]*File),
	}
}

// Path builds this directory's full path by walking to the root.
func (d *Directory) Path() string {
	if d.Parent == nil {
		return "/"
	}
	parent := d.Parent.Path()
	if parent == "/" {
		return "/" + d.Name
	}
	return parent + "/" + d.Name
}

// AddFile inserts f under d, keyed by lowercased name.
func (d *Directory) AddFile(f *File) {
	f.Parent = d
	d.Files[strings.ToLower(f.Name)] = f
}

// AddDirectory inserts a child directory keyed by lowercased name.
func (d *Directory) AddDirectory(child *Directory) {
	child.Parent = d
	d.Dirs[strings.ToLower(child.Name)] = child
}

// FindChild looks up a direct child directory by name, case-insensitively.
func (d *Directory) FindChild(name string) (*Directory, bool) {
	c, ok := d.Dirs[strings.ToLower(name)]
	return c, ok
}

// FindFile looks up a direct child file by name, case-insensitively.
func (d *Directory) FindFile(name string) (*File, bool) {
	f, ok := d.Files[strings.ToLower(name)]
	return f, ok
}

// TotalSize sums this directory's file sizes plus every descendant's.
func (d *Directory) TotalSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	for _, c := range d.Dirs {
		total += c.TotalSize()
	}
	return total
}

// AggregateDupe folds every file and child directory's dupe state into d's
// own, following spec §4.7's rules: the first child sets the initial state,
// a non-matching sibling downgrades a full match to its PARTIAL_* form,
// mixing share and queue dupes yields SHARE_QUEUE_DUPE, zero-byte files are
// ignored, and a directory with no positive-size files of its own inherits
// straight from its children.
func (d *Directory) AggregateDupe() Dupe {
	var (
		state       Dupe = DupeNone
		hasState    bool
		hasNonMatch bool
		mixed       bool
	)

	// A DupeNone sibling is a non-matching sibling, not a no-op: it must
	// downgrade a full share/queue match to its PARTIAL_* form once folding
	// finishes, so it is tracked separately from state rather than skipped
	// (DirectoryListing.cpp:659-661).
	fold := func(child Dupe) {
		if child == DupeNone {
			hasNonMatch = true
			return
		}
		if !hasState {
			state = child
			hasState = true
			return
		}
		if state == child {
			return
		}
		if isShareLike(state) && isQueueLike(child) || isQueueLike(state) && isShareLike(child) {
			mixed = true
			return
		}
		state = partialOf(state)
	}

	for _, f := range d.Files {
		if f.Size == 0 {
			continue
		}
		fold(f.Dupe)
	}
	for _, c := range d.Dirs {
		fold(c.AggregateDupe())
	}

	switch {
	case mixed:
		d.Dupe = DupeShareQueue
	case hasState && hasNonMatch:
		d.Dupe = partialOf(state)
	case hasState:
		d.Dupe = state
	default:
		d.Dupe = DupeNone
	}

	if d.Parent == nil {
		// The root's dupe state is forced to NONE after aggregation (§4.7).
		d.Dupe = DupeNone
	}
	return d.Dupe
}

func isShareLike(d Dupe) bool { return d == DupeShare || d == DupePartialShare }
func isQueueLike(d Dupe) bool { return d == DupeQueue || d == DupePartialQueue }

func partialOf(d Dupe) Dupe {
	switch d {
	case DupeShare:
		return DupePartialShare
	case DupeQueue:
		return DupePartialQueue
	default:
		return d
	}
}
