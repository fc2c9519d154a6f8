// Package remote implements the remote directory-listing engine: the
// streaming XML parser, dupe annotation, ADL matching, the download
// planner, and the single-worker task queue that ties them together
// (spec §3.2, §4.6-§4.10).
package remote

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/h0od/airdcpp-webclient/share/hashid"
)

// AbortedError is raised when a parse is cancelled via an external abort
// flag, caught at the worker's task boundary (§4.6 "Abort").
type AbortedError struct{}

func (AbortedError) Error() string { return "listing parse aborted" }

// AbortFunc is polled on every start-tag; returning true raises AbortedError.
type AbortFunc func() bool

// DupeAnnotator classifies an incoming file against the local share/queue
// (§4.7). A nil annotator disables dupe highlighting.
type DupeAnnotator interface {
	Annotate(tth hashid.Hash, name string) listing.Dupe
}

// Parser streams a <FileListing> document into a listing.Directory tree,
// following the update-mode state machine of §4.6: a visited-cache speeds
// repeated lookups until a node with existing children forces a fallback
// to linear scan (useCache=false), which keeps merging into an existing
// subtree safe.
type Parser struct {
	root     *listing.Directory
	base     *listing.Directory
	inCache  map[string]*listing.Directory // visited-cache, keyed by path
	updating bool
	useCache bool
	abort    AbortFunc
	dupes    DupeAnnotator
}

// NewParser creates a parser that will merge into root (updating=true) or
// build a fresh tree from scratch when root is nil.
func NewParser(root *listing.Directory, abort AbortFunc, dupes DupeAnnotator) *Parser {
	updating := root != nil
	if root == nil {
		root = listing.NewDirectory("", nil)
	}
	return &Parser{
		root:     root,
		base:     root,
		inCache:  make(map[string]*listing.Directory),
		updating: updating,
		useCache: true,
		abort:    abort,
		dupes:    dupes,
	}
}

// Root returns the tree assembled (or merged into) by Parse.
func (p *Parser) Root() *listing.Directory { return p.root }

// Parse consumes an entire file-listing XML document from r. Every
// <Directory> pushes onto stack and its matching </Directory> pops it;
// encoding/xml synthesizes an EndElement immediately for a self-closing
// <Directory .../>, so no special-casing is needed for that form.
func (p *Parser) Parse(r io.Reader) error {
	dec := xml.NewDecoder(r)
	var stack []*listing.Directory
	cur := p.base

	for {
		if p.abort != nil && p.abort() {
			return AbortedError{}
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parsing listing: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "FileListing":
				base := attr(t, "Base")
				cur = p.enterBase(base)
				stack = stack[:0]
			case "Directory":
				name := attr(t, "Name")
				child := p.enterDirectory(cur, name, attr(t, "Date"), attr(t, "Incomplete") == "1")
				stack = append(stack, cur)
				cur = child
			case "File":
				p.handleFile(cur, t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "Directory":
				if len(stack) > 0 {
					cur, stack = stack[len(stack)-1], stack[:len(stack)-1]
				}
			case "FileListing":
				p.updating = false
			}
		}
	}
	return nil
}

// enterBase resolves the Base path from root, creating segments as needed,
// records each on the visited-cache, and disables the cache fallback if the
// resolved node already carries children (§4.6 step 2).
func (p *Parser) enterBase(base string) *listing.Directory {
	base = strings.Trim(base, "/")
	cur := p.root
	path := ""
	if base != "" {
		for _, seg := range strings.Split(base, "/") {
			path += "/" + seg
			child, ok := cur.FindChild(seg)
			if !ok {
				child = listing.NewDirectory(seg, cur)
				cur.AddDirectory(child)
			}
			p.inCache[strings.ToLower(path)] = child
			cur = child
		}
	}
	if len(cur.Dirs) > 0 || len(cur.Files) > 0 {
		p.useCache = false
	}
	cur.Complete = true
	cur.Incomplete = false
	p.base = cur
	return cur
}

// enterDirectory resolves or allocates a child directory of cur, following
// the visited-cache-or-linear-scan lookup of §4.6.
func (p *Parser) enterDirectory(cur *listing.Directory, name, date string, incomplete bool) *listing.Directory {
	var found *listing.Directory
	if p.updating {
		if p.useCache {
			found = p.inCache[strings.ToLower(cur.Path()+"/"+name)]
		} else {
			found, _ = cur.FindChild(name)
		}
	}
	if found != nil {
		found.Complete = !incomplete
		found.Incomplete = incomplete
		if date != "" {
			if v, err := strconv.ParseInt(date, 10, 64); err == nil {
				found.Date = v
			}
		}
		return found
	}

	child := listing.NewDirectory(name, cur)
	child.Incomplete = incomplete
	child.Complete = !incomplete
	if date != "" {
		if v, err := strconv.ParseInt(date, 10, 64); err == nil {
			child.Date = v
		}
	}
	cur.AddDirectory(child)
	return child
}

// handleFile appends or updates a <File> leaf under cur (§4.6's File rule),
// then applies dupe annotation when configured.
func (p *Parser) handleFile(cur *listing.Directory, t xml.StartElement) {
	name := attr(t, "Name")
	size, _ := strconv.ParseInt(attr(t, "Size"), 10, 64)
	tthStr := attr(t, "TTH")
	tth, _ := hashid.ParseHash(tthStr)

	var f *listing.File
	if p.updating && !p.useCache {
		if existing, ok := cur.FindFile(name); ok {
			existing.Size = size
			existing.TTH = tth
			f = existing
		} else if tth != (hashid.Hash{}) {
			for _, cand := range cur.Files {
				if cand.TTH == tth {
					f = cand
					break
				}
			}
		}
	}
	if f == nil {
		f = &listing.File{Name: name, Size: size, TTH: tth}
		cur.AddFile(f)
	}

	if p.dupes != nil {
		f.Dupe = p.dupes.Annotate(f.TTH, f.Name)
	}
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
