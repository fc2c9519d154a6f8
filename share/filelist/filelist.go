// Package filelist generates the bzip2-compressed XML catalog documents a
// remote client requests: a full tree for one profile, or a partial slice
// rooted at one virtual directory (spec §4.5, §6.1).
package filelist

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"sync"

	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/tree"

	"github.com/dsnet/compress/bzip2"
)

// xmlFileListing / xmlDir / xmlFile mirror the wire shape in spec §6.1;
// encoding/xml marshals them here. They are unexported and used by this
// package only.
type xmlFileListing struct {
	XMLName   xml.Name    `xml:"FileListing"`
	Version   string      `xml:"Version,attr"`
	CID       string      `xml:"CID,attr"`
	Base      string      `xml:"Base,attr"`
	Generator string      `xml:"Generator,attr"`
	BaseDate  int64       `xml:"BaseDate,attr,omitempty"`
	Dirs      []xmlDir    `xml:"Directory"`
	Files     []xmlFile   `xml:"File"`
}

type xmlDir struct {
	Name       string    `xml:"Name,attr"`
	Date       int64     `xml:"Date,attr,omitempty"`
	Size       int64     `xml:"Size,attr,omitempty"`
	Incomplete string    `xml:"Incomplete,attr,omitempty"`
	Dirs       []xmlDir  `xml:"Directory"`
	Files      []xmlFile `xml:"File"`
}

type xmlFile struct {
	Name string `xml:"Name,attr"`
	Size int64  `xml:"Size,attr"`
	TTH  string `xml:"TTH,attr"`
}

// profileState tracks the dirty/forceDirty/generation bookkeeping a single
// profile's file list carries (§4.5: "each profile carries dirty and
// forceDirty flags; regeneration increments a generation number").
type profileState struct {
	dirty      bool
	forceDirty bool
	generation int
}

// Generator produces file-list documents for a ShareTree. GenerateFull
// rebuilds the full list on every call: it clears a profile's dirty and
// forceDirty flags and bumps its generation, but does not consult the flags
// to skip or reuse an earlier build.
type Generator struct {
	shareTree *tree.ShareTree
	cid       hashid.CID
	appName   string

	mu     sync.Mutex
	states map[int]*profileState
}

func New(t *tree.ShareTree, cid hashid.CID, appName string) *Generator {
	return &Generator{
		shareTree: t,
		cid:       cid,
		appName:   appName,
		states:    make(map[int]*profileState),
	}
}

func (g *Generator) state(profile int) *profileState {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.states[profile]
	if !ok {
		s = &profileState{dirty: true}
		g.states[profile] = s
	}
	return s
}

// MarkDirty flags profile's full list for regeneration on next request.
func (g *Generator) MarkDirty(profile int) {
	g.state(profile).dirty = true
}

// MarkForceDirty flags profile for regeneration even if nothing else would
// have triggered it, used after a profile-descriptor edit.
func (g *Generator) MarkForceDirty(profile int) {
	s := g.state(profile)
	s.dirty = true
	s.forceDirty = true
}

// Generation returns profile's current file-list generation number, used to
// build the on-disk file name (§4.5).
func (g *Generator) Generation(profile int) int {
	return g.state(profile).generation
}

// GenerateFull builds the complete visible tree for profile, bzip2-compresses
// it, and clears the dirty flag, incrementing the generation number.
func (g *Generator) GenerateFull(profile int) (compressed []byte, generation int, err error) {
	s := g.state(profile)

	roots := g.shareTree.Roots()
	merged := mergeByVirtualName(roots, profile)

	doc := xmlFileListing{
		Version:   "1",
		CID:       g.cid.String(),
		Base:      "/",
		Generator: g.appName,
		Dirs:      merged,
	}

	raw, err := marshalListing(doc)
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling full file list: %w", err)
	}

	compressed, err = bzip2Compress(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("compressing full file list: %w", err)
	}

	g.mu.Lock()
	s.dirty = false
	s.forceDirty = false
	s.generation++
	generation = s.generation
	g.mu.Unlock()

	return compressed, generation, nil
}

// GeneratePartial builds an uncompressed listing rooted at basePath: only
// the immediate children are fully expanded, subdirectories are marked
// Incomplete with their recursive size, and BaseDate carries the max
// lastWriteTime across the served roots (§4.5).
func (g *Generator) GeneratePartial(basePath string, profile int) ([]byte, error) {
	dir, err := g.shareTree.FindDirectory(basePath, profile)
	if err != nil {
		return nil, err
	}

	var baseDate int64
	dirs := make([]xmlDir, 0, len(dir.Directories))
	names := make([]string, 0, len(dir.Directories))
	for name := range dir.Directories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := dir.Directories[name]
		if !c.VisibleFor(profile) {
			continue
		}
		if int64(c.LastWriteTime) > baseDate {
			baseDate = int64(c.LastWriteTime)
		}
		dirs = append(dirs, xmlDir{
			Name:       c.RealName,
			Date:       int64(c.LastWriteTime),
			Size:       c.TotalSize(),
			Incomplete: "1",
		})
	}

	files := make([]xmlFile, 0, len(dir.Files))
	fnames := make([]string, 0, len(dir.Files))
	for name := range dir.Files {
		fnames = append(fnames, name)
	}
	sort.Strings(fnames)
	for _, name := range fnames {
		f := dir.Files[name]
		files = append(files, xmlFile{Name: f.Name, Size: f.Size, TTH: hashid.Hash(f.TTH).String()})
	}

	base := basePath
	if len(base) == 0 || base[len(base)-1] != '/' {
		base += "/"
	}
	if base[0] != '/' {
		base = "/" + base
	}

	doc := xmlFileListing{
		Version:   "1",
		CID:       g.cid.String(),
		Base:      base,
		Generator: g.appName,
		BaseDate:  baseDate,
		Dirs:      dirs,
		Files:     files,
	}

	return marshalListing(doc)
}

func marshalListing(doc xmlFileListing) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bzip2Compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mergeByVirtualName folds every root visible for profile into a single
// full-tree document, merging two distinct real roots that share a virtual
// name under one <Directory> element with Date set to the max across
// merges (§4.5's "virtual-name collisions").
func mergeByVirtualName(roots []*tree.Root, profile int) []xmlDir {
	byName := make(map[string]*xmlDir)
	order := make([]string, 0, len(roots))

	for _, r := range roots {
		if !r.Node.VisibleFor(profile) {
			continue
		}
		name := virtualName(r.Node, profile)
		if existing, ok := byName[name]; ok {
			mergeInto(existing, r.Node, profile)
			continue
		}
		d := toXMLDir(r.Node, profile)
		byName[name] = &d
		order = append(order, name)
	}

	sort.Strings(order)
	out := make([]xmlDir, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// virtualName resolves d's emitted <Directory Name>: a share root carries a
// per-profile virtual name in ProfileDir.ShareProfiles (spec §3.1), so two
// roots with distinct per-profile names must not collide under one merged
// entry just because their real names happen to match. Non-root directories
// carry no ProfileDir and fall back to RealName.
func virtualName(d *tree.Directory, profile int) string {
	if d.ProfileDir != nil {
		if name, ok := d.ProfileDir.ShareProfiles[profile]; ok {
			return name
		}
	}
	return d.RealName
}

func toXMLDir(d *tree.Directory, profile int) xmlDir {
	out := xmlDir{Name: virtualName(d, profile), Date: int64(d.LastWriteTime)}

	names := make([]string, 0, len(d.Directories))
	for name := range d.Directories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := d.Directories[name]
		if !c.VisibleFor(profile) {
			continue
		}
		out.Dirs = append(out.Dirs, toXMLDir(c, profile))
	}

	fnames := make([]string, 0, len(d.Files))
	for name := range d.Files {
		fnames = append(fnames, name)
	}
	sort.Strings(fnames)
	for _, name := range fnames {
		f := d.Files[name]
		out.Files = append(out.Files, xmlFile{Name: f.Name, Size: f.Size, TTH: hashid.Hash(f.TTH).String()})
	}
	return out
}

// mergeInto folds src's children into dst in place, taking the max Date.
func mergeInto(dst *xmlDir, src *tree.Directory, profile int) {
	if int64(src.LastWriteTime) > dst.Date {
		dst.Date = int64(src.LastWriteTime)
	}
	merged := toXMLDir(src, profile)
	dst.Dirs = append(dst.Dirs, merged.Dirs...)
	dst.Files = append(dst.Files, merged.Files...)
}
