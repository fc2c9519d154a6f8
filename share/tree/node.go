// Package tree implements the local share tree: file and directory nodes,
// size aggregation, profile visibility, and virtual/real path resolution
// (spec §3.1, §4.1). It follows the teacher's DirectoryNode/FileNode split
// (vvfs/trees) but keys the tree by real names plus a per-root virtual
// namespace rather than a single real filesystem path.
package tree

import (
	"strings"
	"sync"
	"sync/atomic"
)

// FileType is the enum a search's type filter is expressed in (§6.4); the
// categories a directory contains are a FileTypeMask instead.
type FileType int

const (
	TypeAny FileType = iota
	TypeAudio
	TypeCompressed
	TypeDocument
	TypeExecutable
	TypePicture
	TypeVideo
	TypeDirectory
	TypeTTH
)

// FileTypeMask is a bitmask over {audio, compressed, document, executable,
// picture, video, directory} used for a directory's aggregate fileTypes
// attribute (§3.1).
type FileTypeMask uint8

const (
	MaskAudio FileTypeMask = 1 << iota
	MaskCompressed
	MaskDocument
	MaskExecutable
	MaskPicture
	MaskVideo
	MaskDirectory
)

// ProfileFlag holds the ROOT/INCOMING/EXCLUDE_* bits a ProfileDirectory can
// carry (§3.1).
type ProfileFlag uint8

const (
	FlagRoot ProfileFlag = 1 << iota
	FlagIncoming
	FlagExcludeProfile
	FlagExcludeTotal
)

// ProfileDirectory decorates a Directory that is either a share root mapped
// to one or more profiles, or an exclusion marker (§3.1).
type ProfileDirectory struct {
	Flags            ProfileFlag
	ShareProfiles    map[int]string // profile id -> virtual name
	ExcludedProfiles map[int]struct{}
}

func NewProfileDirectory(flags ProfileFlag) *ProfileDirectory {
	return &ProfileDirectory{
		Flags:            flags,
		ShareProfiles:    make(map[int]string),
		ExcludedProfiles: make(map[int]struct{}),
	}
}

// HasProfile reports whether this profile-directory carries a virtual name
// for the given profile. The original source's comma-expression bug
// (`i->first, i->second->hasProfile(...)`) discards its left operand;
// implemented here as the right operand alone (spec §9 Open Question 1).
func (pd *ProfileDirectory) HasProfile(profile int) bool {
	if pd == nil {
		return false
	}
	_, ok := pd.ShareProfiles[profile]
	return ok
}

func (pd *ProfileDirectory) IsExcluded(profile int) bool {
	if pd == nil {
		return false
	}
	if pd.Flags&FlagExcludeTotal != 0 {
		return true
	}
	_, ok := pd.ExcludedProfiles[profile]
	return ok
}

// File is an immutable-after-insertion leaf node (§3.1). Only TTH may be
// updated in place, on re-hash.
type File struct {
	// ID is a stable small integer identifying this file for the lifetime
	// of the process, the "small stable ID" the roaring-bitmap postings
	// lists (share/index) key their sets by. Assigned once, in AddFile.
	ID            uint32
	Name          string
	Size          int64
	TTH           [24]byte
	Parent        *Directory
	LastWriteTime uint32
	// Tags holds best-effort metadata extracted at scan time (EXIF fields
	// for PICTURE-classified files; §4.12).
	Tags map[string]string
}

// nextFileID hands out File.ID values; a single process-wide counter is
// enough since IDs only need to be unique and stable within one run, not
// persisted across restarts.
var nextFileID atomic.Uint32

func newFileID() uint32 {
	return nextFileID.Add(1)
}

// Directory is a node in the share tree (§3.1). Mutation happens exclusively
// under the owning ShareTree's structural writer lock; Directory itself does
// no locking.
type Directory struct {
	RealName      string
	Size          int64
	FileTypes     FileTypeMask
	LastWriteTime uint32
	ProfileDir    *ProfileDirectory
	Parent        *Directory

	Directories map[string]*Directory // lowercased name -> child
	Files       map[string]*File      // lowercased name -> file

	// visibleProfiles precomputes, at publish time, the set of profiles for
	// which no ancestor (including self) excludes this node — removing the
	// walk-to-root from every query (§9 "Profile visibility as a flag fold").
	visibleProfiles map[int]bool
}

func NewDirectory(realName string, parent *Directory) *Directory {
	return &Directory{
		RealName:    realName,
		Parent:      parent,
		Directories: make(map[string]*Directory),
		Files:       make(map[string]*File),
	}
}

// AddFile inserts f under d, keyed by lowercased name, and folds its size
// and type flags into d's aggregates.
func (d *Directory) AddFile(f *File) {
	f.Parent = d
	if f.ID == 0 {
		f.ID = newFileID()
	}
	key := strings.ToLower(f.Name)
	d.Files[key] = f
	d.Size += f.Size
	if mask, ok := classify(f.Name); ok {
		d.FileTypes |= mask
	}
}

// AddDirectory inserts a child directory keyed by lowercased real name.
func (d *Directory) AddDirectory(child *Directory) {
	child.Parent = d
	d.Directories[strings.ToLower(child.RealName)] = child
}

// RecomputeSize sums direct file sizes into Size (invariant §8.2). Called on
// demand rather than kept eagerly consistent across mutation, matching the
// spec's "recomputed on demand" wording (§3.1).
func (d *Directory) RecomputeSize() int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	d.Size = total
	return total
}

// TotalSize sums this directory's own file sizes plus every descendant's,
// used by partial-list generation's Size="" attribute (§4.5).
func (d *Directory) TotalSize() int64 {
	total := d.Size
	for _, c := range d.Directories {
		total += c.TotalSize()
	}
	return total
}

// Root walks up to the root of d's tree (a node whose ProfileDir carries
// FlagRoot).
func (d *Directory) Root() *Directory {
	cur := d
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}

// VisibleFor reports whether d is visible for profile p: no ancestor
// (including d) excludes p (§3.1 invariant, §9 flag-fold note).
func (d *Directory) VisibleFor(profile int) bool {
	if d.visibleProfiles != nil {
		v, ok := d.visibleProfiles[profile]
		if ok {
			return v
		}
	}
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.ProfileDir.IsExcluded(profile) {
			return false
		}
	}
	return true
}

// PrecomputeVisibility fills in the visibleProfiles cache for d and every
// descendant, given the set of profiles known to the registry. Called once
// per published subtree (§9).
func (d *Directory) PrecomputeVisibility(profiles []int) {
	d.visibleProfiles = make(map[int]bool, len(profiles))
	for _, p := range profiles {
		excluded := d.ProfileDir.IsExcluded(p)
		if !excluded && d.Parent != nil {
			excluded = !d.Parent.VisibleFor(p)
		}
		d.visibleProfiles[p] = !excluded
	}
	for _, c := range d.Directories {
		c.PrecomputeVisibility(profiles)
	}
}

// classify maps a file name's extension onto the fileTypes bitmask via the
// tables in share/filetype.
func classify(name string) (FileTypeMask, bool) {
	switch typeOf(name) {
	case TypeAudio:
		return MaskAudio, true
	case TypeCompressed:
		return MaskCompressed, true
	case TypeDocument:
		return MaskDocument, true
	case TypeExecutable:
		return MaskExecutable, true
	case TypePicture:
		return MaskPicture, true
	case TypeVideo:
		return MaskVideo, true
	default:
		return 0, false
	}
}

// muTypeOf guards the package-level type table lookup function pointer, set
// by share/filetype during package init to avoid an import cycle (filetype
// imports tree for its Type, and tree's classify needs filetype's tables).
var (
	muTypeOf sync.RWMutex
	typeOfFn func(name string) FileType
)

// SetTypeClassifier installs the extension classifier used by classify.
// Called once from share/filetype's init.
func SetTypeClassifier(fn func(name string) FileType) {
	muTypeOf.Lock()
	defer muTypeOf.Unlock()
	typeOfFn = fn
}

func typeOf(name string) FileType {
	muTypeOf.RLock()
	fn := typeOfFn
	muTypeOf.RUnlock()
	if fn == nil {
		return TypeAny
	}
	return fn(name)
}
