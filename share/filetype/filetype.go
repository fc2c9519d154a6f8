// Package filetype implements the fixed extension tables the original
// client compiles in: the file-type enum exposed over ADC/NMDC search, the
// forbidden-filename/extension rules a scan rejects by, and the reserved
// virtual filenames a lookup always special-cases (spec §6.4-§6.6).
package filetype

import (
	"strings"

	"github.com/h0od/airdcpp-webclient/share/tree"
)

// Type is the stable protocol-facing file-type enum (§6.4).
type Type = tree.FileType

const (
	Any        = tree.TypeAny
	Audio      = tree.TypeAudio
	Compressed = tree.TypeCompressed
	Document   = tree.TypeDocument
	Executable = tree.TypeExecutable
	Picture    = tree.TypePicture
	Video      = tree.TypeVideo
	Directory  = tree.TypeDirectory
	TTH        = tree.TypeTTH
)

// shortExts are exactly-3-character extensions, matched (per the original
// source) by a 32-bit integer compare rather than a string compare; here a
// map lookup on the lowercased 3-byte string gives the same result without
// needing the packed-integer trick.
var shortExts = map[Type]map[string]struct{}{
	Audio:      set("mp3", "wav", "wma", "ogg"),
	Compressed: set("zip", "rar", "ace", "arj"),
	Document:   set("doc", "txt", "pdf", "nfo"),
	Executable: set("exe", "com"),
	Picture:    set("jpg", "gif", "png", "bmp"),
	Video:      set("avi", "mpg", "mkv"),
}

// longExts are suffix-matched, case-insensitive, any length.
var longExts = map[Type][]string{
	Audio:      {".mp3", ".wav", ".wma", ".ogg", ".flac", ".ape", ".m4a"},
	Compressed: {".zip", ".rar", ".ace", ".7z", ".gz", ".tar", ".bz2"},
	Document:   {".doc", ".docx", ".txt", ".pdf", ".nfo", ".epub"},
	Executable: {".exe", ".com", ".msi"},
	Picture:    {".jpg", ".jpeg", ".gif", ".png", ".bmp", ".tif", ".tiff"},
	Video:      {".avi", ".mpg", ".mpeg", ".mkv", ".mp4", ".wmv", ".mov"},
}

func set(vals ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// TypeOf classifies name by extension, checking the short-extension tables
// first (an exact 3-character match) and falling back to the long-extension
// suffix tables (§6.4). Returns Any when nothing matches.
func TypeOf(name string) Type {
	lower := strings.ToLower(name)

	if dot := strings.LastIndexByte(lower, '.'); dot >= 0 && len(lower)-dot-1 == 3 {
		ext := lower[dot+1:]
		for t, exts := range shortExts {
			if _, ok := exts[ext]; ok {
				return t
			}
		}
	}

	for t, exts := range longExts {
		for _, ext := range exts {
			if strings.HasSuffix(lower, ext) {
				return t
			}
		}
	}
	return Any
}

// Matches reports whether name belongs to filterType, treating Any as a
// wildcard that matches everything.
func Matches(name string, filterType Type) bool {
	if filterType == Any {
		return true
	}
	return TypeOf(name) == filterType
}

// alwaysForbiddenNames are rejected unconditionally by a scan (§6.5).
var alwaysForbiddenNames = set("dcplusplus.xml", "favorites.xml")

// alwaysForbiddenExts are rejected unconditionally by a scan (§6.5).
var alwaysForbiddenExts = set(".dctmp", ".antifrag")

// removeForbiddenExts are rejected only when the RemoveForbidden config
// option is on (§6.5).
var removeForbiddenExts = []string{
	".tdc", ".getright", ".temp", ".tmp", ".jc!", ".dmf", ".!ut", ".bc!",
	".missing", ".bak", ".bad",
}

var removeForbiddenPrefixes = []string{"__padding_", "__incomplete__"}
var removeForbiddenSuffix = "part.met"

// IsForbidden reports whether name must be excluded from the share,
// honoring removeForbidden's extended rule set (§6.5).
func IsForbidden(name string, removeForbidden bool) bool {
	lower := strings.ToLower(name)
	if _, ok := alwaysForbiddenNames[lower]; ok {
		return true
	}
	for ext := range alwaysForbiddenExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	if !removeForbidden {
		return false
	}
	for _, ext := range removeForbiddenExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	for _, prefix := range removeForbiddenPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return strings.HasSuffix(lower, removeForbiddenSuffix)
}

// Reserved virtual filenames a lookup always special-cases (§6.6).
const (
	FileListBz2 = "files.xml.bz2"
	FileListXML = "files.xml"
	LegacyList  = "MyList.DcLst"
)

// TTHPrefix is the "TTH/<base32>" virtual-path prefix addressing a file by
// content hash regardless of its share location (§6.6).
const TTHPrefix = "TTH/"

// IsReservedName reports whether name is one of the always-special-cased
// virtual filenames.
func IsReservedName(name string) bool {
	switch name {
	case FileListBz2, FileListXML, LegacyList:
		return true
	}
	return strings.HasPrefix(name, TTHPrefix)
}

func init() {
	tree.SetTypeClassifier(TypeOf)
}
