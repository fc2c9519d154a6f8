package listing

import "github.com/h0od/airdcpp-webclient/share/hashid"

// SkipSubtractThreshold is SKIP_SUBTRACT (in KiB) from §4.9: a directory
// with fewer than two files discards files smaller than this many bytes
// during a LISTDIFF, since a lone small file rarely indicates a genuine
// duplicate and would otherwise hollow out the whole directory.
const SkipSubtractThreshold = 64 * 1024

// HashSet is the set of TTHs present in a second listing, computed once and
// reused for every subtraction.
type HashSet map[hashid.Hash]struct{}

// BuildHashSet walks d and every descendant, collecting each file's TTH.
func BuildHashSet(d *Directory) HashSet {
	set := make(HashSet)
	var walk func(*Directory)
	walk = func(dir *Directory) {
		for _, f := range dir.Files {
			set[f.TTH] = struct{}{}
		}
		for _, c := range dir.Dirs {
			walk(c)
		}
	}
	walk(d)
	return set
}

// Diff subtracts every file in this whose TTH is present in other's hash
// set from this unconditionally, then, in any directory left with fewer
// than two files, also drops whatever remains that is smaller than
// SkipSubtractThreshold (DirectoryListing.cpp:538-545): a lone small file
// left over after the dup pass rarely indicates a genuine mismatch worth
// keeping in an otherwise-hollowed-out directory. This rebuilds each
// directory's file map into a new one while iterating rather than
// deleting from the map mid-walk in one branch and not the other — the
// bug the original iterator-erase pattern was prone to (spec §9, OQ3).
func Diff(this *Directory, other HashSet) {
	var walk func(*Directory)
	walk = func(d *Directory) {
		afterDup := make(map[string]*File, len(d.Files))
		for key, f := range d.Files {
			if _, dup := other[f.TTH]; dup {
				continue // drop: matched in other, subtracted unconditionally
			}
			afterDup[key] = f
		}

		if len(afterDup) < 2 {
			kept := make(map[string]*File, len(afterDup))
			for key, f := range afterDup {
				if f.Size < SkipSubtractThreshold {
					continue
				}
				kept[key] = f
			}
			afterDup = kept
		}
		d.Files = afterDup

		for _, c := range d.Dirs {
			walk(c)
		}
	}
	walk(this)
}
