package remote

import (
	"github.com/h0od/airdcpp-webclient/remote/listing"
	ignore "github.com/sabhiram/go-gitignore"
)

// AdlSubtreeName is the synthetic directory ADL matches are cloned into
// (spec §4.10).
const AdlSubtreeName = "adls"

// Rule is one configured auto-download rule: a gitignore-shaped pattern
// tested against either file or directory names.
type Rule struct {
	Name        string
	Pattern     string
	MatchDirs   bool
	SourceProfile int
}

// Engine scans a loaded listing against a set of configured rules.
type Engine struct {
	rules []compiledRule
}

type compiledRule struct {
	rule    Rule
	matcher *ignore.GitIgnore
}

// NewEngine compiles rules once so repeated Match calls avoid recompiling
// the underlying gitignore pattern set, mirroring the share scanner's
// skip-list compilation (share/scanner/scanner.go).
func NewEngine(rules []Rule) *Engine {
	e := &Engine{}
	for _, r := range rules {
		m := ignore.CompileIgnoreLines(r.Pattern)
		e.rules = append(e.rules, compiledRule{rule: r, matcher: m})
	}
	return e
}

// Match scans root for files and directories matching any configured rule
// and clones matches into a synthetic "adls" subtree hung off root (§4.10).
// It returns the number of items matched.
func (e *Engine) Match(root *listing.Directory) int {
	adlRoot := listing.NewDirectory(AdlSubtreeName, root)
	matched := 0

	var walk func(d *listing.Directory, dest *listing.Directory)
	walk = func(d *listing.Directory, dest *listing.Directory) {
		for _, f := range d.Files {
			if e.matches(f.Name, false) {
				clone := &listing.File{Name: f.Name, Size: f.Size, TTH: f.TTH, Dupe: f.Dupe}
				dest.AddFile(clone)
				matched++
			}
		}
		for _, c := range d.Dirs {
			if c.Name == AdlSubtreeName {
				continue
			}
			if e.matches(c.Name, true) {
				clone := listing.NewDirectory(c.Name, dest)
				dest.AddDirectory(clone)
				cloneSubtree(c, clone)
				matched++
				continue
			}
			walk(c, dest)
		}
	}
	walk(root, adlRoot)

	// clearAdls before re-matching keeps repeated Match calls idempotent.
	delete(root.Dirs, AdlSubtreeName)
	if matched > 0 {
		root.AddDirectory(adlRoot)
	}
	return matched
}

// ClearAdls removes the synthetic subtree in place (§4.10).
func (e *Engine) ClearAdls(root *listing.Directory) {
	delete(root.Dirs, AdlSubtreeName)
}

func (e *Engine) matches(name string, isDir bool) bool {
	for _, r := range e.rules {
		if r.rule.MatchDirs != isDir {
			continue
		}
		if r.matcher.MatchesPath(name) {
			return true
		}
	}
	return false
}

func cloneSubtree(src, dest *listing.Directory) {
	for _, f := range src.Files {
		dest.AddFile(&listing.File{Name: f.Name, Size: f.Size, TTH: f.TTH, Dupe: f.Dupe})
	}
	for _, c := range src.Dirs {
		clone := listing.NewDirectory(c.Name, dest)
		dest.AddDirectory(clone)
		cloneSubtree(c, clone)
	}
}

// TotalSizeExcludingAdls sums d's tree while skipping the synthetic "adls"
// subtree, per §4.10's "aggregate size computations skip adls entries".
func TotalSizeExcludingAdls(d *listing.Directory) int64 {
	var total int64
	for _, f := range d.Files {
		total += f.Size
	}
	for name, c := range d.Dirs {
		if name == AdlSubtreeName {
			continue
		}
		total += TotalSizeExcludingAdls(c)
	}
	return total
}
