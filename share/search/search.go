// Package search implements the three query entrypoints that share the
// same tree descent: NMDC token search, structured ADC search, and direct
// (directory-path) search (spec §4.4).
package search

import (
	"strings"

	"github.com/h0od/airdcpp-webclient/share/bloomfilter"
	"github.com/h0od/airdcpp-webclient/share/filetype"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/index"
	"github.com/h0od/airdcpp-webclient/share/tree"
)

// SizeMode is an NMDC size comparator (§4.4).
type SizeMode int

const (
	SizeAny SizeMode = iota
	SizeAtLeast
	SizeAtMost
)

// Result is one match, either a file or a directory (§4.4).
type Result struct {
	VirtualPath string
	IsDirectory bool
	Size        int64
	TTH         hashid.Hash
}

// Engine runs queries against a published ShareTree, using the bloom
// filter as a cheap early-out and the tree itself for the descent.
type Engine struct {
	shareTree *tree.ShareTree
	bloom     *bloomfilter.Bloom
	tth       *index.TTHIndex
	tokens    *index.TokenIndex
}

func NewEngine(t *tree.ShareTree, bloom *bloomfilter.Bloom, tth *index.TTHIndex, tokens *index.TokenIndex) *Engine {
	return &Engine{shareTree: t, bloom: bloom, tth: tth, tokens: tokens}
}

// NMDCQuery is a legacy NMDC search request (§4.4).
type NMDCQuery struct {
	Raw       string // "$"-joined token string
	SizeMode  SizeMode
	Size      int64
	FileType  tree.FileType
	MaxResult int
	Profile   int
}

// NMDCSearch lowercase-tokenizes Raw, bloom-guards every token, then
// descends the tree pruning matched tokens per subtree.
func (e *Engine) NMDCSearch(q NMDCQuery) []Result {
	tokens := tokenize(q.Raw)
	if len(tokens) == 0 {
		return nil
	}
	if !e.bloom.ContainsAll(tokens) {
		return nil
	}

	var out []Result
	for _, r := range e.shareTree.Roots() {
		if !r.Node.VisibleFor(q.Profile) {
			continue
		}
		descendNMDC(r.Node.RealName, r.Node, tokens, q, &out)
		if q.MaxResult > 0 && len(out) >= q.MaxResult {
			break
		}
	}
	return out
}

func descendNMDC(virtualPath string, d *tree.Directory, tokens []string, q NMDCQuery, out *[]Result) {
	if q.MaxResult > 0 && len(*out) >= q.MaxResult {
		return
	}
	if !d.VisibleFor(q.Profile) {
		return
	}

	nameLower := strings.ToLower(d.RealName)
	remaining := make([]string, 0, len(tokens))
	allMatched := true
	for _, t := range tokens {
		if strings.Contains(nameLower, t) {
			continue // matched here: excluded from the sub-query (per-subtree pruning)
		}
		remaining = append(remaining, t)
		allMatched = false
	}

	if allMatched && matchesType(q.FileType, tree.TypeDirectory) && matchesSize(q.SizeMode, q.Size, d.TotalSize()) {
		*out = append(*out, Result{VirtualPath: virtualPath, IsDirectory: true, Size: d.TotalSize()})
	}

	for name, f := range d.Files {
		if q.MaxResult > 0 && len(*out) >= q.MaxResult {
			return
		}
		if !fileMatchesTokens(name, remaining) {
			continue
		}
		if !filetype.Matches(f.Name, q.FileType) {
			continue
		}
		if !matchesSize(q.SizeMode, q.Size, f.Size) {
			continue
		}
		*out = append(*out, Result{VirtualPath: virtualPath + "/" + f.Name, Size: f.Size, TTH: f.TTH})
	}

	for _, c := range d.Directories {
		descendNMDC(virtualPath+"/"+c.RealName, c, remaining, q, out)
	}
}

func fileMatchesTokens(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tokens {
		if !strings.Contains(lower, t) {
			return false
		}
	}
	return true
}

func matchesType(want, have tree.FileType) bool {
	return want == tree.TypeAny || want == have
}

func matchesSize(mode SizeMode, want, have int64) bool {
	switch mode {
	case SizeAtLeast:
		return have >= want
	case SizeAtMost:
		return have <= want
	default:
		return true
	}
}

func tokenize(raw string) []string {
	parts := strings.Split(raw, "$")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ADCQuery is a structured ADC search request (§4.4).
type ADCQuery struct {
	Include     []string
	Exclude     []string
	HasRoot     hashid.Hash
	MinSize     int64
	MaxSize     int64
	Ext         []string
	IsDirectory bool
	Profile     int
}

// ADCSearch short-circuits on HasRoot via the TTH index; otherwise
// bloom-guards Include and descends with the same per-subtree pruning as
// NMDC, filtering out anything matching Exclude (§4.4).
func (e *Engine) ADCSearch(q ADCQuery) []Result {
	if !q.HasRoot.IsZero() {
		files := e.tth.Lookup(q.HasRoot)
		var out []Result
		for _, f := range files {
			if f.Parent != nil && f.Parent.VisibleFor(q.Profile) {
				out = append(out, Result{VirtualPath: f.Name, Size: f.Size, TTH: f.TTH})
			}
		}
		return out
	}

	include := lowerAll(q.Include)
	if len(include) > 0 && !e.bloom.ContainsAll(include) {
		return nil
	}

	exclude := lowerAll(q.Exclude)

	// Prefer the token index's roaring-bitmap intersection over the
	// substring tree descent when the query is a plain (non-directory)
	// file search: it resolves Include/Exclude as whole-word file-id set
	// operations instead of walking every subtree (§4.12's "ADC search's
	// include/exclude token-id sets"). MatchAll returns nil when it can't
	// answer the query (no include tokens, or a token never seen), and the
	// substring descent below is the fallback for that case.
	if !q.IsDirectory && e.tokens != nil {
		if files := e.tokens.MatchAll(q.Include); files != nil {
			files = e.tokens.Exclude(files, q.Exclude)
			var out []Result
			for _, f := range files {
				if f.Parent == nil || !f.Parent.VisibleFor(q.Profile) {
					continue
				}
				if q.MinSize > 0 && f.Size < q.MinSize {
					continue
				}
				if q.MaxSize > 0 && f.Size > q.MaxSize {
					continue
				}
				out = append(out, Result{VirtualPath: f.Name, Size: f.Size, TTH: f.TTH})
			}
			return out
		}
	}

	nmdcQ := NMDCQuery{
		Raw:      strings.Join(include, "$"),
		FileType: tree.TypeAny,
		Profile:  q.Profile,
	}
	if q.IsDirectory {
		nmdcQ.FileType = tree.TypeDirectory
	}
	candidates := e.NMDCSearch(nmdcQ)

	out := candidates[:0]
	for _, c := range candidates {
		lower := strings.ToLower(c.VirtualPath)
		excluded := false
		for _, ex := range exclude {
			if strings.Contains(lower, ex) {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		if q.MinSize > 0 && c.Size < q.MinSize {
			continue
		}
		if q.MaxSize > 0 && c.Size > q.MaxSize {
			continue
		}
		out = append(out, c)
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

// DirectSearch returns matched directories' ADC paths, once per directory,
// rather than individual file results (§4.4).
func (e *Engine) DirectSearch(q NMDCQuery, isDirectMatch func(name string) bool) []string {
	tokens := tokenize(q.Raw)
	seen := make(map[string]struct{})
	var out []string

	var walk func(virtualPath string, d *tree.Directory)
	walk = func(virtualPath string, d *tree.Directory) {
		if !d.VisibleFor(q.Profile) {
			return
		}
		if isDirectMatch(d.RealName) {
			if _, ok := seen[virtualPath]; !ok {
				seen[virtualPath] = struct{}{}
				out = append(out, virtualPath)
			}
		}
		for name := range d.Files {
			if len(tokens) > 0 && fileMatchesTokens(name, tokens) {
				if _, ok := seen[virtualPath]; !ok {
					seen[virtualPath] = struct{}{}
					out = append(out, virtualPath)
				}
				break
			}
		}
		for name, c := range d.Directories {
			walk(virtualPath+"/"+name, c)
		}
	}

	for _, r := range e.shareTree.Roots() {
		walk(r.Node.RealName, r.Node)
	}
	return out
}
