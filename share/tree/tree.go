package tree

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
)

// TreeMetrics mirrors the teacher's per-tree operation counters (vvfs/trees),
// retargeted to publish/lookup counts instead of walk counts.
type TreeMetrics struct {
	mu             sync.Mutex
	OperationCounts map[string]int64
	LastPublish     time.Time
	LastUpdated     time.Time
}

func (m *TreeMetrics) inc(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OperationCounts[op]++
	m.LastUpdated = time.Now()
}

// Root is one configured share root: a real filesystem path mounted at a
// per-profile virtual name (§3.1).
type Root struct {
	RealPath string
	Node     *Directory
}

// ShareTree is the structural, single-writer/many-reader tree over every
// configured root (§4.1). Callers take RLock for lookups and Lock for
// mutation exactly once per publish; ShareTree never re-enters its own lock.
type ShareTree struct {
	mu    sync.RWMutex
	roots map[string]*Root // keyed by real path
	names map[string]*Root // keyed by lowercased virtual root name, per profile bucket below

	logger  *slog.Logger
	metrics *TreeMetrics
}

// TreeOption configures a ShareTree at construction, mirroring the teacher's
// functional-options idiom (vvfs/trees.TreeOption).
type TreeOption func(*ShareTree)

func WithLogger(logger *slog.Logger) TreeOption {
	return func(t *ShareTree) { t.logger = logger }
}

func New(opts ...TreeOption) *ShareTree {
	t := &ShareTree{
		roots: make(map[string]*Root),
		names: make(map[string]*Root),
		logger: slog.Default(),
		metrics: &TreeMetrics{
			OperationCounts: make(map[string]int64),
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddRoot registers a new share root at realPath, publishing an empty
// Directory node as its subtree. Callers must have already scanned the
// filesystem and should follow with PublishSubtree once content is ready;
// AddRoot alone makes the root visible but empty.
func (t *ShareTree) AddRoot(realPath, virtualName string, profiles []int, incoming bool) (*Root, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.roots[realPath]; exists {
		return nil, fmt.Errorf("root already shared: %s", realPath)
	}

	node := NewDirectory(virtualName, nil)
	flags := FlagRoot
	if incoming {
		flags |= FlagIncoming
	}
	node.ProfileDir = NewProfileDirectory(flags)
	for _, p := range profiles {
		node.ProfileDir.ShareProfiles[p] = virtualName
	}

	r := &Root{RealPath: realPath, Node: node}
	t.roots[realPath] = r
	t.names[strings.ToLower(virtualName)] = r
	t.metrics.inc("add_root")
	t.logger.Info("share root added", "path", realPath, "virtualName", virtualName)
	return r, nil
}

// RemoveRoot removes exactly the one root whose real path matches realPath.
//
// The original source's removeDir walks its root list and can, when two
// roots share a virtual name, remove the wrong one (a lookup by name hits
// whichever root the map iteration visits first). Here roots are keyed and
// removed by real path directly, so only the intended directory entry is
// ever dropped; any other root that happens to share its virtual name is
// left untouched (spec §9 Open Question 2).
func (t *ShareTree) RemoveRoot(realPath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.roots[realPath]
	if !ok {
		return fmt.Errorf("no such share root: %s", realPath)
	}
	delete(t.roots, realPath)

	// Only clear the name index entry if it still points at this exact root;
	// a second root sharing the virtual name may have already claimed it.
	key := strings.ToLower(r.Node.RealName)
	if cur, ok := t.names[key]; ok && cur == r {
		delete(t.names, key)
		for path, other := range t.roots {
			if strings.EqualFold(other.Node.RealName, r.Node.RealName) {
				t.names[key] = other
				_ = path
				break
			}
		}
	}

	t.metrics.inc("remove_root")
	t.logger.Info("share root removed", "path", realPath)
	return nil
}

// PublishSubtree atomically swaps a root's subtree for newRoot, recomputing
// visibility caches first so no reader ever observes a partially-updated
// tree (§4.2's "atomic per-root publish swap").
func (t *ShareTree) PublishSubtree(realPath string, newRoot *Directory, profiles []int) error {
	newRoot.PrecomputeVisibility(profiles)

	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.roots[realPath]
	if !ok {
		return fmt.Errorf("no such share root: %s", realPath)
	}
	newRoot.ProfileDir = r.Node.ProfileDir
	newRoot.RealName = r.Node.RealName
	r.Node = newRoot
	t.metrics.LastPublish = time.Now()
	t.metrics.inc("publish")
	return nil
}

// Roots returns a snapshot of the currently configured roots.
func (t *ShareTree) Roots() []*Root {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Root, 0, len(t.roots))
	for _, r := range t.roots {
		out = append(out, r)
	}
	return out
}

// virtualPathSegments splits a "/" separated virtual path into cleaned,
// non-empty segments.
func virtualPathSegments(virtualPath string) []string {
	clean := path.Clean("/" + virtualPath)
	parts := strings.Split(clean, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FindDirectory resolves a virtual path (rooted at one of the configured
// share roots) to a Directory node, visible for profile.
func (t *ShareTree) FindDirectory(virtualPath string, profile int) (*Directory, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	segs := virtualPathSegments(virtualPath)
	if len(segs) == 0 {
		return nil, fmt.Errorf("empty virtual path")
	}

	root, ok := t.names[strings.ToLower(segs[0])]
	if !ok || !root.Node.VisibleFor(profile) {
		return nil, fmt.Errorf("no such share root: %s", segs[0])
	}

	cur := root.Node
	for _, seg := range segs[1:] {
		child, ok := cur.Directories[strings.ToLower(seg)]
		if !ok || !child.VisibleFor(profile) {
			return nil, fmt.Errorf("no such directory: %s", virtualPath)
		}
		cur = child
	}
	return cur, nil
}

// FindFile resolves a full virtual path to its File leaf, visible for
// profile.
func (t *ShareTree) FindFile(virtualPath string, profile int) (*File, error) {
	dir := path.Dir(virtualPath)
	name := path.Base(virtualPath)
	parent, err := t.FindDirectory(dir, profile)
	if err != nil {
		return nil, err
	}
	f, ok := parent.Files[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", virtualPath)
	}
	return f, nil
}

// duplicateSuffixRe matches the trailing "\ (n)" DC++ appends to a virtual
// name when two roots collide, stripped before comparing directory names
// case-insensitively across profiles (§4.1).
var duplicateSuffixRe = regexp.MustCompile(`\s\(\d+\)$`)

// subDirNameRe is getDirByName's "sub-directory regex" (§4.1): disc-numbered
// rips, samples, proofs, and cover/subtitle folders. A candidate matching
// this is treated as one level of an album's disc stack rather than the
// album itself, so a name search walks up past it.
var subDirNameRe = regexp.MustCompile(`(?i)(DVD|CD|DIS[KC]).?[0-9][0-9]?|Sample|Proof|Cover(s)?|.{0,5}Sub(s|pack)?`)

func normalizeDirName(name string) string {
	return strings.ToLower(duplicateSuffixRe.ReplaceAllString(name, ""))
}

func splitPathSegments(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' })
}

// FindDirectoriesByName implements getDirByName (§4.1): the trailing
// separator is stripped and the last segment extracted, then every root is
// searched (bucketed, in effect, by that last segment) for a directory
// whose name equals it once a "(n)" duplicate suffix is stripped. When a
// candidate instead matches the sub-directory regex, its parents are
// walked upward in lock-step with any remaining sub-directory-shaped query
// segments, so a search for an album's name finds it via a "CD1"/"Sample"
// disc-level folder (see matchDirByName).
func (t *ShareTree) FindDirectoriesByName(ctx context.Context, name string, profile int) ([]*Directory, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	segs := splitPathSegments(strings.TrimRight(name, `/\`))
	if len(segs) == 0 {
		return nil, nil
	}

	var out []*Directory
	seen := make(map[*Directory]struct{})
	for _, r := range t.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		walkFindByName(r.Node, segs, profile, &out, seen)
	}
	return out, nil
}

func walkFindByName(d *Directory, querySegs []string, profile int, out *[]*Directory, seen map[*Directory]struct{}) {
	if !d.VisibleFor(profile) {
		return
	}
	if match := matchDirByName(d, querySegs); match != nil {
		if _, dup := seen[match]; !dup {
			seen[match] = struct{}{}
			*out = append(*out, match)
		}
	}
	for _, c := range d.Directories {
		walkFindByName(c, querySegs, profile, out, seen)
	}
}

// matchDirByName compares d against the last element of querySegs. An exact
// match (modulo a stripped duplicate suffix) succeeds immediately. Otherwise,
// if d's name matches the sub-directory regex, d is a disc/sample-level
// folder: ascend to its parent, and consume one more query segment from the
// end whenever that segment also matches the regex, keeping the two sides
// in lock-step until either an ancestor's name equals the current query
// segment, or one side stops matching and the search fails (§4.1 scenario:
// "my.album.cd1" searched by "my.album" returns the "my.album" parent).
func matchDirByName(d *Directory, querySegs []string) *Directory {
	i := len(querySegs) - 1
	if i < 0 {
		return nil
	}
	query := normalizeDirName(querySegs[i])

	for cur := d; cur != nil; {
		name := normalizeDirName(cur.RealName)
		if name == query {
			return cur
		}
		if !subDirNameRe.MatchString(name) {
			return nil
		}
		if i > 0 && subDirNameRe.MatchString(query) {
			i--
			query = normalizeDirName(querySegs[i])
		}
		cur = cur.Parent
	}
	return nil
}
