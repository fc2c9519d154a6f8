package remote

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/h0od/airdcpp-webclient/share/external"
)

// releaseRegexp recognizes a canonical scene-release directory name: a
// dot/underscore-separated title ending in a hyphenated release-group tag
// (e.g. "Movie.Name.2020.1080p.BluRay.x264-GROUP"), per §4.8/§9's "release
// regex" and glossary entry.
var releaseRegexp = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._]{2,200}-[A-Za-z0-9]+$`)

// IsReleaseDir reports whether name matches the canonical scene-release
// pattern.
func IsReleaseDir(name string) bool {
	return releaseRegexp.MatchString(name)
}

// PartialIncompleteError is returned when a partial listing's subtree still
// has incomplete descendants and must be handled by the caller's
// directory-download manager instead (§4.8 step 1).
type PartialIncompleteError struct {
	RetryWithoutRecursion bool
}

func (e PartialIncompleteError) Error() string {
	return "target subtree is incomplete in a partial listing"
}

// PlanOptions configures one planner run.
type PlanOptions struct {
	TargetTemplate      string
	Priority            int
	Recursive           bool
	IsPartialListing    bool
	FormatDirRemoteTime bool
	Now                 time.Time
}

// Planner walks a remote subtree and submits one or more bundles to the
// queue manager, following the release-parent splitting rule of §4.8.
type Planner struct {
	queue external.QueueManager
}

// NewPlanner builds a planner backed by queue.
func NewPlanner(queue external.QueueManager) *Planner {
	return &Planner{queue: queue}
}

// Plan submits root (and its descendants) for download under the resolved
// target path.
func (p *Planner) Plan(ctx context.Context, root *listing.Directory, opts PlanOptions) error {
	if opts.IsPartialListing && hasIncompleteDescendant(root) {
		return PartialIncompleteError{RetryWithoutRecursion: !opts.Recursive}
	}

	target := p.resolveTarget(root, opts)
	return p.planNode(ctx, root, target, opts)
}

// resolveTarget substitutes time placeholders in the target template using
// either the directory's recorded date or the current time (§4.8 step 2).
func (p *Planner) resolveTarget(d *listing.Directory, opts PlanOptions) string {
	t := opts.Now
	if t.IsZero() {
		t = time.Now()
	}
	if opts.FormatDirRemoteTime && d.Date != 0 {
		t = time.Unix(d.Date, 0).UTC()
	}
	return strftime(opts.TargetTemplate, t)
}

// planNode implements steps 3-5: release-parent detection and splitting,
// otherwise a single bundle walked in name order.
func (p *Planner) planNode(ctx context.Context, d *listing.Directory, target string, opts PlanOptions) error {
	if isReleaseParent(d) {
		for _, name := range sortedDirNames(d) {
			child := d.Dirs[name]
			childTarget := target + "/" + child.Name
			if err := p.planNode(ctx, child, childTarget, opts); err != nil {
				return err
			}
		}
		return nil
	}

	var files []external.QueuedFile
	collectBundle(d, target, &files)
	if len(files) == 0 {
		return nil
	}
	return p.queue.SubmitBundle(ctx, target, files, opts.Priority)
}

// isReleaseParent reports whether d is a "release parent": its own name
// does not match the release regex, it holds no direct files, and every
// immediate child directory does match (§4.8 step 3).
func isReleaseParent(d *listing.Directory) bool {
	if IsReleaseDir(d.Name) {
		return false
	}
	if len(d.Files) > 0 {
		return false
	}
	if len(d.Dirs) == 0 {
		return false
	}
	for _, c := range d.Dirs {
		if !IsReleaseDir(c.Name) {
			return false
		}
	}
	return true
}

// collectBundle walks d in name order, descending into subdirectories under
// the same bundle and appending files in name order (§4.8 step 4). It makes
// no queue calls and has no per-file failure path; the caller submits the
// whole bundle once.
func collectBundle(d *listing.Directory, target string, out *[]external.QueuedFile) {
	for _, name := range sortedDirNames(d) {
		child := d.Dirs[name]
		collectBundle(child, target+"/"+child.Name, out)
	}
	for _, name := range sortedFileNames(d) {
		f := d.Files[name]
		*out = append(*out, external.QueuedFile{
			RemotePath: target + "/" + f.Name,
			LocalPath:  target + "/" + f.Name,
			Size:       f.Size,
			TTH:        f.TTH,
		})
	}
}

func hasIncompleteDescendant(d *listing.Directory) bool {
	if d.Incomplete {
		return true
	}
	for _, c := range d.Dirs {
		if hasIncompleteDescendant(c) {
			return true
		}
	}
	return false
}

func sortedDirNames(d *listing.Directory) []string {
	names := make([]string, 0, len(d.Dirs))
	for k := range d.Dirs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func sortedFileNames(d *listing.Directory) []string {
	names := make([]string, 0, len(d.Files))
	for k := range d.Files {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// strftime substitutes the handful of time placeholders the target template
// format supports (%Y, %m, %d, %H, %M, %S).
func strftime(template string, t time.Time) string {
	r := strings.NewReplacer(
		"%Y", t.Format("2006"),
		"%m", t.Format("01"),
		"%d", t.Format("02"),
		"%H", t.Format("15"),
		"%M", t.Format("04"),
		"%S", t.Format("05"),
	)
	return r.Replace(template)
}
