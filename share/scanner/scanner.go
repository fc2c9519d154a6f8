// Package scanner implements the share tree's disk scan / refresh worker:
// a single FIFO queue drained by one worker, publishing atomically-swapped
// subtrees into a ShareTree and rebuilding the TTH/name/bloom indices after
// each root completes (spec §4.2).
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/h0od/airdcpp-webclient/share/bloomfilter"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/filetype"
	"github.com/h0od/airdcpp-webclient/share/index"
	"github.com/h0od/airdcpp-webclient/share/internal/errs"
	"github.com/h0od/airdcpp-webclient/share/tree"

	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/sourcegraph/conc/pool"
)

// Kind is a refresh task's targeting mode (§4.2).
type Kind int

const (
	RefreshAll Kind = iota
	RefreshIncoming
	RefreshDir
	AddDir
	RefreshStartup
)

func (k Kind) String() string {
	switch k {
	case RefreshAll:
		return "REFRESH_ALL"
	case RefreshIncoming:
		return "REFRESH_INCOMING"
	case RefreshDir:
		return "REFRESH_DIR"
	case AddDir:
		return "ADD_DIR"
	case RefreshStartup:
		return "REFRESH_STARTUP"
	default:
		return "UNKNOWN"
	}
}

// ResultCode is a refresh request's immediate outcome, before the task
// actually runs (§6.7).
type ResultCode int

const (
	Started ResultCode = iota
	PathNotFound
	InProgress
)

// task is one queued unit of work.
type task struct {
	id    string
	kind  Kind
	paths []string
}

// Scanner owns the FIFO refresh queue, the skip-list, and the indices
// rebuilt on every publish. Grounded on the teacher's ConcurrentTraverser
// (vvfs/filesystem/concurrent_traverser.go), narrowed from a bounded
// parallel worker pool to a single-worker FIFO queue via
// pool.New().WithMaxGoroutines(1), matching spec §4.2's "single worker
// drains the queue" requirement.
type Scanner struct {
	shareTree *tree.ShareTree
	bloom     *bloomfilter.Bloom
	tth       *index.TTHIndex
	names     *index.NameIndex
	sizeTime  *index.SizeTimeIndex
	tokens    *index.TokenIndex

	dirIter  external.DirIterator
	hashMgr  external.HashManager
	queueMgr external.QueueManager
	settings external.SettingsStore

	skipList        *ignore.GitIgnore
	shareHidden     bool
	removeForbidden bool
	maxFileSize     int64

	logger *slog.Logger

	mu        sync.Mutex
	queue     []task
	pool      *pool.Pool
	running   atomic.Bool
	aShutdown atomic.Bool
}

// Deps bundles a Scanner's collaborators, mirroring the teacher's
// options-struct wiring style.
type Deps struct {
	Tree     *tree.ShareTree
	Bloom    *bloomfilter.Bloom
	TTH      *index.TTHIndex
	Names    *index.NameIndex
	SizeTime *index.SizeTimeIndex
	Tokens   *index.TokenIndex
	DirIter  external.DirIterator
	HashMgr  external.HashManager
	QueueMgr external.QueueManager
	Settings external.SettingsStore
	Logger   *slog.Logger

	SkipPatterns    []string
	ShareHidden     bool
	RemoveForbidden bool
	MaxFileSize     int64
}

func New(d Deps) *Scanner {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	skip := ignore.CompileIgnoreLines(d.SkipPatterns...)

	s := &Scanner{
		shareTree:       d.Tree,
		bloom:           d.Bloom,
		tth:             d.TTH,
		names:           d.Names,
		sizeTime:        d.SizeTime,
		tokens:          d.Tokens,
		dirIter:         d.DirIter,
		hashMgr:         d.HashMgr,
		queueMgr:        d.QueueMgr,
		settings:        d.Settings,
		skipList:        skip,
		shareHidden:     d.ShareHidden,
		removeForbidden: d.RemoveForbidden,
		maxFileSize:     d.MaxFileSize,
		logger:          logger,
		pool:            pool.New().WithMaxGoroutines(1),
	}
	return s
}

// Shutdown sets the cooperative abort flag polled at every directory
// iteration (§4.2's "aShutdown").
func (s *Scanner) Shutdown() {
	s.aShutdown.Store(true)
	s.pool.Wait()
}

// Enqueue appends a refresh task to the FIFO. A refresh already running
// returns InProgress without queuing a duplicate (§4.2's process-wide
// test-and-set "refreshing" flag).
func (s *Scanner) Enqueue(kind Kind, roots []*tree.Root, paths []string) ResultCode {
	if !s.running.CompareAndSwap(false, true) {
		return InProgress
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.queue = append(s.queue, task{id: id, kind: kind, paths: paths})
	s.mu.Unlock()

	s.pool.Go(func() {
		defer s.running.Store(false)
		s.drain(context.Background(), roots)
	})

	return Started
}

// drain processes every queued task in FIFO order on the single worker
// goroutine the pool's MaxGoroutines(1) guarantees.
func (s *Scanner) drain(ctx context.Context, roots []*tree.Root) {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		t := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		if err := s.runTask(ctx, t, roots); err != nil {
			s.logger.Error("refresh task failed", "id", t.id, "kind", t.kind.String(), "error", err)
		}
	}
}

func (s *Scanner) runTask(ctx context.Context, t task, roots []*tree.Root) error {
	targets := t.paths
	if t.kind == RefreshAll || t.kind == RefreshStartup {
		targets = targets[:0]
		for _, r := range roots {
			targets = append(targets, r.RealPath)
		}
	}

	for _, realPath := range targets {
		if s.aShutdown.Load() {
			return errs.ErrAborted
		}
		if err := s.refreshRoot(ctx, realPath); err != nil {
			s.logger.Warn("root refresh failed", "path", realPath, "error", err)
			continue
		}
		s.RebuildIndices(roots)
	}
	return nil
}

// refreshRoot walks realPath from disk, building a fresh subtree, then
// publishes it atomically (§4.2 steps 2-4).
func (s *Scanner) refreshRoot(ctx context.Context, realPath string) error {
	newRoot := tree.NewDirectory(filepath.Base(realPath), nil)
	if err := s.walk(ctx, realPath, newRoot); err != nil {
		return err
	}
	return s.shareTree.PublishSubtree(realPath, newRoot, nil)
}

// walk recursively populates dirNode with realPath's on-disk contents,
// applying the skip-list, hidden-entry policy, and per-file forbidden/size
// rules before consulting the hash manager (§4.2 steps 2-3).
func (s *Scanner) walk(ctx context.Context, realPath string, dirNode *tree.Directory) error {
	if s.aShutdown.Load() {
		return errs.ErrAborted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := s.dirIter.ReadDir(realPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", realPath, err)
	}

	for _, entry := range entries {
		if s.aShutdown.Load() {
			return errs.ErrAborted
		}

		if entry.Hidden && !s.shareHidden {
			continue
		}

		childPath := filepath.Join(realPath, entry.Name)

		if s.queueMgr != nil && s.queueMgr.IsForbiddenPath(childPath) {
			continue
		}
		if s.skipList.MatchesPath(childPath) {
			continue
		}

		if entry.IsDir {
			child := tree.NewDirectory(entry.Name, nil)
			if err := s.walk(ctx, childPath, child); err != nil {
				return err
			}
			dirNode.AddDirectory(child)
			continue
		}

		if filetype.IsReservedName(entry.Name) || filetype.IsForbidden(entry.Name, s.removeForbidden) {
			continue
		}
		if entry.Size == 0 {
			continue
		}
		if s.maxFileSize > 0 && entry.Size > s.maxFileSize {
			continue
		}

		tth, ok := s.hashMgr.Lookup(childPath, entry.Size, entry.LastWriteTime)
		if !ok {
			// Only files with a known TTH enter the tree (§4.2 step 3).
			continue
		}

		f := &tree.File{Name: entry.Name, Size: entry.Size, TTH: tth, LastWriteTime: entry.LastWriteTime}
		if filetype.TypeOf(entry.Name) == filetype.Picture {
			f.Tags = s.readExifTags(childPath)
		}
		dirNode.AddFile(f)
	}

	return nil
}

// RebuildIndices clears the TTH index, name index, bloom filter, token
// index, and size/time index, then re-walks every published root,
// repopulating all five (§4.2's rebuildIndices).
func (s *Scanner) RebuildIndices(roots []*tree.Root) {
	s.tth.Reset()
	s.names.Reset()
	s.bloom.Clear()
	if s.tokens != nil {
		s.tokens.Reset()
	}

	var allFiles []*tree.File
	for _, r := range roots {
		s.bloom.Add(r.Node.RealName)
		allFiles = append(allFiles, indexDirectory(r.Node, s.tth, s.names, s.bloom, s.tokens)...)
	}
	s.sizeTime.Build(allFiles)
}

func indexDirectory(d *tree.Directory, tth *index.TTHIndex, names *index.NameIndex, bloom *bloomfilter.Bloom, tokens *index.TokenIndex) []*tree.File {
	names.Add(d)
	bloom.Add(d.RealName)

	var files []*tree.File
	for _, f := range d.Files {
		tth.Add(f)
		bloom.Add(f.Name)
		if tokens != nil {
			tokens.Add(f)
		}
		files = append(files, f)
	}
	for _, c := range d.Directories {
		files = append(files, indexDirectory(c, tth, names, bloom, tokens)...)
	}
	return files
}

// readExifTags best-effort decodes EXIF fields from a PICTURE-classified
// file, swallowing every failure (unreadable file, no EXIF segment,
// corrupt tags) per §7's "scan continues past a single file's error"
// policy — a picture simply carries no tags rather than aborting refresh.
func (s *Scanner) readExifTags(path string) map[string]string {
	rc, err := s.dirIter.Open(path)
	if err != nil {
		return nil
	}
	defer rc.Close()

	x, err := exif.Decode(rc)
	if err != nil {
		return nil
	}

	tags := make(map[string]string)
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.Model, exif.Make, exif.PixelXDimension, exif.PixelYDimension} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		tags[string(name)] = tag.String()
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}
