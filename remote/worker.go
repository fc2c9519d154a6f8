package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/search"
	"github.com/h0od/airdcpp-webclient/share/tree"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// TaskKind tags one queued unit of work drained by the listing worker
// (§4.9).
type TaskKind int

const (
	TaskListDiff TaskKind = iota
	TaskMatchADL
	TaskLoadFile
	TaskRefreshDir
	TaskMatchQueue
	TaskSearch
	TaskClose
)

func (k TaskKind) String() string {
	switch k {
	case TaskListDiff:
		return "LISTDIFF"
	case TaskMatchADL:
		return "MATCH_ADL"
	case TaskLoadFile:
		return "LOAD_FILE"
	case TaskRefreshDir:
		return "REFRESH_DIR"
	case TaskMatchQueue:
		return "MATCH_QUEUE"
	case TaskSearch:
		return "SEARCH"
	case TaskClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// task is one queued unit of work, carrying whichever payload its kind
// needs.
type task struct {
	id   string
	kind TaskKind

	// LISTDIFF / LOAD_FILE / REFRESH_DIR
	reader  io.Reader
	ownList bool

	// SEARCH
	query         search.NMDCQuery
	isDirectMatch func(string) bool
	resultCh      chan<- []search.Result
}

// SearchDispatcher routes an ADC direct search to a connected peer, used by
// the SEARCH task's non-own, partial-listing branch (§4.9 case b).
type SearchDispatcher interface {
	DispatchSearch(ctx context.Context, userCID string, query external.SearchQuery) (<-chan external.SearchResult, error)
}

// DirectSearchTimeout bounds how long a peer-dispatched search waits; when it
// elapses with no result received, the SEARCH task fails with a timeout
// error (§4.9, §5 "Timeouts").
const DirectSearchTimeout = 5 * time.Second

// Listing is one remote user's directory listing state: the merged tree,
// whether it is a partial or full list, and whether it belongs to the local
// user's own share (own-list loads bypass the network entirely).
type Listing struct {
	Root    *listing.Directory
	Partial bool
	OwnList bool
	UserCID string
}

// Worker drains a single listing's FIFO task queue on one goroutine,
// mirroring the share scanner's single-worker pool
// (share/scanner/scanner.go) narrowed to spec §4.9's task set.
type Worker struct {
	listing *Listing

	dupes    DupeAnnotator
	adl      *Engine
	dispatch SearchDispatcher
	events   external.UIEventBus
	ownTree  *tree.ShareTree // for own-list SEARCH/LOAD_FILE

	logger *slog.Logger

	mu      sync.Mutex
	queue   []task
	pool    *pool.Pool
	running atomic.Bool
	abort   atomic.Bool
}

// WorkerDeps bundles a Worker's collaborators.
type WorkerDeps struct {
	Listing  *Listing
	Dupes    DupeAnnotator
	ADL      *Engine
	Dispatch SearchDispatcher
	Events   external.UIEventBus
	OwnTree  *tree.ShareTree
	Logger   *slog.Logger
}

func NewWorker(d WorkerDeps) *Worker {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		listing:  d.Listing,
		dupes:    d.Dupes,
		adl:      d.ADL,
		dispatch: d.Dispatch,
		events:   d.Events,
		ownTree:  d.OwnTree,
		logger:   logger,
		pool:     pool.New().WithMaxGoroutines(1),
	}
}

// Abort raises the cooperative abort flag the parser polls (§4.6 "Abort";
// §5 "an abort flag on a listing aborts parsing").
func (w *Worker) Abort() { w.abort.Store(true) }

func (w *Worker) isAborted() bool { return w.abort.Load() }

// enqueue appends t to the FIFO and, if no worker is currently draining it,
// starts one (test-and-set on running, §4.9).
func (w *Worker) enqueue(t task) {
	t.id = uuid.NewString()
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()

	if w.running.CompareAndSwap(false, true) {
		w.pool.Go(func() {
			defer w.running.Store(false)
			w.drain(context.Background())
		})
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		t := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		start := time.Now()
		wasPartial := w.listing.Partial
		if err := w.run(ctx, t); err != nil {
			w.logger.Error("listing task failed", "id", t.id, "kind", t.kind.String(), "error", err)
		}
		if w.events != nil {
			w.events.Publish(external.Event{
				Kind:       t.kind.String(),
				StartTick:  start,
				WasPartial: wasPartial,
			})
		}

		if t.kind == TaskClose {
			return
		}
	}
}

// SubmitListDiff enqueues a LISTDIFF against the second listing read from
// other.
func (w *Worker) SubmitListDiff(other io.Reader) { w.enqueue(task{kind: TaskListDiff, reader: other}) }

// SubmitMatchADL enqueues an ADL match pass.
func (w *Worker) SubmitMatchADL() { w.enqueue(task{kind: TaskMatchADL}) }

// SubmitLoadFile enqueues a LOAD_FILE, loading a fresh XML document from src
// (from disk for a remote user, from the local share for own-list).
func (w *Worker) SubmitLoadFile(src io.Reader, ownList bool) {
	w.enqueue(task{kind: TaskLoadFile, reader: src, ownList: ownList})
}

// SubmitRefreshDir enqueues a REFRESH_DIR merge of a partial-list XML chunk.
func (w *Worker) SubmitRefreshDir(chunk io.Reader) { w.enqueue(task{kind: TaskRefreshDir, reader: chunk}) }

// SubmitMatchQueue enqueues a MATCH_QUEUE pass (dupe re-annotation against
// the current queue state).
func (w *Worker) SubmitMatchQueue() { w.enqueue(task{kind: TaskMatchQueue}) }

// SubmitSearch enqueues a SEARCH task and returns a channel the caller
// receives results on once the task completes.
func (w *Worker) SubmitSearch(q search.NMDCQuery, isDirectMatch func(string) bool) <-chan []search.Result {
	ch := make(chan []search.Result, 1)
	w.enqueue(task{kind: TaskSearch, query: q, isDirectMatch: isDirectMatch, resultCh: ch})
	return ch
}

// SubmitClose enqueues the terminal CLOSE task.
func (w *Worker) SubmitClose() { w.enqueue(task{kind: TaskClose}) }

func (w *Worker) run(ctx context.Context, t task) error {
	switch t.kind {
	case TaskListDiff:
		return w.runListDiff(t)
	case TaskMatchADL:
		return w.runMatchADL()
	case TaskLoadFile:
		return w.runLoadFile(t)
	case TaskRefreshDir:
		return w.runRefreshDir(t)
	case TaskMatchQueue:
		return w.runMatchQueue()
	case TaskSearch:
		return w.runSearch(ctx, t)
	case TaskClose:
		return nil
	default:
		return fmt.Errorf("unknown task kind %v", t.kind)
	}
}

// runListDiff loads a second listing from t.reader, computes its hash set,
// and subtracts matches from the current listing (§4.9).
func (w *Worker) runListDiff(t task) error {
	other := NewParser(nil, w.isAborted, nil)
	if err := other.Parse(t.reader); err != nil {
		return err
	}
	set := listing.BuildHashSet(other.Root())
	listing.Diff(w.listing.Root, set)
	return nil
}

func (w *Worker) runMatchADL() error {
	if w.adl == nil {
		return nil
	}
	w.adl.Match(w.listing.Root)
	return nil
}

// runLoadFile drops all subtrees of root first when the current state is a
// partial list, then loads fresh XML (§4.9).
func (w *Worker) runLoadFile(t task) error {
	if w.listing.Partial {
		w.listing.Root = listing.NewDirectory("", nil)
	}
	p := NewParser(w.listing.Root, w.isAborted, w.dupes)
	if err := p.Parse(t.reader); err != nil {
		return err
	}
	w.listing.Root = p.Root()
	w.listing.Root.AggregateDupe()
	w.listing.OwnList = t.ownList
	if w.adl != nil && !t.ownList {
		w.adl.Match(w.listing.Root)
	}
	return nil
}

// runRefreshDir merges a partial-list XML chunk whose base path is embedded
// in the document (§4.9).
func (w *Worker) runRefreshDir(t task) error {
	p := NewParser(w.listing.Root, w.isAborted, w.dupes)
	if err := p.Parse(t.reader); err != nil {
		return err
	}
	w.listing.Root.AggregateDupe()
	return nil
}

func (w *Worker) runMatchQueue() error {
	if w.dupes == nil {
		return nil
	}
	var walk func(*listing.Directory)
	walk = func(d *listing.Directory) {
		for _, f := range d.Files {
			f.Dupe = w.dupes.Annotate(f.TTH, f.Name)
		}
		for _, c := range d.Dirs {
			walk(c)
		}
	}
	walk(w.listing.Root)
	w.listing.Root.AggregateDupe()
	return nil
}

// runSearch routes to one of three search strategies depending on whether
// the listing is a full listing, or a partial view of the local share vs. a
// remote peer (§4.9's SEARCH cases a/b/c).
func (w *Worker) runSearch(ctx context.Context, t task) error {
	defer close(t.resultCh)

	switch {
	case w.listing.OwnList && w.listing.Partial && w.ownTree != nil:
		// Case (a): local share direct-search.
		eng := search.NewEngine(w.ownTree, nil, nil, nil)
		matches := eng.DirectSearch(t.query, t.isDirectMatch)
		out := make([]search.Result, 0, len(matches))
		for _, m := range matches {
			out = append(out, search.Result{VirtualPath: m, IsDirectory: true})
		}
		t.resultCh <- out
		return nil

	case w.listing.Partial && !w.listing.OwnList && w.dispatch != nil:
		// Case (b): ADC direct-search dispatched to the peer.
		return w.runDirectPeerSearch(ctx, t)

	default:
		// Case (c): in-tree search over the already-loaded full listing.
		out := searchListingTree(w.listing.Root, t.query)
		t.resultCh <- out
		return nil
	}
}

func (w *Worker) runDirectPeerSearch(ctx context.Context, t task) error {
	ctx, cancel := context.WithTimeout(ctx, DirectSearchTimeout)
	defer cancel()

	ch, err := w.dispatch.DispatchSearch(ctx, w.listing.UserCID, external.SearchQuery{
		Include: []string{t.query.Raw},
	})
	if err != nil {
		return err
	}

	var out []search.Result
	for {
		select {
		case <-ctx.Done():
			t.resultCh <- out
			if len(out) == 0 {
				return fmt.Errorf("direct search timed out: %w", ctx.Err())
			}
			return nil
		case r, ok := <-ch:
			if !ok {
				t.resultCh <- out
				return nil
			}
			out = append(out, search.Result{VirtualPath: r.Path, Size: r.Size, TTH: r.TTH})
			if t.query.MaxResult > 0 && len(out) >= t.query.MaxResult {
				t.resultCh <- out
				return nil
			}
		}
	}
}

// searchListingTree runs a simplified NMDC-shaped token search directly
// over a parsed remote listing tree (case c: the listing has already been
// fully loaded, so no bloom guard or share-tree descent applies). Every
// "$"-separated token of q.Raw must appear, case-insensitively, in a file's
// path for that file to match.
func searchListingTree(root *listing.Directory, q search.NMDCQuery) []search.Result {
	var tokens []string
	for _, tok := range strings.Split(strings.ToLower(q.Raw), "$") {
		if tok = strings.TrimSpace(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	var out []search.Result
	var walk func(path string, d *listing.Directory)
	walk = func(path string, d *listing.Directory) {
	nextFile:
		for _, f := range d.Files {
			if q.MaxResult > 0 && len(out) >= q.MaxResult {
				return
			}
			filePath := path + "/" + f.Name
			for _, tok := range tokens {
				if !strings.Contains(strings.ToLower(filePath), tok) {
					continue nextFile
				}
			}
			out = append(out, search.Result{VirtualPath: filePath, Size: f.Size, TTH: f.TTH})
		}
		for _, c := range d.Dirs {
			walk(path+"/"+c.Name, c)
		}
	}
	walk("", root)
	return out
}
