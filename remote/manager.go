package remote

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/h0od/airdcpp-webclient/remote/listing"
	"github.com/h0od/airdcpp-webclient/share"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/search"
	"github.com/h0od/airdcpp-webclient/share/tree"
)

// Manager owns one Worker per remote user listing plus the shared ADL
// engine, mirroring share.Manager's service-façade shape
// (share/manager.go) narrowed to the remote-listing subsystem (§3.2).
type Manager struct {
	shareMgr *share.Manager
	adl      *Engine
	queue    external.QueueManager
	dispatch SearchDispatcher
	events   external.UIEventBus
	logger   *slog.Logger

	workers map[string]*Worker // userCID -> worker
}

// Deps bundles a Manager's collaborators.
type Deps struct {
	ShareMgr *share.Manager
	ADLRules []Rule
	Queue    external.QueueManager
	Dispatch SearchDispatcher
	Events   external.UIEventBus
	Logger   *slog.Logger
}

// New builds a remote listing manager.
func New(d Deps) *Manager {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	adl := NewEngine(d.ADLRules)

	return &Manager{
		shareMgr: d.ShareMgr,
		adl:      adl,
		queue:    d.Queue,
		dispatch: d.Dispatch,
		events:   d.Events,
		logger:   logger,
		workers:  make(map[string]*Worker),
	}
}

// OpenListing creates (or returns the existing) worker for userCID, wired
// with a dupe checker backed by the local share.
func (m *Manager) OpenListing(userCID string, partial, ownList bool) *Worker {
	if w, ok := m.workers[userCID]; ok {
		return w
	}

	var dupes DupeAnnotator
	var ownTree *tree.ShareTree
	if m.shareMgr != nil {
		dupes = NewShareDupeChecker(m.shareMgr.TTHIndex(), m.queue)
		ownTree = m.shareMgr.Tree()
	}

	w := NewWorker(WorkerDeps{
		Listing: &Listing{
			Root:    listing.NewDirectory("", nil),
			Partial: partial,
			OwnList: ownList,
			UserCID: userCID,
		},
		Dupes:    dupes,
		ADL:      m.adl,
		Dispatch: m.dispatch,
		Events:   m.events,
		OwnTree:  ownTree,
		Logger:   m.logger,
	})
	m.workers[userCID] = w
	return w
}

// CloseListing enqueues CLOSE and drops the worker from the registry.
func (m *Manager) CloseListing(userCID string) {
	if w, ok := m.workers[userCID]; ok {
		w.SubmitClose()
		delete(m.workers, userCID)
	}
}

// Download plans and submits a download of the given directory within
// userCID's listing (§4.8).
func (m *Manager) Download(ctx context.Context, userCID string, dirPath string, opts PlanOptions) error {
	w, ok := m.workers[userCID]
	if !ok {
		return errUnknownListing(userCID)
	}
	planner := NewPlanner(m.queue)
	dir := resolveListingPath(w.listing.Root, dirPath)
	if dir == nil {
		return errUnknownListing(userCID)
	}
	return planner.Plan(ctx, dir, opts)
}

// LoadFile submits a LOAD_FILE task from src for userCID's listing.
func (m *Manager) LoadFile(userCID string, src io.Reader, ownList bool) {
	if w, ok := m.workers[userCID]; ok {
		w.SubmitLoadFile(src, ownList)
	}
}

// Search submits a SEARCH task for userCID's listing.
func (m *Manager) Search(userCID string, q search.NMDCQuery, isDirectMatch func(string) bool) <-chan []search.Result {
	w, ok := m.workers[userCID]
	if !ok {
		ch := make(chan []search.Result)
		close(ch)
		return ch
	}
	return w.SubmitSearch(q, isDirectMatch)
}

func resolveListingPath(root *listing.Directory, path string) *listing.Directory {
	if path == "" || path == "/" {
		return root
	}
	cur := root
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		child, ok := cur.FindChild(seg)
		if !ok {
			return nil
		}
		cur = child
	}
	return cur
}

type errUnknownListing string

func (e errUnknownListing) Error() string { return "unknown listing or path: " + string(e) }
