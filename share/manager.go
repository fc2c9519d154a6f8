// Package share is the top-level sharing core: it wires the tree, indices,
// scanner, search engine, file-list generator, profile registry, and
// temp-share table into one service-oriented façade (spec §2).
package share

import (
	"fmt"
	"log/slog"

	"github.com/h0od/airdcpp-webclient/share/bloomfilter"
	"github.com/h0od/airdcpp-webclient/share/config"
	"github.com/h0od/airdcpp-webclient/share/external"
	"github.com/h0od/airdcpp-webclient/share/filelist"
	"github.com/h0od/airdcpp-webclient/share/hashid"
	"github.com/h0od/airdcpp-webclient/share/index"
	"github.com/h0od/airdcpp-webclient/share/profile"
	"github.com/h0od/airdcpp-webclient/share/registry"
	"github.com/h0od/airdcpp-webclient/share/scanner"
	"github.com/h0od/airdcpp-webclient/share/search"
	"github.com/h0od/airdcpp-webclient/share/tempshare"
	"github.com/h0od/airdcpp-webclient/share/tree"

	"github.com/ZanzyTHEbar/assert-lib"
)

// Manager is the sharing core's public entrypoint, mirroring the teacher's
// service-oriented FileSystem façade (vvfs/filesystem/fs.go): many
// sub-services wired together behind thin passthrough methods.
type Manager struct {
	tree      *tree.ShareTree
	bloom     *bloomfilter.Bloom
	tthIndex  *index.TTHIndex
	nameIndex *index.NameIndex
	sizeTime  *index.SizeTimeIndex
	tokens    *index.TokenIndex

	profiles  *profile.Registry
	tempShare *tempshare.Table
	scanner   *scanner.Scanner
	search    *search.Engine
	fileLists *filelist.Generator
	registry  *registry.Registry

	logger *slog.Logger
	assert *assert.AssertHandler
}

// Deps bundles the external collaborators a Manager needs to be
// constructed with (spec §1's out-of-scope interfaces).
type Deps struct {
	Config   *config.Config
	CID      hashid.CID
	DirIter  external.DirIterator
	HashMgr  external.HashManager
	QueueMgr external.QueueManager
	Settings external.SettingsStore
	Logger   *slog.Logger
}

// New assembles a fully wired Manager from cfg and the injected external
// collaborators.
func New(d Deps) (*Manager, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bloomBits := resolveBloomBits(d.Config)
	m := &Manager{
		tree:      tree.New(tree.WithLogger(logger)),
		bloom:     bloomfilter.New(bloomBits, bloomfilter.DefaultHashCount),
		tthIndex:  index.NewTTHIndex(),
		nameIndex: index.NewNameIndex(),
		sizeTime:  index.NewSizeTimeIndex(),
		tokens:    index.NewTokenIndex(),
		profiles:  profile.NewRegistry(),
		tempShare: tempshare.NewTable(),
		logger:    logger,
		assert:    assert.NewAssertHandler(),
	}

	reg, err := registry.Open(d.Config.Share.RegistryDSN)
	if err != nil {
		return nil, fmt.Errorf("opening share registry: %w", err)
	}
	m.registry = reg

	m.scanner = scanner.New(scanner.Deps{
		Tree:            m.tree,
		Bloom:           m.bloom,
		TTH:             m.tthIndex,
		Names:           m.nameIndex,
		SizeTime:        m.sizeTime,
		Tokens:          m.tokens,
		DirIter:         d.DirIter,
		HashMgr:         d.HashMgr,
		QueueMgr:        d.QueueMgr,
		Settings:        d.Settings,
		Logger:          logger,
		SkipPatterns:    d.Config.Share.SkipList,
		ShareHidden:     d.Config.Share.ShareHidden,
		RemoveForbidden: d.Config.Share.RemoveForbidden,
		MaxFileSize:     d.Config.Share.MaxFileSizeBytes,
	})

	m.search = search.NewEngine(m.tree, m.bloom, m.tthIndex, m.tokens)
	m.fileLists = filelist.New(m.tree, d.CID, d.Config.Share.Generator)

	if err := m.restoreRoots(d.Config); err != nil {
		logger.Warn("failed to restore persisted share roots", "error", err)
	}

	return m, nil
}

func resolveBloomBits(cfg *config.Config) uint {
	if cfg != nil && cfg.Share.BloomBits > 0 {
		return cfg.Share.BloomBits
	}
	return DefaultBloomBits
}

// restoreRoots loads previously configured roots from the registry and adds
// each to the live tree, ahead of the first scan (spec §4.14).
func (m *Manager) restoreRoots(cfg *config.Config) error {
	rows, err := m.registry.LoadRoots()
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := m.tree.AddRoot(row.RootPath, row.VirtualName, []int{row.ProfileID}, false); err != nil {
			m.logger.Debug("root already present, skipping restore", "path", row.RootPath)
		}
	}
	return nil
}

// AddRoot registers a new share root, persists it to the registry, and
// enqueues an ADD_DIR scan.
func (m *Manager) AddRoot(realPath, virtualName string, profileIDs []int, incoming bool) error {
	if _, err := m.tree.AddRoot(realPath, virtualName, profileIDs, incoming); err != nil {
		return err
	}
	for _, p := range profileIDs {
		prof, ok := m.profiles.Get(p)
		name := virtualName
		if ok {
			name = prof.Name
		}
		if err := m.registry.SaveRoot(registry.RootRow{
			ProfileID: p, ProfileName: name, RootPath: realPath, VirtualName: virtualName,
		}); err != nil {
			m.logger.Warn("failed to persist share root", "path", realPath, "error", err)
		}
	}
	m.RequestRefresh(scanner.AddDir, []string{realPath})
	for _, p := range profileIDs {
		m.fileLists.MarkDirty(p)
	}
	return nil
}

// RemoveRoot unregisters realPath from both the live tree and the registry.
func (m *Manager) RemoveRoot(realPath string) error {
	if err := m.tree.RemoveRoot(realPath); err != nil {
		return err
	}
	return m.registry.DeleteRoot(realPath)
}

// RequestRefresh enqueues a scan of kind over paths (or all roots for
// REFRESH_ALL/REFRESH_STARTUP), returning the immediate result code (§6.7).
func (m *Manager) RequestRefresh(kind scanner.Kind, paths []string) scanner.ResultCode {
	return m.scanner.Enqueue(kind, m.tree.Roots(), paths)
}

// Shutdown aborts any in-flight scan and closes the registry connection.
func (m *Manager) Shutdown() error {
	m.scanner.Shutdown()
	return m.registry.Close()
}

// Search exposes the search engine's three entrypoints.
func (m *Manager) Search() *search.Engine { return m.search }

// FileLists exposes the file-list generator.
func (m *Manager) FileLists() *filelist.Generator { return m.fileLists }

// Profiles exposes the profile registry.
func (m *Manager) Profiles() *profile.Registry { return m.profiles }

// TempShares exposes the temp-share table.
func (m *Manager) TempShares() *tempshare.Table { return m.tempShare }

// Tree exposes the underlying ShareTree for callers needing direct lookups
// (e.g. the remote listing engine's own-list search delegation).
func (m *Manager) Tree() *tree.ShareTree { return m.tree }

// TTHIndex exposes the local TTH index, used by the remote listing engine's
// dupe annotator to answer "isFileShared(tth, name)" (spec §4.7).
func (m *Manager) TTHIndex() *index.TTHIndex { return m.tthIndex }
