// Package fuseview mounts a read-only FUSE view of one profile's visible
// share tree, letting a local process browse the share the way a remote
// client's file-list catalog would present it (spec §4.15). This is a
// supplemental feature the original client approximates through Windows
// shell integration; here it's a genuine mount, grounded on the
// smallblue2-OptiFS example's in-memory go-fuse tree
// (examples/go-fuse-example/main.go).
package fuseview

import (
	"context"
	"log/slog"
	"syscall"

	"github.com/h0od/airdcpp-webclient/share/tree"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// shareRootNode is the FUSE tree root; OnAdd populates it once from a
// ShareTree snapshot, matching the teacher's inMemoryFS.OnAdd population
// pattern rather than lazily resolving inodes per lookup.
type shareRootNode struct {
	fs.Inode
	shareTree *tree.ShareTree
	profile   int
}

var _ = (fs.NodeOnAdder)((*shareRootNode)(nil))

func (root *shareRootNode) OnAdd(ctx context.Context) {
	for _, r := range root.shareTree.Roots() {
		if !r.Node.VisibleFor(root.profile) {
			continue
		}
		child := root.NewPersistentInode(ctx, &fs.Inode{}, fs.StableAttr{Mode: syscall.S_IFDIR})
		if !root.AddChild(r.Node.RealName, child, true) {
			slog.Warn("fuse view: duplicate root name, skipping", "name", r.Node.RealName)
			continue
		}
		populate(ctx, child, r.Node, root.profile)
	}
}

// populate recursively mirrors dir's visible children into parent. Each file
// becomes a fileNode leaf that reports the file's size and serves no content.
func populate(ctx context.Context, parent *fs.Inode, dir *tree.Directory, profile int) {
	for _, c := range dir.Directories {
		if !c.VisibleFor(profile) {
			continue
		}
		child := parent.NewPersistentInode(ctx, &fs.Inode{}, fs.StableAttr{Mode: syscall.S_IFDIR})
		if !parent.AddChild(c.RealName, child, true) {
			continue
		}
		populate(ctx, child, c, profile)
	}

	for _, f := range dir.Files {
		embedder := &fileNode{size: f.Size, tth: f.TTH}
		child := parent.NewPersistentInode(ctx, embedder, fs.StableAttr{})
		parent.AddChild(f.Name, child, true)
	}
}

// fileNode is a read-only stub leaf: it reports the shared file's size but
// serves no content, since resolving a TTH back to real bytes belongs to
// the (out-of-scope) hash manager and client-connection layer, not this
// view. A future revision can wire Open/Read through external.DirIterator.
type fileNode struct {
	fs.Inode
	size int64
	tth  [24]byte
}

var _ = (fs.NodeGetattrer)((*fileNode)(nil))

func (f *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Size = uint64(f.size)
	out.Mode = 0444
	return 0
}

// Mount mounts a read-only view of shareTree's profile-visible subtree at
// mountpoint, returning the fuse.Server the caller owns and must Unmount.
func Mount(mountpoint string, shareTree *tree.ShareTree, profile int) (*fuse.Server, error) {
	root := &shareRootNode{shareTree: shareTree, profile: profile}
	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:   "sharecore",
			Name:     "sharecore",
			Options:  []string{"ro"},
		},
	})
	if err != nil {
		return nil, err
	}
	return server, nil
}
