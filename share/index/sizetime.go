package index

import (
	"math"
	"sync"

	"github.com/h0od/airdcpp-webclient/share/tree"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// SizeTimePoint is a 2-D point (size, lastWriteTime) over a File. The
// scanner rebuilds the index from these points; share/search does not query
// it and checks size bounds per file during its tree walk. Grounded on the teacher's DirectoryPoint
// (vvfs/trees/directorypoint.go), generalized from directory metadata to a
// file's size/mtime pair.
type SizeTimePoint struct {
	File   *tree.File
	Coords [2]float64 // [0]=size, [1]=lastWriteTime
}

func (p SizeTimePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	other := c.(SizeTimePoint)
	return p.Coords[d] - other.Coords[d]
}

func (p SizeTimePoint) Dims() int { return 2 }

func (p SizeTimePoint) Distance(c kdtree.Comparable) float64 {
	other, ok := c.(SizeTimePoint)
	if !ok {
		return math.Inf(1)
	}
	dx := p.Coords[0] - other.Coords[0]
	dy := p.Coords[1] - other.Coords[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// Points is a mutable slice of SizeTimePoint implementing kdtree.Interface,
// the sort/partition contract gonum's tree builder needs.
type Points []SizeTimePoint

func (p Points) Len() int                    { return len(p) }
func (p Points) Index(i int) kdtree.Comparable { return p[i] }
func (p Points) Slice(from, to int) kdtree.Interface { return p[from:to] }

func (p Points) Pivot(d kdtree.Dim) int {
	return plane{Points: p, Dim: d}.pivot()
}

// plane implements sort.Interface plus gonum's kdtree median-of-medians
// partitioning helper, following the pattern kdtree.Interface implementers
// are expected to provide (see gonum's own example collections).
type plane struct {
	Points
	Dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.Points[i].Coords[p.Dim] < p.Points[j].Coords[p.Dim]
}
func (p plane) Swap(i, j int) {
	p.Points[i], p.Points[j] = p.Points[j], p.Points[i]
}

func (p plane) Slice(from, to int) kdtree.SortSlicer {
	p.Points = p.Points[from:to]
	return p
}

func (p plane) pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// SizeTimeIndex wraps a gonum kdtree.Tree as a size/mtime range pre-filter
// over shared files, rebuilt wholesale on each publish (§4.4).
type SizeTimeIndex struct {
	mu   sync.RWMutex
	tree *kdtree.Tree
	pts  Points
}

func NewSizeTimeIndex() *SizeTimeIndex {
	return &SizeTimeIndex{}
}

// Build replaces the index contents with points, then bulk-constructs the
// KD-tree (called once per publish, not incrementally per spec §4.2's
// atomic-swap model).
func (idx *SizeTimeIndex) Build(files []*tree.File) {
	pts := make(Points, len(files))
	for i, f := range files {
		pts[i] = SizeTimePoint{
			File:   f,
			Coords: [2]float64{float64(f.Size), float64(f.LastWriteTime)},
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.pts = pts
	idx.tree = kdtree.New(pts, true)
}

// NearestBySize returns the k files whose (size, mtime) point lies closest
// to the given size, using the KD-tree's nearest-neighbor search — the
// "similar-sized files" hint a search can request in place of an exact
// range (grounded on the teacher's NearestNeighborSearchKDTree).
func (idx *SizeTimeIndex) NearestBySize(size int64, mtime uint32, k int) []*tree.File {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil || k <= 0 {
		return nil
	}
	query := SizeTimePoint{Coords: [2]float64{float64(size), float64(mtime)}}
	keep := kdtree.NewNKeeper(k)
	idx.tree.NearestSet(keep, query)

	out := make([]*tree.File, 0, keep.Heap.Len())
	for _, h := range keep.Heap {
		if p, ok := h.Comparable.(SizeTimePoint); ok && p.File != nil {
			out = append(out, p.File)
		}
	}
	return out
}

// RangeSearch returns every file whose size lies in [minSize, maxSize] and
// whose lastWriteTime lies in [minTime, maxTime]; a zero maxSize/maxTime
// means unbounded above. gonum's kdtree exposes nearest-neighbor search but
// no axis-aligned range query, so the range filter itself is a linear scan
// over the same point set the tree was built from; NearestBySize above is
// what actually exercises the tree structure.
func (idx *SizeTimeIndex) RangeSearch(minSize, maxSize int64, minTime, maxTime uint32) []*tree.File {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil {
		return nil
	}

	upperSize := float64(maxSize)
	if maxSize <= 0 {
		upperSize = math.MaxFloat64
	}
	upperTime := float64(maxTime)
	if maxTime == 0 {
		upperTime = math.MaxFloat64
	}

	var out []*tree.File
	for _, p := range idx.pts {
		if p.Coords[0] < float64(minSize) || p.Coords[0] > upperSize {
			continue
		}
		if p.Coords[1] < float64(minTime) || p.Coords[1] > upperTime {
			continue
		}
		out = append(out, p.File)
	}
	return out
}
