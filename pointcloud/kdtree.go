package pointcloud

import (
	"container/heap"
	"context"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/avaer/pointcloud-plane-segmentation/utils"
)

// NeighborGraph holds, for each point index, the indices of its nearest
// neighbors sorted by nondecreasing distance. A point never lists itself.
type NeighborGraph [][]int

// KDTree is a balanced k-d tree over the positions of a point cloud,
// built once and then queried read-only.
type KDTree struct {
	cloud *PointCloud
	// indices is the flattened tree: the middle of every subrange is the
	// split node of that subtree.
	indices []int
}

// NewKDTree builds a k-d tree over all positions of the cloud. Build is
// deterministic: ties on a split axis are broken by point index.
func NewKDTree(cloud *PointCloud) *KDTree {
	indices := make([]int, cloud.Size())
	for i := range indices {
		indices[i] = i
	}
	t := &KDTree{cloud: cloud, indices: indices}
	t.build(indices, 0)
	return t
}

func axisValue(p r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	default:
		return p.Z
	}
}

// build recursively partitions indices[lo:hi] around the median of the
// current axis. The median element ends up at the middle position, so the
// flattened slice doubles as the tree: the middle of every subrange is a
// split node.
func (t *KDTree) build(indices []int, depth int) {
	if len(indices) <= 1 {
		return
	}
	axis := depth % 3
	sort.Slice(indices, func(a, b int) bool {
		va := axisValue(t.cloud.At(indices[a]), axis)
		vb := axisValue(t.cloud.At(indices[b]), axis)
		if va != vb {
			return va < vb
		}
		return indices[a] < indices[b]
	})
	mid := len(indices) / 2
	t.build(indices[:mid], depth+1)
	t.build(indices[mid+1:], depth+1)
}

// neighborCandidate is an entry in the bounded k-nearest max-heap.
type neighborCandidate struct {
	index int
	dist2 float64
}

type candidateHeap []neighborCandidate

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	// max-heap on distance, farthest ties keep the larger index on top so
	// that eviction order is deterministic.
	if h[i].dist2 != h[j].dist2 {
		return h[i].dist2 > h[j].dist2
	}
	return h[i].index > h[j].index
}

func (h candidateHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x interface{}) {
	*h = append(*h, x.(neighborCandidate))
}

func (h *candidateHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// NearestNeighbors returns the indices of the k points nearest to the
// point at index i, excluding i itself, sorted by nondecreasing distance
// with ties broken by lower index. Fewer than k indices are returned when
// the cloud is too small.
func (t *KDTree) NearestNeighbors(i, k int) []int {
	if k <= 0 {
		return nil
	}
	target := t.cloud.At(i)
	cands := make(candidateHeap, 0, k+1)
	t.search(t.indices, 0, target, i, k, &cands)
	out := make([]neighborCandidate, len(cands))
	copy(out, cands)
	sort.Slice(out, func(a, b int) bool {
		if out[a].dist2 != out[b].dist2 {
			return out[a].dist2 < out[b].dist2
		}
		return out[a].index < out[b].index
	})
	neighbors := make([]int, len(out))
	for j, c := range out {
		neighbors[j] = c.index
	}
	return neighbors
}

func (t *KDTree) search(indices []int, depth int, target r3.Vector, exclude, k int, cands *candidateHeap) {
	if len(indices) == 0 {
		return
	}
	mid := len(indices) / 2
	point := indices[mid]
	if point != exclude {
		d2 := t.cloud.At(point).Sub(target).Norm2()
		if cands.Len() < k {
			heap.Push(cands, neighborCandidate{point, d2})
		} else if top := (*cands)[0]; d2 < top.dist2 || (d2 == top.dist2 && point < top.index) {
			heap.Pop(cands)
			heap.Push(cands, neighborCandidate{point, d2})
		}
	}
	if len(indices) == 1 {
		return
	}
	axis := depth % 3
	diff := axisValue(target, axis) - axisValue(t.cloud.At(point), axis)
	near, far := indices[:mid], indices[mid+1:]
	if diff > 0 {
		near, far = far, near
	}
	t.search(near, depth+1, target, exclude, k, cands)
	// Only descend the far side if the splitting plane is closer than the
	// current kth neighbor.
	if cands.Len() < k || diff*diff <= (*cands)[0].dist2 {
		t.search(far, depth+1, target, exclude, k, cands)
	}
}

// BuildNeighborGraph runs one k-nearest query per point, in parallel, and
// returns the resulting adjacency lists. When k >= the cloud size, each
// point lists all other points.
func BuildNeighborGraph(ctx context.Context, cloud *PointCloud, k int) (NeighborGraph, error) {
	if k <= 0 {
		return nil, errors.Errorf("neighbor count must be positive, got %d", k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree := NewKDTree(cloud)
	graph := make(NeighborGraph, cloud.Size())
	utils.ParallelForEachIndex(cloud.Size(), func(i int) {
		graph[i] = tree.NearestNeighbors(i, k)
	})
	return graph, nil
}

// MeanNeighborSpacing returns the mean distance from a point to its
// nearest neighbor across the cloud, the pipeline's estimate of point
// density. Points with no neighbors are skipped.
func (g NeighborGraph) MeanNeighborSpacing(cloud *PointCloud) float64 {
	sum := 0.0
	n := 0
	for i, neighbors := range g {
		if len(neighbors) == 0 {
			continue
		}
		sum += cloud.At(i).Distance(cloud.At(neighbors[0]))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
