package segmentation

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/avaer/pointcloud-plane-segmentation/pointcloud"
)

// rawPatch is a grown, not yet refined planar patch: the indices admitted
// during growth, in admission order.
type rawPatch struct {
	seed    int
	inliers []int
}

// growSession owns the shared mutable state of the region-growing loop:
// the visited bitmap and the per-patch frontier stamps. Growth is
// single-threaded; the session must not be shared across goroutines.
type growSession struct {
	cloud *pointcloud.PointCloud
	graph pointcloud.NeighborGraph
	cfg   Config

	visited []bool
	// stamp[i] = id of the patch that last enqueued or rejected point i,
	// so a patch never retests a point and never double-enqueues it.
	stamp   []int
	patchID int

	// minNormalCos is cos(MinNormalDiff); admission requires
	// |n_point . n_patch| >= minNormalCos.
	minNormalCos float64
	// maxPlaneDist is spacing*tan(MaxDist), the perpendicular offset at
	// which a point's deviation angle atan(offset/spacing) hits MaxDist.
	maxPlaneDist float64
}

func newGrowSession(cloud *pointcloud.PointCloud, graph pointcloud.NeighborGraph, cfg Config) *growSession {
	spacing := graph.MeanNeighborSpacing(cloud)
	maxPlaneDist := math.Inf(1)
	if cfg.MaxDist < 90 {
		maxPlaneDist = spacing * math.Tan(cfg.MaxDist*math.Pi/180)
	}
	return &growSession{
		cloud:        cloud,
		graph:        graph,
		cfg:          cfg,
		visited:      make([]bool, cloud.Size()),
		stamp:        make([]int, cloud.Size()),
		minNormalCos: math.Cos(cfg.MinNormalDiff * math.Pi / 180),
		maxPlaneDist: maxPlaneDist,
	}
}

// growAll runs the outer seeding loop: unvisited points with defined,
// low-curvature normals seed patches in ascending index order, which
// makes the segmentation deterministic for identical input and config.
func (gs *growSession) growAll() []rawPatch {
	var patches []rawPatch
	for i := 0; i < gs.cloud.Size(); i++ {
		if gs.visited[i] || !gs.cloud.HasNormalAt(i) {
			continue
		}
		if gs.cloud.CurvatureAt(i) > gs.cfg.MaxSeedCurvature {
			continue
		}
		patches = append(patches, gs.growFrom(i))
	}
	return patches
}

// growFrom grows a single patch outward from the seed over the neighbor
// graph. The seed starts the patch alone: its neighborhood is the first
// admission wave, not an automatic part of the patch, so a seed sitting
// on a crease cannot pull in points from the far surface. Admission is
// monotone: once a point joins the patch it stays in until refinement.
// After each admission wave the patch plane is re-fit from the
// accumulated inliers so growth tracks the patch's evolving shape
// instead of the (possibly noisy) seed plane.
func (gs *growSession) growFrom(seed int) rawPatch {
	gs.patchID++
	id := gs.patchID

	var fit pointcloud.PlaneFit
	normal := gs.cloud.NormalAt(seed)
	center := gs.cloud.At(seed)
	dist := normal.Dot(center)

	gs.visited[seed] = true
	gs.stamp[seed] = id
	fit.Add(center)
	inliers := []int{seed}

	frontier := gs.enqueueNeighbors(seed, id, nil)
	for len(frontier) > 0 {
		var next []int
		for _, j := range frontier {
			if !gs.admit(j, normal, dist) {
				continue
			}
			gs.visited[j] = true
			fit.Add(gs.cloud.At(j))
			inliers = append(inliers, j)
			next = gs.enqueueNeighbors(j, id, next)
		}
		if res, ok := fit.Fit(); ok {
			// keep the sign stable across refits so the angular test does
			// not flip meaning mid-growth
			if res.Normal.Dot(normal) < 0 {
				normal = res.Normal.Mul(-1)
			} else {
				normal = res.Normal
			}
			center = res.Center
			dist = normal.Dot(center)
		}
		frontier = next
	}
	return rawPatch{seed: seed, inliers: inliers}
}

// admit tests a frontier point against the patch's current plane. Points
// with undefined normals are never admissible.
func (gs *growSession) admit(j int, normal r3.Vector, dist float64) bool {
	if !gs.cloud.HasNormalAt(j) {
		return false
	}
	if math.Abs(gs.cloud.NormalAt(j).Dot(normal)) < gs.minNormalCos {
		return false
	}
	return math.Abs(normal.Dot(gs.cloud.At(j))-dist) <= gs.maxPlaneDist
}

// enqueueNeighbors appends the unvisited, not-yet-stamped neighbors of
// point i to the frontier, stamping them for this patch. Growth is a
// single pass: a frontier point rejected against an early plane estimate
// is not revisited after later refits move the plane. Such points stay
// available to seed or join other patches.
func (gs *growSession) enqueueNeighbors(i, id int, frontier []int) []int {
	for _, nb := range gs.graph[i] {
		if nb == i || gs.visited[nb] || gs.stamp[nb] == id {
			continue
		}
		gs.stamp[nb] = id
		frontier = append(frontier, nb)
	}
	return frontier
}
