package segmentation

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/avaer/pointcloud-plane-segmentation/pointcloud"
)

func indexRange(n, m int) []int {
	out := make([]int, 0, m-n)
	for i := n; i < m; i++ {
		out = append(out, i)
	}
	return out
}

func TestRefinePrunesOutliers(t *testing.T) {
	// a 10x10 grid on z=0 plus five points hovering at z=5, all grouped
	// into one raw patch; refinement must drop the hovering points
	positions := makeGrid(nil, 10, 10, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1})
	outlierSpots := []r3.Vector{
		{X: 2, Y: 2, Z: 5}, {X: 2, Y: 7, Z: 5}, {X: 4.5, Y: 4.5, Z: 5}, {X: 7, Y: 2, Z: 5}, {X: 7, Y: 7, Z: 5},
	}
	positions = append(positions, outlierSpots...)
	cloud := pointcloud.NewFromPositions(positions)

	plane, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: indexRange(0, 105)}, NewDefaultConfig())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, plane.Inliers, test.ShouldResemble, indexRange(0, 100))
	test.That(t, math.Abs(plane.Normal.Z), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, plane.Center.Z, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestRefineIdempotent(t *testing.T) {
	positions := makeGrid(nil, 10, 10, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1, Z: 0.5})
	cloud := pointcloud.NewFromPositions(positions)

	first, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: indexRange(0, 100)}, NewDefaultConfig())
	test.That(t, ok, test.ShouldBeTrue)

	second, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: first.Inliers}, NewDefaultConfig())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, second.Inliers, test.ShouldResemble, first.Inliers)
	test.That(t, second.Normal.Sub(first.Normal).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, second.Center.Sub(first.Center).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, second.BasisU.Sub(first.BasisU).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, second.BasisV.Sub(first.BasisV).Norm(), test.ShouldAlmostEqual, 0, 1e-9)
}

func TestRefineRejectsSmallPatch(t *testing.T) {
	positions := makeGrid(nil, 5, 2, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1})
	cloud := pointcloud.NewFromPositions(positions)

	_, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: indexRange(0, 10)}, NewDefaultConfig())
	test.That(t, ok, test.ShouldBeFalse)

	// even with no minimum, fewer than 3 points cannot define a plane
	cfg := NewDefaultConfig()
	cfg.MinNumPoints = 0
	_, ok = refinePatch(cloud, rawPatch{seed: 0, inliers: []int{0, 1}}, cfg)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestRefineRejectsByOutlierRatio(t *testing.T) {
	positions := makeGrid(nil, 10, 10, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1})
	positions = append(positions,
		r3.Vector{X: 3, Y: 3, Z: 5},
		r3.Vector{X: 3, Y: 6, Z: 5},
		r3.Vector{X: 6, Y: 3, Z: 5},
		r3.Vector{X: 6, Y: 6, Z: 5},
	)
	cloud := pointcloud.NewFromPositions(positions)

	cfg := NewDefaultConfig()
	cfg.OutlierRatio = 0.01
	_, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: indexRange(0, 104)}, cfg)
	test.That(t, ok, test.ShouldBeFalse)

	cfg.OutlierRatio = 0.75
	plane, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: indexRange(0, 104)}, cfg)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(plane.Inliers), test.ShouldEqual, 100)
}

func TestRefineRejectsWhenPruningDropsBelowMinimum(t *testing.T) {
	positions := makeGrid(nil, 10, 10, r3.Vector{}, r3.Vector{X: 1}, r3.Vector{Y: 1})
	positions = append(positions,
		r3.Vector{X: 2, Y: 4.5, Z: 5},
		r3.Vector{X: 4.5, Y: 4.5, Z: 5},
		r3.Vector{X: 7, Y: 4.5, Z: 5},
	)
	cloud := pointcloud.NewFromPositions(positions)

	cfg := NewDefaultConfig()
	cfg.MinNumPoints = 103
	// 103 raw points pass the size gate, but pruning the three hovering
	// points drops the patch below the minimum
	_, ok := refinePatch(cloud, rawPatch{seed: 0, inliers: indexRange(0, 103)}, cfg)
	test.That(t, ok, test.ShouldBeFalse)
}
