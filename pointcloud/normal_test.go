package pointcloud

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func gridCloud(nx, ny int) *PointCloud {
	positions := make([]r3.Vector, 0, nx*ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			positions = append(positions, r3.Vector{X: float64(x), Y: float64(y)})
		}
	}
	return NewFromPositions(positions)
}

func TestEstimateNormalsFlatGrid(t *testing.T) {
	ctx := context.Background()
	cloud := gridCloud(10, 10)
	graph, err := BuildNeighborGraph(ctx, cloud, 8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, EstimateNormals(ctx, cloud, graph), test.ShouldBeNil)
	test.That(t, cloud.HasNormals(), test.ShouldBeTrue)

	for i := 0; i < cloud.Size(); i++ {
		test.That(t, cloud.HasNormalAt(i), test.ShouldBeTrue)
		n := cloud.NormalAt(i)
		test.That(t, n.Norm(), test.ShouldAlmostEqual, 1, 1e-9)
		test.That(t, math.Abs(n.Z), test.ShouldAlmostEqual, 1, 1e-9)
		test.That(t, cloud.CurvatureAt(i), test.ShouldAlmostEqual, 0, 1e-9)
	}
}

func TestEstimateNormalsDegenerate(t *testing.T) {
	ctx := context.Background()

	// collinear cloud: no neighborhood defines a plane
	positions := make([]r3.Vector, 0, 10)
	for i := 0; i < 10; i++ {
		positions = append(positions, r3.Vector{X: float64(i)})
	}
	cloud := NewFromPositions(positions)
	graph, err := BuildNeighborGraph(ctx, cloud, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, EstimateNormals(ctx, cloud, graph), test.ShouldBeNil)
	for i := 0; i < cloud.Size(); i++ {
		test.That(t, cloud.HasNormalAt(i), test.ShouldBeFalse)
		test.That(t, cloud.CurvatureAt(i), test.ShouldEqual, 1)
	}

	// coincident cloud
	positions = positions[:0]
	for i := 0; i < 6; i++ {
		positions = append(positions, r3.Vector{X: 1, Y: 1, Z: 1})
	}
	cloud = NewFromPositions(positions)
	graph, err = BuildNeighborGraph(ctx, cloud, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, EstimateNormals(ctx, cloud, graph), test.ShouldBeNil)
	for i := 0; i < cloud.Size(); i++ {
		test.That(t, cloud.HasNormalAt(i), test.ShouldBeFalse)
	}
}

func TestEstimateNormalsGraphMismatch(t *testing.T) {
	cloud := gridCloud(3, 3)
	err := EstimateNormals(context.Background(), cloud, NeighborGraph{{1}, {0}})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestEstimateNormalsTiltedPlane(t *testing.T) {
	// plane z = x: normal along (-1, 0, 1)/sqrt(2) up to sign
	ctx := context.Background()
	positions := make([]r3.Vector, 0, 64)
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			positions = append(positions, r3.Vector{X: float64(x), Y: float64(y), Z: float64(x)})
		}
	}
	cloud := NewFromPositions(positions)
	graph, err := BuildNeighborGraph(ctx, cloud, 8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, EstimateNormals(ctx, cloud, graph), test.ShouldBeNil)

	want := r3.Vector{X: -1, Y: 0, Z: 1}.Normalize()
	for i := 0; i < cloud.Size(); i++ {
		n := cloud.NormalAt(i)
		test.That(t, math.Abs(n.Dot(want)), test.ShouldAlmostEqual, 1, 1e-9)
	}
}
