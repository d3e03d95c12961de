package pointcloud

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPlaneFitSquare(t *testing.T) {
	var fit PlaneFit
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			fit.Add(r3.Vector{X: float64(x), Y: float64(y), Z: 2})
		}
	}
	test.That(t, fit.Count(), test.ShouldEqual, 16)

	res, ok := fit.Fit()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, math.Abs(res.Normal.Z), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, res.Center.X, test.ShouldAlmostEqual, 1.5)
	test.That(t, res.Center.Y, test.ShouldAlmostEqual, 1.5)
	test.That(t, res.Center.Z, test.ShouldAlmostEqual, 2)
	test.That(t, res.Curvature, test.ShouldAlmostEqual, 0, 1e-9)
	// BasisU is in-plane and unit length
	test.That(t, res.BasisU.Dot(res.Normal), test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, res.BasisU.Norm(), test.ShouldAlmostEqual, 1, 1e-9)
}

func TestPlaneFitDegenerate(t *testing.T) {
	// too few points
	var fit PlaneFit
	fit.Add(r3.Vector{X: 1})
	fit.Add(r3.Vector{X: 2})
	_, ok := fit.Fit()
	test.That(t, ok, test.ShouldBeFalse)

	// coincident points
	fit = PlaneFit{}
	for i := 0; i < 10; i++ {
		fit.Add(r3.Vector{X: 3, Y: 4, Z: 5})
	}
	_, ok = fit.Fit()
	test.That(t, ok, test.ShouldBeFalse)

	// collinear points
	fit = PlaneFit{}
	for i := 0; i < 10; i++ {
		fit.Add(r3.Vector{X: float64(i), Y: 2 * float64(i), Z: -float64(i)})
	}
	_, ok = fit.Fit()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestPlaneFitSignStability(t *testing.T) {
	// the same plane fit twice yields the identical canonicalized frame
	build := func() PlaneFitResult {
		var fit PlaneFit
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				fit.Add(r3.Vector{X: float64(x), Y: float64(y), Z: 0.5 * float64(x)})
			}
		}
		res, ok := fit.Fit()
		test.That(t, ok, test.ShouldBeTrue)
		return res
	}
	first := build()
	second := build()
	test.That(t, first, test.ShouldResemble, second)
}
