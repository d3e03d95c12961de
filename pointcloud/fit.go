package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

const (
	// minSpread is the absolute floor on the largest covariance eigenvalue
	// below which a neighborhood is treated as coincident points.
	minSpread = 1e-12
	// collinearRatio is the relative floor on the middle eigenvalue below
	// which a neighborhood is treated as collinear and a plane normal is
	// undefined.
	collinearRatio = 1e-8
)

// PlaneFit accumulates the first and second moments of a set of points so
// that a least-squares plane can be re-estimated cheaply as points are
// added one at a time.
type PlaneFit struct {
	n                      float64
	sum                    r3.Vector
	xx, xy, xz, yy, yz, zz float64
}

// Add accumulates one point.
func (f *PlaneFit) Add(p r3.Vector) {
	f.n++
	f.sum = f.sum.Add(p)
	f.xx += p.X * p.X
	f.xy += p.X * p.Y
	f.xz += p.X * p.Z
	f.yy += p.Y * p.Y
	f.yz += p.Y * p.Z
	f.zz += p.Z * p.Z
}

// Count returns the number of accumulated points.
func (f *PlaneFit) Count() int {
	return int(f.n)
}

// Centroid returns the mean of the accumulated points.
func (f *PlaneFit) Centroid() r3.Vector {
	if f.n == 0 {
		return r3.Vector{}
	}
	return f.sum.Mul(1 / f.n)
}

// PlaneFitResult is the principal-component decomposition of a point set:
// the least-squares plane through its centroid plus the dominant in-plane
// direction.
type PlaneFitResult struct {
	Center r3.Vector
	// Normal is the unit eigenvector of the smallest covariance
	// eigenvalue. Its sign is canonicalized for determinism, not oriented.
	Normal r3.Vector
	// BasisU is the unit eigenvector of the largest covariance eigenvalue,
	// orthogonal to Normal.
	BasisU r3.Vector
	// Curvature is the smallest eigenvalue's share of the total spread,
	// zero for perfectly planar sets.
	Curvature float64
}

// Fit solves the accumulated moments for the least-squares plane. It
// reports false when the set is too small, coincident, or collinear for
// the normal to be defined.
func (f *PlaneFit) Fit() (PlaneFitResult, bool) {
	if f.n < 3 {
		return PlaneFitResult{}, false
	}
	c := f.Centroid()
	inv := 1 / f.n
	cov := mat.NewSymDense(3, []float64{
		f.xx*inv - c.X*c.X, f.xy*inv - c.X*c.Y, f.xz*inv - c.X*c.Z,
		f.xy*inv - c.X*c.Y, f.yy*inv - c.Y*c.Y, f.yz*inv - c.Y*c.Z,
		f.xz*inv - c.X*c.Z, f.yz*inv - c.Y*c.Z, f.zz*inv - c.Z*c.Z,
	})
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return PlaneFitResult{}, false
	}
	vals := eig.Values(nil) // ascending
	for i := range vals {
		if vals[i] < 0 {
			vals[i] = 0
		}
	}
	if vals[2] <= minSpread {
		return PlaneFitResult{}, false
	}
	if vals[1] <= collinearRatio*vals[2] {
		return PlaneFitResult{}, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	normal := canonicalizeSign(r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}.Normalize())
	basisU := canonicalizeSign(r3.Vector{X: vecs.At(0, 2), Y: vecs.At(1, 2), Z: vecs.At(2, 2)}.Normalize())
	return PlaneFitResult{
		Center:    c,
		Normal:    normal,
		BasisU:    basisU,
		Curvature: vals[0] / (vals[0] + vals[1] + vals[2]),
	}, true
}

// canonicalizeSign flips a unit axis vector so its largest-magnitude
// component is positive, making eigenvector signs reproducible.
func canonicalizeSign(v r3.Vector) r3.Vector {
	lead := v.Z
	if math.Abs(v.X) >= math.Abs(v.Y) && math.Abs(v.X) >= math.Abs(v.Z) {
		lead = v.X
	} else if math.Abs(v.Y) >= math.Abs(v.Z) {
		lead = v.Y
	}
	if lead < 0 {
		return v.Mul(-1)
	}
	return v
}
