package segmentation

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// Plane is a finalized planar patch: the fitted plane geometry plus the
// indices of its accepted inlier points. Once returned from the
// segmentation it is immutable.
type Plane struct {
	// Normal, BasisU and BasisV form a right-handed orthonormal frame with
	// BasisU and BasisV spanning the plane.
	Normal r3.Vector
	Center r3.Vector
	BasisU r3.Vector
	BasisV r3.Vector
	// DistanceFromOrigin is Normal dot Center, the plane's signed offset
	// along its normal.
	DistanceFromOrigin float64
	// Inliers are indices into the segmented cloud, sorted ascending.
	Inliers []int
}

// Distance returns the signed perpendicular distance from the point to
// the plane.
func (p *Plane) Distance(pt r3.Vector) float64 {
	return p.Normal.Dot(pt) - p.DistanceFromOrigin
}

// Equation returns the plane equation coefficients [a b c d] with
// a*x + b*y + c*z + d = 0.
func (p *Plane) Equation() [4]float64 {
	return [4]float64{p.Normal.X, p.Normal.Y, p.Normal.Z, -p.DistanceFromOrigin}
}

// Intersect returns the intersection of the infinite line through p0 and
// p1 with the plane, or nil if the line is parallel to it.
func (p *Plane) Intersect(p0, p1 r3.Vector) *r3.Vector {
	line := p1.Sub(p0)
	parallel := p.Normal.Dot(line)
	if math.Abs(parallel) < 1e-10 {
		return nil
	}
	t := (p.DistanceFromOrigin - p.Normal.Dot(p0)) / parallel
	result := p0.Add(line.Mul(t))
	return &result
}

// PlaneRecord is the wire form of a detected plane.
type PlaneRecord struct {
	Normal             [3]float64 `json:"normal"`
	Center             [3]float64 `json:"center"`
	BasisU             [3]float64 `json:"basisU"`
	BasisV             [3]float64 `json:"basisV"`
	DistanceFromOrigin float64    `json:"distanceFromOrigin"`
	InlierCount        int        `json:"inlierCount"`
}

func vectorRecord(v r3.Vector) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// Record returns the serializable form of the plane.
func (p *Plane) Record() PlaneRecord {
	return PlaneRecord{
		Normal:             vectorRecord(p.Normal),
		Center:             vectorRecord(p.Center),
		BasisU:             vectorRecord(p.BasisU),
		BasisV:             vectorRecord(p.BasisV),
		DistanceFromOrigin: p.DistanceFromOrigin,
		InlierCount:        len(p.Inliers),
	}
}

// SortPlanesByDescendingInliers orders planes largest first, a
// presentation-layer sort; the segmentation itself guarantees no
// ordering. The sort is stable so equal-sized planes keep detection
// order.
func SortPlanesByDescendingInliers(planes []*Plane) {
	sort.SliceStable(planes, func(i, j int) bool {
		return len(planes[i].Inliers) > len(planes[j].Inliers)
	})
}
