// Package pointcloud defines a dense 3D point cloud and the spatial
// primitives the plane segmentation pipeline consumes: raw ingestion,
// k-nearest-neighbor graphs, and per-point surface normal estimation.
//
// Points are stored in ingestion order and referenced everywhere else by
// integer index; the cloud itself is read-only once normals have been
// estimated.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData creates a new MetaData with bounds ready for merging.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge merges a point into the bounds of the meta data.
func (meta *MetaData) Merge(v r3.Vector) {
	if v.X > meta.MaxX {
		meta.MaxX = v.X
	}
	if v.Y > meta.MaxY {
		meta.MaxY = v.Y
	}
	if v.Z > meta.MaxZ {
		meta.MaxZ = v.Z
	}
	if v.X < meta.MinX {
		meta.MinX = v.X
	}
	if v.Y < meta.MinY {
		meta.MinY = v.Y
	}
	if v.Z < meta.MinZ {
		meta.MinZ = v.Z
	}
}

// PointCloud is an ordered collection of 3D points, optionally carrying a
// parallel set of estimated unit surface normals. The backing storage is
// slice based so that consumers can refer to points by index without
// copying position data.
type PointCloud struct {
	positions  []r3.Vector
	normals    []r3.Vector
	curvatures []float64
	meta       MetaData
}

// New returns an empty PointCloud.
func New() *PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty PointCloud with the given capacity.
func NewWithPrealloc(size int) *PointCloud {
	return &PointCloud{
		positions: make([]r3.Vector, 0, size),
		meta:      NewMetaData(),
	}
}

// NewFromPositions returns a PointCloud over the given positions. The
// slice is retained, not copied.
func NewFromPositions(positions []r3.Vector) *PointCloud {
	cloud := &PointCloud{positions: positions, meta: NewMetaData()}
	for _, p := range positions {
		cloud.meta.Merge(p)
	}
	return cloud
}

// Size returns the number of points in the cloud.
func (cloud *PointCloud) Size() int {
	return len(cloud.positions)
}

// MetaData returns the bounds of the cloud.
func (cloud *PointCloud) MetaData() MetaData {
	return cloud.meta
}

// Add appends a point to the cloud. Adding after normals have been
// estimated invalidates them.
func (cloud *PointCloud) Add(p r3.Vector) {
	cloud.positions = append(cloud.positions, p)
	cloud.meta.Merge(p)
	cloud.normals = nil
	cloud.curvatures = nil
}

// At returns the position of the point at the given index.
func (cloud *PointCloud) At(i int) r3.Vector {
	return cloud.positions[i]
}

// Iterate iterates over all points in the cloud in index order and calls
// the given function for each one. If the function returns false,
// iteration stops.
func (cloud *PointCloud) Iterate(fn func(i int, p r3.Vector) bool) {
	for i, p := range cloud.positions {
		if !fn(i, p) {
			return
		}
	}
}

// HasNormals reports whether normals have been estimated for this cloud.
func (cloud *PointCloud) HasNormals() bool {
	return len(cloud.positions) != 0 && len(cloud.normals) == len(cloud.positions)
}

// NormalAt returns the unit normal of the point at the given index. The
// zero vector marks a point whose normal could not be estimated.
func (cloud *PointCloud) NormalAt(i int) r3.Vector {
	return cloud.normals[i]
}

// HasNormalAt reports whether the point at the given index has a defined
// normal.
func (cloud *PointCloud) HasNormalAt(i int) bool {
	return cloud.normals[i] != (r3.Vector{})
}

// CurvatureAt returns the local surface curvature of the point at the
// given index, the smallest-eigenvalue share of its neighborhood
// covariance. Points with undefined normals have curvature 1.
func (cloud *PointCloud) CurvatureAt(i int) float64 {
	return cloud.curvatures[i]
}

// SetNormals attaches per-point normals and curvatures to the cloud.
func (cloud *PointCloud) SetNormals(normals []r3.Vector, curvatures []float64) error {
	if len(normals) != len(cloud.positions) || len(curvatures) != len(cloud.positions) {
		return errors.Errorf(
			"expected %d normals and curvatures, got %d and %d",
			len(cloud.positions), len(normals), len(curvatures))
	}
	cloud.normals = normals
	cloud.curvatures = curvatures
	return nil
}
