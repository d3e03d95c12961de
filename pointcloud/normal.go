package pointcloud

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/avaer/pointcloud-plane-segmentation/utils"
)

// EstimateNormals computes a unit surface normal and curvature for every
// point from the covariance of its neighborhood (the point itself plus its
// graph neighbors) and attaches them to the cloud.
//
// A degenerate neighborhood (fewer than 3 points, all coincident, or
// collinear) yields the zero vector and curvature 1, marking the normal
// undefined rather than returning an unstable direction. Signs are not
// consistently oriented across the cloud.
func EstimateNormals(ctx context.Context, cloud *PointCloud, graph NeighborGraph) error {
	if len(graph) != cloud.Size() {
		return errors.Errorf("neighbor graph covers %d points, cloud has %d", len(graph), cloud.Size())
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	normals := make([]r3.Vector, cloud.Size())
	curvatures := make([]float64, cloud.Size())
	utils.ParallelForEachIndex(cloud.Size(), func(i int) {
		var fit PlaneFit
		fit.Add(cloud.At(i))
		for _, j := range graph[i] {
			if j == i {
				continue
			}
			fit.Add(cloud.At(j))
		}
		res, ok := fit.Fit()
		if !ok {
			normals[i] = r3.Vector{}
			curvatures[i] = 1
			return
		}
		normals[i] = res.Normal
		curvatures[i] = res.Curvature
	})
	return cloud.SetNormals(normals, curvatures)
}
