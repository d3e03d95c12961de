package segmentation

import (
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/avaer/pointcloud-plane-segmentation/pointcloud"
)

// SegmentPlanes partitions the cloud into planar patches: it builds the
// k-nearest-neighbor graph, estimates per-point normals (unless the cloud
// already carries them), grows patches by region growing, and refines and
// filters each patch. The returned planes are in deterministic
// patch-creation order; callers wanting largest-first presentation should
// apply SortPlanesByDescendingInliers.
//
// Points whose normals cannot be estimated are never assigned to a plane.
// An invalid configuration is the only fatal error once points have been
// accepted; a rejected patch is silently absent from the result.
func SegmentPlanes(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	cfg Config,
	logger golog.Logger,
) ([]*Plane, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid segmentation config")
	}
	if cloud == nil || cloud.Size() == 0 {
		return []*Plane{}, nil
	}
	graph, err := pointcloud.BuildNeighborGraph(ctx, cloud, cfg.NrNeighbors)
	if err != nil {
		return nil, err
	}
	return SegmentPlanesFromGraph(ctx, cloud, graph, cfg, logger)
}

// SegmentPlanesFromGraph is SegmentPlanes for callers that already hold a
// neighbor graph over the cloud.
func SegmentPlanesFromGraph(
	ctx context.Context,
	cloud *pointcloud.PointCloud,
	graph pointcloud.NeighborGraph,
	cfg Config,
	logger golog.Logger,
) ([]*Plane, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid segmentation config")
	}
	if logger == nil {
		logger = golog.Global()
	}
	if cloud == nil || cloud.Size() == 0 {
		return []*Plane{}, nil
	}
	if len(graph) != cloud.Size() {
		return nil, errors.Errorf("neighbor graph covers %d points, cloud has %d", len(graph), cloud.Size())
	}

	if !cloud.HasNormals() {
		start := time.Now()
		if err := pointcloud.EstimateNormals(ctx, cloud, graph); err != nil {
			return nil, err
		}
		logger.Debugf("estimated %d normals in %s", cloud.Size(), time.Since(start))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	session := newGrowSession(cloud, graph, cfg)
	patches := session.growAll()

	planes := make([]*Plane, 0, len(patches))
	for _, patch := range patches {
		if plane, ok := refinePatch(cloud, patch, cfg); ok {
			planes = append(planes, plane)
		}
	}
	logger.Debugf("grew %d patches, kept %d planes in %s", len(patches), len(planes), time.Since(start))
	return planes, nil
}
