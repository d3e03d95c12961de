package segmentation

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/avaer/pointcloud-plane-segmentation/pointcloud"
)

// outlierStdDevs is the residual cutoff for the post-fit outlier test, in
// standard deviations.
const outlierStdDevs = 3.0

// fitIndices runs a least-squares plane fit over the given point indices.
func fitIndices(cloud *pointcloud.PointCloud, indices []int) (pointcloud.PlaneFitResult, bool) {
	var fit pointcloud.PlaneFit
	for _, i := range indices {
		fit.Add(cloud.At(i))
	}
	return fit.Fit()
}

// refinePatch re-fits a raw patch by principal component analysis,
// discards statistical outliers, and re-fits once more so the returned
// geometry corresponds exactly to the returned inlier set. It reports
// false when the patch fails the size or outlier-ratio criteria and must
// be dropped from the result.
func refinePatch(cloud *pointcloud.PointCloud, patch rawPatch, cfg Config) (*Plane, bool) {
	inliers := patch.inliers
	if len(inliers) < cfg.MinNumPoints || len(inliers) < 3 {
		return nil, false
	}
	res, ok := fitIndices(cloud, inliers)
	if !ok {
		return nil, false
	}

	offset := res.Normal.Dot(res.Center)
	residuals := make([]float64, len(inliers))
	for n, i := range inliers {
		residuals[n] = res.Normal.Dot(cloud.At(i)) - offset
	}
	mean, std := stat.MeanStdDev(residuals, nil)
	cutoff := outlierStdDevs * std

	kept := make([]int, 0, len(inliers))
	for n, i := range inliers {
		if math.Abs(residuals[n]-mean) <= cutoff {
			kept = append(kept, i)
		}
	}
	outlierFraction := float64(len(inliers)-len(kept)) / float64(len(inliers))
	if outlierFraction > cfg.OutlierRatio {
		return nil, false
	}
	if len(kept) < cfg.MinNumPoints || len(kept) < 3 {
		return nil, false
	}

	res, ok = fitIndices(cloud, kept)
	if !ok {
		return nil, false
	}
	sort.Ints(kept)
	return &Plane{
		Normal:             res.Normal,
		Center:             res.Center,
		BasisU:             res.BasisU,
		BasisV:             res.Normal.Cross(res.BasisU),
		DistanceFromOrigin: res.Normal.Dot(res.Center),
		Inliers:            kept,
	}, true
}
