// Package segmentation partitions a point cloud into planar surface
// patches by region growing over a k-nearest-neighbor graph, then refines
// each patch with a least-squares re-fit and outlier pruning.
package segmentation

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config holds the externally settable knobs of the plane segmentation.
// All thresholds trade recall against patch purity.
type Config struct {
	// MinNormalDiff is the maximum angle, in degrees, between a candidate
	// point's normal and the patch normal for the point to be admitted.
	MinNormalDiff float64 `json:"min_normal_diff_degs"`
	// MaxDist is the maximum point-to-plane deviation for admission,
	// expressed as an angle in degrees: a point at perpendicular offset d
	// is admitted while atan(d / spacing) <= MaxDist, where spacing is the
	// cloud's mean nearest-neighbor distance.
	MaxDist float64 `json:"max_dist_degs"`
	// OutlierRatio is the maximum fraction of a patch's points that may
	// fail the post-fit residual test before the patch is rejected.
	OutlierRatio float64 `json:"outlier_ratio"`
	// MinNumPoints is the minimum inlier count for a patch to be kept.
	MinNumPoints int `json:"min_num_points"`
	// NrNeighbors is the neighborhood size of the k-nearest-neighbor graph.
	NrNeighbors int `json:"nr_neighbors"`
	// MaxSeedCurvature is the highest local curvature a point may have and
	// still seed a new patch.
	MaxSeedCurvature float64 `json:"max_seed_curvature"`
}

// NewDefaultConfig returns the default segmentation configuration.
func NewDefaultConfig() Config {
	return Config{
		MinNormalDiff:    60,
		MaxDist:          75,
		OutlierRatio:     0.75,
		MinNumPoints:     30,
		NrNeighbors:      75,
		MaxSeedCurvature: 0.1,
	}
}

// CheckValid returns an error describing every config field outside its
// valid domain, or nil.
func (cfg *Config) CheckValid() error {
	var err error
	if cfg.MinNormalDiff <= 0 || cfg.MinNormalDiff > 180 {
		err = multierr.Append(err, errors.Errorf("min_normal_diff_degs must be in (0, 180], got %v", cfg.MinNormalDiff))
	}
	if cfg.MaxDist <= 0 || cfg.MaxDist > 180 {
		err = multierr.Append(err, errors.Errorf("max_dist_degs must be in (0, 180], got %v", cfg.MaxDist))
	}
	if cfg.OutlierRatio < 0 || cfg.OutlierRatio > 1 {
		err = multierr.Append(err, errors.Errorf("outlier_ratio must be in [0, 1], got %v", cfg.OutlierRatio))
	}
	if cfg.MinNumPoints < 0 {
		err = multierr.Append(err, errors.Errorf("min_num_points must be non-negative, got %d", cfg.MinNumPoints))
	}
	if cfg.NrNeighbors < 1 {
		err = multierr.Append(err, errors.Errorf("nr_neighbors must be positive, got %d", cfg.NrNeighbors))
	}
	if cfg.MaxSeedCurvature <= 0 || cfg.MaxSeedCurvature > 1 {
		err = multierr.Append(err, errors.Errorf("max_seed_curvature must be in (0, 1], got %v", cfg.MaxSeedCurvature))
	}
	return err
}
