// Package main is a command that reads raw points from stdin and prints
// the detected planes as JSON, or serves the same pipeline over HTTP.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/avaer/pointcloud-plane-segmentation/pointcloud"
	"github.com/avaer/pointcloud-plane-segmentation/segmentation"
	"github.com/avaer/pointcloud-plane-segmentation/web"
)

var logger = golog.NewDevelopmentLogger("planedetect")

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command. Width and height describe the point grid on
// stdin; every segmentation knob can be overridden from its default.
type Arguments struct {
	Width            int     `flag:"0"`
	Height           int     `flag:"1"`
	Serve            string  `flag:"serve,usage=serve the HTTP API on this address instead of reading stdin"`
	MinNormalDiff    float64 `flag:"min-normal-diff,default=60,usage=max normal angle difference for admission (degrees)"`
	MaxDist          float64 `flag:"max-dist,default=75,usage=max point-to-plane deviation angle for admission (degrees)"`
	OutlierRatio     float64 `flag:"outlier-ratio,default=0.75,usage=max outlier fraction before a patch is rejected"`
	MinNumPoints     int     `flag:"min-points,default=30,usage=minimum inlier count for a plane"`
	NrNeighbors      int     `flag:"neighbors,default=75,usage=neighborhood size of the k-nearest-neighbor graph"`
	MaxSeedCurvature float64 `flag:"max-seed-curvature,default=0.1,usage=highest local curvature allowed for a seed point"`
}

func (args *Arguments) config() segmentation.Config {
	return segmentation.Config{
		MinNormalDiff:    args.MinNormalDiff,
		MaxDist:          args.MaxDist,
		OutlierRatio:     args.OutlierRatio,
		MinNumPoints:     args.MinNumPoints,
		NrNeighbors:      args.NrNeighbors,
		MaxSeedCurvature: args.MaxSeedCurvature,
	}
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	cfg := argsParsed.config()
	if err := cfg.CheckValid(); err != nil {
		return err
	}

	if argsParsed.Serve != "" {
		return web.RunServer(ctx, argsParsed.Serve, cfg, logger)
	}

	if argsParsed.Width <= 0 || argsParsed.Height <= 0 {
		return errors.New("usage: planedetect <width> <height> (raw little-endian float32 points on stdin)")
	}
	totalPoints := argsParsed.Width * argsParsed.Height
	cloud, err := pointcloud.ReadRawXYZ(os.Stdin, totalPoints)
	if err != nil {
		return errors.Wrap(err, "reading points from stdin")
	}

	planes, err := segmentation.SegmentPlanes(ctx, cloud, cfg, logger)
	if err != nil {
		return err
	}
	segmentation.SortPlanesByDescendingInliers(planes)

	records := make([]segmentation.PlaneRecord, 0, len(planes))
	for _, plane := range planes {
		records = append(records, plane.Record())
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
