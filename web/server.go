// Package web exposes the plane segmentation pipeline over HTTP: raw
// binary points in, JSON plane records out.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	goutils "go.viam.com/utils"
	goji "goji.io"
	"goji.io/pat"

	"github.com/avaer/pointcloud-plane-segmentation/pointcloud"
	"github.com/avaer/pointcloud-plane-segmentation/segmentation"
)

// bytesPerPoint is the wire size of one raw point (three float32s).
const bytesPerPoint = 12

// maxPointsPerRequest bounds the point count a single request may
// declare, so a hostile width/height claim cannot drive a huge
// allocation before any body bytes arrive.
const maxPointsPerRequest = 1 << 24

// Server handles plane detection requests against a fixed segmentation
// configuration.
type Server struct {
	cfg    segmentation.Config
	logger golog.Logger
}

// NewServer returns a Server that segments with the given configuration.
func NewServer(cfg segmentation.Config, logger golog.Logger) *Server {
	if logger == nil {
		logger = golog.Global()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the HTTP handler tree: GET / for liveness and
// POST /planes?width=&height= taking a raw little-endian float32 point
// body. All origins are allowed.
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/"), s.root)
	mux.HandleFunc(pat.Post("/planes"), s.detectPlanes)
	return cors.AllowAll().Handler(mux)
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "plane detection service is running"})
}

func (s *Server) detectPlanes(w http.ResponseWriter, r *http.Request) {
	width, err := positiveQueryInt(r, "width")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	height, err := positiveQueryInt(r, "height")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// divide to stay overflow-safe; width and height are both positive
	if height > maxPointsPerRequest/width {
		writeError(w, http.StatusBadRequest, errors.Errorf(
			"point grid %dx%d exceeds the maximum of %d points", width, height, maxPointsPerRequest))
		return
	}
	totalPoints := width * height
	expectedBytes := int64(totalPoints) * bytesPerPoint
	if r.ContentLength < 0 {
		writeError(w, http.StatusBadRequest, errors.New("requests must declare Content-Length"))
		return
	}
	if r.ContentLength != expectedBytes {
		writeError(w, http.StatusBadRequest, errors.Errorf(
			"binary data size mismatch: got %d bytes, expected %d bytes", r.ContentLength, expectedBytes))
		return
	}

	cloud, err := pointcloud.ReadRawXYZ(r.Body, totalPoints)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "reading point data"))
		return
	}

	start := time.Now()
	planes, err := segmentation.SegmentPlanes(r.Context(), cloud, s.cfg, s.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Debugf("segmented %d points into %d planes in %s", cloud.Size(), len(planes), time.Since(start))

	segmentation.SortPlanesByDescendingInliers(planes)
	records := make([]segmentation.PlaneRecord, 0, len(planes))
	for _, plane := range planes {
		records = append(records, plane.Record())
	}
	writeJSON(w, http.StatusOK, records)
}

func positiveQueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.Errorf("missing required query parameter %q", name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.Errorf("query parameter %q must be a positive integer, got %q", name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	//nolint:errcheck
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"detail": err.Error()})
}

// RunServer serves the plane detection API on the given address until the
// context is canceled.
func RunServer(ctx context.Context, addr string, cfg segmentation.Config, logger golog.Logger) error {
	if logger == nil {
		logger = golog.Global()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              listener.Addr().String(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Handler:           NewServer(cfg, logger).Handler(),
	}
	goutils.PanicCapturingGo(func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Errorw("error shutting down", "error", err)
		}
	})
	logger.Infof("serving plane detection API at %s", fmt.Sprintf("http://%s", listener.Addr().String()))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
