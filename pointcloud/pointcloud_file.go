package pointcloud

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// rawPointSize is the wire size of one point: three little-endian float32s.
const rawPointSize = 12

// maxPreallocPoints caps the up-front position allocation in ReadRawXYZ;
// larger clouds grow as records are actually read, so an inflated count
// claim cannot exhaust memory before the stream delivers data.
const maxPreallocPoints = 1 << 20

// ReadRawXYZ reads count points from a raw stream of little-endian float32
// x,y,z records, one point per record. A stream that ends before count
// points have been read is rejected.
func ReadRawXYZ(r io.Reader, count int) (*PointCloud, error) {
	if count < 0 {
		return nil, errors.Errorf("invalid point count %d", count)
	}
	br := bufio.NewReader(r)
	prealloc := count
	if prealloc > maxPreallocPoints {
		prealloc = maxPreallocPoints
	}
	cloud := NewWithPrealloc(prealloc)
	buf := make([]byte, rawPointSize)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, errors.Wrapf(err, "reading point %d of %d", i, count)
		}
		x := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))
		z := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))
		cloud.Add(r3.Vector{X: float64(x), Y: float64(y), Z: float64(z)})
	}
	return cloud, nil
}

// WriteRawXYZ writes the cloud positions as little-endian float32 x,y,z
// records, the inverse of ReadRawXYZ.
func WriteRawXYZ(w io.Writer, cloud *PointCloud) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, rawPointSize)
	var err error
	cloud.Iterate(func(i int, p r3.Vector) bool {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(p.X)))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
		_, err = bw.Write(buf)
		return err == nil
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}
