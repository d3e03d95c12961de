// Package utils contains small helpers shared across the segmentation
// pipeline.
package utils

import (
	"math"
	"runtime"
	"sync"

	goutils "go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be
// useful to set in tests where too much parallelism actually slows tests
// down in aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
}

// ParallelForEachIndex splits [0, size) into contiguous chunks, one per
// worker, and calls f for every index. Each call must write only to state
// owned by its index; f is invoked concurrently across chunks.
func ParallelForEachIndex(size int, f func(i int)) {
	if size <= 0 {
		return
	}
	workers := ParallelFactor
	if workers > size {
		workers = size
	}
	chunk := int(math.Ceil(float64(size) / float64(workers)))
	var wait sync.WaitGroup
	for from := 0; from < size; from += chunk {
		to := from + chunk
		if to > size {
			to = size
		}
		fromCopy, toCopy := from, to
		wait.Add(1)
		goutils.PanicCapturingGo(func() {
			defer wait.Done()
			for i := fromCopy; i < toCopy; i++ {
				f(i)
			}
		})
	}
	wait.Wait()
}
