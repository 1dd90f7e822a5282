package streamutil

// ProcessInSegments partitions data into fixed-size segments (the tail
// zero-padded if it doesn't evenly divide), calls fn on each, and writes
// results back in place, guaranteeing the returned slice is exactly
// len(data) long (spec §4.4's processInSegments). A padded working copy is
// allocated only when len(data) is not a multiple of segSize. No package in
// this module calls it outside its own tests.
func ProcessInSegments(data []float32, segSize int, fn func(seg []float32)) []float32 {
	if segSize <= 0 || len(data) == 0 {
		return data
	}

	n := len(data)
	segCount := (n + segSize - 1) / segSize
	padded := n
	if r := n % segSize; r != 0 {
		padded = n + (segSize - r)
	}

	work := data
	if padded != n {
		work = make([]float32, padded)
		copy(work, data)
	}

	for i := 0; i < segCount; i++ {
		start := i * segSize
		end := start + segSize
		fn(work[start:end])
	}

	if padded != n {
		copy(data, work[:n])
		return data
	}
	return work
}
