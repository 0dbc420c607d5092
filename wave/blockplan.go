package wave

import "fmt"

// Block is one contiguous range of sample indices transferred in a single
// raw read. Start and Stop are 1-based and inclusive, matching the
// ":wav:star" / ":wav:stop" command semantics.
type Block struct {
	Start int
	Stop  int
}

// Len returns the number of samples the block covers.
func (b Block) Len() int {
	return b.Stop - b.Start + 1
}

// Plan partitions [1, points] into ordered blocks of at most maxBlock
// samples. The ranges are contiguous with no gaps or overlaps and their
// sizes sum to points. A zero-length tail is never emitted, and points == 0
// yields no blocks at all.
func Plan(points, maxBlock int) ([]Block, error) {
	if maxBlock <= 0 {
		return nil, fmt.Errorf("wave: block size must be positive, got %d", maxBlock)
	}
	if points < 0 {
		return nil, fmt.Errorf("wave: point count must be non-negative, got %d", points)
	}

	var blocks []Block
	for start := 1; start <= points; start += maxBlock {
		stop := start + maxBlock - 1
		if stop > points {
			stop = points
		}
		blocks = append(blocks, Block{Start: start, Stop: stop})
	}
	return blocks, nil
}
