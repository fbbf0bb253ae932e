package task

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// NewDistinctSeeds returns count pairwise-distinct non-negative seeds for
// the generations of one batch. Seeds are drawn from crypto/rand so
// concurrent batches cannot collide through a shared PRNG state.
func NewDistinctSeeds(count int) ([]int64, error) {
	if count <= 0 {
		return nil, fmt.Errorf("seed count must be positive, got %d", count)
	}

	seeds := make([]int64, 0, count)
	seen := make(map[int64]struct{}, count)
	var buf [8]byte

	for len(seeds) < count {
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("failed to read random seed: %w", err)
		}
		seed := int64(binary.BigEndian.Uint64(buf[:]) & math.MaxInt64)
		if _, dup := seen[seed]; dup {
			continue
		}
		seen[seed] = struct{}{}
		seeds = append(seeds, seed)
	}

	return seeds, nil
}
