package eval

import "fmt"

type seedKind int

const (
	seedSingle seedKind = iota + 1
	seedList
	seedRange
)

// SeedSpec describes which seeds to run. Build one with SingleSeed, SeedList
// or SeedRange; the zero value is invalid.
type SeedSpec struct {
	kind  seedKind
	start int64
	count int
	list  []int64
}

func SingleSeed(seed int64) SeedSpec {
	return SeedSpec{kind: seedSingle, start: seed, count: 1}
}

func SeedList(seeds ...int64) SeedSpec {
	return SeedSpec{kind: seedList, list: append([]int64(nil), seeds...)}
}

func SeedRange(start int64, count int) SeedSpec {
	return SeedSpec{kind: seedRange, start: start, count: count}
}

// Expand returns the ordered seed sequence. Each position is one episode, so
// a repeated seed in an explicit list runs twice.
func (s SeedSpec) Expand() ([]int64, error) {
	switch s.kind {
	case seedSingle:
		return []int64{s.start}, nil
	case seedList:
		if len(s.list) == 0 {
			return nil, fmt.Errorf("%w: seed list is empty", ErrInvalidSeedSpec)
		}
		return append([]int64(nil), s.list...), nil
	case seedRange:
		if s.count <= 0 {
			return nil, fmt.Errorf("%w: seed count must be > 0, got %d", ErrInvalidSeedSpec, s.count)
		}
		seeds := make([]int64, s.count)
		for i := range seeds {
			seeds[i] = s.start + int64(i)
		}
		return seeds, nil
	default:
		return nil, fmt.Errorf("%w: no seeds specified", ErrInvalidSeedSpec)
	}
}

func (s SeedSpec) String() string {
	switch s.kind {
	case seedSingle:
		return fmt.Sprintf("seed=%d", s.start)
	case seedList:
		return fmt.Sprintf("seeds=%v", s.list)
	case seedRange:
		return fmt.Sprintf("seeds=%d..%d", s.start, s.start+int64(s.count)-1)
	default:
		return "seeds=<unset>"
	}
}
