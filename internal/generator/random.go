package generator

import (
	"math/rand"
	"time"
)

// Source yields uniformly distributed values in [0, 1).
type Source interface {
	Float64() float64
}

func NewSeededSource(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

func newTimeSource() Source {
	return NewSeededSource(time.Now().UTC().UnixNano())
}

// scaledIndex maps a [0,1) draw onto [0, n) by floor scaling.
func scaledIndex(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	idx := int(src.Float64() * float64(n))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

func pickUniform(src Source, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[scaledIndex(src, len(values))]
}

// randomInt returns an integer in [lo, hi] inclusive. A collapsed or inverted
// range yields lo without consuming a draw.
func randomInt(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + scaledIndex(src, hi-lo+1)
}

func randomInt64(src Source, lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	span := hi - lo + 1
	idx := int64(src.Float64() * float64(span))
	if idx >= span {
		idx = span - 1
	}
	if idx < 0 {
		idx = 0
	}
	return lo + idx
}

func shuffleGroups(src Source, groups []OptionGroup) []OptionGroup {
	out := make([]OptionGroup, len(groups))
	copy(out, groups)
	for i := len(out) - 1; i > 0; i-- {
		j := scaledIndex(src, i+1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
