package constraint

import (
	"fmt"
	"strconv"
	"strings"
)

// Unbounded marks a Range without an upper limit.
const Unbounded = -1

// Range is an inclusive occurrence range for a template variable.
type Range struct {
	Min int
	Max int // Unbounded for no limit
}

// One is the range of a plain variable.
var One = Range{Min: 1, Max: 1}

// IsOne reports whether r is exactly one occurrence.
func (r Range) IsOne() bool { return r == One }

// Allows reports whether n occurrences fall inside r.
func (r Range) Allows(n int) bool {
	return n >= r.Min && (r.Max == Unbounded || n <= r.Max)
}

func (r Range) String() string {
	switch {
	case r.Max == Unbounded:
		return fmt.Sprintf("%d..", r.Min)
	case r.Min == r.Max:
		return strconv.Itoa(r.Min)
	default:
		return fmt.Sprintf("%d..%d", r.Min, r.Max)
	}
}

// ParseCount parses "", "n", "n..m" or "n..". The empty string means exactly
// one occurrence.
func ParseCount(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return One, nil
	}
	lo, hi, isRange := strings.Cut(s, "..")
	lower, err := parseBound(lo)
	if err != nil {
		return Range{}, fmt.Errorf("invalid count %q: %w", s, err)
	}
	if !isRange {
		return Range{Min: lower, Max: lower}, nil
	}
	if strings.TrimSpace(hi) == "" {
		return Range{Min: lower, Max: Unbounded}, nil
	}
	upper, err := parseBound(hi)
	if err != nil {
		return Range{}, fmt.Errorf("invalid count %q: %w", s, err)
	}
	if upper < lower {
		return Range{}, fmt.Errorf("invalid count %q: upper bound below lower bound", s)
	}
	return Range{Min: lower, Max: upper}, nil
}

func parseBound(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bound %q is not a number", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("bound %d is negative", n)
	}
	return n, nil
}
