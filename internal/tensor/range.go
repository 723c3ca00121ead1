package tensor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/gpuarray/internal/errs"
	"github.com/pkg/errors"
)

// Range selects [Start, End) along one axis. An unbounded range extends to the end of the axis.
//
// Build ranges with Span, From, To, All and Index, or parse them with ParseRanges.
type Range struct {
	start   int
	end     int
	bounded bool
}

// Span selects [start, end).
func Span(start, end int) Range { return Range{start: start, end: end, bounded: true} }

// From selects [start, axis size).
func From(start int) Range { return Range{start: start} }

// To selects [0, end).
func To(end int) Range { return Range{end: end, bounded: true} }

// All selects the whole axis.
func All() Range { return Range{} }

// Index selects the single element i. The axis is kept, with length 1.
func Index(i int) Range { return Span(i, i+1) }

// Start returns the first selected index.
func (r Range) Start() int { return r.start }

// End returns the end of the range, and false if the range is unbounded.
func (r Range) End() (int, bool) { return r.end, r.bounded }

// Len returns the number of elements selected along an axis of the given size.
// It fails with errs.ErrRangeOutOfBounds if the range starts past its end; it never clamps.
func (r Range) Len(axisSize int) (int, error) {
	end := axisSize
	if r.bounded {
		end = r.end
	}
	if r.start < 0 || r.start > end {
		return 0, errors.Wrapf(errs.ErrRangeOutOfBounds, "range %s on an axis of size %d", r, axisSize)
	}
	return end - r.start, nil
}

// String returns the range in the form accepted by ParseRanges.
func (r Range) String() string {
	switch {
	case r.bounded && r.end == r.start+1:
		return strconv.Itoa(r.start)
	case r.bounded && r.start == 0:
		return fmt.Sprintf(":%d", r.end)
	case r.bounded:
		return fmt.Sprintf("%d:%d", r.start, r.end)
	case r.start == 0:
		return ":"
	default:
		return fmt.Sprintf("%d:", r.start)
	}
}

// ParseRanges parses a comma-separated list of ranges, one per leading axis:
// "a:b" is Span(a, b), "a:" is From(a), ":b" is To(b), ":" is All() and "i" is Index(i).
// E.g. "1:3, 1, :".
func ParseRanges(text string) ([]Range, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parts := strings.Split(text, ",")
	ranges := make([]Range, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		r, err := parseRange(part)
		if err != nil {
			return nil, errors.WithMessagef(err, "parsing ranges %q", text)
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

func parseRange(text string) (Range, error) {
	parseIndex := func(s string) (int, error) {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || i < 0 {
			return 0, errors.Wrapf(errs.ErrRangeOutOfBounds, "invalid index %q", s)
		}
		return i, nil
	}
	startText, endText, isSpan := strings.Cut(text, ":")
	if !isSpan {
		i, err := parseIndex(text)
		return Index(i), err
	}
	r := All()
	var err error
	if strings.TrimSpace(startText) != "" {
		if r.start, err = parseIndex(startText); err != nil {
			return r, err
		}
	}
	if strings.TrimSpace(endText) != "" {
		if r.end, err = parseIndex(endText); err != nil {
			return r, err
		}
		r.bounded = true
	}
	return r, nil
}
