package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/tmerge/internal/interval"
)

// Point is an ordinal position on an era's time axis.
type Point int64

const (
	// NegInfinity is the unbounded past.
	NegInfinity Point = math.MinInt64
	// PosInfinity is the unbounded future.
	PosInfinity Point = math.MaxInt64
)

// Period is a half-open validity range [From, Until) on an era's axis.
type Period = interval.Interval[Point]

// NewPeriod returns [from, until) or interval.ErrEmpty.
func NewPeriod(from, until Point) (Period, error) {
	return interval.New(from, until)
}

// Domain is the value domain of an era's boundary columns.
type Domain string

const (
	// DomainInteger uses plain integers as points.
	DomainInteger Domain = "integer"
	// DomainDate counts days since 1970-01-01.
	DomainDate Domain = "date"
	// DomainTimestamp counts microseconds since the Unix epoch, UTC.
	DomainTimestamp Domain = "timestamp"
)

// ValidDomains lists the accepted era domains.
var ValidDomains = map[Domain]bool{
	DomainInteger:   true,
	DomainDate:      true,
	DomainTimestamp: true,
}

const dateLayout = "2006-01-02"

// Parse converts a textual boundary into a Point.
func (d Domain) Parse(s string) (Point, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "infinity", "+infinity":
		return PosInfinity, nil
	case "-infinity":
		return NegInfinity, nil
	}

	switch d {
	case DomainInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer point %q: %w", s, err)
		}
		return Point(n), nil
	case DomainDate:
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return 0, fmt.Errorf("invalid date point %q: %w", s, err)
		}
		return Point(t.Unix() / 86400), nil
	case DomainTimestamp:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp point %q: %w", s, err)
		}
		return Point(t.UnixMicro()), nil
	default:
		return 0, fmt.Errorf("unknown era domain %q", d)
	}
}

// MustParse is like Parse but panics on error.
// Use only in tests.
func (d Domain) MustParse(s string) Point {
	p, err := d.Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Format renders p in the domain's textual form.
func (d Domain) Format(p Point) string {
	switch p {
	case PosInfinity:
		return "infinity"
	case NegInfinity:
		return "-infinity"
	}
	switch d {
	case DomainDate:
		return time.Unix(int64(p)*86400, 0).UTC().Format(dateLayout)
	case DomainTimestamp:
		return time.UnixMicro(int64(p)).UTC().Format(time.RFC3339Nano)
	default:
		return strconv.FormatInt(int64(p), 10)
	}
}

// FormatPeriod renders a period as "[from,until)".
func (d Domain) FormatPeriod(p Period) string {
	return "[" + d.Format(p.From) + "," + d.Format(p.Until) + ")"
}

// Prev returns the last point inside a period ending at until, i.e. the
// inclusive valid_to bound. Infinity stays infinity.
func Prev(until Point) Point {
	if until == PosInfinity || until == NegInfinity {
		return until
	}
	return until - 1
}
