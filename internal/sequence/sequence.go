// Package sequence formats human-readable identifiers from per-(kind, year)
// counters allocated inside the creating unit of work.
package sequence

import (
	"context"
	"fmt"
	"time"

	dErrors "evidex/pkg/domain-errors"
)

// Kind names a numbering series.
type Kind string

const (
	KindEvidence   Kind = "EVD"
	KindHold       Kind = "HOLD"
	KindProduction Kind = "PROD"
	KindPrivilege  Kind = "PRIV"
)

var widths = map[Kind]int{
	KindEvidence:   5,
	KindHold:       3,
	KindProduction: 3,
	KindPrivilege:  4,
}

// Allocator hands out the next value of a series. Implementations must be
// collision-free for concurrent callers.
type Allocator interface {
	Next(ctx context.Context, kind Kind, year int) (int64, error)
}

// Capacity is the largest value a series can issue in one year. Numbers stay
// fixed width so listings ordered by number are ordered by creation.
func Capacity(kind Kind) int64 {
	c := int64(1)
	for range widths[kind] {
		c *= 10
	}
	return c - 1
}

// Format renders e.g. EVD-2024-00042.
func Format(kind Kind, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%0*d", kind, year, widths[kind], n)
}

// Allocate draws the next number of kind for the year of now and formats it.
// An exhausted series is a conflict; the caller's unit of work rolls the
// counter back.
func Allocate(ctx context.Context, a Allocator, kind Kind, now time.Time) (string, error) {
	year := now.UTC().Year()
	n, err := a.Next(ctx, kind, year)
	if err != nil {
		return "", fmt.Errorf("allocate %s number: %w", kind, err)
	}
	if n > Capacity(kind) {
		return "", dErrors.Newf(dErrors.CodeConflict, "%s numbers for %d are exhausted", kind, year)
	}
	return Format(kind, year, n), nil
}
