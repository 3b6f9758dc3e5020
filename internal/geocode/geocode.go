// Package geocode turns place names into coordinates. Lookups are best
// effort: a name that cannot be resolved simply has no point.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// ErrNoMatch is returned by a Lookuper when the name has no result.
var ErrNoMatch = errors.New("no geocoding match")

// Point is a resolved location.
type Point struct {
	Entity string  `json:"entity"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

// Lookuper resolves one place name.
type Lookuper interface {
	Lookup(ctx context.Context, name string) (Point, error)
}

// StatusError reports a non-200 response from a geocoding endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("geocoder returned HTTP %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("geocoder returned HTTP %d", e.Code)
}

// Key normalises a place name for caching: NFKC, case folded, inner
// whitespace collapsed.
func Key(name string) string {
	s := norm.NFKC.String(strings.TrimSpace(name))
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Chain tries each Lookuper in order and returns the first match. The last
// non-match error is returned when none match.
type Chain []Lookuper

func (c Chain) Lookup(ctx context.Context, name string) (Point, error) {
	err := ErrNoMatch
	for _, l := range c {
		if l == nil {
			continue
		}
		p, e := l.Lookup(ctx, name)
		if e == nil {
			return p, nil
		}
		err = e
		if ctx.Err() != nil {
			break
		}
	}
	return Point{}, err
}
