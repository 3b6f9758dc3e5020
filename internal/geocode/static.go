package geocode

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Static resolves names from a fixed table. It serves as an offline
// fallback and as a test double.
type Static map[string]Point

type coord struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// NewStatic builds a table keyed by normalised name.
func NewStatic(points map[string][2]float64) Static {
	s := make(Static, len(points))
	for name, ll := range points {
		s[Key(name)] = Point{Entity: name, Lat: ll[0], Lon: ll[1]}
	}
	return s
}

// LoadStatic reads a YAML mapping of name to {lat, lon}.
func LoadStatic(path string) (Static, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coordinates: %w", err)
	}
	var raw map[string]coord
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse coordinates: %w", err)
	}
	pts := make(map[string][2]float64, len(raw))
	for name, c := range raw {
		pts[name] = [2]float64{c.Lat, c.Lon}
	}
	return NewStatic(pts), nil
}

func (s Static) Lookup(_ context.Context, name string) (Point, error) {
	p, ok := s[Key(name)]
	if !ok {
		return Point{}, ErrNoMatch
	}
	p.Entity = name
	return p, nil
}
