package pipeline

import (
	"context"

	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/geocode"
	"github.com/KaramelBytes/minedash/internal/sites"
	"github.com/KaramelBytes/minedash/internal/tidy"
)

// Marker is one located point for the map surfaces.
type Marker struct {
	Entity   string  `json:"entity"`
	Category string  `json:"category,omitempty"`
	Year     int     `json:"year,omitempty"`
	Value    float64 `json:"value"`
	Label    string  `json:"label,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// Resolver batch-resolves place names. Names it cannot resolve are absent
// from the result.
type Resolver interface {
	ResolveAll(ctx context.Context, names []string) map[string]geocode.Point
}

// Markers places the view's present records for year on the map. Undated
// layouts ignore year. Entities the resolver cannot place are left out.
func Markers(ctx context.Context, v *View, year int, r Resolver) []Marker {
	var recs []tidy.Record
	for _, rec := range v.Records {
		if rec.Missing {
			continue
		}
		if v.Layout != dataset.LayoutSingle && rec.Year != year {
			continue
		}
		recs = append(recs, rec)
	}
	out := []Marker{}
	if len(recs) == 0 {
		return out
	}
	points := r.ResolveAll(ctx, tidy.Entities(recs))
	for _, rec := range recs {
		p, ok := points[rec.Entity]
		if !ok {
			continue
		}
		out = append(out, Marker{
			Entity:   rec.Entity,
			Category: rec.Category,
			Year:     rec.Year,
			Value:    rec.Value,
			Label:    rec.Code,
			Lat:      p.Lat,
			Lon:      p.Lon,
		})
	}
	return out
}

// SiteMarkers converts sites, which carry their own coordinates.
func SiteMarkers(in []sites.Site) []Marker {
	out := make([]Marker, 0, len(in))
	for _, s := range in {
		label := s.DepositType
		if s.Detail != "" {
			if label != "" {
				label += ", "
			}
			label += s.Detail
		}
		out = append(out, Marker{
			Entity:   s.Name,
			Category: s.Mineral,
			Label:    label,
			Lat:      s.Lat,
			Lon:      s.Lon,
		})
	}
	return out
}
