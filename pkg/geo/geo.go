package geo

import (
	"errors"
	"fmt"
	"math"
)

// Point is a position on a planar surface. Lat is the first axis and Lon
// the second. Sources that deliver coordinates in (lon, lat) order must
// reorder them before they reach this package.
type Point struct {
	Lat float64
	Lon float64
}

func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

// IsFinite reports whether both coordinates are real numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lon) && !math.IsInf(p.Lon, 0)
}

// Ring is an ordered boundary of at least three points. The last point
// connects back to the first, so the closing point does not need to be
// repeated.
type Ring []Point

var ErrTooFewPoints = errors.New("a ring requires at least three points")

func NewRing(points []Point) (Ring, error) {
	if len(points) < 3 {
		return nil, fmt.Errorf("%w (got %d)", ErrTooFewPoints, len(points))
	}

	r := make(Ring, len(points))
	copy(r, points)

	return r, nil
}

// contains counts the crossings of a ray that extends from p towards
// increasing Lon. An edge is crossed when exactly one of its endpoints is
// strictly above p on the Lat axis and the interpolated intersection lies
// strictly beyond p on the Lon axis. An odd count means the point is
// inside. The half-open endpoint rule gives points that lie exactly on an
// edge or vertex a fixed result that does not depend on winding direction.
func (r Ring) contains(p Point) bool {
	inside := false

	for i, j := 0, len(r)-1; i < len(r); j, i = i, i+1 {
		a, b := r[j], r[i]

		if (a.Lat > p.Lat) == (b.Lat > p.Lat) {
			continue
		}

		crossing := a.Lon + (p.Lat-a.Lat)/(b.Lat-a.Lat)*(b.Lon-a.Lon)
		if p.Lon < crossing {
			inside = !inside
		}
	}

	return inside
}

// Polygon is an exterior ring and zero or more hole rings. Polygons are
// immutable once constructed, which is what allows them to be shared by
// concurrent lookups without synchronization.
type Polygon struct {
	exterior Ring
	holes    []Ring
}

func NewPolygon(exterior Ring, holes ...Ring) (Polygon, error) {
	if len(exterior) < 3 {
		return Polygon{}, fmt.Errorf("exterior: %w (got %d)", ErrTooFewPoints, len(exterior))
	}

	pg := Polygon{exterior: exterior}

	for i, h := range holes {
		if len(h) < 3 {
			return Polygon{}, fmt.Errorf("hole %d: %w (got %d)", i, ErrTooFewPoints, len(h))
		}
		pg.holes = append(pg.holes, h)
	}

	return pg, nil
}

func (pg Polygon) Exterior() Ring {
	return pg.exterior
}

func (pg Polygon) Holes() []Ring {
	return pg.holes
}

// Contains reports whether p lies within the exterior ring and outside
// every hole. The result for points exactly on a boundary follows the
// half-open crossing rule described on Ring.contains and is stable across
// repeated calls.
func (pg Polygon) Contains(p Point) bool {
	if !pg.exterior.contains(p) {
		return false
	}

	for _, h := range pg.holes {
		if h.contains(p) {
			return false
		}
	}

	return true
}
