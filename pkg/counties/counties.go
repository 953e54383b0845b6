package counties

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/diwise/county-lookup/pkg/geo"
	"github.com/diwise/county-lookup/pkg/geojson"
)

var ErrNoName = errors.New("county has no name")

// County is a named polygon describing the boundary of a single
// administrative region.
type County struct {
	name    string
	polygon geo.Polygon
}

func NewCounty(name string, polygon geo.Polygon) (County, error) {
	if name == "" {
		return County{}, ErrNoName
	}

	return County{name: name, polygon: polygon}, nil
}

func (c County) Name() string {
	return c.name
}

// Lookup returns the county name if p lies within the county boundary.
// Absence of containment is a normal outcome, not an error.
func (c County) Lookup(p geo.Point) (string, bool) {
	if c.polygon.Contains(p) {
		return c.name, true
	}

	return "", false
}

// LookupRecord behaves like Lookup on the record's position and echoes
// the record's testid so that callers can correlate output to input.
func (c County) LookupRecord(r Record) (RecordMatch, bool) {
	if c.polygon.Contains(r.Position()) {
		return RecordMatch{TestID: r.TestID, Name: c.name}, true
	}

	return RecordMatch{}, false
}

type RecordMatch struct {
	TestID int64
	Name   string
}

// CountyIndex is an ordered, immutable collection of counties. The order
// is significant: when county polygons overlap, the first one listed wins.
// The index is never mutated after construction, so any number of
// goroutines may query it concurrently without locks.
type CountyIndex struct {
	counties []County
}

func NewIndex(counties ...County) *CountyIndex {
	idx := &CountyIndex{counties: make([]County, len(counties))}
	copy(idx.counties, counties)

	return idx
}

// NewCountyIndex builds an index from a decoded feature collection. The
// county name is read from the given feature property, coordinates are
// reordered from (lon, lat) source order to the internal (lat, lon)
// convention, and rings past the first are treated as holes. Any invalid
// feature fails the whole construction so that a partial index is never
// published.
func NewCountyIndex(fc *geojson.FeatureCollection, nameProperty string) (*CountyIndex, error) {
	counties, err := FromFeatureCollection(fc, nameProperty)
	if err != nil {
		return nil, err
	}

	return NewIndex(counties...), nil
}

func FromFeatureCollection(fc *geojson.FeatureCollection, nameProperty string) ([]County, error) {
	counties := make([]County, 0, len(fc.Features))

	for i, f := range fc.Features {
		rings := make([]geo.Ring, 0, len(f.Geometry.Coordinates))

		for _, coords := range f.Geometry.Coordinates {
			points := make([]geo.Point, 0, len(coords))
			for _, position := range coords {
				if len(position) < 2 {
					return nil, fmt.Errorf("feature %d: position has fewer than two coordinates", i)
				}
				points = append(points, geo.NewPoint(position[1], position[0]))
			}

			ring, err := geo.NewRing(points)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}

			rings = append(rings, ring)
		}

		if len(rings) == 0 {
			return nil, fmt.Errorf("feature %d: no rings", i)
		}

		polygon, err := geo.NewPolygon(rings[0], rings[1:]...)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		county, err := NewCounty(f.StringProperty(nameProperty), polygon)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		counties = append(counties, county)
	}

	return counties, nil
}

func (x *CountyIndex) Size() int {
	return len(x.counties)
}

// Lookup scans the counties in construction order and returns the name of
// the first one that contains p. Later counties are not evaluated once a
// match is found.
func (x *CountyIndex) Lookup(p geo.Point) (string, bool) {
	for _, c := range x.counties {
		if name, ok := c.Lookup(p); ok {
			return name, true
		}
	}

	return "", false
}

func (x *CountyIndex) LookupRecord(r Record) (RecordMatch, bool) {
	for _, c := range x.counties {
		if match, ok := c.LookupRecord(r); ok {
			return match, true
		}
	}

	return RecordMatch{}, false
}

type Result struct {
	Name  string `json:"county,omitempty"`
	Found bool   `json:"found"`
}

type RecordResult struct {
	TestID int64  `json:"testid"`
	Name   string `json:"county,omitempty"`
	Found  bool   `json:"found"`
}

// LookupAll resolves every point in parallel and returns one result per
// input, where result i corresponds to point i regardless of the order in
// which the underlying work ran. All points are always resolved; a point
// outside every county simply yields an unfound result.
func (x *CountyIndex) LookupAll(points []geo.Point) []Result {
	results := make([]Result, len(points))

	forEachIndex(len(points), func(i int) {
		if name, ok := x.Lookup(points[i]); ok {
			results[i] = Result{Name: name, Found: true}
		}
	})

	return results
}

// LookupAllRecords is the record counterpart of LookupAll.
func (x *CountyIndex) LookupAllRecords(records []Record) []RecordResult {
	results := make([]RecordResult, len(records))

	forEachIndex(len(records), func(i int) {
		results[i].TestID = records[i].TestID
		if match, ok := x.LookupRecord(records[i]); ok {
			results[i].Name = match.Name
			results[i].Found = true
		}
	})

	return results
}

// forEachIndex fans the index range [0, n) out over a fixed pool of
// workers sized to the available parallelism. Each worker claims indices
// from a shared atomic counter and writes into its own result slot, so no
// locks are needed.
func forEachIndex(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup

	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()

			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				fn(i)
			}
		}()
	}

	wg.Wait()
}
