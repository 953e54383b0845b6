package counties

import (
	"bytes"
	"fmt"
	"math"
	"testing"

	"github.com/diwise/county-lookup/pkg/geo"
	"github.com/diwise/county-lookup/pkg/geojson"
	"github.com/matryer/is"
)

func newSquareCounty(t *testing.T, name string, lat0, lon0, size float64) County {
	t.Helper()

	ring, err := geo.NewRing([]geo.Point{
		geo.NewPoint(lat0, lon0),
		geo.NewPoint(lat0, lon0+size),
		geo.NewPoint(lat0+size, lon0+size),
		geo.NewPoint(lat0+size, lon0),
	})
	if err != nil {
		t.Fatal(err)
	}

	pg, err := geo.NewPolygon(ring)
	if err != nil {
		t.Fatal(err)
	}

	c, err := NewCounty(name, pg)
	if err != nil {
		t.Fatal(err)
	}

	return c
}

func TestCountyRequiresAName(t *testing.T) {
	is := is.New(t)

	_, err := NewCounty("", geo.Polygon{})
	is.Equal(err, ErrNoName)
}

func TestLookupReturnsFirstMatch(t *testing.T) {
	is := is.New(t)

	// a and b overlap completely; a is listed first and must win
	a := newSquareCounty(t, "Viken", 0, 0, 10)
	b := newSquareCounty(t, "Innlandet", 0, 0, 10)
	idx := NewIndex(a, b)

	name, ok := idx.Lookup(geo.NewPoint(5, 5))
	is.True(ok)
	is.Equal(name, "Viken")
}

func TestLookupReturnsNoMatchOutsideEveryCounty(t *testing.T) {
	is := is.New(t)

	idx := NewIndex(newSquareCounty(t, "Viken", 0, 0, 10))

	_, ok := idx.Lookup(geo.NewPoint(100, 100))
	is.True(!ok)
}

func TestLookupOnEmptyIndex(t *testing.T) {
	is := is.New(t)

	_, ok := NewIndex().Lookup(geo.NewPoint(5, 5))
	is.True(!ok)
}

func TestLookupAllMatchesSequentialLookups(t *testing.T) {
	is := is.New(t)

	idx := NewIndex(
		newSquareCounty(t, "Viken", 0, 0, 10),
		newSquareCounty(t, "Innlandet", 0, 10, 10),
		newSquareCounty(t, "Agder", 10, 0, 10),
	)

	points := make([]geo.Point, 1000)
	for i := range points {
		points[i] = geo.NewPoint(float64(i%25), float64((i*7)%25))
	}

	results := idx.LookupAll(points)
	is.Equal(len(results), len(points))

	for i, p := range points {
		name, ok := idx.Lookup(p)
		is.Equal(results[i].Found, ok)
		is.Equal(results[i].Name, name)
	}
}

func TestLookupAllRecordsEchoesTestID(t *testing.T) {
	is := is.New(t)

	idx := NewIndex(newSquareCounty(t, "Viken", 59, 10, 2))

	records := []Record{
		{Index: 0, TestID: 2200000001, Longitude: 11.0531, Latitude: 59.2761},
		{Index: 1, TestID: 2200000002, Longitude: 150, Latitude: -30},
	}

	results := idx.LookupAllRecords(records)
	is.Equal(len(results), 2)

	is.Equal(results[0].TestID, int64(2200000001))
	is.True(results[0].Found)
	is.Equal(results[0].Name, "Viken")

	is.Equal(results[1].TestID, int64(2200000002))
	is.True(!results[1].Found)
}

func TestLookupAllHandlesNonFinitePoints(t *testing.T) {
	is := is.New(t)

	idx := NewIndex(newSquareCounty(t, "Viken", 0, 0, 10))

	results := idx.LookupAll([]geo.Point{
		geo.NewPoint(5, 5),
		geo.NewPoint(math.NaN(), 5),
		geo.NewPoint(5, 5),
	})

	is.Equal(len(results), 3)
	is.True(results[0].Found)
	is.True(!results[1].Found) // the bad point fails alone
	is.True(results[2].Found)  // its siblings still resolve
}

func TestLookupAllOnLargeBatchPreservesOrder(t *testing.T) {
	is := is.New(t)

	counties := make([]County, 0, 50)
	for i := 0; i < 50; i++ {
		counties = append(counties, newSquareCounty(t, fmt.Sprintf("county-%d", i), float64(i*10), 0, 10))
	}
	idx := NewIndex(counties...)

	points := make([]geo.Point, 5000)
	for i := range points {
		points[i] = geo.NewPoint(float64((i*13)%500)+0.5, 0.5)
	}

	results := idx.LookupAll(points)
	is.Equal(len(results), len(points))

	for i, p := range points {
		expected := fmt.Sprintf("county-%d", int(p.Lat)/10)
		is.True(results[i].Found)
		is.Equal(results[i].Name, expected)
	}
}

func TestNewCountyIndexFromFeatureCollection(t *testing.T) {
	is := is.New(t)

	fc, err := geojson.ReadFeatureCollection(bytes.NewBufferString(featureCollectionJSON))
	is.NoErr(err)

	idx, err := NewCountyIndex(fc, "navn")
	is.NoErr(err)
	is.Equal(idx.Size(), 1)

	// source coordinates are (lon, lat) and must have been reordered
	name, ok := idx.Lookup(geo.NewPoint(60.524035, 5.552604))
	is.True(ok)
	is.Equal(name, "Osterøy")
}

func TestNewCountyIndexTreatsExtraRingsAsHoles(t *testing.T) {
	is := is.New(t)

	body := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"navn":"Hole"},"geometry":{"type":"Polygon","coordinates":[
			[[0,0],[10,0],[10,10],[0,10]],
			[[4,4],[6,4],[6,6],[4,6]]
		]}}
	]}`

	fc, err := geojson.ReadFeatureCollection(bytes.NewBufferString(body))
	is.NoErr(err)

	idx, err := NewCountyIndex(fc, "navn")
	is.NoErr(err)

	_, ok := idx.Lookup(geo.NewPoint(5, 5))
	is.True(!ok) // excluded by the hole

	name, ok := idx.Lookup(geo.NewPoint(2, 2))
	is.True(ok)
	is.Equal(name, "Hole")
}

func TestNewCountyIndexFailsOnMissingName(t *testing.T) {
	is := is.New(t)

	body := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[
			[[0,0],[10,0],[10,10],[0,10]]
		]}}
	]}`

	fc, err := geojson.ReadFeatureCollection(bytes.NewBufferString(body))
	is.NoErr(err)

	_, err = NewCountyIndex(fc, "navn")
	is.True(err != nil)
}

func TestNewCountyIndexFailsOnTooFewPoints(t *testing.T) {
	is := is.New(t)

	body := `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"navn":"Broken"},"geometry":{"type":"Polygon","coordinates":[
			[[0,0],[10,0]]
		]}}
	]}`

	fc, err := geojson.ReadFeatureCollection(bytes.NewBufferString(body))
	is.NoErr(err)

	_, err = NewCountyIndex(fc, "navn")
	is.True(err != nil)
}

const featureCollectionJSON string = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": { "navn": "Osterøy" },
			"geometry": {
				"type": "Polygon",
				"coordinates": [
					[
						[5.40, 60.40],
						[5.40, 60.65],
						[5.70, 60.65],
						[5.70, 60.40]
					]
				]
			}
		}
	]
}`
