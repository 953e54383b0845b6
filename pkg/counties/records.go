package counties

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/diwise/county-lookup/pkg/geo"
)

// Record is a single row from an upstream record source.
type Record struct {
	Index     int
	TestID    int64
	Longitude float64
	Latitude  float64
}

// Position projects the record onto the internal (lat, lon) axis order.
// Record sources deliver (longitude, latitude); this is the single place
// where that order is swapped for records.
func (r Record) Position() geo.Point {
	return geo.NewPoint(r.Latitude, r.Longitude)
}

// ReadRecords decodes csv rows of index, testid, longitude and latitude.
// The first row is a header and is skipped. A row that fails to decode
// does not abort the remaining rows; all decodable records are returned
// together with an error that reports each failed row by number.
func ReadRecords(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("unable to read csv header: %w", err)
	}

	records := []Record{}
	rowErrors := []error{}

	for row := 2; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, fmt.Errorf("row %d: %w", row, err))
			continue
		}

		rec, err := decodeRecord(fields)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Errorf("row %d: %w", row, err))
			continue
		}

		records = append(records, rec)
	}

	return records, errors.Join(rowErrors...)
}

func decodeRecord(fields []string) (Record, error) {
	if len(fields) != 4 {
		return Record{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("invalid index %q", fields[0])
	}

	testID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid testid %q", fields[1])
	}

	lon, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid longitude %q", fields[2])
	}

	lat, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return Record{}, fmt.Errorf("invalid latitude %q", fields[3])
	}

	rec := Record{Index: index, TestID: testID, Longitude: lon, Latitude: lat}

	if !rec.Position().IsFinite() {
		return Record{}, fmt.Errorf("non finite coordinates (%s, %s)", fields[2], fields[3])
	}

	return rec, nil
}
