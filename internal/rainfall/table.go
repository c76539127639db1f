// Package rainfall handles the tabular rainfall inputs: parsing station
// CSVs, splitting multi-date tables into per-date sub-tables, aggregating
// recorded totals per station, and gridding station points onto a reference
// raster by inverse-distance weighting.
package rainfall

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/SaugatPaudel/Nepal-Landslide-Susceptibility-Mapping/internal/domain"
)

// Schema names the columns the parser reads from a rainfall CSV. The source
// files carry more columns than these; extras are ignored.
type Schema struct {
	Date     string `yaml:"date"`
	Station  string `yaml:"station"`
	Rainfall string `yaml:"rainfall"`
	Lat      string `yaml:"lat"`
	Lon      string `yaml:"lon"`
}

// ForecastSchema matches the forecast CSV shipped by the meteorology
// collaborator: municipality_id, rainfall, forecast_date, lat, lon.
func ForecastSchema() Schema {
	return Schema{Date: "forecast_date", Station: "municipality_id", Rainfall: "rainfall", Lat: "lat", Lon: "lon"}
}

// RecordedSchema matches the recorded-rainfall CSV: municipality_id,
// record_date, rainfall, lat, lon.
func RecordedSchema() Schema {
	return Schema{Date: "record_date", Station: "municipality_id", Rainfall: "rainfall", Lat: "lat", Lon: "lon"}
}

// Record is one station measurement for one date. RawDate keeps the date
// cell exactly as it appeared in the CSV: dates are parsed per day at the
// point of use, so one malformed date fails only its own day instead of the
// whole table.
type Record struct {
	Station  string
	RawDate  string
	Lat      float64
	Lon      float64
	Rainfall float64
}

// Table is an in-memory rainfall table in source row order.
type Table struct {
	Records []Record
}

// dateLayouts are the accepted date formats, tried in order.
var dateLayouts = []string{"2006-01-02", "2006/01/02", "02-01-2006", time.RFC3339}

// ParseDate parses a raw date cell. Returns a DataFormatError naming the
// offending value when no layout matches.
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, domain.DataFormatf("unparsable date %q", raw)
}

// ParseTable reads a rainfall CSV. The header must contain every column the
// schema names; a missing column is a DataFormatError. Numeric cells that do
// not parse fail the whole table, but date cells are deliberately kept raw
// (see Record.RawDate).
func ParseTable(r io.Reader, schema Schema) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &domain.DataFormatError{Msg: "reading CSV header", Err: err}
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	cols := map[string]string{
		"date":     schema.Date,
		"station":  schema.Station,
		"rainfall": schema.Rainfall,
		"lat":      schema.Lat,
		"lon":      schema.Lon,
	}
	pos := make(map[string]int, len(cols))
	for role, name := range cols {
		i, ok := idx[name]
		if !ok {
			return nil, domain.DataFormatf("missing required %s column %q", role, name)
		}
		pos[role] = i
	}

	var t Table
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.DataFormatError{Msg: fmt.Sprintf("reading CSV line %d", line), Err: err}
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row[pos["lat"]]), 64)
		if err != nil {
			return nil, &domain.DataFormatError{Msg: fmt.Sprintf("line %d: latitude", line), Err: err}
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row[pos["lon"]]), 64)
		if err != nil {
			return nil, &domain.DataFormatError{Msg: fmt.Sprintf("line %d: longitude", line), Err: err}
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(row[pos["rainfall"]]), 64)
		if err != nil {
			return nil, &domain.DataFormatError{Msg: fmt.Sprintf("line %d: rainfall", line), Err: err}
		}
		t.Records = append(t.Records, Record{
			Station:  strings.TrimSpace(row[pos["station"]]),
			RawDate:  strings.TrimSpace(row[pos["date"]]),
			Lat:      lat,
			Lon:      lon,
			Rainfall: amount,
		})
	}
	if len(t.Records) == 0 {
		return nil, domain.DataFormatf("table has no data rows")
	}
	return &t, nil
}

// WriteCSV writes the table with the schema's column names, one artifact per
// per-date sub-table, so downstream rasterization can be retried per day
// without rereading the source table.
func (t *Table) WriteCSV(w io.Writer, schema Schema) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{schema.Station, schema.Date, schema.Lat, schema.Lon, schema.Rainfall}); err != nil {
		return err
	}
	for _, rec := range t.Records {
		row := []string{
			rec.Station,
			rec.RawDate,
			strconv.FormatFloat(rec.Lat, 'f', -1, 64),
			strconv.FormatFloat(rec.Lon, 'f', -1, 64),
			strconv.FormatFloat(rec.Rainfall, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
