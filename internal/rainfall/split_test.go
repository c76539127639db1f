package rainfall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(station, date string, rainfall float64) Record {
	return Record{Station: station, RawDate: date, Lat: 27.7, Lon: 85.3, Rainfall: rainfall}
}

func TestSplitByDate(t *testing.T) {
	tbl := &Table{Records: []Record{
		rec("27001", "2020-07-10", 10),
		rec("27002", "2020-07-10", 20),
		rec("27001", "2020-07-12", 30),
		rec("27001", "2020-07-11", 40),
	}}

	byDate, order, err := SplitByDate(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"2020-07-10", "2020-07-12", "2020-07-11"}, order)
	assert.Len(t, byDate["2020-07-10"].Records, 2)
	assert.Len(t, byDate["2020-07-12"].Records, 1)
	assert.Len(t, byDate["2020-07-11"].Records, 1)
}

func TestSplitByDate_NoValidation(t *testing.T) {
	// Gaps, reversed order, and unparsable dates all pass through; the
	// per-day processor decides what to do with each date.
	tbl := &Table{Records: []Record{
		rec("27001", "2020-07-20", 1),
		rec("27001", "2020-07-01", 2),
		rec("27001", "garbage", 3),
	}}

	byDate, order, err := SplitByDate(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-07-20", "2020-07-01", "garbage"}, order)
	assert.Len(t, byDate, 3)
}

func TestSplitByDate_Empty(t *testing.T) {
	_, _, err := SplitByDate(&Table{})
	assert.Error(t, err)
}

func TestSumByStation(t *testing.T) {
	tbl := &Table{Records: []Record{
		rec("27001", "2020-07-10", 10),
		rec("27002", "2020-07-10", 5),
		rec("27001", "2020-07-11", 15),
		rec("27002", "2020-07-11", 0),
	}}

	sum := SumByStation(tbl)
	require.Len(t, sum.Records, 2)

	assert.Equal(t, "27001", sum.Records[0].Station)
	assert.Equal(t, 25.0, sum.Records[0].Rainfall)
	assert.Equal(t, "2020-07-10", sum.Records[0].RawDate)
	assert.Equal(t, "27002", sum.Records[1].Station)
	assert.Equal(t, 5.0, sum.Records[1].Rainfall)
}
