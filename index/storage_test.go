package index

import (
	"testing"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	db, err := OpenDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tm(secs int) time.Time {
	return time.Unix(int64(secs), 0).UTC()
}

func sample(machineID, variable string, secs int, summary float64) reading.VariableSample {
	return reading.VariableSample{
		MachineID:  machineID,
		Time:       tm(secs),
		Variable:   variable,
		Summary:    summary,
		LowerLimit: -0.2,
		UpperLimit: 0.2,
		Unit:       "mm",
	}
}

func TestSeriesKeyRoundtrip(t *testing.T) {
	key := encodeSeriesKey("S-223", "gap_width", tm(50))
	machineID, variable, tstamp, err := decodeSeriesKey(key)
	require.NoError(t, err)
	assert.Equal(t, "S-223", machineID)
	assert.Equal(t, "gap_width", variable)
	assert.Equal(t, tm(50), tstamp)
}

func TestReadRangeChronological(t *testing.T) {
	db := testDB(t)
	err := db.StoreSamples([]reading.VariableSample{
		sample("S-223", "gap_width", 30, 0.1),
		sample("S-223", "gap_width", 10, 0.2),
		sample("S-223", "gap_width", 20, 0.3),
	})
	require.NoError(t, err)
	series, err := db.ReadRange("S-223", "gap_width", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, tm(10), series[0].Time)
	assert.Equal(t, tm(20), series[1].Time)
	assert.Equal(t, tm(30), series[2].Time)
}

func TestReadRangeBounds(t *testing.T) {
	db := testDB(t)
	err := db.StoreSamples([]reading.VariableSample{
		sample("S-223", "gap_width", 10, 0.1),
		sample("S-223", "gap_width", 20, 0.2),
		sample("S-223", "gap_width", 30, 0.3),
	})
	require.NoError(t, err)
	series, err := db.ReadRange("S-223", "gap_width", tm(15), tm(30))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, tm(20), series[0].Time)
	assert.Equal(t, tm(30), series[1].Time)
}

func TestReadRangeDoesNotLeakAcrossSeries(t *testing.T) {
	db := testDB(t)
	err := db.StoreSamples([]reading.VariableSample{
		sample("S-223", "gap_width", 10, 0.1),
		sample("S-223", "edge_height", 10, 0.2),
		sample("S-268", "gap_width", 10, 0.3),
	})
	require.NoError(t, err)
	series, err := db.ReadRange("S-223", "gap_width", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 0.1, series[0].Summary)
}

func TestStoreSamplesReplacesSameKey(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.StoreSamples([]reading.VariableSample{
		sample("S-223", "gap_width", 10, 0.1),
	}))
	require.NoError(t, db.StoreSamples([]reading.VariableSample{
		sample("S-223", "gap_width", 10, 0.5),
	}))
	series, err := db.ReadRange("S-223", "gap_width", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 0.5, series[0].Summary)
}

func TestVariables(t *testing.T) {
	db := testDB(t)
	err := db.StoreSamples([]reading.VariableSample{
		sample("S-223", "gap_width", 10, 0.1),
		sample("S-223", "gap_width", 20, 0.1),
		sample("S-223", "edge_height", 10, 0.2),
	})
	require.NoError(t, err)
	vars, err := db.Variables("S-223")
	require.NoError(t, err)
	assert.Equal(t, []string{"edge_height", "gap_width"}, vars)
}

func TestTimestampRoundtrip(t *testing.T) {
	db := testDB(t)
	mark := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	require.NoError(t, db.StoreTimestamp("lastImport", mark))
	loaded, err := db.ReadTimestamp("lastImport")
	require.NoError(t, err)
	assert.Equal(t, mark, loaded)
}
