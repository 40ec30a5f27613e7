// Copyright 2025 Omkar Tanaji Patil
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *Database {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "testing.sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	return db
}

func tm(secs int) time.Time {
	return time.Unix(int64(secs), 0).UTC()
}

func testResult(machineID, variable string, secs int, anomalous bool) ResultRecord {
	return ResultRecord{
		MachineID:  machineID,
		Variable:   variable,
		Time:       tm(secs),
		Summary:    2.9,
		LowerLimit: -0.2,
		UpperLimit: 0.2,
		Anomalous:  anomalous,
		Severity:   "critical",
		Reason:     "summary above upper tolerance limit",
		BatchID:    "batch-1",
	}
}

func TestInitIsIdempotent(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "testing.sqlite"))
	require.NoError(t, err)
	assert.NoError(t, db.Init())
	assert.NoError(t, db.Init())
}

func TestStatusEventsKeepStoredOrder(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.StartTx())
	events := []status.Event{
		{MachineID: "S-268", Code: 200, Time: tm(0)},
		{MachineID: "S-268", Code: 300, Time: tm(100)},
		{MachineID: "S-223", Code: 200, Time: tm(50)},
	}
	for _, evt := range events {
		require.NoError(t, db.AddStatusEvent(evt))
	}
	require.NoError(t, db.CommitTx())

	loaded, err := db.GetStatusEvents()
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	// grouped by machine, stored order within a machine
	assert.Equal(t, "S-223", loaded[0].MachineID)
	assert.Equal(t, tm(0), loaded[1].Time)
	assert.Equal(t, tm(100), loaded[2].Time)
}

func TestRawReadingRoundtrip(t *testing.T) {
	db := testDB(t)
	rec := reading.Raw{
		DeviceName:   "de512stmp268",
		Time:         tm(50),
		Variable:     "gap_width",
		LowerLimit:   -0.2,
		UpperLimit:   0.2,
		NominalValue: 0.0,
		Unit:         "mm",
		Cavity:       "C2",
		PartNumber:   "P-11",
		ToolNumber:   "T-4",
		Values:       []float64{2.9, 2.85, 2.95},
	}
	require.NoError(t, db.AddRawReading(rec))
	loaded, err := db.GetRawReadings()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, rec, loaded[0])
}

func TestAddRawReadingIsIdempotent(t *testing.T) {
	db := testDB(t)
	rec := reading.Raw{
		DeviceName: "de512stmp268",
		Time:       tm(50),
		Variable:   "gap_width",
		Unit:       "mm",
		Values:     []float64{1.0},
	}
	require.NoError(t, db.AddRawReading(rec))
	require.NoError(t, db.AddRawReading(rec))
	loaded, err := db.GetRawReadings()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestGetResultsFilters(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.AddResult(testResult("S-223", "gap_width", 10, false)))
	require.NoError(t, db.AddResult(testResult("S-268", "gap_width", 50, true)))
	require.NoError(t, db.AddResult(testResult("S-268", "edge_height", 60, false)))

	recs, err := db.GetResults(ListFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = db.GetResults(ListFilter{}.SetMachineID("S-268"))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = db.GetResults(ListFilter{}.SetOnlyAnomalous(true))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "S-268", recs[0].MachineID)

	recs, err = db.GetResults(
		ListFilter{}.SetMachineID("S-268").SetVariable("gap_width").SetFrom(tm(0)).SetTo(tm(55)))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, tm(50), recs[0].Time)
}

func TestAddResultIsIdempotent(t *testing.T) {
	db := testDB(t)
	rec := testResult("S-268", "gap_width", 50, true)
	require.NoError(t, db.AddResult(rec))
	rec.BatchID = "batch-2"
	require.NoError(t, db.AddResult(rec))
	recs, err := db.GetResults(ListFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "batch-2", recs[0].BatchID)
}

func TestGetFilterValues(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.AddResult(testResult("S-268", "gap_width", 50, true)))
	require.NoError(t, db.AddRawReading(reading.Raw{
		DeviceName: "de512stmp268",
		Time:       tm(50),
		Variable:   "gap_width",
		Unit:       "mm",
		PartNumber: "P-11",
		ToolNumber: "T-4",
		Values:     []float64{1.0},
	}))
	vals, err := db.GetFilterValues()
	require.NoError(t, err)
	assert.Equal(t, []string{"S-268"}, vals["machine_id"])
	assert.Equal(t, []string{"P-11"}, vals["part_number"])
	assert.Equal(t, []string{"T-4"}, vals["tool_number"])
}
