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

package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/devmap"
	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tm(secs int) time.Time {
	return time.Unix(int64(secs), 0).UTC()
}

func testConf() *cnf.Conf {
	return &cnf.Conf{
		ProductionStatusCode: status.ProductionCode,
		IQRFactor:            reading.DefaultIQRFactor,
	}
}

func testDevmap(t *testing.T) *devmap.DeviceMap {
	dm, err := devmap.FromTable(map[string]string{
		"de512stmp223": "S-223",
		"de512stmp268": "S-268",
	})
	require.NoError(t, err)
	return dm
}

func testStore(t *testing.T) *store.Database {
	db, err := store.NewDatabase(filepath.Join(t.TempDir(), "testing.sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	return db
}

func addEvents(t *testing.T, db *store.Database, events ...status.Event) {
	require.NoError(t, db.StartTx())
	for _, evt := range events {
		require.NoError(t, db.AddStatusEvent(evt))
	}
	require.NoError(t, db.CommitTx())
}

func testRaw(device string, secs int, variable string, values ...float64) reading.Raw {
	return reading.Raw{
		DeviceName: device,
		Time:       tm(secs),
		Variable:   variable,
		LowerLimit: -0.2,
		UpperLimit: 0.2,
		Unit:       "mm",
		PartNumber: "P-11",
		ToolNumber: "T-4",
		Values:     values,
	}
}

func TestRunDetectsOutOfToleranceSample(t *testing.T) {
	db := testStore(t)
	addEvents(t, db,
		status.Event{MachineID: "S-223", Code: 200, Time: tm(0)},
		status.Event{MachineID: "S-223", Code: 300, Time: tm(100)},
	)
	// mean 2.9 against limits [-0.2, 0.2]
	require.NoError(t, db.AddRawReading(
		testRaw("de512stmp223", 50, "gap_width", 2.85, 2.9, 2.95, 2.9)))

	report, err := Run(context.Background(), testConf(), db, nil, testDevmap(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumMachines)
	assert.Equal(t, 1, report.NumWindows)
	assert.Equal(t, 1, report.NumProcessed)
	assert.Equal(t, 0, report.NumSkipped)
	assert.Equal(t, 1, report.NumAnomalous)

	recs, err := db.GetResults(store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "S-223", recs[0].MachineID)
	assert.True(t, recs[0].Anomalous)
	assert.Equal(t, "critical", recs[0].Severity)
	assert.InDelta(t, 2.9, recs[0].Summary, 0.0001)
	assert.Equal(t, report.BatchID, recs[0].BatchID)
}

func TestRunDropsSampleOutsideProductionWindow(t *testing.T) {
	db := testStore(t)
	addEvents(t, db,
		status.Event{MachineID: "S-223", Code: 200, Time: tm(0)},
		status.Event{MachineID: "S-223", Code: 300, Time: tm(100)},
	)
	require.NoError(t, db.AddRawReading(
		testRaw("de512stmp223", 150, "gap_width", 0.1, 0.1, 0.1)))

	report, err := Run(context.Background(), testConf(), db, nil, testDevmap(t))
	require.NoError(t, err)
	assert.Equal(t, 0, report.NumProcessed)
	assert.Equal(t, 1, report.NumSkipped)

	recs, err := db.GetResults(store.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunSkipsUnmappedDevice(t *testing.T) {
	db := testStore(t)
	addEvents(t, db,
		status.Event{MachineID: "S-223", Code: 200, Time: tm(0)},
		status.Event{MachineID: "S-223", Code: 300, Time: tm(100)},
	)
	require.NoError(t, db.AddRawReading(
		testRaw("de512stmp223", 50, "gap_width", 0.1, 0.1, 0.1)))
	require.NoError(t, db.AddRawReading(
		testRaw("de512stmp999", 60, "gap_width", 0.1, 0.1, 0.1)))

	report, err := Run(context.Background(), testConf(), db, nil, testDevmap(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumProcessed)
	assert.Equal(t, 1, report.NumSkipped)
	assert.Equal(t, 0, report.NumAnomalous)
}

func TestRunExcludesMachineWithBrokenStatusLog(t *testing.T) {
	db := testStore(t)
	addEvents(t, db,
		status.Event{MachineID: "S-223", Code: 200, Time: tm(0)},
		status.Event{MachineID: "S-223", Code: 300, Time: tm(100)},
		// timestamps going backwards
		status.Event{MachineID: "S-268", Code: 200, Time: tm(50)},
		status.Event{MachineID: "S-268", Code: 300, Time: tm(10)},
	)
	require.NoError(t, db.AddRawReading(
		testRaw("de512stmp268", 30, "gap_width", 0.1)))

	report, err := Run(context.Background(), testConf(), db, nil, testDevmap(t))
	require.NoError(t, err)
	assert.Equal(t, 1, report.NumMachines)
	// the S-268 sample has no window set to match against
	assert.Equal(t, 0, report.NumProcessed)
	assert.Equal(t, 1, report.NumSkipped)
}

func TestRunFailsWithoutWindows(t *testing.T) {
	db := testStore(t)
	_, err := Run(context.Background(), testConf(), db, nil, testDevmap(t))
	assert.Error(t, err)
}

func TestRunIsIdempotent(t *testing.T) {
	db := testStore(t)
	addEvents(t, db,
		status.Event{MachineID: "S-223", Code: 200, Time: tm(0)},
		status.Event{MachineID: "S-223", Code: 300, Time: tm(100)},
	)
	require.NoError(t, db.AddRawReading(
		testRaw("de512stmp223", 50, "gap_width", 2.9)))

	_, err := Run(context.Background(), testConf(), db, nil, testDevmap(t))
	require.NoError(t, err)
	_, err = Run(context.Background(), testConf(), db, nil, testDevmap(t))
	require.NoError(t, err)

	recs, err := db.GetResults(store.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
