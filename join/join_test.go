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

package join

import (
	"testing"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tm(secs int) time.Time {
	return time.Unix(int64(secs), 0).UTC()
}

func windowSet(t *testing.T) *status.WindowSet {
	events := []status.Event{
		{MachineID: "S-268", Code: 200, Time: tm(0)},
		{MachineID: "S-268", Code: 300, Time: tm(100)},
		{MachineID: "S-223", Code: 200, Time: tm(200)},
		{MachineID: "S-223", Code: 300, Time: tm(400)},
	}
	ws, failed := status.NewWindowSet(events, status.ProductionCode)
	require.Empty(t, failed)
	return ws
}

func sample(machineID string, secs int) reading.VariableSample {
	return reading.VariableSample{
		MachineID: machineID,
		Time:      tm(secs),
		Variable:  "gap_width",
		Summary:   1.0,
	}
}

func TestJoinKeepsInWindowSamples(t *testing.T) {
	ws := windowSet(t)
	recs := Join([]reading.VariableSample{
		sample("S-268", 50),
		sample("S-268", 150), // outside all windows
		sample("S-223", 300),
	}, ws)
	require.Len(t, recs, 2)
	assert.Equal(t, "S-223", recs[0].Sample.MachineID)
	assert.Equal(t, tm(200), recs[0].Window.Start)
	assert.Equal(t, "S-268", recs[1].Sample.MachineID)
}

func TestJoinDropsOutOfWindowSample(t *testing.T) {
	ws := windowSet(t)
	recs := Join([]reading.VariableSample{sample("S-268", 150)}, ws)
	assert.Empty(t, recs)
}

func TestJoinSortsUnorderedInput(t *testing.T) {
	ws := windowSet(t)
	recs := Join([]reading.VariableSample{
		sample("S-268", 90),
		sample("S-223", 250),
		sample("S-268", 10),
	}, ws)
	require.Len(t, recs, 3)
	assert.Equal(t, "S-223", recs[0].Sample.MachineID)
	assert.Equal(t, tm(10), recs[1].Sample.Time)
	assert.Equal(t, tm(90), recs[2].Sample.Time)
}

func TestJoinIsIdempotent(t *testing.T) {
	ws := windowSet(t)
	samples := []reading.VariableSample{
		sample("S-268", 30),
		sample("S-223", 350),
		sample("S-268", 70),
	}
	first := Join(samples, ws)
	second := Join(samples, ws)
	assert.Equal(t, first, second)
}

func TestJoinUnknownMachineDropped(t *testing.T) {
	ws := windowSet(t)
	recs := Join([]reading.VariableSample{sample("S-999", 50)}, ws)
	assert.Empty(t, recs)
}
