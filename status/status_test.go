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

package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tm(secs int) time.Time {
	return time.Unix(int64(secs), 0).UTC()
}

func TestSingleWindow(t *testing.T) {
	events := []Event{
		{MachineID: "S-223", Code: 100, Time: tm(0)},
		{MachineID: "S-223", Code: 200, Time: tm(10)},
		{MachineID: "S-223", Code: 300, Time: tm(50)},
	}
	ws, failed := NewWindowSet(events, ProductionCode)
	assert.Empty(t, failed)
	wins := ws.MachineWindows("S-223")
	require.Len(t, wins, 1)
	assert.Equal(t, tm(10), wins[0].Start)
	assert.Equal(t, tm(50), wins[0].End)
}

func TestTrailingOpenWindowClosesAtLastEvent(t *testing.T) {
	events := []Event{
		{MachineID: "S-223", Code: 200, Time: tm(0)},
	}
	ws, failed := NewWindowSet(events, ProductionCode)
	assert.Empty(t, failed)
	wins := ws.MachineWindows("S-223")
	require.Len(t, wins, 1)
	assert.Equal(t, tm(0), wins[0].Start)
	assert.Equal(t, tm(0), wins[0].End)
}

func TestRepeatedProductionCodeKeepsWindowOpen(t *testing.T) {
	events := []Event{
		{MachineID: "S-223", Code: 200, Time: tm(0)},
		{MachineID: "S-223", Code: 200, Time: tm(20)},
		{MachineID: "S-223", Code: 400, Time: tm(40)},
	}
	ws, failed := NewWindowSet(events, ProductionCode)
	assert.Empty(t, failed)
	wins := ws.MachineWindows("S-223")
	require.Len(t, wins, 1)
	assert.Equal(t, tm(0), wins[0].Start)
	assert.Equal(t, tm(40), wins[0].End)
}

func TestWindowsInvariantStartBeforeEnd(t *testing.T) {
	events := []Event{
		{MachineID: "S-223", Code: 200, Time: tm(0)},
		{MachineID: "S-223", Code: 300, Time: tm(10)},
		{MachineID: "S-223", Code: 200, Time: tm(20)},
		{MachineID: "S-223", Code: 300, Time: tm(30)},
		{MachineID: "S-268", Code: 200, Time: tm(5)},
		{MachineID: "S-268", Code: 100, Time: tm(95)},
	}
	ws, failed := NewWindowSet(events, ProductionCode)
	assert.Empty(t, failed)
	for _, machineID := range ws.Machines() {
		for _, win := range ws.MachineWindows(machineID) {
			assert.False(t, win.End.Before(win.Start))
		}
	}
	assert.Equal(t, 3, ws.NumWindows())
}

func TestMalformedSequenceSkipsOnlyAffectedMachine(t *testing.T) {
	events := []Event{
		{MachineID: "S-223", Code: 200, Time: tm(50)},
		{MachineID: "S-223", Code: 300, Time: tm(10)}, // closes before it opened
		{MachineID: "S-268", Code: 200, Time: tm(0)},
		{MachineID: "S-268", Code: 300, Time: tm(100)},
	}
	ws, failed := NewWindowSet(events, ProductionCode)
	require.Len(t, failed, 1)
	var tErr MalformedStatusSequenceError
	assert.ErrorAs(t, failed["S-223"], &tErr)
	assert.Equal(t, "S-223", tErr.MachineID)
	assert.Empty(t, ws.MachineWindows("S-223"))
	assert.Len(t, ws.MachineWindows("S-268"), 1)
}

func TestContains(t *testing.T) {
	events := []Event{
		{MachineID: "S-268", Code: 200, Time: tm(0)},
		{MachineID: "S-268", Code: 300, Time: tm(100)},
		{MachineID: "S-268", Code: 200, Time: tm(200)},
		{MachineID: "S-268", Code: 300, Time: tm(300)},
	}
	ws, failed := NewWindowSet(events, ProductionCode)
	require.Empty(t, failed)

	win, ok := ws.Contains("S-268", tm(50))
	assert.True(t, ok)
	assert.Equal(t, tm(0), win.Start)

	_, ok = ws.Contains("S-268", tm(150))
	assert.False(t, ok)

	win, ok = ws.Contains("S-268", tm(300)) // inclusive end
	assert.True(t, ok)
	assert.Equal(t, tm(200), win.Start)

	_, ok = ws.Contains("S-268", tm(301))
	assert.False(t, ok)

	_, ok = ws.Contains("S-999", tm(50))
	assert.False(t, ok)
}
