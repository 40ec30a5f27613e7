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

// Package status turns the machine-status metadata stream (D1) into
// production windows - contiguous time ranges during which a machine
// reported the production status code.
package status

import (
	"fmt"
	"sort"
	"time"
)

// ProductionCode is the status code the stamping line reports while
// actively producing. Other codes (setup, maintenance, fault) vary
// between machine generations and are not interpreted here.
const ProductionCode = 200

// Event is a single status-change record from the metadata stream.
// The stream is a per-machine ordered sequence of changes; Code is
// the status the machine entered at Time.
type Event struct {
	MachineID string    `json:"machine_id"`
	Code      int       `json:"status_code"`
	Time      time.Time `json:"timestamp"`
}

// ProductionWindow is a closed interval during which MachineID was in
// production. Start <= End always holds.
type ProductionWindow struct {
	MachineID string    `json:"machine_id"`
	Start     time.Time `json:"start_timestamp"`
	End       time.Time `json:"end_timestamp"`
}

// Contains tests whether t falls inside the window (inclusive on both ends).
func (pw ProductionWindow) Contains(t time.Time) bool {
	return !t.Before(pw.Start) && !t.After(pw.End)
}

// MalformedStatusSequenceError is reported when a machine's status-change
// sequence cannot be interpreted as a series of windows - typically when
// a window-closing event precedes the event that would have opened it.
type MalformedStatusSequenceError struct {
	MachineID string
	Time      time.Time
}

func (err MalformedStatusSequenceError) Error() string {
	return fmt.Sprintf(
		"malformed status sequence for machine %s at %v", err.MachineID, err.Time)
}

// buildMachineWindows scans a single machine's status changes in their
// stored order. A window opens on a transition into productionCode and
// closes on the next transition out. A window left open by the last
// event is closed at that event's time - the batch covers a bounded
// span and we never emit open-ended windows.
func buildMachineWindows(
	machineID string,
	events []Event,
	productionCode int,
) ([]ProductionWindow, error) {
	ans := make([]ProductionWindow, 0, len(events)/2+1)
	var open bool
	var openTime time.Time
	var lastTime time.Time
	for i, evt := range events {
		if i > 0 && evt.Time.Before(lastTime) {
			return nil, MalformedStatusSequenceError{
				MachineID: machineID,
				Time:      evt.Time,
			}
		}
		lastTime = evt.Time
		if evt.Code == productionCode && !open {
			open = true
			openTime = evt.Time

		} else if evt.Code != productionCode && open {
			open = false
			ans = append(ans, ProductionWindow{
				MachineID: machineID,
				Start:     openTime,
				End:       evt.Time,
			})
		}
	}
	if open {
		ans = append(ans, ProductionWindow{
			MachineID: machineID,
			Start:     openTime,
			End:       lastTime,
		})
	}
	return ans, nil
}

// WindowSet holds production windows of all machines, per machine
// sorted by start time, and provides O(log W) containment lookup.
type WindowSet struct {
	windows map[string][]ProductionWindow
}

// Contains finds the production window of machineID containing t.
// The second return value is false if t falls outside all windows
// (or the machine has none).
func (ws *WindowSet) Contains(machineID string, t time.Time) (ProductionWindow, bool) {
	wins := ws.windows[machineID]
	// first window starting after t; its predecessor is the only candidate
	idx := sort.Search(len(wins), func(i int) bool {
		return wins[i].Start.After(t)
	})
	if idx == 0 {
		return ProductionWindow{}, false
	}
	if win := wins[idx-1]; win.Contains(t) {
		return win, true
	}
	return ProductionWindow{}, false
}

// Machines lists machine IDs with at least one window.
func (ws *WindowSet) Machines() []string {
	ans := make([]string, 0, len(ws.windows))
	for machineID := range ws.windows {
		ans = append(ans, machineID)
	}
	sort.Strings(ans)
	return ans
}

// MachineWindows returns the windows of a single machine in start order.
func (ws *WindowSet) MachineWindows(machineID string) []ProductionWindow {
	return ws.windows[machineID]
}

// NumWindows returns the total number of windows across all machines.
func (ws *WindowSet) NumWindows() int {
	var ans int
	for _, wins := range ws.windows {
		ans += len(wins)
	}
	return ans
}

// NewWindowSet builds production windows from a mixed-machine event
// stream. Machines with a malformed sequence are skipped and reported
// in the returned error map - a bad machine must not abort the batch.
func NewWindowSet(events []Event, productionCode int) (*WindowSet, map[string]error) {
	byMachine := make(map[string][]Event)
	for _, evt := range events {
		byMachine[evt.MachineID] = append(byMachine[evt.MachineID], evt)
	}
	ans := &WindowSet{windows: make(map[string][]ProductionWindow, len(byMachine))}
	failed := make(map[string]error)
	for machineID, mEvents := range byMachine {
		wins, err := buildMachineWindows(machineID, mEvents, productionCode)
		if err != nil {
			failed[machineID] = err
			continue
		}
		sort.Slice(wins, func(i, j int) bool {
			return wins[i].Start.Before(wins[j].Start)
		})
		ans.windows[machineID] = wins
	}
	return ans, failed
}
