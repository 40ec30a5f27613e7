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

// Package reading defines the raw camera measurement records (D2) and
// their normalized per-variable form consumed by the temporal join and
// the tolerance check.
package reading

import (
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/devmap"
)

// Raw is a single composite record from the camera measurement stream.
// One record bundles the tolerance limits, the nominal value, the unit
// and the full array of individual measurements (typically 100 values)
// for one variable of one device at one time. Records arrive unordered
// across devices; nothing may rely on their stored order.
type Raw struct {
	DeviceName   string    `json:"device_name"`
	Time         time.Time `json:"timestamp"`
	Variable     string    `json:"variable_name"`
	LowerLimit   float64   `json:"lowerLimit"`
	UpperLimit   float64   `json:"upperLimit"`
	NominalValue float64   `json:"nominalValue"`
	Unit         string    `json:"engineeringUnits"`
	Cavity       string    `json:"cavity"`
	PartNumber   string    `json:"part_number"`
	ToolNumber   string    `json:"tool_number"`
	Values       []float64 `json:"values"`
}

// Normalized is a Raw reading with the device name resolved into
// a canonical machine ID.
type Normalized struct {
	Raw
	MachineID string `json:"machine_id"`
}

// Normalize resolves the reading's device name via the lookup table.
// An unknown device is an error - downstream joins require canonical
// machine IDs (devmap.UnmappedDeviceError).
func Normalize(raw Raw, dm *devmap.DeviceMap) (Normalized, error) {
	machineID, err := dm.Canonical(raw.DeviceName)
	if err != nil {
		return Normalized{}, err
	}
	return Normalized{Raw: raw, MachineID: machineID}, nil
}

// VariableSample is the reshaped per-variable record: the composite
// attribute bundle split into scalar fields and the value array
// collapsed into an outlier-robust mean. This is the unit the temporal
// join and the tolerance check operate on.
type VariableSample struct {
	MachineID  string    `json:"machine_id"`
	Time       time.Time `json:"timestamp"`
	Variable   string    `json:"variable_name"`
	Summary    float64   `json:"summary_value"`
	LowerLimit float64   `json:"lower_limit"`
	UpperLimit float64   `json:"upper_limit"`
	Unit       string    `json:"engineeringUnits"`
	Cavity     string    `json:"cavity"`
	PartNumber string    `json:"part_number"`
	ToolNumber string    `json:"tool_number"`

	// NumExcluded is the number of values dropped as outliers before
	// the mean was taken
	NumExcluded int `json:"num_excluded"`
}
