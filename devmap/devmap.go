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

// Package devmap translates heterogeneous device identifiers reported by
// the measurement cameras (e.g. de512stmp223) into canonical machine IDs
// (e.g. S-223). The lookup table is a standalone, versioned JSON artifact
// supplied via configuration - it is never derived from the data itself.
package devmap

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agnivade/levenshtein"
)

// UnmappedDeviceError is reported when a reading refers to a device
// missing from the lookup table. Downstream joins require canonical
// machine IDs, so there is no silent pass-through. Suggestion contains
// the closest known device name (by Levenshtein distance) to help spot
// typos in exported data.
type UnmappedDeviceError struct {
	Device     string
	Suggestion string
}

func (err UnmappedDeviceError) Error() string {
	if err.Suggestion != "" {
		return fmt.Sprintf(
			"unmapped device %s (closest known: %s)", err.Device, err.Suggestion)
	}
	return fmt.Sprintf("unmapped device %s", err.Device)
}

// DeviceMap is a bidirectional device name <-> machine ID mapping.
// The mapping must be one-to-one; Load rejects tables with duplicate
// machine IDs.
type DeviceMap struct {
	toMachine map[string]string
	toDevice  map[string]string
}

// Canonical resolves a raw device name into a canonical machine ID.
func (dm *DeviceMap) Canonical(deviceName string) (string, error) {
	machineID, ok := dm.toMachine[deviceName]
	if !ok {
		return "", UnmappedDeviceError{
			Device:     deviceName,
			Suggestion: dm.closestDevice(deviceName),
		}
	}
	return machineID, nil
}

// DeviceFor performs the inverse lookup (canonical machine ID to the
// device name the camera stream reports).
func (dm *DeviceMap) DeviceFor(machineID string) (string, error) {
	device, ok := dm.toDevice[machineID]
	if !ok {
		return "", fmt.Errorf("no device known for machine %s", machineID)
	}
	return device, nil
}

// MachineIDs returns all canonical machine IDs covered by the table.
func (dm *DeviceMap) MachineIDs() []string {
	ans := make([]string, 0, len(dm.toDevice))
	for machineID := range dm.toDevice {
		ans = append(ans, machineID)
	}
	return ans
}

func (dm *DeviceMap) Size() int {
	return len(dm.toMachine)
}

func (dm *DeviceMap) closestDevice(deviceName string) string {
	var best string
	bestDist := -1
	for known := range dm.toMachine {
		dist := levenshtein.ComputeDistance(deviceName, known)
		if bestDist == -1 || dist < bestDist {
			best = known
			bestDist = dist
		}
	}
	return best
}

// FromTable creates a DeviceMap from an already decoded
// device name -> machine ID table.
func FromTable(table map[string]string) (*DeviceMap, error) {
	ans := &DeviceMap{
		toMachine: make(map[string]string, len(table)),
		toDevice:  make(map[string]string, len(table)),
	}
	for device, machineID := range table {
		if prev, ok := ans.toDevice[machineID]; ok {
			return nil, fmt.Errorf(
				"device map is not one-to-one: %s and %s both map to %s",
				prev, device, machineID,
			)
		}
		ans.toMachine[device] = machineID
		ans.toDevice[machineID] = device
	}
	return ans, nil
}

// Load reads the mapping artifact from a JSON file of the form
// {"de512stmp223": "S-223", ...}.
func Load(path string) (*DeviceMap, error) {
	rawData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load device map: %w", err)
	}
	var table map[string]string
	if err := json.Unmarshal(rawData, &table); err != nil {
		return nil, fmt.Errorf("failed to load device map: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("failed to load device map: table %s is empty", path)
	}
	return FromTable(table)
}
