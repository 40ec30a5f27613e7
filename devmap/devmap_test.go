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

package devmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() map[string]string {
	return map[string]string{
		"de512stmp223": "S-223",
		"de512stmp224": "S-224",
		"de512stmp225": "S-225",
		"de512stmp266": "S-266",
		"de512stmp267": "S-267",
		"de512stmp268": "S-268",
	}
}

func TestCanonical(t *testing.T) {
	dm, err := FromTable(testTable())
	require.NoError(t, err)
	machineID, err := dm.Canonical("de512stmp223")
	assert.NoError(t, err)
	assert.Equal(t, "S-223", machineID)
}

func TestCanonicalUnknownDevice(t *testing.T) {
	dm, err := FromTable(testTable())
	require.NoError(t, err)
	_, err = dm.Canonical("de512stmp999")
	var tErr UnmappedDeviceError
	assert.ErrorAs(t, err, &tErr)
	assert.Equal(t, "de512stmp999", tErr.Device)
	assert.NotEmpty(t, tErr.Suggestion)
}

func TestCanonicalSuggestsClosestName(t *testing.T) {
	dm, err := FromTable(testTable())
	require.NoError(t, err)
	_, err = dm.Canonical("de512stmp263")
	var tErr UnmappedDeviceError
	require.ErrorAs(t, err, &tErr)
	// a single-character typo should point to the intended device
	assert.Contains(t, []string{"de512stmp266", "de512stmp267", "de512stmp268"}, tErr.Suggestion)
}

func TestDeviceFor(t *testing.T) {
	dm, err := FromTable(testTable())
	require.NoError(t, err)
	device, err := dm.DeviceFor("S-268")
	assert.NoError(t, err)
	assert.Equal(t, "de512stmp268", device)
	_, err = dm.DeviceFor("S-999")
	assert.Error(t, err)
}

func TestFromTableRejectsDuplicateMachine(t *testing.T) {
	_, err := FromTable(map[string]string{
		"de512stmp223":  "S-223",
		"de512stmp223b": "S-223",
	})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	err := os.WriteFile(
		path,
		[]byte(`{"de512stmp223": "S-223", "de512stmp268": "S-268"}`),
		0644,
	)
	require.NoError(t, err)
	dm, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, dm.Size())
	machineID, err := dm.Canonical("de512stmp268")
	assert.NoError(t, err)
	assert.Equal(t, "S-268", machineID)
}

func TestLoadEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	err := os.WriteFile(path, []byte(`{}`), 0644)
	require.NoError(t, err)
	_, err = Load(path)
	assert.Error(t, err)
}
