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

// Package join aligns per-variable samples with production windows.
// Only samples taken while the machine was actually producing are of
// interest; everything else (setup runs, maintenance strokes) is
// dropped here by design of the analysis.
package join

import (
	"sort"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	"github.com/rs/zerolog/log"
)

// Record is a sample confirmed to fall inside a production window of
// its machine.
type Record struct {
	Sample reading.VariableSample  `json:"sample"`
	Window status.ProductionWindow `json:"window"`
}

// Join matches each sample against the window set and keeps the ones
// taken during production. Samples are sorted by machine and time
// first - the camera export stores multiple devices interleaved and
// guarantees no ordering. The window lookup is a binary search, so the
// whole pass is O(N log W) with W windows per machine.
//
// The result is fully determined by the inputs: re-running Join over
// the same samples and windows yields an identical sequence.
func Join(samples []reading.VariableSample, ws *status.WindowSet) []Record {
	sorted := make([]reading.VariableSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MachineID != sorted[j].MachineID {
			return sorted[i].MachineID < sorted[j].MachineID
		}
		return sorted[i].Time.Before(sorted[j].Time)
	})
	checkPartToolPairing(sorted)
	ans := make([]Record, 0, len(sorted))
	for _, smp := range sorted {
		win, ok := ws.Contains(smp.MachineID, smp.Time)
		if !ok {
			continue
		}
		ans = append(ans, Record{Sample: smp, Window: win})
	}
	return ans
}

// checkPartToolPairing verifies the observed one-to-one correspondence
// between part numbers and tool numbers. The pairing is treated as an
// auxiliary data-quality signal, not a join key, so a violation is only
// logged.
func checkPartToolPairing(samples []reading.VariableSample) {
	partToTool := make(map[string]string)
	for _, smp := range samples {
		if smp.PartNumber == "" || smp.ToolNumber == "" {
			continue
		}
		prev, ok := partToTool[smp.PartNumber]
		if !ok {
			partToTool[smp.PartNumber] = smp.ToolNumber

		} else if prev != smp.ToolNumber {
			log.Warn().
				Str("partNumber", smp.PartNumber).
				Str("toolNumber", smp.ToolNumber).
				Str("prevToolNumber", prev).
				Msg("part/tool pairing is not one-to-one")
		}
	}
}
