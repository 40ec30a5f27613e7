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

package dataimport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/rs/zerolog/log"
)

// inputReading mirrors one line of the camera export. The export keeps
// the camelCase attribute names of the measurement system.
type inputReading struct {
	DeviceName   string    `json:"deviceName"`
	Timestamp    string    `json:"timestamp"`
	VariableName string    `json:"variableName"`
	LowerLimit   float64   `json:"lowerLimit"`
	UpperLimit   float64   `json:"upperLimit"`
	NominalValue float64   `json:"nominalValue"`
	Unit         string    `json:"engineeringUnits"`
	Cavity       string    `json:"cavity"`
	PartNumber   string    `json:"partNumber"`
	ToolNumber   string    `json:"toolNumber"`
	Values       []float64 `json:"values"`
}

func (rec inputReading) GetTime() time.Time {
	return convertExportDatetime(rec.Timestamp)
}

func (rec inputReading) Validate() error {
	if rec.DeviceName == "" {
		return fmt.Errorf("missing deviceName")
	}
	if rec.VariableName == "" {
		return fmt.Errorf("missing variableName")
	}
	if rec.GetTime().IsZero() {
		return fmt.Errorf("invalid timestamp %s", rec.Timestamp)
	}
	if len(rec.Values) == 0 {
		return fmt.Errorf("empty value array")
	}
	return nil
}

func (rec inputReading) AsRaw() reading.Raw {
	return reading.Raw{
		DeviceName:   rec.DeviceName,
		Time:         rec.GetTime().UTC(),
		Variable:     rec.VariableName,
		LowerLimit:   rec.LowerLimit,
		UpperLimit:   rec.UpperLimit,
		NominalValue: rec.NominalValue,
		Unit:         rec.Unit,
		Cavity:       rec.Cavity,
		PartNumber:   rec.PartNumber,
		ToolNumber:   rec.ToolNumber,
		Values:       rec.Values,
	}
}

// ImportReadings streams a D2 camera export (JSONL) into the working
// database. A scanner goroutine feeds a storing goroutine through a
// channel; malformed lines are logged and skipped so a single bad
// record cannot abort a 5-day dump.
func ImportReadings(ctx context.Context, conf *cnf.Conf, path string) (Report, error) {
	var report Report
	data := make(chan inputReading, 100)
	retErr := new(ConcurrentErr)
	src, err := OpenSource(ctx, conf.ObjStorage, path)
	if err != nil {
		return report, fmt.Errorf("failed to import readings: %w", err)
	}
	defer src.Close()
	db, err := store.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		return report, fmt.Errorf("failed to import readings: %w", err)
	}
	if err := db.Init(); err != nil {
		return report, fmt.Errorf("failed to import readings: %w", err)
	}
	if err := db.StartTx(); err != nil {
		return report, fmt.Errorf("failed to import readings: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	// producer
	go func() {
		defer wg.Done()
		defer close(data)
		scn := bufio.NewScanner(src)
		buf := make([]byte, scanBufferCapacity)
		scn.Buffer(buf, scanBufferCapacity)
		var i int
		for scn.Scan() {
			i++
			if len(scn.Bytes()) == 0 {
				continue
			}
			var rec inputReading
			if err := json.Unmarshal(scn.Bytes(), &rec); err != nil {
				log.Error().Err(err).Int("line", i).Msg("failed to decode reading, skipping")
				report.NumSkipped++
				continue
			}
			if err := rec.Validate(); err != nil {
				log.Error().Err(err).Int("line", i).Str("device", rec.DeviceName).
					Msg("invalid reading, skipping")
				report.NumSkipped++
				continue
			}
			select {
			case data <- rec:
			case <-ctx.Done():
				retErr.Add(ctx.Err())
				return
			}
		}
		if err := scn.Err(); err != nil {
			retErr.Add(fmt.Errorf("failed to read source: %w", err))
		}
	}()

	// consumer
	go func() {
		defer wg.Done()
		for rec := range data {
			if retErr.LastErr() != nil {
				continue // keep draining so the producer can finish
			}
			if err := db.AddRawReading(rec.AsRaw()); err != nil {
				retErr.Add(err)
				continue
			}
			report.NumImported++
		}
	}()

	wg.Wait()
	if retErr.LastErr() != nil {
		db.RollbackTx()
		return report, retErr.LastErr()
	}
	if err := db.CommitTx(); err != nil {
		return report, err
	}
	log.Info().
		Int("numImported", report.NumImported).
		Int("numSkipped", report.NumSkipped).
		Msg("readings import finished")
	return report, nil
}
