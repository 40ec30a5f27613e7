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

// Package pipeline runs the whole detection batch: status events are
// folded into production windows, raw camera readings are normalized,
// reshaped, joined against the windows and finally checked against
// their tolerance limits. Each stage skips and reports broken records
// instead of failing the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/detect"
	"github.com/OmkarTanajiPatil/TEAICup/devmap"
	"github.com/OmkarTanajiPatil/TEAICup/index"
	"github.com/OmkarTanajiPatil/TEAICup/join"
	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// RunReport summarizes a finished batch.
type RunReport struct {
	BatchID string `json:"batchId"`

	// NumMachines is the number of machines with at least one
	// production window
	NumMachines int `json:"numMachines"`

	NumWindows int `json:"numWindows"`

	// NumProcessed is the number of samples which made it through the
	// temporal join and were evaluated
	NumProcessed int `json:"numProcessed"`

	// NumSkipped counts readings dropped for per-record failures
	// (unknown device, no valid values) plus samples outside any
	// production window
	NumSkipped int `json:"numSkipped"`

	NumAnomalous int `json:"numAnomalous"`
}

// machineResult carries one machine's evaluated records back from its
// worker goroutine.
type machineResult struct {
	machineID string
	records   []join.Record
	results   []detect.Result

	// numDropped is the number of the machine's samples taken outside
	// any production window
	numDropped int
}

// reshapeAll turns raw readings into per-variable samples, skipping
// the ones which cannot be normalized or have no usable values. The
// returned count is the number of skipped readings.
func reshapeAll(
	raws []reading.Raw,
	dm *devmap.DeviceMap,
	iqrFactor float64,
) ([]reading.VariableSample, int) {
	samples := make([]reading.VariableSample, 0, len(raws))
	var numSkipped int
	for _, raw := range raws {
		norm, err := reading.Normalize(raw, dm)
		if err != nil {
			log.Warn().Err(err).
				Str("device", raw.DeviceName).
				Str("variable", raw.Variable).
				Msg("skipping reading")
			numSkipped++
			continue
		}
		smp, err := reading.Reshape(norm, iqrFactor)
		if err != nil {
			log.Warn().Err(err).
				Str("machineId", norm.MachineID).
				Str("variable", raw.Variable).
				Msg("skipping reading")
			numSkipped++
			continue
		}
		samples = append(samples, smp)
	}
	return samples, numSkipped
}

// partitionByMachine splits samples so each machine can be joined and
// evaluated independently.
func partitionByMachine(
	samples []reading.VariableSample,
) map[string][]reading.VariableSample {
	ans := make(map[string][]reading.VariableSample)
	for _, smp := range samples {
		ans[smp.MachineID] = append(ans[smp.MachineID], smp)
	}
	return ans
}

// Run executes one detection batch over all imported data. Machines
// are processed concurrently - the join order within a machine is
// deterministic, and results of distinct machines never interact, so
// repeated runs over the same data produce the same stored records
// (idempotent record IDs make the writes replace, not duplicate).
func Run(
	ctx context.Context,
	conf *cnf.Conf,
	db *store.Database,
	idx *index.DB,
	dm *devmap.DeviceMap,
) (RunReport, error) {
	report := RunReport{BatchID: uuid.New().String()}
	log.Info().Str("batchId", report.BatchID).Msg("starting detection batch")

	events, err := db.GetStatusEvents()
	if err != nil {
		return report, fmt.Errorf("failed to run batch: %w", err)
	}
	ws, machErrs := status.NewWindowSet(events, conf.ProductionStatusCode)
	for machineID, mErr := range machErrs {
		log.Warn().Err(mErr).
			Str("machineId", machineID).
			Msg("excluding machine from batch")
	}
	report.NumMachines = len(ws.Machines())
	report.NumWindows = ws.NumWindows()
	if report.NumWindows == 0 {
		return report, errors.New("failed to run batch: no production windows found")
	}

	raws, err := db.GetRawReadings()
	if err != nil {
		return report, fmt.Errorf("failed to run batch: %w", err)
	}
	samples, numSkipped := reshapeAll(raws, dm, conf.IQRFactor)
	report.NumSkipped = numSkipped

	partitions := partitionByMachine(samples)
	bar := progressbar.Default(int64(len(partitions)), "evaluating machines")
	results := make(chan machineResult, len(partitions))
	var wg sync.WaitGroup
	for machineID, part := range partitions {
		wg.Add(1)
		go func(machineID string, part []reading.VariableSample) {
			defer wg.Done()
			joined := join.Join(part, ws)
			evaluated := make([]detect.Result, len(joined))
			for i, rec := range joined {
				evaluated[i] = detect.Evaluate(rec)
			}
			results <- machineResult{
				machineID:  machineID,
				records:    joined,
				results:    evaluated,
				numDropped: len(part) - len(joined),
			}
			bar.Add(1)
		}(machineID, part)
	}
	wg.Wait()
	close(results)

	select {
	case <-ctx.Done():
		return report, ctx.Err()
	default:
	}

	if err := storeBatch(db, idx, ws, results, &report); err != nil {
		return report, fmt.Errorf("failed to run batch: %w", err)
	}
	log.Info().
		Str("batchId", report.BatchID).
		Int("numMachines", report.NumMachines).
		Int("numWindows", report.NumWindows).
		Int("numProcessed", report.NumProcessed).
		Int("numSkipped", report.NumSkipped).
		Int("numAnomalous", report.NumAnomalous).
		Msg("detection batch finished")
	return report, nil
}

// storeBatch writes windows and evaluated results to the working
// database and the joined samples to the series index, all within a
// single transaction on the sqlite side.
func storeBatch(
	db *store.Database,
	idx *index.DB,
	ws *status.WindowSet,
	results <-chan machineResult,
	report *RunReport,
) error {
	if err := db.StartTx(); err != nil {
		return err
	}
	for _, machineID := range ws.Machines() {
		for _, win := range ws.MachineWindows(machineID) {
			rec := store.WindowRecord{
				MachineID: machineID,
				Start:     win.Start,
				End:       win.End,
				BatchID:   report.BatchID,
			}
			if err := db.AddWindow(rec); err != nil {
				db.RollbackTx()
				return err
			}
		}
	}
	for mres := range results {
		report.NumSkipped += mres.numDropped
		samples := make([]reading.VariableSample, len(mres.records))
		for i, rec := range mres.records {
			samples[i] = rec.Sample
		}
		if idx != nil {
			if err := idx.StoreSamples(samples); err != nil {
				db.RollbackTx()
				return err
			}
		}
		for _, res := range mres.results {
			rec := store.ResultRecord{
				MachineID:  res.MachineID,
				Variable:   res.Variable,
				Time:       res.Time,
				Summary:    res.Summary,
				LowerLimit: res.LowerLimit,
				UpperLimit: res.UpperLimit,
				Anomalous:  res.Anomalous,
				Severity:   string(res.Severity),
				Reason:     res.Reason,
				BatchID:    report.BatchID,
			}
			if err := db.AddResult(rec); err != nil {
				db.RollbackTx()
				return err
			}
			report.NumProcessed++
			if res.Anomalous {
				report.NumAnomalous++
			}
		}
	}
	return db.CommitTx()
}
