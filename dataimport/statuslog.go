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
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/rs/zerolog/log"
)

// inputStatusEvent mirrors one line of the machine metadata stream
// (snake_case, as produced by the MES export).
type inputStatusEvent struct {
	MachineID  string `json:"machine_id"`
	StatusCode int    `json:"status_code"`
	Timestamp  string `json:"timestamp"`
}

func (rec inputStatusEvent) GetTime() time.Time {
	return convertExportDatetime(rec.Timestamp)
}

func (rec inputStatusEvent) Validate() error {
	if rec.MachineID == "" {
		return fmt.Errorf("missing machine_id")
	}
	if rec.GetTime().IsZero() {
		return fmt.Errorf("invalid timestamp %s", rec.Timestamp)
	}
	return nil
}

// ImportStatusLog reads a D1 status-change export (JSONL) into the
// working database, preserving the stored per-machine order. Malformed
// lines are logged and skipped.
func ImportStatusLog(ctx context.Context, conf *cnf.Conf, path string) (Report, error) {
	var report Report
	src, err := OpenSource(ctx, conf.ObjStorage, path)
	if err != nil {
		return report, fmt.Errorf("failed to import status log: %w", err)
	}
	defer src.Close()
	db, err := store.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		return report, fmt.Errorf("failed to import status log: %w", err)
	}
	if err := db.Init(); err != nil {
		return report, fmt.Errorf("failed to import status log: %w", err)
	}
	if err := db.StartTx(); err != nil {
		return report, fmt.Errorf("failed to import status log: %w", err)
	}

	scn := bufio.NewScanner(src)
	buf := make([]byte, scanBufferCapacity)
	scn.Buffer(buf, scanBufferCapacity)
	var i int
	for scn.Scan() {
		select {
		case <-ctx.Done():
			log.Warn().Msg("interrupting status log import")
			db.RollbackTx()
			return report, ctx.Err()
		default:
		}
		i++
		if len(scn.Bytes()) == 0 {
			continue
		}
		var rec inputStatusEvent
		if err := json.Unmarshal(scn.Bytes(), &rec); err != nil {
			log.Error().Err(err).Int("line", i).Msg("failed to decode status event, skipping")
			report.NumSkipped++
			continue
		}
		if err := rec.Validate(); err != nil {
			log.Error().Err(err).Int("line", i).Msg("invalid status event, skipping")
			report.NumSkipped++
			continue
		}
		err := db.AddStatusEvent(status.Event{
			MachineID: rec.MachineID,
			Code:      rec.StatusCode,
			Time:      rec.GetTime().UTC(),
		})
		if err != nil {
			db.RollbackTx()
			return report, fmt.Errorf("failed to import status log: %w", err)
		}
		report.NumImported++
	}
	if err := scn.Err(); err != nil {
		db.RollbackTx()
		return report, fmt.Errorf("failed to import status log: %w", err)
	}
	if err := db.CommitTx(); err != nil {
		return report, err
	}
	log.Info().
		Int("numImported", report.NumImported).
		Int("numSkipped", report.NumSkipped).
		Msg("status log import finished")
	return report, nil
}
