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

// Package store is the working sqlite3 database of the pipeline:
// imported status events and raw readings on the input side,
// production windows and anomaly results on the output side.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/status"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

type Database struct {
	db *sql.DB
	tx *sql.Tx
}

func (database *Database) createStatusEventTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE status_event (" +
			"machine_id TEXT NOT NULL, " +
			"status_code INTEGER NOT NULL, " +
			"timestamp INTEGER NOT NULL" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `status_event`")
	return nil
}

func (database *Database) createRawReadingTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE raw_reading (" +
			"id TEXT PRIMARY KEY NOT NULL, " +
			"device_name TEXT NOT NULL, " +
			"timestamp INTEGER NOT NULL, " +
			"variable TEXT NOT NULL, " +
			"lower_limit FLOAT NOT NULL, " +
			"upper_limit FLOAT NOT NULL, " +
			"nominal_value FLOAT NOT NULL, " +
			"unit TEXT NOT NULL, " +
			"cavity TEXT, " +
			"part_number TEXT, " +
			"tool_number TEXT, " +
			"value_array TEXT NOT NULL" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `raw_reading`")
	return nil
}

func (database *Database) createProductionWindowTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE production_window (" +
			"id TEXT PRIMARY KEY NOT NULL, " +
			"machine_id TEXT NOT NULL, " +
			"start_time INTEGER NOT NULL, " +
			"end_time INTEGER NOT NULL, " +
			"batch_id TEXT NOT NULL" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `production_window`")
	return nil
}

func (database *Database) createAnomalyResultTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE anomaly_result (" +
			"id TEXT PRIMARY KEY NOT NULL, " +
			"machine_id TEXT NOT NULL, " +
			"variable TEXT NOT NULL, " +
			"timestamp INTEGER NOT NULL, " +
			"summary FLOAT NOT NULL, " +
			"lower_limit FLOAT NOT NULL, " +
			"upper_limit FLOAT NOT NULL, " +
			"anomalous INT NOT NULL DEFAULT 0, " +
			"severity TEXT NOT NULL, " +
			"reason TEXT, " +
			"batch_id TEXT NOT NULL" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	log.Info().Msg("created table `anomaly_result`")
	return nil
}

func (database *Database) tableExists(tn string) (bool, error) {
	ans := database.db.QueryRow(
		fmt.Sprintf("SELECT name FROM sqlite_master WHERE type='table' AND name='%s'", tn))
	var nm sql.NullString
	err := ans.Scan(&nm)
	if err == sql.ErrNoRows {
		return false, nil

	} else if err != nil {
		return false, fmt.Errorf("failed to determine existence of table %s: %w", tn, err)
	}
	return true, nil
}

func (database *Database) Init() error {
	for _, tbl := range []struct {
		name   string
		create func() error
	}{
		{"status_event", database.createStatusEventTable},
		{"raw_reading", database.createRawReadingTable},
		{"production_window", database.createProductionWindowTable},
		{"anomaly_result", database.createAnomalyResultTable},
	} {
		ex, err := database.tableExists(tbl.name)
		if err != nil {
			return fmt.Errorf("failed to init table %s: %w", tbl.name, err)
		}
		if ex {
			log.Info().Str("table", tbl.name).Msg("table already exists")

		} else {
			if err := tbl.create(); err != nil {
				return fmt.Errorf("failed to create table %s: %w", tbl.name, err)
			}
		}
	}
	return nil
}

func (database *Database) StartTx() error {
	if database.tx != nil {
		panic("a transaction is already running")
	}
	var err error
	database.tx, err = database.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	return nil
}

func (database *Database) CommitTx() error {
	if database.tx == nil {
		panic("no transaction running")
	}
	err := database.tx.Commit()
	database.tx = nil
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (database *Database) RollbackTx() error {
	if database.tx == nil {
		panic("no transaction running")
	}
	err := database.tx.Rollback()
	database.tx = nil
	if err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// execer lets writes join a running transaction transparently.
func (database *Database) execer() interface {
	Exec(query string, args ...any) (sql.Result, error)
} {
	if database.tx != nil {
		return database.tx
	}
	return database.db
}

func (database *Database) AddStatusEvent(evt status.Event) error {
	_, err := database.execer().Exec(
		"INSERT INTO status_event (machine_id, status_code, timestamp) VALUES (?, ?, ?)",
		evt.MachineID,
		evt.Code,
		evt.Time.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to add status event: %w", err)
	}
	return nil
}

// GetStatusEvents loads the imported D1 stream grouped by machine in
// its stored (per-machine chronological) order.
func (database *Database) GetStatusEvents() ([]status.Event, error) {
	rows, err := database.db.Query(
		"SELECT machine_id, status_code, timestamp FROM status_event ORDER BY machine_id, rowid")
	if err != nil {
		return []status.Event{}, fmt.Errorf("failed to fetch status events: %w", err)
	}
	ans := make([]status.Event, 0, 500)
	for rows.Next() {
		var evt status.Event
		var tstamp int64
		if err := rows.Scan(&evt.MachineID, &evt.Code, &tstamp); err != nil {
			return []status.Event{}, fmt.Errorf("failed to fetch status events: %w", err)
		}
		evt.Time = time.UnixMicro(tstamp).UTC()
		ans = append(ans, evt)
	}
	return ans, nil
}

func (database *Database) AddRawReading(rec reading.Raw) error {
	values, err := json.Marshal(rec.Values)
	if err != nil {
		return fmt.Errorf("failed to add raw reading: %w", err)
	}
	_, err = database.execer().Exec(
		"INSERT OR REPLACE INTO raw_reading "+
			"(id, device_name, timestamp, variable, lower_limit, upper_limit, "+
			"nominal_value, unit, cavity, part_number, tool_number, value_array) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		IdempotentID(rec.Time, rec.DeviceName, rec.Variable),
		rec.DeviceName,
		rec.Time.UnixMicro(),
		rec.Variable,
		rec.LowerLimit,
		rec.UpperLimit,
		rec.NominalValue,
		rec.Unit,
		rec.Cavity,
		rec.PartNumber,
		rec.ToolNumber,
		string(values),
	)
	if err != nil {
		return fmt.Errorf("failed to add raw reading: %w", err)
	}
	return nil
}

// GetRawReadings loads all imported D2 records. No ordering is
// guaranteed - consumers must sort by machine and time themselves.
func (database *Database) GetRawReadings() ([]reading.Raw, error) {
	rows, err := database.db.Query(
		"SELECT device_name, timestamp, variable, lower_limit, upper_limit, " +
			"nominal_value, unit, cavity, part_number, tool_number, value_array " +
			"FROM raw_reading")
	if err != nil {
		return []reading.Raw{}, fmt.Errorf("failed to fetch raw readings: %w", err)
	}
	ans := make([]reading.Raw, 0, 500)
	for rows.Next() {
		var rec reading.Raw
		var tstamp int64
		var values string
		var cavity, partNumber, toolNumber sql.NullString
		err := rows.Scan(
			&rec.DeviceName,
			&tstamp,
			&rec.Variable,
			&rec.LowerLimit,
			&rec.UpperLimit,
			&rec.NominalValue,
			&rec.Unit,
			&cavity,
			&partNumber,
			&toolNumber,
			&values,
		)
		if err != nil {
			return []reading.Raw{}, fmt.Errorf("failed to fetch raw readings: %w", err)
		}
		rec.Time = time.UnixMicro(tstamp).UTC()
		rec.Cavity = cavity.String
		rec.PartNumber = partNumber.String
		rec.ToolNumber = toolNumber.String
		if err := json.Unmarshal([]byte(values), &rec.Values); err != nil {
			return []reading.Raw{}, fmt.Errorf("failed to fetch raw readings: %w", err)
		}
		ans = append(ans, rec)
	}
	return ans, nil
}

func (database *Database) AddWindow(rec WindowRecord) error {
	_, err := database.execer().Exec(
		"INSERT OR REPLACE INTO production_window (id, machine_id, start_time, end_time, batch_id) "+
			"VALUES (?, ?, ?, ?, ?)",
		IdempotentID(rec.Start, rec.MachineID),
		rec.MachineID,
		rec.Start.UnixMicro(),
		rec.End.UnixMicro(),
		rec.BatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to add production window: %w", err)
	}
	return nil
}

func (database *Database) AddResult(rec ResultRecord) error {
	_, err := database.execer().Exec(
		"INSERT OR REPLACE INTO anomaly_result "+
			"(id, machine_id, variable, timestamp, summary, lower_limit, upper_limit, "+
			"anomalous, severity, reason, batch_id) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		IdempotentID(rec.Time, rec.MachineID, rec.Variable),
		rec.MachineID,
		rec.Variable,
		rec.Time.UnixMicro(),
		rec.Summary,
		rec.LowerLimit,
		rec.UpperLimit,
		rec.Anomalous,
		rec.Severity,
		rec.Reason,
		rec.BatchID,
	)
	if err != nil {
		return fmt.Errorf("failed to add anomaly result: %w", err)
	}
	return nil
}

// GetResults loads stored anomaly results matching the filter,
// ordered by machine, variable and time.
func (database *Database) GetResults(filter ListFilter) ([]ResultRecord, error) {
	query := "SELECT id, machine_id, variable, timestamp, summary, lower_limit, upper_limit, " +
		"anomalous, severity, reason, batch_id " +
		"FROM anomaly_result WHERE %s ORDER BY machine_id, variable, timestamp"
	whereChunks := make([]string, 0, 5)
	whereArgs := make([]any, 0, 5)
	whereChunks = append(whereChunks, "1 = 1")
	if filter.MachineID != nil {
		whereChunks = append(whereChunks, "machine_id = ?")
		whereArgs = append(whereArgs, *filter.MachineID)
	}
	if filter.Variable != nil {
		whereChunks = append(whereChunks, "variable = ?")
		whereArgs = append(whereArgs, *filter.Variable)
	}
	if filter.OnlyAnomalous != nil && *filter.OnlyAnomalous {
		whereChunks = append(whereChunks, "anomalous = 1")
	}
	if filter.From != nil {
		whereChunks = append(whereChunks, "timestamp >= ?")
		whereArgs = append(whereArgs, filter.From.UnixMicro())
	}
	if filter.To != nil {
		whereChunks = append(whereChunks, "timestamp <= ?")
		whereArgs = append(whereArgs, filter.To.UnixMicro())
	}
	if filter.BatchID != nil {
		whereChunks = append(whereChunks, "batch_id = ?")
		whereArgs = append(whereArgs, *filter.BatchID)
	}
	rows, err := database.db.Query(
		fmt.Sprintf(query, strings.Join(whereChunks, " AND ")), whereArgs...)
	if err != nil {
		return []ResultRecord{}, fmt.Errorf("failed to fetch results: %w", err)
	}
	ans := make([]ResultRecord, 0, 500)
	for rows.Next() {
		var rec ResultRecord
		var tstamp int64
		var reason sql.NullString
		err := rows.Scan(
			&rec.ID,
			&rec.MachineID,
			&rec.Variable,
			&tstamp,
			&rec.Summary,
			&rec.LowerLimit,
			&rec.UpperLimit,
			&rec.Anomalous,
			&rec.Severity,
			&reason,
			&rec.BatchID,
		)
		if err != nil {
			return []ResultRecord{}, fmt.Errorf("failed to fetch results: %w", err)
		}
		rec.Time = time.UnixMicro(tstamp).UTC()
		rec.Reason = reason.String
		ans = append(ans, rec)
	}
	return ans, nil
}

// GetFilterValues collects distinct values of the searchable metadata
// columns for the API filters endpoint.
func (database *Database) GetFilterValues() (map[string][]string, error) {
	ans := make(map[string][]string)
	for col, query := range map[string]string{
		"machine_id":  "SELECT DISTINCT machine_id FROM anomaly_result ORDER BY machine_id",
		"part_number": "SELECT DISTINCT part_number FROM raw_reading WHERE part_number != '' ORDER BY part_number",
		"tool_number": "SELECT DISTINCT tool_number FROM raw_reading WHERE tool_number != '' ORDER BY tool_number",
	} {
		rows, err := database.db.Query(query)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch filter values: %w", err)
		}
		vals := make([]string, 0, 10)
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, fmt.Errorf("failed to fetch filter values: %w", err)
			}
			vals = append(vals, v)
		}
		ans[col] = vals
	}
	return ans, nil
}

func NewDatabase(path string) (*Database, error) {
	dbConn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open working database: %w", err)
	}
	return &Database{db: dbConn}, nil
}
