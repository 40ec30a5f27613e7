package dataimport

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
)

// HistorianResult carries one reading (or a scan error) out of the
// historian fetch goroutine.
type HistorianResult struct {
	Reading reading.Raw
	Error   error
}

// Historian fetches raw camera readings from the plant historian
// MySQL database - the authoritative long-term source when no file
// export is at hand.
type Historian struct {
	conn  *sql.DB
	table string
}

func (h *Historian) Close() error {
	if h.conn != nil {
		return h.conn.Close()
	}
	return nil
}

// FetchReadings streams readings measured between fromDate and toDate.
// The channel is closed when the result set is exhausted or a scan
// error was emitted.
func (h *Historian) FetchReadings(
	ctx context.Context,
	fromDate, toDate time.Time,
) (chan HistorianResult, error) {
	rows, err := h.conn.QueryContext(
		ctx,
		fmt.Sprintf(
			"SELECT device_name, measured_at, variable, lower_limit, upper_limit, "+
				"nominal_value, unit, cavity, part_number, tool_number, value_array "+
				"FROM %s WHERE measured_at BETWEEN ? AND ?", h.table),
		fromDate,
		toDate,
	)
	ans := make(chan HistorianResult, 100)
	if err != nil {
		return ans, fmt.Errorf("failed to fetch historian readings: %w", err)
	}
	go func() {
		defer close(ans)
		defer rows.Close()
		for rows.Next() {
			var rec reading.Raw
			var values string
			var cavity, partNumber, toolNumber sql.NullString
			err := rows.Scan(
				&rec.DeviceName,
				&rec.Time,
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
				ans <- HistorianResult{Error: err}
				return
			}
			rec.Cavity = cavity.String
			rec.PartNumber = partNumber.String
			rec.ToolNumber = toolNumber.String
			if err := json.Unmarshal([]byte(values), &rec.Values); err != nil {
				ans <- HistorianResult{Error: err}
				return
			}
			ans <- HistorianResult{Reading: rec}
		}
	}()
	return ans, nil
}

// ImportFromHistorian drains the historian into the working database.
// Readings failing to decode are counted and skipped.
func ImportFromHistorian(
	ctx context.Context,
	h *Historian,
	conf *cnf.Conf,
	fromDate, toDate time.Time,
) (Report, error) {
	var report Report
	db, err := store.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		return report, fmt.Errorf("failed to import from historian: %w", err)
	}
	if err := db.Init(); err != nil {
		return report, fmt.Errorf("failed to import from historian: %w", err)
	}
	if err := db.StartTx(); err != nil {
		return report, fmt.Errorf("failed to import from historian: %w", err)
	}
	results, err := h.FetchReadings(ctx, fromDate, toDate)
	if err != nil {
		db.RollbackTx()
		return report, fmt.Errorf("failed to import from historian: %w", err)
	}
	for res := range results {
		if res.Error != nil {
			log.Error().Err(res.Error).Msg("failed to decode historian reading, skipping")
			report.NumSkipped++
			continue
		}
		if err := db.AddRawReading(res.Reading); err != nil {
			db.RollbackTx()
			return report, fmt.Errorf("failed to import from historian: %w", err)
		}
		report.NumImported++
	}
	if err := db.CommitTx(); err != nil {
		return report, err
	}
	log.Info().
		Int("numImported", report.NumImported).
		Int("numSkipped", report.NumSkipped).
		Msg("historian import finished")
	return report, nil
}

func NewHistorian(conf cnf.HistorianDBConf) (*Historian, error) {
	mconf := mysql.NewConfig()
	mconf.Net = "tcp"
	mconf.Addr = conf.Host
	mconf.User = conf.User
	mconf.Passwd = conf.Passwd
	mconf.DBName = conf.Name
	mconf.ParseTime = true
	mconf.Loc = time.Local
	db, err := sql.Open("mysql", mconf.FormatDSN())
	if err != nil {
		return nil, err
	}
	table := conf.Table
	if table == "" {
		table = "camera_reading"
	}
	return &Historian{
		conn:  db,
		table: table,
	}, nil
}
