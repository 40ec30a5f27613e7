package store

import "time"

// ResultRecord is a stored anomaly detection result.
type ResultRecord struct {

	// ID is an idempotent identifier derived from machine, variable
	// and timestamp so that re-running a batch over the same data
	// replaces rather than duplicates results.
	ID string

	MachineID string

	Variable string

	// Time is the measurement time of the underlying reading
	// (not the detection time)
	Time time.Time

	// Summary is the outlier-robust mean of the reading's value array
	Summary float64

	LowerLimit float64

	UpperLimit float64

	Anomalous bool

	Severity string

	Reason string

	// BatchID identifies the pipeline run which produced the record
	BatchID string
}

// WindowRecord is a stored production window. Windows are kept mostly
// for auditing - the join works from the in-memory WindowSet.
type WindowRecord struct {
	ID        string
	MachineID string
	Start     time.Time
	End       time.Time
	BatchID   string
}
