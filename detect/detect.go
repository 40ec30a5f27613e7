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

// Package detect flags tolerance-limit violations. The limits embedded
// in each reading are authoritative ground truth, so the check is a
// plain deterministic comparison - no model, no smoothing, no
// hysteresis.
package detect

import (
	"fmt"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/join"
)

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"

	// criticalExcessRatio - a summary farther outside the band than
	// one band width is considered critical
	criticalExcessRatio = 1.0
)

// Result is the anomaly-labeled output record, one per
// (machine, variable, timestamp) inside a production window.
type Result struct {
	MachineID  string    `json:"machine_id"`
	Time       time.Time `json:"timestamp"`
	Variable   string    `json:"variable_name"`
	Summary    float64   `json:"summary_value"`
	LowerLimit float64   `json:"lower_limit"`
	UpperLimit float64   `json:"upper_limit"`
	Anomalous  bool      `json:"is_anomalous"`
	Severity   Severity  `json:"severity"`
	Reason     string    `json:"reason,omitempty"`
}

// Evaluate compares the record's summary value against its own
// tolerance limits. It is a pure function of
// (summary, lower limit, upper limit).
func Evaluate(rec join.Record) Result {
	smp := rec.Sample
	ans := Result{
		MachineID:  smp.MachineID,
		Time:       smp.Time,
		Variable:   smp.Variable,
		Summary:    smp.Summary,
		LowerLimit: smp.LowerLimit,
		UpperLimit: smp.UpperLimit,
		Severity:   SeverityNone,
	}
	var excess float64
	switch {
	case smp.Summary < smp.LowerLimit:
		excess = smp.LowerLimit - smp.Summary
		ans.Reason = fmt.Sprintf(
			"summary %01.4f below lower tolerance limit %01.4f %s",
			smp.Summary, smp.LowerLimit, smp.Unit,
		)
	case smp.Summary > smp.UpperLimit:
		excess = smp.Summary - smp.UpperLimit
		ans.Reason = fmt.Sprintf(
			"summary %01.4f above upper tolerance limit %01.4f %s",
			smp.Summary, smp.UpperLimit, smp.Unit,
		)
	default:
		return ans
	}
	ans.Anomalous = true
	ans.Severity = severityOf(excess, smp.UpperLimit-smp.LowerLimit)
	return ans
}

// severityOf grades a violation by how far the value lies outside the
// band relative to the band width. A degenerate band (width <= 0) makes
// any violation critical.
func severityOf(excess, bandWidth float64) Severity {
	if bandWidth <= 0 {
		return SeverityCritical
	}
	if excess/bandWidth >= criticalExcessRatio {
		return SeverityCritical
	}
	return SeverityWarning
}
