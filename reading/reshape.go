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

package reading

import (
	"fmt"
	"math"
	"sort"
)

// DefaultIQRFactor is the default multiple of the interquartile range
// beyond which a value is treated as a corrupt sample. Single corrupt
// camera samples would otherwise skew the mean far outside the
// tolerance band.
const DefaultIQRFactor = 1.5

// NoValidSamplesError is reported when every value of a reading was
// excluded as an outlier. Emitting a mean of nothing (NaN) would
// silently poison the tolerance check downstream.
type NoValidSamplesError struct {
	Variable  string
	NumValues int
}

func (err NoValidSamplesError) Error() string {
	return fmt.Sprintf(
		"no valid samples for variable %s (%d values, all excluded)",
		err.Variable, err.NumValues,
	)
}

// quantile returns the q-quantile of sorted using linear interpolation
// between closest ranks. sorted must be non-empty and ascending.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// ExcludeOutliers drops non-finite values (NaN, Inf - corrupt camera
// samples) and values lying outside [Q1 - factor*IQR, Q3 + factor*IQR].
// With a non-positive factor only the finiteness filter applies.
// The exclusion is deliberately a separate step from the mean so it can
// be tested (and replaced) on its own.
func ExcludeOutliers(values []float64, factor float64) []float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if factor <= 0 || len(finite) < 4 {
		// quartiles of fewer than 4 values are not meaningful
		return finite
	}
	sorted := make([]float64, len(finite))
	copy(sorted, finite)
	sort.Float64s(sorted)
	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lo := q1 - factor*iqr
	hi := q3 + factor*iqr
	ans := make([]float64, 0, len(finite))
	for _, v := range finite {
		if v >= lo && v <= hi {
			ans = append(ans, v)
		}
	}
	return ans
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// Reshape collapses a normalized reading into a VariableSample:
// the composite bundle is split into scalar fields and the value array
// is replaced by its mean over the outlier-filtered values.
func Reshape(rec Normalized, iqrFactor float64) (VariableSample, error) {
	if len(rec.Values) == 0 {
		return VariableSample{}, NoValidSamplesError{
			Variable:  rec.Variable,
			NumValues: 0,
		}
	}
	kept := ExcludeOutliers(rec.Values, iqrFactor)
	if len(kept) == 0 {
		return VariableSample{}, NoValidSamplesError{
			Variable:  rec.Variable,
			NumValues: len(rec.Values),
		}
	}
	return VariableSample{
		MachineID:   rec.MachineID,
		Time:        rec.Time,
		Variable:    rec.Variable,
		Summary:     mean(kept),
		LowerLimit:  rec.LowerLimit,
		UpperLimit:  rec.UpperLimit,
		Unit:        rec.Unit,
		Cavity:      rec.Cavity,
		PartNumber:  rec.PartNumber,
		ToolNumber:  rec.ToolNumber,
		NumExcluded: len(rec.Values) - len(kept),
	}, nil
}
