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

package apiserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/reading"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/czcorpus/cnc-gokit/unireq"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/gin-gonic/gin"
)

func (api *apiServer) handleVersion(ctx *gin.Context) {
	uniresp.WriteJSONResponse(ctx.Writer, api.version)
}

// handleFilters provides distinct values of the filterable attributes
// (machine, part number, tool number) for the dashboard select boxes.
func (api *apiServer) handleFilters(ctx *gin.Context) {
	vals, err := api.db.GetFilterValues()
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, vals)
}

// timeRangeArgs reads the optional from/to arguments given as unix
// timestamps (seconds). A zero value means unbounded.
func timeRangeArgs(ctx *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	fromArg, ok := unireq.GetURLIntArgOrFail(ctx, "from", 0)
	if !ok {
		return from, to, false
	}
	toArg, ok := unireq.GetURLIntArgOrFail(ctx, "to", 0)
	if !ok {
		return from, to, false
	}
	if fromArg > 0 {
		from = time.Unix(int64(fromArg), 0).UTC()
	}
	if toArg > 0 {
		to = time.Unix(int64(toArg), 0).UTC()
	}
	return from, to, true
}

// handleData serves the dashboard's main view: reshaped samples of one
// machine plus an average-vs-time series per variable. At least the
// machineId filter is required - an unfiltered dump of the whole index
// is never useful and may be huge.
func (api *apiServer) handleData(ctx *gin.Context) {
	machineID := ctx.Query("machineId")
	if machineID == "" {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("the machineId filter must be specified"), http.StatusBadRequest,
		)
		return
	}
	from, to, ok := timeRangeArgs(ctx)
	if !ok {
		return
	}
	variables := []string{}
	if v := ctx.Query("variable"); v != "" {
		variables = append(variables, v)

	} else {
		var err error
		variables, err = api.idx.Variables(machineID)
		if err != nil {
			uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
			return
		}
	}
	partNumber := ctx.Query("partNumber")
	toolNumber := ctx.Query("toolNumber")

	resp := dataResponse{
		Samples: make([]reading.VariableSample, 0, maxDataRows),
		Series:  make(map[string][]seriesPoint),
	}
	for _, variable := range variables {
		samples, err := api.idx.ReadRange(machineID, variable, from, to)
		if err != nil {
			uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
			return
		}
		for _, smp := range samples {
			if partNumber != "" && smp.PartNumber != partNumber {
				continue
			}
			if toolNumber != "" && smp.ToolNumber != toolNumber {
				continue
			}
			resp.Series[variable] = append(
				resp.Series[variable],
				seriesPoint{Time: smp.Time.Unix(), Value: smp.Summary},
			)
			if len(resp.Samples) < maxDataRows {
				resp.Samples = append(resp.Samples, smp)
			}
		}
	}
	uniresp.WriteJSONResponse(ctx.Writer, resp)
}

// handleAnomalies lists stored detection results of a machine,
// optionally restricted to a variable, a batch, a time range or to
// anomalous records only.
func (api *apiServer) handleAnomalies(ctx *gin.Context) {
	filter := store.ListFilter{}.SetMachineID(ctx.Param("machineId"))
	if v := ctx.Query("variable"); v != "" {
		filter = filter.SetVariable(v)
	}
	if v := ctx.Query("batchId"); v != "" {
		filter = filter.SetBatchID(v)
	}
	if v := ctx.Query("onlyAnomalous"); v == "1" || v == "true" {
		filter = filter.SetOnlyAnomalous(true)
	}
	from, to, ok := timeRangeArgs(ctx)
	if !ok {
		return
	}
	if !from.IsZero() {
		filter = filter.SetFrom(from)
	}
	if !to.IsZero() {
		filter = filter.SetTo(to)
	}
	recs, err := api.db.GetResults(filter)
	if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, recs)
}
