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

// Package dataimport brings the two source streams into the working
// database: the machine-status metadata (D1) and the raw camera
// readings (D2). Sources are JSONL dumps - local files or s3:// URLs -
// or, for readings, the plant historian MySQL database.
package dataimport

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// readings with 100-value arrays produce long lines
const scanBufferCapacity = 1024 * 1024

func convertDatetimeStringWithMillisNoTZ(datetime string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05.000000", datetime)
	if err == nil {
		return t
	}
	log.Warn().Msgf("%s", err)
	return time.Time{}
}

func convertDatetimeStringWithMillis(datetime string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05.000000-07:00", datetime)
	if err == nil {
		return t
	}
	log.Warn().Msgf("%s", err)
	return time.Time{}
}

// convertExportDatetime handles both timestamp flavors found in the
// plant exports (with and without a zone offset).
func convertExportDatetime(datetime string) time.Time {
	if len(datetime) == 0 {
		return time.Time{}
	}
	if datetime[len(datetime)-1] == 'Z' {
		return convertDatetimeStringWithMillisNoTZ(datetime[:len(datetime)-1])
	}
	return convertDatetimeStringWithMillis(datetime)
}

// --------

type ConcurrentErr struct {
	lock  sync.Mutex
	items []error
}

func (cerr *ConcurrentErr) Add(err error) {
	cerr.lock.Lock()
	cerr.items = append(cerr.items, err)
	cerr.lock.Unlock()
}

func (cerr *ConcurrentErr) LastErr() error {
	if len(cerr.items) > 0 {
		return cerr.items[0]
	}
	return nil
}

// --------

// Report summarizes an import run. Per-line failures never abort the
// import, they are just counted here.
type Report struct {
	NumImported int
	NumSkipped  int
}
