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

package cnf

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	dfltServerReadTimeoutSecs  = 10
	dfltServerWriteTimeoutSecs = 30
	dfltTimeZone               = "Europe/Prague"
	dfltIQRFactor              = 1.5
	dfltProductionStatusCode   = 200
)

// HistorianDBConf describes a connection to the plant historian
// MySQL database used as an alternative source of raw camera readings.
// User and Passwd may be left empty in the config file and provided
// via the TEAICUP_HISTORIAN_USER / TEAICUP_HISTORIAN_PASSWD environment
// variables (or an .env file next to the config).
type HistorianDBConf struct {
	Host   string `json:"host"`
	User   string `json:"user"`
	Passwd string `json:"passwd"`
	Name   string `json:"db"`
	Table  string `json:"table"`
}

// ObjStorageConf configures access to an S3-compatible object storage
// where raw readings dumps may be fetched from (s3://bucket/key sources).
type ObjStorageConf struct {
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	UseSSL    bool   `json:"useSsl"`
}

type Conf struct {
	srcPath                string
	Logging                logging.LoggingConf `json:"logging"`
	ListenAddress          string              `json:"listenAddress"`
	ListenPort             int                 `json:"listenPort"`
	ServerReadTimeoutSecs  int                 `json:"serverReadTimeoutSecs"`
	ServerWriteTimeoutSecs int                 `json:"serverWriteTimeoutSecs"`
	CorsAllowedOrigins     []string            `json:"corsAllowedOrigins"`
	TimeZone               string              `json:"timeZone"`

	// WorkingDBPath is a path to the sqlite3 database with imported
	// status events, raw readings and detection results
	WorkingDBPath string `json:"workingDbPath"`

	// IndexDataPath is a path to the Badger database with the
	// per-variable sample series index
	IndexDataPath string `json:"indexDataPath"`

	// DeviceMapPath points to the versioned device-to-machine lookup
	// table (a standalone JSON artifact, never derived from data)
	DeviceMapPath string `json:"deviceMapPath"`

	HistorianDB HistorianDBConf `json:"historianDb"`
	ObjStorage  ObjStorageConf  `json:"objStorage"`

	// ProductionStatusCode is a machine status code interpreted as
	// active production. The stamping line reports 200.
	ProductionStatusCode int `json:"productionStatusCode"`

	// IQRFactor is a multiple of the interquartile range beyond which
	// individual values of a reading are excluded from the mean
	IQRFactor float64 `json:"iqrFactor"`
}

func (conf *Conf) GetSourcePath() string {
	return conf.srcPath
}

func (conf *Conf) TimezoneLocation() *time.Location {
	// the value is validated in ValidateAndDefaults so we can
	// ignore the error here
	loc, _ := time.LoadLocation(conf.TimeZone)
	return loc
}

func LoadConfig(path string) *Conf {
	if path == "" {
		log.Fatal().Msg("Cannot load config - path not specified")
	}
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("loaded additional environment from .env file")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	var conf Conf
	conf.srcPath = path
	err = json.Unmarshal(rawData, &conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	if v := os.Getenv("TEAICUP_HISTORIAN_USER"); v != "" {
		conf.HistorianDB.User = v
	}
	if v := os.Getenv("TEAICUP_HISTORIAN_PASSWD"); v != "" {
		conf.HistorianDB.Passwd = v
	}
	return &conf
}

func ValidateAndDefaults(conf *Conf) {
	if conf.WorkingDBPath == "" {
		log.Fatal().Msg("workingDbPath not specified")
	}
	if conf.DeviceMapPath == "" {
		log.Fatal().Msg("deviceMapPath not specified")
	}
	if conf.ServerReadTimeoutSecs == 0 {
		conf.ServerReadTimeoutSecs = dfltServerReadTimeoutSecs
		log.Warn().Msgf(
			"serverReadTimeoutSecs not specified, using default: %d",
			dfltServerReadTimeoutSecs,
		)
	}
	if conf.ServerWriteTimeoutSecs == 0 {
		conf.ServerWriteTimeoutSecs = dfltServerWriteTimeoutSecs
		log.Warn().Msgf(
			"serverWriteTimeoutSecs not specified, using default: %d",
			dfltServerWriteTimeoutSecs,
		)
	}
	if conf.TimeZone == "" {
		conf.TimeZone = dfltTimeZone
		log.Warn().
			Str("timeZone", dfltTimeZone).
			Msg("time zone not specified, using default")
	}
	if _, err := time.LoadLocation(conf.TimeZone); err != nil {
		log.Fatal().Err(err).Msg("invalid time zone")
	}
	if conf.ProductionStatusCode == 0 {
		conf.ProductionStatusCode = dfltProductionStatusCode
		log.Warn().Msgf(
			"productionStatusCode not specified, using default: %d",
			dfltProductionStatusCode,
		)
	}
	if conf.IQRFactor == 0 {
		conf.IQRFactor = dfltIQRFactor
		log.Warn().Msgf("iqrFactor not specified, using default: %01.1f", dfltIQRFactor)
	}
	if conf.IQRFactor < 0 {
		log.Fatal().Msg(fmt.Sprintf("invalid iqrFactor: %01.2f", conf.IQRFactor))
	}
}
