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

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OmkarTanajiPatil/TEAICup/apiserver"
	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/czcorpus/cnc-gokit/logging"
)

const (
	actionStatusImport    = "status-import"
	actionReadingsImport  = "readings-import"
	actionHistorianImport = "historian-import"
	actionDetect          = "detect"
	actionServer          = "server"
	actionREPL            = "repl"
	actionVersion         = "version"
	actionHelp            = "help"

	exitErrorGeneralFailure = iota
	exitErrorImportFailed
	exitErrorDetectionFailed
	exitErrorREPLReading
	exitErrorFailedToOpenIndex
	exitErrorFailedToOpenWorkingDB
	exitErrorFailedToOpenDeviceMap
)

var (
	version   string
	buildDate string
	gitCommit string
)

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "TEAICup - a stamping line anomaly detection tool\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\t%s\timport a machine status log (JSONL)\n", actionStatusImport)
	fmt.Fprintf(os.Stderr, "\t%s\timport a camera readings export (JSONL, local or s3://)\n", actionReadingsImport)
	fmt.Fprintf(os.Stderr, "\t%s\timport camera readings from the plant historian DB\n", actionHistorianImport)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\trun the detection batch over imported data\n", actionDetect)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\trun the dashboard API server\n", actionServer)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tinteractive data browser\n", actionREPL)
	fmt.Fprintf(os.Stderr, "\nUse `teaicup help ACTION` for information about a specific action\n\n")
}

func setup(confPath string) *cnf.Conf {
	conf := cnf.LoadConfig(confPath)
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	cnf.ValidateAndDefaults(conf)
	return conf
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func runActionVersion(ver apiserver.VersionInfo) {
	fmt.Fprintln(os.Stderr, "TEAICup version: ", ver)
}

func main() {
	version := apiserver.VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdVersion.Usage = func() {
		cmdVersion.PrintDefaults()
	}

	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)
	cmdHelp.Usage = func() {
		cmdHelp.PrintDefaults()
	}

	cmdStatusImport := flag.NewFlagSet(actionStatusImport, flag.ExitOnError)
	cmdStatusImport.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json data.jsonl\n",
			filepath.Base(os.Args[0]), actionStatusImport)
		cmdStatusImport.PrintDefaults()
	}

	cmdReadingsImport := flag.NewFlagSet(actionReadingsImport, flag.ExitOnError)
	cmdReadingsImport.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json (data.jsonl|s3://bucket/key)\n",
			filepath.Base(os.Args[0]), actionReadingsImport)
		cmdReadingsImport.PrintDefaults()
	}

	cmdHistorianImport := flag.NewFlagSet(actionHistorianImport, flag.ExitOnError)
	histFromDate := cmdHistorianImport.String(
		"from-date", "", "read historian records starting from the specified date (RFC 3339)")
	histToDate := cmdHistorianImport.String(
		"to-date", "", "read historian records up to the specified date (RFC 3339)")
	cmdHistorianImport.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json\n",
			filepath.Base(os.Args[0]), actionHistorianImport)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdHistorianImport.PrintDefaults()
	}

	cmdDetect := flag.NewFlagSet(actionDetect, flag.ExitOnError)
	cmdDetect.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n",
			filepath.Base(os.Args[0]), actionDetect)
		cmdDetect.PrintDefaults()
	}

	cmdServer := flag.NewFlagSet(actionServer, flag.ExitOnError)
	cmdServer.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n",
			filepath.Base(os.Args[0]), actionServer)
		cmdServer.PrintDefaults()
	}

	cmdREPL := flag.NewFlagSet(actionREPL, flag.ExitOnError)
	cmdREPL.Usage = func() {
		cmdREPL.PrintDefaults()
	}

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		if subj == "" {
			topLevelUsage()
			return
		}
		switch subj {
		case actionStatusImport:
			cmdStatusImport.Usage()
		case actionReadingsImport:
			cmdReadingsImport.Usage()
		case actionHistorianImport:
			cmdHistorianImport.Usage()
		case actionDetect:
			cmdDetect.Usage()
		case actionServer:
			cmdServer.Usage()
		case actionREPL:
			cmdREPL.PrintDefaults()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionStatusImport:
		cmdStatusImport.Parse(os.Args[2:])
		conf := setup(cmdStatusImport.Arg(0))
		runStatusImport(conf, cmdStatusImport.Arg(1))
	case actionReadingsImport:
		cmdReadingsImport.Parse(os.Args[2:])
		conf := setup(cmdReadingsImport.Arg(0))
		runReadingsImport(conf, cmdReadingsImport.Arg(1))
	case actionHistorianImport:
		cmdHistorianImport.Parse(os.Args[2:])
		conf := setup(cmdHistorianImport.Arg(0))
		runHistorianImport(conf, *histFromDate, *histToDate)
	case actionDetect:
		cmdDetect.Parse(os.Args[2:])
		conf := setup(cmdDetect.Arg(0))
		runDetect(conf)
	case actionServer:
		cmdServer.Parse(os.Args[2:])
		conf := setup(cmdServer.Arg(0))
		runServer(conf, version)
	case actionREPL:
		cmdREPL.Parse(os.Args[2:])
		conf := setup(cmdREPL.Arg(0))
		runActionREPL(conf)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information")
	}
}
