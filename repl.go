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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/devmap"
	"github.com/OmkarTanajiPatil/TEAICup/index"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

func ensureConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(homeDir, ".config", "teaicup")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}

func runActionREPL(conf *cnf.Conf) {
	db, err := store.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		fmt.Printf("Error opening working database: %v\n", err)
		os.Exit(exitErrorFailedToOpenWorkingDB)
	}
	if err := db.Init(); err != nil {
		fmt.Printf("Error opening working database: %v\n", err)
		os.Exit(exitErrorFailedToOpenWorkingDB)
	}
	dm, err := devmap.Load(conf.DeviceMapPath)
	if err != nil {
		fmt.Printf("Error loading device map: %v\n", err)
		os.Exit(exitErrorFailedToOpenDeviceMap)
	}
	var idx *index.DB
	if conf.IndexDataPath != "" {
		idx, err = index.OpenDB(conf.IndexDataPath)
		if err != nil {
			fmt.Printf("Error opening series index: %v\n", err)
			os.Exit(exitErrorFailedToOpenIndex)
		}
		defer idx.Close()
	}

	titleColor := color.New(color.FgHiMagenta).SprintFunc()
	greenColor := color.New(color.FgGreen).SprintFunc()
	redColor := color.New(color.FgRed).SprintFunc()

	// maximum number of printed rows (can be overridden with 'set limit <value>')
	limit := 20

	fmt.Println("TEAICup Data Browser")
	fmt.Println("Commands:")
	fmt.Println("  machines               - List known machines")
	fmt.Println("  vars <machine>         - List indexed variables of a machine")
	fmt.Println("  series <machine> <var> - Print the summary series of a variable")
	fmt.Println("  anomalies <machine>    - Print anomalous results of a machine")
	fmt.Println("  set limit <value>      - Set the maximum number of printed rows")
	fmt.Println("  setup                  - view current settings")
	fmt.Println("  exit                   - Exit REPL")
	fmt.Println()

	var historyFile string
	historyDir, err := ensureConfigDir()
	if err != nil {
		log.Error().Err(err).Msg("failed to determine user config directory - falling back to session-local history")

	} else {
		historyFile = filepath.Join(historyDir, "repl-history.txt")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:      color.New(color.FgHiGreen).Sprintf("/teai> "),
		HistoryFile: historyFile,
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		os.Exit(exitErrorREPLReading)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nTEAICup out!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" {
			fmt.Println("Goodbye!")
			break
		}
		if input == "setup" {
			fmt.Printf("%s:\t%d\n", titleColor("Row limit"), limit)
			fmt.Printf("%s:\t%s\n", titleColor("Working DB"), conf.WorkingDBPath)
			fmt.Printf("%s:\t%s\n", titleColor("Series index"), conf.IndexDataPath)
			continue
		}

		args := strings.Fields(input)
		switch args[0] {
		case "set":
			if len(args) == 3 && args[1] == "limit" {
				limit, err = strconv.Atoi(args[2])
				if err != nil {
					fmt.Println("Error: Invalid limit")
				}

			} else {
				fmt.Println("Usage: set limit <value>")
			}
		case "machines":
			for _, machineID := range dm.MachineIDs() {
				device, err := dm.DeviceFor(machineID)
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					continue
				}
				fmt.Printf("%s\t(device %s)\n", titleColor(machineID), device)
			}
		case "vars":
			if len(args) != 2 {
				fmt.Println("Usage: vars <machine>")
				continue
			}
			if idx == nil {
				fmt.Println("Error: series index not configured")
				continue
			}
			variables, err := idx.Variables(args[1])
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			for _, v := range variables {
				fmt.Println(v)
			}
		case "series":
			if len(args) != 3 {
				fmt.Println("Usage: series <machine> <var>")
				continue
			}
			if idx == nil {
				fmt.Println("Error: series index not configured")
				continue
			}
			samples, err := idx.ReadRange(args[1], args[2], time.Time{}, time.Time{})
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			for i, smp := range samples {
				if i >= limit {
					fmt.Printf("... (%d more)\n", len(samples)-limit)
					break
				}
				fmt.Printf("%s\t%01.4f %s\n",
					smp.Time.Format(time.RFC3339), smp.Summary, smp.Unit)
			}
		case "anomalies":
			if len(args) != 2 {
				fmt.Println("Usage: anomalies <machine>")
				continue
			}
			recs, err := db.GetResults(
				store.ListFilter{}.SetMachineID(args[1]).SetOnlyAnomalous(true))
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			if len(recs) == 0 {
				fmt.Println(greenColor("no anomalies found"))
				continue
			}
			for i, rec := range recs {
				if i >= limit {
					fmt.Printf("... (%d more)\n", len(recs)-limit)
					break
				}
				fmt.Printf("%s\t%s\t%01.4f [%01.4f, %01.4f]\t%s\n",
					rec.Time.Format(time.RFC3339),
					rec.Variable,
					rec.Summary,
					rec.LowerLimit,
					rec.UpperLimit,
					redColor(rec.Severity))
			}
		default:
			fmt.Println("Unknown command, type 'exit' to quit")
		}
	}
}
