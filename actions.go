package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OmkarTanajiPatil/TEAICup/apiserver"
	"github.com/OmkarTanajiPatil/TEAICup/cnf"
	"github.com/OmkarTanajiPatil/TEAICup/dataimport"
	"github.com/OmkarTanajiPatil/TEAICup/devmap"
	"github.com/OmkarTanajiPatil/TEAICup/index"
	"github.com/OmkarTanajiPatil/TEAICup/pipeline"
	"github.com/OmkarTanajiPatil/TEAICup/store"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
)

const (
	errColor = color.FgHiRed
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runStatusImport(conf *cnf.Conf, path string) {
	ctx, stop := signalContext()
	defer stop()
	report, err := dataimport.ImportStatusLog(ctx, conf, path)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	fmt.Printf("imported %d status events (%d skipped)\n", report.NumImported, report.NumSkipped)
}

func runReadingsImport(conf *cnf.Conf, path string) {
	ctx, stop := signalContext()
	defer stop()
	report, err := dataimport.ImportReadings(ctx, conf, path)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	fmt.Printf("imported %d readings (%d skipped)\n", report.NumImported, report.NumSkipped)
}

func runHistorianImport(conf *cnf.Conf, fromDate, toDate string) {
	ctx, stop := signalContext()
	defer stop()
	var from, to time.Time
	var err error
	if fromDate != "" {
		from, err = time.Parse(time.RFC3339, fromDate)
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorGeneralFailure)
		}
	}
	if toDate != "" {
		to, err = time.Parse(time.RFC3339, toDate)
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorGeneralFailure)
		}
	}
	h, err := dataimport.NewHistorian(conf.HistorianDB)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	defer h.Close()
	report, err := dataimport.ImportFromHistorian(ctx, h, conf, from, to)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorImportFailed)
	}
	fmt.Printf("imported %d readings (%d skipped)\n", report.NumImported, report.NumSkipped)
}

func runDetect(conf *cnf.Conf) {
	ctx, stop := signalContext()
	defer stop()
	db, err := store.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToOpenWorkingDB)
	}
	if err := db.Init(); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToOpenWorkingDB)
	}
	dm, err := devmap.Load(conf.DeviceMapPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToOpenDeviceMap)
	}
	var idx *index.DB
	if conf.IndexDataPath != "" {
		idx, err = index.OpenDB(conf.IndexDataPath)
		if err != nil {
			color.New(errColor).Fprintln(os.Stderr, err)
			os.Exit(exitErrorFailedToOpenIndex)
		}
		defer idx.Close()

	} else {
		log.Warn().Msg("indexDataPath not set - sample series will not be indexed")
	}
	report, err := pipeline.Run(ctx, conf, db, idx, dm)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorDetectionFailed)
	}
	fmt.Println("----------------------------------------------------")
	fmt.Println("batch: ", report.BatchID)
	fmt.Println("machines: ", report.NumMachines)
	fmt.Println("production windows: ", report.NumWindows)
	fmt.Println("processed samples: ", report.NumProcessed)
	fmt.Println("skipped records: ", report.NumSkipped)
	fmt.Println("anomalous samples: ", report.NumAnomalous)
	fmt.Println("----------------------------------------------------")
}

func runServer(conf *cnf.Conf, version apiserver.VersionInfo) {
	ctx, stop := signalContext()
	defer stop()
	db, err := store.NewDatabase(conf.WorkingDBPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToOpenWorkingDB)
	}
	if err := db.Init(); err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToOpenWorkingDB)
	}
	idx, err := index.OpenDB(conf.IndexDataPath)
	if err != nil {
		color.New(errColor).Fprintln(os.Stderr, err)
		os.Exit(exitErrorFailedToOpenIndex)
	}
	defer idx.Close()
	apiserver.Run(ctx, conf, version, db, idx)
}
