package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/app"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/config"
	"github.com/stitts-dev/nhl-cortex/pkg/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: ingest [-date YYYY-MM-DD] projections|results|injuries")
	flag.PrintDefaults()
}

func main() {
	date := flag.String("date", "", "game date (projections default to today, results to yesterday)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	job := flag.Arg(0)
	switch job {
	case services.JobProjections, services.JobResults, services.JobInjuries:
	default:
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	jobLog := logger.WithJob(job, uuid.NewString())
	jobLog.Info("Job started")

	var report interface{}
	switch job {
	case services.JobProjections:
		report, err = a.Ingest.Run(ctx, *date)
	case services.JobResults:
		report, err = a.Results.Run(ctx, *date)
	case services.JobInjuries:
		if *date != "" {
			jobLog.Warn("-date is ignored for injuries")
		}
		report, err = a.Injuries.Run(ctx)
	}

	if err != nil {
		jobLog.WithField("nhl_breaker", a.NHL.BreakerState().String()).Errorf("Job failed: %v", err)
		a.Close()
		os.Exit(1)
	}
	jobLog.WithField("report", report).Info("Job completed")
}
