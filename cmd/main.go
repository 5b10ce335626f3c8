package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/storagesnap/s3-storage-report/internal/delta"
	"github.com/storagesnap/s3-storage-report/internal/mailer"
	"github.com/storagesnap/s3-storage-report/internal/metrics"
	"github.com/storagesnap/s3-storage-report/internal/report"
	"github.com/storagesnap/s3-storage-report/internal/scan"
	"github.com/storagesnap/s3-storage-report/internal/snap"
)

var cliFlags = []cli.Flag{
	&cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "path to the yaml config file",
		EnvVars:  []string{"CONFIG"},
		Required: true,
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "S3 Storage Report"
	app.Usage = "snapshot bucket usage and mail delta reports"
	app.Flags = cliFlags
	app.Commands = []*cli.Command{
		{
			Name:  "snapshot",
			Usage: "inventory all buckets and persist a snapshot",
			Action: func(cCtx *cli.Context) error {
				config, err := loadConfig(cCtx.String("config"))
				if err != nil {
					return err
				}
				return runSnapshot(cCtx.Context, config)
			},
		},
		{
			Name:  "report",
			Usage: "compare the two newest snapshots and mail the delta report",
			Action: func(cCtx *cli.Context) error {
				config, err := loadConfig(cCtx.String("config"))
				if err != nil {
					return err
				}
				return runReport(cCtx.Context, config)
			},
		},
		{
			Name:  "serve",
			Usage: "schedule snapshot and report runs and serve prometheus metrics",
			Action: func(cCtx *cli.Context) error {
				config, err := loadConfig(cCtx.String("config"))
				if err != nil {
					return err
				}
				return serve(cCtx.Context, config)
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func newScanner(config *Config) (scan.Scanner, error) {
	switch {
	case config.S3 != nil:
		return scan.NewS3Scanner(*config.S3)
	case config.Azure != nil:
		return scan.NewAzureInventoryScanner(*config.Azure), nil
	default:
		return nil, errors.New("no storage backend configured (s3 or azure)")
	}
}

func runSnapshot(ctx context.Context, config *Config) error {
	log.Print("starting inventory run")
	scanner, err := newScanner(config)
	if err != nil {
		return err
	}
	snapshot, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	store := snap.NewStore(config.SnapshotDir)
	name, err := store.Write(snapshot)
	if err != nil {
		return err
	}
	log.Printf("wrote snapshot %s (%d buckets)", name, len(snapshot.Buckets))
	return nil
}

func runReport(ctx context.Context, config *Config) error {
	log.Print("starting reporting run")
	store := snap.NewStore(config.SnapshotDir)
	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no snapshots found in: %s", config.SnapshotDir)
	}

	current, err := store.Read(names[0])
	if err != nil {
		return err
	}
	var previous *snap.Snapshot
	if len(names) >= 2 {
		if previous, err = store.Read(names[1]); err != nil {
			return err
		}
	}

	record, err := delta.Compare(current, previous)
	if err != nil {
		return err
	}
	doc := report.Render(record)

	if err := mailer.New(config.SMTP).Send(ctx, doc); err != nil {
		return fmt.Errorf("sending report: %w", err)
	}
	log.Printf("sent report: %s", doc.Summary)
	return nil
}

func serve(ctx context.Context, config *Config) error {
	store := snap.NewStore(config.SnapshotDir)
	updater := metrics.NewUpdater(store, config.Metrics)
	if err := updater.Update(); err != nil {
		log.Printf("initial metrics update failed: %v", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	_, err = scheduler.NewJob(
		gocron.CronJob(config.Schedule.SnapshotCron, false),
		gocron.NewTask(func() {
			if err := runSnapshot(ctx, config); err != nil {
				log.Printf("snapshot run failed: %v", err)
				return
			}
			if err := updater.Update(); err != nil {
				log.Printf("metrics update failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("scheduling snapshot job: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.CronJob(config.Schedule.ReportCron, false),
		gocron.NewTask(func() {
			if err := runReport(ctx, config); err != nil {
				log.Printf("reporting run failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("scheduling report job: %w", err)
	}
	scheduler.Start()
	defer func() {
		_ = scheduler.Shutdown()
	}()

	log.Printf("serving metrics on %s", config.Schedule.BindAddress)
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(config.Schedule.BindAddress, nil)
}
