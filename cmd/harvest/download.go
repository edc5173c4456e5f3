package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PlanHarvest/internal/database"
	"github.com/dharsanguruparan/PlanHarvest/internal/downloader"
	"github.com/dharsanguruparan/PlanHarvest/internal/httpclient"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	pdfutil "github.com/dharsanguruparan/PlanHarvest/internal/pdf"
	"github.com/dharsanguruparan/PlanHarvest/internal/repository"
	"github.com/dharsanguruparan/PlanHarvest/internal/s3storage"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		catalogPath  string
		out          string
		kinds        []string
		maxDownloads int
		overwrite    bool
		delay        time.Duration
		timeout      time.Duration
		failureLog   string
		noFailureLog bool
		verifyPDF    bool
		mirror       bool
		recordDB     bool
	)
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the documents listed in a catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			fileKinds, err := model.ParseFileKinds(kinds)
			if err != nil {
				return err
			}
			runID := uuid.NewString()
			log := a.log.With(logger.String("run_id", runID), logger.String("command", "download"))

			cfg := downloader.Config{
				OutputDir:  out,
				Kinds:      fileKinds,
				Overwrite:  overwrite,
				Max:        maxDownloads,
				Delay:      delay,
				Timeout:    timeout,
				FailureLog: failureLog,
				RunID:      runID,
			}
			if noFailureLog {
				cfg.FailureLog = ""
			}
			if verifyPDF {
				cfg.VerifyPDF = pdfutil.Verify
			}
			if mirror {
				if !a.cfg.MirrorEnabled() {
					return errors.New("mirror: HARVEST_S3_ENDPOINT and HARVEST_S3_BUCKET must be set")
				}
				store, err := s3storage.New(a.cfg)
				if err != nil {
					return err
				}
				if err := store.EnsureBucket(ctx); err != nil {
					return err
				}
				cfg.Mirror = store
			}
			if recordDB {
				if a.cfg.DatabaseURL == "" {
					return errors.New("record outcomes: HARVEST_DATABASE_URL is not set")
				}
				pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("connect database: %w", err)
				}
				defer pool.Close()
				if err := database.EnsureSchema(ctx, pool); err != nil {
					return err
				}
				cfg.Recorder = repository.NewCatalogRepository(pool)
			}

			d := downloader.New(httpclient.NewClient(a.cfg.UserAgent), cfg, log, a.metrics)
			stats, err := d.DownloadAll(ctx, catalogPath)
			if err != nil && stats.Total == 0 {
				return err
			}
			stats.Summary(a.stdout, d.OutputDir())
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&catalogPath, "catalog", "c", a.cfg.CatalogPath, "Catalog CSV to read")
	f.StringVarP(&out, "out", "o", a.cfg.DownloadDir, "Directory to download into")
	f.StringSliceVar(&kinds, "kinds", a.cfg.Kinds, "Only download these file kinds (pdf,image,html,doc,landing,unknown)")
	f.IntVar(&maxDownloads, "max", 0, "Stop after this many downloads (0 means no limit)")
	f.BoolVar(&overwrite, "overwrite", false, "Refetch files that already exist")
	f.DurationVar(&delay, "delay", a.cfg.DownloadDelay, "Pause after each attempted download")
	f.DurationVar(&timeout, "timeout", downloader.DefaultTimeout, "Per-file download timeout")
	f.StringVar(&failureLog, "failure-log", a.cfg.FailureLog, "CSV of failed downloads")
	f.BoolVar(&noFailureLog, "no-failure-log", false, "Do not write the failure log")
	f.BoolVar(&verifyPDF, "verify-pdf", a.cfg.VerifyPDF, "Reject PDF downloads that do not parse")
	f.BoolVar(&mirror, "mirror", a.cfg.MirrorEnabled(), "Copy downloaded files to object storage")
	f.BoolVar(&recordDB, "record-db", false, "Record every outcome in PostgreSQL")
	return cmd
}
