package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PlanHarvest/internal/catalog"
	"github.com/dharsanguruparan/PlanHarvest/internal/classify"
	"github.com/dharsanguruparan/PlanHarvest/internal/crawler"
	"github.com/dharsanguruparan/PlanHarvest/internal/database"
	"github.com/dharsanguruparan/PlanHarvest/internal/httpclient"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/orgs"
	"github.com/dharsanguruparan/PlanHarvest/internal/registry"
	"github.com/dharsanguruparan/PlanHarvest/internal/repository"
)

func newCrawlCmd(a *app) *cobra.Command {
	var (
		out           string
		registryURL   string
		pageSize      int
		pageDelay     time.Duration
		orgDelay      time.Duration
		probeInterval time.Duration
		workers       int
		onItemError   string
		failureLog    string
		saveDB        bool
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Build the document catalog from the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			policy, err := crawler.ParsePolicy(onItemError)
			if err != nil {
				return err
			}
			runID := uuid.NewString()
			log := a.log.With(logger.String("run_id", runID), logger.String("command", "crawl"))

			client := httpclient.NewClient(a.cfg.UserAgent)
			reg := registry.New(client, registryURL, pageSize)
			c := crawler.New(
				reg,
				orgs.NewResolver(reg, orgDelay),
				classify.New(client, classify.Config{ViewerHosts: a.cfg.ViewerHosts, ProbeInterval: probeInterval}),
				crawler.Config{PageDelay: pageDelay, Workers: workers, OnItemError: policy},
				log,
				a.metrics,
			)
			records, stats, crawlErr := c.Collect(ctx)
			if crawlErr != nil {
				log.Error("crawl stopped", logger.Error(crawlErr), logger.Int("records", len(records)))
			}

			if len(stats.Failures) > 0 && failureLog != "" {
				if err := catalog.WriteCrawlFailures(failureLog, stats.Failures); err != nil {
					return errors.Join(crawlErr, err)
				}
			}
			switch err := catalog.Write(out, records); {
			case errors.Is(err, catalog.ErrEmpty):
				fmt.Fprintln(a.stdout, "no rows to write")
			case err != nil:
				return errors.Join(crawlErr, fmt.Errorf("write catalog: %w", err))
			default:
				fmt.Fprintf(a.stdout, "wrote %d records to %s\n", len(records), out)
			}
			fmt.Fprintf(a.stdout, "pages %d, entries %d, duplicates %d, skipped %d\n",
				stats.Pages, stats.Seen, stats.Duplicates, len(stats.Failures))

			if saveDB {
				if err := saveCatalog(ctx, a.cfg.DatabaseURL, runID, records); err != nil {
					return errors.Join(crawlErr, err)
				}
				log.Info("catalog saved to database", logger.Int("records", len(records)))
			}
			if crawlErr != nil {
				return fmt.Errorf("crawl aborted: %w", crawlErr)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", a.cfg.CatalogPath, "Catalog CSV to write")
	f.StringVar(&registryURL, "registry-url", a.cfg.RegistryURL, "Registry base URL")
	f.IntVar(&pageSize, "page-size", a.cfg.PageSize, "Entries per registry page")
	f.DurationVar(&pageDelay, "page-delay", a.cfg.PageDelay, "Pause after each registry page")
	f.DurationVar(&orgDelay, "org-delay", a.cfg.OrgDelay, "Pause after each organisation lookup")
	f.DurationVar(&probeInterval, "probe-interval", a.cfg.ProbeInterval, "Minimum spacing between URL probes")
	f.IntVar(&workers, "workers", a.cfg.Workers, "Concurrent URL probes per page")
	f.StringVar(&onItemError, "on-item-error", a.cfg.OnItemError, "abort or skip entries that fail")
	f.StringVar(&failureLog, "failure-log", a.cfg.CrawlFailureLog, "CSV of skipped entries (empty disables)")
	f.BoolVar(&saveDB, "save-db", a.cfg.DatabaseURL != "", "Also copy the catalog into PostgreSQL")
	return cmd
}

func saveCatalog(ctx context.Context, dsn, runID string, records []model.CatalogRecord) error {
	if dsn == "" {
		return errors.New("save catalog: HARVEST_DATABASE_URL is not set")
	}
	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	_, err = repository.NewCatalogRepository(pool).SaveCatalog(ctx, runID, records)
	return err
}
