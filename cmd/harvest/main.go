package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PlanHarvest/internal/config"
	"github.com/dharsanguruparan/PlanHarvest/internal/logger"
	"github.com/dharsanguruparan/PlanHarvest/internal/metrics"
)

// app carries what every subcommand shares.
type app struct {
	cfg         *config.Config
	stdout      io.Writer
	log         logger.Logger
	metrics     *metrics.Metrics
	logLevel    string
	metricsFile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "harvest: %v\n", err)
		os.Exit(1)
	}
	a := &app{cfg: cfg, stdout: os.Stdout, metrics: metrics.New()}
	if err := a.execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "harvest: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one command line and flushes metrics and logs whatever the
// outcome.
func (a *app) execute(ctx context.Context, args []string) error {
	root := newRootCommand(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if merr := a.metrics.WriteTextfile(a.metricsFile); merr != nil && err == nil {
		err = merr
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Catalog and download local planning documents",
		Long: `harvest crawls the planning data registry into a CSV catalog of local plan
documents, then downloads the catalogued files into a directory per local plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.log != nil {
				return nil
			}
			log, err := logger.New(a.logLevel)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", a.cfg.LogLevel, "Log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", a.cfg.MetricsFile, "Write run counters to this Prometheus textfile")
	cmd.AddCommand(
		newCrawlCmd(a),
		newDownloadCmd(a),
		newEnqueueCmd(a),
	)
	return cmd
}
