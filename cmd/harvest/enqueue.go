package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/PlanHarvest/internal/catalog"
	"github.com/dharsanguruparan/PlanHarvest/internal/model"
	"github.com/dharsanguruparan/PlanHarvest/internal/queue"
)

func newEnqueueCmd(a *app) *cobra.Command {
	var (
		catalogPath string
		kinds       []string
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue catalog rows for the download worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			fileKinds, err := model.ParseFileKinds(kinds)
			if err != nil {
				return err
			}
			records, err := catalog.Read(catalogPath)
			if err != nil {
				return err
			}
			client := asynq.NewClient(asynq.RedisClientOpt{
				Addr:     a.cfg.RedisAddr,
				Password: a.cfg.RedisPassword,
				DB:       a.cfg.RedisDB,
			})
			defer client.Close()

			runID := uuid.NewString()
			n, err := queue.EnqueueCatalog(cmd.Context(), client, runID, records, fileKinds)
			fmt.Fprintf(a.stdout, "enqueued %d of %d rows (run %s)\n", n, len(records), runID)
			return err
		},
	}
	cmd.Flags().StringVarP(&catalogPath, "catalog", "c", a.cfg.CatalogPath, "Catalog CSV to read")
	cmd.Flags().StringSliceVar(&kinds, "kinds", a.cfg.Kinds, "Only queue these file kinds (pdf,image,html,doc,landing,unknown)")
	return cmd
}
