package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"billed/internal/amqp"
	"billed/internal/config"
	"billed/internal/log"
	"billed/internal/services"
	"billed/internal/sheets"
	gsheet "billed/internal/sheets/google"
	memsheet "billed/internal/sheets/memory"
	"billed/internal/storage"
	"billed/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Export submitted bills to the spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadAndValidateConfig()
			if err != nil {
				return wrapConfigError(err)
			}
			if err := cfg.ValidateWorker(); err != nil {
				return wrapConfigError(err)
			}
			logger := SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

			ctx, cancel := SignalContext(cmd.Context(), logger)
			defer cancel()
			return runWorker(ctx, cfg, logger)
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger.Info("Starting billed worker", "version", Version)

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, cfg.ReceiptsDir, cfg.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("initialize SQLite repository: %w", err)
	}
	defer repo.Close()

	exporter, err := newExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("initialize AMQP client: %w", err)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, exporter, cfg.SyncBatchSize)

	// catch up on bills whose message was lost while the worker was down
	if err := syncWorker.ProcessPending(ctx); err != nil {
		logger.Error("Startup sync check failed", log.FieldError, err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeBillSubmitted(gctx, syncWorker.HandleBillSubmitted)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("consume bill.submitted: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	err = g.Wait()
	logger.Info("Worker stopped")
	return err
}

// newExporter returns the Google Sheets exporter, or an in-memory one when no
// spreadsheet is configured.
func newExporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.BillExporter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exported rows are kept in memory")
		return memsheet.New(), nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
