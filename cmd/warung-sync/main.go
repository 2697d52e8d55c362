package main

import (
	"context"
	"os"

	"warung/internal/amqp"
	"warung/internal/cli"
	"warung/internal/config"
	applog "warung/internal/log"
	gsheet "warung/internal/sheets/google"
	"warung/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateSheets)

	logger.Info("Starting warung-sync",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName,
		applog.FieldQueue, cfg.AMQPEventsQueue)

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Failed to load timezone", applog.FieldError, err)
		os.Exit(1)
	}

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    cfg.GoogleOAuthClientJSON,
		OAuthClientFile:    cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:     cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		Location:           loc,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(amqp.Config{
		URL:          cfg.AMQPURL,
		Exchange:     cfg.AMQPExchange,
		InboundQueue: cfg.AMQPInboundQueue,
		OutboundKey:  cfg.AMQPOutboundKey,
		EventsQueue:  cfg.AMQPEventsQueue,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(amqpClient, sheetsClient, logger)
	if err := syncWorker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Sync worker failed", applog.FieldError, err)
		os.Exit(1)
	}

	stats := syncWorker.Stats()
	logger.Info("warung-sync stopped",
		"recorded", stats.Recorded,
		"deleted", stats.Deleted,
		"failed", stats.Failed,
		"reason", context.Cause(ctx))
}
