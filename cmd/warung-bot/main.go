package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"warung/internal/amqp"
	"warung/internal/backend"
	"warung/internal/bot"
	"warung/internal/channel"
	"warung/internal/cli"
	"warung/internal/command"
	"warung/internal/config"
	apphttp "warung/internal/http"
	"warung/internal/ledger"
	applog "warung/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("warung-bot stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("warung-bot stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	formatter, err := cli.BuildFormatter(cfg)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}
	if be.Cleanup != nil {
		defer func() {
			if err := be.Cleanup(); err != nil {
				logger.Error("Failed to close store", applog.FieldError, err)
			}
		}()
	}

	var (
		amqpClient *amqp.Client
		sender     channel.Sender
		events     ledger.EventPublisher
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(amqp.Config{
			URL:          cfg.AMQPURL,
			Exchange:     cfg.AMQPExchange,
			InboundQueue: cfg.AMQPInboundQueue,
			OutboundKey:  cfg.AMQPOutboundKey,
			EventsQueue:  cfg.AMQPEventsQueue,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer amqpClient.Close()
		sender, events = amqpClient, amqpClient
	} else {
		logger.Info("AMQP disabled, serving the HTTP webhook only")
	}

	svc := ledger.NewService(be.Store, events, loc)
	dispatcher := bot.NewDispatcher(command.NewParser(cfg.CommandPrefix), svc, formatter, sender, logger)

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, dispatcher, be.Store, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting warung-bot",
			"port", cfg.Port,
			applog.FieldBackend, backendCfg.Type,
			"amqp", amqpClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if amqpClient != nil {
		g.Go(func() error {
			if cfg.BotSelfID != "" {
				if err := sender.SendText(gctx, cfg.BotSelfID, formatter.Online()); err != nil {
					logger.Warn("Failed to send online notice", applog.FieldConversation, cfg.BotSelfID, applog.FieldError, err)
				}
			}
			err := amqpClient.ConsumeInbound(gctx, dispatcher.Handle)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}
