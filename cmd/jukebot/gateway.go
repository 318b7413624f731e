package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"jukebot/internal/bus"
	"jukebot/internal/channel"
	"jukebot/internal/config"
	"jukebot/internal/domain"
	"jukebot/internal/jukebox"
	"jukebot/internal/metrics"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start the chat gateway (Slack, Discord, Telegram)",
		Long:  "Starts all enabled chat transports and the jukebox loop. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Control the jukebox from the terminal as the admin channel",
		RunE:  runChat,
	}
}

// transport is a chat channel that can also resolve user arguments.
type transport interface {
	domain.Channel
	domain.UserDirectory
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadRuntime()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	messageBus := bus.New(100, cmd.OutOrStdout(), logger)
	loop := jukebox.NewLoop(jukebox.LoopConfig{
		Jukebox:     eng.jukebox,
		Bus:         messageBus,
		Logger:      logger,
		Concurrency: cfg.General.MaxConcurrentMessages,
	})
	go loop.Run(ctx)

	transports, err := enabledTransports(cfg)
	if err != nil {
		return err
	}
	if len(transports) == 0 {
		logger.Warn("no chat transport enabled; replies will only reach the console")
	}

	var wg sync.WaitGroup
	for _, t := range transports {
		eng.jukebox.RegisterDirectory(t.Name(), t)
		wg.Add(1)
		go func(t transport) {
			defer wg.Done()
			if err := t.Start(ctx, messageBus); err != nil {
				logger.Error("transport error", "channel", t.Name(), "err", err)
			}
		}(t)
		logger.Info("transport enabled", "channel", t.Name())
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = startMetrics(cfg.Metrics)
	}

	logger.Info("gateway started. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Info("shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, t := range transports {
			if err := t.Stop(); err != nil {
				logger.Warn("transport stop failed", "channel", t.Name(), "err", err)
			}
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		wg.Wait()
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func enabledTransports(cfg *config.Config) ([]transport, error) {
	var out []transport
	if c := cfg.Channels.Slack; c.Enabled {
		out = append(out, channel.NewSlack(channel.SlackConfig{
			BotToken: c.BotToken,
			AppToken: c.AppToken,
			Logger:   logger,
		}))
	}
	if c := cfg.Channels.Discord; c.Enabled {
		d, err := channel.NewDiscord(channel.DiscordConfig{
			Token:   c.Token,
			GuildID: c.GuildID,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if c := cfg.Channels.Telegram; c.Enabled {
		out = append(out, channel.NewTelegram(channel.TelegramConfig{
			Token:  c.Token,
			Logger: logger,
		}))
	}
	return out, nil
}

func startMetrics(cfg config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, metrics.Collector.Handler())
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "addr", cfg.Listen, "err", err)
		}
	}()
	logger.Info("metrics enabled", "addr", cfg.Listen, "endpoint", cfg.Endpoint)
	return srv
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadRuntime()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	messageBus := bus.New(100, cmd.OutOrStdout(), logger)
	defer messageBus.Close()

	go jukebox.NewLoop(jukebox.LoopConfig{
		Jukebox:     eng.jukebox,
		Bus:         messageBus,
		Logger:      logger,
		Concurrency: cfg.General.MaxConcurrentMessages,
	}).Run(ctx)

	cli := channel.NewCLI(channel.CLIConfig{
		AdminChannel: cfg.General.AdminChannel,
		Logger:       logger,
		In:           cmd.InOrStdin(),
		Out:          cmd.OutOrStdout(),
	})
	eng.jukebox.RegisterDirectory(cli.Name(), cli)
	return cli.Start(ctx, messageBus)
}
