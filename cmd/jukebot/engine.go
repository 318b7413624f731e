package main

import (
	"context"
	"fmt"
	"time"

	"jukebot/internal/audit"
	"jukebot/internal/config"
	"jukebot/internal/devices"
	"jukebot/internal/domain"
	"jukebot/internal/jukebox"
	"jukebot/internal/moderation"
	"jukebot/internal/search"
)

// engine is the transport-independent part of the process.
type engine struct {
	jukebox *jukebox.Jukebox
	pool    *devices.Pool
	spotify *search.Spotify
	audit   *audit.Store // nil when auditing is off
}

func newEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	eng := &engine{}

	var auditLog domain.AuditLogger
	if cfg.Moderation.AuditLog {
		store, err := audit.Open(cfg.Moderation.DBPath, logger)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
		eng.audit = store
		auditLog = store
	}

	speakers := make([]domain.Device, 0, len(cfg.Sonos.Devices))
	for _, addr := range cfg.Sonos.Devices {
		speakers = append(speakers, devices.NewSonos(devices.SonosConfig{
			Host:    addr,
			Market:  cfg.Spotify.Market,
			Timeout: time.Duration(cfg.Sonos.TimeoutSeconds) * time.Second,
			Logger:  logger,
		}))
	}
	pool, err := devices.NewPool(logger, speakers...)
	if err != nil {
		eng.Close()
		return nil, err
	}
	eng.pool = pool

	var limiter *search.RateLimiter
	if cfg.Spotify.RequestsPerMinute > 0 {
		limiter = search.NewRateLimiter(cfg.Spotify.Burst, float64(cfg.Spotify.RequestsPerMinute))
	}
	eng.spotify = search.NewSpotify(ctx, search.SpotifyConfig{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		Market:       cfg.Spotify.Market,
		Logger:       logger,
		Limiter:      limiter,
	})

	gate := moderation.NewGate(moderation.GateConfig{
		Blacklist: moderation.NewBlacklist(cfg.Moderation.Blacklist),
		Audit:     auditLog,
		Logger:    logger,
	})

	eng.jukebox = jukebox.New(jukebox.Config{
		Pool:         pool,
		Resolver:     search.NewResolver(eng.spotify, logger),
		Gate:         gate,
		Audit:        auditLog,
		Logger:       logger,
		AdminChannel: cfg.General.AdminChannel,
		SearchLimit:  cfg.Spotify.SearchLimit,
		SettleDelay:  time.Duration(cfg.Sonos.SettleDelayMs) * time.Millisecond,
	})

	logger.Info("jukebox ready",
		"devices", pool.Len(),
		"primary", pool.Primary().Address(),
		"admin_channel", cfg.General.AdminChannel,
		"market", eng.spotify.Market(),
	)
	return eng, nil
}

func (e *engine) Close() error {
	if e.audit != nil {
		return e.audit.Close()
	}
	return nil
}
