package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"jukebot/internal/audit"
	"jukebot/internal/config"
	"jukebot/internal/devices"
	"jukebot/internal/search"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, speakers, Spotify and the audit database",
		Long: `Verifies that the configuration loads, every speaker answers, Spotify
search works and the audit database is writable. Reports pass/fail per check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("jukebot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			var r report

			if _, err := os.Stat(cfgPath); err != nil {
				r.fail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'jukebot init' to create a default configuration.\n")
				return nil
			}
			r.pass("Config file", cfgPath)

			cfg, err := config.Load(cfgPath)
			if err != nil {
				r.fail("Config validation", err.Error())
				return r.summary()
			}
			r.pass("Config validation", "valid")
			if detail, ok := channelRoles(cfg.General); ok {
				r.pass("Channel roles", detail)
			} else {
				r.warn("Channel roles", detail)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			timeout := time.Duration(cfg.Sonos.TimeoutSeconds) * time.Second
			for _, addr := range cfg.Sonos.Devices {
				speaker := devices.NewSonos(devices.SonosConfig{
					Host:    addr,
					Market:  cfg.Spotify.Market,
					Timeout: timeout,
					Logger:  logger,
				})
				if state, err := speaker.State(ctx); err != nil {
					r.fail("Speaker "+addr, err.Error())
				} else {
					r.pass("Speaker "+addr, "state "+state.String())
				}
			}

			if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
				r.warn("Spotify", "clientId/clientSecret not set")
			} else {
				sp := search.NewSpotify(ctx, search.SpotifyConfig{
					ClientID:     cfg.Spotify.ClientID,
					ClientSecret: cfg.Spotify.ClientSecret,
					Market:       cfg.Spotify.Market,
					Logger:       logger,
				})
				if _, err := sp.Search(ctx, "daft punk", 1); err != nil {
					r.fail("Spotify", err.Error())
				} else {
					r.pass("Spotify", "search ok (market "+sp.Market()+")")
				}
			}

			if cfg.Moderation.AuditLog {
				if err := checkDatabase(cfg.Moderation.DBPath); err != nil {
					r.fail("Audit database", err.Error())
				} else {
					r.pass("Audit database", cfg.Moderation.DBPath)
				}
			}

			if cfg.Metrics.Enabled {
				if err := checkListen(cfg.Metrics.Listen); err != nil {
					r.warn("Metrics listen", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Listen, err))
				} else {
					r.pass("Metrics listen", cfg.Metrics.Listen+" available")
				}
			}

			if !cfg.Channels.Slack.Enabled && !cfg.Channels.Discord.Enabled && !cfg.Channels.Telegram.Enabled {
				r.warn("Channels", "no chat transport enabled")
			}

			return r.summary()
		},
	}
}

// channelRoles describes the admin/standard channel split. ok is false when
// the standard channel is unset or doubles as the admin channel.
func channelRoles(g config.GeneralConfig) (detail string, ok bool) {
	switch g.StandardChannel {
	case "":
		return fmt.Sprintf("admin #%s, standardChannel not set", g.AdminChannel), false
	case g.AdminChannel:
		return fmt.Sprintf("#%s is both the standard and the admin channel, so every member gets admin commands", g.AdminChannel), false
	default:
		return fmt.Sprintf("admin #%s, standard #%s", g.AdminChannel, g.StandardChannel), true
	}
}

type report struct {
	passed, warned, failed int
}

func (r *report) pass(check, detail string) {
	r.passed++
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func (r *report) fail(check, detail string) {
	r.failed++
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func (r *report) warn(check, detail string) {
	r.warned++
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

func (r *report) summary() error {
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("Results: %d passed, %d warnings, %d failed\n", r.passed, r.warned, r.failed)
	if r.failed > 0 {
		return fmt.Errorf("%d check(s) failed", r.failed)
	}
	return nil
}

func checkDatabase(dbPath string) error {
	store, err := audit.Open(dbPath, logger)
	if err != nil {
		return err
	}
	return store.Close()
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}
