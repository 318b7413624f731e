package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jukebot.
type Config struct {
	General    GeneralConfig    `json:"general" yaml:"general"`
	Spotify    SpotifyConfig    `json:"spotify" yaml:"spotify"`
	Sonos      SonosConfig      `json:"sonos" yaml:"sonos"`
	Moderation ModerationConfig `json:"moderation" yaml:"moderation"`
	Channels   ChannelsConfig   `json:"channels" yaml:"channels"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
}

type GeneralConfig struct {
	LogLevel              string `json:"logLevel" yaml:"logLevel"`
	LogFile               string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	LogFormat             string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"` // "text" | "json"
	AdminChannel          string `json:"adminChannel" yaml:"adminChannel"`
	StandardChannel       string `json:"standardChannel" yaml:"standardChannel"`
	MaxConcurrentMessages int    `json:"maxConcurrentMessages" yaml:"maxConcurrentMessages"`
}

type SpotifyConfig struct {
	ClientID          string `json:"clientId" yaml:"clientId"`
	ClientSecret      string `json:"clientSecret" yaml:"clientSecret"`
	Market            string `json:"market" yaml:"market"`
	SearchLimit       int    `json:"searchLimit" yaml:"searchLimit"`
	RequestsPerMinute int    `json:"requestsPerMinute" yaml:"requestsPerMinute"` // 0 disables throttling
	Burst             int    `json:"burst" yaml:"burst"`
}

type SonosConfig struct {
	Devices        FlexStringList `json:"devices" yaml:"devices"` // first entry is the primary speaker
	SettleDelayMs  int            `json:"settleDelayMs" yaml:"settleDelayMs"`
	TimeoutSeconds int            `json:"timeoutSeconds" yaml:"timeoutSeconds"`
}

type ModerationConfig struct {
	Blacklist FlexStringList `json:"blacklist" yaml:"blacklist"`
	AuditLog  bool           `json:"auditLog" yaml:"auditLog"`
	DBPath    string         `json:"dbPath" yaml:"dbPath"`
}

type ChannelsConfig struct {
	Slack    SlackConfig    `json:"slack" yaml:"slack"`
	Discord  DiscordConfig  `json:"discord,omitempty" yaml:"discord,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty" yaml:"telegram,omitempty"`
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"botToken" yaml:"botToken"`
	AppToken string `json:"appToken" yaml:"appToken"` // required for Socket Mode
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
	GuildID string `json:"guildId,omitempty" yaml:"guildId,omitempty"` // optional: restrict to specific guild
}

type TelegramConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
}

// MetricsConfig configures the Prometheus text endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Listen   string `json:"listen" yaml:"listen"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// FlexStringList is a []string that accepts a list (strings or numbers) or a
// single comma-separated string, e.g. "<@U1>, <@U2>".
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = splitList(s)
		return nil
	}
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func (f *FlexStringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*f = splitList(node.Value)
		return nil
	case yaml.SequenceNode:
		result := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a scalar list item", item.Line)
			}
			result = append(result, item.Value)
		}
		*f = result
		return nil
	default:
		return fmt.Errorf("line %d: expected a list or a comma-separated string", node.Line)
	}
}

func splitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	})
	return lo.Compact(parts)
}

// DefaultConfigDir returns the default config directory (~/.jukebot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jukebot"
	}
	return filepath.Join(home, ".jukebot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Moderation.DBPath = ExpandPath(cfg.Moderation.DBPath)
	cfg.General.AdminChannel = NormalizeChannel(cfg.General.AdminChannel)
	cfg.General.StandardChannel = NormalizeChannel(cfg.General.StandardChannel)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// NormalizeChannel strips the leading '#' people tend to type in channel names.
func NormalizeChannel(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "#")
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch strings.ToLower(cfg.General.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	switch cfg.General.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}
	if NormalizeChannel(cfg.General.AdminChannel) == "" {
		errs = append(errs, "general.adminChannel is required")
	}
	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}

	if cfg.Spotify.SearchLimit < 1 || cfg.Spotify.SearchLimit > 50 {
		errs = append(errs, "spotify.searchLimit must be between 1 and 50")
	}
	if cfg.Spotify.RequestsPerMinute < 0 || cfg.Spotify.Burst < 0 {
		errs = append(errs, "spotify.requestsPerMinute and spotify.burst must not be negative")
	}
	if len(cfg.Spotify.Market) != 2 {
		errs = append(errs, "spotify.market must be a two-letter country code")
	}

	if len(cfg.Sonos.Devices) == 0 {
		errs = append(errs, "sonos.devices must list at least one speaker address")
	}
	for i, addr := range cfg.Sonos.Devices {
		if strings.TrimSpace(addr) == "" {
			errs = append(errs, fmt.Sprintf("sonos.devices[%d] is empty", i))
		}
	}
	if dup := lo.FindDuplicates([]string(cfg.Sonos.Devices)); len(dup) > 0 {
		errs = append(errs, fmt.Sprintf("sonos.devices lists %s more than once", strings.Join(dup, ", ")))
	}
	if cfg.Sonos.SettleDelayMs < 0 || cfg.Sonos.SettleDelayMs > 10000 {
		errs = append(errs, "sonos.settleDelayMs must be between 0 and 10000")
	}
	if cfg.Sonos.TimeoutSeconds < 1 {
		errs = append(errs, "sonos.timeoutSeconds must be >= 1")
	}

	if cfg.Moderation.AuditLog && cfg.Moderation.DBPath == "" {
		errs = append(errs, "moderation.dbPath is required when moderation.auditLog is enabled")
	}

	if cfg.Channels.Slack.Enabled && (cfg.Channels.Slack.BotToken == "" || cfg.Channels.Slack.AppToken == "") {
		errs = append(errs, "channels.slack: botToken and appToken are required")
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token == "" {
		errs = append(errs, "channels.discord: token is required")
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token == "" {
		errs = append(errs, "channels.telegram: token is required")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
