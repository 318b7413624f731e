package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:              "info",
			LogFormat:             "text",
			AdminChannel:          "music-admin",
			StandardChannel:       "music",
			MaxConcurrentMessages: 5,
		},
		Spotify: SpotifyConfig{
			Market:            "US",
			SearchLimit:       7,
			RequestsPerMinute: 120,
			Burst:             10,
		},
		Sonos: SonosConfig{
			Devices:        FlexStringList{"192.168.1.100"},
			SettleDelayMs:  500,
			TimeoutSeconds: 5,
		},
		Moderation: ModerationConfig{
			Blacklist: FlexStringList{},
			AuditLog:  true,
			DBPath:    "~/.jukebot/audit.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Listen:   "127.0.0.1:9090",
			Endpoint: "/metrics",
		},
	}
}
