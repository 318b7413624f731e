package main

import (
	"strings"
	"testing"

	"jukebot/internal/config"
)

func TestRenderService(t *testing.T) {
	unit := serviceUnit{Label: launchdLabel, Exec: "/usr/local/bin/jukebot", Config: "/etc/jukebot.yaml", Log: "/tmp/gateway.log"}

	data, err := renderService("linux", unit)
	if err != nil {
		t.Fatalf("linux: %v", err)
	}
	if !strings.Contains(string(data), "ExecStart=/usr/local/bin/jukebot gateway --config /etc/jukebot.yaml") {
		t.Errorf("systemd unit missing ExecStart:\n%s", data)
	}

	data, err = renderService("darwin", unit)
	if err != nil {
		t.Fatalf("darwin: %v", err)
	}
	for _, want := range []string{"<string>org.jukebot.gateway</string>", "<string>/etc/jukebot.yaml</string>", "<string>/tmp/gateway.log</string>"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("plist missing %s", want)
		}
	}

	if _, err := renderService("windows", unit); err == nil {
		t.Error("unsupported OS should fail")
	}
}

func TestChannelRoles(t *testing.T) {
	detail, ok := channelRoles(config.GeneralConfig{AdminChannel: "music-admin", StandardChannel: "music"})
	if !ok || detail != "admin #music-admin, standard #music" {
		t.Fatalf("distinct channels: ok=%v detail=%q", ok, detail)
	}

	if _, ok := channelRoles(config.GeneralConfig{AdminChannel: "music", StandardChannel: "music"}); ok {
		t.Error("shared admin and standard channel should warn")
	}
	if _, ok := channelRoles(config.GeneralConfig{AdminChannel: "music-admin"}); ok {
		t.Error("missing standard channel should warn")
	}
}
