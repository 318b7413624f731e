package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/spf13/cobra"
)

const (
	launchdLabel = "org.jukebot.gateway"
	systemdUnit  = "jukebot.service"
)

// serviceUnit is what the launchd and systemd templates need.
type serviceUnit struct {
	Label  string
	Exec   string
	Config string
	Log    string
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Run the gateway as a per-user background service (launchd/systemd)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Write the service definition for this executable and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			execPath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot determine executable path: %w", err)
			}
			cfgPath, err := filepath.Abs(resolveConfigPath())
			if err != nil {
				return err
			}
			path, err := servicePath()
			if err != nil {
				return err
			}
			home, _ := os.UserHomeDir()
			unit := serviceUnit{
				Label:  launchdLabel,
				Exec:   execPath,
				Config: cfgPath,
				Log:    filepath.Join(home, ".jukebot", "logs", "gateway.log"),
			}
			data, err := renderService(runtime.GOOS, unit)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(unit.Log), 0o755); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service installed: %s\n", path)
			if runtime.GOOS == "darwin" {
				fmt.Fprintf(cmd.OutOrStdout(), "To start: launchctl load %s\n", path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "To start: systemctl --user enable --now jukebot\n")
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Remove the service definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := servicePath()
			if err != nil {
				return err
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove service: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service uninstalled: %s\n", path)
			return nil
		},
	})
	return cmd
}

func servicePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", launchdLabel+".plist"), nil
	case "linux":
		return filepath.Join(home, ".config", "systemd", "user", systemdUnit), nil
	default:
		return "", fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", runtime.GOOS)
	}
}

func renderService(goos string, unit serviceUnit) ([]byte, error) {
	var tmpl *template.Template
	switch goos {
	case "darwin":
		tmpl = launchdTemplate
	case "linux":
		tmpl = systemdTemplate
	default:
		return nil, fmt.Errorf("unsupported OS: %s (supported: darwin, linux)", goos)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, unit); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var launchdTemplate = template.Must(template.New("launchd").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
        <string>gateway</string>
        <string>--config</string>
        <string>{{.Config}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{.Log}}</string>
    <key>StandardErrorPath</key>
    <string>{{.Log}}</string>
</dict>
</plist>
`))

var systemdTemplate = template.Must(template.New("systemd").Parse(`[Unit]
Description=jukebot chat gateway for Sonos
After=network-online.target

[Service]
Type=simple
ExecStart={{.Exec}} gateway --config {{.Config}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`))
