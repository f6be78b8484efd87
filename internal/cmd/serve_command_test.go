package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/cli"

	"github.com/Truja503/lampo/internal/conf"
)

func writeConfFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, conf.ConfFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestServeCommand_loadConf_logFileFromFile(t *testing.T) {
	t.Setenv("LAMPO_DATA_DIR", "")
	t.Setenv("LAMPO_NETWORK", "")

	dir := t.TempDir()
	writeConfFile(t, dir, `{"log-file":"/var/log/lampod.log"}`)

	c := &ServeCommand{Ui: &cli.MockUi{}, dataDir: dir}
	cfg, err := c.loadConf()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogFile != "/var/log/lampod.log" {
		t.Fatalf("log-file from the config file not applied: %q", cfg.LogFile)
	}
}

func TestServeCommand_loadConf_flagOverridesFile(t *testing.T) {
	t.Setenv("LAMPO_DATA_DIR", "")
	t.Setenv("LAMPO_NETWORK", "")

	dir := t.TempDir()
	writeConfFile(t, dir, `{"log-file":"/var/log/lampod.log","network":"regtest","alias":"carol"}`)

	c := &ServeCommand{
		Ui:          &cli.MockUi{},
		dataDir:     dir,
		network:     "signet",
		alias:       "dave",
		logFilePath: "/tmp/override.log",
	}
	cfg, err := c.loadConf()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogFile != "/tmp/override.log" {
		t.Fatalf("flag should win over the config file, got %q", cfg.LogFile)
	}
	if cfg.Network != "signet" || cfg.Alias != "dave" {
		t.Fatalf("flag layering broken: %+v", cfg)
	}
}

func TestServeCommand_loadConf_invalid(t *testing.T) {
	t.Setenv("LAMPO_DATA_DIR", "")
	t.Setenv("LAMPO_NETWORK", "")

	dir := t.TempDir()
	c := &ServeCommand{Ui: &cli.MockUi{}, dataDir: dir, network: "liquid"}
	if _, err := c.loadConf(); err == nil {
		t.Fatal("expected an unsupported network to fail validation")
	}
}
