package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileBackendDefaults(t *testing.T) {
	path := writeTOML(t, `
default_da = "file"

[file]
path = "/tmp/biterc-da"

[btc]
electrs_url = "http://127.0.0.1:3002"
btc_url = "http://127.0.0.1:8332"
network = "regtest"
da_fee = 1500
fee_address = "bcrt1qexampleaddress"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultDA != "file" {
		t.Fatalf("expected default_da file, got %s", cfg.DefaultDA)
	}
	if cfg.File == nil || cfg.File.Path != "/tmp/biterc-da" {
		t.Fatalf("expected file.path set, got %+v", cfg.File)
	}
	if cfg.BTC.DAFeeSats != 1500 {
		t.Fatalf("expected da_fee 1500, got %d", cfg.BTC.DAFeeSats)
	}
	// unset fields keep Default()'s values.
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level preserved, got %s", cfg.LogLevel)
	}
}

func TestLoad_MissingBackendSectionFails(t *testing.T) {
	path := writeTOML(t, `
default_da = "ipfs"

[btc]
network = "regtest"
fee_address = "bcrt1qexampleaddress"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error when default_da names an absent section")
	}
}

func TestLoad_UnknownNetworkFails(t *testing.T) {
	path := writeTOML(t, `
default_da = "file"

[file]
path = "/tmp/biterc-da"

[btc]
network = "devnet"
fee_address = "bcrt1qexampleaddress"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for an unknown btc.network")
	}
}

func TestLoad_EnvOverridesBTCCredentials(t *testing.T) {
	path := writeTOML(t, `
default_da = "file"

[file]
path = "/tmp/biterc-da"

[btc]
electrs_url = "http://127.0.0.1:3002"
btc_url = "http://127.0.0.1:8332"
username = "toml-user"
password = "toml-pass"
network = "regtest"
da_fee = 1000
fee_address = "bcrt1qexampleaddress"
`)

	t.Setenv("BITERC_BTC_USERNAME", "env-user")
	t.Setenv("BITERC_BTC_PASSWORD", "env-pass")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BTC.Username != "env-user" {
		t.Fatalf("expected env var to override toml username, got %s", cfg.BTC.Username)
	}
	if cfg.BTC.Password != "env-pass" {
		t.Fatalf("expected env var to override toml password, got %s", cfg.BTC.Password)
	}
}

func TestLoad_MissingFeeAddressFails(t *testing.T) {
	path := writeTOML(t, `
default_da = "file"

[file]
path = "/tmp/biterc-da"

[btc]
network = "regtest"
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error for a missing btc.fee_address")
	}
}
