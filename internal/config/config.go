// Package config loads the node's TOML configuration file via viper, the
// same loader the rest of this codebase's configuration packages build
// on, adapted from YAML network/consensus/storage sections to this
// node's DA-backend and Bitcoin-RPC sections. Credential fields can be
// overlaid from a .env file ahead of resolving the TOML, the way the
// pack's walletserver config overlays WALLET_PORT before falling back
// to its compiled-in default.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileBackendConfig configures the local filesystem DA backend.
type FileBackendConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// IPFSBackendConfig configures the IPFS DA backend.
type IPFSBackendConfig struct {
	Gateway    string `mapstructure:"gateway" toml:"gateway"`
	TimeoutSec int    `mapstructure:"timeout_sec" toml:"timeout_sec"`
}

// CelestiaBackendConfig configures the Celestia DA backend.
type CelestiaBackendConfig struct {
	URL         string `mapstructure:"url" toml:"url"`
	Token       string `mapstructure:"token" toml:"token"`
	NamespaceID string `mapstructure:"namespace_id" toml:"namespace_id"` // hex-encoded
}

// GreenfieldBackendConfig configures the BNB Greenfield DA backend.
type GreenfieldBackendConfig struct {
	RPCAddr      string `mapstructure:"rpc_addr" toml:"rpc_addr"`
	ChainID      string `mapstructure:"chain_id" toml:"chain_id"`
	Bucket       string `mapstructure:"bucket" toml:"bucket"`
	PasswordFile string `mapstructure:"password_file" toml:"password_file"`
	CLIPath      string `mapstructure:"cli_path" toml:"cli_path"`
}

// BTCConfig configures the Bitcoin RPC/Electrum connection and the
// fee policy the submission RPC and fetcher enforce.
type BTCConfig struct {
	ElectrsURL string `mapstructure:"electrs_url" toml:"electrs_url"`
	BTCURL     string `mapstructure:"btc_url" toml:"btc_url"`
	Username   string `mapstructure:"username" toml:"username"`
	Password   string `mapstructure:"password" toml:"password"`
	Network    string `mapstructure:"network" toml:"network"` // mainnet, testnet, regtest, signet
	DAFeeSats  uint64 `mapstructure:"da_fee" toml:"da_fee"`
	FeeAddress string `mapstructure:"fee_address" toml:"fee_address"`
}

// Config is the unified node configuration, mirroring the TOML schema
// under cmd/biterc's gen-config output.
type Config struct {
	DataDir       string                   `mapstructure:"datadir" toml:"datadir"`
	ListenAddr    string                   `mapstructure:"listen_addr" toml:"listen_addr"`
	EthListenAddr string                   `mapstructure:"eth_listen_addr" toml:"eth_listen_addr"`
	MetricsAddr   string                   `mapstructure:"metrics_addr" toml:"metrics_addr"`
	LogLevel      string                   `mapstructure:"log_level" toml:"log_level"`
	DefaultDA     string                   `mapstructure:"default_da" toml:"default_da"` // file, ipfs, celestia, greenfield
	File          *FileBackendConfig       `mapstructure:"file" toml:"file,omitempty"`
	IPFS          *IPFSBackendConfig       `mapstructure:"ipfs" toml:"ipfs,omitempty"`
	Celestia      *CelestiaBackendConfig   `mapstructure:"celestia" toml:"celestia,omitempty"`
	Greenfield    *GreenfieldBackendConfig `mapstructure:"greenfield" toml:"greenfield,omitempty"`
	BTC           BTCConfig                `mapstructure:"btc" toml:"btc"`
}

// Default returns a Config with the file backend as default, matching
// gen-config's emitted output: the only backend with no external
// service dependency.
func Default() *Config {
	return &Config{
		DataDir:       "./datadir",
		ListenAddr:    "127.0.0.1:8545",
		EthListenAddr: "127.0.0.1:8546",
		MetricsAddr:   "127.0.0.1:9090",
		LogLevel:      "info",
		DefaultDA:     "file",
		File:          &FileBackendConfig{Path: "./datadir/da"},
		BTC: BTCConfig{
			ElectrsURL: "http://127.0.0.1:3002",
			BTCURL:     "http://127.0.0.1:8332",
			Network:    "regtest",
			DAFeeSats:  1000,
		},
	}
}

// Load reads a TOML config file at path and unmarshals it into a Config
// seeded with Default()'s values, so an omitted optional section keeps
// its default. Ahead of that it overlays a .env file in the working
// directory into the process environment, if one is present, then lets
// BITERC_-prefixed env vars override the TOML's credential fields —
// keeping Bitcoin RPC and DA-backend secrets out of a checked-in config
// file without inventing a second config format for them.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env overlay: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	cfg.overlayCredentialsFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// overlayCredentialsFromEnv lets a .env-populated environment override
// the TOML's credential fields, the same precedence the walletserver
// config gives WALLET_PORT over its compiled-in default.
func (c *Config) overlayCredentialsFromEnv() {
	if v := os.Getenv("BITERC_BTC_USERNAME"); v != "" {
		c.BTC.Username = v
	}
	if v := os.Getenv("BITERC_BTC_PASSWORD"); v != "" {
		c.BTC.Password = v
	}
	if c.Celestia != nil {
		if v := os.Getenv("BITERC_CELESTIA_TOKEN"); v != "" {
			c.Celestia.Token = v
		}
	}
	if c.Greenfield != nil {
		if v := os.Getenv("BITERC_GREENFIELD_PASSWORD_FILE"); v != "" {
			c.Greenfield.PasswordFile = v
		}
	}
}

// Validate enforces a default_da naming a backend whose section is
// actually present, a known btc.network, and a non-empty
// btc.fee_address. gen-config's output leaves fee_address empty, so that
// field must be filled in before Load accepts the file.
func (c *Config) Validate() error {
	switch c.DefaultDA {
	case "file":
		if c.File == nil {
			return fmt.Errorf("default_da=file requires a [file] section")
		}
	case "ipfs":
		if c.IPFS == nil {
			return fmt.Errorf("default_da=ipfs requires an [ipfs] section")
		}
	case "celestia":
		if c.Celestia == nil {
			return fmt.Errorf("default_da=celestia requires a [celestia] section")
		}
	case "greenfield":
		if c.Greenfield == nil {
			return fmt.Errorf("default_da=greenfield requires a [greenfield] section")
		}
	default:
		return fmt.Errorf("unknown default_da %q", c.DefaultDA)
	}

	switch c.BTC.Network {
	case "mainnet", "testnet", "regtest", "signet":
	default:
		return fmt.Errorf("unknown btc.network %q", c.BTC.Network)
	}
	if c.BTC.FeeAddress == "" {
		return fmt.Errorf("btc.fee_address is required")
	}
	return nil
}
