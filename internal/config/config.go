package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cluster ClusterConfig `yaml:"cluster"`
	Wallet  WalletConfig  `yaml:"wallet"`
	History HistoryConfig `yaml:"history"`
	Mint    MintConfig    `yaml:"mint"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ClusterConfig struct {
	// Network selects a known cluster: devnet, testnet, or mainnet-beta.
	Network string `yaml:"network"`
	// Endpoint overrides the cluster's default RPC URL (e.g. a private RPC).
	Endpoint string `yaml:"endpoint"`
}

type WalletConfig struct {
	KeypairPath string `yaml:"keypair_path"`
}

type HistoryConfig struct {
	DBPath string `yaml:"db_path"`
}

type MintConfig struct {
	// MinBalanceSOL is the balance floor checked before any transaction is
	// built. 0 selects the built-in default (0.003 SOL).
	MinBalanceSOL         float64 `yaml:"min_balance_sol"`
	ConfirmTimeoutSeconds int     `yaml:"confirm_timeout_seconds"`
	ConfirmPollMillis     int     `yaml:"confirm_poll_ms"`
}

// clusterEndpoints is the static network → public RPC URL lookup table.
var clusterEndpoints = map[string]string{
	"devnet":       "https://api.devnet.solana.com",
	"testnet":      "https://api.testnet.solana.com",
	"mainnet-beta": "https://api.mainnet-beta.solana.com",
}

// RPCEndpoint resolves the RPC URL: explicit override first, then the known
// cluster table.
func (c ClusterConfig) RPCEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return clusterEndpoints[c.Network]
}

// ConfirmTimeout returns the confirmation ceiling as a duration.
func (m MintConfig) ConfirmTimeout() time.Duration {
	return time.Duration(m.ConfirmTimeoutSeconds) * time.Second
}

// ConfirmPoll returns the confirmation poll interval as a duration.
func (m MintConfig) ConfirmPoll() time.Duration {
	return time.Duration(m.ConfirmPollMillis) * time.Millisecond
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix STOICMINT_ and underscore-separated
// paths:
//
//	STOICMINT_SERVER_HOST, STOICMINT_SERVER_PORT,
//	STOICMINT_CLUSTER_NETWORK, STOICMINT_CLUSTER_ENDPOINT,
//	STOICMINT_WALLET_KEYPAIR, STOICMINT_HISTORY_DB
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STOICMINT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STOICMINT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STOICMINT_CLUSTER_NETWORK"); v != "" {
		cfg.Cluster.Network = v
	}
	if v := os.Getenv("STOICMINT_CLUSTER_ENDPOINT"); v != "" {
		cfg.Cluster.Endpoint = v
	}
	if v := os.Getenv("STOICMINT_WALLET_KEYPAIR"); v != "" {
		cfg.Wallet.KeypairPath = v
	}
	if v := os.Getenv("STOICMINT_HISTORY_DB"); v != "" {
		cfg.History.DBPath = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Cluster.Network == "" {
		cfg.Cluster.Network = "devnet"
	}
	if cfg.Mint.ConfirmTimeoutSeconds == 0 {
		cfg.Mint.ConfirmTimeoutSeconds = 30
	}
	if cfg.Mint.ConfirmPollMillis == 0 {
		cfg.Mint.ConfirmPollMillis = 1000
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Cluster.RPCEndpoint() == "" {
		return fmt.Errorf("cluster.network must be one of devnet, testnet, mainnet-beta, or cluster.endpoint must be set")
	}
	if c.Wallet.KeypairPath == "" {
		return fmt.Errorf("wallet.keypair_path is required")
	}
	if c.History.DBPath == "" {
		return fmt.Errorf("history.db_path is required")
	}
	if c.Mint.MinBalanceSOL < 0 {
		return fmt.Errorf("mint.min_balance_sol must not be negative")
	}
	return nil
}

// MinBalanceLamports converts the configured SOL floor to lamports; 0 when
// unset so the pipeline default applies.
func (m MintConfig) MinBalanceLamports() uint64 {
	return uint64(m.MinBalanceSOL * 1e9)
}
