package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
server:
  host: "0.0.0.0"
  port: 8090
cluster:
  network: "devnet"
wallet:
  keypair_path: "/home/user/.config/solana/id.json"
history:
  db_path: "stoicmint.db"
mint:
  min_balance_sol: 0.003
  confirm_timeout_seconds: 45
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadValid verifies that a well-formed YAML config loads with all fields
// populated and defaults applied.
func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("server.port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Cluster.Network != "devnet" {
		t.Errorf("cluster.network = %q, want devnet", cfg.Cluster.Network)
	}
	if cfg.Wallet.KeypairPath != "/home/user/.config/solana/id.json" {
		t.Errorf("wallet.keypair_path = %q", cfg.Wallet.KeypairPath)
	}
	if cfg.Mint.ConfirmTimeoutSeconds != 45 {
		t.Errorf("confirm_timeout_seconds = %d, want 45", cfg.Mint.ConfirmTimeoutSeconds)
	}
	// Unset poll interval gets the default.
	if cfg.Mint.ConfirmPollMillis != 1000 {
		t.Errorf("confirm_poll_ms = %d, want default 1000", cfg.Mint.ConfirmPollMillis)
	}
}

// TestEnvOverride verifies that STOICMINT_ env vars take precedence over YAML
// values, so deployments can override config via environment.
func TestEnvOverride(t *testing.T) {
	t.Setenv("STOICMINT_SERVER_PORT", "9999")
	t.Setenv("STOICMINT_CLUSTER_NETWORK", "mainnet-beta")
	t.Setenv("STOICMINT_HISTORY_DB", "/data/override.db")

	cfg, err := Load(writeTemp(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("server.port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Cluster.Network != "mainnet-beta" {
		t.Errorf("cluster.network = %q, want mainnet-beta", cfg.Cluster.Network)
	}
	if cfg.History.DBPath != "/data/override.db" {
		t.Errorf("history.db_path = %q", cfg.History.DBPath)
	}
	// Unchanged fields keep YAML values.
	if cfg.Wallet.KeypairPath != "/home/user/.config/solana/id.json" {
		t.Errorf("wallet.keypair_path = %q", cfg.Wallet.KeypairPath)
	}
}

// TestClusterEndpointLookup verifies the static network table and that an
// explicit endpoint wins over it.
func TestClusterEndpointLookup(t *testing.T) {
	cases := []struct {
		network string
		want    string
	}{
		{"devnet", "https://api.devnet.solana.com"},
		{"testnet", "https://api.testnet.solana.com"},
		{"mainnet-beta", "https://api.mainnet-beta.solana.com"},
		{"nonsense", ""},
	}
	for _, tc := range cases {
		c := ClusterConfig{Network: tc.network}
		if got := c.RPCEndpoint(); got != tc.want {
			t.Errorf("RPCEndpoint(%s) = %q, want %q", tc.network, got, tc.want)
		}
	}

	c := ClusterConfig{Network: "devnet", Endpoint: "https://rpc.example.com"}
	if got := c.RPCEndpoint(); got != "https://rpc.example.com" {
		t.Errorf("override ignored: %q", got)
	}
}

// TestValidationFailures verifies that incomplete configs are rejected with a
// clear error instead of starting half-configured.
func TestValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing port", `
cluster: { network: devnet }
wallet: { keypair_path: id.json }
history: { db_path: s.db }`},
		{"unknown network", `
server: { port: 8090 }
cluster: { network: betanet }
wallet: { keypair_path: id.json }
history: { db_path: s.db }`},
		{"missing keypair", `
server: { port: 8090 }
cluster: { network: devnet }
history: { db_path: s.db }`},
		{"missing db path", `
server: { port: 8090 }
cluster: { network: devnet }
wallet: { keypair_path: id.json }`},
	}
	for _, tc := range cases {
		if _, err := Load(writeTemp(t, tc.yaml)); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

// TestMinBalanceLamports verifies the SOL-to-lamport conversion and that 0
// defers to the pipeline default.
func TestMinBalanceLamports(t *testing.T) {
	m := MintConfig{MinBalanceSOL: 0.003}
	if got := m.MinBalanceLamports(); got != 3_000_000 {
		t.Errorf("MinBalanceLamports = %d, want 3000000", got)
	}
	m = MintConfig{}
	if got := m.MinBalanceLamports(); got != 0 {
		t.Errorf("MinBalanceLamports(unset) = %d, want 0", got)
	}
}
