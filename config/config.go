// Package config loads the node's TOML settings document (spec §6):
// sections [ui], [api], [p2p], [blockchain], [wallet] carrying listen
// addresses, storage paths, and mempool size/feerate. No teacher file
// in the retrieved pack covers TOML config directly (the teranode
// settings layer it's grounded against was filtered out of the
// pack); the library choice follows the teacher's own go.mod, which
// already lists github.com/pelletier/go-toml/v2.
package config

import (
	"fmt"
	"os"

	zerr "github.com/cloakchain/zkvmnode/errors"
	"github.com/pelletier/go-toml/v2"
)

// UISettings configures the local operator-facing interface.
type UISettings struct {
	ListenAddr string `toml:"listen_addr"`
}

// APISettings configures the node's external RPC/API surface.
type APISettings struct {
	ListenAddr string `toml:"listen_addr"`
}

// P2PSettings configures peer networking.
type P2PSettings struct {
	ListenAddr  string   `toml:"listen_addr"`
	SeedPeers   []string `toml:"seed_peers"`
	MaxInbound  int      `toml:"max_inbound"`
	MaxOutbound int      `toml:"max_outbound"`
}

// BlockchainSettings configures chain and mempool storage/policy.
type BlockchainSettings struct {
	StatePath        string `toml:"state_path"`
	MempoolMaxSize   int    `toml:"mempool_max_size"`
	MempoolMinFeeMsu uint64 `toml:"mempool_min_fee_msu"`
}

// WalletSettings configures the account/key store.
type WalletSettings struct {
	StorePath   string `toml:"store_path"`
	DatabaseURL string `toml:"database_url"` // overridden by $DATABASE_URL if set
}

// Settings is the full document keyed by section, parsed from the
// node's config file (spec.md §6).
type Settings struct {
	UI         UISettings         `toml:"ui"`
	API        APISettings        `toml:"api"`
	P2P        P2PSettings        `toml:"p2p"`
	Blockchain BlockchainSettings `toml:"blockchain"`
	Wallet     WalletSettings     `toml:"wallet"`
}

// Default returns the settings a freshly initialized node runs with
// absent a config file.
func Default() Settings {
	return Settings{
		UI:  UISettings{ListenAddr: "127.0.0.1:8090"},
		API: APISettings{ListenAddr: "127.0.0.1:8091"},
		P2P: P2PSettings{
			ListenAddr:  "0.0.0.0:9333",
			MaxInbound:  64,
			MaxOutbound: 16,
		},
		Blockchain: BlockchainSettings{
			StatePath:      "blockchain/state.bin",
			MempoolMaxSize: 10000,
		},
		Wallet: WalletSettings{
			StorePath: "wallet/",
		},
	}
}

// Load reads and parses a TOML settings document from path, starting
// from Default() so a document may specify only the sections it wants
// to override.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, zerr.New(zerr.ERR_CONFIG_INVALID, "reading config file %q: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes a TOML document into Settings, then applies the
// $DATABASE_URL environment override (spec.md §6 "Environment").
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, zerr.New(zerr.ERR_CONFIG_INVALID, "parsing config: %v", err)
	}
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		s.Wallet.DatabaseURL = url
	}
}

// Validate rejects settings combinations that would leave the node
// unable to start.
func (s Settings) Validate() error {
	if s.Blockchain.StatePath == "" {
		return zerr.New(zerr.ERR_CONFIG_INVALID, "blockchain.state_path must not be empty")
	}
	if s.Blockchain.MempoolMaxSize < 0 {
		return zerr.New(zerr.ERR_CONFIG_INVALID, "blockchain.mempool_max_size must not be negative")
	}
	if s.Wallet.StorePath == "" {
		return zerr.New(zerr.ERR_CONFIG_INVALID, "wallet.store_path must not be empty")
	}
	return nil
}

// String renders the settings back to TOML, for `zkvmnoded config`.
func (s Settings) String() string {
	out, err := toml.Marshal(s)
	if err != nil {
		return fmt.Sprintf("<unmarshalable config: %v>", err)
	}
	return string(out)
}
