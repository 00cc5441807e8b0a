package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOverridesOnlySpecifiedSections(t *testing.T) {
	doc := []byte(`
[p2p]
listen_addr = "0.0.0.0:12345"
max_inbound = 8

[blockchain]
mempool_max_size = 500
`)
	s, err := Parse(doc)
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:12345", s.P2P.ListenAddr)
	require.Equal(t, 8, s.P2P.MaxInbound)
	require.Equal(t, 500, s.Blockchain.MempoolMaxSize)

	// Untouched sections keep their defaults.
	require.Equal(t, Default().UI.ListenAddr, s.UI.ListenAddr)
	require.Equal(t, Default().Wallet.StorePath, s.Wallet.StorePath)
}

func TestParseRejectsMalformedTOML(t *testing.T) {
	_, err := Parse([]byte("not = [valid"))
	require.Error(t, err)
}

func TestValidateRejectsEmptyStatePath(t *testing.T) {
	s := Default()
	s.Blockchain.StatePath = ""
	require.Error(t, s.Validate())
}

func TestParseAppliesDatabaseURLEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example/zkvm")
	s, err := Parse([]byte(`[wallet]
database_url = "sqlite://ignored"
`))
	require.NoError(t, err)
	require.Equal(t, "postgres://example/zkvm", s.Wallet.DatabaseURL)
}

func TestLoadReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/zkvmnoded.toml"
	require.NoError(t, os.WriteFile(path, []byte(`[ui]
listen_addr = "127.0.0.1:1"
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:1", s.UI.ListenAddr)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/zkvmnoded.toml")
	require.Error(t, err)
}

func TestStringRoundTripsThroughParse(t *testing.T) {
	s := Default()
	s.P2P.SeedPeers = []string{"seed1.example:9333", "seed2.example:9333"}

	reparsed, err := Parse([]byte(s.String()))
	require.NoError(t, err)
	require.Equal(t, s.P2P.SeedPeers, reparsed.P2P.SeedPeers)
}
