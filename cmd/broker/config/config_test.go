package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
chain_rpc_url: http://localhost:8545
metrics_addr: ":9090"
recipient: "0x4444444444444444444444444444444444444444"
trading_as_eoa: true
deadline_seconds: 300
v2:
  pair: "0x1111111111111111111111111111111111111111"
  router: "0x2222222222222222222222222222222222222222"
  token_a: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
  token_b: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
  true_price_a: "1000"
  true_price_b: "1"
  max_spend_a: "100000000000000000000"
  max_spend_b: "100000000000000000000"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.ChainRPCURL)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.True(t, cfg.TradingAsEOA)
	assert.EqualValues(t, 300, cfg.DeadlineSeconds)
	require.NotNil(t, cfg.V2)
	assert.Nil(t, cfg.V3)
	assert.Equal(t, "1000", cfg.V2.TruePriceA)
}

func TestLoadConfig_EnvOverridesRPCURL(t *testing.T) {
	t.Setenv("CHAIN_RPC_URL", "ws://override:8546")
	path := writeConfig(t, `
chain_rpc_url: http://localhost:8545
recipient: "0x4444444444444444444444444444444444444444"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://override:8546", cfg.ChainRPCURL)
}

func TestLoadConfig_MissingFields(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `recipient: "0x4444444444444444444444444444444444444444"`))
	assert.ErrorContains(t, err, "chain_rpc_url")

	_, err = LoadConfig(writeConfig(t, `chain_rpc_url: http://localhost:8545`))
	assert.ErrorContains(t, err, "recipient")
}

func TestPrivateKey(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	_, err := PrivateKey()
	assert.ErrorIs(t, err, ErrMissingPrivateKey)

	t.Setenv("PRIVATE_KEY", "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	key, err := PrivateKey()
	require.NoError(t, err)
	assert.NotNil(t, key)
}

func TestAddressHelpers(t *testing.T) {
	addr, err := Address("field", "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", addr.Hex())

	_, err = Address("field", "not-an-address")
	assert.ErrorContains(t, err, "field")

	zero, err := OptionalAddress("field", "")
	require.NoError(t, err)
	assert.Zero(t, zero.Big().Sign())
}

func TestAmount(t *testing.T) {
	v, err := Amount("field", "123456789012345678901234567890")
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	assert.Zero(t, v.Cmp(want))

	_, err = Amount("field", "12.5")
	assert.ErrorContains(t, err, "field")
}
