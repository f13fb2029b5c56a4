// Package config loads the broker command's YAML configuration. Secrets
// never live in the YAML file: the signing key comes from the PRIVATE_KEY
// environment variable, optionally seeded from a .env file.
package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const privateKeyEnv = "PRIVATE_KEY"

var ErrMissingPrivateKey = errors.New("config: " + privateKeyEnv + " not set")

// V2Target configures a V2 swap-to-price run.
type V2Target struct {
	Pair    string `yaml:"pair"`
	Router  string `yaml:"router"`
	Factory string `yaml:"factory"`
	Broker  string `yaml:"broker"`

	TokenA string `yaml:"token_a"`
	TokenB string `yaml:"token_b"`

	TruePriceA string `yaml:"true_price_a"`
	TruePriceB string `yaml:"true_price_b"`
	MaxSpendA  string `yaml:"max_spend_a"`
	MaxSpendB  string `yaml:"max_spend_b"`
}

// V3Target configures a V3 swap-to-price run.
type V3Target struct {
	Pool   string `yaml:"pool"`
	Router string `yaml:"router"`
	Broker string `yaml:"broker"`

	PriceNumerator   string `yaml:"price_numerator"`
	PriceDenominator string `yaml:"price_denominator"`
	MaxSpend0        string `yaml:"max_spend_0"`
	MaxSpend1        string `yaml:"max_spend_1"`
}

// BrokerConfig is the root of the broker command's configuration file.
type BrokerConfig struct {
	ChainRPCURL string `yaml:"chain_rpc_url"`
	MetricsAddr string `yaml:"metrics_addr"`

	Recipient       string `yaml:"recipient"`
	TradingAsEOA    bool   `yaml:"trading_as_eoa"`
	DeadlineSeconds int64  `yaml:"deadline_seconds"`

	V2 *V2Target `yaml:"v2"`
	V3 *V3Target `yaml:"v3"`
}

// LoadConfig reads the YAML file and applies environment overrides. A .env
// file in the working directory is honored when present.
func LoadConfig(path string) (*BrokerConfig, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &BrokerConfig{
		DeadlineSeconds: 120,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if url := os.Getenv("CHAIN_RPC_URL"); url != "" {
		cfg.ChainRPCURL = url
	}
	if cfg.ChainRPCURL == "" {
		return nil, errors.New("config: chain_rpc_url not set")
	}
	if cfg.Recipient == "" {
		return nil, errors.New("config: recipient not set")
	}
	return cfg, nil
}

// Deadline converts the configured deadline window to an absolute time.
func (c *BrokerConfig) Deadline() time.Time {
	return time.Now().Add(time.Duration(c.DeadlineSeconds) * time.Second)
}

// PrivateKey parses the signing key from the environment.
func PrivateKey() (*ecdsa.PrivateKey, error) {
	hexKey := os.Getenv(privateKeyEnv)
	if hexKey == "" {
		return nil, ErrMissingPrivateKey
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", privateKeyEnv, err)
	}
	return key, nil
}

// Address parses a required hex address field.
func Address(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("config: %s is not a valid address: %q", field, value)
	}
	return common.HexToAddress(value), nil
}

// OptionalAddress parses an address field that may be empty.
func OptionalAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, nil
	}
	return Address(field, value)
}

// Amount parses a required base-10 integer field.
func Amount(field, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("config: %s is not a valid integer: %q", field, value)
	}
	return v, nil
}
