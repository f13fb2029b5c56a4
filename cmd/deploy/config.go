package main

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// V3PoolConfig describes the concentrated-liquidity pool to provision.
type V3PoolConfig struct {
	Factory         string `yaml:"factory"`
	PositionManager string `yaml:"position_manager"`

	Fee              int64  `yaml:"fee"`
	PriceNumerator   string `yaml:"price_numerator"`
	PriceDenominator string `yaml:"price_denominator"`
	TickLower        int64  `yaml:"tick_lower"`
	TickUpper        int64  `yaml:"tick_upper"`
	Amount0          string `yaml:"amount_0"`
	Amount1          string `yaml:"amount_1"`
}

// TokenConfig describes one test token to deploy.
type TokenConfig struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	Supply string `yaml:"supply"`
}

// DeployConfig is the root of the deploy command's configuration file.
type DeployConfig struct {
	ChainRPCURL  string `yaml:"chain_rpc_url"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	OutputPath   string `yaml:"output_path"`

	// Existing periphery on the target chain.
	Factory string `yaml:"factory"`
	Router  string `yaml:"router"`
	// Finder, when empty, is deployed from its artifact.
	Finder string `yaml:"finder"`

	TokenA TokenConfig `yaml:"token_a"`
	TokenB TokenConfig `yaml:"token_b"`

	LiquidityA string `yaml:"liquidity_a"`
	LiquidityB string `yaml:"liquidity_b"`

	// V3, when present, also provisions a concentrated-liquidity pool for
	// the two tokens.
	V3 *V3PoolConfig `yaml:"v3"`

	// FinalFee, when set, is configured on the Store for token A.
	FinalFee string `yaml:"final_fee"`
}

func loadDeployConfig(path string) (*DeployConfig, error) {
	_ = godotenv.Load()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &DeployConfig{
		OutputPath: "deployments.json",
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
	if cfg.ArtifactsDir == "" {
		return nil, errors.New("config: artifacts_dir not set")
	}
	return cfg, nil
}

func privateKey() (*ecdsa.PrivateKey, error) {
	hexKey := os.Getenv("PRIVATE_KEY")
	if hexKey == "" {
		return nil, errors.New("config: PRIVATE_KEY not set")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse PRIVATE_KEY: %w", err)
	}
	return key, nil
}
