// Command deploy provisions a local test environment for the broker: two
// ERC-20 tokens, a Uniswap V2 pair with seeded liquidity, and the Store fee
// contract registered in the Finder. Deployed addresses are written to a
// JSON address book for the other commands to consume.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/uniswap-broker-go/chains/ethereum"
	"github.com/defistate/uniswap-broker-go/contracts"
	v3calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv3/calculator"
)

func main() {
	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	configPath := flag.String("config", "deploy.yaml", "Path to the configuration file.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)

	cfg, err := loadDeployConfig(*configPath)
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	key, err := privateKey()
	if err != nil {
		rootLogger.Error("Failed to load signing key", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain, err := ethereum.Dial(
		ctx,
		cfg.ChainRPCURL,
		rootLogger.With("component", "ethereum-client"),
		prometheus.DefaultRegisterer,
		ethereum.WithPrivateKey(key),
	)
	if err != nil {
		rootLogger.Error("Failed to dial chain", "url", cfg.ChainRPCURL, "error", err)
		os.Exit(1)
	}
	defer chain.Close()

	book, err := deploy(ctx, chain, cfg, rootLogger)
	if err != nil {
		rootLogger.Error("Deployment failed", "error", err)
		os.Exit(1)
	}

	if err := writeAddressBook(cfg.OutputPath, book); err != nil {
		rootLogger.Error("Failed to write address book", "path", cfg.OutputPath, "error", err)
		os.Exit(1)
	}
	rootLogger.Info("Deployment complete", "address_book", cfg.OutputPath)
}

func deploy(ctx context.Context, chain *ethereum.Client, cfg *DeployConfig, logger *slog.Logger) (map[string]common.Address, error) {
	book := make(map[string]common.Address)

	factory := common.HexToAddress(cfg.Factory)
	router := common.HexToAddress(cfg.Router)
	if factory == (common.Address{}) || router == (common.Address{}) {
		return nil, fmt.Errorf("factory and router addresses must be set")
	}
	book["factory"] = factory
	book["router"] = router

	sender, err := chain.Sender()
	if err != nil {
		return nil, err
	}

	tokenA, err := deployToken(ctx, chain, cfg.ArtifactsDir, cfg.TokenA, logger)
	if err != nil {
		return nil, err
	}
	book["token_a"] = tokenA

	tokenB, err := deployToken(ctx, chain, cfg.ArtifactsDir, cfg.TokenB, logger)
	if err != nil {
		return nil, err
	}
	book["token_b"] = tokenB

	pair, err := chain.CreatePair(ctx, factory, tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	logger.Info("Pair created", "pair", pair, "token_a", tokenA, "token_b", tokenB)
	book["pair"] = pair

	liquidityA, ok := new(big.Int).SetString(cfg.LiquidityA, 10)
	if !ok {
		return nil, fmt.Errorf("liquidity_a is not a valid integer: %q", cfg.LiquidityA)
	}
	liquidityB, ok := new(big.Int).SetString(cfg.LiquidityB, 10)
	if !ok {
		return nil, fmt.Errorf("liquidity_b is not a valid integer: %q", cfg.LiquidityB)
	}

	if err := chain.EnsureAllowance(ctx, tokenA, router, liquidityA); err != nil {
		return nil, err
	}
	if err := chain.EnsureAllowance(ctx, tokenB, router, liquidityB); err != nil {
		return nil, err
	}

	deadline := big.NewInt(time.Now().Add(5 * time.Minute).Unix())
	if _, err := chain.AddLiquidity(ctx, router, tokenA, tokenB, liquidityA, liquidityB, sender, deadline); err != nil {
		return nil, err
	}
	logger.Info("Liquidity seeded", "pair", pair, "amount_a", liquidityA, "amount_b", liquidityB)

	if cfg.V3 != nil {
		pool, err := provisionV3(ctx, chain, cfg.V3, tokenA, tokenB, sender, logger)
		if err != nil {
			return nil, err
		}
		book["v3_pool"] = pool
	}

	finder := common.HexToAddress(cfg.Finder)
	if finder == (common.Address{}) {
		finder, err = deployArtifact(ctx, chain, cfg.ArtifactsDir, "Finder.json", logger)
		if err != nil {
			return nil, err
		}
	}
	book["finder"] = finder

	store, err := deployArtifact(ctx, chain, cfg.ArtifactsDir, "Store.json", logger)
	if err != nil {
		return nil, err
	}
	book["store"] = store

	if _, err := chain.RegisterImplementation(ctx, finder, contracts.StoreInterfaceName, store); err != nil {
		return nil, err
	}
	logger.Info("Store registered in finder", "finder", finder, "store", store)

	if cfg.FinalFee != "" {
		fee, ok := new(big.Int).SetString(cfg.FinalFee, 10)
		if !ok {
			return nil, fmt.Errorf("final_fee is not a valid integer: %q", cfg.FinalFee)
		}
		if _, err := chain.SetFinalFee(ctx, store, tokenA, fee); err != nil {
			return nil, err
		}
		logger.Info("Final fee configured", "store", store, "currency", tokenA, "fee", fee)
	}

	return book, nil
}

// provisionV3 creates and seeds the concentrated-liquidity pool through the
// position manager. Tokens are reordered to the pool's canonical sorting, so
// the configured price must quote token1 per token0 in that order.
func provisionV3(ctx context.Context, chain *ethereum.Client, cfg *V3PoolConfig, tokenA, tokenB, sender common.Address, logger *slog.Logger) (common.Address, error) {
	factory := common.HexToAddress(cfg.Factory)
	positionManager := common.HexToAddress(cfg.PositionManager)
	if factory == (common.Address{}) || positionManager == (common.Address{}) {
		return common.Address{}, fmt.Errorf("v3 factory and position manager addresses must be set")
	}

	token0, token1 := tokenA, tokenB
	if bytes.Compare(token1.Bytes(), token0.Bytes()) < 0 {
		token0, token1 = token1, token0
	}

	numerator, ok := new(big.Int).SetString(cfg.PriceNumerator, 10)
	if !ok {
		return common.Address{}, fmt.Errorf("v3 price_numerator is not a valid integer: %q", cfg.PriceNumerator)
	}
	denominator, ok := new(big.Int).SetString(cfg.PriceDenominator, 10)
	if !ok {
		return common.Address{}, fmt.Errorf("v3 price_denominator is not a valid integer: %q", cfg.PriceDenominator)
	}
	amount0, ok := new(big.Int).SetString(cfg.Amount0, 10)
	if !ok {
		return common.Address{}, fmt.Errorf("v3 amount_0 is not a valid integer: %q", cfg.Amount0)
	}
	amount1, ok := new(big.Int).SetString(cfg.Amount1, 10)
	if !ok {
		return common.Address{}, fmt.Errorf("v3 amount_1 is not a valid integer: %q", cfg.Amount1)
	}

	sqrtPriceX96, err := v3calculator.EncodeSqrtRatioX96(numerator, denominator)
	if err != nil {
		return common.Address{}, err
	}

	fee := big.NewInt(cfg.Fee)
	if _, err := chain.CreateAndInitializePool(ctx, positionManager, token0, token1, fee, sqrtPriceX96); err != nil {
		return common.Address{}, err
	}
	pool, err := chain.GetV3Pool(ctx, factory, token0, token1, fee)
	if err != nil {
		return common.Address{}, err
	}
	logger.Info("V3 pool initialized", "pool", pool, "sqrt_price_x96", sqrtPriceX96)

	if err := chain.EnsureAllowance(ctx, token0, positionManager, amount0); err != nil {
		return common.Address{}, err
	}
	if err := chain.EnsureAllowance(ctx, token1, positionManager, amount1); err != nil {
		return common.Address{}, err
	}

	deadline := big.NewInt(time.Now().Add(5 * time.Minute).Unix())
	_, err = chain.MintPosition(ctx, positionManager, contracts.MintParams{
		Token0:         token0,
		Token1:         token1,
		Fee:            fee,
		TickLower:      big.NewInt(cfg.TickLower),
		TickUpper:      big.NewInt(cfg.TickUpper),
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Recipient:      sender,
		Deadline:       deadline,
	})
	if err != nil {
		return common.Address{}, err
	}
	logger.Info("V3 liquidity minted", "pool", pool,
		"tick_lower", cfg.TickLower, "tick_upper", cfg.TickUpper,
		"amount_0", amount0, "amount_1", amount1)
	return pool, nil
}

func deployToken(ctx context.Context, chain *ethereum.Client, dir string, cfg TokenConfig, logger *slog.Logger) (common.Address, error) {
	supply, ok := new(big.Int).SetString(cfg.Supply, 10)
	if !ok {
		return common.Address{}, fmt.Errorf("token %s supply is not a valid integer: %q", cfg.Symbol, cfg.Supply)
	}

	tokenABI, bytecode, err := contracts.LoadArtifact(filepath.Join(dir, "TestToken.json"))
	if err != nil {
		return common.Address{}, err
	}

	address, _, err := chain.Deploy(ctx, tokenABI, bytecode, cfg.Name, cfg.Symbol, supply)
	if err != nil {
		return common.Address{}, err
	}
	logger.Info("Token deployed", "symbol", cfg.Symbol, "address", address, "supply", supply)
	return address, nil
}

func deployArtifact(ctx context.Context, chain *ethereum.Client, dir, name string, logger *slog.Logger) (common.Address, error) {
	artifactABI, bytecode, err := contracts.LoadArtifact(filepath.Join(dir, name))
	if err != nil {
		return common.Address{}, err
	}

	address, _, err := chain.Deploy(ctx, artifactABI, bytecode)
	if err != nil {
		return common.Address{}, err
	}
	logger.Info("Contract deployed", "artifact", name, "address", address)
	return address, nil
}

func writeAddressBook(path string, book map[string]common.Address) error {
	encoded, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}
