package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/defistate/uniswap-broker-go/broker"
	"github.com/defistate/uniswap-broker-go/chains/ethereum"
	"github.com/defistate/uniswap-broker-go/cmd/broker/config"
	"github.com/defistate/uniswap-broker-go/prices"
	v2calculator "github.com/defistate/uniswap-broker-go/protocols/uniswapv2/calculator"
)

func main() {
	rootLogHandler := slog.NewJSONHandler(os.Stdout, nil)
	rootLogger := slog.New(rootLogHandler)
	prometheusRegistry := prometheus.DefaultRegisterer

	cfg, protocol, err := loadConfig()
	if err != nil {
		rootLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	key, err := config.PrivateKey()
	if err != nil {
		rootLogger.Error("Failed to load signing key", "error", err)
		os.Exit(1)
	}

	// Cancel when the OS sends an interrupt or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, rootLogger)
	}

	chain, err := ethereum.Dial(
		ctx,
		cfg.ChainRPCURL,
		rootLogger.With("component", "ethereum-client"),
		prometheusRegistry,
		ethereum.WithPrivateKey(key),
	)
	if err != nil {
		rootLogger.Error("Failed to dial chain", "url", cfg.ChainRPCURL, "error", err)
		os.Exit(1)
	}
	defer chain.Close()

	b := broker.New(chain, rootLogger.With("component", "broker"))

	switch protocol {
	case "v2":
		err = runV2(ctx, b, chain, cfg, rootLogger)
	case "v3":
		err = runV3(ctx, b, chain, cfg, rootLogger)
	default:
		err = errors.New("protocol must be v2 or v3")
	}
	if err != nil {
		rootLogger.Error("Swap to price failed", "protocol", protocol, "error", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.BrokerConfig, string, error) {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file.")
	protocol := flag.String("protocol", "v2", "Pool protocol to target: v2 or v3.")
	flag.Parse()
	log.Printf("Loading configuration from: %s", *configPath)
	cfg, err := config.LoadConfig(*configPath)
	return cfg, *protocol, err
}

func runV2(ctx context.Context, b *broker.Broker, chain *ethereum.Client, cfg *config.BrokerConfig, logger *slog.Logger) error {
	if cfg.V2 == nil {
		return errors.New("config: v2 section not set")
	}

	params, err := v2Params(cfg)
	if err != nil {
		return err
	}

	pre := v2SpotPrice(ctx, chain, params, logger)

	result, err := b.SwapV2ToPrice(ctx, params)
	if err != nil {
		return err
	}

	if result.Receipt == nil {
		logger.Info("No trade executed", "capped", result.Capped)
		return nil
	}
	logger.Info("V2 swap to price complete",
		"a_to_b", result.AToB, "amount_in", result.AmountIn,
		"expected_out", result.ExpectedOut, "capped", result.Capped,
		"tx", result.Receipt.TxHash)

	if post := v2SpotPrice(ctx, chain, params, logger); !pre.IsZero() && !post.IsZero() {
		reportPriceMove(pre, post, params.TruePriceA, params.TruePriceB, nil, logger)
	}
	return nil
}

func runV3(ctx context.Context, b *broker.Broker, chain *ethereum.Client, cfg *config.BrokerConfig, logger *slog.Logger) error {
	if cfg.V3 == nil {
		return errors.New("config: v3 section not set")
	}

	params, err := v3Params(cfg)
	if err != nil {
		return err
	}

	pre := v3SpotPrice(ctx, chain, params.Pool, logger)

	result, err := b.SwapV3ToPrice(ctx, params)
	if err != nil {
		return err
	}

	if result.Receipt == nil {
		logger.Info("No trade executed", "capped", result.Capped)
		return nil
	}
	logger.Info("V3 swap to price complete",
		"zero_for_one", result.ZeroForOne, "amount_in", result.AmountIn,
		"expected_out", result.ExpectedOut, "capped", result.Capped,
		"tx", result.Receipt.TxHash)

	if post := v3SpotPrice(ctx, chain, params.Pool, logger); !pre.IsZero() && !post.IsZero() {
		reportPriceMove(pre, post, params.PriceNumerator, params.PriceDenominator, params.SqrtPriceTargetX96, logger)
	}
	return nil
}

// v2SpotPrice reads the pair's spot price as token A quoted in token B.
// Reporting only; a zero value means the read failed and is already logged.
func v2SpotPrice(ctx context.Context, chain *ethereum.Client, params broker.V2Params, logger *slog.Logger) decimal.Decimal {
	pool, err := chain.PairSnapshot(ctx, params.Pair)
	if err != nil {
		logger.Warn("Failed to read pair reserves for price report", "pair", params.Pair, "error", err)
		return decimal.Decimal{}
	}
	reserveA, reserveB, err := v2calculator.GetReserves(params.TokenA, params.TokenB, pool)
	if err == nil {
		var spot decimal.Decimal
		if spot, err = prices.FromRational(reserveA, reserveB); err == nil {
			return spot
		}
	}
	logger.Warn("Failed to compute pair spot price", "pair", params.Pair, "error", err)
	return decimal.Decimal{}
}

func v3SpotPrice(ctx context.Context, chain *ethereum.Client, pool common.Address, logger *slog.Logger) decimal.Decimal {
	slot0, err := chain.Slot0(ctx, pool)
	if err == nil {
		var spot decimal.Decimal
		if spot, err = prices.FromSqrtPriceX96(slot0.SqrtPriceX96); err == nil {
			return spot
		}
	}
	logger.Warn("Failed to read pool spot price", "pool", pool, "error", err)
	return decimal.Decimal{}
}

func reportPriceMove(pre, post decimal.Decimal, targetNum, targetDen, sqrtTargetX96 *big.Int, logger *slog.Logger) {
	var (
		target decimal.Decimal
		err    error
	)
	if sqrtTargetX96 != nil {
		target, err = prices.FromSqrtPriceX96(sqrtTargetX96)
	} else {
		target, err = prices.FromRational(targetNum, targetDen)
	}
	if err != nil {
		logger.Warn("Failed to decode target price for report", "error", err)
		return
	}
	tolerance, err := prices.RelativeError(post, target)
	if err != nil {
		logger.Warn("Failed to compute achieved tolerance", "error", err)
		return
	}
	logger.Info("Spot price moved",
		"pre", pre, "post", post, "target", target, "relative_error", tolerance)
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped", "error", err)
	}
}
