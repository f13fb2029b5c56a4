package main

import (
	"github.com/defistate/uniswap-broker-go/broker"
	"github.com/defistate/uniswap-broker-go/cmd/broker/config"
)

func v2Params(cfg *config.BrokerConfig) (broker.V2Params, error) {
	var (
		params broker.V2Params
		err    error
	)

	if params.Pair, err = config.Address("v2.pair", cfg.V2.Pair); err != nil {
		return params, err
	}
	if params.Router, err = config.Address("v2.router", cfg.V2.Router); err != nil {
		return params, err
	}
	if params.Factory, err = config.OptionalAddress("v2.factory", cfg.V2.Factory); err != nil {
		return params, err
	}
	if params.Broker, err = config.OptionalAddress("v2.broker", cfg.V2.Broker); err != nil {
		return params, err
	}
	if params.TokenA, err = config.Address("v2.token_a", cfg.V2.TokenA); err != nil {
		return params, err
	}
	if params.TokenB, err = config.Address("v2.token_b", cfg.V2.TokenB); err != nil {
		return params, err
	}
	if params.TruePriceA, err = config.Amount("v2.true_price_a", cfg.V2.TruePriceA); err != nil {
		return params, err
	}
	if params.TruePriceB, err = config.Amount("v2.true_price_b", cfg.V2.TruePriceB); err != nil {
		return params, err
	}
	if params.MaxSpendA, err = config.Amount("v2.max_spend_a", cfg.V2.MaxSpendA); err != nil {
		return params, err
	}
	if params.MaxSpendB, err = config.Amount("v2.max_spend_b", cfg.V2.MaxSpendB); err != nil {
		return params, err
	}
	if params.Recipient, err = config.Address("recipient", cfg.Recipient); err != nil {
		return params, err
	}

	params.TradingAsEOA = cfg.TradingAsEOA
	params.Deadline = cfg.Deadline()
	return params, nil
}

func v3Params(cfg *config.BrokerConfig) (broker.V3Params, error) {
	var (
		params broker.V3Params
		err    error
	)

	if params.Pool, err = config.Address("v3.pool", cfg.V3.Pool); err != nil {
		return params, err
	}
	if params.Router, err = config.Address("v3.router", cfg.V3.Router); err != nil {
		return params, err
	}
	if params.Broker, err = config.OptionalAddress("v3.broker", cfg.V3.Broker); err != nil {
		return params, err
	}
	if params.PriceNumerator, err = config.Amount("v3.price_numerator", cfg.V3.PriceNumerator); err != nil {
		return params, err
	}
	if params.PriceDenominator, err = config.Amount("v3.price_denominator", cfg.V3.PriceDenominator); err != nil {
		return params, err
	}
	if params.MaxSpend0, err = config.Amount("v3.max_spend_0", cfg.V3.MaxSpend0); err != nil {
		return params, err
	}
	if params.MaxSpend1, err = config.Amount("v3.max_spend_1", cfg.V3.MaxSpend1); err != nil {
		return params, err
	}
	if params.Recipient, err = config.Address("recipient", cfg.Recipient); err != nil {
		return params, err
	}

	params.TradingAsEOA = cfg.TradingAsEOA
	params.Deadline = cfg.Deadline()
	return params, nil
}
