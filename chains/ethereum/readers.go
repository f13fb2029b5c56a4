package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/defistate/uniswap-broker-go/contracts"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv2"
	"github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
)

// PairSnapshot reads the tokens and current reserves of a Uniswap V2 pair.
func (c *Client) PairSnapshot(ctx context.Context, pair common.Address) (uniswapv2.Pool, error) {
	token0, err := c.callAddress(ctx, pair, contracts.V2Pair, "token0")
	if err != nil {
		return uniswapv2.Pool{}, err
	}
	token1, err := c.callAddress(ctx, pair, contracts.V2Pair, "token1")
	if err != nil {
		return uniswapv2.Pool{}, err
	}

	out, err := c.call(ctx, pair, contracts.V2Pair, "getReserves")
	if err != nil {
		return uniswapv2.Pool{}, err
	}
	if len(out) != 3 {
		return uniswapv2.Pool{}, fmt.Errorf("getReserves on %s: unexpected output arity %d", pair, len(out))
	}

	return uniswapv2.Pool{
		Pair:     pair,
		Token0:   token0,
		Token1:   token1,
		Reserve0: *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Reserve1: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		FeeBps:   uniswapv2.DefaultFeeBps,
	}, nil
}

// PoolSnapshot reads the static parameters and current slot0 state of a
// Uniswap V3 pool. The ticks slice is left empty; callers that simulate
// multi-range swaps attach tick data from their own source.
func (c *Client) PoolSnapshot(ctx context.Context, pool common.Address) (uniswapv3.Pool, error) {
	token0, err := c.callAddress(ctx, pool, contracts.V3Pool, "token0")
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	token1, err := c.callAddress(ctx, pool, contracts.V3Pool, "token1")
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	fee, err := c.callBig(ctx, pool, contracts.V3Pool, "fee")
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	tickSpacing, err := c.callBig(ctx, pool, contracts.V3Pool, "tickSpacing")
	if err != nil {
		return uniswapv3.Pool{}, err
	}
	liquidity, err := c.callBig(ctx, pool, contracts.V3Pool, "liquidity")
	if err != nil {
		return uniswapv3.Pool{}, err
	}

	slot0, err := c.Slot0(ctx, pool)
	if err != nil {
		return uniswapv3.Pool{}, err
	}

	return uniswapv3.Pool{
		Address:      pool,
		Token0:       token0,
		Token1:       token1,
		Fee:          fee.Uint64(),
		TickSpacing:  tickSpacing.Int64(),
		Tick:         slot0.Tick.Int64(),
		Liquidity:    liquidity,
		SqrtPriceX96: slot0.SqrtPriceX96,
	}, nil
}

// Slot0 reads the packed price/tick slot of a Uniswap V3 pool.
func (c *Client) Slot0(ctx context.Context, pool common.Address) (contracts.Slot0, error) {
	out, err := c.call(ctx, pool, contracts.V3Pool, "slot0")
	if err != nil {
		return contracts.Slot0{}, err
	}
	if len(out) != 7 {
		return contracts.Slot0{}, fmt.Errorf("slot0 on %s: unexpected output arity %d", pool, len(out))
	}
	return contracts.Slot0{
		SqrtPriceX96:               *abi.ConvertType(out[0], new(*big.Int)).(**big.Int),
		Tick:                       *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		ObservationIndex:           *abi.ConvertType(out[2], new(uint16)).(*uint16),
		ObservationCardinality:     *abi.ConvertType(out[3], new(uint16)).(*uint16),
		ObservationCardinalityNext: *abi.ConvertType(out[4], new(uint16)).(*uint16),
		FeeProtocol:                *abi.ConvertType(out[5], new(uint8)).(*uint8),
		Unlocked:                   *abi.ConvertType(out[6], new(bool)).(*bool),
	}, nil
}

// GetPair resolves a V2 pair address through the factory. The zero address
// means the pair has not been created.
func (c *Client) GetPair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	return c.callAddress(ctx, factory, contracts.V2Factory, "getPair", tokenA, tokenB)
}

// GetV3Pool resolves a V3 pool address through the factory. The zero
// address means no pool exists for the pair and fee.
func (c *Client) GetV3Pool(ctx context.Context, factory, tokenA, tokenB common.Address, fee *big.Int) (common.Address, error) {
	return c.callAddress(ctx, factory, contracts.V3Factory, "getPool", tokenA, tokenB, fee)
}

// BalanceOf reads an ERC-20 balance.
func (c *Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return c.callBig(ctx, token, contracts.ERC20, "balanceOf", account)
}

// Allowance reads an ERC-20 allowance.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return c.callBig(ctx, token, contracts.ERC20, "allowance", owner, spender)
}

// Decimals reads an ERC-20 decimals value.
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, contracts.ERC20, "decimals")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("decimals on %s: unexpected output arity %d", token, len(out))
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

func (c *Client) callAddress(
	ctx context.Context,
	address common.Address,
	cabi abi.ABI,
	method string,
	args ...interface{},
) (common.Address, error) {
	out, err := c.call(ctx, address, cabi, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("%s on %s: unexpected output arity %d", method, address, len(out))
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *Client) callBig(
	ctx context.Context,
	address common.Address,
	cabi abi.ABI,
	method string,
	args ...interface{},
) (*big.Int, error) {
	out, err := c.call(ctx, address, cabi, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("%s on %s: unexpected output arity %d", method, address, len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
