package calculator

import (
	"errors"
	"math/big"
	"sort"

	uniswapv3 "github.com/defistate/uniswap-broker-go/protocols/uniswapv3"
)

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

	ErrLiquidityOverflow  = errors.New("liquidity overflow")
	ErrLiquidityUnderflow = errors.New("liquidity underflow")
)

// addLiquidityDelta returns liquidity + delta, enforcing uint128 bounds.
func addLiquidityDelta(liquidity, delta *big.Int) (*big.Int, error) {
	next := new(big.Int).Add(liquidity, delta)
	if next.Sign() < 0 {
		return nil, ErrLiquidityUnderflow
	}
	if next.Cmp(maxUint128) > 0 {
		return nil, ErrLiquidityOverflow
	}
	return next, nil
}

// nextInitializedTick finds the next initialized tick in the pool's sorted
// tick slice: the largest index <= tick when lte, otherwise the smallest
// index > tick. The second return value is false when no such tick exists.
func nextInitializedTick(ticks []uniswapv3.TickInfo, tick int64, lte bool) (int64, bool) {
	if len(ticks) == 0 {
		return 0, false
	}

	if lte {
		i := sort.Search(len(ticks), func(i int) bool {
			return ticks[i].Index >= tick
		})
		if i < len(ticks) && ticks[i].Index == tick {
			return tick, true
		}
		if i == 0 {
			return 0, false
		}
		return ticks[i-1].Index, true
	}

	i := sort.Search(len(ticks), func(i int) bool {
		return ticks[i].Index > tick
	})
	if i >= len(ticks) {
		return 0, false
	}
	return ticks[i].Index, true
}

// liquidityNetAt returns the net liquidity change at an initialized tick.
func liquidityNetAt(ticks []uniswapv3.TickInfo, tick int64) (*big.Int, bool) {
	i := sort.Search(len(ticks), func(i int) bool {
		return ticks[i].Index >= tick
	})
	if i < len(ticks) && ticks[i].Index == tick {
		return ticks[i].LiquidityNet, true
	}
	return nil, false
}
