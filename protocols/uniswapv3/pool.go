package uniswapv3

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TickInfo is the liquidity bookkeeping for one initialized tick. Presence
// of the entry implicitly means the tick is initialized.
type TickInfo struct {
	Index          int64    `json:"index"`
	LiquidityGross *big.Int `json:"liquidityGross"`
	LiquidityNet   *big.Int `json:"liquidityNet"`
}

// Pool is a snapshot of a single concentrated-liquidity pool. Ticks must be
// sorted ascending by Index.
type Pool struct {
	Address      common.Address `json:"address"`
	Token0       common.Address `json:"token0"`
	Token1       common.Address `json:"token1"`
	Fee          uint64         `json:"fee"` // in hundredths of a bip (ppm), i.e. 3000 for 0.3%
	TickSpacing  int64          `json:"tickSpacing"`
	Tick         int64          `json:"tick"`
	Liquidity    *big.Int       `json:"liquidity"`
	SqrtPriceX96 *big.Int       `json:"sqrtPriceX96"`
	Ticks        []TickInfo     `json:"ticks"`
}

// Contains reports whether token is one of the pool's two tokens.
func (p Pool) Contains(token common.Address) bool {
	return token == p.Token0 || token == p.Token1
}
