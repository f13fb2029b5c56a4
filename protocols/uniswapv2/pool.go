package uniswapv2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultFeeBps is the canonical Uniswap V2 swap fee (0.3%).
const DefaultFeeBps uint16 = 30

// Pool is a snapshot of a single constant-product pair.
// Reserves are denominated in each token's smallest unit.
type Pool struct {
	Pair     common.Address `json:"pair"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
	FeeBps   uint16         `json:"feeBps"` // i.e. 30 for 0.3%
}

// Contains reports whether token is one of the pool's two tokens.
func (p Pool) Contains(token common.Address) bool {
	return token == p.Token0 || token == p.Token1
}

// Other returns the pool token paired with the given one. The second
// return value is false when the token is not in the pool.
func (p Pool) Other(token common.Address) (common.Address, bool) {
	switch token {
	case p.Token0:
		return p.Token1, true
	case p.Token1:
		return p.Token0, true
	}
	return common.Address{}, false
}
