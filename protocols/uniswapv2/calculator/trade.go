package calculator

import (
	"fmt"
	"math/big"

	uniswapv2 "github.com/defistate/uniswap-broker-go/protocols/uniswapv2"
)

// ComputeTradeToMoveMarket computes the trade required to move a
// constant-product pool's spot price to the target price
// truePriceA/truePriceB, where the target is expressed as the post-trade
// reserve ratio reserveA'/reserveB'.
//
// The returned direction aToB is true when token A must be sold into the
// pool, and amountIn is the exact input amount in the sold token's smallest
// unit. With k = reserveA*reserveB and the fee numerator f = 10000-feeBps:
//
//	amountIn = floor(sqrt(k * 10000 * truePriceIn / (truePriceOut * f))) - reserveIn*10000/f
//
// where (truePriceIn, reserveIn) belong to the sold token. A pool already at
// the target yields amountIn = 0. All arithmetic is arbitrary-precision with
// truncating division; the square root is the floor of the true root, so the
// post-trade price lands within the pool's fee/rounding tolerance of the
// target rather than exactly on it.
func ComputeTradeToMoveMarket(
	truePriceA *big.Int,
	truePriceB *big.Int,
	reserveA *big.Int,
	reserveB *big.Int,
	feeBps uint16,
) (aToB bool, amountIn *big.Int, err error) {
	for _, v := range []*big.Int{truePriceA, truePriceB, reserveA, reserveB} {
		if v == nil || v.Sign() <= 0 {
			return false, nil, fmt.Errorf("%w: reserves and target price must be positive", ErrInvalidInput)
		}
	}
	if int64(feeBps) >= basisPointDivisor.Int64() {
		return false, nil, fmt.Errorf("%w: feeBps %d exceeds 100%%", ErrInvalidInput, feeBps)
	}

	// Current implied ratio vs target: sell A when reserveA/reserveB must grow.
	implied := new(big.Int).Mul(reserveA, truePriceB)
	implied.Quo(implied, reserveB)
	aToB = implied.Cmp(truePriceA) < 0

	priceIn, priceOut := truePriceB, truePriceA
	reserveIn := reserveB
	if aToB {
		priceIn, priceOut = truePriceA, truePriceB
		reserveIn = reserveA
	}

	feeMultiplier := new(big.Int).Sub(basisPointDivisor, big.NewInt(int64(feeBps)))

	// leftSide = floor(sqrt(reserveA*reserveB*10000*priceIn / (priceOut*feeMultiplier)))
	leftSide := new(big.Int).Mul(reserveA, reserveB)
	leftSide.Mul(leftSide, basisPointDivisor)
	leftSide.Mul(leftSide, priceIn)
	leftSide.Quo(leftSide, new(big.Int).Mul(priceOut, feeMultiplier))
	leftSide.Sqrt(leftSide)

	// rightSide = reserveIn*10000/feeMultiplier
	rightSide := new(big.Int).Mul(reserveIn, basisPointDivisor)
	rightSide.Quo(rightSide, feeMultiplier)

	amountIn = leftSide.Sub(leftSide, rightSide)
	if amountIn.Sign() < 0 {
		// Rounding pushed the pool past the target; no trade improves it.
		amountIn.SetInt64(0)
	}
	return aToB, amountIn, nil
}

// ComputeTradeForPool is a pool-oriented convenience around
// ComputeTradeToMoveMarket: token A is the pool's Token0 and the target is
// truePrice0/truePrice1 expressed as the post-trade Reserve0'/Reserve1'.
func ComputeTradeForPool(truePrice0, truePrice1 *big.Int, pool uniswapv2.Pool) (zeroForOne bool, amountIn *big.Int, err error) {
	return ComputeTradeToMoveMarket(truePrice0, truePrice1, pool.Reserve0, pool.Reserve1, pool.FeeBps)
}
