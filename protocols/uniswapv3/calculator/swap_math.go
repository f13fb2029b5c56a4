package calculator

import "math/big"

// feePipsDenominator represents 100% in hundredths of a bip (1,000,000 ppm).
var feePipsDenominator = big.NewInt(1_000_000)

// swapStep is the outcome of swapping within a single liquidity segment.
type swapStep struct {
	sqrtPriceNextX96 *big.Int
	amountIn         *big.Int
	amountOut        *big.Int
	feeAmount        *big.Int
}

// computeSwapStep advances the price from sqrtPriceCurrentX96 toward
// sqrtPriceTargetX96, consuming at most amountRemaining (positive for
// exact-in, negative for exact-out). It mirrors SwapMath.sol: the returned
// amountIn/amountOut are fee-exclusive and feeAmount is charged on top of
// amountIn.
func computeSwapStep(
	sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, amountRemaining *big.Int,
	feePips uint64,
) (swapStep, error) {
	zeroForOne := sqrtPriceCurrentX96.Cmp(sqrtPriceTargetX96) >= 0
	exactIn := amountRemaining.Sign() >= 0
	fee := new(big.Int).SetUint64(feePips)
	feeComplement := new(big.Int).Sub(feePipsDenominator, fee)

	var (
		step swapStep
		err  error
	)
	step.amountIn = new(big.Int)
	step.amountOut = new(big.Int)
	step.feeAmount = new(big.Int)

	if exactIn {
		amountRemainingLessFee := mulDiv(amountRemaining, feeComplement, feePipsDenominator)
		if zeroForOne {
			step.amountIn, err = Amount0Delta(sqrtPriceTargetX96, sqrtPriceCurrentX96, liquidity, true)
		} else {
			step.amountIn = Amount1Delta(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, true)
		}
		if err != nil {
			return swapStep{}, err
		}
		if amountRemainingLessFee.Cmp(step.amountIn) >= 0 {
			step.sqrtPriceNextX96 = new(big.Int).Set(sqrtPriceTargetX96)
		} else {
			step.sqrtPriceNextX96, err = NextSqrtPriceFromInput(sqrtPriceCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
			if err != nil {
				return swapStep{}, err
			}
		}
	} else {
		amountRemainingAbs := new(big.Int).Neg(amountRemaining)
		if zeroForOne {
			step.amountOut = Amount1Delta(sqrtPriceTargetX96, sqrtPriceCurrentX96, liquidity, false)
		} else {
			step.amountOut, err = Amount0Delta(sqrtPriceCurrentX96, sqrtPriceTargetX96, liquidity, false)
		}
		if err != nil {
			return swapStep{}, err
		}
		if amountRemainingAbs.Cmp(step.amountOut) >= 0 {
			step.sqrtPriceNextX96 = new(big.Int).Set(sqrtPriceTargetX96)
		} else {
			step.sqrtPriceNextX96, err = NextSqrtPriceFromOutput(sqrtPriceCurrentX96, liquidity, amountRemainingAbs, zeroForOne)
			if err != nil {
				return swapStep{}, err
			}
		}
	}

	max := sqrtPriceTargetX96.Cmp(step.sqrtPriceNextX96) == 0

	// Recompute both legs against the price actually reached.
	if zeroForOne {
		if !(max && exactIn) {
			step.amountIn, err = Amount0Delta(step.sqrtPriceNextX96, sqrtPriceCurrentX96, liquidity, true)
			if err != nil {
				return swapStep{}, err
			}
		}
		if !(max && !exactIn) {
			step.amountOut = Amount1Delta(step.sqrtPriceNextX96, sqrtPriceCurrentX96, liquidity, false)
		}
	} else {
		if !(max && exactIn) {
			step.amountIn = Amount1Delta(sqrtPriceCurrentX96, step.sqrtPriceNextX96, liquidity, true)
		}
		if !(max && !exactIn) {
			step.amountOut, err = Amount0Delta(sqrtPriceCurrentX96, step.sqrtPriceNextX96, liquidity, false)
			if err != nil {
				return swapStep{}, err
			}
		}
	}

	if !exactIn {
		amountRemainingAbs := new(big.Int).Neg(amountRemaining)
		if step.amountOut.Cmp(amountRemainingAbs) > 0 {
			step.amountOut = amountRemainingAbs
		}
	}

	if exactIn && step.sqrtPriceNextX96.Cmp(sqrtPriceTargetX96) != 0 {
		// Didn't reach the target: the whole leftover input is the fee.
		step.feeAmount = new(big.Int).Sub(amountRemaining, step.amountIn)
	} else {
		step.feeAmount = mulDivRoundingUp(step.amountIn, fee, feeComplement)
	}

	return step, nil
}
