package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/defistate/uniswap-broker-go/contracts"
)

// maxUint256 is used for unlimited ERC-20 approvals.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Approve grants an ERC-20 allowance and waits for it to be mined.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	return c.submitAndWait(ctx, token, contracts.ERC20, "approve", spender, amount)
}

// EnsureAllowance tops an allowance up to unlimited when the current one
// cannot cover amount. A no-op when the allowance is already sufficient.
func (c *Client) EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	owner, err := c.Sender()
	if err != nil {
		return err
	}

	allowance, err := c.Allowance(ctx, token, owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}

	c.logger.Info("Raising token allowance", "token", token, "spender", spender)
	_, err = c.Approve(ctx, token, spender, maxUint256)
	return err
}

// Transfer moves ERC-20 tokens from the signer to another account.
func (c *Client) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) (*types.Receipt, error) {
	return c.submitAndWait(ctx, token, contracts.ERC20, "transfer", to, amount)
}

// SwapExactTokensForTokens executes a V2 router swap and waits for inclusion.
func (c *Client) SwapExactTokensForTokens(
	ctx context.Context,
	router common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
	deadline *big.Int,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, router, contracts.V2Router,
		"swapExactTokensForTokens", amountIn, amountOutMin, path, to, deadline)
}

// AddLiquidity seeds a V2 pair through the router.
func (c *Client) AddLiquidity(
	ctx context.Context,
	router, tokenA, tokenB common.Address,
	amountA, amountB *big.Int,
	to common.Address,
	deadline *big.Int,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, router, contracts.V2Router,
		"addLiquidity", tokenA, tokenB, amountA, amountB,
		big.NewInt(0), big.NewInt(0), to, deadline)
}

// CreatePair creates a V2 pair through the factory and resolves its address.
func (c *Client) CreatePair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	if _, err := c.submitAndWait(ctx, factory, contracts.V2Factory, "createPair", tokenA, tokenB); err != nil {
		return common.Address{}, err
	}
	return c.GetPair(ctx, factory, tokenA, tokenB)
}

// ExactInputSingle executes a V3 router swap and waits for inclusion.
func (c *Client) ExactInputSingle(
	ctx context.Context,
	router common.Address,
	params contracts.ExactInputSingleParams,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, router, contracts.V3SwapRouter, "exactInputSingle", params)
}

// CreateAndInitializePool ensures a V3 pool exists for the pair and fee,
// initializing it at sqrtPriceX96 when newly created.
func (c *Client) CreateAndInitializePool(
	ctx context.Context,
	positionManager, token0, token1 common.Address,
	fee, sqrtPriceX96 *big.Int,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, positionManager, contracts.V3PositionManager,
		"createAndInitializePoolIfNecessary", token0, token1, fee, sqrtPriceX96)
}

// MintPosition provisions concentrated liquidity through the position
// manager.
func (c *Client) MintPosition(
	ctx context.Context,
	positionManager common.Address,
	params contracts.MintParams,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, positionManager, contracts.V3PositionManager, "mint", params)
}

// V2BrokerSwapToPrice drives the on-chain V2 broker contract, which sizes
// and executes the corrective trade atomically.
func (c *Client) V2BrokerSwapToPrice(
	ctx context.Context,
	broker common.Address,
	tradingAsEOA bool,
	router, factory common.Address,
	swappedTokens [2]common.Address,
	truePrices, maxSpend [2]*big.Int,
	to common.Address,
	deadline *big.Int,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, broker, contracts.V2Broker, "swapToPrice",
		tradingAsEOA, router, factory, swappedTokens, truePrices, maxSpend, to, deadline)
}

// V3BrokerSwapToPrice drives the on-chain V3 broker contract.
func (c *Client) V3BrokerSwapToPrice(
	ctx context.Context,
	broker common.Address,
	tradingAsEOA bool,
	pool, swapRouter common.Address,
	sqrtRatioTargetX96 *big.Int,
	to common.Address,
	deadline *big.Int,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, broker, contracts.V3Broker, "swapToPrice",
		tradingAsEOA, pool, swapRouter, sqrtRatioTargetX96, to, deadline)
}

// RegisterImplementation announces a contract address under a name in the
// Finder registry.
func (c *Client) RegisterImplementation(
	ctx context.Context,
	finder common.Address,
	interfaceName [32]byte,
	implementation common.Address,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, finder, contracts.Finder,
		"changeImplementationAddress", interfaceName, implementation)
}

// SetFinalFee configures the Store's flat fee for a currency.
func (c *Client) SetFinalFee(
	ctx context.Context,
	store, currency common.Address,
	fee *big.Int,
) (*types.Receipt, error) {
	return c.submitAndWait(ctx, store, contracts.Store, "setFinalFee", currency, fee)
}
