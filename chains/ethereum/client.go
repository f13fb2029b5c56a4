// Package ethereum wraps an Ethereum JSON-RPC endpoint with the contract
// plumbing the broker and the deploy tooling need: typed readers for Uniswap
// pair/pool state, ERC-20 helpers, and transaction submission with receipt
// checking.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/defistate/uniswap-broker-go/chains"
)

var (
	// ErrNoSigner is returned by state-changing methods on a read-only client.
	ErrNoSigner = errors.New("ethereum: client has no signer")
	// ErrTxReverted is returned when a mined transaction has a failed status.
	ErrTxReverted = errors.New("ethereum: transaction reverted")
)

const defaultCallTimeout = 15 * time.Second

// Client is a thin, connection-oriented wrapper around an Ethereum node.
// Its lifecycle is bound to the context passed during Dial.
type Client struct {
	eth     *ethclient.Client
	logger  chains.Logger
	metrics *clientMetrics

	chainID *big.Int
	key     *ecdsa.PrivateKey
	signer  *bind.TransactOpts

	callTimeout time.Duration
}

// Option configures the Client.
// The interface method is unexported to prevent external modification after Dial.
type Option interface {
	apply(*Client)
}

type funcOption func(*Client)

func (f funcOption) apply(c *Client) {
	f(c)
}

func newOption(f func(*Client)) Option {
	return funcOption(f)
}

// WithPrivateKey attaches a signing key; without one the client is read-only.
func WithPrivateKey(key *ecdsa.PrivateKey) Option {
	return newOption(func(c *Client) {
		c.key = key
	})
}

// WithCallTimeout bounds each eth_call issued by the typed readers.
func WithCallTimeout(d time.Duration) Option {
	return newOption(func(c *Client) {
		c.callTimeout = d
	})
}

// Dial connects to the node, fetches the chain ID and, when a key was
// supplied, prepares an EIP-155 transactor for it.
func Dial(
	ctx context.Context,
	url string,
	logger chains.Logger,
	prometheusRegistry prometheus.Registerer,
	opts ...Option,
) (*Client, error) {

	eth, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum url: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}

	c := &Client{
		eth:         eth,
		logger:      logger,
		metrics:     newClientMetrics(prometheusRegistry),
		chainID:     chainID,
		callTimeout: defaultCallTimeout,
	}

	for _, opt := range opts {
		opt.apply(c)
	}

	if c.key != nil {
		signer, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("failed to create transactor: %w", err)
		}
		c.signer = signer
	}

	c.logger.Info("Ethereum client connected", "url", url, "chain_id", chainID)
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
	c.logger.Info("Ethereum client closed")
}

// ChainID reports the chain the client dialed.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Sender reports the address transactions are signed with.
func (c *Client) Sender() (common.Address, error) {
	if c.key == nil {
		return common.Address{}, ErrNoSigner
	}
	return crypto.PubkeyToAddress(c.key.PublicKey), nil
}

// Backend exposes the raw ethclient for callers that need it.
func (c *Client) Backend() *ethclient.Client {
	return c.eth
}

func (c *Client) bound(address common.Address, cabi abi.ABI) *bind.BoundContract {
	return bind.NewBoundContract(address, cabi, c.eth, c.eth, c.eth)
}

// call issues a single eth_call against the contract and returns the raw
// decoded outputs.
func (c *Client) call(
	ctx context.Context,
	address common.Address,
	cabi abi.ABI,
	method string,
	args ...interface{},
) ([]interface{}, error) {

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	var out []interface{}
	err := c.bound(address, cabi).Call(&bind.CallOpts{Context: callCtx}, &out, method, args...)
	c.metrics.observeCall(method, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, address, err)
	}
	return out, nil
}

// transact signs and broadcasts a state-changing method call.
func (c *Client) transact(
	ctx context.Context,
	address common.Address,
	cabi abi.ABI,
	method string,
	args ...interface{},
) (*types.Transaction, error) {

	if c.signer == nil {
		return nil, ErrNoSigner
	}

	opts := *c.signer
	opts.Context = ctx

	tx, err := c.bound(address, cabi).Transact(&opts, method, args...)
	if err != nil {
		c.metrics.observeTx(method, false)
		return nil, fmt.Errorf("transact %s on %s: %w", method, address, err)
	}

	c.logger.Debug("Transaction broadcast", "method", method, "to", address, "tx", tx.Hash())
	return tx, nil
}

// WaitMined blocks until the transaction is included and checks its status.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for tx %s: %w", tx.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: tx %s in block %d", ErrTxReverted, tx.Hash(), receipt.BlockNumber)
	}
	return receipt, nil
}

// submitAndWait is the common broadcast-then-confirm path used by the typed
// writers.
func (c *Client) submitAndWait(
	ctx context.Context,
	address common.Address,
	cabi abi.ABI,
	method string,
	args ...interface{},
) (*types.Receipt, error) {

	tx, err := c.transact(ctx, address, cabi, method, args...)
	if err != nil {
		return nil, err
	}

	receipt, err := c.WaitMined(ctx, tx)
	if err != nil {
		c.metrics.observeTx(method, false)
		return receipt, err
	}

	c.metrics.observeTx(method, true)
	c.logger.Info("Transaction confirmed",
		"method", method, "to", address,
		"tx", tx.Hash(), "block", receipt.BlockNumber, "gas_used", receipt.GasUsed)
	return receipt, nil
}

// Deploy creates a contract from its creation bytecode and waits for the
// deployment to be mined.
func (c *Client) Deploy(
	ctx context.Context,
	cabi abi.ABI,
	bytecode []byte,
	args ...interface{},
) (common.Address, *types.Receipt, error) {

	if c.signer == nil {
		return common.Address{}, nil, ErrNoSigner
	}

	opts := *c.signer
	opts.Context = ctx

	address, tx, _, err := bind.DeployContract(&opts, cabi, bytecode, c.eth, args...)
	if err != nil {
		c.metrics.observeTx("deploy", false)
		return common.Address{}, nil, fmt.Errorf("deploy contract: %w", err)
	}

	receipt, err := c.WaitMined(ctx, tx)
	if err != nil {
		c.metrics.observeTx("deploy", false)
		return common.Address{}, receipt, err
	}

	c.metrics.observeTx("deploy", true)
	c.logger.Info("Contract deployed", "address", address, "tx", tx.Hash(), "block", receipt.BlockNumber)
	return address, receipt, nil
}
