package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// TxState is the terminal outcome of a watched transaction.
type TxState int

const (
	TxPending TxState = iota
	TxSuccess
	TxFailed
)

// TxStatus is the result of one confirmation check.
type TxStatus struct {
	State         TxState
	BlockNumber   uint64
	Confirmations uint64
}

// Client is a thin read-only wrapper over an EVM JSON-RPC endpoint: balance
// reads against the USDC contract and receipt polling for submitted
// transfers. It never signs or submits anything — that stays in the user's
// wallet.
type Client struct {
	eth     *ethclient.Client
	token   common.Address
	chainID int64
	log     *zap.Logger
}

func Dial(ctx context.Context, rpcURL, tokenAddress string, chainID int64, log *zap.Logger) (*Client, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token address: %q", tokenAddress)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	remoteID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if remoteID.Int64() != chainID {
		eth.Close()
		return nil, fmt.Errorf("chain id mismatch: expected %d, node reports %s", chainID, remoteID)
	}

	log.Info("evm client connected",
		zap.String("rpc", rpcURL),
		zap.Int64("chain_id", chainID),
		zap.String("token", tokenAddress),
	)

	return &Client{
		eth:     eth,
		token:   common.HexToAddress(tokenAddress),
		chainID: chainID,
		log:     log,
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) ChainID() int64 {
	return c.chainID
}

func (c *Client) TokenAddress() string {
	return c.token.Hex()
}

// BalanceOf reads the token balance of holder via eth_call at the latest block.
func (c *Client) BalanceOf(ctx context.Context, holder string) (*big.Int, error) {
	if !common.IsHexAddress(holder) {
		return nil, fmt.Errorf("invalid holder address: %q", holder)
	}

	data := BalanceOfCalldata(common.HexToAddress(holder))
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("balanceOf returned no data (is %s a token contract?)", c.token.Hex())
	}
	return new(big.Int).SetBytes(out), nil
}

// CheckTx reports whether the given transaction hash has landed and with how
// many confirmations. A missing receipt means still pending.
func (c *Client) CheckTx(ctx context.Context, txHash string) (TxStatus, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if err == ethereum.NotFound {
			return TxStatus{State: TxPending}, nil
		}
		return TxStatus{}, fmt.Errorf("receipt %s: %w", txHash, err)
	}

	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return TxStatus{}, fmt.Errorf("block number: %w", err)
	}

	status := TxStatus{BlockNumber: receipt.BlockNumber.Uint64()}
	if head >= status.BlockNumber {
		status.Confirmations = head - status.BlockNumber + 1
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		status.State = TxSuccess
	} else {
		status.State = TxFailed
	}
	return status, nil
}
