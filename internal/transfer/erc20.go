package transfer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/curvelabs/bondengine/internal/domain"
)

// Minimal ERC-20 fragment: the two mutating calls the engine needs.
const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// ERC20Config holds the parameters for the on-chain reserve asset.
type ERC20Config struct {
	// RPCURL is the JSON-RPC endpoint of the chain node.
	RPCURL string
	// TokenAddress is the ERC-20 contract of the reserve asset.
	TokenAddress string
	// OperatorKeyHex is the hex-encoded private key of the custody account.
	// Buyers must have approved this account on the token beforehand.
	OperatorKeyHex string
	// ChainID of the target network.
	ChainID int64
	// GasLimit per transfer transaction. Defaults to 90_000.
	GasLimit uint64
}

// ERC20 implements domain.Transfer by moving an ERC-20 token through the
// engine's custody account. TransferIn issues transferFrom(buyer, custody)
// and TransferOut issues transfer(to); both wait for the transaction to mine
// and treat a reverted receipt as failure.
type ERC20 struct {
	client   *ethclient.Client
	abi      abi.ABI
	token    common.Address
	custody  common.Address
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	gasLimit uint64
	logger   *slog.Logger
}

// NewERC20 dials the RPC endpoint and prepares the custody signer.
func NewERC20(ctx context.Context, cfg ERC20Config, logger *slog.Logger) (*ERC20, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("erc20: dial %s: %w", cfg.RPCURL, err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("erc20: parse abi: %w", err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.OperatorKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("erc20: parse operator key: %w", err)
	}
	gasLimit := cfg.GasLimit
	if gasLimit == 0 {
		gasLimit = 90_000
	}
	return &ERC20{
		client:   client,
		abi:      parsed,
		token:    common.HexToAddress(cfg.TokenAddress),
		custody:  crypto.PubkeyToAddress(key.PublicKey),
		key:      key,
		chainID:  big.NewInt(cfg.ChainID),
		gasLimit: gasLimit,
		logger:   logger.With(slog.String("component", "erc20_transfer")),
	}, nil
}

// Custody returns the custody (vault) address derived from the operator key.
func (t *ERC20) Custody() common.Address {
	return t.custody
}

// Close releases the underlying RPC connection.
func (t *ERC20) Close() {
	t.client.Close()
}

// TransferIn pulls amount from the account into custody via transferFrom.
func (t *ERC20) TransferIn(ctx context.Context, from domain.Account, amount uint64) error {
	data, err := t.abi.Pack("transferFrom",
		common.HexToAddress(string(from)), t.custody, new(big.Int).SetUint64(amount))
	if err != nil {
		return fmt.Errorf("erc20: pack transferFrom: %w", err)
	}
	return t.send(ctx, data)
}

// TransferOut pays amount from custody to the account via transfer.
func (t *ERC20) TransferOut(ctx context.Context, to domain.Account, amount uint64) error {
	data, err := t.abi.Pack("transfer",
		common.HexToAddress(string(to)), new(big.Int).SetUint64(amount))
	if err != nil {
		return fmt.Errorf("erc20: pack transfer: %w", err)
	}
	return t.send(ctx, data)
}

// send signs, submits, and waits for one token call, failing on revert.
func (t *ERC20) send(ctx context.Context, data []byte) error {
	nonce, err := t.client.PendingNonceAt(ctx, t.custody)
	if err != nil {
		return fmt.Errorf("erc20: nonce: %w", err)
	}
	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("erc20: gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &t.token,
		Gas:      t.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(t.chainID), t.key)
	if err != nil {
		return fmt.Errorf("erc20: sign: %w", err)
	}
	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("erc20: send: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, t.client, signed)
	if err != nil {
		return fmt.Errorf("erc20: wait mined %s: %w", signed.Hash(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("erc20: transaction %s reverted", signed.Hash())
	}

	t.logger.DebugContext(ctx, "token call mined",
		slog.String("tx", signed.Hash().Hex()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)
	return nil
}

// Compile-time interface check.
var _ domain.Transfer = (*ERC20)(nil)
