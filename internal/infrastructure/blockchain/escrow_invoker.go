package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	domainerrors "deal-chain.backend/internal/domain/errors"
)

// ChainInvoker is the on-chain surface the deal flows depend on. The
// concrete client signs with the backend operator key; tests substitute a
// stub.
type ChainInvoker interface {
	// SendContractCall signs, submits and waits for one confirmation of a
	// state-changing escrow call, returning the transaction hash.
	SendContractCall(ctx context.Context, contractAddress, method string, args ...interface{}) (string, error)
	// ReadContractState performs a read-only escrow call and returns the
	// unpacked values.
	ReadContractState(ctx context.Context, contractAddress, method string, args ...interface{}) ([]interface{}, error)
	// BalanceOf returns the native balance of an address in wei.
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
}

var sendBoundTx = func(ctx context.Context, client *EVMClient, auth *bind.TransactOpts, contractAddress string, parsedABI abi.ABI, method string, args ...interface{}) (string, error) {
	contract := bind.NewBoundContract(common.HexToAddress(contractAddress), parsedABI, client.client, client.client, client.client)
	tx, err := contract.Transact(auth, method, args...)
	if err != nil {
		return "", classifyChainError(err)
	}

	receipt, err := bind.WaitMined(ctx, client.client, tx)
	if err != nil {
		return tx.Hash().Hex(), classifyChainError(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash().Hex(), fmt.Errorf("%w: tx %s failed on-chain", domainerrors.ErrContractReverted, tx.Hash().Hex())
	}
	return tx.Hash().Hex(), nil
}

// EscrowInvoker drives the escrow contract over one RPC endpoint with one
// operator key. The key never leaves this type.
type EscrowInvoker struct {
	client *EVMClient
	key    *ecdsa.PrivateKey
	from   common.Address
}

// NewEscrowInvoker parses the operator key and probes the node. Both must
// succeed before the invoker is usable; write calls against a node that
// failed the probe never get this far.
func NewEscrowInvoker(rpcURL, privateKeyHex string) (*EscrowInvoker, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if trimmed == "" {
		return nil, domainerrors.BadRequest("backend wallet private key is not configured")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid backend wallet private key")
	}

	client, err := NewEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	return &EscrowInvoker{
		client: client,
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// OperatorAddress returns the address the invoker signs with.
func (i *EscrowInvoker) OperatorAddress() string {
	return i.from.Hex()
}

// SendContractCall submits the call and waits for exactly one confirmation.
// The context deadline bounds both submission and the receipt wait. No
// retries happen here.
func (i *EscrowInvoker) SendContractCall(ctx context.Context, contractAddress, method string, args ...interface{}) (string, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(i.key, i.client.chainID)
	if err != nil {
		return "", classifyChainError(err)
	}
	auth.Context = ctx

	return sendBoundTx(ctx, i.client, auth, contractAddress, EscrowABI, method, args...)
}

// ReadContractState packs, calls and unpacks a view method.
func (i *EscrowInvoker) ReadContractState(ctx context.Context, contractAddress, method string, args ...interface{}) ([]interface{}, error) {
	data, err := EscrowABI.Pack(method, args...)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid contract call: " + err.Error())
	}
	out, err := i.client.CallView(ctx, contractAddress, data)
	if err != nil {
		return nil, err
	}
	vals, err := EscrowABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", method, err)
	}
	return vals, nil
}

// BalanceOf returns the native balance of an address in wei.
func (i *EscrowInvoker) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	return i.client.GetBalance(ctx, address)
}

// Close releases the underlying RPC connection.
func (i *EscrowInvoker) Close() {
	i.client.Close()
}
