package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	domainerrors "deal-chain.backend/internal/domain/errors"
)

// DeployParams carries everything an escrow deployment needs. Amount is in
// the chain's smallest unit.
type DeployParams struct {
	RPCURL           string
	BuyerWallet      string
	SellerWallet     string
	Amount           *big.Int
	ServiceFeeWallet string
}

// DeployResult identifies the deployed contract and its creation tx.
type DeployResult struct {
	ContractAddress string `json:"contractAddress"`
	DeployTxHash    string `json:"deployTxHash"`
}

// ContractDeployer deploys one escrow contract per deal. Failures are
// classified, never fatal to deal creation.
type ContractDeployer interface {
	Deploy(ctx context.Context, params DeployParams) (*DeployResult, error)
}

var (
	deployEscrowContract = func(auth *bind.TransactOpts, client *EVMClient, buyer, seller common.Address, amount *big.Int, feeWallet common.Address) (common.Address, *types.Transaction, error) {
		addr, tx, _, err := bind.DeployContract(auth, EscrowABI, common.FromHex(EscrowBin), client.client, buyer, seller, amount, feeWallet)
		return addr, tx, err
	}
	waitDeployed = func(ctx context.Context, client *EVMClient, tx *types.Transaction) (common.Address, error) {
		return bind.WaitDeployed(ctx, client.client, tx)
	}
)

// EscrowDeployer deploys escrow contracts from the embedded artifact using
// the deployer key.
type EscrowDeployer struct {
	factory       *ClientFactory
	privateKeyHex string
}

// NewEscrowDeployer creates a deployer backed by the shared client factory.
func NewEscrowDeployer(factory *ClientFactory, privateKeyHex string) *EscrowDeployer {
	return &EscrowDeployer{
		factory:       factory,
		privateKeyHex: strings.TrimSpace(privateKeyHex),
	}
}

// Deploy validates every input before touching the network, then deploys and
// waits for the creation receipt.
func (d *EscrowDeployer) Deploy(ctx context.Context, params DeployParams) (*DeployResult, error) {
	if !common.IsHexAddress(params.BuyerWallet) {
		return nil, domainerrors.BadRequest("invalid buyer wallet address")
	}
	if !common.IsHexAddress(params.SellerWallet) {
		return nil, domainerrors.BadRequest("invalid seller wallet address")
	}
	if params.ServiceFeeWallet != "" && !common.IsHexAddress(params.ServiceFeeWallet) {
		return nil, domainerrors.BadRequest("invalid service fee wallet address")
	}
	if params.Amount == nil || params.Amount.Sign() <= 0 {
		return nil, domainerrors.BadRequest("escrow amount must be positive")
	}
	trimmedKey := strings.TrimPrefix(d.privateKeyHex, "0x")
	if trimmedKey == "" {
		return nil, domainerrors.BadRequest("deployer private key is not configured")
	}
	key, err := crypto.HexToECDSA(trimmedKey)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid deployer private key")
	}
	if strings.TrimSpace(params.RPCURL) == "" {
		return nil, domainerrors.BadRequest("rpc url is required")
	}

	client, err := d.factory.GetEVMClient(params.RPCURL)
	if err != nil {
		return nil, err
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, client.ChainID())
	if err != nil {
		return nil, classifyDeployError(err)
	}
	auth.Context = ctx

	feeWallet := params.ServiceFeeWallet
	if feeWallet == "" {
		feeWallet = crypto.PubkeyToAddress(key.PublicKey).Hex()
	}

	addr, tx, err := deployEscrowContract(auth, client,
		common.HexToAddress(params.BuyerWallet),
		common.HexToAddress(params.SellerWallet),
		params.Amount,
		common.HexToAddress(feeWallet),
	)
	if err != nil {
		return nil, classifyDeployError(err)
	}

	if _, err := waitDeployed(ctx, client, tx); err != nil {
		return nil, classifyDeployError(err)
	}

	return &DeployResult{
		ContractAddress: addr.Hex(),
		DeployTxHash:    tx.Hash().Hex(),
	}, nil
}

// classifyDeployError maps deployment failures onto the domain error kinds:
// insufficient operator funds, malformed arguments, unreachable network, or
// generic.
func classifyDeployError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %s", domainerrors.ErrInsufficientFunds, err.Error())
	case strings.Contains(msg, "invalid argument"), strings.Contains(msg, "invalid sender"):
		return fmt.Errorf("%w: %s", domainerrors.ErrInvalidInput, err.Error())
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "network"):
		return fmt.Errorf("%w: %s", domainerrors.ErrChainUnavailable, err.Error())
	default:
		return fmt.Errorf("contract deployment failed: %w", err)
	}
}
