package entities

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// CrossChainTxStatus represents the status of one bridge transaction
type CrossChainTxStatus string

const (
	CrossChainTxStatusPrepared   CrossChainTxStatus = "prepared"
	CrossChainTxStatusInProgress CrossChainTxStatus = "in_progress"
	CrossChainTxStatusCompleted  CrossChainTxStatus = "completed"
	CrossChainTxStatusFailed     CrossChainTxStatus = "failed"
	CrossChainTxStatusStuck      CrossChainTxStatus = "stuck"
)

// StepStatus represents the status of one step within a bridge transaction
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// Step actions. Bridged routes run the three canonical actions in order;
// same-network transfers collapse to a single direct transfer.
const (
	StepActionInitiateBridge = "initiate_bridge"
	StepActionMonitorBridge  = "monitor_bridge"
	StepActionConfirmReceipt = "confirm_receipt"
	StepActionDirectTransfer = "direct_transfer"
)

// BridgeInfo summarizes the route chosen for a transaction. RouteID is the
// aggregator's route identifier, kept so execution can reference the plan.
type BridgeInfo struct {
	RouteID          string  `json:"routeId,omitempty"`
	Bridge           string  `json:"bridge"`
	EstimatedSeconds int     `json:"estimatedSeconds"`
	FeeUSD           string  `json:"feeUsd"`
	Confidence       float64 `json:"confidence"`
}

// CrossChainTransaction represents the bridge state for one deal
type CrossChainTransaction struct {
	ID              string             `json:"id"`
	DealID          string             `json:"dealId"`
	FromAddress     string             `json:"fromAddress"`
	ToAddress       string             `json:"toAddress"`
	Amount          string             `json:"amount" gorm:"type:decimal(36,18)"`
	SourceNetwork   Network            `json:"sourceNetwork"`
	TargetNetwork   Network            `json:"targetNetwork"`
	BridgeInfo      *BridgeInfo        `json:"bridgeInfo,omitempty"`
	Status          CrossChainTxStatus `json:"status"`
	LastStatusCheck null.Time          `json:"lastStatusCheck,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`

	// Joins
	Steps []CrossChainStep `json:"steps,omitempty" gorm:"foreignKey:TransactionID"`
}

// CrossChainStep is one atomic unit of a bridge transaction's execution
type CrossChainStep struct {
	ID               string      `json:"id"`
	TransactionID    string      `json:"transactionId"`
	StepNumber       int         `json:"step"`
	Action           string      `json:"action"`
	Status           StepStatus  `json:"status"`
	Description      string      `json:"description"`
	ConditionMapping null.String `json:"conditionMapping,omitempty"`
	TxHash           null.String `json:"txHash,omitempty"`
	ExecutionID      null.String `json:"executionId,omitempty"`
	ErrorMessage     null.String `json:"error,omitempty"`
	StartedAt        null.Time   `json:"startedAt,omitempty"`
	CompletedAt      null.Time   `json:"completedAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// StepByNumber returns the step with the given number, or nil.
func (t *CrossChainTransaction) StepByNumber(stepNumber int) *CrossChainStep {
	for i := range t.Steps {
		if t.Steps[i].StepNumber == stepNumber {
			return &t.Steps[i]
		}
	}
	return nil
}

// RecomputeStatus derives the transaction status from its steps: all
// completed means completed, any failed means failed, otherwise in progress.
func (t *CrossChainTransaction) RecomputeStatus() CrossChainTxStatus {
	if len(t.Steps) == 0 {
		return t.Status
	}
	allCompleted := true
	for i := range t.Steps {
		switch t.Steps[i].Status {
		case StepStatusFailed:
			return CrossChainTxStatusFailed
		case StepStatusCompleted:
		default:
			allCompleted = false
		}
	}
	if allCompleted {
		return CrossChainTxStatusCompleted
	}
	return CrossChainTxStatusInProgress
}

// ExecuteStepInput drives one step of a cross-chain transaction
type ExecuteStepInput struct {
	StepNumber int    `json:"stepNumber" binding:"required"`
	TxHash     string `json:"txHash"`
}

// TransferBridgeInput carries the on-chain hashes for the lock and bridge
// steps of a user-driven transfer.
type TransferBridgeInput struct {
	FundsLockedTxHash    string `json:"fundsLockedTxHash" binding:"required"`
	BridgeTransferTxHash string `json:"bridgeTransferTxHash"`
}

// FeeEstimate is the response of the fee estimation endpoint. FallbackMode is
// set when the bridge aggregator was unreachable and the figures are
// conservative defaults.
type FeeEstimate struct {
	SourceNetwork string `json:"sourceNetwork"`
	TargetNetwork string `json:"targetNetwork"`
	Amount        string `json:"amount"`
	BridgeFee     string `json:"bridgeFee"`
	NetworkFee    string `json:"networkFee"`
	TotalFee      string `json:"totalFee"`
	EstimatedTime string `json:"estimatedTime"`
	Confidence    string `json:"confidence"`
	FallbackMode  bool   `json:"fallbackMode,omitempty"`
}

// NetworkInfo describes one supported network in the catalogue endpoint.
type NetworkInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsEVM         bool   `json:"isEvm"`
	ChainID       int64  `json:"chainId,omitempty"`
	NativeWrapped string `json:"wrappedNativeToken,omitempty"`
}
