package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/infrastructure/bridge"
	"deal-chain.backend/internal/usecases"
)

func crossChainDeal() *entities.Deal {
	deal := dealFixture(entities.DealStatusInEscrow)
	deal.IsCrossChain = true
	deal.SellerWallet = sellerWalletSol
	deal.SellerNetwork = entities.NetworkSolana
	deal.Conditions = []entities.Condition{
		{ID: entities.ConditionIDNetworkValidation, DealID: deal.ID, Type: entities.ConditionTypeCrossChain, Status: entities.ConditionStatusPendingBuyerAction},
		{ID: entities.ConditionIDBridgeSetup, DealID: deal.ID, Type: entities.ConditionTypeCrossChain, Status: entities.ConditionStatusPendingBuyerAction},
		{ID: entities.ConditionIDFundsLocked, DealID: deal.ID, Type: entities.ConditionTypeCrossChain, Status: entities.ConditionStatusPendingBuyerAction},
		{ID: entities.ConditionIDBridgeTransfer, DealID: deal.ID, Type: entities.ConditionTypeCrossChain, Status: entities.ConditionStatusPendingBuyerAction},
	}
	return deal
}

func bridgedTx(dealID string) *entities.CrossChainTransaction {
	return &entities.CrossChainTransaction{
		ID:            "tx-1",
		DealID:        dealID,
		FromAddress:   buyerWalletEVM,
		ToAddress:     sellerWalletSol,
		Amount:        "1000",
		SourceNetwork: entities.NetworkEthereum,
		TargetNetwork: entities.NetworkSolana,
		BridgeInfo: &entities.BridgeInfo{
			RouteID:          "route-1",
			Bridge:           "stargate",
			EstimatedSeconds: 300,
			FeeUSD:           "4.20",
			Confidence:       92,
		},
		Status: entities.CrossChainTxStatusPrepared,
		Steps: []entities.CrossChainStep{
			{TransactionID: "tx-1", StepNumber: 1, Action: entities.StepActionInitiateBridge, Status: entities.StepStatusPending, ConditionMapping: null.StringFrom(entities.ConditionIDFundsLocked)},
			{TransactionID: "tx-1", StepNumber: 2, Action: entities.StepActionMonitorBridge, Status: entities.StepStatusPending, ConditionMapping: null.StringFrom(entities.ConditionIDBridgeTransfer)},
			{TransactionID: "tx-1", StepNumber: 3, Action: entities.StepActionConfirmReceipt, Status: entities.StepStatusPending, ConditionMapping: null.StringFrom(entities.ConditionIDBridgeSetup)},
		},
	}
}

func newCrossChainFixture() (*MockDealRepository, *MockCrossChainTxRepository, *MockUnitOfWork, *MockRouter, *usecases.CrossChainUsecase) {
	mockDealRepo := new(MockDealRepository)
	mockTxRepo := new(MockCrossChainTxRepository)
	mockUOW := new(MockUnitOfWork)
	mockRouter := new(MockRouter)
	uc := usecases.NewCrossChainUsecase(mockDealRepo, mockTxRepo, mockUOW, mockRouter, nil, nil)
	return mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc
}

func TestPrepareTransaction_PlansBridgedRoute(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()
	deal := crossChainDeal()

	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(nil, domainerrors.ErrNotFound)
	mockRouter.On("PlanRoute", mock.Anything, mock.AnythingOfType("bridge.RouteQuery")).
		Return(&bridge.Route{
			ID:               "route-1",
			Bridge:           "stargate",
			SourceNetwork:    entities.NetworkEthereum,
			TargetNetwork:    entities.NetworkSolana,
			EstimatedSeconds: 300,
			FeeUSD:           "4.20",
			Confidence:       92,
		}, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)
	mockDealRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.Deal")).Return(nil)

	var events []string
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).
		Run(func(args mock.Arguments) {
			events = append(events, args.Get(1).(*entities.TimelineEvent).Event)
		}).Return(nil)

	tx, err := uc.PrepareTransaction(context.Background(), deal)

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusPrepared, tx.Status)
	require.NotNil(t, tx.BridgeInfo)
	assert.Equal(t, "route-1", tx.BridgeInfo.RouteID)
	assert.Equal(t, "stargate", tx.BridgeInfo.Bridge)

	require.Len(t, tx.Steps, 3)
	assert.Equal(t, entities.StepActionInitiateBridge, tx.Steps[0].Action)
	assert.Equal(t, entities.ConditionIDFundsLocked, tx.Steps[0].ConditionMapping.String)
	assert.Equal(t, entities.StepActionMonitorBridge, tx.Steps[1].Action)
	assert.Equal(t, entities.ConditionIDBridgeTransfer, tx.Steps[1].ConditionMapping.String)
	assert.Equal(t, entities.StepActionConfirmReceipt, tx.Steps[2].Action)
	assert.Equal(t, entities.ConditionIDBridgeSetup, tx.Steps[2].ConditionMapping.String)

	assert.Equal(t, tx.ID, deal.CrossChainTransactionID.String)
	assert.Contains(t, events, "Cross-chain transaction prepared via stargate")
	mockTxRepo.AssertExpectations(t)
}

func TestPrepareTransaction_DirectRouteGetsTwoSteps(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	deal.BuyerNetwork = entities.NetworkSolana
	deal.SellerNetwork = entities.NetworkSolana

	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(nil, domainerrors.ErrNotFound)
	mockRouter.On("PlanRoute", mock.Anything, mock.AnythingOfType("bridge.RouteQuery")).
		Return(&bridge.Route{
			ID:               "route-direct",
			Bridge:           bridge.DirectBridgeName,
			SourceNetwork:    entities.NetworkSolana,
			TargetNetwork:    entities.NetworkSolana,
			EstimatedSeconds: 60,
			FeeUSD:           "0.00",
			Confidence:       100,
		}, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)
	mockDealRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.Deal")).Return(nil)
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).Return(nil)

	tx, err := uc.PrepareTransaction(context.Background(), deal)

	require.NoError(t, err)
	require.Len(t, tx.Steps, 2)
	assert.Equal(t, entities.StepActionDirectTransfer, tx.Steps[0].Action)
	assert.Equal(t, entities.ConditionIDFundsLocked, tx.Steps[0].ConditionMapping.String)
	assert.Equal(t, entities.StepActionConfirmReceipt, tx.Steps[1].Action)
	assert.Equal(t, entities.ConditionIDBridgeSetup, tx.Steps[1].ConditionMapping.String)
}

func TestPrepareTransaction_PlanningFailurePersistsFailedTx(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()
	deal := crossChainDeal()

	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(nil, domainerrors.ErrNotFound)
	mockRouter.On("PlanRoute", mock.Anything, mock.AnythingOfType("bridge.RouteQuery")).
		Return(nil, fmt.Errorf("%w: no quotes for pair", domainerrors.ErrNoRoute))
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("Create", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)
	mockDealRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.Deal")).Return(nil)

	var events []string
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).
		Run(func(args mock.Arguments) {
			events = append(events, args.Get(1).(*entities.TimelineEvent).Event)
		}).Return(nil)

	tx, err := uc.PrepareTransaction(context.Background(), deal)

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusFailed, tx.Status)
	require.Len(t, tx.Steps, 1)
	assert.Equal(t, entities.StepStatusFailed, tx.Steps[0].Status)
	assert.True(t, tx.Steps[0].ErrorMessage.Valid)
	require.Len(t, events, 1)
	assert.Contains(t, events[0], "Cross-chain route planning failed")
}

func TestPrepareTransaction_IdempotentForExistingTx(t *testing.T) {
	_, mockTxRepo, _, mockRouter, uc := newCrossChainFixture()
	deal := crossChainDeal()
	existing := bridgedTx(deal.ID)

	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(existing, nil)

	tx, err := uc.PrepareTransaction(context.Background(), deal)

	require.NoError(t, err)
	assert.Same(t, existing, tx)
	mockRouter.AssertNotCalled(t, "PlanRoute", mock.Anything, mock.Anything)
}

func TestPrepareTransaction_RejectsSameChainDeal(t *testing.T) {
	_, _, _, _, uc := newCrossChainFixture()

	_, err := uc.PrepareTransaction(context.Background(), dealFixture(entities.DealStatusInEscrow))
	assert.ErrorIs(t, err, domainerrors.ErrDealNotCrossChain)
}

func TestExecuteStep_InitiateBridge(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := bridgedTx(deal.ID)

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)
	mockRouter.On("Execute", mock.Anything, mock.AnythingOfType("*bridge.Route")).
		Return(&bridge.Execution{ExecutionID: "exec-1", TxHash: "0xlock"}, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("UpdateStep", mock.Anything, mock.AnythingOfType("*entities.CrossChainStep")).Return(nil)
	mockTxRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)
	mockDealRepo.On("UpdateCondition", mock.Anything, mock.AnythingOfType("*entities.Condition")).Return(nil)

	var events []string
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).
		Run(func(args mock.Arguments) {
			events = append(events, args.Get(1).(*entities.TimelineEvent).Event)
		}).Return(nil)

	got, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 1})

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusInProgress, got.Status)

	step1 := got.StepByNumber(1)
	assert.Equal(t, entities.StepStatusCompleted, step1.Status)
	assert.Equal(t, "0xlock", step1.TxHash.String)
	assert.Equal(t, "exec-1", step1.ExecutionID.String)
	assert.True(t, step1.CompletedAt.Valid)

	step2 := got.StepByNumber(2)
	assert.Equal(t, entities.StepStatusInProgress, step2.Status)
	assert.Equal(t, "exec-1", step2.ExecutionID.String)

	locked := deal.ConditionByID(entities.ConditionIDFundsLocked)
	assert.Equal(t, entities.ConditionStatusFulfilledByBuyer, locked.Status)
	assert.Equal(t, entities.AutoFulfillActor, locked.AutoFulfilledBy.String)
	assert.Equal(t, "0xlock", locked.CrossChainTxHash.String)

	assert.Contains(t, events, "Bridge transfer initiated via stargate")
}

func TestExecuteStep_SettledStepsAreLeftAlone(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := bridgedTx(deal.ID)
	tx.Steps[0].Status = entities.StepStatusCompleted
	tx.Steps[0].TxHash = null.StringFrom("0xdone")

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)

	got, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 1})

	require.NoError(t, err)
	assert.Equal(t, "0xdone", got.StepByNumber(1).TxHash.String)
	mockRouter.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	mockUOW.AssertNotCalled(t, "Do", mock.Anything, mock.Anything)
}

func TestExecuteStep_UnknownStep(t *testing.T) {
	mockDealRepo, mockTxRepo, _, _, uc := newCrossChainFixture()

	deal := crossChainDeal()
	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(bridgedTx(deal.ID), nil)

	_, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 9})

	var appErr *domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "step 9 not found", appErr.Message)
}

// startedBridgedTx returns a transaction whose lock step completed and whose
// monitor step is underway.
func startedBridgedTx(dealID string) *entities.CrossChainTransaction {
	tx := bridgedTx(dealID)
	tx.Status = entities.CrossChainTxStatusInProgress
	tx.Steps[0].Status = entities.StepStatusCompleted
	tx.Steps[0].TxHash = null.StringFrom("0xlock")
	tx.Steps[0].ExecutionID = null.StringFrom("exec-1")
	tx.Steps[1].Status = entities.StepStatusInProgress
	tx.Steps[1].ExecutionID = null.StringFrom("exec-1")
	return tx
}

func TestExecuteStep_MonitorBridgeDone(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := startedBridgedTx(deal.ID)
	deal.ConditionByID(entities.ConditionIDFundsLocked).Status = entities.ConditionStatusFulfilledByBuyer

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)
	mockRouter.On("Status", mock.Anything, "exec-1").
		Return(&bridge.StatusResult{Status: bridge.StatusDone, SourceTxHash: "0xsrc", TargetTxHash: "0xdst"}, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("UpdateStep", mock.Anything, mock.AnythingOfType("*entities.CrossChainStep")).Return(nil)
	mockTxRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)
	mockDealRepo.On("UpdateCondition", mock.Anything, mock.AnythingOfType("*entities.Condition")).Return(nil)

	var events []string
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).
		Run(func(args mock.Arguments) {
			events = append(events, args.Get(1).(*entities.TimelineEvent).Event)
		}).Return(nil)

	got, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 2})

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusCompleted, got.Status)
	assert.True(t, got.LastStatusCheck.Valid)

	step2 := got.StepByNumber(2)
	assert.Equal(t, entities.StepStatusCompleted, step2.Status)
	assert.Equal(t, "0xsrc", step2.TxHash.String)

	step3 := got.StepByNumber(3)
	assert.Equal(t, entities.StepStatusCompleted, step3.Status)
	assert.Equal(t, "0xdst", step3.TxHash.String)

	assert.Equal(t, entities.ConditionStatusFulfilledByBuyer, deal.ConditionByID(entities.ConditionIDBridgeTransfer).Status)
	assert.Equal(t, entities.ConditionStatusFulfilledByBuyer, deal.ConditionByID(entities.ConditionIDBridgeSetup).Status)
	assert.Equal(t, entities.ConditionStatusFulfilledByBuyer, deal.ConditionByID(entities.ConditionIDNetworkValidation).Status)

	assert.Contains(t, events, "Bridge transfer confirmed on the target network")
	assert.Contains(t, events, "Cross-chain transaction completed")
}

func TestExecuteStep_MonitorBridgeFailed(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := startedBridgedTx(deal.ID)

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)
	mockRouter.On("Status", mock.Anything, "exec-1").
		Return(&bridge.StatusResult{Status: bridge.StatusFailed, Substatus: "SLIPPAGE_EXCEEDED"}, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("UpdateStep", mock.Anything, mock.AnythingOfType("*entities.CrossChainStep")).Return(nil)
	mockTxRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)

	var events []string
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).
		Run(func(args mock.Arguments) {
			events = append(events, args.Get(1).(*entities.TimelineEvent).Event)
		}).Return(nil)

	got, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 2})

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusFailed, got.Status)
	step2 := got.StepByNumber(2)
	assert.Equal(t, entities.StepStatusFailed, step2.Status)
	assert.Equal(t, "bridge transfer failed: SLIPPAGE_EXCEEDED", step2.ErrorMessage.String)
	assert.Contains(t, events, "Bridge transfer failed on the bridge side")
	mockDealRepo.AssertNotCalled(t, "UpdateCondition", mock.Anything, mock.Anything)
}

func TestExecuteStep_MonitorBridgeStillPending(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := startedBridgedTx(deal.ID)

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)
	mockRouter.On("Status", mock.Anything, "exec-1").
		Return(&bridge.StatusResult{Status: bridge.StatusPending, Substatus: "WAIT_DESTINATION"}, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)

	got, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 2})

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusInProgress, got.Status)
	assert.True(t, got.LastStatusCheck.Valid)
	assert.Equal(t, entities.StepStatusInProgress, got.StepByNumber(2).Status)
	mockTxRepo.AssertNotCalled(t, "UpdateStep", mock.Anything, mock.Anything)
}

func TestExecuteStep_MonitorPollErrorIsTransient(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, mockRouter, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := startedBridgedTx(deal.ID)

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)
	mockRouter.On("Status", mock.Anything, "exec-1").Return(nil, errors.New("aggregator 502"))
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)

	got, err := uc.ExecuteStep(context.Background(), deal.ID, entities.ExecuteStepInput{StepNumber: 2})

	require.NoError(t, err)
	assert.Equal(t, entities.StepStatusInProgress, got.StepByNumber(2).Status)
	assert.True(t, got.LastStatusCheck.Valid)
}

func TestTransfer_RunsLockAndBridgeSteps(t *testing.T) {
	mockDealRepo, mockTxRepo, mockUOW, _, uc := newCrossChainFixture()

	deal := crossChainDeal()
	deal.BuyerNetwork = entities.NetworkSolana
	deal.SellerNetwork = entities.NetworkSolana
	for i := range deal.Conditions {
		deal.Conditions[i].Status = entities.ConditionStatusFulfilledByBuyer
	}

	tx := &entities.CrossChainTransaction{
		ID:     "tx-1",
		DealID: deal.ID,
		Status: entities.CrossChainTxStatusPrepared,
		Steps: []entities.CrossChainStep{
			{TransactionID: "tx-1", StepNumber: 1, Action: entities.StepActionDirectTransfer, Status: entities.StepStatusPending, ConditionMapping: null.StringFrom(entities.ConditionIDFundsLocked)},
			{TransactionID: "tx-1", StepNumber: 2, Action: entities.StepActionConfirmReceipt, Status: entities.StepStatusPending, ConditionMapping: null.StringFrom(entities.ConditionIDBridgeSetup)},
		},
	}

	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)
	mockUOW.On("Do", mock.Anything, mock.Anything).Return(nil)
	mockTxRepo.On("UpdateStep", mock.Anything, mock.AnythingOfType("*entities.CrossChainStep")).Return(nil)
	mockTxRepo.On("Update", mock.Anything, mock.AnythingOfType("*entities.CrossChainTransaction")).Return(nil)
	mockDealRepo.On("AppendTimeline", mock.Anything, mock.AnythingOfType("*entities.TimelineEvent")).Return(nil)

	got, err := uc.Transfer(context.Background(), buyerPrincipal(), deal.ID, entities.TransferBridgeInput{
		FundsLockedTxHash:    "0xlock",
		BridgeTransferTxHash: "0xconfirm",
	})

	require.NoError(t, err)
	assert.Equal(t, entities.CrossChainTxStatusCompleted, got.Status)
	assert.Equal(t, "0xlock", got.StepByNumber(1).TxHash.String)
	assert.Equal(t, "0xconfirm", got.StepByNumber(2).TxHash.String)
}

func TestTransfer_Guards(t *testing.T) {
	mockDealRepo, mockTxRepo, _, _, uc := newCrossChainFixture()

	unfulfilled := crossChainDeal()
	mockDealRepo.On("GetByID", mock.Anything, unfulfilled.ID).Return(unfulfilled, nil)

	var appErr *domainerrors.AppError

	_, err := uc.Transfer(context.Background(), sellerPrincipal(), unfulfilled.ID, entities.TransferBridgeInput{FundsLockedTxHash: "0x1"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.Equal(t, "Only the buyer can transfer funds via the bridge", appErr.Message)

	_, err = uc.Transfer(context.Background(), buyerPrincipal(), unfulfilled.ID, entities.TransferBridgeInput{FundsLockedTxHash: "0x1"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "all conditions must be fulfilled before transferring funds via bridge", appErr.Message)

	settled := crossChainDeal()
	settled.ID = "deal-2"
	for i := range settled.Conditions {
		settled.Conditions[i].Status = entities.ConditionStatusFulfilledByBuyer
	}
	doneTx := bridgedTx(settled.ID)
	doneTx.Status = entities.CrossChainTxStatusCompleted
	mockDealRepo.On("GetByID", mock.Anything, settled.ID).Return(settled, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, settled.ID).Return(doneTx, nil)

	_, err = uc.Transfer(context.Background(), buyerPrincipal(), settled.ID, entities.TransferBridgeInput{FundsLockedTxHash: "0x1"})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "cross-chain transaction already completed", appErr.Message)
}

func TestGetStatus(t *testing.T) {
	mockDealRepo, mockTxRepo, _, _, uc := newCrossChainFixture()

	deal := crossChainDeal()
	tx := bridgedTx(deal.ID)
	mockDealRepo.On("GetByID", mock.Anything, deal.ID).Return(deal, nil)
	mockTxRepo.On("GetByDealID", mock.Anything, deal.ID).Return(tx, nil)

	status, err := uc.GetStatus(context.Background(), buyerPrincipal(), deal.ID)
	require.NoError(t, err)
	assert.Equal(t, deal.ID, status.DealID)
	assert.Equal(t, entities.DealStatusInEscrow, status.DealStatus)
	assert.Same(t, tx, status.Transaction)

	_, err = uc.GetStatus(context.Background(), entities.Principal{ID: "intruder"}, deal.ID)
	var appErr *domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.Status)
}

func TestMarkTransactionStuck(t *testing.T) {
	t.Run("in-flight transaction is frozen", func(t *testing.T) {
		_, mockTxRepo, _, _, uc := newCrossChainFixture()
		tx := startedBridgedTx("deal-1")
		mockTxRepo.On("GetByDealID", mock.Anything, "deal-1").Return(tx, nil)
		mockTxRepo.On("Update", mock.Anything, tx).Return(nil)

		require.NoError(t, uc.MarkTransactionStuck(context.Background(), "deal-1"))
		assert.Equal(t, entities.CrossChainTxStatusStuck, tx.Status)
		mockTxRepo.AssertExpectations(t)
	})

	t.Run("settled transaction is untouched", func(t *testing.T) {
		_, mockTxRepo, _, _, uc := newCrossChainFixture()
		tx := bridgedTx("deal-1")
		tx.Status = entities.CrossChainTxStatusCompleted
		mockTxRepo.On("GetByDealID", mock.Anything, "deal-1").Return(tx, nil)

		require.NoError(t, uc.MarkTransactionStuck(context.Background(), "deal-1"))
		assert.Equal(t, entities.CrossChainTxStatusCompleted, tx.Status)
		mockTxRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("missing transaction is fine", func(t *testing.T) {
		_, mockTxRepo, _, _, uc := newCrossChainFixture()
		mockTxRepo.On("GetByDealID", mock.Anything, "deal-1").Return(nil, domainerrors.ErrNotFound)

		require.NoError(t, uc.MarkTransactionStuck(context.Background(), "deal-1"))
	})
}

func TestEstimateBridgeFee(t *testing.T) {
	t.Run("quotes from the planned route", func(t *testing.T) {
		_, _, _, mockRouter, uc := newCrossChainFixture()
		mockRouter.On("PlanRoute", mock.Anything, mock.AnythingOfType("bridge.RouteQuery")).
			Return(&bridge.Route{
				ID:               "route-1",
				Bridge:           "stargate",
				SourceNetwork:    entities.NetworkEthereum,
				TargetNetwork:    entities.NetworkSolana,
				EstimatedSeconds: 300,
				FeeUSD:           "4.20",
				Confidence:       92,
			}, nil)

		est, err := uc.EstimateBridgeFee(context.Background(), entities.NetworkEthereum, entities.NetworkSolana, "1000")
		require.NoError(t, err)
		assert.Equal(t, "4.20", est.BridgeFee)
		assert.Equal(t, "1.50", est.NetworkFee)
		assert.Equal(t, "5.70", est.TotalFee)
		assert.Equal(t, "~5 minutes", est.EstimatedTime)
		assert.Equal(t, "high", est.Confidence)
		assert.False(t, est.FallbackMode)
	})

	t.Run("falls back when no route exists", func(t *testing.T) {
		_, _, _, mockRouter, uc := newCrossChainFixture()
		mockRouter.On("PlanRoute", mock.Anything, mock.AnythingOfType("bridge.RouteQuery")).
			Return(nil, fmt.Errorf("%w: pair not served", domainerrors.ErrNoRoute))

		est, err := uc.EstimateBridgeFee(context.Background(), entities.NetworkEthereum, entities.NetworkBitcoin, "1000")
		require.NoError(t, err)
		assert.True(t, est.FallbackMode)
		assert.Equal(t, "7.50", est.TotalFee)
		assert.Equal(t, "low", est.Confidence)
	})

	t.Run("rejects unsupported networks", func(t *testing.T) {
		_, _, _, _, uc := newCrossChainFixture()
		_, err := uc.EstimateBridgeFee(context.Background(), entities.Network("dogecoin"), entities.NetworkSolana, "1000")
		assert.ErrorIs(t, err, domainerrors.ErrUnsupportedNetwork)
	})

	t.Run("rejects non positive amounts", func(t *testing.T) {
		_, _, _, _, uc := newCrossChainFixture()
		_, err := uc.EstimateBridgeFee(context.Background(), entities.NetworkEthereum, entities.NetworkSolana, "-1")
		var appErr *domainerrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "amount must be a positive number", appErr.Message)
	})
}
