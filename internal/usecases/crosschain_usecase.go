package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/domain/repositories"
	"deal-chain.backend/internal/infrastructure/bridge"
	"deal-chain.backend/internal/infrastructure/monitoring"
	"deal-chain.backend/pkg/redis"
	"deal-chain.backend/pkg/utils"
)

// Flat network-gas allowance added on top of the aggregator's bridge fee.
const estimatedNetworkFeeUSD = "1.50"

// CrossChainUsecase owns the multi-step execution of bridge transactions and
// propagates progress back to the owning deal's conditions.
type CrossChainUsecase struct {
	dealRepo   repositories.DealRepository
	txRepo     repositories.CrossChainTxRepository
	uow        repositories.UnitOfWork
	router     bridge.Router
	quoteCache *redis.QuoteCache
	metrics    *monitoring.Metrics
}

// NewCrossChainUsecase creates a new cross-chain usecase.
func NewCrossChainUsecase(
	dealRepo repositories.DealRepository,
	txRepo repositories.CrossChainTxRepository,
	uow repositories.UnitOfWork,
	router bridge.Router,
	quoteCache *redis.QuoteCache,
	metrics *monitoring.Metrics,
) *CrossChainUsecase {
	return &CrossChainUsecase{
		dealRepo:   dealRepo,
		txRepo:     txRepo,
		uow:        uow,
		router:     router,
		quoteCache: quoteCache,
		metrics:    metrics,
	}
}

// PrepareTransaction plans a bridge route for a cross-chain deal and persists
// the transaction with its execution steps. A route planning failure persists
// the transaction as failed instead of returning an error, so deal creation
// is never rolled back by bridge trouble.
func (u *CrossChainUsecase) PrepareTransaction(ctx context.Context, deal *entities.Deal) (*entities.CrossChainTransaction, error) {
	if !deal.IsCrossChain {
		return nil, domainerrors.ErrDealNotCrossChain
	}
	if existing, err := u.txRepo.GetByDealID(ctx, deal.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up existing transaction: %w", err)
	}

	tx := &entities.CrossChainTransaction{
		ID:            utils.NewStringID(),
		DealID:        deal.ID,
		FromAddress:   deal.BuyerWallet,
		ToAddress:     deal.SellerWallet,
		Amount:        deal.Amount,
		SourceNetwork: deal.BuyerNetwork,
		TargetNetwork: deal.SellerNetwork,
	}

	route, err := u.router.PlanRoute(ctx, bridge.RouteQuery{
		FromAddress:   deal.BuyerWallet,
		ToAddress:     deal.SellerWallet,
		SourceNetwork: deal.BuyerNetwork,
		TargetNetwork: deal.SellerNetwork,
		Amount:        deal.Amount,
	})

	var event *entities.TimelineEvent
	if err != nil {
		tx.Status = entities.CrossChainTxStatusFailed
		tx.Steps = []entities.CrossChainStep{{
			StepNumber:       1,
			Action:           entities.StepActionInitiateBridge,
			Status:           entities.StepStatusFailed,
			Description:      fmt.Sprintf("Lock funds on %s and start the bridge transfer", deal.BuyerNetwork),
			ConditionMapping: null.StringFrom(entities.ConditionIDFundsLocked),
			ErrorMessage:     null.StringFrom(err.Error()),
		}}
		event = systemEvent(deal.ID, fmt.Sprintf("Cross-chain route planning failed: %s", err.Error()), "")
	} else {
		tx.Status = entities.CrossChainTxStatusPrepared
		tx.BridgeInfo = &entities.BridgeInfo{
			RouteID:          route.ID,
			Bridge:           route.Bridge,
			EstimatedSeconds: route.EstimatedSeconds,
			FeeUSD:           route.FeeUSD,
			Confidence:       route.Confidence,
		}
		tx.Steps = buildBridgeSteps(route, deal)
		event = systemEvent(deal.ID, fmt.Sprintf("Cross-chain transaction prepared via %s", route.Bridge), "")
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.txRepo.Create(txCtx, tx); err != nil {
			return fmt.Errorf("failed to create cross-chain transaction: %w", err)
		}
		deal.CrossChainTransactionID = null.StringFrom(tx.ID)
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to link transaction to deal: %w", err)
		}
		return u.dealRepo.AppendTimeline(txCtx, event)
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// buildBridgeSteps lays out the execution plan for a route. Bridged routes
// run the three canonical steps; a direct route needs only the transfer and
// its confirmation.
func buildBridgeSteps(route *bridge.Route, deal *entities.Deal) []entities.CrossChainStep {
	if route.IsDirect() {
		return []entities.CrossChainStep{
			{
				StepNumber:       1,
				Action:           entities.StepActionDirectTransfer,
				Status:           entities.StepStatusPending,
				Description:      fmt.Sprintf("Transfer funds directly on %s", deal.BuyerNetwork),
				ConditionMapping: null.StringFrom(entities.ConditionIDFundsLocked),
			},
			{
				StepNumber:       2,
				Action:           entities.StepActionConfirmReceipt,
				Status:           entities.StepStatusPending,
				Description:      fmt.Sprintf("Confirm receipt of funds on %s", deal.SellerNetwork),
				ConditionMapping: null.StringFrom(entities.ConditionIDBridgeSetup),
			},
		}
	}
	return []entities.CrossChainStep{
		{
			StepNumber:       1,
			Action:           entities.StepActionInitiateBridge,
			Status:           entities.StepStatusPending,
			Description:      fmt.Sprintf("Lock funds on %s and start the %s bridge transfer", deal.BuyerNetwork, route.Bridge),
			ConditionMapping: null.StringFrom(entities.ConditionIDFundsLocked),
		},
		{
			StepNumber:       2,
			Action:           entities.StepActionMonitorBridge,
			Status:           entities.StepStatusPending,
			Description:      fmt.Sprintf("Track the bridge transfer until funds arrive on %s", deal.SellerNetwork),
			ConditionMapping: null.StringFrom(entities.ConditionIDBridgeTransfer),
		},
		{
			StepNumber:       3,
			Action:           entities.StepActionConfirmReceipt,
			Status:           entities.StepStatusPending,
			Description:      fmt.Sprintf("Confirm receipt of funds on %s", deal.SellerNetwork),
			ConditionMapping: null.StringFrom(entities.ConditionIDBridgeSetup),
		},
	}
}

// ExecuteStep drives one step of a deal's cross-chain transaction. Execution
// failures are captured on the step rather than returned, so callers always
// get the transaction's current state back. Steps already completed or failed
// are left untouched.
func (u *CrossChainUsecase) ExecuteStep(ctx context.Context, dealID string, input entities.ExecuteStepInput) (*entities.CrossChainTransaction, error) {
	deal, err := u.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("deal not found")
		}
		return nil, err
	}
	tx, err := u.txRepo.GetByDealID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no cross-chain transaction for this deal")
		}
		return nil, err
	}

	step := tx.StepByNumber(input.StepNumber)
	if step == nil {
		return nil, domainerrors.NotFound(fmt.Sprintf("step %d not found", input.StepNumber))
	}
	if step.Status == entities.StepStatusCompleted || step.Status == entities.StepStatusFailed {
		return tx, nil
	}

	return u.runStep(ctx, deal, tx, step, input.TxHash)
}

// runStep performs the step's bridge interaction first, then persists every
// resulting mutation in one transaction. No database transaction is held
// while the router call is in flight.
func (u *CrossChainUsecase) runStep(ctx context.Context, deal *entities.Deal, tx *entities.CrossChainTransaction, step *entities.CrossChainStep, txHash string) (*entities.CrossChainTransaction, error) {
	now := time.Now()
	var (
		dirty  []*entities.CrossChainStep
		events []*entities.TimelineEvent
	)

	switch step.Action {
	case entities.StepActionInitiateBridge:
		exec, err := u.router.Execute(ctx, routeFromBridgeInfo(tx), bridge.ServerCallbacks())
		if err != nil {
			failStep(step, err, now)
			dirty = append(dirty, step)
			events = append(events, systemEvent(deal.ID, fmt.Sprintf("Bridge execution failed: %s", err.Error()), ""))
			break
		}
		hash := txHash
		if hash == "" {
			hash = exec.TxHash
		}
		completeStep(step, hash, now)
		step.ExecutionID = null.StringFrom(exec.ExecutionID)
		dirty = append(dirty, step)
		if monitor := tx.StepByNumber(step.StepNumber + 1); monitor != nil && monitor.Action == entities.StepActionMonitorBridge {
			monitor.Status = entities.StepStatusInProgress
			monitor.ExecutionID = null.StringFrom(exec.ExecutionID)
			monitor.StartedAt = null.TimeFrom(now)
			dirty = append(dirty, monitor)
		}
		events = append(events, systemEvent(deal.ID, fmt.Sprintf("Bridge transfer initiated via %s", bridgeName(tx)), hash))

	case entities.StepActionMonitorBridge:
		if txHash != "" && !step.TxHash.Valid {
			step.TxHash = null.StringFrom(txHash)
			dirty = append(dirty, step)
		}
		execID := step.ExecutionID.String
		if execID == "" {
			if prev := tx.StepByNumber(step.StepNumber - 1); prev != nil {
				execID = prev.ExecutionID.String
			}
		}
		if execID == "" {
			failStep(step, errors.New("no execution id recorded for bridge monitoring"), now)
			dirty = appendStepOnce(dirty, step)
			break
		}

		res, err := u.router.Status(ctx, execID)
		tx.LastStatusCheck = null.TimeFrom(now)
		if err != nil {
			// transient poll failure, the scheduler retries next tick
			break
		}
		u.metrics.BridgePoll(string(res.Status))
		switch res.Status {
		case bridge.StatusDone:
			if !step.TxHash.Valid && res.SourceTxHash != "" {
				step.TxHash = null.StringFrom(res.SourceTxHash)
			}
			completeStep(step, step.TxHash.String, now)
			dirty = appendStepOnce(dirty, step)
			if confirm := tx.StepByNumber(step.StepNumber + 1); confirm != nil && confirm.Status != entities.StepStatusCompleted {
				completeStep(confirm, res.TargetTxHash, now)
				dirty = append(dirty, confirm)
			}
			events = append(events, systemEvent(deal.ID, "Bridge transfer confirmed on the target network", res.TargetTxHash))
		case bridge.StatusFailed:
			msg := "bridge transfer failed"
			if res.Substatus != "" {
				msg = fmt.Sprintf("bridge transfer failed: %s", res.Substatus)
			}
			failStep(step, errors.New(msg), now)
			dirty = appendStepOnce(dirty, step)
			events = append(events, systemEvent(deal.ID, "Bridge transfer failed on the bridge side", ""))
		default:
			// PENDING or UNKNOWN: only the poll timestamp moves
		}

	default:
		// confirm_receipt driven by hand, and direct same-network transfers
		completeStep(step, txHash, now)
		dirty = append(dirty, step)
	}

	tx.Status = tx.RecomputeStatus()

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		for _, s := range dirty {
			if err := u.txRepo.UpdateStep(txCtx, s); err != nil {
				return fmt.Errorf("failed to update step %d: %w", s.StepNumber, err)
			}
		}
		if err := u.txRepo.Update(txCtx, tx); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		for _, s := range dirty {
			if s.Status != entities.StepStatusCompleted || !s.ConditionMapping.Valid {
				continue
			}
			if err := u.fulfillConditionTx(txCtx, deal, s.ConditionMapping.String, s.TxHash.String); err != nil {
				return err
			}
		}
		if tx.Status == entities.CrossChainTxStatusCompleted {
			if err := u.fulfillConditionTx(txCtx, deal, entities.ConditionIDNetworkValidation, ""); err != nil {
				return err
			}
			events = append(events, systemEvent(deal.ID, "Cross-chain transaction completed", ""))
		}
		for _, e := range events {
			if err := u.dealRepo.AppendTimeline(txCtx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// CheckPendingTransaction re-polls the bridge for an in-flight transaction.
// Transactions whose monitoring step has not started yet only get their poll
// timestamp bumped so they are not re-selected every tick.
func (u *CrossChainUsecase) CheckPendingTransaction(ctx context.Context, tx *entities.CrossChainTransaction) error {
	for i := range tx.Steps {
		step := &tx.Steps[i]
		if step.Action != entities.StepActionMonitorBridge {
			continue
		}
		if step.Status == entities.StepStatusInProgress && step.ExecutionID.Valid {
			_, err := u.ExecuteStep(ctx, tx.DealID, entities.ExecuteStepInput{StepNumber: step.StepNumber})
			return err
		}
		break
	}

	tx.LastStatusCheck = null.TimeFrom(time.Now())
	return u.txRepo.Update(ctx, tx)
}

// MarkTransactionStuck freezes a deal's in-flight transaction so the
// scheduler stops polling it. Settled transactions are left alone.
func (u *CrossChainUsecase) MarkTransactionStuck(ctx context.Context, dealID string) error {
	tx, err := u.txRepo.GetByDealID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil
		}
		return err
	}
	switch tx.Status {
	case entities.CrossChainTxStatusCompleted, entities.CrossChainTxStatusFailed, entities.CrossChainTxStatusStuck:
		return nil
	}
	tx.Status = entities.CrossChainTxStatusStuck
	return u.txRepo.Update(ctx, tx)
}

// CrossChainStatus is the combined transaction and deal view served by the
// status endpoint.
type CrossChainStatus struct {
	DealID      string                          `json:"dealId"`
	DealStatus  entities.DealStatus             `json:"dealStatus"`
	Transaction *entities.CrossChainTransaction `json:"transaction"`
}

// GetStatus returns the combined bridge and deal state for a participant.
func (u *CrossChainUsecase) GetStatus(ctx context.Context, principal entities.Principal, dealID string) (*CrossChainStatus, error) {
	deal, err := u.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("deal not found")
		}
		return nil, err
	}
	if !deal.IsParticipant(principal.ID) {
		return nil, domainerrors.Forbidden("You are not a participant in this deal")
	}
	tx, err := u.txRepo.GetByDealID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no cross-chain transaction for this deal")
		}
		return nil, err
	}
	return &CrossChainStatus{DealID: deal.ID, DealStatus: deal.Status, Transaction: tx}, nil
}

// Transfer runs the lock and bridge steps of a deal's transaction with the
// buyer's on-chain transaction hashes. Every condition of the deal must be
// fulfilled before funds may move.
func (u *CrossChainUsecase) Transfer(ctx context.Context, principal entities.Principal, dealID string, input entities.TransferBridgeInput) (*entities.CrossChainTransaction, error) {
	deal, err := u.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("deal not found")
		}
		return nil, err
	}
	if deal.BuyerID != principal.ID {
		return nil, domainerrors.Forbidden("Only the buyer can transfer funds via the bridge")
	}
	if !deal.AllConditionsFulfilled() {
		return nil, domainerrors.BadRequest("all conditions must be fulfilled before transferring funds via bridge")
	}

	tx, err := u.txRepo.GetByDealID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("no cross-chain transaction for this deal")
		}
		return nil, err
	}
	switch tx.Status {
	case entities.CrossChainTxStatusCompleted:
		return nil, domainerrors.Conflict("cross-chain transaction already completed")
	case entities.CrossChainTxStatusFailed:
		return nil, domainerrors.Conflict("cross-chain transaction failed during preparation")
	}

	tx, err = u.ExecuteStep(ctx, dealID, entities.ExecuteStepInput{StepNumber: 1, TxHash: input.FundsLockedTxHash})
	if err != nil {
		return nil, err
	}
	if tx.StepByNumber(2) != nil {
		tx, err = u.ExecuteStep(ctx, dealID, entities.ExecuteStepInput{StepNumber: 2, TxHash: input.BridgeTransferTxHash})
		if err != nil {
			return nil, err
		}
	}
	return tx, nil
}

// EstimateBridgeFee quotes the cost of moving an amount between two networks.
// Quotes are cached briefly; when the aggregator cannot serve a route the
// estimate degrades to conservative defaults flagged as fallback.
func (u *CrossChainUsecase) EstimateBridgeFee(ctx context.Context, source, target entities.Network, amount string) (*entities.FeeEstimate, error) {
	if !entities.IsSupportedNetwork(source) {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrUnsupportedNetwork, source)
	}
	if !entities.IsSupportedNetwork(target) {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrUnsupportedNetwork, target)
	}
	if !isPositiveDecimal(amount) {
		return nil, domainerrors.BadRequest("amount must be a positive number")
	}

	if u.quoteCache != nil {
		if q, err := u.quoteCache.Lookup(ctx, string(source), string(target), amount); err == nil && q != nil {
			return estimateFromQuote(q), nil
		}
	}

	route, err := u.router.PlanRoute(ctx, bridge.RouteQuery{
		FromAddress:   bridge.PlaceholderAddress(source),
		ToAddress:     bridge.PlaceholderAddress(target),
		SourceNetwork: source,
		TargetNetwork: target,
		Amount:        amount,
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrNoRoute) || errors.Is(err, domainerrors.ErrBridgeUnavailable) {
			return fallbackEstimate(source, target, amount), nil
		}
		return nil, err
	}

	est := &entities.FeeEstimate{
		SourceNetwork: string(source),
		TargetNetwork: string(target),
		Amount:        amount,
		BridgeFee:     route.FeeUSD,
		NetworkFee:    estimatedNetworkFeeUSD,
		TotalFee:      addUSD(route.FeeUSD, estimatedNetworkFeeUSD),
		EstimatedTime: humanizeSeconds(route.EstimatedSeconds),
		Confidence:    confidenceLabel(route.Confidence),
	}
	if u.quoteCache != nil {
		_ = u.quoteCache.Put(ctx, &redis.Quote{
			SourceNetwork: est.SourceNetwork,
			TargetNetwork: est.TargetNetwork,
			Amount:        est.Amount,
			BridgeFee:     est.BridgeFee,
			NetworkFee:    est.NetworkFee,
			TotalFee:      est.TotalFee,
			EstimatedTime: est.EstimatedTime,
			Confidence:    est.Confidence,
			QuotedAt:      time.Now(),
		})
	}
	return est, nil
}

func estimateFromQuote(q *redis.Quote) *entities.FeeEstimate {
	return &entities.FeeEstimate{
		SourceNetwork: q.SourceNetwork,
		TargetNetwork: q.TargetNetwork,
		Amount:        q.Amount,
		BridgeFee:     q.BridgeFee,
		NetworkFee:    q.NetworkFee,
		TotalFee:      q.TotalFee,
		EstimatedTime: q.EstimatedTime,
		Confidence:    q.Confidence,
		FallbackMode:  q.IsEstimate,
	}
}

func fallbackEstimate(source, target entities.Network, amount string) *entities.FeeEstimate {
	return &entities.FeeEstimate{
		SourceNetwork: string(source),
		TargetNetwork: string(target),
		Amount:        amount,
		BridgeFee:     "5.00",
		NetworkFee:    "2.50",
		TotalFee:      "7.50",
		EstimatedTime: "30-60 minutes",
		Confidence:    "low",
		FallbackMode:  true,
	}
}

// fulfillConditionTx flips a pending condition to fulfilled on behalf of the
// bridge pipeline. Conditions the buyer already acted on are left alone.
func (u *CrossChainUsecase) fulfillConditionTx(txCtx context.Context, deal *entities.Deal, conditionID, txHash string) error {
	cond := deal.ConditionByID(conditionID)
	if cond == nil || cond.Status != entities.ConditionStatusPendingBuyerAction {
		return nil
	}
	cond.Status = entities.ConditionStatusFulfilledByBuyer
	cond.AutoFulfilledBy = null.StringFrom(entities.AutoFulfillActor)
	if txHash != "" {
		cond.CrossChainTxHash = null.StringFrom(txHash)
	}
	if err := u.dealRepo.UpdateCondition(txCtx, cond); err != nil {
		return fmt.Errorf("failed to fulfill condition %s: %w", conditionID, err)
	}
	return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
		fmt.Sprintf("Condition '%s' automatically fulfilled by cross-chain progress", conditionID), txHash))
}

// routeFromBridgeInfo reconstructs the planned route for execution.
func routeFromBridgeInfo(tx *entities.CrossChainTransaction) *bridge.Route {
	r := &bridge.Route{
		SourceNetwork: tx.SourceNetwork,
		TargetNetwork: tx.TargetNetwork,
	}
	if tx.BridgeInfo != nil {
		r.ID = tx.BridgeInfo.RouteID
		r.Bridge = tx.BridgeInfo.Bridge
		r.EstimatedSeconds = tx.BridgeInfo.EstimatedSeconds
		r.FeeUSD = tx.BridgeInfo.FeeUSD
		r.Confidence = tx.BridgeInfo.Confidence
	}
	return r
}

func bridgeName(tx *entities.CrossChainTransaction) string {
	if tx.BridgeInfo != nil && tx.BridgeInfo.Bridge != "" {
		return tx.BridgeInfo.Bridge
	}
	return "bridge"
}

func completeStep(step *entities.CrossChainStep, txHash string, now time.Time) {
	step.Status = entities.StepStatusCompleted
	if txHash != "" {
		step.TxHash = null.StringFrom(txHash)
	}
	if !step.StartedAt.Valid {
		step.StartedAt = null.TimeFrom(now)
	}
	step.CompletedAt = null.TimeFrom(now)
}

func failStep(step *entities.CrossChainStep, err error, now time.Time) {
	step.Status = entities.StepStatusFailed
	step.ErrorMessage = null.StringFrom(err.Error())
	if !step.StartedAt.Valid {
		step.StartedAt = null.TimeFrom(now)
	}
}

// appendStepOnce guards against persisting the same step twice when a branch
// already staged it.
func appendStepOnce(dirty []*entities.CrossChainStep, step *entities.CrossChainStep) []*entities.CrossChainStep {
	for _, s := range dirty {
		if s == step {
			return dirty
		}
	}
	return append(dirty, step)
}

func systemEvent(dealID, message, txHash string) *entities.TimelineEvent {
	e := &entities.TimelineEvent{
		DealID:          dealID,
		Event:           message,
		SystemTriggered: true,
	}
	if txHash != "" {
		e.TxHash = null.StringFrom(txHash)
	}
	return e
}
