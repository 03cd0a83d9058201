package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"deal-chain.backend/internal/config"
	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/domain/repositories"
	"deal-chain.backend/internal/infrastructure/blockchain"
	"deal-chain.backend/internal/infrastructure/monitoring"
	"deal-chain.backend/pkg/utils"
)

// DealUsecase drives the deal state machine. Chain and bridge collaborators
// are optional; when absent the related best-effort work is skipped and
// recorded on the deal's timeline.
type DealUsecase struct {
	dealRepo   repositories.DealRepository
	userRepo   repositories.UserRepository
	uow        repositories.UnitOfWork
	crossChain *CrossChainUsecase
	deployer   blockchain.ContractDeployer
	invoker    blockchain.ChainInvoker
	chainCfg   config.BlockchainConfig
	metrics    *monitoring.Metrics
}

// NewDealUsecase creates a new deal usecase.
func NewDealUsecase(
	dealRepo repositories.DealRepository,
	userRepo repositories.UserRepository,
	uow repositories.UnitOfWork,
	crossChain *CrossChainUsecase,
	deployer blockchain.ContractDeployer,
	invoker blockchain.ChainInvoker,
	chainCfg config.BlockchainConfig,
	metrics *monitoring.Metrics,
) *DealUsecase {
	return &DealUsecase{
		dealRepo:   dealRepo,
		userRepo:   userRepo,
		uow:        uow,
		crossChain: crossChain,
		deployer:   deployer,
		invoker:    invoker,
		chainCfg:   chainCfg,
		metrics:    metrics,
	}
}

// Create validates and persists a new deal, then attempts contract
// deployment and bridge preparation best-effort. Chain or bridge failures
// never roll the deal back; they land on the timeline and the scheduler
// retries what it can.
func (u *DealUsecase) Create(ctx context.Context, principal entities.Principal, input entities.CreateDealInput) (*entities.Deal, error) {
	initiatedBy := entities.PartyRole(strings.ToUpper(strings.TrimSpace(input.InitiatedBy)))
	if initiatedBy != entities.PartyRoleBuyer && initiatedBy != entities.PartyRoleSeller {
		return nil, domainerrors.BadRequest("initiatedBy must be BUYER or SELLER")
	}
	if strings.TrimSpace(input.PropertyAddress) == "" {
		return nil, domainerrors.BadRequest("propertyAddress is required")
	}
	if !isPositiveDecimal(input.Amount) {
		return nil, domainerrors.BadRequest("amount must be a positive number")
	}

	buyerNetwork, ok := entities.DetectNetworkFromAddress(input.BuyerWalletAddress)
	if !ok {
		return nil, domainerrors.BadRequest("buyerWalletAddress is not a valid wallet address")
	}
	sellerNetwork, ok := entities.DetectNetworkFromAddress(input.SellerWalletAddress)
	if !ok {
		return nil, domainerrors.BadRequest("sellerWalletAddress is not a valid wallet address")
	}
	if strings.EqualFold(input.BuyerWalletAddress, input.SellerWalletAddress) {
		return nil, domainerrors.BadRequest("buyer and seller wallets must be distinct")
	}

	other, err := u.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.OtherPartyEmail)))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound(fmt.Sprintf("no user found with email %s", input.OtherPartyEmail))
		}
		return nil, err
	}
	if other.ID == principal.ID {
		return nil, domainerrors.BadRequest("the other party must be a different user")
	}

	buyerID, sellerID := principal.ID, other.ID
	if initiatedBy == entities.PartyRoleSeller {
		buyerID, sellerID = other.ID, principal.ID
	}

	deal := &entities.Deal{
		ID:              utils.NewStringID(),
		BuyerID:         buyerID,
		SellerID:        sellerID,
		InitiatedBy:     initiatedBy,
		PropertyAddress: strings.TrimSpace(input.PropertyAddress),
		Amount:          input.Amount,
		BuyerWallet:     input.BuyerWalletAddress,
		SellerWallet:    input.SellerWalletAddress,
		BuyerNetwork:    buyerNetwork,
		SellerNetwork:   sellerNetwork,
		IsCrossChain:    entities.IsCrossChainPair(buyerNetwork, sellerNetwork),
		Status:          entities.InitialStatus(initiatedBy),
	}

	seen := map[string]bool{}
	for _, c := range input.InitialConditions {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Type) == "" || strings.TrimSpace(c.Description) == "" {
			return nil, domainerrors.BadRequest("each initial condition needs an id, a type and a description")
		}
		if seen[c.ID] {
			return nil, domainerrors.BadRequest(fmt.Sprintf("condition id %q is used more than once", c.ID))
		}
		seen[c.ID] = true
		deal.Conditions = append(deal.Conditions, entities.Condition{
			ID:          c.ID,
			Type:        entities.ConditionType(c.Type),
			Description: c.Description,
			Status:      entities.ConditionStatusPendingBuyerAction,
		})
	}
	if deal.IsCrossChain {
		for _, c := range crossChainConditions(buyerNetwork, sellerNetwork) {
			if seen[c.ID] {
				return nil, domainerrors.BadRequest(fmt.Sprintf("condition id %q is reserved for cross-chain deals", c.ID))
			}
			deal.Conditions = append(deal.Conditions, c)
		}
	}

	createdEvent := userEvent(deal.ID, principal.ID, fmt.Sprintf("Deal created by %s", initiatedBy))
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Create(txCtx, deal); err != nil {
			return fmt.Errorf("failed to create deal: %w", err)
		}
		return u.dealRepo.AppendTimeline(txCtx, createdEvent)
	})
	if err != nil {
		return nil, err
	}
	deal.Timeline = append(deal.Timeline, *createdEvent)

	u.deployContract(ctx, deal)
	if deal.IsCrossChain {
		u.prepareBridge(ctx, deal)
	}
	u.metrics.DealCreated(deal.IsCrossChain)

	return deal, nil
}

// crossChainConditions are appended to every cross-chain deal, in this order.
// The bridge transfer condition only applies when funds actually cross
// networks.
func crossChainConditions(buyerNetwork, sellerNetwork entities.Network) []entities.Condition {
	conditions := []entities.Condition{
		{
			ID:          entities.ConditionIDNetworkValidation,
			Type:        entities.ConditionTypeCrossChain,
			Description: fmt.Sprintf("Validate %s and %s network compatibility", buyerNetwork, sellerNetwork),
			Status:      entities.ConditionStatusPendingBuyerAction,
		},
		{
			ID:          entities.ConditionIDBridgeSetup,
			Type:        entities.ConditionTypeCrossChain,
			Description: fmt.Sprintf("Prepare the bridge route from %s to %s", buyerNetwork, sellerNetwork),
			Status:      entities.ConditionStatusPendingBuyerAction,
		},
		{
			ID:          entities.ConditionIDFundsLocked,
			Type:        entities.ConditionTypeCrossChain,
			Description: fmt.Sprintf("Lock the escrow funds on %s", buyerNetwork),
			Status:      entities.ConditionStatusPendingBuyerAction,
		},
	}
	if entities.RequiresBridge(buyerNetwork, sellerNetwork) {
		conditions = append(conditions, entities.Condition{
			ID:          entities.ConditionIDBridgeTransfer,
			Type:        entities.ConditionTypeCrossChain,
			Description: fmt.Sprintf("Complete the bridge transfer from %s to %s", buyerNetwork, sellerNetwork),
			Status:      entities.ConditionStatusPendingBuyerAction,
		})
	}
	return conditions
}

// recordEvent persists a timeline event and mirrors it on the in-memory deal.
func (u *DealUsecase) recordEvent(ctx context.Context, deal *entities.Deal, event *entities.TimelineEvent) {
	if err := u.dealRepo.AppendTimeline(ctx, event); err != nil {
		return
	}
	deal.Timeline = append(deal.Timeline, *event)
}

// deployContract deploys the per-deal escrow contract. Every outcome,
// including the skipped ones, leaves a timeline entry.
func (u *DealUsecase) deployContract(ctx context.Context, deal *entities.Deal) {
	if u.deployer == nil {
		u.recordEvent(ctx, deal, systemEvent(deal.ID, "Contract deployment skipped: deployer not configured", ""))
		return
	}
	if !deal.BuyerNetwork.IsEVM() {
		u.recordEvent(ctx, deal, systemEvent(deal.ID,
			fmt.Sprintf("Contract deployment skipped: %s does not support escrow contracts", deal.BuyerNetwork), ""))
		return
	}

	amount, err := amountToWei(deal.Amount, 18)
	if err != nil {
		u.recordDealFailure(ctx, deal, fmt.Sprintf("Contract deployment failed: %s", err.Error()))
		return
	}

	result, err := u.deployer.Deploy(ctx, blockchain.DeployParams{
		RPCURL:           u.chainCfg.NetworkRPCURL(string(deal.BuyerNetwork)),
		BuyerWallet:      deal.BuyerWallet,
		SellerWallet:     deal.SellerWallet,
		Amount:           amount,
		ServiceFeeWallet: u.chainCfg.ServiceFeeWallet,
	})
	if err != nil {
		u.recordDealFailure(ctx, deal, fmt.Sprintf("Contract deployment failed: %s", err.Error()))
		return
	}

	deal.SmartContractAddress = null.StringFrom(result.ContractAddress)
	_ = u.dealRepo.Update(ctx, deal)
	u.recordEvent(ctx, deal, systemEvent(deal.ID,
		fmt.Sprintf("Escrow contract deployed at %s", result.ContractAddress), result.DeployTxHash))
}

// prepareBridge asks the cross-chain engine for a route. Planning failures
// are persisted by the engine itself; only persistence failures surface here.
func (u *DealUsecase) prepareBridge(ctx context.Context, deal *entities.Deal) {
	if u.crossChain == nil {
		return
	}
	if _, err := u.crossChain.PrepareTransaction(ctx, deal); err != nil {
		u.recordDealFailure(ctx, deal, fmt.Sprintf("Cross-chain preparation failed: %s", err.Error()))
	}
}

func (u *DealUsecase) recordDealFailure(ctx context.Context, deal *entities.Deal, message string) {
	deal.ProcessingError = null.StringFrom(message)
	_ = u.dealRepo.Update(ctx, deal)
	u.recordEvent(ctx, deal, systemEvent(deal.ID, message, ""))
}

// Get returns one deal to one of its participants.
func (u *DealUsecase) Get(ctx context.Context, principal entities.Principal, dealID string) (*entities.Deal, error) {
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
	return deal, nil
}

// List returns the principal's deals, newest first.
func (u *DealUsecase) List(ctx context.Context, principal entities.Principal, page, limit int) ([]*entities.Deal, int64, error) {
	params := utils.GetPaginationParams(page, limit)
	return u.dealRepo.ListByParticipant(ctx, principal.ID, params.Limit, params.CalculateOffset())
}

// ReviewCondition records the buyer's decision on one condition. Cross-chain
// conditions reviewed with a step number also drive that bridge step; a step
// failure is recorded on the timeline without failing the review.
func (u *DealUsecase) ReviewCondition(ctx context.Context, principal entities.Principal, conditionID string, input entities.ReviewConditionInput) (*entities.Deal, error) {
	deal, err := u.dealRepo.GetByID(ctx, input.DealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("deal not found")
		}
		return nil, err
	}
	if deal.BuyerID != principal.ID {
		return nil, domainerrors.Forbidden("Only the buyer can review conditions")
	}

	cond := deal.ConditionByID(conditionID)
	if cond == nil {
		return nil, domainerrors.NotFound("condition not found")
	}
	target := entities.ConditionStatus(input.Status)
	if target != entities.ConditionStatusFulfilledByBuyer && target != entities.ConditionStatusWithdrawnByBuyer {
		return nil, domainerrors.BadRequest("status must be FULFILLED_BY_BUYER or ACTION_WITHDRAWN_BY_BUYER")
	}
	if cond.Status == target {
		return nil, domainerrors.Conflict(fmt.Sprintf("condition is already %s", target))
	}

	cond.Status = target
	if input.Notes != "" {
		cond.Notes = null.StringFrom(input.Notes)
	}
	if input.CrossChainTxHash != "" {
		cond.CrossChainTxHash = null.StringFrom(input.CrossChainTxHash)
	}
	verb := "fulfilled"
	if target == entities.ConditionStatusWithdrawnByBuyer {
		verb = "withdrawn"
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.UpdateCondition(txCtx, cond); err != nil {
			return fmt.Errorf("failed to update condition: %w", err)
		}
		return u.dealRepo.AppendTimeline(txCtx,
			userEvent(deal.ID, principal.ID, fmt.Sprintf("Condition '%s' %s by buyer", cond.ID, verb)))
	})
	if err != nil {
		return nil, err
	}

	if cond.Type == entities.ConditionTypeCrossChain && input.CrossChainStepNumber > 0 && u.crossChain != nil {
		if _, err := u.crossChain.ExecuteStep(ctx, deal.ID, entities.ExecuteStepInput{
			StepNumber: input.CrossChainStepNumber,
			TxHash:     input.CrossChainTxHash,
		}); err != nil {
			_ = u.dealRepo.AppendTimeline(ctx, systemEvent(deal.ID,
				fmt.Sprintf("Cross-chain step %d execution failed: %s", input.CrossChainStepNumber, err.Error()), ""))
		}
	}

	return u.dealRepo.GetByID(ctx, deal.ID)
}

// SyncStatus reflects an observed on-chain state change into the backend.
// Syncing the current status again is a no-op that still lands on the
// timeline, so repeated frontend syncs stay visible.
func (u *DealUsecase) SyncStatus(ctx context.Context, principal entities.Principal, dealID string, input entities.SyncStatusInput) (*entities.Deal, error) {
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

	newStatus, ok := entities.ParseDealStatus(input.NewSCStatus)
	if !ok {
		return nil, domainerrors.BadRequest(fmt.Sprintf("unknown status %q", input.NewSCStatus))
	}
	now := time.Now()
	if input.FinalApprovalDeadline != nil && !input.FinalApprovalDeadline.After(now) {
		return nil, domainerrors.BadRequest("finalApprovalDeadlineISO must be in the future")
	}
	if input.DisputeResolutionDeadline != nil && !input.DisputeResolutionDeadline.After(now) {
		return nil, domainerrors.BadRequest("disputeResolutionDeadlineISO must be in the future")
	}

	message := input.EventMessage
	if message == "" {
		message = fmt.Sprintf("Status synced from chain: %s", newStatus)
	}

	if newStatus == deal.Status {
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			return u.dealRepo.AppendTimeline(txCtx, userEvent(deal.ID, principal.ID, message))
		})
		if err != nil {
			return nil, err
		}
		return deal, nil
	}

	if !deal.Status.CanTransition(newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, deal.Status, newStatus)
	}

	from := deal.Status
	deal.Status = newStatus
	if newStatus.MarksFundsDeposited() {
		deal.FundsDepositedByBuyer = true
	}
	if newStatus == entities.DealStatusCompleted {
		deal.FundsReleasedToSeller = true
	}
	if input.FinalApprovalDeadline != nil {
		deal.FinalApprovalDeadline = input.FinalApprovalDeadline
	}
	if input.DisputeResolutionDeadline != nil {
		deal.DisputeResolutionDeadline = input.DisputeResolutionDeadline
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		return u.dealRepo.AppendTimeline(txCtx, userEvent(deal.ID, principal.ID, message))
	})
	if err != nil {
		return nil, err
	}
	u.metrics.TransitionApplied(string(from), string(newStatus))
	return deal, nil
}

// StartFinalApproval opens the approval window after which funds release
// automatically.
func (u *DealUsecase) StartFinalApproval(ctx context.Context, principal entities.Principal, dealID string, input entities.DeadlineInput) (*entities.Deal, error) {
	deal, err := u.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("deal not found")
		}
		return nil, err
	}
	if deal.BuyerID != principal.ID {
		return nil, domainerrors.Forbidden("Only the buyer can start the final approval period")
	}
	if !input.Deadline.After(time.Now()) {
		return nil, domainerrors.BadRequest("deadline must be in the future")
	}
	if !deal.Status.CanTransition(entities.DealStatusInFinalApproval) {
		return nil, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, deal.Status, entities.DealStatusInFinalApproval)
	}

	from := deal.Status
	deal.Status = entities.DealStatusInFinalApproval
	deadline := input.Deadline
	deal.FinalApprovalDeadline = &deadline

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		return u.dealRepo.AppendTimeline(txCtx, userEvent(deal.ID, principal.ID, "Final approval period started by buyer"))
	})
	if err != nil {
		return nil, err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return deal, nil
}

// RaiseDispute freezes the deal until the dispute window elapses or the
// parties resolve it. An optionally named fulfilled condition is withdrawn as
// part of the dispute.
func (u *DealUsecase) RaiseDispute(ctx context.Context, principal entities.Principal, dealID string, input entities.DeadlineInput) (*entities.Deal, error) {
	deal, err := u.dealRepo.GetByID(ctx, dealID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("deal not found")
		}
		return nil, err
	}
	if deal.BuyerID != principal.ID {
		return nil, domainerrors.Forbidden("Only the buyer can raise a dispute via this sync endpoint.")
	}
	if deal.Status == entities.DealStatusInDispute {
		return nil, domainerrors.Conflict("deal is already in dispute")
	}
	if !deal.Status.CanTransition(entities.DealStatusInDispute) {
		return nil, fmt.Errorf("%w: %s -> %s", domainerrors.ErrInvalidTransition, deal.Status, entities.DealStatusInDispute)
	}
	if !input.Deadline.After(time.Now()) {
		return nil, domainerrors.BadRequest("deadline must be in the future")
	}

	from := deal.Status
	deal.Status = entities.DealStatusInDispute
	deadline := input.Deadline
	deal.DisputeResolutionDeadline = &deadline

	var withdrawn *entities.Condition
	if input.ConditionID != "" {
		if cond := deal.ConditionByID(input.ConditionID); cond != nil && cond.Status == entities.ConditionStatusFulfilledByBuyer {
			cond.Status = entities.ConditionStatusWithdrawnByBuyer
			withdrawn = cond
		}
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return fmt.Errorf("failed to update deal: %w", err)
		}
		if withdrawn != nil {
			if err := u.dealRepo.UpdateCondition(txCtx, withdrawn); err != nil {
				return fmt.Errorf("failed to withdraw condition: %w", err)
			}
			if err := u.dealRepo.AppendTimeline(txCtx,
				userEvent(deal.ID, principal.ID, fmt.Sprintf("Condition '%s' withdrawn as part of the dispute", withdrawn.ID))); err != nil {
				return err
			}
		}
		return u.dealRepo.AppendTimeline(txCtx, userEvent(deal.ID, principal.ID, "Dispute raised by buyer"))
	})
	if err != nil {
		return nil, err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return deal, nil
}

// AutoRelease releases escrowed funds for a deal whose final approval window
// elapsed. The outcome is recorded either way; the chain error is returned so
// the scheduler can count it.
func (u *DealUsecase) AutoRelease(ctx context.Context, deal *entities.Deal) error {
	if u.invoker == nil {
		return domainerrors.ErrChainUnavailable
	}

	from := deal.Status
	txHash, callErr := u.invoker.SendContractCall(ctx, deal.SmartContractAddress.String, blockchain.EscrowMethodRelease)
	if callErr != nil {
		deal.Status = entities.DealStatusAutoReleaseFailed
		deal.ProcessingError = null.StringFrom(callErr.Error())
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			if err := u.dealRepo.Update(txCtx, deal); err != nil {
				return err
			}
			return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
				fmt.Sprintf("Automatic release failed: %s", callErr.Error()), ""))
		})
		if err != nil {
			return err
		}
		u.metrics.TransitionApplied(string(from), string(deal.Status))
		return callErr
	}

	deal.Status = entities.DealStatusCompleted
	deal.FundsReleasedToSeller = true
	deal.ProcessingError = null.String{}
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return err
		}
		return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
			fmt.Sprintf("Funds automatically released. Tx: %s", txHash), txHash))
	})
	if err != nil {
		return err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return nil
}

// AutoCancel refunds the buyer for a deal whose dispute window elapsed.
func (u *DealUsecase) AutoCancel(ctx context.Context, deal *entities.Deal) error {
	if u.invoker == nil {
		return domainerrors.ErrChainUnavailable
	}

	from := deal.Status
	txHash, callErr := u.invoker.SendContractCall(ctx, deal.SmartContractAddress.String, blockchain.EscrowMethodCancel)
	if callErr != nil {
		deal.Status = entities.DealStatusAutoCancelFailed
		deal.ProcessingError = null.StringFrom(callErr.Error())
		err := u.uow.Do(ctx, func(txCtx context.Context) error {
			if err := u.dealRepo.Update(txCtx, deal); err != nil {
				return err
			}
			return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
				fmt.Sprintf("Automatic cancellation failed: %s", callErr.Error()), ""))
		})
		if err != nil {
			return err
		}
		u.metrics.TransitionApplied(string(from), string(deal.Status))
		return callErr
	}

	deal.Status = entities.DealStatusCancelled
	deal.ProcessingError = null.String{}
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return err
		}
		return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
			fmt.Sprintf("Escrow cancelled and buyer refunded. Tx: %s", txHash), txHash))
	})
	if err != nil {
		return err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return nil
}

// ReleaseCrossChain finalizes a cross-chain deal whose approval window
// elapsed with every cross-chain condition fulfilled. When the deal carries
// an escrow contract the funds are released on chain first.
func (u *DealUsecase) ReleaseCrossChain(ctx context.Context, deal *entities.Deal) error {
	txHash := ""
	if deal.SmartContractAddress.Valid && deal.SmartContractAddress.String != "" && u.invoker != nil {
		hash, err := u.invoker.SendContractCall(ctx, deal.SmartContractAddress.String, blockchain.EscrowMethodRelease)
		if err != nil {
			deal.ProcessingError = null.StringFrom(err.Error())
			uerr := u.uow.Do(ctx, func(txCtx context.Context) error {
				if err := u.dealRepo.Update(txCtx, deal); err != nil {
					return err
				}
				return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
					fmt.Sprintf("Cross-chain release failed: %s", err.Error()), ""))
			})
			if uerr != nil {
				return uerr
			}
			return err
		}
		txHash = hash
	}

	from := deal.Status
	deal.Status = entities.DealStatusCrossChainReleased
	deal.FundsReleasedToSeller = true
	deal.ProcessingError = null.String{}
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return err
		}
		return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
			"Cross-chain funds released after approval period", txHash))
	})
	if err != nil {
		return err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return nil
}

// CancelCrossChain refunds the buyer of a cross-chain deal whose dispute
// window elapsed. The on-chain refund only happens when the deal carries an
// escrow contract; pure bridge deals are cancelled on the books.
func (u *DealUsecase) CancelCrossChain(ctx context.Context, deal *entities.Deal) error {
	txHash := ""
	if deal.SmartContractAddress.Valid && deal.SmartContractAddress.String != "" && u.invoker != nil {
		hash, err := u.invoker.SendContractCall(ctx, deal.SmartContractAddress.String, blockchain.EscrowMethodCancel)
		if err != nil {
			deal.ProcessingError = null.StringFrom(err.Error())
			uerr := u.uow.Do(ctx, func(txCtx context.Context) error {
				if err := u.dealRepo.Update(txCtx, deal); err != nil {
					return err
				}
				return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
					fmt.Sprintf("Cross-chain cancellation failed: %s", err.Error()), ""))
			})
			if uerr != nil {
				return uerr
			}
			return err
		}
		txHash = hash
	}

	from := deal.Status
	deal.Status = entities.DealStatusCrossChainCancelled
	deal.ProcessingError = null.String{}
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return err
		}
		return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
			"Cross-chain escrow cancelled after dispute deadline", txHash))
	})
	if err != nil {
		return err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return nil
}

// MarkCrossChainStuck freezes a cross-chain deal that stopped progressing.
// Nothing automatic touches the deal afterwards.
func (u *DealUsecase) MarkCrossChainStuck(ctx context.Context, deal *entities.Deal) error {
	from := deal.Status
	deal.Status = entities.DealStatusCrossChainStuck
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.dealRepo.Update(txCtx, deal); err != nil {
			return err
		}
		return u.dealRepo.AppendTimeline(txCtx, systemEvent(deal.ID,
			"Cross-chain transaction stuck: manual action required", ""))
	})
	if err != nil {
		return err
	}
	u.metrics.TransitionApplied(string(from), string(deal.Status))
	return nil
}

func userEvent(dealID, actorID, message string) *entities.TimelineEvent {
	return &entities.TimelineEvent{
		DealID:  dealID,
		Event:   message,
		ActorID: null.StringFrom(actorID),
	}
}
