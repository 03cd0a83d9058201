package jobs

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"deal-chain.backend/internal/config"
	"deal-chain.backend/internal/domain/entities"
	"deal-chain.backend/internal/domain/repositories"
	"deal-chain.backend/internal/infrastructure/monitoring"
	"deal-chain.backend/pkg/redis"
)

// Defaults for the sweep cadence and the bridge monitoring thresholds. Each
// knob is overridable through SchedulerConfig.
const (
	defaultSweepInterval = 30 * time.Minute
	defaultPollAge       = time.Hour
	defaultStuckAge      = 2 * time.Hour
)

const sweepLeaseKey = "scheduler:deadline-checks"

// dealActions is the slice of the deal usecase the scheduler drives.
type dealActions interface {
	AutoRelease(ctx context.Context, deal *entities.Deal) error
	AutoCancel(ctx context.Context, deal *entities.Deal) error
	ReleaseCrossChain(ctx context.Context, deal *entities.Deal) error
	CancelCrossChain(ctx context.Context, deal *entities.Deal) error
	MarkCrossChainStuck(ctx context.Context, deal *entities.Deal) error
}

// bridgeActions is the slice of the cross-chain usecase the scheduler drives.
type bridgeActions interface {
	CheckPendingTransaction(ctx context.Context, tx *entities.CrossChainTransaction) error
	MarkTransactionStuck(ctx context.Context, dealID string) error
}

// acquireLease takes a distributed sweep lease so only one replica sweeps per
// interval. Without a Redis client every replica sweeps; the passes are
// idempotent under the deal state machine.
var acquireLease = func(ctx context.Context, key string, ttl time.Duration) bool {
	if redis.GetClient() == nil {
		return true
	}
	ok, err := redis.SetNX(ctx, key, "1", ttl)
	if err != nil {
		log.Printf("⚠️ Scheduler lease unavailable, sweeping anyway: %v", err)
		return true
	}
	return ok
}

// DeadlineScheduler periodically reconciles deals whose deadlines elapsed and
// in-flight bridge transfers that went quiet.
type DeadlineScheduler struct {
	deals    dealActions
	bridge   bridgeActions
	dealRepo repositories.DealRepository
	txRepo   repositories.CrossChainTxRepository
	metrics  *monitoring.Metrics

	interval time.Duration
	pollAge  time.Duration
	stuckAge time.Duration

	stop    chan struct{}
	running atomic.Bool
}

func NewDeadlineScheduler(
	deals dealActions,
	bridge bridgeActions,
	dealRepo repositories.DealRepository,
	txRepo repositories.CrossChainTxRepository,
	metrics *monitoring.Metrics,
	cfg config.SchedulerConfig,
) *DeadlineScheduler {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	pollAge := cfg.StatusCheckInterval
	if pollAge <= 0 {
		pollAge = defaultPollAge
	}
	stuckAge := cfg.StuckThreshold
	if stuckAge <= 0 {
		stuckAge = defaultStuckAge
	}
	return &DeadlineScheduler{
		deals:    deals,
		bridge:   bridge,
		dealRepo: dealRepo,
		txRepo:   txRepo,
		metrics:  metrics,
		interval: interval,
		pollAge:  pollAge,
		stuckAge: stuckAge,
		stop:     make(chan struct{}),
	}
}

func (s *DeadlineScheduler) Start(ctx context.Context) {
	log.Println("🕐 Starting deal deadline scheduler...")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Deal deadline scheduler stopped (context cancelled)")
			return
		case <-s.stop:
			log.Println("⏹️ Deal deadline scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *DeadlineScheduler) Stop() {
	close(s.stop)
}

// sweep runs the reconciliation passes in order. An overlapping call is a
// no-op; a failure in one pass or on one deal never blocks the rest.
func (s *DeadlineScheduler) sweep(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		log.Println("⚠️ Deadline sweep already running, skipping this tick")
		return
	}
	defer s.running.Store(false)

	if !acquireLease(ctx, sweepLeaseKey, s.interval) {
		return
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ CRITICAL: deadline sweep panicked: %v", r)
		}
		s.metrics.SchedulerRun(time.Since(start))
	}()

	now := time.Now()
	s.releaseExpiredApprovals(ctx, now)
	s.cancelExpiredDisputes(ctx, now)
	s.releaseCrossChainApprovals(ctx, now)
	s.pollPendingBridges(ctx, now)
	s.flagStuckDeals(ctx, now)
}

// releaseExpiredApprovals releases escrow for same-chain deals whose final
// approval window elapsed. Deals without a contract need a human.
func (s *DeadlineScheduler) releaseExpiredApprovals(ctx context.Context, now time.Time) {
	deals, err := s.dealRepo.DealsPastFinalApproval(ctx, now)
	if err != nil {
		log.Printf("❌ Error fetching deals past final approval: %v", err)
		return
	}
	if len(deals) == 0 {
		return
	}

	log.Printf("🔄 Releasing %d deals past final approval...", len(deals))
	for _, deal := range deals {
		if !deal.SmartContractAddress.Valid || deal.SmartContractAddress.String == "" {
			log.Printf("⚠️ Deal %s has no escrow contract, manual release required", deal.ID)
			s.metrics.PassOutcome("auto_release", "skipped")
			continue
		}
		if err := s.deals.AutoRelease(ctx, deal); err != nil {
			log.Printf("❌ Error releasing deal %s: %v", deal.ID, err)
			s.metrics.PassOutcome("auto_release", "error")
			continue
		}
		log.Printf("✅ Released funds for deal %s", deal.ID)
		s.metrics.PassOutcome("auto_release", "ok")
	}
}

// cancelExpiredDisputes refunds buyers of deals whose dispute resolution
// window elapsed. Cross-chain deals end in a dedicated terminal status.
func (s *DeadlineScheduler) cancelExpiredDisputes(ctx context.Context, now time.Time) {
	deals, err := s.dealRepo.DealsPastDisputeDeadline(ctx, now)
	if err != nil {
		log.Printf("❌ Error fetching deals past dispute deadline: %v", err)
		return
	}
	if len(deals) == 0 {
		return
	}

	log.Printf("🔄 Cancelling %d deals past dispute deadline...", len(deals))
	for _, deal := range deals {
		if deal.IsCrossChain {
			if err := s.deals.CancelCrossChain(ctx, deal); err != nil {
				log.Printf("❌ Error cancelling cross-chain deal %s: %v", deal.ID, err)
				s.metrics.PassOutcome("auto_cancel", "error")
				continue
			}
			log.Printf("✅ Cancelled cross-chain deal %s after dispute deadline", deal.ID)
			s.metrics.PassOutcome("auto_cancel", "ok")
			continue
		}

		if !deal.SmartContractAddress.Valid || deal.SmartContractAddress.String == "" {
			log.Printf("⚠️ Deal %s has no escrow contract, manual cancellation required", deal.ID)
			s.metrics.PassOutcome("auto_cancel", "skipped")
			continue
		}
		if err := s.deals.AutoCancel(ctx, deal); err != nil {
			log.Printf("❌ Error cancelling deal %s: %v", deal.ID, err)
			s.metrics.PassOutcome("auto_cancel", "error")
			continue
		}
		log.Printf("✅ Cancelled deal %s and refunded the buyer", deal.ID)
		s.metrics.PassOutcome("auto_cancel", "ok")
	}
}

// releaseCrossChainApprovals finalizes cross-chain deals whose approval window
// elapsed, but only when every cross-chain condition is fulfilled.
func (s *DeadlineScheduler) releaseCrossChainApprovals(ctx context.Context, now time.Time) {
	deals, err := s.dealRepo.CrossChainDealsPastFinalApproval(ctx, now)
	if err != nil {
		log.Printf("❌ Error fetching cross-chain deals past final approval: %v", err)
		return
	}
	if len(deals) == 0 {
		return
	}

	log.Printf("🔄 Finalizing %d cross-chain deals past final approval...", len(deals))
	for _, deal := range deals {
		if !deal.CrossChainConditionsFulfilled() {
			log.Printf("⚠️ Cross-chain deal %s has unfulfilled conditions, requires manual intervention", deal.ID)
			s.metrics.PassOutcome("cross_chain_release", "skipped")
			continue
		}
		if err := s.deals.ReleaseCrossChain(ctx, deal); err != nil {
			log.Printf("❌ Error releasing cross-chain deal %s: %v", deal.ID, err)
			s.metrics.PassOutcome("cross_chain_release", "error")
			continue
		}
		log.Printf("✅ Released cross-chain funds for deal %s", deal.ID)
		s.metrics.PassOutcome("cross_chain_release", "ok")
	}
}

// pollPendingBridges re-checks in-flight bridge transfers that have not been
// polled recently.
func (s *DeadlineScheduler) pollPendingBridges(ctx context.Context, now time.Time) {
	txs, err := s.txRepo.PendingStatusCheck(ctx, now.Add(-s.pollAge))
	if err != nil {
		log.Printf("❌ Error fetching pending bridge transactions: %v", err)
		return
	}
	if len(txs) == 0 {
		return
	}

	log.Printf("🔄 Polling %d pending bridge transactions...", len(txs))
	for _, tx := range txs {
		if err := s.bridge.CheckPendingTransaction(ctx, tx); err != nil {
			log.Printf("❌ Error polling bridge transaction %s: %v", tx.ID, err)
			s.metrics.PassOutcome("bridge_poll", "error")
			continue
		}
		s.metrics.PassOutcome("bridge_poll", "ok")
	}
}

// flagStuckDeals marks cross-chain deals untouched past the stuck threshold
// so nothing automatic fires on them again.
func (s *DeadlineScheduler) flagStuckDeals(ctx context.Context, now time.Time) {
	deals, err := s.dealRepo.CrossChainDealsStuck(ctx, now.Add(-s.stuckAge))
	if err != nil {
		log.Printf("❌ Error fetching stuck cross-chain deals: %v", err)
		return
	}
	if len(deals) == 0 {
		return
	}

	log.Printf("🔄 Flagging %d stuck cross-chain deals...", len(deals))
	for _, deal := range deals {
		if err := s.deals.MarkCrossChainStuck(ctx, deal); err != nil {
			log.Printf("❌ Error flagging stuck deal %s: %v", deal.ID, err)
			s.metrics.PassOutcome("stuck_flag", "error")
			continue
		}
		if err := s.bridge.MarkTransactionStuck(ctx, deal.ID); err != nil {
			log.Printf("❌ Error freezing bridge transaction for deal %s: %v", deal.ID, err)
		}
		log.Printf("⚠️ Cross-chain deal %s marked stuck, manual action required", deal.ID)
		s.metrics.PassOutcome("stuck_flag", "ok")
	}
}
