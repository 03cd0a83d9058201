package redis

import (
	"context"
	"encoding/json"
	"time"
)

// Quote is a cached bridge fee estimate. Amounts are decimal strings in the
// source asset's units.
type Quote struct {
	SourceNetwork string    `json:"sourceNetwork"`
	TargetNetwork string    `json:"targetNetwork"`
	Amount        string    `json:"amount"`
	BridgeFee     string    `json:"bridgeFee"`
	NetworkFee    string    `json:"networkFee"`
	TotalFee      string    `json:"totalFee"`
	EstimatedTime string    `json:"estimatedTime"`
	Confidence    string    `json:"confidence"`
	IsEstimate    bool      `json:"isEstimate"`
	QuotedAt      time.Time `json:"quotedAt"`
}

// QuoteCache keeps recent bridge fee quotes so repeated estimate calls do not
// hammer the aggregator.
type QuoteCache struct {
	ttl time.Duration
}

var (
	setCacheValue = Set
	getCacheValue = Get
	delCacheValue = Del
)

// NewQuoteCache creates a quote cache with the given entry lifetime.
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &QuoteCache{ttl: ttl}
}

func quoteKey(source, target, amount string) string {
	return "quote:" + source + ":" + target + ":" + amount
}

// Put stores a quote under its route key.
func (c *QuoteCache) Put(ctx context.Context, q *Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return setCacheValue(ctx, quoteKey(q.SourceNetwork, q.TargetNetwork, q.Amount), data, c.ttl)
}

// Lookup returns the cached quote for a route, or nil when none is cached.
func (c *QuoteCache) Lookup(ctx context.Context, source, target, amount string) (*Quote, error) {
	raw, err := getCacheValue(ctx, quoteKey(source, target, amount))
	if err != nil {
		return nil, err
	}

	var q Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Invalidate drops the cached quote for a route.
func (c *QuoteCache) Invalidate(ctx context.Context, source, target, amount string) error {
	return delCacheValue(ctx, quoteKey(source, target, amount))
}
