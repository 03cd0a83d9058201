package bridge

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
)

// Status is the lifecycle state of one bridge execution as reported by the
// aggregator.
type Status string

const (
	StatusDone    Status = "DONE"
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus maps an aggregator status string onto the closed Status set.
// Anything unrecognized is Unknown so callers keep polling instead of
// guessing.
func ParseStatus(s string) Status {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DONE":
		return StatusDone
	case "PENDING":
		return StatusPending
	case "FAILED":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// RouteQuery describes one desired cross-chain transfer.
type RouteQuery struct {
	FromAddress   string
	ToAddress     string
	SourceNetwork entities.Network
	TargetNetwork entities.Network
	TokenAddress  string // empty or "native" moves the chain's native asset
	Amount        string // positive decimal string
}

// RouteStep is one hop of a planned route.
type RouteStep struct {
	Type             string `json:"type"`
	Tool             string `json:"tool"`
	Description      string `json:"description"`
	EstimatedSeconds int    `json:"estimatedDurationSeconds"`
}

// Route is a planned sequence of steps that realizes one bridge operation.
// Raw preserves the aggregator's payload for auditing.
type Route struct {
	ID               string           `json:"id"`
	Bridge           string           `json:"bridge"`
	SourceNetwork    entities.Network `json:"sourceNetwork"`
	TargetNetwork    entities.Network `json:"targetNetwork"`
	Steps            []RouteStep      `json:"steps"`
	EstimatedSeconds int              `json:"estimatedDurationSeconds"`
	FeeUSD           string           `json:"feeUsd"`
	Confidence       float64          `json:"confidence"`
	Raw              []byte           `json:"-"`
}

// IsDirect reports whether the route is a same-chain transfer that never
// touches a bridge.
func (r *Route) IsDirect() bool {
	return r.Bridge == DirectBridgeName
}

// DirectBridgeName marks trivial same-network routes.
const DirectBridgeName = "direct"

// Execution identifies one started bridge transfer.
type Execution struct {
	ExecutionID string `json:"executionId"`
	TxHash      string `json:"txHash"`
}

// StatusResult is the aggregator's view of one execution.
type StatusResult struct {
	Status       Status `json:"status"`
	Substatus    string `json:"substatus"`
	SourceTxHash string `json:"sourceTxHash,omitempty"`
	TargetTxHash string `json:"targetTxHash,omitempty"`
}

// StatusUpdate is delivered to Callbacks.OnStatusUpdate as an execution
// progresses.
type StatusUpdate struct {
	ExecutionID string
	Status      Status
	Substatus   string
	TxHash      string
}

// ErrorEvent is delivered to Callbacks.OnError when an execution fails.
type ErrorEvent struct {
	ExecutionID string
	Message     string
}

// ChainSwitchRequest asks permission to move the signing context to another
// chain. Server deployments have no interactive wallet, so the hook is
// advisory and refusing it never aborts the transfer.
type ChainSwitchRequest struct {
	FromChainID int64
	ToChainID   int64
}

// Callbacks receives progress events during Execute. Nil members are skipped.
type Callbacks struct {
	OnStatusUpdate func(StatusUpdate)
	OnError        func(ErrorEvent)
	SwitchChain    func(ChainSwitchRequest) bool
}

// ServerCallbacks returns the callback set used outside of tests: progress
// and errors are left to the caller's own bookkeeping and every chain switch
// is refused.
func ServerCallbacks() Callbacks {
	return Callbacks{
		SwitchChain: func(ChainSwitchRequest) bool { return false },
	}
}

// Router plans and drives cross-chain transfers. PlanRoute fails with
// ErrNoRoute when the aggregator has no path and ErrBridgeUnavailable when it
// cannot be reached; callers treat both as non-fatal to the surrounding deal.
type Router interface {
	PlanRoute(ctx context.Context, query RouteQuery) (*Route, error)
	Execute(ctx context.Context, route *Route, cb Callbacks) (*Execution, error)
	Status(ctx context.Context, executionID string) (*StatusResult, error)
}

// Known token addresses per network. Route requests only accept tokens from
// this table; native transfers are substituted with the wrapped
// representation before route discovery.
var knownTokens = map[entities.Network]map[string]string{
	entities.NetworkEthereum: {
		"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		"WETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	},
	entities.NetworkPolygon: {
		"USDC":   "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174",
		"USDT":   "0xc2132D05D31c914a87C6611C10748AEb04B58e8F",
		"WMATIC": "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270",
	},
	entities.NetworkBSC: {
		"USDC": "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
		"USDT": "0x55d398326f99059fF775485246999027B3197955",
		"WBNB": "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c",
	},
	entities.NetworkArbitrum: {
		"USDC": "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		"USDT": "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9",
		"WETH": "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1",
	},
	entities.NetworkOptimism: {
		"USDC": "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		"USDT": "0x94b008aA00579c1307B0EF2c499aD98a8ce58e58",
		"WETH": "0x4200000000000000000000000000000000000006",
	},
	entities.NetworkAvalanche: {
		"USDC":  "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		"USDT":  "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7",
		"WAVAX": "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7",
	},
	entities.NetworkFantom: {
		"USDC": "0x04068DA6C83AFCFA0e13ba15A6696662335D5B75",
		"WFTM": "0x21be370D5312f44cB42ce377BC9b8a0cEF1A4C83",
	},
	entities.NetworkSolana: {
		"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"USDT": "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	},
}

// nativeRouteToken returns the token address the aggregator understands for a
// network's native asset.
func nativeRouteToken(n entities.Network) string {
	if n.IsEVM() {
		return n.WrappedNativeToken()
	}
	return "native"
}

// resolveTransferTokens validates the requested token against the source
// network's token table and returns the source- and target-side addresses to
// use for route discovery. Empty and "native" requests move the native
// asset.
func resolveTransferTokens(source, target entities.Network, token string) (string, string, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.EqualFold(token, "native") {
		return nativeRouteToken(source), nativeRouteToken(target), nil
	}

	symbol := strings.ToUpper(token)
	if _, ok := knownTokens[source][symbol]; !ok {
		symbol = symbolForAddress(source, token)
		if symbol == "" {
			return "", "", domainerrors.BadRequest(fmt.Sprintf("token %s is not supported on %s", token, source))
		}
	}

	fromToken := knownTokens[source][symbol]
	toToken, ok := knownTokens[target][symbol]
	if !ok {
		return "", "", domainerrors.BadRequest(fmt.Sprintf("token %s is not available on %s", symbol, target))
	}
	return fromToken, toToken, nil
}

func symbolForAddress(network entities.Network, address string) string {
	for symbol, addr := range knownTokens[network] {
		if strings.EqualFold(addr, address) {
			return symbol
		}
	}
	return ""
}

func validateRouteQuery(query RouteQuery) error {
	if !entities.IsSupportedNetwork(query.SourceNetwork) {
		return fmt.Errorf("%w: %s", domainerrors.ErrUnsupportedNetwork, query.SourceNetwork)
	}
	if !entities.IsSupportedNetwork(query.TargetNetwork) {
		return fmt.Errorf("%w: %s", domainerrors.ErrUnsupportedNetwork, query.TargetNetwork)
	}
	if !entities.ValidAddressForNetwork(query.FromAddress, query.SourceNetwork) {
		return domainerrors.BadRequest(fmt.Sprintf("address %s is not valid on %s", query.FromAddress, query.SourceNetwork))
	}
	if !entities.ValidAddressForNetwork(query.ToAddress, query.TargetNetwork) {
		return domainerrors.BadRequest(fmt.Sprintf("address %s is not valid on %s", query.ToAddress, query.TargetNetwork))
	}
	if f, ok := new(big.Float).SetString(query.Amount); !ok || f.Sign() <= 0 {
		return domainerrors.BadRequest("amount must be a positive number")
	}
	return nil
}

// PlaceholderAddress returns a syntactically valid address for the network,
// used by fee estimation where no real wallet is involved.
func PlaceholderAddress(n entities.Network) string {
	switch {
	case n.IsEVM():
		return "0x0000000000000000000000000000000000000001"
	case n == entities.NetworkSolana:
		return "11111111111111111111111111111111"
	case n == entities.NetworkBitcoin:
		return "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	default:
		return ""
	}
}

// directRoute builds the trivial 1-step route for a same-network transfer.
func directRoute(query RouteQuery) *Route {
	return &Route{
		ID:            DirectBridgeName + "-" + uuid.NewString(),
		Bridge:        DirectBridgeName,
		SourceNetwork: query.SourceNetwork,
		TargetNetwork: query.TargetNetwork,
		Steps: []RouteStep{
			{
				Type:             "transfer",
				Tool:             DirectBridgeName,
				Description:      fmt.Sprintf("Direct transfer on %s", query.SourceNetwork),
				EstimatedSeconds: 60,
			},
		},
		EstimatedSeconds: 60,
		FeeUSD:           "0.00",
		Confidence:       100,
	}
}

// clampConfidence bounds a reported confidence score to [30, 100].
func clampConfidence(v float64) float64 {
	if v < 30 {
		return 30
	}
	if v > 100 {
		return 100
	}
	return v
}

// bestRoute ranks candidates by a weighted score of confidence (0.4),
// estimated time (0.3) and estimated fees (0.3), faster and cheaper scoring
// higher, and returns the winner.
func bestRoute(routes []*Route) *Route {
	if len(routes) == 0 {
		return nil
	}
	if len(routes) == 1 {
		return routes[0]
	}

	minTime, maxTime := float64(routes[0].EstimatedSeconds), float64(routes[0].EstimatedSeconds)
	minFee, maxFee := routeFeeUSD(routes[0]), routeFeeUSD(routes[0])
	for _, r := range routes[1:] {
		t := float64(r.EstimatedSeconds)
		if t < minTime {
			minTime = t
		}
		if t > maxTime {
			maxTime = t
		}
		f := routeFeeUSD(r)
		if f < minFee {
			minFee = f
		}
		if f > maxFee {
			maxFee = f
		}
	}

	best := routes[0]
	bestScore := -1.0
	for _, r := range routes {
		score := 0.4*(clampConfidence(r.Confidence)/100) +
			0.3*inverseSpread(float64(r.EstimatedSeconds), minTime, maxTime) +
			0.3*inverseSpread(routeFeeUSD(r), minFee, maxFee)
		if score > bestScore {
			best, bestScore = r, score
		}
	}
	return best
}

// inverseSpread normalizes v within [min, max] so the smallest value scores
// 1 and the largest 0. A degenerate spread scores 1 for everyone.
func inverseSpread(v, min, max float64) float64 {
	if max <= min {
		return 1
	}
	return 1 - (v-min)/(max-min)
}

// routeFeeUSD parses the route's fee estimate; unparseable fees rank last.
func routeFeeUSD(r *Route) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.FeeUSD), 64)
	if err != nil {
		return 1e9
	}
	return f
}
