package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domainerrors "deal-chain.backend/internal/domain/errors"
)

// DefaultAggregatorURL is used when no BRIDGE_API_URL is configured.
const DefaultAggregatorURL = "https://li.quest/v1"

const apiKeyHeader = "x-lifi-api-key"

// AggregatorRouter implements Router over the bridge aggregator's HTTP API.
// Same-network EVM transfers short-circuit to a direct route without touching
// the aggregator.
type AggregatorRouter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAggregatorRouter builds a router against the given aggregator endpoint.
// An empty baseURL selects the default public endpoint.
func NewAggregatorRouter(baseURL, apiKey string) *AggregatorRouter {
	if baseURL == "" {
		baseURL = DefaultAggregatorURL
	}
	return &AggregatorRouter{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type planRouteRequest struct {
	FromChain   string `json:"fromChain"`
	ToChain     string `json:"toChain"`
	FromToken   string `json:"fromToken"`
	ToToken     string `json:"toToken"`
	FromAmount  string `json:"fromAmount"`
	FromAddress string `json:"fromAddress,omitempty"`
	ToAddress   string `json:"toAddress,omitempty"`
}

type aggregatorStep struct {
	Type             string `json:"type"`
	Tool             string `json:"tool"`
	Description      string `json:"description"`
	EstimatedSeconds int    `json:"estimatedDurationSeconds"`
}

type aggregatorRoute struct {
	ID               string           `json:"id"`
	Bridge           string           `json:"bridge"`
	EstimatedSeconds int              `json:"estimatedDurationSeconds"`
	FeeUSD           string           `json:"feeUsd"`
	Confidence       float64          `json:"confidence"`
	Steps            []aggregatorStep `json:"steps"`
}

type statusResponse struct {
	Status    string `json:"status"`
	Substatus string `json:"substatus"`
	Sending   struct {
		TxHash string `json:"txHash"`
	} `json:"sending"`
	Receiving struct {
		TxHash string `json:"txHash"`
	} `json:"receiving"`
}

// PlanRoute asks the aggregator for candidate routes and returns the best one
// by weighted ranking. ErrNoRoute means the pair has no path; the caller
// persists that outcome instead of failing the deal.
func (r *AggregatorRouter) PlanRoute(ctx context.Context, query RouteQuery) (*Route, error) {
	if err := validateRouteQuery(query); err != nil {
		return nil, err
	}
	if query.SourceNetwork == query.TargetNetwork && query.SourceNetwork.IsEVM() {
		return directRoute(query), nil
	}

	fromToken, toToken, err := resolveTransferTokens(query.SourceNetwork, query.TargetNetwork, query.TokenAddress)
	if err != nil {
		return nil, err
	}

	reqBody := planRouteRequest{
		FromChain:   string(query.SourceNetwork),
		ToChain:     string(query.TargetNetwork),
		FromToken:   fromToken,
		ToToken:     toToken,
		FromAmount:  query.Amount,
		FromAddress: query.FromAddress,
		ToAddress:   query.ToAddress,
	}

	var parsed struct {
		Routes []json.RawMessage `json:"routes"`
	}
	status, err := r.doJSON(ctx, http.MethodPost, "/advanced/routes", nil, reqBody, &parsed)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: no route from %s to %s", domainerrors.ErrNoRoute, query.SourceNetwork, query.TargetNetwork)
		}
		return nil, err
	}
	if len(parsed.Routes) == 0 {
		return nil, fmt.Errorf("%w: no route from %s to %s", domainerrors.ErrNoRoute, query.SourceNetwork, query.TargetNetwork)
	}

	routes := make([]*Route, 0, len(parsed.Routes))
	for _, raw := range parsed.Routes {
		var ar aggregatorRoute
		if err := json.Unmarshal(raw, &ar); err != nil {
			continue
		}
		routes = append(routes, convertRoute(ar, raw, query))
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: aggregator returned no usable routes", domainerrors.ErrNoRoute)
	}
	return bestRoute(routes), nil
}

// Execute starts the chosen route. Cross-chain routes trigger the chain
// switch advisory first; its refusal is expected on servers and the transfer
// proceeds regardless.
func (r *AggregatorRouter) Execute(ctx context.Context, route *Route, cb Callbacks) (*Execution, error) {
	if route == nil || route.ID == "" {
		return nil, domainerrors.BadRequest("route is required")
	}
	if route.IsDirect() {
		return &Execution{ExecutionID: route.ID}, nil
	}
	if cb.SwitchChain != nil && route.SourceNetwork != route.TargetNetwork {
		cb.SwitchChain(ChainSwitchRequest{
			FromChainID: route.SourceNetwork.ChainID(),
			ToChainID:   route.TargetNetwork.ChainID(),
		})
	}

	var exec Execution
	_, err := r.doJSON(ctx, http.MethodPost, "/advanced/routes/"+url.PathEscape(route.ID)+"/execute", nil, nil, &exec)
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(ErrorEvent{ExecutionID: route.ID, Message: err.Error()})
		}
		return nil, err
	}
	if exec.ExecutionID == "" {
		exec.ExecutionID = route.ID
	}
	if cb.OnStatusUpdate != nil {
		cb.OnStatusUpdate(StatusUpdate{
			ExecutionID: exec.ExecutionID,
			Status:      StatusPending,
			TxHash:      exec.TxHash,
		})
	}
	return &exec, nil
}

// Status polls one execution. An unknown execution id is reported as
// StatusUnknown rather than an error so the scheduler keeps polling.
func (r *AggregatorRouter) Status(ctx context.Context, executionID string) (*StatusResult, error) {
	if executionID == "" {
		return nil, domainerrors.BadRequest("execution id is required")
	}

	q := url.Values{}
	q.Set("executionId", executionID)

	var parsed statusResponse
	status, err := r.doJSON(ctx, http.MethodGet, "/status", q, nil, &parsed)
	if err != nil {
		if status == http.StatusNotFound {
			return &StatusResult{Status: StatusUnknown, Substatus: "NOT_FOUND"}, nil
		}
		return nil, err
	}
	return &StatusResult{
		Status:       ParseStatus(parsed.Status),
		Substatus:    parsed.Substatus,
		SourceTxHash: parsed.Sending.TxHash,
		TargetTxHash: parsed.Receiving.TxHash,
	}, nil
}

// doJSON performs one aggregator round trip, returning the HTTP status code
// alongside any error so callers can special-case 404.
func (r *AggregatorRouter) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) (int, error) {
	endpoint := r.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal aggregator request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return 0, fmt.Errorf("build aggregator request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.apiKey != "" {
		req.Header.Set(apiKeyHeader, r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domainerrors.ErrBridgeUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return resp.StatusCode, fmt.Errorf("%w: aggregator returned %d", domainerrors.ErrBridgeUnavailable, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode aggregator response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func convertRoute(ar aggregatorRoute, raw []byte, query RouteQuery) *Route {
	route := &Route{
		ID:               ar.ID,
		Bridge:           ar.Bridge,
		SourceNetwork:    query.SourceNetwork,
		TargetNetwork:    query.TargetNetwork,
		EstimatedSeconds: ar.EstimatedSeconds,
		FeeUSD:           ar.FeeUSD,
		Confidence:       clampConfidence(ar.Confidence),
		Raw:              raw,
	}
	if route.Bridge == "" && len(ar.Steps) > 0 {
		route.Bridge = ar.Steps[0].Tool
	}
	for _, s := range ar.Steps {
		route.Steps = append(route.Steps, RouteStep{
			Type:             s.Type,
			Tool:             s.Tool,
			Description:      s.Description,
			EstimatedSeconds: s.EstimatedSeconds,
		})
	}
	return route
}
