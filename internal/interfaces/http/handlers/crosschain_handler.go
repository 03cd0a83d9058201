package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/interfaces/http/middleware"
	"deal-chain.backend/internal/interfaces/http/response"
	"deal-chain.backend/internal/usecases"
)

// CrossChainService is the slice of the cross-chain usecase served over HTTP.
type CrossChainService interface {
	ExecuteStep(ctx context.Context, dealID string, input entities.ExecuteStepInput) (*entities.CrossChainTransaction, error)
	GetStatus(ctx context.Context, principal entities.Principal, dealID string) (*usecases.CrossChainStatus, error)
	Transfer(ctx context.Context, principal entities.Principal, dealID string, input entities.TransferBridgeInput) (*entities.CrossChainTransaction, error)
	EstimateBridgeFee(ctx context.Context, source, target entities.Network, amount string) (*entities.FeeEstimate, error)
}

// CrossChainHandler handles bridge endpoints
type CrossChainHandler struct {
	crossChain CrossChainService
}

// NewCrossChainHandler creates a new cross-chain handler
func NewCrossChainHandler(crossChain CrossChainService) *CrossChainHandler {
	return &CrossChainHandler{crossChain: crossChain}
}

// ExecuteStep drives one step of the deal's cross-chain transaction
// POST /api/transactions/cross-chain/:dealId/execute-step
func (h *CrossChainHandler) ExecuteStep(c *gin.Context) {
	var input entities.ExecuteStepInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.crossChain.ExecuteStep(c.Request.Context(), c.Param("dealId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transaction": tx})
}

// GetStatus returns the combined transaction and deal status
// GET /api/transactions/cross-chain/:dealId/status
func (h *CrossChainHandler) GetStatus(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	status, err := h.crossChain.GetStatus(c.Request.Context(), *principal, c.Param("dealId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// Transfer runs the funds-lock and bridge steps with the buyer's tx hashes
// POST /api/transactions/cross-chain/:dealId/transfer
func (h *CrossChainHandler) Transfer(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.TransferBridgeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.crossChain.Transfer(c.Request.Context(), *principal, c.Param("dealId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"transaction": tx})
}

// EstimateFees quotes the cost of a cross-network transfer
// GET /api/transactions/cross-chain/estimate-fees?sourceNetwork&targetNetwork&amount
func (h *CrossChainHandler) EstimateFees(c *gin.Context) {
	source := entities.Network(c.Query("sourceNetwork"))
	target := entities.Network(c.Query("targetNetwork"))
	amount := c.Query("amount")

	if source == "" || target == "" || amount == "" {
		response.Error(c, domainerrors.BadRequest("sourceNetwork, targetNetwork and amount are required"))
		return
	}

	estimate, err := h.crossChain.EstimateBridgeFee(c.Request.Context(), source, target, amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, estimate)
}

var networkDisplayNames = map[entities.Network]string{
	entities.NetworkEthereum:  "Ethereum",
	entities.NetworkPolygon:   "Polygon",
	entities.NetworkBSC:       "BNB Smart Chain",
	entities.NetworkArbitrum:  "Arbitrum One",
	entities.NetworkOptimism:  "Optimism",
	entities.NetworkAvalanche: "Avalanche C-Chain",
	entities.NetworkFantom:    "Fantom Opera",
	entities.NetworkSolana:    "Solana",
	entities.NetworkBitcoin:   "Bitcoin",
}

// ListNetworks returns the closed set of supported networks
// GET /api/transactions/cross-chain/networks
func (h *CrossChainHandler) ListNetworks(c *gin.Context) {
	networks := entities.SupportedNetworks()
	infos := make([]entities.NetworkInfo, 0, len(networks))
	for _, n := range networks {
		infos = append(infos, entities.NetworkInfo{
			ID:            string(n),
			Name:          networkDisplayNames[n],
			IsEVM:         n.IsEVM(),
			ChainID:       n.ChainID(),
			NativeWrapped: n.WrappedNativeToken(),
		})
	}

	response.Success(c, http.StatusOK, gin.H{"networks": infos})
}
