package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"deal-chain.backend/internal/domain/entities"
	domainerrors "deal-chain.backend/internal/domain/errors"
	"deal-chain.backend/internal/interfaces/http/middleware"
	"deal-chain.backend/internal/interfaces/http/response"
	"deal-chain.backend/pkg/utils"
)

// DealService is the slice of the deal usecase served over HTTP.
type DealService interface {
	Create(ctx context.Context, principal entities.Principal, input entities.CreateDealInput) (*entities.Deal, error)
	Get(ctx context.Context, principal entities.Principal, dealID string) (*entities.Deal, error)
	List(ctx context.Context, principal entities.Principal, page, limit int) ([]*entities.Deal, int64, error)
	ReviewCondition(ctx context.Context, principal entities.Principal, conditionID string, input entities.ReviewConditionInput) (*entities.Deal, error)
	SyncStatus(ctx context.Context, principal entities.Principal, dealID string, input entities.SyncStatusInput) (*entities.Deal, error)
	StartFinalApproval(ctx context.Context, principal entities.Principal, dealID string, input entities.DeadlineInput) (*entities.Deal, error)
	RaiseDispute(ctx context.Context, principal entities.Principal, dealID string, input entities.DeadlineInput) (*entities.Deal, error)
}

// DealHandler handles deal endpoints
type DealHandler struct {
	deals DealService
}

// NewDealHandler creates a new deal handler
func NewDealHandler(deals DealService) *DealHandler {
	return &DealHandler{deals: deals}
}

// CreateDeal creates a new deal
// POST /api/transactions/create
func (h *DealHandler) CreateDeal(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.CreateDealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	deal, err := h.deals.Create(c.Request.Context(), *principal, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"deal": deal})
}

// GetDeal gets a deal by ID, participants only
// GET /api/transactions/:id
func (h *DealHandler) GetDeal(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	deal, err := h.deals.Get(c.Request.Context(), *principal, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deal": deal})
}

// ListDeals lists the caller's deals, newest first
// GET /api/transactions
func (h *DealHandler) ListDeals(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	deals, total, err := h.deals.List(c.Request.Context(), *principal, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	params := utils.GetPaginationParams(page, limit)
	response.Success(c, http.StatusOK, gin.H{
		"deals":      deals,
		"pagination": utils.CalculateMeta(total, params.Page, params.Limit),
	})
}

// ReviewCondition records the buyer's review of one condition
// PATCH /api/transactions/conditions/:conditionId/buyer-review
func (h *DealHandler) ReviewCondition(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.ReviewConditionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	deal, err := h.deals.ReviewCondition(c.Request.Context(), *principal, c.Param("conditionId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deal": deal})
}

// SyncStatus applies an observed on-chain state change to the deal
// PUT /api/transactions/:id/sync-status
func (h *DealHandler) SyncStatus(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.SyncStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	deal, err := h.deals.SyncStatus(c.Request.Context(), *principal, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deal": deal})
}

// StartFinalApproval opens the final approval window
// POST /api/transactions/:id/sc/start-final-approval
func (h *DealHandler) StartFinalApproval(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.DeadlineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	deal, err := h.deals.StartFinalApproval(c.Request.Context(), *principal, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deal": deal})
}

// RaiseDispute moves the deal into dispute
// POST /api/transactions/:id/sc/raise-dispute
func (h *DealHandler) RaiseDispute(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	var input entities.DeadlineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	deal, err := h.deals.RaiseDispute(c.Request.Context(), *principal, c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deal": deal})
}
