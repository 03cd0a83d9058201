package main

import (
	"github.com/gin-gonic/gin"

	"deal-chain.backend/internal/interfaces/http/handlers"
	"deal-chain.backend/internal/interfaces/http/middleware"
)

type routeDeps struct {
	dealHandler       *handlers.DealHandler
	crossChainHandler *handlers.CrossChainHandler
	authMiddleware    gin.HandlerFunc
}

func registerAPIRoutes(r *gin.Engine, d routeDeps) {
	api := r.Group("/api")
	{
		// Deal routes (protected)
		transactions := api.Group("/transactions")
		transactions.Use(d.authMiddleware)
		{
			transactions.POST("/create", middleware.IdempotencyMiddleware(), d.dealHandler.CreateDeal)
			transactions.GET("", d.dealHandler.ListDeals)
			transactions.GET("/:id", d.dealHandler.GetDeal)
			transactions.PUT("/:id/sync-status", d.dealHandler.SyncStatus)
			transactions.POST("/:id/sc/start-final-approval", d.dealHandler.StartFinalApproval)
			transactions.POST("/:id/sc/raise-dispute", d.dealHandler.RaiseDispute)

			// Condition review (buyer side)
			transactions.PATCH("/conditions/:conditionId/buyer-review", d.dealHandler.ReviewCondition)

			// Cross-chain routes
			crossChain := transactions.Group("/cross-chain")
			{
				crossChain.GET("/networks", d.crossChainHandler.ListNetworks)
				crossChain.GET("/estimate-fees", d.crossChainHandler.EstimateFees)
				crossChain.POST("/:dealId/execute-step", d.crossChainHandler.ExecuteStep)
				crossChain.GET("/:dealId/status", d.crossChainHandler.GetStatus)
				crossChain.POST("/:dealId/transfer", d.crossChainHandler.Transfer)
			}
		}
	}
}
