package restapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Portfolio *PortfolioHandler
	Bridge    *BridgeHandler
	Wallets   *WalletHandler
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
}

// SetupRouter configures and returns the gin engine.
func SetupRouter(h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	v1 := router.Group("/api/v1")
	{
		portfolio := v1.Group("/portfolio")
		portfolio.GET("", h.Portfolio.GetPortfolio)
		portfolio.PUT("/window", h.Portfolio.SelectWindow)
		portfolio.PUT("/holdings", h.Portfolio.PutHoldings)
		portfolio.POST("/holdings/load", h.Portfolio.LoadHoldings)
		portfolio.POST("/refresh", h.Portfolio.RefreshPrices)

		bridge := v1.Group("/bridge")
		bridge.GET("", h.Bridge.GetState)
		bridge.GET("/quote", h.Bridge.GetQuote)
		bridge.PUT("/amount", h.Bridge.SetAmount)
		bridge.PUT("/chains", h.Bridge.SetChains)
		bridge.PUT("/wallet", h.Bridge.SetWalletAddress)
		bridge.POST("/swap", h.Bridge.SwapChains)
		bridge.POST("/requote", h.Bridge.Requote)
		bridge.POST("/reset", h.Bridge.Reset)
		bridge.POST("/execute", h.Bridge.Execute)

		v1.GET("/chains", h.Bridge.ListChains)

		wallets := v1.Group("/wallets")
		wallets.GET("", h.Wallets.List)
		wallets.POST("", h.Wallets.Create)
		wallets.GET("/:id", h.Wallets.Get)
		wallets.PATCH("/:id", h.Wallets.Rename)
		wallets.DELETE("/:id", h.Wallets.Delete)
		wallets.POST("/:id/deposit", h.Wallets.Deposit)
		wallets.POST("/:id/withdraw", h.Wallets.Withdraw)
	}

	return router
}
