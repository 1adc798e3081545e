package routes

import (
	"net/http"

	"github.com/01moynul/qr-inventory/internal/auth"
	"github.com/01moynul/qr-inventory/internal/handlers"
	"github.com/01moynul/qr-inventory/internal/metrics"
	"github.com/01moynul/qr-inventory/internal/middleware"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware lets the browser app at allowedOrigin call the API.
func CORSMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Allow ONLY the configured frontend
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)

		// 2. Allow standard security credentials
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		// 3. Allow the headers we actually use ("Authorization" for the session token)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")

		// 4. Allow the HTTP methods we use in our API
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		// 5. Handle the "Preflight" OPTIONS request
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, tokens *auth.TokenIssuer, sessions *auth.Manager, allowedOrigin string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// This must be the very first thing the router uses
	router.Use(CORSMiddleware(allowedOrigin))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.GET("/auth/login", h.Login)
		v1.GET("/auth/callback", h.OAuthCallback)
		v1.POST("/auth/token", h.TokenLogin)

		// --- Protected Routes (Login Required) ---
		authed := v1.Group("/")
		authed.Use(middleware.AuthMiddleware(tokens, sessions))
		{
			authed.GET("/auth/me", h.Me)
			authed.POST("/auth/logout", h.Logout)

			// --- Item Routes ---
			authed.GET("/items", h.GetItems)
			authed.GET("/items/:id", h.GetItem)
			authed.PUT("/items/:id/quantity", h.UpdateItemQuantity)
			authed.GET("/items/:id/payload", h.GetItemPayload)
			authed.GET("/items/:id/qr.png", h.GetItemQRCode)
			authed.GET("/sheet/validate", h.ValidateSheet)

			// --- Scan Routes ---
			authed.POST("/scan", h.ScanPayload)
			authed.POST("/scan/image", h.ScanImage)

			scan := authed.Group("/scanner")
			{
				scan.GET("", h.GetScanner)
				scan.POST("/start", h.StartScanner)
				scan.POST("/frames", h.PushFrame)
				scan.POST("/stop", h.StopScanner)
				scan.POST("/reset", h.ResetScanner)
			}
		}
	}

	return router
}
