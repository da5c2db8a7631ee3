package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter assembles the gin engine with recovery, CORS and the API
// routes. An empty origin list allows all origins, matching the
// development default of the source deployment.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Telegram-Init-Data"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsCfg))

	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		api.GET("/invoice", h.GetInvoice)
		api.GET("/leaderboard", h.GetLeaderboard)
		api.GET("/history", h.GetActionHistory)
		api.POST("/roulette/win", h.PostRouletteWin)
	}

	return router
}
