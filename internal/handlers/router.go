package handlers

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"feedcloud/internal/auth"
	"feedcloud/internal/database"
	"feedcloud/internal/metrics"
	"feedcloud/internal/queue"
)

// NewRouter wires the full HTTP API onto a gin engine. POST /auth/ and the
// prometheus GET /metrics endpoint are the only public routes; everything
// else requires a bearer token via authMiddleware.RequireAuth.
func NewRouter(db database.Database, tokens *auth.TokenManager, broker queue.Broker) *gin.Engine {
	authMiddleware := auth.NewMiddleware(tokens)
	authHandler := NewAuthHandler(db, tokens)
	feedHandler := NewFeedHandler(db, broker)
	entryHandler := NewEntryHandler(db)

	r := gin.Default()
	_ = r.SetTrustedProxies(nil)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/auth/", authHandler.Login)

	protected := r.Group("/")
	protected.Use(authMiddleware.RequireAuth())
	{
		protected.POST("/feeds/", feedHandler.CreateFeed)
		protected.DELETE("/feeds/:id", feedHandler.DeleteFeed)
		protected.PUT("/feeds/:id/force-run", feedHandler.ForceRunFeed)
		protected.GET("/feeds/", feedHandler.ListFeeds)
		protected.GET("/feeds/:id/entries/", feedHandler.ListFeedEntries)
		protected.GET("/entries/", entryHandler.ListEntries)
		protected.PUT("/entries/:id", entryHandler.UpdateEntry)
	}

	return r
}
