package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/inkwell-social/inkwell/internal/auth"
	"github.com/inkwell-social/inkwell/internal/cache"
	"github.com/inkwell-social/inkwell/internal/database"
	"github.com/inkwell-social/inkwell/internal/feed"
	"github.com/inkwell-social/inkwell/internal/handlers"
	"github.com/inkwell-social/inkwell/internal/logger"
	"github.com/inkwell-social/inkwell/internal/metrics"
	"github.com/inkwell-social/inkwell/internal/middleware"
	"github.com/inkwell-social/inkwell/internal/stats"
)

func main() {
	// .env is optional; system environment is enough in production
	_ = godotenv.Load()

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Close()

	logger.Log.Info("Inkwell server starting")

	if err := database.Initialize(); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	// Redis is optional: cached endpoints and the rate limiter degrade
	// gracefully without it
	redisClient, err := cache.NewRedisClient(
		getEnvOrDefault("REDIS_HOST", "localhost"),
		getEnvOrDefault("REDIS_PORT", "6379"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.WarnWithFields("Redis unavailable, continuing without cache", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	metrics.Initialize()

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.FatalWithFields("JWT_SECRET environment variable is required", nil)
	}

	authService := auth.NewService(jwtSecret)
	aggregator := stats.NewAggregator(database.DB)
	feedService := feed.NewService(database.DB, aggregator)
	h := handlers.NewHandlers(authService, feedService, aggregator, redisClient)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{getEnvOrDefault("CORS_ORIGIN", "*")}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if err := database.Health(); err != nil {
			status = http.StatusServiceUnavailable
			dbState = "unavailable"
		}
		c.JSON(status, gin.H{
			"status":    dbState,
			"timestamp": time.Now().UTC(),
			"service":   "inkwell-backend",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			if redisClient != nil {
				// Credential endpoints get a tighter limit
				authGroup.Use(middleware.RedisRateLimitMiddleware(20, time.Minute))
			}
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", h.AuthMiddleware(), h.Me)
		}

		feedGroup := api.Group("/feed")
		{
			feedGroup.Use(h.AuthMiddleware())
			feedGroup.GET("/personalized", h.GetPersonalizedFeed)
			feedGroup.GET("/following", h.GetFollowingFeed)
			feedGroup.GET("/tag/:name", h.GetTagFeed)
		}

		posts := api.Group("/posts")
		{
			posts.Use(h.AuthMiddleware())
			posts.POST("", h.CreatePost)
			posts.GET("/:id", h.GetPost)
			posts.PUT("/:id", h.UpdatePost)
			posts.DELETE("/:id", h.DeletePost)
			posts.POST("/:id/pin", h.PinPost)
			posts.DELETE("/:id/pin", h.UnpinPost)
			posts.POST("/:id/like", h.LikePost)
			posts.DELETE("/:id/like", h.UnlikePost)
			posts.POST("/:id/reblog", h.ReblogPost)
			posts.DELETE("/:id/reblog", h.UnreblogPost)
			posts.POST("/:id/comments", h.CreateComment)
			posts.GET("/:id/comments", h.GetPostComments)
		}

		comments := api.Group("/comments")
		{
			comments.Use(h.AuthMiddleware())
			comments.GET("/:id/replies", h.GetCommentReplies)
			comments.PUT("/:id", h.UpdateComment)
			comments.DELETE("/:id", h.DeleteComment)
			comments.POST("/:id/like", h.LikeComment)
			comments.DELETE("/:id/like", h.UnlikeComment)
		}

		users := api.Group("/users")
		{
			users.Use(h.AuthMiddleware())
			users.PUT("/me", h.UpdateMyProfile)
			users.GET("/:id/profile", h.GetUserProfile)
			users.GET("/:id/posts", h.GetUserPosts)
			users.GET("/:id/followers", h.GetFollowers)
			users.GET("/:id/following", h.GetFollowing)
			users.POST("/:id/follow", h.FollowUser)
			users.DELETE("/:id/follow", h.UnfollowUser)
			users.POST("/:id/block", h.BlockUser)
			users.DELETE("/:id/block", h.UnblockUser)
		}

		tags := api.Group("/tags")
		{
			tags.Use(h.AuthMiddleware())
			tags.GET("/trending", h.GetTrendingTags)
			tags.GET("/followed", h.GetFollowedTags)
			tags.POST("/:name/follow", h.FollowTag)
			tags.DELETE("/:name/follow", h.UnfollowTag)
		}

		messages := api.Group("/messages")
		{
			messages.Use(h.AuthMiddleware())
			messages.GET("/conversations", h.GetConversations)
			messages.POST("/conversations", h.CreateConversation)
			messages.GET("/conversations/:id", h.GetMessages)
			messages.POST("/conversations/:id", h.SendMessage)
			messages.POST("/conversations/:id/read", h.MarkConversationRead)
		}

		api.POST("/reports", h.AuthMiddleware(), h.CreateReport)

		moderation := api.Group("/moderation")
		{
			moderation.Use(h.AuthMiddleware(), h.RequireModerator())
			moderation.GET("/reports", h.GetReports)
			moderation.POST("/reports/:id/resolve", h.ResolveReport)
			moderation.POST("/reports/:id/dismiss", h.DismissReport)
		}

		notifications := api.Group("/notifications")
		{
			notifications.Use(h.AuthMiddleware())
			notifications.GET("", h.GetNotifications)
			notifications.GET("/counts", h.GetNotificationCounts)
			notifications.POST("/read", h.MarkNotificationsRead)
			notifications.POST("/seen", h.MarkNotificationsSeen)
		}
	}

	port := getEnvOrDefault("PORT", "8080")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("Inkwell backend listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithFields("Server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Forced shutdown", err)
	}
	logger.Log.Info("Server stopped")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
