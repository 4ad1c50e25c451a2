package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/guildsync/backend/config"
	"github.com/guildsync/backend/internal/auth"
	"github.com/guildsync/backend/internal/cache"
	"github.com/guildsync/backend/internal/database"
	"github.com/guildsync/backend/internal/filter"
	"github.com/guildsync/backend/internal/gateway"
	"github.com/guildsync/backend/internal/handlers"
	"github.com/guildsync/backend/internal/middleware"
	"github.com/guildsync/backend/internal/moderation"
	"github.com/guildsync/backend/internal/models"
	"github.com/guildsync/backend/internal/repository"
	"github.com/guildsync/backend/internal/state"
	"github.com/guildsync/backend/internal/ws"
)

// actionLogRepo is the full action log surface the server wires together:
// the store appends and windows, the API lists.
type actionLogRepo interface {
	Append(e *models.ActionLogEntry) error
	ListSince(t time.Time) ([]models.ActionLogEntry, error)
	List(limit int) ([]models.ActionLogEntry, error)
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration; a missing gateway token is the one fatal
	// startup condition.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	// Persistence: Postgres when configured, otherwise in-memory.
	var (
		memberRepo state.MemberRepository
		logRepo    actionLogRepo
		statsRepo  state.StatsRepository
		termRepo   handlers.BlockedTermStore
	)
	if cfg.HasDatabase() {
		db, err := database.NewPostgresDB(cfg.GetDSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		log.Info().Msg("running database migrations")
		if err := database.RunMigrations(db.DB); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}

		memberRepo = repository.NewMemberRepository(db)
		logRepo = repository.NewActionLogRepository(db)
		statsRepo = repository.NewStatsRepository(db)
		termRepo = repository.NewBlockedTermRepository(db)
	} else {
		log.Warn().Msg("no database configured, state will not survive restarts")
		mem := repository.NewMemory()
		memberRepo = mem.Members()
		logRepo = mem.ActionLog()
		statsRepo = mem.Stats()
		termRepo = mem.Terms()
	}

	// Redis is optional; without it presence and term caching degrade to
	// the underlying sources.
	redisClient, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("running without Redis, caching disabled")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	store := state.NewStore(memberRepo, logRepo, statsRepo)

	hub := ws.NewHub(log.Logger)
	go hub.Run()
	defer hub.Close()

	client := gateway.NewRESTClient(cfg.Gateway.APIURL, cfg.Gateway.Token, cfg.Gateway.CommunityID)

	cachedTerms := cache.NewCachedTerms(redisClient, termRepo)
	msgFilter := filter.NewFilter(cachedTerms, client, hub, log.Logger)

	var presence gateway.PresenceCache
	if redisClient != nil {
		presence = redisClient
	}
	adapter := gateway.NewAdapter(store, hub, client, msgFilter, presence, log.Logger)

	executor := moderation.NewExecutor(store, client, hub, cfg.Gateway.DefaultChannelID, log.Logger)

	// Connect to the gateway and start the sequential ingestion loop. A
	// failed connection is not fatal: the mirror keeps serving its last
	// known state over the API.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn, err := gateway.Dial(ctx, cfg.Gateway.URL, cfg.Gateway.Token, cfg.Gateway.CommunityID, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("gateway connection failed, serving mirrored state only")
	} else {
		defer conn.Close()
		go adapter.Run(ctx, conn.Events())
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	memberHandler := handlers.NewMemberHandler(store, logRepo)
	moderationHandler := handlers.NewModerationHandler(executor)
	termHandler := handlers.NewBlockedTermHandler(termRepo, cachedTerms)
	wsHandler := ws.NewHandler(hub, jwtService, cfg.CORS.AllowedOrigins, log.Logger)

	rateLimiter := middleware.NewRateLimiter(cfg.API.RateLimitPerSec)
	rateLimiter.Cleanup()

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Observer endpoint
	router.GET("/ws", wsHandler.HandleWebSocket)

	// Convenience token issuance outside production
	if cfg.Server.Env != "production" {
		router.GET("/auth/dev-token", func(c *gin.Context) {
			token, err := jwtService.GenerateToken("dev")
			if err != nil {
				c.JSON(500, gin.H{"error": "failed to issue token"})
				return
			}
			c.JSON(200, gin.H{"token": token})
		})
	}

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	api.Use(middleware.RateLimitMiddleware(rateLimiter))
	{
		// Mirror read side (the pull-based resync backstop)
		api.GET("/members", memberHandler.GetMembers)
		api.GET("/members/:id", memberHandler.GetMember)
		api.GET("/stats", memberHandler.GetStats)
		api.GET("/actions", memberHandler.GetActionLog)
		api.GET("/observers", wsHandler.GetObservers)

		// Provisioning and balance
		api.POST("/members", memberHandler.CreateMember)
		api.PUT("/members/:id/balance", memberHandler.SetBalance)
		api.POST("/members/:id/balance", memberHandler.AddBalance)

		// Moderation
		api.POST("/members/:id/evict", moderationHandler.EvictMember)
		api.POST("/members/:id/exile", moderationHandler.ExileMember)
		api.PUT("/members/:id/tags/:tag_id", moderationHandler.AddMemberTag)
		api.DELETE("/members/:id/tags/:tag_id", moderationHandler.RemoveMemberTag)
		api.GET("/roles", moderationHandler.GetRoles)
		api.POST("/roles", moderationHandler.CreateRole)

		// Message filter term set
		api.GET("/terms", termHandler.GetTerms)
		api.POST("/terms", termHandler.AddTerm)
		api.DELETE("/terms/:id", termHandler.RemoveTerm)
	}

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("starting guildsync server")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
