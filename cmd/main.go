package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/velmark/cybercity-backend/internal/clients/llm"
	"github.com/velmark/cybercity-backend/internal/data/db"
	"github.com/velmark/cybercity-backend/internal/data/repos"
	httpS "github.com/velmark/cybercity-backend/internal/http"
	httpH "github.com/velmark/cybercity-backend/internal/http/handlers"
	httpMW "github.com/velmark/cybercity-backend/internal/http/middleware"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
	"github.com/velmark/cybercity-backend/internal/realtime/bus"
	"github.com/velmark/cybercity-backend/internal/services"
	"github.com/velmark/cybercity-backend/internal/simulation"
	"github.com/velmark/cybercity-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	logMode := os.Getenv("APP_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecret := utils.GetEnv("JWT_SECRET", "change-me", log)
	tokenExpireMinutes := utils.GetEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24, log)
	openaiKey := utils.GetEnv("OPENAI_API_KEY", "", log)
	openaiModel := utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log)
	openaiBaseURL := utils.GetEnv("OPENAI_BASE_URL", "", log)
	redisAddr := utils.GetEnv("REDIS_ADDR", "", log)
	redisChannel := utils.GetEnv("REDIS_CHANNEL", "realtime", log)
	port := utils.GetEnv("PORT", "8000", log)
	tickSeconds := utils.GetEnvAsFloat("SIMULATION_TICK_SECONDS", 1.0, log)
	defaultSpeed := utils.GetEnvAsFloat("SIMULATION_DEFAULT_SPEED", 1.0, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", "error", err)
	}
	gdb := postgresService.DB()
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Repos
	userRepo := repos.NewUserRepo(gdb, log)
	agentRepo := repos.NewAgentRepo(gdb, log)
	eventRepo := repos.NewEventRepo(gdb, log)
	relationshipRepo := repos.NewRelationshipRepo(gdb, log)
	interactionRepo := repos.NewInteractionRepo(gdb, log)
	memoryRepo := repos.NewMemoryRepo(gdb, log)
	planRepo := repos.NewPlanRepo(gdb, log)
	groupChatRepo := repos.NewGroupChatRepo(gdb, log)

	// LLM + memory store
	llmClient := llm.NewClient(openaiKey, openaiModel, openaiBaseURL, log)
	store := memory.NewVectorStore(gdb, llmClient, log)

	// Realtime
	hub := realtime.NewHub(log)
	var broadcaster realtime.Broadcaster = hub
	var redisBus bus.Bus
	if redisAddr != "" {
		connected, err := bus.NewRedisBus(redisAddr, redisChannel, log)
		if err != nil {
			log.Warn("Redis unavailable, broadcasting locally only", "error", err)
		} else if err := connected.StartForwarder(context.Background(), hub.Broadcast); err != nil {
			// Without the forwarder loopback published messages would never
			// reach this node's own clients, so stay on the plain hub.
			log.Warn("Redis forwarder failed to start, broadcasting locally only", "error", err)
			_ = connected.Close()
		} else {
			redisBus = connected
			broadcaster = bus.NewPublisher(redisBus, hub, log)
		}
	}

	// Services
	authService := services.NewAuthService(gdb, userRepo, groupChatRepo, jwtSecret, time.Duration(tokenExpireMinutes)*time.Minute, log)
	agentService := services.NewAgentService(gdb, agentRepo, eventRepo, memoryRepo, interactionRepo, planRepo, relationshipRepo, groupChatRepo, store, broadcaster, log)
	groupChatService := services.NewGroupChatService(gdb, groupChatRepo, agentRepo, eventRepo, memoryRepo, store, broadcaster, log)
	eventService := services.NewEventService(gdb, eventRepo, agentRepo, broadcaster, log)
	relationService := services.NewRelationService(gdb, agentRepo, relationshipRepo, log)

	// Simulation engine
	engine := simulation.NewEngine(simulation.Config{
		DB:            gdb,
		Agents:        agentRepo,
		Events:        eventRepo,
		Relationships: relationshipRepo,
		Interactions:  interactionRepo,
		Memories:      memoryRepo,
		Plans:         planRepo,
		GroupChats:    groupChatRepo,
		MemoryStore:   store,
		Generator:     llmClient,
		Broadcaster:   broadcaster,
		Logger:        log,
		TickSeconds:   tickSeconds,
		DefaultSpeed:  defaultSpeed,
	})
	engine.Start()

	// HTTP
	authMiddleware := httpMW.NewAuthMiddleware(log, authService)
	server := httpS.NewServer(httpS.RouterConfig{
		AuthHandler:       httpH.NewAuthHandler(authService),
		AuthMiddleware:    authMiddleware,
		UserHandler:       httpH.NewUserHandler(userRepo),
		AgentHandler:      httpH.NewAgentHandler(agentService),
		GroupChatHandler:  httpH.NewGroupChatHandler(groupChatService),
		EventHandler:      httpH.NewEventHandler(eventService),
		RelationHandler:   httpH.NewRelationHandler(relationService),
		SimulationHandler: httpH.NewSimulationHandler(engine),
		RealtimeHandler:   httpH.NewRealtimeHandler(hub),
		HealthHandler:     httpH.NewHealthHandler(),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		engine.Stop()
		if redisBus != nil {
			_ = redisBus.Close()
		}
		log.Sync()
		os.Exit(0)
	}()

	log.Info("Starting server", "port", port)
	if err := server.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}
