package bootstrap

import (
	"context"
	"errors"
	"log"
	"time"

	"claim-pipeline-be/internal/config"
	"claim-pipeline-be/internal/controller"
	"claim-pipeline-be/internal/entity"
	"claim-pipeline-be/internal/handler"
	"claim-pipeline-be/internal/pkg/logger"
	"claim-pipeline-be/internal/pkg/mailer"
	"claim-pipeline-be/internal/pkg/serverutils"
	"claim-pipeline-be/internal/realtime"
	"claim-pipeline-be/internal/repository/contract"
	"claim-pipeline-be/internal/repository/implementation"
	"claim-pipeline-be/internal/repository/memory"
	"claim-pipeline-be/internal/service"
	"claim-pipeline-be/pkg/evidence"
	"claim-pipeline-be/pkg/llm"
	"claim-pipeline-be/pkg/llm/factory"
	pktNats "claim-pipeline-be/pkg/nats"
	"claim-pipeline-be/pkg/pipeline"
	"claim-pipeline-be/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ClaimController   controller.IClaimController
	ProcessController controller.IProcessController
	SessionController controller.ISessionController
	SystemController  controller.ISystemController
	AuthMiddleware    fiber.Handler

	// Realtime
	StreamHandler *handler.StreamHandler
	Hub           *realtime.Hub

	// Background Services (Exposed for main.go to run)
	ProcessingService service.IProcessingService
	IntakeService     *service.IntakeService

	Orchestrator *pipeline.Orchestrator
	Tracker      *pipeline.SessionTracker
	Logger       logger.ILogger

	closers []func()
}

type repositories struct {
	claims   contract.ClaimRepository
	sessions contract.SessionRepository
	logs     contract.AgentLogRepository
}

// newRepositories uses Postgres when db is set and the in-memory stores otherwise.
func newRepositories(db *gorm.DB) repositories {
	if db == nil {
		return repositories{
			claims:   memory.NewClaimRepository(),
			sessions: memory.NewSessionRepository(),
			logs:     memory.NewAgentLogRepository(),
		}
	}
	return repositories{
		claims:   implementation.NewClaimRepository(db),
		sessions: implementation.NewSessionRepository(db),
		logs:     implementation.NewAgentLogRepository(db),
	}
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	repos := newRepositories(db)
	if db == nil {
		sysLogger.Warn("Bootstrap", "No database, using in-memory stores", nil)
	}

	// 2. Infrastructure
	rdb := newRedis(cfg, sysLogger)
	natsPub, natsSub := newNats(cfg, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}
	if natsPub != nil {
		c.closers = append(c.closers, natsPub.Close)
	}
	if natsSub != nil {
		c.closers = append(c.closers, natsSub.Close)
	}

	// 3. Realtime
	hubLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogPath)
	hub := realtime.NewHub(rdb, cfg.App.InstanceID, hubLogger)
	c.Hub = hub

	tracker := pipeline.NewSessionTracker(repos.sessions, hub, sysLogger)
	c.Tracker = tracker
	hub.OnIdle(func(sessionID string) {
		tracker.Release(sessionID)
	})

	// 4. Collaborators
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
		cfg.Ai.LLMTimeout,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	if llmProvider == nil {
		sysLogger.Warn("Bootstrap", "No LLM provider configured, evidence and synthesis will be unavailable", nil)
	} else {
		sysLogger.Info("Bootstrap", "LLM provider ready", map[string]interface{}{
			"provider": cfg.Ai.LLMProvider,
			"model":    cfg.Ai.LLMModel,
		})
	}

	images := newImageSource(cfg, sysLogger)
	collaborators := NewCollaborators(cfg.Ai, llmProvider, images)

	// 5. Pipeline
	deps := pipeline.Dependencies{
		Claims:      repos.claims,
		Logs:        repos.logs,
		Tracker:     tracker,
		Synthesizer: pipeline.NewSynthesizer(llmProvider),
		Stages:      pipeline.DefaultStages(collaborators),
		Broadcaster: hub,
		Logger:      sysLogger,
	}
	if natsPub != nil {
		deps.Events = natsPub
	}
	if cfg.SMTP.Host != "" && cfg.Notify.DecisionEmail != "" {
		deps.Notifier = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			cfg.Notify.DecisionEmail,
			sysLogger,
		)
	}
	orchestrator := pipeline.NewOrchestrator(deps)
	c.Orchestrator = orchestrator

	// 6. Job queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(cfg.App.QueueBufferSize)},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 7. Services
	processingService := service.NewProcessingService(orchestrator, pubSub, cfg.App.BaseURL, sysLogger)
	c.ProcessingService = processingService

	var intakeSub service.EventSubscriber
	if natsSub != nil {
		intakeSub = natsSub
	}
	c.IntakeService = service.NewIntakeService(intakeSub, processingService, sysLogger)

	claimService := service.NewClaimService(repos.claims, repos.logs, deps.Events, sysLogger)
	sessionService := service.NewSessionService(tracker)
	systemService := service.NewSystemService(
		tracker,
		healthChecks(db, rdb, natsPub, llmProvider),
		sysLogger,
		cfg.App.InstanceID,
		cfg.App.Environment,
	)

	// 8. Controllers
	c.ClaimController = controller.NewClaimController(claimService)
	c.ProcessController = controller.NewProcessController(processingService)
	c.SessionController = controller.NewSessionController(sessionService)
	c.SystemController = controller.NewSystemController(systemService)
	c.StreamHandler = handler.NewStreamHandler(hub, tracker, processingService, hubLogger)
	c.AuthMiddleware = serverutils.NewJwtMiddleware(cfg.Auth.JWTSecret)

	return c
}

// NewCollaborators builds one evidence source per stage. Stages named in
// cfg.DisabledStages get none and report collaborator_unavailable.
func NewCollaborators(cfg config.AIConfig, provider llm.LLMProvider, images evidence.ImageSource) pipeline.Collaborators {
	disabled := make(map[string]bool, len(cfg.DisabledStages))
	for _, name := range cfg.DisabledStages {
		disabled[name] = true
	}
	pick := func(stage string, c evidence.Collaborator) evidence.Collaborator {
		if disabled[stage] {
			return nil
		}
		return c
	}

	xray := evidence.NewXRayClassifier(evidence.XRayConfig{
		Endpoint:      cfg.XRayEndpoint,
		PredictionKey: cfg.XRayKey,
		Timeout:       cfg.XRayTimeout,
	}, images, func(claimID string) string {
		return storage.ClaimPrefix(claimID, entity.DocumentKindXRay)
	})

	return pipeline.Collaborators{
		XRay:       pick(pipeline.StageIdentity, xray),
		Medical:    pick(pipeline.StageMedical, evidence.NewLLMQuerier(provider, entity.EvidenceMedical)),
		Billing:    pick(pipeline.StageBilling, evidence.NewLLMQuerier(provider, entity.EvidenceBilling)),
		Policy:     pick(pipeline.StagePolicy, evidence.NewLLMQuerier(provider, entity.EvidencePolicyCoverage)),
		Exclusions: pick(pipeline.StageExclusions, evidence.NewLLMQuerier(provider, entity.EvidenceExclusions)),
	}
}

func newRedis(cfg *config.Config, log logger.ILogger) *redis.Client {
	if cfg.App.RedisURL == "" {
		log.Info("Bootstrap", "No Redis configured, session events stay on this instance", nil)
		return nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis, relay disabled", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func newNats(cfg *config.Config, log logger.ILogger) (*pktNats.Publisher, *pktNats.Subscriber) {
	if cfg.App.NatsURL == "" {
		log.Info("Bootstrap", "No NATS configured, domain events disabled", nil)
		return nil, nil
	}

	pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		pub = nil
	}
	sub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
		sub = nil
	}
	return pub, sub
}

func newImageSource(cfg *config.Config, log logger.ILogger) evidence.ImageSource {
	if cfg.Storage.Endpoint == "" {
		return nil
	}

	store, err := storage.NewImageStore(storage.MinioConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		URLExpiry: cfg.Storage.URLExpiry,
	})
	if err != nil {
		log.Warn("Bootstrap", "Failed to create image store", map[string]interface{}{"error": err.Error()})
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		log.Warn("Bootstrap", "Image bucket check failed", map[string]interface{}{
			"bucket": cfg.Storage.Bucket,
			"error":  err.Error(),
		})
	}
	return store
}

func healthChecks(db *gorm.DB, rdb *redis.Client, natsPub *pktNats.Publisher, provider llm.LLMProvider) []service.HealthCheck {
	checks := []service.HealthCheck{{
		Name: "database",
		// Without a database the memory store serves, which is degraded rather than down.
		Optional: db == nil,
		Check: func(ctx context.Context) error {
			if db == nil {
				return errors.New("using in-memory store")
			}
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}

	if rdb != nil {
		checks = append(checks, service.HealthCheck{
			Name:     "redis",
			Optional: true,
			Check: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})
	}
	if natsPub != nil {
		checks = append(checks, service.HealthCheck{
			Name:     "nats",
			Optional: true,
			Check: func(context.Context) error {
				return natsPub.Ping()
			},
		})
	}

	checks = append(checks, service.HealthCheck{
		Name:     "llm",
		Optional: true,
		Check: func(context.Context) error {
			if provider == nil {
				return errors.New("no provider configured")
			}
			return nil
		},
	})
	return checks
}

// Close releases the infrastructure clients in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
