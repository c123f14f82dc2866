package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claim-pipeline-be/internal/bootstrap"
	"claim-pipeline-be/internal/config"
	"claim-pipeline-be/internal/model"
	"claim-pipeline-be/internal/server"
	"claim-pipeline-be/internal/tracer"
	"claim-pipeline-be/pkg/database"
	"claim-pipeline-be/pkg/pipeline"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB := openDatabase(cfg)

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	go container.Hub.Run(ctx)
	go container.Tracker.Run(ctx, pipeline.DefaultPersistRetryInterval)

	if err := container.ProcessingService.Consume(ctx); err != nil {
		log.Fatalf("Unable to start processing queue: %v", err)
	}
	if err := container.IntakeService.Start(); err != nil {
		log.Printf("Background intake disabled: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		if err := srv.Shutdown(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}

	// Let running pipelines reach a terminal state before the stores close.
	container.ProcessingService.Wait()
}

// openDatabase returns nil when no DSN is set or Postgres is unreachable;
// the container then falls back to in-memory stores.
func openDatabase(cfg *config.Config) *gorm.DB {
	if cfg.Database.Connection == "" {
		log.Println("DB_CONNECTION_STRING not set, running with in-memory stores")
		return nil
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.Database.Verbose)
	if err != nil {
		log.Printf("Unable to connect to GORM DB: %v (falling back to in-memory stores)", err)
		return nil
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, model.All()...); err != nil {
			log.Printf("AutoMigrate failed: %v", err)
		}
	}
	return db
}
