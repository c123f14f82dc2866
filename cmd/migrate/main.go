package main

import (
	"log"
	"os"

	"claim-pipeline-be/internal/model"
	"claim-pipeline-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM migration...")

	// 3. AutoMigrate all models
	if err := database.Migrate(db, model.All()...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Post-Migration: Views
	postMigrationSQL := []string{
		// View: latest decision per claim
		`CREATE OR REPLACE VIEW claim_latest_decisions AS
		 SELECT DISTINCT ON (al.claim_id) al.claim_id, al.session_id, al.status,
		        al.decision->>'decision' AS decision, al.decision->>'approved_amount' AS approved_amount, al.created_at
		 FROM agent_logs al
		 ORDER BY al.claim_id, al.created_at DESC;`,
	}

	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
