package implementation

import (
	"log"
	"os"
	"testing"

	"claim-pipeline-be/internal/model"
	"claim-pipeline-be/internal/repository/repotest"
	"claim-pipeline-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
)

func TestGormRepositories(t *testing.T) {
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, model.All()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())

	repotest.Run(t, repotest.Repositories{
		Claims:   NewClaimRepository(db),
		Sessions: NewSessionRepository(db),
		Logs:     NewAgentLogRepository(db),
	})
}
