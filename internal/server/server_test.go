package server

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfigKeepsRequestValues(t *testing.T) {
	cfg := appConfig()
	assert.True(t, cfg.Immutable)
	assert.Zero(t, cfg.WriteTimeout)

	app := fiber.New(cfg)
	var kept []string
	app.Get("/api/claims/:id", func(c *fiber.Ctx) error {
		kept = append(kept, c.Params("id"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	ids := []string{"CLM-001", "CLM-XYZ", "CLM-777"}
	for _, id := range ids {
		resp, err := app.Test(httptest.NewRequest("GET", fmt.Sprintf("/api/claims/%s", id), nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	}
	assert.Equal(t, ids, kept)
}
