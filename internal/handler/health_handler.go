package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthProbe reports whether one backing dependency answers.
type HealthProbe func() error

// HealthCheck returns a handler that reports application health. Any failing
// probe marks the service degraded and answers 503.
func HealthCheck(cfg config.Config, probes map[string]HealthProbe) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		status := fiber.StatusOK
		if len(probes) > 0 {
			payload.Components = make(map[string]string, len(probes))
			for name, probe := range probes {
				if err := probe(); err != nil {
					payload.Components[name] = "down"
					payload.Status = "degraded"
					status = fiber.StatusServiceUnavailable
					continue
				}
				payload.Components[name] = "up"
			}
		}

		return utils.SendSuccessWithStatus(c, status, "service health", payload)
	}
}
