package handler

import (
	"context"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codelab-portal/internal/config"
	"github.com/noah-isme/codelab-portal/internal/utils"
)

const healthProbeTimeout = 2 * time.Second

// HealthProbe checks one dependency the portal owns (its redis or its database).
// The learning backend is not probed; its host is only reported.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Backend     string            `json:"backend"`
	Components  map[string]string `json:"components,omitempty"`
}

// HealthCheck reports portal health. Any failing probe turns the answer into a 503.
func HealthCheck(cfg config.Config, probes ...HealthProbe) fiber.Handler {
	backendHost := ""
	if parsed, err := url.Parse(cfg.BackendURL); err == nil {
		backendHost = parsed.Host
	}

	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Backend:     backendHost,
		}

		if len(probes) > 0 {
			ctx, cancel := context.WithTimeout(c.UserContext(), healthProbeTimeout)
			defer cancel()

			payload.Components = make(map[string]string, len(probes))
			for _, probe := range probes {
				if err := probe.Check(ctx); err != nil {
					payload.Components[probe.Name] = "down"
					payload.Status = "degraded"
					continue
				}
				payload.Components[probe.Name] = "up"
			}
		}

		if payload.Status != "ok" {
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
