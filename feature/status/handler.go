package status

import (
	"strconv"

	"ledger-sync/core/domain"
	"ledger-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 500
)

// Handler handles HTTP requests for the status API.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the status routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/health", h.HandleHealth)
	app.Get("/stats", h.HandleStats)
	app.Get("/runs", h.HandleRuns)
	app.Get("/errors", h.HandleErrors)
	app.Get("/mappings/:sourceId", h.HandleGetMapping)
	app.Delete("/mappings/:sourceId", h.HandleDeleteMapping)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

type mappingResponse struct {
	SourceID        string `json:"source_id"`
	DestinationID   string `json:"destination_id"`
	EntityType      string `json:"entity_type"`
	Fingerprint     string `json:"fingerprint,omitempty"`
	LastSyncedAt    string `json:"last_synced_at,omitempty"`
	SourceUpdatedAt string `json:"source_updated_at,omitempty"`
}

type runResponse struct {
	RunID             string   `json:"run_id"`
	Status            string   `json:"status"`
	StartedAt         string   `json:"started_at"`
	CompletedAt       string   `json:"completed_at,omitempty"`
	EntitiesProcessed int      `json:"entities_processed"`
	DryRun            bool     `json:"dry_run"`
	Errors            []string `json:"errors"`
}

type errorResponse struct {
	EntityType   string `json:"entity_type"`
	SourceID     string `json:"source_id"`
	ErrorMessage string `json:"error_message"`
	OccurredAt   string `json:"occurred_at"`
	RetryCount   int    `json:"retry_count"`
}

func (h *Handler) fail(c *fiber.Ctx, status int, msg string, err error) error {
	logger.WithRayID(h.service.logger, c).Error(msg, zap.Error(err))
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// HandleHealth reports whether the store is reachable.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	if err := h.service.Health(c.Context()); err != nil {
		logger.WithRayID(h.service.logger, c).Warn("Health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleStats returns mapping counts, pending errors and the last successful run.
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, "Failed to compute stats", err)
	}
	return c.JSON(stats)
}

// HandleRuns returns recent runs, newest first.
func (h *Handler) HandleRuns(c *fiber.Ctx) error {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.service.Runs(c.Context(), limit)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, "Failed to load run history", err)
	}
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		rr := runResponse{
			RunID:             r.RunID,
			Status:            string(r.Status),
			StartedAt:         r.StartedAt.Format(timeLayout),
			EntitiesProcessed: r.EntitiesProcessed,
			DryRun:            r.DryRun,
			Errors:            r.Errors,
		}
		if rr.Errors == nil {
			rr.Errors = []string{}
		}
		if r.CompletedAt != nil {
			rr.CompletedAt = r.CompletedAt.Format(timeLayout)
		}
		out = append(out, rr)
	}
	return c.JSON(out)
}

// HandleErrors returns the pending retryable errors.
func (h *Handler) HandleErrors(c *fiber.Ctx) error {
	var et domain.EntityType
	if raw := c.Query("type"); raw != "" {
		parsed, err := domain.ParseEntityType(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		et = parsed
	}

	errs, err := h.service.Errors(c.Context(), et)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, "Failed to load errors", err)
	}
	out := make([]errorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, errorResponse{
			EntityType:   string(e.EntityType),
			SourceID:     e.SourceID,
			ErrorMessage: e.ErrorMessage,
			OccurredAt:   e.OccurredAt.Format(timeLayout),
			RetryCount:   e.RetryCount,
		})
	}
	return c.JSON(out)
}

// HandleGetMapping returns the mapping of one source entity.
func (h *Handler) HandleGetMapping(c *fiber.Ctx) error {
	id := c.Params("sourceId")
	m, err := h.service.Mapping(c.Context(), id)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, "Failed to load mapping", err)
	}
	if m == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mapping not found"})
	}

	resp := mappingResponse{
		SourceID:      m.SourceID,
		DestinationID: m.DestinationID,
		EntityType:    string(m.EntityType),
		Fingerprint:   m.Fingerprint,
	}
	if m.LastSyncedAt != nil {
		resp.LastSyncedAt = m.LastSyncedAt.Format(timeLayout)
	}
	if m.SourceUpdatedAt != nil {
		resp.SourceUpdatedAt = m.SourceUpdatedAt.Format(timeLayout)
	}
	return c.JSON(resp)
}

// HandleDeleteMapping removes the mapping of one source entity.
func (h *Handler) HandleDeleteMapping(c *fiber.Ctx) error {
	id := c.Params("sourceId")
	ok, err := h.service.DeleteMapping(c.Context(), id)
	if err != nil {
		return h.fail(c, fiber.StatusInternalServerError, "Failed to delete mapping", err)
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "mapping not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
