package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/ingestion"
	"github.com/newswise/backend/internal/metrics"
	"github.com/newswise/backend/internal/storage/models"
	"github.com/newswise/backend/internal/storage/sqlite"
	"github.com/newswise/backend/pkg/logger"
)

// minEntityNews is the coverage floor below which an entity lookup
// pulls fresh articles from the external sources before answering.
const minEntityNews = 5

// CompanySearcher pulls articles about one company from external
// sources on demand.
type CompanySearcher interface {
	SearchCompanyNews(ctx context.Context, company string) ([]models.NewsItem, error)
}

type NewsHandler struct {
	store     *sqlite.Client
	processor *ingestion.Processor
	external  CompanySearcher
}

func NewNewsHandler(store *sqlite.Client, processor *ingestion.Processor, external CompanySearcher) *NewsHandler {
	return &NewsHandler{store: store, processor: processor, external: external}
}

func (h *NewsHandler) GetRecent(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	items, err := h.store.RecentNews(limit)
	if err != nil {
		logger.Error("Failed to load recent news", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load news",
		})
	}

	return c.JSON(fiber.Map{"news": items, "count": len(items)})
}

func (h *NewsHandler) GetByEntity(c *fiber.Ctx) error {
	entity := c.Params("name")
	if entity == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Entity name is required",
		})
	}

	days := c.QueryInt("days", 30)
	items, err := h.store.NewsForEntity(entity, days)
	if err != nil {
		logger.Error("Failed to load entity news", zap.String("entity", entity), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load news",
		})
	}

	if len(items) < minEntityNews && h.external != nil {
		items = h.supplementEntityNews(c.Context(), entity, days, items)
	}

	return c.JSON(fiber.Map{"entity": entity, "news": items, "count": len(items)})
}

// supplementEntityNews scrapes the external sources, stores whatever
// is new and re-reads the window. Any failure keeps the stored items.
func (h *NewsHandler) supplementEntityNews(ctx context.Context, entity string, days int, items []models.NewsItem) []models.NewsItem {
	metrics.ExternalSearchTotal.Inc()

	fresh, err := h.external.SearchCompanyNews(ctx, entity)
	if err != nil || len(fresh) == 0 {
		if err != nil {
			logger.Warn("Supplemental news search failed", zap.String("entity", entity), zap.Error(err))
		}
		return items
	}

	if h.processor != nil {
		fresh = h.processor.Process(ctx, fresh)
	}
	if _, err := h.store.StoreNews(fresh); err != nil {
		logger.Warn("Failed to store supplemental news", zap.Error(err))
		return items
	}

	again, err := h.store.NewsForEntity(entity, days)
	if err != nil {
		return items
	}
	return again
}

func (h *NewsHandler) Search(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	items, err := h.store.SearchNews(req.Query, req.Limit)
	if err != nil {
		logger.Error("News search failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Search failed",
		})
	}

	return c.JSON(fiber.Map{"news": items, "count": len(items)})
}

// Refresh runs one ingestion pass synchronously and reports counts.
func (h *NewsHandler) Refresh(c *fiber.Ctx) error {
	if h.processor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "News ingestion is disabled",
		})
	}

	result, err := h.processor.RefreshNews(c.Context())
	if err != nil {
		logger.Error("News refresh failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Refresh failed",
		})
	}

	metrics.NewsStored.Add(float64(result.Stored))

	return c.JSON(fiber.Map{
		"fetched": result.Fetched,
		"stored":  result.Stored,
		"skipped": result.Skipped,
	})
}
