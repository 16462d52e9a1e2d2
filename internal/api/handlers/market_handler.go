package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/newswise/backend/internal/storage/sqlite"
	"github.com/newswise/backend/pkg/logger"
)

type MarketHandler struct {
	store *sqlite.Client
}

func NewMarketHandler(store *sqlite.Client) *MarketHandler {
	return &MarketHandler{store: store}
}

func (h *MarketHandler) GetStock(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	data, err := h.store.StockInfo(symbol)
	if err != nil {
		return notFoundOrError(c, err, "Stock not found")
	}

	return c.JSON(fiber.Map{"type": "stock", "data": data})
}

func (h *MarketHandler) GetFund(c *fiber.Ctx) error {
	name := c.Params("name")

	data, err := h.store.FundInfo(name)
	if err != nil {
		return notFoundOrError(c, err, "Fund not found")
	}

	return c.JSON(fiber.Map{"type": "fund", "data": data})
}

func (h *MarketHandler) GetFundHoldings(c *fiber.Ctx) error {
	name := c.Params("name")

	holdings, err := h.store.Holdings(name)
	if err != nil {
		logger.Error("Holdings lookup failed", zap.String("fund", name), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load holdings",
		})
	}

	return c.JSON(fiber.Map{"fund": name, "holdings": holdings, "count": len(holdings)})
}

func (h *MarketHandler) GetETF(c *fiber.Ctx) error {
	symbol := c.Params("symbol")

	data, err := h.store.ETFInfo(symbol)
	if err != nil {
		return notFoundOrError(c, err, "ETF not found")
	}

	return c.JSON(fiber.Map{"type": "etf", "data": data})
}

func notFoundOrError(c *fiber.Ctx, err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
	}
	logger.Error("Instrument lookup failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Lookup failed",
	})
}
