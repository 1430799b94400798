package handler

import (
	"fmt"

	"kismarket/kis"

	"github.com/gofiber/fiber/v2"
)

type PriceHandler struct {
	q QuoteGetter
}

func NewPriceHandler(q QuoteGetter) *PriceHandler {
	return &PriceHandler{q: q}
}

func (h *PriceHandler) InitRoute(app *fiber.App) {

	router := app.Group("/api/v1/stocks")
	router.Get("/kospi/:code/price", h.KospiPrice)
	router.Get("/kosdaq/:code/price", h.KosdaqPrice)
	router.Get("/:code/price", h.Price)
}

func (h *PriceHandler) Price(c *fiber.Ctx) error {

	code := c.Params("code")
	market := c.Query("market", string(kis.MarketKospi))

	req, err := kis.NewQuoteRequest(code, kis.Market(market))
	if err != nil {
		return fmt.Errorf("파라미터 유효성 검사 시 오류 발생. %w", err)
	}

	resp, err := h.q.GetQuote(c.Context(), req)
	if err != nil {
		return fmt.Errorf("GetQuote 오류 발생. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(kis.OK("주식 현재가 조회 성공", resp))
}

func (h *PriceHandler) KospiPrice(c *fiber.Ctx) error {

	resp, err := h.q.GetKospi(c.Context(), c.Params("code"))
	if err != nil {
		return fmt.Errorf("GetKospi 오류 발생. %w", err)
	}
	return c.Status(fiber.StatusOK).JSON(kis.OK("코스피 현재가 조회 성공", resp))
}

func (h *PriceHandler) KosdaqPrice(c *fiber.Ctx) error {

	resp, err := h.q.GetKosdaq(c.Context(), c.Params("code"))
	if err != nil {
		return fmt.Errorf("GetKosdaq 오류 발생. %w", err)
	}
	return c.Status(fiber.StatusOK).JSON(kis.OK("코스닥 현재가 조회 성공", resp))
}
