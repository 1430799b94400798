package handler

import (
	"fmt"

	"kismarket/kis"

	"github.com/gofiber/fiber/v2"
)

type TokenHandler struct {
	t TokenService
}

func NewTokenHandler(t TokenService) *TokenHandler {
	return &TokenHandler{t: t}
}

func (h *TokenHandler) InitRoute(app *fiber.App) {

	router := app.Group("/api/v1/token")
	router.Post("/issue", h.Issue)
	router.Get("/status", h.Status)
	router.Delete("/", h.Revoke)
}

// Issue forces a fresh token issuance. The token itself never leaves the
// process; the caller gets the cache status.
func (h *TokenHandler) Issue(c *fiber.Ctx) error {

	if _, err := h.t.IssueNew(c.Context()); err != nil {
		return fmt.Errorf("IssueNew 오류 발생. %w", err)
	}

	status := h.t.Status()
	return c.Status(fiber.StatusOK).JSON(kis.OK("토큰 발급 성공", &status))
}

func (h *TokenHandler) Status(c *fiber.Ctx) error {

	status := h.t.Status()
	return c.Status(fiber.StatusOK).JSON(kis.OK("토큰 상태 조회 성공", &status))
}

func (h *TokenHandler) Revoke(c *fiber.Ctx) error {

	if err := h.t.Revoke(c.Context()); err != nil {
		return fmt.Errorf("Revoke 오류 발생. %w", err)
	}

	status := h.t.Status()
	return c.Status(fiber.StatusOK).JSON(kis.OK("토큰 폐기 완료", &status))
}
