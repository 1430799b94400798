package handler

import (
	"fmt"

	"kismarket/kis"

	"github.com/gofiber/fiber/v2"
)

type WebSocketHandler struct {
	a ApprovalIssuer
}

func NewWebSocketHandler(a ApprovalIssuer) *WebSocketHandler {
	return &WebSocketHandler{a: a}
}

func (h *WebSocketHandler) InitRoute(app *fiber.App) {

	router := app.Group("/api/v1/websocket")
	router.Get("/approval-key", h.ApprovalKey)
}

func (h *WebSocketHandler) ApprovalKey(c *fiber.Ctx) error {

	key, err := h.a.Fetch(c.Context())
	if err != nil {
		return fmt.Errorf("approval key 발급 오류 발생. %w", err)
	}

	return c.Status(fiber.StatusOK).JSON(kis.OK("웹소켓 접속키 발급 성공", key))
}
