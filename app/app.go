package app

import (
	"fmt"

	"kismarket/app/handler"
	"kismarket/app/middleware"
	"kismarket/kis"

	"github.com/gofiber/fiber/v2"
)

func Run(port int, client *kis.Client) error {

	app := fiber.New()

	middleware.SetupMiddleware(app)

	handler.NewHealthHandler().InitRoute(app)
	handler.NewPriceHandler(client.Quotes).InitRoute(app)
	handler.NewTokenHandler(client.Tokens).InitRoute(app)
	handler.NewWebSocketHandler(client.Approvals).InitRoute(app)

	return app.Listen(fmt.Sprintf(":%d", port))
}
