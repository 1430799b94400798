package middleware

import (
	"kismarket/kis"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
)

func SetupMiddleware(router fiber.Router) {

	router.Use(cors.New(cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "*",
	}))
	router.Use(errorHandle)
	router.Use(logRequest)
}

// errorHandle translates the kis error taxonomy to HTTP statuses:
// Auth/Protocol/Fatal → 4xx, RateLimit → 429, 나머지는 5xx.
func errorHandle(c *fiber.Ctx) error {

	err := c.Next()
	if err == nil {
		return nil
	}

	log.Error().Err(err).Str("endpoint", c.Path()).Msg("Request failed")

	kind := kis.KindOf(err)
	status := statusFor(kind)
	return c.Status(status).JSON(kis.Fail[any](err.Error(), kind.String()))
}

func statusFor(kind kis.Kind) int {
	switch kind {
	case kis.KindAuth:
		return fiber.StatusUnauthorized
	case kis.KindProtocol, kis.KindFatal:
		return fiber.StatusBadRequest
	case kis.KindRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func logRequest(c *fiber.Ctx) error {
	log.Info().Str("endpoint", c.Path()).Msg("Request endpoint")
	return c.Next()
}
