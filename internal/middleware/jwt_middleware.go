package middleware

import (
	"strings"

	"agrichain/internal/logger"
	"agrichain/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ViewerAddressKey is the fiber.Ctx local holding the authenticated address.
const ViewerAddressKey = "viewer_address"

// TokenValidator resolves a bearer token to the address it was issued to.
type TokenValidator interface {
	ValidateToken(tokenString string) (string, error)
}

var _ TokenValidator = (*services.TokenService)(nil)

// ViewerRequired is a Fiber middleware that requires a valid session token.
func ViewerRequired(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		address, err := tokens.ValidateToken(parts[1])
		if err != nil {
			logger.L().Debug("token validation failed", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		c.Locals(ViewerAddressKey, address)
		return c.Next()
	}
}

// ViewerAddress returns the address ViewerRequired stored on c.
func ViewerAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(ViewerAddressKey).(string)
	return addr
}
