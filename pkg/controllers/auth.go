package controllers

import (
	"crypto/subtle"
	"errors"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/helpers"
	"github.com/voxlive/voxlive-server/pkg/models"
)

// AuthController holds dependencies for auth-related handlers.
type AuthController struct {
	AppConfig *config.AppConfig
	AuthModel *models.AuthModel
}

// NewAuthController creates a new AuthController.
func NewAuthController(config *config.AppConfig, authModel *models.AuthModel) *AuthController {
	return &AuthController{
		AppConfig: config,
		AuthModel: authModel,
	}
}

// HandleAuthHeaderCheck is a middleware to check API-KEY & HASH-SIGNATURE.
// Server-to-server calls sign the raw request body with the shared secret.
func (ac *AuthController) HandleAuthHeaderCheck(c *fiber.Ctx) error {
	apiKey := c.Get("API-KEY", "")
	signature := c.Get("HASH-SIGNATURE", "")
	body := c.Body()

	if apiKey != ac.AppConfig.Client.ApiKey {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": false,
			"msg":    "invalid API key",
		})
	}
	if signature == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": false,
			"msg":    "hash signature value required",
		})
	}

	expectedSignature := helpers.CalculateSignature(ac.AppConfig.Client.Secret, body)
	if subtle.ConstantTimeCompare([]byte(expectedSignature), []byte(signature)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": false,
			"msg":    config.VerificationFailed,
		})
	}

	return c.Next()
}

// HandleVerifyHeaderToken is a middleware to verify the Authorization
// header token issued during session creation.
func (ac *AuthController) HandleVerifyHeaderToken(c *fiber.Ctx) error {
	authToken := c.Get("Authorization")

	if authToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": false,
			"msg":    "authorization header is missing",
		})
	}

	claims, err := ac.AuthModel.VerifyAccessToken(authToken, 0)
	if err != nil {
		errMsg := config.InvalidToken
		if errors.Is(err, jwt.ErrExpired) {
			errMsg = "token got expired"
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": false,
			"msg":    errMsg,
		})
	}

	c.Locals("isAdmin", claims.IsAdmin)
	c.Locals("sessionId", claims.SessionId)
	c.Locals("requestedUserId", claims.UserId)

	return c.Next()
}

// HandleVerifyToken lets a client confirm its token is still usable.
func (ac *AuthController) HandleVerifyToken(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     true,
		"msg":        "token is valid",
		"session_id": c.Locals("sessionId"),
		"user_id":    c.Locals("requestedUserId"),
	})
}

// HandleRenewToken swaps a valid or freshly expired token for a new one.
func (ac *AuthController) HandleRenewToken(c *fiber.Ctx) error {
	req := new(struct {
		Token string `json:"token"`
	})
	if err := c.BodyParser(req); err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}
	if req.Token == "" {
		req.Token = c.Get("Authorization")
	}
	if req.Token == "" {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    "token required",
		})
	}

	token, err := ac.AuthModel.RenewSessionToken(c.UserContext(), req.Token)
	if err != nil {
		return c.JSON(fiber.Map{
			"status": false,
			"msg":    err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status": true,
		"msg":    "success",
		"token":  token,
	})
}
