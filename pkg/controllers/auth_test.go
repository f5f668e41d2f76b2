package controllers

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
	"github.com/voxlive/voxlive-server/pkg/helpers"
	"github.com/voxlive/voxlive-server/pkg/models"
)

func newTestAuthApp(t *testing.T) (*fiber.App, *config.AppConfig, *models.AuthModel) {
	t.Helper()

	validity := 10 * time.Minute
	appConf := &config.AppConfig{
		Client: config.ClientInfo{
			ApiKey:        "testKey",
			Secret:        "testSecret",
			TokenValidity: &validity,
		},
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	authModel := models.NewAuthModel(appConf, nil, logger)
	ac := NewAuthController(appConf, authModel)

	app := fiber.New()
	auth := app.Group("/auth", ac.HandleAuthHeaderCheck)
	auth.Post("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": true, "msg": "pong"})
	})
	api := app.Group("/api", ac.HandleVerifyHeaderToken)
	api.Post("/verifyToken", ac.HandleVerifyToken)

	return app, appConf, authModel
}

func TestHandleAuthHeaderCheck(t *testing.T) {
	app, appConf, _ := newTestAuthApp(t)
	body := []byte(`{"session_id":"sess01"}`)

	t.Run("valid signature passes", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/ping", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("API-KEY", appConf.Client.ApiKey)
		req.Header.Set("HASH-SIGNATURE", helpers.CalculateSignature(appConf.Client.Secret, body))

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusOK {
			t.Errorf("expected status %d, got %d", fiber.StatusOK, res.StatusCode)
		}
	})

	t.Run("wrong api key rejected", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/ping", bytes.NewReader(body))
		req.Header.Set("API-KEY", "someoneElse")
		req.Header.Set("HASH-SIGNATURE", helpers.CalculateSignature(appConf.Client.Secret, body))

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", fiber.StatusUnauthorized, res.StatusCode)
		}
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/ping", bytes.NewReader(body))
		req.Header.Set("API-KEY", appConf.Client.ApiKey)

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", fiber.StatusUnauthorized, res.StatusCode)
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/auth/ping", bytes.NewReader(body))
		req.Header.Set("API-KEY", appConf.Client.ApiKey)
		req.Header.Set("HASH-SIGNATURE", helpers.CalculateSignature(appConf.Client.Secret, []byte(`{"session_id":"other"}`)))

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", fiber.StatusUnauthorized, res.StatusCode)
		}
	})
}

func TestHandleVerifyHeaderToken(t *testing.T) {
	app, _, authModel := newTestAuthApp(t)

	token, err := authModel.GenerateSessionToken(&models.SessionClaims{
		SessionId: "sess01",
		UserId:    "user01",
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid token passes", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/verifyToken", nil)
		req.Header.Set("Authorization", token)

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusOK {
			t.Fatalf("expected status %d, got %d", fiber.StatusOK, res.StatusCode)
		}

		data, err := io.ReadAll(res.Body)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "sess01") {
			t.Errorf("expected response to echo the session id, got: %s", data)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/verifyToken", nil)

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", fiber.StatusUnauthorized, res.StatusCode)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/api/verifyToken", nil)
		req.Header.Set("Authorization", "not-a-token")

		res, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if res.StatusCode != fiber.StatusUnauthorized {
			t.Errorf("expected status %d, got %d", fiber.StatusUnauthorized, res.StatusCode)
		}
	})
}
