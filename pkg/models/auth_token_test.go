package models

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/sirupsen/logrus"
	"github.com/voxlive/voxlive-server/pkg/config"
)

func newTestAuthModel(validity time.Duration) *AuthModel {
	app := &config.AppConfig{
		Client: config.ClientInfo{
			ApiKey: "testKey",
			Secret: "testSecret",
		},
	}
	app.Client.TokenValidity = &validity

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewAuthModel(app, nil, logger)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := newTestAuthModel(time.Minute * 10)

	token, err := m.GenerateSessionToken(&SessionClaims{
		SessionId: "demo-session",
		UserId:    "user-001",
		IsAdmin:   true,
	})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.VerifyAccessToken(token, 0)
	if err != nil {
		t.Fatal(err)
	}

	if claims.SessionId != "demo-session" {
		t.Errorf("expected sessionId demo-session, got %s", claims.SessionId)
	}
	if claims.UserId != "user-001" {
		t.Errorf("expected userId user-001, got %s", claims.UserId)
	}
	if !claims.IsAdmin {
		t.Error("expected isAdmin to survive the round trip")
	}
}

func TestVerifyAccessTokenRejectsWrongSecret(t *testing.T) {
	m := newTestAuthModel(time.Minute * 10)

	token, err := m.GenerateSessionToken(&SessionClaims{
		SessionId: "demo-session",
		UserId:    "user-001",
	})
	if err != nil {
		t.Fatal(err)
	}

	m.app.Client.Secret = "anotherSecret"
	if _, err := m.VerifyAccessToken(token, 0); err == nil {
		t.Error("expected verification to fail with a different secret")
	}
}

func TestVerifyAccessTokenGracefulPeriod(t *testing.T) {
	// negative validity mints a token that is already expired
	m := newTestAuthModel(-time.Minute * 2)

	token, err := m.GenerateSessionToken(&SessionClaims{
		SessionId: "demo-session",
		UserId:    "user-001",
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.VerifyAccessToken(token, 0)
	if !errors.Is(err, jwt.ErrExpired) {
		t.Errorf("expected jwt.ErrExpired, got %v", err)
	}

	// the graceful window should accept it again
	if _, err = m.VerifyAccessToken(token, time.Minute*5); err != nil {
		t.Errorf("expected token to pass within graceful period, got %v", err)
	}
}
