package models

import (
	"context"
	"errors"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/voxlive/voxlive-server/pkg/config"
	redisservice "github.com/voxlive/voxlive-server/pkg/services/redis"
)

// SessionClaims is the private claim set carried by every session token.
// Clients present the token on the ingest socket and the /api group.
type SessionClaims struct {
	SessionId string `json:"sessionId"`
	UserId    string `json:"userId"`
	IsAdmin   bool   `json:"isAdmin"`
}

// GenerateSessionToken signs a short-lived HS256 token for the given claims.
// The validity comes from client.token_validity (default 10 minutes).
func (m *AuthModel) GenerateSessionToken(c *SessionClaims) (string, error) {
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(m.app.Client.Secret)}, (&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return "", err
	}

	cl := jwt.Claims{
		Issuer:    m.app.Client.ApiKey,
		NotBefore: jwt.NewNumericDate(time.Now().UTC()),
		Expiry:    jwt.NewNumericDate(time.Now().UTC().Add(*m.app.Client.TokenValidity)),
		Subject:   c.UserId,
	}

	return jwt.Signed(sig).Claims(cl).Claims(c).Serialize()
}

// VerifyAccessToken validates the signature, issuer and expiry of a token
// and returns its claims. A non-zero gracefulPeriod accepts tokens that
// expired up to that long ago, which RenewSessionToken relies on.
func (m *AuthModel) VerifyAccessToken(token string, gracefulPeriod time.Duration) (*SessionClaims, error) {
	tok, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, err
	}

	out := jwt.Claims{}
	claims := new(SessionClaims)
	if err = tok.Claims([]byte(m.app.Client.Secret), &out, claims); err != nil {
		return nil, err
	}

	err = out.Validate(jwt.Expected{
		Issuer: m.app.Client.ApiKey,
		Time:   time.Now().UTC(),
	})
	if errors.Is(err, jwt.ErrExpired) && gracefulPeriod > 0 && out.Expiry != nil {
		// accept tokens that expired inside the graceful window
		if out.Expiry.Time().Add(gracefulPeriod).After(time.Now().UTC()) {
			err = nil
		}
	}
	if err != nil {
		return nil, err
	}

	if claims.SessionId == "" {
		return nil, errors.New(config.NoSessionIdInToken)
	}
	claims.UserId = out.Subject

	return claims, nil
}

// RenewSessionToken swaps a valid or freshly expired token for a new one,
// as long as the session has not ended in the meantime.
func (m *AuthModel) RenewSessionToken(ctx context.Context, token string) (string, error) {
	claims, err := m.VerifyAccessToken(token, time.Minute*1)
	if err != nil {
		return "", err
	}

	status, err := m.rs.GetSessionStatus(ctx, claims.SessionId)
	if err != nil {
		return "", err
	}
	if status == "" || status == redisservice.SessionStatusEnded {
		return "", errors.New(config.SessionAlreadyEnded)
	}

	return m.GenerateSessionToken(claims)
}
