// Package token mints short-lived Google access tokens with the OAuth2
// JWT-bearer grant. Tokens are never cached: every Mint signs a new assertion
// and performs a new exchange.
package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/andresuchdata/roadreport-upload/internal/domain"
)

const (
	JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// DefaultScope is asserted when the credential carries no scope.
	DefaultScope = "https://www.googleapis.com/auth/cloud-platform"

	// AssertionLifetime is the fixed gap between iat and exp.
	AssertionLifetime = 3600 * time.Second

	maxTokenResponseBody = int64(1 << 20) // 1 MiB
	tokenErrorMessage    = "Failed to get access token"
)

type Minter struct {
	client *http.Client
	now    func() time.Time
}

type Option func(*Minter)

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Minter) {
		if c != nil {
			m.client = c
		}
	}
}

// WithClock replaces time.Now for iat/exp computation.
func WithClock(now func() time.Time) Option {
	return func(m *Minter) {
		if now != nil {
			m.now = now
		}
	}
}

func NewMinter(opts ...Option) *Minter {
	m := &Minter{
		client: http.DefaultClient,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Assertion builds and signs the JWT-bearer assertion for cred. It performs
// no I/O.
func (m *Minter) Assertion(cred domain.ServiceAccountCredential) (*domain.SignedAssertion, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cred.PrivateKey)
	if err != nil {
		return nil, domain.NewError(domain.KindSigningFailure, "Failed to load service account private key", err)
	}

	scope := cred.Scope
	if scope == "" {
		scope = DefaultScope
	}

	iat := m.now().Unix()
	claims := domain.AssertionClaims{
		Iss:   cred.Email,
		Scope: scope,
		Aud:   cred.TokenURL,
		Iat:   iat,
		Exp:   iat + int64(AssertionLifetime/time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   claims.Iss,
		"scope": claims.Scope,
		"aud":   claims.Aud,
		"iat":   claims.Iat,
		"exp":   claims.Exp,
	})

	signingInput, err := token.SigningString()
	if err != nil {
		return nil, domain.NewError(domain.KindSigningFailure, "Failed to encode assertion", err)
	}
	signature, err := jwt.SigningMethodRS256.Sign(signingInput, key)
	if err != nil {
		return nil, domain.NewError(domain.KindSigningFailure, "Failed to sign assertion", err)
	}

	return &domain.SignedAssertion{
		Header: domain.AssertionHeader{
			Alg: jwt.SigningMethodRS256.Alg(),
			Typ: "JWT",
		},
		Claims:    claims,
		Signature: signature,
		Compact:   signingInput + "." + base64.RawURLEncoding.EncodeToString(signature),
	}, nil
}

// Mint signs a fresh assertion and exchanges it at cred.TokenURL.
func (m *Minter) Mint(ctx context.Context, cred *domain.ServiceAccountCredential) (*domain.AccessToken, error) {
	assertion, err := m.Assertion(*cred)
	if err != nil {
		return nil, err
	}

	form := url.Values{
		"grant_type": {JWTBearerGrantType},
		"assertion":  {assertion.Compact},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, domain.NewError(domain.KindTokenExchangeFailed, tokenErrorMessage, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.KindTokenExchangeFailed, tokenErrorMessage, err)
	}
	defer resp.Body.Close()
	resp.Body = io.NopCloser(io.LimitReader(resp.Body, maxTokenResponseBody))

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, exchangeError(err)
	}

	var tok oauth2.Token
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxTokenResponseBody)).Decode(&tok); err != nil {
		return nil, domain.NewError(domain.KindTokenExchangeFailed, tokenErrorMessage, err)
	}
	if tok.AccessToken == "" {
		return nil, domain.NewError(domain.KindTokenExchangeFailed, tokenErrorMessage+": response has no access_token", nil)
	}

	var expiry time.Time
	if tok.ExpiresIn > 0 {
		expiry = m.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	log.Debug().
		Str("iss", cred.Email).
		Time("expiry", expiry).
		Msg("access token obtained")

	return &domain.AccessToken{
		Value:     tok.AccessToken,
		TokenType: tok.Type(),
		Expiry:    expiry,
	}, nil
}

func exchangeError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		log.Error().
			Int("status", gerr.Code).
			Str("body", gerr.Body).
			Msg("token exchange rejected")
		return domain.NewHTTPError(domain.KindTokenExchangeFailed, tokenErrorMessage, gerr.Code, gerr.Body)
	}
	return domain.NewError(domain.KindTokenExchangeFailed, tokenErrorMessage, err)
}
