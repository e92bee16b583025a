package identity

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comunidade-central/accessctl/internal/auth"
	"github.com/comunidade-central/accessctl/internal/config"
	"github.com/comunidade-central/accessctl/internal/web/session"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "https://idp.example.test"
	testClientID = "accessctl"
)

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStorage) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data[key], nil
}

func (m *memStorage) Set(key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = val

	return nil
}

func (m *memStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)

	return nil
}

func (m *memStorage) Reset() error { return nil }
func (m *memStorage) Close() error { return nil }

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	return s
}

// whoami answers with the identified user id.
func whoami(providers ...Provider) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(providers...))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(auth.UserID(c))
	})

	return app
}

func call(t *testing.T, app *fiber.App, header, value string, cookie *http.Cookie) string {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, "/", http.NoBody)
	if header != "" {
		req.Header.Set(header, value)
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	return string(body)
}

func TestJWTUserID(t *testing.T) {
	p := NewJWT(config.JWTAuth{Secret: testSecret})
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{
			name:  "string claim",
			token: signHS256(t, testSecret, jwt.MapClaims{"userId": "u-1", "exp": exp}),
			want:  "u-1",
		},
		{
			name:  "numeric claim",
			token: signHS256(t, testSecret, jwt.MapClaims{"userId": 42, "exp": exp}),
			want:  "42",
		},
		{
			name:    "wrong secret",
			token:   signHS256(t, "other", jwt.MapClaims{"userId": "u-1", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "expired",
			token:   signHS256(t, testSecret, jwt.MapClaims{"userId": "u-1", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "no expiry",
			token:   signHS256(t, testSecret, jwt.MapClaims{"userId": "u-1"}),
			wantErr: true,
		},
		{
			name:    "claim missing",
			token:   signHS256(t, testSecret, jwt.MapClaims{"sub": "u-1", "exp": exp}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.UserID(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCredential)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJWTCustomClaim(t *testing.T) {
	p := NewJWT(config.JWTAuth{Secret: testSecret, UserIDClaim: "sub"})

	got, err := p.UserID(signHS256(t, testSecret, jwt.MapClaims{"sub": "u-9", "exp": time.Now().Add(time.Hour).Unix()}))
	require.NoError(t, err)
	assert.Equal(t, "u-9", got)
}

func TestJWTRejectsOtherAlgorithms(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"userId": "u-1",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	_, err = NewJWT(config.JWTAuth{Secret: testSecret}).UserID(raw)
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestMiddlewareJWT(t *testing.T) {
	app := whoami(NewJWT(config.JWTAuth{Secret: testSecret}))
	token := signHS256(t, testSecret, jwt.MapClaims{"userId": "u-1", "exp": time.Now().Add(time.Hour).Unix()})

	assert.Equal(t, "u-1", call(t, app, fiber.HeaderAuthorization, "Bearer "+token, nil))
	assert.Equal(t, "u-1", call(t, app, fiber.HeaderAuthorization, "bearer "+token, nil))
	assert.Empty(t, call(t, app, fiber.HeaderAuthorization, "Bearer broken", nil))
	assert.Empty(t, call(t, app, fiber.HeaderAuthorization, "Basic dXNlcjpwdw==", nil))
	assert.Empty(t, call(t, app, "", "", nil))
}

func TestMiddlewareSession(t *testing.T) {
	session.Init(&memStorage{data: map[string][]byte{}})

	id, err := session.GenerateSessionID()
	require.NoError(t, err)

	require.NoError(t, (&session.Data{UserID: "u-7"}).Write(id, time.Hour))

	app := whoami(NewSession(""))

	assert.Equal(t, "u-7", call(t, app, "", "", &http.Cookie{Name: DefaultCookieName, Value: id}))
	assert.Empty(t, call(t, app, "", "", &http.Cookie{Name: DefaultCookieName, Value: "unknown"}))
	assert.Empty(t, call(t, app, "", "", nil))
}

func TestMiddlewareFirstProviderWins(t *testing.T) {
	session.Init(&memStorage{data: map[string][]byte{}})

	id, err := session.GenerateSessionID()
	require.NoError(t, err)
	require.NoError(t, (&session.Data{UserID: "from-session"}).Write(id, time.Hour))

	app := whoami(nil, NewSession(""), NewJWT(config.JWTAuth{Secret: testSecret}))

	req := httptest.NewRequest(fiber.MethodGet, "/", http.NoBody)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: id})
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+signHS256(t, testSecret, jwt.MapClaims{
		"userId": "from-jwt",
		"exp":    time.Now().Add(time.Hour).Unix(),
	}))

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "from-session", string(body))
}

func newTestOIDC(t *testing.T) (*OIDC, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})

	return NewOIDCFromVerifier(verifier), key
}

func signID(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()

	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	return raw
}

func TestMiddlewareOIDC(t *testing.T) {
	p, key := newTestOIDC(t)
	app := whoami(p)

	valid := signID(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "oidc-user",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})
	assert.Equal(t, "oidc-user", call(t, app, fiber.HeaderAuthorization, "Bearer "+valid, nil))

	otherAudience := signID(t, key, jwt.MapClaims{
		"iss": testIssuer,
		"aud": "someone-else",
		"sub": "oidc-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	assert.Empty(t, call(t, app, fiber.HeaderAuthorization, "Bearer "+otherAudience, nil))

	otherIssuer := signID(t, key, jwt.MapClaims{
		"iss": "https://evil.example.test",
		"aud": testClientID,
		"sub": "oidc-user",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	assert.Empty(t, call(t, app, fiber.HeaderAuthorization, "Bearer "+otherIssuer, nil))
}

func TestNewOIDCConfig(t *testing.T) {
	_, err := NewOIDC(context.Background(), config.OIDCAuth{ClientID: testClientID})
	require.ErrorIs(t, err, ErrOIDCProviderURL)

	_, err = NewOIDC(context.Background(), config.OIDCAuth{ProviderURL: testIssuer})
	require.ErrorIs(t, err, ErrOIDCClientID)
}

func TestBearerToken(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(BearerToken(c))
	})

	assert.Equal(t, "abc", call(t, app, fiber.HeaderAuthorization, "Bearer abc", nil))
	assert.Equal(t, "abc", call(t, app, fiber.HeaderAuthorization, "  BEARER   abc ", nil))
	assert.Empty(t, call(t, app, fiber.HeaderAuthorization, "Bearer", nil))
	assert.Empty(t, call(t, app, fiber.HeaderAuthorization, "Token abc", nil))
}
