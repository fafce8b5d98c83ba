package auth_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-platform/meridian-identity/internal/auth"
	"github.com/meridian-platform/meridian-identity/internal/guard"
	"github.com/meridian-platform/meridian-identity/internal/s2s"
	"github.com/meridian-platform/meridian-identity/internal/token"
)

type testServer struct {
	router chi.Router
	signer *s2s.Signer
	codec  *token.Codec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	codec := token.NewCodec(token.Config{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	store := token.NewRefreshStore(client, 24*time.Hour)
	signer := s2s.NewSigner("service-secret-for-tests")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guards := guard.Middleware{
		Guard:   guard.New(codec, signer),
		Headers: s2s.DefaultHeaders,
		Logger:  logger,
	}
	service := auth.NewService(newMockRepository(), codec, store, 24*time.Hour)
	handler := auth.NewHandler(logger, service, guards, nil, nil)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	r.Route("/internal", handler.MountInternalRoutes)
	return &testServer{router: r, signer: signer, codec: codec}
}

func (s *testServer) do(t *testing.T, method, path string, body any, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func bearer(accessToken string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	}
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

type tokenPairBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (s *testServer) registerAndLogin(t *testing.T, email, password string) (userBody, tokenPairBody) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/register", map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decodeBody[userBody](t, rec)

	rec = s.do(t, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return user, decodeBody[tokenPairBody](t, rec)
}

func TestRegisterLoginMeRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	user, pair := srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")

	claims, err := srv.codec.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	rec := srv.do(t, http.MethodGet, "/auth/me", nil, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeBody[userBody](t, rec)
	assert.Equal(t, user.ID, me.ID)
	assert.Equal(t, "alice@meridian.test", me.Email)
}

func TestMeWithoutToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginBadCredentialsAreUniform(t *testing.T) {
	srv := newTestServer(t)
	srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")

	wrongPassword := srv.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@meridian.test", "password": "nope"}, nil)
	unknownEmail := srv.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "ghost@meridian.test", "password": "correct-horse"}, nil)
	malformed := srv.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "not-an-email"}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, http.StatusUnauthorized, malformed.Code)
}

func TestRefreshRotation(t *testing.T) {
	srv := newTestServer(t)
	_, pair := srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")

	rec := srv.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := decodeBody[tokenPairBody](t, rec)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// Replaying the rotated-out token fails.
	rec = srv.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": rotated.RefreshToken}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	srv := newTestServer(t)
	_, pair := srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")

	rec := srv.do(t, http.MethodPost, "/auth/logout", map[string]bool{"all_devices": true}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateMePasswordChange(t *testing.T) {
	srv := newTestServer(t)
	user, pair := srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")

	rec := srv.do(t, http.MethodPut, "/auth/me", map[string]string{
		"new_password":     "battery-staple",
		"current_password": "wrong",
	}, bearer(pair.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPut, "/auth/me", map[string]string{
		"new_password":     "battery-staple",
		"current_password": "correct-horse",
	}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@meridian.test", "password": "correct-horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/auth/login",
		map[string]string{"email": "alice@meridian.test", "password": "battery-staple"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	relogged := decodeBody[tokenPairBody](t, rec)
	claims, err := srv.codec.VerifyAccess(relogged.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
}

func TestGetUserOwnership(t *testing.T) {
	srv := newTestServer(t)
	alice, alicePair := srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")
	bob, _ := srv.registerAndLogin(t, "bob@meridian.test", "hunter2hunter2")

	rec := srv.do(t, http.MethodGet, "/auth/users/"+alice.ID, nil, bearer(alicePair.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/auth/users/"+bob.ID, nil, bearer(alicePair.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestValidateTokenRequiresSignature(t *testing.T) {
	srv := newTestServer(t)
	_, pair := srv.registerAndLogin(t, "alice@meridian.test", "correct-horse")

	// Unsigned callers are rejected outright.
	rec := srv.do(t, http.MethodPost, "/internal/validate-token", map[string]string{"token": pair.AccessToken}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	signed := func(r *http.Request) {
		r.Header.Set(s2s.DefaultHeaders.ServiceName, "catalog")
		r.Header.Set(s2s.DefaultHeaders.ServiceSignature, srv.signer.Sign("catalog"))
	}

	rec = srv.do(t, http.MethodPost, "/internal/validate-token", map[string]string{"token": pair.AccessToken}, signed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "access", body["kind"])

	rec = srv.do(t, http.MethodPost, "/internal/validate-token", map[string]string{"token": "garbage"}, signed)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, body["valid"])
}
