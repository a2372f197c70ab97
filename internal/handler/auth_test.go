package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/flavor-entertainers/booking-platform/internal/config"
	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
	"github.com/flavor-entertainers/booking-platform/internal/utils"
)

func newAuthServer() (*echo.Echo, *memUsers, *memTokens, *memPerformers) {
	cfg := config.Config{JWTSecret: "k", AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: bcrypt.MinCost}
	users, tokens, perfs := newMemUsers(), newMemTokens(), newMemPerformers()
	users.perfs = perfs
	h := NewAuthHandler(cfg, users, tokens)

	e := newEcho()
	g := e.Group("/v1/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/refresh", h.Refresh)
	g.POST("/refresh-access", h.RefreshAccess)
	g.POST("/logout", h.Logout)
	me := e.Group("/v1", middleware.JWTAuth("k"))
	me.GET("/me", h.Me)
	me.PATCH("/me", h.UpdateMe)
	return e, users, tokens, perfs
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) authResp {
	t.Helper()
	var out authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterClientAndPerformer(t *testing.T) {
	e, users, tokens, perfs := newAuthServer()

	rec := do(e, http.MethodPost, "/v1/auth/register",
		`{"email":" Ann@Example.com ","password":"secret-pass","full_name":"Ann"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeAuth(t, rec)
	assert.Equal(t, "ann@example.com", resp.User.Email)
	assert.Equal(t, model.RoleClient, resp.User.Role)
	assert.NotEmpty(t, resp.Access.Token)
	assert.Len(t, resp.Refresh.Token, 96)
	assert.Equal(t, 1, tokens.active())

	rec = do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"star@example.com","password":"secret-pass","role":"performer","full_name":"Star","phone":"+61400"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp = decodeAuth(t, rec)
	assert.Equal(t, model.RolePerformer, resp.User.Role)

	p, err := perfs.GetByUserID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Star", p.StageName)
	assert.Equal(t, model.PerformerOffline, p.Status)

	u, err := users.GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "+61400", u.Phone)
}

func TestRegisterPerformerWithoutProfileLeavesNoAccount(t *testing.T) {
	e, users, _, _ := newAuthServer()
	users.profileErr = errBoom

	rec := do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"star@example.com","password":"secret-pass","role":"PERFORMER"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	_, err := users.GetByEmail(context.Background(), "star@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRegisterNeverGrantsAdmin(t *testing.T) {
	e, _, _, _ := newAuthServer()
	rec := do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"sneaky@example.com","password":"secret-pass","role":"ADMIN"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.RoleClient, decodeAuth(t, rec).User.Role)
}

func TestRegisterErrors(t *testing.T) {
	e, _, _, _ := newAuthServer()
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"secret-pass"}`).Code)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"duplicate", `{"email":"a@example.com","password":"secret-pass"}`, http.StatusConflict},
		{"short password", `{"email":"b@example.com","password":"short"}`, http.StatusUnprocessableEntity},
		{"bad email", `{"email":"nope","password":"secret-pass"}`, http.StatusUnprocessableEntity},
		{"bad json", `{"email":`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, do(e, http.MethodPost, "/v1/auth/register", tc.body).Code)
		})
	}
}

func TestLogin(t *testing.T) {
	e, users, _, _ := newAuthServer()
	require.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"secret-pass"}`).Code)

	rec := do(e, http.MethodPost, "/v1/auth/login", `{"email":"A@example.com","password":"secret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	claims, err := utils.ParseAccessToken("k", decodeAuth(t, rec).Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleClient, claims.Role)

	assert.Equal(t, http.StatusUnauthorized,
		do(e, http.MethodPost, "/v1/auth/login", `{"email":"a@example.com","password":"wrong-pass"}`).Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(e, http.MethodPost, "/v1/auth/login", `{"email":"nobody@example.com","password":"secret-pass"}`).Code)

	u := users.byID[claims.UserID]
	u.IsActive = false
	users.byID[claims.UserID] = u
	assert.Equal(t, http.StatusUnauthorized,
		do(e, http.MethodPost, "/v1/auth/login", `{"email":"a@example.com","password":"secret-pass"}`).Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	e, _, tokens, _ := newAuthServer()
	reg := decodeAuth(t, do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"secret-pass"}`))
	body := `{"refresh_token":"` + reg.Refresh.Token + `"}`

	rec := do(e, http.MethodPost, "/v1/auth/refresh", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, reg.Refresh.Token, decodeAuth(t, rec).Refresh.Token)
	assert.Equal(t, 1, tokens.active())

	// the old token is spent
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/v1/auth/refresh", body).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/auth/refresh", `{}`).Code)
}

func TestRefreshAccessKeepsRefreshToken(t *testing.T) {
	e, _, tokens, _ := newAuthServer()
	reg := decodeAuth(t, do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"secret-pass"}`))

	rec := do(e, http.MethodPost, "/v1/auth/refresh-access", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access"`)
	assert.Equal(t, 1, tokens.active())
}

func TestLogout(t *testing.T) {
	e, _, tokens, _ := newAuthServer()
	reg := decodeAuth(t, do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"secret-pass"}`))
	do(e, http.MethodPost, "/v1/auth/login", `{"email":"a@example.com","password":"secret-pass"}`)
	require.Equal(t, 2, tokens.active())

	rec := do(e, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+reg.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, tokens.active())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Access.Token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, tokens.active())

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodPost, "/v1/auth/logout", "").Code)
}

func TestMeAndUpdateMe(t *testing.T) {
	e, _, _, _ := newAuthServer()
	reg := decodeAuth(t, do(e, http.MethodPost, "/v1/auth/register",
		`{"email":"a@example.com","password":"secret-pass","full_name":"Ann"}`))

	send := func(method, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/v1/me", nil)
		if body != "" {
			req = httptest.NewRequest(method, "/v1/me", strings.NewReader(body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		req.Header.Set("Authorization", "Bearer "+reg.Access.Token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := send(http.MethodPatch, `{"phone":"+61400111222"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = send(http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var u model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, "Ann", u.FullName)
	assert.Equal(t, "+61400111222", u.Phone)
	assert.NotContains(t, rec.Body.String(), "password")

	assert.Equal(t, http.StatusUnprocessableEntity, send(http.MethodPatch, `{"full_name":""}`).Code)
}
