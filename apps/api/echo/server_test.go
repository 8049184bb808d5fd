package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/llpmm/campus/apps/api/echo"
	"github.com/llpmm/campus/core/user"
)

func TestServer_home(t *testing.T) {
	env, srv := newServer(t)
	rec := do(t, srv, http.MethodGet, "/", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+env.Conf.AppName+" API!", rec.Body.String())
}

func TestServer_auth(t *testing.T) {
	env, srv := newServer(t)
	admin := env.CreateUser(t, "Admin", "admin@llpmm.test", user.RoleAdmin)
	student := env.CreateUser(t, "Aung Aung", "aung@llpmm.test", user.RoleStudent)

	expired := echoapi.GetUserClaims(env.Conf, admin)
	expired.ExpiresAt = time.Now().Add(-time.Hour).Unix()
	expiredToken, err := echoapi.GenerateToken(env.Conf, expired)
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, echoapi.GetUserClaims(env.Conf, admin)).SignedString([]byte("not the key"))
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{name: "no token", path: "/v1/users/roles", wantCode: http.StatusUnauthorized, wantData: httpErr{Error: "missing or malformed jwt"}},
		{name: "expired token", path: "/v1/users/roles", token: expiredToken, wantCode: http.StatusUnauthorized, wantData: httpErr{Error: "invalid or expired jwt"}},
		{name: "forged token", path: "/v1/users/roles", token: forged, wantCode: http.StatusUnauthorized, wantData: httpErr{Error: "invalid or expired jwt"}},
		{name: "wrong role", path: "/v1/users/roles", token: getToken(t, env, student), wantCode: http.StatusForbidden, wantData: httpErr{Error: "permission denied"}},
		{name: "admin", path: "/v1/users/roles", token: getToken(t, env, admin), wantCode: http.StatusOK, wantData: user.Roles},
		{name: "trailing slash", path: "/v1/users/roles/", token: getToken(t, env, admin), wantCode: http.StatusOK, wantData: user.Roles},
	})
}

func TestClaims(t *testing.T) {
	env, _ := newServer(t)
	usr := user.User{ID: "u1", Name: "Thiri", Email: "thiri@llpmm.test", Role: user.RoleInstructor}
	claims := echoapi.GetUserClaims(env.Conf, usr)

	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, env.Conf.AppName, claims.Issuer)
	assert.True(t, claims.HasRole(user.RoleAdmin, user.RoleInstructor))
	assert.False(t, claims.HasRole(user.RoleStudent))
	assert.NoError(t, claims.Valid())

	token, err := echoapi.GenerateToken(env.Conf, claims)
	require.NoError(t, err)
	parsed, err := jwt.ParseWithClaims(token, new(echoapi.Claims), func(*jwt.Token) (interface{}, error) {
		return []byte(env.Conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, claims, parsed.Claims)
}
