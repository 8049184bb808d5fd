package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llpmm/campus/core/user"
)

func Test_userApi(t *testing.T) {
	env, srv := newServer(t)
	admin := env.CreateUser(t, "Admin", "admin@llpmm.test", user.RoleAdmin)
	instructor := env.CreateUser(t, "Thiri", "thiri@llpmm.test", user.RoleInstructor)
	adminToken := getToken(t, env, admin)

	var created user.User
	rec := do(t, srv, http.MethodPost, "/v1/users", adminToken,
		user.NewUser{Name: "Aung Aung", Email: "Aung@llpmm.test", Role: user.RoleStudent}, &created)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "aung@llpmm.test", created.Email)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "create (instructor)", method: http.MethodPost, path: "/v1/users", token: getToken(t, env, instructor),
			body: user.NewUser{Name: "X", Email: "x@llpmm.test", Role: user.RoleStudent}, wantCode: http.StatusForbidden,
		},
		{
			name: "create (invalid)", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     map[string]string{"name": "X", "email": "nope", "role": "teacher"},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"email": "email must be a valid email address", "role": "invalid role"},
		},
		{
			name: "create (email taken)", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body:     user.NewUser{Name: "Other", Email: "aung@llpmm.test", Role: user.RoleStudent},
			wantCode: http.StatusConflict, wantData: httpErr{Error: user.ErrEmailExists.Error()},
		},
		{
			name: "create (malformed body)", method: http.MethodPost, path: "/v1/users", token: adminToken,
			body: "{", wantCode: http.StatusBadRequest,
		},
		{name: "retrieve", path: "/v1/users/" + created.ID, token: adminToken, wantCode: http.StatusOK, wantData: created},
		{
			name: "retrieve (unknown)", path: "/v1/users/unknown", token: adminToken,
			wantCode: http.StatusNotFound, wantData: httpErr{Error: "user not found"},
		},
	})
}
