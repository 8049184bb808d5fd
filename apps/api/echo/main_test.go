package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/llpmm/campus/apps/api/echo"
	"github.com/llpmm/campus/core/user"
	testutil "github.com/llpmm/campus/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantData interface{}
}

func newServer(t *testing.T) (*testutil.Env, *echoapi.Server) {
	env := testutil.NewEnv(t)
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		UserSvc:        env.UserSvc,
		CourseSvc:      env.CourseSvc,
		EnrollmentSvc:  env.EnrollmentSvc,
		PaymentSvc:     env.PaymentSvc,
		CertificateSvc: env.CertificateSvc,
		AttendanceSvc:  env.AttendanceSvc,
		AssignmentSvc:  env.AssignmentSvc,
	})
	return env, srv
}

func getToken(t *testing.T, env *testutil.Env, usr user.User) string {
	token, err := echoapi.GenerateToken(env.Conf, echoapi.GetUserClaims(env.Conf, usr))
	require.NoError(t, err)
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func newAuthRequest(t *testing.T, method, path, token string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		buf.Write(marshalObj(t, b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

// do sends the request and decodes the response body into out, when given.
func do(t *testing.T, srv *echoapi.Server, method, path, token string, body, out interface{}) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(t, method, path, token, body)
	srv.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func runHTTPTests(t *testing.T, srv *echoapi.Server, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(t, method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				assert.JSONEq(t, string(marshalObj(t, tt.wantData)), rec.Body.String())
			}
		})
	}
}
