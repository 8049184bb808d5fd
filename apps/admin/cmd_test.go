package main

import (
	"bytes"
	"context"
	"database/sql"
	"io/fs"
	"strings"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/llpmm/campus/apps/api/echo"
	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/course"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
	testutil "github.com/llpmm/campus/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env, *bytes.Buffer) {
	env := testutil.NewEnv(t)
	out := new(bytes.Buffer)
	return &commandLine{
		conf:           env.Conf,
		out:            out,
		usrSvc:         env.UserSvc,
		paymentSvc:     env.PaymentSvc,
		certificateSvc: env.CertificateSvc,
	}, env, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	var ran []string
	origFuncs, origToFuncs := gooseFuncs, gooseToFuncs
	t.Cleanup(func() { gooseFuncs, gooseToFuncs = origFuncs, origToFuncs })

	stub := func(name string) migrateFunc {
		return func(_ *sql.DB, fsys fs.FS, dir string) error {
			_, err := fs.Stat(fsys, dir)
			ran = append(ran, name)
			return err
		}
	}
	stubTo := func(name string) migrateToFunc {
		return func(_ *sql.DB, fsys fs.FS, dir string, version int64) error {
			_, err := fs.Stat(fsys, dir)
			ran = append(ran, name)
			return err
		}
	}
	gooseFuncs = map[string]migrateFunc{"up": stub("up"), "up-by-one": stub("up-by-one"), "down": stub("down"), "redo": stub("redo")}
	gooseToFuncs = map[string]migrateToFunc{"up-to": stubTo("up-to"), "down-to": stubTo("down-to")}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: migrate up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: migrate down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
	})
	assert.Equal(t, []string{"up", "up-by-one", "up-to", "down", "down-to", "redo"}, ran)
}

func Test_commandLine_usage(t *testing.T) {
	cli, _, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "markoverdue")
}

func parseToken(t *testing.T, conf *core.Config, token string) *echoapi.Claims {
	claims := new(echoapi.Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(conf.SecretKey), nil
	})
	require.NoError(t, err)
	return claims
}

func lastLine(out *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	return lines[len(lines)-1]
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env, out := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no role", args: []string{"adduser", "-name", "Admin", "-email", "admin@llpmm.test"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-name", "Admin", "-email", "admin@llpmm.test", "-role", "root"}, wantErrStr: "role: invalid role"},
		{name: "unknown flag", args: []string{"adduser", "-username", "admin"}, wantErrStr: "flag provided but not defined: -username"},
	})

	out.Reset()
	err := cli.run([]string{"admin", "adduser", "-name", "Thiri", "-email", "thiri@llpmm.test", "-role", user.RoleInstructor, "-payment-model", user.PaymentModelPerStudent})
	require.NoError(t, err)
	assert.Regexp(t, `^user [0-9a-f-]{36} created \(instructor\)\n`, out.String())

	claims := parseToken(t, env.Conf, lastLine(out))
	assert.Equal(t, user.RoleInstructor, claims.Role)
	usr, err := env.UserSvc.GetByID(context.Background(), claims.Subject)
	require.NoError(t, err)
	assert.Equal(t, "thiri@llpmm.test", usr.Email)
	assert.Equal(t, user.PaymentModelPerStudent, usr.PaymentModel)

	err = cli.run([]string{"admin", "adduser", "-name", "Other", "-email", "thiri@llpmm.test", "-role", user.RoleStudent})
	assert.Equal(t, user.ErrEmailExists, err)
}

func Test_commandLine_token(t *testing.T) {
	cli, env, out := setup(t)
	student := env.CreateUser(t, "Aung Aung", "aung@llpmm.test", user.RoleStudent)

	runCLITests(t, cli, []cliTest{
		{name: "no user", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"token", "-user", "nobody"}, wantErr: user.ErrNotFound},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-user", student.ID}))
	claims := parseToken(t, env.Conf, lastLine(out))
	assert.Equal(t, student.ID, claims.Subject)
	assert.Equal(t, student.Email, claims.Email)
}

func Test_commandLine_markOverdue(t *testing.T) {
	cli, env, out := setup(t)
	instructor := env.CreateUser(t, "Thiri", "thiri@llpmm.test", user.RoleInstructor)
	student := env.CreateUser(t, "Aung Aung", "aung@llpmm.test", user.RoleStudent)
	crs := env.CreateCourse(t, "japanese-n5", 100000)
	b := env.CreateBatch(t, crs.ID, instructor.ID, 5, nil, nil)
	_, p := env.Enroll(t, student.ID, b.ID, payment.PlanInstallment2, 0)

	require.NoError(t, cli.run([]string{"admin", "markoverdue"}))
	assert.Equal(t, "0 installment(s) marked overdue", lastLine(out))

	testutil.FreezeTime(t, p.Installments[0].DueDate.AddDate(0, 0, 1))
	require.NoError(t, cli.run([]string{"admin", "markoverdue"}))
	assert.Equal(t, "1 installment(s) marked overdue", lastLine(out))
}

func Test_commandLine_evaluateCertificates(t *testing.T) {
	cli, env, out := setup(t)
	instructor := env.CreateUser(t, "Thiri", "thiri@llpmm.test", user.RoleInstructor)
	crs := env.CreateCourse(t, "japanese-n5", 100000)
	ended := core.Today().AddDate(0, 0, -1)
	b := env.CreateBatch(t, crs.ID, instructor.ID, 5, &ended, nil)
	for _, email := range []string{"s1@llpmm.test", "s2@llpmm.test"} {
		s := env.CreateUser(t, "Student", email, user.RoleStudent)
		env.Enroll(t, s.ID, b.ID, payment.PlanFull, 0)
	}

	runCLITests(t, cli, []cliTest{
		{name: "no batch", args: []string{"evaluatecertificates"}, wantErr: errHelp},
		{name: "unknown batch", args: []string{"evaluatecertificates", "-batch", "nowhere"}, wantErr: course.ErrBatchNotFound},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "evaluatecertificates", "-batch", b.ID}))
	assert.Equal(t, "2 enrollment(s) evaluated, 0 changed", lastLine(out))
	assert.Contains(t, out.String(), "eligible false")
}
