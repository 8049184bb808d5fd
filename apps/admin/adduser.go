package main

import (
	"context"
	"fmt"

	echoapi "github.com/llpmm/campus/apps/api/echo"
	"github.com/llpmm/campus/core/user"
)

// addUser creates a user and prints its ID with an access token.
func (cli *commandLine) addUser(nu user.NewUser) error {
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created (%s)\n", usr.ID, usr.Role)
	return cli.writeToken(usr)
}

func (cli *commandLine) printToken(userID string) error {
	usr, err := cli.usrSvc.GetByID(context.Background(), userID)
	if err != nil {
		return err
	}
	return cli.writeToken(usr)
}

func (cli *commandLine) writeToken(usr user.User) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.GetUserClaims(cli.conf, usr))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
