package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/llpmm/campus/core"
	"github.com/llpmm/campus/core/certificate"
	"github.com/llpmm/campus/core/payment"
	"github.com/llpmm/campus/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf           *core.Config
	db             *sql.DB
	out            io.Writer
	usrSvc         *user.Service
	paymentSvc     *payment.Service
	certificateSvc *certificate.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate up|up-by-one|up-to VERSION|down|down-to VERSION|redo - run the database migrations")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role ROLE [-payment-model MODEL] - create a user and print an access token")
	fmt.Fprintln(cli.out, "  token -user ID - print a new access token for the user")
	fmt.Fprintln(cli.out, "  markoverdue - flag the pending installments past their due date")
	fmt.Fprintln(cli.out, "  evaluatecertificates -batch ID - re-evaluate the certificates of every enrollment of the batch")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "", "One of admin, instructor, student.")
	addUserPaymentModel := addUserCmd.String("payment-model", "", "Instructors only: fixed_salary (default) or per_student.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenUser := tokenCmd.String("user", "", "The user's ID.")

	evaluateCmd := flag.NewFlagSet("evaluatecertificates", flag.ContinueOnError)
	evaluateCmd.SetOutput(cli.out)
	evaluateBatch := evaluateCmd.String("batch", "", "The batch ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(user.NewUser{
			Name:         *addUserName,
			Email:        *addUserEmail,
			Role:         *addUserRole,
			PaymentModel: *addUserPaymentModel,
		})
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUser == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.printToken(*tokenUser)
	case "markoverdue":
		return cli.markOverdue()
	case "evaluatecertificates":
		if err := evaluateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *evaluateBatch == "" {
			evaluateCmd.Usage()
			return errHelp
		}
		return cli.evaluateCertificates(*evaluateBatch)
	default:
		cli.printUsage()
		return errHelp
	}
}
