package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/campus/core/college"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/storage"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	store      *storage.Store
	colSvc     college.ServiceInterface
	usrSvc     user.ServiceInterface
	validate   *validator.Validate
	translator ut.Translator
}

func newCommandLine(store *storage.Store, validate *validator.Validate, translator ut.Translator) *commandLine {
	return &commandLine{
		store:      store,
		colSvc:     college.NewService(store.College),
		usrSvc:     user.NewService(store.User),
		validate:   validate,
		translator: translator,
	}
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run goose migration commands (up, down, status, ...)")
	fmt.Println("  addcollege -name NAME - create a college and print its ID")
	fmt.Println("  adduser -college ID -name NAME [-username USERNAME] [-email EMAIL] [-role admin|teacher|student] - create a user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addCollegeCmd := flag.NewFlagSet("addcollege", flag.ContinueOnError)
	addCollegeName := addCollegeCmd.String("name", "", "The college's name.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCollege := addUserCmd.String("college", "", "The ID of the user's college.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username. Required if no email.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. Required if no username.")
	addUserRole := addUserCmd.String("role", "", "One of admin, teacher or student. The password will be prompted next.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addcollege":
		if err := addCollegeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCollegeName == "" {
			addCollegeCmd.Usage()
			return errHelp
		}
		return cli.addCollege(*addCollegeName)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserCollege == "" || *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		role, ok := cliRoles[*addUserRole]
		if !ok {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserCollege, *addUserName, *addUserUname, *addUserEmail, role, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
