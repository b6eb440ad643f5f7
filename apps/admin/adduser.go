package main

import (
	"context"
	"fmt"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

var cliRoles = map[string][]string{
	"":        nil,
	"admin":   {user.RoleAdmin},
	"teacher": {user.RoleTeacher},
	"student": {user.RoleStudent},
}

// addUser creates an active user.User in an existing college.
func (cli *commandLine) addUser(collegeID, name, uname, email string, roles []string, pwd string) error {
	ctx := context.Background()

	col, err := cli.colSvc.GetByID(ctx, collegeID)
	if err != nil {
		return err
	}

	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           roles,
	}
	if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return core.ValidationErrorFrom(err, cli.translator)
	}
	usr, err := cli.usrSvc.Create(ctx, col.ID, nu)
	if err != nil {
		return err
	}
	fmt.Printf("user %q created in %q: %s\n", usr.Name, col.Name, usr.ID)
	return nil
}
