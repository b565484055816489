package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if reason := user.PasswordPolicyError(pwd, usr.Name, usr.Username, usr.Email); reason != "" {
		return errors.New(reason)
	}
	return cli.usrSvc.SetPassword(ctx, usr.ID, pwd)
}
