package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/user"
)

type newUserArgs struct {
	name, username, email, password string
	staff, admin                    bool
}

// addUser creates the user, or updates the one already using the username or email.
func (cli *commandLine) addUser(a newUserArgs) error {
	ctx := context.Background()
	a.username = core.CleanString(a.username, true /* lower */)
	a.email = core.CleanString(a.email, true /* lower */)
	a.name = core.CleanString(a.name)
	if reason := user.PasswordPolicyError(a.password, a.name, a.username, a.email); reason != "" {
		return errors.New(reason)
	}

	var perms *user.Permissions
	if a.staff || a.admin {
		p := user.Permissions{}
		if a.staff {
			p = user.StaffDefaults()
		}
		p.Admin = a.admin
		perms = &p
	}

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, a.username)
	if errors.Cause(err) == user.ErrNotFound {
		usr, err = cli.usrSvc.GetByUsernameOrEmail(ctx, a.email)
	}
	switch {
	case err == nil:
		active := true
		uu := user.UpdateUser{
			Name:        a.name,
			Username:    a.username,
			Email:       a.email,
			IsActive:    &active,
			Permissions: perms,
			Password:    a.password,
		}
		if a.staff {
			uu.Staff = &a.staff
		}
		uu.Clean(usr)
		if usr, err = cli.usrSvc.Update(ctx, usr.ID, uu); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "updated user %s\n", usr.Username)
	case errors.Cause(err) == user.ErrNotFound:
		name := a.name
		if name == "" {
			name = a.username
		}
		if usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:        name,
			Username:    a.username,
			Email:       a.email,
			Password:    a.password,
			Staff:       a.staff,
			Permissions: perms,
		}); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "created user %s\n", usr.Username)
	default:
		return err
	}
	return nil
}
