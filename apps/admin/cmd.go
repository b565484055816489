package main

import (
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/xronos/xronos/core"
	"github.com/xronos/xronos/core/event"
	"github.com/xronos/xronos/core/user"
	"github.com/xronos/xronos/services/roster"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sqlx.DB // nil with the in-memory engine
	out      io.Writer
	usrSvc   *user.Service
	evSvc    *event.Service
	importer *roster.Importer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, redo...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-name NAME] [-staff] [-admin] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  clashcheck [-from YYYY-MM-DD] [-days N] - note clashes on events in the clash categories")
	fmt.Fprintln(cli.out, "  import -kind KIND -file PATH [-retire] - load a CSV or XLSX roster of staff, pupils, locations or subjects")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserStaff := addUserCmd.Bool("staff", false, "Give the user the default staff permissions.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Make the user an administrator.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	clashCheckCmd := flag.NewFlagSet("clashcheck", flag.ContinueOnError)
	clashCheckCmd.SetOutput(cli.out)
	clashCheckFrom := clashCheckCmd.String("from", "", "First date to check (YYYY-MM-DD). Defaults to today.")
	clashCheckDays := clashCheckCmd.Int("days", 7, "Number of days to check.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importCmd.SetOutput(cli.out)
	importKind := importCmd.String("kind", "", "Kind of element: staff, pupil, location or subject.")
	importFile := importCmd.String("file", "", "Path to the .csv or .xlsx file.")
	importRetire := importCmd.Bool("retire", false, "Retire current elements missing from the file.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(newUserArgs{
			name:     *addUserName,
			username: *addUserUname,
			email:    *addUserEmail,
			password: pwd,
			staff:    *addUserStaff,
			admin:    *addUserAdmin,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "clashcheck":
		if err := clashCheckCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		return cli.clashCheck(*clashCheckFrom, *clashCheckDays)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importKind == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importRoster(*importKind, *importFile, *importRetire)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
