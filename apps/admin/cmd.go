package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/course"
	"github.com/trezcool/registrar/core/registration"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db        *sql.DB
	conf      *core.Config
	validate  *validator.Validate
	courseSvc *course.Service
	lc        *registration.Lifecycle
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]                             - run a migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  addsemester -name NAME [-open]                        - create a semester, closing the others when open")
	fmt.Fprintln(cli.out, "  addcourse -id ID -name NAME [-credits N]              - add a course to the catalog")
	fmt.Fprintln(cli.out, "  token -subject ID -roles ROLES [-username U -email E] - print an API token")
	fmt.Fprintln(cli.out, "  closeregistration [-yes]                              - close the open registration")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSemesterCmd := flag.NewFlagSet("addsemester", flag.ContinueOnError)
	addSemesterName := addSemesterCmd.String("name", "", "The semester name, e.g. 2026-2027.")
	addSemesterOpen := addSemesterCmd.Bool("open", false, "Open the semester.")

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ContinueOnError)
	addCourseID := addCourseCmd.String("id", "", "The course code, e.g. INF101.")
	addCourseName := addCourseCmd.String("name", "", "The course name.")
	addCourseCredits := addCourseCmd.Int("credits", 0, "The course credits.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSubject := tokenCmd.String("subject", "", "The user's ID.")
	tokenUsername := tokenCmd.String("username", "", "The user's username.")
	tokenEmail := tokenCmd.String("email", "", "The user's email.")
	tokenRoles := tokenCmd.String("roles", "", "Comma separated roles, e.g. admin:,teacher:")

	closeRegistrationCmd := flag.NewFlagSet("closeregistration", flag.ContinueOnError)
	closeRegistrationYes := closeRegistrationCmd.Bool("yes", false, "Do not ask for confirmation.")

	for _, fs := range []*flag.FlagSet{addSemesterCmd, addCourseCmd, tokenCmd, closeRegistrationCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addsemester":
		if err := addSemesterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSemesterName == "" {
			addSemesterCmd.Usage()
			return errHelp
		}
		return cli.addSemester(*addSemesterName, *addSemesterOpen)
	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCourseID == "" || *addCourseName == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.addCourse(*addCourseID, *addCourseName, *addCourseCredits)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSubject == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSubject, *tokenUsername, *tokenEmail, *tokenRoles)
	case "closeregistration":
		if err := closeRegistrationCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.closeRegistration(*closeRegistrationYes)
	default:
		cli.printUsage()
		return errHelp
	}
}
