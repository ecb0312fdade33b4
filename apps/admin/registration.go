package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/trezcool/registrar/core"
	"github.com/trezcool/registrar/core/registration"
)

var (
	confirmFunc = confirm // mockable

	errNoOpenRegistration = errors.New("there is no open registration")
	errNotConfirmed       = errors.New("aborted")
)

type idleTask struct{}

func (idleTask) Cancel() {}

// neverSchedule keeps the auto-close timer from firing: the CLI closes registrations itself.
func neverSchedule(time.Duration, func()) registration.TaskHandle { return idleTask{} }

func newLifecycle(conf *core.Config, remote registration.Remote, notifier registration.Notifier, logger core.Logger) *registration.Lifecycle {
	return registration.NewLifecycle(registration.LifecycleDeps{
		Remote:        remote,
		Notifier:      notifier,
		Logger:        logger,
		Schedule:      neverSchedule,
		RemoteTimeout: conf.Registration.RemoteTimeout,
	})
}

// confirm asks question on the terminal. It never confirms when stdin is not a terminal.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (cli *commandLine) closeRegistration(yes bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), cli.conf.Registration.RemoteTimeout)
	defer cancel()

	sem, err := cli.courseSvc.OpenSemester(ctx)
	if err != nil {
		return err
	}
	if sem == nil {
		return errNoOpenRegistration
	}
	if err = cli.lc.Refresh(ctx, sem.ID); err != nil {
		return err
	}
	reg, ok := cli.lc.Store().CurrentOpen()
	if !ok {
		return errNoOpenRegistration
	}

	if !yes && !confirmFunc(fmt.Sprintf("Close registration #%d of semester %q?", reg.Batch, sem.Name)) {
		return errNotConfirmed
	}

	closed, err := cli.lc.Close(ctx, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "registration #%d closed\n", closed.Batch)
	return nil
}
