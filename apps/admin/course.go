package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/registrar/core/course"
)

func (cli *commandLine) addSemester(name string, isOpen bool) error {
	ns := course.NewSemester{Name: name, IsOpen: isOpen}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	sem, err := cli.courseSvc.CreateSemester(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "semester %q created (id: %s, open: %t)\n", sem.Name, sem.ID, sem.IsOpen)
	return nil
}

func (cli *commandLine) addCourse(id, name string, credits int) error {
	nc := course.NewCourse{ID: id, Name: name, Credits: credits}
	if err := nc.Validate(cli.validate); err != nil {
		return err
	}
	c, err := cli.courseSvc.CreateCourse(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "course %s created: %s (%d credits)\n", c.ID, strings.TrimSpace(c.Name), c.Credits)
	return nil
}
