package main

import (
	"github.com/trezcool/registrar/storage/database"
)

var gooseRunFunc = database.RunMigration // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db, args[0], args[1:]...)
}
