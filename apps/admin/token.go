package main

import (
	"fmt"
	"strings"

	echoapi "github.com/trezcool/registrar/apps/api/echo"
	"github.com/trezcool/registrar/core"
)

// token prints a signed API token. Users are managed elsewhere, this is for operators and scripts.
func (cli *commandLine) token(subject, username, email, roles string) error {
	var rs []string
	for _, r := range core.CleanStrings(strings.Split(roles, ","), true /* lower */) {
		if !core.IsValidRole(r) {
			return fmt.Errorf("%q: unknown role", r)
		}
		rs = append(rs, r)
	}

	claims := echoapi.GetUserClaims(cli.conf, subject, username, email, rs)
	token, err := echoapi.GenerateToken(cli.conf, claims)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
