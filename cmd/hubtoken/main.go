// Command hubtoken prints an access token accepted by the API.  It is
// meant for local development and smoke tests; production tokens come
// from the identity provider.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/Mateusbmelzi/hub-entidades/internal/config"
	"github.com/Mateusbmelzi/hub-entidades/internal/model"
	"github.com/Mateusbmelzi/hub-entidades/internal/utils"
)

func main() {
	envFile := flag.String("env-file", ".env", "file to seed the environment from")
	secret := flag.String("secret", "", "signing secret (default $JWT_SECRET)")
	sub := flag.String("sub", "", "subject recorded as the actor")
	role := flag.String("role", model.RoleStudent, "STUDENT, ENTITY or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *secret == "" {
		*secret = os.Getenv("JWT_SECRET")
	}
	r := strings.ToUpper(*role)
	switch {
	case *secret == "":
		fmt.Fprintln(os.Stderr, "hubtoken: --secret or JWT_SECRET is required")
		os.Exit(2)
	case *sub == "":
		fmt.Fprintln(os.Stderr, "hubtoken: --sub is required")
		os.Exit(2)
	case r != model.RoleStudent && r != model.RoleEntity && r != model.RoleAdmin:
		fmt.Fprintf(os.Stderr, "hubtoken: unknown role %q\n", *role)
		os.Exit(2)
	}

	tok, err := utils.NewAccessToken(*secret, *sub, r, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
