// Command devtoken mints a bearer token for local testing against the chat
// server. Login lives in the marketplace backend; this only signs claims.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/umar/campus-chat/internal/auth"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		userID int64
		email  string
		secret string
		ttl    time.Duration
	)

	flagSet := pflag.NewFlagSet("devtoken", pflag.ContinueOnError)
	flagSet.Int64Var(&userID, "user-id", 0, "user id to put in the token")
	flagSet.StringVar(&email, "email", "", "email identity of the user")
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "signing secret (default: $JWT_SECRET)")
	flagSet.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if userID <= 0 {
		return fmt.Errorf("--user-id is required")
	}
	if email == "" {
		return fmt.Errorf("--email is required")
	}
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	token, err := auth.GenerateToken(userID, email, secret, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
