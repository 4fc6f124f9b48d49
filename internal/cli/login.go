package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/mrlokans/sanctum-auth/internal/config"
)

// LoginCommand signs in and keeps the session cookies for later commands.
type LoginCommand struct {
	Email    string
	Password string
	Remember bool
	JSON     bool

	cfg     *config.Config
	browser browserFlags
	out     io.Writer
}

func NewLoginCommand(cfg *config.Config) *LoginCommand {
	return &LoginCommand{cfg: cfg}
}

func (cmd *LoginCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)

	fs.StringVar(&cmd.Email, "email", "", "Account email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Account password (or set SANCTUM_PASSWORD)")
	fs.BoolVar(&cmd.Remember, "remember", false, "Ask the backend for a long lived session")
	fs.BoolVar(&cmd.JSON, "json", false, "Print the user as JSON")
	cmd.browser.register(fs, cmd.cfg)

	fs.Usage = usage(fs, "login -email <email> [options]",
		"Sign in to the backend. Session cookies are kept for the other commands.",
		"login -email ada@example.com -password secret",
		"login -email ada@example.com -api https://api.example.com -token")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("required flag -email not provided")
	}
	cmd.Password = passwordFromEnv(cmd.Password)
	if cmd.Password == "" {
		return fmt.Errorf("required flag -password not provided")
	}
	return nil
}

func (cmd *LoginCommand) Run() error {
	out := output(cmd.out)

	session, err := openBrowser(cmd.cfg, cmd.browser)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx := context.Background()
	body := map[string]any{
		"email":    cmd.Email,
		"password": cmd.Password,
	}
	if cmd.Remember {
		body["remember"] = true
	}

	if _, err := session.client.Login(ctx, session.rc, body); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if session.client.Config().Token {
		session.client.GetToken(ctx, session.rc)
	}

	user := session.client.GetUser(ctx, session.rc, true)
	if user == nil {
		return errors.New("signed in, but the backend did not return a user")
	}
	return printUser(out, user, cmd.JSON)
}
