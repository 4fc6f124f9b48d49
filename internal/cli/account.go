package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// statusField is one flag of a StatusCommand, sent as a body field.
type statusField struct {
	flag     string
	key      string
	usage    string
	required bool
	password bool // falls back to SANCTUM_PASSWORD
}

type statusCall func(ctx context.Context, s *browserSession, body map[string]any) (*sanctum.StatusResponse, error)

// StatusCommand runs one of the account operations that post a few fields and
// answer with a status message.
type StatusCommand struct {
	name        string
	synopsis    string
	description string
	fields      []statusField
	call        statusCall

	values  map[string]*string
	cfg     *config.Config
	browser browserFlags
	out     io.Writer
}

func NewRegisterCommand(cfg *config.Config) *StatusCommand {
	return &StatusCommand{
		name:        "register",
		synopsis:    "register -name <name> -email <email> [options]",
		description: "Create an account on the backend.",
		fields: []statusField{
			{flag: "name", key: "name", usage: "Display name (required)", required: true},
			{flag: "email", key: "email", usage: "Account email (required)", required: true},
			{flag: "password", key: "password", usage: "Password (or set SANCTUM_PASSWORD)", required: true, password: true},
			{flag: "password-confirmation", key: "password_confirmation", usage: "Password confirmation (defaults to -password)"},
		},
		call: func(ctx context.Context, s *browserSession, body map[string]any) (*sanctum.StatusResponse, error) {
			return s.client.Register(ctx, s.rc, body)
		},
		cfg: cfg,
	}
}

func NewForgotPasswordCommand(cfg *config.Config) *StatusCommand {
	return &StatusCommand{
		name:        "forgot-password",
		synopsis:    "forgot-password -email <email> [options]",
		description: "Ask the backend to email a password reset link.",
		fields: []statusField{
			{flag: "email", key: "email", usage: "Account email (required)", required: true},
		},
		call: func(ctx context.Context, s *browserSession, body map[string]any) (*sanctum.StatusResponse, error) {
			return s.client.ForgotPassword(ctx, s.rc, body)
		},
		cfg: cfg,
	}
}

func NewResetPasswordCommand(cfg *config.Config) *StatusCommand {
	return &StatusCommand{
		name:        "reset-password",
		synopsis:    "reset-password -token <token> -email <email> [options]",
		description: "Set a new password with the token from a reset link.",
		fields: []statusField{
			{flag: "token", key: "token", usage: "Reset token from the emailed link (required)", required: true},
			{flag: "email", key: "email", usage: "Account email (required)", required: true},
			{flag: "password", key: "password", usage: "New password (or set SANCTUM_PASSWORD)", required: true, password: true},
			{flag: "password-confirmation", key: "password_confirmation", usage: "Password confirmation (defaults to -password)"},
		},
		call: func(ctx context.Context, s *browserSession, body map[string]any) (*sanctum.StatusResponse, error) {
			return s.client.ResetPassword(ctx, s.rc, body)
		},
		cfg: cfg,
	}
}

func NewVerifyEmailCommand(cfg *config.Config) *StatusCommand {
	return &StatusCommand{
		name:        "verify-email",
		synopsis:    "verify-email -id <id> -hash <hash> [options]",
		description: "Confirm an email address with the values from a verification link.",
		fields: []statusField{
			{flag: "id", key: "id", usage: "User id from the link (required)", required: true},
			{flag: "hash", key: "hash", usage: "Hash from the link (required)", required: true},
			{flag: "expires", key: "expires", usage: "Expiry from a signed link"},
			{flag: "signature", key: "signature", usage: "Signature from a signed link"},
		},
		call: func(ctx context.Context, s *browserSession, body map[string]any) (*sanctum.StatusResponse, error) {
			return s.client.VerifyEmail(ctx, s.rc, body)
		},
		cfg: cfg,
	}
}

func NewResendVerificationCommand(cfg *config.Config) *StatusCommand {
	return &StatusCommand{
		name:        "resend-verification",
		synopsis:    "resend-verification [options]",
		description: "Ask the backend for another verification email. Requires a signed in session.",
		call: func(ctx context.Context, s *browserSession, _ map[string]any) (*sanctum.StatusResponse, error) {
			return s.client.ResendEmailVerification(ctx, s.rc)
		},
		cfg: cfg,
	}
}

func (cmd *StatusCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet(cmd.name, flag.ExitOnError)

	cmd.values = make(map[string]*string, len(cmd.fields))
	for _, field := range cmd.fields {
		value := new(string)
		fs.StringVar(value, field.flag, "", field.usage)
		cmd.values[field.key] = value
	}
	cmd.browser.register(fs, cmd.cfg)

	fs.Usage = usage(fs, cmd.synopsis, cmd.description)

	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, field := range cmd.fields {
		value := cmd.values[field.key]
		if field.password {
			*value = passwordFromEnv(*value)
		}
		if field.required && *value == "" {
			return fmt.Errorf("required flag -%s not provided", field.flag)
		}
	}
	return nil
}

// body collects the non-empty fields. A missing confirmation repeats the password.
func (cmd *StatusCommand) body() map[string]any {
	body := make(map[string]any, len(cmd.values))
	for key, value := range cmd.values {
		if *value != "" {
			body[key] = *value
		}
	}
	if password, ok := body["password"]; ok {
		if _, confirmed := body["password_confirmation"]; !confirmed {
			if _, wanted := cmd.values["password_confirmation"]; wanted {
				body["password_confirmation"] = password
			}
		}
	}
	return body
}

func (cmd *StatusCommand) Run() error {
	out := output(cmd.out)

	session, err := openBrowser(cmd.cfg, cmd.browser)
	if err != nil {
		return err
	}
	defer session.Close()

	resp, err := cmd.call(context.Background(), session, cmd.body())
	if sanctum.IsUnauthenticated(err) {
		return fmt.Errorf("%s failed: %w", cmd.name, ErrNotSignedIn)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", cmd.name, err)
	}

	if resp.Status != "" {
		fmt.Fprintln(out, resp.Status)
	} else {
		fmt.Fprintln(out, "Done")
	}
	return nil
}
