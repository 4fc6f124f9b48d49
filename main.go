package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/sanctum-auth/internal/cli"
	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is what every CLI subcommand implements.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	if name == "-h" || name == "--help" || name == "help" {
		printUsage()
		return
	}
	if name == "version" {
		fmt.Printf("sanctum-auth %s (%s)\n", Version, Commit)
		return
	}

	cfg := config.NewConfig()
	commands := map[string]func(*config.Config) command{
		"login":               func(c *config.Config) command { return cli.NewLoginCommand(c) },
		"logout":              func(c *config.Config) command { return cli.NewLogoutCommand(c) },
		"whoami":              func(c *config.Config) command { return cli.NewWhoamiCommand(c) },
		"register":            func(c *config.Config) command { return cli.NewRegisterCommand(c) },
		"forgot-password":     func(c *config.Config) command { return cli.NewForgotPasswordCommand(c) },
		"reset-password":      func(c *config.Config) command { return cli.NewResetPasswordCommand(c) },
		"verify-email":        func(c *config.Config) command { return cli.NewVerifyEmailCommand(c) },
		"resend-verification": func(c *config.Config) command { return cli.NewResendVerificationCommand(c) },
		"keepalive":           func(c *config.Config) command { return cli.NewKeepaliveCommand(c) },
	}

	newCommand, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	cmd := newCommand(cfg)
	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve                Start the frontend server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  login                Sign in and keep the session cookies\n")
	fmt.Fprintf(os.Stderr, "  logout               Sign out\n")
	fmt.Fprintf(os.Stderr, "  whoami               Show the signed in user\n")
	fmt.Fprintf(os.Stderr, "  register             Create an account\n")
	fmt.Fprintf(os.Stderr, "  forgot-password      Request a password reset link\n")
	fmt.Fprintf(os.Stderr, "  reset-password       Set a new password with a reset token\n")
	fmt.Fprintf(os.Stderr, "  verify-email         Confirm an email address\n")
	fmt.Fprintf(os.Stderr, "  resend-verification  Request another verification email\n")
	fmt.Fprintf(os.Stderr, "  keepalive            Keep the session alive on a schedule\n")
	fmt.Fprintf(os.Stderr, "  version              Print the version\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
