package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/mrlokans/sanctum-auth/internal/config"
)

// LogoutCommand signs out and forgets the stored session.
type LogoutCommand struct {
	Forget bool

	cfg     *config.Config
	browser browserFlags
	out     io.Writer
}

func NewLogoutCommand(cfg *config.Config) *LogoutCommand {
	return &LogoutCommand{cfg: cfg}
}

func (cmd *LogoutCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)

	fs.BoolVar(&cmd.Forget, "forget", false, "Also delete every stored cookie of the profile")
	cmd.browser.register(fs, cmd.cfg)

	fs.Usage = usage(fs, "logout [options]", "Sign out of the backend.")

	return fs.Parse(args)
}

func (cmd *LogoutCommand) Run() error {
	out := output(cmd.out)

	session, err := openBrowser(cmd.cfg, cmd.browser)
	if err != nil {
		return err
	}
	defer session.Close()

	// Failures are logged by the client; local state is cleared regardless
	session.client.Logout(context.Background(), session.rc)

	if cmd.Forget {
		if err := session.store.Clear(cmd.browser.Profile); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Signed out")
	return nil
}
