package cli

import (
	"context"
	"errors"
	"flag"
	"io"

	"github.com/mrlokans/sanctum-auth/internal/config"
)

// ErrNotSignedIn is returned when the stored session does not identify anyone.
var ErrNotSignedIn = errors.New("not signed in")

// WhoamiCommand shows the user the stored session belongs to.
type WhoamiCommand struct {
	JSON bool

	cfg     *config.Config
	browser browserFlags
	out     io.Writer
}

func NewWhoamiCommand(cfg *config.Config) *WhoamiCommand {
	return &WhoamiCommand{cfg: cfg}
}

func (cmd *WhoamiCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)

	fs.BoolVar(&cmd.JSON, "json", false, "Print the user as JSON")
	cmd.browser.register(fs, cmd.cfg)

	fs.Usage = usage(fs, "whoami [options]", "Show who the stored session is signed in as.")

	return fs.Parse(args)
}

func (cmd *WhoamiCommand) Run() error {
	session, err := openBrowser(cmd.cfg, cmd.browser)
	if err != nil {
		return err
	}
	defer session.Close()

	user := session.client.GetUser(context.Background(), session.rc, false)
	if user == nil {
		return ErrNotSignedIn
	}
	return printUser(output(cmd.out), user, cmd.JSON)
}
