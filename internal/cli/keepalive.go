package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/scheduler"
)

// KeepaliveCommand keeps a stored session from idling out until interrupted.
type KeepaliveCommand struct {
	Schedule string
	Once     bool

	cfg     *config.Config
	browser browserFlags
}

func NewKeepaliveCommand(cfg *config.Config) *KeepaliveCommand {
	return &KeepaliveCommand{cfg: cfg}
}

func (cmd *KeepaliveCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("keepalive", flag.ExitOnError)

	fs.StringVar(&cmd.Schedule, "schedule", cmd.cfg.Browser.KeepaliveSchedule, "Cron schedule of the checks (minute hour dom month dow)")
	fs.BoolVar(&cmd.Once, "once", false, "Check once and exit")
	cmd.browser.register(fs, cmd.cfg)

	fs.Usage = usage(fs, "keepalive [options]",
		"Refresh the signed in user on a schedule so the backend session stays alive.",
		"keepalive -schedule '*/5 * * * *'",
		"keepalive -once")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := scheduler.ValidateCronSchedule(cmd.Schedule); err != nil {
		return fmt.Errorf("invalid -schedule '%s': %w", cmd.Schedule, err)
	}
	return nil
}

func (cmd *KeepaliveCommand) Run() error {
	session, err := openBrowser(cmd.cfg, cmd.browser)
	if err != nil {
		return err
	}
	defer session.Close()

	keepalive := scheduler.NewKeepaliveScheduler(session.client, session.rc, cmd.Schedule)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if user := keepalive.Check(ctx); user == nil && cmd.Once {
		return ErrNotSignedIn
	}
	if cmd.Once {
		return nil
	}

	if err := keepalive.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	keepalive.Stop()
	return nil
}
