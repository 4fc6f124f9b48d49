package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/sanctum-auth/internal/config"
	"github.com/mrlokans/sanctum-auth/internal/cookiestore"
	"github.com/mrlokans/sanctum-auth/internal/entities"
	"github.com/mrlokans/sanctum-auth/internal/sanctum"
)

// browserFlags are shared by every command that talks to the backend the way
// a browser tab would.
type browserFlags struct {
	BaseURL   string
	Token     bool
	StatePath string
	KeyFile   string
	Profile   string
}

func (b *browserFlags) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&b.BaseURL, "api", cfg.Sanctum.BaseURL, "Base URL of the Sanctum backend")
	fs.BoolVar(&b.Token, "token", cfg.Sanctum.Token, "Use bearer token mode instead of cookie sessions")
	fs.StringVar(&b.StatePath, "state", cfg.Browser.StatePath, "Path to the database holding the browser's cookies")
	fs.StringVar(&b.KeyFile, "key-file", cfg.Browser.KeyFilePath, "Path to the cookie encryption key (created if missing)")
	fs.StringVar(&b.Profile, "profile", cookiestore.DefaultProfile, "Cookie profile, to keep several accounts apart")
}

// browserSession is one CLI run acting as a browser: a persisted cookie jar
// and a client whose AuthState lives for the run.
type browserSession struct {
	client *sanctum.Client
	rc     *sanctum.BrowserContext
	store  *cookiestore.Store
}

func openBrowser(cfg *config.Config, flags browserFlags) (*browserSession, error) {
	sanctumCfg := cfg.Sanctum
	sanctumCfg.BaseURL = flags.BaseURL
	sanctumCfg.Token = flags.Token

	store, err := cookiestore.New(cookiestore.Config{
		DatabasePath:  flags.StatePath,
		EncryptionKey: cfg.Browser.EncryptionKey,
		KeyFilePath:   flags.KeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open browser state: %w", err)
	}

	jar, err := store.Jar(flags.Profile)
	if err != nil {
		store.Close()
		return nil, err
	}

	rc, err := sanctum.NewBrowserContext(jar, sanctumCfg.BaseURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	client, err := sanctum.NewClient(sanctumCfg, sanctum.Options{})
	if err != nil {
		store.Close()
		return nil, err
	}

	s := &browserSession{client: client, rc: rc, store: store}
	if sanctumCfg.Token {
		// The token cookie survives between runs, the AuthState does not
		s.client.GetToken(context.Background(), rc)
	}
	return s, nil
}

func (s *browserSession) Close() error {
	return s.store.Close()
}

// output returns w, or stdout when w is nil.
func output(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// printUser writes a profile as indented JSON or as a short summary.
func printUser(w io.Writer, user entities.User, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(user)
	}

	name := user.String("name")
	if name == "" {
		name = "(no name)"
	}
	fmt.Fprintf(w, "Signed in as %s <%s>\n", name, user.String("email"))
	if user.IsVerified() {
		fmt.Fprintf(w, "Email verified at %v\n", user.EmailVerifiedAt())
	} else {
		fmt.Fprintln(w, "Email not verified")
	}
	return nil
}

// usage builds a FlagSet usage function in the common layout.
func usage(fs *flag.FlagSet, synopsis, description string, examples ...string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s\n\n", os.Args[0], synopsis)
		fmt.Fprintf(os.Stderr, "%s\n\n", description)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		if len(examples) > 0 {
			fmt.Fprintf(os.Stderr, "\nExamples:\n")
			for _, example := range examples {
				fmt.Fprintf(os.Stderr, "  %s %s\n", os.Args[0], example)
			}
		}
	}
}

// passwordFromEnv lets scripts keep passwords out of the process list.
func passwordFromEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("SANCTUM_PASSWORD")
}
