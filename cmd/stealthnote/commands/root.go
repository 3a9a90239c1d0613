package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stealthnote/internal/app"
	"stealthnote/internal/domain"
	"stealthnote/internal/tokensource"
)

var (
	cfg    app.Config
	appCtx *app.App

	home       string
	passphrase string
	boardURL   string
	proverURL  string
	session    string
	token      string
	logLevel   string
)

// Execute runs the CLI until ctx is cancelled.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "stealthnote",
		Short:         "Post anonymously as a verified member of your organization",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if cfg, err = app.LoadConfig(); err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("passphrase") {
				cfg.Passphrase = passphrase
			}
			if flags.Changed("board") {
				cfg.BoardURL = boardURL
			}
			if flags.Changed("prover") {
				cfg.ProverURL = proverURL
			}
			if flags.Changed("session") {
				cfg.Session = session
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.ResolveHome(); err != nil {
				return err
			}
			log, err := cfg.Logger(os.Stderr)
			if err != nil {
				return err
			}

			var tokens domain.TokenSource = &tokensource.Prompt{In: os.Stdin, Out: os.Stderr, RedirectURL: cfg.RedirectURL}
			if token != "" {
				tokens = tokensource.Static{Token: token}
			}
			appCtx, err = app.NewApp(cfg, tokens, log)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&home, "home", "", "config dir (default ~/.stealthnote)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the session key")
	pf.StringVar(&boardURL, "board", "", "board base URL (e.g. http://127.0.0.1:8080)")
	pf.StringVar(&proverURL, "prover", "", "prover base URL used by register and refresh")
	pf.StringVar(&session, "session", "", "session name (default \"default\")")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		registerCmd(),
		refreshCmd(),
		resetCmd(),
		whoamiCmd(),
		postCmd(),
		listCmd(),
		verifyCmd(),
	)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s (%v)\n", domain.Reason(err), err)
	}
	return err
}

func requirePassphrase() error {
	if cfg.Passphrase == "" {
		return fmt.Errorf("passphrase required (-p or STEALTHNOTE_PASSPHRASE)")
	}
	return nil
}
