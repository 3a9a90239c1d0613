package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stealthnote/internal/domain"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [provider]",
		Short: "Sign in and prove membership of your organization",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			slug := "google"
			if len(args) == 1 {
				slug = args[0]
			}
			p, err := appCtx.Registry.BySlug(slug)
			if err != nil {
				return err
			}
			return register(cmd, p.ID)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "use this id_token instead of prompting")
	return cmd
}

func refreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Replace the key and re-register with the same provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			st, err := appCtx.Identity.State(cfg.SessionContext())
			if err != nil {
				return err
			}
			if st.Status != domain.Registered {
				return domain.ErrNotRegistered
			}
			return register(cmd, st.ProviderID)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "use this id_token instead of prompting")
	return cmd
}

func register(cmd *cobra.Command, id domain.ProviderID) error {
	g, err := appCtx.Registration.Register(cmd.Context(), cfg.SessionContext(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Registered as a member of %s (%s)\n", g.Title, g.ID)
	return nil
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the key and proof for this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if err := appCtx.Registration.Discard(cfg.SessionContext()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Identity reset")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the session's state, group and key commitment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			st, err := appCtx.Identity.State(cfg.SessionContext())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session:    %s\n", cfg.Session)
			fmt.Fprintf(out, "status:     %s\n", st.Status)
			if st.Proof != nil {
				in := st.Proof.PublicInputs
				fmt.Fprintf(out, "provider:   %s\n", in.ProviderID)
				fmt.Fprintf(out, "group:      %s\n", in.GroupID)
				fmt.Fprintf(out, "commitment: %s\n", in.PubkeyCommitment)
			}
			return nil
		},
	}
}
