package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stealthnote/internal/domain"
)

func postCmd() *cobra.Command {
	var internal bool
	var out string
	cmd := &cobra.Command{
		Use:   "post <text>",
		Short: "Sign a message and post it to the board",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			signed, err := appCtx.Messages.Submit(cmd.Context(), cfg.SessionContext(), strings.Join(args, " "), internal)
			if err != nil {
				return err
			}
			if out != "" {
				b, err := json.MarshalIndent(signed, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, b, 0o600); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %s to %s\n", signed.Message.ID, signed.Message.GroupID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&internal, "internal", false, "only visible on your organization's internal board")
	cmd.Flags().StringVarP(&out, "out", "o", "", "also write the signed message to this file")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		providerSlug string
		group        string
		internal     bool
		limit        int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List board messages, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var msgs []domain.BoardMessage
			if internal {
				// Internal boards are read as the registered member; the group comes from the session.
				if group != "" || providerSlug != "" {
					return fmt.Errorf("--internal lists your own group; drop --provider and --group")
				}
				if err := requirePassphrase(); err != nil {
					return err
				}
				var err error
				if msgs, err = appCtx.Messages.ListInternal(cmd.Context(), cfg.SessionContext(), time.Time{}, limit); err != nil {
					return err
				}
			} else {
				q := domain.MessageQuery{GroupID: domain.GroupID(group), Limit: limit}
				if providerSlug != "" {
					p, err := appCtx.Registry.BySlug(providerSlug)
					if err != nil {
						return err
					}
					q.ProviderID = p.ID
				}
				var err error
				if msgs, err = appCtx.Board.ListMessages(cmd.Context(), q); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			for _, m := range msgs {
				who := string(m.Signed.Message.GroupID)
				if m.SenderName != "" {
					who = m.SenderName + " @ " + who
				}
				fmt.Fprintf(w, "%s  %-30s  %s\n", m.Signed.Message.CreatedAt.Local().Format(time.DateTime), who, m.Signed.Message.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&providerSlug, "provider", "", "provider slug, required with --group")
	cmd.Flags().StringVar(&group, "group", "", "only this group's messages")
	cmd.Flags().BoolVar(&internal, "internal", false, "your group's internal board (needs a registered session)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum messages")
	return cmd
}
