package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"stealthnote/internal/domain"
)

// verify <file>: check a saved SignedMessageWithProof without the board.
func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a saved message artifact locally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var signed domain.SignedMessageWithProof
			if err := json.Unmarshal(raw, &signed); err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}
			if err := appCtx.Verifier.Verify(cmd.Context(), signed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: posted by a member of %s (%s)\n",
				signed.Proof.PublicInputs.GroupID, signed.Proof.PublicInputs.ProviderID)
			return nil
		},
	}
}
