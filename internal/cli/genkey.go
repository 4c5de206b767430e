package cli

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

// NewGenKeyCommand creates the gen-key command.
func NewGenKeyCommand() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "gen-key",
		Short: "Print a random base64url key for pwd_key or token_key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 32 {
				return fmt.Errorf("key size must be at least 32 bytes, got %d", size)
			}
			key := make([]byte, size)
			if _, err := rand.Read(key); err != nil {
				return fmt.Errorf("read random: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), base64.RawURLEncoding.EncodeToString(key))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 64, "key size in bytes")
	return cmd
}
