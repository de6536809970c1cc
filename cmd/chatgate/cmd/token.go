package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/chatgate/chatgate/internal/auth"
)

// tokenCmd mints bearer tokens for operators and test setups.
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Generate a bearer token for a user",
	Long: `Generate a fresh bearer token for a user.

The secret half must be stored in the auth_tokens table before the token
is usable; the command prints both pieces.

Examples:
  chatgate token 42`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q: must be a decimal id", args[0])
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return err
	}

	fmt.Printf("token:  %s\n", auth.FormatToken(userID, secret))
	fmt.Printf("secret: %s\n", secret)
	return nil
}
