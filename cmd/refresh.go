package cmd

import (
	"github.com/spf13/cobra"
)

// refreshCmd creates a new cobra.Command forcing a token refresh.
func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a token refresh",
		Long:  "Exchange the stored refresh token for a new access token, regardless of the current one's expiry",
		Run: func(cmd *cobra.Command, args []string) {
			application, err := newApp()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			defer application.close()

			if _, err := application.tokens.Refresh(cmd.Context()); err != nil {
				cmd.PrintErrln("Error: Token refresh failed:", err)
				return
			}
			cmd.Println("Token refreshed.")
		},
	}
}
