package cmd

import (
	"github.com/spf13/cobra"
)

// logoutCmd creates a new cobra.Command for ending the current session.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Long:  "Notify the backend, clear the locally stored token pair, and reset the session",
		Run: func(cmd *cobra.Command, args []string) {
			application, err := newApp()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			defer application.close()

			if err := application.session.Initialize(cmd.Context()); err != nil {
				cmd.PrintErrln("Warning: Could not restore session:", err)
			}
			application.session.Logout(cmd.Context())
			cmd.Println("Logged out.")
		},
	}
}
