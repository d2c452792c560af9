package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dashkit/authcore/session"
)

// whoamiCmd creates a new cobra.Command showing the authenticated identity.
func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the currently authenticated user",
		Long:  "Restore the persisted session and print the user's profile, role, and permissions",
		Run: func(cmd *cobra.Command, args []string) {
			application, err := newApp()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			defer application.close()

			if err := application.session.Initialize(cmd.Context()); err != nil {
				cmd.PrintErrln("Error: Could not restore session:", err)
				return
			}

			snapshot := application.session.Snapshot()
			if snapshot.Status != session.StatusAuthenticated {
				cmd.Println("Not logged in. Run 'authcore login' first.")
				return
			}

			printProfile(snapshot)
		},
	}
}

func printProfile(s session.Session) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})

	// Table appearance settings
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	table.Append([]string{"ID", s.User.ID.String()})
	table.Append([]string{"Email", s.User.Email})
	if s.User.Name != "" {
		table.Append([]string{"Name", s.User.Name})
	}
	table.Append([]string{"Role", string(s.Role)})
	for i, p := range s.Permissions {
		label := ""
		if i == 0 {
			label = "Permissions"
		}
		table.Append([]string{label, string(p)})
	}

	table.Render()
}
