package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dashkit/authcore/client"
	"github.com/dashkit/authcore/pkg/validation"
)

// loginCmd creates a new cobra.Command for authenticating with the backend.
func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the dashboard backend",
		Long:  "Authenticate with your email and password and store the issued token pair locally",
		Run: func(cmd *cobra.Command, args []string) {
			if email == "" {
				email = promptForInput("Email: ")
			}
			password := promptForPassword("Password: ")

			if err := validation.ValidateEmail(email); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			if err := validation.ValidateNonEmptyString("password", password); err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}

			application, err := newApp()
			if err != nil {
				cmd.PrintErrln("Error:", err)
				return
			}
			defer application.close()

			creds := client.Credentials{Email: email, Password: password}
			if err := application.session.Login(cmd.Context(), creds); err != nil {
				cmd.PrintErrln("Error: Login failed:", err)
				return
			}

			snapshot := application.session.Snapshot()
			cmd.Printf("Logged in as %s (%s).\n", snapshot.User.Email, snapshot.Role)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address to login with")

	return cmd
}

// promptForInput prompts the user for input and returns the trimmed string.
func promptForInput(prompt string) string {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt)
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println("Error: Failed to read input.")
		os.Exit(1)
	}
	return strings.TrimSpace(input)
}

// promptForPassword prompts the user for a password securely and returns the trimmed string.
func promptForPassword(prompt string) string {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		fmt.Println("Error: Failed to read password.")
		os.Exit(1)
	}
	fmt.Println() // Print a newline for better formatting
	return strings.TrimSpace(string(password))
}
