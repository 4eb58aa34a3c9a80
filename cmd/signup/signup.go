package signup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitalarbor/vitalarbor-go/internal/cli"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// Command creates the signup command for registering a new account.
func Command(app *cli.App, opts *cli.CommandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a VitalArbor account",
		Long:  fmt.Sprintf("Register a new account. Passwords must be at least %d characters.", vitalarbor.MinPasswordLength),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			creds := opts.Creds.Resolve()

			o, loop, err := app.Session(vitalarbor.Credentials{})
			if err != nil {
				return err
			}
			defer loop.Close()
			defer o.Close()

			if _, err := cli.Await(ctx, loop, o.Signup(ctx, creds)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. You can now sign in.\n", creds.Username)
			return nil
		},
	}
}
