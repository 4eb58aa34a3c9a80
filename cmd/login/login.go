package login

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitalarbor/vitalarbor-go/internal/cli"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// Command creates the login command, which checks credentials against the
// backend.
func Command(app *cli.App, opts *cli.CommandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to the VitalArbor backend",
		Long:  `Verify a username and password against the backend. The backend keeps no session; the same credentials are sent with every later command.`,
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

			result, err := cli.Await(ctx, loop, o.Login(ctx, creds))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s\n", result.Username)
			if result.Message != "" {
				fmt.Fprintln(out, result.Message)
			}
			return nil
		},
	}
}
