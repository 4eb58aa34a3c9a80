package mock

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vitalarbor/vitalarbor-go/internal/cli"
	"github.com/vitalarbor/vitalarbor-go/internal/mockbackend"
)

// Command creates the mock-backend command, an in-memory stand-in for the
// VitalArbor service.
func Command(app *cli.App) *cobra.Command {
	var listen, publicURL string

	cmd := &cobra.Command{
		Use:   "mock-backend",
		Short: "Serve an in-memory VitalArbor backend for development",
		Long: `Serve /api/login, /api/signup, /api/images, /api/upload and /api/diagnose
from memory. Accounts and images are lost on exit; /diagnose answers with a
canned low-risk assessment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("listen") {
				listen = app.Settings.Mock.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := mockbackend.New(mockbackend.Config{
				Listen:    listen,
				PublicURL: publicURL,
			})
			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", mockbackend.DefaultListen, "Address to listen on")
	cmd.Flags().StringVar(&publicURL, "public-url", "", "Base URL used in returned image links (default: request host)")
	return cmd
}
