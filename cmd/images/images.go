package images

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vitalarbor/vitalarbor-go/internal/cli"
)

// Command creates the images command group.
func Command(app *cli.App, opts *cli.CommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "List and upload tree photographs",
	}
	cmd.AddCommand(listCommand(app, opts), uploadCommand(app, opts))
	return cmd
}

func listCommand(app *cli.App, opts *cli.CommandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your uploaded images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			o, loop, err := app.Session(opts.Creds.Resolve())
			if err != nil {
				return err
			}
			defer loop.Close()
			defer o.Close()

			list, err := cli.Await(ctx, loop, o.ListImages(ctx))
			if err != nil {
				return err
			}
			opts.Renderer(cmd.OutOrStdout()).Images(list)
			return nil
		},
	}
}

func uploadCommand(app *cli.App, opts *cli.CommandOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Upload one or more images",
		Long:  `Upload images to your account. Several files are sent in parallel; each succeeds or fails on its own.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes := app.Client.UploadImages(cmd.Context(), opts.Creds.Resolve(), args)
			if failed := opts.Renderer(cmd.OutOrStdout()).Uploads(outcomes); failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(outcomes))
			}
			return nil
		},
	}
}
