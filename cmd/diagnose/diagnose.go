package diagnose

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalarbor/vitalarbor-go/internal/cli"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
	"github.com/vitalarbor/vitalarbor-go/internal/orchestrator"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

type flags struct {
	classification string
	tilt           string
	backup         string
	useCutout      bool
	method         int
	raw            bool
}

// Command creates the diagnose command, which submits three photographs of
// one tree for analysis.
func Command(app *cli.App, opts *cli.CommandOptions) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Analyse a tree from three photographs",
		Long: `Submit a classification photo, a tilt photo and a backup photo of one tree.
The analysis runs on the backend or locally, depending on diagnosis.mode.
Press Ctrl+C to cancel a running analysis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, app, opts, &f)
		},
	}

	cmd.Flags().StringVar(&f.classification, "classification", "", "Photo used for species classification")
	cmd.Flags().StringVar(&f.tilt, "tilt", "", "Photo used for tilt measurement")
	cmd.Flags().StringVar(&f.backup, "backup", "", "Backup photo of the same tree")
	cmd.Flags().BoolVar(&f.useCutout, "cutout", false, "Isolate the trunk from the background before analysis")
	cmd.Flags().IntVar(&f.method, "method", vitalarbor.MinDetectionMethod,
		fmt.Sprintf("Tilt detection method (%d-%d)", vitalarbor.MinDetectionMethod, vitalarbor.MaxDetectionMethod))
	cmd.Flags().BoolVar(&f.raw, "raw", false, "Also print the full analysis output")

	return cmd
}

func run(cmd *cobra.Command, app *cli.App, opts *cli.CommandOptions, f *flags) error {
	ctx := cmd.Context()
	errOut := cmd.ErrOrStderr()
	log := app.Logger()

	o, loop, err := app.Session(opts.Creds.Resolve(),
		orchestrator.WithPhaseListener(phaseReporter(errOut, app.Settings.Diagnosis.Mode)))
	if err != nil {
		return err
	}
	defer loop.Close()
	defer o.Close()

	paths := [...]string{f.classification, f.tilt, f.backup}
	for i, role := range orchestrator.Roles {
		if err := o.Bind(role, paths[i]); err != nil {
			return err
		}
	}
	o.SetOptions(f.useCutout, f.method)

	h, err := o.Submit()
	if err != nil {
		return err
	}
	log.Debug("diagnosis submitted", logger.String("trace_id", h.ID()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	spinner := opts.Spinner(errOut)
	go func() {
		ticker := time.NewTicker(spinner.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-sigCh:
				loop.Dispatch(func() {
					if err := o.Cancel(); err != nil {
						log.Debug("cancel ignored", logger.Error(err))
					}
				})
			case <-ticker.C:
				loop.Dispatch(spinner.Update)
			case <-h.Done():
				return
			}
		}
	}()

	err = loop.RunUntil(ctx, h.Done())
	spinner.Cleanup()
	if err != nil {
		return err
	}

	result, err := h.Result()
	if err != nil {
		return err
	}
	opts.Renderer(cmd.OutOrStdout()).Result(result, f.raw)
	return nil
}

// phaseReporter prints the in-progress indicator when a submission starts.
func phaseReporter(w io.Writer, mode string) func(orchestrator.Phase) {
	return func(p orchestrator.Phase) {
		if p == orchestrator.PhaseSubmitting {
			fmt.Fprintf(w, "Analysis in progress (%s), press Ctrl+C to cancel\n", mode)
		}
	}
}
