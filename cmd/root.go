package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vitalarbor/vitalarbor-go/cmd/config"
	"github.com/vitalarbor/vitalarbor-go/cmd/diagnose"
	"github.com/vitalarbor/vitalarbor-go/cmd/images"
	"github.com/vitalarbor/vitalarbor-go/cmd/login"
	"github.com/vitalarbor/vitalarbor-go/cmd/mock"
	"github.com/vitalarbor/vitalarbor-go/cmd/signup"
	"github.com/vitalarbor/vitalarbor-go/internal/cli"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configFile string
	noColor    bool
}

// RootCommand creates and returns the root command
func RootCommand(app *cli.App) *cobra.Command {
	var flags globalFlags
	var creds cli.CredentialFlags

	rootCmd := &cobra.Command{
		Use:           "vitalarbor",
		Short:         "VitalArbor tree health client",
		Long:          "Sign in, manage tree photographs and run tree-health diagnoses against the VitalArbor backend or a local analysis pipeline.",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, &flags); err != nil {
		panic(err)
	}
	creds.Register(rootCmd)

	opts := &cli.CommandOptions{Creds: &creds, NoColor: &flags.noColor}
	rootCmd.AddCommand(
		login.Command(app, opts),
		signup.Command(app, opts),
		images.Command(app, opts),
		diagnose.Command(app, opts),
		config.Command(app),
		mock.Command(app),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.Init(flags.configFile)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		app.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface and
// binds the ones backed by settings keys.
func setupFlags(rootCmd *cobra.Command, flags *globalFlags) error {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to config.yaml (default: search . and the user config dir)")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable coloured output")
	pf.BoolP("debug", "d", false, "Enable debug output")
	pf.String("baseurl", "", "Backend API base URL, overrides --target")
	pf.String("target", "", "Deployment target: desktop or emulator")
	pf.String("mode", "", "Diagnosis mode: hosted or local")
	pf.String("script", "", "Analysis script for local mode")

	bindings := map[string]string{
		"debug":                  "debug",
		"api.baseurl":            "baseurl",
		"api.target":             "target",
		"diagnosis.mode":         "mode",
		"diagnosis.local.script": "script",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, pf.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}
