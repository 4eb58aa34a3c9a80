package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/vitalarbor/vitalarbor-go/internal/conf"
	"github.com/vitalarbor/vitalarbor-go/internal/vitalarbor"
)

// CredentialFlags are the account flags shared by authenticated commands.
type CredentialFlags struct {
	Username string
	Password string
	Guest    bool
}

// Register adds --username, --password and --guest to cmd.
func (f *CredentialFlags) Register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&f.Username, "username", "u", "", "Account username (env "+conf.EnvUsername+")")
	cmd.PersistentFlags().StringVarP(&f.Password, "password", "p", "", "Account password (env "+conf.EnvPassword+")")
	cmd.PersistentFlags().BoolVar(&f.Guest, "guest", false, "Continue as guest; authenticated commands are refused")
}

// Resolve returns the credentials from flags, falling back to the
// environment for anything left empty.
func (f *CredentialFlags) Resolve() vitalarbor.Credentials {
	return f.resolve(os.LookupEnv)
}

func (f *CredentialFlags) resolve(lookup func(string) (string, bool)) vitalarbor.Credentials {
	if f.Guest {
		return vitalarbor.Guest()
	}
	creds := vitalarbor.Credentials{Username: f.Username, Password: f.Password}
	if creds.Username == "" {
		creds.Username, _ = lookup(conf.EnvUsername)
	}
	if creds.Password == "" {
		creds.Password, _ = lookup(conf.EnvPassword)
	}
	return creds
}

// CommandOptions carries the root command's shared flags to subcommands.
type CommandOptions struct {
	Creds   *CredentialFlags
	NoColor *bool
}

// Renderer returns a Renderer for w honouring --no-color.
func (o *CommandOptions) Renderer(w io.Writer) *Renderer {
	return NewRenderer(w, o.NoColor == nil || !*o.NoColor)
}

// Spinner returns a progress indicator for w. It animates only on a
// terminal with colour enabled.
func (o *CommandOptions) Spinner(w io.Writer) *Spinner {
	animate := false
	if f, ok := w.(*os.File); ok && (o.NoColor == nil || !*o.NoColor) {
		animate = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return NewSpinner(w, animate)
}
