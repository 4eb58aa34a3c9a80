package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vitalarbor/vitalarbor-go/cmd"
	"github.com/vitalarbor/vitalarbor-go/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	app := cli.New(version)
	root := cmd.RootCommand(app)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, cli.Describe(err))
		app.Close()
		os.Exit(1)
	}
}
