package main

import (
	"context"
	"fmt"
	"os"

	"github.com/microtrax/microtrax/cmd"
	"github.com/microtrax/microtrax/internal/buildinfo"
	"github.com/microtrax/microtrax/internal/conf"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	build := &buildinfo.Context{Version: version, BuildDate: buildDate}

	settings, err := conf.Load()
	if err != nil {
		if !conf.IsEnvWarning(err) {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "Warning: ignoring invalid environment overrides: %v\n", err)
	}

	rootCmd := cmd.RootCommand(settings, build)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
