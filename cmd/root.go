package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/microtrax/microtrax/cmd/notify"
	"github.com/microtrax/microtrax/cmd/serve"
	"github.com/microtrax/microtrax/cmd/vapid"
	"github.com/microtrax/microtrax/internal/buildinfo"
	"github.com/microtrax/microtrax/internal/conf"
	"github.com/microtrax/microtrax/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var centralLogger *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "microtrax",
		Short:         "microtrax notification backend",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		serve.Command(settings, build),
		notify.Command(settings, build),
		vapid.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cl, err := initialize(settings, build)
		if err != nil {
			return err
		}
		centralLogger = cl
		return nil
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if centralLogger == nil {
			return nil
		}
		_ = centralLogger.Flush()
		return centralLogger.Close()
	}

	return rootCmd
}

// initialize runs after flags are parsed and before any subcommand. It
// installs the central logger so every module logs with the final levels.
func initialize(settings *conf.Settings, build *buildinfo.Context) (*logger.CentralLogger, error) {
	if settings.Main.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	if settings.Logging.Timezone == "" {
		settings.Logging.Timezone = settings.Main.Timezone
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(cl)

	cl.Module("main").Debug("starting microtrax",
		logger.String("version", build.GetVersion()),
		logger.String("build_date", build.GetBuildDate()),
		logger.String("config", conf.ConfigFileUsed()))
	return cl, nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Main.Debug, "debug", "d", viper.GetBool("main.debug"), "Enable debug output")
}
