// Package cmd wires the command line surface around the engine
// packages. Each subcommand builds its own engine and reporter; the
// shared state here is limited to flags and logging setup.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/driveback/driveback/pkg/buildinfo"
	"github.com/driveback/driveback/pkg/config"
	"github.com/driveback/driveback/pkg/engine"
	"github.com/driveback/driveback/pkg/util"
)

var (
	cfgPath           string
	verbose           bool
	quiet             bool
	jsonLogs          bool
	hostnameOverride  string
	localRootOverride string
)

// runGuard serializes engine runs within this process. The watch daemon
// is the only command that can start more than one.
var runGuard = engine.NewGuard()

var rootCmd = &cobra.Command{
	Use:   buildinfo.Name,
	Short: "Folder backup and restore through zip archives on a mounted drive",
	Long: buildinfo.Name + ` keeps selected folders of this machine synced to a storage
root (typically a mounted cloud or network drive) as timestamped zip
archives, and restores the newest archive back when asked.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	Version:       buildinfo.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default: per-user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&hostnameOverride, "hostname", "", "override the hostname used in archive names")
	rootCmd.PersistentFlags().StringVar(&localRootOverride, "local-root", "", "override the root under which target folders are resolved")

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging() {
	if jsonLogs {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// configPath resolves the config file location from the flag or the
// per-user default.
func configPath() (string, error) {
	if cfgPath != "" {
		return util.ExpandPath(cfgPath)
	}
	return config.DefaultPath()
}

// loadRunState resolves everything a run needs: the configuration, the
// machine identity, and the config path it came from.
func loadRunState() (config.Config, config.Identity, string, error) {
	path, err := configPath()
	if err != nil {
		return config.Config{}, config.Identity{}, "", err
	}
	id, err := config.DetectIdentity(hostnameOverride, localRootOverride)
	if err != nil {
		return config.Config{}, config.Identity{}, "", err
	}
	cfg := config.Load(path)
	log.Debug().Str("config", path).Str("hostname", id.Hostname).Str("local_root", id.LocalRoot).Msg("run state loaded")
	return cfg, id, path, nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM, so a
// Ctrl-C lands as ordinary run cancellation.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, cancelling run")
		cancel()
	}()

	return ctx, cancel
}

// Execute runs the root command. Errors are logged here once instead
// of letting cobra print them alongside usage text.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.Error().Err(err).Msg(buildinfo.Name + " failed")
	}
	return err
}
