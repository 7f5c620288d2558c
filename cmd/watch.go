package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/driveback/driveback/pkg/buildinfo"
	"github.com/driveback/driveback/pkg/config"
	"github.com/driveback/driveback/pkg/engine"
	"github.com/driveback/driveback/pkg/report"
	"github.com/driveback/driveback/pkg/scheduler"
)

var watchLogFile string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run in the background and back up at the scheduled times",
	Long: `Run until interrupted, triggering a silent backup whenever the clock
reaches one of the configured scheduled times. The config file is
re-read before every scheduled run, so schedule and folder changes
take effect without restarting the daemon.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "rotating log file (default: <config dir>/"+buildinfo.Name+".log)")
}

// fileSource re-reads the config file on every access. The scheduler
// and each triggered run see the file's current content.
type fileSource struct {
	path string
}

func (s fileSource) Current() config.Config {
	return config.Load(s.path)
}

var _ engine.ConfigSource = fileSource{}

func runWatch(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	id, err := config.DetectIdentity(hostnameOverride, localRootOverride)
	if err != nil {
		return err
	}

	// A daemon needs durable logs: console output plus a rotating file.
	logPath := watchLogFile
	if logPath == "" {
		logPath = filepath.Join(filepath.Dir(path), buildinfo.Name+".log")
	}
	fileOut := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, fileOut)).With().Timestamp().Logger()

	ctx, cancel := signalContext()
	defer cancel()

	src := fileSource{path: path}
	sched := scheduler.New(src, func(ctx context.Context) {
		runScheduledBackup(ctx, src, id)
	})

	log.Info().Str("config", path).Str("log_file", logPath).Msg("watch daemon started")
	sched.Run(ctx)
	return nil
}

// runScheduledBackup is one silent scheduler-triggered run. A run that
// cannot take the guard is skipped; the next scheduled minute tries
// again.
func runScheduledBackup(ctx context.Context, src engine.ConfigSource, id config.Identity) {
	if !runGuard.TryAcquire() {
		log.Warn().Msg("scheduled backup skipped, another run is active")
		return
	}
	defer runGuard.Release()

	log.Info().Msg("scheduled backup starting")
	ok := engine.New(src, id, report.Nop{}).Backup(ctx)
	if ok {
		log.Info().Msg("scheduled backup complete")
	} else {
		log.Warn().Msg("scheduled backup did not complete")
	}
}
