package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/driveback/driveback/pkg/engine"
	"github.com/driveback/driveback/pkg/report"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up the configured folders into a new archive",
	Long: `Back up every configured target folder into a single timestamped zip
archive at the storage root, then apply the retention policy. The
archive appears at the storage root only after it is complete; an
interrupted run leaves nothing behind.`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, id, _, err := loadRunState()
	if err != nil {
		return err
	}

	if !runGuard.TryAcquire() {
		return errors.New("another run is already active")
	}
	defer runGuard.Release()

	ctx, cancel := signalContext()
	defer cancel()

	eng := engine.New(engine.StaticSource(cfg), id, report.NewConsole())
	if !eng.Backup(ctx) {
		return errors.New("backup did not complete")
	}
	return nil
}
