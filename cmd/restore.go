package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/driveback/driveback/pkg/engine"
	"github.com/driveback/driveback/pkg/report"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the newest archive into the local folders",
	Long: `Extract the newest archive at the storage root back under the local
root. Existing files are overwritten (latest wins); files that cannot
be written are skipped and reported. Restore is not transactional: a
cancelled run leaves the files extracted so far in place.`,
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
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
	if !eng.Restore(ctx) {
		return errors.New("restore did not complete")
	}
	return nil
}
