package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/driveback/driveback/pkg/engine"
	"github.com/driveback/driveback/pkg/report"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"scan"},
	Short:   "List the archives currently at the storage root",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, id, _, err := loadRunState()
	if err != nil {
		return err
	}

	eng := engine.New(engine.StaticSource(cfg), id, report.NewConsole())
	if !eng.Scan() {
		return errors.New("could not list archives")
	}
	return nil
}
