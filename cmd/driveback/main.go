// Command driveback backs up configured folders to a storage root as
// timestamped zip archives and restores them back.
package main

import (
	"os"

	"github.com/driveback/driveback/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
