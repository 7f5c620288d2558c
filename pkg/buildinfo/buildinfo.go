package buildinfo

// Version holds the application's version string.
// It's a `var` so it can be set at compile time using ldflags.
// Example: go build -ldflags="-X github.com/driveback/driveback/pkg/buildinfo.Version=1.0.0"
var Version = "dev"

// Name is the canonical name of the application used for logging.
var Name = "driveback"

// ArchivePrefix is the fixed literal prefix of every archive filename
// written to the storage root. The full form is
// <prefix>_<hostname>_<YYYYMMDD>_<HHMMSS>.zip and must stay stable:
// the catalog's newest-first ordering relies on it.
const ArchivePrefix = "driveback"
